package session

import (
	"context"
	"testing"
	"time"

	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/cart"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestRegistry(ttl time.Duration, opts ...Option) (*Registry, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, time.January, 1, 10, 0, 0, 0, time.UTC)}
	r := NewRegistry(ttl, nil, opts...)
	r.now = clock.now
	return r, clock
}

func TestOpenCreatesEmptyCart(t *testing.T) {
	r, _ := newTestRegistry(time.Hour)

	id, c := r.Open()
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected uuid session id, got %q", id)
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty cart, got %d items", c.Len())
	}

	got, err := r.Cart(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != c {
		t.Fatalf("expected the same cart for the session")
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	r, _ := newTestRegistry(time.Hour)

	id1, c1 := r.Open()
	_, c2 := r.Open()
	c1.Add(cart.Product{ID: "p1", Price: decimal.NewFromInt(5)}, "8")

	if c2.ItemCount() != 0 {
		t.Fatalf("second session should not see first session items")
	}
	got, _ := r.Cart(id1)
	if got.ItemCount() != 1 {
		t.Fatalf("expected 1 item, got %d", got.ItemCount())
	}
}

func TestCartUnknownSession(t *testing.T) {
	r, _ := newTestRegistry(time.Hour)

	if _, err := r.Cart("missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEndIsIdempotent(t *testing.T) {
	r, _ := newTestRegistry(time.Hour)
	id, _ := r.Open()

	r.End(id)
	r.End(id)

	if _, err := r.Cart(id); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after End, got %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("expected no sessions, got %d", r.Len())
	}
}

func TestIdleSessionExpires(t *testing.T) {
	r, clock := newTestRegistry(30 * time.Minute)
	id, _ := r.Open()

	clock.advance(20 * time.Minute)
	if _, err := r.Cart(id); err != nil {
		t.Fatalf("session should still be live: %v", err)
	}

	// access above refreshed lastSeen
	clock.advance(20 * time.Minute)
	if _, err := r.Cart(id); err != nil {
		t.Fatalf("session should still be live after touch: %v", err)
	}

	clock.advance(31 * time.Minute)
	if _, err := r.Cart(id); err != ErrNotFound {
		t.Fatalf("expected expired session, got %v", err)
	}
}

func TestReap(t *testing.T) {
	r, clock := newTestRegistry(time.Minute)
	old, _ := r.Open()
	clock.advance(2 * time.Minute)
	fresh, _ := r.Open()

	if n := r.Reap(); n != 1 {
		t.Fatalf("expected 1 reaped session, got %d", n)
	}
	if _, err := r.Cart(old); err != ErrNotFound {
		t.Fatalf("expected old session gone, got %v", err)
	}
	if _, err := r.Cart(fresh); err != nil {
		t.Fatalf("fresh session should survive: %v", err)
	}
}

func TestZeroTTLNeverExpires(t *testing.T) {
	r, clock := newTestRegistry(0)
	id, _ := r.Open()

	clock.advance(1000 * time.Hour)
	if n := r.Reap(); n != 0 {
		t.Fatalf("expected nothing reaped, got %d", n)
	}
	if _, err := r.Cart(id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	r := NewRegistry(time.Nanosecond, nil)
	r.Open()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for r.Len() != 0 {
		select {
		case <-deadline:
			t.Fatalf("reaper did not remove expired session")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestOnEndHooks(t *testing.T) {
	var ended []string
	r, clock := newTestRegistry(time.Minute, OnEnd(func(id string) { ended = append(ended, id) }))

	explicit, _ := r.Open()
	r.End(explicit)
	r.End(explicit)

	lazily, _ := r.Open()
	reaped, _ := r.Open()
	clock.advance(2 * time.Minute)
	if _, err := r.Cart(lazily); err != ErrNotFound {
		t.Fatalf("expected expired session, got %v", err)
	}
	r.Reap()

	want := []string{explicit, lazily, reaped}
	if len(ended) != len(want) {
		t.Fatalf("expected hooks for %v, got %v", want, ended)
	}
	for i := range want {
		if ended[i] != want[i] {
			t.Fatalf("expected hooks for %v, got %v", want, ended)
		}
	}
}

func TestRunWithoutReapingReturns(t *testing.T) {
	cases := map[string]struct {
		ttl      time.Duration
		interval time.Duration
	}{
		"zero interval":     {ttl: time.Hour, interval: 0},
		"negative interval": {ttl: time.Hour, interval: -time.Second},
		"zero ttl":          {ttl: 0, interval: time.Minute},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r := NewRegistry(tc.ttl, nil)
			r.Open()

			done := make(chan struct{})
			go func() {
				r.Run(context.Background(), tc.interval)
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatalf("Run did not return")
			}
			if r.Len() != 1 {
				t.Fatalf("expected session to survive, got %d", r.Len())
			}
		})
	}
}
