package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/cart"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("session not found")

// Registry holds one cart per shopper session. A cart is created empty when
// its session opens and is dropped when the session ends or sits idle for
// longer than the TTL.
type Registry struct {
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
	onEnd  []func(id string)

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	cart     *cart.Store
	lastSeen time.Time
}

type Option func(*Registry)

// OnEnd registers fn to run after a session is ended or reaped.
func OnEnd(fn func(id string)) Option {
	return func(r *Registry) { r.onEnd = append(r.onEnd, fn) }
}

func NewRegistry(ttl time.Duration, logger *zap.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Open() (string, *cart.Store) {
	id := uuid.NewString()
	c := cart.NewStore()

	r.mu.Lock()
	r.sessions[id] = &entry{cart: c, lastSeen: r.now()}
	r.mu.Unlock()

	r.logger.Debug("session opened", zap.String("session_id", id))
	return id, c
}

// Cart returns the cart of a live session and marks the session as active.
func (r *Registry) Cart(id string) (*cart.Store, error) {
	r.mu.Lock()
	e, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return nil, ErrNotFound
	}
	now := r.now()
	if r.expired(e, now) {
		delete(r.sessions, id)
		r.mu.Unlock()
		r.ended(id)
		return nil, ErrNotFound
	}
	e.lastSeen = now
	r.mu.Unlock()

	return e.cart, nil
}

// End discards the session and its cart. Ending an unknown session is a no-op.
func (r *Registry) End(id string) {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		r.logger.Debug("session ended", zap.String("session_id", id))
		r.ended(id)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Reap drops every expired session and reports how many were removed.
func (r *Registry) Reap() int {
	r.mu.Lock()
	now := r.now()
	var reaped []string
	for id, e := range r.sessions {
		if r.expired(e, now) {
			delete(r.sessions, id)
			reaped = append(reaped, id)
		}
	}
	r.mu.Unlock()

	for _, id := range reaped {
		r.ended(id)
	}
	return len(reaped)
}

// Run reaps expired sessions every interval until ctx is done. It returns at
// once when sessions never expire or interval is not positive.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if r.ttl <= 0 || interval <= 0 {
		r.logger.Info("session reaper disabled",
			zap.Duration("ttl", r.ttl),
			zap.Duration("interval", interval),
		)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Reap(); n > 0 {
				r.logger.Info("reaped idle sessions", zap.Int("count", n))
			}
		}
	}
}

// ended runs the OnEnd hooks. Callers must not hold r.mu.
func (r *Registry) ended(id string) {
	for _, fn := range r.onEnd {
		fn(id)
	}
}

func (r *Registry) expired(e *entry, now time.Time) bool {
	return r.ttl > 0 && now.Sub(e.lastSeen) > r.ttl
}
