package events

import (
	"context"
	"fmt"
	"sync"
)

type Sequencer interface {
	NextSequence(ctx context.Context, partitionKey string) (int64, error)
}

// MemorySequencer hands out per-partition sequence numbers starting at 1.
// Sequences restart with the process, like the carts they number.
type MemorySequencer struct {
	mu   sync.Mutex
	last map[string]int64
}

func NewMemorySequencer() *MemorySequencer {
	return &MemorySequencer{last: make(map[string]int64)}
}

func (s *MemorySequencer) NextSequence(ctx context.Context, partitionKey string) (int64, error) {
	if partitionKey == "" {
		return 0, fmt.Errorf("partition key is required")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.last[partitionKey]++
	return s.last[partitionKey], nil
}

// Forget drops a partition's counter, e.g. once its session has ended.
func (s *MemorySequencer) Forget(partitionKey string) {
	s.mu.Lock()
	delete(s.last, partitionKey)
	s.mu.Unlock()
}
