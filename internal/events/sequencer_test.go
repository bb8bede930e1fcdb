package events

import (
	"context"
	"testing"
)

func TestNextSequenceIncrementsPerPartition(t *testing.T) {
	seq := NewMemorySequencer()
	ctx := context.Background()

	seq1, err := seq.NextSequence(ctx, "session-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seq1 != 1 {
		t.Fatalf("expected first sequence to be 1, got %d", seq1)
	}

	seq2, err := seq.NextSequence(ctx, "session-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seq2 != 2 {
		t.Fatalf("expected second sequence to be 2, got %d", seq2)
	}

	seqOther, err := seq.NextSequence(ctx, "session-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seqOther != 1 {
		t.Fatalf("expected new partition to start at 1, got %d", seqOther)
	}

	if _, err := seq.NextSequence(ctx, ""); err == nil {
		t.Fatalf("expected error for empty partition key")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := seq.NextSequence(cancelled, "session-1"); err == nil {
		t.Fatalf("expected error for cancelled context")
	}

	seq.Forget("session-1")
	restarted, _ := seq.NextSequence(ctx, "session-1")
	if restarted != 1 {
		t.Fatalf("expected forgotten partition to restart at 1, got %d", restarted)
	}
}
