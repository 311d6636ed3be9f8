package ledger

import (
	"context"
	"slices"
	"sync"
)

type inMemoryLedger struct {
	mu        sync.RWMutex
	records   []Record
	byAccount map[string][]int
}

// NewInMemory creates a concurrency-safe in-memory ledger.
func NewInMemory() Ledger {
	return &inMemoryLedger{byAccount: make(map[string][]int)}
}

func (l *inMemoryLedger) Append(_ context.Context, record Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	pos := len(l.records)
	l.records = append(l.records, record)
	l.byAccount[record.SenderID] = append(l.byAccount[record.SenderID], pos)
	if record.ReceiverID != record.SenderID {
		l.byAccount[record.ReceiverID] = append(l.byAccount[record.ReceiverID], pos)
	}
	return nil
}

func (l *inMemoryLedger) ListByAccount(_ context.Context, accountID string) ([]Record, error) {
	l.mu.RLock()
	positions := l.byAccount[accountID]
	out := make([]Record, 0, len(positions))
	for i := len(positions) - 1; i >= 0; i-- {
		out = append(out, l.records[positions[i]])
	}
	l.mu.RUnlock()

	// Appends from unrelated transfers may land out of timestamp order; the newest-first walk
	// above keeps append order as the tie-break.
	slices.SortStableFunc(out, func(a, b Record) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out, nil
}
