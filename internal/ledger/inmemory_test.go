package ledger

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fast-pay/fastpay/internal/money"
)

func record(sender, receiver string, amount int64, at time.Time) Record {
	return Record{ID: uuid.NewString(), SenderID: sender, ReceiverID: receiver, Amount: money.Amount(amount), Timestamp: at}
}

func TestInMemoryLedger_ListByAccountNewestFirst(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	first := record("a", "b", 100, base)
	second := record("b", "c", 200, base.Add(time.Second))
	third := record("c", "a", 300, base.Add(2*time.Second))
	for _, r := range []Record{first, second, third} {
		if err := l.Append(ctx, r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := l.ListByAccount(ctx, "a")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != third.ID || got[1].ID != first.ID {
		t.Fatalf("unexpected order: %+v", got)
	}

	none, err := l.ListByAccount(ctx, "nobody")
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no records, got %d", len(none))
	}
}

func TestInMemoryLedger_OutOfOrderAppendsSortedByTimestamp(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	late := record("a", "b", 100, base.Add(time.Minute))
	early := record("a", "c", 100, base)
	_ = l.Append(ctx, late)
	_ = l.Append(ctx, early)

	got, _ := l.ListByAccount(ctx, "a")
	if got[0].ID != late.ID || got[1].ID != early.ID {
		t.Fatalf("expected timestamp-descending order, got %+v", got)
	}
}

func TestInMemoryLedger_SelfTransferListedOnce(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	if err := l.Append(ctx, record("a", "a", 50, time.Now())); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, _ := l.ListByAccount(ctx, "a")
	if len(got) != 1 {
		t.Fatalf("expected one record, got %d", len(got))
	}
}

func TestInMemoryLedger_RejectsMalformedRecords(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	now := time.Now()

	bad := []Record{
		{SenderID: "a", ReceiverID: "b", Amount: 1, Timestamp: now},
		{ID: "x", ReceiverID: "b", Amount: 1, Timestamp: now},
		{ID: "x", SenderID: "a", ReceiverID: "b", Amount: 0, Timestamp: now},
		{ID: "x", SenderID: "a", ReceiverID: "b", Amount: 1},
	}
	for i, r := range bad {
		if err := l.Append(ctx, r); !errors.Is(err, ErrInvalidRecord) {
			t.Fatalf("case %d: expected ErrInvalidRecord, got %v", i, err)
		}
	}
}

func TestInMemoryLedger_ListIsIdempotentAndDetached(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	_ = l.Append(ctx, record("a", "b", 100, time.Now()))

	first, _ := l.ListByAccount(ctx, "a")
	first[0].Amount = 999_999

	again, _ := l.ListByAccount(ctx, "a")
	third, _ := l.ListByAccount(ctx, "a")
	if again[0].Amount != 100 {
		t.Fatalf("ledger record was mutated through a returned slice")
	}
	if !reflect.DeepEqual(again, third) {
		t.Fatalf("repeated reads differ: %+v vs %+v", again, third)
	}
}

func TestInMemoryLedger_ConcurrentAppends(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := l.Append(ctx, record("hub", fmt.Sprintf("spoke-%d", i), 10, time.Now())); err != nil {
				t.Errorf("append %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	got, _ := l.ListByAccount(ctx, "hub")
	if len(got) != workers {
		t.Fatalf("expected %d records, got %d", workers, len(got))
	}
}
