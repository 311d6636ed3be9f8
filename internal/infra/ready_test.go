package infra

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitReadyRetriesUntilPingSucceeds(t *testing.T) {
	calls := 0
	err := waitReady(context.Background(), "store", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 pings, got %d", calls)
	}
}

func TestWaitReadyStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	down := errors.New("down")
	err := waitReady(ctx, "store", func(context.Context) error { return down })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestNewPostgresPoolRequiresURL(t *testing.T) {
	if _, err := NewPostgresPool(context.Background(), "", "fastpay"); !errors.Is(err, ErrMissingURL) {
		t.Fatalf("expected ErrMissingURL, got %v", err)
	}
}
