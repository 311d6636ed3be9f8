package infra

import (
	"context"
	"fmt"
	"time"
)

const (
	readyAttempts = 5
	readyBackoff  = 200 * time.Millisecond
)

// waitReady pings a backing store until it answers, doubling the pause between attempts.
func waitReady(ctx context.Context, name string, ping func(context.Context) error) error {
	delay := readyBackoff
	var err error
	for attempt := 1; attempt <= readyAttempts; attempt++ {
		if err = ping(ctx); err == nil {
			return nil
		}
		if attempt == readyAttempts {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("ping %s: %w", name, ctx.Err())
		case <-timer.C:
		}
		delay *= 2
	}
	return fmt.Errorf("ping %s: %w", name, err)
}
