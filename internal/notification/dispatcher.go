package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultWorkers     = 2
	defaultQueueSize   = 256
	defaultSendTimeout = 5 * time.Second
)

// Dispatcher hands messages to a Notifier on background workers. Dispatch never blocks and
// delivery failures are logged, never returned.
type Dispatcher struct {
	notifier Notifier
	logger   *slog.Logger
	timeout  time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Message
	wg     sync.WaitGroup
}

// NewDispatcher starts workers draining a bounded queue. Non-positive sizes select defaults.
func NewDispatcher(notifier Notifier, logger *slog.Logger, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	d := &Dispatcher{
		notifier: notifier,
		logger:   logger,
		timeout:  defaultSendTimeout,
		queue:    make(chan Message, queueSize),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

// Dispatch enqueues the message. It reports false when the queue is full or the dispatcher
// is closed; the message is dropped in that case.
func (d *Dispatcher) Dispatch(message Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("notification dropped, dispatcher closed", slog.String("transfer_id", message.TransferID))
		return false
	}
	select {
	case d.queue <- message:
		return true
	default:
		d.logger.Warn("notification dropped, queue full", slog.String("transfer_id", message.TransferID))
		return false
	}
}

// Close stops accepting messages and waits for queued ones to be sent or ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain notifications: %w", ctx.Err())
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for message := range d.queue {
		d.deliver(message)
	}
}

func (d *Dispatcher) deliver(message Message) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notifier panicked", slog.String("transfer_id", message.TransferID), slog.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.notifier.Send(ctx, message); err != nil {
		d.logger.Warn("notification delivery failed",
			slog.String("kind", message.Kind),
			slog.String("transfer_id", message.TransferID),
			slog.Any("error", err),
		)
	}
}
