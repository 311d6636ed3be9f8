package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/fast-pay/fastpay/internal/money"
)

const (
	// KindTransferCompleted is emitted once per committed transfer.
	KindTransferCompleted = "transfer_completed"
)

// Message describes a notification about a committed transfer.
type Message struct {
	Kind            string       `json:"kind"`
	TransferID      string       `json:"transfer_id"`
	SenderContact   string       `json:"sender_contact"`
	ReceiverContact string       `json:"receiver_contact"`
	Amount          money.Amount `json:"amount"`
	OccurredAt      time.Time    `json:"occurred_at"`
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger. It is the fallback when no
// broker is configured.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		slog.String("kind", message.Kind),
		slog.String("transfer_id", message.TransferID),
		slog.String("sender", message.SenderContact),
		slog.String("receiver", message.ReceiverContact),
		slog.String("amount", message.Amount.String()),
	)
	return nil
}
