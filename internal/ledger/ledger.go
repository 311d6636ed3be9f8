package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fast-pay/fastpay/internal/money"
)

// ErrInvalidRecord rejects a record missing an identifier, a party, a timestamp or a positive amount.
var ErrInvalidRecord = errors.New("invalid transfer record")

// Record is an immutable entry describing one committed transfer.
type Record struct {
	ID         string
	SenderID   string
	ReceiverID string
	Amount     money.Amount
	Timestamp  time.Time
}

// Validate checks that the record is well formed.
func (r Record) Validate() error {
	switch {
	case r.ID == "":
		return fmt.Errorf("%w: id is required", ErrInvalidRecord)
	case r.SenderID == "" || r.ReceiverID == "":
		return fmt.Errorf("%w: sender and receiver are required", ErrInvalidRecord)
	case !r.Amount.IsPositive():
		return fmt.Errorf("%w: amount must be positive", ErrInvalidRecord)
	case r.Timestamp.IsZero():
		return fmt.Errorf("%w: timestamp is required", ErrInvalidRecord)
	}
	return nil
}

// Involves reports whether the account is a party to the transfer.
func (r Record) Involves(accountID string) bool {
	return r.SenderID == accountID || r.ReceiverID == accountID
}

// Ledger is the append-only log of committed transfers.
type Ledger interface {
	// Append stores a record. Previously appended records are never modified.
	Append(ctx context.Context, record Record) error
	// ListByAccount returns every record the account took part in, newest first.
	ListByAccount(ctx context.Context, accountID string) ([]Record, error)
}
