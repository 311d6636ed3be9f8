package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fast-pay/fastpay/internal/account"
	"github.com/fast-pay/fastpay/internal/ledger"
	"github.com/fast-pay/fastpay/internal/money"
	"github.com/fast-pay/fastpay/internal/notification"
	"github.com/fast-pay/fastpay/internal/twofactor"
)

const (
	defaultAttempts = 8
	maxBackoff      = 10 * time.Millisecond
)

// Accounts is the slice of the account store the engine depends on.
type Accounts interface {
	Get(ctx context.Context, id string) (account.Account, error)
	ApplyDelta(ctx context.Context, id string, delta money.Amount, expectedVersion int64) (account.Account, error)
}

// Dispatcher queues notifications without blocking the caller.
type Dispatcher interface {
	Dispatch(message notification.Message) bool
}

// Request asks for Amount to move from SenderID to ReceiverID.
type Request struct {
	SenderID       string
	ReceiverID     string
	Amount         money.Amount
	TwoFactorToken string
}

// Engine moves funds between accounts. Each balance change is a conditional write on the
// account version; a credit that loses its race is undone by crediting the sender back
// before the whole transfer is retried.
type Engine struct {
	accounts   Accounts
	ledger     ledger.Ledger
	gate       twofactor.Gate
	dispatcher Dispatcher
	logger     *slog.Logger
	attempts   int
	clock      *clock
	newID      func() string
	transit    transit
}

// NewEngine wires the engine. gate and dispatcher may be nil; attempts <= 0 selects 8.
func NewEngine(accounts Accounts, led ledger.Ledger, gate twofactor.Gate, dispatcher Dispatcher, logger *slog.Logger, attempts int) *Engine {
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		accounts:   accounts,
		ledger:     led,
		gate:       gate,
		dispatcher: dispatcher,
		logger:     logger,
		attempts:   attempts,
		clock:      newClock(time.Now),
		newID:      uuid.NewString,
	}
}

// Transfer debits the sender and credits the receiver by the same amount, then appends the
// ledger record. Either both balances change and a record exists, or nothing changes.
func (e *Engine) Transfer(ctx context.Context, req Request) (ledger.Record, error) {
	if !req.Amount.IsPositive() {
		return ledger.Record{}, ErrInvalidAmount
	}

	sender, err := e.resolve(ctx, SideSender, req.SenderID)
	if err != nil {
		return ledger.Record{}, err
	}
	receiver, err := e.resolve(ctx, SideReceiver, req.ReceiverID)
	if err != nil {
		return ledger.Record{}, err
	}
	// The self-transfer check and the record use the stored identifiers.
	req.SenderID, req.ReceiverID = sender.ID, receiver.ID

	if sender.TwoFactorEnabled && e.gate != nil {
		if !e.gate.Verify(ctx, sender.ID, req.TwoFactorToken) {
			return ledger.Record{}, ErrTwoFactorInvalid
		}
	}

	for attempt := 1; attempt <= e.attempts; attempt++ {
		if attempt > 1 {
			if err := backoff(ctx, attempt); err != nil {
				return ledger.Record{}, err
			}
		}

		record, retry, err := e.attempt(ctx, req)
		if retry {
			e.logger.Debug("transfer attempt lost version race",
				slog.String("sender_id", req.SenderID),
				slog.String("receiver_id", req.ReceiverID),
				slog.Int("attempt", attempt),
			)
			continue
		}
		return record, err
	}
	return ledger.Record{}, ErrConcurrencyExhausted
}

// attempt runs one pass of the commit protocol. retry is true when a version conflict left
// the balances untouched and the caller should try again.
func (e *Engine) attempt(ctx context.Context, req Request) (ledger.Record, bool, error) {
	sender, err := e.resolve(ctx, SideSender, req.SenderID)
	if err != nil {
		return ledger.Record{}, false, err
	}
	if sender.Balance < req.Amount {
		return ledger.Record{}, false, ErrInsufficientFunds
	}

	if req.SenderID == req.ReceiverID {
		return e.commitSelf(ctx, sender, req)
	}

	receiver, err := e.resolve(ctx, SideReceiver, req.ReceiverID)
	if err != nil {
		return ledger.Record{}, false, err
	}

	debited, err := e.apply(ctx, sender.ID, -req.Amount, sender.Version)
	switch {
	case errors.Is(err, account.ErrConflict):
		return ledger.Record{}, true, nil
	case errors.Is(err, account.ErrNegativeBalance):
		return ledger.Record{}, false, ErrInsufficientFunds
	case errors.Is(err, account.ErrNotFound):
		return ledger.Record{}, false, &AccountNotFoundError{Side: SideSender, AccountID: sender.ID}
	case err != nil:
		return ledger.Record{}, false, fmt.Errorf("debit sender: %w", err)
	}

	credited, err := e.apply(ctx, receiver.ID, req.Amount, receiver.Version)
	if err != nil {
		if cerr := e.compensate(ctx, sender.ID, req.Amount); cerr != nil {
			e.logCompensationFailure(req, cerr)
			return ledger.Record{}, false, fmt.Errorf("%w: %v", ErrCompensationFailed, cerr)
		}
		switch {
		case errors.Is(err, account.ErrConflict):
			return ledger.Record{}, true, nil
		case errors.Is(err, account.ErrNotFound):
			return ledger.Record{}, false, &AccountNotFoundError{Side: SideReceiver, AccountID: receiver.ID}
		default:
			return ledger.Record{}, false, fmt.Errorf("credit receiver: %w", err)
		}
	}

	record, err := e.append(ctx, req)
	if err != nil {
		rerr := errors.Join(
			e.compensate(ctx, receiver.ID, -req.Amount),
			e.compensate(ctx, sender.ID, req.Amount),
		)
		if rerr != nil {
			e.logCompensationFailure(req, rerr)
			return ledger.Record{}, false, fmt.Errorf("%w: %v (ledger append: %v)", ErrCompensationFailed, rerr, err)
		}
		return ledger.Record{}, false, err
	}

	e.notify(record, debited, credited)
	return record, false, nil
}

// commitSelf handles a transfer to the same account. It changes no balance but still bumps
// the version, so a concurrent writer sees the account moved, and records the transfer.
func (e *Engine) commitSelf(ctx context.Context, acc account.Account, req Request) (ledger.Record, bool, error) {
	touched, err := e.apply(ctx, acc.ID, 0, acc.Version)
	switch {
	case errors.Is(err, account.ErrConflict):
		return ledger.Record{}, true, nil
	case errors.Is(err, account.ErrNotFound):
		return ledger.Record{}, false, &AccountNotFoundError{Side: SideSender, AccountID: acc.ID}
	case err != nil:
		return ledger.Record{}, false, fmt.Errorf("touch account: %w", err)
	}

	record, err := e.append(ctx, req)
	if err != nil {
		return ledger.Record{}, false, err
	}
	e.notify(record, touched, touched)
	return record, false, nil
}

func (e *Engine) append(ctx context.Context, req Request) (ledger.Record, error) {
	record := ledger.Record{
		ID:         e.newID(),
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Amount:     req.Amount,
		Timestamp:  e.clock.Next(),
	}
	if err := e.ledger.Append(ctx, record); err != nil {
		return ledger.Record{}, fmt.Errorf("append transfer record: %w", err)
	}
	return record, nil
}

// compensate applies delta to the account, re-reading its version on every conflict. It runs
// detached from ctx cancellation: an abandoned request must not strand a half-applied transfer.
func (e *Engine) compensate(ctx context.Context, accountID string, delta money.Amount) error {
	ctx = context.WithoutCancel(ctx)
	var lastErr error
	for attempt := 1; attempt <= e.attempts; attempt++ {
		acc, err := e.accounts.Get(ctx, accountID)
		if err != nil {
			return fmt.Errorf("read %s: %w", accountID, err)
		}
		_, err = e.apply(ctx, accountID, delta, acc.Version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, account.ErrConflict) {
			return fmt.Errorf("apply %s to %s: %w", delta, accountID, err)
		}
		lastErr = err
	}
	return fmt.Errorf("apply %s to %s: %w", delta, accountID, lastErr)
}

// ListTransfers returns every record the account took part in, newest first.
func (e *Engine) ListTransfers(ctx context.Context, accountID string) ([]ledger.Record, error) {
	acc, err := e.resolve(ctx, "", accountID)
	if err != nil {
		return nil, err
	}
	return e.ledger.ListByAccount(ctx, acc.ID)
}

// apply is the engine's only balance write. It keeps the in-transit total in step with the
// store so an audit can account for transfers caught between their legs.
func (e *Engine) apply(ctx context.Context, id string, delta money.Amount, expectedVersion int64) (account.Account, error) {
	e.transit.begin()
	acc, err := e.accounts.ApplyDelta(ctx, id, delta, expectedVersion)
	if err != nil {
		e.transit.end(0)
		return acc, err
	}
	e.transit.end(-delta)
	return acc, nil
}

// InTransit reports money debited from a sender but not yet credited, or not yet returned,
// by transfers running in this engine.
func (e *Engine) InTransit() Transit {
	return e.transit.snapshot()
}

func (e *Engine) resolve(ctx context.Context, side Side, id string) (account.Account, error) {
	acc, err := e.accounts.Get(ctx, id)
	if errors.Is(err, account.ErrNotFound) {
		return account.Account{}, &AccountNotFoundError{Side: side, AccountID: id}
	}
	if err != nil {
		return account.Account{}, fmt.Errorf("load %s account: %w", side, err)
	}
	return acc, nil
}

func (e *Engine) notify(record ledger.Record, sender, receiver account.Account) {
	if e.dispatcher == nil {
		return
	}
	e.dispatcher.Dispatch(notification.Message{
		Kind:            notification.KindTransferCompleted,
		TransferID:      record.ID,
		SenderContact:   sender.Contact,
		ReceiverContact: receiver.Contact,
		Amount:          record.Amount,
		OccurredAt:      record.Timestamp,
	})
}

func (e *Engine) logCompensationFailure(req Request, err error) {
	e.logger.Error("compensating reversal failed, balances need manual repair",
		slog.String("sender_id", req.SenderID),
		slog.String("receiver_id", req.ReceiverID),
		slog.String("amount", req.Amount.String()),
		slog.Any("error", err),
	)
}

func backoff(ctx context.Context, attempt int) error {
	delay := time.Duration(attempt) * time.Millisecond
	if delay > maxBackoff {
		delay = maxBackoff
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
