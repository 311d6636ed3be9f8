package transfer

import (
	"errors"
	"fmt"

	"github.com/fast-pay/fastpay/internal/identity"
)

var (
	// ErrInvalidAmount rejects zero, negative or malformed amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrAccountNotFound matches every AccountNotFoundError.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientFunds is returned when the sender balance is below the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrConcurrencyExhausted means every attempt lost a version race. Nothing was applied.
	ErrConcurrencyExhausted = errors.New("transfer retries exhausted under contention")

	// ErrCompensationFailed means a debit could not be reversed. Balances need operator attention.
	ErrCompensationFailed = errors.New("compensating reversal failed")

	// ErrTwoFactorInvalid is returned when the sender has 2FA enabled and the token is rejected.
	ErrTwoFactorInvalid = identity.ErrTwoFactorInvalid
)

// Side names the party of a transfer an error refers to.
type Side string

const (
	SideSender   Side = "sender"
	SideReceiver Side = "receiver"
)

// AccountNotFoundError reports which party of a transfer could not be resolved.
type AccountNotFoundError struct {
	Side      Side
	AccountID string
}

func (e *AccountNotFoundError) Error() string {
	if e.Side == "" {
		return fmt.Sprintf("account %s not found", e.AccountID)
	}
	return fmt.Sprintf("%s account %s not found", e.Side, e.AccountID)
}

// Is makes errors.Is(err, ErrAccountNotFound) hold.
func (e *AccountNotFoundError) Is(target error) bool {
	return target == ErrAccountNotFound
}
