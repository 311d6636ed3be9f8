package account

import (
	"time"

	"github.com/fast-pay/fastpay/internal/money"
)

// Account is the balance-carrying record addressed by an opaque identifier.
type Account struct {
	ID                 string
	DisplayName        string
	Contact            string
	Balance            money.Amount
	SeedBalance        money.Amount
	Version            int64
	TwoFactorEnabled   bool
	TwoFactorSecretRef string
	CreatedAt          time.Time
}

// Profile carries the caller-supplied fields used at signup.
type Profile struct {
	DisplayName string
	Contact     string
}

// Totals summarises every account for conservation checks.
type Totals struct {
	Accounts int64
	Balances money.Amount
	Seeded   money.Amount
}
