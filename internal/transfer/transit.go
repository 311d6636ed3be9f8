package transfer

import (
	"sync/atomic"

	"github.com/fast-pay/fastpay/internal/money"
)

// Transit is a point-in-time view of money between the legs of running transfers.
//
// Epoch advances at the start and end of every balance write and Quiet is false while a
// write is outstanding. Two snapshots with Quiet set and equal epochs bracket a period in
// which no balance changed, so balances read inside it plus Amount equal the seeded total.
type Transit struct {
	Amount money.Amount
	Epoch  uint64
	Quiet  bool
}

type transit struct {
	amount  atomic.Int64
	epoch   atomic.Uint64
	writers atomic.Int64
}

func (t *transit) begin() {
	t.writers.Add(1)
	t.epoch.Add(1)
}

// end records a finished write. moved is the amount that left balances (positive for a
// debit, negative for a credit).
func (t *transit) end(moved money.Amount) {
	if moved != 0 {
		t.amount.Add(moved.Minor())
	}
	t.epoch.Add(1)
	t.writers.Add(-1)
}

func (t *transit) snapshot() Transit {
	quiet := t.writers.Load() == 0
	epoch := t.epoch.Load()
	return Transit{
		Amount: money.Amount(t.amount.Load()),
		Epoch:  epoch,
		Quiet:  quiet,
	}
}
