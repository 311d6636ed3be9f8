package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fast-pay/fastpay/internal/account"
	"github.com/fast-pay/fastpay/internal/money"
	"github.com/fast-pay/fastpay/internal/transfer"
)

const (
	defaultSamples     = 5
	defaultSamplePause = 20 * time.Millisecond
)

// TotalsSource sums balances across every account.
type TotalsSource interface {
	Totals(ctx context.Context) (account.Totals, error)
}

// TransitSource reports money held between the legs of running transfers.
type TransitSource interface {
	InTransit() transfer.Transit
}

// Report is the outcome of one conservation check.
//
// Settled is false when balances kept moving under every sample; such a report proves
// nothing either way and Balanced is false.
type Report struct {
	Accounts  int64        `json:"accounts"`
	Balances  money.Amount `json:"balances"`
	InTransit money.Amount `json:"in_transit"`
	Seeded    money.Amount `json:"seeded"`
	Drift     money.Amount `json:"drift"`
	Balanced  bool         `json:"balanced"`
	Settled   bool         `json:"settled"`
	Samples   int          `json:"samples"`
	CheckedAt time.Time    `json:"checked_at"`
}

// Auditor checks that transfers have neither created nor destroyed money: the summed
// balances plus the amount in transit must equal the summed signup balances.
type Auditor struct {
	source      TotalsSource
	transit     TransitSource
	logger      *slog.Logger
	now         func() time.Time
	samples     int
	samplePause time.Duration

	mu   sync.RWMutex
	last *Report
}

// NewAuditor builds an auditor over the account store. transit may be nil, in which case
// only repeated sampling separates a transfer caught mid-flight from real drift.
func NewAuditor(source TotalsSource, transit TransitSource, logger *slog.Logger) *Auditor {
	return &Auditor{
		source:      source,
		transit:     transit,
		logger:      logger,
		now:         time.Now,
		samples:     defaultSamples,
		samplePause: defaultSamplePause,
	}
}

// Run samples the totals until one settled sample balances, or the sample budget is spent.
// Drift is reported only from a settled sample that never balanced.
func (a *Auditor) Run(ctx context.Context) (Report, error) {
	var (
		report  Report
		settled *Report
	)
	for i := 1; i <= a.samples; i++ {
		if i > 1 {
			if err := pause(ctx, a.samplePause); err != nil {
				return Report{}, err
			}
		}
		sample, err := a.sample(ctx)
		if err != nil {
			return Report{}, err
		}
		sample.Samples = i
		report = sample
		if sample.Settled {
			s := sample
			settled = &s
			if sample.Balanced {
				break
			}
		}
	}
	if settled != nil {
		report = *settled
	}
	report.CheckedAt = a.now().UTC()
	a.log(report)

	a.mu.Lock()
	a.last = &report
	a.mu.Unlock()
	return report, nil
}

func (a *Auditor) sample(ctx context.Context) (Report, error) {
	var before transfer.Transit
	if a.transit != nil {
		before = a.transit.InTransit()
	}
	totals, err := a.source.Totals(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("sum balances: %w", err)
	}
	settled := true
	if a.transit != nil {
		after := a.transit.InTransit()
		settled = before.Quiet && after.Quiet && before.Epoch == after.Epoch
	}

	drift := totals.Balances + before.Amount - totals.Seeded
	return Report{
		Accounts:  totals.Accounts,
		Balances:  totals.Balances,
		InTransit: before.Amount,
		Seeded:    totals.Seeded,
		Drift:     drift,
		Balanced:  settled && drift == 0,
		Settled:   settled,
	}, nil
}

func (a *Auditor) log(report Report) {
	attrs := []any{
		slog.Int64("accounts", report.Accounts),
		slog.String("balances", report.Balances.String()),
		slog.String("in_transit", report.InTransit.String()),
		slog.Int("samples", report.Samples),
	}
	switch {
	case report.Balanced:
		a.logger.Info("conservation audit passed", attrs...)
	case !report.Settled:
		a.logger.Warn("conservation audit inconclusive, balances kept moving", attrs...)
	default:
		attrs = append(attrs,
			slog.String("seeded", report.Seeded.String()),
			slog.String("drift", report.Drift.String()),
		)
		a.logger.Error("conservation audit failed", attrs...)
	}
}

// Last returns the most recent report, if any check has run.
func (a *Auditor) Last() (Report, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.last == nil {
		return Report{}, false
	}
	return *a.last, true
}

func pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
