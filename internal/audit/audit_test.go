package audit

import (
	"context"
	"errors"
	"math/rand"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	"github.com/fast-pay/fastpay/internal/account"
	"github.com/fast-pay/fastpay/internal/ledger"
	"github.com/fast-pay/fastpay/internal/logging"
	"github.com/fast-pay/fastpay/internal/money"
	"github.com/fast-pay/fastpay/internal/transfer"
)

type fixedTotals struct {
	totals account.Totals
	err    error
}

func (f fixedTotals) Totals(context.Context) (account.Totals, error) {
	return f.totals, f.err
}

type fixedTransit struct {
	transit transfer.Transit
	calls   atomic.Int64
	moving  bool
}

func (f *fixedTransit) InTransit() transfer.Transit {
	n := f.calls.Add(1)
	t := f.transit
	if f.moving {
		t.Epoch = uint64(n)
	}
	return t
}

func newTestAuditor(source TotalsSource, transit TransitSource) *Auditor {
	a := NewAuditor(source, transit, logging.Discard())
	a.samplePause = time.Millisecond
	return a
}

func newStore(t *testing.T) *account.Store {
	t.Helper()
	return account.NewStore(account.NewMemoryRepository(), account.NewIdentifierGenerator("fastpay"), 0)
}

func TestAuditorBalancedStore(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	a, err := store.Create(ctx, account.Profile{DisplayName: "Ada", Contact: "ada@example.com"}, money.FromMajor(100))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, err := store.Create(ctx, account.Profile{DisplayName: "Bob", Contact: "bob@example.com"}, money.FromMajor(50))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.ApplyDelta(ctx, a.ID, -money.FromMajor(30), a.Version); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if _, err := store.ApplyDelta(ctx, b.ID, money.FromMajor(30), b.Version); err != nil {
		t.Fatalf("credit: %v", err)
	}

	auditor := newTestAuditor(store, nil)
	if _, ok := auditor.Last(); ok {
		t.Fatalf("expected no report before the first run")
	}
	report, err := auditor.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !report.Balanced || !report.Settled || report.Accounts != 2 || report.Balances != money.FromMajor(150) || report.Drift != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Samples != 1 {
		t.Fatalf("a balanced first sample should end the run, took %d", report.Samples)
	}
	if last, ok := auditor.Last(); !ok || last != report {
		t.Fatalf("expected last report to be remembered")
	}
}

func TestAuditorDetectsDrift(t *testing.T) {
	auditor := newTestAuditor(fixedTotals{totals: account.Totals{Accounts: 1, Balances: 1200, Seeded: 1000}}, nil)
	report, err := auditor.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Balanced || !report.Settled || report.Drift != 200 {
		t.Fatalf("expected drift of 2.00, got %+v", report)
	}
	if report.Samples != defaultSamples {
		t.Fatalf("expected drift to be confirmed over %d samples, got %d", defaultSamples, report.Samples)
	}
}

func TestAuditorCountsMoneyInTransit(t *testing.T) {
	transit := &fixedTransit{transit: transfer.Transit{Amount: 400, Epoch: 7, Quiet: true}}
	auditor := newTestAuditor(fixedTotals{totals: account.Totals{Accounts: 2, Balances: 1600, Seeded: 2000}}, transit)
	report, err := auditor.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !report.Balanced || report.InTransit != 400 || report.Drift != 0 {
		t.Fatalf("expected in-transit amount to close the gap, got %+v", report)
	}
}

func TestAuditorInconclusiveWhileBalancesMove(t *testing.T) {
	transit := &fixedTransit{transit: transfer.Transit{Quiet: true}, moving: true}
	auditor := newTestAuditor(fixedTotals{totals: account.Totals{Balances: 1600, Seeded: 2000}}, transit)
	report, err := auditor.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Settled || report.Balanced {
		t.Fatalf("expected an unsettled report, got %+v", report)
	}
}

func TestAuditorPropagatesSourceErrors(t *testing.T) {
	boom := errors.New("db down")
	auditor := newTestAuditor(fixedTotals{err: boom}, nil)
	if _, err := auditor.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected source error, got %v", err)
	}
}

// gatedAccounts parks the first credit until release is closed, holding a transfer between
// its debit and credit legs.
type gatedAccounts struct {
	transfer.Accounts
	once    sync.Once
	reached chan struct{}
	release chan struct{}
}

func (g *gatedAccounts) ApplyDelta(ctx context.Context, id string, delta money.Amount, expectedVersion int64) (account.Account, error) {
	if delta > 0 {
		g.once.Do(func() {
			close(g.reached)
			<-g.release
		})
	}
	return g.Accounts.ApplyDelta(ctx, id, delta, expectedVersion)
}

// releasingTransit lets the parked credit go once the auditor has taken its first reading.
type releasingTransit struct {
	src     TransitSource
	once    sync.Once
	release chan struct{}
}

func (r *releasingTransit) InTransit() transfer.Transit {
	t := r.src.InTransit()
	r.once.Do(func() { close(r.release) })
	return t
}

func TestAuditorDuringTransferBetweenLegs(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	a, _ := store.Create(ctx, account.Profile{DisplayName: "Ada", Contact: "ada@example.com"}, money.FromMajor(1000))
	b, _ := store.Create(ctx, account.Profile{DisplayName: "Bob", Contact: "bob@example.com"}, money.FromMajor(500))

	gated := &gatedAccounts{Accounts: store, reached: make(chan struct{}), release: make(chan struct{})}
	engine := transfer.NewEngine(gated, ledger.NewInMemory(), nil, nil, logging.Discard(), 0)

	done := make(chan error, 1)
	go func() {
		_, err := engine.Transfer(ctx, transfer.Request{SenderID: a.ID, ReceiverID: b.ID, Amount: money.FromMajor(400)})
		done <- err
	}()
	<-gated.reached

	totals, _ := store.Totals(ctx)
	if totals.Balances != money.FromMajor(1100) {
		t.Fatalf("expected the debit to be applied, balances %s", totals.Balances)
	}

	auditor := newTestAuditor(store, &releasingTransit{src: engine, release: gated.release})
	auditor.samples = 50
	report, err := auditor.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !report.Balanced || !report.Settled {
		t.Fatalf("healthy transfer reported as drift: %+v", report)
	}
}

func TestAuditorUnderConcurrentTransfers(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	ids := make([]string, 0, 4)
	for _, name := range []string{"ada", "bob", "cy", "dee"} {
		acc, err := store.Create(ctx, account.Profile{DisplayName: name, Contact: name + "@example.com"}, money.FromMajor(1000))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, acc.ID)
	}
	engine := transfer.NewEngine(store, ledger.NewInMemory(), nil, nil, logging.Discard(), 64)
	auditor := newTestAuditor(store, engine)

	stop := make(chan struct{})
	audits := make(chan Report, 1024)
	auditDone := make(chan struct{})
	go func() {
		defer close(auditDone)
		for {
			select {
			case <-stop:
				return
			default:
			}
			report, err := auditor.Run(ctx)
			if err == nil {
				select {
				case audits <- report:
				default:
				}
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < 8; w++ {
		seed := int64(w)
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 50; i++ {
				from, to := ids[rng.Intn(len(ids))], ids[rng.Intn(len(ids))]
				_, err := engine.Transfer(gctx, transfer.Request{SenderID: from, ReceiverID: to, Amount: money.Amount(rng.Int63n(5000) + 1)})
				if err != nil && !errors.Is(err, transfer.ErrInsufficientFunds) && !errors.Is(err, transfer.ErrConcurrencyExhausted) {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("transfers: %v", err)
	}
	close(stop)
	<-auditDone
	close(audits)

	for report := range audits {
		if report.Settled && !report.Balanced {
			t.Fatalf("settled audit reported drift under load: %+v", report)
		}
	}
	final, err := auditor.Run(ctx)
	if err != nil || !final.Balanced {
		t.Fatalf("expected a balanced audit once transfers stop, got %+v %v", final, err)
	}
}

func TestReportHandler(t *testing.T) {
	app := fiber.New()
	app.Get("/ok", NewHandler(newTestAuditor(fixedTotals{totals: account.Totals{Balances: 5, Seeded: 5}}, nil)).Report)
	app.Get("/drift", NewHandler(newTestAuditor(fixedTotals{totals: account.Totals{Balances: 4, Seeded: 5}}, nil)).Report)
	app.Get("/moving", NewHandler(newTestAuditor(fixedTotals{totals: account.Totals{Balances: 4, Seeded: 5}},
		&fixedTransit{transit: transfer.Transit{Quiet: true}, moving: true})).Report)

	for path, want := range map[string]int{
		"/ok":     fiber.StatusOK,
		"/drift":  fiber.StatusConflict,
		"/moving": fiber.StatusServiceUnavailable,
	} {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Fatalf("%s: expected %d got %d", path, want, resp.StatusCode)
		}
	}
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(newTestAuditor(fixedTotals{}, nil), logging.Discard())
	if err := s.Start("not a schedule"); err == nil {
		t.Fatalf("expected schedule parse error")
	}
	<-s.Stop().Done()
}
