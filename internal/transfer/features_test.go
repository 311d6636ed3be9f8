package transfer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/cucumber/godog"

	"github.com/fast-pay/fastpay/internal/account"
	"github.com/fast-pay/fastpay/internal/ledger"
	"github.com/fast-pay/fastpay/internal/logging"
	"github.com/fast-pay/fastpay/internal/money"
)

type transferTestContext struct {
	store     *account.Store
	ledger    ledger.Ledger
	engine    *Engine
	ids       map[string]string
	groups    map[string][]string
	err       error
	successes int
}

func (c *transferTestContext) reset() {
	c.store = account.NewStore(account.NewMemoryRepository(), account.NewIdentifierGenerator("fastpay"), 0)
	c.ledger = ledger.NewInMemory()
	c.engine = NewEngine(c.store, c.ledger, nil, nil, logging.Discard(), 0)
	c.ids = map[string]string{}
	c.groups = map[string][]string{}
	c.err = nil
	c.successes = 0
}

func (c *transferTestContext) idOf(name string) string {
	if id, ok := c.ids[name]; ok {
		return id
	}
	return name
}

func (c *transferTestContext) open(name string, balance money.Amount) error {
	acc, err := c.store.Create(context.Background(), account.Profile{DisplayName: name, Contact: name + "@example.com"}, balance)
	if err != nil {
		return err
	}
	c.ids[name] = acc.ID
	return nil
}

func (c *transferTestContext) anAccountWithBalance(name, balance string) error {
	amount, err := money.Parse(balance)
	if err != nil {
		return err
	}
	return c.open(name, amount)
}

func (c *transferTestContext) emptyAccountsNamed(n int, prefix string) error {
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("%s-%d", prefix, i)
		if err := c.open(name, 0); err != nil {
			return err
		}
		c.groups[prefix] = append(c.groups[prefix], c.ids[name])
	}
	return nil
}

func (c *transferTestContext) transfers(sender, amount, receiver string) error {
	value, err := money.Parse(amount)
	if err != nil {
		return err
	}
	_, c.err = c.engine.Transfer(context.Background(), Request{
		SenderID:   c.idOf(sender),
		ReceiverID: c.idOf(receiver),
		Amount:     value,
	})
	return nil
}

func (c *transferTestContext) concurrentlyTransfersToEach(sender, amount, group string) error {
	value, err := money.Parse(amount)
	if err != nil {
		return err
	}
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, receiver := range c.groups[group] {
		wg.Add(1)
		go func(receiver string) {
			defer wg.Done()
			_, err := c.engine.Transfer(context.Background(), Request{SenderID: c.idOf(sender), ReceiverID: receiver, Amount: value})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				c.successes++
			} else if !errors.Is(err, ErrInsufficientFunds) && !errors.Is(err, ErrConcurrencyExhausted) {
				c.err = err
			}
		}(receiver)
	}
	wg.Wait()
	return c.err
}

func (c *transferTestContext) theTransferSucceeds() error {
	return c.err
}

func (c *transferTestContext) theTransferFailsWith(kind string) error {
	want := map[string]error{
		"invalid amount":     ErrInvalidAmount,
		"account not found":  ErrAccountNotFound,
		"insufficient funds": ErrInsufficientFunds,
	}[kind]
	if want == nil {
		return fmt.Errorf("unknown failure kind %q", kind)
	}
	if !errors.Is(c.err, want) {
		return fmt.Errorf("expected %v, got %v", want, c.err)
	}
	return nil
}

func (c *transferTestContext) hasBalance(name, expected string) error {
	acc, err := c.store.Get(context.Background(), c.idOf(name))
	if err != nil {
		return err
	}
	if acc.Balance.String() != expected {
		return fmt.Errorf("expected %s to hold %s, got %s", name, expected, acc.Balance)
	}
	return nil
}

func (c *transferTestContext) ledgerListsTransfer(name string, count int, amount, receiver string) error {
	recs, err := c.ledger.ListByAccount(context.Background(), c.idOf(name))
	if err != nil {
		return err
	}
	if len(recs) != count {
		return fmt.Errorf("expected %d records, got %d", count, len(recs))
	}
	for _, rec := range recs {
		if rec.Amount.String() != amount || rec.ReceiverID != c.idOf(receiver) || rec.SenderID != c.idOf(name) {
			return fmt.Errorf("unexpected record %+v", rec)
		}
	}
	return nil
}

func (c *transferTestContext) ledgerIsEmpty(name string) error {
	recs, err := c.ledger.ListByAccount(context.Background(), c.idOf(name))
	if err != nil {
		return err
	}
	if len(recs) != 0 {
		return fmt.Errorf("expected no records, got %d", len(recs))
	}
	return nil
}

func (c *transferTestContext) exactlyConcurrentTransfersSucceed(n int) error {
	if c.successes != n {
		return fmt.Errorf("expected %d successful transfers, got %d", n, c.successes)
	}
	return nil
}

func (c *transferTestContext) totalBalancesAreConserved() error {
	totals, err := c.store.Totals(context.Background())
	if err != nil {
		return err
	}
	if totals.Balances != totals.Seeded {
		return fmt.Errorf("balances %s differ from seeded %s", totals.Balances, totals.Seeded)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &transferTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^an account "([^"]*)" with balance "([^"]*)"$`, tc.anAccountWithBalance)
	ctx.Step(`^(\d+) empty accounts named "([^"]*)"$`, tc.emptyAccountsNamed)

	// When steps
	ctx.Step(`^"([^"]*)" transfers "([^"]*)" to "([^"]*)"$`, tc.transfers)
	ctx.Step(`^"([^"]*)" concurrently transfers "([^"]*)" to each "([^"]*)"$`, tc.concurrentlyTransfersToEach)

	// Then steps
	ctx.Step(`^the transfer succeeds$`, tc.theTransferSucceeds)
	ctx.Step(`^the transfer fails with "([^"]*)"$`, tc.theTransferFailsWith)
	ctx.Step(`^"([^"]*)" has balance "([^"]*)"$`, tc.hasBalance)
	ctx.Step(`^the ledger for "([^"]*)" lists (\d+) transfers? of "([^"]*)" to "([^"]*)"$`, tc.ledgerListsTransfer)
	ctx.Step(`^the ledger for "([^"]*)" is empty$`, tc.ledgerIsEmpty)
	ctx.Step(`^exactly (\d+) concurrent transfers? succeeds?$`, tc.exactlyConcurrentTransfersSucceed)
	ctx.Step(`^total balances are conserved$`, tc.totalBalancesAreConserved)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"testdata/transfer.feature"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
