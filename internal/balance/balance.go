// Package balance tracks the user's declared cash balance. The balance
// is one scalar with set and read; the remaining amount is always derived,
// never stored.
package balance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"spendbook/internal/core"
	"spendbook/internal/events"
	"spendbook/internal/ledger"
)

// Remaining is the declared balance minus the given day's spend.
// Non-numeric prices count as zero; an absent or empty bucket leaves the
// balance untouched.
func Remaining(bal decimal.Decimal, l core.Ledger, day core.DateKey) decimal.Decimal {
	return bal.Sub(l.SumDay(day))
}

// Tracker persists the balance through the ledger store.
type Tracker struct {
	store *ledger.Store
	pub   *events.Publisher
}

// NewTracker builds a tracker. pub may be nil; events are then skipped.
func NewTracker(store *ledger.Store, pub *events.Publisher) *Tracker {
	return &Tracker{store: store, pub: pub}
}

// Set validates and persists a new balance. Negative values are rejected
// before anything is written.
func (t *Tracker) Set(ctx context.Context, v decimal.Decimal) error {
	if v.IsNegative() {
		return fmt.Errorf("%w: %s", core.ErrNegativeBalance, v)
	}
	if err := t.store.WriteBalance(ctx, v); err != nil {
		return err
	}
	if t.pub != nil {
		if err := t.pub.PublishLedgerEvent(ctx, events.KindBalanceSet, "", 0); err != nil {
			slog.WarnContext(ctx, "Failed to publish balance event", "error", err)
		}
	}
	slog.InfoContext(ctx, "Balance set", "balance", v.String())
	return nil
}

// Get returns the stored balance, zero if never set.
func (t *Tracker) Get(ctx context.Context) (decimal.Decimal, error) {
	return t.store.ReadBalance(ctx)
}

// RemainingToday reads balance and ledger and derives what is left for
// the given day.
func (t *Tracker) RemainingToday(ctx context.Context, day core.DateKey) (decimal.Decimal, error) {
	bal, err := t.store.ReadBalance(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	l, err := t.store.ReadLedger(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return Remaining(bal, l, day), nil
}
