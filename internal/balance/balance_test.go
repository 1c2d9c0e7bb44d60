package balance

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"spendbook/internal/core"
	"spendbook/internal/kv"
	"spendbook/internal/ledger"
)

func day(d, m, y int) core.DateKey { return core.DateKey{Day: d, Month: m, Year: y} }

func TestRemaining(t *testing.T) {
	today := day(5, 3, 2024)
	hundred := decimal.NewFromInt(100)

	cases := []struct {
		name   string
		ledger core.Ledger
		want   string
	}{
		{"absent bucket", core.Ledger{}, "100"},
		{"empty bucket", core.Ledger{today: {}}, "100"},
		{"two purchases", core.Ledger{today: {{Price: "30"}, {Price: "20"}}}, "50"},
		{"non-numeric treated as zero", core.Ledger{today: {{Price: "30"}, {Price: "oops"}}}, "70"},
		{"other day ignored", core.Ledger{day(4, 3, 2024): {{Price: "99"}}}, "100"},
		{"overspent goes negative", core.Ledger{today: {{Price: "150"}}}, "-50"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Remaining(hundred, tc.ledger, today)
			require.Equal(t, tc.want, got.String())
		})
	}
}

func TestTrackerSetGet(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(ledger.New(kv.NewMemoryStore()), nil)

	b, err := tr.Get(ctx)
	require.NoError(t, err)
	require.True(t, b.IsZero())

	require.NoError(t, tr.Set(ctx, decimal.NewFromInt(250)))
	b, err = tr.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "250", b.String())
}

func TestTrackerRejectsNegative(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(ledger.New(kv.NewMemoryStore()), nil)

	require.NoError(t, tr.Set(ctx, decimal.NewFromInt(10)))
	err := tr.Set(ctx, decimal.NewFromInt(-1))
	require.ErrorIs(t, err, core.ErrNegativeBalance)

	// The rejected write must not clobber the stored value
	b, err := tr.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "10", b.String())
}

func TestTrackerRemainingToday(t *testing.T) {
	ctx := context.Background()
	store := ledger.New(kv.NewMemoryStore())
	tr := NewTracker(store, nil)

	today := day(5, 3, 2024)
	require.NoError(t, tr.Set(ctx, decimal.NewFromInt(100)))
	require.NoError(t, store.WriteLedger(ctx, core.Ledger{today: {{Price: "30"}, {Price: "20"}}}))

	rem, err := tr.RemainingToday(ctx, today)
	require.NoError(t, err)
	require.Equal(t, "50", rem.String())
}
