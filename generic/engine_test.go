package generic_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focep/collecte-engine/generic"
	"github.com/focep/collecte-engine/generic/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestLedger() generic.Ledger {
	return generic.NewLedger(store.NewMemory())
}

func xaf(v int64) generic.Amount {
	return generic.NewAmountFromInt(v, generic.CurrencyXAF)
}

func entry(id string, account generic.AccountID, day int, delta int64) generic.Transaction {
	return generic.Transaction{
		ID:             generic.TransactionID(id),
		EntityID:       "col-1",
		AccountID:      account,
		EffectiveAt:    generic.NewTimePoint(2025, time.March, day),
		Delta:          xaf(delta),
		Type:           generic.TxCollection,
		IdempotencyKey: id,
	}
}

// =============================================================================
// AMOUNT
// =============================================================================

func TestAmount_Arithmetic(t *testing.T) {
	a := generic.MustAmount("2104900")
	b := generic.MustAmount("2004900")

	assert.True(t, a.Sub(b).Equal(xaf(100000)))
	assert.True(t, b.Sub(a).Abs().Equal(xaf(100000)))
	assert.True(t, a.Neg().IsNegative())
	assert.Equal(t, "100000.00 XAF", a.Sub(b).String())
	assert.True(t, xaf(10).Min(xaf(3)).Equal(xaf(3)))
	assert.True(t, xaf(10).Max(xaf(3)).Equal(xaf(10)))
}

func TestAmount_DecimalExactness(t *testing.T) {
	// 0.1 + 0.2 must be exactly 0.3 for money
	sum := generic.MustAmount("0.1").Add(generic.MustAmount("0.2"))
	assert.True(t, sum.Value.Equal(decimal.RequireFromString("0.3")))
}

func TestParseAmount_Invalid(t *testing.T) {
	_, err := generic.ParseAmount("abc", generic.CurrencyXAF)
	assert.Error(t, err)
}

// =============================================================================
// LEDGER
// =============================================================================

func TestLedger_BalanceReplay(t *testing.T) {
	// GIVEN: a collector collected twice and remitted once
	ledger := newTestLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Append(ctx, entry("c1", "SERVICE", 3, -60000)))
	require.NoError(t, ledger.Append(ctx, entry("c2", "SERVICE", 4, -40000)))
	require.NoError(t, ledger.Append(ctx, entry("r1", "SERVICE", 5, 100000)))

	// WHEN: computing balances
	total, err := ledger.BalanceOf(ctx, "col-1", "SERVICE", generic.CurrencyXAF)
	require.NoError(t, err)
	upTo4th, err := ledger.TransactionsInRange(ctx, "col-1", "SERVICE",
		generic.NewTimePoint(2025, time.March, 1), generic.NewTimePoint(2025, time.March, 4))
	require.NoError(t, err)
	mid := generic.Sum(upTo4th, generic.CurrencyXAF)

	// THEN: replay gives the running sums
	assert.True(t, total.IsZero())
	assert.True(t, mid.Equal(xaf(-100000)))
}

func TestLedger_DuplicateIdempotencyKey(t *testing.T) {
	ledger := newTestLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Append(ctx, entry("c1", "SERVICE", 3, -5000)))
	err := ledger.Append(ctx, entry("c1", "SERVICE", 3, -5000))

	assert.True(t, errors.Is(err, generic.ErrDuplicateIdempotencyKey))
}

func TestLedger_BatchIsAtomic(t *testing.T) {
	// GIVEN: a batch whose second entry reuses an existing key
	ledger := newTestLedger()
	ctx := context.Background()
	require.NoError(t, ledger.Append(ctx, entry("dup", "MANQUANT", 1, 100)))

	// WHEN: appending the batch
	err := ledger.AppendBatch(ctx, []generic.Transaction{
		entry("fresh", "SERVICE", 2, 100),
		entry("dup", "MANQUANT", 2, 100),
	})

	// THEN: nothing from the batch is written
	require.ErrorIs(t, err, generic.ErrDuplicateIdempotencyKey)
	txs, err := ledger.Transactions(ctx, "col-1", "SERVICE")
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestTransactionsInRange(t *testing.T) {
	ledger := newTestLedger()
	ctx := context.Background()
	for i, d := range []int{1, 10, 20} {
		require.NoError(t, ledger.Append(ctx, entry(string(rune('a'+i)), "SERVICE", d, -1)))
	}

	txs, err := ledger.TransactionsInRange(ctx, "col-1", "SERVICE",
		generic.NewTimePoint(2025, time.March, 5), generic.NewTimePoint(2025, time.March, 20))
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

// =============================================================================
// TIME
// =============================================================================

func TestMonthsBetween(t *testing.T) {
	hire := generic.NewTimePoint(2024, time.January, 15)

	tests := []struct {
		name string
		to   generic.TimePoint
		want float64
	}{
		{"same day", hire, 0},
		{"one month", generic.NewTimePoint(2024, time.February, 15), 1},
		{"one year", generic.NewTimePoint(2025, time.January, 15), 12},
		{"two years", generic.NewTimePoint(2026, time.January, 15), 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, generic.MonthsBetween(hire, tt.to), 1e-9)
		})
	}

	partial := generic.MonthsBetween(hire, generic.NewTimePoint(2024, time.February, 1))
	assert.Greater(t, partial, 0.0)
	assert.Less(t, partial, 1.0)

	assert.Less(t, generic.MonthsBetween(generic.NewTimePoint(2025, time.January, 1), hire), 0.0)
}

func TestPeriod(t *testing.T) {
	p := generic.MonthPeriod(2025, time.February)
	assert.Equal(t, "2025-02-28", p.End.String())
	assert.True(t, p.Contains(generic.NewTimePoint(2025, time.February, 14)))
	assert.False(t, p.Contains(generic.NewTimePoint(2025, time.March, 1)))
	assert.NoError(t, p.Validate())
	assert.Equal(t, "2025-02-01_2025-02-28", p.Key())

	bad := generic.Period{Start: p.End, End: p.Start}
	assert.ErrorIs(t, bad.Validate(), generic.ErrInvalidPeriod)
}

func TestMustParseDecimal(t *testing.T) {
	assert.Equal(t, "0.7", generic.MustParseDecimal("0.70").String())
	assert.Panics(t, func() { generic.MustParseDecimal("seventy") })
}
