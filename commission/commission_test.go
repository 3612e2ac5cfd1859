package commission_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focep/collecte-engine/commission"
	"github.com/focep/collecte-engine/generic"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type mapSource struct {
	params map[commission.Scope]*commission.Parameter
	calls  []commission.Scope
	err    error
}

func (m *mapSource) GetActiveParameter(_ context.Context, scope commission.Scope) (*commission.Parameter, error) {
	m.calls = append(m.calls, scope)
	if m.err != nil {
		return nil, m.err
	}
	return m.params[scope], nil
}

type staticDirectory map[string]string

func (d staticDirectory) CollecteurOf(_ context.Context, clientID string) (string, error) {
	return d[clientID], nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}
func xaf(s string) generic.Amount { return generic.MustAmount(s) }

func percentage(id string, scope commission.Scope, fraction string) *commission.Parameter {
	return &commission.Parameter{ID: id, Scope: scope, Type: commission.TypePercentage, Value: dec(fraction), Active: true}
}

func threeTiers() []commission.Tier {
	return []commission.Tier{
		{Min: dec("0"), Max: decPtr("50000"), Rate: dec("0.05")},
		{Min: dec("50000"), Max: decPtr("200000"), Rate: dec("0.04")},
		{Min: dec("200000"), Rate: dec("0.03")},
	}
}

func tierParam(tiers []commission.Tier) commission.Parameter {
	return commission.Parameter{ID: "tier-1", Scope: commission.AgencyScope(), Type: commission.TypeTier, Tiers: tiers, Active: true}
}

// =============================================================================
// RESOLVER
// =============================================================================

func TestResolver_OverrideOrder(t *testing.T) {
	client := percentage("p-client", commission.ClientScope("cli-1"), "0.03")
	collector := percentage("p-col", commission.CollectorScope("col-1"), "0.04")
	agency := percentage("p-agency", commission.AgencyScope(), "0.05")

	tests := []struct {
		name     string
		params   []*commission.Parameter
		ref      commission.EntityRef
		wantID   string
		wantFrom commission.ScopeType
	}{
		{"client wins", []*commission.Parameter{client, collector, agency},
			commission.EntityRef{Type: commission.ScopeClient, ID: "cli-1", CollecteurID: "col-1"}, "p-client", commission.ScopeClient},
		{"collector when client has none", []*commission.Parameter{collector, agency},
			commission.EntityRef{Type: commission.ScopeClient, ID: "cli-1", CollecteurID: "col-1"}, "p-col", commission.ScopeCollector},
		{"agency default", []*commission.Parameter{agency},
			commission.EntityRef{Type: commission.ScopeClient, ID: "cli-1", CollecteurID: "col-1"}, "p-agency", commission.ScopeAgency},
		{"collector ref ignores client level", []*commission.Parameter{client, collector, agency},
			commission.EntityRef{Type: commission.ScopeCollector, ID: "col-1"}, "p-col", commission.ScopeCollector},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &mapSource{params: map[commission.Scope]*commission.Parameter{}}
			for _, p := range tt.params {
				src.params[p.Scope] = p
			}

			res, err := commission.NewResolver(src).Resolve(context.Background(), tt.ref)

			require.NoError(t, err)
			assert.Equal(t, tt.wantID, res.Parameter.ID)
			assert.Equal(t, tt.wantFrom, res.ResolvedFrom.Type)
		})
	}
}

func TestResolver_InactiveParameterIsSkipped(t *testing.T) {
	inactive := percentage("old", commission.ClientScope("cli-1"), "0.10")
	inactive.Active = false
	src := &mapSource{params: map[commission.Scope]*commission.Parameter{
		inactive.Scope:          inactive,
		commission.AgencyScope(): percentage("agency", commission.AgencyScope(), "0.05"),
	}}

	res, err := commission.NewResolver(src).Resolve(context.Background(),
		commission.EntityRef{Type: commission.ScopeClient, ID: "cli-1"})

	require.NoError(t, err)
	assert.Equal(t, "agency", res.Parameter.ID)
}

func TestResolver_NoAgencyDefault(t *testing.T) {
	// GIVEN: nothing configured anywhere
	src := &mapSource{params: map[commission.Scope]*commission.Parameter{}}

	// WHEN: resolving for a client
	_, err := commission.NewResolver(src).Resolve(context.Background(),
		commission.EntityRef{Type: commission.ScopeClient, ID: "cli-1", CollecteurID: "col-1"})

	// THEN: the whole chain was tried and the error is fatal
	var notFound *commission.ParameterNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.ErrorIs(t, err, commission.ErrParameterNotFound)
	assert.Len(t, notFound.Tried, 3)
	assert.Contains(t, err.Error(), "CLIENT:cli-1")
}

func TestResolver_UsesDirectoryForClientCollector(t *testing.T) {
	src := &mapSource{params: map[commission.Scope]*commission.Parameter{
		commission.CollectorScope("col-9"): percentage("p-col9", commission.CollectorScope("col-9"), "0.02"),
		commission.AgencyScope():           percentage("agency", commission.AgencyScope(), "0.05"),
	}}
	r := commission.NewResolver(src, commission.WithDirectory(staticDirectory{"cli-1": "col-9"}))

	res, err := r.Resolve(context.Background(), commission.EntityRef{Type: commission.ScopeClient, ID: "cli-1"})

	require.NoError(t, err)
	assert.Equal(t, "p-col9", res.Parameter.ID)
}

func TestResolver_SourceErrorPropagates(t *testing.T) {
	boom := errors.New("db down")
	src := &mapSource{err: boom}

	_, err := commission.NewResolver(src).Resolve(context.Background(),
		commission.EntityRef{Type: commission.ScopeCollector, ID: "col-1"})

	assert.ErrorIs(t, err, boom)
}

func TestResolver_MalformedStoredParameter(t *testing.T) {
	bad := &commission.Parameter{ID: "bad", Scope: commission.AgencyScope(), Type: commission.TypeTier, Active: true}
	src := &mapSource{params: map[commission.Scope]*commission.Parameter{bad.Scope: bad}}

	_, err := commission.NewResolver(src).Resolve(context.Background(),
		commission.EntityRef{Type: commission.ScopeAgency})

	assert.ErrorIs(t, err, commission.ErrInvalidParameter)
}

// =============================================================================
// CALCULATOR
// =============================================================================

func TestCalculator_Fixed(t *testing.T) {
	calc := commission.NewCalculator(commission.TierFlat)
	p := commission.Parameter{ID: "f", Scope: commission.AgencyScope(), Type: commission.TypeFixed, Value: dec("1500"), Active: true}

	for _, collected := range []string{"0", "100", "9999999"} {
		got, err := calc.Compute(p, xaf(collected))
		require.NoError(t, err)
		assert.True(t, got.Equal(xaf("1500")), "fixed commission must not depend on %s", collected)
	}
}

func TestCalculator_Percentage(t *testing.T) {
	calc := commission.NewCalculator(commission.TierFlat)
	p := *percentage("p", commission.AgencyScope(), "0.05")

	got, err := calc.Compute(p, xaf("200000"))

	require.NoError(t, err)
	assert.True(t, got.Equal(xaf("10000")), "got %s", got)
}

func TestCalculator_PercentageIsMonotonic(t *testing.T) {
	calc := commission.NewCalculator(commission.TierFlat)
	p := *percentage("p", commission.AgencyScope(), "0.0475")

	prev := xaf("0")
	for _, s := range []string{"0", "1", "999.99", "1000", "50000", "2004900"} {
		got, err := calc.Compute(p, xaf(s))
		require.NoError(t, err)
		assert.False(t, got.LessThan(prev))
		prev = got
	}
}

func TestCalculator_TierFlat(t *testing.T) {
	calc := commission.NewCalculator(commission.TierFlat)
	p := tierParam(threeTiers())

	tests := []struct {
		collected string
		want      string
	}{
		{"0", "0"},
		{"49999.99", "2499.9995"},
		{"50000", "2000"},   // boundary goes to the upper bracket
		{"100000", "4000"},  // whole amount at 4 %
		{"200000", "6000"},  // upper bracket, 3 %
		{"1000000", "30000"},
	}
	for _, tt := range tests {
		t.Run(tt.collected, func(t *testing.T) {
			got, err := calc.Compute(p, xaf(tt.collected))
			require.NoError(t, err)
			assert.True(t, got.Value.Equal(dec(tt.want)), "got %s want %s", got.Value, tt.want)
		})
	}
}

func TestCalculator_TierGap(t *testing.T) {
	calc := commission.NewCalculator(commission.TierFlat)
	p := tierParam([]commission.Tier{
		{Min: dec("0"), Max: decPtr("1000"), Rate: dec("0.05")},
		{Min: dec("2000"), Rate: dec("0.03")},
	})

	_, err := calc.Compute(p, xaf("1500"))

	var tierErr *commission.TierNotFoundError
	require.ErrorAs(t, err, &tierErr)
	assert.True(t, tierErr.Amount.Equal(dec("1500")))
}

func TestCalculator_TierProgressive(t *testing.T) {
	calc := commission.NewCalculator(commission.TierProgressive)
	p := tierParam(threeTiers())

	// 50000*0.05 + 150000*0.04 + 50000*0.03
	got, err := calc.Compute(p, xaf("250000"))

	require.NoError(t, err)
	assert.True(t, got.Value.Equal(dec("10000")), "got %s", got.Value)
}

func TestCalculator_RejectsNegativeAmount(t *testing.T) {
	calc := commission.NewCalculator("")
	_, err := calc.Compute(*percentage("p", commission.AgencyScope(), "0.05"), xaf("-1"))
	assert.ErrorIs(t, err, generic.ErrInvalidAmount)
}

func TestParameter_Validate(t *testing.T) {
	agency := commission.AgencyScope()
	tests := []struct {
		name string
		p    commission.Parameter
	}{
		{"negative fixed", commission.Parameter{Scope: agency, Type: commission.TypeFixed, Value: dec("-1")}},
		{"percentage above one", commission.Parameter{Scope: agency, Type: commission.TypePercentage, Value: dec("5")}},
		{"tier without tiers", commission.Parameter{Scope: agency, Type: commission.TypeTier}},
		{"unknown type", commission.Parameter{Scope: agency, Type: "BONUS"}},
		{"client scope without id", commission.Parameter{Scope: commission.Scope{Type: commission.ScopeClient}, Type: commission.TypeFixed}},
		{"min not below max", tierParam([]commission.Tier{{Min: dec("10"), Max: decPtr("10"), Rate: dec("0.1")}})},
		{"overlap", tierParam([]commission.Tier{
			{Min: dec("0"), Max: decPtr("100"), Rate: dec("0.1")},
			{Min: dec("50"), Rate: dec("0.1")},
		})},
		{"unbounded in the middle", tierParam([]commission.Tier{
			{Min: dec("0"), Rate: dec("0.1")},
			{Min: dec("50"), Rate: dec("0.1")},
		})},
		{"rate above one", tierParam([]commission.Tier{{Min: dec("0"), Rate: dec("1.5")}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.p.Validate(), commission.ErrInvalidParameter)
		})
	}

	assert.NoError(t, tierParam(threeTiers()).Validate())
}

func TestCheckTierCoverage(t *testing.T) {
	assert.NoError(t, commission.CheckTierCoverage(threeTiers()))

	gap := []commission.Tier{
		{Min: dec("0"), Max: decPtr("1000"), Rate: dec("0.05")},
		{Min: dec("1001"), Rate: dec("0.03")},
	}
	assert.ErrorIs(t, commission.CheckTierCoverage(gap), commission.ErrInvalidParameter)
}

// FuzzMatchTier checks that contiguous tiers match every non-negative
// amount exactly once.
func FuzzMatchTier(f *testing.F) {
	f.Add(int64(0), int64(1000), int64(5000), int64(0))
	f.Add(int64(10), int64(20), int64(30), int64(25))
	f.Fuzz(func(t *testing.T, a, b, c, x int64) {
		if a < 0 || b <= a || c <= b || x < a {
			t.Skip()
		}
		bMax, cMax := decimal.NewFromInt(b), decimal.NewFromInt(c)
		tiers := []commission.Tier{
			{Min: decimal.NewFromInt(a), Max: &bMax, Rate: dec("0.01")},
			{Min: bMax, Max: &cMax, Rate: dec("0.02")},
			{Min: cMax, Rate: dec("0.03")},
		}
		amount := decimal.NewFromInt(x)

		matches := 0
		for _, tier := range tiers {
			if tier.Contains(amount) {
				matches++
			}
		}
		if matches != 1 {
			t.Fatalf("amount %s matched %d tiers", amount, matches)
		}
		if _, ok := commission.MatchTier(tiers, amount); !ok {
			t.Fatalf("MatchTier found nothing for %s", amount)
		}
	})
}

// =============================================================================
// SENIORITY
// =============================================================================

func TestLevelFor_Boundaries(t *testing.T) {
	tests := []struct {
		months float64
		want   commission.Level
	}{
		{0, commission.LevelNouveau},
		{0.99, commission.LevelNouveau},
		{1, commission.LevelJunior},
		{2.5, commission.LevelJunior},
		{3, commission.LevelConfirme},
		{11.999, commission.LevelConfirme},
		{12, commission.LevelSenior},
		{23.9, commission.LevelSenior},
		{24, commission.LevelExpert},
		{120, commission.LevelExpert},
	}
	for _, tt := range tests {
		got, err := commission.LevelFor(tt.months)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "months=%v", tt.months)
	}
}

func TestLevelFor_InvalidTenure(t *testing.T) {
	for _, m := range []float64{-0.01, -12, math.NaN()} {
		_, err := commission.LevelFor(m)
		assert.ErrorIs(t, err, commission.ErrInvalidTenure)
	}
}

func TestSeniorityAdjuster_Adjust(t *testing.T) {
	a := commission.NewSeniorityAdjuster(0)
	got := a.Adjust(xaf("10000"), commission.LevelSenior)
	assert.True(t, got.Equal(xaf("11500")))

	got = a.Adjust(xaf("10000"), commission.LevelNouveau)
	assert.True(t, got.Equal(xaf("10000")))
}

func TestSeniorityAdjuster_Assess(t *testing.T) {
	// GIVEN: no grace window
	s, err := commission.NewSeniorityAdjuster(0).Assess(10)
	require.NoError(t, err)

	assert.Equal(t, commission.LevelConfirme, s.Level)
	require.NotNil(t, s.NextLevel)
	assert.Equal(t, commission.LevelSenior, *s.NextLevel)
	assert.InDelta(t, 2.0, s.MonthsToNextLevel, 1e-9)
	assert.False(t, s.EligibleForPromotion)

	// GIVEN: a three month grace window
	s, err = commission.NewSeniorityAdjuster(3).Assess(10)
	require.NoError(t, err)
	assert.True(t, s.EligibleForPromotion)

	s, err = commission.NewSeniorityAdjuster(3).Assess(5)
	require.NoError(t, err)
	assert.False(t, s.EligibleForPromotion)

	// Experts have nowhere to go
	s, err = commission.NewSeniorityAdjuster(3).Assess(30)
	require.NoError(t, err)
	assert.Nil(t, s.NextLevel)
	assert.False(t, s.EligibleForPromotion)
}

// =============================================================================
// SPLIT
// =============================================================================

func TestSplitter_Decomposition(t *testing.T) {
	s := commission.NewSplitter(commission.DefaultSplitPolicy())

	for _, v := range []string{"0", "1", "10000", "11500", "333.33", "2004900"} {
		x := xaf(v)
		split := s.Split(x)
		assert.True(t, split.PartCollecteur.Add(split.PartEMF).Equal(x), "parts must sum to %s", v)
		assert.True(t, split.MontantTotal.Equal(x))
		assert.True(t, split.MontantTVA.Equal(split.PartEMF.Mul(dec("0.1925"))))
		assert.True(t, split.PartEMFNet.Add(split.MontantTVA).Equal(split.PartEMF))
	}
}

func TestSplitter_Defaults(t *testing.T) {
	split := commission.NewSplitter(commission.DefaultSplitPolicy()).Split(xaf("10000"))

	assert.True(t, split.PartCollecteur.Equal(xaf("7000")))
	assert.True(t, split.PartEMF.Equal(xaf("3000")))
	assert.True(t, split.MontantTVA.Equal(xaf("577.5")))
}

func TestSplitPolicy_Validate(t *testing.T) {
	assert.NoError(t, commission.DefaultSplitPolicy().Validate())
	assert.Error(t, commission.SplitPolicy{CollecteurShare: dec("1.2"), TVARate: dec("0.1")}.Validate())
	assert.Error(t, commission.SplitPolicy{CollecteurShare: dec("0.7"), TVARate: dec("-0.1")}.Validate())
}

// =============================================================================
// ENGINE
// =============================================================================

func newEngine(src commission.ParameterSource) *commission.Engine {
	return commission.NewEngine(
		commission.NewResolver(src),
		commission.NewCalculator(commission.TierFlat),
		commission.NewSeniorityAdjuster(0),
		commission.NewSplitter(commission.DefaultSplitPolicy()),
	)
}

func TestEngine_Preview(t *testing.T) {
	// GIVEN: a 5 % agency default and a senior collector
	src := &mapSource{params: map[commission.Scope]*commission.Parameter{
		commission.AgencyScope(): percentage("agency", commission.AgencyScope(), "0.05"),
	}}

	// WHEN: previewing on 200 000 collected
	p, err := newEngine(src).Preview(context.Background(),
		commission.EntityRef{Type: commission.ScopeCollector, ID: "col-1"}, xaf("200000"), 14)

	// THEN: raw 10 000, adjusted by 1.15, split 70/30
	require.NoError(t, err)
	assert.True(t, p.Raw.Equal(xaf("10000")))
	assert.Equal(t, commission.LevelSenior, p.Seniority.Level)
	assert.True(t, p.Adjusted.Equal(xaf("11500")))
	assert.True(t, p.Split.PartCollecteur.Equal(xaf("8050")))
	assert.True(t, p.Split.PartEMF.Equal(xaf("3450")))
}

func TestEngine_PreviewValidatesBeforeLookup(t *testing.T) {
	src := &mapSource{params: map[commission.Scope]*commission.Parameter{}}
	e := newEngine(src)

	_, err := e.Preview(context.Background(), commission.EntityRef{Type: commission.ScopeCollector, ID: "c"}, xaf("100"), -1)
	assert.ErrorIs(t, err, commission.ErrInvalidTenure)

	_, err = e.Preview(context.Background(), commission.EntityRef{Type: commission.ScopeCollector, ID: "c"}, xaf("-100"), 1)
	assert.ErrorIs(t, err, generic.ErrInvalidAmount)

	assert.Empty(t, src.calls, "invalid input must not reach the parameter source")
}

func TestEngine_AvailableBalance(t *testing.T) {
	src := &mapSource{params: map[commission.Scope]*commission.Parameter{
		commission.AgencyScope(): {ID: "fixed", Scope: commission.AgencyScope(), Type: commission.TypeFixed, Value: dec("1500"), Active: true},
	}}
	e := newEngine(src)
	ref := commission.EntityRef{Type: commission.ScopeClient, ID: "cli-1"}

	a, err := e.AvailableBalance(context.Background(), ref, xaf("10000"))
	require.NoError(t, err)
	assert.True(t, a.Available.Equal(xaf("8500")))
	assert.True(t, a.CanWithdraw(xaf("8500")))
	assert.False(t, a.CanWithdraw(xaf("8500.01")))

	a, err = e.AvailableBalance(context.Background(), ref, xaf("1000"))
	require.NoError(t, err)
	assert.True(t, a.Available.IsZero(), "available balance is floored at zero")
}
