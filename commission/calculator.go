package commission

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/focep/collecte-engine/generic"
)

// TierMode selects how a TIER parameter turns an amount into a commission.
type TierMode string

const (
	// TierFlat applies the rate of the single bracket containing the
	// whole amount.
	TierFlat TierMode = "flat"

	// TierProgressive applies each bracket's rate to the slice of the
	// amount inside that bracket, like an income tax schedule.
	TierProgressive TierMode = "progressive"
)

func (m TierMode) Valid() bool {
	return m == TierFlat || m == TierProgressive
}

// Calculator computes raw commissions. It is pure and safe for concurrent use.
type Calculator struct {
	mode TierMode
}

func NewCalculator(mode TierMode) *Calculator {
	if mode == "" {
		mode = TierFlat
	}
	return &Calculator{mode: mode}
}

func (c *Calculator) Mode() TierMode { return c.mode }

// Compute returns the raw commission on collected under p.
func (c *Calculator) Compute(p Parameter, collected generic.Amount) (generic.Amount, error) {
	if collected.IsNegative() {
		return generic.Amount{}, &generic.InvalidAmountError{
			Field: "collected", Value: collected, Reason: "must not be negative",
		}
	}
	if err := p.Validate(); err != nil {
		return generic.Amount{}, err
	}

	switch p.Type {
	case TypeFixed:
		return generic.NewAmount(p.Value, collected.Currency), nil
	case TypePercentage:
		return collected.Mul(p.Value), nil
	case TypeTier:
		if c.mode == TierProgressive {
			return progressive(p.Tiers, collected), nil
		}
		i, ok := MatchTier(p.Tiers, collected.Value)
		if !ok {
			return generic.Amount{}, &TierNotFoundError{ParameterID: p.ID, Amount: collected.Value}
		}
		return collected.Mul(p.Tiers[i].Rate), nil
	}
	return generic.Amount{}, &InvalidParameterError{ParameterID: p.ID, Reason: fmt.Sprintf("unknown type %q", p.Type)}
}

// MatchTier returns the index of the tier with Min <= x < Max.
func MatchTier(tiers []Tier, x decimal.Decimal) (int, bool) {
	for i, t := range tiers {
		if t.Contains(x) {
			return i, true
		}
	}
	return -1, false
}

func progressive(tiers []Tier, collected generic.Amount) generic.Amount {
	total := collected.Zero()
	x := collected.Value
	for _, t := range tiers {
		if !x.GreaterThan(t.Min) {
			break
		}
		upper := x
		if t.Max != nil && t.Max.LessThan(x) {
			upper = *t.Max
		}
		total = total.Add(generic.NewAmount(upper.Sub(t.Min).Mul(t.Rate), collected.Currency))
	}
	return total
}
