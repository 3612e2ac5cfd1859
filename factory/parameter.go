/*
Package factory provides JSON to Go commission parameter conversion.

PURPOSE:
  Converts parameter definitions as the admin UI writes them into
  commission.Parameter values, and back. The UI works in percent; the
  engine works in fractions. This package is the only place the two meet.

JSON SCHEMA:
  {
    "id": "p-agency-2025",
    "scope": {"type": "AGENCY"},
    "type": "TIER",
    "value": 0,
    "tiers": [
      {"min": 0,      "max": 100000, "rate": 5},
      {"min": 100000, "max": 500000, "rate": 4},
      {"min": 500000,                "rate": 3}
    ]
  }

  value is a currency amount for FIXED and a percent (0-100) for
  PERCENTAGE. Tier rates are percents. A tier without max is unbounded.

KEY FEATURES:
  - Numbers decode straight into decimals, never through float64
  - Tiers are sorted by min before validation
  - Strict mode also rejects gaps between consecutive tiers

USAGE:
  f := factory.NewParameterFactory()
  p, err := f.ParseParameter(body)
  svc.SaveParameter(ctx, p)

SEE ALSO:
  - commission/types.go: Parameter and Tier invariants
*/
package factory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/focep/collecte-engine/commission"
)

var hundred = decimal.NewFromInt(100)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ParameterJSON is the JSON representation of a parameter.
type ParameterJSON struct {
	ID            string          `json:"id,omitempty"`
	Scope         ScopeJSON       `json:"scope"`
	Type          string          `json:"type"`
	Value         decimal.Decimal `json:"value"`
	Tiers         []TierJSON      `json:"tiers,omitempty"`
	Active        bool            `json:"active"`
	Version       int             `json:"version,omitempty"`
	CreatedAt     *time.Time      `json:"created_at,omitempty"`
	DeactivatedAt *time.Time      `json:"deactivated_at,omitempty"`
}

type ScopeJSON struct {
	Type     string `json:"type"` // CLIENT, COLLECTOR, AGENCY
	EntityID string `json:"entity_id,omitempty"`
}

// TierJSON is one bracket. Rate is a percent.
type TierJSON struct {
	Min  decimal.Decimal  `json:"min"`
	Max  *decimal.Decimal `json:"max,omitempty"`
	Rate decimal.Decimal  `json:"rate"`
}

// =============================================================================
// PARAMETER FACTORY
// =============================================================================

type ParameterFactory struct {
	strict bool
}

func NewParameterFactory() *ParameterFactory {
	return &ParameterFactory{}
}

// NewStrictParameterFactory also rejects gaps between tiers.
func NewStrictParameterFactory() *ParameterFactory {
	return &ParameterFactory{strict: true}
}

// ParseParameter decodes and converts one parameter.
func (f *ParameterFactory) ParseParameter(data []byte) (commission.Parameter, error) {
	var pj ParameterJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return commission.Parameter{}, &commission.InvalidParameterError{Reason: fmt.Sprintf("malformed JSON: %v", err)}
	}
	return f.FromJSON(pj)
}

// FromJSON converts percent units to fractions and validates the result.
func (f *ParameterFactory) FromJSON(pj ParameterJSON) (commission.Parameter, error) {
	p := commission.Parameter{
		ID: pj.ID,
		Scope: commission.Scope{
			Type:     commission.ScopeType(strings.ToUpper(strings.TrimSpace(pj.Scope.Type))),
			EntityID: strings.TrimSpace(pj.Scope.EntityID),
		},
		Type:    commission.Type(strings.ToUpper(strings.TrimSpace(pj.Type))),
		Active:  true,
		Version: pj.Version,
	}

	switch p.Type {
	case commission.TypePercentage:
		if err := percentInRange("value", pj.Value); err != nil {
			return commission.Parameter{}, err
		}
		p.Value = pj.Value.Div(hundred)
	case commission.TypeTier:
		tiers, err := f.parseTiers(pj.Tiers)
		if err != nil {
			return commission.Parameter{}, err
		}
		p.Tiers = tiers
	default:
		p.Value = pj.Value
	}

	if err := p.Validate(); err != nil {
		return commission.Parameter{}, err
	}
	if f.strict && p.Type == commission.TypeTier {
		if err := commission.CheckTierCoverage(p.Tiers); err != nil {
			return commission.Parameter{}, err
		}
	}
	return p, nil
}

func (f *ParameterFactory) parseTiers(in []TierJSON) ([]commission.Tier, error) {
	sorted := make([]TierJSON, len(in))
	copy(sorted, in)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Min.LessThan(sorted[j].Min) })

	tiers := make([]commission.Tier, 0, len(sorted))
	for i, t := range sorted {
		if err := percentInRange(fmt.Sprintf("tier %d rate", i+1), t.Rate); err != nil {
			return nil, err
		}
		tier := commission.Tier{Min: t.Min, Rate: t.Rate.Div(hundred)}
		if t.Max != nil {
			m := *t.Max
			tier.Max = &m
		}
		tiers = append(tiers, tier)
	}
	return tiers, nil
}

func percentInRange(field string, v decimal.Decimal) error {
	if v.IsNegative() || v.GreaterThan(hundred) {
		return &commission.InvalidParameterError{Reason: fmt.Sprintf("%s must be a percent in [0, 100], got %s", field, v)}
	}
	return nil
}

// ToJSON converts a parameter back to UI units.
func (f *ParameterFactory) ToJSON(p commission.Parameter) ParameterJSON {
	pj := ParameterJSON{
		ID:            p.ID,
		Scope:         ScopeJSON{Type: string(p.Scope.Type), EntityID: p.Scope.EntityID},
		Type:          string(p.Type),
		Value:         p.Value,
		Active:        p.Active,
		Version:       p.Version,
		DeactivatedAt: p.DeactivatedAt,
	}
	if !p.CreatedAt.IsZero() {
		created := p.CreatedAt
		pj.CreatedAt = &created
	}
	if p.Type == commission.TypePercentage {
		pj.Value = p.Value.Mul(hundred)
	}
	for _, t := range p.Tiers {
		tj := TierJSON{Min: t.Min, Rate: t.Rate.Mul(hundred)}
		if t.Max != nil {
			m := *t.Max
			tj.Max = &m
		}
		pj.Tiers = append(pj.Tiers, tj)
	}
	return pj
}
