/*
Package commission computes what a collector earns on the money collected.

PURPOSE:
  A commission parameter is configured by an administrator at agency,
  collector, or client level. For a given client or collector this package
  resolves the applicable parameter, computes the raw commission on a
  collected amount, scales it by the collector's seniority, and splits the
  result between the collector, the institution (EMF) and the tax authority.

KEY CONCEPTS IN THIS FILE (types.go):
  - Parameter: FIXED, PERCENTAGE or TIER rule attached to a Scope
  - Scope: CLIENT > COLLECTOR > AGENCY override level
  - Tier: half-open bracket [Min, Max) with a rate; nil Max is unbounded

UNITS:
  Percentages are FRACTIONS in this package (0.05 means 5 %). Conversion
  from the percent values administrators type happens in factory/ and api/
  only.

PIPELINE:
  Resolver -> Calculator -> SeniorityAdjuster -> Splitter
  (see engine.go for the composed Preview)

SEE ALSO:
  - resolver.go: Override-order lookup
  - calculator.go: FIXED / PERCENTAGE / TIER math
  - seniority.go: Tenure levels and coefficients
  - split.go: 70/30 split and TVA
*/
package commission

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PARAMETER TYPE
// =============================================================================

type Type string

const (
	TypeFixed      Type = "FIXED"
	TypePercentage Type = "PERCENTAGE"
	TypeTier       Type = "TIER"
)

func (t Type) Valid() bool {
	switch t {
	case TypeFixed, TypePercentage, TypeTier:
		return true
	}
	return false
}

// =============================================================================
// SCOPE - Where a parameter applies
// =============================================================================

type ScopeType string

const (
	ScopeClient    ScopeType = "CLIENT"
	ScopeCollector ScopeType = "COLLECTOR"
	ScopeAgency    ScopeType = "AGENCY"
)

func (s ScopeType) Valid() bool {
	switch s {
	case ScopeClient, ScopeCollector, ScopeAgency:
		return true
	}
	return false
}

// Scope identifies one override level. An AGENCY scope has no EntityID.
type Scope struct {
	Type     ScopeType
	EntityID string
}

func ClientScope(id string) Scope    { return Scope{Type: ScopeClient, EntityID: id} }
func CollectorScope(id string) Scope { return Scope{Type: ScopeCollector, EntityID: id} }
func AgencyScope() Scope             { return Scope{Type: ScopeAgency} }

// Key is the stable cache/storage key, e.g. "CLIENT:42" or "AGENCY:".
func (s Scope) Key() string {
	return string(s.Type) + ":" + s.EntityID
}

func (s Scope) String() string {
	if s.EntityID == "" {
		return string(s.Type)
	}
	return s.Key()
}

// =============================================================================
// TIER
// =============================================================================

// Tier is the bracket [Min, Max). A nil Max is unbounded above.
type Tier struct {
	Min  decimal.Decimal
	Max  *decimal.Decimal
	Rate decimal.Decimal
}

// Contains reports whether x falls in [Min, Max).
func (t Tier) Contains(x decimal.Decimal) bool {
	if x.LessThan(t.Min) {
		return false
	}
	return t.Max == nil || x.LessThan(*t.Max)
}

func (t Tier) String() string {
	if t.Max == nil {
		return fmt.Sprintf("[%s, +inf) @ %s", t.Min, t.Rate)
	}
	return fmt.Sprintf("[%s, %s) @ %s", t.Min, *t.Max, t.Rate)
}

// =============================================================================
// PARAMETER
// =============================================================================

// Parameter is one commission rule. At most one active parameter exists
// per Scope; superseded parameters are deactivated, never deleted.
type Parameter struct {
	ID            string
	Scope         Scope
	Type          Type
	Value         decimal.Decimal // currency amount for FIXED, fraction for PERCENTAGE
	Tiers         []Tier          // TIER only, ascending by Min
	Active        bool
	Version       int
	CreatedAt     time.Time
	DeactivatedAt *time.Time
}

var one = decimal.NewFromInt(1)

// Validate checks the structural invariants of the parameter.
func (p Parameter) Validate() error {
	invalid := func(format string, args ...any) error {
		return &InvalidParameterError{ParameterID: p.ID, Reason: fmt.Sprintf(format, args...)}
	}

	if !p.Scope.Type.Valid() {
		return invalid("unknown scope %q", p.Scope.Type)
	}
	if p.Scope.Type != ScopeAgency && p.Scope.EntityID == "" {
		return invalid("%s scope requires an entity id", p.Scope.Type)
	}

	switch p.Type {
	case TypeFixed:
		if p.Value.IsNegative() {
			return invalid("fixed amount must not be negative")
		}
	case TypePercentage:
		if p.Value.IsNegative() || p.Value.GreaterThan(one) {
			return invalid("percentage must be a fraction in [0, 1], got %s", p.Value)
		}
	case TypeTier:
		return validateTiers(p.ID, p.Tiers)
	default:
		return invalid("unknown type %q", p.Type)
	}
	return nil
}

func validateTiers(parameterID string, tiers []Tier) error {
	invalid := func(format string, args ...any) error {
		return &InvalidParameterError{ParameterID: parameterID, Reason: fmt.Sprintf(format, args...)}
	}

	if len(tiers) == 0 {
		return invalid("TIER parameter requires at least one tier")
	}
	for i, t := range tiers {
		if t.Min.IsNegative() {
			return invalid("tier %d: min must not be negative", i+1)
		}
		if t.Rate.IsNegative() || t.Rate.GreaterThan(one) {
			return invalid("tier %d: rate must be a fraction in [0, 1], got %s", i+1, t.Rate)
		}
		if t.Max != nil && !t.Min.LessThan(*t.Max) {
			return invalid("tier %d: min %s must be below max %s", i+1, t.Min, *t.Max)
		}
		if t.Max == nil && i != len(tiers)-1 {
			return invalid("tier %d: only the last tier may be unbounded", i+1)
		}
		if i > 0 {
			prev := tiers[i-1]
			if prev.Max.GreaterThan(t.Min) {
				return invalid("tier %d overlaps tier %d", i+1, i)
			}
		}
	}
	return nil
}

// CheckTierCoverage reports the first gap between consecutive tiers.
// Tiers must already pass Validate.
func CheckTierCoverage(tiers []Tier) error {
	for i := 1; i < len(tiers); i++ {
		prev := tiers[i-1]
		if !prev.Max.Equal(tiers[i].Min) {
			return &InvalidParameterError{
				Reason: fmt.Sprintf("gap between tier %d (max %s) and tier %d (min %s)", i, *prev.Max, i+1, tiers[i].Min),
			}
		}
	}
	return nil
}
