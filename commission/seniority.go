package commission

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/focep/collecte-engine/generic"
)

// =============================================================================
// SENIORITY LEVELS
// =============================================================================

// Level is a collector's seniority band. It is always recomputed from
// tenure and never persisted.
type Level string

const (
	LevelNouveau  Level = "NOUVEAU"
	LevelJunior   Level = "JUNIOR"
	LevelConfirme Level = "CONFIRME"
	LevelSenior   Level = "SENIOR"
	LevelExpert   Level = "EXPERT"
)

// LevelInfo describes the band [MinMonths, MaxMonths). The last band has
// MaxMonths = +Inf.
type LevelInfo struct {
	Level       Level
	Label       string
	MinMonths   float64
	MaxMonths   float64
	Coefficient decimal.Decimal
}

var levels = []LevelInfo{
	{LevelNouveau, "Nouveau", 0, 1, decimal.RequireFromString("1.00")},
	{LevelJunior, "Junior", 1, 3, decimal.RequireFromString("1.05")},
	{LevelConfirme, "Confirmé", 3, 12, decimal.RequireFromString("1.10")},
	{LevelSenior, "Senior", 12, 24, decimal.RequireFromString("1.15")},
	{LevelExpert, "Expert", 24, math.Inf(1), decimal.RequireFromString("1.20")},
}

// Levels returns the bands in ascending order.
func Levels() []LevelInfo {
	out := make([]LevelInfo, len(levels))
	copy(out, levels)
	return out
}

// InfoOf returns the band of l. Unknown levels map to NOUVEAU.
func InfoOf(l Level) LevelInfo {
	for _, info := range levels {
		if info.Level == l {
			return info
		}
	}
	return levels[0]
}

// LevelFor maps tenure in months to its band. A value on a boundary
// belongs to the upper band: 12.0 months is SENIOR.
func LevelFor(months float64) (Level, error) {
	i, err := levelIndex(months)
	if err != nil {
		return "", err
	}
	return levels[i].Level, nil
}

func levelIndex(months float64) (int, error) {
	if math.IsNaN(months) || months < 0 {
		return 0, &InvalidTenureError{Months: months}
	}
	for i := len(levels) - 1; i >= 0; i-- {
		if months >= levels[i].MinMonths {
			return i, nil
		}
	}
	return 0, nil
}

// TenureMonths is the tenure of a collector hired at hire, as of asOf.
func TenureMonths(hire, asOf generic.TimePoint) float64 {
	return generic.MonthsBetween(hire, asOf)
}

// =============================================================================
// ADJUSTER
// =============================================================================

// Seniority is the full assessment shown to administrators.
type Seniority struct {
	Months               float64
	Level                Level
	Label                string
	Coefficient          decimal.Decimal
	NextLevel            *Level
	MonthsToNextLevel    float64
	EligibleForPromotion bool
}

// SeniorityAdjuster scales commissions by tenure.
type SeniorityAdjuster struct {
	graceMonths float64
}

// NewSeniorityAdjuster takes the promotion grace window in months.
func NewSeniorityAdjuster(graceMonths float64) *SeniorityAdjuster {
	if graceMonths < 0 || math.IsNaN(graceMonths) {
		graceMonths = 0
	}
	return &SeniorityAdjuster{graceMonths: graceMonths}
}

// Adjust returns raw x the coefficient of level.
func (a *SeniorityAdjuster) Adjust(raw generic.Amount, level Level) generic.Amount {
	return raw.Mul(InfoOf(level).Coefficient)
}

// Assess computes level, next level and promotion eligibility. A collector
// is eligible once tenure plus the grace window reaches the next band.
func (a *SeniorityAdjuster) Assess(months float64) (Seniority, error) {
	i, err := levelIndex(months)
	if err != nil {
		return Seniority{}, err
	}
	cur := levels[i]
	s := Seniority{
		Months:      months,
		Level:       cur.Level,
		Label:       cur.Label,
		Coefficient: cur.Coefficient,
	}
	if i == len(levels)-1 {
		return s, nil
	}

	next := levels[i+1]
	s.NextLevel = &next.Level
	s.MonthsToNextLevel = next.MinMonths - months
	s.EligibleForPromotion = a.graceMonths > 0 && months+a.graceMonths >= next.MinMonths
	return s, nil
}
