package commission

import (
	"context"

	"github.com/focep/collecte-engine/generic"
)

// Engine composes the pipeline Resolver -> Calculator -> SeniorityAdjuster
// -> Splitter.
type Engine struct {
	resolver  *Resolver
	calc      *Calculator
	seniority *SeniorityAdjuster
	splitter  *Splitter
}

func NewEngine(resolver *Resolver, calc *Calculator, seniority *SeniorityAdjuster, splitter *Splitter) *Engine {
	return &Engine{resolver: resolver, calc: calc, seniority: seniority, splitter: splitter}
}

// Preview is every intermediate value of a commission computation.
type Preview struct {
	Resolution Resolution
	Collected  generic.Amount
	Raw        generic.Amount
	Seniority  Seniority
	Adjusted   generic.Amount
	Split      Split
}

// Preview computes the commission on collected for ref. Inputs are checked
// before any parameter lookup.
func (e *Engine) Preview(ctx context.Context, ref EntityRef, collected generic.Amount, tenureMonths float64) (Preview, error) {
	if collected.IsNegative() {
		return Preview{}, &generic.InvalidAmountError{Field: "collected", Value: collected, Reason: "must not be negative"}
	}
	seniority, err := e.seniority.Assess(tenureMonths)
	if err != nil {
		return Preview{}, err
	}

	res, err := e.resolver.Resolve(ctx, ref)
	if err != nil {
		return Preview{}, err
	}
	raw, err := e.calc.Compute(res.Parameter, collected)
	if err != nil {
		return Preview{}, err
	}
	adjusted := e.seniority.Adjust(raw, seniority.Level)

	return Preview{
		Resolution: res,
		Collected:  collected,
		Raw:        raw,
		Seniority:  seniority,
		Adjusted:   adjusted,
		Split:      e.splitter.Split(adjusted),
	}, nil
}

// Assess exposes the seniority assessment on its own.
func (e *Engine) Assess(tenureMonths float64) (Seniority, error) {
	return e.seniority.Assess(tenureMonths)
}

// Split exposes the splitter for accruals computed elsewhere.
func (e *Engine) Split(adjusted generic.Amount) Split {
	return e.splitter.Split(adjusted)
}

// =============================================================================
// AVAILABLE BALANCE
// =============================================================================

// Availability is what a client may withdraw once the commission the
// collector will take on the balance is set aside.
type Availability struct {
	Balance    generic.Amount
	Commission generic.Amount
	Available  generic.Amount
}

// CanWithdraw reports whether amount fits in the available balance.
func (a Availability) CanWithdraw(amount generic.Amount) bool {
	return amount.IsPositive() && !amount.GreaterThan(a.Available)
}

// AvailableBalance simulates the commission on a client's balance and
// returns max(0, balance - commission).
func (e *Engine) AvailableBalance(ctx context.Context, ref EntityRef, balance generic.Amount) (Availability, error) {
	base := balance.Max(balance.Zero())
	res, err := e.resolver.Resolve(ctx, ref)
	if err != nil {
		return Availability{}, err
	}
	commission, err := e.calc.Compute(res.Parameter, base)
	if err != nil {
		return Availability{}, err
	}
	available := balance.Sub(commission).Max(balance.Zero())
	return Availability{Balance: balance, Commission: commission, Available: available}, nil
}

