package commission

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrParameterNotFound means no parameter applies, not even the agency default.
	ErrParameterNotFound = errors.New("commission parameter not found")

	// ErrTierNotFound means a TIER parameter has no bracket for the amount.
	ErrTierNotFound = errors.New("no commission tier matches amount")

	// ErrInvalidParameter means a stored or submitted parameter is malformed.
	ErrInvalidParameter = errors.New("invalid commission parameter")

	// ErrInvalidTenure means a negative or non-numeric tenure.
	ErrInvalidTenure = errors.New("invalid tenure")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ParameterNotFoundError lists every scope that was tried.
type ParameterNotFoundError struct {
	Ref   EntityRef
	Tried []Scope
}

func (e *ParameterNotFoundError) Error() string {
	tried := make([]string, len(e.Tried))
	for i, s := range e.Tried {
		tried[i] = s.String()
	}
	return fmt.Sprintf("no active commission parameter for %s %s (tried %s)",
		e.Ref.Type, e.Ref.ID, strings.Join(tried, ", "))
}

func (e *ParameterNotFoundError) Unwrap() error { return ErrParameterNotFound }

type TierNotFoundError struct {
	ParameterID string
	Amount      decimal.Decimal
}

func (e *TierNotFoundError) Error() string {
	return fmt.Sprintf("parameter %s: no tier contains amount %s", e.ParameterID, e.Amount)
}

func (e *TierNotFoundError) Unwrap() error { return ErrTierNotFound }

type InvalidParameterError struct {
	ParameterID string
	Reason      string
}

func (e *InvalidParameterError) Error() string {
	if e.ParameterID == "" {
		return "invalid commission parameter: " + e.Reason
	}
	return fmt.Sprintf("invalid commission parameter %s: %s", e.ParameterID, e.Reason)
}

func (e *InvalidParameterError) Unwrap() error { return ErrInvalidParameter }

type InvalidTenureError struct {
	Months float64
}

func (e *InvalidTenureError) Error() string {
	return fmt.Sprintf("invalid tenure: %v months", e.Months)
}

func (e *InvalidTenureError) Unwrap() error { return ErrInvalidTenure }
