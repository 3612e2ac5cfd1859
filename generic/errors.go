/*
errors.go - Centralized error types for the generic engine

PURPOSE:
  Error types shared by every domain package. Domain packages declare their
  own sentinels (commission, versement, guard) and wrap these where the
  failure is about money or persistence rather than domain rules.

ERROR CATEGORIES:
  1. Ledger errors - Transaction persistence failures
  2. Validation errors - Invalid amounts
  3. Store errors - Database-level failures, atomicity violations

USAGE:
  if errors.Is(err, generic.ErrInvalidAmount) {
      // reject the request before it reaches the backend
  }

SEE ALSO:
  - ledger.go: Uses these errors
  - store.go: Uses these errors
  - service/errors.go: Maps all errors to categories
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateIdempotencyKey is returned when a transaction with the same
	// idempotency key already exists. This is expected behavior for retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrInvalidAmount is returned for negative or otherwise unusable amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrConcurrentModification is returned when a store detects that the
	// balance it was asked to settle changed since it was read.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrEntityNotFound is returned when a referenced entity doesn't exist.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrStoreRequired is returned when an operation requires a specific store capability.
	ErrStoreRequired = errors.New("operation requires extended store interface")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidAmountError names the offending field and value.
type InvalidAmountError struct {
	Field  string
	Value  Amount
	Reason string
}

func (e *InvalidAmountError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid amount for %s (%s): %s", e.Field, e.Value.Value, e.Reason)
	}
	return fmt.Sprintf("invalid amount for %s: %s", e.Field, e.Value.Value)
}

func (e *InvalidAmountError) Unwrap() error {
	return ErrInvalidAmount
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrDuplicateIdempotencyKey) ||
		errors.Is(err, ErrInvalidPeriod)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}
