package service

import (
	"errors"

	"github.com/focep/collecte-engine/commission"
	"github.com/focep/collecte-engine/generic"
	"github.com/focep/collecte-engine/guard"
	"github.com/focep/collecte-engine/versement"
)

// ErrInvalidRequest is returned for missing identifiers and other request
// shape problems caught before any backend call.
var ErrInvalidRequest = errors.New("invalid request")

// =============================================================================
// ERROR CATEGORIES
// =============================================================================
// Transports map each category to one response class. A nil error belongs
// to no category.

// IsConfiguration reports missing or malformed commission parameters. These
// are fatal for the request and must be fixed by an administrator.
func IsConfiguration(err error) bool {
	return errors.Is(err, commission.ErrParameterNotFound) ||
		errors.Is(err, commission.ErrTierNotFound) ||
		errors.Is(err, commission.ErrInvalidParameter)
}

// IsConcurrency reports conflicts with existing state: another closing of
// the same day, a snapshot that changed underneath, a record registered
// twice or a period already accrued. Retrying may succeed for
// ErrConcurrentModification only.
func IsConcurrency(err error) bool {
	return errors.Is(err, versement.ErrAlreadyClosed) ||
		errors.Is(err, generic.ErrDuplicateIdempotencyKey) ||
		errors.Is(err, guard.ErrEntityExists) ||
		errors.Is(err, versement.ErrAlreadyInProgress) ||
		errors.Is(err, generic.ErrConcurrentModification)
}

// IsValidation reports input the caller must correct.
func IsValidation(err error) bool {
	return errors.Is(err, generic.ErrInvalidAmount) ||
		errors.Is(err, generic.ErrInvalidPeriod) ||
		errors.Is(err, commission.ErrInvalidTenure) ||
		errors.Is(err, versement.ErrCommentTooLong) ||
		errors.Is(err, versement.ErrRepaymentExceedsDebt) ||
		errors.Is(err, versement.ErrInvalidMouvement) ||
		errors.Is(err, guard.ErrInvalidFieldValue) ||
		errors.Is(err, guard.ErrNothingToUpdate) ||
		errors.Is(err, guard.ErrUnknownEntityType) ||
		errors.Is(err, ErrInvalidRequest)
}

// IsAuthorization reports refused operations such as deletes.
func IsAuthorization(err error) bool {
	return errors.Is(err, guard.ErrForbiddenOperation)
}

// IsNotFound reports unknown clients or collectors.
func IsNotFound(err error) bool {
	return errors.Is(err, generic.ErrEntityNotFound)
}
