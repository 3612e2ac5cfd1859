package guard

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrForbiddenOperation is returned for any attempt to delete a record.
	ErrForbiddenOperation = errors.New("forbidden operation")

	// ErrUnknownEntityType is returned for entity types without field rules.
	ErrUnknownEntityType = errors.New("unknown entity type")

	// ErrNothingToUpdate is returned when every field of an update was rejected.
	ErrNothingToUpdate = errors.New("no updatable field in payload")

	// ErrInvalidFieldValue is returned when an allowed field has a bad value.
	ErrInvalidFieldValue = errors.New("invalid field value")

	// ErrEntityExists is returned when a record is registered twice.
	ErrEntityExists = errors.New("entity already exists")
)

type ForbiddenOperationError struct {
	Operation  string
	EntityType EntityType
	EntityID   string
	Field      string // payload key that made an update delete-equivalent
}

func (e *ForbiddenOperationError) Error() string {
	msg := fmt.Sprintf("%s of %s is forbidden: use the status toggle to deactivate", e.Operation, e.EntityType)
	if e.EntityID != "" {
		msg = fmt.Sprintf("%s of %s %s is forbidden: use the status toggle to deactivate", e.Operation, e.EntityType, e.EntityID)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" (field %q)", e.Field)
	}
	return msg
}

func (e *ForbiddenOperationError) Unwrap() error { return ErrForbiddenOperation }

// ValidationError collects every invalid field value at once.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "invalid field values: " + strings.Join(e.Errors, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidFieldValue }
