package guard

import (
	"fmt"
	"strings"
	"time"
)

// Entity is a client or collector record as the stores keep it. Identity
// and editable fields both live in Fields; the field tables decide which
// of them an update may touch.
type Entity struct {
	Type         EntityType
	ID           string
	CollecteurID string // clients only
	Fields       map[string]any
	Active       bool
	StatusReason string
	HireDate     *time.Time // collectors only, drives seniority
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks a record before it is first stored.
func (e Entity) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownEntityType, e.Type)
	}
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("%w: entity id is required", ErrInvalidFieldValue)
	}
	if e.Type == EntityClient && strings.TrimSpace(e.CollecteurID) == "" {
		return fmt.Errorf("%w: client %s has no collector", ErrInvalidFieldValue, e.ID)
	}
	if e.Type == EntityCollecteur && e.CollecteurID != "" {
		return fmt.Errorf("%w: collector %s cannot be attached to a collector", ErrInvalidFieldValue, e.ID)
	}
	return ValidateValues(e.Type, e.Fields)
}
