/*
Package guard enforces the business rules on client and collector records.

PURPOSE:
  Clients and collectors are never hard-deleted and their identity fields
  are never edited. Every mutation request passes through the Guard before
  it reaches the backend:

  - FilterUpdate: splits a payload into allowed and rejected fields
  - StatusChange: the only way to deactivate (or reactivate) a record
  - Delete: always refused

FIELD RULES:
  Protected fields are rejected for every role, admins included.
  Other fields are allowed only if they are on the role's allow-list.
  "active" is reserved for StatusChange on every entity type.

SEE ALSO:
  - rules.go: The static field tables
  - validate.go: Format checks on allowed values
  - service/service.go: GuardedUpdate wiring the guard to the backend
*/
package guard

import (
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// TYPES
// =============================================================================

type EntityType string

const (
	EntityClient     EntityType = "CLIENT"
	EntityCollecteur EntityType = "COLLECTEUR"
)

func (e EntityType) Valid() bool {
	return e == EntityClient || e == EntityCollecteur
}

type Role string

const (
	RoleCollecteur Role = "COLLECTEUR"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// NormalizeRole maps "ROLE_ADMIN", "admin" and "ADMIN" to RoleAdmin.
func NormalizeRole(raw string) Role {
	r := strings.ToUpper(strings.TrimSpace(raw))
	return Role(strings.TrimPrefix(r, "ROLE_"))
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// FilterResult is the outcome of FilterUpdate.
type FilterResult struct {
	Allowed  map[string]any
	Rejected map[string]string // field -> reason
	Warnings []string          // sorted by field
}

func (r FilterResult) HasRejected() bool { return len(r.Rejected) > 0 }

// AllowedFields returns the allowed keys in sorted order.
func (r FilterResult) AllowedFields() []string {
	keys := make([]string, 0, len(r.Allowed))
	for k := range r.Allowed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RejectedFields returns the rejected keys in sorted order.
func (r FilterResult) RejectedFields() []string {
	keys := make([]string, 0, len(r.Rejected))
	for k := range r.Rejected {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StatusChange is a validated activation toggle.
type StatusChange struct {
	EntityType  EntityType
	EntityID    string
	Active      bool
	Reason      string
	Message     string
	NextActions []string
}

// =============================================================================
// GUARD
// =============================================================================

type Guard struct {
	rules map[EntityType]FieldRules
}

// New returns a guard using the default field tables.
func New() *Guard {
	return &Guard{rules: DefaultRules()}
}

// NewWithRules is for callers that load their own tables.
func NewWithRules(rules map[EntityType]FieldRules) *Guard {
	return &Guard{rules: rules}
}

// FilterUpdate splits payload into allowed and rejected fields. It never
// calls anything outside the process.
func (g *Guard) FilterUpdate(entityType EntityType, role Role, payload map[string]any) (FilterResult, error) {
	rules, ok := g.rules[entityType]
	if !ok {
		return FilterResult{}, fmt.Errorf("%w: %q", ErrUnknownEntityType, entityType)
	}
	for key := range payload {
		if deleteEquivalent[key] {
			return FilterResult{}, &ForbiddenOperationError{Operation: "delete", EntityType: entityType, Field: key}
		}
	}

	res := FilterResult{
		Allowed:  make(map[string]any),
		Rejected: make(map[string]string),
	}
	allowed := rules.allowedFor(role)
	for key, value := range payload {
		switch {
		case rules.isProtected(key):
			res.Rejected[key] = fmt.Sprintf("Champ protégé: %s ne peut pas être modifié", key)
		case key == FieldActive:
			res.Rejected[key] = "Champ réservé: utilisez le changement de statut pour activer ou désactiver"
		case allowed[key]:
			res.Allowed[key] = value
		default:
			res.Rejected[key] = fmt.Sprintf("Champ non autorisé pour le rôle %s: %s", role, key)
		}
	}

	for _, key := range res.RejectedFields() {
		res.Warnings = append(res.Warnings, res.Rejected[key])
	}
	return res, nil
}

// AllowedFields lists what role may edit on entityType, sorted.
func (g *Guard) AllowedFields(entityType EntityType, role Role) []string {
	rules, ok := g.rules[entityType]
	if !ok {
		return nil
	}
	var out []string
	for f := range rules.allowedFor(role) {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Delete always fails. Records are deactivated, never removed.
func (g *Guard) Delete(entityType EntityType, entityID string) error {
	return &ForbiddenOperationError{Operation: "delete", EntityType: entityType, EntityID: entityID}
}

// StatusChange validates a toggle and attaches follow-up actions when a
// collector is deactivated.
func (g *Guard) StatusChange(entityType EntityType, entityID string, active bool, reason string) (StatusChange, error) {
	if !entityType.Valid() {
		return StatusChange{}, fmt.Errorf("%w: %q", ErrUnknownEntityType, entityType)
	}
	if strings.TrimSpace(entityID) == "" {
		return StatusChange{}, fmt.Errorf("%w: entity id is required", ErrInvalidFieldValue)
	}

	sc := StatusChange{
		EntityType: entityType,
		EntityID:   entityID,
		Active:     active,
		Reason:     strings.TrimSpace(reason),
	}
	label := "Client"
	if entityType == EntityCollecteur {
		label = "Collecteur"
	}
	if active {
		sc.Message = label + " activé avec succès"
		return sc, nil
	}

	sc.Message = label + " désactivé avec succès"
	if entityType == EntityCollecteur {
		sc.NextActions = []string{
			"Considérez transférer les clients vers un autre collecteur",
			"Vérifiez les transactions en cours",
			"Notifiez l'équipe de la désactivation",
		}
	}
	return sc, nil
}
