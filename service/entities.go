package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/focep/collecte-engine/generic"
	"github.com/focep/collecte-engine/guard"
)

// UpdateResult reports what a guarded update applied and what it dropped.
type UpdateResult struct {
	Applied  []string
	Rejected map[string]string
	Warnings []string
}

// GuardedUpdate filters payload through the field rules and forwards only
// the allowed fields. Rejections are warnings, not errors, unless nothing
// is left to update.
func (s *Service) GuardedUpdate(ctx context.Context, entityType guard.EntityType, role guard.Role, id string, payload map[string]any) (UpdateResult, error) {
	if id == "" {
		return UpdateResult{}, fmt.Errorf("%w: entity id is required", ErrInvalidRequest)
	}

	filtered, err := s.guard.FilterUpdate(entityType, role, payload)
	if err != nil {
		var forbidden *guard.ForbiddenOperationError
		if errors.As(err, &forbidden) {
			forbidden.EntityID = id
			s.metrics.IncrementForbidden(string(entityType))
			s.logger.WarnContext(ctx, "delete-equivalent update refused",
				"entity_type", entityType, "entity_id", id, "field", forbidden.Field, "role", role)
		}
		return UpdateResult{}, err
	}

	res := UpdateResult{
		Applied:  filtered.AllowedFields(),
		Rejected: filtered.Rejected,
		Warnings: filtered.Warnings,
	}
	if filtered.HasRejected() {
		for _, field := range filtered.RejectedFields() {
			s.metrics.IncrementGuardRejection(string(entityType), field)
		}
		s.logger.WarnContext(ctx, "update fields rejected",
			"entity_type", entityType,
			"entity_id", id,
			"role", role,
			"rejected", filtered.RejectedFields(),
		)
	}
	if len(filtered.Allowed) == 0 {
		return res, fmt.Errorf("update %s %s: %w", entityType, id, guard.ErrNothingToUpdate)
	}
	if err := guard.ValidateValues(entityType, filtered.Allowed); err != nil {
		return res, err
	}

	if err := s.backend.UpdateEntity(ctx, entityType, id, filtered.Allowed); err != nil {
		return res, fmt.Errorf("update %s %s: %w", entityType, id, err)
	}
	s.logger.InfoContext(ctx, "entity updated",
		"entity_type", entityType, "entity_id", id, "fields", res.Applied)
	return res, nil
}

// ToggleStatus activates or deactivates a record. This is the only way to
// take a client or collector out of service.
func (s *Service) ToggleStatus(ctx context.Context, entityType guard.EntityType, id string, active bool, reason string) (guard.StatusChange, error) {
	sc, err := s.guard.StatusChange(entityType, id, active, reason)
	if err != nil {
		return guard.StatusChange{}, err
	}
	if err := s.backend.ToggleEntityStatus(ctx, sc.EntityType, sc.EntityID, sc.Active, sc.Reason); err != nil {
		return guard.StatusChange{}, fmt.Errorf("toggle %s %s: %w", entityType, id, err)
	}
	s.logger.InfoContext(ctx, "entity status changed",
		"entity_type", sc.EntityType, "entity_id", sc.EntityID, "active", sc.Active, "reason", sc.Reason)
	return sc, nil
}

// DeleteEntity always fails. It never reaches the backend.
func (s *Service) DeleteEntity(ctx context.Context, entityType guard.EntityType, id string) error {
	s.metrics.IncrementForbidden(string(entityType))
	s.logger.WarnContext(ctx, "delete refused", "entity_type", entityType, "entity_id", id)
	return s.guard.Delete(entityType, id)
}

// AllowedFields lists the fields role may edit on entityType.
func (s *Service) AllowedFields(entityType guard.EntityType, role guard.Role) []string {
	return s.guard.AllowedFields(entityType, role)
}

// =============================================================================
// REGISTRY
// =============================================================================

func (s *Service) registry(op string) (EntityRegistry, error) {
	r, ok := s.backend.(EntityRegistry)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, generic.ErrStoreRequired)
	}
	return r, nil
}

// RegisterEntity stores a new record. New records start active.
func (s *Service) RegisterEntity(ctx context.Context, e guard.Entity) (guard.Entity, error) {
	if err := e.Validate(); err != nil {
		return guard.Entity{}, err
	}
	r, err := s.registry("register entity")
	if err != nil {
		return guard.Entity{}, err
	}
	e.Active = true
	e.StatusReason = ""
	saved, err := r.SaveEntity(ctx, e)
	if err != nil {
		return guard.Entity{}, fmt.Errorf("register %s %s: %w", e.Type, e.ID, err)
	}
	s.logger.InfoContext(ctx, "entity registered", "entity_type", e.Type, "entity_id", e.ID)
	return saved, nil
}

// GetEntity fails with generic.ErrEntityNotFound for unknown records.
func (s *Service) GetEntity(ctx context.Context, entityType guard.EntityType, id string) (guard.Entity, error) {
	r, err := s.registry("get entity")
	if err != nil {
		return guard.Entity{}, err
	}
	e, err := r.GetEntity(ctx, entityType, id)
	if err != nil {
		return guard.Entity{}, err
	}
	if e == nil {
		return guard.Entity{}, fmt.Errorf("%w: %s %s", generic.ErrEntityNotFound, entityType, id)
	}
	return *e, nil
}

// ListEntities lists records of one type. A non-empty collecteurID keeps
// only that collector's clients.
func (s *Service) ListEntities(ctx context.Context, entityType guard.EntityType, collecteurID string) ([]guard.Entity, error) {
	if !entityType.Valid() {
		return nil, fmt.Errorf("%w: %q", guard.ErrUnknownEntityType, entityType)
	}
	r, err := s.registry("list entities")
	if err != nil {
		return nil, err
	}
	return r.ListEntities(ctx, entityType, collecteurID)
}

// CollectorTenure returns the months since the collector's hire date, as
// of today.
func (s *Service) CollectorTenure(ctx context.Context, collecteurID string) (float64, error) {
	e, err := s.GetEntity(ctx, guard.EntityCollecteur, collecteurID)
	if err != nil {
		return 0, err
	}
	if e.HireDate == nil {
		return 0, fmt.Errorf("%w: collector %s has no hire date", ErrInvalidRequest, collecteurID)
	}
	months := generic.MonthsBetween(generic.DayOf(*e.HireDate), generic.DayOf(s.now()))
	if months < 0 {
		months = 0
	}
	return months, nil
}
