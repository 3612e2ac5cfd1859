package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/focep/collecte-engine/commission"
	"github.com/focep/collecte-engine/generic"
	"github.com/focep/collecte-engine/guard"
	"github.com/focep/collecte-engine/service"
)

var (
	_ service.LedgerBackend  = (*Store)(nil)
	_ service.ParameterAdmin = (*Store)(nil)
	_ service.EntityRegistry = (*Store)(nil)
	_ commission.Directory   = (*Store)(nil)
	_ generic.Store          = (*Store)(nil)
	_ generic.AuditLog       = (*Store)(nil)
)

// =============================================================================
// ENTITIES
// =============================================================================

const selectEntities = `
	SELECT entity_type, id, collecteur_id, fields_json, active, status_reason, hire_date, created_at, updated_at
	FROM entities
`

// SaveEntity registers a new client or collector. Records are never
// overwritten: a second registration fails with guard.ErrEntityExists.
func (s *Store) SaveEntity(ctx context.Context, e guard.Entity) (guard.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields, err := json.Marshal(e.Fields)
	if err != nil {
		return guard.Entity{}, fmt.Errorf("failed to encode fields: %w", err)
	}
	now := s.now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	var hireDate sql.NullString
	if e.HireDate != nil {
		hireDate = nullString(formatTime(*e.HireDate))
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entities
		(entity_type, id, collecteur_id, fields_json, active, status_reason, hire_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.Type, e.ID, nullString(e.CollecteurID), string(fields), e.Active, nullString(e.StatusReason),
		hireDate, formatTime(e.CreatedAt), formatTime(e.UpdatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return guard.Entity{}, fmt.Errorf("%w: %s %s", guard.ErrEntityExists, e.Type, e.ID)
		}
		return guard.Entity{}, fmt.Errorf("failed to insert entity: %w", err)
	}
	return e, nil
}

// GetEntity returns nil, nil when the record does not exist.
func (s *Store) GetEntity(ctx context.Context, entityType guard.EntityType, id string) (*guard.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectEntities+" WHERE entity_type = ? AND id = ?", entityType, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query entity: %w", err)
	}
	entities, err := scanEntities(rows)
	if err != nil || len(entities) == 0 {
		return nil, err
	}
	return &entities[0], nil
}

// ListEntities returns the records of one type, optionally only the
// clients of a collector.
func (s *Store) ListEntities(ctx context.Context, entityType guard.EntityType, collecteurID string) ([]guard.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectEntities + " WHERE entity_type = ?"
	args := []any{entityType}
	if collecteurID != "" {
		query += " AND collecteur_id = ?"
		args = append(args, collecteurID)
	}
	rows, err := s.db.QueryContext(ctx, query+" ORDER BY id ASC", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	return scanEntities(rows)
}

// UpdateEntity merges fields into the stored record. Callers pass only
// fields the guard allowed.
func (s *Store) UpdateEntity(ctx context.Context, entityType guard.EntityType, id string, fields map[string]any) error {
	return s.withTx(ctx, func(ts *txStore) error {
		var raw string
		err := ts.tx.QueryRowContext(ctx,
			"SELECT fields_json FROM entities WHERE entity_type = ? AND id = ?", entityType, id,
		).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s %s", generic.ErrEntityNotFound, entityType, id)
		}
		if err != nil {
			return fmt.Errorf("failed to load entity: %w", err)
		}

		current := map[string]any{}
		if err := json.Unmarshal([]byte(raw), &current); err != nil {
			return fmt.Errorf("corrupt fields of %s %s: %w", entityType, id, err)
		}
		for k, v := range fields {
			current[k] = v
		}
		merged, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("failed to encode fields: %w", err)
		}

		if _, err := ts.tx.ExecContext(ctx,
			"UPDATE entities SET fields_json = ?, updated_at = ? WHERE entity_type = ? AND id = ?",
			string(merged), formatTime(s.now()), entityType, id,
		); err != nil {
			return fmt.Errorf("failed to update entity: %w", err)
		}

		return ts.audit(ctx, generic.AuditEntry{
			Action:   generic.AuditEntityUpdated,
			EntityID: generic.EntityID(id),
			Payload:  map[string]any{"entity_type": string(entityType), "fields": fields},
		})
	})
}

// ToggleEntityStatus is the only write that touches the active flag.
func (s *Store) ToggleEntityStatus(ctx context.Context, entityType guard.EntityType, id string, active bool, reason string) error {
	return s.withTx(ctx, func(ts *txStore) error {
		res, err := ts.tx.ExecContext(ctx,
			"UPDATE entities SET active = ?, status_reason = ?, updated_at = ? WHERE entity_type = ? AND id = ?",
			active, nullString(reason), formatTime(s.now()), entityType, id,
		)
		if err != nil {
			return fmt.Errorf("failed to toggle status: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s %s", generic.ErrEntityNotFound, entityType, id)
		}

		return ts.audit(ctx, generic.AuditEntry{
			Action:   generic.AuditStatusToggled,
			EntityID: generic.EntityID(id),
			Payload:  map[string]any{"entity_type": string(entityType), "active": active, "reason": reason},
		})
	})
}

// CollecteurOf implements commission.Directory.
func (s *Store) CollecteurOf(ctx context.Context, clientID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var collecteurID sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT collecteur_id FROM entities WHERE entity_type = ? AND id = ?", guard.EntityClient, clientID,
	).Scan(&collecteurID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: client %s", generic.ErrEntityNotFound, clientID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query client: %w", err)
	}
	return collecteurID.String, nil
}

func scanEntities(rows *sql.Rows) ([]guard.Entity, error) {
	defer rows.Close()

	var out []guard.Entity
	for rows.Next() {
		var (
			e                      guard.Entity
			collecteurID, reason   sql.NullString
			hireDate               sql.NullString
			fields                 string
			createdAt, updatedAt   string
		)
		if err := rows.Scan(&e.Type, &e.ID, &collecteurID, &fields, &e.Active, &reason, &hireDate,
			&createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		if err := json.Unmarshal([]byte(fields), &e.Fields); err != nil {
			return nil, fmt.Errorf("corrupt fields of %s %s: %w", e.Type, e.ID, err)
		}
		e.CollecteurID = collecteurID.String
		e.StatusReason = reason.String
		if hireDate.Valid {
			t := parseTime(hireDate.String)
			e.HireDate = &t
		}
		e.CreatedAt = parseTime(createdAt)
		e.UpdatedAt = parseTime(updatedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

