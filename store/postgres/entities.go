package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/lib/pq"

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

func (s *Store) SaveEntity(ctx context.Context, e guard.Entity) (guard.Entity, error) {
	fields, err := json.Marshal(e.Fields)
	if err != nil {
		return guard.Entity{}, fmt.Errorf("failed to encode fields: %w", err)
	}
	now := s.now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	var hireDate sql.NullTime
	if e.HireDate != nil {
		hireDate = sql.NullTime{Time: e.HireDate.UTC(), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entities
		(entity_type, id, collecteur_id, fields_json, active, status_reason, hire_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.Type, e.ID, nullString(e.CollecteurID), string(fields), e.Active, nullString(e.StatusReason),
		hireDate, e.CreatedAt.UTC(), e.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return guard.Entity{}, fmt.Errorf("%w: %s %s", guard.ErrEntityExists, e.Type, e.ID)
		}
		return guard.Entity{}, fmt.Errorf("failed to insert entity: %w", err)
	}
	return e, nil
}

func (s *Store) GetEntity(ctx context.Context, entityType guard.EntityType, id string) (*guard.Entity, error) {
	rows, err := s.db.QueryContext(ctx, selectEntities+" WHERE entity_type = $1 AND id = $2", entityType, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query entity: %w", err)
	}
	entities, err := scanEntities(rows)
	if err != nil || len(entities) == 0 {
		return nil, err
	}
	return &entities[0], nil
}

func (s *Store) ListEntities(ctx context.Context, entityType guard.EntityType, collecteurID string) ([]guard.Entity, error) {
	query := selectEntities + " WHERE entity_type = $1"
	args := []any{entityType}
	if collecteurID != "" {
		query += " AND collecteur_id = $2"
		args = append(args, collecteurID)
	}
	rows, err := s.db.QueryContext(ctx, query+" ORDER BY id ASC", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	return scanEntities(rows)
}

// UpdateEntity merges fields with the JSONB concatenation operator.
func (s *Store) UpdateEntity(ctx context.Context, entityType guard.EntityType, id string, fields map[string]any) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode fields: %w", err)
	}
	return s.withTx(ctx, func(ts *txStore) error {
		res, err := ts.tx.ExecContext(ctx, `
			UPDATE entities SET fields_json = fields_json || $1::jsonb, updated_at = $2
			WHERE entity_type = $3 AND id = $4
		`, string(patch), s.now().UTC(), entityType, id)
		if err != nil {
			return fmt.Errorf("failed to update entity: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s %s", generic.ErrEntityNotFound, entityType, id)
		}
		return ts.audit(ctx, generic.AuditEntry{
			Action:   generic.AuditEntityUpdated,
			EntityID: generic.EntityID(id),
			Payload:  map[string]any{"entity_type": string(entityType), "fields": fields},
		})
	})
}

func (s *Store) ToggleEntityStatus(ctx context.Context, entityType guard.EntityType, id string, active bool, reason string) error {
	return s.withTx(ctx, func(ts *txStore) error {
		res, err := ts.tx.ExecContext(ctx, `
			UPDATE entities SET active = $1, status_reason = $2, updated_at = $3
			WHERE entity_type = $4 AND id = $5
		`, active, nullString(reason), s.now().UTC(), entityType, id)
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
	var collecteurID sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT collecteur_id FROM entities WHERE entity_type = $1 AND id = $2", guard.EntityClient, clientID,
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
			e                    guard.Entity
			collecteurID, reason sql.NullString
			hireDate             sql.NullTime
			fields               []byte
		)
		if err := rows.Scan(&e.Type, &e.ID, &collecteurID, &fields, &e.Active, &reason, &hireDate,
			&e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		if err := json.Unmarshal(fields, &e.Fields); err != nil {
			return nil, fmt.Errorf("corrupt fields of %s %s: %w", e.Type, e.ID, err)
		}
		e.CollecteurID = collecteurID.String
		e.StatusReason = reason.String
		if hireDate.Valid {
			t := hireDate.Time.UTC()
			e.HireDate = &t
		}
		e.CreatedAt = e.CreatedAt.UTC()
		e.UpdatedAt = e.UpdatedAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// AUDIT LOG (generic.AuditLog interface)
// =============================================================================

func (s *Store) AppendAudit(ctx context.Context, entry generic.AuditEntry) error {
	return s.appendAudit(ctx, s.db, entry)
}

func (s *Store) appendAudit(ctx context.Context, db execer, entry generic.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = generic.TimePoint{Time: s.now(), Granularity: generic.GranularityMinute}
	}
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode audit payload: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO audit_log (id, timestamp, actor_id, action, entity_id, payload_json)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.Timestamp.Time.UTC(), nullString(entry.ActorID), entry.Action,
		nullString(string(entry.EntityID)), string(payload))
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// QueryAudit returns entries matching filter, oldest first.
func (s *Store) QueryAudit(ctx context.Context, filter generic.AuditFilter) ([]generic.AuditEntry, error) {
	var (
		entityID, actorID sql.NullString
		from, to          sql.NullTime
		actions           []string
	)
	if filter.EntityID != nil {
		entityID = sql.NullString{String: string(*filter.EntityID), Valid: true}
	}
	if filter.ActorID != nil {
		actorID = sql.NullString{String: *filter.ActorID, Valid: true}
	}
	for _, a := range filter.Actions {
		actions = append(actions, string(a))
	}
	if filter.From != nil {
		from = sql.NullTime{Time: filter.From.Time.UTC(), Valid: true}
	}
	if filter.To != nil {
		to = sql.NullTime{Time: filter.To.Time.UTC(), Valid: true}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, actor_id, action, entity_id, payload_json
		FROM audit_log
		WHERE ($1::text IS NULL OR entity_id = $1)
		  AND ($2::text IS NULL OR actor_id = $2)
		  AND (cardinality($3::text[]) = 0 OR action = ANY($3))
		  AND ($4::timestamptz IS NULL OR timestamp >= $4)
		  AND ($5::timestamptz IS NULL OR timestamp <= $5)
		ORDER BY timestamp ASC, seq ASC
	`, entityID, actorID, pq.Array(actions), from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []generic.AuditEntry
	for rows.Next() {
		var (
			e                     generic.AuditEntry
			timestamp             time.Time
			actor, entity         sql.NullString
			payload               []byte
		)
		if err := rows.Scan(&e.ID, &timestamp, &actor, &e.Action, &entity, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Timestamp = generic.TimePoint{Time: timestamp.UTC(), Granularity: generic.GranularityMinute}
		e.ActorID = actor.String
		e.EntityID = generic.EntityID(entity.String)
		if len(payload) > 0 && string(payload) != "null" {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, fmt.Errorf("failed to decode audit payload %s: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
