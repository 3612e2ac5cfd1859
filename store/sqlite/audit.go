package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/focep/collecte-engine/generic"
)

// =============================================================================
// AUDIT LOG (generic.AuditLog interface)
// =============================================================================

// AppendAudit records an audit entry.
func (s *Store) AppendAudit(ctx context.Context, entry generic.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

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
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.ID, formatTime(entry.Timestamp.Time), nullString(entry.ActorID), entry.Action,
		nullString(string(entry.EntityID)), string(payload))
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// QueryAudit returns entries matching filter, oldest first.
func (s *Store) QueryAudit(ctx context.Context, filter generic.AuditFilter) ([]generic.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where []string
		args  []any
	)
	if filter.EntityID != nil {
		where = append(where, "entity_id = ?")
		args = append(args, string(*filter.EntityID))
	}
	if filter.ActorID != nil {
		where = append(where, "actor_id = ?")
		args = append(args, *filter.ActorID)
	}
	if len(filter.Actions) > 0 {
		marks := make([]string, len(filter.Actions))
		for i, a := range filter.Actions {
			marks[i] = "?"
			args = append(args, string(a))
		}
		where = append(where, "action IN ("+strings.Join(marks, ", ")+")")
	}
	if filter.From != nil {
		where = append(where, "timestamp >= ?")
		args = append(args, formatTime(filter.From.Time))
	}
	if filter.To != nil {
		where = append(where, "timestamp <= ?")
		args = append(args, formatTime(filter.To.Time))
	}

	query := "SELECT id, timestamp, actor_id, action, entity_id, payload_json FROM audit_log"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp ASC, rowid ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []generic.AuditEntry
	for rows.Next() {
		var (
			e         generic.AuditEntry
			timestamp string
			actorID   sql.NullString
			entityID  sql.NullString
			payload   sql.NullString
		)
		if err := rows.Scan(&e.ID, &timestamp, &actorID, &e.Action, &entityID, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Timestamp = generic.TimePoint{Time: parseTime(timestamp), Granularity: generic.GranularityMinute}
		e.ActorID = actorID.String
		e.EntityID = generic.EntityID(entityID.String)
		if payload.Valid && payload.String != "" && payload.String != "null" {
			if err := json.Unmarshal([]byte(payload.String), &e.Payload); err != nil {
				return nil, fmt.Errorf("failed to decode audit payload %s: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
