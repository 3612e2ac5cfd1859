package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/focep/collecte-engine/commission"
	"github.com/focep/collecte-engine/generic"
)

// =============================================================================
// COMMISSION PARAMETERS
// =============================================================================

const selectParameters = `
	SELECT id, scope_type, scope_id, param_type, value, tiers_json, active, version, created_at, deactivated_at
	FROM commission_parameters
`

// tierRecord is the stored shape of a tier. Decimals are strings.
type tierRecord struct {
	Min  string  `json:"min"`
	Max  *string `json:"max,omitempty"`
	Rate string  `json:"rate"`
}

// GetActiveParameter returns the active parameter of scope, or nil.
func (s *Store) GetActiveParameter(ctx context.Context, scope commission.Scope) (*commission.Parameter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectParameters+`
		WHERE scope_type = ? AND scope_id = ? AND active = 1
	`, scope.Type, scope.EntityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query parameter: %w", err)
	}
	params, err := scanParameters(rows)
	if err != nil {
		return nil, err
	}
	if len(params) == 0 {
		return nil, nil
	}
	return &params[0], nil
}

// SaveParameter stores p as the active parameter of its scope. The previous
// active parameter is deactivated in the same transaction and the version
// continues from it.
func (s *Store) SaveParameter(ctx context.Context, p commission.Parameter) (commission.Parameter, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	p.Active = true
	p.DeactivatedAt = nil

	tiersJSON, err := encodeTiers(p.Tiers)
	if err != nil {
		return commission.Parameter{}, err
	}

	err = s.withTx(ctx, func(ts *txStore) error {
		var version sql.NullInt64
		if err := ts.tx.QueryRowContext(ctx,
			"SELECT MAX(version) FROM commission_parameters WHERE scope_type = ? AND scope_id = ?",
			p.Scope.Type, p.Scope.EntityID,
		).Scan(&version); err != nil {
			return fmt.Errorf("failed to read parameter version: %w", err)
		}
		p.Version = int(version.Int64) + 1

		if _, err := ts.tx.ExecContext(ctx, `
			UPDATE commission_parameters SET active = 0, deactivated_at = ?
			WHERE scope_type = ? AND scope_id = ? AND active = 1
		`, formatTime(s.now()), p.Scope.Type, p.Scope.EntityID); err != nil {
			return fmt.Errorf("failed to supersede parameter: %w", err)
		}

		if _, err := ts.tx.ExecContext(ctx, `
			INSERT INTO commission_parameters
			(id, scope_type, scope_id, param_type, value, tiers_json, active, version, created_at)
			VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
		`, p.ID, p.Scope.Type, p.Scope.EntityID, p.Type, p.Value.String(), tiersJSON, p.Version, formatTime(p.CreatedAt)); err != nil {
			return fmt.Errorf("failed to insert parameter: %w", err)
		}

		return ts.audit(ctx, generic.AuditEntry{
			Action:   generic.AuditParameterChanged,
			EntityID: generic.EntityID(p.Scope.Key()),
			Payload: map[string]any{
				"parameter_id": p.ID,
				"type":         string(p.Type),
				"value":        p.Value.String(),
				"version":      p.Version,
			},
		})
	})
	if err != nil {
		return commission.Parameter{}, err
	}
	return p, nil
}

// ListParameters returns parameters ordered by scope then version.
func (s *Store) ListParameters(ctx context.Context, includeInactive bool) ([]commission.Parameter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectParameters
	if !includeInactive {
		query += " WHERE active = 1"
	}
	query += " ORDER BY scope_type, scope_id, version"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list parameters: %w", err)
	}
	return scanParameters(rows)
}

// DeactivateParameter turns an active parameter off.
func (s *Store) DeactivateParameter(ctx context.Context, id string) error {
	return s.withTx(ctx, func(ts *txStore) error {
		res, err := ts.tx.ExecContext(ctx,
			"UPDATE commission_parameters SET active = 0, deactivated_at = ? WHERE id = ? AND active = 1",
			formatTime(s.now()), id,
		)
		if err != nil {
			return fmt.Errorf("failed to deactivate parameter: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("active parameter %s: %w", id, generic.ErrEntityNotFound)
		}
		return ts.audit(ctx, generic.AuditEntry{
			Action:  generic.AuditParameterChanged,
			Payload: map[string]any{"parameter_id": id, "active": false},
		})
	})
}

func scanParameters(rows *sql.Rows) ([]commission.Parameter, error) {
	defer rows.Close()

	var params []commission.Parameter
	for rows.Next() {
		var (
			p             commission.Parameter
			value         string
			tiersJSON     sql.NullString
			active        int
			createdAt     string
			deactivatedAt sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Scope.Type, &p.Scope.EntityID, &p.Type, &value, &tiersJSON,
			&active, &p.Version, &createdAt, &deactivatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan parameter: %w", err)
		}

		v, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("corrupt value of parameter %s: %w", p.ID, err)
		}
		p.Value = v
		if p.Tiers, err = decodeTiers(tiersJSON.String); err != nil {
			return nil, fmt.Errorf("corrupt tiers of parameter %s: %w", p.ID, err)
		}
		p.Active = active == 1
		p.CreatedAt = parseTime(createdAt)
		if deactivatedAt.Valid {
			t := parseTime(deactivatedAt.String)
			p.DeactivatedAt = &t
		}
		params = append(params, p)
	}
	return params, rows.Err()
}

func encodeTiers(tiers []commission.Tier) (sql.NullString, error) {
	if len(tiers) == 0 {
		return sql.NullString{}, nil
	}
	records := make([]tierRecord, len(tiers))
	for i, t := range tiers {
		records[i] = tierRecord{Min: t.Min.String(), Rate: t.Rate.String()}
		if t.Max != nil {
			m := t.Max.String()
			records[i].Max = &m
		}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode tiers: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func decodeTiers(raw string) ([]commission.Tier, error) {
	if raw == "" {
		return nil, nil
	}
	var records []tierRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, err
	}
	tiers := make([]commission.Tier, len(records))
	for i, r := range records {
		minV, err := decimal.NewFromString(r.Min)
		if err != nil {
			return nil, err
		}
		rate, err := decimal.NewFromString(r.Rate)
		if err != nil {
			return nil, err
		}
		tiers[i] = commission.Tier{Min: minV, Rate: rate}
		if r.Max != nil {
			maxV, err := decimal.NewFromString(*r.Max)
			if err != nil {
				return nil, err
			}
			tiers[i].Max = &maxV
		}
	}
	return tiers, nil
}
