package postgres

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

const selectParameters = `
	SELECT id, scope_type, scope_id, param_type, value, tiers_json, active, version, created_at, deactivated_at
	FROM commission_parameters
`

// tierRecord is the JSONB shape of a tier. Decimals are strings so
// rates keep their exact scale.
type tierRecord struct {
	Min  string  `json:"min"`
	Max  *string `json:"max,omitempty"`
	Rate string  `json:"rate"`
}

func (s *Store) GetActiveParameter(ctx context.Context, scope commission.Scope) (*commission.Parameter, error) {
	rows, err := s.db.QueryContext(ctx, selectParameters+`
		WHERE scope_type = $1 AND scope_id = $2 AND active
	`, scope.Type, scope.EntityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query parameter: %w", err)
	}
	params, err := scanParameters(rows)
	if err != nil || len(params) == 0 {
		return nil, err
	}
	return &params[0], nil
}

// SaveParameter supersedes the active parameter of the same scope.
func (s *Store) SaveParameter(ctx context.Context, p commission.Parameter) (commission.Parameter, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	p.Active = true
	p.DeactivatedAt = nil

	tiers, err := encodeTiers(p.Tiers)
	if err != nil {
		return commission.Parameter{}, err
	}

	err = s.withTx(ctx, func(ts *txStore) error {
		// Serializes concurrent saves of the same scope.
		if _, err := ts.tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", "param:"+p.Scope.Key()); err != nil {
			return fmt.Errorf("failed to lock scope: %w", err)
		}

		var version sql.NullInt64
		if err := ts.tx.QueryRowContext(ctx,
			"SELECT MAX(version) FROM commission_parameters WHERE scope_type = $1 AND scope_id = $2",
			p.Scope.Type, p.Scope.EntityID,
		).Scan(&version); err != nil {
			return fmt.Errorf("failed to read parameter version: %w", err)
		}
		p.Version = int(version.Int64) + 1

		if _, err := ts.tx.ExecContext(ctx, `
			UPDATE commission_parameters SET active = FALSE, deactivated_at = $1
			WHERE scope_type = $2 AND scope_id = $3 AND active
		`, s.now().UTC(), p.Scope.Type, p.Scope.EntityID); err != nil {
			return fmt.Errorf("failed to supersede parameter: %w", err)
		}

		if _, err := ts.tx.ExecContext(ctx, `
			INSERT INTO commission_parameters
			(id, scope_type, scope_id, param_type, value, tiers_json, active, version, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8)
		`, p.ID, p.Scope.Type, p.Scope.EntityID, p.Type, p.Value, tiers, p.Version, p.CreatedAt.UTC()); err != nil {
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

func (s *Store) ListParameters(ctx context.Context, includeInactive bool) ([]commission.Parameter, error) {
	query := selectParameters
	if !includeInactive {
		query += " WHERE active"
	}
	rows, err := s.db.QueryContext(ctx, query+" ORDER BY scope_type, scope_id, version")
	if err != nil {
		return nil, fmt.Errorf("failed to query parameters: %w", err)
	}
	return scanParameters(rows)
}

func (s *Store) DeactivateParameter(ctx context.Context, id string) error {
	return s.withTx(ctx, func(ts *txStore) error {
		res, err := ts.tx.ExecContext(ctx,
			"UPDATE commission_parameters SET active = FALSE, deactivated_at = $1 WHERE id = $2 AND active",
			s.now().UTC(), id,
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
			tiers         []byte
			deactivatedAt sql.NullTime
		)
		if err := rows.Scan(&p.ID, &p.Scope.Type, &p.Scope.EntityID, &p.Type, &p.Value, &tiers,
			&p.Active, &p.Version, &p.CreatedAt, &deactivatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan parameter: %w", err)
		}
		var err error
		if p.Tiers, err = decodeTiers(tiers); err != nil {
			return nil, fmt.Errorf("corrupt tiers of parameter %s: %w", p.ID, err)
		}
		p.CreatedAt = p.CreatedAt.UTC()
		if deactivatedAt.Valid {
			t := deactivatedAt.Time.UTC()
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
	return nullString(string(raw)), nil
}

func decodeTiers(raw []byte) ([]commission.Tier, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var records []tierRecord
	if err := json.Unmarshal(raw, &records); err != nil {
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

