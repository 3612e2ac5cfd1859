/*
Package postgres provides a PostgreSQL storage implementation.

PURPOSE:
  The production backend for agencies running more than one engine
  instance. Implements the same interfaces as store/sqlite:

  - generic.Store, generic.AuditLog
  - service.LedgerBackend, service.ParameterAdmin, service.EntityRegistry
  - commission.Directory

SCHEMA:
  Same tables as store/sqlite with native types: NUMERIC amounts,
  TIMESTAMPTZ instants, DATE closing days and JSONB payloads.

CONCURRENCY:
  No process-local mutex. Writes that depend on a balance take a
  transaction-scoped advisory lock on the collector id, so two instances
  closing the same collector serialize in the database. The unique index
  on (collecteur_id, date) remains the final guard.

SEE ALSO:
  - store/sqlite: Embedded store with the same semantics
*/
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/focep/collecte-engine/generic"
)

// Store implements all storage interfaces using PostgreSQL.
type Store struct {
	db       *sql.DB
	currency generic.Currency
	now      func() time.Time
}

type Option func(*Store)

// WithClock sets the clock used for created_at and audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCurrency sets the currency of amounts stored without one.
func WithCurrency(c generic.Currency) Option {
	return func(s *Store) {
		if c != "" {
			s.currency = c
		}
	}
}

// Open connects to dsn and migrates the schema.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	s, err := New(ctx, db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database and migrates the schema.
func New(ctx context.Context, db *sql.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	s := &Store{db: db, currency: generic.DefaultCurrency, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		entity_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		effective_at TIMESTAMPTZ NOT NULL,
		delta_value NUMERIC NOT NULL,
		currency TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		reference_id TEXT,
		reason TEXT,
		idempotency_key TEXT UNIQUE,
		metadata_json JSONB,
		created_by TEXT,
		created_by_type TEXT,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_entity_account_date
		ON transactions(entity_id, account_id, effective_at);

	CREATE TABLE IF NOT EXISTS versements (
		id TEXT PRIMARY KEY,
		collecteur_id TEXT NOT NULL,
		date DATE NOT NULL,
		service_balance NUMERIC NOT NULL,
		montant_du NUMERIC NOT NULL,
		montant_verse NUMERIC NOT NULL,
		difference NUMERIC NOT NULL,
		currency TEXT NOT NULL,
		case_name TEXT NOT NULL,
		severity TEXT NOT NULL,
		percentage NUMERIC NOT NULL,
		message TEXT NOT NULL,
		comment TEXT,
		created_by TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (collecteur_id, date)
	);

	CREATE TABLE IF NOT EXISTS repayments (
		id TEXT PRIMARY KEY,
		collecteur_id TEXT NOT NULL,
		date DATE NOT NULL,
		montant NUMERIC NOT NULL,
		outstanding NUMERIC NOT NULL,
		currency TEXT NOT NULL,
		comment TEXT,
		created_by TEXT,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS commission_parameters (
		id TEXT PRIMARY KEY,
		scope_type TEXT NOT NULL,
		scope_id TEXT NOT NULL DEFAULT '',
		param_type TEXT NOT NULL,
		value NUMERIC NOT NULL,
		tiers_json JSONB,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL,
		deactivated_at TIMESTAMPTZ
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_parameters_active_scope
		ON commission_parameters(scope_type, scope_id) WHERE active;

	CREATE TABLE IF NOT EXISTS entities (
		entity_type TEXT NOT NULL,
		id TEXT NOT NULL,
		collecteur_id TEXT,
		fields_json JSONB NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		status_reason TEXT,
		hire_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (entity_type, id)
	);

	CREATE TABLE IF NOT EXISTS audit_log (
		seq BIGSERIAL,
		id TEXT PRIMARY KEY,
		timestamp TIMESTAMPTZ NOT NULL,
		actor_id TEXT,
		action TEXT NOT NULL,
		entity_id TEXT,
		payload_json JSONB
	);

	CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_log(entity_id, timestamp);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// =============================================================================
// LEDGER (generic.Store interface)
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) Append(ctx context.Context, tx generic.Transaction) error {
	return s.appendTx(ctx, s.db, tx)
}

func (s *Store) appendTx(ctx context.Context, db execer, tx generic.Transaction) error {
	var metadata sql.NullString
	if len(tx.Metadata) > 0 {
		raw, err := json.Marshal(tx.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata: %w", err)
		}
		metadata = nullString(string(raw))
	}
	createdAt := tx.CreatedAt.Time
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO transactions
		(id, entity_id, account_id, effective_at, delta_value, currency, tx_type,
		 reference_id, reason, idempotency_key, metadata_json, created_by, created_by_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, tx.ID, tx.EntityID, tx.AccountID, tx.EffectiveAt.Time.UTC(), tx.Delta.Value, s.currencyOf(tx.Delta), tx.Type,
		nullString(tx.ReferenceID), nullString(tx.Reason), nullString(tx.IdempotencyKey), metadata,
		nullString(tx.CreatedBy), nullString(tx.CreatedByType), createdAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return generic.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// AppendBatch adds multiple transactions atomically.
func (s *Store) AppendBatch(ctx context.Context, txs []generic.Transaction) error {
	if err := checkBatchKeys(txs); err != nil {
		return err
	}
	return s.withTx(ctx, func(ts *txStore) error {
		return ts.AppendBatch(ctx, txs)
	})
}

func checkBatchKeys(txs []generic.Transaction) error {
	seen := make(map[string]bool)
	for _, tx := range txs {
		if tx.IdempotencyKey == "" {
			continue
		}
		if seen[tx.IdempotencyKey] {
			return generic.ErrDuplicateIdempotencyKey
		}
		seen[tx.IdempotencyKey] = true
	}
	return nil
}

const selectTransactions = `
	SELECT id, entity_id, account_id, effective_at, delta_value, currency, tx_type,
	       reference_id, reason, idempotency_key, metadata_json, created_by, created_by_type, created_at
	FROM transactions
`

func (s *Store) Load(ctx context.Context, entityID generic.EntityID, accountID generic.AccountID) ([]generic.Transaction, error) {
	return loadTransactions(ctx, s.db, entityID, accountID)
}

func (s *Store) LoadRange(ctx context.Context, entityID generic.EntityID, accountID generic.AccountID, from, to generic.TimePoint) ([]generic.Transaction, error) {
	return loadRange(ctx, s.db, entityID, accountID, from, to)
}

func (s *Store) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	return keyExists(ctx, s.db, idempotencyKey)
}

func loadTransactions(ctx context.Context, db querier, entityID generic.EntityID, accountID generic.AccountID) ([]generic.Transaction, error) {
	return queryTransactions(ctx, db, selectTransactions+`
		WHERE entity_id = $1 AND account_id = $2
		ORDER BY effective_at ASC, created_at ASC
	`, entityID, accountID)
}

func loadRange(ctx context.Context, db querier, entityID generic.EntityID, accountID generic.AccountID, from, to generic.TimePoint) ([]generic.Transaction, error) {
	return queryTransactions(ctx, db, selectTransactions+`
		WHERE entity_id = $1 AND account_id = $2
		  AND effective_at >= $3 AND effective_at <= $4
		ORDER BY effective_at ASC, created_at ASC
	`, entityID, accountID, from.Time.UTC(), to.Time.UTC())
}

func keyExists(ctx context.Context, db querier, idempotencyKey string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM transactions WHERE idempotency_key = $1)", idempotencyKey,
	).Scan(&exists)
	return exists, err
}

func queryTransactions(ctx context.Context, db querier, query string, args ...any) ([]generic.Transaction, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []generic.Transaction
	for rows.Next() {
		var (
			tx                                   generic.Transaction
			effectiveAt, createdAt               time.Time
			delta                                decimal.Decimal
			currency                             string
			referenceID, reason, key, by, byType sql.NullString
			metadata                             []byte
		)
		if err := rows.Scan(&tx.ID, &tx.EntityID, &tx.AccountID, &effectiveAt, &delta, &currency, &tx.Type,
			&referenceID, &reason, &key, &metadata, &by, &byType, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.EffectiveAt = generic.TimePoint{Time: effectiveAt.UTC()}
		tx.Delta = generic.NewAmount(delta, generic.Currency(currency))
		tx.ReferenceID = referenceID.String
		tx.Reason = reason.String
		tx.IdempotencyKey = key.String
		tx.CreatedBy = by.String
		tx.CreatedByType = byType.String
		tx.CreatedAt = generic.TimePoint{Time: createdAt.UTC(), Granularity: generic.GranularityMinute}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &tx.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata of %s: %w", tx.ID, err)
			}
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// withTx runs fn in one SQL transaction. An error from fn rolls everything
// back.
func (s *Store) withTx(ctx context.Context, fn func(ts *txStore) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, parent: s}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore is the ledger as seen from inside an open transaction.
type txStore struct {
	tx     *sql.Tx
	parent *Store
}

func (ts *txStore) Append(ctx context.Context, tx generic.Transaction) error {
	return ts.parent.appendTx(ctx, ts.tx, tx)
}

func (ts *txStore) AppendBatch(ctx context.Context, txs []generic.Transaction) error {
	if err := checkBatchKeys(txs); err != nil {
		return err
	}
	for _, tx := range txs {
		if err := ts.parent.appendTx(ctx, ts.tx, tx); err != nil {
			return err
		}
	}
	return nil
}

func (ts *txStore) Load(ctx context.Context, entityID generic.EntityID, accountID generic.AccountID) ([]generic.Transaction, error) {
	return loadTransactions(ctx, ts.tx, entityID, accountID)
}

func (ts *txStore) LoadRange(ctx context.Context, entityID generic.EntityID, accountID generic.AccountID, from, to generic.TimePoint) ([]generic.Transaction, error) {
	return loadRange(ctx, ts.tx, entityID, accountID, from, to)
}

func (ts *txStore) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	return keyExists(ctx, ts.tx, idempotencyKey)
}

// lockCollector serializes balance-dependent writes of one collector
// until the transaction ends.
func (ts *txStore) lockCollector(ctx context.Context, collecteurID string) error {
	if _, err := ts.tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", collecteurID); err != nil {
		return fmt.Errorf("failed to lock collector %s: %w", collecteurID, err)
	}
	return nil
}

// balance sums an account in the database.
func (ts *txStore) balance(ctx context.Context, collecteurID string, account generic.AccountID) (generic.Amount, error) {
	var sum decimal.Decimal
	if err := ts.tx.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(delta_value), 0) FROM transactions WHERE entity_id = $1 AND account_id = $2",
		collecteurID, account,
	).Scan(&sum); err != nil {
		return generic.Amount{}, fmt.Errorf("failed to sum %s/%s: %w", collecteurID, account, err)
	}
	return generic.NewAmount(sum, ts.parent.currency), nil
}

func (ts *txStore) audit(ctx context.Context, entry generic.AuditEntry) error {
	return ts.parent.appendAudit(ctx, ts.tx, entry)
}

// Helper functions

func (s *Store) currencyOf(a generic.Amount) generic.Currency {
	if a.Currency == "" {
		return s.currency
	}
	return a.Currency
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// isUniqueViolation matches SQLSTATE 23505.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
