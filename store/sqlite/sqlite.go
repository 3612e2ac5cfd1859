/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements every persistence interface the engine consumes using SQLite.
  The PostgreSQL store in store/postgres follows the same schema with
  dialect changes only.

INTERFACES IMPLEMENTED:
  generic.Store:             Ledger transaction persistence
  generic.AuditLog:          Who did what when
  commission.ParameterSource: Active parameter per scope
  commission.Directory:      Client -> collector lookup
  service.Backend:           Snapshot, versement commit, entity updates
  service.LedgerBackend:     Repayments, movements, accruals, history
  service.ParameterAdmin:    Parameter save / list / deactivate

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE on transactions, versements or repayments
  - Corrections via reversal transactions only
  - Parameters and entities are deactivated, never deleted

KEY TABLES:
  transactions:          Immutable ledger of every account movement
  versements:            One closed day per (collecteur_id, date)
  repayments:            Manquant repayments
  commission_parameters: Versioned parameters, one active per scope
  entities:              Clients and collectors with an active flag
  audit_log:             Audit trail

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. Every multi-row write runs through
  withTx: one SQL transaction under the write lock, with a ledger view
  (txStore) that reads its own writes. Closing a day re-reads the SERVICE
  balance through that view and fails with
  generic.ErrConcurrentModification when it moved since the snapshot.

USAGE:
  store, err := sqlite.New("./data/collecte.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - generic/store.go: Ledger interface definitions
  - service/service.go: Backend interfaces
  - generic/store/memory.go: In-memory ledger for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"

	"github.com/focep/collecte-engine/generic"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db       *sql.DB
	mu       sync.RWMutex
	currency generic.Currency
	now      func() time.Time
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to ":memory:" is a distinct database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, currency: generic.DefaultCurrency, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Transactions (append-only ledger)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		entity_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		effective_at TEXT NOT NULL,
		delta_value TEXT NOT NULL,
		currency TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		reference_id TEXT,
		reason TEXT,
		idempotency_key TEXT UNIQUE,
		metadata_json TEXT,
		created_by TEXT,
		created_by_type TEXT,
		created_at TEXT NOT NULL
	);

	-- Balance replay (hot path)
	CREATE INDEX IF NOT EXISTS idx_transactions_entity_account_date
		ON transactions(entity_id, account_id, effective_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_reference
		ON transactions(reference_id) WHERE reference_id IS NOT NULL;

	-- Versements: one closing per collector and day
	CREATE TABLE IF NOT EXISTS versements (
		id TEXT PRIMARY KEY,
		collecteur_id TEXT NOT NULL,
		date TEXT NOT NULL,
		service_balance TEXT NOT NULL,
		montant_du TEXT NOT NULL,
		montant_verse TEXT NOT NULL,
		difference TEXT NOT NULL,
		currency TEXT NOT NULL,
		case_name TEXT NOT NULL,
		severity TEXT NOT NULL,
		percentage TEXT NOT NULL,
		message TEXT NOT NULL,
		comment TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL,
		UNIQUE(collecteur_id, date)
	);

	-- Manquant repayments
	CREATE TABLE IF NOT EXISTS repayments (
		id TEXT PRIMARY KEY,
		collecteur_id TEXT NOT NULL,
		date TEXT NOT NULL,
		montant TEXT NOT NULL,
		outstanding TEXT NOT NULL,
		currency TEXT NOT NULL,
		comment TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_repayments_collecteur
		ON repayments(collecteur_id, date);

	-- Commission parameters (versioned, never deleted)
	CREATE TABLE IF NOT EXISTS commission_parameters (
		id TEXT PRIMARY KEY,
		scope_type TEXT NOT NULL,
		scope_id TEXT NOT NULL DEFAULT '',
		param_type TEXT NOT NULL,
		value TEXT NOT NULL,
		tiers_json TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		deactivated_at TEXT
	);

	-- CRITICAL: at most one active parameter per scope
	CREATE UNIQUE INDEX IF NOT EXISTS idx_parameters_active_scope
		ON commission_parameters(scope_type, scope_id) WHERE active = 1;

	-- Clients and collectors
	CREATE TABLE IF NOT EXISTS entities (
		entity_type TEXT NOT NULL,
		id TEXT NOT NULL,
		collecteur_id TEXT,
		fields_json TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		status_reason TEXT,
		hire_date TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (entity_type, id)
	);

	CREATE INDEX IF NOT EXISTS idx_entities_collecteur
		ON entities(collecteur_id) WHERE collecteur_id IS NOT NULL;

	-- Audit trail
	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		actor_id TEXT,
		action TEXT NOT NULL,
		entity_id TEXT,
		payload_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_entity
		ON audit_log(entity_id, timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTION STORE (generic.Store interface)
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Append adds a transaction to the ledger.
func (s *Store) Append(ctx context.Context, tx generic.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendTx(ctx, s.db, tx)
}

func (s *Store) appendTx(ctx context.Context, db execer, tx generic.Transaction) error {
	metadataJSON, err := json.Marshal(tx.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	createdAt := tx.CreatedAt.Time
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	query := `
		INSERT INTO transactions
		(id, entity_id, account_id, effective_at, delta_value, currency, tx_type,
		 reference_id, reason, idempotency_key, metadata_json, created_by, created_by_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = db.ExecContext(ctx, query,
		tx.ID,
		tx.EntityID,
		tx.AccountID,
		formatTime(tx.EffectiveAt.Time),
		tx.Delta.Value.String(),
		s.currencyOf(tx.Delta),
		tx.Type,
		nullString(tx.ReferenceID),
		nullString(tx.Reason),
		nullString(tx.IdempotencyKey),
		string(metadataJSON),
		nullString(tx.CreatedBy),
		nullString(tx.CreatedByType),
		formatTime(createdAt),
	)

	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}

	return nil
}

// AppendBatch adds multiple transactions atomically.
func (s *Store) AppendBatch(ctx context.Context, txs []generic.Transaction) error {
	return s.withTx(ctx, func(ts *txStore) error {
		return ts.AppendBatch(ctx, txs)
	})
}

func checkBatchKeys(txs []generic.Transaction) error {
	idempotencyKeys := make(map[string]bool)
	for _, tx := range txs {
		if tx.IdempotencyKey != "" {
			if idempotencyKeys[tx.IdempotencyKey] {
				return generic.ErrDuplicateIdempotencyKey
			}
			idempotencyKeys[tx.IdempotencyKey] = true
		}
	}
	return nil
}

const selectTransactions = `
	SELECT id, entity_id, account_id, effective_at, delta_value, currency, tx_type,
	       reference_id, reason, idempotency_key, metadata_json, created_by, created_by_type, created_at
	FROM transactions
`

// Load returns all transactions for an entity+account.
func (s *Store) Load(ctx context.Context, entityID generic.EntityID, accountID generic.AccountID) ([]generic.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return queryTransactions(ctx, s.db, selectTransactions+`
		WHERE entity_id = ? AND account_id = ?
		ORDER BY effective_at ASC, created_at ASC
	`, entityID, accountID)
}

// LoadRange returns transactions in a time range.
func (s *Store) LoadRange(ctx context.Context, entityID generic.EntityID, accountID generic.AccountID, from, to generic.TimePoint) ([]generic.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return queryTransactions(ctx, s.db, selectTransactions+`
		WHERE entity_id = ? AND account_id = ?
		  AND effective_at >= ? AND effective_at <= ?
		ORDER BY effective_at ASC, created_at ASC
	`, entityID, accountID, formatTime(from.Time), formatTime(to.Time))
}

// Exists checks if an idempotency key exists.
func (s *Store) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return keyExists(ctx, s.db, idempotencyKey)
}

func keyExists(ctx context.Context, db querier, idempotencyKey string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE idempotency_key = ?",
		idempotencyKey,
	).Scan(&count)

	return count > 0, err
}

func queryTransactions(ctx context.Context, db querier, query string, args ...any) ([]generic.Transaction, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []generic.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}

func scanTransaction(rows *sql.Rows) (generic.Transaction, error) {
	var (
		tx             generic.Transaction
		effectiveAt    string
		deltaValue     string
		currency       string
		referenceID    sql.NullString
		reason         sql.NullString
		idempotencyKey sql.NullString
		metadataJSON   sql.NullString
		createdBy      sql.NullString
		createdByType  sql.NullString
		createdAt      string
	)

	err := rows.Scan(
		&tx.ID, &tx.EntityID, &tx.AccountID, &effectiveAt, &deltaValue, &currency, &tx.Type,
		&referenceID, &reason, &idempotencyKey, &metadataJSON, &createdBy, &createdByType, &createdAt,
	)
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}

	tx.EffectiveAt = generic.TimePoint{Time: parseTime(effectiveAt)}
	if tx.Delta, err = parseAmount(deltaValue, currency); err != nil {
		return tx, err
	}
	tx.ReferenceID = referenceID.String
	tx.Reason = reason.String
	tx.IdempotencyKey = idempotencyKey.String
	tx.CreatedBy = createdBy.String
	tx.CreatedByType = createdByType.String
	tx.CreatedAt = generic.TimePoint{Time: parseTime(createdAt), Granularity: generic.GranularityMinute}

	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &tx.Metadata); err != nil {
			return tx, fmt.Errorf("failed to decode metadata of %s: %w", tx.ID, err)
		}
	}

	return tx, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// withTx runs fn in one SQL transaction under the write lock. An error from
// fn rolls everything back.
func (s *Store) withTx(ctx context.Context, fn func(ts *txStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

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

// txStore reads through the open transaction so it sees its own writes.
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
	return queryTransactions(ctx, ts.tx, selectTransactions+`
		WHERE entity_id = ? AND account_id = ?
		ORDER BY effective_at ASC, created_at ASC
	`, entityID, accountID)
}

func (ts *txStore) LoadRange(ctx context.Context, entityID generic.EntityID, accountID generic.AccountID, from, to generic.TimePoint) ([]generic.Transaction, error) {
	return queryTransactions(ctx, ts.tx, selectTransactions+`
		WHERE entity_id = ? AND account_id = ?
		  AND effective_at >= ? AND effective_at <= ?
		ORDER BY effective_at ASC, created_at ASC
	`, entityID, accountID, formatTime(from.Time), formatTime(to.Time))
}

func (ts *txStore) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	return keyExists(ctx, ts.tx, idempotencyKey)
}

func (ts *txStore) audit(ctx context.Context, entry generic.AuditEntry) error {
	return ts.parent.appendAudit(ctx, ts.tx, entry)
}

// balance replays an account as the open transaction sees it.
func (ts *txStore) balance(ctx context.Context, collecteurID string, account generic.AccountID) (generic.Amount, error) {
	return generic.NewLedger(ts).BalanceOf(ctx, generic.EntityID(collecteurID), account, ts.parent.currency)
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

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseAmount(value, currency string) (generic.Amount, error) {
	a, err := generic.ParseAmount(value, generic.Currency(currency))
	if err != nil {
		return generic.Amount{}, fmt.Errorf("corrupt amount %q: %w", value, err)
	}
	return a, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
