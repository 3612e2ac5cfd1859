/*
store.go - Persistence interface for transactions and related data

PURPOSE:
  Defines the interface between the domain logic and the database.
  The Store handles persistence while maintaining append-only semantics.
  Different implementations can use SQLite, PostgreSQL, or in-memory storage.

KEY INTERFACES:
  Store:    Core transaction persistence (append, load, exists)
  AuditLog: Who did what when

APPEND-ONLY CONTRACT:
  - Append(): Single transaction write
  - AppendBatch(): Atomic multi-transaction write
  - NO Update() or Delete() methods exist

IDEMPOTENCY:
  Every write includes an idempotency key. If the key already exists,
  the write is rejected. This prevents duplicate versements from network
  retries or a collector tapping "valider" twice.

ATOMIC BATCHES:
  AppendBatch() ensures all-or-nothing semantics. Closing a day writes
  the SERVICE zeroing and the MANQUANT change together; either both are
  written or neither is.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Embedded SQLite
  - store/postgres/postgres.go: PostgreSQL
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - ledger.go: Higher-level interface using Store
*/
package generic

import "context"

// =============================================================================
// STORE - Interface for transaction persistence (append-only)
// =============================================================================

// Store handles persistence of transactions.
// IMPORTANT: Store is APPEND-ONLY. No Update, No Delete. Ever.
// Corrections are made via reversal transactions.
type Store interface {
	// Append persists a transaction. Returns error if idempotency key exists.
	Append(ctx context.Context, tx Transaction) error

	// AppendBatch persists multiple transactions atomically.
	// Either all succeed or none do.
	AppendBatch(ctx context.Context, txs []Transaction) error

	// Load returns all transactions for entity+account, ordered by EffectiveAt.
	Load(ctx context.Context, entityID EntityID, accountID AccountID) ([]Transaction, error)

	// LoadRange returns transactions in [from, to].
	LoadRange(ctx context.Context, entityID EntityID, accountID AccountID, from, to TimePoint) ([]Transaction, error)

	// Exists checks if idempotency key already exists.
	Exists(ctx context.Context, idempotencyKey string) (bool, error)
}

// =============================================================================
// AUDIT LOG - Separate from ledger, tracks who did what when
// =============================================================================

// AuditEntry records who did what when.
type AuditEntry struct {
	ID        string
	Timestamp TimePoint
	ActorID   string
	Action    AuditAction
	EntityID  EntityID
	Payload   map[string]any
}

type AuditAction string

const (
	AuditVersementCommitted AuditAction = "versement_committed"
	AuditRepayment          AuditAction = "manquant_repayment"
	AuditParameterChanged   AuditAction = "parameter_changed"
	AuditEntityUpdated      AuditAction = "entity_updated"
	AuditStatusToggled      AuditAction = "status_toggled"
	AuditCommissionAccrued  AuditAction = "commission_accrued"
)

// AuditLog stores audit entries. Also append-only.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	QueryAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

type AuditFilter struct {
	EntityID *EntityID
	ActorID  *string
	Actions  []AuditAction
	From     *TimePoint
	To       *TimePoint
}
