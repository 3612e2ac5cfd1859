/*
ledger.go - Append-only transaction log

PURPOSE:
  The Ledger is the immutable source of truth for all balance changes.
  Every collection, versement, shortfall, repayment and commission accrual
  is recorded here. Balance is always computed by replaying transactions -
  there's no separate "solde" column that can get out of sync.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete. EVER.
  2. IMMUTABLE: Once written, transactions cannot be modified
  3. AUDITABLE: Every balance change is traceable with full context
  4. IDEMPOTENT: Same idempotency key = same transaction (no duplicates)

CORRECTIONS:
  If a mistake is made, you don't edit the transaction. Instead:
  1. Create a Reversal transaction (opposite sign)
  2. Both original and reversal remain in the ledger
  3. Net effect is correction, but history is preserved

EXAMPLE FLOW (SERVICE account of one collector):
  1. Collects 100 000 from clients:  TxCollection -100000
  2. Remits 100 000 at end of day:   TxRemittance +100000

  SERVICE ledger: [-100000, +100000] = 0

SEE ALSO:
  - store.go: Low-level persistence interface
  - versement/: Account kinds and reconciliation adjustments
*/
package generic

import "context"

// =============================================================================
// LEDGER - Append-only transaction log
// =============================================================================

// Ledger is the source of truth for all balance changes.
type Ledger interface {
	// Append adds a transaction. Fails if idempotency key exists.
	Append(ctx context.Context, tx Transaction) error

	// AppendBatch adds multiple transactions atomically.
	AppendBatch(ctx context.Context, txs []Transaction) error

	// Transactions returns all transactions for entity+account, chronologically.
	Transactions(ctx context.Context, entityID EntityID, accountID AccountID) ([]Transaction, error)

	// TransactionsInRange returns transactions in [from, to].
	TransactionsInRange(ctx context.Context, entityID EntityID, accountID AccountID, from, to TimePoint) ([]Transaction, error)

	// BalanceOf sums every delta of the account.
	BalanceOf(ctx context.Context, entityID EntityID, accountID AccountID, currency Currency) (Amount, error)
}

// =============================================================================
// DEFAULT LEDGER - Implementation using Store
// =============================================================================

type DefaultLedger struct {
	Store Store
}

func NewLedger(store Store) *DefaultLedger {
	return &DefaultLedger{Store: store}
}

func (l *DefaultLedger) Append(ctx context.Context, tx Transaction) error {
	if tx.IdempotencyKey != "" {
		exists, err := l.Store.Exists(ctx, tx.IdempotencyKey)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateIdempotencyKey
		}
	}
	return l.Store.Append(ctx, tx)
}

func (l *DefaultLedger) AppendBatch(ctx context.Context, txs []Transaction) error {
	for _, tx := range txs {
		if tx.IdempotencyKey != "" {
			exists, err := l.Store.Exists(ctx, tx.IdempotencyKey)
			if err != nil {
				return err
			}
			if exists {
				return ErrDuplicateIdempotencyKey
			}
		}
	}
	return l.Store.AppendBatch(ctx, txs)
}

func (l *DefaultLedger) Transactions(ctx context.Context, entityID EntityID, accountID AccountID) ([]Transaction, error) {
	return l.Store.Load(ctx, entityID, accountID)
}

func (l *DefaultLedger) TransactionsInRange(ctx context.Context, entityID EntityID, accountID AccountID, from, to TimePoint) ([]Transaction, error) {
	return l.Store.LoadRange(ctx, entityID, accountID, from, to)
}

func (l *DefaultLedger) BalanceOf(ctx context.Context, entityID EntityID, accountID AccountID, currency Currency) (Amount, error) {
	txs, err := l.Store.Load(ctx, entityID, accountID)
	if err != nil {
		return Amount{}, err
	}
	return Sum(txs, currency), nil
}

// Sum adds up the deltas of txs.
func Sum(txs []Transaction, currency Currency) Amount {
	total := NewAmountFromInt(0, currency)
	for _, tx := range txs {
		total = total.Add(tx.Delta)
	}
	return total
}
