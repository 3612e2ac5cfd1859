// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/focep/collecte-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	transactions map[key][]generic.Transaction
	idempotency  map[string]bool
	audit        []generic.AuditEntry
}

type key struct {
	EntityID  generic.EntityID
	AccountID generic.AccountID
}

var (
	_ generic.Store    = (*Memory)(nil)
	_ generic.AuditLog = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{
		transactions: make(map[key][]generic.Transaction),
		idempotency:  make(map[string]bool),
	}
}

// Append adds a single transaction. Append-only.
func (m *Memory) Append(_ context.Context, tx generic.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tx.IdempotencyKey != "" && m.idempotency[tx.IdempotencyKey] {
		return generic.ErrDuplicateIdempotencyKey
	}
	m.appendLocked(tx)
	return nil
}

// AppendBatch adds multiple transactions atomically.
func (m *Memory) AppendBatch(_ context.Context, txs []generic.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendBatchLocked(txs)
}

func (m *Memory) appendBatchLocked(txs []generic.Transaction) error {
	seen := make(map[string]bool, len(txs))
	for _, tx := range txs {
		if tx.IdempotencyKey == "" {
			continue
		}
		if m.idempotency[tx.IdempotencyKey] || seen[tx.IdempotencyKey] {
			return generic.ErrDuplicateIdempotencyKey
		}
		seen[tx.IdempotencyKey] = true
	}

	for _, tx := range txs {
		m.appendLocked(tx)
	}
	return nil
}

func (m *Memory) appendLocked(tx generic.Transaction) {
	k := key{EntityID: tx.EntityID, AccountID: tx.AccountID}
	txs := m.transactions[k]

	// Binary search keeps the slice ordered by EffectiveAt.
	i := sort.Search(len(txs), func(i int) bool {
		return txs[i].EffectiveAt.After(tx.EffectiveAt)
	})

	txs = append(txs, generic.Transaction{})
	copy(txs[i+1:], txs[i:])
	txs[i] = tx
	m.transactions[k] = txs

	if tx.IdempotencyKey != "" {
		m.idempotency[tx.IdempotencyKey] = true
	}
}

func (m *Memory) Load(_ context.Context, entityID generic.EntityID, accountID generic.AccountID) ([]generic.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadLocked(entityID, accountID), nil
}

func (m *Memory) loadLocked(entityID generic.EntityID, accountID generic.AccountID) []generic.Transaction {
	k := key{EntityID: entityID, AccountID: accountID}
	result := make([]generic.Transaction, len(m.transactions[k]))
	copy(result, m.transactions[k])
	return result
}

func (m *Memory) LoadRange(_ context.Context, entityID generic.EntityID, accountID generic.AccountID, from, to generic.TimePoint) ([]generic.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadRangeLocked(entityID, accountID, from, to), nil
}

func (m *Memory) loadRangeLocked(entityID generic.EntityID, accountID generic.AccountID, from, to generic.TimePoint) []generic.Transaction {
	k := key{EntityID: entityID, AccountID: accountID}
	var result []generic.Transaction
	for _, tx := range m.transactions[k] {
		if from.BeforeOrEqual(tx.EffectiveAt) && tx.EffectiveAt.BeforeOrEqual(to) {
			result = append(result, tx)
		}
	}
	return result
}

func (m *Memory) Exists(_ context.Context, idempotencyKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idempotency[idempotencyKey], nil
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (m *Memory) AppendAudit(_ context.Context, entry generic.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, entry)
	return nil
}

func (m *Memory) QueryAudit(_ context.Context, filter generic.AuditFilter) ([]generic.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []generic.AuditEntry
	for _, e := range m.audit {
		if filter.EntityID != nil && e.EntityID != *filter.EntityID {
			continue
		}
		if filter.ActorID != nil && e.ActorID != *filter.ActorID {
			continue
		}
		if len(filter.Actions) > 0 && !containsAction(filter.Actions, e.Action) {
			continue
		}
		if filter.From != nil && e.Timestamp.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.Timestamp.After(*filter.To) {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

func containsAction(actions []generic.AuditAction, a generic.AuditAction) bool {
	for _, x := range actions {
		if x == a {
			return true
		}
	}
	return false
}
