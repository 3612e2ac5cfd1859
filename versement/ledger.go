package versement

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/focep/collecte-engine/generic"
)

// =============================================================================
// LEDGER MAPPING
// =============================================================================
// Every account movement lands on the generic ledger keyed by
// (collector id, account kind). Idempotency keys make replays harmless.

// ClosingKey identifies the one versement allowed per collector and day.
func ClosingKey(collecteurID string, date generic.TimePoint) string {
	return collecteurID + "/" + date.String()
}

// ClosingEntries turns a reconciliation and its adjustments into ledger
// transactions.
func ClosingEntries(tx Transaction, adjustments []LedgerAdjustment) []generic.Transaction {
	entries := make([]generic.Transaction, 0, len(adjustments))
	for _, a := range adjustments {
		entries = append(entries, generic.Transaction{
			ID:             generic.TransactionID(uuid.NewString()),
			EntityID:       generic.EntityID(tx.CollecteurID),
			AccountID:      a.Account.AccountID(),
			EffectiveAt:    tx.Date,
			Delta:          a.Delta,
			Type:           a.Type,
			ReferenceID:    tx.ID,
			Reason:         a.Reason,
			IdempotencyKey: fmt.Sprintf("versement:%s:%s", ClosingKey(tx.CollecteurID, tx.Date), a.Account),
			Metadata: map[string]string{
				"case":     string(tx.Case),
				"severity": string(tx.Severity),
			},
			CreatedBy:     tx.CreatedBy,
			CreatedByType: "collecteur",
			CreatedAt:     generic.TimePoint{Time: tx.CreatedAt},
		})
	}
	return entries
}

// RepaymentEntry is the MANQUANT movement of a repayment.
func RepaymentEntry(rep Repayment, adj LedgerAdjustment) generic.Transaction {
	return generic.Transaction{
		ID:             generic.TransactionID(uuid.NewString()),
		EntityID:       generic.EntityID(rep.CollecteurID),
		AccountID:      adj.Account.AccountID(),
		EffectiveAt:    rep.Date,
		Delta:          adj.Delta,
		Type:           adj.Type,
		ReferenceID:    rep.ID,
		Reason:         adj.Reason,
		IdempotencyKey: "repayment:" + rep.ID,
		CreatedBy:      rep.CreatedBy,
		CreatedByType:  "admin",
		CreatedAt:      generic.TimePoint{Time: rep.CreatedAt},
	}
}

// MouvementEntries records a client movement on both sides: the client's
// savings account and the collector's SERVICE liability.
func MouvementEntries(m Mouvement) ([]generic.Transaction, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	clientDelta := m.Montant
	if m.Kind == MouvementRetrait {
		clientDelta = m.Montant.Neg()
	}

	reason := "mouvement " + string(m.Kind)
	return []generic.Transaction{
		{
			ID:             generic.TransactionID(uuid.NewString()),
			EntityID:       generic.EntityID(m.ClientID),
			AccountID:      AccountClient.AccountID(),
			EffectiveAt:    m.Date,
			Delta:          clientDelta,
			Type:           generic.TxCollection,
			ReferenceID:    m.ID,
			Reason:         reason,
			IdempotencyKey: "mouvement:" + m.ID + ":client",
			Metadata:       map[string]string{"collecteur_id": m.CollecteurID},
		},
		{
			ID:             generic.TransactionID(uuid.NewString()),
			EntityID:       generic.EntityID(m.CollecteurID),
			AccountID:      AccountService.AccountID(),
			EffectiveAt:    m.Date,
			Delta:          clientDelta.Neg(),
			Type:           generic.TxCollection,
			ReferenceID:    m.ID,
			Reason:         reason,
			IdempotencyKey: "mouvement:" + m.ID + ":service",
			Metadata:       map[string]string{"client_id": m.ClientID},
		},
	}, nil
}

// AccrualEntry credits REMUNERATION once per collector and period.
func AccrualEntry(a Accrual) generic.Transaction {
	return generic.Transaction{
		ID:             generic.TransactionID(uuid.NewString()),
		EntityID:       generic.EntityID(a.CollecteurID),
		AccountID:      AccountRemuneration.AccountID(),
		EffectiveAt:    a.Period.End,
		Delta:          a.Montant,
		Type:           generic.TxCommission,
		Reason:         "commission " + a.Period.String(),
		IdempotencyKey: "commission:" + a.CollecteurID + ":" + a.Period.Key(),
		CreatedByType:  "system",
	}
}

// CollectedIn sums the deposits in txs, which are entries of a collector's
// SERVICE account. Withdrawals and closings do not count.
func CollectedIn(txs []generic.Transaction, currency generic.Currency) generic.Amount {
	total := generic.NewAmountFromInt(0, currency)
	for _, tx := range txs {
		if tx.Type == generic.TxCollection && tx.Delta.IsNegative() {
			total = total.Add(tx.Delta.Neg())
		}
	}
	return total
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// SnapshotFrom replays the collector's accounts from a ledger.
func SnapshotFrom(ctx context.Context, ledger generic.Ledger, collecteurID string, currency generic.Currency) (AccountSnapshot, error) {
	balances := make(map[AccountKind]generic.Amount, len(CollectorAccounts))
	for _, kind := range CollectorAccounts {
		b, err := ledger.BalanceOf(ctx, generic.EntityID(collecteurID), kind.AccountID(), currency)
		if err != nil {
			return AccountSnapshot{}, fmt.Errorf("balance of %s/%s: %w", collecteurID, kind, err)
		}
		balances[kind] = b
	}
	return AccountSnapshot{
		CollecteurID: collecteurID,
		Service:      balances[AccountService],
		Manquant:     balances[AccountManquant],
		Attente:      balances[AccountAttente],
		Remuneration: balances[AccountRemuneration],
	}, nil
}
