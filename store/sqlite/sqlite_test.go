package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focep/collecte-engine/commission"
	"github.com/focep/collecte-engine/generic"
	"github.com/focep/collecte-engine/guard"
	"github.com/focep/collecte-engine/versement"
)

var day = generic.NewTimePoint(2025, time.March, 3)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	s.now = func() time.Time { return time.Date(2025, time.March, 3, 18, 0, 0, 0, time.UTC) }
	return s
}

func xaf(v string) generic.Amount { return generic.MustAmount(v) }

func collect(t *testing.T, s *Store, id, clientID, montant string) {
	t.Helper()
	require.NoError(t, s.RecordMouvement(context.Background(), versement.Mouvement{
		ID: id, CollecteurID: "col-1", ClientID: clientID,
		Kind: versement.MouvementEpargne, Montant: xaf(montant), Date: day,
	}))
}

func reconcile(t *testing.T, s *Store, verse string) (versement.Transaction, []versement.LedgerAdjustment) {
	t.Helper()
	snap, err := s.GetAccountSnapshot(context.Background(), "col-1")
	require.NoError(t, err)
	r := versement.NewReconciler(versement.DefaultConfig())
	tx, err := r.Reconcile(snap.Service, xaf(verse))
	require.NoError(t, err)
	tx.ID = "vers-" + verse
	tx.CollecteurID = "col-1"
	tx.Date = day
	tx.CreatedBy = "caissier-1"
	tx.CreatedAt = s.now()
	return tx, r.Adjustments(tx)
}

// =============================================================================
// LEDGER
// =============================================================================

func TestAppend_DuplicateIdempotencyKey(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	tx := generic.Transaction{
		ID: "t1", EntityID: "col-1", AccountID: versement.AccountService.AccountID(),
		EffectiveAt: day, Delta: xaf("-1000"), Type: generic.TxCollection, IdempotencyKey: "k1",
	}
	require.NoError(t, s.Append(ctx, tx))

	tx.ID = "t2"
	assert.ErrorIs(t, s.Append(ctx, tx), generic.ErrDuplicateIdempotencyKey)

	exists, err := s.Exists(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, exists)

	loaded, err := s.Load(ctx, "col-1", versement.AccountService.AccountID())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.True(t, loaded[0].Delta.Equal(xaf("-1000")))
}

// =============================================================================
// VERSEMENTS
// =============================================================================

func TestCommitVersement_ClosesTheDayOnce(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	collect(t, s, "m1", "cli-1", "30000")
	collect(t, s, "m2", "cli-2", "20000")

	// GIVEN: 50000 collected and 48000 handed over
	tx, adj := reconcile(t, s, "48000")
	require.Equal(t, versement.CaseManquant, tx.Case)

	// WHEN: closing the day
	require.NoError(t, s.CommitVersement(ctx, tx, adj))

	// THEN: SERVICE is back to zero and the shortfall is owed
	snap, err := s.GetAccountSnapshot(ctx, "col-1")
	require.NoError(t, err)
	assert.True(t, snap.Service.IsZero())
	assert.True(t, snap.Manquant.Equal(xaf("2000")), "manquant is %s", snap.Manquant)

	// AND: a second closing of the same day is refused
	err = s.CommitVersement(ctx, tx, adj)
	var closed *versement.AlreadyClosedError
	require.ErrorAs(t, err, &closed)
	assert.Equal(t, tx.ID, closed.ExistingID)

	list, err := s.ListVersements(ctx, "col-1", day.AddDays(-1), day)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, versement.CaseManquant, list[0].Case)
	assert.True(t, list[0].MontantDu.Equal(xaf("50000")))
	assert.True(t, list[0].Percentage.Equal(decimal.NewFromInt(4)))
	assert.Equal(t, "caissier-1", list[0].CreatedBy)

	entries, err := s.QueryAudit(ctx, generic.AuditFilter{Actions: []generic.AuditAction{generic.AuditVersementCommitted}})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "MANQUANT", entries[0].Payload["case"])
}

func TestCommitVersement_FailingEntryRollsBackClosing(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	collect(t, s, "m1", "cli-1", "50000")
	tx, adj := reconcile(t, s, "48000")
	before, err := s.GetAccountSnapshot(ctx, "col-1")
	require.NoError(t, err)

	// GIVEN: the MANQUANT entry of the closing is already booked elsewhere
	require.NoError(t, s.Append(ctx, generic.Transaction{
		ID: "stray", EntityID: "col-2", AccountID: versement.AccountManquant.AccountID(),
		EffectiveAt: day, Delta: xaf("1"), Type: generic.TxShortfall,
		IdempotencyKey: fmt.Sprintf("versement:%s:%s", versement.ClosingKey("col-1", day), versement.AccountManquant),
	}))

	// WHEN: closing the day
	err = s.CommitVersement(ctx, tx, adj)

	// THEN: the ledger error surfaces as is and nothing of the closing remains
	require.ErrorIs(t, err, generic.ErrDuplicateIdempotencyKey)
	list, err := s.ListVersements(ctx, "col-1", day, day)
	require.NoError(t, err)
	assert.Empty(t, list)

	after, err := s.GetAccountSnapshot(ctx, "col-1")
	require.NoError(t, err)
	assert.True(t, after.Service.Equal(before.Service))
	assert.True(t, after.Manquant.Equal(before.Manquant))

	entries, err := s.QueryAudit(ctx, generic.AuditFilter{Actions: []generic.AuditAction{generic.AuditVersementCommitted}})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCommitVersement_StaleSnapshot(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	collect(t, s, "m1", "cli-1", "10000")

	tx, adj := reconcile(t, s, "10000")
	collect(t, s, "m2", "cli-1", "5000")

	err := s.CommitVersement(ctx, tx, adj)
	assert.ErrorIs(t, err, generic.ErrConcurrentModification)

	list, err := s.ListVersements(ctx, "col-1", day, day)
	require.NoError(t, err)
	assert.Empty(t, list, "nothing is written")
}

func TestRecordRepayment(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	collect(t, s, "m1", "cli-1", "10000")
	tx, adj := reconcile(t, s, "7000")
	require.NoError(t, s.CommitVersement(ctx, tx, adj))

	r := versement.NewReconciler(versement.DefaultConfig())
	rep, repAdj, err := r.Repay("col-1", xaf("3000"), xaf("2000"), "")
	require.NoError(t, err)
	rep.ID, rep.Date, rep.CreatedAt = "rep-1", day, s.now()

	require.NoError(t, s.RecordRepayment(ctx, rep, repAdj))

	snap, err := s.GetAccountSnapshot(ctx, "col-1")
	require.NoError(t, err)
	assert.True(t, snap.Manquant.Equal(xaf("1000")))

	rep.ID = "rep-2"
	err = s.RecordRepayment(ctx, rep, repAdj)
	assert.ErrorIs(t, err, versement.ErrRepaymentExceedsDebt)
}

func TestRecordMouvement_InactiveClientRefused(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.SaveEntity(ctx, guard.Entity{Type: guard.EntityClient, ID: "cli-1", CollecteurID: "col-1", Active: true})
	require.NoError(t, err)
	require.NoError(t, s.ToggleEntityStatus(ctx, guard.EntityClient, "cli-1", false, "départ"))

	err = s.RecordMouvement(ctx, versement.Mouvement{
		ID: "m1", CollecteurID: "col-1", ClientID: "cli-1",
		Kind: versement.MouvementEpargne, Montant: xaf("1000"), Date: day,
	})
	assert.ErrorIs(t, err, versement.ErrInvalidMouvement)
}

func TestAccrueRemuneration_Once(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	a := versement.Accrual{CollecteurID: "col-1", Period: generic.MonthPeriod(2025, time.February), Montant: xaf("8050")}

	require.NoError(t, s.AccrueRemuneration(ctx, a))
	assert.ErrorIs(t, s.AccrueRemuneration(ctx, a), generic.ErrDuplicateIdempotencyKey)

	snap, err := s.GetAccountSnapshot(ctx, "col-1")
	require.NoError(t, err)
	assert.True(t, snap.Remuneration.Equal(xaf("8050")))
}

// =============================================================================
// PARAMETERS
// =============================================================================

func TestSaveParameter_SupersedesActiveOfSameScope(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	none, err := s.GetActiveParameter(ctx, commission.AgencyScope())
	require.NoError(t, err)
	assert.Nil(t, none)

	first := commission.Parameter{
		ID: "p1", Scope: commission.AgencyScope(), Type: commission.TypePercentage,
		Value: decimal.RequireFromString("0.05"), Active: true,
	}
	saved, err := s.SaveParameter(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Version)

	upper := decimal.NewFromInt(100000)
	second := commission.Parameter{
		ID: "p2", Scope: commission.AgencyScope(), Type: commission.TypeTier, Active: true,
		Tiers: []commission.Tier{
			{Min: decimal.Zero, Max: &upper, Rate: decimal.RequireFromString("0.05")},
			{Min: upper, Rate: decimal.RequireFromString("0.03")},
		},
	}
	saved, err = s.SaveParameter(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Version)

	active, err := s.GetActiveParameter(ctx, commission.AgencyScope())
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "p2", active.ID)
	require.Len(t, active.Tiers, 2)
	assert.True(t, active.Tiers[0].Max.Equal(upper))
	assert.Nil(t, active.Tiers[1].Max)

	all, err := s.ListParameters(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	activeOnly, err := s.ListParameters(ctx, false)
	require.NoError(t, err)
	assert.Len(t, activeOnly, 1)

	require.NoError(t, s.DeactivateParameter(ctx, "p2"))
	assert.ErrorIs(t, s.DeactivateParameter(ctx, "p2"), generic.ErrEntityNotFound)

	none, err = s.GetActiveParameter(ctx, commission.AgencyScope())
	require.NoError(t, err)
	assert.Nil(t, none)
}

// =============================================================================
// ENTITIES
// =============================================================================

func TestEntities(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	hired := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)
	_, err := s.SaveEntity(ctx, guard.Entity{Type: guard.EntityCollecteur, ID: "col-1", Active: true, HireDate: &hired,
		Fields: map[string]any{"nom": "Ndzi", "telephone": "677000000"}})
	require.NoError(t, err)
	_, err = s.SaveEntity(ctx, guard.Entity{Type: guard.EntityClient, ID: "cli-1", CollecteurID: "col-1", Active: true,
		Fields: map[string]any{"nom": "Mballa"}})
	require.NoError(t, err)

	_, err = s.SaveEntity(ctx, guard.Entity{Type: guard.EntityClient, ID: "cli-1", CollecteurID: "col-1"})
	assert.ErrorIs(t, err, guard.ErrEntityExists)

	t.Run("directory", func(t *testing.T) {
		col, err := s.CollecteurOf(ctx, "cli-1")
		require.NoError(t, err)
		assert.Equal(t, "col-1", col)

		_, err = s.CollecteurOf(ctx, "ghost")
		assert.ErrorIs(t, err, generic.ErrEntityNotFound)
	})

	t.Run("update merges fields", func(t *testing.T) {
		require.NoError(t, s.UpdateEntity(ctx, guard.EntityCollecteur, "col-1", map[string]any{"telephone": "699999999"}))

		e, err := s.GetEntity(ctx, guard.EntityCollecteur, "col-1")
		require.NoError(t, err)
		require.NotNil(t, e)
		assert.Equal(t, "Ndzi", e.Fields["nom"])
		assert.Equal(t, "699999999", e.Fields["telephone"])
		require.NotNil(t, e.HireDate)
		assert.True(t, hired.Equal(*e.HireDate))

		err = s.UpdateEntity(ctx, guard.EntityCollecteur, "ghost", map[string]any{"telephone": "1"})
		assert.ErrorIs(t, err, generic.ErrEntityNotFound)
	})

	t.Run("toggle status", func(t *testing.T) {
		require.NoError(t, s.ToggleEntityStatus(ctx, guard.EntityClient, "cli-1", false, "déménagement"))
		e, err := s.GetEntity(ctx, guard.EntityClient, "cli-1")
		require.NoError(t, err)
		assert.False(t, e.Active)
		assert.Equal(t, "déménagement", e.StatusReason)

		assert.ErrorIs(t, s.ToggleEntityStatus(ctx, guard.EntityClient, "ghost", true, ""), generic.ErrEntityNotFound)
	})

	t.Run("list by collector", func(t *testing.T) {
		clients, err := s.ListEntities(ctx, guard.EntityClient, "col-1")
		require.NoError(t, err)
		assert.Len(t, clients, 1)

		missing, err := s.GetEntity(ctx, guard.EntityClient, "ghost")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("audit trail", func(t *testing.T) {
		id := generic.EntityID("cli-1")
		entries, err := s.QueryAudit(ctx, generic.AuditFilter{EntityID: &id})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, generic.AuditStatusToggled, entries[0].Action)
	})
}
