//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/focep/collecte-engine/commission"
	"github.com/focep/collecte-engine/generic"
	"github.com/focep/collecte-engine/guard"
	"github.com/focep/collecte-engine/versement"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("collecte"),
		tcpostgres.WithUsername("collecte"),
		tcpostgres.WithPassword("collecte"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := New(ctx, db)
	require.NoError(t, err)
	return s
}

func TestPostgres_ClosingIsExclusive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	day := generic.NewTimePoint(2025, time.March, 3)

	require.NoError(t, s.RecordMouvement(ctx, versement.Mouvement{
		ID: "m1", CollecteurID: "col-1", ClientID: "cli-1",
		Kind: versement.MouvementEpargne, Montant: generic.MustAmount("25000"), Date: day,
	}))

	snap, err := s.GetAccountSnapshot(ctx, "col-1")
	require.NoError(t, err)
	r := versement.NewReconciler(versement.DefaultConfig())

	// GIVEN: eight cashiers closing the same day at once
	const workers = 8
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   int
		closed int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tx, err := r.Reconcile(snap.Service, generic.MustAmount("24000"))
			if !assert.NoError(t, err) {
				return
			}
			tx.ID = fmt.Sprintf("vers-%d", i)
			tx.CollecteurID = "col-1"
			tx.Date = day
			tx.CreatedAt = time.Now()

			err = s.CommitVersement(ctx, tx, r.Adjustments(tx))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, versement.ErrAlreadyClosed):
				closed++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	// THEN: exactly one closing is written and the shortfall is counted once
	assert.Equal(t, 1, wins)
	assert.Equal(t, workers-1, closed)

	snap, err = s.GetAccountSnapshot(ctx, "col-1")
	require.NoError(t, err)
	assert.True(t, snap.Service.IsZero())
	assert.True(t, snap.Manquant.Equal(generic.MustAmount("1000")))
}

func TestPostgres_ParametersAndEntities(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.SaveParameter(ctx, commission.Parameter{
		Scope: commission.CollectorScope("col-1"), Type: commission.TypeFixed, Value: generic.MustParseDecimal("5000"),
	})
	require.NoError(t, err)
	p, err := s.SaveParameter(ctx, commission.Parameter{
		Scope: commission.CollectorScope("col-1"), Type: commission.TypeFixed, Value: generic.MustParseDecimal("6000"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, p.Version)

	active, err := s.GetActiveParameter(ctx, commission.CollectorScope("col-1"))
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.True(t, active.Value.Equal(generic.MustParseDecimal("6000")))

	_, err = s.SaveEntity(ctx, guard.Entity{Type: guard.EntityClient, ID: "cli-1", CollecteurID: "col-1", Active: true,
		Fields: map[string]any{"nom": "Mballa"}})
	require.NoError(t, err)
	require.NoError(t, s.UpdateEntity(ctx, guard.EntityClient, "cli-1", map[string]any{"telephone": "699123456"}))

	e, err := s.GetEntity(ctx, guard.EntityClient, "cli-1")
	require.NoError(t, err)
	assert.Equal(t, "Mballa", e.Fields["nom"])
	assert.Equal(t, "699123456", e.Fields["telephone"])

	col, err := s.CollecteurOf(ctx, "cli-1")
	require.NoError(t, err)
	assert.Equal(t, "col-1", col)

	id := generic.EntityID("cli-1")
	entries, err := s.QueryAudit(ctx, generic.AuditFilter{EntityID: &id, Actions: []generic.AuditAction{generic.AuditEntityUpdated}})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
