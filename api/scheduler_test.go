package api

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestPreviousMonth(t *testing.T) {
	p := previousMonth(time.Date(2025, time.January, 15, 9, 0, 0, 0, time.UTC))
	if p.Start.String() != "2024-12-01" || p.End.String() != "2024-12-31" {
		t.Errorf("Expected December 2024, got %s", p)
	}
}

func TestAccrualScheduler_RunOnce(t *testing.T) {
	ts := newTestServer(t)

	// GIVEN: 5 % at agency level, two collectors, only col-1 collected in March
	ts.must(http.StatusCreated, "POST", "/api/parameters", map[string]any{
		"scope": map[string]any{"type": "AGENCY"}, "type": "PERCENTAGE", "value": 5,
	}, nil)
	ts.must(http.StatusCreated, "POST", "/api/entities/collecteurs", map[string]any{"id": "col-1", "hire_date": "2025-02-01"}, nil)
	ts.must(http.StatusCreated, "POST", "/api/entities/collecteurs", map[string]any{"id": "col-2"}, nil)
	for _, body := range []map[string]any{
		{"collecteur_id": "col-1", "client_id": "cli-1", "kind": "EPARGNE", "montant": "60000", "date": "2025-03-03"},
		{"collecteur_id": "col-1", "client_id": "cli-2", "kind": "EPARGNE", "montant": "40000", "date": "2025-03-20"},
		{"collecteur_id": "col-1", "client_id": "cli-1", "kind": "RETRAIT", "montant": "10000", "date": "2025-03-21"},
	} {
		ts.must(http.StatusCreated, "POST", "/api/mouvements", body, nil)
	}

	scheduler := NewAccrualScheduler(ts.svc, nil)
	scheduler.Now = func() time.Time { return time.Date(2025, time.April, 2, 1, 0, 0, 0, time.UTC) }

	// WHEN: the scheduler runs
	run := scheduler.RunOnce(context.Background())

	// THEN: col-1 is credited on 100 000 collected, col-2 is skipped
	if run.Processed != 1 || run.Skipped != 1 || run.Failed != 0 {
		t.Fatalf("Unexpected run: %+v", run)
	}
	var snap SnapshotDTO
	ts.must(http.StatusOK, "GET", "/api/collecteurs/col-1/comptes", nil, &snap)
	// 5 000 commission, JUNIOR coefficient 1.05, 70 % share
	assertDecimal(t, "remuneration", snap.Remuneration, "3675")

	// AND: running again for the same month changes nothing
	run = scheduler.RunOnce(context.Background())
	if run.Processed != 0 || run.Skipped != 2 {
		t.Fatalf("Expected everything skipped, got %+v", run)
	}
}

func TestAccrualScheduler_StartStop(t *testing.T) {
	ts := newTestServer(t)
	scheduler := NewAccrualScheduler(ts.svc, nil)
	scheduler.CheckInterval = time.Hour

	scheduler.Start()
	scheduler.Stop()
	scheduler.Stop()
}
