/*
scheduler.go - Automated monthly commission accrual

PURPOSE:
  Periodically credits every active collector with the commission on what
  they collected during the previous calendar month.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Targets the calendar month before the current date
  - Skips collectors with nothing collected
  - Skips periods already accrued (the ledger refuses a second accrual)
  - Logs one summary line per run

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewAccrualScheduler(svc, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: AccrueCommission endpoint (manual accrual)
  - service/commission.go: AccrueCommission, CollectedInPeriod
*/
package api

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/focep/collecte-engine/generic"
	"github.com/focep/collecte-engine/guard"
	"github.com/focep/collecte-engine/service"
)

// AccrualScheduler handles automated month-end accrual.
type AccrualScheduler struct {
	Service       *service.Service
	CheckInterval time.Duration
	Enabled       bool
	Now           func() time.Time

	logger *slog.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// AccrualRun summarizes one pass over the collectors.
type AccrualRun struct {
	Period    generic.Period
	Processed int
	Skipped   int
	Failed    int
}

// NewAccrualScheduler creates a new scheduler.
func NewAccrualScheduler(svc *service.Service, logger *slog.Logger) *AccrualScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccrualScheduler{
		Service:       svc,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		Now:           time.Now,
		logger:        logger,
	}
}

// Start begins the scheduler.
func (as *AccrualScheduler) Start() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if !as.Enabled {
		as.logger.Info("accrual scheduler disabled, not starting")
		return
	}
	if as.ticker != nil {
		return
	}

	as.ticker = time.NewTicker(as.CheckInterval)
	as.stop = make(chan struct{})
	as.wg.Add(1)

	go as.run(as.ticker, as.stop)

	as.logger.Info("accrual scheduler started", "interval", as.CheckInterval)
}

// Stop stops the scheduler and waits for a run in progress.
func (as *AccrualScheduler) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.ticker == nil {
		return
	}
	as.ticker.Stop()
	close(as.stop)
	as.wg.Wait()
	as.ticker = nil
	as.logger.Info("accrual scheduler stopped")
}

func (as *AccrualScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer as.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	// Run immediately on start
	as.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			as.RunOnce(ctx)
		case <-stop:
			return
		}
	}
}

// previousMonth is the calendar month before now.
func previousMonth(now time.Time) generic.Period {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	prev := first.AddDate(0, -1, 0)
	return generic.MonthPeriod(prev.Year(), prev.Month())
}

// RunOnce accrues the previous month for every active collector.
func (as *AccrualScheduler) RunOnce(ctx context.Context) AccrualRun {
	run := AccrualRun{Period: previousMonth(as.Now())}

	collectors, err := as.Service.ListEntities(ctx, guard.EntityCollecteur, "")
	if err != nil {
		as.logger.ErrorContext(ctx, "accrual run: list collectors", "error", err)
		return run
	}

	for _, c := range collectors {
		if ctx.Err() != nil {
			break
		}
		if !c.Active {
			run.Skipped++
			continue
		}
		switch err := as.accrue(ctx, c.ID, run.Period); {
		case err == nil:
			run.Processed++
		case errors.Is(err, errNothingCollected), errors.Is(err, generic.ErrDuplicateIdempotencyKey):
			run.Skipped++
		default:
			run.Failed++
			as.logger.ErrorContext(ctx, "accrual failed",
				"collecteur_id", c.ID, "period", run.Period.String(), "error", err)
		}
	}

	if run.Processed > 0 || run.Failed > 0 {
		as.logger.InfoContext(ctx, "accrual run completed",
			"period", run.Period.String(),
			"processed", run.Processed,
			"skipped", run.Skipped,
			"failed", run.Failed,
		)
	}
	return run
}

var errNothingCollected = errors.New("nothing collected in period")

func (as *AccrualScheduler) accrue(ctx context.Context, collecteurID string, period generic.Period) error {
	collected, err := as.Service.CollectedInPeriod(ctx, collecteurID, period)
	if err != nil {
		return err
	}
	if !collected.IsPositive() {
		return errNothingCollected
	}

	// A collector registered without a hire date earns at the base level.
	tenure, err := as.Service.CollectorTenure(ctx, collecteurID)
	if errors.Is(err, service.ErrInvalidRequest) {
		tenure, err = 0, nil
	}
	if err != nil {
		return err
	}

	_, err = as.Service.AccrueCommission(ctx, service.AccrualRequest{
		CollecteurID: collecteurID,
		Period:       period,
		Collected:    collected,
		TenureMonths: tenure,
	})
	return err
}
