/*
Package service is the facade the transports call.

PURPOSE:
  Wires the pure components (commission, versement, guard) to a Backend
  that owns persistence. Every exposed operation validates its input
  before the first backend call:

  - ComputeCommissionPreview: resolve -> compute -> adjust -> split
  - PreviewReconciliation:    pure, no backend call
  - CommitReconciliation:     lock -> snapshot -> reconcile -> commit
  - GuardedUpdate:            filter -> validate -> update
  - DeleteEntity:             always forbidden, no backend call

BACKENDS:
  Backend carries the five calls the core needs. LedgerBackend adds the
  account movements (remboursement, collecte, accrual, history) and
  ParameterAdmin adds parameter administration and EntityRegistry adds
  record registration. Operations needing an
  extension return generic.ErrStoreRequired when the backend lacks it.

SEE ALSO:
  - errors.go: Error categories for transports
  - store/sqlite, store/postgres: Backend implementations
*/
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/focep/collecte-engine/commission"
	"github.com/focep/collecte-engine/generic"
	"github.com/focep/collecte-engine/guard"
	"github.com/focep/collecte-engine/lock"
	"github.com/focep/collecte-engine/metrics"
	"github.com/focep/collecte-engine/versement"
)

// =============================================================================
// BACKEND INTERFACES
// =============================================================================

// Backend is what the core consumes.
type Backend interface {
	// GetActiveParameter returns (nil, nil) when scope has no active parameter.
	GetActiveParameter(ctx context.Context, scope commission.Scope) (*commission.Parameter, error)
	GetAccountSnapshot(ctx context.Context, collecteurID string) (versement.AccountSnapshot, error)
	// CommitVersement persists tx and applies adjustments atomically. Fails
	// with versement.AlreadyClosedError when the day is already closed.
	CommitVersement(ctx context.Context, tx versement.Transaction, adjustments []versement.LedgerAdjustment) error
	UpdateEntity(ctx context.Context, entityType guard.EntityType, id string, fields map[string]any) error
	ToggleEntityStatus(ctx context.Context, entityType guard.EntityType, id string, active bool, reason string) error
}

// LedgerBackend records the account movements outside a closing.
type LedgerBackend interface {
	Backend
	RecordRepayment(ctx context.Context, rep versement.Repayment, adj versement.LedgerAdjustment) error
	RecordMouvement(ctx context.Context, m versement.Mouvement) error
	AccrueRemuneration(ctx context.Context, a versement.Accrual) error
	ListVersements(ctx context.Context, collecteurID string, from, to generic.TimePoint) ([]versement.Transaction, error)
}

// ParameterAdmin stores parameters. SaveParameter deactivates the previous
// active parameter of the same scope in the same transaction.
type ParameterAdmin interface {
	SaveParameter(ctx context.Context, p commission.Parameter) (commission.Parameter, error)
	ListParameters(ctx context.Context, includeInactive bool) ([]commission.Parameter, error)
	DeactivateParameter(ctx context.Context, id string) error
}

// EntityRegistry registers and reads client and collector records.
type EntityRegistry interface {
	SaveEntity(ctx context.Context, e guard.Entity) (guard.Entity, error)
	// GetEntity returns (nil, nil) when the record does not exist.
	GetEntity(ctx context.Context, entityType guard.EntityType, id string) (*guard.Entity, error)
	ListEntities(ctx context.Context, entityType guard.EntityType, collecteurID string) ([]guard.Entity, error)
}

// Invalidator is implemented by cached parameter sources.
type Invalidator interface {
	Invalidate(ctx context.Context, scope commission.Scope) error
}

// =============================================================================
// SERVICE
// =============================================================================

const defaultLockTTL = 30 * time.Second

type Service struct {
	backend   Backend
	params    commission.ParameterSource
	directory commission.Directory

	engine     *commission.Engine
	reconciler *versement.Reconciler
	guard      *guard.Guard

	tierMode     commission.TierMode
	splitPolicy  commission.SplitPolicy
	graceMonths  float64
	reconcileCfg versement.Config
	strictTiers  bool

	locker   lock.Locker
	lockTTL  time.Duration
	clock    func() time.Time
	currency generic.Currency
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLocker replaces the in-process closing lock, e.g. with lock.Redis.
func WithLocker(l lock.Locker, ttl time.Duration) Option {
	return func(s *Service) {
		s.locker = l
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithParameterSource puts a decorator (usually cache.Source) in front of
// the backend for parameter lookups.
func WithParameterSource(src commission.ParameterSource) Option {
	return func(s *Service) { s.params = src }
}

func WithDirectory(d commission.Directory) Option {
	return func(s *Service) { s.directory = d }
}

func WithReconcilerConfig(cfg versement.Config) Option {
	return func(s *Service) { s.reconcileCfg = cfg }
}

func WithSplitPolicy(p commission.SplitPolicy) Option {
	return func(s *Service) { s.splitPolicy = p }
}

func WithTierMode(m commission.TierMode) Option {
	return func(s *Service) { s.tierMode = m }
}

// WithPromotionGrace sets how many months ahead of the next level a
// collector becomes eligible for promotion.
func WithPromotionGrace(months float64) Option {
	return func(s *Service) { s.graceMonths = months }
}

// WithStrictTiers makes SaveParameter reject TIER parameters with gaps.
func WithStrictTiers(strict bool) Option {
	return func(s *Service) { s.strictTiers = strict }
}

func WithGuard(g *guard.Guard) Option {
	return func(s *Service) { s.guard = g }
}

func WithCurrency(c generic.Currency) Option {
	return func(s *Service) { s.currency = c }
}

func New(backend Backend, opts ...Option) (*Service, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend is required")
	}

	s := &Service{
		backend:      backend,
		params:       backend,
		tierMode:     commission.TierFlat,
		splitPolicy:  commission.DefaultSplitPolicy(),
		reconcileCfg: versement.DefaultConfig(),
		guard:        guard.New(),
		locker:       lock.NewMemory(),
		lockTTL:      defaultLockTTL,
		clock:        time.Now,
		currency:     generic.DefaultCurrency,
		logger:       slog.Default(),
	}
	if d, ok := backend.(commission.Directory); ok {
		s.directory = d
	}
	for _, opt := range opts {
		opt(s)
	}

	if !s.tierMode.Valid() {
		return nil, fmt.Errorf("invalid tier mode %q", s.tierMode)
	}
	if err := s.splitPolicy.Validate(); err != nil {
		return nil, fmt.Errorf("split policy: %w", err)
	}
	if err := s.reconcileCfg.Validate(); err != nil {
		return nil, fmt.Errorf("reconciler config: %w", err)
	}
	if s.graceMonths < 0 {
		return nil, fmt.Errorf("promotion grace must not be negative")
	}

	var resolverOpts []commission.ResolverOption
	if s.directory != nil {
		resolverOpts = append(resolverOpts, commission.WithDirectory(s.directory))
	}
	s.engine = commission.NewEngine(
		commission.NewResolver(s.params, resolverOpts...),
		commission.NewCalculator(s.tierMode),
		commission.NewSeniorityAdjuster(s.graceMonths),
		commission.NewSplitter(s.splitPolicy),
	)
	s.reconciler = versement.NewReconciler(s.reconcileCfg)
	return s, nil
}

func (s *Service) ledgerBackend(op string) (LedgerBackend, error) {
	lb, ok := s.backend.(LedgerBackend)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, generic.ErrStoreRequired)
	}
	return lb, nil
}

func (s *Service) now() time.Time { return s.clock().UTC() }

// Currency is the currency amounts are booked in.
func (s *Service) Currency() generic.Currency { return s.currency }
