package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/focep/collecte-engine/commission"
	"github.com/focep/collecte-engine/generic"
	"github.com/focep/collecte-engine/versement"
)

// CommissionPreview carries every intermediate value of a computation.
type CommissionPreview = commission.Preview

// ComputeCommissionPreview computes the commission on collected for ref,
// adjusted by tenure and split. Read-only.
func (s *Service) ComputeCommissionPreview(ctx context.Context, ref commission.EntityRef, collected generic.Amount, tenureMonths float64) (CommissionPreview, error) {
	p, err := s.engine.Preview(ctx, ref, collected, tenureMonths)
	if err != nil {
		return CommissionPreview{}, err
	}
	s.metrics.IncrementPreview(string(p.Resolution.Parameter.Type), string(p.Resolution.ResolvedFrom.Type))
	s.logger.DebugContext(ctx, "commission preview",
		"entity_type", ref.Type,
		"entity_id", ref.ID,
		"parameter_id", p.Resolution.Parameter.ID,
		"resolved_from", p.Resolution.ResolvedFrom.String(),
		"adjusted", p.Adjusted.String(),
	)
	return p, nil
}

// AssessSeniority reports the level and promotion outlook for a tenure.
func (s *Service) AssessSeniority(tenureMonths float64) (commission.Seniority, error) {
	return s.engine.Assess(tenureMonths)
}

// AvailableBalance is the part of a client's balance that may be withdrawn
// once the collector's commission is set aside.
func (s *Service) AvailableBalance(ctx context.Context, clientID, collecteurID string, balance generic.Amount) (commission.Availability, error) {
	if clientID == "" {
		return commission.Availability{}, fmt.Errorf("%w: client id is required", ErrInvalidRequest)
	}
	ref := commission.EntityRef{Type: commission.ScopeClient, ID: clientID, CollecteurID: collecteurID}
	return s.engine.AvailableBalance(ctx, ref, balance)
}

// AccrualRequest asks for a period's commission to be credited.
type AccrualRequest struct {
	CollecteurID string
	Period       generic.Period
	Collected    generic.Amount
	TenureMonths float64
}

// AccrualResult is the accrual written and the computation behind it.
type AccrualResult struct {
	Accrual versement.Accrual
	Preview CommissionPreview
}

// AccrueCommission computes the collector's commission for a period and
// credits the collector share to REMUNERATION, once per period.
func (s *Service) AccrueCommission(ctx context.Context, req AccrualRequest) (AccrualResult, error) {
	if req.CollecteurID == "" {
		return AccrualResult{}, fmt.Errorf("%w: collecteur id is required", ErrInvalidRequest)
	}
	if err := req.Period.Validate(); err != nil {
		return AccrualResult{}, err
	}
	lb, err := s.ledgerBackend("accrue commission")
	if err != nil {
		return AccrualResult{}, err
	}

	ref := commission.EntityRef{Type: commission.ScopeCollector, ID: req.CollecteurID}
	preview, err := s.ComputeCommissionPreview(ctx, ref, req.Collected, req.TenureMonths)
	if err != nil {
		return AccrualResult{}, err
	}

	accrual := versement.Accrual{
		CollecteurID: req.CollecteurID,
		Period:       req.Period,
		Montant:      preview.Split.PartCollecteur,
	}
	if err := lb.AccrueRemuneration(ctx, accrual); err != nil {
		return AccrualResult{}, fmt.Errorf("accrue commission for %s %s: %w", req.CollecteurID, req.Period, err)
	}

	s.logger.InfoContext(ctx, "commission accrued",
		"collecteur_id", req.CollecteurID,
		"period", req.Period.String(),
		"part_collecteur", accrual.Montant.String(),
	)
	return AccrualResult{Accrual: accrual, Preview: preview}, nil
}

// CollectedInPeriod sums the deposits a collector took in period. It reads
// the collector's SERVICE entries, so the backend must expose its ledger.
func (s *Service) CollectedInPeriod(ctx context.Context, collecteurID string, period generic.Period) (generic.Amount, error) {
	if collecteurID == "" {
		return generic.Amount{}, fmt.Errorf("%w: collecteur id is required", ErrInvalidRequest)
	}
	if err := period.Validate(); err != nil {
		return generic.Amount{}, err
	}
	st, ok := s.backend.(generic.Store)
	if !ok {
		return generic.Amount{}, fmt.Errorf("collected in period: %w", generic.ErrStoreRequired)
	}
	txs, err := generic.NewLedger(st).TransactionsInRange(ctx,
		generic.EntityID(collecteurID), versement.AccountService.AccountID(), period.Start, period.End)
	if err != nil {
		return generic.Amount{}, fmt.Errorf("load SERVICE entries of %s: %w", collecteurID, err)
	}
	return versement.CollectedIn(txs, s.currency), nil
}

// =============================================================================
// PARAMETER ADMINISTRATION
// =============================================================================

func (s *Service) parameterAdmin(op string) (ParameterAdmin, error) {
	pa, ok := s.backend.(ParameterAdmin)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, generic.ErrStoreRequired)
	}
	return pa, nil
}

// SaveParameter validates p and stores it as the active parameter of its
// scope, superseding the previous one.
func (s *Service) SaveParameter(ctx context.Context, p commission.Parameter) (commission.Parameter, error) {
	pa, err := s.parameterAdmin("save parameter")
	if err != nil {
		return commission.Parameter{}, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Active = true
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	if err := p.Validate(); err != nil {
		return commission.Parameter{}, err
	}
	if s.strictTiers && p.Type == commission.TypeTier {
		if err := commission.CheckTierCoverage(p.Tiers); err != nil {
			return commission.Parameter{}, err
		}
	}

	saved, err := pa.SaveParameter(ctx, p)
	if err != nil {
		return commission.Parameter{}, fmt.Errorf("save parameter %s: %w", p.Scope, err)
	}
	s.invalidate(ctx, saved.Scope)

	s.logger.InfoContext(ctx, "commission parameter saved",
		"parameter_id", saved.ID,
		"scope", saved.Scope.String(),
		"type", saved.Type,
		"version", saved.Version,
	)
	return saved, nil
}

func (s *Service) ListParameters(ctx context.Context, includeInactive bool) ([]commission.Parameter, error) {
	pa, err := s.parameterAdmin("list parameters")
	if err != nil {
		return nil, err
	}
	return pa.ListParameters(ctx, includeInactive)
}

// DeactivateParameter turns a parameter off. Parameters are never deleted.
func (s *Service) DeactivateParameter(ctx context.Context, id string) error {
	pa, err := s.parameterAdmin("deactivate parameter")
	if err != nil {
		return err
	}
	params, err := pa.ListParameters(ctx, false)
	if err != nil {
		return err
	}
	if err := pa.DeactivateParameter(ctx, id); err != nil {
		return fmt.Errorf("deactivate parameter %s: %w", id, err)
	}
	for _, p := range params {
		if p.ID == id {
			s.invalidate(ctx, p.Scope)
		}
	}
	s.logger.InfoContext(ctx, "commission parameter deactivated", "parameter_id", id)
	return nil
}

func (s *Service) invalidate(ctx context.Context, scope commission.Scope) {
	inv, ok := s.params.(Invalidator)
	if !ok {
		return
	}
	if err := inv.Invalidate(ctx, scope); err != nil {
		s.logger.WarnContext(ctx, "parameter cache invalidation failed", "scope", scope.String(), "error", err)
	}
}
