package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/focep/collecte-engine/generic"
	"github.com/focep/collecte-engine/lock"
	"github.com/focep/collecte-engine/versement"
)

// ReconciliationPreview is a classified result and the movements a commit
// would apply. Nothing is persisted.
type ReconciliationPreview struct {
	Transaction versement.Transaction
	Adjustments []versement.LedgerAdjustment
}

// PreviewReconciliation classifies a remittance against a SERVICE balance.
// Pure: no backend call, same inputs give the same result.
func (s *Service) PreviewReconciliation(serviceBalance, montantVerse generic.Amount) (ReconciliationPreview, error) {
	tx, err := s.reconciler.Reconcile(serviceBalance, montantVerse)
	if err != nil {
		return ReconciliationPreview{}, err
	}
	return ReconciliationPreview{Transaction: tx, Adjustments: s.reconciler.Adjustments(tx)}, nil
}

// CommitRequest closes one collector's day.
type CommitRequest struct {
	CollecteurID string
	Date         generic.TimePoint // zero means today
	MontantVerse generic.Amount
	Comment      string
	CreatedBy    string
}

// CommitReconciliation reconciles the remittance against the live SERVICE
// balance and commits the versement with its ledger adjustments. At most
// one closing per collector and day runs at a time.
func (s *Service) CommitReconciliation(ctx context.Context, req CommitRequest) (versement.Transaction, error) {
	start := time.Now()
	defer s.metrics.ObserveReconcile(start)

	if req.CollecteurID == "" {
		return versement.Transaction{}, fmt.Errorf("%w: collecteur id is required", ErrInvalidRequest)
	}
	if req.MontantVerse.IsNegative() {
		return versement.Transaction{}, &generic.InvalidAmountError{
			Field: "montant_verse", Value: req.MontantVerse, Reason: "must not be negative",
		}
	}
	if err := s.reconciler.ValidateComment(req.Comment); err != nil {
		return versement.Transaction{}, err
	}
	date := req.Date
	if date.IsZero() {
		date = generic.DayOf(s.now())
	}

	release, err := s.locker.Acquire(ctx, versement.ClosingKey(req.CollecteurID, date), s.lockTTL)
	if errors.Is(err, lock.ErrLocked) {
		return versement.Transaction{}, &versement.AlreadyInProgressError{CollecteurID: req.CollecteurID, Date: date}
	}
	if err != nil {
		return versement.Transaction{}, fmt.Errorf("lock closing %s: %w", versement.ClosingKey(req.CollecteurID, date), err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.WarnContext(ctx, "release closing lock failed", "collecteur_id", req.CollecteurID, "error", err)
		}
	}()

	snapshot, err := s.backend.GetAccountSnapshot(ctx, req.CollecteurID)
	if err != nil {
		return versement.Transaction{}, fmt.Errorf("snapshot of %s: %w", req.CollecteurID, err)
	}

	tx, err := s.reconciler.Reconcile(snapshot.Service, req.MontantVerse)
	if err != nil {
		return versement.Transaction{}, err
	}
	tx.ID = uuid.NewString()
	tx.CollecteurID = req.CollecteurID
	tx.Date = date
	tx.Comment = req.Comment
	tx.CreatedBy = req.CreatedBy
	tx.CreatedAt = s.now()

	if err := s.backend.CommitVersement(ctx, tx, s.reconciler.Adjustments(tx)); err != nil {
		return versement.Transaction{}, fmt.Errorf("commit versement %s: %w", versement.ClosingKey(req.CollecteurID, date), err)
	}

	s.metrics.IncrementReconciliation(string(tx.Case), string(tx.Severity))
	s.logger.InfoContext(ctx, "versement committed",
		"collecteur_id", tx.CollecteurID,
		"date", tx.Date.String(),
		"case", tx.Case,
		"severity", tx.Severity,
		"montant_du", tx.MontantDu.String(),
		"montant_verse", tx.MontantVerse.String(),
	)
	if tx.Severity == versement.SeverityCritical {
		s.logger.WarnContext(ctx, "critical versement difference",
			"collecteur_id", tx.CollecteurID,
			"difference", tx.Difference.String(),
			"percentage", tx.Percentage.StringFixed(2),
		)
	}
	return tx, nil
}

// AccountSnapshot returns the collector's four accounts.
func (s *Service) AccountSnapshot(ctx context.Context, collecteurID string) (versement.AccountSnapshot, error) {
	if collecteurID == "" {
		return versement.AccountSnapshot{}, fmt.Errorf("%w: collecteur id is required", ErrInvalidRequest)
	}
	return s.backend.GetAccountSnapshot(ctx, collecteurID)
}

// =============================================================================
// ACCOUNT MOVEMENTS
// =============================================================================

// RemboursementRequest is a collector paying back shortfall debt.
type RemboursementRequest struct {
	CollecteurID string
	Montant      generic.Amount
	Comment      string
	CreatedBy    string
}

// Remboursement reduces the collector's MANQUANT debt. The amount must be
// positive and at most the outstanding debt.
func (s *Service) Remboursement(ctx context.Context, req RemboursementRequest) (versement.Repayment, error) {
	if req.CollecteurID == "" {
		return versement.Repayment{}, fmt.Errorf("%w: collecteur id is required", ErrInvalidRequest)
	}
	if !req.Montant.IsPositive() {
		return versement.Repayment{}, &generic.InvalidAmountError{Field: "montant", Value: req.Montant, Reason: "must be positive"}
	}
	lb, err := s.ledgerBackend("remboursement")
	if err != nil {
		return versement.Repayment{}, err
	}

	snapshot, err := lb.GetAccountSnapshot(ctx, req.CollecteurID)
	if err != nil {
		return versement.Repayment{}, fmt.Errorf("snapshot of %s: %w", req.CollecteurID, err)
	}
	outstanding := snapshot.Manquant.Max(snapshot.Manquant.Zero())

	rep, adj, err := s.reconciler.Repay(req.CollecteurID, outstanding, req.Montant, req.Comment)
	if err != nil {
		return versement.Repayment{}, err
	}
	rep.ID = uuid.NewString()
	rep.Date = generic.DayOf(s.now())
	rep.CreatedBy = req.CreatedBy
	rep.CreatedAt = s.now()

	if err := lb.RecordRepayment(ctx, rep, adj); err != nil {
		return versement.Repayment{}, fmt.Errorf("record repayment for %s: %w", req.CollecteurID, err)
	}
	s.logger.InfoContext(ctx, "manquant repaid",
		"collecteur_id", rep.CollecteurID,
		"montant", rep.Montant.String(),
		"remaining", outstanding.Sub(rep.Montant).String(),
	)
	return rep, nil
}

// RecordCollecte books a deposit or withdrawal made with a collector. It
// moves the client's account and the collector's SERVICE liability.
func (s *Service) RecordCollecte(ctx context.Context, m versement.Mouvement) (versement.Mouvement, error) {
	if err := m.Validate(); err != nil {
		return versement.Mouvement{}, err
	}
	lb, err := s.ledgerBackend("record collecte")
	if err != nil {
		return versement.Mouvement{}, err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Date.IsZero() {
		m.Date = generic.DayOf(s.now())
	}
	if err := lb.RecordMouvement(ctx, m); err != nil {
		return versement.Mouvement{}, fmt.Errorf("record mouvement %s: %w", m.ID, err)
	}
	s.logger.DebugContext(ctx, "mouvement recorded",
		"mouvement_id", m.ID,
		"collecteur_id", m.CollecteurID,
		"client_id", m.ClientID,
		"kind", m.Kind,
		"montant", m.Montant.String(),
	)
	return m, nil
}

// ListVersements returns the collector's closings in [from, to].
func (s *Service) ListVersements(ctx context.Context, collecteurID string, from, to generic.TimePoint) ([]versement.Transaction, error) {
	if collecteurID == "" {
		return nil, fmt.Errorf("%w: collecteur id is required", ErrInvalidRequest)
	}
	if err := (generic.Period{Start: from, End: to}).Validate(); err != nil {
		return nil, err
	}
	lb, err := s.ledgerBackend("list versements")
	if err != nil {
		return nil, err
	}
	return lb.ListVersements(ctx, collecteurID, from, to)
}
