package versement

import (
	"errors"
	"fmt"

	"github.com/focep/collecte-engine/generic"
)

var (
	// ErrAlreadyClosed means a versement already exists for the day.
	ErrAlreadyClosed = errors.New("journal already closed for this date")

	// ErrAlreadyInProgress means another closing for the same day is running.
	ErrAlreadyInProgress = errors.New("reconciliation already in progress")

	// ErrCommentTooLong rejects comments over the configured length.
	ErrCommentTooLong = errors.New("comment too long")

	// ErrRepaymentExceedsDebt rejects repayments above the outstanding MANQUANT.
	ErrRepaymentExceedsDebt = errors.New("repayment exceeds outstanding shortfall")

	// ErrInvalidMouvement rejects unknown movement kinds.
	ErrInvalidMouvement = errors.New("invalid mouvement")
)

type AlreadyClosedError struct {
	CollecteurID string
	Date         generic.TimePoint
	ExistingID   string
}

func (e *AlreadyClosedError) Error() string {
	if e.ExistingID == "" {
		return fmt.Sprintf("journal of collector %s already closed for %s", e.CollecteurID, e.Date)
	}
	return fmt.Sprintf("journal of collector %s already closed for %s (versement %s)", e.CollecteurID, e.Date, e.ExistingID)
}

func (e *AlreadyClosedError) Unwrap() error { return ErrAlreadyClosed }

type AlreadyInProgressError struct {
	CollecteurID string
	Date         generic.TimePoint
}

func (e *AlreadyInProgressError) Error() string {
	return fmt.Sprintf("reconciliation of collector %s for %s already in progress", e.CollecteurID, e.Date)
}

func (e *AlreadyInProgressError) Unwrap() error { return ErrAlreadyInProgress }

type RepaymentExceedsDebtError struct {
	CollecteurID string
	Outstanding  generic.Amount
	Requested    generic.Amount
}

func (e *RepaymentExceedsDebtError) Error() string {
	return fmt.Sprintf("repayment of %s exceeds outstanding shortfall %s for collector %s",
		e.Requested, e.Outstanding, e.CollecteurID)
}

func (e *RepaymentExceedsDebtError) Unwrap() error { return ErrRepaymentExceedsDebt }
