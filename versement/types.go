/*
Package versement reconciles a collector's end-of-day cash remittance.

PURPOSE:
  During the day a collector takes deposits (EPARGNE) and pays out
  withdrawals (RETRAIT). The net is held on the collector's SERVICE
  account, a liability the collector owes the institution. At closing the
  collector hands over cash (the versement). This package compares what was
  handed over with what was owed, classifies the outcome, and produces the
  ledger adjustments that close the day.

ACCOUNTS (per collector):
  SERVICE       Liability. Negative balance = cash owed. Zeroed on closing.
  MANQUANT      Shortfall debt. Positive balance = collector owes this much.
  ATTENTE       Suspense account, read for display only.
  REMUNERATION  Accrued collector share of commissions.

CASES:
  NORMAL    |verse - du| < epsilon
  EXCEDENT  verse > du  -> MANQUANT reduced by the surplus
  MANQUANT  verse < du  -> MANQUANT increased by the shortfall

SEE ALSO:
  - reconciler.go: Classification, severity and messages
  - ledger.go: Mapping to generic.Transaction entries
*/
package versement

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/focep/collecte-engine/generic"
)

// =============================================================================
// ACCOUNTS
// =============================================================================

type AccountKind string

const (
	AccountService      AccountKind = "SERVICE"
	AccountManquant     AccountKind = "MANQUANT"
	AccountAttente      AccountKind = "ATTENTE"
	AccountRemuneration AccountKind = "REMUNERATION"

	// AccountClient is a client's savings account, keyed by client id.
	AccountClient AccountKind = "CLIENT"
)

func (k AccountKind) AccountID() generic.AccountID { return generic.AccountID(k) }

// CollectorAccounts are the four accounts of a collector snapshot.
var CollectorAccounts = []AccountKind{AccountService, AccountManquant, AccountAttente, AccountRemuneration}

// AccountSnapshot is the state of a collector's accounts at one instant.
type AccountSnapshot struct {
	CollecteurID string
	Service      generic.Amount
	Manquant     generic.Amount
	Attente      generic.Amount
	Remuneration generic.Amount
}

// MontantDu is what the collector owes on SERVICE.
func (s AccountSnapshot) MontantDu() generic.Amount {
	return s.Service.Abs()
}

// =============================================================================
// RECONCILIATION RESULT
// =============================================================================

type Case string

const (
	CaseNormal   Case = "NORMAL"
	CaseExcedent Case = "EXCEDENT"
	CaseManquant Case = "MANQUANT"
)

type Severity string

const (
	SeverityNone     Severity = "NONE"
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Transaction is one closed day. Created once per (CollecteurID, Date),
// never modified.
type Transaction struct {
	ID             string
	CollecteurID   string
	Date           generic.TimePoint
	ServiceBalance generic.Amount // SERVICE balance the result was computed from
	MontantDu      generic.Amount
	MontantVerse   generic.Amount
	Difference     generic.Amount // verse - du
	Case           Case
	Severity       Severity
	Percentage     decimal.Decimal // |difference| / du x 100, two decimals
	Message        string
	Comment        string
	CreatedBy      string
	CreatedAt      time.Time
}

// LedgerAdjustment is one account movement the reconciliation requires.
type LedgerAdjustment struct {
	Account AccountKind
	Delta   generic.Amount
	Type    generic.TransactionType
	Reason  string
}

// =============================================================================
// SUPPORTING RECORDS
// =============================================================================

// Repayment is a collector paying back part of the MANQUANT debt.
type Repayment struct {
	ID           string
	CollecteurID string
	Date         generic.TimePoint
	Montant      generic.Amount
	Outstanding  generic.Amount // debt before the repayment
	Comment      string
	CreatedBy    string
	CreatedAt    time.Time
}

type MouvementKind string

const (
	MouvementEpargne MouvementKind = "EPARGNE"
	MouvementRetrait MouvementKind = "RETRAIT"
)

// Mouvement is a cash movement between a client and a collector.
type Mouvement struct {
	ID           string
	CollecteurID string
	ClientID     string
	Kind         MouvementKind
	Montant      generic.Amount
	Date         generic.TimePoint
}

// Validate rejects non-positive amounts, unknown kinds and movements
// without both parties.
func (m Mouvement) Validate() error {
	if !m.Montant.IsPositive() {
		return &generic.InvalidAmountError{Field: "montant", Value: m.Montant, Reason: "must be positive"}
	}
	if m.Kind != MouvementEpargne && m.Kind != MouvementRetrait {
		return fmt.Errorf("%w: kind %q", ErrInvalidMouvement, m.Kind)
	}
	if m.CollecteurID == "" || m.ClientID == "" {
		return fmt.Errorf("%w: collecteur and client are required", ErrInvalidMouvement)
	}
	return nil
}

// Accrual credits a collector's share of a period commission.
type Accrual struct {
	CollecteurID string
	Period       generic.Period
	Montant      generic.Amount
}
