package versement

import (
	"fmt"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/focep/collecte-engine/generic"
)

// Config holds the tolerances and thresholds of the reconciler.
type Config struct {
	// Epsilon is the largest |difference| still treated as NORMAL (exclusive).
	Epsilon decimal.Decimal

	// Severity thresholds on |difference| / du x 100, each exclusive.
	CriticalAbove decimal.Decimal
	HighAbove     decimal.Decimal
	MediumAbove   decimal.Decimal

	MaxCommentLength int
}

func DefaultConfig() Config {
	return Config{
		Epsilon:          decimal.RequireFromString("0.01"),
		CriticalAbove:    decimal.NewFromInt(20),
		HighAbove:        decimal.NewFromInt(10),
		MediumAbove:      decimal.NewFromInt(5),
		MaxCommentLength: 500,
	}
}

func (c Config) Validate() error {
	if c.Epsilon.IsNegative() {
		return fmt.Errorf("epsilon must not be negative")
	}
	if !(c.MediumAbove.LessThan(c.HighAbove) && c.HighAbove.LessThan(c.CriticalAbove)) {
		return fmt.Errorf("severity thresholds must increase: medium %s < high %s < critical %s",
			c.MediumAbove, c.HighAbove, c.CriticalAbove)
	}
	if c.MaxCommentLength <= 0 {
		return fmt.Errorf("max comment length must be positive")
	}
	return nil
}

var hundred = decimal.NewFromInt(100)

// Reconciler classifies versements. It is pure: the same inputs always
// give the same result, and nothing is written anywhere.
type Reconciler struct {
	cfg Config
}

func NewReconciler(cfg Config) *Reconciler {
	return &Reconciler{cfg: cfg}
}

func (r *Reconciler) Config() Config { return r.cfg }

// Reconcile compares the cash handed over with the SERVICE balance.
func (r *Reconciler) Reconcile(serviceBalance, montantVerse generic.Amount) (Transaction, error) {
	if montantVerse.IsNegative() {
		return Transaction{}, &generic.InvalidAmountError{
			Field: "montant_verse", Value: montantVerse, Reason: "must not be negative",
		}
	}

	du := serviceBalance.Abs()
	if du.Currency == "" {
		du.Currency = montantVerse.Currency
	}
	diff := montantVerse.Sub(du)

	tx := Transaction{
		ServiceBalance: serviceBalance,
		MontantDu:      du,
		MontantVerse:   montantVerse,
		Difference:     diff,
	}

	pct := percentage(diff, du)
	tx.Percentage = pct.Round(2)

	switch {
	case diff.Abs().Value.LessThan(r.cfg.Epsilon):
		tx.Case = CaseNormal
		tx.Severity = SeverityNone
	case diff.IsPositive():
		tx.Case = CaseExcedent
		tx.Severity = r.severity(pct)
	default:
		tx.Case = CaseManquant
		tx.Severity = r.severity(pct)
	}
	tx.Message = message(tx)
	return tx, nil
}

func percentage(diff, du generic.Amount) decimal.Decimal {
	if du.IsZero() {
		return decimal.Zero
	}
	return diff.Value.Abs().Div(du.Value).Mul(hundred)
}

func (r *Reconciler) severity(pct decimal.Decimal) Severity {
	switch {
	case pct.GreaterThan(r.cfg.CriticalAbove):
		return SeverityCritical
	case pct.GreaterThan(r.cfg.HighAbove):
		return SeverityHigh
	case pct.GreaterThan(r.cfg.MediumAbove):
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func message(tx Transaction) string {
	switch tx.Case {
	case CaseNormal:
		return fmt.Sprintf("Versement conforme: %s versés pour %s dus.", tx.MontantVerse, tx.MontantDu)
	case CaseExcedent:
		return fmt.Sprintf("Excédent de %s (%s%%): le compte manquant du collecteur est réduit d'autant.",
			tx.Difference.Abs(), tx.Percentage.StringFixed(2))
	default:
		return fmt.Sprintf("Manquant de %s (%s%%, gravité %s): le montant est ajouté au compte manquant du collecteur.",
			tx.Difference.Abs(), tx.Percentage.StringFixed(2), tx.Severity)
	}
}

// Adjustments returns the ledger movements that close the day: SERVICE
// back to zero, and MANQUANT moved by du - verse unless the case is NORMAL.
func (r *Reconciler) Adjustments(tx Transaction) []LedgerAdjustment {
	adj := []LedgerAdjustment{{
		Account: AccountService,
		Delta:   tx.ServiceBalance.Neg(),
		Type:    generic.TxRemittance,
		Reason:  "clôture journalière",
	}}

	switch tx.Case {
	case CaseManquant:
		adj = append(adj, LedgerAdjustment{
			Account: AccountManquant,
			Delta:   tx.Difference.Neg(),
			Type:    generic.TxShortfall,
			Reason:  "manquant constaté à la clôture",
		})
	case CaseExcedent:
		adj = append(adj, LedgerAdjustment{
			Account: AccountManquant,
			Delta:   tx.Difference.Neg(),
			Type:    generic.TxSurplus,
			Reason:  "excédent constaté à la clôture",
		})
	}
	return adj
}

// ValidateComment enforces the comment length in characters.
func (r *Reconciler) ValidateComment(comment string) error {
	if n := utf8.RuneCountInString(comment); n > r.cfg.MaxCommentLength {
		return fmt.Errorf("%w: %d characters, max %d", ErrCommentTooLong, n, r.cfg.MaxCommentLength)
	}
	return nil
}

// Repay checks a repayment of the MANQUANT debt and returns the movement
// that applies it.
func (r *Reconciler) Repay(collecteurID string, outstanding, montant generic.Amount, comment string) (Repayment, LedgerAdjustment, error) {
	if !montant.IsPositive() {
		return Repayment{}, LedgerAdjustment{}, &generic.InvalidAmountError{
			Field: "montant", Value: montant, Reason: "must be positive",
		}
	}
	if err := r.ValidateComment(comment); err != nil {
		return Repayment{}, LedgerAdjustment{}, err
	}
	if montant.GreaterThan(outstanding) {
		return Repayment{}, LedgerAdjustment{}, &RepaymentExceedsDebtError{
			CollecteurID: collecteurID, Outstanding: outstanding, Requested: montant,
		}
	}

	rep := Repayment{
		CollecteurID: collecteurID,
		Montant:      montant,
		Outstanding:  outstanding,
		Comment:      comment,
	}
	adj := LedgerAdjustment{
		Account: AccountManquant,
		Delta:   montant.Neg(),
		Type:    generic.TxRepayment,
		Reason:  "remboursement de manquant",
	}
	return rep, adj, nil
}
