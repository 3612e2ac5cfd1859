package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/focep/collecte-engine/generic"
	"github.com/focep/collecte-engine/versement"
)

// =============================================================================
// ACCOUNTS
// =============================================================================

// GetAccountSnapshot replays the collector's four accounts from the ledger.
func (s *Store) GetAccountSnapshot(ctx context.Context, collecteurID string) (versement.AccountSnapshot, error) {
	return versement.SnapshotFrom(ctx, generic.NewLedger(s), collecteurID, s.currency)
}

// =============================================================================
// VERSEMENTS
// =============================================================================

const selectVersements = `
	SELECT id, collecteur_id, date, service_balance, montant_du, montant_verse, difference, currency,
	       case_name, severity, percentage, message, comment, created_by, created_at
	FROM versements
`

// CommitVersement closes the day in one SQL transaction: the versement row,
// its ledger entries and an audit entry. The SERVICE balance is re-read
// inside the transaction and must match the one tx was computed from.
func (s *Store) CommitVersement(ctx context.Context, tx versement.Transaction, adjustments []versement.LedgerAdjustment) error {
	return s.withTx(ctx, func(ts *txStore) error {
		var existingID string
		err := ts.tx.QueryRowContext(ctx,
			"SELECT id FROM versements WHERE collecteur_id = ? AND date = ?",
			tx.CollecteurID, tx.Date.String(),
		).Scan(&existingID)
		switch {
		case err == nil:
			return &versement.AlreadyClosedError{CollecteurID: tx.CollecteurID, Date: tx.Date, ExistingID: existingID}
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("failed to check closing: %w", err)
		}

		current, err := ts.balance(ctx, tx.CollecteurID, versement.AccountService.AccountID())
		if err != nil {
			return err
		}
		if !current.Equal(tx.ServiceBalance) {
			return fmt.Errorf("%w: SERVICE of %s is %s, reconciled against %s",
				generic.ErrConcurrentModification, tx.CollecteurID, current, tx.ServiceBalance)
		}

		_, err = ts.tx.ExecContext(ctx, `
			INSERT INTO versements
			(id, collecteur_id, date, service_balance, montant_du, montant_verse, difference, currency,
			 case_name, severity, percentage, message, comment, created_by, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, tx.ID, tx.CollecteurID, tx.Date.String(),
			tx.ServiceBalance.Value.String(), tx.MontantDu.Value.String(), tx.MontantVerse.Value.String(),
			tx.Difference.Value.String(), s.currencyOf(tx.MontantVerse),
			tx.Case, tx.Severity, tx.Percentage.String(), tx.Message,
			nullString(tx.Comment), nullString(tx.CreatedBy), formatTime(tx.CreatedAt))
		if err != nil {
			if isUniqueConstraintError(err) {
				return &versement.AlreadyClosedError{CollecteurID: tx.CollecteurID, Date: tx.Date}
			}
			return fmt.Errorf("failed to insert versement: %w", err)
		}

		// A failing entry rolls back the versement row with it.
		if err := ts.AppendBatch(ctx, versement.ClosingEntries(tx, adjustments)); err != nil {
			return fmt.Errorf("failed to book closing entries: %w", err)
		}

		return ts.audit(ctx, generic.AuditEntry{
			ActorID:  tx.CreatedBy,
			Action:   generic.AuditVersementCommitted,
			EntityID: generic.EntityID(tx.CollecteurID),
			Payload: map[string]any{
				"versement_id":  tx.ID,
				"date":          tx.Date.String(),
				"case":          string(tx.Case),
				"severity":      string(tx.Severity),
				"montant_du":    tx.MontantDu.Value.String(),
				"montant_verse": tx.MontantVerse.Value.String(),
			},
		})
	})
}

// ListVersements returns the collector's closings in [from, to] by date.
func (s *Store) ListVersements(ctx context.Context, collecteurID string, from, to generic.TimePoint) ([]versement.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectVersements+`
		WHERE collecteur_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, collecteurID, generic.DayOf(from.Time).String(), generic.DayOf(to.Time).String())
	if err != nil {
		return nil, fmt.Errorf("failed to query versements: %w", err)
	}
	defer rows.Close()

	var out []versement.Transaction
	for rows.Next() {
		tx, err := scanVersement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func scanVersement(rows *sql.Rows) (versement.Transaction, error) {
	var (
		tx                                    versement.Transaction
		date, createdAt, currency, pct        string
		serviceBalance, du, verse, difference string
		comment, createdBy                    sql.NullString
	)
	if err := rows.Scan(&tx.ID, &tx.CollecteurID, &date, &serviceBalance, &du, &verse, &difference, &currency,
		&tx.Case, &tx.Severity, &pct, &tx.Message, &comment, &createdBy, &createdAt); err != nil {
		return tx, fmt.Errorf("failed to scan versement: %w", err)
	}

	d, err := generic.ParseDay(date)
	if err != nil {
		return tx, fmt.Errorf("corrupt date of versement %s: %w", tx.ID, err)
	}
	tx.Date = d
	for _, f := range []struct {
		dst *generic.Amount
		raw string
	}{
		{&tx.ServiceBalance, serviceBalance},
		{&tx.MontantDu, du},
		{&tx.MontantVerse, verse},
		{&tx.Difference, difference},
	} {
		if *f.dst, err = parseAmount(f.raw, currency); err != nil {
			return tx, err
		}
	}
	if tx.Percentage, err = decimal.NewFromString(pct); err != nil {
		return tx, fmt.Errorf("corrupt percentage of versement %s: %w", tx.ID, err)
	}
	tx.Comment = comment.String
	tx.CreatedBy = createdBy.String
	tx.CreatedAt = parseTime(createdAt)
	return tx, nil
}

// =============================================================================
// ACCOUNT MOVEMENTS
// =============================================================================

// RecordRepayment stores a repayment and its MANQUANT movement. The debt is
// re-read inside the transaction.
func (s *Store) RecordRepayment(ctx context.Context, rep versement.Repayment, adj versement.LedgerAdjustment) error {
	return s.withTx(ctx, func(ts *txStore) error {
		outstanding, err := ts.balance(ctx, rep.CollecteurID, versement.AccountManquant.AccountID())
		if err != nil {
			return err
		}
		if rep.Montant.GreaterThan(outstanding) {
			return &versement.RepaymentExceedsDebtError{CollecteurID: rep.CollecteurID, Outstanding: outstanding, Requested: rep.Montant}
		}

		if _, err := ts.tx.ExecContext(ctx, `
			INSERT INTO repayments (id, collecteur_id, date, montant, outstanding, currency, comment, created_by, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, rep.ID, rep.CollecteurID, rep.Date.String(), rep.Montant.Value.String(), outstanding.Value.String(),
			s.currencyOf(rep.Montant), nullString(rep.Comment), nullString(rep.CreatedBy), formatTime(rep.CreatedAt)); err != nil {
			return fmt.Errorf("failed to insert repayment: %w", err)
		}

		if err := ts.Append(ctx, versement.RepaymentEntry(rep, adj)); err != nil {
			return err
		}
		return ts.audit(ctx, generic.AuditEntry{
			ActorID:  rep.CreatedBy,
			Action:   generic.AuditRepayment,
			EntityID: generic.EntityID(rep.CollecteurID),
			Payload: map[string]any{
				"repayment_id": rep.ID,
				"montant":      rep.Montant.Value.String(),
				"outstanding":  outstanding.Value.String(),
			},
		})
	})
}

// RecordMouvement books a client deposit or withdrawal. Movements on a
// deactivated client or collector are refused.
func (s *Store) RecordMouvement(ctx context.Context, m versement.Mouvement) error {
	entries, err := versement.MouvementEntries(m)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(ts *txStore) error {
		for _, ref := range []struct {
			entityType string
			id         string
		}{{"CLIENT", m.ClientID}, {"COLLECTEUR", m.CollecteurID}} {
			var active int
			err := ts.tx.QueryRowContext(ctx,
				"SELECT active FROM entities WHERE entity_type = ? AND id = ?", ref.entityType, ref.id,
			).Scan(&active)
			if err == nil && active == 0 {
				return fmt.Errorf("%w: %s %s is inactive", versement.ErrInvalidMouvement, ref.entityType, ref.id)
			}
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("failed to check %s %s: %w", ref.entityType, ref.id, err)
			}
		}

		return ts.AppendBatch(ctx, entries)
	})
}

// AccrueRemuneration credits a period's collector share once.
func (s *Store) AccrueRemuneration(ctx context.Context, a versement.Accrual) error {
	return s.withTx(ctx, func(ts *txStore) error {
		if err := ts.Append(ctx, versement.AccrualEntry(a)); err != nil {
			if errors.Is(err, generic.ErrDuplicateIdempotencyKey) {
				return fmt.Errorf("commission of %s for %s already accrued: %w", a.CollecteurID, a.Period, err)
			}
			return err
		}
		return ts.audit(ctx, generic.AuditEntry{
			Action:   generic.AuditCommissionAccrued,
			EntityID: generic.EntityID(a.CollecteurID),
			Payload: map[string]any{
				"period":  a.Period.Key(),
				"montant": a.Montant.Value.String(),
			},
		})
	})
}
