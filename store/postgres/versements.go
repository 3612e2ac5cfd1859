package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/focep/collecte-engine/generic"
	"github.com/focep/collecte-engine/versement"
)

// GetAccountSnapshot reads the four collector balances.
func (s *Store) GetAccountSnapshot(ctx context.Context, collecteurID string) (versement.AccountSnapshot, error) {
	return versement.SnapshotFrom(ctx, generic.NewLedger(s), collecteurID, s.currency)
}

// CommitVersement closes the day under the collector's advisory lock.
func (s *Store) CommitVersement(ctx context.Context, tx versement.Transaction, adjustments []versement.LedgerAdjustment) error {
	return s.withTx(ctx, func(ts *txStore) error {
		if err := ts.lockCollector(ctx, tx.CollecteurID); err != nil {
			return err
		}

		var existingID string
		err := ts.tx.QueryRowContext(ctx,
			"SELECT id FROM versements WHERE collecteur_id = $1 AND date = $2",
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
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`, tx.ID, tx.CollecteurID, tx.Date.String(),
			tx.ServiceBalance.Value, tx.MontantDu.Value, tx.MontantVerse.Value, tx.Difference.Value,
			s.currencyOf(tx.MontantVerse), tx.Case, tx.Severity, tx.Percentage, tx.Message,
			nullString(tx.Comment), nullString(tx.CreatedBy), tx.CreatedAt.UTC())
		if err != nil {
			if isUniqueViolation(err) {
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
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, collecteur_id, date, service_balance, montant_du, montant_verse, difference, currency,
		       case_name, severity, percentage, message, comment, created_by, created_at
		FROM versements
		WHERE collecteur_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`, collecteurID, generic.DayOf(from.Time).String(), generic.DayOf(to.Time).String())
	if err != nil {
		return nil, fmt.Errorf("failed to query versements: %w", err)
	}
	defer rows.Close()

	var out []versement.Transaction
	for rows.Next() {
		var (
			tx                             versement.Transaction
			date, createdAt                time.Time
			service, du, verse, difference decimal.Decimal
			currency                       string
			comment, createdBy             sql.NullString
		)
		if err := rows.Scan(&tx.ID, &tx.CollecteurID, &date, &service, &du, &verse, &difference, &currency,
			&tx.Case, &tx.Severity, &tx.Percentage, &tx.Message, &comment, &createdBy, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan versement: %w", err)
		}
		c := generic.Currency(currency)
		tx.Date = generic.DayOf(date)
		tx.ServiceBalance = generic.NewAmount(service, c)
		tx.MontantDu = generic.NewAmount(du, c)
		tx.MontantVerse = generic.NewAmount(verse, c)
		tx.Difference = generic.NewAmount(difference, c)
		tx.Comment = comment.String
		tx.CreatedBy = createdBy.String
		tx.CreatedAt = createdAt.UTC()
		out = append(out, tx)
	}
	return out, rows.Err()
}

// RecordRepayment re-reads the debt under the collector lock.
func (s *Store) RecordRepayment(ctx context.Context, rep versement.Repayment, adj versement.LedgerAdjustment) error {
	return s.withTx(ctx, func(ts *txStore) error {
		if err := ts.lockCollector(ctx, rep.CollecteurID); err != nil {
			return err
		}
		outstanding, err := ts.balance(ctx, rep.CollecteurID, versement.AccountManquant.AccountID())
		if err != nil {
			return err
		}
		if rep.Montant.GreaterThan(outstanding) {
			return &versement.RepaymentExceedsDebtError{CollecteurID: rep.CollecteurID, Outstanding: outstanding, Requested: rep.Montant}
		}

		if _, err := ts.tx.ExecContext(ctx, `
			INSERT INTO repayments (id, collecteur_id, date, montant, outstanding, currency, comment, created_by, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, rep.ID, rep.CollecteurID, rep.Date.String(), rep.Montant.Value, outstanding.Value,
			s.currencyOf(rep.Montant), nullString(rep.Comment), nullString(rep.CreatedBy), rep.CreatedAt.UTC()); err != nil {
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

// RecordMouvement refuses movements on deactivated records.
func (s *Store) RecordMouvement(ctx context.Context, m versement.Mouvement) error {
	entries, err := versement.MouvementEntries(m)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(ts *txStore) error {
		if err := ts.lockCollector(ctx, m.CollecteurID); err != nil {
			return err
		}
		for _, ref := range []struct{ entityType, id string }{{"CLIENT", m.ClientID}, {"COLLECTEUR", m.CollecteurID}} {
			var active bool
			err := ts.tx.QueryRowContext(ctx,
				"SELECT active FROM entities WHERE entity_type = $1 AND id = $2", ref.entityType, ref.id,
			).Scan(&active)
			if err == nil && !active {
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
			Payload:  map[string]any{"period": a.Period.Key(), "montant": a.Montant.Value.String()},
		})
	})
}
