/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain packages from the wire contract used by the web back office
  and the collectors' mobile app.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

UNITS:
  Amounts are decimal strings in the configured currency (XAF by default).
  Commission percentages and tier rates are PERCENTS on the wire and
  fractions inside commission/. Only factory/ converts parameters; the
  preview DTOs below use factory.ToJSON for the same reason.

TYPES:
  Commission:
    CommissionPreviewRequest, CommissionPreviewDTO, SeniorityDTO, SplitDTO,
    AvailabilityDTO, AccrualRequest, AccrualDTO

  Versement:
    ReconciliationPreviewRequest, ReconciliationDTO, AdjustmentDTO,
    CommitVersementRequest, SnapshotDTO, RemboursementRequest,
    RepaymentDTO, MouvementRequest, MouvementDTO

  Entities:
    EntityDTO, RegisterEntityRequest, UpdateResultDTO, StatusRequest,
    StatusChangeDTO

  Audit:
    AuditEntryDTO

VALIDATION:
  Validation is done in the service layer, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/parameter.go: ParameterJSON type
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/focep/collecte-engine/commission"
	"github.com/focep/collecte-engine/factory"
	"github.com/focep/collecte-engine/generic"
	"github.com/focep/collecte-engine/guard"
	"github.com/focep/collecte-engine/service"
	"github.com/focep/collecte-engine/versement"
)

// =============================================================================
// COMMISSION
// =============================================================================

// CommissionPreviewRequest asks for the commission on a collected amount.
// When TenureMonths is omitted the collector's tenure is derived from the
// hire date on record.
type CommissionPreviewRequest struct {
	EntityType      string          `json:"entity_type"` // CLIENT or COLLECTOR
	EntityID        string          `json:"entity_id"`
	CollecteurID    string          `json:"collecteur_id,omitempty"`
	MontantCollecte decimal.Decimal `json:"montant_collecte"`
	TenureMonths    *float64        `json:"tenure_months,omitempty"`
}

type SeniorityDTO struct {
	Months               float64         `json:"months"`
	Level                string          `json:"level"`
	Label                string          `json:"label"`
	Coefficient          decimal.Decimal `json:"coefficient"`
	NextLevel            string          `json:"next_level,omitempty"`
	MonthsToNextLevel    float64         `json:"months_to_next_level"`
	EligibleForPromotion bool            `json:"eligible_for_promotion"`
}

type SplitDTO struct {
	PartCollecteur decimal.Decimal `json:"part_collecteur"`
	PartEMF        decimal.Decimal `json:"part_emf"`
	MontantTVA     decimal.Decimal `json:"montant_tva"`
	PartEMFNet     decimal.Decimal `json:"part_emf_net"`
	MontantTotal   decimal.Decimal `json:"montant_total"`
}

type CommissionPreviewDTO struct {
	Parameter         factory.ParameterJSON `json:"parameter"`
	ResolvedFrom      factory.ScopeJSON     `json:"resolved_from"`
	MontantCollecte   decimal.Decimal       `json:"montant_collecte"`
	CommissionBrute   decimal.Decimal       `json:"commission_brute"`
	Seniority         SeniorityDTO          `json:"seniority"`
	CommissionAjustee decimal.Decimal       `json:"commission_ajustee"`
	Repartition       SplitDTO              `json:"repartition"`
	Currency          string                `json:"currency"`
}

type AvailabilityDTO struct {
	ClientID    string           `json:"client_id"`
	Balance     decimal.Decimal  `json:"solde"`
	Commission  decimal.Decimal  `json:"commission"`
	Available   decimal.Decimal  `json:"solde_disponible"`
	Requested   *decimal.Decimal `json:"montant_demande,omitempty"`
	CanWithdraw *bool            `json:"retrait_possible,omitempty"`
}

// AccrualRequest credits a period's commission to the collector.
type AccrualRequest struct {
	PeriodStart     string          `json:"period_start"` // YYYY-MM-DD
	PeriodEnd       string          `json:"period_end"`
	MontantCollecte decimal.Decimal `json:"montant_collecte"`
	TenureMonths    *float64        `json:"tenure_months,omitempty"`
}

type AccrualDTO struct {
	CollecteurID   string               `json:"collecteur_id"`
	PeriodStart    string               `json:"period_start"`
	PeriodEnd      string               `json:"period_end"`
	PartCollecteur decimal.Decimal      `json:"part_collecteur"`
	Preview        CommissionPreviewDTO `json:"preview"`
}

func toSeniorityDTO(s commission.Seniority) SeniorityDTO {
	dto := SeniorityDTO{
		Months:               s.Months,
		Level:                string(s.Level),
		Label:                s.Label,
		Coefficient:          s.Coefficient,
		MonthsToNextLevel:    s.MonthsToNextLevel,
		EligibleForPromotion: s.EligibleForPromotion,
	}
	if s.NextLevel != nil {
		dto.NextLevel = string(*s.NextLevel)
	}
	return dto
}

func toPreviewDTO(f *factory.ParameterFactory, p service.CommissionPreview) CommissionPreviewDTO {
	return CommissionPreviewDTO{
		Parameter: f.ToJSON(p.Resolution.Parameter),
		ResolvedFrom: factory.ScopeJSON{
			Type:     string(p.Resolution.ResolvedFrom.Type),
			EntityID: p.Resolution.ResolvedFrom.EntityID,
		},
		MontantCollecte:   p.Collected.Value,
		CommissionBrute:   p.Raw.Value,
		Seniority:         toSeniorityDTO(p.Seniority),
		CommissionAjustee: p.Adjusted.Value,
		Repartition: SplitDTO{
			PartCollecteur: p.Split.PartCollecteur.Value,
			PartEMF:        p.Split.PartEMF.Value,
			MontantTVA:     p.Split.MontantTVA.Value,
			PartEMFNet:     p.Split.PartEMFNet.Value,
			MontantTotal:   p.Split.MontantTotal.Value,
		},
		Currency: string(p.Collected.Currency),
	}
}

// =============================================================================
// VERSEMENT
// =============================================================================

// ReconciliationPreviewRequest is a dry run: nothing is read or written.
type ReconciliationPreviewRequest struct {
	ServiceBalance decimal.Decimal `json:"service_balance"`
	MontantVerse   decimal.Decimal `json:"montant_verse"`
}

type AdjustmentDTO struct {
	Account string          `json:"account"`
	Delta   decimal.Decimal `json:"delta"`
	Type    string          `json:"type"`
	Reason  string          `json:"reason"`
}

type ReconciliationDTO struct {
	ID             string          `json:"id,omitempty"`
	CollecteurID   string          `json:"collecteur_id,omitempty"`
	Date           string          `json:"date,omitempty"`
	ServiceBalance decimal.Decimal `json:"service_balance"`
	MontantDu      decimal.Decimal `json:"montant_du"`
	MontantVerse   decimal.Decimal `json:"montant_verse"`
	Difference     decimal.Decimal `json:"difference"`
	Case           string          `json:"case"`
	Severity       string          `json:"severity"`
	Percentage     decimal.Decimal `json:"percentage"`
	Message        string          `json:"message"`
	Comment        string          `json:"comment,omitempty"`
	CreatedBy      string          `json:"created_by,omitempty"`
	CreatedAt      *time.Time      `json:"created_at,omitempty"`
	Adjustments    []AdjustmentDTO `json:"adjustments,omitempty"`
}

// CommitVersementRequest closes the collector's journal for Date (today
// when empty).
type CommitVersementRequest struct {
	Date         string          `json:"date,omitempty"`
	MontantVerse decimal.Decimal `json:"montant_verse"`
	Comment      string          `json:"comment,omitempty"`
	CreatedBy    string          `json:"created_by,omitempty"`
}

type SnapshotDTO struct {
	CollecteurID string          `json:"collecteur_id"`
	Service      decimal.Decimal `json:"service"`
	Manquant     decimal.Decimal `json:"manquant"`
	Attente      decimal.Decimal `json:"attente"`
	Remuneration decimal.Decimal `json:"remuneration"`
	MontantDu    decimal.Decimal `json:"montant_du"`
}

type RemboursementRequest struct {
	Montant   decimal.Decimal `json:"montant"`
	Comment   string          `json:"comment,omitempty"`
	CreatedBy string          `json:"created_by,omitempty"`
}

type RepaymentDTO struct {
	ID           string          `json:"id"`
	CollecteurID string          `json:"collecteur_id"`
	Date         string          `json:"date"`
	Montant      decimal.Decimal `json:"montant"`
	Outstanding  decimal.Decimal `json:"outstanding_before"`
	Remaining    decimal.Decimal `json:"outstanding_after"`
	Comment      string          `json:"comment,omitempty"`
	CreatedBy    string          `json:"created_by,omitempty"`
}

type MouvementRequest struct {
	ID           string          `json:"id,omitempty"`
	CollecteurID string          `json:"collecteur_id"`
	ClientID     string          `json:"client_id"`
	Kind         string          `json:"kind"` // EPARGNE or RETRAIT
	Montant      decimal.Decimal `json:"montant"`
	Date         string          `json:"date,omitempty"`
}

type MouvementDTO struct {
	ID           string          `json:"id"`
	CollecteurID string          `json:"collecteur_id"`
	ClientID     string          `json:"client_id"`
	Kind         string          `json:"kind"`
	Montant      decimal.Decimal `json:"montant"`
	Date         string          `json:"date"`
}

func toReconciliationDTO(tx versement.Transaction, adjustments []versement.LedgerAdjustment) ReconciliationDTO {
	dto := ReconciliationDTO{
		ID:             tx.ID,
		CollecteurID:   tx.CollecteurID,
		ServiceBalance: tx.ServiceBalance.Value,
		MontantDu:      tx.MontantDu.Value,
		MontantVerse:   tx.MontantVerse.Value,
		Difference:     tx.Difference.Value,
		Case:           string(tx.Case),
		Severity:       string(tx.Severity),
		Percentage:     tx.Percentage,
		Message:        tx.Message,
		Comment:        tx.Comment,
		CreatedBy:      tx.CreatedBy,
	}
	if !tx.Date.IsZero() {
		dto.Date = tx.Date.String()
	}
	if !tx.CreatedAt.IsZero() {
		created := tx.CreatedAt
		dto.CreatedAt = &created
	}
	for _, a := range adjustments {
		dto.Adjustments = append(dto.Adjustments, AdjustmentDTO{
			Account: string(a.Account),
			Delta:   a.Delta.Value,
			Type:    string(a.Type),
			Reason:  a.Reason,
		})
	}
	return dto
}

func toSnapshotDTO(s versement.AccountSnapshot) SnapshotDTO {
	return SnapshotDTO{
		CollecteurID: s.CollecteurID,
		Service:      s.Service.Value,
		Manquant:     s.Manquant.Value,
		Attente:      s.Attente.Value,
		Remuneration: s.Remuneration.Value,
		MontantDu:    s.MontantDu().Value,
	}
}

func toRepaymentDTO(r versement.Repayment) RepaymentDTO {
	return RepaymentDTO{
		ID:           r.ID,
		CollecteurID: r.CollecteurID,
		Date:         r.Date.String(),
		Montant:      r.Montant.Value,
		Outstanding:  r.Outstanding.Value,
		Remaining:    r.Outstanding.Sub(r.Montant).Value,
		Comment:      r.Comment,
		CreatedBy:    r.CreatedBy,
	}
}

func toMouvementDTO(m versement.Mouvement) MouvementDTO {
	return MouvementDTO{
		ID:           m.ID,
		CollecteurID: m.CollecteurID,
		ClientID:     m.ClientID,
		Kind:         string(m.Kind),
		Montant:      m.Montant.Value,
		Date:         m.Date.String(),
	}
}

// =============================================================================
// ENTITIES
// =============================================================================

type RegisterEntityRequest struct {
	ID           string         `json:"id"`
	CollecteurID string         `json:"collecteur_id,omitempty"`
	HireDate     string         `json:"hire_date,omitempty"` // collectors only
	Fields       map[string]any `json:"fields"`
}

type EntityDTO struct {
	Type         string         `json:"type"`
	ID           string         `json:"id"`
	CollecteurID string         `json:"collecteur_id,omitempty"`
	Fields       map[string]any `json:"fields"`
	Active       bool           `json:"active"`
	StatusReason string         `json:"status_reason,omitempty"`
	HireDate     string         `json:"hire_date,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type UpdateResultDTO struct {
	Applied  []string          `json:"applied"`
	Rejected map[string]string `json:"rejected,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
}

type StatusRequest struct {
	Active bool   `json:"active"`
	Reason string `json:"reason,omitempty"`
}

type StatusChangeDTO struct {
	EntityType  string   `json:"entity_type"`
	EntityID    string   `json:"entity_id"`
	Active      bool     `json:"active"`
	Reason      string   `json:"reason,omitempty"`
	Message     string   `json:"message"`
	NextActions []string `json:"next_actions,omitempty"`
}

type AllowedFieldsDTO struct {
	EntityType string   `json:"entity_type"`
	Role       string   `json:"role"`
	Fields     []string `json:"fields"`
}

func toEntityDTO(e guard.Entity) EntityDTO {
	dto := EntityDTO{
		Type:         string(e.Type),
		ID:           e.ID,
		CollecteurID: e.CollecteurID,
		Fields:       e.Fields,
		Active:       e.Active,
		StatusReason: e.StatusReason,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
	if dto.Fields == nil {
		dto.Fields = map[string]any{}
	}
	if e.HireDate != nil {
		dto.HireDate = e.HireDate.Format("2006-01-02")
	}
	return dto
}

func toStatusChangeDTO(sc guard.StatusChange) StatusChangeDTO {
	return StatusChangeDTO{
		EntityType:  string(sc.EntityType),
		EntityID:    sc.EntityID,
		Active:      sc.Active,
		Reason:      sc.Reason,
		Message:     sc.Message,
		NextActions: sc.NextActions,
	}
}

// =============================================================================
// AUDIT
// =============================================================================

type AuditEntryDTO struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	ActorID   string         `json:"actor_id,omitempty"`
	Action    string         `json:"action"`
	EntityID  string         `json:"entity_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

func toAuditEntryDTO(e generic.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:        e.ID,
		Timestamp: e.Timestamp.Time,
		ActorID:   e.ActorID,
		Action:    string(e.Action),
		EntityID:  string(e.EntityID),
		Payload:   e.Payload,
	}
}
