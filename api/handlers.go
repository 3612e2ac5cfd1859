/*
handlers.go - HTTP API handlers for commissions and versements

PURPOSE:
  Exposes the collecte engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the service layer. No business rule
  lives here.

ENDPOINTS:
  Commissions:
    POST   /api/commissions/preview                 Commission on a collected amount
    GET    /api/collecteurs/{id}/seniority          Tenure level and promotion outlook
    POST   /api/collecteurs/{id}/accruals           Credit a period's commission
    GET    /api/clients/{id}/available-balance      Withdrawable part of a balance (montant= checks a withdrawal)

  Parameters:
    GET    /api/parameters                          List (include_inactive=true for history)
    POST   /api/parameters                          Save, superseding the scope's active one
    POST   /api/parameters/{id}/deactivate          Turn off; parameters are never deleted

  Versements:
    POST   /api/versements/preview                  Dry-run reconciliation
    POST   /api/collecteurs/{id}/versements         Close the collector's day
    GET    /api/collecteurs/{id}/versements         Closings in [from, to]
    GET    /api/collecteurs/{id}/comptes            SERVICE / MANQUANT / ATTENTE / REMUNERATION
    POST   /api/collecteurs/{id}/remboursements     Repay a shortfall
    POST   /api/mouvements                          Record a deposit or withdrawal

  Entities (type is "clients" or "collecteurs"):
    POST   /api/entities/{type}                     Register
    GET    /api/entities/{type}                     List (collecteur_id filter)
    GET    /api/entities/{type}/allowed-fields      Fields the caller's role may edit
    GET    /api/entities/{type}/{id}                Details
    PATCH  /api/entities/{type}/{id}                Guarded update
    PUT    /api/entities/{type}/{id}/status         Activate or deactivate
    DELETE /api/entities/{type}/{id}                Always 403

  Audit:
    GET    /api/audit                               Audit trail (entity_id, actor_id, action, from, to)

ROLES:
  The caller's role comes from the X-User-Role header (ROLE_ADMIN, ADMIN,
  COLLECTEUR, ...), or the role query parameter. Authentication happens
  upstream; this layer trusts the header.

ERROR HANDLING:
  Errors are returned as JSON with the status of their category
  (see errors.go):
  - 400: Validation errors, invalid input
  - 403: Forbidden operations (deletes)
  - 404: Unknown client or collector
  - 409: Day already closed, closing in progress, stale snapshot
  - 422: Missing or malformed commission parameter
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - errors.go: Category to status mapping
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/focep/collecte-engine/commission"
	"github.com/focep/collecte-engine/factory"
	"github.com/focep/collecte-engine/generic"
	"github.com/focep/collecte-engine/guard"
	"github.com/focep/collecte-engine/service"
	"github.com/focep/collecte-engine/versement"
)

// RoleHeader carries the caller's role.
const RoleHeader = "X-User-Role"

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service          *service.Service
	ParameterFactory *factory.ParameterFactory

	logger  *slog.Logger
	health  func(ctx context.Context) error
	metrics http.Handler
}

type HandlerOption func(*Handler)

func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = logger }
}

// WithHealthCheck is called by /health, usually the store's Ping.
func WithHealthCheck(check func(ctx context.Context) error) HandlerOption {
	return func(h *Handler) { h.health = check }
}

// WithMetricsHandler mounts a Prometheus handler on /metrics.
func WithMetricsHandler(m http.Handler) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// WithParameterFactory replaces the lenient factory, e.g. with the strict one.
func WithParameterFactory(f *factory.ParameterFactory) HandlerOption {
	return func(h *Handler) { h.ParameterFactory = f }
}

// NewHandler creates a new handler in front of svc.
func NewHandler(svc *service.Service, opts ...HandlerOption) *Handler {
	h := &Handler{
		Service:          svc,
		ParameterFactory: factory.NewParameterFactory(),
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) amount(d decimal.Decimal) generic.Amount {
	return generic.NewAmount(d, h.Service.Currency())
}

// =============================================================================
// COMMISSION HANDLERS
// =============================================================================

// PreviewCommission computes a commission without writing anything.
func (h *Handler) PreviewCommission(w http.ResponseWriter, r *http.Request) {
	var req CommissionPreviewRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ref := commission.EntityRef{
		Type:         parseScopeType(req.EntityType),
		ID:           req.EntityID,
		CollecteurID: req.CollecteurID,
	}
	if ref.Type != commission.ScopeClient && ref.Type != commission.ScopeCollector {
		writeError(w, http.StatusBadRequest, "entity_type must be CLIENT or COLLECTEUR", nil)
		return
	}

	tenure, err := h.tenure(r.Context(), ref, req.TenureMonths)
	if err != nil {
		h.fail(w, r, "Failed to determine tenure", err)
		return
	}

	preview, err := h.Service.ComputeCommissionPreview(r.Context(), ref, h.amount(req.MontantCollecte), tenure)
	if err != nil {
		h.fail(w, r, "Failed to compute commission", err)
		return
	}
	writeJSON(w, http.StatusOK, toPreviewDTO(h.ParameterFactory, preview))
}

// GetSeniority reports a collector's level. tenure_months overrides the
// tenure derived from the hire date.
func (h *Handler) GetSeniority(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var given *float64
	if raw := r.URL.Query().Get("tenure_months"); raw != "" {
		months, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid tenure_months", err)
			return
		}
		given = &months
	}

	tenure, err := h.tenure(r.Context(), commission.EntityRef{Type: commission.ScopeCollector, ID: id}, given)
	if err != nil {
		h.fail(w, r, "Failed to determine tenure", err)
		return
	}
	seniority, err := h.Service.AssessSeniority(tenure)
	if err != nil {
		h.fail(w, r, "Failed to assess seniority", err)
		return
	}
	writeJSON(w, http.StatusOK, toSeniorityDTO(seniority))
}

// AccrueCommission credits the collector share of a period's commission.
func (h *Handler) AccrueCommission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req AccrualRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	period, err := parsePeriod(req.PeriodStart, req.PeriodEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}
	ref := commission.EntityRef{Type: commission.ScopeCollector, ID: id}
	tenure, err := h.tenure(r.Context(), ref, req.TenureMonths)
	if err != nil {
		h.fail(w, r, "Failed to determine tenure", err)
		return
	}

	res, err := h.Service.AccrueCommission(r.Context(), service.AccrualRequest{
		CollecteurID: id,
		Period:       period,
		Collected:    h.amount(req.MontantCollecte),
		TenureMonths: tenure,
	})
	if err != nil {
		h.fail(w, r, "Failed to accrue commission", err)
		return
	}
	writeJSON(w, http.StatusCreated, AccrualDTO{
		CollecteurID:   res.Accrual.CollecteurID,
		PeriodStart:    res.Accrual.Period.Start.String(),
		PeriodEnd:      res.Accrual.Period.End.String(),
		PartCollecteur: res.Accrual.Montant.Value,
		Preview:        toPreviewDTO(h.ParameterFactory, res.Preview),
	})
}

// GetAvailableBalance returns max(0, solde - commission) for a client.
// With montant set it also says whether that withdrawal fits.
func (h *Handler) GetAvailableBalance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()

	balance, err := decimal.NewFromString(q.Get("solde"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid solde", err)
		return
	}
	var requested *decimal.Decimal
	if raw := q.Get("montant"); raw != "" {
		m, err := decimal.NewFromString(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid montant", err)
			return
		}
		requested = &m
	}

	av, err := h.Service.AvailableBalance(r.Context(), id, q.Get("collecteur_id"), h.amount(balance))
	if err != nil {
		h.fail(w, r, "Failed to compute available balance", err)
		return
	}
	dto := AvailabilityDTO{
		ClientID:   id,
		Balance:    av.Balance.Value,
		Commission: av.Commission.Value,
		Available:  av.Available.Value,
	}
	if requested != nil {
		ok := av.CanWithdraw(h.amount(*requested))
		dto.Requested = requested
		dto.CanWithdraw = &ok
	}
	writeJSON(w, http.StatusOK, dto)
}

// tenure returns given when set, otherwise the collector's tenure on record.
func (h *Handler) tenure(ctx context.Context, ref commission.EntityRef, given *float64) (float64, error) {
	if given != nil {
		return *given, nil
	}
	collecteurID := ref.CollecteurID
	if ref.Type == commission.ScopeCollector {
		collecteurID = ref.ID
	}
	if collecteurID == "" {
		return 0, fmt.Errorf("%w: tenure_months or collecteur_id is required", service.ErrInvalidRequest)
	}
	return h.Service.CollectorTenure(ctx, collecteurID)
}

// =============================================================================
// PARAMETER HANDLERS
// =============================================================================

// ListParameters returns active parameters, or all versions with
// include_inactive=true.
func (h *Handler) ListParameters(w http.ResponseWriter, r *http.Request) {
	includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("include_inactive"))

	params, err := h.Service.ListParameters(r.Context(), includeInactive)
	if err != nil {
		h.fail(w, r, "Failed to list parameters", err)
		return
	}
	dtos := make([]factory.ParameterJSON, len(params))
	for i, p := range params {
		dtos[i] = h.ParameterFactory.ToJSON(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateParameter parses a parameter in UI units and saves it.
func (h *Handler) CreateParameter(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body", err)
		return
	}
	p, err := h.ParameterFactory.ParseParameter(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid parameter", err)
		return
	}

	saved, err := h.Service.SaveParameter(r.Context(), p)
	if err != nil {
		h.fail(w, r, "Failed to save parameter", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.ParameterFactory.ToJSON(saved))
}

// DeactivateParameter turns a parameter off.
func (h *Handler) DeactivateParameter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Service.DeactivateParameter(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to deactivate parameter", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deactivated"})
}

// =============================================================================
// VERSEMENT HANDLERS
// =============================================================================

// PreviewReconciliation classifies a versement against a SERVICE balance.
// Nothing is read from or written to the store.
func (h *Handler) PreviewReconciliation(w http.ResponseWriter, r *http.Request) {
	var req ReconciliationPreviewRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	preview, err := h.Service.PreviewReconciliation(h.amount(req.ServiceBalance), h.amount(req.MontantVerse))
	if err != nil {
		h.fail(w, r, "Failed to preview reconciliation", err)
		return
	}
	writeJSON(w, http.StatusOK, toReconciliationDTO(preview.Transaction, preview.Adjustments))
}

// CommitVersement closes the collector's journal for the day.
func (h *Handler) CommitVersement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req CommitVersementRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	var date generic.TimePoint
	if req.Date != "" {
		d, err := generic.ParseDay(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
		date = d
	}

	tx, err := h.Service.CommitReconciliation(r.Context(), service.CommitRequest{
		CollecteurID: id,
		Date:         date,
		MontantVerse: h.amount(req.MontantVerse),
		Comment:      req.Comment,
		CreatedBy:    req.CreatedBy,
	})
	if err != nil {
		h.fail(w, r, "Failed to close journal", err)
		return
	}
	writeJSON(w, http.StatusCreated, toReconciliationDTO(tx, nil))
}

// ListVersements returns closings in [from, to]; the last 30 days by default.
func (h *Handler) ListVersements(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()

	to := generic.Today()
	if raw := q.Get("to"); raw != "" {
		d, err := generic.ParseDay(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
			return
		}
		to = d
	}
	from := to.AddDays(-30)
	if raw := q.Get("from"); raw != "" {
		d, err := generic.ParseDay(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
			return
		}
		from = d
	}

	txs, err := h.Service.ListVersements(r.Context(), id, from, to)
	if err != nil {
		h.fail(w, r, "Failed to list versements", err)
		return
	}
	dtos := make([]ReconciliationDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toReconciliationDTO(tx, nil)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetAccounts returns the collector's account balances.
func (h *Handler) GetAccounts(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Service.AccountSnapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "Failed to load accounts", err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotDTO(snap))
}

// CreateRemboursement books a repayment against the MANQUANT account.
func (h *Handler) CreateRemboursement(w http.ResponseWriter, r *http.Request) {
	var req RemboursementRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rep, err := h.Service.Remboursement(r.Context(), service.RemboursementRequest{
		CollecteurID: chi.URLParam(r, "id"),
		Montant:      h.amount(req.Montant),
		Comment:      req.Comment,
		CreatedBy:    req.CreatedBy,
	})
	if err != nil {
		h.fail(w, r, "Failed to record repayment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRepaymentDTO(rep))
}

// CreateMouvement records a deposit or withdrawal made with a collector.
func (h *Handler) CreateMouvement(w http.ResponseWriter, r *http.Request) {
	var req MouvementRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	m := versement.Mouvement{
		ID:           req.ID,
		CollecteurID: req.CollecteurID,
		ClientID:     req.ClientID,
		Kind:         versement.MouvementKind(strings.ToUpper(req.Kind)),
		Montant:      h.amount(req.Montant),
	}
	if req.Date != "" {
		d, err := generic.ParseDay(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
		m.Date = d
	}

	recorded, err := h.Service.RecordCollecte(r.Context(), m)
	if err != nil {
		h.fail(w, r, "Failed to record mouvement", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMouvementDTO(recorded))
}

// =============================================================================
// ENTITY HANDLERS
// =============================================================================

// RegisterEntity creates a client or collector record.
func (h *Handler) RegisterEntity(w http.ResponseWriter, r *http.Request) {
	entityType, ok := h.entityType(w, r)
	if !ok {
		return
	}
	var req RegisterEntityRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	e := guard.Entity{
		Type:         entityType,
		ID:           req.ID,
		CollecteurID: req.CollecteurID,
		Fields:       req.Fields,
	}
	if req.HireDate != "" {
		hire, err := time.Parse("2006-01-02", req.HireDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid hire_date (use YYYY-MM-DD)", err)
			return
		}
		e.HireDate = &hire
	}

	saved, err := h.Service.RegisterEntity(r.Context(), e)
	if err != nil {
		h.fail(w, r, "Failed to register entity", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntityDTO(saved))
}

func (h *Handler) ListEntities(w http.ResponseWriter, r *http.Request) {
	entityType, ok := h.entityType(w, r)
	if !ok {
		return
	}
	entities, err := h.Service.ListEntities(r.Context(), entityType, r.URL.Query().Get("collecteur_id"))
	if err != nil {
		h.fail(w, r, "Failed to list entities", err)
		return
	}
	dtos := make([]EntityDTO, len(entities))
	for i, e := range entities {
		dtos[i] = toEntityDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetEntity(w http.ResponseWriter, r *http.Request) {
	entityType, ok := h.entityType(w, r)
	if !ok {
		return
	}
	e, err := h.Service.GetEntity(r.Context(), entityType, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "Failed to get entity", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntityDTO(e))
}

// UpdateEntity applies the fields the caller's role may edit. Rejected
// fields come back as warnings with a 200 as long as one field went through.
func (h *Handler) UpdateEntity(w http.ResponseWriter, r *http.Request) {
	entityType, ok := h.entityType(w, r)
	if !ok {
		return
	}
	role, ok := callerRole(w, r)
	if !ok {
		return
	}
	var payload map[string]any
	if err := decode(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.Service.GuardedUpdate(r.Context(), entityType, role, chi.URLParam(r, "id"), payload)
	if err != nil {
		h.fail(w, r, "Update refused", err)
		return
	}
	writeJSON(w, http.StatusOK, UpdateResultDTO{
		Applied:  res.Applied,
		Rejected: res.Rejected,
		Warnings: res.Warnings,
	})
}

// SetEntityStatus is the only way to take a record out of service.
func (h *Handler) SetEntityStatus(w http.ResponseWriter, r *http.Request) {
	entityType, ok := h.entityType(w, r)
	if !ok {
		return
	}
	var req StatusRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	sc, err := h.Service.ToggleStatus(r.Context(), entityType, chi.URLParam(r, "id"), req.Active, req.Reason)
	if err != nil {
		h.fail(w, r, "Failed to change status", err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusChangeDTO(sc))
}

// DeleteEntity always answers 403 Forbidden.
func (h *Handler) DeleteEntity(w http.ResponseWriter, r *http.Request) {
	entityType, ok := h.entityType(w, r)
	if !ok {
		return
	}
	err := h.Service.DeleteEntity(r.Context(), entityType, chi.URLParam(r, "id"))
	h.fail(w, r, "Suppression interdite: utilisez la désactivation", err)
}

func (h *Handler) GetAllowedFields(w http.ResponseWriter, r *http.Request) {
	entityType, ok := h.entityType(w, r)
	if !ok {
		return
	}
	role, ok := callerRole(w, r)
	if !ok {
		return
	}
	fields := h.Service.AllowedFields(entityType, role)
	if fields == nil {
		fields = []string{}
	}
	writeJSON(w, http.StatusOK, AllowedFieldsDTO{
		EntityType: string(entityType),
		Role:       string(role),
		Fields:     fields,
	})
}

// =============================================================================
// HEALTH
// =============================================================================

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Store unreachable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// =============================================================================
// AUDIT HANDLERS
// =============================================================================

// ListAudit returns the audit trail, oldest first. action may repeat or be
// comma-separated; from and to are YYYY-MM-DD and inclusive.
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter generic.AuditFilter

	if v := q.Get("entity_id"); v != "" {
		id := generic.EntityID(v)
		filter.EntityID = &id
	}
	if v := q.Get("actor_id"); v != "" {
		filter.ActorID = &v
	}
	for _, raw := range q["action"] {
		for _, a := range strings.Split(raw, ",") {
			if a = strings.TrimSpace(a); a != "" {
				filter.Actions = append(filter.Actions, generic.AuditAction(a))
			}
		}
	}
	if v := q.Get("from"); v != "" {
		d, err := generic.ParseDay(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
			return
		}
		filter.From = &d
	}
	if v := q.Get("to"); v != "" {
		d, err := generic.ParseDay(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
			return
		}
		// Inclusive of the whole day.
		end := generic.TimePoint{Time: d.Time.Add(24*time.Hour - time.Second), Granularity: generic.GranularityMinute}
		filter.To = &end
	}

	entries, err := h.Service.AuditTrail(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "Failed to load audit trail", err)
		return
	}
	out := make([]AuditEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, toAuditEntryDTO(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

func parsePeriod(start, end string) (generic.Period, error) {
	s, err := generic.ParseDay(start)
	if err != nil {
		return generic.Period{}, fmt.Errorf("period_start: %w", err)
	}
	e, err := generic.ParseDay(end)
	if err != nil {
		return generic.Period{}, fmt.Errorf("period_end: %w", err)
	}
	return generic.Period{Start: s, End: e}, nil
}

// parseScopeType accepts the French and English spellings of the
// collector scope.
func parseScopeType(raw string) commission.ScopeType {
	switch t := strings.ToUpper(strings.TrimSpace(raw)); t {
	case "COLLECTEUR":
		return commission.ScopeCollector
	default:
		return commission.ScopeType(t)
	}
}

// entityType maps the {type} path segment and writes a 400 when unknown.
func (h *Handler) entityType(w http.ResponseWriter, r *http.Request) (guard.EntityType, bool) {
	switch raw := strings.ToLower(chi.URLParam(r, "type")); raw {
	case "clients", "client":
		return guard.EntityClient, true
	case "collecteurs", "collecteur":
		return guard.EntityCollecteur, true
	default:
		writeError(w, http.StatusBadRequest, "Unknown entity type", fmt.Errorf("%w: %q", guard.ErrUnknownEntityType, raw))
		return "", false
	}
}

func callerRole(w http.ResponseWriter, r *http.Request) (guard.Role, bool) {
	raw := r.Header.Get(RoleHeader)
	if raw == "" {
		raw = r.URL.Query().Get("role")
	}
	if strings.TrimSpace(raw) == "" {
		writeError(w, http.StatusBadRequest, "Missing role", fmt.Errorf("%s header is required", RoleHeader))
		return "", false
	}
	return guard.NormalizeRole(raw), true
}
