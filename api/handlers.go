/*
handlers.go - HTTP API handlers for the commission engine

PURPOSE:
  Exposes the commission engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Commissions:
    GET    /api/commissions                        List (role-filtered)
    GET    /api/commissions/{id}                   Single record
    POST   /api/commissions/generate               Run batch generation (admin)
    POST   /api/commissions/{id}/request-payment   pending -> paymentRequested
    POST   /api/commissions/{id}/approve-payment   -> paid (admin)
    POST   /api/commissions/{id}/reject            -> rejected (admin)
    POST   /api/commissions/{id}/cancel            -> cancelled (admin)

  Configuration (admin):
    GET    /api/tier-rules                         Current rule set
    PUT    /api/tier-rules                         Replace rule set
    GET    /api/representatives                    List representatives
    POST   /api/representatives                    Create/update representative
    POST   /api/activity                           Record activity summary

ACTOR IDENTITY:
  The transport does not own authentication; the source system's session
  layer does. Callers supply the established identity via the
  X-Actor-ID and X-Actor-Role headers. Authorization is NOT decided
  here - the engine enforces it - but requests without an actor are
  rejected up front.

ERROR HANDLING:
  Errors are returned as JSON {kind, message} with appropriate status:
  - 400: Malformed input
  - 403: Permission denied
  - 404: Record not found
  - 409: Conflict (duplicate period, invalid transition)
  - 422: Configuration errors (bad rule set, missing revenue)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Generator  *commission.BatchGenerator
	Settlement *commission.SettlementService
	Facade     *commission.Facade
}

// NewHandler wires the engine components around the given store. The
// SQLite store serves as both the commission repository and the
// collaborator sources in a standalone deployment.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store: store,
		Generator: &commission.BatchGenerator{
			Store:     store,
			Directory: store,
			Activity:  store,
			Rules:     store,
		},
		Settlement: &commission.SettlementService{Store: store},
		Facade:     &commission.Facade{Store: store},
	}
}

// actorFrom extracts the caller identity from headers. ok is false when
// no identity was supplied.
func actorFrom(r *http.Request) (commission.Actor, bool) {
	id := r.Header.Get("X-Actor-ID")
	role := commission.Role(r.Header.Get("X-Actor-Role"))
	if id == "" || (role != commission.RoleAdmin && role != commission.RoleRepresentative) {
		return commission.Actor{}, false
	}
	return commission.Actor{ID: commission.RepresentativeID(id), Role: role}, true
}

// =============================================================================
// COMMISSION HANDLERS
// =============================================================================

// ListCommissions returns commissions visible to the actor.
func (h *Handler) ListCommissions(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing_actor", "X-Actor-ID and X-Actor-Role headers are required", nil)
		return
	}

	filter := commission.QueryFilter{
		RepresentativeID: commission.RepresentativeID(r.URL.Query().Get("representativeId")),
		Status:           commission.Status(r.URL.Query().Get("status")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_status", "unknown status filter: "+string(filter.Status), nil)
		return
	}
	if v := r.URL.Query().Get("periodFrom"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_period", "periodFrom must be YYYY-MM-DD", err)
			return
		}
		filter.PeriodFrom = t
	}
	if v := r.URL.Query().Get("periodTo"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_period", "periodTo must be YYYY-MM-DD", err)
			return
		}
		filter.PeriodTo = t
	}

	commissions, err := h.Facade.Query(r.Context(), actor, filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]CommissionDTO, 0, len(commissions))
	for _, c := range commissions {
		dtos = append(dtos, toCommissionDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCommission returns a single record if the actor may see it.
func (h *Handler) GetCommission(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing_actor", "X-Actor-ID and X-Actor-Role headers are required", nil)
		return
	}

	c, err := h.Facade.Get(r.Context(), actor, commission.CommissionID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCommissionDTO(c))
}

// Generate runs the batch generator for a period.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing_actor", "X-Actor-ID and X-Actor-Role headers are required", nil)
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", err)
		return
	}

	start, err := time.Parse("2006-01-02", req.PeriodStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_period", "period_start must be YYYY-MM-DD", err)
		return
	}
	end, err := time.Parse("2006-01-02", req.PeriodEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_period", "period_end must be YYYY-MM-DD", err)
		return
	}
	period, err := commission.NewPeriod(start, end)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	report, err := h.Generator.GenerateForPeriod(r.Context(), period, actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(report))
}

// RequestPayment moves pending -> paymentRequested.
func (h *Handler) RequestPayment(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.Settlement.RequestPayment)
}

// ApprovePayment moves pending/paymentRequested -> paid.
func (h *Handler) ApprovePayment(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.Settlement.ApprovePayment)
}

// RejectCommission moves pending/paymentRequested -> rejected.
func (h *Handler) RejectCommission(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.Settlement.Reject)
}

// CancelCommission moves pending/paymentRequested -> cancelled.
func (h *Handler) CancelCommission(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.Settlement.Cancel)
}

type settleFn func(ctx context.Context, id commission.CommissionID, actor commission.Actor) (commission.Commission, error)

func (h *Handler) settle(w http.ResponseWriter, r *http.Request, op settleFn) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing_actor", "X-Actor-ID and X-Actor-Role headers are required", nil)
		return
	}

	updated, err := op(r.Context(), commission.CommissionID(chi.URLParam(r, "id")), actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCommissionDTO(updated))
}

// =============================================================================
// CONFIGURATION HANDLERS (admin)
// =============================================================================

func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) (commission.Actor, bool) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing_actor", "X-Actor-ID and X-Actor-Role headers are required", nil)
		return commission.Actor{}, false
	}
	if !actor.Role.IsAdmin() {
		writeError(w, http.StatusForbidden, "permission_denied", "administrator role required", nil)
		return commission.Actor{}, false
	}
	return actor, true
}

// GetTierRules returns the current rule set.
func (h *Handler) GetTierRules(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	rules, err := h.Store.ListTierRules(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "failed to load tier rules", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.ToJSON(rules))
}

// PutTierRules replaces the rule set after configuration-time validation.
func (h *Handler) PutTierRules(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	var doc factory.RuleSetJSON
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", err)
		return
	}

	rules, err := factory.FromJSON(doc)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.Store.ReplaceTierRules(r.Context(), rules); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, factory.ToJSON(rules))
}

// ListRepresentatives returns all representatives.
func (h *Handler) ListRepresentatives(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	reps, err := h.Store.ListRepresentatives(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "failed to list representatives", err)
		return
	}

	dtos := make([]RepresentativeDTO, 0, len(reps))
	for _, rep := range reps {
		dtos = append(dtos, RepresentativeDTO{ID: string(rep.ID), Name: rep.Name, Role: string(rep.Role)})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveRepresentative creates or updates a representative.
func (h *Handler) SaveRepresentative(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	var req SaveRepresentativeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "id and name are required", nil)
		return
	}
	role := commission.Role(req.Role)
	if role == "" {
		role = commission.RoleRepresentative
	}

	rep := commission.Representative{
		ID:   commission.RepresentativeID(req.ID),
		Name: req.Name,
		Role: role,
	}
	if err := h.Store.SaveRepresentative(r.Context(), rep); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "failed to save representative", err)
		return
	}
	writeJSON(w, http.StatusCreated, RepresentativeDTO{ID: req.ID, Name: req.Name, Role: string(role)})
}

// SaveActivity records an activity summary for a representative/period.
func (h *Handler) SaveActivity(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	var req SaveActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", err)
		return
	}

	start, err := time.Parse("2006-01-02", req.PeriodStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_period", "period_start must be YYYY-MM-DD", err)
		return
	}
	end, err := time.Parse("2006-01-02", req.PeriodEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_period", "period_end must be YYYY-MM-DD", err)
		return
	}
	period, err := commission.NewPeriod(start, end)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	err = h.Store.SaveActivitySummary(r.Context(),
		commission.RepresentativeID(req.RepresentativeID), period,
		commission.ActivitySummary{
			ContractsSigned: req.ContractsSigned,
			TotalRevenue:    commission.NewMoney(req.TotalRevenue),
		})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "failed to save activity summary", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "saved"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, kind, message string, err error) {
	resp := ErrorResponse{Kind: kind, Message: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors to the error taxonomy of the API.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, commission.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "permission_denied", err.Error(), nil)
	case errors.Is(err, commission.ErrCommissionNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, commission.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error(), nil)
	case errors.Is(err, commission.ErrDuplicatePeriod):
		writeError(w, http.StatusConflict, "duplicate_period", err.Error(), nil)
	case errors.Is(err, commission.ErrConfiguration):
		writeError(w, http.StatusUnprocessableEntity, "configuration_error", err.Error(), nil)
	case errors.Is(err, commission.ErrMissingRevenue):
		writeError(w, http.StatusUnprocessableEntity, "missing_revenue", err.Error(), nil)
	case errors.Is(err, commission.ErrInvalidPeriod):
		writeError(w, http.StatusBadRequest, "invalid_period", err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "internal", "internal error", err)
	}
}
