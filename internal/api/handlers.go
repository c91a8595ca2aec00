package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/lodestone-app/lodestone/internal/api/respond"
	"github.com/lodestone-app/lodestone/internal/api/validate"
	"github.com/lodestone-app/lodestone/internal/model"
	"github.com/lodestone-app/lodestone/internal/services"
	"github.com/lodestone-app/lodestone/internal/store"
)

// PlanHandler serves planning endpoints.
type PlanHandler struct {
	planning *services.PlanningService
	store    store.Store
	loc      *time.Location
}

// NewPlanHandler creates a plan handler. The store is used for plan reads;
// writes go through the planning service.
func NewPlanHandler(planning *services.PlanningService, s store.Store, loc *time.Location) *PlanHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &PlanHandler{planning: planning, store: s, loc: loc}
}

// CreatePlan handles POST /v1/owners/{ownerId}/plans/{day}
func (h *PlanHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ownerID := vars["ownerId"]
	if err := validate.OwnerID(ownerID); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	day, err := validate.DayKey(vars["day"], h.loc)
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.planning.PlanDay(r.Context(), ownerID, day, h.loc)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, result)
}

// GetPlan handles GET /v1/owners/{ownerId}/plans/{day}
func (h *PlanHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ownerID := vars["ownerId"]
	if err := validate.OwnerID(ownerID); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	day, err := validate.DayKey(vars["day"], h.loc)
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	dayKey := model.DayKey(day)

	assignments, err := h.store.Assignments().ListByPlan(r.Context(), ownerID, dayKey)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"planId":      model.PlanID(ownerID, dayKey),
		"dayKey":      dayKey,
		"assignments": assignments,
	})
}

// ReconcileHandler serves reconciliation and audit endpoints.
type ReconcileHandler struct {
	reconcile *services.ReconcileService
	audit     *services.AuditService
}

// NewReconcileHandler creates a reconcile handler.
func NewReconcileHandler(rec *services.ReconcileService, audit *services.AuditService) *ReconcileHandler {
	return &ReconcileHandler{reconcile: rec, audit: audit}
}

// ReconcileOwner handles POST /v1/owners/{ownerId}/reconcile
func (h *ReconcileHandler) ReconcileOwner(w http.ResponseWriter, r *http.Request) {
	ownerID := mux.Vars(r)["ownerId"]
	if err := validate.OwnerID(ownerID); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	rep, err := h.reconcile.Reconcile(r.Context(), ownerID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, rep)
}

// ReconcileAll handles POST /v1/reconcile
func (h *ReconcileHandler) ReconcileAll(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reconcile.Reconcile(r.Context(), "")
	if err != nil {
		writeStoreError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, rep)
}

// AuditUnowned handles GET /v1/audit/unowned
func (h *ReconcileHandler) AuditUnowned(w http.ResponseWriter, r *http.Request) {
	rep, err := h.audit.Unowned(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, rep)
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		respond.WriteNotFound(w, err.Error())
	case errors.Is(err, model.ErrValidation):
		respond.WriteBadRequest(w, err.Error())
	default:
		respond.WriteInternalError(w, "internal error")
	}
}
