package api

import (
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/lodestone-app/lodestone/internal/api/recovery"
	"github.com/lodestone-app/lodestone/internal/services"
	"github.com/lodestone-app/lodestone/internal/store"
)

const dayPattern = `{day:[0-9]{4}-[0-9]{2}-[0-9]{2}}`

// NewRouter wires all HTTP routes.
func NewRouter(s store.Store, loc *time.Location, log zerolog.Logger, isHealthy func() bool) *mux.Router {
	router := mux.NewRouter()
	router.Use(recovery.Middleware)

	planning := services.NewPlanningService(s, log)
	reconcile := services.NewReconcileService(s, log)
	audit := services.NewAuditService(s, log)

	healthHandler := NewHealthHandler(isHealthy)
	planHandler := NewPlanHandler(planning, s, loc)
	reconcileHandler := NewReconcileHandler(reconcile, audit)

	router.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	router.HandleFunc("/v1/owners/{ownerId}/plans/"+dayPattern, planHandler.CreatePlan).Methods("POST")
	router.HandleFunc("/v1/owners/{ownerId}/plans/"+dayPattern, planHandler.GetPlan).Methods("GET")

	router.HandleFunc("/v1/owners/{ownerId}/reconcile", reconcileHandler.ReconcileOwner).Methods("POST")
	router.HandleFunc("/v1/reconcile", reconcileHandler.ReconcileAll).Methods("POST")
	router.HandleFunc("/v1/audit/unowned", reconcileHandler.AuditUnowned).Methods("GET")

	return router
}
