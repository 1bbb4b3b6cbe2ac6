package httpserver

import (
	"net/http"

	"crewmission-service/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires every route of the service
func NewRouter(h *Handler, gatherer prometheus.Gatherer, version string, log logger.Logger) *chi.Mux {
	mux := chi.NewRouter()
	mux.Use(RequestID)
	mux.Use(RequestLogger(log))
	mux.Use(middleware.Recoverer)

	mux.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	mux.Route("/api/v1", func(api chi.Router) {
		api.Use(RequireActor)

		api.Route("/missions", func(sr chi.Router) {
			sr.Post("/", h.Create)
			sr.Get("/", h.List)
			sr.Post("/check-validation", h.CheckValidation)

			sr.Route("/{id}", func(mr chi.Router) {
				mr.Get("/", h.Get)
				mr.Get("/activity", h.Activity)
				mr.Put("/contract", h.UpdateContract)
				mr.Put("/invoice", h.UpdateInvoice)

				mr.Post("/finance/approve", h.decision(h.FinanceApprove))
				mr.Post("/finance/reject", h.decision(h.FinanceReject))
				mr.Post("/owner/submit", h.decision(h.SubmitToOwner))
				mr.Post("/owner/approve", h.decision(h.OwnerApprove))
				mr.Post("/owner/reject", h.decision(h.OwnerReject))
				mr.Post("/client/email", h.decision(h.SendClientEmail))
				mr.Post("/client/decision", h.ClientDecision)
				mr.Post("/legacy/approve", h.decision(h.LegacyApprove))
				mr.Post("/legacy/reject", h.decision(h.LegacyReject))
				mr.Post("/approve", h.decision(h.Approve))
				mr.Post("/reject", h.decision(h.Reject))
				mr.Post("/cancel", h.decision(h.Cancel))
				mr.Post("/close", h.decision(h.Close))

				mr.Post("/assign", h.Assign)
				mr.Post("/start", h.decision(h.Start))
				mr.Post("/complete", h.Complete)
				mr.Post("/validate", h.Validate)

				mr.Post("/date-modification", h.RequestDateModification)
				mr.Post("/date-modification/approve", h.decision(h.ApproveDateModification))
				mr.Post("/date-modification/reject", h.decision(h.RejectDateModification))
			})
		})

		api.Get("/notifications", h.ListNotifications)
		api.Post("/notifications/{id}/read", h.MarkNotificationRead)
		api.Post("/pollers/wake", h.WakePollers)
	})

	return mux
}
