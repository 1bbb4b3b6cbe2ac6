package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"crewmission-service/internal/domain/entity"
	"crewmission-service/internal/domain/repository"
	"crewmission-service/internal/usecase"
	"crewmission-service/pkg/logger"

	"github.com/go-chi/chi/v5"
)

const defaultListLimit = 100

// Services groups the use cases exposed over HTTP
type Services struct {
	Missions   *usecase.MissionService
	Approvals  *usecase.ApprovalOrchestrator
	Dates      *usecase.DateModificationService
	Execution  *usecase.ExecutionTracker
	Scheduler  *usecase.AssignmentScheduler
	Checker    *usecase.ValidationChecker
	Dispatcher *usecase.NotificationDispatcher
	Pollers    usecase.Pollers
}

// Handler serves the mission API
type Handler struct {
	svc    Services
	logger logger.Logger
}

// NewHandler creates a new handler
func NewHandler(svc Services, logger logger.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func actor(r *http.Request) usecase.Actor {
	a, _ := ActorFrom(r.Context())
	return a
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// respond writes a mission result or the mapped error
func respond(w http.ResponseWriter, m *entity.MissionOrder, err error) {
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, m)
}

// Create handles POST /missions
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateMissionRequest
	if !decode(w, r, &req) {
		return
	}
	draft, err := req.toDraft()
	if err != nil {
		Error(w, err)
		return
	}
	m, err := h.svc.Missions.Create(r.Context(), actor(r), draft)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusCreated, m)
}

// List handles GET /missions. Crew actors only see their own missions.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.MissionFilter{
		Type:         entity.MissionType(q.Get("type")),
		ClientID:     q.Get("clientId"),
		CrewMemberID: q.Get("crewId"),
		Limit:        queryInt(r, "limit", defaultListLimit),
	}
	if raw := q.Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status := entity.MissionStatus(strings.TrimSpace(s))
			if !status.Valid() {
				BadRequest(w, "unknown status "+string(status))
				return
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if a := actor(r); a.Role == entity.RoleCrew {
		filter.CrewMemberID = a.ID
	}

	missions, err := h.svc.Missions.List(r.Context(), filter)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"content": missions, "count": len(missions)})
}

// Get handles GET /missions/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Missions.Get(r.Context(), actor(r), chi.URLParam(r, "id"))
	respond(w, m, err)
}

// Activity handles GET /missions/{id}/activity
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Missions.Activity(r.Context(), actor(r), chi.URLParam(r, "id"), queryInt(r, "limit", defaultListLimit))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"content": items})
}

// UpdateContract handles PUT /missions/{id}/contract
func (h *Handler) UpdateContract(w http.ResponseWriter, r *http.Request) {
	var req ContractRequest
	if !decode(w, r, &req) {
		return
	}
	contract, err := req.toEntity()
	if err != nil {
		Error(w, err)
		return
	}
	m, err := h.svc.Missions.UpdateContract(r.Context(), actor(r), chi.URLParam(r, "id"), contract)
	respond(w, m, err)
}

type decisionFunc func(r *http.Request, a usecase.Actor, id string, req DecisionRequest) (*entity.MissionOrder, error)

// decision adapts the comment/reason style endpoints
func (h *Handler) decision(fn decisionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DecisionRequest
		if r.ContentLength != 0 && !decode(w, r, &req) {
			return
		}
		m, err := fn(r, actor(r), chi.URLParam(r, "id"), req)
		respond(w, m, err)
	}
}

// Cancel handles POST /missions/{id}/cancel
func (h *Handler) Cancel(r *http.Request, a usecase.Actor, id string, req DecisionRequest) (*entity.MissionOrder, error) {
	return h.svc.Missions.Cancel(r.Context(), a, id, req.Reason)
}

// Close handles POST /missions/{id}/close
func (h *Handler) Close(r *http.Request, a usecase.Actor, id string, _ DecisionRequest) (*entity.MissionOrder, error) {
	return h.svc.Missions.Close(r.Context(), a, id)
}

// FinanceApprove handles POST /missions/{id}/finance/approve
func (h *Handler) FinanceApprove(r *http.Request, a usecase.Actor, id string, req DecisionRequest) (*entity.MissionOrder, error) {
	return h.svc.Approvals.FinanceApprove(r.Context(), a, id, req.Comment)
}

// FinanceReject handles POST /missions/{id}/finance/reject
func (h *Handler) FinanceReject(r *http.Request, a usecase.Actor, id string, req DecisionRequest) (*entity.MissionOrder, error) {
	return h.svc.Approvals.FinanceReject(r.Context(), a, id, req.Reason)
}

// SubmitToOwner handles POST /missions/{id}/owner/submit
func (h *Handler) SubmitToOwner(r *http.Request, a usecase.Actor, id string, _ DecisionRequest) (*entity.MissionOrder, error) {
	return h.svc.Approvals.SubmitToOwner(r.Context(), a, id)
}

// OwnerApprove handles POST /missions/{id}/owner/approve
func (h *Handler) OwnerApprove(r *http.Request, a usecase.Actor, id string, req DecisionRequest) (*entity.MissionOrder, error) {
	return h.svc.Approvals.OwnerApprove(r.Context(), a, id, req.Comment)
}

// OwnerReject handles POST /missions/{id}/owner/reject
func (h *Handler) OwnerReject(r *http.Request, a usecase.Actor, id string, req DecisionRequest) (*entity.MissionOrder, error) {
	return h.svc.Approvals.OwnerReject(r.Context(), a, id, req.Reason)
}

// SendClientEmail handles POST /missions/{id}/client/email
func (h *Handler) SendClientEmail(r *http.Request, a usecase.Actor, id string, _ DecisionRequest) (*entity.MissionOrder, error) {
	return h.svc.Approvals.SendClientEmail(r.Context(), a, id)
}

// LegacyApprove handles POST /missions/{id}/legacy/approve
func (h *Handler) LegacyApprove(r *http.Request, a usecase.Actor, id string, req DecisionRequest) (*entity.MissionOrder, error) {
	return h.svc.Approvals.LegacyApprove(r.Context(), a, id, req.Comment)
}

// LegacyReject handles POST /missions/{id}/legacy/reject
func (h *Handler) LegacyReject(r *http.Request, a usecase.Actor, id string, req DecisionRequest) (*entity.MissionOrder, error) {
	return h.svc.Approvals.LegacyReject(r.Context(), a, id, req.Reason)
}

// Approve handles POST /missions/{id}/approve
func (h *Handler) Approve(r *http.Request, a usecase.Actor, id string, req DecisionRequest) (*entity.MissionOrder, error) {
	return h.svc.Approvals.Approve(r.Context(), a, id, req.Comment)
}

// Reject handles POST /missions/{id}/reject
func (h *Handler) Reject(r *http.Request, a usecase.Actor, id string, req DecisionRequest) (*entity.MissionOrder, error) {
	return h.svc.Approvals.Reject(r.Context(), a, id, req.Reason)
}

// ApproveDateModification handles POST /missions/{id}/date-modification/approve
func (h *Handler) ApproveDateModification(r *http.Request, a usecase.Actor, id string, req DecisionRequest) (*entity.MissionOrder, error) {
	return h.svc.Dates.Approve(r.Context(), a, id, req.Comment)
}

// RejectDateModification handles POST /missions/{id}/date-modification/reject
func (h *Handler) RejectDateModification(r *http.Request, a usecase.Actor, id string, req DecisionRequest) (*entity.MissionOrder, error) {
	return h.svc.Dates.Reject(r.Context(), a, id, req.Reason)
}

// Start handles POST /missions/{id}/start
func (h *Handler) Start(r *http.Request, a usecase.Actor, id string, _ DecisionRequest) (*entity.MissionOrder, error) {
	return h.svc.Execution.Start(r.Context(), a, id)
}

// ClientDecision handles POST /missions/{id}/client/decision
func (h *Handler) ClientDecision(w http.ResponseWriter, r *http.Request) {
	var req ClientDecisionRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := h.svc.Approvals.RecordClientDecision(r.Context(), actor(r), chi.URLParam(r, "id"), usecase.ClientDecision{
		Approved: req.Approved,
		Reason:   req.Reason,
		Comments: req.Comments,
		Channel:  req.Channel,
	})
	respond(w, m, err)
}

// RequestDateModification handles POST /missions/{id}/date-modification
func (h *Handler) RequestDateModification(w http.ResponseWriter, r *http.Request) {
	var req DateModificationRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := req.toUsecase()
	if err != nil {
		Error(w, err)
		return
	}
	m, err := h.svc.Dates.Request(r.Context(), actor(r), chi.URLParam(r, "id"), in)
	respond(w, m, err)
}

// Assign handles POST /missions/{id}/assign
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Scheduler.AssignToCrew(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, out)
}

// Complete handles POST /missions/{id}/complete
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	var req CompleteRequest
	if !decode(w, r, &req) {
		return
	}
	end, err := parseDateField("actualEndDate", req.ActualEndDate)
	if err != nil {
		Error(w, err)
		return
	}
	m, err := h.svc.Execution.Complete(r.Context(), actor(r), chi.URLParam(r, "id"), usecase.CompletionReport{
		ActualEndDate:   end,
		ExtensionReason: req.ExtensionReason,
	})
	respond(w, m, err)
}

// Validate handles POST /missions/{id}/validate
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := h.svc.Execution.Validate(r.Context(), actor(r), chi.URLParam(r, "id"), usecase.ValidationData{
		RIBConfirmed: req.RIBConfirmed,
		Issues:       req.Issues,
		PaymentIssue: req.PaymentIssue,
		Comments:     req.Comments,
	})
	respond(w, m, err)
}

// UpdateInvoice handles PUT /missions/{id}/invoice
func (h *Handler) UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	var req InvoiceRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := h.svc.Execution.UpdateServiceInvoice(r.Context(), actor(r), chi.URLParam(r, "id"), usecase.InvoiceInput{
		Number:    req.Number,
		LineItems: req.LineItems,
		TaxRate:   req.TaxRate,
		Currency:  req.Currency,
	})
	respond(w, m, err)
}

// CheckValidation handles POST /missions/check-validation
func (h *Handler) CheckValidation(w http.ResponseWriter, r *http.Request) {
	if !operator(w, r) {
		return
	}
	res, err := h.svc.Checker.CheckForValidation(r.Context())
	if err != nil {
		// Partial progress is still reported.
		h.logger.Warn("Validation check had failures", "updated", res.Updated, "error", err)
	}
	JSON(w, http.StatusOK, res)
}

// ListNotifications handles GET /notifications for the calling actor
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	a := actor(r)
	items, err := h.svc.Dispatcher.List(r.Context(), repository.NotificationQuery{
		UserID:     a.ID,
		Role:       a.Role,
		UnreadOnly: r.URL.Query().Get("unread") == "true",
		Limit:      queryInt(r, "limit", defaultListLimit),
	})
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"content": items, "count": len(items)})
}

// MarkNotificationRead handles POST /notifications/{id}/read
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Dispatcher.MarkRead(r.Context(), chi.URLParam(r, "id")); err != nil {
		Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// WakePollers handles POST /pollers/wake
func (h *Handler) WakePollers(w http.ResponseWriter, r *http.Request) {
	if !operator(w, r) {
		return
	}
	h.svc.Pollers.WakeAll()
	JSON(w, http.StatusAccepted, map[string]int{"woken": len(h.svc.Pollers)})
}

// operator restricts maintenance endpoints to admins and the system
func operator(w http.ResponseWriter, r *http.Request) bool {
	switch actor(r).Role {
	case entity.RoleAdmin, entity.RoleSystem:
		return true
	}
	JSON(w, http.StatusForbidden, ErrorResponse{Error: "operation reserved to admins", Kind: "forbidden"})
	return false
}
