package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crewmission-service/internal/domain/entity"
	"crewmission-service/internal/domain/repository"
	"crewmission-service/internal/infrastructure/router"
	repo "crewmission-service/internal/interface/repository"
	"crewmission-service/internal/usecase"
	"crewmission-service/pkg/logger"
	"crewmission-service/pkg/metrics"
	"crewmission-service/templates"
)

type okBackend struct{}

func (okBackend) AssignToCrew(context.Context, *entity.MissionOrder, bool) (*repository.AssignmentResult, error) {
	return &repository.AssignmentResult{ContractGenerated: true}, nil
}

type testServer struct {
	mux      http.Handler
	missions *repo.MemoryMissionRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.NewNop()
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics("crewmission_test", reg)
	now := func() time.Time { return time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC) }

	missions := repo.NewMemoryMissionRepository()
	notifications := repo.NewMemoryNotificationRepository()
	composer := templates.NewClientApprovalEmail()

	rules := router.NewEventRouter(log)
	for _, rule := range templates.DefaultRules("http://admin.test") {
		rules.Register(rule)
	}
	dispatcher := usecase.NewNotificationDispatcher(notifications, missions, rules, log, m, "http://admin.test", now)
	transitioner := usecase.NewTransitioner(missions, repo.NewMemoryActivityRepository(), dispatcher, log, m, now)
	dates := usecase.NewDateModificationService(transitioner, composer, log)
	checker := usecase.NewValidationChecker(missions, transitioner, log)

	svc := Services{
		Missions:   usecase.NewMissionService(missions, nil, nil, nil, transitioner, dispatcher, composer, entity.MarginConfig{Type: entity.MarginPercentage, Value: 10}, log),
		Approvals:  usecase.NewApprovalOrchestrator(transitioner, missions, repo.NewLogMailRepository(log), composer, dates, log),
		Dates:      dates,
		Execution:  usecase.NewExecutionTracker(transitioner, log),
		Scheduler:  usecase.NewAssignmentScheduler(missions, okBackend{}, transitioner, dispatcher, true, log, m),
		Checker:    checker,
		Dispatcher: dispatcher,
		Pollers:    usecase.Pollers{usecase.NewPoller("validation", time.Hour, checker.Run, log, m)},
	}
	return &testServer{
		mux:      NewRouter(NewHandler(svc, log), reg, "test", log),
		missions: missions,
	}
}

func (s *testServer) do(t *testing.T, method, path string, actor usecase.Actor, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if actor.ID != "" {
		req.Header.Set(HeaderActorID, actor.ID)
		req.Header.Set(HeaderActorRole, string(actor.Role))
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decodeMission(t *testing.T, rec *httptest.ResponseRecorder) entity.MissionOrder {
	t.Helper()
	var m entity.MissionOrder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

var (
	adminActor   = usecase.Actor{ID: "admin-1", Role: entity.RoleAdmin}
	financeActor = usecase.Actor{ID: "fin-1", Role: entity.RoleFinance}
	ownerActor   = usecase.Actor{ID: "owner-1", Role: entity.RoleOwner}
	crewActor    = usecase.Actor{ID: "cpt-1", Role: entity.RoleCrew}
)

func createBody() CreateMissionRequest {
	return CreateMissionRequest{
		Type:        entity.MissionTypeFreelance,
		ClientID:    "client-1",
		ClientEmail: "ops@client.test",
		Crew: &entity.CrewSnapshot{
			ID:      "crew-1",
			Name:    "Alpha",
			Captain: &entity.CrewMember{ID: "cpt-1", Name: "Jo"},
		},
		Aircraft: &entity.AircraftSnapshot{ID: "ac-1", Registration: "F-HABC"},
		Contract: ContractRequest{
			StartDate:    "2026-07-05",
			EndDate:      "2026-07-10",
			SalaryAmount: 500,
			SalaryType:   entity.SalaryDaily,
			Currency:     "EUR",
		},
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", usecase.Actor{}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))

	rec = s.do(t, http.MethodGet, "/metrics", usecase.Actor{}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestActorHeadersRequired(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/missions", usecase.Actor{}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/missions", usecase.Actor{ID: "x", Role: "pilot"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMissionLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/missions", adminActor, createBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	m := decodeMission(t, rec)
	assert.Equal(t, entity.StatusPendingFinanceReview, m.Status)
	assert.Equal(t, 6, m.Duration)
	base := "/api/v1/missions/" + m.ID

	steps := []struct {
		path   string
		actor  usecase.Actor
		body   interface{}
		status entity.MissionStatus
	}{
		{"/finance/approve", financeActor, DecisionRequest{Comment: "ok"}, entity.StatusFinanceApproved},
		{"/owner/submit", financeActor, nil, entity.StatusWaitingOwnerApproval},
		{"/owner/approve", ownerActor, nil, entity.StatusPendingClientApproval},
		{"/client/email", adminActor, nil, entity.StatusPendingClientApproval},
		{"/client/decision", adminActor, ClientDecisionRequest{Approved: true, Channel: "email"}, entity.StatusApproved},
	}
	for _, step := range steps {
		rec = s.do(t, http.MethodPost, base+step.path, step.actor, step.body)
		require.Equal(t, http.StatusOK, rec.Code, "%s: %s", step.path, rec.Body.String())
		assert.Equal(t, step.status, decodeMission(t, rec).Status, step.path)
	}

	rec = s.do(t, http.MethodPost, base+"/assign", adminActor, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Mission           entity.MissionOrder `json:"mission"`
		ContractGenerated bool                `json:"contractGenerated"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.ContractGenerated)
	assert.Equal(t, entity.StatusPendingExecution, out.Mission.Status)

	rec = s.do(t, http.MethodPost, base+"/start", crewActor, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, base+"/complete", crewActor, CompleteRequest{ActualEndDate: "2026-07-10"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, entity.StatusMissionOver, decodeMission(t, rec).Status)

	rec = s.do(t, http.MethodPost, base+"/validate", crewActor, ValidateRequest{RIBConfirmed: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, entity.StatusValidated, decodeMission(t, rec).Status)

	rec = s.do(t, http.MethodGet, "/api/v1/notifications", financeActor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Positive(t, list.Count, "finance is told about new missions and validations")

	rec = s.do(t, http.MethodGet, base+"/activity", adminActor, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/missions", adminActor, createBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	base := "/api/v1/missions/" + decodeMission(t, rec).ID

	rec = s.do(t, http.MethodGet, "/api/v1/missions/unknown", adminActor, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/owner/approve", ownerActor, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "wrong status")

	rec = s.do(t, http.MethodPost, base+"/finance/reject", financeActor, DecisionRequest{})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "missing reason")

	rec = s.do(t, http.MethodPost, base+"/finance/approve", crewActor, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/missions", adminActor, map[string]interface{}{"type": "freelance", "contract": map[string]string{"startDate": "07/05/2026"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "contract.startDate", body.Field)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/missions", bytes.NewBufferString("{"))
	req.Header.Set(HeaderActorID, adminActor.ID)
	req.Header.Set(HeaderActorRole, string(adminActor.Role))
	raw := httptest.NewRecorder()
	s.mux.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestCrewListingIsScopedToTheCaller(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/v1/missions", adminActor, createBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	var list struct {
		Count int `json:"count"`
	}
	rec = s.do(t, http.MethodGet, "/api/v1/missions?crewId=cpt-1", usecase.Actor{ID: "fo-9", Role: entity.RoleCrew}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Zero(t, list.Count)

	rec = s.do(t, http.MethodGet, "/api/v1/missions?status=pending_finance_review", crewActor, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)

	rec = s.do(t, http.MethodGet, "/api/v1/missions?status=bogus", adminActor, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCrewReadsAreScopedToTheirMissions(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/v1/missions", adminActor, createBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	base := "/api/v1/missions/" + decodeMission(t, rec).ID
	stranger := usecase.Actor{ID: "fo-9", Role: entity.RoleCrew}

	rec = s.do(t, http.MethodGet, base, stranger, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodGet, base+"/activity", stranger, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, base, crewActor, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, base+"/activity", crewActor, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, base, financeActor, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/missions/missing/activity", adminActor, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMaintenanceEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/missions/check-validation", crewActor, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/missions/check-validation", adminActor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res usecase.CheckResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Zero(t, res.Updated)

	rec = s.do(t, http.MethodPost, "/api/v1/pollers/wake", adminActor, nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestErrorStatus(t *testing.T) {
	status, kind := ErrorStatus(repository.ErrUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "unavailable", kind)

	status, _ = ErrorStatus(context.DeadlineExceeded)
	assert.Equal(t, http.StatusInternalServerError, status)
}
