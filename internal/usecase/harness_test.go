package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"crewmission-service/internal/domain/entity"
	"crewmission-service/internal/domain/repository"
	"crewmission-service/internal/domain/workflow"
	repo "crewmission-service/internal/interface/repository"
	"crewmission-service/pkg/logger"
	"crewmission-service/pkg/metrics"
)

var (
	admin    = Actor{ID: "admin-1", Role: entity.RoleAdmin}
	finance  = Actor{ID: "fin-1", Role: entity.RoleFinance}
	owner    = Actor{ID: "owner-1", Role: entity.RoleOwner}
	captain  = Actor{ID: "cpt-1", Role: entity.RoleCrew}
	outsider = Actor{ID: "cpt-9", Role: entity.RoleCrew}
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type stubComposer struct{}

func (stubComposer) Compose(m *entity.MissionOrder, f entity.Fees) (string, string, error) {
	return "Mission quote " + m.ID, fmt.Sprintf("Total %.2f %s", f.TotalWithMargin, f.Currency), nil
}

type stubMailer struct {
	mu   sync.Mutex
	sent []repository.OutgoingMail
	err  error
}

func (s *stubMailer) Send(_ context.Context, mail repository.OutgoingMail) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, mail)
	return fmt.Sprintf("msg-%d", len(s.sent)), nil
}

type stubBackend struct {
	calls int32
	err   error
	block chan struct{}
}

func (s *stubBackend) AssignToCrew(_ context.Context, _ *entity.MissionOrder, generateContract bool) (*repository.AssignmentResult, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.block != nil {
		<-s.block
	}
	if s.err != nil {
		return nil, s.err
	}
	return &repository.AssignmentResult{ContractGenerated: generateContract}, nil
}

func (s *stubBackend) Calls() int {
	return int(atomic.LoadInt32(&s.calls))
}

type ruleList struct {
	rules []NotificationRule
}

func (r *ruleList) Register(rule NotificationRule) { r.rules = append(r.rules, rule) }

func (r *ruleList) GetRules(ev workflow.Event) []NotificationRule {
	var out []NotificationRule
	for _, rule := range r.rules {
		if rule.CanHandle(ev) {
			out = append(out, rule)
		}
	}
	return out
}

type harness struct {
	clock         *testClock
	missions      *repo.MemoryMissionRepository
	notifications *repo.MemoryNotificationRepository
	activities    *repo.MemoryActivityRepository
	mailer        *stubMailer
	backend       *stubBackend
	rules         *ruleList

	transitioner *Transitioner
	dispatcher   *NotificationDispatcher
	service      *MissionService
	approvals    *ApprovalOrchestrator
	dates        *DateModificationService
	execution    *ExecutionTracker
	scheduler    *AssignmentScheduler
	checker      *ValidationChecker
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		clock:         &testClock{now: time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)},
		missions:      repo.NewMemoryMissionRepository(),
		notifications: repo.NewMemoryNotificationRepository(),
		activities:    repo.NewMemoryActivityRepository(),
		mailer:        &stubMailer{},
		backend:       &stubBackend{},
		rules:         &ruleList{},
	}
	log := logger.NewNop()
	var m *metrics.Metrics

	h.dispatcher = NewNotificationDispatcher(h.notifications, h.missions, h.rules, log, m, "http://admin.test", h.clock.Now)
	h.transitioner = NewTransitioner(h.missions, h.activities, h.dispatcher, log, m, h.clock.Now)
	composer := stubComposer{}
	h.service = NewMissionService(h.missions, nil, nil, nil, h.transitioner, h.dispatcher, composer,
		entity.MarginConfig{Type: entity.MarginPercentage, Value: 10}, log)
	h.dates = NewDateModificationService(h.transitioner, composer, log)
	h.approvals = NewApprovalOrchestrator(h.transitioner, h.missions, h.mailer, composer, h.dates, log)
	h.execution = NewExecutionTracker(h.transitioner, log)
	h.scheduler = NewAssignmentScheduler(h.missions, h.backend, h.transitioner, h.dispatcher, true, log, m)
	h.checker = NewValidationChecker(h.missions, h.transitioner, log)
	return h
}

func day(m time.Month, d int) time.Time {
	return time.Date(2026, m, d, 0, 0, 0, 0, time.UTC)
}

func testDraft(missionType entity.MissionType) MissionDraft {
	perDiem := 50.0
	return MissionDraft{
		Type:        missionType,
		ClientID:    "client-1",
		ClientEmail: "ops@client.test",
		Crew: &entity.CrewSnapshot{
			ID:           "crew-1",
			Name:         "Alpha",
			Captain:      &entity.CrewMember{ID: "cpt-1", Name: "Jo Captain", Rank: "captain"},
			FirstOfficer: &entity.CrewMember{ID: "fo-1", Name: "Sam Officer", Rank: "first_officer"},
		},
		Aircraft: &entity.AircraftSnapshot{ID: "ac-1", Registration: "F-HABC"},
		Contract: entity.Contract{
			StartDate:    day(time.July, 5),
			EndDate:      day(time.July, 10),
			SalaryAmount: 500,
			SalaryType:   entity.SalaryDaily,
			Currency:     "EUR",
			PerDiem:      &perDiem,
		},
	}
}

func (h *harness) create(t *testing.T, missionType entity.MissionType) *entity.MissionOrder {
	t.Helper()
	m, err := h.service.Create(context.Background(), admin, testDraft(missionType))
	require.NoError(t, err)
	return m
}

// approved runs a fresh mission through every gate
func (h *harness) approved(t *testing.T, missionType entity.MissionType) string {
	t.Helper()
	ctx := context.Background()
	id := h.create(t, missionType).ID

	_, err := h.approvals.FinanceApprove(ctx, finance, id, "numbers ok")
	require.NoError(t, err)
	_, err = h.approvals.SubmitToOwner(ctx, finance, id)
	require.NoError(t, err)
	_, err = h.approvals.OwnerApprove(ctx, owner, id, "")
	require.NoError(t, err)
	_, err = h.approvals.SendClientEmail(ctx, admin, id)
	require.NoError(t, err)
	_, err = h.approvals.RecordClientDecision(ctx, admin, id, ClientDecision{Approved: true, Channel: "phone"})
	require.NoError(t, err)
	return id
}

// inProgress assigns and starts an approved mission
func (h *harness) inProgress(t *testing.T, missionType entity.MissionType) string {
	t.Helper()
	ctx := context.Background()
	id := h.approved(t, missionType)

	_, err := h.scheduler.AssignToCrew(ctx, SystemActor, id)
	require.NoError(t, err)
	_, err = h.execution.Start(ctx, captain, id)
	require.NoError(t, err)
	return id
}

func (h *harness) get(t *testing.T, id string) *entity.MissionOrder {
	t.Helper()
	m, err := h.missions.FindByID(context.Background(), id)
	require.NoError(t, err)
	return m
}

func (h *harness) byCategory(category string) []*entity.Notification {
	var out []*entity.Notification
	for _, n := range h.notifications.All() {
		if n.Category == category {
			out = append(out, n)
		}
	}
	return out
}

var errBackendDown = errors.New("crew backend down")

type staticRule struct {
	event workflow.Event
}

func (r *staticRule) CanHandle(ev workflow.Event) bool { return ev == r.event }

func (r *staticRule) Build(tc TransitionContext) []*entity.Notification {
	return []*entity.Notification{{
		Type:       entity.NotificationInfo,
		Title:      string(tc.Event),
		Category:   "static",
		TargetRole: entity.RoleAdmin,
		Metadata:   entity.NotificationMetadata{EntityID: tc.Mission.ID},
	}}
}
