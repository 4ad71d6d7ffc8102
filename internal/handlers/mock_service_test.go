package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"power_schedule/internal/metrics"
	"power_schedule/internal/models"
	"power_schedule/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

// Actors returned by mockAuth for well-known tokens.
var (
	editorActor = service.Actor{UserID: 1, Username: "ed", Perms: []string{service.PermEditSchedule}}
	readerActor = service.Actor{UserID: 2, Username: "rita"}
)

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	actors        map[string]service.Actor // token -> actor; unknown tokens fail
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func newMockAuth() *mockAuth {
	return &mockAuth{actors: map[string]service.Actor{
		"editor": editorActor,
		"reader": readerActor,
	}}
}

func (m *mockAuth) SignUp(_ context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(_ context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (service.Actor, error) {
	m.lastParseToken = token
	if m.parseErr != nil {
		return service.Actor{}, m.parseErr
	}
	a, ok := m.actors[token]
	if !ok {
		return service.Actor{}, service.ErrInvalidToken
	}
	return a, nil
}

// mockSchedules is shared with websocket handler goroutines, hence the lock.
type mockSchedules struct {
	mu    sync.Mutex
	items map[int]models.Schedule

	listErr   error
	createErr error
	updateErr error
	auditErr  error // returned after a successful Update, like a failed audit append
	deleteErr error

	lastInclude bool
	lastActor   service.Actor
	lastInput   service.ScheduleInput
	updates     int
}

func (m *mockSchedules) List(_ context.Context, actor service.Actor, includeSpecial bool) ([]models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActor = actor
	m.lastInclude = includeSpecial
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]models.Schedule, 0, len(m.items))
	for _, s := range m.items {
		if s.IsSpecial && !includeSpecial {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockSchedules) Get(_ context.Context, actor service.Actor, id int) (models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActor = actor
	s, ok := m.items[id]
	if !ok {
		return models.Schedule{}, service.ErrScheduleNotFound
	}
	return s, nil
}

func (m *mockSchedules) Create(_ context.Context, actor service.Actor, in service.ScheduleInput) (models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActor = actor
	m.lastInput = in
	if m.createErr != nil {
		return models.Schedule{}, m.createErr
	}
	s := models.Schedule{ID: len(m.items) + 100, Name: in.Name, TimeZone: in.TimeZone, Matrix: in.Matrix, IsSpecial: in.IsSpecial}
	m.items[s.ID] = s
	return s, nil
}

func (m *mockSchedules) Update(_ context.Context, actor service.Actor, id int, in service.ScheduleInput) (models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActor = actor
	m.lastInput = in
	m.updates++
	if m.updateErr != nil {
		return models.Schedule{}, m.updateErr
	}
	if _, ok := m.items[id]; !ok {
		return models.Schedule{}, service.ErrScheduleNotFound
	}
	s := models.Schedule{ID: id, Name: in.Name, TimeZone: in.TimeZone, Matrix: in.Matrix, IsSpecial: in.IsSpecial}
	m.items[id] = s
	return s, m.auditErr
}

func (m *mockSchedules) Delete(_ context.Context, actor service.Actor, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActor = actor
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.items[id]; !ok {
		return service.ErrScheduleNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *mockSchedules) stored(id int) (models.Schedule, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	return s, ok
}

func (m *mockSchedules) updateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates
}

func (m *mockSchedules) CanEdit(actor service.Actor, s models.Schedule) bool {
	if !actor.Can(service.PermEditSchedule) {
		return false
	}
	return !s.IsSpecial || actor.Can(service.PermUseSpecialSchedule)
}

type mockTimeZones struct {
	zones []models.TimeZone
	err   error
}

func (m *mockTimeZones) List(context.Context) ([]models.TimeZone, error) { return m.zones, m.err }
func (m *mockTimeZones) Seed(context.Context, []string) error            { return m.err }
func (m *mockTimeZones) Location(context.Context, int) (*time.Location, error) {
	return time.UTC, m.err
}

type mockPower struct {
	state  service.PowerState
	err    error
	lastID int
	lastAt time.Time
}

func (m *mockPower) StateAt(_ context.Context, id int, at time.Time) (service.PowerState, error) {
	m.lastID = id
	m.lastAt = at
	return m.state, m.err
}

type mockEventLog struct {
	resp         []models.ScheduleEvent
	err          error
	lastFrom     time.Time
	lastTo       time.Time
	lastType     string
	lastSchedule int
}

func (m *mockEventLog) List(_ context.Context, f service.LogFilter) ([]models.ScheduleEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	m.lastSchedule = f.ScheduleID
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	return newTestRouterWithMetrics(s, nil)
}

func newTestRouterWithMetrics(s *service.Service, m *metrics.Metrics) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(s, nil, m)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func withAuth(req *http.Request, token string) *http.Request {
	for k, vv := range authHeader(token) {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	return req
}
