package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"power_schedule/internal/models"
	"power_schedule/internal/repository"
	"power_schedule/internal/service"
)

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAuthHandlers_SignUpAndSignIn(t *testing.T) {
	auth := newMockAuth()
	auth.signUpID = 42
	auth.genTokenToken = "tok123"
	r := newTestRouter(&service.Service{Authorization: auth})

	// sign-up success
	w := httptest.NewRecorder()
	r.ServeHTTP(w, postJSON("/auth/sign-up", `{"username":"u","password":"p"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("sign-up status=%d, body=%s", w.Code, w.Body.String())
	}
	var m map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &m)
	if int(m["id"].(float64)) != 42 {
		t.Fatalf("expected id=42, got %v", m["id"])
	}
	if auth.lastSignUpUsername != "u" || auth.lastSignUpPassword != "p" {
		t.Fatalf("unexpected sign-up args: %q %q", auth.lastSignUpUsername, auth.lastSignUpPassword)
	}

	// sign-in success
	w = httptest.NewRecorder()
	r.ServeHTTP(w, postJSON("/auth/sign-in", `{"username":"u","password":"p"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("sign-in status=%d, body=%s", w.Code, w.Body.String())
	}
	_ = json.Unmarshal(w.Body.Bytes(), &m)
	if m["token"] != "tok123" {
		t.Fatalf("expected token tok123, got %v", m["token"])
	}

	// sign-in invalid body → 400
	w = httptest.NewRecorder()
	r.ServeHTTP(w, postJSON("/auth/sign-in", `{"username":1}`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad body, got %d", w.Code)
	}
}

func TestAuthHandlers_Failures(t *testing.T) {
	auth := newMockAuth()
	auth.signUpErr = fmt.Errorf("insert user %q: %w", "u", repository.ErrUsernameTaken)
	auth.genTokenErr = service.ErrInvalidPassword
	r := newTestRouter(&service.Service{Authorization: auth})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, postJSON("/auth/sign-up", `{"username":"u","password":"p"}`))
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate sign-up: got %d, want 409", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, postJSON("/auth/sign-in", `{"username":"u","password":"bad"}`))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: got %d, want 401", w.Code)
	}
	var out map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out["error"] != "invalid credentials" {
		t.Fatalf("unexpected error body: %v", out)
	}
}

// memUsers is an in-memory repository.Authorization.
type memUsers struct {
	mu    sync.Mutex
	users map[string]models.User
}

func (m *memUsers) Create(_ context.Context, username, hash string, provisioned bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[username]; ok {
		return 0, repository.ErrUsernameTaken
	}
	u := models.User{ID: len(m.users) + 1, Username: username, PasswordHash: hash, Provisioned: provisioned}
	m.users[username] = u
	return u.ID, nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func signInToken(t *testing.T, r http.Handler, username, password string) string {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, postJSON("/auth/sign-in", fmt.Sprintf(`{"username":%q,"password":%q}`, username, password)))
	if w.Code != http.StatusOK {
		t.Fatalf("sign-in %s: status=%d body=%s", username, w.Code, w.Body.String())
	}
	var out map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	return out["token"]
}

func TestAuthHandlers_PrivilegedNamesNeedProvisioning(t *testing.T) {
	users := &memUsers{users: map[string]models.User{}}
	cfg := service.AuthConfig{
		SigningKey:   "handler-test-signing-key-0123456789",
		Editors:      []string{"admin", "boss"},
		SpecialUsers: []string{"admin"},
	}
	auth := service.NewAuthService(users, cfg)
	svc, sched := newScheduleFixture(t)
	svc.Authorization = auth
	r := newTestRouter(svc)

	// open sign-up cannot claim a configured name
	w := httptest.NewRecorder()
	r.ServeHTTP(w, postJSON("/auth/sign-up", `{"username":"admin","password":"pw"}`))
	if w.Code != http.StatusForbidden {
		t.Fatalf("sign-up as admin: got %d, want 403 (body=%s)", w.Code, w.Body.String())
	}
	if len(users.users) != 0 {
		t.Fatalf("reserved sign-up stored a user: %+v", users.users)
	}

	// an account self-registered before its name was configured stays unprivileged
	if _, err := service.NewAuthService(users, service.AuthConfig{SigningKey: cfg.SigningKey}).
		SignUp(context.Background(), "admin", "pw"); err != nil {
		t.Fatalf("early sign-up: %v", err)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(http.MethodGet, "/api/v1/schedules", signInToken(t, r, "admin", "pw"), ""))
	if w.Code != http.StatusOK {
		t.Fatalf("list: status=%d", w.Code)
	}
	if a := sched.lastActor; a.Username != "admin" || len(a.Perms) != 0 {
		t.Fatalf("self-registered admin got permissions: %+v", a)
	}

	// an operator-provisioned account receives its configured permissions
	if _, err := auth.Provision(context.Background(), "boss", "pw"); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(http.MethodGet, "/api/v1/schedules", signInToken(t, r, "boss", "pw"), ""))
	if w.Code != http.StatusOK {
		t.Fatalf("list: status=%d", w.Code)
	}
	if a := sched.lastActor; !a.Can(service.PermEditSchedule) || a.Can(service.PermUseSpecialSchedule) {
		t.Fatalf("provisioned boss has wrong permissions: %+v", a)
	}
}
