package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"power_schedule/internal/matrix"
	"power_schedule/internal/models"
	"power_schedule/internal/service"
)

func serialized(t *testing.T, paint ...[4]int) string {
	t.Helper()
	var m matrix.Matrix
	for _, p := range paint {
		var err error
		if m, err = matrix.PaintRectangle(m, p[0], p[1], p[2], p[3], true); err != nil {
			t.Fatalf("paint: %v", err)
		}
	}
	return matrix.Serialize(m)
}

func newScheduleFixture(t *testing.T) (*service.Service, *mockSchedules) {
	t.Helper()
	sched := &mockSchedules{items: map[int]models.Schedule{
		1: {ID: 1, Name: "Office", TimeZone: 1, Matrix: serialized(t, [4]int{0, 16, 4, 35})},
		2: {ID: 2, Name: "Outage", TimeZone: 1, Matrix: serialized(t), IsSpecial: true},
	}}
	return &service.Service{Authorization: newMockAuth(), Schedules: sched}, sched
}

func jsonRequest(method, path, token, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return withAuth(req, token)
}

func TestListSchedules(t *testing.T) {
	svc, sched := newScheduleFixture(t)
	r := newTestRouter(svc)

	cases := []struct {
		url         string
		wantCode    int
		wantNames   []string
		wantInclude bool
	}{
		{url: "/api/v1/schedules", wantCode: http.StatusOK, wantNames: []string{"Office"}},
		{url: "/api/v1/schedules?include_special=true", wantCode: http.StatusOK, wantNames: []string{"Office", "Outage"}, wantInclude: true},
		{url: "/api/v1/schedules?include_special=maybe", wantCode: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.url, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, jsonRequest(http.MethodGet, tc.url, "reader", ""))
			if w.Code != tc.wantCode {
				t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
			}
			if tc.wantCode != http.StatusOK {
				return
			}
			var out struct {
				Schedules []models.Schedule `json:"schedules"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if len(out.Schedules) != len(tc.wantNames) {
				t.Fatalf("got %d schedules, want %v", len(out.Schedules), tc.wantNames)
			}
			for i, name := range tc.wantNames {
				if out.Schedules[i].Name != name {
					t.Fatalf("schedule %d = %q, want %q", i, out.Schedules[i].Name, name)
				}
			}
			if sched.lastInclude != tc.wantInclude {
				t.Fatalf("include_special passed as %v", sched.lastInclude)
			}
			if sched.lastActor.Username != "rita" {
				t.Fatalf("actor not forwarded: %+v", sched.lastActor)
			}
		})
	}
}

func TestListSchedules_RequiresAuth(t *testing.T) {
	svc, _ := newScheduleFixture(t)
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/schedules", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", w.Code)
	}
}

func TestGetSchedule(t *testing.T) {
	svc, _ := newScheduleFixture(t)
	r := newTestRouter(svc)

	cases := []struct {
		path string
		want int
	}{
		{"/api/v1/schedules/1", http.StatusOK},
		{"/api/v1/schedules/9", http.StatusNotFound},
		{"/api/v1/schedules/abc", http.StatusBadRequest},
		{"/api/v1/schedules/0", http.StatusBadRequest},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, jsonRequest(http.MethodGet, tc.path, "reader", ""))
		if w.Code != tc.want {
			t.Fatalf("%s: status=%d, want %d", tc.path, w.Code, tc.want)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(http.MethodGet, "/api/v1/schedules/1", "reader", ""))
	var s models.Schedule
	_ = json.Unmarshal(w.Body.Bytes(), &s)
	if s.Name != "Office" || s.ID != 1 {
		t.Fatalf("unexpected schedule: %+v", s)
	}
}

func TestCreateSchedule(t *testing.T) {
	svc, sched := newScheduleFixture(t)
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(http.MethodPost, "/api/v1/schedules", "editor",
		`{"name":"Night","timezone":2,"matrix":"","is_special":false}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var s models.Schedule
	_ = json.Unmarshal(w.Body.Bytes(), &s)
	if s.Name != "Night" || s.TimeZone != 2 || s.ID == 0 {
		t.Fatalf("unexpected schedule: %+v", s)
	}
	if sched.lastInput.Name != "Night" || sched.lastActor.Username != "ed" {
		t.Fatalf("unexpected call: %+v by %+v", sched.lastInput, sched.lastActor)
	}
}

func TestScheduleWrites_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"duplicate", fmt.Errorf("%w: %q", service.ErrDuplicateName, "Office"), http.StatusConflict},
		{"invalid name", fmt.Errorf("%w: name is empty", service.ErrInvalidName), http.StatusBadRequest},
		{"unknown timezone", fmt.Errorf("%w: id 9", service.ErrUnknownTimeZone), http.StatusBadRequest},
		{"bad matrix", fmt.Errorf("%w: 6 rows", matrix.ErrFormat), http.StatusBadRequest},
		{"not found", service.ErrScheduleNotFound, http.StatusNotFound},
		{"storage", errors.New("disk I/O error"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, sched := newScheduleFixture(t)
			sched.createErr = tc.err
			sched.updateErr = tc.err
			sched.deleteErr = tc.err
			r := newTestRouter(svc)

			for _, req := range []*http.Request{
				jsonRequest(http.MethodPost, "/api/v1/schedules", "editor", `{"name":"Office"}`),
				jsonRequest(http.MethodPut, "/api/v1/schedules/1", "editor", `{"name":"Office"}`),
				jsonRequest(http.MethodDelete, "/api/v1/schedules/1", "editor", ""),
			} {
				w := httptest.NewRecorder()
				r.ServeHTTP(w, req)
				if w.Code != tc.want {
					t.Fatalf("%s %s: status=%d, want %d", req.Method, req.URL.Path, w.Code, tc.want)
				}
				var out map[string]string
				if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil || out["error"] == "" {
					t.Fatalf("expected error body, got %s", w.Body.String())
				}
			}
		})
	}
}

func TestCreateSchedule_BadBody(t *testing.T) {
	svc, _ := newScheduleFixture(t)
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(http.MethodPost, "/api/v1/schedules", "editor", `{"name":`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", w.Code)
	}
}

func TestUpdateAndDeleteSchedule(t *testing.T) {
	svc, sched := newScheduleFixture(t)
	r := newTestRouter(svc)

	body := fmt.Sprintf(`{"name":"Office hours","timezone":1,"matrix":%q}`, serialized(t, [4]int{0, 0, 0, 0}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(http.MethodPut, "/api/v1/schedules/1", "editor", body))
	if w.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", w.Code, w.Body.String())
	}
	if sched.items[1].Name != "Office hours" {
		t.Fatalf("update not applied: %+v", sched.items[1])
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(http.MethodDelete, "/api/v1/schedules/1", "editor", ""))
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d body=%s", w.Code, w.Body.String())
	}
	if w.Body.Len() != 0 {
		t.Fatalf("delete should have empty body, got %q", w.Body.String())
	}
	if _, ok := sched.items[1]; ok {
		t.Fatal("schedule 1 still present")
	}
}

func TestPowerState(t *testing.T) {
	at := time.Date(2025, 3, 3, 8, 15, 0, 0, time.UTC)
	power := &mockPower{state: service.PowerState{ScheduleID: 1, At: at, On: true, Day: 0, Slot: 16, Label: "Monday 08:00"}}
	svc, _ := newScheduleFixture(t)
	svc.Power = power
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(http.MethodGet, "/api/v1/schedules/1/power?at=2025-03-03T08:15:00Z", "reader", ""))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var st service.PowerState
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if !st.On || st.Slot != 16 || st.Label != "Monday 08:00" {
		t.Fatalf("unexpected state: %+v", st)
	}
	if power.lastID != 1 || !power.lastAt.Equal(at) {
		t.Fatalf("StateAt called with %d, %v", power.lastID, power.lastAt)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(http.MethodGet, "/api/v1/schedules/1/power?at=monday", "reader", ""))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad at: status=%d, want 400", w.Code)
	}

	power.err = service.ErrScheduleNotFound
	w = httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(http.MethodGet, "/api/v1/schedules/7/power", "reader", ""))
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing: status=%d, want 404", w.Code)
	}
}

func TestMatrixPNG(t *testing.T) {
	svc, _ := newScheduleFixture(t)
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(http.MethodGet, "/api/v1/schedules/1/matrix.png", "reader", ""))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type %q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG\r\n\x1a\n")) {
		t.Fatal("body is not a PNG")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(http.MethodGet, "/api/v1/schedules/5/matrix.png", "reader", ""))
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing: status=%d, want 404", w.Code)
	}
}

func TestListTimeZones(t *testing.T) {
	zones := &mockTimeZones{zones: []models.TimeZone{{ID: 2, Name: "Europe/Helsinki"}, {ID: 1, Name: "UTC"}}}
	r := newTestRouter(&service.Service{Authorization: newMockAuth(), TimeZones: zones})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(http.MethodGet, "/api/v1/timezones", "reader", ""))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var out struct {
		TimeZones []models.TimeZone `json:"timezones"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if len(out.TimeZones) != 2 || out.TimeZones[0].Name != "Europe/Helsinki" {
		t.Fatalf("unexpected zones: %+v", out.TimeZones)
	}

	zones.err = errors.New("locked")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(http.MethodGet, "/api/v1/timezones", "reader", ""))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d, want 500", w.Code)
	}
}
