package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"power_schedule/internal/logger"
	"power_schedule/internal/matrix"
	"power_schedule/internal/metrics"
	"power_schedule/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// 2024-01-01 is a Monday. The "Office" schedule is on 08:00-09:00 UTC.
var (
	mondayOff = time.Date(2024, 1, 1, 7, 45, 0, 0, time.UTC)
	mondayOn  = time.Date(2024, 1, 1, 8, 10, 0, 0, time.UTC)
)

func newTestMonitor(rows ...models.Schedule) (*PowerMonitor, *memScheduleRepo, *memStateRepo, *fakeEventRepo) {
	repo := newMemScheduleRepo(rows...)
	states := &memStateRepo{}
	events := &fakeEventRepo{}
	mon := NewPowerMonitor(repo, states, events, NewTimeZoneService(defaultZones()), nil, nil)
	return mon, repo, states, events
}

func office() models.Schedule {
	return models.Schedule{ID: 1, Name: "Office", TimeZone: 1, Matrix: mondayMorning()}
}

func TestPowerMonitor_FirstObservationOnlyRecords(t *testing.T) {
	mon, _, states, events := newTestMonitor(office())

	if err := mon.tick(context.Background(), mondayOn); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(states.saves) != 1 || !states.saves[0].On || states.saves[0].Slot != 16 {
		t.Fatalf("expected one saved ON state, got %+v", states.saves)
	}
	if len(events.appended) != 0 {
		t.Fatalf("first observation must not log events, got %+v", events.appended)
	}
}

func TestPowerMonitor_LogsTransitions(t *testing.T) {
	mon, _, states, events := newTestMonitor(office())
	ctx := context.Background()

	steps := []time.Time{
		mondayOff,
		mondayOff.Add(5 * time.Minute), // unchanged
		mondayOn,
		mondayOn.Add(time.Hour), // 09:10, off again
	}
	for _, at := range steps {
		if err := mon.tick(ctx, at); err != nil {
			t.Fatalf("tick %v: %v", at, err)
		}
	}

	if len(states.saves) != 3 {
		t.Fatalf("expected 3 state saves, got %d", len(states.saves))
	}
	if len(events.appended) != 2 {
		t.Fatalf("expected 2 events, got %+v", events.appended)
	}
	if events.appended[0].Type != models.EventPowerOn || events.appended[1].Type != models.EventPowerOff {
		t.Fatalf("unexpected event order: %s, %s", events.appended[0].Type, events.appended[1].Type)
	}
	if events.appended[0].ScheduleID != 1 || !events.appended[0].OccurredAt.Equal(mondayOn) {
		t.Fatalf("unexpected event: %+v", events.appended[0])
	}
}

func TestPowerMonitor_ResumesFromPersistedState(t *testing.T) {
	mon, _, states, events := newTestMonitor(office())
	states.states = map[int]models.PowerState{1: {ScheduleID: 1, On: false}}

	if err := mon.tick(context.Background(), mondayOn); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(events.appended) != 1 || events.appended[0].Type != models.EventPowerOn {
		t.Fatalf("expected POWER_ON after restart, got %+v", events.appended)
	}
}

func TestPowerMonitor_ForgetsDeletedSchedules(t *testing.T) {
	mon, repo, _, events := newTestMonitor(office())
	ctx := context.Background()

	_ = mon.tick(ctx, mondayOff)
	delete(repo.rows, 1)
	_ = mon.tick(ctx, mondayOff)
	if _, ok := mon.last[1]; ok {
		t.Fatalf("deleted schedule still tracked")
	}

	// recreated with the same id counts as a first observation again
	repo.rows[1] = office()
	_ = mon.tick(ctx, mondayOn)
	if len(events.appended) != 0 {
		t.Fatalf("expected no events, got %+v", events.appended)
	}
}

func TestPowerMonitor_BadScheduleDoesNotBlockOthers(t *testing.T) {
	bad := models.Schedule{ID: 2, Name: "Broken", TimeZone: 1, Matrix: "not json"}
	mon, _, states, _ := newTestMonitor(office(), bad)

	err := mon.tick(context.Background(), mondayOn)
	if !errors.Is(err, matrix.ErrFormat) {
		t.Fatalf("expected joined ErrFormat, got %v", err)
	}
	if len(states.saves) != 1 || states.saves[0].ScheduleID != 1 {
		t.Fatalf("good schedule should still be recorded, got %+v", states.saves)
	}
}

func TestPowerMonitor_LoadError(t *testing.T) {
	mon, _, states, _ := newTestMonitor(office())
	states.loadErr = errFake

	if err := mon.tick(context.Background(), mondayOn); !errors.Is(err, errFake) {
		t.Fatalf("expected load error, got %v", err)
	}
	if mon.last != nil {
		t.Fatalf("state must stay unloaded after a failed load")
	}
}

func TestPowerMonitor_RunStopsOnCancel(t *testing.T) {
	mon, _, _, _ := newTestMonitor(office())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		mon.Run(ctx, 5*time.Millisecond)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestPowerMonitor_RunLogsTickFailures(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	mon, _, states, _ := newTestMonitor(office())
	mon.log = &logger.Logger{SugaredLogger: zap.New(core).Sugar()}
	states.loadErr = errFake

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		mon.Run(ctx, 2*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for logs.FilterMessage("monitor_tick_failed").Len() == 0 {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("tick failure was not logged")
		}
		time.Sleep(2 * time.Millisecond)
	}
	cancel()
	<-done

	entry := logs.FilterMessage("monitor_tick_failed").All()[0]
	if entry.Level != zapcore.ErrorLevel {
		t.Fatalf("level = %v, want error", entry.Level)
	}
	err, ok := entry.ContextMap()["err"].(string)
	if !ok || !strings.Contains(err, errFake.Error()) {
		t.Fatalf("logged err = %v, want it to mention %q", entry.ContextMap()["err"], errFake)
	}
}

func TestPowerMonitor_GaugeFollowsScheduleID(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		t.Fatalf("metrics.New: %v", err)
	}
	mon, repo, _, _ := newTestMonitor(office())
	mon.metrics = m
	ctx := context.Background()

	if err := mon.tick(ctx, mondayOn); err != nil {
		t.Fatalf("tick: %v", err)
	}
	renamed := office()
	renamed.Name = "Head Office"
	repo.rows[1] = renamed
	if err := mon.tick(ctx, mondayOn); err != nil {
		t.Fatalf("tick: %v", err)
	}

	expected := `
# HELP schedule_powered_on 1 if the schedule currently asks for power, else 0
# TYPE schedule_powered_on gauge
schedule_powered_on{schedule_id="1"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "schedule_powered_on"); err != nil {
		t.Fatalf("after rename: %v", err)
	}

	delete(repo.rows, 1)
	if err := mon.tick(ctx, mondayOn); err != nil {
		t.Fatalf("tick: %v", err)
	}
	n, err := testutil.GatherAndCount(reg, "schedule_powered_on")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if n != 0 {
		t.Fatalf("deleted schedule still has %d gauge series", n)
	}
}
