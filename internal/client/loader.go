package client

import (
	"context"
	"sync"

	"power_schedule/internal/models"
	"power_schedule/internal/reload"
)

// State is what a schedule list view shows.
type State struct {
	Loading   bool
	Schedules []models.Schedule
	TimeZones []models.TimeZone
	Err       string // replaces the loaded data when the last reload failed
}

// Loader fetches schedules and timezones in the background. Only the result
// of the most recent reload is applied.
type Loader struct {
	store          ScheduleStore
	includeSpecial bool

	guard reload.Guard
	mu    sync.Mutex
	state State
}

func NewLoader(store ScheduleStore, includeSpecial bool) *Loader {
	return &Loader{store: store, includeSpecial: includeSpecial}
}

// State returns a snapshot of the current state.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Reload starts a fetch and returns a channel closed once it finished,
// whether or not its result was applied.
func (l *Loader) Reload(ctx context.Context) <-chan struct{} {
	l.mu.Lock()
	token := l.guard.Begin()
	l.state = State{Loading: true}
	l.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		schedules, tzs, err := l.fetch(ctx)

		l.mu.Lock()
		defer l.mu.Unlock()
		token.Apply(func() {
			if err != nil {
				l.state = State{Err: err.Error()}
				return
			}
			l.state = State{Schedules: schedules, TimeZones: tzs}
		})
	}()
	return done
}

// Close drops the result of any reload still in flight.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.guard.Invalidate()
}

func (l *Loader) fetch(ctx context.Context) ([]models.Schedule, []models.TimeZone, error) {
	schedules, err := l.store.List(ctx, l.includeSpecial)
	if err != nil {
		return nil, nil, err
	}
	tzs, err := l.store.TimeZones(ctx)
	if err != nil {
		return nil, nil, err
	}
	return schedules, tzs, nil
}
