package service

import (
	"context"
	"errors"
	"sort"

	"power_schedule/internal/models"
	"power_schedule/internal/repository"
)

// memScheduleRepo is an in-memory repository.ScheduleRepo.
type memScheduleRepo struct {
	rows   map[int]models.Schedule
	nextID int
	err    error
}

func newMemScheduleRepo(rows ...models.Schedule) *memScheduleRepo {
	r := &memScheduleRepo{rows: map[int]models.Schedule{}, nextID: 1}
	for _, s := range rows {
		r.rows[s.ID] = s
		if s.ID >= r.nextID {
			r.nextID = s.ID + 1
		}
	}
	return r
}

func (r *memScheduleRepo) List(_ context.Context, includeSpecial bool) ([]models.Schedule, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []models.Schedule
	for _, s := range r.rows {
		if s.IsSpecial && !includeSpecial {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memScheduleRepo) Get(_ context.Context, id int) (*models.Schedule, error) {
	if r.err != nil {
		return nil, r.err
	}
	s, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *memScheduleRepo) GetByName(_ context.Context, name string) (*models.Schedule, error) {
	for _, s := range r.rows {
		if s.Name == name {
			return &s, nil
		}
	}
	return nil, nil
}

func (r *memScheduleRepo) Create(_ context.Context, s models.Schedule) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	s.ID = r.nextID
	r.nextID++
	r.rows[s.ID] = s
	return s.ID, nil
}

func (r *memScheduleRepo) Update(_ context.Context, s models.Schedule) error {
	if _, ok := r.rows[s.ID]; !ok {
		return repository.ErrNotFound
	}
	r.rows[s.ID] = s
	return nil
}

func (r *memScheduleRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

// memTimeZoneRepo is an in-memory repository.TimeZoneRepo.
type memTimeZoneRepo struct {
	zones     []models.TimeZone
	ensureErr error
}

func (r *memTimeZoneRepo) List(context.Context) ([]models.TimeZone, error) {
	return r.zones, nil
}

func (r *memTimeZoneRepo) Get(_ context.Context, id int) (*models.TimeZone, error) {
	for _, z := range r.zones {
		if z.ID == id {
			return &z, nil
		}
	}
	return nil, nil
}

func (r *memTimeZoneRepo) Ensure(_ context.Context, name string) (int, error) {
	if r.ensureErr != nil {
		return 0, r.ensureErr
	}
	for _, z := range r.zones {
		if z.Name == name {
			return z.ID, nil
		}
	}
	id := len(r.zones) + 1
	r.zones = append(r.zones, models.TimeZone{ID: id, Name: name})
	return id, nil
}

// memStateRepo is an in-memory repository.StateRepo.
type memStateRepo struct {
	states  map[int]models.PowerState
	saves   []models.PowerState
	loadErr error
}

func (r *memStateRepo) Save(_ context.Context, st models.PowerState) error {
	if r.states == nil {
		r.states = map[int]models.PowerState{}
	}
	r.states[st.ScheduleID] = st
	r.saves = append(r.saves, st)
	return nil
}

func (r *memStateRepo) LoadAll(context.Context) (map[int]models.PowerState, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	out := make(map[int]models.PowerState, len(r.states))
	for k, v := range r.states {
		out[k] = v
	}
	return out, nil
}

var errFake = errors.New("fake failure")

func defaultZones() *memTimeZoneRepo {
	return &memTimeZoneRepo{zones: []models.TimeZone{
		{ID: 1, Name: "UTC"},
		{ID: 2, Name: "Europe/Helsinki"},
	}}
}

var (
	editorActor  = Actor{UserID: 1, Username: "ed", Perms: []string{PermEditSchedule}}
	specialActor = Actor{UserID: 2, Username: "sp", Perms: []string{PermEditSchedule, PermUseSpecialSchedule}}
	readerActor  = Actor{UserID: 3, Username: "re"}
)
