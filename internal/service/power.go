package service

import (
	"context"
	"fmt"
	"time"

	"power_schedule/internal/matrix"
	"power_schedule/internal/repository"
)

type PowerService struct {
	schedules repository.ScheduleRepo
	timezones *TimeZoneService
}

func NewPowerService(schedules repository.ScheduleRepo, tz *TimeZoneService) *PowerService {
	return &PowerService{schedules: schedules, timezones: tz}
}

// StateAt evaluates schedule id at instant at, in the schedule's own timezone.
func (s *PowerService) StateAt(ctx context.Context, id int, at time.Time) (PowerState, error) {
	sched, err := s.schedules.Get(ctx, id)
	if err != nil {
		return PowerState{}, err
	}
	if sched == nil {
		return PowerState{}, ErrScheduleNotFound
	}
	m, err := matrix.Deserialize(sched.Matrix)
	if err != nil {
		return PowerState{}, fmt.Errorf("schedule %d: %w", id, err)
	}
	loc, err := s.timezones.Location(ctx, sched.TimeZone)
	if err != nil {
		return PowerState{}, err
	}
	return evaluate(id, m, at, loc), nil
}

func evaluate(id int, m matrix.Matrix, at time.Time, loc *time.Location) PowerState {
	row, col := matrix.SlotAt(at.In(loc))
	// row and col always come from SlotAt, so these cannot fail.
	label, _ := matrix.CellLabel(row, col)
	st := PowerState{
		ScheduleID: id,
		At:         at.UTC(),
		On:         m.IsOnAt(at, loc),
		Day:        row,
		Slot:       col,
		Label:      label,
	}
	if next, ok := m.NextChange(at, loc); ok {
		next = next.UTC()
		st.NextChange = &next
	}
	return st
}
