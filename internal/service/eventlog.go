package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"power_schedule/internal/models"
	"power_schedule/internal/repository"

	"github.com/samber/lo"
)

var (
	ErrInvalidTimeRange = errors.New("invalid time range: from must be <= to")
	ErrUnknownEventType = errors.New("unknown event type")
)

// EventLogService reads the audit trail written by schedule writes and the
// power monitor.
type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

// List returns matching events, oldest first. Time bounds are compared in
// UTC; the type is matched case-insensitively.
func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.ScheduleEvent, error) {
	f, err := f.normalized()
	if err != nil {
		return nil, err
	}
	events, err := s.eventRepo.List(ctx, f.From, f.To, f.Type)
	if err != nil {
		return nil, err
	}
	if f.ScheduleID == 0 {
		return events, nil
	}
	return lo.Filter(events, func(e models.ScheduleEvent, _ int) bool {
		return e.ScheduleID == f.ScheduleID
	}), nil
}

func (f LogFilter) normalized() (LogFilter, error) {
	if !f.From.IsZero() {
		f.From = f.From.UTC()
	}
	if !f.To.IsZero() {
		f.To = f.To.UTC()
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return LogFilter{}, ErrInvalidTimeRange
	}

	f.Type = strings.ToUpper(strings.TrimSpace(f.Type))
	if f.Type != "" && !lo.Contains(models.EventTypes, f.Type) {
		return LogFilter{}, fmt.Errorf("%w: %q", ErrUnknownEventType, f.Type)
	}
	if f.ScheduleID < 0 {
		f.ScheduleID = 0
	}
	return f, nil
}
