package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"power_schedule/internal/matrix"
	"power_schedule/internal/metrics"
	"power_schedule/internal/models"
	"power_schedule/internal/repository"
)

// MaxNameLength bounds schedule names, counted in characters.
const MaxNameLength = 50

var (
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidName      = errors.New("invalid schedule name")
	ErrDuplicateName    = errors.New("schedule name already exists")
	ErrUnknownTimeZone  = errors.New("unknown timezone")
)

type ScheduleService struct {
	repo      repository.ScheduleRepo
	timezones repository.TimeZoneRepo
	eventRepo repository.EventRepo
	metrics   *metrics.Metrics
}

func NewScheduleService(repo repository.ScheduleRepo, tz repository.TimeZoneRepo,
	eventRepo repository.EventRepo, m *metrics.Metrics) *ScheduleService {
	return &ScheduleService{repo: repo, timezones: tz, eventRepo: eventRepo, metrics: m}
}

// List returns schedules ordered by name. Special schedules are included
// only on request.
func (s *ScheduleService) List(ctx context.Context, _ Actor, includeSpecial bool) ([]models.Schedule, error) {
	return s.repo.List(ctx, includeSpecial)
}

func (s *ScheduleService) Get(ctx context.Context, _ Actor, id int) (models.Schedule, error) {
	return s.load(ctx, id)
}

// CanEdit reports whether actor may modify sched. Special schedules need
// the extra permission on top of the edit permission.
func (s *ScheduleService) CanEdit(actor Actor, sched models.Schedule) bool {
	if !actor.Can(PermEditSchedule) {
		return false
	}
	return !sched.IsSpecial || actor.Can(PermUseSpecialSchedule)
}

func (s *ScheduleService) Create(ctx context.Context, actor Actor, in ScheduleInput) (models.Schedule, error) {
	sched, err := s.validate(ctx, 0, in)
	if err != nil {
		return models.Schedule{}, err
	}
	if !s.CanEdit(actor, sched) {
		return models.Schedule{}, ErrForbidden
	}

	id, err := s.repo.Create(ctx, sched)
	if err != nil {
		return models.Schedule{}, conflictAsDuplicate(err, sched.Name)
	}
	sched.ID = id
	s.metrics.ScheduleSaved("create")

	return sched, s.audit(ctx, actor, models.EventCreate, sched, "Schedule created")
}

func (s *ScheduleService) Update(ctx context.Context, actor Actor, id int, in ScheduleInput) (models.Schedule, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return models.Schedule{}, err
	}
	if !s.CanEdit(actor, current) {
		return models.Schedule{}, ErrForbidden
	}

	sched, err := s.validate(ctx, id, in)
	if err != nil {
		return models.Schedule{}, err
	}
	if !s.CanEdit(actor, sched) {
		return models.Schedule{}, ErrForbidden
	}
	sched.ID = id

	if err := s.repo.Update(ctx, sched); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.Schedule{}, ErrScheduleNotFound
		}
		return models.Schedule{}, conflictAsDuplicate(err, sched.Name)
	}
	s.metrics.ScheduleSaved("update")

	return sched, s.audit(ctx, actor, models.EventUpdate, sched, "Schedule updated")
}

func (s *ScheduleService) Delete(ctx context.Context, actor Actor, id int) error {
	current, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !s.CanEdit(actor, current) {
		return ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrScheduleNotFound
		}
		return err
	}
	s.metrics.ScheduleSaved("delete")
	s.metrics.ForgetSchedule(current.ID)

	return s.audit(ctx, actor, models.EventDelete, current, "Schedule deleted")
}

func (s *ScheduleService) load(ctx context.Context, id int) (models.Schedule, error) {
	sched, err := s.repo.Get(ctx, id)
	if err != nil {
		return models.Schedule{}, err
	}
	if sched == nil {
		return models.Schedule{}, ErrScheduleNotFound
	}
	return *sched, nil
}

// validate normalizes in and checks it against the stored data. selfID is
// the schedule being updated, 0 on create.
func (s *ScheduleService) validate(ctx context.Context, selfID int, in ScheduleInput) (models.Schedule, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Schedule{}, fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if n := utf8.RuneCountInString(name); n > MaxNameLength {
		return models.Schedule{}, fmt.Errorf("%w: %d characters, max %d", ErrInvalidName, n, MaxNameLength)
	}

	m, err := parseMatrix(in.Matrix)
	if err != nil {
		return models.Schedule{}, err
	}

	tz, err := s.timezones.Get(ctx, in.TimeZone)
	if err != nil {
		return models.Schedule{}, err
	}
	if tz == nil {
		return models.Schedule{}, fmt.Errorf("%w: id %d", ErrUnknownTimeZone, in.TimeZone)
	}

	other, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return models.Schedule{}, err
	}
	if other != nil && other.ID != selfID {
		return models.Schedule{}, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}

	return models.Schedule{
		Name:      name,
		TimeZone:  tz.ID,
		Matrix:    matrix.Serialize(m),
		IsSpecial: in.IsSpecial,
	}, nil
}

// conflictAsDuplicate covers the window between the uniqueness check in
// validate and the write.
func conflictAsDuplicate(err error, name string) error {
	if errors.Is(err, repository.ErrConflict) {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	return err
}

func parseMatrix(raw string) (matrix.Matrix, error) {
	if strings.TrimSpace(raw) == "" {
		return matrix.New(nil)
	}
	return matrix.Deserialize(raw)
}

func (s *ScheduleService) audit(ctx context.Context, actor Actor, typ string, sched models.Schedule, msg string) error {
	return s.eventRepo.Append(ctx, models.ScheduleEvent{
		Type:        typ,
		ScheduleID:  sched.ID,
		Description: msg,
		Metadata: map[string]any{
			"name":       sched.Name,
			"user":       actor.Username,
			"is_special": sched.IsSpecial,
		},
	})
}
