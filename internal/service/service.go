package service

import (
	"context"
	"time"

	"power_schedule/internal/logger"
	"power_schedule/internal/metrics"
	"power_schedule/internal/models"
	"power_schedule/internal/repository"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (Actor, error)
}

// Schedules exposes schedule CRUD with permission checks and auditing.
type Schedules interface {
	List(ctx context.Context, actor Actor, includeSpecial bool) ([]models.Schedule, error)
	Get(ctx context.Context, actor Actor, id int) (models.Schedule, error)
	Create(ctx context.Context, actor Actor, in ScheduleInput) (models.Schedule, error)
	Update(ctx context.Context, actor Actor, id int, in ScheduleInput) (models.Schedule, error)
	Delete(ctx context.Context, actor Actor, id int) error
	CanEdit(actor Actor, s models.Schedule) bool
}

type TimeZones interface {
	List(ctx context.Context) ([]models.TimeZone, error)
	Seed(ctx context.Context, names []string) error
	Location(ctx context.Context, id int) (*time.Location, error)
}

// Power evaluates schedules at a point in time.
type Power interface {
	StateAt(ctx context.Context, id int, at time.Time) (PowerState, error)
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.ScheduleEvent, error)
}

// Monitor runs the background loop that tracks power transitions.
// Stop via context cancellation in main() for graceful shutdown.
type Monitor interface {
	Run(ctx context.Context, tick time.Duration)
}

type Service struct {
	Schedules
	TimeZones
	Power
	EventLog
	Monitor
	Authorization
}

// NewService wires repository layer into concrete services.
// The logger may be nil.
func NewService(repos *repository.Repository, auth AuthConfig, m *metrics.Metrics, log *logger.Logger) *Service {
	tz := NewTimeZoneService(repos.TimeZones)
	return &Service{
		Schedules:     NewScheduleService(repos.Schedules, repos.TimeZones, repos.EventRepo, m),
		TimeZones:     tz,
		Power:         NewPowerService(repos.Schedules, tz),
		EventLog:      NewEventLogService(repos.EventRepo),
		Monitor:       NewPowerMonitor(repos.Schedules, repos.StateRepo, repos.EventRepo, tz, m, log),
		Authorization: NewAuthService(repos.Auth, auth),
	}
}
