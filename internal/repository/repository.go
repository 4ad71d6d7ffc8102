package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"power_schedule/internal/models"
)

var (
	// ErrNotFound is returned by writes that target a missing row.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write hits a unique constraint.
	ErrConflict = errors.New("unique constraint violated")
)

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type Authorization interface {
	Create(ctx context.Context, username, hash string, provisioned bool) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

type ScheduleRepo interface {
	List(ctx context.Context, includeSpecial bool) ([]models.Schedule, error)
	Get(ctx context.Context, id int) (*models.Schedule, error)
	GetByName(ctx context.Context, name string) (*models.Schedule, error)
	Create(ctx context.Context, s models.Schedule) (int, error)
	Update(ctx context.Context, s models.Schedule) error
	Delete(ctx context.Context, id int) error
}

type TimeZoneRepo interface {
	List(ctx context.Context) ([]models.TimeZone, error)
	Get(ctx context.Context, id int) (*models.TimeZone, error)
	Ensure(ctx context.Context, name string) (int, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.ScheduleEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.ScheduleEvent, error)
}

type StateRepo interface {
	Save(ctx context.Context, st models.PowerState) error
	LoadAll(ctx context.Context) (map[int]models.PowerState, error)
}

type Repository struct {
	Schedules ScheduleRepo
	TimeZones TimeZoneRepo
	EventRepo EventRepo
	StateRepo StateRepo
	Auth      Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Schedules: NewScheduleSQLite(db),
		TimeZones: NewTimeZoneSQLite(db),
		EventRepo: NewEventSQLite(db),
		StateRepo: NewStateSQLite(db),
		Auth:      NewUserRepository(db),
	}
}
