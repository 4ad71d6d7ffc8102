package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"power_schedule/internal/models"
)

type ScheduleSQLite struct {
	db *sql.DB
}

func NewScheduleSQLite(db *sql.DB) *ScheduleSQLite {
	return &ScheduleSQLite{db: db}
}

var _ ScheduleRepo = (*ScheduleSQLite)(nil)

const (
	scheduleColumns = `id, name, timezone_id, matrix, is_special`

	selectSchedulesSQL        = `SELECT ` + scheduleColumns + ` FROM schedules`
	selectScheduleByIDSQL     = `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = ?`
	selectScheduleByNameSQL   = `SELECT ` + scheduleColumns + ` FROM schedules WHERE name = ?`
	insertScheduleSQL         = `INSERT INTO schedules (name, timezone_id, matrix, is_special) VALUES (?, ?, ?, ?)`
	updateScheduleSQL         = `UPDATE schedules SET name = ?, timezone_id = ?, matrix = ?, is_special = ? WHERE id = ?`
	deleteScheduleSQL         = `DELETE FROM schedules WHERE id = ?`
	scheduleOrderBy           = ` ORDER BY name ASC`
	scheduleExcludeSpecialSQL = ` WHERE is_special = 0`
)

// List returns schedules ordered by name. Special schedules are skipped
// unless includeSpecial is set.
func (r *ScheduleSQLite) List(ctx context.Context, includeSpecial bool) ([]models.Schedule, error) {
	q := selectSchedulesSQL
	if !includeSpecial {
		q += scheduleExcludeSpecialSQL
	}
	q += scheduleOrderBy

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	out := make([]models.Schedule, 0, 16)
	for rows.Next() {
		var s models.Schedule
		if err := rows.Scan(&s.ID, &s.Name, &s.TimeZone, &s.Matrix, &s.IsSpecial); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}
	return out, nil
}

// Get fetches a schedule by id. Returns (nil, nil) if not found.
func (r *ScheduleSQLite) Get(ctx context.Context, id int) (*models.Schedule, error) {
	return r.getOne(ctx, selectScheduleByIDSQL, id)
}

// GetByName fetches a schedule by its unique name. Returns (nil, nil) if not found.
func (r *ScheduleSQLite) GetByName(ctx context.Context, name string) (*models.Schedule, error) {
	return r.getOne(ctx, selectScheduleByNameSQL, strings.TrimSpace(name))
}

func (r *ScheduleSQLite) getOne(ctx context.Context, query string, arg any) (*models.Schedule, error) {
	var s models.Schedule
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&s.ID, &s.Name, &s.TimeZone, &s.Matrix, &s.IsSpecial)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select schedule %v: %w", arg, err)
	}
	return &s, nil
}

// Create inserts a schedule and returns its ID.
func (r *ScheduleSQLite) Create(ctx context.Context, s models.Schedule) (int, error) {
	res, err := r.db.ExecContext(ctx, insertScheduleSQL, s.Name, s.TimeZone, s.Matrix, s.IsSpecial)
	if isUniqueViolation(err) {
		return 0, fmt.Errorf("insert schedule %q: %w", s.Name, ErrConflict)
	}
	if err != nil {
		return 0, fmt.Errorf("insert schedule %q: %w", s.Name, err)
	}
	lastID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id for schedule %q: %w", s.Name, err)
	}
	return int(lastID), nil
}

// Update overwrites every editable column of schedule s.ID.
func (r *ScheduleSQLite) Update(ctx context.Context, s models.Schedule) error {
	res, err := r.db.ExecContext(ctx, updateScheduleSQL, s.Name, s.TimeZone, s.Matrix, s.IsSpecial, s.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("update schedule %d: %w", s.ID, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("update schedule %d: %w", s.ID, err)
	}
	return requireAffected(res, "update schedule", s.ID)
}

// Delete removes schedule id.
func (r *ScheduleSQLite) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, deleteScheduleSQL, id)
	if err != nil {
		return fmt.Errorf("delete schedule %d: %w", id, err)
	}
	return requireAffected(res, "delete schedule", id)
}

func requireAffected(res sql.Result, op string, id int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %d rows affected: %w", op, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", op, id, ErrNotFound)
	}
	return nil
}
