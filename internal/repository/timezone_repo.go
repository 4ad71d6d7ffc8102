package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"power_schedule/internal/models"
)

type TimeZoneSQLite struct {
	db *sql.DB
}

func NewTimeZoneSQLite(db *sql.DB) *TimeZoneSQLite {
	return &TimeZoneSQLite{db: db}
}

var _ TimeZoneRepo = (*TimeZoneSQLite)(nil)

const (
	selectTimeZonesSQL      = `SELECT id, name FROM timezones ORDER BY name ASC`
	selectTimeZoneByIDSQL   = `SELECT id, name FROM timezones WHERE id = ?`
	insertIgnoreTimeZoneSQL = `INSERT INTO timezones (name) VALUES (?) ON CONFLICT(name) DO NOTHING`
	selectTimeZoneIDSQL     = `SELECT id FROM timezones WHERE name = ?`
)

// List returns every timezone ordered by name.
func (r *TimeZoneSQLite) List(ctx context.Context) ([]models.TimeZone, error) {
	rows, err := r.db.QueryContext(ctx, selectTimeZonesSQL)
	if err != nil {
		return nil, fmt.Errorf("list timezones: %w", err)
	}
	defer rows.Close()

	var out []models.TimeZone
	for rows.Next() {
		var tz models.TimeZone
		if err := rows.Scan(&tz.ID, &tz.Name); err != nil {
			return nil, fmt.Errorf("scan timezone: %w", err)
		}
		out = append(out, tz)
	}
	return out, rows.Err()
}

// Get fetches a timezone by id. Returns (nil, nil) if not found.
func (r *TimeZoneSQLite) Get(ctx context.Context, id int) (*models.TimeZone, error) {
	var tz models.TimeZone
	err := r.db.QueryRowContext(ctx, selectTimeZoneByIDSQL, id).Scan(&tz.ID, &tz.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select timezone %d: %w", id, err)
	}
	return &tz, nil
}

// Ensure inserts name if missing and returns its ID either way.
func (r *TimeZoneSQLite) Ensure(ctx context.Context, name string) (int, error) {
	if _, err := r.db.ExecContext(ctx, insertIgnoreTimeZoneSQL, name); err != nil {
		return 0, fmt.Errorf("insert timezone %q: %w", name, err)
	}
	var id int
	if err := r.db.QueryRowContext(ctx, selectTimeZoneIDSQL, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("select timezone id %q: %w", name, err)
	}
	return id, nil
}
