package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"power_schedule/internal/models"
)

type StateSQLite struct {
	db *sql.DB
}

func NewStateSQLite(db *sql.DB) *StateSQLite {
	return &StateSQLite{db: db}
}

var _ StateRepo = (*StateSQLite)(nil)

const (
	upsertPowerStateSQL = `
		INSERT INTO power_state (schedule_id, is_on, day, slot, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(schedule_id) DO UPDATE SET
			is_on=excluded.is_on,
			day=excluded.day,
			slot=excluded.slot,
			updated_at=excluded.updated_at
	`

	selectPowerStatesSQL = `SELECT schedule_id, is_on, day, slot, updated_at FROM power_state`
)

// Save upserts the power state row of st.ScheduleID.
func (r *StateSQLite) Save(ctx context.Context, st models.PowerState) error {
	ts := st.UpdatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	} else {
		ts = ts.UTC()
	}

	_, err := r.db.ExecContext(ctx, upsertPowerStateSQL,
		st.ScheduleID,
		st.On,
		st.Day,
		st.Slot,
		ts,
	)
	if err != nil {
		return fmt.Errorf("save power state %d: %w", st.ScheduleID, err)
	}
	return nil
}

// LoadAll returns the recorded power state of every schedule, keyed by id.
func (r *StateSQLite) LoadAll(ctx context.Context) (map[int]models.PowerState, error) {
	rows, err := r.db.QueryContext(ctx, selectPowerStatesSQL)
	if err != nil {
		return nil, fmt.Errorf("load power states: %w", err)
	}
	defer rows.Close()

	out := make(map[int]models.PowerState)
	for rows.Next() {
		var s models.PowerState
		if err := rows.Scan(&s.ScheduleID, &s.On, &s.Day, &s.Slot, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan power state: %w", err)
		}
		s.UpdatedAt = s.UpdatedAt.UTC()
		out[s.ScheduleID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate power states: %w", err)
	}
	return out, nil
}
