package matrix

import (
	"fmt"
	"time"
)

var dayNames = [Days]string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// DayName returns the weekday for a row, Monday first.
func DayName(row int) (string, error) {
	if row < 0 || row >= Days {
		return "", fmt.Errorf("%w: row %d not in [0,%d)", ErrIndex, row, Days)
	}
	return dayNames[row], nil
}

// SlotLabel returns the half-open window covered by a column, e.g.
// "09:30 → 10:00". The last column ends at "00:00", not "24:00".
func SlotLabel(col int) (string, error) {
	if col < 0 || col >= SlotsPerDay {
		return "", fmt.Errorf("%w: col %d not in [0,%d)", ErrIndex, col, SlotsPerDay)
	}
	start := col * SlotMinutes
	end := start + SlotMinutes
	return fmt.Sprintf("%02d:%02d → %02d:%02d",
		start/60, start%60, (end/60)%24, end%60), nil
}

// CellLabel joins the day and slot labels: "Monday: 00:00 → 00:30".
func CellLabel(row, col int) (string, error) {
	day, err := DayName(row)
	if err != nil {
		return "", err
	}
	slot, err := SlotLabel(col)
	if err != nil {
		return "", err
	}
	return day + ": " + slot, nil
}

// SlotAt maps a wall-clock time to its grid cell. The caller picks the
// location by converting t beforehand.
func SlotAt(t time.Time) (row, col int) {
	row = (int(t.Weekday()) + 6) % 7
	col = t.Hour()*2 + t.Minute()/SlotMinutes
	return row, col
}

// IsOnAt reports whether the schedule is on at instant t, evaluated in loc.
// A nil loc means UTC.
func (m Matrix) IsOnAt(t time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	row, col := SlotAt(t.In(loc))
	return m.cells[row][col]
}

// NextChange returns the start of the first slot after t whose state differs
// from the state at t. ok is false for a schedule that is constant all week.
func (m Matrix) NextChange(t time.Time, loc *time.Location) (next time.Time, ok bool) {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	current := m.IsOnAt(local, loc)
	slotStart := local.Truncate(time.Minute).Add(-time.Duration(local.Minute()%SlotMinutes) * time.Minute)
	for i := 1; i <= Days*SlotsPerDay; i++ {
		candidate := slotStart.Add(time.Duration(i*SlotMinutes) * time.Minute)
		if m.IsOnAt(candidate, loc) != current {
			return candidate, true
		}
	}
	return time.Time{}, false
}
