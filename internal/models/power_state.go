package models

import "time"

// PowerState is the last power decision the monitor recorded for a schedule.
type PowerState struct {
	ScheduleID int       `json:"schedule_id"`
	On         bool      `json:"on"`
	Day        int       `json:"day"`  // 0 = Monday
	Slot       int       `json:"slot"` // half-hour index, 0..47
	UpdatedAt  time.Time `json:"updated_at"`
}
