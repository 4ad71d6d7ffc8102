package models

import "time"

// Audit event types.
const (
	EventCreate   = "CREATE"
	EventUpdate   = "UPDATE"
	EventDelete   = "DELETE"
	EventPowerOn  = "POWER_ON"
	EventPowerOff = "POWER_OFF"
)

// EventTypes lists every audit event type.
var EventTypes = []string{EventCreate, EventUpdate, EventDelete, EventPowerOn, EventPowerOff}

// ScheduleEvent is a single audit log entry.
type ScheduleEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // CREATE | UPDATE | DELETE | POWER_ON | POWER_OFF
	ScheduleID  int       `json:"schedule_id"` // 0 when not tied to a schedule
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
