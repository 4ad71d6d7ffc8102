package service

import (
	"time"

	"github.com/samber/lo"
)

// Permissions carried in access tokens.
const (
	PermEditSchedule       = "edit_schedule"
	PermUseSpecialSchedule = "use_special_schedule"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID   int
	Username string
	Perms    []string
}

// Can reports whether the actor holds perm.
func (a Actor) Can(perm string) bool {
	return lo.Contains(a.Perms, perm)
}

// ScheduleInput is the editable part of a schedule.
type ScheduleInput struct {
	Name      string `json:"name"`
	TimeZone  int    `json:"timezone"`
	Matrix    string `json:"matrix"` // serialized grid; empty means all off
	IsSpecial bool   `json:"is_special"`
}

// LogFilter selects audit events. Zero fields match everything.
type LogFilter struct {
	From       time.Time // inclusive
	To         time.Time // inclusive
	Type       string    // one of models.EventTypes, any case
	ScheduleID int
}

// PowerState is the answer of a point-in-time power evaluation.
type PowerState struct {
	ScheduleID int        `json:"schedule_id"`
	At         time.Time  `json:"at"`
	On         bool       `json:"on"`
	Day        int        `json:"day"`
	Slot       int        `json:"slot"`
	Label      string     `json:"label"`
	NextChange *time.Time `json:"next_change,omitempty"` // nil when the schedule never changes
}
