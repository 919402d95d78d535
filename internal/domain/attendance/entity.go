package attendance

import (
	"time"
)

type BreakType string

const (
	BreakTypeTea       BreakType = "tea"
	BreakTypeLunch     BreakType = "lunch"
	BreakTypeEmergency BreakType = "emergency"
)

// IsValid reports whether t is one of the supported break types.
func (t BreakType) IsValid() bool {
	switch t {
	case BreakTypeTea, BreakTypeLunch, BreakTypeEmergency:
		return true
	}
	return false
}

// Status is derived from an attendance record and its breaks, never stored.
type Status string

const (
	StatusNotPunchedIn Status = "not_punched_in"
	StatusWorking      Status = "working"
	StatusOnBreak      Status = "on_break"
	StatusCompleted    Status = "completed"
)

// IsPresent reports whether the user showed up for the day.
func (s Status) IsPresent() bool {
	return s == StatusWorking || s == StatusOnBreak || s == StatusCompleted
}

// Attendance is one user's record for one calendar day in the reference timezone.
type Attendance struct {
	ID         string
	UserID     string
	Date       time.Time
	PunchInAt  time.Time
	PunchOutAt *time.Time

	// Snapshot totals written on break end and punch out. Live views recompute.
	TotalWorkSeconds  int64
	TotalBreakSeconds int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a *Attendance) IsCompleted() bool {
	return a.PunchOutAt != nil
}

type Break struct {
	ID              string
	AttendanceID    string
	Type            BreakType
	Reason          *string
	StartTime       time.Time
	EndTime         *time.Time
	DurationSeconds int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (b *Break) IsActive() bool {
	return b.EndTime == nil
}

// OpenBreak is an active break joined with its owning record.
type OpenBreak struct {
	Break
	UserID         string
	AttendanceDate time.Time
}
