package attendance

import (
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
)

// Durations is the outcome of the duration algorithm for one record at one instant.
type Durations struct {
	WorkSeconds  int64
	BreakSeconds int64
	// Active is the open break, if any, and ActiveSeconds its running length.
	Active        *attendance.Break
	ActiveSeconds int64
}

// elapsedSeconds is to - from in whole seconds, never negative.
func elapsedSeconds(from, to time.Time) int64 {
	d := to.Sub(from)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}

// activeBreak returns the first open break in start order.
func activeBreak(breaks []attendance.Break) *attendance.Break {
	for i := range breaks {
		if breaks[i].IsActive() {
			b := breaks[i]
			return &b
		}
	}
	return nil
}

// CalculateDurations recomputes work and break time from raw events as of asOf.
func CalculateDurations(att attendance.Attendance, breaks []attendance.Break, asOf time.Time) Durations {
	var d Durations

	for _, b := range breaks {
		if b.EndTime != nil {
			d.BreakSeconds += elapsedSeconds(b.StartTime, *b.EndTime)
		}
	}

	if active := activeBreak(breaks); active != nil {
		d.Active = active
		d.ActiveSeconds = elapsedSeconds(active.StartTime, asOf)
		d.BreakSeconds += d.ActiveSeconds
	}

	workEnd := asOf
	if att.PunchOutAt != nil {
		workEnd = *att.PunchOutAt
	}

	d.WorkSeconds = elapsedSeconds(att.PunchInAt, workEnd) - d.BreakSeconds
	if d.WorkSeconds < 0 {
		d.WorkSeconds = 0
	}
	return d
}

// DeriveStatus maps a record and whether a break is open to its status. A nil record is not punched in.
func DeriveStatus(att *attendance.Attendance, onBreak bool) attendance.Status {
	switch {
	case att == nil:
		return attendance.StatusNotPunchedIn
	case att.IsCompleted():
		return attendance.StatusCompleted
	case onBreak:
		return attendance.StatusOnBreak
	default:
		return attendance.StatusWorking
	}
}

// BuildSummary renders the summary payload with timestamps in loc.
func BuildSummary(att *attendance.Attendance, breaks []attendance.Break, asOf time.Time, loc *time.Location) attendance.SummaryResponse {
	if att == nil {
		return attendance.SummaryResponse{Status: attendance.StatusNotPunchedIn}
	}

	d := CalculateDurations(*att, breaks, asOf)

	punchIn := att.PunchInAt.In(loc)
	summary := attendance.SummaryResponse{
		Status:               DeriveStatus(att, d.Active != nil),
		PunchInTime:          &punchIn,
		WorkDurationSeconds:  d.WorkSeconds,
		BreakDurationSeconds: d.BreakSeconds,
	}

	if att.PunchOutAt != nil {
		punchOut := att.PunchOutAt.In(loc)
		summary.PunchOutTime = &punchOut
	}

	if d.Active != nil {
		summary.CurrentBreak = &attendance.CurrentBreakResponse{
			Type:            d.Active.Type,
			Reason:          d.Active.Reason,
			StartedAt:       d.Active.StartTime.In(loc),
			DurationSeconds: d.ActiveSeconds,
		}
	}

	return summary
}
