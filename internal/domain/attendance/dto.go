package attendance

import "time"

type PunchRequest struct {
	UserID string `json:"user_id" validate:"notblank"`
}

type StartBreakRequest struct {
	UserID string    `json:"user_id" validate:"notblank"`
	Type   BreakType `json:"type" validate:"required,oneof=tea lunch emergency"`
	Reason *string   `json:"reason,omitempty"`
}

type EndBreakRequest struct {
	UserID string `json:"user_id" validate:"notblank"`
}

type CurrentBreakResponse struct {
	Type            BreakType `json:"type"`
	Reason          *string   `json:"reason"`
	StartedAt       time.Time `json:"started_at"`
	DurationSeconds int64     `json:"duration_seconds"`
}

// SummaryResponse is a user's attendance for one date evaluated as of a point in time.
type SummaryResponse struct {
	Status               Status                `json:"status"`
	PunchInTime          *time.Time            `json:"punch_in_time"`
	PunchOutTime         *time.Time            `json:"punch_out_time"`
	WorkDurationSeconds  int64                 `json:"work_duration_seconds"`
	BreakDurationSeconds int64                 `json:"break_duration_seconds"`
	CurrentBreak         *CurrentBreakResponse `json:"current_break"`
}

type OverviewItem struct {
	UserID     string          `json:"user_id"`
	Name       string          `json:"name"`
	Phone      *string         `json:"phone"`
	RoleID     *string         `json:"role_id"`
	Attendance SummaryResponse `json:"attendance"`
	IsPresent  bool            `json:"is_present"`
}

type OverviewMeta struct {
	Date         string `json:"date"`
	PresentCount int    `json:"present_count"`
	AbsentCount  int    `json:"absent_count"`
	TotalUsers   int    `json:"total_users"`
}

type OverviewResponse struct {
	Items []OverviewItem `json:"items"`
	Meta  OverviewMeta   `json:"meta"`
}
