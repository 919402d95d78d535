package attendance

import (
	"context"
	"time"
)

// AttendanceService enforces the punch and break state machine for one user per day.
// Every mutation returns the user's summary for today evaluated at the same instant.
type AttendanceService interface {
	PunchIn(ctx context.Context, req PunchRequest) (SummaryResponse, error)
	PunchOut(ctx context.Context, req PunchRequest) (SummaryResponse, error)
	StartBreak(ctx context.Context, req StartBreakRequest) (SummaryResponse, error)
	EndBreak(ctx context.Context, req EndBreakRequest) (SummaryResponse, error)

	// Today summarizes the current reference date as of now.
	Today(ctx context.Context, userID string) (SummaryResponse, error)

	// Summarize is a pure read of date evaluated at asOf.
	Summarize(ctx context.Context, userID string, date time.Time, asOf time.Time) (SummaryResponse, error)
}

// OverviewService builds the roster-wide present/absent view for a date.
type OverviewService interface {
	// Overview uses today when date is nil.
	Overview(ctx context.Context, date *time.Time) (OverviewResponse, error)
}
