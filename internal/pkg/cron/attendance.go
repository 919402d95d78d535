package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/clock"
)

// StaleBreak is an open break from a past day together with how long it has been running.
type StaleBreak struct {
	attendance.OpenBreak
	OpenSeconds int64
}

// AttendanceJobs reports breaks that were never ended. It only logs; nothing is closed out.
type AttendanceJobs struct {
	breakRepo attendance.BreakRepository
	clock     clock.Clock
	interval  time.Duration
}

func NewAttendanceJobs(breakRepo attendance.BreakRepository, clk clock.Clock, interval time.Duration) *AttendanceJobs {
	return &AttendanceJobs{
		breakRepo: breakRepo,
		clock:     clk,
		interval:  interval,
	}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler) error {
	return scheduler.AddJob("report_stale_open_breaks", j.interval, j.ReportStaleOpenBreaks)
}

// ReportStaleOpenBreaks logs one warning per open break left on a previous day.
func (j *AttendanceJobs) ReportStaleOpenBreaks(ctx context.Context) error {
	stale, err := j.StaleBreaks(ctx)
	if err != nil {
		return err
	}

	if len(stale) == 0 {
		slog.Debug("Cron: No stale open breaks found")
		return nil
	}

	for _, b := range stale {
		slog.Warn("Cron: Break left open on a past day",
			"user_id", b.UserID,
			"attendance_id", b.AttendanceID,
			"break_id", b.ID,
			"type", b.Type,
			"date", clock.FormatDate(b.AttendanceDate),
			"open_seconds", b.OpenSeconds,
		)
	}

	slog.Info("Cron: Stale open breaks reported", "count", len(stale))
	return nil
}

// StaleBreaks lists open breaks dated before today with their live duration.
func (j *AttendanceJobs) StaleBreaks(ctx context.Context) ([]StaleBreak, error) {
	now := j.clock.Now()

	open, err := j.breakRepo.ListOpenBefore(ctx, clock.DateOf(now, j.clock.Location()))
	if err != nil {
		return nil, fmt.Errorf("failed to list open breaks: %w", err)
	}

	stale := make([]StaleBreak, 0, len(open))
	for _, b := range open {
		seconds := int64(0)
		if d := now.Sub(b.StartTime); d > 0 {
			seconds = int64(d / time.Second)
		}
		stale = append(stale, StaleBreak{OpenBreak: b, OpenSeconds: seconds})
	}
	return stale, nil
}
