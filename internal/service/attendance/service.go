package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/clock"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
	"github.com/google/uuid"
)

// EventPublisher receives the fresh summary after every committed change.
type EventPublisher interface {
	Publish(userID string, event sse.Event)
}

type AttendanceServiceImpl struct {
	attendanceRepo attendance.AttendanceRepository
	breakRepo      attendance.BreakRepository
	tx             attendance.Transactor
	clock          clock.Clock
	publisher      EventPublisher
}

// PunchIn implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) PunchIn(ctx context.Context, req attendance.PunchRequest) (attendance.SummaryResponse, error) {
	if err := validator.Struct(req); err != nil {
		return attendance.SummaryResponse{}, err
	}

	now := s.clock.Now()
	today := clock.DateOf(now, s.clock.Location())

	var (
		created attendance.Attendance
		summary attendance.SummaryResponse
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.attendanceRepo.LockByUserAndDate(ctx, req.UserID, today)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.IsCompleted() {
				return attendance.ErrDayAlreadyCompleted
			}
			return attendance.ErrAlreadyPunchedIn
		}

		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate attendance id: %w", err)
		}

		created, err = s.attendanceRepo.Create(ctx, attendance.Attendance{
			ID:        id.String(),
			UserID:    req.UserID,
			Date:      today,
			PunchInAt: now,
		})
		if err != nil {
			return err
		}

		summary = BuildSummary(&created, nil, now, s.clock.Location())
		return nil
	})
	if err != nil {
		return attendance.SummaryResponse{}, err
	}

	slog.Info("Punched in", "user_id", req.UserID, "attendance_id", created.ID, "date", clock.FormatDate(today))
	s.publish(req.UserID, summary)
	return summary, nil
}

// StartBreak implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) StartBreak(ctx context.Context, req attendance.StartBreakRequest) (attendance.SummaryResponse, error) {
	if err := validator.Struct(req); err != nil {
		return attendance.SummaryResponse{}, err
	}

	reason := normalizeReason(req.Reason)
	if req.Type == attendance.BreakTypeEmergency && reason == nil {
		return attendance.SummaryResponse{}, attendance.ErrReasonRequired
	}

	now := s.clock.Now()
	today := clock.DateOf(now, s.clock.Location())

	var (
		started attendance.Break
		summary attendance.SummaryResponse
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		att, err := s.attendanceRepo.LockByUserAndDate(ctx, req.UserID, today)
		if err != nil {
			return err
		}
		if att == nil || att.IsCompleted() {
			return attendance.ErrNotPunchedIn
		}

		breaks, err := s.breakRepo.ListByAttendance(ctx, att.ID)
		if err != nil {
			return err
		}
		for _, b := range breaks {
			if req.Type == attendance.BreakTypeLunch && b.Type == attendance.BreakTypeLunch {
				return attendance.ErrLunchAlreadyTaken
			}
		}
		if activeBreak(breaks) != nil {
			return attendance.ErrBreakAlreadyActive
		}

		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate break id: %w", err)
		}

		started, err = s.breakRepo.Create(ctx, attendance.Break{
			ID:           id.String(),
			AttendanceID: att.ID,
			Type:         req.Type,
			Reason:       reason,
			StartTime:    now,
		})
		if err != nil {
			return err
		}

		summary = BuildSummary(att, append(breaks, started), now, s.clock.Location())
		return nil
	})
	if err != nil {
		return attendance.SummaryResponse{}, err
	}

	slog.Info("Break started", "user_id", req.UserID, "attendance_id", started.AttendanceID, "break_id", started.ID, "type", started.Type)
	s.publish(req.UserID, summary)
	return summary, nil
}

// EndBreak implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) EndBreak(ctx context.Context, req attendance.EndBreakRequest) (attendance.SummaryResponse, error) {
	if err := validator.Struct(req); err != nil {
		return attendance.SummaryResponse{}, err
	}

	now := s.clock.Now()
	today := clock.DateOf(now, s.clock.Location())

	var (
		ended   attendance.Break
		att     *attendance.Attendance
		summary attendance.SummaryResponse
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		att, err = s.attendanceRepo.LockByUserAndDate(ctx, req.UserID, today)
		if err != nil {
			return err
		}
		if att == nil {
			return attendance.ErrNoAttendanceToday
		}

		breaks, err := s.breakRepo.ListByAttendance(ctx, att.ID)
		if err != nil {
			return err
		}
		active := activeBreak(breaks)
		if active == nil {
			return attendance.ErrNoActiveBreak
		}

		duration := elapsedSeconds(active.StartTime, now)
		if err := s.breakRepo.End(ctx, active.ID, now, duration); err != nil {
			return err
		}
		for i := range breaks {
			if breaks[i].ID == active.ID {
				breaks[i].EndTime = &now
				breaks[i].DurationSeconds = duration
			}
		}
		ended = *active
		ended.DurationSeconds = duration

		if err := s.persistTotals(ctx, att, breaks, now); err != nil {
			return err
		}

		summary = BuildSummary(att, breaks, now, s.clock.Location())
		return nil
	})
	if err != nil {
		return attendance.SummaryResponse{}, err
	}

	slog.Info("Break ended", "user_id", req.UserID, "attendance_id", att.ID, "break_id", ended.ID, "duration_seconds", ended.DurationSeconds)
	s.publish(req.UserID, summary)
	return summary, nil
}

// PunchOut implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) PunchOut(ctx context.Context, req attendance.PunchRequest) (attendance.SummaryResponse, error) {
	if err := validator.Struct(req); err != nil {
		return attendance.SummaryResponse{}, err
	}

	now := s.clock.Now()
	today := clock.DateOf(now, s.clock.Location())

	var (
		att     *attendance.Attendance
		summary attendance.SummaryResponse
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		att, err = s.attendanceRepo.LockByUserAndDate(ctx, req.UserID, today)
		if err != nil {
			return err
		}
		if att == nil {
			return attendance.ErrNotPunchedIn
		}
		if att.IsCompleted() {
			return attendance.ErrAlreadyPunchedOut
		}

		breaks, err := s.breakRepo.ListByAttendance(ctx, att.ID)
		if err != nil {
			return err
		}
		if activeBreak(breaks) != nil {
			return attendance.ErrBreakStillActive
		}

		att.PunchOutAt = &now
		if err := s.persistTotals(ctx, att, breaks, now); err != nil {
			return err
		}

		summary = BuildSummary(att, breaks, now, s.clock.Location())
		return nil
	})
	if err != nil {
		return attendance.SummaryResponse{}, err
	}

	slog.Info("Punched out", "user_id", req.UserID, "attendance_id", att.ID, "date", clock.FormatDate(today),
		"total_work_seconds", att.TotalWorkSeconds, "total_break_seconds", att.TotalBreakSeconds)
	s.publish(req.UserID, summary)
	return summary, nil
}

// persistTotals writes the snapshot totals of att computed as of now.
func (s *AttendanceServiceImpl) persistTotals(ctx context.Context, att *attendance.Attendance, breaks []attendance.Break, now time.Time) error {
	d := CalculateDurations(*att, breaks, now)
	att.TotalWorkSeconds = d.WorkSeconds
	att.TotalBreakSeconds = d.BreakSeconds
	return s.attendanceRepo.UpdateTotals(ctx, *att)
}

// Today implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) Today(ctx context.Context, userID string) (attendance.SummaryResponse, error) {
	if err := validator.Struct(attendance.PunchRequest{UserID: userID}); err != nil {
		return attendance.SummaryResponse{}, err
	}

	now := s.clock.Now()
	return s.Summarize(ctx, userID, clock.DateOf(now, s.clock.Location()), now)
}

// Summarize implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) Summarize(ctx context.Context, userID string, date time.Time, asOf time.Time) (attendance.SummaryResponse, error) {
	att, err := s.attendanceRepo.GetByUserAndDate(ctx, userID, date)
	if err != nil {
		return attendance.SummaryResponse{}, err
	}
	if att == nil {
		return BuildSummary(nil, nil, asOf, s.clock.Location()), nil
	}

	breaks, err := s.breakRepo.ListByAttendance(ctx, att.ID)
	if err != nil {
		return attendance.SummaryResponse{}, err
	}

	return BuildSummary(att, breaks, asOf, s.clock.Location()), nil
}

// publish pushes the committed summary to live streams.
func (s *AttendanceServiceImpl) publish(userID string, summary attendance.SummaryResponse) {
	if s.publisher != nil {
		s.publisher.Publish(userID, sse.Event{
			UserID: userID,
			Event:  sse.EventAttendanceUpdated,
			Data:   summary,
		})
	}
}

func normalizeReason(reason *string) *string {
	if reason == nil || validator.IsEmpty(*reason) {
		return nil
	}
	trimmed := strings.TrimSpace(*reason)
	return &trimmed
}

// NewAttendanceService wires the ledger. publisher may be nil.
func NewAttendanceService(
	attendanceRepo attendance.AttendanceRepository,
	breakRepo attendance.BreakRepository,
	tx attendance.Transactor,
	clk clock.Clock,
	publisher EventPublisher,
) attendance.AttendanceService {
	return &AttendanceServiceImpl{
		attendanceRepo: attendanceRepo,
		breakRepo:      breakRepo,
		tx:             tx,
		clock:          clk,
		publisher:      publisher,
	}
}
