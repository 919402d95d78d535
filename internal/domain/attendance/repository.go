package attendance

import (
	"context"
	"time"
)

// AttendanceRepository defines data access methods for attendance records.
type AttendanceRepository interface {
	// GetByUserAndDate returns nil when the user has no record for date.
	GetByUserAndDate(ctx context.Context, userID string, date time.Time) (*Attendance, error)

	// LockByUserAndDate is GetByUserAndDate holding a row lock until the surrounding transaction ends.
	LockByUserAndDate(ctx context.Context, userID string, date time.Time) (*Attendance, error)

	// Create fails with ErrConstraintViolation if (user_id, date) already exists.
	Create(ctx context.Context, attendance Attendance) (Attendance, error)

	// UpdateTotals writes punch_out_at and the snapshot totals.
	UpdateTotals(ctx context.Context, attendance Attendance) error
}

// BreakRepository defines data access methods for break records.
type BreakRepository interface {
	// ListByAttendance returns breaks ordered by start time.
	ListByAttendance(ctx context.Context, attendanceID string) ([]Break, error)

	// Create fails with ErrConstraintViolation on a second open break or a second lunch.
	Create(ctx context.Context, b Break) (Break, error)

	End(ctx context.Context, id string, endTime time.Time, durationSeconds int64) error

	// ListOpenBefore returns open breaks whose attendance date is before date.
	ListOpenBefore(ctx context.Context, date time.Time) ([]OpenBreak, error)
}

// Transactor runs fn atomically; repositories called with the ctx passed to fn join the transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
