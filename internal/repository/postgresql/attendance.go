package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/clock"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const attendanceColumns = `
	id, user_id, date::text, punch_in_at, punch_out_at,
	total_work_seconds, total_break_seconds, created_at, updated_at
`

type attendanceRepository struct {
	db  *database.DB
	loc *time.Location
}

// GetByUserAndDate implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByUserAndDate(ctx context.Context, userID string, date time.Time) (*attendance.Attendance, error) {
	query := `SELECT ` + attendanceColumns + `
		FROM attendances
		WHERE user_id = $1 AND date = $2::date
	`
	return a.getOne(ctx, query, userID, date)
}

// LockByUserAndDate implements attendance.AttendanceRepository.
func (a *attendanceRepository) LockByUserAndDate(ctx context.Context, userID string, date time.Time) (*attendance.Attendance, error) {
	query := `SELECT ` + attendanceColumns + `
		FROM attendances
		WHERE user_id = $1 AND date = $2::date
		FOR UPDATE
	`
	return a.getOne(ctx, query, userID, date)
}

func (a *attendanceRepository) getOne(ctx context.Context, query, userID string, date time.Time) (*attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	att, err := a.scan(q.QueryRow(ctx, query, userID, clock.FormatDate(date)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attendance by user and date: %w", err)
	}
	return &att, nil
}

func (a *attendanceRepository) scan(row pgx.Row) (attendance.Attendance, error) {
	var (
		att  attendance.Attendance
		date string
	)
	err := row.Scan(
		&att.ID, &att.UserID, &date, &att.PunchInAt, &att.PunchOutAt,
		&att.TotalWorkSeconds, &att.TotalBreakSeconds, &att.CreatedAt, &att.UpdatedAt,
	)
	if err != nil {
		return attendance.Attendance{}, err
	}

	att.Date, err = clock.ParseDate(date, a.loc)
	if err != nil {
		return attendance.Attendance{}, fmt.Errorf("invalid attendance date %q: %w", date, err)
	}
	return att, nil
}

// Create implements attendance.AttendanceRepository.
func (a *attendanceRepository) Create(ctx context.Context, newAttendance attendance.Attendance) (attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		INSERT INTO attendances (
			id, user_id, date, punch_in_at, punch_out_at, total_work_seconds, total_break_seconds
		) VALUES (
			$1, $2, $3::date, $4, $5, $6, $7
		) RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		newAttendance.ID,
		newAttendance.UserID,
		clock.FormatDate(newAttendance.Date),
		newAttendance.PunchInAt,
		newAttendance.PunchOutAt,
		newAttendance.TotalWorkSeconds,
		newAttendance.TotalBreakSeconds,
	).Scan(&newAttendance.CreatedAt, &newAttendance.UpdatedAt)

	if err != nil {
		return attendance.Attendance{}, fmt.Errorf("failed to create attendance: %w", mapWriteError(err))
	}

	return newAttendance, nil
}

// UpdateTotals implements attendance.AttendanceRepository.
func (a *attendanceRepository) UpdateTotals(ctx context.Context, att attendance.Attendance) error {
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE attendances
		SET punch_out_at = $1, total_work_seconds = $2, total_break_seconds = $3, updated_at = NOW()
		WHERE id = $4
	`

	commandTag, err := q.Exec(ctx, query, att.PunchOutAt, att.TotalWorkSeconds, att.TotalBreakSeconds, att.ID)
	if err != nil {
		return fmt.Errorf("failed to update attendance totals: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return attendance.ErrAttendanceNotFound
	}

	return nil
}

func NewAttendanceRepository(db *database.DB, loc *time.Location) attendance.AttendanceRepository {
	return &attendanceRepository{db: db, loc: loc}
}
