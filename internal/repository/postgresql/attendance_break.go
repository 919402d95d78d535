package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/clock"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
)

type breakRepository struct {
	db  *database.DB
	loc *time.Location
}

// ListByAttendance implements attendance.BreakRepository.
func (b *breakRepository) ListByAttendance(ctx context.Context, attendanceID string) ([]attendance.Break, error) {
	q := GetQuerier(ctx, b.db)

	query := `
		SELECT id, attendance_id, type, reason, start_time, end_time, duration_seconds, created_at, updated_at
		FROM attendance_breaks
		WHERE attendance_id = $1
		ORDER BY start_time ASC, id ASC
	`

	rows, err := q.Query(ctx, query, attendanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list breaks: %w", err)
	}
	defer rows.Close()

	breaks := make([]attendance.Break, 0)
	for rows.Next() {
		var br attendance.Break
		if err := rows.Scan(
			&br.ID, &br.AttendanceID, &br.Type, &br.Reason, &br.StartTime, &br.EndTime,
			&br.DurationSeconds, &br.CreatedAt, &br.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan break: %w", err)
		}
		breaks = append(breaks, br)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate breaks: %w", err)
	}

	return breaks, nil
}

// Create implements attendance.BreakRepository.
func (b *breakRepository) Create(ctx context.Context, newBreak attendance.Break) (attendance.Break, error) {
	q := GetQuerier(ctx, b.db)

	query := `
		INSERT INTO attendance_breaks (
			id, attendance_id, type, reason, start_time, end_time, duration_seconds
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		) RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		newBreak.ID,
		newBreak.AttendanceID,
		string(newBreak.Type),
		newBreak.Reason,
		newBreak.StartTime,
		newBreak.EndTime,
		newBreak.DurationSeconds,
	).Scan(&newBreak.CreatedAt, &newBreak.UpdatedAt)

	if err != nil {
		return attendance.Break{}, fmt.Errorf("failed to create break: %w", mapWriteError(err))
	}

	return newBreak, nil
}

// End implements attendance.BreakRepository.
func (b *breakRepository) End(ctx context.Context, id string, endTime time.Time, durationSeconds int64) error {
	q := GetQuerier(ctx, b.db)

	query := `
		UPDATE attendance_breaks
		SET end_time = $1, duration_seconds = $2, updated_at = NOW()
		WHERE id = $3 AND end_time IS NULL
	`

	commandTag, err := q.Exec(ctx, query, endTime, durationSeconds, id)
	if err != nil {
		return fmt.Errorf("failed to end break: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return attendance.ErrBreakNotFound
	}

	return nil
}

// ListOpenBefore implements attendance.BreakRepository.
func (b *breakRepository) ListOpenBefore(ctx context.Context, date time.Time) ([]attendance.OpenBreak, error) {
	q := GetQuerier(ctx, b.db)

	query := `
		SELECT ab.id, ab.attendance_id, ab.type, ab.reason, ab.start_time, ab.end_time,
			   ab.duration_seconds, ab.created_at, ab.updated_at,
			   a.user_id, a.date::text
		FROM attendance_breaks ab
		JOIN attendances a ON a.id = ab.attendance_id
		WHERE ab.end_time IS NULL
		  AND a.date < $1::date
		ORDER BY ab.start_time ASC
	`

	rows, err := q.Query(ctx, query, clock.FormatDate(date))
	if err != nil {
		return nil, fmt.Errorf("failed to list open breaks: %w", err)
	}
	defer rows.Close()

	open := make([]attendance.OpenBreak, 0)
	for rows.Next() {
		var (
			ob      attendance.OpenBreak
			dateStr string
		)
		if err := rows.Scan(
			&ob.ID, &ob.AttendanceID, &ob.Type, &ob.Reason, &ob.StartTime, &ob.EndTime,
			&ob.DurationSeconds, &ob.CreatedAt, &ob.UpdatedAt,
			&ob.UserID, &dateStr,
		); err != nil {
			return nil, fmt.Errorf("failed to scan open break: %w", err)
		}
		if ob.AttendanceDate, err = clock.ParseDate(dateStr, b.loc); err != nil {
			return nil, fmt.Errorf("invalid attendance date %q: %w", dateStr, err)
		}
		open = append(open, ob)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate open breaks: %w", err)
	}

	return open, nil
}

func NewBreakRepository(db *database.DB, loc *time.Location) attendance.BreakRepository {
	return &breakRepository{db: db, loc: loc}
}
