package postgresql

import (
	"errors"
	"fmt"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation = "23505"
	checkViolation  = "23514"
)

// mapWriteError turns unique index races and CHECK failures into attendance.ErrConstraintViolation.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == uniqueViolation || pgErr.Code == checkViolation) {
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, attendance.ErrConstraintViolation)
	}
	return err
}
