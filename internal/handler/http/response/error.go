package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
)

var rejectionCodes = []struct {
	err  error
	code string
}{
	{attendance.ErrAlreadyPunchedIn, "ALREADY_PUNCHED_IN"},
	{attendance.ErrDayAlreadyCompleted, "DAY_ALREADY_COMPLETED"},
	{attendance.ErrNotPunchedIn, "NOT_PUNCHED_IN"},
	{attendance.ErrAlreadyPunchedOut, "ALREADY_PUNCHED_OUT"},
	{attendance.ErrBreakStillActive, "BREAK_STILL_ACTIVE"},
	{attendance.ErrBreakAlreadyActive, "BREAK_ALREADY_ACTIVE"},
	{attendance.ErrLunchAlreadyTaken, "LUNCH_ALREADY_TAKEN"},
	{attendance.ErrNoAttendanceToday, "NO_ATTENDANCE_TODAY"},
	{attendance.ErrNoActiveBreak, "NO_ACTIVE_BREAK"},
}

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	if errors.Is(err, attendance.ErrReasonRequired) {
		ValidationError(w, map[string]string{"reason": err.Error()})
		return
	}

	for _, rc := range rejectionCodes {
		if errors.Is(err, rc.err) {
			Rejected(w, rc.code, rc.err.Error())
			return
		}
	}

	switch {
	case errors.Is(err, attendance.ErrConstraintViolation):
		Conflict(w, attendance.ErrConstraintViolation.Error())

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
