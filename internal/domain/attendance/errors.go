package attendance

import "errors"

// Attendance domain errors
var (
	// Punch errors
	ErrAlreadyPunchedIn    = errors.New("you have already punched in today")
	ErrDayAlreadyCompleted = errors.New("attendance for today is already completed")
	ErrNotPunchedIn        = errors.New("you have not punched in today")
	ErrAlreadyPunchedOut   = errors.New("you have already punched out today")
	ErrBreakStillActive    = errors.New("end your active break before punching out")

	// Break errors
	ErrBreakAlreadyActive = errors.New("a break is already active")
	ErrLunchAlreadyTaken  = errors.New("lunch break has already been taken today")
	ErrReasonRequired     = errors.New("reason is required for emergency breaks")
	ErrNoAttendanceToday  = errors.New("no attendance record found for today")
	ErrNoActiveBreak      = errors.New("no active break found")

	// Persistence errors
	ErrAttendanceNotFound  = errors.New("attendance record not found")
	ErrBreakNotFound       = errors.New("break record not found")
	ErrConstraintViolation = errors.New("attendance changed concurrently, please retry")
)

var rejected = []error{
	ErrAlreadyPunchedIn,
	ErrDayAlreadyCompleted,
	ErrNotPunchedIn,
	ErrAlreadyPunchedOut,
	ErrBreakStillActive,
	ErrBreakAlreadyActive,
	ErrLunchAlreadyTaken,
	ErrReasonRequired,
	ErrNoAttendanceToday,
	ErrNoActiveBreak,
}

// IsRejected reports whether err is a declined state transition rather than an infrastructure fault.
func IsRejected(err error) bool {
	for _, target := range rejected {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
