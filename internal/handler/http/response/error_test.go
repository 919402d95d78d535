package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", validator.ValidationErrors{{Field: "user_id", Message: "user_id is required"}}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"reason required", attendance.ErrReasonRequired, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"already punched in", attendance.ErrAlreadyPunchedIn, http.StatusBadRequest, "ALREADY_PUNCHED_IN"},
		{"lunch taken", attendance.ErrLunchAlreadyTaken, http.StatusBadRequest, "LUNCH_ALREADY_TAKEN"},
		{"wrapped rejection", fmt.Errorf("tx: %w", attendance.ErrBreakStillActive), http.StatusBadRequest, "BREAK_STILL_ACTIVE"},
		{"constraint violation", fmt.Errorf("uq_attendances_user_date: %w", attendance.ErrConstraintViolation), http.StatusConflict, "CONFLICT"},
		{"infrastructure", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantCode, body.Error.Code)
		})
	}
}

func TestHandleError_EveryRejectionHasACode(t *testing.T) {
	for _, err := range []error{
		attendance.ErrAlreadyPunchedIn,
		attendance.ErrDayAlreadyCompleted,
		attendance.ErrNotPunchedIn,
		attendance.ErrAlreadyPunchedOut,
		attendance.ErrBreakStillActive,
		attendance.ErrBreakAlreadyActive,
		attendance.ErrLunchAlreadyTaken,
		attendance.ErrReasonRequired,
		attendance.ErrNoAttendanceToday,
		attendance.ErrNoActiveBreak,
	} {
		require.True(t, attendance.IsRejected(err))

		rec := httptest.NewRecorder()
		HandleError(rec, err)
		assert.Less(t, rec.Code, http.StatusInternalServerError, err.Error())
	}
}
