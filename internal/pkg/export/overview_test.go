package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatSeconds(0))
	assert.Equal(t, "00:00:00", FormatSeconds(-5))
	assert.Equal(t, "02:00:00", FormatSeconds(7200))
	assert.Equal(t, "08:25:09", FormatSeconds(8*3600+25*60+9))
	assert.Equal(t, "26:00:00", FormatSeconds(26*3600))
}

func TestOverviewWorkbook(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	punchIn := time.Date(2026, 10, 17, 9, 0, 0, 0, ist)
	phone := "+91 98450 00000"

	overview := attendance.OverviewResponse{
		Items: []attendance.OverviewItem{
			{
				UserID: "u1",
				Name:   "Arjun",
				Phone:  &phone,
				Attendance: attendance.SummaryResponse{
					Status:               attendance.StatusWorking,
					PunchInTime:          &punchIn,
					WorkDurationSeconds:  5400,
					BreakDurationSeconds: 600,
				},
				IsPresent: true,
			},
			{
				UserID:     "u2",
				Name:       "Meera",
				Attendance: attendance.SummaryResponse{Status: attendance.StatusNotPunchedIn},
			},
		},
		Meta: attendance.OverviewMeta{Date: "2026-10-17", PresentCount: 1, AbsentCount: 1, TotalUsers: 2},
	}

	f, err := OverviewWorkbook(overview)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	reopened, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, []string{"2026-10-17"}, reopened.GetSheetList())

	rows, err := reopened.GetRows("2026-10-17")
	require.NoError(t, err)
	require.Len(t, rows, 7)

	assert.Equal(t, overviewHeaders, rows[0])
	assert.Equal(t, []string{"Arjun", "+91 98450 00000", "working", "09:00:00", "", "01:30:00", "00:10:00", "Yes"}, rows[1])
	assert.Equal(t, "Meera", rows[2][0])
	assert.Equal(t, "not_punched_in", rows[2][2])
	assert.Equal(t, "No", rows[2][7])
	assert.Empty(t, rows[3])
	assert.Equal(t, []string{"Present", "1"}, rows[4])
	assert.Equal(t, []string{"Absent", "1"}, rows[5])
	assert.Equal(t, []string{"Total", "2"}, rows[6])

	assert.Equal(t, "attendance_overview_2026-10-17.xlsx", OverviewFilename("2026-10-17"))
}
