package export

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/xuri/excelize/v2"
)

const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var overviewHeaders = []string{"Name", "Phone", "Status", "Punch In", "Punch Out", "Work", "Break", "Present"}

// OverviewFilename is the attachment name for the overview of date.
func OverviewFilename(date string) string {
	return fmt.Sprintf("attendance_overview_%s.xlsx", date)
}

// OverviewWorkbook renders the roster overview as a single sheet named after its date.
// The caller must Close the returned file.
func OverviewWorkbook(overview attendance.OverviewResponse) (*excelize.File, error) {
	f := excelize.NewFile()

	sheet := overview.Meta.Date
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeOverview(f, sheet, headerStyle, overview); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func writeOverview(f *excelize.File, sheet string, headerStyle int, overview attendance.OverviewResponse) error {
	for i, h := range overviewHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(overviewHeaders), 1)
	if err := f.SetCellStyle(sheet, "A1", lastHeader, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	row := 2
	for _, item := range overview.Items {
		values := []interface{}{
			item.Name,
			stringOrEmpty(item.Phone),
			string(item.Attendance.Status),
			timeOrEmpty(item.Attendance.PunchInTime),
			timeOrEmpty(item.Attendance.PunchOutTime),
			FormatSeconds(item.Attendance.WorkDurationSeconds),
			FormatSeconds(item.Attendance.BreakDurationSeconds),
			yesNo(item.IsPresent),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row for user %s: %w", item.UserID, err)
		}
		row++
	}

	row++
	totals := [][]interface{}{
		{"Present", overview.Meta.PresentCount},
		{"Absent", overview.Meta.AbsentCount},
		{"Total", overview.Meta.TotalUsers},
	}
	for _, t := range totals {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, cell, &t); err != nil {
			return fmt.Errorf("failed to write totals: %w", err)
		}
		row++
	}

	if err := f.SetColWidth(sheet, "A", "B", 24); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "C", "H", 14)
}

// FormatSeconds renders a duration as HH:MM:SS; hours may exceed 24.
func FormatSeconds(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60)
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func timeOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("15:04:05")
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
