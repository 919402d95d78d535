package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/export"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
)

type AttendanceHandler interface {
	Today(w http.ResponseWriter, r *http.Request)
	PunchIn(w http.ResponseWriter, r *http.Request)
	PunchOut(w http.ResponseWriter, r *http.Request)
	StartBreak(w http.ResponseWriter, r *http.Request)
	EndBreak(w http.ResponseWriter, r *http.Request)
	Overview(w http.ResponseWriter, r *http.Request)
	ExportOverview(w http.ResponseWriter, r *http.Request)
	Stream(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
	overviewService   attendance.OverviewService
	hub               *sse.Hub
	location          *time.Location
	keepAlive         time.Duration
}

func NewAttendanceHandler(
	attendanceService attendance.AttendanceService,
	overviewService attendance.OverviewService,
	hub *sse.Hub,
	location *time.Location,
	keepAlive time.Duration,
) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
		overviewService:   overviewService,
		hub:               hub,
		location:          location,
		keepAlive:         keepAlive,
	}
}

// Today implements AttendanceHandler.
func (h *attendanceHandlerImpl) Today(w http.ResponseWriter, r *http.Request) {
	summary, err := h.attendanceService.Today(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, summary)
}

// PunchIn implements AttendanceHandler.
func (h *attendanceHandlerImpl) PunchIn(w http.ResponseWriter, r *http.Request) {
	var req attendance.PunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Debug("Failed to decode punch in request", "error", err)
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	summary, err := h.attendanceService.PunchIn(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Punched in successfully", summary)
}

// PunchOut implements AttendanceHandler.
func (h *attendanceHandlerImpl) PunchOut(w http.ResponseWriter, r *http.Request) {
	var req attendance.PunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Debug("Failed to decode punch out request", "error", err)
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	summary, err := h.attendanceService.PunchOut(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Punched out successfully", summary)
}

// StartBreak implements AttendanceHandler.
func (h *attendanceHandlerImpl) StartBreak(w http.ResponseWriter, r *http.Request) {
	var req attendance.StartBreakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Debug("Failed to decode start break request", "error", err)
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	summary, err := h.attendanceService.StartBreak(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Break started successfully", summary)
}

// EndBreak implements AttendanceHandler.
func (h *attendanceHandlerImpl) EndBreak(w http.ResponseWriter, r *http.Request) {
	var req attendance.EndBreakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Debug("Failed to decode end break request", "error", err)
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	summary, err := h.attendanceService.EndBreak(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Break ended successfully", summary)
}

// Overview implements AttendanceHandler.
func (h *attendanceHandlerImpl) Overview(w http.ResponseWriter, r *http.Request) {
	date, ok := h.parseDate(w, r)
	if !ok {
		return
	}

	overview, err := h.overviewService.Overview(r.Context(), date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, overview.Items, overview.Meta)
}

// ExportOverview implements AttendanceHandler.
func (h *attendanceHandlerImpl) ExportOverview(w http.ResponseWriter, r *http.Request) {
	date, ok := h.parseDate(w, r)
	if !ok {
		return
	}

	overview, err := h.overviewService.Overview(r.Context(), date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	f, err := export.OverviewWorkbook(overview)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", export.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", "attachment; filename="+export.OverviewFilename(overview.Meta.Date))
	if err := f.Write(w); err != nil {
		slog.Error("Failed to write overview workbook", "error", err, "date", overview.Meta.Date)
	}
}

// parseDate reads the optional date query parameter as a day in the reference timezone.
func (h *attendanceHandlerImpl) parseDate(w http.ResponseWriter, r *http.Request) (*time.Time, bool) {
	raw := r.URL.Query().Get("date")
	if validator.IsEmpty(raw) {
		return nil, true
	}

	date, ok := validator.IsValidDate(raw, h.location)
	if !ok {
		response.ValidationError(w, map[string]string{"date": "date must be formatted as YYYY-MM-DD"})
		return nil, false
	}
	return &date, true
}

// Stream pushes the user's summary whenever it changes
func (h *attendanceHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")

	// Check if streaming is supported
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming not supported")
		return
	}

	// Subscribe before reading the initial summary so no change is missed
	events, cleanup := h.hub.Subscribe(userID)
	defer cleanup()

	summary, err := h.attendanceService.Today(r.Context(), userID)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	slog.Debug("Attendance stream opened", "user_id", userID, "streams", h.hub.SubscriberCount(userID))

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if !h.writeEvent(w, sse.EventConnected, summary) {
		return
	}
	flusher.Flush()

	keepalive := time.NewTicker(h.keepAlive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if !h.writeEvent(w, event.Event, event.Data) {
				return
			}
			flusher.Flush()

		case <-keepalive.C:
			if err := sse.WriteComment(w, "keep-alive"); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func (h *attendanceHandlerImpl) writeEvent(w http.ResponseWriter, event string, payload interface{}) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to encode stream event", "event", event, "error", err)
		return true
	}
	return sse.WriteFrame(w, event, data) == nil
}
