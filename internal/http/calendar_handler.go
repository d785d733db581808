package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/calendar"
	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/domain"

	"go.uber.org/zap"
)

// CalendarReader 月历读取（calendar.CacheManager 实现）
type CalendarReader interface {
	GetOrBuild(ctx context.Context, year, month int, filter calendar.GridFilter) (*domain.CalendarGrid, error)
}

// CalendarHandler 管理端月历 Handler
type CalendarHandler struct {
	calendar CalendarReader
	loc      *time.Location
	logger   *zap.Logger
}

// NewCalendarHandler 创建月历 Handler，year/month 缺省时取物业时区当月
func NewCalendarHandler(reader CalendarReader, loc *time.Location, logger *zap.Logger) *CalendarHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &CalendarHandler{calendar: reader, loc: loc, logger: logger}
}

func (h *CalendarHandler) monthFromQuery(r *http.Request) (int, int) {
	now := time.Now().In(h.loc)
	q := r.URL.Query()
	return parseInt(q.Get("year"), now.Year()), parseInt(q.Get("month"), int(now.Month()))
}

// GetCalendar GET /admin/api/v1/calendar?year=&month=&room_type_id=
func (h *CalendarHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	year, month := h.monthFromQuery(r)
	filter := calendar.GridFilter{RoomTypeID: r.URL.Query().Get("room_type_id")}

	grid, err := h.calendar.GetOrBuild(r.Context(), year, month, filter)
	if err != nil {
		writeError(w, h.logger, "GetCalendar", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(grid))
}

// ExportCalendar GET /admin/api/v1/calendar/export?year=&month=&room_type_id=
func (h *CalendarHandler) ExportCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	year, month := h.monthFromQuery(r)
	filter := calendar.GridFilter{RoomTypeID: r.URL.Query().Get("room_type_id")}

	grid, err := h.calendar.GetOrBuild(r.Context(), year, month, filter)
	if err != nil {
		writeError(w, h.logger, "ExportCalendar", err)
		return
	}
	excelData, err := calendar.ExportGridXLSX(grid)
	if err != nil {
		writeError(w, h.logger, "ExportCalendar", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=calendar-%04d-%02d.xlsx", year, month))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(excelData)
}
