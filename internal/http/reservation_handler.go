package httpapi

import (
	"net/http"
	"strings"

	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/domain"
	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/service"

	"go.uber.org/zap"
)

const (
	assignmentsPath      = "/internal/api/v1/assignments"
	reservationsPath     = "/internal/api/v1/reservations"
	internalRoomUnitPath = "/internal/api/v1/room-units"
)

// ReservationHandler 预订流程内部接口：确认分配、改期、取消通知、可用性查询
type ReservationHandler struct {
	assignment service.AssignmentService
	reschedule service.RescheduleService
	units      service.UnitService
	logger     *zap.Logger
}

// NewReservationHandler 创建预订内部接口 Handler
func NewReservationHandler(
	assignment service.AssignmentService,
	reschedule service.RescheduleService,
	units service.UnitService,
	logger *zap.Logger,
) *ReservationHandler {
	return &ReservationHandler{
		assignment: assignment,
		reschedule: reschedule,
		units:      units,
		logger:     logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *ReservationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == assignmentsPath && r.Method == http.MethodPost:
		h.Assign(w, r)
	case strings.HasPrefix(path, reservationsPath+"/") && strings.HasSuffix(path, "/reschedule") && r.Method == http.MethodPost:
		h.Reschedule(w, r, pathParam(path, reservationsPath+"/", "/reschedule"))
	case strings.HasPrefix(path, reservationsPath+"/") && strings.HasSuffix(path, "/release") && r.Method == http.MethodPost:
		h.Release(w, r, pathParam(path, reservationsPath+"/", "/release"))
	case strings.HasPrefix(path, internalRoomUnitPath+"/") && strings.HasSuffix(path, "/availability") && r.Method == http.MethodGet:
		h.Availability(w, r, pathParam(path, internalRoomUnitPath+"/", "/availability"))
	default:
		writeJSON(w, http.StatusNotFound, Fail("not found"))
	}
}

// Assign POST /internal/api/v1/assignments {"link_id": "..."}
func (h *ReservationHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req service.AssignRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, "Assign", err)
		return
	}
	resp, err := h.assignment.Assign(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, "Assign", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// Reschedule POST /internal/api/v1/reservations/{id}/reschedule
func (h *ReservationHandler) Reschedule(w http.ResponseWriter, r *http.Request, reservationID string) {
	if reservationID == "" {
		writeJSON(w, http.StatusNotFound, Fail("not found"))
		return
	}
	var p struct {
		CheckIn  string `json:"check_in"`
		CheckOut string `json:"check_out"`
	}
	if err := decodeBody(r, &p); err != nil {
		writeError(w, h.logger, "Reschedule", err)
		return
	}
	req := service.RescheduleRequest{ReservationID: reservationID}
	var err error
	if req.CheckIn, err = parseDate("check_in", p.CheckIn); err != nil {
		writeError(w, h.logger, "Reschedule", err)
		return
	}
	if req.CheckOut, err = parseDate("check_out", p.CheckOut); err != nil {
		writeError(w, h.logger, "Reschedule", err)
		return
	}
	resp, err := h.reschedule.Reschedule(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, "Reschedule", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// Release POST /internal/api/v1/reservations/{id}/release
func (h *ReservationHandler) Release(w http.ResponseWriter, r *http.Request, reservationID string) {
	if reservationID == "" {
		writeJSON(w, http.StatusNotFound, Fail("not found"))
		return
	}
	resp, err := h.assignment.Release(r.Context(), service.ReleaseRequest{ReservationID: reservationID})
	if err != nil {
		writeError(w, h.logger, "Release", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// Availability GET /internal/api/v1/room-units/{id}/availability?start=&end=&kind=
func (h *ReservationHandler) Availability(w http.ResponseWriter, r *http.Request, roomUnitID string) {
	if roomUnitID == "" {
		writeJSON(w, http.StatusNotFound, Fail("not found"))
		return
	}
	q := r.URL.Query()
	req := service.CheckAvailabilityRequest{
		RoomUnitID: roomUnitID,
		Kind:       domain.RoomKind(q.Get("kind")),
	}
	if req.Kind == "" {
		req.Kind = domain.RoomKindOvernight
	}
	var err error
	if req.Start, err = parseDate("start", q.Get("start")); err != nil {
		writeError(w, h.logger, "Availability", err)
		return
	}
	if req.End, err = parseDate("end", q.Get("end")); err != nil {
		writeError(w, h.logger, "Availability", err)
		return
	}
	resp, err := h.units.CheckAvailability(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, "Availability", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}
