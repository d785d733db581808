package httpapi

import (
	"net/http"
	"strings"

	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/domain"
	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/service"

	"go.uber.org/zap"
)

const (
	roomUnitsPath = "/admin/api/v1/room-units"
	roomTypesPath = "/admin/api/v1/room-types"
)

// RoomUnitHandler 房间单元管理 Handler（单元列表、状态、删除、批量生成、统计）
type RoomUnitHandler struct {
	svc    service.UnitService
	logger *zap.Logger
}

// NewRoomUnitHandler 创建房间单元管理 Handler
func NewRoomUnitHandler(svc service.UnitService, logger *zap.Logger) *RoomUnitHandler {
	return &RoomUnitHandler{svc: svc, logger: logger}
}

// ServeHTTP 实现 http.Handler 接口
func (h *RoomUnitHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	// Room units
	case path == roomUnitsPath && r.Method == http.MethodGet:
		h.ListUnits(w, r)
	case strings.HasSuffix(path, "/status") && strings.HasPrefix(path, roomUnitsPath+"/") && r.Method == http.MethodPut:
		h.UpdateStatus(w, r, pathParam(path, roomUnitsPath+"/", "/status"))
	case strings.HasPrefix(path, roomUnitsPath+"/") && r.Method == http.MethodDelete:
		h.DeleteUnit(w, r, pathParam(path, roomUnitsPath+"/", ""))

	// Room types
	case strings.HasSuffix(path, "/units/generate") && r.Method == http.MethodPost:
		h.GenerateUnits(w, r, pathParam(path, roomTypesPath+"/", "/units/generate"))
	case strings.HasSuffix(path, "/stats") && r.Method == http.MethodGet:
		h.GetStats(w, r, pathParam(path, roomTypesPath+"/", "/stats"))

	default:
		writeJSON(w, http.StatusNotFound, Fail("not found"))
	}
}

// ListUnits GET /admin/api/v1/room-units?room_type_id=&status=&search=
func (h *RoomUnitHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.svc.ListUnits(r.Context(), service.ListUnitsRequest{
		RoomTypeID: q.Get("room_type_id"),
		Status:     domain.UnitStatus(q.Get("status")),
		Search:     q.Get("search"),
	})
	if err != nil {
		writeError(w, h.logger, "ListUnits", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// UpdateStatus PUT /admin/api/v1/room-units/{id}/status
func (h *RoomUnitHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" {
		writeJSON(w, http.StatusNotFound, Fail("not found"))
		return
	}
	var p struct {
		Status domain.UnitStatus `json:"status"`
		Notes  string            `json:"notes"`
	}
	if err := decodeBody(r, &p); err != nil {
		writeError(w, h.logger, "UpdateUnitStatus", err)
		return
	}
	resp, err := h.svc.UpdateUnitStatus(r.Context(), service.UpdateUnitStatusRequest{
		RoomUnitID: id,
		Status:     p.Status,
		Notes:      p.Notes,
	})
	if err != nil {
		writeError(w, h.logger, "UpdateUnitStatus", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp.Unit))
}

// DeleteUnit DELETE /admin/api/v1/room-units/{id}
func (h *RoomUnitHandler) DeleteUnit(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" {
		writeJSON(w, http.StatusNotFound, Fail("not found"))
		return
	}
	resp, err := h.svc.DeleteUnit(r.Context(), service.DeleteUnitRequest{RoomUnitID: id})
	if err != nil {
		writeError(w, h.logger, "DeleteUnit", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// GenerateUnits POST /admin/api/v1/room-types/{id}/units/generate
func (h *RoomUnitHandler) GenerateUnits(w http.ResponseWriter, r *http.Request, roomTypeID string) {
	if roomTypeID == "" {
		writeJSON(w, http.StatusNotFound, Fail("not found"))
		return
	}
	var p struct {
		Ranges  []service.UnitRange `json:"ranges"`
		Numbers []string            `json:"numbers"`
		Notes   string              `json:"notes"`
	}
	if err := decodeBody(r, &p); err != nil {
		writeError(w, h.logger, "GenerateUnits", err)
		return
	}
	resp, err := h.svc.GenerateUnits(r.Context(), service.GenerateUnitsRequest{
		RoomTypeID: roomTypeID,
		Ranges:     p.Ranges,
		Numbers:    p.Numbers,
		Notes:      p.Notes,
	})
	if err != nil {
		writeError(w, h.logger, "GenerateUnits", err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(resp))
}

// GetStats GET /admin/api/v1/room-types/{id}/stats
func (h *RoomUnitHandler) GetStats(w http.ResponseWriter, r *http.Request, roomTypeID string) {
	if roomTypeID == "" {
		writeJSON(w, http.StatusNotFound, Fail("not found"))
		return
	}
	resp, err := h.svc.GetStats(r.Context(), service.GetStatsRequest{RoomTypeID: roomTypeID})
	if err != nil {
		writeError(w, h.logger, "GetStats", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}
