package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/service"

	"go.uber.org/zap"
)

const blockedWindowsPath = "/admin/api/v1/blocked-windows"

// BlockedWindowHandler 封锁窗口管理 Handler
type BlockedWindowHandler struct {
	svc    service.BlockedWindowService
	logger *zap.Logger
}

// NewBlockedWindowHandler 创建封锁窗口管理 Handler
func NewBlockedWindowHandler(svc service.BlockedWindowService, logger *zap.Logger) *BlockedWindowHandler {
	return &BlockedWindowHandler{svc: svc, logger: logger}
}

// blockedWindowPayload 请求体，日期为 YYYY-MM-DD
type blockedWindowPayload struct {
	RoomUnitID  string   `json:"room_unit_id"`
	RoomUnitIDs []string `json:"room_unit_ids"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	ExpiryDate  string   `json:"expiry_date"`
	Notes       string   `json:"notes"`
}

type windowDates struct {
	start, end, expiry string
}

func (p blockedWindowPayload) dates() windowDates {
	return windowDates{p.StartDate, p.EndDate, p.ExpiryDate}
}

func parseWindowDates(d windowDates, start, end, expiry *time.Time) error {
	var err error
	if *start, err = parseDate("start_date", d.start); err != nil {
		return err
	}
	if *end, err = parseDate("end_date", d.end); err != nil {
		return err
	}
	*expiry, err = parseDate("expiry_date", d.expiry)
	return err
}

// ServeHTTP 实现 http.Handler 接口
func (h *BlockedWindowHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == blockedWindowsPath && r.Method == http.MethodGet:
		h.List(w, r)
	case path == blockedWindowsPath && r.Method == http.MethodPost:
		h.Create(w, r)
	case path == blockedWindowsPath+"/bulk" && r.Method == http.MethodPost:
		h.CreateBulk(w, r)
	case strings.HasSuffix(path, "/toggle") && r.Method == http.MethodPost:
		h.Toggle(w, r, pathParam(path, blockedWindowsPath+"/", "/toggle"))
	case strings.HasPrefix(path, blockedWindowsPath+"/") && r.Method == http.MethodPut:
		h.Update(w, r, pathParam(path, blockedWindowsPath+"/", ""))
	case strings.HasPrefix(path, blockedWindowsPath+"/") && r.Method == http.MethodDelete:
		h.Delete(w, r, pathParam(path, blockedWindowsPath+"/", ""))
	default:
		writeJSON(w, http.StatusNotFound, Fail("not found"))
	}
}

// List GET /admin/api/v1/blocked-windows?room_unit_id=&room_type_id=&active_only=
func (h *BlockedWindowHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.svc.List(r.Context(), service.ListBlockedWindowsRequest{
		RoomUnitID: q.Get("room_unit_id"),
		RoomTypeID: q.Get("room_type_id"),
		ActiveOnly: parseBool(q.Get("active_only")),
	})
	if err != nil {
		writeError(w, h.logger, "ListBlockedWindows", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// Create POST /admin/api/v1/blocked-windows
func (h *BlockedWindowHandler) Create(w http.ResponseWriter, r *http.Request) {
	var p blockedWindowPayload
	if err := decodeBody(r, &p); err != nil {
		writeError(w, h.logger, "CreateBlockedWindow", err)
		return
	}
	req := service.CreateBlockedWindowRequest{RoomUnitID: p.RoomUnitID, Notes: p.Notes}
	if err := parseWindowDates(p.dates(), &req.StartDate, &req.EndDate, &req.ExpiryDate); err != nil {
		writeError(w, h.logger, "CreateBlockedWindow", err)
		return
	}
	resp, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, "CreateBlockedWindow", err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(resp.BlockedWindow))
}

// CreateBulk POST /admin/api/v1/blocked-windows/bulk
func (h *BlockedWindowHandler) CreateBulk(w http.ResponseWriter, r *http.Request) {
	var p blockedWindowPayload
	if err := decodeBody(r, &p); err != nil {
		writeError(w, h.logger, "CreateBulkBlockedWindows", err)
		return
	}
	req := service.CreateBulkBlockedWindowsRequest{RoomUnitIDs: p.RoomUnitIDs, Notes: p.Notes}
	if err := parseWindowDates(p.dates(), &req.StartDate, &req.EndDate, &req.ExpiryDate); err != nil {
		writeError(w, h.logger, "CreateBulkBlockedWindows", err)
		return
	}
	resp, err := h.svc.CreateBulk(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, "CreateBulkBlockedWindows", err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(resp))
}

// Update PUT /admin/api/v1/blocked-windows/{id}
func (h *BlockedWindowHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" {
		writeJSON(w, http.StatusNotFound, Fail("not found"))
		return
	}
	var p blockedWindowPayload
	if err := decodeBody(r, &p); err != nil {
		writeError(w, h.logger, "UpdateBlockedWindow", err)
		return
	}
	req := service.UpdateBlockedWindowRequest{BlockedWindowID: id, Notes: p.Notes}
	if err := parseWindowDates(p.dates(), &req.StartDate, &req.EndDate, &req.ExpiryDate); err != nil {
		writeError(w, h.logger, "UpdateBlockedWindow", err)
		return
	}
	resp, err := h.svc.Update(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, "UpdateBlockedWindow", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp.BlockedWindow))
}

// Delete DELETE /admin/api/v1/blocked-windows/{id}
func (h *BlockedWindowHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" {
		writeJSON(w, http.StatusNotFound, Fail("not found"))
		return
	}
	resp, err := h.svc.Delete(r.Context(), service.DeleteBlockedWindowRequest{BlockedWindowID: id})
	if err != nil {
		writeError(w, h.logger, "DeleteBlockedWindow", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// Toggle POST /admin/api/v1/blocked-windows/{id}/toggle
func (h *BlockedWindowHandler) Toggle(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" {
		writeJSON(w, http.StatusNotFound, Fail("not found"))
		return
	}
	resp, err := h.svc.ToggleActive(r.Context(), service.ToggleBlockedWindowRequest{BlockedWindowID: id})
	if err != nil {
		writeError(w, h.logger, "ToggleBlockedWindow", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp.BlockedWindow))
}
