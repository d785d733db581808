package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterHealthRoutes 存活检查
func (r *Router) RegisterHealthRoutes() {
	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]any{"status": "ok"}))
	})
}

// RegisterCalendarRoutes 管理端月历及导出
func (r *Router) RegisterCalendarRoutes(h *CalendarHandler) {
	r.Handle("/admin/api/v1/calendar", h.GetCalendar)
	r.Handle("/admin/api/v1/calendar/export", h.ExportCalendar)
}

// RegisterBlockedWindowRoutes 封锁窗口 CRUD（单个 + 批量）
func (r *Router) RegisterBlockedWindowRoutes(h *BlockedWindowHandler) {
	r.HandleHandler(blockedWindowsPath, h)
	r.HandleHandler(blockedWindowsPath+"/", h)
}

// RegisterRoomUnitRoutes 单元管理和房型下的生成、统计
func (r *Router) RegisterRoomUnitRoutes(h *RoomUnitHandler) {
	r.HandleHandler(roomUnitsPath, h)
	r.HandleHandler(roomUnitsPath+"/", h)
	r.HandleHandler(roomTypesPath+"/", h)
}

// RegisterReservationRoutes 预订流程调用的内部接口
func (r *Router) RegisterReservationRoutes(h *ReservationHandler) {
	r.HandleHandler(assignmentsPath, h)
	r.HandleHandler(reservationsPath+"/", h)
	r.HandleHandler(internalRoomUnitPath+"/", h)
}
