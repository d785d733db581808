package repository

import (
	"context"
	"time"

	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/domain"
)

// UnitFilters 单元列表过滤条件（字段为空表示不过滤）
type UnitFilters struct {
	RoomTypeID string
	Status     domain.UnitStatus
	Search     string // 模糊匹配 unit_number / notes
}

// BlockedWindowFilters 封锁窗口列表过滤条件
type BlockedWindowFilters struct {
	RoomUnitID string
	RoomTypeID string
	ActiveOnly bool
}

// InventoryReader 库存读操作，仓库本身和事务内共用
type InventoryReader interface {
	GetRoomType(ctx context.Context, roomTypeID string) (*domain.RoomType, error)
	// ListRoomTypes roomTypeID 为空时返回全部，按名称排序
	ListRoomTypes(ctx context.Context, roomTypeID string) ([]*domain.RoomType, error)

	GetUnit(ctx context.Context, roomUnitID string) (*domain.RoomUnit, error)
	// ListUnits 按单元号自然顺序返回
	ListUnits(ctx context.Context, filters UnitFilters) ([]*domain.RoomUnit, error)

	GetReservation(ctx context.Context, reservationID string) (*domain.Reservation, error)
	GetLink(ctx context.Context, linkID string) (*domain.ReservationUnitLink, error)
	ListReservationLinks(ctx context.Context, reservationID string) ([]*domain.ReservationUnitLink, error)
	// ListUnitReservationIDs 曾经关联过该单元的全部预订（不区分状态）
	ListUnitReservationIDs(ctx context.Context, roomUnitID string) ([]string, error)

	// ListUnitOccupancies 单元上与 window 重叠的占用中预订
	ListUnitOccupancies(ctx context.Context, roomUnitID string, window domain.DateRange) ([]*domain.Occupancy, error)
	// ListUnitBlockedWindows 单元上与 window 重叠的 active 封锁窗口
	ListUnitBlockedWindows(ctx context.Context, roomUnitID string, window domain.DateRange) ([]*domain.BlockedWindow, error)

	// ListOccupanciesInRange 日历批量读取：roomTypeID 为空表示全部房型
	ListOccupanciesInRange(ctx context.Context, roomTypeID string, window domain.DateRange) ([]*domain.Occupancy, error)
	// ListBlockedWindowsInRange 日历批量读取：active 且与 window 重叠
	ListBlockedWindowsInRange(ctx context.Context, roomTypeID string, window domain.DateRange) ([]*domain.BlockedWindow, error)

	GetBlockedWindow(ctx context.Context, blockedWindowID string) (*domain.BlockedWindow, error)
	ListBlockedWindows(ctx context.Context, filters BlockedWindowFilters) ([]*domain.BlockedWindow, error)

	// CountOccupiedUnits 房型下在 today 之后仍有占用预订的不同单元数
	CountOccupiedUnits(ctx context.Context, roomTypeID string, today time.Time) (int, error)
}

// InventoryTx 写事务，Lock* 方法对行加排他锁直到事务结束
type InventoryTx interface {
	InventoryReader

	LockRoomType(ctx context.Context, roomTypeID string) (*domain.RoomType, error)
	LockUnit(ctx context.Context, roomUnitID string) (*domain.RoomUnit, error)
	// LockUnits 按 id 排序加锁，缺失的 id 返回 NotFound
	LockUnits(ctx context.Context, roomUnitIDs []string) ([]*domain.RoomUnit, error)
	LockReservation(ctx context.Context, reservationID string) (*domain.Reservation, error)
	LockLink(ctx context.Context, linkID string) (*domain.ReservationUnitLink, error)
	LockBlockedWindow(ctx context.Context, blockedWindowID string) (*domain.BlockedWindow, error)

	SetLinkUnit(ctx context.Context, linkID, roomUnitID string) error
	UpdateReservationDates(ctx context.Context, reservationID string, checkIn, checkOut time.Time) error

	InsertBlockedWindow(ctx context.Context, w *domain.BlockedWindow) error
	UpdateBlockedWindow(ctx context.Context, w *domain.BlockedWindow) error
	DeleteBlockedWindow(ctx context.Context, blockedWindowID string) error

	InsertUnits(ctx context.Context, units []*domain.RoomUnit) error
	UpdateUnitStatus(ctx context.Context, roomUnitID string, status domain.UnitStatus, notes string) error
	// DeleteUnit 同时删除该单元的封锁窗口
	DeleteUnit(ctx context.Context, roomUnitID string) error
}

// InventoryRepository 库存仓库
type InventoryRepository interface {
	InventoryReader

	// InTx fn 返回 nil 时提交，否则回滚并原样返回 fn 的错误
	InTx(ctx context.Context, fn func(tx InventoryTx) error) error

	// DeactivateExpiredBlockedWindows 将 active 且 expiry_date <= today 的窗口置为 inactive
	// 每行更新都以 active = TRUE 为条件，返回本次实际翻转的窗口
	DeactivateExpiredBlockedWindows(ctx context.Context, today time.Time) ([]*domain.BlockedWindow, error)
}
