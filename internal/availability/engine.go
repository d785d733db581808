package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/domain"
	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/repository"

	"go.uber.org/zap"
)

// UnitStateReader 判断单元是否空闲所需的读操作
// repository.InventoryReader 与事务对象都满足该接口
type UnitStateReader interface {
	GetUnit(ctx context.Context, roomUnitID string) (*domain.RoomUnit, error)
	ListUnitOccupancies(ctx context.Context, roomUnitID string, window domain.DateRange) ([]*domain.Occupancy, error)
	ListUnitBlockedWindows(ctx context.Context, roomUnitID string, window domain.DateRange) ([]*domain.BlockedWindow, error)
}

// Exclusions 冲突检查时忽略的记录
// 改期时忽略预订自身的关联，修改封锁窗口时忽略窗口自身
type Exclusions struct {
	ReservationID   string
	BlockedWindowID string
}

// Conflict 第一个命中的冲突
type Conflict struct {
	Kind  domain.ConflictKind
	ID    string // reservation_id 或 blocked_window_id
	Range domain.DateRange
}

// Error 转为带单元信息的 ConflictError
func (c *Conflict) Error(unit *domain.RoomUnit) *domain.ConflictError {
	r := c.Range
	e := &domain.ConflictError{Kind: c.Kind, ConflictingID: c.ID, Range: &r}
	if unit != nil {
		e.RoomUnitID = unit.RoomUnitID
		e.UnitNumber = unit.UnitNumber
	}
	return e
}

// CheckRange 纯函数：candidate 与占用中预订、active 封锁窗口按半开区间比较，返回第一个冲突
// 预订先于封锁窗口检查
func CheckRange(candidate domain.DateRange, occupancies []*domain.Occupancy, windows []*domain.BlockedWindow, ex Exclusions) *Conflict {
	for _, o := range occupancies {
		if !o.Status.IsOccupying() {
			continue
		}
		if ex.ReservationID != "" && o.ReservationID == ex.ReservationID {
			continue
		}
		if r := o.Range(); candidate.Overlaps(r) {
			return &Conflict{Kind: domain.ConflictReservation, ID: o.ReservationID, Range: r}
		}
	}
	for _, w := range windows {
		if !w.Active {
			continue
		}
		if ex.BlockedWindowID != "" && w.BlockedWindowID == ex.BlockedWindowID {
			continue
		}
		if r := w.Range(); candidate.Overlaps(r) {
			return &Conflict{Kind: domain.ConflictBlockedWindow, ID: w.BlockedWindowID, Range: r}
		}
	}
	return nil
}

// CheckUnit 读取单元在 candidate 内的占用和封锁窗口后调用 CheckRange
// 在写事务内传入事务对象即为"加锁后复查"
func CheckUnit(ctx context.Context, reader UnitStateReader, roomUnitID string, candidate domain.DateRange, ex Exclusions) (*Conflict, error) {
	occ, err := reader.ListUnitOccupancies(ctx, roomUnitID, candidate)
	if err != nil {
		return nil, fmt.Errorf("failed to load occupancies: %w", err)
	}
	if c := CheckRange(candidate, occ, nil, ex); c != nil {
		return c, nil
	}
	windows, err := reader.ListUnitBlockedWindows(ctx, roomUnitID, candidate)
	if err != nil {
		return nil, fmt.Errorf("failed to load blocked windows: %w", err)
	}
	return CheckRange(candidate, nil, windows, ex), nil
}

// UnitLister 按房型列出单元（单元号自然顺序）
type UnitLister interface {
	UnitStateReader
	ListUnits(ctx context.Context, filters repository.UnitFilters) ([]*domain.RoomUnit, error)
}

// Engine 只读可用性查询，用于前端展示，不加锁
// 写路径必须在事务内重新调用 CheckUnit
type Engine struct {
	reader UnitLister
	logger *zap.Logger
}

// NewEngine 创建 Engine
func NewEngine(reader UnitLister, logger *zap.Logger) *Engine {
	return &Engine{reader: reader, logger: logger}
}

// IsUnitFree 单元在 [start, end)（day_tour 为 start 当天）是否空闲
func (e *Engine) IsUnitFree(ctx context.Context, roomUnitID string, start, end time.Time, kind domain.RoomKind) (bool, error) {
	rng, err := domain.ValidateStay(kind, start, end)
	if err != nil {
		return false, err
	}
	if _, err := e.reader.GetUnit(ctx, roomUnitID); err != nil {
		return false, err
	}
	c, err := CheckUnit(ctx, e.reader, roomUnitID, rng, Exclusions{})
	if err != nil {
		e.logger.Error("Failed to check unit availability",
			zap.String("unit_id", roomUnitID),
			zap.Error(err),
		)
		return false, err
	}
	return c == nil, nil
}

// FindFreeUnits 房型下所有空闲单元，按单元号自然顺序
// 人工标记为 maintenance / blocked 的单元不返回
func (e *Engine) FindFreeUnits(ctx context.Context, roomTypeID string, start, end time.Time, kind domain.RoomKind) ([]*domain.RoomUnit, error) {
	rng, err := domain.ValidateStay(kind, start, end)
	if err != nil {
		return nil, err
	}
	if roomTypeID == "" {
		return nil, domain.NewValidationError("room_type_id", "room_type_id is required")
	}
	units, err := e.reader.ListUnits(ctx, repository.UnitFilters{RoomTypeID: roomTypeID})
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	out := []*domain.RoomUnit{}
	for _, u := range units {
		if u.Status.OutOfService() {
			continue
		}
		c, err := CheckUnit(ctx, e.reader, u.RoomUnitID, rng, Exclusions{})
		if err != nil {
			return nil, err
		}
		if c == nil {
			out = append(out, u)
		}
	}
	return out, nil
}
