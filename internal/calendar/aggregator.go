package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/domain"
	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/repository"

	"go.uber.org/zap"
)

// GridSource 月历构建所需的批量读取，每次构建固定 4 次查询
type GridSource interface {
	ListRoomTypes(ctx context.Context, roomTypeID string) ([]*domain.RoomType, error)
	ListUnits(ctx context.Context, filters repository.UnitFilters) ([]*domain.RoomUnit, error)
	ListOccupanciesInRange(ctx context.Context, roomTypeID string, window domain.DateRange) ([]*domain.Occupancy, error)
	ListBlockedWindowsInRange(ctx context.Context, roomTypeID string, window domain.DateRange) ([]*domain.BlockedWindow, error)
}

// GridFilter 月历过滤条件
type GridFilter struct {
	RoomTypeID string // 空表示全部房型
}

// Aggregator 月历聚合器
type Aggregator struct {
	source GridSource
	logger *zap.Logger
}

// NewAggregator 创建月历聚合器
func NewAggregator(source GridSource, logger *zap.Logger) *Aggregator {
	return &Aggregator{source: source, logger: logger}
}

// cellKey (单元, 日) 索引
type cellKey struct {
	unitID string
	day    int
}

type cellMark struct {
	status          domain.CellStatus
	source          domain.ReservationSource
	reservationID   string
	blockedWindowID string
}

// ValidateMonth 校验年月
func ValidateMonth(year, month int) error {
	if year < 1970 || year > 9999 {
		return domain.NewValidationError("year", "year must be between 1970 and 9999")
	}
	if month < 1 || month > 12 {
		return domain.NewValidationError("month", "month must be between 1 and 12")
	}
	return nil
}

// BuildGrid 构建 (year, month) 月历
// 1. 批量读取房型、单元、与本月相交的占用中预订、与本月相交的 active 封锁窗口
// 2. 建立 (单元, 日) 索引，预订覆盖封锁窗口
// 3. 逐单元逐日查表填充
func (a *Aggregator) BuildGrid(ctx context.Context, year, month int, filter GridFilter) (*domain.CalendarGrid, error) {
	if err := ValidateMonth(year, month); err != nil {
		return nil, err
	}
	window := domain.MonthRange(year, time.Month(month))
	days := window.Nights()

	roomTypes, err := a.source.ListRoomTypes(ctx, filter.RoomTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load room types: %w", err)
	}
	if filter.RoomTypeID != "" && len(roomTypes) == 0 {
		return nil, domain.NewNotFoundError("room_type", filter.RoomTypeID)
	}
	units, err := a.source.ListUnits(ctx, repository.UnitFilters{RoomTypeID: filter.RoomTypeID})
	if err != nil {
		return nil, fmt.Errorf("failed to load room units: %w", err)
	}
	occupancies, err := a.source.ListOccupanciesInRange(ctx, filter.RoomTypeID, window)
	if err != nil {
		return nil, fmt.Errorf("failed to load occupancies: %w", err)
	}
	windows, err := a.source.ListBlockedWindowsInRange(ctx, filter.RoomTypeID, window)
	if err != nil {
		return nil, fmt.Errorf("failed to load blocked windows: %w", err)
	}

	index := buildIndex(window, occupancies, windows)

	grid := &domain.CalendarGrid{
		Year:        year,
		Month:       month,
		RoomTypeID:  filter.RoomTypeID,
		DaysInMonth: days,
		RoomTypes:   make([]domain.CalendarRoomType, 0, len(roomTypes)),
	}

	unitsByType := make(map[string][]*domain.RoomUnit, len(roomTypes))
	for _, u := range units {
		unitsByType[u.RoomTypeID] = append(unitsByType[u.RoomTypeID], u)
	}

	for _, rt := range roomTypes {
		group := domain.CalendarRoomType{
			RoomTypeID: rt.RoomTypeID,
			Name:       rt.Name,
			Kind:       rt.Kind,
			Units:      []domain.CalendarRow{},
			Summary:    make([]domain.DaySummary, days),
		}
		for d := 1; d <= days; d++ {
			group.Summary[d-1].Day = d
		}

		for _, u := range unitsByType[rt.RoomTypeID] {
			row := domain.CalendarRow{
				RoomUnitID: u.RoomUnitID,
				UnitNumber: u.UnitNumber,
				Status:     u.Status,
				Cells:      make([]domain.CalendarCell, days),
			}
			for d := 1; d <= days; d++ {
				cell := domain.CalendarCell{Day: d, Status: domain.CellAvailable}
				if m, ok := index[cellKey{unitID: u.RoomUnitID, day: d}]; ok {
					cell.Status = m.status
					cell.Source = m.source
					cell.ReservationID = m.reservationID
					cell.BlockedWindowID = m.blockedWindowID
				}
				row.Cells[d-1] = cell

				sum := &group.Summary[d-1]
				switch {
				case cell.Status == domain.CellBooked:
					sum.Booked++
				case cell.Status == domain.CellBlocked:
					sum.Blocked++
				case !u.Status.OutOfService():
					sum.Available++
				}
			}
			group.Units = append(group.Units, row)
		}
		grid.RoomTypes = append(grid.RoomTypes, group)
	}

	a.logger.Debug("Built calendar grid",
		zap.Int("year", year),
		zap.Int("month", month),
		zap.String("room_type_id", filter.RoomTypeID),
		zap.Int("units", len(units)),
		zap.Int("occupancies", len(occupancies)),
		zap.Int("blocked_windows", len(windows)),
	)
	return grid, nil
}

// buildIndex 先铺封锁窗口再铺预订，预订覆盖同一格的封锁窗口；同类记录先到先得
func buildIndex(window domain.DateRange, occupancies []*domain.Occupancy, windows []*domain.BlockedWindow) map[cellKey]cellMark {
	index := make(map[cellKey]cellMark)

	for _, w := range windows {
		if !w.Active {
			continue
		}
		span, ok := w.Range().Intersect(window)
		if !ok {
			continue
		}
		for d := span.Start; d.Before(span.End); d = d.AddDate(0, 0, 1) {
			k := cellKey{unitID: w.RoomUnitID, day: d.Day()}
			if _, taken := index[k]; taken {
				continue
			}
			index[k] = cellMark{status: domain.CellBlocked, blockedWindowID: w.BlockedWindowID}
		}
	}

	for _, o := range occupancies {
		if !o.Status.IsOccupying() {
			continue
		}
		span, ok := o.Range().Intersect(window)
		if !ok {
			continue
		}
		for d := span.Start; d.Before(span.End); d = d.AddDate(0, 0, 1) {
			k := cellKey{unitID: o.RoomUnitID, day: d.Day()}
			if m, taken := index[k]; taken && m.status == domain.CellBooked {
				continue
			}
			index[k] = cellMark{status: domain.CellBooked, source: o.Source, reservationID: o.ReservationID}
		}
	}
	return index
}
