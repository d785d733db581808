package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/availability"
	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/domain"
	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/repository"

	"go.uber.org/zap"
)

// UnitService 房间单元管理服务接口
type UnitService interface {
	// GenerateUnits 按数字区间或显式列表批量生成单元，总数不超过房型 unit_count
	GenerateUnits(ctx context.Context, req GenerateUnitsRequest) (*GenerateUnitsResponse, error)
	ListUnits(ctx context.Context, req ListUnitsRequest) (*ListUnitsResponse, error)
	// UpdateUnitStatus 只修改人工状态标记，不影响占用判断
	UpdateUnitStatus(ctx context.Context, req UpdateUnitStatusRequest) (*UpdateUnitStatusResponse, error)
	// DeleteUnit 单元曾被任何预订关联过时拒绝删除
	DeleteUnit(ctx context.Context, req DeleteUnitRequest) (*DeleteUnitResponse, error)
	GetStats(ctx context.Context, req GetStatsRequest) (*GetStatsResponse, error)

	// CheckAvailability 只读展示用，写路径在事务内重新校验
	CheckAvailability(ctx context.Context, req CheckAvailabilityRequest) (*CheckAvailabilityResponse, error)
	FindFreeUnits(ctx context.Context, req FindFreeUnitsRequest) (*FindFreeUnitsResponse, error)
}

// ============================================
// 请求/响应结构
// ============================================

// UnitRange 生成 prefix+from ... prefix+to
type UnitRange struct {
	Prefix string `json:"prefix"`
	From   int    `json:"from" validate:"gte=0"`
	To     int    `json:"to" validate:"gtefield=From"`
}

type GenerateUnitsRequest struct {
	RoomTypeID string      `json:"room_type_id" validate:"required"`
	Ranges     []UnitRange `json:"ranges" validate:"dive"`
	Numbers    []string    `json:"numbers"`
	Notes      string      `json:"notes"`
}

type GenerateUnitsResponse struct {
	Units []*domain.RoomUnit `json:"units"`
	Total int                `json:"total"` // 生成后房型下的单元总数
}

type ListUnitsRequest struct {
	RoomTypeID string            `json:"room_type_id"`
	Status     domain.UnitStatus `json:"status" validate:"omitempty,oneof=available occupied maintenance blocked"`
	Search     string            `json:"search"`
}

type ListUnitsResponse struct {
	Items []*domain.RoomUnit `json:"items"`
	Total int                `json:"total"`
}

type UpdateUnitStatusRequest struct {
	RoomUnitID string            `json:"room_unit_id" validate:"required"`
	Status     domain.UnitStatus `json:"status" validate:"required,oneof=available occupied maintenance blocked"`
	Notes      string            `json:"notes"`
}

type UpdateUnitStatusResponse struct {
	Unit *domain.RoomUnit `json:"unit"`
}

type DeleteUnitRequest struct {
	RoomUnitID string `json:"room_unit_id" validate:"required"`
}

type DeleteUnitResponse struct {
	Success bool `json:"success"`
}

type GetStatsRequest struct {
	RoomTypeID string `json:"room_type_id" validate:"required"`
}

type GetStatsResponse struct {
	RoomTypeID string `json:"room_type_id"`
	UnitCount  int    `json:"unit_count"` // 房型配置上限
	Total      int    `json:"total"`
	// Remaining 还能生成的单元数
	Remaining             int                       `json:"remaining"`
	ByStatus              map[domain.UnitStatus]int `json:"by_status"`
	OccupiedNowOrUpcoming int                       `json:"occupied_now_or_upcoming"`
}

type CheckAvailabilityRequest struct {
	RoomUnitID string          `json:"room_unit_id" validate:"required"`
	Start      time.Time       `json:"start"`
	End        time.Time       `json:"end"`
	Kind       domain.RoomKind `json:"kind" validate:"required,oneof=overnight day_tour"`
}

type CheckAvailabilityResponse struct {
	RoomUnitID string `json:"room_unit_id"`
	Available  bool   `json:"available"`
}

type FindFreeUnitsRequest struct {
	RoomTypeID string          `json:"room_type_id" validate:"required"`
	Start      time.Time       `json:"start"`
	End        time.Time       `json:"end"`
	Kind       domain.RoomKind `json:"kind" validate:"required,oneof=overnight day_tour"`
}

type FindFreeUnitsResponse struct {
	Items []*domain.RoomUnit `json:"items"`
	Total int                `json:"total"`
}

// maxGeneratedUnits 单次请求展开的上限，防止超大区间
const maxGeneratedUnits = 1000

// unitService 实现
type unitService struct {
	repo   repository.InventoryRepository
	engine *availability.Engine
	cache  CacheInvalidator
	clock  clock
	logger *zap.Logger
}

// NewUnitService 创建 UnitService 实例
func NewUnitService(repo repository.InventoryRepository, cache CacheInvalidator, loc *time.Location, logger *zap.Logger) UnitService {
	return &unitService{
		repo:   repo,
		engine: availability.NewEngine(repo, logger),
		cache:  cache,
		clock:  newClock(loc),
		logger: logger,
	}
}

// expandUnitNumbers 展开区间和显式列表，保持请求顺序，请求内重复报错
func expandUnitNumbers(ranges []UnitRange, numbers []string) ([]string, error) {
	out := []string{}
	seen := map[string]bool{}
	add := func(n string) error {
		if n == "" {
			return domain.NewValidationError("numbers", "unit number must not be empty")
		}
		if seen[n] {
			return domain.NewValidationError("numbers", fmt.Sprintf("duplicate unit number %q in request", n))
		}
		if len(out) >= maxGeneratedUnits {
			return domain.NewValidationError("ranges", fmt.Sprintf("at most %d units per request", maxGeneratedUnits))
		}
		seen[n] = true
		out = append(out, n)
		return nil
	}

	for _, r := range ranges {
		if r.To < r.From {
			return nil, domain.NewValidationError("ranges", "to must be greater than or equal to from")
		}
		if r.To-r.From >= maxGeneratedUnits {
			return nil, domain.NewValidationError("ranges", fmt.Sprintf("at most %d units per request", maxGeneratedUnits))
		}
		prefix := strings.TrimSpace(r.Prefix)
		for n := r.From; n <= r.To; n++ {
			if err := add(prefix + strconv.Itoa(n)); err != nil {
				return nil, err
			}
		}
	}
	for _, n := range numbers {
		if err := add(strings.TrimSpace(n)); err != nil {
			return nil, err
		}
	}
	if len(out) == 0 {
		return nil, domain.NewValidationError("units", "ranges or numbers must produce at least one unit")
	}
	return out, nil
}

func (s *unitService) GenerateUnits(ctx context.Context, req GenerateUnitsRequest) (*GenerateUnitsResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	numbers, err := expandUnitNumbers(req.Ranges, req.Numbers)
	if err != nil {
		return nil, err
	}

	resp := &GenerateUnitsResponse{}
	err = s.repo.InTx(ctx, func(tx repository.InventoryTx) error {
		// 房型行锁串行化同房型的并发生成，保证 unit_count 上限
		rt, err := tx.LockRoomType(ctx, req.RoomTypeID)
		if err != nil {
			return err
		}
		existing, err := tx.ListUnits(ctx, repository.UnitFilters{RoomTypeID: rt.RoomTypeID})
		if err != nil {
			return fmt.Errorf("failed to list existing units: %w", err)
		}
		taken := make(map[string]*domain.RoomUnit, len(existing))
		for _, u := range existing {
			taken[u.UnitNumber] = u
		}
		for _, n := range numbers {
			if u, ok := taken[n]; ok {
				return &domain.ConflictError{
					RoomUnitID: u.RoomUnitID,
					UnitNumber: n,
					Kind:       domain.ConflictUnitNumber,
				}
			}
		}
		if len(existing)+len(numbers) > rt.UnitCount {
			return domain.NewValidationError("units", fmt.Sprintf(
				"room type %s allows %d units, has %d, requested %d",
				rt.Name, rt.UnitCount, len(existing), len(numbers)))
		}

		units := make([]*domain.RoomUnit, 0, len(numbers))
		for _, n := range numbers {
			units = append(units, &domain.RoomUnit{
				RoomTypeID: rt.RoomTypeID,
				UnitNumber: n,
				Status:     domain.UnitStatusAvailable,
				Notes:      req.Notes,
			})
		}
		if err := tx.InsertUnits(ctx, units); err != nil {
			return err
		}
		domain.SortUnits(units)
		resp.Units = units
		resp.Total = len(existing) + len(units)
		return nil
	})
	if err != nil {
		s.logFailure("generate", req.RoomTypeID, err)
		return nil, err
	}

	invalidateAll(ctx, s.cache, s.logger)
	s.logger.Info("Generated room units",
		zap.String("room_type_id", req.RoomTypeID),
		zap.Int("count", len(resp.Units)),
		zap.Int("total", resp.Total),
	)
	return resp, nil
}

func (s *unitService) ListUnits(ctx context.Context, req ListUnitsRequest) (*ListUnitsResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	items, err := s.repo.ListUnits(ctx, repository.UnitFilters{
		RoomTypeID: req.RoomTypeID,
		Status:     req.Status,
		Search:     strings.TrimSpace(req.Search),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	return &ListUnitsResponse{Items: items, Total: len(items)}, nil
}

func (s *unitService) UpdateUnitStatus(ctx context.Context, req UpdateUnitStatusRequest) (*UpdateUnitStatusResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var unit *domain.RoomUnit
	err := s.repo.InTx(ctx, func(tx repository.InventoryTx) error {
		u, err := tx.LockUnit(ctx, req.RoomUnitID)
		if err != nil {
			return err
		}
		if err := tx.UpdateUnitStatus(ctx, u.RoomUnitID, req.Status, req.Notes); err != nil {
			return err
		}
		unit, err = tx.GetUnit(ctx, u.RoomUnitID)
		return err
	})
	if err != nil {
		s.logFailure("update_status", req.RoomUnitID, err)
		return nil, err
	}

	// 状态显示在日历每一行上，无法按月定位
	invalidateAll(ctx, s.cache, s.logger)
	s.logger.Info("Updated room unit status",
		zap.String("unit_id", unit.RoomUnitID),
		zap.String("status", string(unit.Status)),
	)
	return &UpdateUnitStatusResponse{Unit: unit}, nil
}

func (s *unitService) DeleteUnit(ctx context.Context, req DeleteUnitRequest) (*DeleteUnitResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	err := s.repo.InTx(ctx, func(tx repository.InventoryTx) error {
		u, err := tx.LockUnit(ctx, req.RoomUnitID)
		if err != nil {
			return err
		}
		reservationIDs, err := tx.ListUnitReservationIDs(ctx, u.RoomUnitID)
		if err != nil {
			return fmt.Errorf("failed to list unit reservations: %w", err)
		}
		if len(reservationIDs) > 0 {
			return &domain.DeletionBlockedError{RoomUnitID: u.RoomUnitID, ReservationIDs: reservationIDs}
		}
		return tx.DeleteUnit(ctx, u.RoomUnitID)
	})
	if err != nil {
		s.logFailure("delete", req.RoomUnitID, err)
		return nil, err
	}

	invalidateAll(ctx, s.cache, s.logger)
	s.logger.Info("Deleted room unit", zap.String("unit_id", req.RoomUnitID))
	return &DeleteUnitResponse{Success: true}, nil
}

func (s *unitService) GetStats(ctx context.Context, req GetStatsRequest) (*GetStatsResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	rt, err := s.repo.GetRoomType(ctx, req.RoomTypeID)
	if err != nil {
		return nil, err
	}
	units, err := s.repo.ListUnits(ctx, repository.UnitFilters{RoomTypeID: rt.RoomTypeID})
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	occupied, err := s.repo.CountOccupiedUnits(ctx, rt.RoomTypeID, s.clock.today())
	if err != nil {
		return nil, fmt.Errorf("failed to count occupied units: %w", err)
	}

	resp := &GetStatsResponse{
		RoomTypeID:            rt.RoomTypeID,
		UnitCount:             rt.UnitCount,
		Total:                 len(units),
		ByStatus:              make(map[domain.UnitStatus]int, len(domain.AllUnitStatuses)),
		OccupiedNowOrUpcoming: occupied,
	}
	for _, st := range domain.AllUnitStatuses {
		resp.ByStatus[st] = 0
	}
	for _, u := range units {
		resp.ByStatus[u.Status]++
	}
	if rt.UnitCount > len(units) {
		resp.Remaining = rt.UnitCount - len(units)
	}
	return resp, nil
}

func (s *unitService) CheckAvailability(ctx context.Context, req CheckAvailabilityRequest) (*CheckAvailabilityResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	free, err := s.engine.IsUnitFree(ctx, req.RoomUnitID, req.Start, req.End, req.Kind)
	if err != nil {
		return nil, err
	}
	return &CheckAvailabilityResponse{RoomUnitID: req.RoomUnitID, Available: free}, nil
}

func (s *unitService) FindFreeUnits(ctx context.Context, req FindFreeUnitsRequest) (*FindFreeUnitsResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetRoomType(ctx, req.RoomTypeID); err != nil {
		return nil, err
	}
	items, err := s.engine.FindFreeUnits(ctx, req.RoomTypeID, req.Start, req.End, req.Kind)
	if err != nil {
		return nil, err
	}
	return &FindFreeUnitsResponse{Items: items, Total: len(items)}, nil
}

func (s *unitService) logFailure(op, id string, err error) {
	if domain.IsBusinessOutcome(err) {
		s.logger.Info("Room unit operation rejected",
			zap.String("op", op),
			zap.String("id", id),
			zap.Error(err),
		)
		return
	}
	s.logger.Error("Room unit operation failed",
		zap.String("op", op),
		zap.String("id", id),
		zap.Error(err),
	)
}
