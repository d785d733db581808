package service

import (
	"context"
	"fmt"
	"time"

	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/availability"
	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/domain"
	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/repository"

	"go.uber.org/zap"
)

// BlockedWindowService 封锁窗口管理服务接口
type BlockedWindowService interface {
	List(ctx context.Context, req ListBlockedWindowsRequest) (*ListBlockedWindowsResponse, error)
	Create(ctx context.Context, req CreateBlockedWindowRequest) (*CreateBlockedWindowResponse, error)
	// CreateBulk 所有单元先校验再写入，任一单元冲突则一条都不写
	CreateBulk(ctx context.Context, req CreateBulkBlockedWindowsRequest) (*CreateBulkBlockedWindowsResponse, error)
	Update(ctx context.Context, req UpdateBlockedWindowRequest) (*UpdateBlockedWindowResponse, error)
	Delete(ctx context.Context, req DeleteBlockedWindowRequest) (*DeleteBlockedWindowResponse, error)
	ToggleActive(ctx context.Context, req ToggleBlockedWindowRequest) (*ToggleBlockedWindowResponse, error)
	// DeactivateExpired expiry_date <= 今天的 active 窗口置为 inactive，可重复、可并发执行
	DeactivateExpired(ctx context.Context) (int, error)
}

// ============================================
// 请求/响应结构
// ============================================

type ListBlockedWindowsRequest struct {
	RoomUnitID string `json:"room_unit_id"` // 可选
	RoomTypeID string `json:"room_type_id"` // 可选
	ActiveOnly bool   `json:"active_only"`
}

type ListBlockedWindowsResponse struct {
	Items []*domain.BlockedWindow `json:"items"`
	Total int                     `json:"total"`
}

type CreateBlockedWindowRequest struct {
	RoomUnitID string    `json:"room_unit_id" validate:"required"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	ExpiryDate time.Time `json:"expiry_date"`
	Notes      string    `json:"notes"`
}

type CreateBlockedWindowResponse struct {
	BlockedWindow *domain.BlockedWindow `json:"blocked_window"`
}

type CreateBulkBlockedWindowsRequest struct {
	RoomUnitIDs []string  `json:"room_unit_ids" validate:"required,min=1,dive,required"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	ExpiryDate  time.Time `json:"expiry_date"`
	Notes       string    `json:"notes"`
}

type CreateBulkBlockedWindowsResponse struct {
	Items []*domain.BlockedWindow `json:"items"`
}

type UpdateBlockedWindowRequest struct {
	BlockedWindowID string    `json:"blocked_window_id" validate:"required"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	ExpiryDate      time.Time `json:"expiry_date"`
	Notes           string    `json:"notes"`
}

type UpdateBlockedWindowResponse struct {
	BlockedWindow *domain.BlockedWindow `json:"blocked_window"`
}

type DeleteBlockedWindowRequest struct {
	BlockedWindowID string `json:"blocked_window_id" validate:"required"`
}

type DeleteBlockedWindowResponse struct {
	Success bool `json:"success"`
}

type ToggleBlockedWindowRequest struct {
	BlockedWindowID string `json:"blocked_window_id" validate:"required"`
}

type ToggleBlockedWindowResponse struct {
	BlockedWindow *domain.BlockedWindow `json:"blocked_window"`
}

// blockedWindowService 实现
type blockedWindowService struct {
	repo   repository.InventoryRepository
	cache  CacheInvalidator
	clock  clock
	logger *zap.Logger
}

// NewBlockedWindowService 创建 BlockedWindowService 实例
func NewBlockedWindowService(repo repository.InventoryRepository, cache CacheInvalidator, loc *time.Location, logger *zap.Logger) BlockedWindowService {
	return &blockedWindowService{
		repo:   repo,
		cache:  cache,
		clock:  newClock(loc),
		logger: logger,
	}
}

// checkWindow 校验顺序中的 (3)(4)：与同单元其他 active 窗口不重叠，再与占用中预订不重叠
// (1)(2) 日期校验由调用方在进入事务前完成
func checkWindow(ctx context.Context, tx repository.InventoryTx, unit *domain.RoomUnit, rng domain.DateRange, selfID string) error {
	ex := availability.Exclusions{BlockedWindowID: selfID}

	windows, err := tx.ListUnitBlockedWindows(ctx, unit.RoomUnitID, rng)
	if err != nil {
		return fmt.Errorf("failed to load blocked windows: %w", err)
	}
	if c := availability.CheckRange(rng, nil, windows, ex); c != nil {
		return c.Error(unit)
	}

	occ, err := tx.ListUnitOccupancies(ctx, unit.RoomUnitID, rng)
	if err != nil {
		return fmt.Errorf("failed to load occupancies: %w", err)
	}
	if c := availability.CheckRange(rng, occ, nil, ex); c != nil {
		return c.Error(unit)
	}
	return nil
}

func (s *blockedWindowService) List(ctx context.Context, req ListBlockedWindowsRequest) (*ListBlockedWindowsResponse, error) {
	items, err := s.repo.ListBlockedWindows(ctx, repository.BlockedWindowFilters{
		RoomUnitID: req.RoomUnitID,
		RoomTypeID: req.RoomTypeID,
		ActiveOnly: req.ActiveOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked windows: %w", err)
	}
	return &ListBlockedWindowsResponse{Items: items, Total: len(items)}, nil
}

func (s *blockedWindowService) Create(ctx context.Context, req CreateBlockedWindowRequest) (*CreateBlockedWindowResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := domain.ValidateWindowDates(req.StartDate, req.EndDate, req.ExpiryDate); err != nil {
		return nil, err
	}

	w := &domain.BlockedWindow{
		RoomUnitID: req.RoomUnitID,
		StartDate:  domain.Day(req.StartDate),
		EndDate:    domain.Day(req.EndDate),
		ExpiryDate: domain.Day(req.ExpiryDate),
		Active:     true,
		Notes:      req.Notes,
	}
	err := s.repo.InTx(ctx, func(tx repository.InventoryTx) error {
		unit, err := tx.LockUnit(ctx, req.RoomUnitID)
		if err != nil {
			return err
		}
		if err := checkWindow(ctx, tx, unit, w.Range(), ""); err != nil {
			return err
		}
		return tx.InsertBlockedWindow(ctx, w)
	})
	if err != nil {
		s.logFailure("create", req.RoomUnitID, err)
		return nil, err
	}

	invalidateRanges(ctx, s.cache, s.logger, w.Range())
	s.logger.Info("Created blocked window",
		zap.String("blocked_window_id", w.BlockedWindowID),
		zap.String("unit_id", w.RoomUnitID),
		zap.String("range", w.Range().String()),
	)
	return &CreateBlockedWindowResponse{BlockedWindow: w}, nil
}

func (s *blockedWindowService) CreateBulk(ctx context.Context, req CreateBulkBlockedWindowsRequest) (*CreateBulkBlockedWindowsResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := domain.ValidateWindowDates(req.StartDate, req.EndDate, req.ExpiryDate); err != nil {
		return nil, err
	}

	// 去重，保持请求顺序
	seen := map[string]bool{}
	unitIDs := make([]string, 0, len(req.RoomUnitIDs))
	for _, id := range req.RoomUnitIDs {
		if !seen[id] {
			seen[id] = true
			unitIDs = append(unitIDs, id)
		}
	}

	rng := domain.InclusiveRange(req.StartDate, req.EndDate)
	items := make([]*domain.BlockedWindow, 0, len(unitIDs))
	err := s.repo.InTx(ctx, func(tx repository.InventoryTx) error {
		locked, err := tx.LockUnits(ctx, unitIDs)
		if err != nil {
			return err
		}
		byID := make(map[string]*domain.RoomUnit, len(locked))
		for _, u := range locked {
			byID[u.RoomUnitID] = u
		}

		for _, id := range unitIDs {
			if err := checkWindow(ctx, tx, byID[id], rng, ""); err != nil {
				return err
			}
		}
		for _, id := range unitIDs {
			w := &domain.BlockedWindow{
				RoomUnitID: id,
				StartDate:  domain.Day(req.StartDate),
				EndDate:    domain.Day(req.EndDate),
				ExpiryDate: domain.Day(req.ExpiryDate),
				Active:     true,
				Notes:      req.Notes,
			}
			if err := tx.InsertBlockedWindow(ctx, w); err != nil {
				return err
			}
			items = append(items, w)
		}
		return nil
	})
	if err != nil {
		s.logger.Info("Bulk blocked window creation rejected",
			zap.Int("units", len(unitIDs)),
			zap.Error(err),
		)
		return nil, err
	}

	invalidateRanges(ctx, s.cache, s.logger, rng)
	s.logger.Info("Created blocked windows in bulk",
		zap.Int("units", len(items)),
		zap.String("range", rng.String()),
	)
	return &CreateBulkBlockedWindowsResponse{Items: items}, nil
}

func (s *blockedWindowService) Update(ctx context.Context, req UpdateBlockedWindowRequest) (*UpdateBlockedWindowResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := domain.ValidateWindowDates(req.StartDate, req.EndDate, req.ExpiryDate); err != nil {
		return nil, err
	}

	var updated *domain.BlockedWindow
	var oldRange domain.DateRange
	err := s.repo.InTx(ctx, func(tx repository.InventoryTx) error {
		w, err := tx.LockBlockedWindow(ctx, req.BlockedWindowID)
		if err != nil {
			return err
		}
		oldRange = w.Range()

		w.StartDate = domain.Day(req.StartDate)
		w.EndDate = domain.Day(req.EndDate)
		w.ExpiryDate = domain.Day(req.ExpiryDate)
		w.Notes = req.Notes

		// inactive 窗口不占用单元，只做日期校验
		if w.Active {
			unit, err := tx.LockUnit(ctx, w.RoomUnitID)
			if err != nil {
				return err
			}
			if err := checkWindow(ctx, tx, unit, w.Range(), w.BlockedWindowID); err != nil {
				return err
			}
		}
		if err := tx.UpdateBlockedWindow(ctx, w); err != nil {
			return err
		}
		updated = w
		return nil
	})
	if err != nil {
		s.logFailure("update", req.BlockedWindowID, err)
		return nil, err
	}

	invalidateRanges(ctx, s.cache, s.logger, oldRange, updated.Range())
	s.logger.Info("Updated blocked window",
		zap.String("blocked_window_id", updated.BlockedWindowID),
		zap.String("range", updated.Range().String()),
	)
	return &UpdateBlockedWindowResponse{BlockedWindow: updated}, nil
}

func (s *blockedWindowService) Delete(ctx context.Context, req DeleteBlockedWindowRequest) (*DeleteBlockedWindowResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var rng domain.DateRange
	err := s.repo.InTx(ctx, func(tx repository.InventoryTx) error {
		w, err := tx.LockBlockedWindow(ctx, req.BlockedWindowID)
		if err != nil {
			return err
		}
		rng = w.Range()
		return tx.DeleteBlockedWindow(ctx, w.BlockedWindowID)
	})
	if err != nil {
		s.logFailure("delete", req.BlockedWindowID, err)
		return nil, err
	}

	invalidateRanges(ctx, s.cache, s.logger, rng)
	s.logger.Info("Deleted blocked window", zap.String("blocked_window_id", req.BlockedWindowID))
	return &DeleteBlockedWindowResponse{Success: true}, nil
}

// ToggleActive 停用不做校验；启用时重新校验重叠，且不允许启用已过期窗口
func (s *blockedWindowService) ToggleActive(ctx context.Context, req ToggleBlockedWindowRequest) (*ToggleBlockedWindowResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	today := s.clock.today()
	var toggled *domain.BlockedWindow
	err := s.repo.InTx(ctx, func(tx repository.InventoryTx) error {
		w, err := tx.LockBlockedWindow(ctx, req.BlockedWindowID)
		if err != nil {
			return err
		}
		if !w.Active {
			if w.Expired(today) {
				return domain.NewValidationError("expiry_date", "cannot activate a blocked window past its expiry date")
			}
			unit, err := tx.LockUnit(ctx, w.RoomUnitID)
			if err != nil {
				return err
			}
			if err := checkWindow(ctx, tx, unit, w.Range(), w.BlockedWindowID); err != nil {
				return err
			}
		}
		w.Active = !w.Active
		if err := tx.UpdateBlockedWindow(ctx, w); err != nil {
			return err
		}
		toggled = w
		return nil
	})
	if err != nil {
		s.logFailure("toggle", req.BlockedWindowID, err)
		return nil, err
	}

	invalidateRanges(ctx, s.cache, s.logger, toggled.Range())
	s.logger.Info("Toggled blocked window",
		zap.String("blocked_window_id", toggled.BlockedWindowID),
		zap.Bool("active", toggled.Active),
	)
	return &ToggleBlockedWindowResponse{BlockedWindow: toggled}, nil
}

func (s *blockedWindowService) DeactivateExpired(ctx context.Context) (int, error) {
	today := s.clock.today()
	flipped, err := s.repo.DeactivateExpiredBlockedWindows(ctx, today)
	if err != nil {
		s.logger.Error("Failed to deactivate expired blocked windows", zap.Error(err))
		return 0, err
	}
	if len(flipped) == 0 {
		return 0, nil
	}

	ranges := make([]domain.DateRange, 0, len(flipped))
	for _, w := range flipped {
		ranges = append(ranges, w.Range())
	}
	invalidateRanges(ctx, s.cache, s.logger, ranges...)
	s.logger.Info("Deactivated expired blocked windows",
		zap.Int("count", len(flipped)),
		zap.String("today", domain.FormatDay(today)),
	)
	return len(flipped), nil
}

func (s *blockedWindowService) logFailure(op, id string, err error) {
	if domain.IsBusinessOutcome(err) {
		s.logger.Info("Blocked window operation rejected",
			zap.String("op", op),
			zap.String("id", id),
			zap.Error(err),
		)
		return
	}
	s.logger.Error("Blocked window operation failed",
		zap.String("op", op),
		zap.String("id", id),
		zap.Error(err),
	)
}
