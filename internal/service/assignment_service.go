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

// AssignmentService 单元分配服务接口
type AssignmentService interface {
	// Assign 为预订关联分配房型下单元号最小的空闲单元；已分配时直接返回现有单元
	Assign(ctx context.Context, req AssignRequest) (*AssignResponse, error)
	// Release 取消通知：只记录日志和失效缓存，不修改单元状态
	Release(ctx context.Context, req ReleaseRequest) (*ReleaseResponse, error)
}

type AssignRequest struct {
	LinkID string `json:"link_id" validate:"required"`
}

type AssignResponse struct {
	LinkID          string           `json:"link_id"`
	ReservationID   string           `json:"reservation_id"`
	Unit            *domain.RoomUnit `json:"unit"`
	AlreadyAssigned bool             `json:"already_assigned"`
}

type ReleaseRequest struct {
	ReservationID string `json:"reservation_id" validate:"required"`
}

type ReleasedUnit struct {
	RoomUnitID string `json:"room_unit_id"`
	UnitNumber string `json:"unit_number"`
	// HasFutureOccupancy 单元上仍有其他未来占用，仅供展示
	HasFutureOccupancy bool `json:"has_future_occupancy"`
}

type ReleaseResponse struct {
	ReservationID string         `json:"reservation_id"`
	Units         []ReleasedUnit `json:"units"`
}

// assignmentService 实现
type assignmentService struct {
	repo   repository.InventoryRepository
	cache  CacheInvalidator
	clock  clock
	logger *zap.Logger
}

// NewAssignmentService 创建 AssignmentService 实例
func NewAssignmentService(repo repository.InventoryRepository, cache CacheInvalidator, loc *time.Location, logger *zap.Logger) AssignmentService {
	return &assignmentService{
		repo:   repo,
		cache:  cache,
		clock:  newClock(loc),
		logger: logger,
	}
}

func (s *assignmentService) Assign(ctx context.Context, req AssignRequest) (*AssignResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	resp := &AssignResponse{LinkID: req.LinkID}
	var rng domain.DateRange
	err := s.repo.InTx(ctx, func(tx repository.InventoryTx) error {
		link, err := tx.LockLink(ctx, req.LinkID)
		if err != nil {
			return err
		}
		resp.ReservationID = link.ReservationID

		if link.Assigned() {
			unit, err := tx.GetUnit(ctx, *link.RoomUnitID)
			if err != nil {
				return err
			}
			resp.Unit = unit
			resp.AlreadyAssigned = true
			return nil
		}

		res, err := tx.LockReservation(ctx, link.ReservationID)
		if err != nil {
			return err
		}
		// 未付款的关联不计入占用，写入单元会让后续付款的预订与之重叠
		if !res.Status.IsOccupying() {
			return domain.NewValidationError("status", fmt.Sprintf("reservation is %s", res.Status))
		}
		rng, err = domain.ValidateStay(res.Kind, res.CheckIn, res.CheckOut)
		if err != nil {
			return err
		}

		unit, err := selectUnit(ctx, tx, link.RoomTypeID, rng, nil)
		if err != nil {
			return err
		}
		if err := tx.SetLinkUnit(ctx, link.LinkID, unit.RoomUnitID); err != nil {
			return err
		}
		resp.Unit = unit
		return nil
	})
	if err != nil {
		if domain.IsBusinessOutcome(err) {
			s.logger.Info("Unit assignment rejected",
				zap.String("link_id", req.LinkID),
				zap.Error(err),
			)
		} else {
			s.logger.Error("Failed to assign unit",
				zap.String("link_id", req.LinkID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	if resp.AlreadyAssigned {
		s.logger.Debug("Link already assigned",
			zap.String("link_id", req.LinkID),
			zap.String("unit_id", resp.Unit.RoomUnitID),
		)
		return resp, nil
	}

	invalidateRanges(ctx, s.cache, s.logger, rng)
	s.logger.Info("Assigned unit",
		zap.String("link_id", req.LinkID),
		zap.String("reservation_id", resp.ReservationID),
		zap.String("unit_id", resp.Unit.RoomUnitID),
		zap.String("unit_number", resp.Unit.UnitNumber),
		zap.String("range", rng.String()),
	)
	return resp, nil
}

// selectUnit 按单元号自然顺序逐个加锁并复查，返回第一个通过的单元
// skip 中的单元和人工标记为 maintenance / blocked 的单元不参与
// 预订自身的占用不做排除：同一预订的多个关联也不能共用单元
func selectUnit(ctx context.Context, tx repository.InventoryTx, roomTypeID string, rng domain.DateRange, skip map[string]bool) (*domain.RoomUnit, error) {
	return selectUnitExcluding(ctx, tx, roomTypeID, rng, availability.Exclusions{}, skip)
}

func selectUnitExcluding(ctx context.Context, tx repository.InventoryTx, roomTypeID string, rng domain.DateRange, ex availability.Exclusions, skip map[string]bool) (*domain.RoomUnit, error) {
	candidates, err := tx.ListUnits(ctx, repository.UnitFilters{RoomTypeID: roomTypeID})
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate units: %w", err)
	}
	for _, candidate := range candidates {
		if skip[candidate.RoomUnitID] || candidate.Status.OutOfService() {
			continue
		}
		// lock -> re-check -> write
		unit, err := tx.LockUnit(ctx, candidate.RoomUnitID)
		if err != nil {
			return nil, err
		}
		if unit.Status.OutOfService() {
			continue
		}
		conflict, err := availability.CheckUnit(ctx, tx, unit.RoomUnitID, rng, ex)
		if err != nil {
			return nil, err
		}
		if conflict == nil {
			return unit, nil
		}
	}
	return nil, &domain.NoUnitsAvailableError{RoomTypeID: roomTypeID, Range: rng}
}

func (s *assignmentService) Release(ctx context.Context, req ReleaseRequest) (*ReleaseResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	res, err := s.repo.GetReservation(ctx, req.ReservationID)
	if err != nil {
		return nil, err
	}
	links, err := s.repo.ListReservationLinks(ctx, req.ReservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservation links: %w", err)
	}

	today := s.clock.today()
	future := domain.DateRange{Start: today, End: today.AddDate(100, 0, 0)}
	resp := &ReleaseResponse{ReservationID: res.ReservationID, Units: []ReleasedUnit{}}
	for _, l := range links {
		if !l.Assigned() {
			continue
		}
		unit, err := s.repo.GetUnit(ctx, *l.RoomUnitID)
		if err != nil {
			return nil, err
		}
		conflict, err := availability.CheckUnit(ctx, s.repo, unit.RoomUnitID, future,
			availability.Exclusions{ReservationID: res.ReservationID})
		if err != nil {
			return nil, err
		}
		hasFuture := conflict != nil && conflict.Kind == domain.ConflictReservation
		resp.Units = append(resp.Units, ReleasedUnit{
			RoomUnitID:         unit.RoomUnitID,
			UnitNumber:         unit.UnitNumber,
			HasFutureOccupancy: hasFuture,
		})
		s.logger.Info("Released unit",
			zap.String("reservation_id", res.ReservationID),
			zap.String("unit_id", unit.RoomUnitID),
			zap.String("unit_status", string(unit.Status)),
			zap.Bool("has_future_occupancy", hasFuture),
		)
	}

	invalidateRanges(ctx, s.cache, s.logger, res.Range())
	return resp, nil
}
