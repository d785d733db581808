package service

import (
	"context"
	"time"

	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/availability"
	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/domain"
	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/repository"

	"go.uber.org/zap"
)

// RescheduleService 改期服务接口
type RescheduleService interface {
	// Reschedule 修改预订日期：优先保留原单元，否则在同房型内重新分配
	// 任一关联找不到单元则整体回滚，日期和所有关联保持不变
	Reschedule(ctx context.Context, req RescheduleRequest) (*RescheduleResponse, error)
}

type RescheduleRequest struct {
	ReservationID string    `json:"reservation_id" validate:"required"`
	CheckIn       time.Time `json:"check_in" validate:"required"`
	CheckOut      time.Time `json:"check_out"` // day_tour 可为空
}

type LinkOutcome struct {
	LinkID         string `json:"link_id"`
	PreviousUnitID string `json:"previous_unit_id"`
	RoomUnitID     string `json:"room_unit_id"`
	UnitNumber     string `json:"unit_number"`
	Moved          bool   `json:"moved"`
}

type RescheduleResponse struct {
	Reservation *domain.Reservation `json:"reservation"`
	Links       []LinkOutcome       `json:"links"`
}

// rescheduleService 实现
type rescheduleService struct {
	repo   repository.InventoryRepository
	cache  CacheInvalidator
	logger *zap.Logger
}

// NewRescheduleService 创建 RescheduleService 实例
func NewRescheduleService(repo repository.InventoryRepository, cache CacheInvalidator, logger *zap.Logger) RescheduleService {
	return &rescheduleService{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

func (s *rescheduleService) Reschedule(ctx context.Context, req RescheduleRequest) (*RescheduleResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	resp := &RescheduleResponse{Links: []LinkOutcome{}}
	var oldRange, newRange domain.DateRange
	err := s.repo.InTx(ctx, func(tx repository.InventoryTx) error {
		res, err := tx.LockReservation(ctx, req.ReservationID)
		if err != nil {
			return err
		}
		// day_tour 只占入住当天，忽略调用方给的 check_out
		checkOut := req.CheckOut
		if res.Kind == domain.RoomKindDayTour {
			checkOut = req.CheckIn
		}
		newRange, err = domain.ValidateStay(res.Kind, req.CheckIn, checkOut)
		if err != nil {
			return err
		}
		oldRange = res.Range()

		links, err := tx.ListReservationLinks(ctx, res.ReservationID)
		if err != nil {
			return err
		}

		// 预订自身的旧占用正在被移动，不算冲突
		ex := availability.Exclusions{ReservationID: res.ReservationID}
		claimed := map[string]bool{}
		stale := map[string]bool{}
		var moving []*domain.ReservationUnitLink

		// 第一轮：原单元在新区间仍空闲则保留
		for _, listed := range links {
			l, err := tx.LockLink(ctx, listed.LinkID)
			if err != nil {
				return err
			}
			if !l.Assigned() {
				continue
			}
			current := *l.RoomUnitID
			unit, err := tx.LockUnit(ctx, current)
			if err != nil {
				return err
			}
			keep := !claimed[current] && !unit.Status.OutOfService()
			if keep {
				conflict, err := availability.CheckUnit(ctx, tx, current, newRange, ex)
				if err != nil {
					return err
				}
				keep = conflict == nil
			}
			if keep {
				claimed[current] = true
				resp.Links = append(resp.Links, LinkOutcome{
					LinkID: l.LinkID, PreviousUnitID: current,
					RoomUnitID: current, UnitNumber: unit.UnitNumber,
				})
				continue
			}
			stale[current] = true
			moving = append(moving, l)
		}

		// 第二轮：为失效的关联在同房型内重新分配，跳过已确认失效和已被占用的单元
		for _, l := range moving {
			skip := map[string]bool{}
			for id := range claimed {
				skip[id] = true
			}
			for id := range stale {
				skip[id] = true
			}
			unit, err := selectUnitExcluding(ctx, tx, l.RoomTypeID, newRange, ex, skip)
			if err != nil {
				return err
			}
			if err := tx.SetLinkUnit(ctx, l.LinkID, unit.RoomUnitID); err != nil {
				return err
			}
			claimed[unit.RoomUnitID] = true
			resp.Links = append(resp.Links, LinkOutcome{
				LinkID: l.LinkID, PreviousUnitID: *l.RoomUnitID,
				RoomUnitID: unit.RoomUnitID, UnitNumber: unit.UnitNumber, Moved: true,
			})
		}

		if err := tx.UpdateReservationDates(ctx, res.ReservationID, req.CheckIn, checkOut); err != nil {
			return err
		}
		resp.Reservation, err = tx.GetReservation(ctx, res.ReservationID)
		return err
	})
	if err != nil {
		if domain.IsBusinessOutcome(err) {
			s.logger.Info("Reschedule rejected",
				zap.String("reservation_id", req.ReservationID),
				zap.Error(err),
			)
		} else {
			s.logger.Error("Failed to reschedule reservation",
				zap.String("reservation_id", req.ReservationID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	invalidateRanges(ctx, s.cache, s.logger, oldRange, newRange)

	moved := 0
	for _, o := range resp.Links {
		if o.Moved {
			moved++
		}
	}
	s.logger.Info("Rescheduled reservation",
		zap.String("reservation_id", req.ReservationID),
		zap.String("from", oldRange.String()),
		zap.String("to", newRange.String()),
		zap.Int("links", len(resp.Links)),
		zap.Int("moved", moved),
	)
	return resp, nil
}
