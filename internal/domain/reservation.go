package domain

import (
	"fmt"
	"time"
)

// ReservationStatus 预订生命周期状态（由外部预订流程维护）
type ReservationStatus string

const (
	ReservationPending     ReservationStatus = "pending"
	ReservationDepositPaid ReservationStatus = "deposit_paid"
	ReservationPaid        ReservationStatus = "paid"
	ReservationCancelled   ReservationStatus = "cancelled"
	ReservationFailed      ReservationStatus = "failed"
)

// OccupyingStatuses 计入占用的状态
var OccupyingStatuses = []ReservationStatus{ReservationPaid, ReservationDepositPaid}

// IsOccupying 只有 paid / deposit_paid 计入占用
func (s ReservationStatus) IsOccupying() bool {
	return s == ReservationPaid || s == ReservationDepositPaid
}

// ReservationSource 预订来源，仅用于展示
type ReservationSource string

const (
	SourceOnline ReservationSource = "online"
	SourceWalkIn ReservationSource = "walk_in"
)

// Reservation 预订（对应 reservations 表）
// 本服务只读，改期时除外（只改 CheckIn / CheckOut）
type Reservation struct {
	ReservationID string            `db:"reservation_id" json:"reservation_id"`
	Status        ReservationStatus `db:"status" json:"status"`
	Kind          RoomKind          `db:"kind" json:"kind"`
	Source        ReservationSource `db:"source" json:"source"`
	CheckIn       time.Time         `db:"check_in" json:"check_in"`
	CheckOut      time.Time         `db:"check_out" json:"check_out"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}

// Range 预订占用的半开区间
func (r *Reservation) Range() DateRange {
	return StayRange(r.Kind, r.CheckIn, r.CheckOut)
}

// StayRange overnight 为 [check_in, check_out)，day_tour 只占 check_in 当天
func StayRange(kind RoomKind, checkIn, checkOut time.Time) DateRange {
	if kind == RoomKindDayTour {
		return SingleDay(checkIn)
	}
	return DateRange{Start: Day(checkIn), End: Day(checkOut)}
}

// ValidateStay 校验入住/退房日期，返回占用区间
func ValidateStay(kind RoomKind, checkIn, checkOut time.Time) (DateRange, error) {
	if !kind.Valid() {
		return DateRange{}, NewValidationError("kind", fmt.Sprintf("unknown reservation kind %q", kind))
	}
	if checkIn.IsZero() {
		return DateRange{}, NewValidationError("check_in", "check_in is required")
	}
	if kind == RoomKindOvernight {
		if checkOut.IsZero() {
			return DateRange{}, NewValidationError("check_out", "check_out is required")
		}
		if !Day(checkOut).After(Day(checkIn)) {
			return DateRange{}, NewValidationError("check_out", "check_out must be after check_in")
		}
	}
	return StayRange(kind, checkIn, checkOut), nil
}

// ReservationUnitLink 预订与单元的关联（对应 reservation_unit_links 表）
// RoomUnitID 在分配前为空
type ReservationUnitLink struct {
	LinkID        string  `db:"link_id" json:"link_id"`
	ReservationID string  `db:"reservation_id" json:"reservation_id"`
	RoomTypeID    string  `db:"room_type_id" json:"room_type_id"`
	RoomUnitID    *string `db:"room_unit_id" json:"room_unit_id"`
	Quantity      int     `db:"quantity" json:"quantity"`
}

// Assigned 是否已分配单元
func (l *ReservationUnitLink) Assigned() bool {
	return l.RoomUnitID != nil && *l.RoomUnitID != ""
}

// Occupancy 已分配关联与预订的联表投影，占用判断和日历共用
type Occupancy struct {
	LinkID        string            `db:"link_id" json:"link_id"`
	ReservationID string            `db:"reservation_id" json:"reservation_id"`
	RoomUnitID    string            `db:"room_unit_id" json:"room_unit_id"`
	RoomTypeID    string            `db:"room_type_id" json:"room_type_id"`
	Status        ReservationStatus `db:"status" json:"status"`
	Kind          RoomKind          `db:"kind" json:"kind"`
	Source        ReservationSource `db:"source" json:"source"`
	CheckIn       time.Time         `db:"check_in" json:"check_in"`
	CheckOut      time.Time         `db:"check_out" json:"check_out"`
}

// Range 占用区间
func (o *Occupancy) Range() DateRange {
	return StayRange(o.Kind, o.CheckIn, o.CheckOut)
}
