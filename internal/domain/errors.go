package domain

import (
	"errors"
	"fmt"
	"strings"
)

// 错误类别，调用方用 errors.Is 判断类别，用 errors.As 取详情
var (
	ErrValidation       = errors.New("validation failed")
	ErrConflict         = errors.New("conflict")
	ErrNoUnitsAvailable = errors.New("no units available")
	ErrDeletionBlocked  = errors.New("deletion blocked")
	ErrNotFound         = errors.New("not found")
	ErrLockTimeout      = errors.New("lock timeout")
)

// ValidationError 输入不合法，可由调用方修正
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewValidationError 创建 ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConflictKind 冲突来源
type ConflictKind string

const (
	ConflictBlockedWindow ConflictKind = "blocked_window"
	ConflictReservation   ConflictKind = "reservation"
	ConflictUnitNumber    ConflictKind = "unit_number"
)

// ConflictError 与已有封锁窗口或预订重叠
type ConflictError struct {
	RoomUnitID    string       `json:"room_unit_id"`
	UnitNumber    string       `json:"unit_number,omitempty"`
	Kind          ConflictKind `json:"kind"`
	ConflictingID string       `json:"conflicting_id,omitempty"`
	Range         *DateRange   `json:"range,omitempty"`
}

func (e *ConflictError) Error() string {
	unit := e.RoomUnitID
	if e.UnitNumber != "" {
		unit = e.UnitNumber
	}
	switch e.Kind {
	case ConflictUnitNumber:
		return fmt.Sprintf("conflict: unit number %s already exists", unit)
	default:
		msg := fmt.Sprintf("conflict: unit %s overlaps %s %s", unit, e.Kind, e.ConflictingID)
		if e.Range != nil {
			msg += " " + e.Range.String()
		}
		return msg
	}
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// NoUnitsAvailableError 库存耗尽，属于正常业务结果
type NoUnitsAvailableError struct {
	RoomTypeID string    `json:"room_type_id"`
	Range      DateRange `json:"range"`
}

func (e *NoUnitsAvailableError) Error() string {
	return fmt.Sprintf("no units available for room type %s in %s", e.RoomTypeID, e.Range)
}

func (e *NoUnitsAvailableError) Is(target error) bool { return target == ErrNoUnitsAvailable }

// DeletionBlockedError 单元仍被预订引用，不可删除
type DeletionBlockedError struct {
	RoomUnitID     string   `json:"room_unit_id"`
	ReservationIDs []string `json:"reservation_ids"`
}

func (e *DeletionBlockedError) Error() string {
	return fmt.Sprintf("room unit %s is referenced by reservations: %s",
		e.RoomUnitID, strings.Join(e.ReservationIDs, ", "))
}

func (e *DeletionBlockedError) Is(target error) bool { return target == ErrDeletionBlocked }

// NotFoundError 实体不存在
type NotFoundError struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
}

// NewNotFoundError 创建 NotFoundError
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// IsBusinessOutcome 调用方可处理的业务结果（非系统故障）
func IsBusinessOutcome(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrNoUnitsAvailable) ||
		errors.Is(err, ErrDeletionBlocked) ||
		errors.Is(err, ErrNotFound)
}
