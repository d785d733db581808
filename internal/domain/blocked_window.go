package domain

import "time"

// BlockedWindow 单元封锁窗口（对应 blocked_windows 表）
// StartDate / EndDate 为闭区间，ExpiryDate 为转为正式预订的截止日，必须 <= StartDate
type BlockedWindow struct {
	BlockedWindowID string    `db:"blocked_window_id" json:"blocked_window_id"`
	RoomUnitID      string    `db:"room_unit_id" json:"room_unit_id"`
	StartDate       time.Time `db:"start_date" json:"start_date"`
	EndDate         time.Time `db:"end_date" json:"end_date"`
	ExpiryDate      time.Time `db:"expiry_date" json:"expiry_date"`
	Active          bool      `db:"active" json:"active"`
	Notes           string    `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Range 转为半开区间 [start, end+1)
func (w *BlockedWindow) Range() DateRange {
	return InclusiveRange(w.StartDate, w.EndDate)
}

// Expired expiry_date <= today
func (w *BlockedWindow) Expired(today time.Time) bool {
	return !Day(w.ExpiryDate).After(Day(today))
}

// ValidateWindowDates 校验顺序：start <= end，然后 expiry <= start
func ValidateWindowDates(start, end, expiry time.Time) error {
	if start.IsZero() {
		return NewValidationError("start_date", "start_date is required")
	}
	if end.IsZero() {
		return NewValidationError("end_date", "end_date is required")
	}
	if Day(start).After(Day(end)) {
		return NewValidationError("end_date", "start_date must be on or before end_date")
	}
	if expiry.IsZero() {
		return NewValidationError("expiry_date", "expiry_date is required")
	}
	if Day(expiry).After(Day(start)) {
		return NewValidationError("expiry_date", "expiry_date must be on or before start_date")
	}
	return nil
}
