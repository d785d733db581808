package domain

// CellStatus 日历单元格状态
type CellStatus string

const (
	CellAvailable CellStatus = "available"
	CellBooked    CellStatus = "booked"
	CellBlocked   CellStatus = "blocked"
)

// CalendarGrid 某年某月的单元 × 日期网格，由预订和封锁窗口推导，不落库
// 全部使用切片保证 JSON 序列化结果稳定
type CalendarGrid struct {
	Year        int                `json:"year"`
	Month       int                `json:"month"`
	RoomTypeID  string             `json:"room_type_id,omitempty"` // 空表示全部房型
	DaysInMonth int                `json:"days_in_month"`
	RoomTypes   []CalendarRoomType `json:"room_types"`
}

// CalendarRoomType 房型分组
type CalendarRoomType struct {
	RoomTypeID string        `json:"room_type_id"`
	Name       string        `json:"name"`
	Kind       RoomKind      `json:"kind"`
	Units      []CalendarRow `json:"units"`
	Summary    []DaySummary  `json:"summary"`
}

// CalendarRow 单元一行，Status 为人工标记，供前端置灰
type CalendarRow struct {
	RoomUnitID string         `json:"room_unit_id"`
	UnitNumber string         `json:"unit_number"`
	Status     UnitStatus     `json:"status"`
	Cells      []CalendarCell `json:"cells"`
}

// CalendarCell 单元某日的状态
type CalendarCell struct {
	Day             int               `json:"day"`
	Status          CellStatus        `json:"status"`
	Source          ReservationSource `json:"source,omitempty"`
	ReservationID   string            `json:"reservation_id,omitempty"`
	BlockedWindowID string            `json:"blocked_window_id,omitempty"`
}

// DaySummary 房型某日可用/已订/封锁的单元数
type DaySummary struct {
	Day       int `json:"day"`
	Available int `json:"available"`
	Booked    int `json:"booked"`
	Blocked   int `json:"blocked"`
}
