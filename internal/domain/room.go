package domain

import (
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// RoomKind 房型类别
type RoomKind string

const (
	RoomKindOvernight RoomKind = "overnight"
	RoomKindDayTour   RoomKind = "day_tour"
)

// Valid 是否为已知类别
func (k RoomKind) Valid() bool {
	return k == RoomKindOvernight || k == RoomKindDayTour
}

// RoomType 房型（对应 room_types 表）
// 对本服务只读，UnitCount 约束可生成的 RoomUnit 数量上限
type RoomType struct {
	RoomTypeID   string   `db:"room_type_id" json:"room_type_id"`
	Name         string   `db:"name" json:"name"`
	Kind         RoomKind `db:"kind" json:"kind"`
	MinOccupancy int      `db:"min_occupancy" json:"min_occupancy"`
	MaxOccupancy int      `db:"max_occupancy" json:"max_occupancy"`
	NightlyRate  int64    `db:"nightly_rate" json:"nightly_rate"` // 最小货币单位
	UnitCount    int      `db:"unit_count" json:"unit_count"`
}

// UnitStatus 单元的人工状态标记
// 仅用于运维标记（maintenance / blocked），某日期是否被占用永远由预订和封锁窗口推导
type UnitStatus string

const (
	UnitStatusAvailable   UnitStatus = "available"
	UnitStatusOccupied    UnitStatus = "occupied"
	UnitStatusMaintenance UnitStatus = "maintenance"
	UnitStatusBlocked     UnitStatus = "blocked"
)

// Valid 是否为已知状态
func (s UnitStatus) Valid() bool {
	switch s {
	case UnitStatusAvailable, UnitStatusOccupied, UnitStatusMaintenance, UnitStatusBlocked:
		return true
	}
	return false
}

// OutOfService maintenance / blocked 的单元不参与自动分配
func (s UnitStatus) OutOfService() bool {
	return s == UnitStatusMaintenance || s == UnitStatusBlocked
}

// AllUnitStatuses 统计时的固定顺序
var AllUnitStatuses = []UnitStatus{
	UnitStatusAvailable,
	UnitStatusOccupied,
	UnitStatusMaintenance,
	UnitStatusBlocked,
}

// RoomUnit 房间单元（对应 room_units 表）
type RoomUnit struct {
	RoomUnitID string     `db:"room_unit_id" json:"room_unit_id"`
	RoomTypeID string     `db:"room_type_id" json:"room_type_id"`
	UnitNumber string     `db:"unit_number" json:"unit_number"` // 同一房型内唯一
	Status     UnitStatus `db:"status" json:"status"`
	Notes      string     `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// CompareUnitNumbers 单元号自然排序：前缀按字典序，末尾数字按数值
// "101" < "102" < "1001"，"A9" < "A10"
func CompareUnitNumbers(a, b string) int {
	pa, na, okA := splitUnitNumber(a)
	pb, nb, okB := splitUnitNumber(b)
	if c := strings.Compare(pa, pb); c != 0 {
		return c
	}
	switch {
	case okA && okB:
		if na != nb {
			if na < nb {
				return -1
			}
			return 1
		}
	case okA:
		return 1
	case okB:
		return -1
	}
	return strings.Compare(a, b)
}

// splitUnitNumber 拆分为非数字前缀和末尾数字
func splitUnitNumber(s string) (string, int64, bool) {
	i := len(s)
	for i > 0 && unicode.IsDigit(rune(s[i-1])) {
		i--
	}
	if i == len(s) {
		return s, 0, false
	}
	n, err := strconv.ParseInt(s[i:], 10, 64)
	if err != nil {
		return s, 0, false
	}
	return s[:i], n, true
}

// SortUnits 按单元号自然顺序原地排序
func SortUnits(units []*RoomUnit) {
	sort.SliceStable(units, func(i, j int) bool {
		return lessUnit(units[i], units[j])
	})
}

func lessUnit(a, b *RoomUnit) bool {
	if c := CompareUnitNumbers(a.UnitNumber, b.UnitNumber); c != 0 {
		return c < 0
	}
	return a.RoomUnitID < b.RoomUnitID
}
