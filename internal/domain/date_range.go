package domain

import (
	"fmt"
	"time"
)

// DateLayout 日期格式（对外接口统一使用 YYYY-MM-DD）
const DateLayout = "2006-01-02"

// Day 截断到 UTC 零点，只保留日历日期
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDay 解析 YYYY-MM-DD
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// FormatDay 格式化为 YYYY-MM-DD
func FormatDay(t time.Time) string {
	return t.Format(DateLayout)
}

// DateRange 半开区间 [Start, End)，End 当天不被占用（退房日可再次入住）
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange 创建半开区间，要求 End 晚于 Start
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: Day(start), End: Day(end)}
	if r.Start.IsZero() || r.End.IsZero() || !r.End.After(r.Start) {
		return DateRange{}, fmt.Errorf("invalid date range %s..%s", FormatDay(r.Start), FormatDay(r.End))
	}
	return r, nil
}

// SingleDay 单日区间 [d, d+1)
func SingleDay(d time.Time) DateRange {
	d = Day(d)
	return DateRange{Start: d, End: d.AddDate(0, 0, 1)}
}

// InclusiveRange 闭区间 [start, end] 转为半开区间 [start, end+1)
func InclusiveRange(start, end time.Time) DateRange {
	return DateRange{Start: Day(start), End: Day(end).AddDate(0, 0, 1)}
}

// MonthRange 某年某月的半开区间 [1号, 下月1号)
func MonthRange(year int, month time.Month) DateRange {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return DateRange{Start: start, End: start.AddDate(0, 1, 0)}
}

// Overlaps 半开区间重叠：a < d && b > c
func (r DateRange) Overlaps(other DateRange) bool {
	return r.Start.Before(other.End) && r.End.After(other.Start)
}

// ContainsDay d 是否落在 [Start, End)
func (r DateRange) ContainsDay(d time.Time) bool {
	d = Day(d)
	return !d.Before(r.Start) && d.Before(r.End)
}

// Intersect 两个区间的交集，不相交返回 false
func (r DateRange) Intersect(other DateRange) (DateRange, bool) {
	if !r.Overlaps(other) {
		return DateRange{}, false
	}
	out := r
	if other.Start.After(out.Start) {
		out.Start = other.Start
	}
	if other.End.Before(out.End) {
		out.End = other.End
	}
	return out, true
}

// Nights 区间包含的天数
func (r DateRange) Nights() int {
	return int(r.End.Sub(r.Start).Hours() / 24)
}

// Months 区间覆盖到的所有 (年, 月)，按时间顺序
func (r DateRange) Months() []YearMonth {
	if !r.End.After(r.Start) {
		return nil
	}
	last := r.End.AddDate(0, 0, -1)
	var out []YearMonth
	cur := time.Date(r.Start.Year(), r.Start.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cur.After(last) {
		out = append(out, YearMonth{Year: cur.Year(), Month: cur.Month()})
		cur = cur.AddDate(0, 1, 0)
	}
	return out
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s, %s)", FormatDay(r.Start), FormatDay(r.End))
}

// YearMonth 月历缓存的粒度
type YearMonth struct {
	Year  int
	Month time.Month
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// DaysIn 该月天数
func (ym YearMonth) DaysIn() int {
	return MonthRange(ym.Year, ym.Month).Nights()
}
