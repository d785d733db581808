package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/domain"
	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/repository"

	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := domain.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func fixedNow(s string) func() time.Time {
	return func() time.Time { return day(s).Add(10 * time.Hour) }
}

// recordingCache 记录每次失效调用
type recordingCache struct {
	mu     sync.Mutex
	ranges [][]domain.DateRange
	all    int
	err    error
}

func (c *recordingCache) InvalidateRange(_ context.Context, ranges ...domain.DateRange) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ranges = append(c.ranges, ranges)
	return c.err
}

func (c *recordingCache) InvalidateAll(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.all++
	return c.err
}

func (c *recordingCache) rangeCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ranges)
}

func (c *recordingCache) allCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.all
}

// inventory 一个房型 + 若干单元的内存仓库
type inventory struct {
	repo   *repository.MemoryInventoryRepo
	typeID string
	units  map[string]string // unit_number -> room_unit_id
}

func newInventory(t *testing.T, kind domain.RoomKind, unitCount int, numbers ...string) *inventory {
	t.Helper()
	repo := repository.NewMemoryInventoryRepo()
	typeID := repo.SeedRoomType(domain.RoomType{
		Name:         "Garden Villa",
		Kind:         kind,
		MinOccupancy: 1,
		MaxOccupancy: 4,
		NightlyRate:  450000,
		UnitCount:    unitCount,
	})
	inv := &inventory{repo: repo, typeID: typeID, units: map[string]string{}}
	for _, n := range numbers {
		inv.units[n] = repo.SeedUnit(domain.RoomUnit{RoomTypeID: typeID, UnitNumber: n})
	}
	return inv
}

// book 写入一个单关联预订，unitNumber 为空表示尚未分配
func (inv *inventory) book(status domain.ReservationStatus, kind domain.RoomKind, in, out, unitNumber string) (string, string) {
	link := domain.ReservationUnitLink{RoomTypeID: inv.typeID}
	if unitNumber != "" {
		id := inv.units[unitNumber]
		link.RoomUnitID = &id
	}
	res := domain.Reservation{Status: status, Kind: kind, Source: domain.SourceOnline, CheckIn: day(in)}
	if out != "" {
		res.CheckOut = day(out)
	}
	resID, links := inv.repo.SeedReservation(res, link)
	return resID, links[0]
}

func (inv *inventory) block(unitNumber, start, end, expiry string, active bool) string {
	return inv.repo.SeedBlockedWindow(domain.BlockedWindow{
		RoomUnitID: inv.units[unitNumber],
		StartDate:  day(start),
		EndDate:    day(end),
		ExpiryDate: day(expiry),
		Active:     active,
	})
}

func (inv *inventory) unitOf(t *testing.T, linkID string) string {
	t.Helper()
	l, err := inv.repo.GetLink(context.Background(), linkID)
	require.NoError(t, err)
	if l.RoomUnitID == nil {
		return ""
	}
	u, err := inv.repo.GetUnit(context.Background(), *l.RoomUnitID)
	require.NoError(t, err)
	return u.UnitNumber
}
