package service

import (
	"context"
	"errors"
	"testing"

	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/domain"
	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newBlockedWindows(inv *inventory, today string) (*blockedWindowService, *recordingCache) {
	cache := &recordingCache{}
	svc := NewBlockedWindowService(inv.repo, cache, nil, zap.NewNop()).(*blockedWindowService)
	svc.clock.now = fixedNow(today)
	return svc, cache
}

func createReq(unitID, start, end, expiry string) CreateBlockedWindowRequest {
	return CreateBlockedWindowRequest{
		RoomUnitID: unitID,
		StartDate:  day(start),
		EndDate:    day(end),
		ExpiryDate: day(expiry),
		Notes:      "renovation",
	}
}

func TestCreateBlockedWindow_Success(t *testing.T) {
	inv := newInventory(t, overnight, 2, "101")
	svc, cache := newBlockedWindows(inv, "2026-01-01")

	resp, err := svc.Create(context.Background(), createReq(inv.units["101"], "2026-02-01", "2026-02-03", "2026-01-25"))
	require.NoError(t, err)

	w := resp.BlockedWindow
	assert.NotEmpty(t, w.BlockedWindowID)
	assert.True(t, w.Active)
	assert.Equal(t, domain.InclusiveRange(day("2026-02-01"), day("2026-02-03")), w.Range())
	require.Equal(t, 1, cache.rangeCalls())
}

func TestCreateBlockedWindow_ValidationOrder(t *testing.T) {
	inv := newInventory(t, overnight, 2, "101")
	svc, _ := newBlockedWindows(inv, "2026-01-01")
	ctx := context.Background()

	cases := []struct {
		name  string
		req   CreateBlockedWindowRequest
		field string
	}{
		{"missing unit", createReq("", "2026-02-01", "2026-02-03", "2026-01-25"), "room_unit_id"},
		{"end before start", createReq(inv.units["101"], "2026-02-03", "2026-02-01", "2026-03-01"), "end_date"},
		{"expiry after start", createReq(inv.units["101"], "2026-02-01", "2026-02-03", "2026-02-02"), "expiry_date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.req)
			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestCreateBlockedWindow_OverlapWithActiveWindow(t *testing.T) {
	inv := newInventory(t, overnight, 2, "101")
	existing := inv.block("101", "2026-02-01", "2026-02-05", "2026-01-20", true)
	inv.block("101", "2026-02-10", "2026-02-12", "2026-01-20", false)
	svc, _ := newBlockedWindows(inv, "2026-01-01")
	ctx := context.Background()

	_, err := svc.Create(ctx, createReq(inv.units["101"], "2026-02-05", "2026-02-06", "2026-01-30"))
	var cerr *domain.ConflictError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, domain.ConflictBlockedWindow, cerr.Kind)
	assert.Equal(t, existing, cerr.ConflictingID)
	assert.Equal(t, "101", cerr.UnitNumber)

	// 包含式结束日期：次日开始不重叠
	_, err = svc.Create(ctx, createReq(inv.units["101"], "2026-02-06", "2026-02-07", "2026-01-30"))
	require.NoError(t, err)

	// inactive 窗口不参与冲突
	_, err = svc.Create(ctx, createReq(inv.units["101"], "2026-02-11", "2026-02-11", "2026-01-30"))
	require.NoError(t, err)
}

func TestCreateBlockedWindow_OverlapWithOccupyingReservation(t *testing.T) {
	inv := newInventory(t, overnight, 2, "101", "102")
	resID, _ := inv.book(paid, overnight, "2026-02-01", "2026-02-04", "101")
	inv.book(domain.ReservationPending, overnight, "2026-02-01", "2026-02-04", "102")
	svc, _ := newBlockedWindows(inv, "2026-01-01")
	ctx := context.Background()

	_, err := svc.Create(ctx, createReq(inv.units["101"], "2026-02-03", "2026-02-05", "2026-01-30"))
	var cerr *domain.ConflictError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, domain.ConflictReservation, cerr.Kind)
	assert.Equal(t, resID, cerr.ConflictingID)

	// 退房日可以封锁
	_, err = svc.Create(ctx, createReq(inv.units["101"], "2026-02-04", "2026-02-05", "2026-01-30"))
	require.NoError(t, err)

	// pending 预订不占用
	_, err = svc.Create(ctx, createReq(inv.units["102"], "2026-02-01", "2026-02-02", "2026-01-30"))
	require.NoError(t, err)
}

func TestCreateBulk_AllOrNothing(t *testing.T) {
	inv := newInventory(t, overnight, 3, "101", "102", "103")
	inv.book(paid, overnight, "2026-02-02", "2026-02-03", "102")
	svc, cache := newBlockedWindows(inv, "2026-01-01")
	ctx := context.Background()

	_, err := svc.CreateBulk(ctx, CreateBulkBlockedWindowsRequest{
		RoomUnitIDs: []string{inv.units["101"], inv.units["102"], inv.units["103"]},
		StartDate:   day("2026-02-01"),
		EndDate:     day("2026-02-05"),
		ExpiryDate:  day("2026-01-25"),
	})
	var cerr *domain.ConflictError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, inv.units["102"], cerr.RoomUnitID)
	assert.Equal(t, "102", cerr.UnitNumber)

	all, err := inv.repo.ListBlockedWindows(ctx, repository.BlockedWindowFilters{})
	require.NoError(t, err)
	assert.Empty(t, all, "no window written when any unit fails")
	assert.Equal(t, 0, cache.rangeCalls())
}

func TestCreateBulk_DeduplicatesUnits(t *testing.T) {
	inv := newInventory(t, overnight, 2, "101", "102")
	svc, cache := newBlockedWindows(inv, "2026-01-01")

	resp, err := svc.CreateBulk(context.Background(), CreateBulkBlockedWindowsRequest{
		RoomUnitIDs: []string{inv.units["102"], inv.units["101"], inv.units["102"]},
		StartDate:   day("2026-02-01"),
		EndDate:     day("2026-02-01"),
		ExpiryDate:  day("2026-02-01"),
	})
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, inv.units["102"], resp.Items[0].RoomUnitID)
	assert.Equal(t, 1, cache.rangeCalls())
}

func TestCreateBulk_MissingUnit(t *testing.T) {
	inv := newInventory(t, overnight, 2, "101")
	svc, _ := newBlockedWindows(inv, "2026-01-01")

	_, err := svc.CreateBulk(context.Background(), CreateBulkBlockedWindowsRequest{
		RoomUnitIDs: []string{inv.units["101"], "nope"},
		StartDate:   day("2026-02-01"),
		EndDate:     day("2026-02-01"),
		ExpiryDate:  day("2026-02-01"),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateBlockedWindow_ExcludesItself(t *testing.T) {
	inv := newInventory(t, overnight, 2, "101")
	id := inv.block("101", "2026-02-01", "2026-02-05", "2026-01-20", true)
	other := inv.block("101", "2026-02-10", "2026-02-12", "2026-01-20", true)
	svc, cache := newBlockedWindows(inv, "2026-01-01")
	ctx := context.Background()

	resp, err := svc.Update(ctx, UpdateBlockedWindowRequest{
		BlockedWindowID: id,
		StartDate:       day("2026-02-03"),
		EndDate:         day("2026-02-08"),
		ExpiryDate:      day("2026-02-01"),
	})
	require.NoError(t, err)
	assert.True(t, resp.BlockedWindow.EndDate.Equal(day("2026-02-08")))
	require.Equal(t, 1, cache.rangeCalls())
	assert.Len(t, cache.ranges[0], 2)

	_, err = svc.Update(ctx, UpdateBlockedWindowRequest{
		BlockedWindowID: id,
		StartDate:       day("2026-02-03"),
		EndDate:         day("2026-02-10"),
		ExpiryDate:      day("2026-02-01"),
	})
	var cerr *domain.ConflictError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, other, cerr.ConflictingID)
}

func TestDeleteBlockedWindow(t *testing.T) {
	inv := newInventory(t, overnight, 2, "101")
	id := inv.block("101", "2026-02-01", "2026-02-05", "2026-01-20", true)
	svc, cache := newBlockedWindows(inv, "2026-01-01")
	ctx := context.Background()

	resp, err := svc.Delete(ctx, DeleteBlockedWindowRequest{BlockedWindowID: id})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, cache.rangeCalls())

	_, err = svc.Delete(ctx, DeleteBlockedWindowRequest{BlockedWindowID: id})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestToggleBlockedWindow(t *testing.T) {
	inv := newInventory(t, overnight, 2, "101")
	id := inv.block("101", "2026-02-01", "2026-02-05", "2026-01-20", true)
	svc, _ := newBlockedWindows(inv, "2026-01-01")
	ctx := context.Background()

	resp, err := svc.ToggleActive(ctx, ToggleBlockedWindowRequest{BlockedWindowID: id})
	require.NoError(t, err)
	assert.False(t, resp.BlockedWindow.Active)

	// 停用期间被预订占用，重新启用需要再次校验
	inv.book(paid, overnight, "2026-02-04", "2026-02-06", "101")
	_, err = svc.ToggleActive(ctx, ToggleBlockedWindowRequest{BlockedWindowID: id})
	assert.ErrorIs(t, err, domain.ErrConflict)

	w, err := inv.repo.GetBlockedWindow(ctx, id)
	require.NoError(t, err)
	assert.False(t, w.Active)
}

func TestToggleBlockedWindow_CannotActivateExpired(t *testing.T) {
	inv := newInventory(t, overnight, 2, "101")
	id := inv.block("101", "2026-02-01", "2026-02-05", "2026-01-20", false)
	svc, _ := newBlockedWindows(inv, "2026-01-20")

	_, err := svc.ToggleActive(context.Background(), ToggleBlockedWindowRequest{BlockedWindowID: id})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "expiry_date", verr.Field)
}

func TestDeactivateExpired_IsIdempotent(t *testing.T) {
	inv := newInventory(t, overnight, 2, "101", "102")
	inv.block("101", "2026-02-01", "2026-02-05", "2026-01-20", true)
	inv.block("102", "2026-02-01", "2026-02-05", "2026-01-21", true)
	inv.block("101", "2026-03-01", "2026-03-05", "2026-02-20", true)
	inv.block("102", "2026-01-01", "2026-01-02", "2026-01-01", false)
	svc, cache := newBlockedWindows(inv, "2026-01-21")
	ctx := context.Background()

	n, err := svc.DeactivateExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, cache.rangeCalls())

	n, err = svc.DeactivateExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, cache.rangeCalls(), "nothing flipped, nothing invalidated")

	active, err := inv.repo.ListBlockedWindows(ctx, repository.BlockedWindowFilters{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.True(t, active[0].StartDate.Equal(day("2026-03-01")))
}

func TestListBlockedWindows(t *testing.T) {
	inv := newInventory(t, overnight, 2, "101", "102")
	inv.block("101", "2026-02-01", "2026-02-05", "2026-01-20", true)
	inv.block("102", "2026-02-01", "2026-02-05", "2026-01-20", false)
	svc, _ := newBlockedWindows(inv, "2026-01-01")
	ctx := context.Background()

	resp, err := svc.List(ctx, ListBlockedWindowsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)

	resp, err = svc.List(ctx, ListBlockedWindowsRequest{ActiveOnly: true})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, inv.units["101"], resp.Items[0].RoomUnitID)
}
