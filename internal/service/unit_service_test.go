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

func newUnits(inv *inventory, today string) (*unitService, *recordingCache) {
	cache := &recordingCache{}
	svc := NewUnitService(inv.repo, cache, nil, zap.NewNop()).(*unitService)
	svc.clock.now = fixedNow(today)
	return svc, cache
}

func unitNumbers(units []*domain.RoomUnit) []string {
	out := make([]string, 0, len(units))
	for _, u := range units {
		out = append(out, u.UnitNumber)
	}
	return out
}

func TestExpandUnitNumbers(t *testing.T) {
	got, err := expandUnitNumbers([]UnitRange{{Prefix: "V", From: 8, To: 10}}, []string{" PH1 "})
	require.NoError(t, err)
	assert.Equal(t, []string{"V8", "V9", "V10", "PH1"}, got)

	_, err = expandUnitNumbers([]UnitRange{{From: 101, To: 102}}, []string{"102"})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "numbers", verr.Field)

	_, err = expandUnitNumbers(nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = expandUnitNumbers([]UnitRange{{From: 1, To: 5000}}, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGenerateUnits_Success(t *testing.T) {
	inv := newInventory(t, overnight, 6, "101")
	svc, cache := newUnits(inv, "2026-01-01")

	resp, err := svc.GenerateUnits(context.Background(), GenerateUnitsRequest{
		RoomTypeID: inv.typeID,
		Ranges:     []UnitRange{{From: 102, To: 104}},
		Numbers:    []string{"100"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"100", "102", "103", "104"}, unitNumbers(resp.Units))
	assert.Equal(t, 5, resp.Total)
	assert.Equal(t, 1, cache.allCalls())

	list, err := inv.repo.ListUnits(context.Background(), repository.UnitFilters{RoomTypeID: inv.typeID})
	require.NoError(t, err)
	assert.Equal(t, []string{"100", "101", "102", "103", "104"}, unitNumbers(list))
}

func TestGenerateUnits_ExistingNumberConflicts(t *testing.T) {
	inv := newInventory(t, overnight, 6, "101")
	svc, cache := newUnits(inv, "2026-01-01")

	_, err := svc.GenerateUnits(context.Background(), GenerateUnitsRequest{
		RoomTypeID: inv.typeID,
		Ranges:     []UnitRange{{From: 100, To: 102}},
	})
	var cerr *domain.ConflictError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, domain.ConflictUnitNumber, cerr.Kind)
	assert.Equal(t, "101", cerr.UnitNumber)
	assert.Equal(t, 0, cache.allCalls())

	list, err := inv.repo.ListUnits(context.Background(), repository.UnitFilters{RoomTypeID: inv.typeID})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestGenerateUnits_BoundedByUnitCount(t *testing.T) {
	inv := newInventory(t, overnight, 3, "101")
	svc, _ := newUnits(inv, "2026-01-01")
	ctx := context.Background()

	_, err := svc.GenerateUnits(ctx, GenerateUnitsRequest{
		RoomTypeID: inv.typeID,
		Ranges:     []UnitRange{{From: 102, To: 104}},
	})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "units", verr.Field)

	resp, err := svc.GenerateUnits(ctx, GenerateUnitsRequest{
		RoomTypeID: inv.typeID,
		Numbers:    []string{"102", "103"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Total)
}

func TestGenerateUnits_UnknownRoomType(t *testing.T) {
	inv := newInventory(t, overnight, 3)
	svc, _ := newUnits(inv, "2026-01-01")

	_, err := svc.GenerateUnits(context.Background(), GenerateUnitsRequest{
		RoomTypeID: "missing",
		Numbers:    []string{"1"},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListUnits_Filters(t *testing.T) {
	inv := newInventory(t, overnight, 5, "102", "101", "201")
	svc, _ := newUnits(inv, "2026-01-01")
	ctx := context.Background()

	_, err := svc.UpdateUnitStatus(ctx, UpdateUnitStatusRequest{
		RoomUnitID: inv.units["201"], Status: domain.UnitStatusMaintenance, Notes: "leaking roof",
	})
	require.NoError(t, err)

	resp, err := svc.ListUnits(ctx, ListUnitsRequest{RoomTypeID: inv.typeID})
	require.NoError(t, err)
	assert.Equal(t, []string{"101", "102", "201"}, unitNumbers(resp.Items))

	resp, err = svc.ListUnits(ctx, ListUnitsRequest{Status: domain.UnitStatusMaintenance})
	require.NoError(t, err)
	assert.Equal(t, []string{"201"}, unitNumbers(resp.Items))

	resp, err = svc.ListUnits(ctx, ListUnitsRequest{Search: "roof"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)

	_, err = svc.ListUnits(ctx, ListUnitsRequest{Status: "haunted"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdateUnitStatus(t *testing.T) {
	inv := newInventory(t, overnight, 2, "101")
	svc, cache := newUnits(inv, "2026-01-01")
	ctx := context.Background()

	resp, err := svc.UpdateUnitStatus(ctx, UpdateUnitStatusRequest{
		RoomUnitID: inv.units["101"], Status: domain.UnitStatusBlocked, Notes: "owner use",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.UnitStatusBlocked, resp.Unit.Status)
	assert.Equal(t, "owner use", resp.Unit.Notes)
	assert.Equal(t, 1, cache.allCalls())

	_, err = svc.UpdateUnitStatus(ctx, UpdateUnitStatusRequest{RoomUnitID: inv.units["101"], Status: "closed"})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "status", verr.Field)

	_, err = svc.UpdateUnitStatus(ctx, UpdateUnitStatusRequest{RoomUnitID: "missing", Status: domain.UnitStatusAvailable})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteUnit_BlockedByAnyLinkedReservation(t *testing.T) {
	inv := newInventory(t, overnight, 2, "101")
	resID, _ := inv.book(domain.ReservationCancelled, overnight, "2025-01-01", "2025-01-02", "101")
	svc, cache := newUnits(inv, "2026-01-01")

	_, err := svc.DeleteUnit(context.Background(), DeleteUnitRequest{RoomUnitID: inv.units["101"]})
	var derr *domain.DeletionBlockedError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, []string{resID}, derr.ReservationIDs)
	assert.Equal(t, 0, cache.allCalls())

	_, err = inv.repo.GetUnit(context.Background(), inv.units["101"])
	require.NoError(t, err)
}

func TestDeleteUnit_RemovesWindows(t *testing.T) {
	inv := newInventory(t, overnight, 2, "101", "102")
	inv.block("101", "2026-02-01", "2026-02-03", "2026-01-20", true)
	svc, cache := newUnits(inv, "2026-01-01")
	ctx := context.Background()

	resp, err := svc.DeleteUnit(ctx, DeleteUnitRequest{RoomUnitID: inv.units["101"]})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, cache.allCalls())

	_, err = inv.repo.GetUnit(ctx, inv.units["101"])
	assert.ErrorIs(t, err, domain.ErrNotFound)
	windows, err := inv.repo.ListBlockedWindows(ctx, repository.BlockedWindowFilters{RoomUnitID: inv.units["101"]})
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestGetStats(t *testing.T) {
	inv := newInventory(t, overnight, 6, "101", "102", "103", "104")
	// 101 进行中，102 未来，103 已结束，104 已取消
	inv.book(paid, overnight, "2026-02-28", "2026-03-02", "101")
	inv.book(domain.ReservationDepositPaid, overnight, "2026-04-01", "2026-04-02", "102")
	inv.book(paid, overnight, "2026-02-01", "2026-02-05", "103")
	inv.book(domain.ReservationCancelled, overnight, "2026-04-01", "2026-04-02", "104")
	svc, _ := newUnits(inv, "2026-03-01")
	ctx := context.Background()

	_, err := svc.UpdateUnitStatus(ctx, UpdateUnitStatusRequest{RoomUnitID: inv.units["104"], Status: domain.UnitStatusMaintenance})
	require.NoError(t, err)

	stats, err := svc.GetStats(ctx, GetStatsRequest{RoomTypeID: inv.typeID})
	require.NoError(t, err)
	assert.Equal(t, 6, stats.UnitCount)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Remaining)
	assert.Equal(t, 2, stats.OccupiedNowOrUpcoming)
	assert.Equal(t, 3, stats.ByStatus[domain.UnitStatusAvailable])
	assert.Equal(t, 1, stats.ByStatus[domain.UnitStatusMaintenance])
	assert.Equal(t, 0, stats.ByStatus[domain.UnitStatusBlocked])
}

func TestCheckAvailabilityAndFindFreeUnits(t *testing.T) {
	inv := newInventory(t, overnight, 4, "101", "102", "103")
	inv.book(paid, overnight, "2026-03-01", "2026-03-03", "101")
	inv.block("103", "2026-03-02", "2026-03-02", "2026-02-01", true)
	svc, _ := newUnits(inv, "2026-01-01")
	ctx := context.Background()

	avail, err := svc.CheckAvailability(ctx, CheckAvailabilityRequest{
		RoomUnitID: inv.units["101"], Start: day("2026-03-03"), End: day("2026-03-04"), Kind: overnight,
	})
	require.NoError(t, err)
	assert.True(t, avail.Available)

	avail, err = svc.CheckAvailability(ctx, CheckAvailabilityRequest{
		RoomUnitID: inv.units["101"], Start: day("2026-03-02"), Kind: dayTour,
	})
	require.NoError(t, err)
	assert.False(t, avail.Available)

	free, err := svc.FindFreeUnits(ctx, FindFreeUnitsRequest{
		RoomTypeID: inv.typeID, Start: day("2026-03-01"), End: day("2026-03-04"), Kind: overnight,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"102"}, unitNumbers(free.Items))

	_, err = svc.FindFreeUnits(ctx, FindFreeUnitsRequest{
		RoomTypeID: "missing", Start: day("2026-03-01"), End: day("2026-03-04"), Kind: overnight,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.CheckAvailability(ctx, CheckAvailabilityRequest{RoomUnitID: inv.units["101"], Kind: "weekly"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
