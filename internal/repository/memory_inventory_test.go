package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := domain.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func seedBasic(t *testing.T) (*MemoryInventoryRepo, string, []string) {
	t.Helper()
	repo := NewMemoryInventoryRepo()
	typeID := repo.SeedRoomType(domain.RoomType{Name: "Garden View", Kind: domain.RoomKindOvernight, UnitCount: 5})
	units := []string{
		repo.SeedUnit(domain.RoomUnit{RoomTypeID: typeID, UnitNumber: "102"}),
		repo.SeedUnit(domain.RoomUnit{RoomTypeID: typeID, UnitNumber: "101"}),
	}
	return repo, typeID, units
}

func TestMemoryInTx_RollbackDiscardsWrites(t *testing.T) {
	repo, typeID, units := seedBasic(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := repo.InTx(ctx, func(tx InventoryTx) error {
		require.NoError(t, tx.UpdateUnitStatus(ctx, units[0], domain.UnitStatusMaintenance, "aircon"))
		u, err := tx.GetUnit(ctx, units[0])
		require.NoError(t, err)
		assert.Equal(t, domain.UnitStatusMaintenance, u.Status, "tx sees its own write")
		return boom
	})
	require.ErrorIs(t, err, boom)

	u, err := repo.GetUnit(ctx, units[0])
	require.NoError(t, err)
	assert.Equal(t, domain.UnitStatusAvailable, u.Status)

	list, err := repo.ListUnits(ctx, UnitFilters{RoomTypeID: typeID})
	require.NoError(t, err)
	assert.Equal(t, "101", list[0].UnitNumber)
}

func TestMemoryInsertUnits_DuplicateNumber(t *testing.T) {
	repo, typeID, _ := seedBasic(t)
	ctx := context.Background()

	err := repo.InTx(ctx, func(tx InventoryTx) error {
		return tx.InsertUnits(ctx, []*domain.RoomUnit{
			{RoomTypeID: typeID, UnitNumber: "103"},
			{RoomTypeID: typeID, UnitNumber: "101"},
		})
	})
	require.ErrorIs(t, err, domain.ErrConflict)

	list, _ := repo.ListUnits(ctx, UnitFilters{RoomTypeID: typeID})
	assert.Len(t, list, 2, "partial insert must not be visible")
}

func TestMemoryOccupancies_OnlyOccupyingAndOverlapping(t *testing.T) {
	repo, typeID, units := seedBasic(t)
	ctx := context.Background()
	unit := units[1]

	repo.SeedReservation(domain.Reservation{
		Status: domain.ReservationPaid, Kind: domain.RoomKindOvernight, Source: domain.SourceOnline,
		CheckIn: day("2025-01-10"), CheckOut: day("2025-01-12"),
	}, domain.ReservationUnitLink{RoomTypeID: typeID, RoomUnitID: &unit})
	repo.SeedReservation(domain.Reservation{
		Status: domain.ReservationCancelled, Kind: domain.RoomKindOvernight,
		CheckIn: day("2025-01-10"), CheckOut: day("2025-01-12"),
	}, domain.ReservationUnitLink{RoomTypeID: typeID, RoomUnitID: &unit})
	repo.SeedReservation(domain.Reservation{
		Status: domain.ReservationPending, Kind: domain.RoomKindOvernight,
		CheckIn: day("2025-01-10"), CheckOut: day("2025-01-12"),
	}, domain.ReservationUnitLink{RoomTypeID: typeID})

	occ, err := repo.ListUnitOccupancies(ctx, unit, domain.DateRange{Start: day("2025-01-11"), End: day("2025-01-13")})
	require.NoError(t, err)
	assert.Len(t, occ, 1)

	occ, err = repo.ListUnitOccupancies(ctx, unit, domain.DateRange{Start: day("2025-01-12"), End: day("2025-01-14")})
	require.NoError(t, err)
	assert.Empty(t, occ)

	all, err := repo.ListOccupanciesInRange(ctx, "", domain.MonthRange(2025, time.January))
	require.NoError(t, err)
	assert.Len(t, all, 1)

	n, err := repo.CountOccupiedUnits(ctx, typeID, day("2025-01-11"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = repo.CountOccupiedUnits(ctx, typeID, day("2025-01-12"))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	ids, err := repo.ListUnitReservationIDs(ctx, unit)
	require.NoError(t, err)
	assert.Len(t, ids, 2, "cancelled reservations still count as history")
}

func TestMemoryDeactivateExpired_Idempotent(t *testing.T) {
	repo, _, units := seedBasic(t)
	ctx := context.Background()

	repo.SeedBlockedWindow(domain.BlockedWindow{
		RoomUnitID: units[0], StartDate: day("2025-02-10"), EndDate: day("2025-02-12"),
		ExpiryDate: day("2025-02-01"), Active: true,
	})
	repo.SeedBlockedWindow(domain.BlockedWindow{
		RoomUnitID: units[0], StartDate: day("2025-03-10"), EndDate: day("2025-03-12"),
		ExpiryDate: day("2025-03-01"), Active: true,
	})

	out, err := repo.DeactivateExpiredBlockedWindows(ctx, day("2025-02-01"))
	require.NoError(t, err)
	assert.Len(t, out, 1)

	out, err = repo.DeactivateExpiredBlockedWindows(ctx, day("2025-02-01"))
	require.NoError(t, err)
	assert.Empty(t, out)

	active, err := repo.ListBlockedWindows(ctx, BlockedWindowFilters{RoomUnitID: units[0], ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, day("2025-03-10"), active[0].StartDate)
}

func TestMemoryDeleteUnit_RemovesWindowsAndRespectsLinks(t *testing.T) {
	repo, typeID, units := seedBasic(t)
	ctx := context.Background()
	linked := units[1]

	repo.SeedBlockedWindow(domain.BlockedWindow{RoomUnitID: units[0], StartDate: day("2025-02-10"),
		EndDate: day("2025-02-12"), ExpiryDate: day("2025-02-01"), Active: true})
	repo.SeedReservation(domain.Reservation{Status: domain.ReservationCancelled, Kind: domain.RoomKindOvernight,
		CheckIn: day("2025-01-10"), CheckOut: day("2025-01-12")},
		domain.ReservationUnitLink{RoomTypeID: typeID, RoomUnitID: &linked})

	require.NoError(t, repo.InTx(ctx, func(tx InventoryTx) error { return tx.DeleteUnit(ctx, units[0]) }))
	ws, _ := repo.ListBlockedWindows(ctx, BlockedWindowFilters{})
	assert.Empty(t, ws)

	err := repo.InTx(ctx, func(tx InventoryTx) error { return tx.DeleteUnit(ctx, linked) })
	assert.Error(t, err)
}
