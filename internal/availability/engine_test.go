package availability

import (
	"context"
	"testing"
	"time"

	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/domain"
	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func day(s string) time.Time {
	t, err := domain.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func occ(id string, status domain.ReservationStatus, kind domain.RoomKind, in, out string) *domain.Occupancy {
	return &domain.Occupancy{
		ReservationID: id, Status: status, Kind: kind,
		CheckIn: day(in), CheckOut: day(out),
	}
}

func TestCheckRange_HalfOpenAdjacency(t *testing.T) {
	existing := []*domain.Occupancy{occ("r1", domain.ReservationPaid, domain.RoomKindOvernight, "2025-01-10", "2025-01-12")}

	assert.Nil(t, CheckRange(domain.DateRange{Start: day("2025-01-12"), End: day("2025-01-14")}, existing, nil, Exclusions{}))

	c := CheckRange(domain.DateRange{Start: day("2025-01-11"), End: day("2025-01-13")}, existing, nil, Exclusions{})
	require.NotNil(t, c)
	assert.Equal(t, domain.ConflictReservation, c.Kind)
	assert.Equal(t, "r1", c.ID)
}

func TestCheckRange_IgnoresNonOccupyingAndExcluded(t *testing.T) {
	candidate := domain.DateRange{Start: day("2025-01-10"), End: day("2025-01-11")}
	existing := []*domain.Occupancy{
		occ("pending", domain.ReservationPending, domain.RoomKindOvernight, "2025-01-10", "2025-01-12"),
		occ("cancelled", domain.ReservationCancelled, domain.RoomKindOvernight, "2025-01-10", "2025-01-12"),
		occ("self", domain.ReservationDepositPaid, domain.RoomKindOvernight, "2025-01-10", "2025-01-12"),
	}
	assert.Nil(t, CheckRange(candidate, existing, nil, Exclusions{ReservationID: "self"}))
	assert.NotNil(t, CheckRange(candidate, existing, nil, Exclusions{}))
}

func TestCheckRange_DayTourVsOvernight(t *testing.T) {
	tour := []*domain.Occupancy{occ("t1", domain.ReservationPaid, domain.RoomKindDayTour, "2025-01-10", "2025-01-10")}

	// overnight arriving the evening of the tour day overlaps the tour day
	assert.NotNil(t, CheckRange(domain.DateRange{Start: day("2025-01-10"), End: day("2025-01-11")}, tour, nil, Exclusions{}))
	// overnight checking out on the tour day does not
	assert.Nil(t, CheckRange(domain.DateRange{Start: day("2025-01-08"), End: day("2025-01-10")}, tour, nil, Exclusions{}))
	assert.Nil(t, CheckRange(domain.SingleDay(day("2025-01-11")), tour, nil, Exclusions{}))
}

func TestCheckRange_BlockedWindowInclusiveEnd(t *testing.T) {
	windows := []*domain.BlockedWindow{
		{BlockedWindowID: "w1", StartDate: day("2025-02-01"), EndDate: day("2025-02-05"), Active: true},
		{BlockedWindowID: "w2", StartDate: day("2025-02-20"), EndDate: day("2025-02-25"), Active: false},
	}

	c := CheckRange(domain.DateRange{Start: day("2025-02-05"), End: day("2025-02-07")}, nil, windows, Exclusions{})
	require.NotNil(t, c)
	assert.Equal(t, domain.ConflictBlockedWindow, c.Kind)
	assert.Equal(t, day("2025-02-06"), c.Range.End)

	assert.Nil(t, CheckRange(domain.DateRange{Start: day("2025-02-06"), End: day("2025-02-07")}, nil, windows, Exclusions{}))
	assert.Nil(t, CheckRange(domain.DateRange{Start: day("2025-02-21"), End: day("2025-02-22")}, nil, windows, Exclusions{}), "inactive windows are ignored")
	assert.Nil(t, CheckRange(domain.DateRange{Start: day("2025-02-02"), End: day("2025-02-03")}, nil, windows, Exclusions{BlockedWindowID: "w1"}))
}

func TestEngine_IsUnitFreeAndFindFreeUnits(t *testing.T) {
	repo := repository.NewMemoryInventoryRepo()
	typeID := repo.SeedRoomType(domain.RoomType{Name: "Deluxe", Kind: domain.RoomKindOvernight, UnitCount: 3})
	u101 := repo.SeedUnit(domain.RoomUnit{RoomTypeID: typeID, UnitNumber: "101"})
	u102 := repo.SeedUnit(domain.RoomUnit{RoomTypeID: typeID, UnitNumber: "102"})
	repo.SeedUnit(domain.RoomUnit{RoomTypeID: typeID, UnitNumber: "103", Status: domain.UnitStatusMaintenance})
	repo.SeedReservation(domain.Reservation{
		Status: domain.ReservationPaid, Kind: domain.RoomKindOvernight,
		CheckIn: day("2025-01-10"), CheckOut: day("2025-01-12"),
	}, domain.ReservationUnitLink{RoomTypeID: typeID, RoomUnitID: &u101})

	engine := NewEngine(repo, zap.NewNop())
	ctx := context.Background()

	free, err := engine.IsUnitFree(ctx, u101, day("2025-01-11"), day("2025-01-13"), domain.RoomKindOvernight)
	require.NoError(t, err)
	assert.False(t, free)

	free, err = engine.IsUnitFree(ctx, u101, day("2025-01-12"), day("2025-01-14"), domain.RoomKindOvernight)
	require.NoError(t, err)
	assert.True(t, free)

	_, err = engine.IsUnitFree(ctx, u101, day("2025-01-12"), day("2025-01-12"), domain.RoomKindOvernight)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = engine.IsUnitFree(ctx, "missing", day("2025-01-12"), day("2025-01-13"), domain.RoomKindOvernight)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	units, err := engine.FindFreeUnits(ctx, typeID, day("2025-01-10"), day("2025-01-11"), domain.RoomKindOvernight)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, u102, units[0].RoomUnitID)
}
