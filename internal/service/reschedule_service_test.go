package service

import (
	"context"
	"errors"
	"testing"

	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newReschedule(inv *inventory) (RescheduleService, *recordingCache) {
	cache := &recordingCache{}
	return NewRescheduleService(inv.repo, cache, zap.NewNop()), cache
}

func TestReschedule_KeepsUnitWhenStillFree(t *testing.T) {
	inv := newInventory(t, overnight, 3, "101", "102")
	resID, link := inv.book(paid, overnight, "2026-03-01", "2026-03-03", "102")
	svc, cache := newReschedule(inv)

	resp, err := svc.Reschedule(context.Background(), RescheduleRequest{
		ReservationID: resID,
		CheckIn:       day("2026-03-10"),
		CheckOut:      day("2026-03-12"),
	})
	require.NoError(t, err)

	require.Len(t, resp.Links, 1)
	assert.False(t, resp.Links[0].Moved)
	assert.Equal(t, "102", inv.unitOf(t, link), "stays on its unit even though 101 is lower")
	assert.True(t, resp.Reservation.CheckIn.Equal(day("2026-03-10")))
	assert.True(t, resp.Reservation.CheckOut.Equal(day("2026-03-12")))

	require.Equal(t, 1, cache.rangeCalls())
	assert.Len(t, cache.ranges[0], 2, "old and new ranges are invalidated together")
}

func TestReschedule_ExtendingOverOwnStayIsNotAConflict(t *testing.T) {
	inv := newInventory(t, overnight, 2, "101")
	resID, link := inv.book(paid, overnight, "2026-03-01", "2026-03-03", "101")
	svc, _ := newReschedule(inv)

	resp, err := svc.Reschedule(context.Background(), RescheduleRequest{
		ReservationID: resID,
		CheckIn:       day("2026-03-02"),
		CheckOut:      day("2026-03-06"),
	})
	require.NoError(t, err)
	assert.False(t, resp.Links[0].Moved)
	assert.Equal(t, "101", inv.unitOf(t, link))
}

func TestReschedule_ReassignsOnConflict(t *testing.T) {
	inv := newInventory(t, overnight, 3, "101", "102", "103")
	resID, link := inv.book(paid, overnight, "2026-03-01", "2026-03-03", "101")
	inv.book(paid, overnight, "2026-03-09", "2026-03-11", "101")
	inv.block("102", "2026-03-10", "2026-03-10", "2026-03-01", true)
	svc, _ := newReschedule(inv)

	resp, err := svc.Reschedule(context.Background(), RescheduleRequest{
		ReservationID: resID,
		CheckIn:       day("2026-03-10"),
		CheckOut:      day("2026-03-12"),
	})
	require.NoError(t, err)

	require.Len(t, resp.Links, 1)
	assert.True(t, resp.Links[0].Moved)
	assert.Equal(t, inv.units["101"], resp.Links[0].PreviousUnitID)
	assert.Equal(t, "103", resp.Links[0].UnitNumber)
	assert.Equal(t, "103", inv.unitOf(t, link))
}

func TestReschedule_FailsCleanlyWhenNoUnitFits(t *testing.T) {
	inv := newInventory(t, overnight, 2, "101", "102")
	resID, link := inv.book(paid, overnight, "2026-03-01", "2026-03-03", "101")
	inv.book(paid, overnight, "2026-03-10", "2026-03-12", "101")
	inv.book(paid, overnight, "2026-03-11", "2026-03-13", "102")
	svc, cache := newReschedule(inv)
	ctx := context.Background()

	_, err := svc.Reschedule(ctx, RescheduleRequest{
		ReservationID: resID,
		CheckIn:       day("2026-03-10"),
		CheckOut:      day("2026-03-12"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNoUnitsAvailable))

	res, err := inv.repo.GetReservation(ctx, resID)
	require.NoError(t, err)
	assert.True(t, res.CheckIn.Equal(day("2026-03-01")), "dates unchanged")
	assert.True(t, res.CheckOut.Equal(day("2026-03-03")))
	assert.Equal(t, "101", inv.unitOf(t, link), "link unchanged")
	assert.Equal(t, 0, cache.rangeCalls())
}

func TestReschedule_MultipleLinksAreAllOrNothing(t *testing.T) {
	inv := newInventory(t, overnight, 4, "101", "102", "103")
	id101, id102 := inv.units["101"], inv.units["102"]
	resID, links := inv.repo.SeedReservation(
		domain.Reservation{Status: paid, Kind: overnight, CheckIn: day("2026-03-01"), CheckOut: day("2026-03-03")},
		domain.ReservationUnitLink{RoomTypeID: inv.typeID, RoomUnitID: &id101},
		domain.ReservationUnitLink{RoomTypeID: inv.typeID, RoomUnitID: &id102},
	)
	// 101 在新日期被占，102 仍空闲：101 的关联移到 103
	inv.book(paid, overnight, "2026-03-20", "2026-03-21", "101")
	svc, _ := newReschedule(inv)
	ctx := context.Background()

	resp, err := svc.Reschedule(ctx, RescheduleRequest{
		ReservationID: resID,
		CheckIn:       day("2026-03-20"),
		CheckOut:      day("2026-03-22"),
	})
	require.NoError(t, err)
	require.Len(t, resp.Links, 2)

	got := map[string]string{}
	for _, l := range links {
		got[l] = inv.unitOf(t, l)
	}
	assert.ElementsMatch(t, []string{"102", "103"}, []string{got[links[0]], got[links[1]]})
	assert.Equal(t, "103", got[links[0]])

	// 再改到 103 也被占的日期：只剩 102 一个空闲单元，两个关联无法同时安置
	inv.book(paid, overnight, "2026-04-01", "2026-04-03", "101")
	inv.book(paid, overnight, "2026-04-01", "2026-04-03", "103")
	_, err = svc.Reschedule(ctx, RescheduleRequest{
		ReservationID: resID,
		CheckIn:       day("2026-04-01"),
		CheckOut:      day("2026-04-02"),
	})
	require.ErrorIs(t, err, domain.ErrNoUnitsAvailable)
	assert.Equal(t, "103", inv.unitOf(t, links[0]))
	assert.Equal(t, "102", inv.unitOf(t, links[1]))
}

func TestReschedule_DayTourDefaultsCheckOut(t *testing.T) {
	inv := newInventory(t, dayTour, 2, "T1", "T2")
	resID, link := inv.book(paid, dayTour, "2026-05-01", "", "T1")
	inv.book(paid, dayTour, "2026-05-02", "", "T1")
	svc, _ := newReschedule(inv)

	resp, err := svc.Reschedule(context.Background(), RescheduleRequest{
		ReservationID: resID,
		CheckIn:       day("2026-05-02"),
	})
	require.NoError(t, err)
	assert.True(t, resp.Reservation.CheckOut.Equal(day("2026-05-02")))
	assert.Equal(t, "T2", inv.unitOf(t, link))
}

func TestReschedule_DayTourIgnoresEarlierCheckOut(t *testing.T) {
	inv := newInventory(t, dayTour, 1, "T1")
	resID, link := inv.book(paid, dayTour, "2026-05-01", "", "T1")
	svc, _ := newReschedule(inv)

	resp, err := svc.Reschedule(context.Background(), RescheduleRequest{
		ReservationID: resID,
		CheckIn:       day("2026-05-10"),
		CheckOut:      day("2026-05-03"),
	})
	require.NoError(t, err)
	assert.True(t, resp.Reservation.CheckIn.Equal(day("2026-05-10")))
	assert.True(t, resp.Reservation.CheckOut.Equal(day("2026-05-10")))
	assert.Equal(t, "T1", inv.unitOf(t, link))

	stored, err := inv.repo.GetReservation(context.Background(), resID)
	require.NoError(t, err)
	assert.False(t, stored.CheckOut.Before(stored.CheckIn))
}

func TestReschedule_Validation(t *testing.T) {
	inv := newInventory(t, overnight, 1, "101")
	resID, _ := inv.book(paid, overnight, "2026-03-01", "2026-03-03", "101")
	svc, _ := newReschedule(inv)
	ctx := context.Background()

	_, err := svc.Reschedule(ctx, RescheduleRequest{ReservationID: resID, CheckIn: day("2026-03-05"), CheckOut: day("2026-03-05")})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "check_out", verr.Field)

	_, err = svc.Reschedule(ctx, RescheduleRequest{ReservationID: "missing", CheckIn: day("2026-03-05"), CheckOut: day("2026-03-06")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
