package bus_models

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEntry(t *testing.T, busID uuid.UUID, date time.Time, tm string, capacity int, locked []int) *ScheduleEntry {
	t.Helper()
	entry, err := NewScheduleEntry(busID, date, tm, capacity, locked)
	require.NoError(t, err)
	return entry
}

func TestNewScheduleEntry(t *testing.T) {
	busID := uuid.New()
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	t.Run("LockedSeatsCountAsBooked", func(t *testing.T) {
		entry := mustEntry(t, busID, date, "08:30", 40, []int{3, 1, 3})

		assert.Equal(t, []int{1, 3}, entry.LockedSeats)
		assert.Equal(t, []int{1, 3}, entry.BookedSeats)
		assert.Equal(t, 38, entry.AvailableSeats())
		assert.NotEqual(t, uuid.Nil, entry.ID)
	})

	t.Run("RejectsNonPositiveCapacity", func(t *testing.T) {
		_, err := NewScheduleEntry(busID, date, "08:30", 0, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidSchedule))
	})

	t.Run("RejectsMissingTime", func(t *testing.T) {
		_, err := NewScheduleEntry(busID, date, "", 40, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidSchedule))
	})

	t.Run("RejectsLockedSeatOutsideCapacity", func(t *testing.T) {
		_, err := NewScheduleEntry(busID, date, "08:30", 10, []int{11})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidSeat))

		_, err = NewScheduleEntry(busID, date, "08:30", 10, []int{0})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidSeat))
	})
}

func TestScheduleEntryReserveRelease(t *testing.T) {
	busID := uuid.New()
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	entry := mustEntry(t, busID, date, "10:00", 10, []int{10})

	require.NoError(t, entry.Reserve([]int{2, 4}))
	assert.Equal(t, []int{2, 4, 10}, entry.BookedSeats)
	assert.Equal(t, 7, entry.AvailableSeats())

	// Overlapping reservation is rejected and the ledger is untouched.
	err := entry.Reserve([]int{4, 5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSeatConflict))
	assert.Equal(t, []int{2, 4, 10}, entry.BookedSeats)

	err = entry.Reserve([]int{11})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSeat))

	assert.False(t, entry.IsAvailable([]int{4}))
	assert.True(t, entry.IsAvailable([]int{5, 6}))

	// Releasing an unbooked seat alongside booked ones is a no-op for it.
	entry.Release([]int{4, 7})
	assert.Equal(t, []int{2, 10}, entry.BookedSeats)
	assert.Equal(t, 8, entry.AvailableSeats())
}

func TestMergeSchedulesPreservesOccupancy(t *testing.T) {
	busID := uuid.New()
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	existing := mustEntry(t, busID, date, "08:30", 40, nil)
	require.NoError(t, existing.Reserve([]int{5, 6, 7}))
	existing.Version = 4

	dropped := mustEntry(t, busID, date, "14:00", 40, nil)
	require.NoError(t, dropped.Reserve([]int{1}))

	sameTrip := mustEntry(t, busID, date, "08:30", 40, []int{12})
	newTrip := mustEntry(t, busID, date, "18:00", 40, nil)

	merged, err := MergeSchedules([]*ScheduleEntry{existing, dropped}, []*ScheduleEntry{sameTrip, newTrip})
	require.NoError(t, err)
	require.Len(t, merged, 2)

	// The 08:30 trip keeps its identity and sold seats, plus the new lock.
	assert.Equal(t, existing.ID, merged[0].ID)
	assert.Equal(t, []int{5, 6, 7, 12}, merged[0].BookedSeats)
	assert.Equal(t, []int{12}, merged[0].LockedSeats)
	assert.Equal(t, int64(5), merged[0].Version)

	// The 18:00 trip is brand new and starts empty.
	assert.Equal(t, newTrip.ID, merged[1].ID)
	assert.Empty(t, merged[1].BookedSeats)

	// The 14:00 trip was not in the incoming schedule and is gone.
	for _, entry := range merged {
		assert.NotEqual(t, dropped.ID, entry.ID)
	}
}

func TestMergeSchedulesRejectsCapacityOverflow(t *testing.T) {
	busID := uuid.New()
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	existing := mustEntry(t, busID, date, "08:30", 40, nil)
	require.NoError(t, existing.Reserve([]int{1, 2, 3, 4, 5}))

	t.Run("TooManyCarriedSeats", func(t *testing.T) {
		replacement := mustEntry(t, busID, date, "08:30", 2, nil)

		_, err := MergeSchedules([]*ScheduleEntry{existing}, []*ScheduleEntry{replacement})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidSchedule))
	})

	t.Run("CarriedSeatNumberBeyondCapacity", func(t *testing.T) {
		high := mustEntry(t, busID, date, "14:00", 40, nil)
		require.NoError(t, high.Reserve([]int{38, 39}))

		// Room for the count, but seat 39 does not exist on a 10-seat trip.
		replacement := mustEntry(t, busID, date, "14:00", 10, nil)

		_, err := MergeSchedules([]*ScheduleEntry{high}, []*ScheduleEntry{replacement})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidSchedule))
	})

	t.Run("ShrinkWithinOccupancyAllowed", func(t *testing.T) {
		replacement := mustEntry(t, busID, date, "08:30", 5, nil)

		merged, err := MergeSchedules([]*ScheduleEntry{existing}, []*ScheduleEntry{replacement})
		require.NoError(t, err)
		require.Len(t, merged, 1)
		assert.Equal(t, []int{1, 2, 3, 4, 5}, merged[0].BookedSeats)
		assert.Equal(t, 0, merged[0].AvailableSeats())
	})
}

func TestSameTripMatchesOnDateAndTime(t *testing.T) {
	busID := uuid.New()
	day1 := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)

	a := mustEntry(t, busID, day1, "08:30", 40, nil)
	b := mustEntry(t, busID, day1, "08:30", 52, nil)
	c := mustEntry(t, busID, day2, "08:30", 40, nil)
	d := mustEntry(t, busID, day1, "09:00", 40, nil)

	assert.True(t, a.SameTrip(b))
	assert.False(t, a.SameTrip(c))
	assert.False(t, a.SameTrip(d))
}

func TestSeatHelpers(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3}, NormalizeSeats([]int{3, 1, 2, 1, 3}))
	assert.Nil(t, NormalizeSeats(nil))

	assert.Equal(t, []int{1, 2, 3, 4}, SeatUnion([]int{1, 3}, []int{4, 2, 3}))
	assert.Equal(t, []int{1, 3}, SeatDifference([]int{1, 2, 3}, []int{2, 9}))
	assert.Equal(t, []int{2, 3}, SeatOverlap([]int{1, 2, 3}, []int{3, 2, 8}))
	assert.Empty(t, SeatOverlap([]int{1, 2}, []int{3, 4}))
}
