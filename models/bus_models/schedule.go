package bus_models

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ScheduleEntry is the seat-occupancy ledger for one trip (one date/time
// instance of a route). Available seats are always derived from capacity and
// bookedSeats; the value is never stored on its own.
type ScheduleEntry struct {
	ID          uuid.UUID `json:"id"`
	BusID       uuid.UUID `json:"bus_id"`
	Date        time.Time `json:"date"`
	Time        string    `json:"time"`
	Capacity    int       `json:"capacity"`
	BookedSeats []int     `json:"booked_seats"`
	LockedSeats []int     `json:"locked_seats"`
	Version     int64     `json:"-"`
}

// NewScheduleEntry builds a trip ledger from operator input. Locked seats are
// folded into bookedSeats immediately: they are administrative occupancy with
// no booking record and no public release path.
func NewScheduleEntry(busID uuid.UUID, date time.Time, tm string, capacity int, lockedSeats []int) (*ScheduleEntry, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive", ErrInvalidSchedule)
	}
	if tm == "" {
		return nil, fmt.Errorf("%w: missing departure time", ErrInvalidSchedule)
	}

	locked := NormalizeSeats(lockedSeats)
	for _, seat := range locked {
		if seat < 1 || seat > capacity {
			return nil, fmt.Errorf("%w: locked seat %d on a %d-seat trip", ErrInvalidSeat, seat, capacity)
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate trip ID: %w", err)
	}

	return &ScheduleEntry{
		ID:          id,
		BusID:       busID,
		Date:        date.Truncate(24 * time.Hour),
		Time:        tm,
		Capacity:    capacity,
		BookedSeats: append([]int(nil), locked...),
		LockedSeats: locked,
	}, nil
}

// AvailableSeats is derived, never an independently mutable counter.
func (s *ScheduleEntry) AvailableSeats() int {
	return s.Capacity - len(s.BookedSeats)
}

// IsAvailable reports whether none of the requested seats are booked.
func (s *ScheduleEntry) IsAvailable(seats []int) bool {
	return len(SeatOverlap(s.BookedSeats, seats)) == 0
}

// Reserve adds seats to the ledger. The caller is responsible for committing
// the mutation atomically against the backing store; this method only checks
// the in-memory view it was given.
func (s *ScheduleEntry) Reserve(seats []int) error {
	seats = NormalizeSeats(seats)
	for _, seat := range seats {
		if seat < 1 || seat > s.Capacity {
			return fmt.Errorf("%w: seat %d on a %d-seat trip", ErrInvalidSeat, seat, s.Capacity)
		}
	}
	if conflict := SeatOverlap(s.BookedSeats, seats); len(conflict) > 0 {
		return fmt.Errorf("%w: seats %v", ErrSeatConflict, conflict)
	}
	s.BookedSeats = SeatUnion(s.BookedSeats, seats)
	return nil
}

// Release removes seats from the ledger. Releasing a seat that is not booked
// is a no-op.
func (s *ScheduleEntry) Release(seats []int) {
	s.BookedSeats = SeatDifference(s.BookedSeats, seats)
}

// SameTrip reports whether the entry describes the same (date, time) trip as
// the other entry.
func (s *ScheduleEntry) SameTrip(other *ScheduleEntry) bool {
	return s.Time == other.Time && s.Date.Equal(other.Date)
}

// MergeSchedules applies an operator's bulk schedule replacement against the
// trips currently on record. Any incoming entry that matches an existing trip
// by (date, time) carries the existing occupancy forward, so sold seats are
// never silently re-opened. Entries with no match start empty apart from
// their own locked seats.
//
// A replacement whose capacity cannot hold a matched trip's carried-forward
// seats is rejected: bookedSeats must stay within 1..capacity on every trip.
func MergeSchedules(existing, incoming []*ScheduleEntry) ([]*ScheduleEntry, error) {
	merged := make([]*ScheduleEntry, 0, len(incoming))
	for _, entry := range incoming {
		next := *entry
		for _, prev := range existing {
			if prev.SameTrip(entry) {
				next.ID = prev.ID
				next.BookedSeats = SeatUnion(prev.BookedSeats, entry.BookedSeats)
				next.LockedSeats = SeatUnion(prev.LockedSeats, entry.LockedSeats)
				next.Version = prev.Version + 1
				break
			}
		}
		if len(next.BookedSeats) > next.Capacity {
			return nil, fmt.Errorf("%w: trip %s %s has %d booked seats but capacity %d",
				ErrInvalidSchedule, next.Date.Format("2006-01-02"), next.Time, len(next.BookedSeats), next.Capacity)
		}
		if n := len(next.BookedSeats); n > 0 && next.BookedSeats[n-1] > next.Capacity {
			return nil, fmt.Errorf("%w: trip %s %s has booked seat %d beyond capacity %d",
				ErrInvalidSchedule, next.Date.Format("2006-01-02"), next.Time, next.BookedSeats[n-1], next.Capacity)
		}
		merged = append(merged, &next)
	}
	return merged, nil
}

// NormalizeSeats sorts a seat list and drops duplicates.
func NormalizeSeats(seats []int) []int {
	if len(seats) == 0 {
		return nil
	}
	out := append([]int(nil), seats...)
	sort.Ints(out)
	dedup := out[:1]
	for _, seat := range out[1:] {
		if seat != dedup[len(dedup)-1] {
			dedup = append(dedup, seat)
		}
	}
	return dedup
}

// SeatUnion merges two seat lists into a sorted, duplicate-free list.
func SeatUnion(a, b []int) []int {
	return NormalizeSeats(append(append([]int(nil), a...), b...))
}

// SeatDifference returns the seats in a that are not in b, sorted.
func SeatDifference(a, b []int) []int {
	exclude := make(map[int]bool, len(b))
	for _, seat := range b {
		exclude[seat] = true
	}
	var out []int
	for _, seat := range NormalizeSeats(a) {
		if !exclude[seat] {
			out = append(out, seat)
		}
	}
	return out
}

// SeatOverlap returns the seats present in both lists, sorted.
func SeatOverlap(a, b []int) []int {
	in := make(map[int]bool, len(a))
	for _, seat := range a {
		in[seat] = true
	}
	var out []int
	for _, seat := range NormalizeSeats(b) {
		if in[seat] {
			out = append(out, seat)
		}
	}
	return out
}
