// Package reservation is the sole writer path for trip seat occupancy. It
// guarantees at most one successful reservation per seat per trip, even under
// unbounded concurrent callers, by committing every occupancy change through
// a conditional write at the storage layer.
package reservation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/joy095/busline/logger"
	"github.com/joy095/busline/models/bus_models"
)

// Occupancy is the stored seat state of one trip, together with the version
// the conditional write is keyed on.
type Occupancy struct {
	TripID      uuid.UUID
	Capacity    int
	BookedSeats []int
	Version     int64
}

// Store is the persistence contract the coordinator drives. Implementations
// must make CompareAndSwapSeats atomic against the backing store: the write
// succeeds only if the stored version still equals expectedVersion, so a
// concurrent reservation that landed first forces a retry rather than a lost
// update. An in-process lock is not a substitute, since other processes may
// share the store.
type Store interface {
	GetOccupancy(ctx context.Context, tripID uuid.UUID) (*Occupancy, error)
	CompareAndSwapSeats(ctx context.Context, tripID uuid.UUID, expectedVersion int64, bookedSeats []int) (bool, error)
}

// Token records a reservation that landed, for callers that need to issue a
// compensating release later.
type Token struct {
	TripID  uuid.UUID
	Seats   []int
	Version int64
}

// Coordinator serialises seat mutations for all trips through optimistic
// concurrency. Operations on different trips never block each other.
type Coordinator struct {
	store       Store
	maxAttempts int
}

const defaultMaxAttempts = 3

// NewCoordinator wraps a Store. attempts bounds how many times a version race
// is retried before the request is surfaced as a seat conflict; zero or
// negative selects the default.
func NewCoordinator(store Store, attempts int) *Coordinator {
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	return &Coordinator{store: store, maxAttempts: attempts}
}

// ReserveSeats atomically adds seats to a trip's occupancy. The read-verify-
// write cycle retries on version races only; a genuine overlap with already
// booked seats fails immediately with ErrSeatConflict naming the seats, so
// the caller can pick others.
func (c *Coordinator) ReserveSeats(ctx context.Context, tripID uuid.UUID, seats []int) (*Token, error) {
	seats = bus_models.NormalizeSeats(seats)
	if len(seats) == 0 {
		return nil, fmt.Errorf("%w: no seats requested", ErrInvalidSeats)
	}

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		occ, err := c.store.GetOccupancy(ctx, tripID)
		if err != nil {
			return nil, err
		}

		for _, seat := range seats {
			if seat < 1 || seat > occ.Capacity {
				return nil, fmt.Errorf("%w: seat %d on a %d-seat trip", ErrInvalidSeats, seat, occ.Capacity)
			}
		}
		if conflict := bus_models.SeatOverlap(occ.BookedSeats, seats); len(conflict) > 0 {
			return nil, fmt.Errorf("%w: seats %v", ErrSeatConflict, conflict)
		}

		updated := bus_models.SeatUnion(occ.BookedSeats, seats)
		swapped, err := c.store.CompareAndSwapSeats(ctx, tripID, occ.Version, updated)
		if err != nil {
			return nil, err
		}
		if swapped {
			return &Token{TripID: tripID, Seats: seats, Version: occ.Version + 1}, nil
		}

		logger.WarnLogger.Warnf("Reservation for trip %s lost a version race (attempt %d/%d), retrying", tripID, attempt, c.maxAttempts)
	}

	return nil, fmt.Errorf("%w: trip %s is under heavy contention", ErrSeatConflict, tripID)
}

// ReleaseSeats atomically removes seats from a trip's occupancy. Releasing
// seats that are not booked is a no-op, not an error; release cannot race
// into an invalid state, so it retries version races more generously and is
// otherwise unconditional.
func (c *Coordinator) ReleaseSeats(ctx context.Context, tripID uuid.UUID, seats []int) error {
	seats = bus_models.NormalizeSeats(seats)
	if len(seats) == 0 {
		return nil
	}

	attempts := c.maxAttempts * 2
	for attempt := 1; attempt <= attempts; attempt++ {
		occ, err := c.store.GetOccupancy(ctx, tripID)
		if err != nil {
			return err
		}

		updated := bus_models.SeatDifference(occ.BookedSeats, seats)
		if len(updated) == len(occ.BookedSeats) {
			return nil
		}

		swapped, err := c.store.CompareAndSwapSeats(ctx, tripID, occ.Version, updated)
		if err != nil {
			return err
		}
		if swapped {
			return nil
		}

		logger.WarnLogger.Warnf("Release for trip %s lost a version race (attempt %d/%d), retrying", tripID, attempt, attempts)
	}

	return fmt.Errorf("failed to release seats %v on trip %s: storage contention", seats, tripID)
}
