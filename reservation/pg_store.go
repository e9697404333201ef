package reservation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore implements Store on the trips table. The version column makes the
// UPDATE a conditional write: it matches zero rows when another writer
// committed in between, which the coordinator observes as a lost race.
type PgStore struct {
	DB *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{DB: db}
}

func (s *PgStore) GetOccupancy(ctx context.Context, tripID uuid.UUID) (*Occupancy, error) {
	occ := &Occupancy{TripID: tripID}
	var booked []int32
	err := s.DB.QueryRow(ctx, `
		SELECT capacity, booked_seats, version FROM trips WHERE id = $1`, tripID).
		Scan(&occ.Capacity, &booked, &occ.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrTripNotFound, tripID)
		}
		return nil, fmt.Errorf("failed to read trip occupancy: %w", err)
	}
	occ.BookedSeats = make([]int, len(booked))
	for i, seat := range booked {
		occ.BookedSeats[i] = int(seat)
	}
	return occ, nil
}

func (s *PgStore) CompareAndSwapSeats(ctx context.Context, tripID uuid.UUID, expectedVersion int64, bookedSeats []int) (bool, error) {
	seats := make([]int32, len(bookedSeats))
	for i, seat := range bookedSeats {
		seats[i] = int32(seat)
	}

	cmdTag, err := s.DB.Exec(ctx, `
		UPDATE trips
		SET booked_seats = $3, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2`,
		tripID, expectedVersion, seats)
	if err != nil {
		return false, fmt.Errorf("failed to write trip occupancy: %w", err)
	}
	return cmdTag.RowsAffected() == 1, nil
}
