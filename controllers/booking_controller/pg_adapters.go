package booking_controller

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joy095/busline/models/booking_models"
	"github.com/joy095/busline/models/bus_models"
)

// pgBusDirectory adapts the bus model functions to the BusDirectory contract.
type pgBusDirectory struct {
	db *pgxpool.Pool
}

func NewPgBusDirectory(db *pgxpool.Pool) BusDirectory {
	return &pgBusDirectory{db: db}
}

func (d *pgBusDirectory) GetByNumber(ctx context.Context, busNumber string) (*bus_models.Bus, error) {
	return bus_models.GetBusByNumber(ctx, d.db, busNumber)
}

func (d *pgBusDirectory) GetByID(ctx context.Context, busID uuid.UUID) (*bus_models.Bus, error) {
	return bus_models.GetBusByID(ctx, d.db, busID)
}

func (d *pgBusDirectory) FindTrip(ctx context.Context, busID uuid.UUID, date time.Time, tm string) (*bus_models.ScheduleEntry, error) {
	return bus_models.FindTrip(ctx, d.db, busID, date, tm)
}

// pgBookingStore adapts the booking model functions to the BookingStore
// contract.
type pgBookingStore struct {
	db *pgxpool.Pool
}

func NewPgBookingStore(db *pgxpool.Pool) BookingStore {
	return &pgBookingStore{db: db}
}

func (s *pgBookingStore) Create(ctx context.Context, b *booking_models.Booking) error {
	return booking_models.CreateBooking(ctx, s.db, b)
}

func (s *pgBookingStore) GetByID(ctx context.Context, bookingID uuid.UUID) (*booking_models.Booking, error) {
	return booking_models.GetBookingByID(ctx, s.db, bookingID)
}

func (s *pgBookingStore) UpdateDetails(ctx context.Context, bookingID uuid.UUID, seats []int, stopPair, busType string, fare int) error {
	return booking_models.UpdateBookingDetails(ctx, s.db, bookingID, seats, stopPair, busType, fare)
}

func (s *pgBookingStore) MarkCancelled(ctx context.Context, bookingID uuid.UUID) error {
	return booking_models.MarkBookingCancelled(ctx, s.db, bookingID)
}
