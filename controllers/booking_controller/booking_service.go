package booking_controller

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joy095/busline/logger"
	"github.com/joy095/busline/models/booking_models"
	"github.com/joy095/busline/models/bus_models"
	"github.com/joy095/busline/models/shared_models"
	"github.com/joy095/busline/reservation"
)

// BusDirectory resolves buses and their scheduled trips.
type BusDirectory interface {
	GetByNumber(ctx context.Context, busNumber string) (*bus_models.Bus, error)
	GetByID(ctx context.Context, busID uuid.UUID) (*bus_models.Bus, error)
	FindTrip(ctx context.Context, busID uuid.UUID, date time.Time, tm string) (*bus_models.ScheduleEntry, error)
}

// SeatReserver is the coordinator's contract: the only path that may mutate
// trip occupancy.
type SeatReserver interface {
	ReserveSeats(ctx context.Context, tripID uuid.UUID, seats []int) (*reservation.Token, error)
	ReleaseSeats(ctx context.Context, tripID uuid.UUID, seats []int) error
}

// BookingStore persists booking records.
type BookingStore interface {
	Create(ctx context.Context, b *booking_models.Booking) error
	GetByID(ctx context.Context, bookingID uuid.UUID) (*booking_models.Booking, error)
	UpdateDetails(ctx context.Context, bookingID uuid.UUID, seats []int, stopPair, busType string, fare int) error
	MarkCancelled(ctx context.Context, bookingID uuid.UUID) error
}

// Notifier receives booking snapshots after successful operations. It is
// fire-and-forget: a notification failure never rolls back a booking.
type Notifier interface {
	BookingConfirmed(b *booking_models.Booking)
	BookingCancelled(b *booking_models.Booking)
}

// BookingService orchestrates fare lookup, schedule validation, seat
// reservation and booking persistence. It is the only component with
// multi-step, partially compensatable logic: every failure path below either
// commits both the ledger and the booking record, or neither.
type BookingService struct {
	Buses    BusDirectory
	Seats    SeatReserver
	Bookings BookingStore
	Notify   Notifier
}

// CreateBookingRequest carries a commuter's booking intent.
type CreateBookingRequest struct {
	UserID    uuid.UUID
	UserEmail string
	BusNumber string
	StopPair  string
	BusType   string
	Date      time.Time
	Time      string
	Seats     []int
}

// Create books seats on a trip. No booking record is persisted unless the
// seat reservation landed; if persisting the record fails afterwards, the
// reserved seats are released again.
func (s *BookingService) Create(ctx context.Context, req CreateBookingRequest) (*booking_models.Booking, error) {
	if !shared_models.IsValidBusType(req.BusType) {
		return nil, fmt.Errorf("invalid bus type %q", req.BusType)
	}
	seats := bus_models.NormalizeSeats(req.Seats)
	if len(seats) == 0 {
		return nil, fmt.Errorf("%w: no seats requested", reservation.ErrInvalidSeats)
	}

	bus, err := s.Buses.GetByNumber(ctx, req.BusNumber)
	if err != nil {
		return nil, err
	}

	fareEntry, err := bus_models.FindFareEntry(bus.Fares, req.StopPair)
	if err != nil {
		return nil, err
	}

	trip, err := s.Buses.FindTrip(ctx, bus.ID, req.Date, req.Time)
	if err != nil {
		return nil, err
	}

	token, err := s.Seats.ReserveSeats(ctx, trip.ID, seats)
	if err != nil {
		return nil, err
	}

	fare := fareEntry.Fare(req.BusType) * len(seats)
	booking, err := booking_models.NewBooking(req.UserID, req.UserEmail, bus.ID, trip.ID, token.Seats, req.StopPair, fare, req.BusType, trip.Date, trip.Time)
	if err != nil {
		s.compensateRelease(ctx, trip.ID, token.Seats)
		return nil, err
	}

	if err := s.Bookings.Create(ctx, booking); err != nil {
		s.compensateRelease(ctx, trip.ID, token.Seats)
		return nil, err
	}

	s.notifyConfirmed(booking)
	return booking, nil
}

// ModifyBookingRequest carries the fields a commuter may change. Nil fields
// keep the booking's current value.
type ModifyBookingRequest struct {
	Seats    []int
	StopPair *string
	BusType  *string
}

// Modify changes a booking's seats, stop pair or bus class. The seat delta is
// applied as one logical step: seats leaving the booking are released first,
// then the additions are reserved; if the additions fail, the released seats
// are re-reserved before the error is surfaced, so the booking never ends up
// holding fewer seats than its record claims.
func (s *BookingService) Modify(ctx context.Context, bookingID, callerID uuid.UUID, role string, req ModifyBookingRequest) (*booking_models.Booking, error) {
	booking, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwnership(booking, callerID, role); err != nil {
		return nil, err
	}
	if booking.Status == shared_models.BookingStatusCancelled {
		return nil, booking_models.ErrBookingAlreadyCancelled
	}

	newSeats := bus_models.NormalizeSeats(booking.SeatNumbers)
	if req.Seats != nil {
		newSeats = bus_models.NormalizeSeats(req.Seats)
		if len(newSeats) == 0 {
			return nil, fmt.Errorf("%w: a booking must keep at least one seat", reservation.ErrInvalidSeats)
		}
	}
	newStopPair := booking.StopPair
	if req.StopPair != nil {
		newStopPair = *req.StopPair
	}
	newBusType := booking.BusType
	if req.BusType != nil {
		newBusType = *req.BusType
	}
	if !shared_models.IsValidBusType(newBusType) {
		return nil, fmt.Errorf("invalid bus type %q", newBusType)
	}

	// Fare resolution is read-only; do it before touching the ledger so a bad
	// stop pair cannot leave a half-applied seat delta behind.
	bus, err := s.Buses.GetByID(ctx, booking.BusID)
	if err != nil {
		return nil, err
	}
	fareEntry, err := bus_models.FindFareEntry(bus.Fares, newStopPair)
	if err != nil {
		return nil, err
	}

	oldSeats := bus_models.NormalizeSeats(booking.SeatNumbers)
	toRelease := bus_models.SeatDifference(oldSeats, newSeats)
	toReserve := bus_models.SeatDifference(newSeats, oldSeats)

	if len(toRelease) > 0 {
		if err := s.Seats.ReleaseSeats(ctx, booking.TripID, toRelease); err != nil {
			return nil, err
		}
	}
	if len(toReserve) > 0 {
		if _, err := s.Seats.ReserveSeats(ctx, booking.TripID, toReserve); err != nil {
			s.compensateReserve(ctx, booking.TripID, toRelease)
			return nil, err
		}
	}

	newFare := fareEntry.Fare(newBusType) * len(newSeats)
	if err := s.Bookings.UpdateDetails(ctx, booking.ID, newSeats, newStopPair, newBusType, newFare); err != nil {
		s.compensateRelease(ctx, booking.TripID, toReserve)
		s.compensateReserve(ctx, booking.TripID, toRelease)
		return nil, err
	}

	booking.SeatNumbers = newSeats
	booking.StopPair = newStopPair
	booking.BusType = newBusType
	booking.Fare = newFare

	s.notifyConfirmed(booking)
	return booking, nil
}

// Cancel releases all of a booking's seats and marks the record cancelled.
// Cancelling an already-cancelled booking is a no-op, not an error.
func (s *BookingService) Cancel(ctx context.Context, bookingID, callerID uuid.UUID, role string) (*booking_models.Booking, error) {
	booking, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwnership(booking, callerID, role); err != nil {
		return nil, err
	}
	if booking.Status == shared_models.BookingStatusCancelled {
		return booking, nil
	}

	if err := s.Seats.ReleaseSeats(ctx, booking.TripID, booking.SeatNumbers); err != nil {
		return nil, err
	}
	if err := s.Bookings.MarkCancelled(ctx, booking.ID); err != nil {
		// The booking is still confirmed, so it must keep its seats; take
		// them back before surfacing the error.
		s.compensateReserve(ctx, booking.TripID, booking.SeatNumbers)
		return nil, err
	}
	booking.Status = shared_models.BookingStatusCancelled

	if s.Notify != nil {
		go s.Notify.BookingCancelled(booking)
	}
	return booking, nil
}

func (s *BookingService) checkOwnership(b *booking_models.Booking, callerID uuid.UUID, role string) error {
	if role == shared_models.RoleCommuter && b.UserID != callerID {
		return booking_models.ErrBookingNotOwnedByUser
	}
	return nil
}

func (s *BookingService) notifyConfirmed(b *booking_models.Booking) {
	if s.Notify != nil {
		go s.Notify.BookingConfirmed(b)
	}
}

func (s *BookingService) compensateRelease(ctx context.Context, tripID uuid.UUID, seats []int) {
	if len(seats) == 0 {
		return
	}
	if err := s.Seats.ReleaseSeats(ctx, tripID, seats); err != nil {
		logger.ErrorLogger.Errorf("Compensating release of seats %v on trip %s failed: %v", seats, tripID, err)
	}
}

func (s *BookingService) compensateReserve(ctx context.Context, tripID uuid.UUID, seats []int) {
	if len(seats) == 0 {
		return
	}
	if _, err := s.Seats.ReserveSeats(ctx, tripID, seats); err != nil {
		logger.ErrorLogger.Errorf("Compensating re-reservation of seats %v on trip %s failed: %v", seats, tripID, err)
	}
}
