package booking_controller

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joy095/busline/logger"
	"github.com/joy095/busline/models/booking_models"
	"github.com/joy095/busline/models/bus_models"
	"github.com/joy095/busline/models/shared_models"
	"github.com/joy095/busline/reservation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitLoggers()
	m.Run()
}

type fakeBusDirectory struct {
	bus  *bus_models.Bus
	trip *bus_models.ScheduleEntry
}

func (f *fakeBusDirectory) GetByNumber(_ context.Context, busNumber string) (*bus_models.Bus, error) {
	if f.bus == nil || f.bus.BusNumber != busNumber {
		return nil, bus_models.ErrBusNotFound
	}
	return f.bus, nil
}

func (f *fakeBusDirectory) GetByID(_ context.Context, busID uuid.UUID) (*bus_models.Bus, error) {
	if f.bus == nil || f.bus.ID != busID {
		return nil, bus_models.ErrBusNotFound
	}
	return f.bus, nil
}

func (f *fakeBusDirectory) FindTrip(_ context.Context, busID uuid.UUID, date time.Time, tm string) (*bus_models.ScheduleEntry, error) {
	if f.trip == nil || f.trip.BusID != busID || f.trip.Time != tm || !f.trip.Date.Equal(date.Truncate(24*time.Hour)) {
		return nil, bus_models.ErrTripNotFound
	}
	return f.trip, nil
}

// fakeSeatLedger implements SeatReserver over an in-memory ledger, with
// switches to force failures on specific seat sets.
type fakeSeatLedger struct {
	tripID      uuid.UUID
	capacity    int
	booked      []int
	failReserve map[int]bool // any requested seat in here fails the reserve
	reserves    [][]int
	releases    [][]int
}

func (f *fakeSeatLedger) ReserveSeats(_ context.Context, tripID uuid.UUID, seats []int) (*reservation.Token, error) {
	if tripID != f.tripID {
		return nil, reservation.ErrTripNotFound
	}
	seats = bus_models.NormalizeSeats(seats)
	for _, seat := range seats {
		if f.failReserve[seat] {
			return nil, fmt.Errorf("%w: seats %v", reservation.ErrSeatConflict, seats)
		}
	}
	if conflict := bus_models.SeatOverlap(f.booked, seats); len(conflict) > 0 {
		return nil, fmt.Errorf("%w: seats %v", reservation.ErrSeatConflict, conflict)
	}
	f.booked = bus_models.SeatUnion(f.booked, seats)
	f.reserves = append(f.reserves, seats)
	return &reservation.Token{TripID: tripID, Seats: seats}, nil
}

func (f *fakeSeatLedger) ReleaseSeats(_ context.Context, tripID uuid.UUID, seats []int) error {
	if tripID != f.tripID {
		return reservation.ErrTripNotFound
	}
	f.booked = bus_models.SeatDifference(f.booked, seats)
	f.releases = append(f.releases, bus_models.NormalizeSeats(seats))
	return nil
}

type fakeBookingStore struct {
	bookings   map[uuid.UUID]*booking_models.Booking
	failCreate bool
	failUpdate bool
	failCancel bool
}

func newFakeBookingStore() *fakeBookingStore {
	return &fakeBookingStore{bookings: make(map[uuid.UUID]*booking_models.Booking)}
}

func (f *fakeBookingStore) Create(_ context.Context, b *booking_models.Booking) error {
	if f.failCreate {
		return errors.New("insert failed")
	}
	copied := *b
	f.bookings[b.ID] = &copied
	return nil
}

func (f *fakeBookingStore) GetByID(_ context.Context, bookingID uuid.UUID) (*booking_models.Booking, error) {
	b, ok := f.bookings[bookingID]
	if !ok {
		return nil, booking_models.ErrBookingNotFound
	}
	copied := *b
	copied.SeatNumbers = append([]int(nil), b.SeatNumbers...)
	return &copied, nil
}

func (f *fakeBookingStore) UpdateDetails(_ context.Context, bookingID uuid.UUID, seats []int, stopPair, busType string, fare int) error {
	if f.failUpdate {
		return errors.New("update failed")
	}
	b, ok := f.bookings[bookingID]
	if !ok {
		return booking_models.ErrBookingNotFound
	}
	b.SeatNumbers = append([]int(nil), seats...)
	b.StopPair = stopPair
	b.BusType = busType
	b.Fare = fare
	return nil
}

func (f *fakeBookingStore) MarkCancelled(_ context.Context, bookingID uuid.UUID) error {
	if f.failCancel {
		return errors.New("status update failed")
	}
	b, ok := f.bookings[bookingID]
	if !ok {
		return booking_models.ErrBookingNotFound
	}
	b.Status = shared_models.BookingStatusCancelled
	return nil
}

type serviceFixture struct {
	service  *BookingService
	buses    *fakeBusDirectory
	seats    *fakeSeatLedger
	bookings *fakeBookingStore
	tripDate time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	stops := []bus_models.Stop{
		{Name: "Colombo", Distance: 0},
		{Name: "Kadawatha", Distance: 10},
		{Name: "Kandy", Distance: 30},
	}
	fares, err := bus_models.GenerateFareMatrix(stops, 100, 200)
	require.NoError(t, err)

	bus := &bus_models.Bus{
		ID:          uuid.New(),
		BusNumber:   "NA-1234",
		PriceNormal: 100,
		PriceLuxury: 200,
		Stops:       stops,
		Fares:       fares,
	}

	tripDate := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	trip, err := bus_models.NewScheduleEntry(bus.ID, tripDate, "08:30", 40, nil)
	require.NoError(t, err)

	seats := &fakeSeatLedger{tripID: trip.ID, capacity: trip.Capacity, failReserve: make(map[int]bool)}
	bookings := newFakeBookingStore()
	buses := &fakeBusDirectory{bus: bus, trip: trip}

	return &serviceFixture{
		service:  &BookingService{Buses: buses, Seats: seats, Bookings: bookings},
		buses:    buses,
		seats:    seats,
		bookings: bookings,
		tripDate: tripDate,
	}
}

func (fx *serviceFixture) createRequest(userID uuid.UUID, seats []int) CreateBookingRequest {
	return CreateBookingRequest{
		UserID:    userID,
		UserEmail: "commuter@example.com",
		BusNumber: "NA-1234",
		StopPair:  "Colombo to Kandy",
		BusType:   shared_models.BusTypeNormal,
		Date:      fx.tripDate,
		Time:      "08:30",
		Seats:     seats,
	}
}

func TestBookingServiceCreate(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		fx := newServiceFixture(t)

		booking, err := fx.service.Create(ctx, fx.createRequest(userID, []int{5, 3}))
		require.NoError(t, err)

		assert.Equal(t, []int{3, 5}, booking.SeatNumbers)
		assert.Equal(t, 200, booking.Fare) // full-route normal fare x 2 seats
		assert.Equal(t, shared_models.BookingStatusConfirmed, booking.Status)
		assert.Equal(t, shared_models.PaymentStatusUnpaid, booking.PaymentStatus)
		assert.Equal(t, []int{3, 5}, fx.seats.booked)

		stored, err := fx.bookings.GetByID(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, booking.Fare, stored.Fare)
	})

	t.Run("LuxuryFare", func(t *testing.T) {
		fx := newServiceFixture(t)
		req := fx.createRequest(userID, []int{1})
		req.BusType = shared_models.BusTypeLuxury
		req.StopPair = "Colombo to Kadawatha"

		booking, err := fx.service.Create(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, 67, booking.Fare) // ceil(200*10/30)
	})

	t.Run("SeatConflictPersistsNothing", func(t *testing.T) {
		fx := newServiceFixture(t)
		fx.seats.booked = []int{5}

		_, err := fx.service.Create(ctx, fx.createRequest(userID, []int{5, 6}))
		require.Error(t, err)
		assert.True(t, errors.Is(err, reservation.ErrSeatConflict))
		assert.Empty(t, fx.bookings.bookings)
		assert.Equal(t, []int{5}, fx.seats.booked)
	})

	t.Run("PersistFailureReleasesSeats", func(t *testing.T) {
		fx := newServiceFixture(t)
		fx.bookings.failCreate = true

		_, err := fx.service.Create(ctx, fx.createRequest(userID, []int{7, 8}))
		require.Error(t, err)
		assert.Empty(t, fx.seats.booked, "reserved seats must be released when the record cannot be stored")
		assert.Empty(t, fx.bookings.bookings)
	})

	t.Run("UnknownStopPairTouchesNoSeats", func(t *testing.T) {
		fx := newServiceFixture(t)
		req := fx.createRequest(userID, []int{1})
		req.StopPair = "Kandy to Colombo"

		_, err := fx.service.Create(ctx, req)
		require.Error(t, err)
		assert.True(t, errors.Is(err, bus_models.ErrUnknownStopPair))
		assert.Empty(t, fx.seats.reserves)
	})

	t.Run("InvalidBusType", func(t *testing.T) {
		fx := newServiceFixture(t)
		req := fx.createRequest(userID, []int{1})
		req.BusType = "sleeper"

		_, err := fx.service.Create(ctx, req)
		require.Error(t, err)
		assert.Empty(t, fx.seats.reserves)
	})

	t.Run("UnknownTrip", func(t *testing.T) {
		fx := newServiceFixture(t)
		req := fx.createRequest(userID, []int{1})
		req.Time = "23:59"

		_, err := fx.service.Create(ctx, req)
		require.Error(t, err)
		assert.True(t, errors.Is(err, bus_models.ErrTripNotFound))
	})
}

func TestBookingServiceModify(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	create := func(t *testing.T, fx *serviceFixture, seats []int) *booking_models.Booking {
		t.Helper()
		booking, err := fx.service.Create(ctx, fx.createRequest(userID, seats))
		require.NoError(t, err)
		return booking
	}

	t.Run("SeatSwap", func(t *testing.T) {
		fx := newServiceFixture(t)
		booking := create(t, fx, []int{1, 2})

		updated, err := fx.service.Modify(ctx, booking.ID, userID, shared_models.RoleCommuter, ModifyBookingRequest{Seats: []int{2, 9}})
		require.NoError(t, err)
		assert.Equal(t, []int{2, 9}, updated.SeatNumbers)
		assert.Equal(t, []int{2, 9}, fx.seats.booked)
		assert.Equal(t, 200, updated.Fare)
	})

	t.Run("StopPairChangeRecomputesFare", func(t *testing.T) {
		fx := newServiceFixture(t)
		booking := create(t, fx, []int{1, 2})

		shorter := "Colombo to Kadawatha"
		updated, err := fx.service.Modify(ctx, booking.ID, userID, shared_models.RoleCommuter, ModifyBookingRequest{StopPair: &shorter})
		require.NoError(t, err)
		assert.Equal(t, 68, updated.Fare) // ceil(100*10/30) x 2 seats
		assert.Equal(t, []int{1, 2}, updated.SeatNumbers)
	})

	t.Run("FailedReserveRestoresReleasedSeats", func(t *testing.T) {
		fx := newServiceFixture(t)
		booking := create(t, fx, []int{1, 2})

		fx.seats.failReserve[9] = true
		_, err := fx.service.Modify(ctx, booking.ID, userID, shared_models.RoleCommuter, ModifyBookingRequest{Seats: []int{2, 9}})
		require.Error(t, err)
		assert.True(t, errors.Is(err, reservation.ErrSeatConflict))

		// Seat 1 was released for the swap and must be re-reserved.
		assert.Equal(t, []int{1, 2}, fx.seats.booked)

		stored, err := fx.bookings.GetByID(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, stored.SeatNumbers)
	})

	t.Run("PersistFailureUndoesSeatDelta", func(t *testing.T) {
		fx := newServiceFixture(t)
		booking := create(t, fx, []int{1, 2})

		fx.bookings.failUpdate = true
		_, err := fx.service.Modify(ctx, booking.ID, userID, shared_models.RoleCommuter, ModifyBookingRequest{Seats: []int{2, 9}})
		require.Error(t, err)
		assert.Equal(t, []int{1, 2}, fx.seats.booked)
	})

	t.Run("BadStopPairLeavesLedgerUntouched", func(t *testing.T) {
		fx := newServiceFixture(t)
		booking := create(t, fx, []int{1, 2})
		reservesBefore := len(fx.seats.reserves)
		releasesBefore := len(fx.seats.releases)

		bogus := "Kandy to Colombo"
		_, err := fx.service.Modify(ctx, booking.ID, userID, shared_models.RoleCommuter, ModifyBookingRequest{Seats: []int{3, 4}, StopPair: &bogus})
		require.Error(t, err)
		assert.True(t, errors.Is(err, bus_models.ErrUnknownStopPair))
		assert.Len(t, fx.seats.reserves, reservesBefore)
		assert.Len(t, fx.seats.releases, releasesBefore)
	})

	t.Run("NotOwner", func(t *testing.T) {
		fx := newServiceFixture(t)
		booking := create(t, fx, []int{1})

		_, err := fx.service.Modify(ctx, booking.ID, uuid.New(), shared_models.RoleCommuter, ModifyBookingRequest{Seats: []int{2}})
		require.Error(t, err)
		assert.True(t, errors.Is(err, booking_models.ErrBookingNotOwnedByUser))
	})

	t.Run("AdminMayModifyAnyBooking", func(t *testing.T) {
		fx := newServiceFixture(t)
		booking := create(t, fx, []int{1})

		updated, err := fx.service.Modify(ctx, booking.ID, uuid.New(), shared_models.RoleAdmin, ModifyBookingRequest{Seats: []int{2}})
		require.NoError(t, err)
		assert.Equal(t, []int{2}, updated.SeatNumbers)
	})

	t.Run("CancelledBookingRejected", func(t *testing.T) {
		fx := newServiceFixture(t)
		booking := create(t, fx, []int{1})

		_, err := fx.service.Cancel(ctx, booking.ID, userID, shared_models.RoleCommuter)
		require.NoError(t, err)

		_, err = fx.service.Modify(ctx, booking.ID, userID, shared_models.RoleCommuter, ModifyBookingRequest{Seats: []int{2}})
		require.Error(t, err)
		assert.True(t, errors.Is(err, booking_models.ErrBookingAlreadyCancelled))
	})
}

func TestBookingServiceCancel(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("ReleasesSeatsAndMarksCancelled", func(t *testing.T) {
		fx := newServiceFixture(t)
		booking, err := fx.service.Create(ctx, fx.createRequest(userID, []int{4, 5}))
		require.NoError(t, err)

		cancelled, err := fx.service.Cancel(ctx, booking.ID, userID, shared_models.RoleCommuter)
		require.NoError(t, err)
		assert.Equal(t, shared_models.BookingStatusCancelled, cancelled.Status)
		assert.Empty(t, fx.seats.booked)
	})

	t.Run("Idempotent", func(t *testing.T) {
		fx := newServiceFixture(t)
		booking, err := fx.service.Create(ctx, fx.createRequest(userID, []int{4}))
		require.NoError(t, err)

		_, err = fx.service.Cancel(ctx, booking.ID, userID, shared_models.RoleCommuter)
		require.NoError(t, err)
		releasesAfterFirst := len(fx.seats.releases)

		again, err := fx.service.Cancel(ctx, booking.ID, userID, shared_models.RoleCommuter)
		require.NoError(t, err)
		assert.Equal(t, shared_models.BookingStatusCancelled, again.Status)
		assert.Len(t, fx.seats.releases, releasesAfterFirst, "second cancel must not touch the ledger")
	})

	t.Run("StatusUpdateFailureKeepsSeats", func(t *testing.T) {
		fx := newServiceFixture(t)
		booking, err := fx.service.Create(ctx, fx.createRequest(userID, []int{4, 5}))
		require.NoError(t, err)

		fx.bookings.failCancel = true
		_, err = fx.service.Cancel(ctx, booking.ID, userID, shared_models.RoleCommuter)
		require.Error(t, err)

		// The booking is still confirmed, so its seats must stay in the
		// ledger and nobody else may take them.
		assert.Equal(t, []int{4, 5}, fx.seats.booked)
		stored, err := fx.bookings.GetByID(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, shared_models.BookingStatusConfirmed, stored.Status)

		_, err = fx.service.Create(ctx, fx.createRequest(uuid.New(), []int{4, 5}))
		require.Error(t, err)
		assert.True(t, errors.Is(err, reservation.ErrSeatConflict))
	})

	t.Run("CancelThenRebookSameSeats", func(t *testing.T) {
		fx := newServiceFixture(t)
		booking, err := fx.service.Create(ctx, fx.createRequest(userID, []int{4, 5}))
		require.NoError(t, err)

		_, err = fx.service.Cancel(ctx, booking.ID, userID, shared_models.RoleCommuter)
		require.NoError(t, err)

		rebooked, err := fx.service.Create(ctx, fx.createRequest(uuid.New(), []int{4, 5}))
		require.NoError(t, err)
		assert.Equal(t, []int{4, 5}, rebooked.SeatNumbers)
	})

	t.Run("NotOwner", func(t *testing.T) {
		fx := newServiceFixture(t)
		booking, err := fx.service.Create(ctx, fx.createRequest(userID, []int{4}))
		require.NoError(t, err)

		_, err = fx.service.Cancel(ctx, booking.ID, uuid.New(), shared_models.RoleCommuter)
		require.Error(t, err)
		assert.True(t, errors.Is(err, booking_models.ErrBookingNotOwnedByUser))
		assert.Equal(t, []int{4}, fx.seats.booked)
	})

	t.Run("UnknownBooking", func(t *testing.T) {
		fx := newServiceFixture(t)
		_, err := fx.service.Cancel(ctx, uuid.New(), userID, shared_models.RoleCommuter)
		require.Error(t, err)
		assert.True(t, errors.Is(err, booking_models.ErrBookingNotFound))
	})
}
