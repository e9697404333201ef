package reservation

import "errors"

var (
	// ErrSeatConflict means one or more requested seats are already booked,
	// including requests that lost a race to a concurrent reservation. The
	// caller may retry with a different seat choice.
	ErrSeatConflict = errors.New("one or more requested seats are unavailable")

	// ErrTripNotFound means the trip reference does not resolve to a
	// scheduled trip.
	ErrTripNotFound = errors.New("trip not found")

	// ErrInvalidSeats means the request named no seats or a seat outside the
	// trip's capacity.
	ErrInvalidSeats = errors.New("invalid seat selection")
)
