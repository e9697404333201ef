package bus_models

import "errors"

var (
	ErrInvalidRoute    = errors.New("invalid route: stops must be strictly increasing in distance with positive base prices")
	ErrUnknownStopPair = errors.New("stop pair not found in fare table")
	ErrTripNotFound    = errors.New("no trip scheduled for the selected date and time")
	ErrBusNotFound     = errors.New("bus not found")
	ErrBusNumberInUse  = errors.New("bus number is already in use")
	ErrInvalidSeat     = errors.New("seat number outside trip capacity")
	ErrSeatConflict    = errors.New("one or more seats are already booked")
	ErrNotBusOperator  = errors.New("caller does not operate this bus")
	ErrInvalidSchedule = errors.New("invalid schedule entry")
)
