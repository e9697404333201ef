package booking_models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joy095/busline/logger"
	"github.com/joy095/busline/models/shared_models"
)

// Booking is a commuter's reservation against one trip. SeatNumbers must
// always equal the seats the trip's ledger holds for this booking; the
// reservation coordinator enforces that cross-entity invariant.
type Booking struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	UserEmail     string    `json:"user_email"`
	BusID         uuid.UUID `json:"bus_id"`
	TripID        uuid.UUID `json:"trip_id"`
	SeatNumbers   []int     `json:"seat_numbers"`
	StopPair      string    `json:"stop_pair"`
	Fare          int       `json:"fare"`
	BusType       string    `json:"bus_type"`
	TripDate      time.Time `json:"trip_date"`
	TripTime      string    `json:"trip_time"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewBooking creates a confirmed, unpaid booking record.
func NewBooking(userID uuid.UUID, userEmail string, busID, tripID uuid.UUID, seats []int, stopPair string, fare int, busType string, tripDate time.Time, tripTime string) (*Booking, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate booking ID: %w", err)
	}
	now := time.Now()
	return &Booking{
		ID:            id,
		UserID:        userID,
		UserEmail:     userEmail,
		BusID:         busID,
		TripID:        tripID,
		SeatNumbers:   seats,
		StopPair:      stopPair,
		Fare:          fare,
		BusType:       busType,
		TripDate:      tripDate,
		TripTime:      tripTime,
		Status:        shared_models.BookingStatusConfirmed,
		PaymentStatus: shared_models.PaymentStatusUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

const bookingColumns = `id, user_id, user_email, bus_id, trip_id, seat_numbers, stop_pair, fare, bus_type, trip_date, trip_time, status, payment_status, created_at, updated_at`

func scanBooking(row pgx.Row) (*Booking, error) {
	b := &Booking{}
	var seats []int32
	err := row.Scan(
		&b.ID, &b.UserID, &b.UserEmail, &b.BusID, &b.TripID, &seats, &b.StopPair,
		&b.Fare, &b.BusType, &b.TripDate, &b.TripTime, &b.Status, &b.PaymentStatus,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.SeatNumbers = make([]int, len(seats))
	for i, s := range seats {
		b.SeatNumbers[i] = int(s)
	}
	return b, nil
}

func seatArg(seats []int) []int32 {
	out := make([]int32, len(seats))
	for i, s := range seats {
		out[i] = int32(s)
	}
	return out
}

// CreateBooking inserts a new booking record.
func CreateBooking(ctx context.Context, db *pgxpool.Pool, b *Booking) error {
	logger.InfoLogger.Infof("Creating booking %s for trip %s, seats %v", b.ID, b.TripID, b.SeatNumbers)

	_, err := db.Exec(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		b.ID, b.UserID, b.UserEmail, b.BusID, b.TripID, seatArg(b.SeatNumbers), b.StopPair,
		b.Fare, b.BusType, b.TripDate, b.TripTime, b.Status, b.PaymentStatus,
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to insert booking %s: %v", b.ID, err)
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// GetBookingByID fetches a booking record.
func GetBookingByID(ctx context.Context, db *pgxpool.Pool, bookingID uuid.UUID) (*Booking, error) {
	b, err := scanBooking(db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, bookingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("database error fetching booking: %w", err)
	}
	return b, nil
}

// UpdateBookingDetails persists the result of a modify operation: seats, stop
// pair, bus class and the recomputed fare.
func UpdateBookingDetails(ctx context.Context, db *pgxpool.Pool, bookingID uuid.UUID, seats []int, stopPair, busType string, fare int) error {
	cmdTag, err := db.Exec(ctx, `
		UPDATE bookings
		SET seat_numbers = $2, stop_pair = $3, bus_type = $4, fare = $5, updated_at = now()
		WHERE id = $1`,
		bookingID, seatArg(seats), stopPair, busType, fare)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// MarkBookingCancelled flips a booking to cancelled. The record is kept for
// audit.
func MarkBookingCancelled(ctx context.Context, db *pgxpool.Pool, bookingID uuid.UUID) error {
	cmdTag, err := db.Exec(ctx, `
		UPDATE bookings SET status = $2, updated_at = now() WHERE id = $1`,
		bookingID, shared_models.BookingStatusCancelled)
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// GetBookingsByUser retrieves a user's bookings with pagination and an
// optional status filter.
func GetBookingsByUser(ctx context.Context, db *pgxpool.Pool, userID uuid.UUID, status string, page, limit int) ([]Booking, int, error) {
	offset := (page - 1) * limit

	countQuery := `SELECT COUNT(*) FROM bookings WHERE user_id = $1`
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1`
	args := []interface{}{userID}

	if status != "" {
		countQuery += ` AND status = $2`
		query += ` AND status = $2`
		args = append(args, status)
	}

	var totalCount int
	if err := db.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch bookings: %w", err)
	}
	defer rows.Close()

	var bookings []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, totalCount, nil
}

// GetUnpaidBookingsByUser lists a user's confirmed, unpaid bookings for a
// checkout session.
func GetUnpaidBookingsByUser(ctx context.Context, db *pgxpool.Pool, userID uuid.UUID) ([]Booking, error) {
	rows, err := db.Query(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE user_id = $1 AND payment_status = $2 AND status <> $3
		ORDER BY created_at`,
		userID, shared_models.PaymentStatusUnpaid, shared_models.BookingStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unpaid bookings: %w", err)
	}
	defer rows.Close()

	var bookings []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	if len(bookings) == 0 {
		return nil, ErrNoUnpaidBookings
	}
	return bookings, nil
}

// MarkUserBookingsPaid flips every unpaid booking of a user to paid after an
// authenticated payment success. Cancelled bookings are excluded: a cancelled
// booking never transitions to paid.
func MarkUserBookingsPaid(ctx context.Context, db *pgxpool.Pool, userID uuid.UUID) (int64, error) {
	cmdTag, err := db.Exec(ctx, `
		UPDATE bookings SET payment_status = $2, updated_at = now()
		WHERE user_id = $1 AND payment_status = $3 AND status <> $4`,
		userID, shared_models.PaymentStatusPaid, shared_models.PaymentStatusUnpaid, shared_models.BookingStatusCancelled)
	if err != nil {
		return 0, fmt.Errorf("failed to mark bookings paid: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return 0, ErrNoUnpaidBookings
	}
	logger.InfoLogger.Infof("Marked %d bookings paid for user %s", cmdTag.RowsAffected(), userID)
	return cmdTag.RowsAffected(), nil
}
