package booking_controller

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joy095/busline/logger"
	"github.com/joy095/busline/models/booking_models"
	"github.com/joy095/busline/models/bus_models"
	"github.com/joy095/busline/reservation"
	"github.com/joy095/busline/utils"
)

// BookingController exposes the booking transaction manager over HTTP.
type BookingController struct {
	DB      *pgxpool.Pool
	Service *BookingService
	Holds   *HoldService
}

func NewBookingController(db *pgxpool.Pool, service *BookingService, holds *HoldService) *BookingController {
	return &BookingController{DB: db, Service: service, Holds: holds}
}

type createBookingRequest struct {
	BusNumber string `json:"bus_number" binding:"required"`
	StopPair  string `json:"stop_pair" binding:"required"`
	BusType   string `json:"bus_type" binding:"required"`
	Date      string `json:"date" binding:"required"` // 2006-01-02
	Time      string `json:"time" binding:"required"`
	Seats     []int  `json:"seats" binding:"required,min=1"`
}

// CreateBooking handles POST /bookings.
func (bc *BookingController) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}

	booking, err := bc.Service.Create(c.Request.Context(), CreateBookingRequest{
		UserID:    userID,
		UserEmail: utils.GetEmailFromContext(c),
		BusNumber: req.BusNumber,
		StopPair:  req.StopPair,
		BusType:   req.BusType,
		Date:      date,
		Time:      req.Time,
		Seats:     req.Seats,
	})
	if err != nil {
		bc.writeBookingError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Booking successful", "booking": booking})
}

type modifyBookingRequest struct {
	Seats    []int   `json:"seats"`
	StopPair *string `json:"stop_pair"`
	BusType  *string `json:"bus_type"`
}

// ModifyBooking handles PATCH /bookings/:booking_id.
func (bc *BookingController) ModifyBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("booking_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	var req modifyBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	booking, err := bc.Service.Modify(c.Request.Context(), bookingID, userID, utils.GetRoleFromContext(c), ModifyBookingRequest{
		Seats:    req.Seats,
		StopPair: req.StopPair,
		BusType:  req.BusType,
	})
	if err != nil {
		bc.writeBookingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Booking updated successfully", "booking": booking})
}

// CancelBooking handles PATCH /bookings/:booking_id/cancel.
func (bc *BookingController) CancelBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("booking_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	booking, err := bc.Service.Cancel(c.Request.Context(), bookingID, userID, utils.GetRoleFromContext(c))
	if err != nil {
		bc.writeBookingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Booking cancelled successfully", "booking": booking})
}

// GetBooking handles GET /bookings/:booking_id.
func (bc *BookingController) GetBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("booking_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	booking, err := bc.Service.Bookings.GetByID(c.Request.Context(), bookingID)
	if err != nil {
		bc.writeBookingError(c, err)
		return
	}
	if err := bc.Service.checkOwnership(booking, userID, utils.GetRoleFromContext(c)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, booking)
}

// GetMyBookings handles GET /bookings with pagination and an optional status
// filter.
func (bc *BookingController) GetMyBookings(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	bookings, total, err := booking_models.GetBookingsByUser(c.Request.Context(), bc.DB, userID, c.Query("status"), page, limit)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to fetch bookings for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve bookings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "total": total, "page": page, "limit": limit})
}

type holdSeatsRequest struct {
	TripID string `json:"trip_id" binding:"required"`
	Seats  []int  `json:"seats" binding:"required,min=1"`
}

// HoldSeats handles POST /bookings/hold: a short-lived Redis hold taken while
// the commuter completes checkout.
func (bc *BookingController) HoldSeats(c *gin.Context) {
	var req holdSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	tripID, err := uuid.Parse(req.TripID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	if err := bc.Holds.HoldSeats(c.Request.Context(), tripID, userID, req.Seats); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Seats held", "expires_in_minutes": int(seatHoldExpiry.Minutes())})
}

// writeBookingError maps domain errors onto HTTP responses with enough
// detail for the caller to pick different seats.
func (bc *BookingController) writeBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, reservation.ErrSeatConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, reservation.ErrTripNotFound), errors.Is(err, bus_models.ErrTripNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, bus_models.ErrBusNotFound), errors.Is(err, booking_models.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, bus_models.ErrUnknownStopPair), errors.Is(err, reservation.ErrInvalidSeats), errors.Is(err, bus_models.ErrInvalidRoute):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, booking_models.ErrBookingAlreadyCancelled):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, booking_models.ErrBookingNotOwnedByUser):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		logger.ErrorLogger.Errorf("Booking operation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Booking operation failed"})
	}
}
