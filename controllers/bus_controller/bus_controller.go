package bus_controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joy095/busline/logger"
	"github.com/joy095/busline/models/bus_models"
	"github.com/joy095/busline/models/shared_models"
	"github.com/joy095/busline/utils"
)

// BusController exposes route, fare-table and schedule administration for
// operators and admins, plus trip search for commuters.
type BusController struct {
	DB *pgxpool.Pool
}

func NewBusController(db *pgxpool.Pool) *BusController {
	return &BusController{DB: db}
}

type stopInput struct {
	Name     string `json:"name" binding:"required"`
	Distance int    `json:"distance"`
}

type scheduleInput struct {
	Date        string `json:"date" binding:"required"` // 2006-01-02
	Time        string `json:"time" binding:"required"`
	Capacity    int    `json:"capacity"`
	LockedSeats []int  `json:"locked_seats"`
}

const defaultCapacity = 40

func parseStops(inputs []stopInput) []bus_models.Stop {
	stops := make([]bus_models.Stop, 0, len(inputs))
	for _, s := range inputs {
		stops = append(stops, bus_models.Stop{Name: s.Name, Distance: s.Distance})
	}
	return stops
}

func parseSchedule(inputs []scheduleInput) ([]bus_models.ScheduleInput, error) {
	schedule := make([]bus_models.ScheduleInput, 0, len(inputs))
	for _, item := range inputs {
		date, err := time.Parse("2006-01-02", item.Date)
		if err != nil {
			return nil, err
		}
		capacity := item.Capacity
		if capacity == 0 {
			capacity = defaultCapacity
		}
		schedule = append(schedule, bus_models.ScheduleInput{
			Date:        date,
			Time:        item.Time,
			Capacity:    capacity,
			LockedSeats: item.LockedSeats,
		})
	}
	return schedule, nil
}

type addBusRequest struct {
	BusNumber   string          `json:"bus_number" binding:"required"`
	Route       string          `json:"route" binding:"required"`
	PriceNormal int             `json:"price_normal" binding:"required"`
	PriceLuxury int             `json:"price_luxury" binding:"required"`
	Stops       []stopInput     `json:"stops" binding:"required,min=2"`
	Schedule    []scheduleInput `json:"schedule" binding:"required"`
}

// AddBus handles POST /buses. The fare table is derived from the stop list
// and any locked seats are folded into each trip's occupancy at creation.
func (b *BusController) AddBus(c *gin.Context) {
	var req addBusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	operatorID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	schedule, err := parseSchedule(req.Schedule)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid schedule date, expected YYYY-MM-DD"})
		return
	}

	bus, err := bus_models.NewBus(req.BusNumber, req.Route, operatorID, req.PriceNormal, req.PriceLuxury, parseStops(req.Stops), schedule)
	if err != nil {
		b.writeBusError(c, err)
		return
	}

	if err := bus_models.CreateBus(c.Request.Context(), b.DB, bus); err != nil {
		b.writeBusError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "New bus added successfully", "bus": bus})
}

// GetBus handles GET /buses/:bus_number. Operators may only view their own
// buses; admins see everything.
func (b *BusController) GetBus(c *gin.Context) {
	bus, ok := b.loadOwnedBus(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, bus)
}

type updateStopsRequest struct {
	Stops []stopInput `json:"stops" binding:"required,min=2"`
}

// UpdateStops handles PUT /buses/:bus_number/stops. The whole fare table is
// regenerated; individual entries are never patched.
func (b *BusController) UpdateStops(c *gin.Context) {
	bus, ok := b.loadOwnedBus(c)
	if !ok {
		return
	}

	var req updateStopsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	if err := bus_models.UpdateStops(c.Request.Context(), b.DB, bus, parseStops(req.Stops)); err != nil {
		b.writeBusError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Stops updated successfully", "bus": bus})
}

type updateScheduleRequest struct {
	Schedule []scheduleInput `json:"schedule" binding:"required"`
}

// UpdateSchedule handles PUT /buses/:bus_number/schedule. Trips matching an
// existing (date, time) keep their booked and locked seats.
func (b *BusController) UpdateSchedule(c *gin.Context) {
	bus, ok := b.loadOwnedBus(c)
	if !ok {
		return
	}

	var req updateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	schedule, err := parseSchedule(req.Schedule)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid schedule date, expected YYYY-MM-DD"})
		return
	}

	if err := bus_models.ReplaceSchedule(c.Request.Context(), b.DB, bus, schedule); err != nil {
		b.writeBusError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Schedule updated successfully", "bus": bus})
}

type updateBusDetailsRequest struct {
	Route       string          `json:"route" binding:"required"`
	PriceNormal int             `json:"price_normal" binding:"required"`
	PriceLuxury int             `json:"price_luxury" binding:"required"`
	Stops       []stopInput     `json:"stops" binding:"required,min=2"`
	Schedule    []scheduleInput `json:"schedule" binding:"required"`
}

// UpdateBusDetails handles PUT /buses/:bus_number.
func (b *BusController) UpdateBusDetails(c *gin.Context) {
	bus, ok := b.loadOwnedBus(c)
	if !ok {
		return
	}

	var req updateBusDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	schedule, err := parseSchedule(req.Schedule)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid schedule date, expected YYYY-MM-DD"})
		return
	}

	err = bus_models.UpdateBusDetails(c.Request.Context(), b.DB, bus, req.Route, req.PriceNormal, req.PriceLuxury, parseStops(req.Stops), schedule)
	if err != nil {
		b.writeBusError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Bus updated successfully", "bus": bus})
}

type replaceBusNumberRequest struct {
	NewBusNumber string `json:"new_bus_number" binding:"required"`
}

// ReplaceBusNumber handles PATCH /buses/:bus_number/number.
func (b *BusController) ReplaceBusNumber(c *gin.Context) {
	bus, ok := b.loadOwnedBus(c)
	if !ok {
		return
	}

	var req replaceBusNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	if err := bus_models.ReplaceBusNumber(c.Request.Context(), b.DB, bus, req.NewBusNumber); err != nil {
		b.writeBusError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Bus number replaced successfully", "bus": bus})
}

type updatePermitRequest struct {
	PermitStatus string `json:"permit_status" binding:"required"`
}

// UpdatePermitStatus handles PATCH /buses/:bus_number/permit (admin only).
func (b *BusController) UpdatePermitStatus(c *gin.Context) {
	var req updatePermitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	bus, err := bus_models.UpdatePermitStatus(c.Request.Context(), b.DB, c.Param("bus_number"), req.PermitStatus)
	if err != nil {
		b.writeBusError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Permit " + req.PermitStatus + " successfully", "bus": bus})
}

// GetPermitStatuses handles GET /operator/permits.
func (b *BusController) GetPermitStatuses(c *gin.Context) {
	operatorID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	permits, err := bus_models.GetPermitStatuses(c.Request.Context(), b.DB, operatorID)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to fetch permits for operator %s: %v", operatorID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve permits"})
		return
	}

	c.JSON(http.StatusOK, permits)
}

// SearchTrips handles GET /trips?route=...&date=...&time=... for commuters.
// Availability in the response is best-effort and may be stale by the time a
// reservation is attempted.
func (b *BusController) SearchTrips(c *gin.Context) {
	route := c.Query("route")
	if route == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "route query parameter is required"})
		return
	}

	var datePtr *time.Time
	if dateStr := c.Query("date"); dateStr != "" {
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
			return
		}
		datePtr = &date
	}

	trips, err := bus_models.SearchTrips(c.Request.Context(), b.DB, route, datePtr, c.Query("time"))
	if err != nil {
		logger.ErrorLogger.Errorf("Trip search failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search trips"})
		return
	}
	if len(trips) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No buses found matching the criteria"})
		return
	}

	c.JSON(http.StatusOK, trips)
}

// loadOwnedBus fetches the bus named in the path and enforces operator
// ownership. Admins may act on any bus.
func (b *BusController) loadOwnedBus(c *gin.Context) (*bus_models.Bus, bool) {
	bus, err := bus_models.GetBusByNumber(c.Request.Context(), b.DB, c.Param("bus_number"))
	if err != nil {
		b.writeBusError(c, err)
		return nil, false
	}

	role := utils.GetRoleFromContext(c)
	if role == shared_models.RoleOperator {
		operatorID, err := utils.GetUserIDFromContext(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return nil, false
		}
		if bus.OperatorID != operatorID {
			c.JSON(http.StatusForbidden, gin.H{"error": bus_models.ErrNotBusOperator.Error()})
			return nil, false
		}
	}
	return bus, true
}

func (b *BusController) writeBusError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, bus_models.ErrBusNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, bus_models.ErrBusNumberInUse):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, bus_models.ErrInvalidRoute), errors.Is(err, bus_models.ErrInvalidSchedule), errors.Is(err, bus_models.ErrInvalidSeat):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.ErrorLogger.Errorf("Bus operation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Bus operation failed"})
	}
}
