package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/joy095/busline/config/db"
	redisclient "github.com/joy095/busline/config/redis"
	"github.com/joy095/busline/controllers/booking_controller"
	middleware "github.com/joy095/busline/middlewares"
	"github.com/joy095/busline/middlewares/auth"
	"github.com/joy095/busline/reservation"
	"github.com/joy095/busline/utils/mail"
)

// RegisterBookingRoutes wires the booking transaction manager and its
// collaborators.
func RegisterBookingRoutes(router *gin.Engine) {
	coordinator := reservation.NewCoordinator(reservation.NewPgStore(db.DB), 0)

	service := &booking_controller.BookingService{
		Buses:    booking_controller.NewPgBusDirectory(db.DB),
		Seats:    coordinator,
		Bookings: booking_controller.NewPgBookingStore(db.DB),
		Notify:   mail.NewMailer(),
	}

	holds := booking_controller.NewHoldService(redisclient.GetRedisClient())
	controller := booking_controller.NewBookingController(db.DB, service, holds)

	protected := router.Group("/bookings")
	protected.Use(auth.AuthMiddleware())
	{
		protected.POST("",
			middleware.CombinedRateLimiter("create-booking", "5-1m", "20-10m"),
			controller.CreateBooking)

		protected.POST("/hold",
			middleware.NewRateLimiter("10-1m", "hold-seats"),
			controller.HoldSeats)

		protected.GET("",
			middleware.NewRateLimiter("20-1m", "my-bookings"),
			controller.GetMyBookings)

		protected.GET("/:booking_id",
			middleware.NewRateLimiter("15-30s", "get-booking"),
			controller.GetBooking)

		protected.PATCH("/:booking_id",
			middleware.CombinedRateLimiter("modify-booking", "5-1m", "15-10m"),
			controller.ModifyBooking)

		protected.PATCH("/:booking_id/cancel",
			middleware.CombinedRateLimiter("cancel-booking", "3-1m", "10-10m"),
			controller.CancelBooking)
	}
}
