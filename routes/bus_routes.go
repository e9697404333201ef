package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/joy095/busline/config/db"
	"github.com/joy095/busline/controllers/bus_controller"
	middleware "github.com/joy095/busline/middlewares"
	"github.com/joy095/busline/middlewares/auth"
	"github.com/joy095/busline/models/shared_models"
)

// RegisterBusRoutes wires route/fare/schedule administration and commuter
// trip search.
func RegisterBusRoutes(router *gin.Engine) {
	controller := bus_controller.NewBusController(db.DB)

	// Commuter-facing search; availability is best-effort.
	router.GET("/trips",
		auth.AuthMiddleware(),
		middleware.NewRateLimiter("30-1m", "search-trips"),
		controller.SearchTrips)

	buses := router.Group("/buses")
	buses.Use(auth.AuthMiddleware())
	{
		buses.GET("/:bus_number",
			auth.RequireRoles(shared_models.RoleOperator, shared_models.RoleAdmin),
			controller.GetBus)

		buses.POST("",
			auth.RequireRoles(shared_models.RoleOperator, shared_models.RoleAdmin),
			middleware.NewRateLimiter("10-1m", "add-bus"),
			controller.AddBus)

		buses.PUT("/:bus_number",
			auth.RequireRoles(shared_models.RoleOperator, shared_models.RoleAdmin),
			controller.UpdateBusDetails)

		buses.PUT("/:bus_number/stops",
			auth.RequireRoles(shared_models.RoleOperator, shared_models.RoleAdmin),
			controller.UpdateStops)

		buses.PUT("/:bus_number/schedule",
			auth.RequireRoles(shared_models.RoleOperator, shared_models.RoleAdmin),
			controller.UpdateSchedule)

		buses.PATCH("/:bus_number/number",
			auth.RequireRoles(shared_models.RoleOperator, shared_models.RoleAdmin),
			controller.ReplaceBusNumber)

		buses.PATCH("/:bus_number/permit",
			auth.RequireRoles(shared_models.RoleAdmin),
			controller.UpdatePermitStatus)
	}

	operator := router.Group("/operator")
	operator.Use(auth.AuthMiddleware(), auth.RequireRoles(shared_models.RoleOperator, shared_models.RoleAdmin))
	{
		operator.GET("/permits", controller.GetPermitStatuses)
	}
}
