package routes

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joy095/busline/clients"
	"github.com/joy095/busline/config/db"
	"github.com/joy095/busline/controllers/payment_controller"
	middleware "github.com/joy095/busline/middlewares"
	"github.com/joy095/busline/middlewares/auth"
)

// RegisterPaymentRoutes wires the payment-gateway glue.
func RegisterPaymentRoutes(router *gin.Engine) {
	rzpClient := clients.NewRazorpayClient(os.Getenv("RAZORPAY_KEY_ID"), os.Getenv("RAZORPAY_KEY_SECRET"))
	controller := payment_controller.NewPaymentController(db.DB, rzpClient, os.Getenv("RAZORPAY_WEBHOOK_SECRET"))

	// Webhooks authenticate by signature, not by bearer token.
	router.POST("/webhooks/razorpay/payment", controller.HandleWebhook)

	payments := router.Group("/payments")
	payments.Use(auth.AuthMiddleware())
	{
		payments.POST("/checkout",
			middleware.NewRateLimiter("5-1m", "checkout"),
			controller.CreateCheckoutSession)
	}
}
