package payment_controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joy095/busline/clients"
	"github.com/joy095/busline/logger"
	"github.com/joy095/busline/models/booking_models"
	"github.com/joy095/busline/utils"
)

// PaymentController glues the booking ledger to the Razorpay gateway. The
// core only flips paymentStatus on an authenticated gateway signal.
type PaymentController struct {
	DB            *pgxpool.Pool
	Razorpay      clients.RazorpayClientWrapper
	WebhookSecret string
}

func NewPaymentController(db *pgxpool.Pool, rzp clients.RazorpayClientWrapper, webhookSecret string) *PaymentController {
	return &PaymentController{DB: db, Razorpay: rzp, WebhookSecret: webhookSecret}
}

// CreateCheckoutSession handles POST /payments/checkout: it gathers all of
// the caller's unpaid bookings into one Razorpay order.
func (pc *PaymentController) CreateCheckoutSession(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	bookings, err := booking_models.GetUnpaidBookingsByUser(c.Request.Context(), pc.DB, userID)
	if err != nil {
		if errors.Is(err, booking_models.ErrNoUnpaidBookings) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No unpaid bookings found"})
			return
		}
		logger.ErrorLogger.Errorf("Failed to fetch unpaid bookings for %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create checkout session"})
		return
	}

	totalFare := 0
	sessionDetails := make([]gin.H, 0, len(bookings))
	for _, b := range bookings {
		totalFare += b.Fare
		sessionDetails = append(sessionDetails, gin.H{
			"booking_id": b.ID,
			"stop_pair":  b.StopPair,
			"seats":      b.SeatNumbers,
			"fare":       b.Fare,
		})
	}

	currency := os.Getenv("PAYMENT_CURRENCY")
	if currency == "" {
		currency = "LKR"
	}

	order, err := pc.Razorpay.CreateOrder(map[string]interface{}{
		"amount":   totalFare * 100, // gateway expects the smallest currency unit
		"currency": currency,
		"receipt":  userID.String(),
		"notes": map[string]interface{}{
			"user_id":  userID.String(),
			"bookings": len(bookings),
		},
	})
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to create Razorpay order for user %s: %v", userID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to initiate payment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "Checkout session created",
		"total_fare":      totalFare,
		"session_details": sessionDetails,
		"order_id":        order["id"],
	})
}

// webhookPayload is the slice of the Razorpay event the handler cares about.
type webhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Amount  int    `json:"amount"`
			} `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID      string `json:"id"`
				Receipt string `json:"receipt"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// HandleWebhook handles POST /webhooks/razorpay/payment. Only a payload with
// a valid gateway signature can flip bookings to paid, and cancelled bookings
// are never flipped.
func (pc *PaymentController) HandleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	signature := c.GetHeader("X-Razorpay-Signature")
	if !pc.Razorpay.VerifyWebhookSignature(signature, string(body), pc.WebhookSecret) {
		logger.ErrorLogger.Error("Razorpay webhook signature verification failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid webhook signature"})
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook payload"})
		return
	}

	if payload.Event != "order.paid" {
		logger.InfoLogger.Infof("Ignoring Razorpay event %s", payload.Event)
		c.JSON(http.StatusOK, gin.H{"message": "Event ignored"})
		return
	}

	userID, err := uuid.Parse(payload.Payload.Order.Entity.Receipt)
	if err != nil {
		logger.ErrorLogger.Errorf("Invalid receipt in Razorpay order %s: %v", payload.Payload.Order.Entity.ID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order receipt"})
		return
	}

	updated, err := booking_models.MarkUserBookingsPaid(c.Request.Context(), pc.DB, userID)
	if err != nil {
		if errors.Is(err, booking_models.ErrNoUnpaidBookings) {
			// Webhook retries after a successful run land here.
			c.JSON(http.StatusOK, gin.H{"message": "No unpaid bookings, already processed"})
			return
		}
		logger.ErrorLogger.Errorf("Failed to mark bookings paid for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update payment status"})
		return
	}

	logger.InfoLogger.Infof("Payment captured for user %s, %d bookings marked paid", userID, updated)
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Payment successful, %d bookings updated", updated)})
}
