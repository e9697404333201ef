package clients

import (
	"github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

// RazorpayClientWrapper provides an interface for Razorpay operations so the
// payment flow can be exercised in tests without the real gateway.
type RazorpayClientWrapper interface {
	CreateOrder(data map[string]interface{}) (map[string]interface{}, error)
	VerifyWebhookSignature(signature, body, webhookSecret string) bool
}

// RazorpayClient implements RazorpayClientWrapper using the Razorpay SDK.
type RazorpayClient struct {
	Client *razorpay.Client
}

// NewRazorpayClient initializes the underlying SDK client with the provided
// key ID and secret.
func NewRazorpayClient(keyID, keySecret string) *RazorpayClient {
	return &RazorpayClient{
		Client: razorpay.NewClient(keyID, keySecret),
	}
}

// CreateOrder creates a new order in Razorpay from the given order data
// (amount, currency, receipt, notes).
func (r *RazorpayClient) CreateOrder(data map[string]interface{}) (map[string]interface{}, error) {
	return r.Client.Order.Create(data, nil)
}

// VerifyWebhookSignature checks the authenticity of a Razorpay webhook
// payload against the shared webhook secret. Payment state only ever moves
// on a verified signal, never on client-supplied booleans.
func (r *RazorpayClient) VerifyWebhookSignature(signature, body, webhookSecret string) bool {
	return utils.VerifyWebhookSignature(body, signature, webhookSecret)
}
