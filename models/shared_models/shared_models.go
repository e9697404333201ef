package shared_models

// Booking lifecycle statuses.
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

// Payment statuses. Payment is a side channel of a booking, not a lifecycle
// state: a cancelled booking never becomes paid.
const (
	PaymentStatusUnpaid = "unpaid"
	PaymentStatusPaid   = "paid"
)

// Bus classes.
const (
	BusTypeNormal = "normal"
	BusTypeLuxury = "luxury"
)

// Permit statuses for a bus. The permit workflow itself lives elsewhere; the
// service only records the outcome.
const (
	PermitStatusPending = "pending"
	PermitStatusGranted = "granted"
	PermitStatusRevoked = "revoked"
)

// Caller roles supplied by the identity service via JWT claims.
const (
	RoleCommuter = "commuter"
	RoleOperator = "operator"
	RoleAdmin    = "admin"
)

// IsValidBusType reports whether t is a recognised bus class.
func IsValidBusType(t string) bool {
	return t == BusTypeNormal || t == BusTypeLuxury
}
