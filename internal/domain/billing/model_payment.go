package billing

import (
	"time"

	"rumina-backend/internal/domain/plans"
	"rumina-backend/internal/domain/users"
)

// Payment statuses. A payment transitions to a terminal status at most
// once; GatewayOrderID is the idempotency key enforcing that.
const (
	PaymentPending   = "pending"
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
)

// IsTerminalPaymentStatus reports whether a payment has already been
// resolved. Webhook redeliveries for such records are no-ops.
func IsTerminalPaymentStatus(status string) bool {
	return status == PaymentSucceeded || status == PaymentFailed
}

type Payment struct {
	ID             uint   `gorm:"primaryKey"`
	Provider       string `gorm:"type:varchar(20);not null"` // "stripe" | "senangpay"
	GatewayOrderID string `gorm:"column:gateway_order_id;not null;uniqueIndex:idx_payments_gateway_order_id"`
	UserID         uint
	User           users.User
	PlanID         *uint
	Plan           *plans.Plan
	Amount         float64
	Currency       string `gorm:"type:varchar(3)"`
	Status         string `gorm:"type:varchar(20);not null;default:'pending'"`

	// GatewaySubscriptionID links the payment to the provider's recurring
	// subscription, when the provider has one.
	GatewaySubscriptionID *string
	GatewayTransactionID  *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
