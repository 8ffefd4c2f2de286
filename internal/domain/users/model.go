package users

import (
	"time"

	"rumina-backend/internal/domain/plans"
)

type User struct {
	ID           uint    `gorm:"primaryKey"`
	Name         string
	Email        string  `gorm:"not null;uniqueIndex:idx_users_email"`
	Password     *string `gorm:"" json:"-"` // nil for Google-only accounts
	AuthProvider string  `gorm:"type:varchar(20);not null;default:'local'"`
	GoogleSub    *string `gorm:"uniqueIndex:idx_users_google_sub"`
	Role         string

	// Tier is the derived subscription state. It defaults to FREE and is
	// mutated only by the webhook reconciler.
	Tier            string `gorm:"type:varchar(10);not null;default:'FREE'"`
	SubscriptionEnd *time.Time

	StripeCustomerID *string `gorm:"column:stripe_customer_id;uniqueIndex:idx_users_stripe_customer_id"`

	// GatewaySubscriptionID is the recurring-billing provider's handle for
	// this user's subscription. Cancellation events match on it.
	GatewaySubscriptionID *string `gorm:"column:gateway_subscription_id;uniqueIndex:idx_users_gateway_subscription_id"`

	PlanID *uint
	Plan   *plans.Plan

	CreatedAt time.Time
	UpdatedAt time.Time
}
