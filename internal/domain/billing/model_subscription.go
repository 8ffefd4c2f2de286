package billing

import (
	"time"

	"rumina-backend/internal/domain/plans"
)

// Subscription statuses.
const (
	SubscriptionActive   = "ACTIVE"
	SubscriptionCanceled = "CANCELED"
)

// Subscription is one row per (user, plan) pair. A repeat purchase of the
// same plan extends CurrentPeriodEnd instead of inserting a second row.
type Subscription struct {
	ID     uint `gorm:"primaryKey"`
	UserID uint `gorm:"not null;uniqueIndex:idx_subscriptions_user_plan,priority:1"`
	PlanID uint `gorm:"not null;uniqueIndex:idx_subscriptions_user_plan,priority:2"`
	Plan   *plans.Plan

	Status                string `gorm:"type:varchar(20);not null"`
	GatewaySubscriptionID *string
	CurrentPeriodEnd      *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
