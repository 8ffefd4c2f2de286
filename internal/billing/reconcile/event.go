package reconcile

import "time"

type EventKind string

// Normalized webhook event kinds. Per-provider adapters collapse their
// own event vocabulary into these three before anything is persisted.
const (
	PaymentSucceededEvent     EventKind = "payment_succeeded"
	PaymentFailedEvent        EventKind = "payment_failed"
	SubscriptionCanceledEvent EventKind = "subscription_canceled"
)

// Event is the provider-neutral form of one verified webhook delivery.
// Adapters must verify the provider signature before constructing one.
type Event struct {
	Provider string
	Kind     EventKind

	// GatewayOrderID is the provider's unique reference for the payment
	// and the idempotency key for the whole delivery.
	GatewayOrderID string

	// GatewaySubscriptionID identifies the provider-side recurring
	// subscription; cancellation events match on it.
	GatewaySubscriptionID string
	GatewayTransactionID  string

	// User resolution inputs, in order of preference.
	UserID           uint
	StripeCustomerID string
	Email            string

	PlanCode string
	Amount   float64
	Currency string

	// PeriodEnd is the provider-reported entitlement end. When zero, the
	// reconciler computes it from the plan duration.
	PeriodEnd *time.Time

	RawStatus string
}

// Outcome reports what a delivery did. All outcomes are acknowledged to
// the provider with 200; only a returned error maps to a retryable 500.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)
