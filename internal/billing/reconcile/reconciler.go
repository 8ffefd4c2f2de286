// Package reconcile applies verified payment-provider webhook events to
// local billing state: at most one tier transition per gateway order id,
// with the DB unique index as the arbiter for concurrent deliveries.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"rumina-backend/internal/domain/billing"
	"rumina-backend/internal/domain/plans"
	"rumina-backend/internal/domain/users"

	"gorm.io/gorm"
)

type Reconciler struct {
	repo Repository
	now  func() time.Time
}

func New(repo Repository) *Reconciler {
	return &Reconciler{repo: repo, now: time.Now}
}

func NewFromDB(db *gorm.DB) *Reconciler {
	return New(NewRepository(db))
}

// Apply processes one normalized event. A nil error means the delivery
// must be acknowledged with 200 regardless of outcome; a non-nil error
// means transient failure and the provider should redeliver.
func (r *Reconciler) Apply(ctx context.Context, ev Event) (Outcome, error) {
	switch ev.Kind {
	case PaymentSucceededEvent:
		return r.applySuccess(ctx, ev)
	case PaymentFailedEvent:
		return r.applyFailure(ctx, ev)
	case SubscriptionCanceledEvent:
		return r.applyCancellation(ctx, ev)
	default:
		return OutcomeIgnored, nil
	}
}

func (r *Reconciler) applySuccess(ctx context.Context, ev Event) (Outcome, error) {
	existing, err := r.repo.PaymentByOrderID(ctx, ev.GatewayOrderID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("lookup payment %s: %w", ev.GatewayOrderID, err)
	}
	if existing != nil && billing.IsTerminalPaymentStatus(existing.Status) {
		return OutcomeDuplicate, nil
	}

	user, err := r.resolveUser(ctx, ev, existing)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Account no longer exists; acknowledge so the provider stops
			// redelivering an event nobody can consume.
			log.Printf("webhook %s/%s: no matching user, acknowledged without effect", ev.Provider, ev.GatewayOrderID)
			return OutcomeIgnored, nil
		}
		return "", err
	}

	plan, err := r.resolvePlan(ctx, ev, existing)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Printf("webhook %s/%s: unknown plan %q, acknowledged without effect", ev.Provider, ev.GatewayOrderID, ev.PlanCode)
			return OutcomeIgnored, nil
		}
		return "", err
	}

	var gatewaySubID *string
	if ev.GatewaySubscriptionID != "" {
		gatewaySubID = &ev.GatewaySubscriptionID
	}
	var gatewayTxnID *string
	if ev.GatewayTransactionID != "" {
		gatewayTxnID = &ev.GatewayTransactionID
	}

	if existing == nil {
		p := &billing.Payment{
			Provider:              ev.Provider,
			GatewayOrderID:        ev.GatewayOrderID,
			UserID:                user.ID,
			PlanID:                &plan.ID,
			Amount:                ev.Amount,
			Currency:              ev.Currency,
			Status:                billing.PaymentPending,
			GatewaySubscriptionID: gatewaySubID,
			GatewayTransactionID:  gatewayTxnID,
		}
		err = r.repo.CreatePayment(ctx, p)
		if errors.Is(err, ErrDuplicatePayment) {
			// Lost the race against a concurrent delivery (or a pending row
			// created at checkout). Re-read and decide from its status.
			again, lookupErr := r.repo.PaymentByOrderID(ctx, ev.GatewayOrderID)
			if lookupErr != nil {
				return "", fmt.Errorf("re-read payment %s: %w", ev.GatewayOrderID, lookupErr)
			}
			if billing.IsTerminalPaymentStatus(again.Status) {
				return OutcomeDuplicate, nil
			}
		} else if err != nil {
			return "", fmt.Errorf("create payment %s: %w", ev.GatewayOrderID, err)
		}
	}

	// The status flip and the entitlement land in one transaction: the
	// payment stays pending if anything fails, so the provider's retry
	// passes the idempotency check and re-runs both.
	periodEnd := r.periodEnd(ev, plan)
	if err := r.repo.CompleteSuccess(ctx, ev.GatewayOrderID, gatewayTxnID, user.ID, plan, periodEnd, gatewaySubID); err != nil {
		return "", fmt.Errorf("complete payment %s: %w", ev.GatewayOrderID, err)
	}
	return OutcomeApplied, nil
}

func (r *Reconciler) applyFailure(ctx context.Context, ev Event) (Outcome, error) {
	existing, err := r.repo.PaymentByOrderID(ctx, ev.GatewayOrderID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("lookup payment %s: %w", ev.GatewayOrderID, err)
	}
	if existing != nil {
		if billing.IsTerminalPaymentStatus(existing.Status) {
			return OutcomeDuplicate, nil
		}
		if err := r.repo.MarkPayment(ctx, ev.GatewayOrderID, billing.PaymentFailed, nil); err != nil {
			return "", fmt.Errorf("mark payment %s failed: %w", ev.GatewayOrderID, err)
		}
		return OutcomeApplied, nil
	}

	user, err := r.resolveUser(ctx, ev, nil)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return OutcomeIgnored, nil
		}
		return "", err
	}

	p := &billing.Payment{
		Provider:       ev.Provider,
		GatewayOrderID: ev.GatewayOrderID,
		UserID:         user.ID,
		Amount:         ev.Amount,
		Currency:       ev.Currency,
		Status:         billing.PaymentFailed,
	}
	if plan, planErr := r.resolvePlan(ctx, ev, nil); planErr == nil {
		p.PlanID = &plan.ID
	}
	err = r.repo.CreatePayment(ctx, p)
	if errors.Is(err, ErrDuplicatePayment) {
		return OutcomeDuplicate, nil
	}
	if err != nil {
		return "", fmt.Errorf("create failed payment %s: %w", ev.GatewayOrderID, err)
	}
	return OutcomeApplied, nil
}

func (r *Reconciler) applyCancellation(ctx context.Context, ev Event) (Outcome, error) {
	if ev.GatewaySubscriptionID == "" {
		return OutcomeIgnored, nil
	}
	err := r.repo.CancelByGatewaySubscriptionID(ctx, ev.GatewaySubscriptionID)
	if errors.Is(err, ErrNotFound) {
		return OutcomeIgnored, nil
	}
	if err != nil {
		return "", fmt.Errorf("cancel subscription %s: %w", ev.GatewaySubscriptionID, err)
	}
	return OutcomeApplied, nil
}

func (r *Reconciler) resolveUser(ctx context.Context, ev Event, existing *billing.Payment) (*users.User, error) {
	if ev.UserID != 0 {
		return r.repo.UserByID(ctx, ev.UserID)
	}
	if existing != nil {
		return r.repo.UserByID(ctx, existing.UserID)
	}
	if ev.StripeCustomerID != "" {
		return r.repo.UserByStripeCustomerID(ctx, ev.StripeCustomerID)
	}
	if ev.Email != "" {
		return r.repo.UserByEmail(ctx, ev.Email)
	}
	return nil, ErrNotFound
}

func (r *Reconciler) resolvePlan(ctx context.Context, ev Event, existing *billing.Payment) (*plans.Plan, error) {
	if ev.PlanCode != "" {
		return r.repo.PlanByCode(ctx, ev.PlanCode)
	}
	if existing != nil && existing.PlanID != nil {
		// A pending row created at checkout already knows its plan.
		return r.planByID(ctx, *existing.PlanID)
	}
	return nil, ErrNotFound
}

func (r *Reconciler) planByID(ctx context.Context, id uint) (*plans.Plan, error) {
	// Plan catalog is two rows; code lookup covers both paths.
	for _, code := range []string{plans.TierPro, plans.TierFree} {
		p, err := r.repo.PlanByCode(ctx, code)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		if p.ID == id {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

// periodEnd prefers the provider-reported period end; otherwise the
// entitlement runs for the plan duration starting now.
func (r *Reconciler) periodEnd(ev Event, plan *plans.Plan) time.Time {
	if ev.PeriodEnd != nil && !ev.PeriodEnd.IsZero() {
		return *ev.PeriodEnd
	}
	days := plan.DurationDays
	if days <= 0 {
		days = 365
	}
	return r.now().AddDate(0, 0, days)
}
