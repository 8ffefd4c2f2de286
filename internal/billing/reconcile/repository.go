package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rumina-backend/internal/domain/billing"
	"rumina-backend/internal/domain/plans"
	"rumina-backend/internal/domain/users"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("reconcile: record not found")

	// ErrDuplicatePayment is returned by CreatePayment when the gateway
	// order id already exists. The unique index is the final arbiter for
	// concurrent deliveries; callers treat this as "already processed".
	ErrDuplicatePayment = errors.New("reconcile: payment already recorded")
)

// Repository is the persistence collaborator for the reconciler.
type Repository interface {
	PaymentByOrderID(ctx context.Context, orderID string) (*billing.Payment, error)
	CreatePayment(ctx context.Context, p *billing.Payment) error
	MarkPayment(ctx context.Context, orderID, status string, gatewayTxnID *string) error

	PlanByCode(ctx context.Context, code string) (*plans.Plan, error)
	UserByID(ctx context.Context, id uint) (*users.User, error)
	UserByEmail(ctx context.Context, email string) (*users.User, error)
	UserByStripeCustomerID(ctx context.Context, customerID string) (*users.User, error)

	// CompleteSuccess marks the payment succeeded and applies the
	// entitlement (user tier/plan/expiry plus an upsert of the
	// (user, plan) subscription row to ACTIVE) in one transaction. The
	// payment must never turn terminal without its tier transition:
	// otherwise a provider retry would hit the idempotency check and the
	// paid-for entitlement would be lost.
	CompleteSuccess(ctx context.Context, orderID string, gatewayTxnID *string, userID uint, plan *plans.Plan, periodEnd time.Time, gatewaySubID *string) error

	// CancelByGatewaySubscriptionID demotes the owning user to FREE and
	// marks the matching subscription CANCELED. ErrNotFound when nothing
	// matches the gateway subscription id.
	CancelByGatewaySubscriptionID(ctx context.Context, gatewaySubID string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository wraps a GORM handle. The handle must be opened with
// TranslateError so unique violations surface as gorm.ErrDuplicatedKey.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) PaymentByOrderID(ctx context.Context, orderID string) (*billing.Payment, error) {
	var p billing.Payment
	err := r.db.WithContext(ctx).Where("gateway_order_id = ?", orderID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) CreatePayment(ctx context.Context, p *billing.Payment) error {
	err := r.db.WithContext(ctx).Create(p).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicatePayment
	}
	return err
}

func (r *gormRepository) MarkPayment(ctx context.Context, orderID, status string, gatewayTxnID *string) error {
	updates := map[string]interface{}{"status": status}
	if gatewayTxnID != nil {
		updates["gateway_transaction_id"] = *gatewayTxnID
	}
	return r.db.WithContext(ctx).
		Model(&billing.Payment{}).
		Where("gateway_order_id = ?", orderID).
		Updates(updates).Error
}

func (r *gormRepository) PlanByCode(ctx context.Context, code string) (*plans.Plan, error) {
	var p plans.Plan
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) UserByID(ctx context.Context, id uint) (*users.User, error) {
	return r.firstUser(ctx, "id = ?", id)
}

func (r *gormRepository) UserByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.firstUser(ctx, "email = ?", email)
}

func (r *gormRepository) UserByStripeCustomerID(ctx context.Context, customerID string) (*users.User, error) {
	return r.firstUser(ctx, "stripe_customer_id = ?", customerID)
}

func (r *gormRepository) firstUser(ctx context.Context, query string, arg interface{}) (*users.User, error) {
	var u users.User
	err := r.db.WithContext(ctx).Where(query, arg).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *gormRepository) CompleteSuccess(ctx context.Context, orderID string, gatewayTxnID *string, userID uint, plan *plans.Plan, periodEnd time.Time, gatewaySubID *string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"status": billing.PaymentSucceeded}
		if gatewayTxnID != nil {
			updates["gateway_transaction_id"] = *gatewayTxnID
		}
		if err := tx.Model(&billing.Payment{}).
			Where("gateway_order_id = ?", orderID).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("mark payment succeeded: %w", err)
		}
		return entitle(tx, userID, plan, periodEnd, gatewaySubID)
	})
}

func entitle(tx *gorm.DB, userID uint, plan *plans.Plan, periodEnd time.Time, gatewaySubID *string) error {
	updates := map[string]interface{}{
		"tier":             plans.PlanTier(plan),
		"plan_id":          plan.ID,
		"subscription_end": periodEnd,
	}
	if gatewaySubID != nil {
		updates["gateway_subscription_id"] = *gatewaySubID
	}
	if err := tx.Model(&users.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		return fmt.Errorf("update user tier: %w", err)
	}

	sub := &billing.Subscription{
		UserID:                userID,
		PlanID:                plan.ID,
		Status:                billing.SubscriptionActive,
		GatewaySubscriptionID: gatewaySubID,
		CurrentPeriodEnd:      &periodEnd,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "plan_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"status",
			"gateway_subscription_id",
			"current_period_end",
			"updated_at",
		}),
	}).Create(sub).Error; err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

func (r *gormRepository) CancelByGatewaySubscriptionID(ctx context.Context, gatewaySubID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u users.User
		err := tx.Where("gateway_subscription_id = ?", gatewaySubID).First(&u).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if err := tx.Model(&users.User{}).Where("id = ?", u.ID).Updates(map[string]interface{}{
			"tier":    plans.TierFree,
			"plan_id": nil,
		}).Error; err != nil {
			return fmt.Errorf("demote user: %w", err)
		}

		return tx.Model(&billing.Subscription{}).
			Where("gateway_subscription_id = ?", gatewaySubID).
			Update("status", billing.SubscriptionCanceled).Error
	})
}
