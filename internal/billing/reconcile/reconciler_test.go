package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"rumina-backend/internal/domain/billing"
	"rumina-backend/internal/domain/plans"
	"rumina-backend/internal/domain/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo is an in-memory Repository with the same uniqueness semantics
// the database enforces.
type fakeRepo struct {
	payments      map[string]*billing.Payment
	plans         map[string]*plans.Plan
	users         map[uint]*users.User
	subscriptions map[[2]uint]*billing.Subscription

	entitleCalls int
	failNext     error
	failComplete error
}

func newFakeRepo() *fakeRepo {
	proPlan := &plans.Plan{ID: 2, Code: plans.TierPro, Name: "Rumina Pro", PriceMYR: 1699, Interval: "year", DurationDays: 365}
	freePlan := &plans.Plan{ID: 1, Code: plans.TierFree, Name: "Free", DurationDays: 0}
	return &fakeRepo{
		payments:      map[string]*billing.Payment{},
		plans:         map[string]*plans.Plan{plans.TierPro: proPlan, plans.TierFree: freePlan},
		users:         map[uint]*users.User{},
		subscriptions: map[[2]uint]*billing.Subscription{},
	}
}

func (f *fakeRepo) addUser(u *users.User) *users.User {
	if u.Tier == "" {
		u.Tier = plans.TierFree
	}
	f.users[u.ID] = u
	return u
}

func (f *fakeRepo) PaymentByOrderID(_ context.Context, orderID string) (*billing.Payment, error) {
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	p, ok := f.payments[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) CreatePayment(_ context.Context, p *billing.Payment) error {
	if err := f.takeFailure(); err != nil {
		return err
	}
	if _, exists := f.payments[p.GatewayOrderID]; exists {
		return ErrDuplicatePayment
	}
	cp := *p
	f.payments[p.GatewayOrderID] = &cp
	return nil
}

func (f *fakeRepo) MarkPayment(_ context.Context, orderID, status string, txnID *string) error {
	if err := f.takeFailure(); err != nil {
		return err
	}
	p, ok := f.payments[orderID]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	if txnID != nil {
		p.GatewayTransactionID = txnID
	}
	return nil
}

func (f *fakeRepo) PlanByCode(_ context.Context, code string) (*plans.Plan, error) {
	p, ok := f.plans[code]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (f *fakeRepo) UserByID(_ context.Context, id uint) (*users.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (f *fakeRepo) UserByEmail(_ context.Context, email string) (*users.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeRepo) UserByStripeCustomerID(_ context.Context, customerID string) (*users.User, error) {
	for _, u := range f.users {
		if u.StripeCustomerID != nil && *u.StripeCustomerID == customerID {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeRepo) CompleteSuccess(_ context.Context, orderID string, txnID *string, userID uint, plan *plans.Plan, periodEnd time.Time, gatewaySubID *string) error {
	if err := f.takeFailure(); err != nil {
		return err
	}
	if f.failComplete != nil {
		err := f.failComplete
		f.failComplete = nil
		return err
	}
	p, ok := f.payments[orderID]
	if !ok {
		return ErrNotFound
	}
	p.Status = billing.PaymentSucceeded
	if txnID != nil {
		p.GatewayTransactionID = txnID
	}

	f.entitleCalls++
	u := f.users[userID]
	u.Tier = plans.PlanTier(plan)
	u.PlanID = &plan.ID
	end := periodEnd
	u.SubscriptionEnd = &end
	if gatewaySubID != nil {
		u.GatewaySubscriptionID = gatewaySubID
	}

	key := [2]uint{userID, plan.ID}
	sub, ok := f.subscriptions[key]
	if !ok {
		sub = &billing.Subscription{UserID: userID, PlanID: plan.ID}
		f.subscriptions[key] = sub
	}
	sub.Status = billing.SubscriptionActive
	sub.CurrentPeriodEnd = &end
	sub.GatewaySubscriptionID = gatewaySubID
	return nil
}

func (f *fakeRepo) CancelByGatewaySubscriptionID(_ context.Context, gatewaySubID string) error {
	if err := f.takeFailure(); err != nil {
		return err
	}
	var owner *users.User
	for _, u := range f.users {
		if u.GatewaySubscriptionID != nil && *u.GatewaySubscriptionID == gatewaySubID {
			owner = u
			break
		}
	}
	if owner == nil {
		return ErrNotFound
	}
	owner.Tier = plans.TierFree
	owner.PlanID = nil
	for _, sub := range f.subscriptions {
		if sub.GatewaySubscriptionID != nil && *sub.GatewaySubscriptionID == gatewaySubID {
			sub.Status = billing.SubscriptionCanceled
		}
	}
	return nil
}

func (f *fakeRepo) takeFailure() error {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	return nil
}

func successEvent() Event {
	return Event{
		Provider:              "senangpay",
		Kind:                  PaymentSucceededEvent,
		GatewayOrderID:        "PRO_42_169900",
		GatewaySubscriptionID: "sp_sub_42",
		GatewayTransactionID:  "txn_001",
		UserID:                42,
		PlanCode:              plans.TierPro,
		Amount:                1699.00,
		Currency:              "MYR",
	}
}

func TestSuccessPromotesUserToPro(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser(&users.User{ID: 42, Email: "u42@example.com"})
	rec := New(repo)

	before := time.Now()
	outcome, err := rec.Apply(context.Background(), successEvent())
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	u := repo.users[42]
	assert.Equal(t, plans.TierPro, u.Tier)
	require.NotNil(t, u.SubscriptionEnd)

	// Expiry is about one year out.
	wantEnd := before.AddDate(0, 0, 365)
	assert.WithinDuration(t, wantEnd, *u.SubscriptionEnd, time.Minute)

	p := repo.payments["PRO_42_169900"]
	require.NotNil(t, p)
	assert.Equal(t, billing.PaymentSucceeded, p.Status)

	sub := repo.subscriptions[[2]uint{42, 2}]
	require.NotNil(t, sub)
	assert.Equal(t, billing.SubscriptionActive, sub.Status)
}

func TestDuplicateDeliveryIsNoOp(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser(&users.User{ID: 42, Email: "u42@example.com"})
	rec := New(repo)

	first, err := rec.Apply(context.Background(), successEvent())
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, first)

	second, err := rec.Apply(context.Background(), successEvent())
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, second)

	assert.Len(t, repo.payments, 1)
	assert.Equal(t, 1, repo.entitleCalls, "tier transition must apply exactly once")
}

func TestPendingPaymentIsCompleted(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser(&users.User{ID: 42, Email: "u42@example.com"})
	planID := uint(2)
	repo.payments["PRO_42_169900"] = &billing.Payment{
		Provider:       "senangpay",
		GatewayOrderID: "PRO_42_169900",
		UserID:         42,
		PlanID:         &planID,
		Status:         billing.PaymentPending,
	}
	rec := New(repo)

	outcome, err := rec.Apply(context.Background(), successEvent())
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)
	assert.Equal(t, billing.PaymentSucceeded, repo.payments["PRO_42_169900"].Status)
	assert.Equal(t, plans.TierPro, repo.users[42].Tier)
	assert.Len(t, repo.payments, 1)
}

// If the tier transition fails after the payment row exists, the payment
// must stay pending so the provider's retry can finish the promotion
// instead of being swallowed as a duplicate.
func TestRetryAfterEntitlementFailureCompletesPromotion(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser(&users.User{ID: 42, Email: "u42@example.com"})
	repo.failComplete = errors.New("connection reset")
	rec := New(repo)

	_, err := rec.Apply(context.Background(), successEvent())
	require.Error(t, err, "the delivery must surface the failure so the provider retries")
	require.Equal(t, billing.PaymentPending, repo.payments["PRO_42_169900"].Status)
	require.Equal(t, plans.TierFree, repo.users[42].Tier)

	outcome, err := rec.Apply(context.Background(), successEvent())
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)
	assert.Equal(t, plans.TierPro, repo.users[42].Tier)
	assert.Equal(t, billing.PaymentSucceeded, repo.payments["PRO_42_169900"].Status)
	assert.Equal(t, 1, repo.entitleCalls)
}

// A concurrent delivery can win the insert between our lookup and our
// create; the duplicate-key error must resolve to the idempotent path.
func TestInsertRaceResolvesAsDuplicate(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser(&users.User{ID: 42, Email: "u42@example.com"})

	raced := &raceRepo{fakeRepo: repo}
	outcome, err := New(raced).Apply(context.Background(), successEvent())
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Equal(t, 1, repo.entitleCalls, "the winning delivery entitled; the loser must not")
}

// raceRepo simulates another delivery completing between the reconciler's
// lookup and its insert.
type raceRepo struct {
	*fakeRepo
	raced bool
}

func (r *raceRepo) CreatePayment(ctx context.Context, p *billing.Payment) error {
	if !r.raced {
		r.raced = true
		winner := successEvent()
		if _, err := New(r.fakeRepo).Apply(ctx, winner); err != nil {
			return err
		}
	}
	return r.fakeRepo.CreatePayment(ctx, p)
}

func TestFailureRecordsStatusWithoutTierChange(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser(&users.User{ID: 7, Email: "u7@example.com"})
	rec := New(repo)

	ev := Event{
		Provider:       "senangpay",
		Kind:           PaymentFailedEvent,
		GatewayOrderID: "PRO_7_169900",
		UserID:         7,
		PlanCode:       plans.TierPro,
		Amount:         1699.00,
		Currency:       "MYR",
		RawStatus:      "0",
	}
	outcome, err := rec.Apply(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	assert.Equal(t, billing.PaymentFailed, repo.payments["PRO_7_169900"].Status)
	assert.Equal(t, plans.TierFree, repo.users[7].Tier)
	assert.Zero(t, repo.entitleCalls)
}

func TestCancellationDemotesToFree(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser(&users.User{ID: 42, Email: "u42@example.com"})
	rec := New(repo)

	_, err := rec.Apply(context.Background(), successEvent())
	require.NoError(t, err)
	require.Equal(t, plans.TierPro, repo.users[42].Tier)

	outcome, err := rec.Apply(context.Background(), Event{
		Provider:              "stripe",
		Kind:                  SubscriptionCanceledEvent,
		GatewaySubscriptionID: "sp_sub_42",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	assert.Equal(t, plans.TierFree, repo.users[42].Tier)
	assert.Equal(t, billing.SubscriptionCanceled, repo.subscriptions[[2]uint{42, 2}].Status)
}

func TestCancellationForUnknownSubscriptionIsAcknowledged(t *testing.T) {
	repo := newFakeRepo()
	rec := New(repo)

	outcome, err := rec.Apply(context.Background(), Event{
		Kind:                  SubscriptionCanceledEvent,
		GatewaySubscriptionID: "sp_sub_missing",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
}

func TestUnknownUserIsAcknowledgedWithoutEffect(t *testing.T) {
	repo := newFakeRepo()
	rec := New(repo)

	outcome, err := rec.Apply(context.Background(), successEvent())
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
	assert.Empty(t, repo.payments)
}

func TestPersistenceErrorPropagatesForRetry(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser(&users.User{ID: 42, Email: "u42@example.com"})
	repo.failNext = errors.New("connection refused")
	rec := New(repo)

	_, err := rec.Apply(context.Background(), successEvent())
	require.Error(t, err, "transient persistence failure must surface so the provider retries")
}
