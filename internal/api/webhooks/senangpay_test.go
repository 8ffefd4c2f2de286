package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"rumina-backend/internal/billing/reconcile"
	"rumina-backend/internal/billing/senangpay"
	"rumina-backend/internal/domain/billing"
	"rumina-backend/internal/domain/plans"
	"rumina-backend/internal/domain/users"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	payments map[string]*billing.Payment
	users    map[uint]*users.User
	plans    map[string]*plans.Plan
	writes   int
}

func newMemRepo() *memRepo {
	pro := &plans.Plan{ID: 2, Code: plans.TierPro, Name: "Rumina Pro", PriceMYR: 1699, DurationDays: 365}
	return &memRepo{
		payments: map[string]*billing.Payment{},
		users: map[uint]*users.User{
			42: {ID: 42, Email: "amira@example.com", Tier: plans.TierFree},
		},
		plans: map[string]*plans.Plan{plans.TierPro: pro},
	}
}

func (m *memRepo) PaymentByOrderID(_ context.Context, orderID string) (*billing.Payment, error) {
	p, ok := m.payments[orderID]
	if !ok {
		return nil, reconcile.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memRepo) CreatePayment(_ context.Context, p *billing.Payment) error {
	if _, ok := m.payments[p.GatewayOrderID]; ok {
		return reconcile.ErrDuplicatePayment
	}
	m.writes++
	cp := *p
	m.payments[p.GatewayOrderID] = &cp
	return nil
}

func (m *memRepo) MarkPayment(_ context.Context, orderID, status string, gatewayTxnID *string) error {
	m.writes++
	if p, ok := m.payments[orderID]; ok {
		p.Status = status
		if gatewayTxnID != nil {
			p.GatewayTransactionID = gatewayTxnID
		}
	}
	return nil
}

func (m *memRepo) PlanByCode(_ context.Context, code string) (*plans.Plan, error) {
	p, ok := m.plans[code]
	if !ok {
		return nil, reconcile.ErrNotFound
	}
	return p, nil
}

func (m *memRepo) UserByID(_ context.Context, id uint) (*users.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, reconcile.ErrNotFound
	}
	return u, nil
}

func (m *memRepo) UserByEmail(_ context.Context, email string) (*users.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, reconcile.ErrNotFound
}

func (m *memRepo) UserByStripeCustomerID(_ context.Context, customerID string) (*users.User, error) {
	for _, u := range m.users {
		if u.StripeCustomerID != nil && *u.StripeCustomerID == customerID {
			return u, nil
		}
	}
	return nil, reconcile.ErrNotFound
}

func (m *memRepo) CompleteSuccess(_ context.Context, orderID string, gatewayTxnID *string, userID uint, plan *plans.Plan, periodEnd time.Time, _ *string) error {
	m.writes++
	if p, ok := m.payments[orderID]; ok {
		p.Status = billing.PaymentSucceeded
		if gatewayTxnID != nil {
			p.GatewayTransactionID = gatewayTxnID
		}
	}
	u := m.users[userID]
	u.Tier = plans.PlanTier(plan)
	u.PlanID = &plan.ID
	u.SubscriptionEnd = &periodEnd
	return nil
}

func (m *memRepo) CancelByGatewaySubscriptionID(_ context.Context, gatewaySubID string) error {
	for _, u := range m.users {
		if u.GatewaySubscriptionID != nil && *u.GatewaySubscriptionID == gatewaySubID {
			m.writes++
			u.Tier = plans.TierFree
			u.PlanID = nil
			return nil
		}
	}
	return reconcile.ErrNotFound
}

const testSecret = "sp-test-secret"

func signedForm(t *testing.T, statusID, orderID, txnID, msg string) url.Values {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(statusID + orderID + txnID + msg))

	form := url.Values{}
	form.Set("status_id", statusID)
	form.Set("order_id", orderID)
	form.Set("transaction_id", txnID)
	form.Set("msg", msg)
	form.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return form
}

func newCallbackRouter(repo reconcile.Repository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	gateway := senangpay.New("merchant-1", testSecret)
	r := gin.New()
	r.POST("/webhooks/senangpay", SenangPayCallback(gateway, reconcile.New(repo)))
	return r
}

func TestSenangPayCallbackPromotesUser(t *testing.T) {
	repo := newMemRepo()
	router := newCallbackRouter(repo)

	form := signedForm(t, "1", "PRO_42_169900", "txn-881", "Payment_was_successful")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/senangpay", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	user := repo.users[42]
	assert.Equal(t, plans.TierPro, user.Tier)
	require.NotNil(t, user.SubscriptionEnd)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 365), *user.SubscriptionEnd, time.Minute)

	payment := repo.payments["PRO_42_169900"]
	require.NotNil(t, payment)
	assert.Equal(t, billing.PaymentSucceeded, payment.Status)
}

func TestSenangPayCallbackRejectsBadHashBeforePersisting(t *testing.T) {
	repo := newMemRepo()
	router := newCallbackRouter(repo)

	form := signedForm(t, "1", "PRO_42_169900", "txn-881", "Payment_was_successful")
	form.Set("hash", strings.Repeat("0", 64))
	req := httptest.NewRequest(http.MethodPost, "/webhooks/senangpay", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, repo.writes)
	assert.Equal(t, plans.TierFree, repo.users[42].Tier)
}

func TestSenangPayCallbackRedeliveryIsAcknowledged(t *testing.T) {
	repo := newMemRepo()
	router := newCallbackRouter(repo)

	form := signedForm(t, "1", "PRO_42_169900", "txn-881", "Payment_was_successful")

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/senangpay", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	// One create, one completion; the redelivery wrote nothing.
	assert.Equal(t, 2, repo.writes)
}

func TestSenangPayCallbackFailedStatusDoesNotPromote(t *testing.T) {
	repo := newMemRepo()
	router := newCallbackRouter(repo)

	form := signedForm(t, "0", "PRO_42_169900", "txn-882", "Payment_failed")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/senangpay", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, plans.TierFree, repo.users[42].Tier)

	payment := repo.payments["PRO_42_169900"]
	require.NotNil(t, payment)
	assert.Equal(t, billing.PaymentFailed, payment.Status)
}
