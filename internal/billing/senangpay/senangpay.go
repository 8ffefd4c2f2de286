// Package senangpay implements the SenangPay side of the billing flow:
// signed payment URLs, callback parsing and hash verification.
package senangpay

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"rumina-backend/internal/billing/reconcile"
)

// ErrInvalidSignature means the callback hash did not match; the payload
// must not be trusted and no state may change.
var ErrInvalidSignature = errors.New("senangpay: invalid signature")

// ErrMalformedCallback means required callback fields were missing or the
// order id did not follow the PLAN_USER_CENTS convention.
var ErrMalformedCallback = errors.New("senangpay: malformed callback")

const statusPaid = "1"

type Gateway struct {
	MerchantID string
	secretKey  string
	BaseURL    string
}

func New(merchantID, secretKey string) *Gateway {
	return &Gateway{
		MerchantID: merchantID,
		secretKey:  secretKey,
		BaseURL:    "https://app.senangpay.my/payment",
	}
}

// OrderID builds the gateway order reference:
// "<PLAN>_<userID>_<cents>_<nonce>". The order id doubles as the
// idempotency key once the callback arrives, so the nonce keeps repeat
// purchases of the same plan distinct: without it a renewal would hash
// to the already-processed order and be swallowed as a duplicate.
func OrderID(planCode string, userID uint, amount float64) string {
	cents := int64(amount*100 + 0.5)
	nonce := make([]byte, 4)
	if _, err := rand.Read(nonce); err != nil {
		binary.BigEndian.PutUint32(nonce, uint32(time.Now().UnixNano()))
	}
	return fmt.Sprintf("%s_%d_%d_%s", strings.ToUpper(planCode), userID, cents, hex.EncodeToString(nonce))
}

// ParseOrderID reverses OrderID. The nonce segment is optional so
// three-segment references issued before it existed still parse.
func ParseOrderID(orderID string) (planCode string, userID uint, amount float64, err error) {
	parts := strings.Split(orderID, "_")
	if len(parts) != 3 && len(parts) != 4 {
		return "", 0, 0, ErrMalformedCallback
	}
	uid, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil || uid == 0 {
		return "", 0, 0, ErrMalformedCallback
	}
	cents, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || cents < 0 {
		return "", 0, 0, ErrMalformedCallback
	}
	if len(parts) == 4 {
		if _, err := hex.DecodeString(parts[3]); err != nil || parts[3] == "" {
			return "", 0, 0, ErrMalformedCallback
		}
	}
	return parts[0], uint(uid), float64(cents) / 100, nil
}

// PaymentURL builds the hosted-payment redirect for one order.
func (g *Gateway) PaymentURL(orderID string, amount float64, description, email, name string) string {
	amountStr := fmt.Sprintf("%.2f", amount)

	params := url.Values{}
	params.Set("detail", description)
	params.Set("amount", amountStr)
	params.Set("order_id", orderID)
	params.Set("name", name)
	params.Set("email", email)
	params.Set("hash", g.sign(description+amountStr+orderID))

	return fmt.Sprintf("%s/%s?%s", g.BaseURL, g.MerchantID, params.Encode())
}

// Callback is the decoded form body of a SenangPay return/webhook call.
type Callback struct {
	StatusID      string
	OrderID       string
	TransactionID string
	Msg           string
	Hash          string
}

// VerifyCallback recomputes the callback hash over the exact field order
// the gateway documents and compares in constant time.
func (g *Gateway) VerifyCallback(cb Callback) bool {
	if cb.Hash == "" || g.secretKey == "" {
		return false
	}
	got, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(cb.Hash)))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(g.secretKey))
	mac.Write([]byte(cb.StatusID + cb.OrderID + cb.TransactionID + cb.Msg))
	return hmac.Equal(mac.Sum(nil), got)
}

func (g *Gateway) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(g.secretKey))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// ToEvent verifies a callback and normalizes it for the reconciler.
// Signature verification happens here, before any persistence.
func (g *Gateway) ToEvent(cb Callback) (reconcile.Event, error) {
	if !g.VerifyCallback(cb) {
		return reconcile.Event{}, ErrInvalidSignature
	}
	if cb.OrderID == "" {
		return reconcile.Event{}, ErrMalformedCallback
	}

	planCode, userID, amount, err := ParseOrderID(cb.OrderID)
	if err != nil {
		return reconcile.Event{}, err
	}

	kind := reconcile.PaymentFailedEvent
	if cb.StatusID == statusPaid {
		kind = reconcile.PaymentSucceededEvent
	}

	return reconcile.Event{
		Provider:             "senangpay",
		Kind:                 kind,
		GatewayOrderID:       cb.OrderID,
		GatewayTransactionID: cb.TransactionID,
		UserID:               userID,
		PlanCode:             planCode,
		Amount:               amount,
		Currency:             "MYR",
		RawStatus:            cb.StatusID,
	}, nil
}
