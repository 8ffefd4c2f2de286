// Package webhooks exposes the payment-provider callback endpoints.
// Both handlers verify the provider signature before touching any
// state, then hand a normalized event to the reconciler. Request
// bodies are never run through the HTML sanitizer: signatures are
// computed over the raw bytes.
package webhooks

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"rumina-backend/config"
	"rumina-backend/internal/billing/reconcile"
	stripestatus "rumina-backend/internal/infra/stripe"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"
)

const maxWebhookBody = 65536

// StripeWebhook verifies the Stripe-Signature header over the raw body
// and applies the event. Unknown event types are acknowledged so Stripe
// stops redelivering them; persistence failures return 500 so it
// retries.
func StripeWebhook(rec *reconcile.Reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		endpointSecret := config.STRIPE_WEBHOOK_SECRET
		if endpointSecret == "" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook secret not configured"})
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
			return
		}

		event, err := webhook.ConstructEventWithOptions(
			payload,
			c.GetHeader("Stripe-Signature"),
			endpointSecret,
			webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
		)
		if err != nil {
			log.Println("stripe webhook: signature verification failed")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
			return
		}

		ev, ok, err := stripeEvent(event)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse event payload"})
			return
		}
		if !ok {
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}

		outcome, err := rec.Apply(c.Request.Context(), ev)
		if err != nil {
			log.Printf("stripe webhook %s: %v", event.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Event processing failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": string(outcome)})
	}
}

// stripeEvent maps a verified Stripe event onto a reconciler event.
// ok is false for event types the app does not act on.
func stripeEvent(event stripe.Event) (reconcile.Event, bool, error) {
	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return reconcile.Event{}, false, err
		}
		ev := reconcile.Event{
			Provider:       "stripe",
			Kind:           reconcile.PaymentSucceededEvent,
			GatewayOrderID: session.ID,
			Amount:         float64(session.AmountTotal) / 100,
			Currency:       string(session.Currency),
			PlanCode:       session.Metadata["plan_code"],
		}
		if session.ClientReferenceID != "" {
			if uid, err := strconv.ParseUint(session.ClientReferenceID, 10, 64); err == nil {
				ev.UserID = uint(uid)
			}
		}
		if session.Customer != nil {
			ev.StripeCustomerID = session.Customer.ID
		}
		if session.CustomerEmail != "" {
			ev.Email = session.CustomerEmail
		}
		if session.Subscription != nil {
			ev.GatewaySubscriptionID = session.Subscription.ID
			if session.Subscription.CurrentPeriodEnd > 0 {
				end := time.Unix(session.Subscription.CurrentPeriodEnd, 0)
				ev.PeriodEnd = &end
			}
		}
		return ev, true, nil

	case "invoice.payment_failed":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return reconcile.Event{}, false, err
		}
		ev := reconcile.Event{
			Provider:       "stripe",
			Kind:           reconcile.PaymentFailedEvent,
			GatewayOrderID: invoice.ID,
			Amount:         float64(invoice.AmountDue) / 100,
			Currency:       string(invoice.Currency),
		}
		if invoice.Customer != nil {
			ev.StripeCustomerID = invoice.Customer.ID
		}
		if invoice.Subscription != nil {
			ev.GatewaySubscriptionID = invoice.Subscription.ID
		}
		return ev, true, nil

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return reconcile.Event{}, false, err
		}
		return reconcile.Event{
			Provider:              "stripe",
			Kind:                  reconcile.SubscriptionCanceledEvent,
			GatewaySubscriptionID: sub.ID,
			RawStatus:             string(sub.Status),
		}, true, nil

	case "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return reconcile.Event{}, false, err
		}
		// Only lapses matter here; renewals arrive via invoices.
		if stripestatus.NormalizeStatus(string(sub.Status)) != "CANCELED" {
			return reconcile.Event{}, false, nil
		}
		return reconcile.Event{
			Provider:              "stripe",
			Kind:                  reconcile.SubscriptionCanceledEvent,
			GatewaySubscriptionID: sub.ID,
			RawStatus:             string(sub.Status),
		}, true, nil

	default:
		return reconcile.Event{}, false, nil
	}
}
