package webhooks

import (
	"errors"
	"log"
	"net/http"

	"rumina-backend/internal/billing/reconcile"
	"rumina-backend/internal/billing/senangpay"

	"github.com/gin-gonic/gin"
)

// SenangPayCallback handles the gateway's form-encoded payment
// notification. The hash is verified before anything is written; a bad
// hash is rejected with 400 and leaves no trace in the database.
func SenangPayCallback(gateway *senangpay.Gateway, rec *reconcile.Reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		cb := senangpay.Callback{
			StatusID:      c.PostForm("status_id"),
			OrderID:       c.PostForm("order_id"),
			TransactionID: c.PostForm("transaction_id"),
			Msg:           c.PostForm("msg"),
			Hash:          c.PostForm("hash"),
		}
		// The gateway also redirects the buyer here with GET.
		if cb.OrderID == "" {
			cb = senangpay.Callback{
				StatusID:      c.Query("status_id"),
				OrderID:       c.Query("order_id"),
				TransactionID: c.Query("transaction_id"),
				Msg:           c.Query("msg"),
				Hash:          c.Query("hash"),
			}
		}

		ev, err := gateway.ToEvent(cb)
		if err != nil {
			if errors.Is(err, senangpay.ErrInvalidSignature) {
				log.Printf("senangpay callback: invalid hash for order %q", cb.OrderID)
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed callback"})
			return
		}

		outcome, err := rec.Apply(c.Request.Context(), ev)
		if err != nil {
			log.Printf("senangpay callback %s: %v", ev.GatewayOrderID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Event processing failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": string(outcome)})
	}
}
