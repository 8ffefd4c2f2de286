package billing

import (
	"fmt"
	"net/http"

	"rumina-backend/config"
	"rumina-backend/database"
	"rumina-backend/internal/billing/senangpay"
	"rumina-backend/internal/domain/billing"
	"rumina-backend/internal/domain/plans"
	"rumina-backend/internal/domain/users"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	portalSession "github.com/stripe/stripe-go/v75/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v75/checkout/session"
	customer "github.com/stripe/stripe-go/v75/customer"
)

// CreateCheckoutSession starts a Stripe subscription checkout for the
// requested plan. The plan code is allow-listed against the plans table.
func CreateCheckoutSession(c *gin.Context) {
	var body struct {
		PlanCode string `json:"plan_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid plan_code"})
		return
	}

	stripe.Key = config.STRIPE_SECRET_KEY
	if stripe.Key == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stripe key not configured"})
		return
	}

	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	var plan plans.Plan
	if err := database.DB.Where("code = ?", plans.NormalizeTier(body.PlanCode)).First(&plan).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown plan"})
		return
	}
	if plan.StripePriceID == nil || *plan.StripePriceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Plan is not purchasable via Stripe"})
		return
	}

	var user users.User
	if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	// ensure stripe customer
	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		cus, err := customer.New(&stripe.CustomerParams{
			Email: stripe.String(user.Email),
			Metadata: map[string]string{
				"user_id": fmt.Sprint(user.ID),
			},
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Stripe customer"})
			return
		}

		if err := database.DB.Model(&users.User{}).
			Where("id = ?", user.ID).
			Update("stripe_customer_id", cus.ID).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store Stripe customer"})
			return
		}

		user.StripeCustomerID = stripe.String(cus.ID)
	}

	params := &stripe.CheckoutSessionParams{
		SuccessURL: stripe.String(config.APP_URL + "/account?upgraded=1"),
		CancelURL:  stripe.String(config.APP_URL + "/account?canceled=1"),
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:   stripe.String(*user.StripeCustomerID),

		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(*plan.StripePriceID), Quantity: stripe.Int64(1)},
		},

		ClientReferenceID: stripe.String(fmt.Sprint(user.ID)),

		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"user_id":   fmt.Sprint(user.ID),
				"plan_code": plan.Code,
			},
		},
	}
	// Session-level copy so the webhook can resolve the plan without a
	// follow-up API fetch.
	params.AddMetadata("user_id", fmt.Sprint(user.ID))
	params.AddMetadata("plan_code", plan.Code)

	s, err := checkoutsession.New(params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create checkout session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": s.URL})
}

// CreateSenangPayCheckout records a pending payment and returns the
// signed gateway URL the client should redirect to. The gateway calls
// back with the order id once the user pays.
func CreateSenangPayCheckout(gateway *senangpay.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			PlanCode string `json:"plan_code" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid plan_code"})
			return
		}

		userID := c.GetUint("user_id")
		if userID == 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
			return
		}

		var plan plans.Plan
		if err := database.DB.Where("code = ?", plans.NormalizeTier(body.PlanCode)).First(&plan).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown plan"})
			return
		}
		if plan.PriceMYR <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Plan has no price"})
			return
		}

		var user users.User
		if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}

		orderID := senangpay.OrderID(plan.Code, user.ID, plan.PriceMYR)

		payment := billing.Payment{
			Provider:       "senangpay",
			GatewayOrderID: orderID,
			UserID:         user.ID,
			PlanID:         &plan.ID,
			Amount:         plan.PriceMYR,
			Currency:       "MYR",
			Status:         billing.PaymentPending,
		}
		if err := database.DB.Create(&payment).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record payment"})
			return
		}

		url := gateway.PaymentURL(orderID, plan.PriceMYR, fmt.Sprintf("Rumina %s subscription", plan.Name), user.Email, user.Name)
		c.JSON(http.StatusOK, gin.H{"url": url, "order_id": orderID})
	}
}

// CreateBillingPortal opens the Stripe customer portal for
// subscription self-service.
func CreateBillingPortal(c *gin.Context) {
	stripe.Key = config.STRIPE_SECRET_KEY
	if stripe.Key == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stripe key not configured"})
		return
	}

	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	var user users.User
	if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}
	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "No Stripe customer yet (subscribe first)"})
		return
	}

	portal, err := portalSession.New(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(*user.StripeCustomerID),
		ReturnURL: stripe.String(config.APP_URL + "/account"),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create billing portal session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": portal.URL})
}
