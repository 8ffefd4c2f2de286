package routes

import (
	"rumina-backend/config"
	"rumina-backend/database"
	adminapi "rumina-backend/internal/api/admin"
	authapi "rumina-backend/internal/api/auth"
	"rumina-backend/internal/api/billing"
	"rumina-backend/internal/api/diary"
	"rumina-backend/internal/api/goals"
	"rumina-backend/internal/api/insights"
	plansapi "rumina-backend/internal/api/plans"
	"rumina-backend/internal/api/transactions"
	usersapi "rumina-backend/internal/api/users"
	"rumina-backend/internal/api/webhooks"
	"rumina-backend/internal/app/http/middleware"
	"rumina-backend/internal/billing/reconcile"
	"rumina-backend/internal/billing/senangpay"
	"rumina-backend/internal/fieldcrypt"
	"rumina-backend/internal/infra/groq"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine) {
	codec := fieldcrypt.New(config.ENCRYPTION_KEY)
	llm := groq.New(config.GROQ_API_KEY)
	gateway := senangpay.New(config.SENANGPAY_MERCHANT_ID, config.SENANGPAY_SECRET_KEY)
	reconciler := reconcile.NewFromDB(database.DB)

	// Webhooks stay outside the sanitizer group: signatures are computed
	// over the raw request bytes.
	r.POST("/webhooks/stripe", webhooks.StripeWebhook(reconciler))
	r.POST("/webhooks/senangpay", webhooks.SenangPayCallback(gateway, reconciler))
	r.GET("/webhooks/senangpay", webhooks.SenangPayCallback(gateway, reconciler))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())

	public.POST("/register", authapi.Register)
	public.POST("/login", authapi.Login)
	public.GET("/plans", plansapi.ListPlans)

	public.GET("/auth/google", authapi.GoogleStart)
	public.GET("/auth/google/callback", authapi.GoogleCallback)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(), middleware.SanitizeAndCleanInputMiddleware())
	auth.GET("/me", authapi.GetCurrentUser)
	auth.POST("/change-password", authapi.ChangePassword)
	auth.PUT("/profile", usersapi.UpdateProfile)
	auth.DELETE("/account", usersapi.DeleteAccount)

	auth.GET("/transactions", transactions.List(codec))
	auth.POST("/transactions", transactions.Create(codec))
	auth.DELETE("/transactions/:id", transactions.Delete)
	auth.GET("/transactions/summary", transactions.Summary(codec))

	auth.GET("/goals", goals.ListGoals)
	auth.POST("/goals", goals.CreateGoal)
	auth.PUT("/goals/:id/progress", goals.UpdateProgress)
	auth.DELETE("/goals/:id", goals.DeleteGoal)

	auth.GET("/diary", diary.ListEntries)
	auth.POST("/diary", diary.CreateEntry(llm))
	auth.DELETE("/diary/:id", diary.DeleteEntry)

	auth.GET("/payments", billing.GetPaymentHistory)
	auth.GET("/subscription", billing.GetSubscription)
	auth.POST("/create-checkout-session", billing.CreateCheckoutSession)
	auth.POST("/senangpay/checkout", billing.CreateSenangPayCheckout(gateway))
	auth.POST("/billing-portal", billing.CreateBillingPortal)

	// PRO features
	pro := auth.Group("/")
	pro.Use(middleware.RequireProTier())
	pro.GET("/dashboard", insights.Dashboard(codec))
	pro.POST("/insights", insights.Generate(codec, llm))
	pro.GET("/insights", insights.History)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RequireRole("admin"))
	admin.GET("/users", adminapi.ListAllUsers)
	admin.GET("/payments", adminapi.ListAllPayments)
	admin.GET("/stats", adminapi.GetAdminStats)
	admin.GET("/user/:id", adminapi.GetUserDetails)
}
