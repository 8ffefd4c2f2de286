package middleware

import (
	"net/http"
	"time"

	"rumina-backend/database"
	"rumina-backend/internal/domain/plans"
	"rumina-backend/internal/domain/users"

	"github.com/gin-gonic/gin"
)

// RequireProTier gates routes behind an unexpired PRO subscription.
func RequireProTier() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("user_id")
		var user users.User

		if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "User not found",
			})
			return
		}

		if user.Tier != plans.TierPro {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "This feature requires a Pro subscription",
			})
			return
		}

		if user.SubscriptionEnd != nil && time.Now().After(*user.SubscriptionEnd) {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"error": "Your subscription has expired",
			})
			return
		}

		c.Next()
	}
}
