package admin

import (
	"net/http"
	"time"

	"rumina-backend/database"
	"rumina-backend/internal/domain/billing"
	"rumina-backend/internal/domain/plans"
	"rumina-backend/internal/domain/users"

	"github.com/gin-gonic/gin"
)

type AdminUser struct {
	ID              uint       `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Role            string     `json:"role"`
	Tier            string     `json:"tier"`
	AuthProvider    string     `json:"auth_provider"`
	PlanName        *string    `json:"plan_name,omitempty"`
	SubscriptionEnd *time.Time `json:"subscription_end,omitempty"`
	CreatedAt       string     `json:"created_at"`
}

type AdminPayment struct {
	ID        uint    `json:"id"`
	Email     string  `json:"email"`
	Provider  string  `json:"provider"`
	OrderID   string  `json:"order_id"`
	PlanName  *string `json:"plan_name,omitempty"`
	AmountMYR float64 `json:"amount_myr"`
	Currency  string  `json:"currency"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"created_at"`
}

type AdminStats struct {
	TotalUsers    int            `json:"total_users"`
	ProUsers      int            `json:"pro_users"`
	TotalRevenue  float64        `json:"total_revenue"`
	RecentRevenue float64        `json:"recent_revenue"`
	UsersPerTier  map[string]int `json:"users_per_tier"`
}

func ListAllUsers(c *gin.Context) {
	var rows []users.User
	if err := database.DB.Preload("Plan").Order("created_at DESC").Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}

	var out []AdminUser
	for _, u := range rows {
		var planName *string
		if u.Plan != nil {
			planName = &u.Plan.Name
		}

		out = append(out, AdminUser{
			ID:              u.ID,
			Name:            u.Name,
			Email:           u.Email,
			Role:            u.Role,
			Tier:            u.Tier,
			AuthProvider:    u.AuthProvider,
			PlanName:        planName,
			SubscriptionEnd: u.SubscriptionEnd,
			CreatedAt:       u.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	c.JSON(http.StatusOK, out)
}

func ListAllPayments(c *gin.Context) {
	var rows []billing.Payment
	if err := database.DB.
		Preload("User").
		Preload("Plan").
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payments"})
		return
	}

	var out []AdminPayment
	for _, p := range rows {
		var planName *string
		if p.Plan != nil {
			planName = &p.Plan.Name
		}
		out = append(out, AdminPayment{
			ID:        p.ID,
			Email:     p.User.Email,
			Provider:  p.Provider,
			OrderID:   p.GatewayOrderID,
			PlanName:  planName,
			AmountMYR: p.Amount,
			Currency:  p.Currency,
			Status:    p.Status,
			CreatedAt: p.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	c.JSON(http.StatusOK, out)
}

func GetAdminStats(c *gin.Context) {
	var stats AdminStats

	var totalUsers, proUsers int64
	var totalRevenue, recentRevenue float64

	database.DB.Model(&users.User{}).Count(&totalUsers)
	database.DB.Model(&users.User{}).Where("tier = ?", plans.TierPro).Count(&proUsers)

	database.DB.Model(&billing.Payment{}).
		Where("status = ?", billing.PaymentSucceeded).
		Select("COALESCE(SUM(amount), 0)").Scan(&totalRevenue)

	thirtyDaysAgo := time.Now().AddDate(0, 0, -30)
	database.DB.Model(&billing.Payment{}).
		Where("status = ? AND created_at >= ?", billing.PaymentSucceeded, thirtyDaysAgo).
		Select("COALESCE(SUM(amount), 0)").Scan(&recentRevenue)

	stats.TotalUsers = int(totalUsers)
	stats.ProUsers = int(proUsers)
	stats.TotalRevenue = totalRevenue
	stats.RecentRevenue = recentRevenue

	type tierCount struct {
		Tier  string
		Count int
	}
	var counts []tierCount
	database.DB.
		Table("users").
		Select("tier, COUNT(id) as count").
		Group("tier").
		Scan(&counts)

	stats.UsersPerTier = map[string]int{}
	for _, tc := range counts {
		stats.UsersPerTier[tc.Tier] = tc.Count
	}

	c.JSON(http.StatusOK, stats)
}

func GetUserDetails(c *gin.Context) {
	userID := c.Param("id")

	var user users.User
	if err := database.DB.Preload("Plan").First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var payments []billing.Payment
	if err := database.DB.Preload("Plan").Where("user_id = ?", userID).Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":     user,
		"payments": payments,
	})
}
