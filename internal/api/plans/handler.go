package plans

import (
	"net/http"

	"rumina-backend/database"
	"rumina-backend/internal/domain/plans"

	"github.com/gin-gonic/gin"
)

// ListPlans is public: the pricing page reads it before sign-up.
func ListPlans(c *gin.Context) {
	var rows []plans.Plan
	if err := database.DB.Order("price_myr ASC").Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plans"})
		return
	}

	type planView struct {
		Code         string  `json:"code"`
		Name         string  `json:"name"`
		PriceMYR     float64 `json:"price_myr"`
		Interval     string  `json:"interval"`
		DurationDays int     `json:"duration_days"`
	}

	out := make([]planView, 0, len(rows))
	for _, p := range rows {
		out = append(out, planView{
			Code:         p.Code,
			Name:         p.Name,
			PriceMYR:     p.PriceMYR,
			Interval:     p.Interval,
			DurationDays: p.DurationDays,
		})
	}

	c.JSON(http.StatusOK, out)
}
