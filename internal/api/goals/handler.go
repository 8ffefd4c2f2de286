package goals

import (
	"net/http"
	"strconv"
	"time"

	"rumina-backend/database"
	"rumina-backend/internal/domain/finance"

	"github.com/gin-gonic/gin"
)

func ListGoals(c *gin.Context) {
	userID := c.GetUint("user_id")

	var goals []finance.Goal
	if err := database.DB.Where("user_id = ?", userID).Order("target_date ASC").Find(&goals).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch goals"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"goals": goals})
}

func CreateGoal(c *gin.Context) {
	userID := c.GetUint("user_id")

	var input struct {
		Title        string    `json:"title" binding:"required"`
		Category     string    `json:"category"`
		TargetAmount float64   `json:"target_amount" binding:"required,gt=0"`
		TargetDate   time.Time `json:"target_date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	goal := finance.Goal{
		UserID:       userID,
		Title:        input.Title,
		Category:     input.Category,
		TargetAmount: input.TargetAmount,
		TargetDate:   input.TargetDate,
		Status:       finance.GoalOnTrack,
	}
	if err := database.DB.Create(&goal).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create goal"})
		return
	}

	c.JSON(http.StatusCreated, goal)
}

// UpdateProgress sets the saved amount and re-derives the goal status.
func UpdateProgress(c *gin.Context) {
	userID := c.GetUint("user_id")

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid goal id"})
		return
	}

	var input struct {
		SavedAmount float64 `json:"saved_amount" binding:"gte=0"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var goal finance.Goal
	if err := database.DB.First(&goal, uint(id)).Error; err != nil || goal.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized or not found"})
		return
	}

	goal.SavedAmount = input.SavedAmount
	goal.Status = finance.ProgressStatus(goal.SavedAmount, goal.TargetAmount)

	if err := database.DB.Model(&goal).Updates(map[string]interface{}{
		"saved_amount": goal.SavedAmount,
		"status":       goal.Status,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update goal"})
		return
	}

	c.JSON(http.StatusOK, goal)
}

func DeleteGoal(c *gin.Context) {
	userID := c.GetUint("user_id")

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid goal id"})
		return
	}

	var goal finance.Goal
	if err := database.DB.First(&goal, uint(id)).Error; err != nil || goal.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized or not found"})
		return
	}

	if err := database.DB.Delete(&goal).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete goal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
