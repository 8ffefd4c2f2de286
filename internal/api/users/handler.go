package users

import (
	"net/http"

	"rumina-backend/database"
	"rumina-backend/internal/domain/finance"
	"rumina-backend/internal/domain/users"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UpdateProfile lets the caller change their display name.
func UpdateProfile(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var body struct {
		Name string `json:"name" binding:"required,min=1,max=100"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := database.DB.Model(&users.User{}).
		Where("id = ?", userID).
		Update("name", body.Name).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile updated"})
}

// DeleteAccount removes the user and all of their financial records.
func DeleteAccount(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&finance.Transaction{},
			&finance.Goal{},
			&finance.DiaryEntry{},
			&finance.InsightReport{},
		} {
			if err := tx.Where("user_id = ?", userID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&users.User{}, userID).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete account"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}
