package transactions

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"rumina-backend/database"
	"rumina-backend/internal/domain/finance"
	"rumina-backend/internal/fieldcrypt"

	"github.com/gin-gonic/gin"
)

type transactionDTO struct {
	ID          uint      `json:"id"`
	Type        string    `json:"type"`
	Category    string    `json:"category"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
}

// List returns the user's transactions, newest first, with decrypted
// amounts and pagination metadata.
func List(codec *fieldcrypt.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("user_id")

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		if page < 1 {
			page = 1
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if limit < 1 || limit > 100 {
			limit = 20
		}
		offset := (page - 1) * limit

		var rows []finance.Transaction
		if err := database.DB.
			Where("user_id = ?", userID).
			Order("date DESC").
			Offset(offset).
			Limit(limit).
			Find(&rows).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}

		var total int64
		if err := database.DB.Model(&finance.Transaction{}).
			Where("user_id = ?", userID).
			Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}

		out := make([]transactionDTO, 0, len(rows))
		for _, t := range rows {
			amount, err := codec.Decode(t.Amount)
			if err != nil {
				// Corrupt stored amount. Surface it rather than returning a
				// wrong number for a financial record.
				log.Printf("transaction %d: undecryptable amount: %v", t.ID, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Stored amount is unreadable"})
				return
			}
			out = append(out, transactionDTO{
				ID:          t.ID,
				Type:        t.Type,
				Category:    t.Category,
				Amount:      amount,
				Description: t.Description,
				Date:        t.Date,
			})
		}

		totalPages := (total + int64(limit) - 1) / int64(limit)
		c.JSON(http.StatusOK, gin.H{
			"data": out,
			"pagination": gin.H{
				"page":        page,
				"limit":       limit,
				"total":       total,
				"total_pages": totalPages,
			},
		})
	}
}

// createTransactionInput uses a pointer amount so a legitimate 0.00 is
// distinguishable from a missing field.
type createTransactionInput struct {
	Type        string     `json:"type" binding:"required,oneof=income expense"`
	Category    string     `json:"category" binding:"required"`
	Amount      *float64   `json:"amount" binding:"required,gte=0"`
	Description string     `json:"description" binding:"max=255"`
	Date        *time.Time `json:"date"`
}

// Create stores one transaction with the amount encrypted at rest.
func Create(codec *fieldcrypt.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("user_id")

		var input createTransactionInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		encrypted, err := codec.Encode(*input.Amount)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store amount"})
			return
		}

		date := time.Now()
		if input.Date != nil {
			date = *input.Date
		}

		txn := finance.Transaction{
			UserID:      userID,
			Type:        input.Type,
			Category:    input.Category,
			Amount:      encrypted,
			Description: input.Description,
			Date:        date,
		}
		if err := database.DB.Create(&txn).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create transaction"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"transaction": transactionDTO{
				ID:          txn.ID,
				Type:        txn.Type,
				Category:    txn.Category,
				Amount:      *input.Amount,
				Description: txn.Description,
				Date:        txn.Date,
			},
		})
	}
}

// Delete removes a transaction after verifying ownership.
func Delete(c *gin.Context) {
	userID := c.GetUint("user_id")

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction id"})
		return
	}

	var txn finance.Transaction
	if err := database.DB.First(&txn, uint(id)).Error; err != nil || txn.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized or not found"})
		return
	}

	if err := database.DB.Delete(&txn).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete transaction"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Summary totals income, expenses and savings over all of the user's
// transactions.
func Summary(codec *fieldcrypt.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("user_id")

		var rows []finance.Transaction
		if err := database.DB.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to calculate summary"})
			return
		}

		var income, expense float64
		for _, t := range rows {
			amount, err := codec.Decode(t.Amount)
			if err != nil {
				log.Printf("transaction %d: undecryptable amount: %v", t.ID, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Stored amount is unreadable"})
				return
			}
			if t.Type == finance.TypeIncome {
				income += amount
			} else {
				expense += amount
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"income":  income,
			"expense": expense,
			"savings": income - expense,
		})
	}
}
