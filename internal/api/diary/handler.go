package diary

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"rumina-backend/database"
	"rumina-backend/internal/domain/finance"
	"rumina-backend/internal/infra/groq"

	"github.com/gin-gonic/gin"
)

func ListEntries(c *gin.Context) {
	userID := c.GetUint("user_id")

	var entries []finance.DiaryEntry
	if err := database.DB.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch diary entries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// CreateEntry stores a diary entry and attaches a generated reflection.
// The reflection is best-effort: a model outage never blocks the write.
func CreateEntry(llm *groq.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("user_id")

		var input struct {
			Mood    string `json:"mood" binding:"max=50"`
			Content string `json:"content" binding:"required,min=3"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		mood := input.Mood
		if mood == "" {
			mood = "Neutral"
		}

		insight := generateReflection(c.Request.Context(), llm, mood, input.Content)

		entry := finance.DiaryEntry{
			UserID:    userID,
			Mood:      mood,
			Content:   input.Content,
			AIInsight: insight,
		}
		if err := database.DB.Create(&entry).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create diary entry"})
			return
		}

		c.JSON(http.StatusCreated, entry)
	}
}

func DeleteEntry(c *gin.Context) {
	userID := c.GetUint("user_id")

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid entry id"})
		return
	}

	var entry finance.DiaryEntry
	if err := database.DB.First(&entry, uint(id)).Error; err != nil || entry.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized or not found"})
		return
	}

	if err := database.DB.Delete(&entry).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete diary entry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func generateReflection(ctx context.Context, llm *groq.Client, mood, content string) string {
	if llm == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	prompt := fmt.Sprintf(
		"You are Rumina, an empathetic financial wellness coach. A user feeling %q wrote this diary entry:\n\n%s\n\nReply with one short, warm, practical reflection (2-3 sentences, plain text).",
		mood, content,
	)
	reply, err := llm.Complete(ctx, prompt)
	if err != nil {
		log.Println("diary reflection generation failed:", err)
		return ""
	}
	return reply
}
