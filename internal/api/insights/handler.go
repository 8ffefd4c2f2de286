package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"rumina-backend/database"
	"rumina-backend/internal/domain/finance"
	"rumina-backend/internal/fieldcrypt"
	"rumina-backend/internal/infra/groq"

	"github.com/gin-gonic/gin"
)

type categoryTotal struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// Dashboard aggregates the user's transactions into an overview: income
// vs expense for the current month, lifetime savings, top categories.
func Dashboard(codec *fieldcrypt.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("user_id")

		var rows []finance.Transaction
		if err := database.DB.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load dashboard data"})
			return
		}

		now := time.Now()
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

		var monthlyIncome, monthlyExpenses, totalIncome, totalExpenses float64
		byCategory := map[string]float64{}

		for _, t := range rows {
			amount, err := codec.Decode(t.Amount)
			if err != nil {
				log.Printf("transaction %d: undecryptable amount: %v", t.ID, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Stored amount is unreadable"})
				return
			}

			if t.Type == finance.TypeIncome {
				totalIncome += amount
				if !t.Date.Before(monthStart) {
					monthlyIncome += amount
				}
				continue
			}

			totalExpenses += amount
			byCategory[t.Category] += amount
			if !t.Date.Before(monthStart) {
				monthlyExpenses += amount
			}
		}

		top := make([]categoryTotal, 0, len(byCategory))
		for cat, amount := range byCategory {
			top = append(top, categoryTotal{Category: cat, Amount: amount})
		}
		sort.Slice(top, func(i, j int) bool { return top[i].Amount > top[j].Amount })
		if len(top) > 5 {
			top = top[:5]
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"financial_overview": gin.H{
					"monthly_income":     monthlyIncome,
					"monthly_expenses":   monthlyExpenses,
					"savings_this_month": monthlyIncome - monthlyExpenses,
					"total_saved":        totalIncome - totalExpenses,
				},
				"charts": gin.H{
					"income_vs_expense": gin.H{
						"income":  monthlyIncome,
						"expense": monthlyExpenses,
					},
					"top_expense_categories": top,
				},
			},
		})
	}
}

type insightPayload struct {
	WellnessScore  int    `json:"wellnessScore"`
	SavingsRate    int    `json:"savingsRate"`
	DebtManagement string `json:"debtManagement"`
	EmergencyFund  string `json:"emergencyFund"`
	ExpenseControl string `json:"expenseControl"`
	Summary        string `json:"summary"`
}

// Generate asks the model for a wellness evaluation over the user's
// numbers and persists the report.
func Generate(codec *fieldcrypt.Codec, llm *groq.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("user_id")

		var input struct {
			MonthlyIncome   float64 `json:"monthly_income"`
			MonthlyExpenses float64 `json:"monthly_expenses"`
			TotalSaved      float64 `json:"total_saved"`
			TotalDebt       float64 `json:"total_debt"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// Fall back to the user's stored transactions when the client sent
		// no numbers.
		if input.MonthlyIncome == 0 && input.MonthlyExpenses == 0 {
			income, expenses, err := monthlyTotals(codec, userID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load financial data"})
				return
			}
			input.MonthlyIncome = income
			input.MonthlyExpenses = expenses
		}

		report := evaluate(c.Request.Context(), llm, input.MonthlyIncome, input.MonthlyExpenses, input.TotalSaved, input.TotalDebt)

		stored := finance.InsightReport{
			UserID:         userID,
			WellnessScore:  report.WellnessScore,
			SavingsRate:    report.SavingsRate,
			DebtManagement: report.DebtManagement,
			EmergencyFund:  report.EmergencyFund,
			ExpenseControl: report.ExpenseControl,
			Summary:        report.Summary,
		}
		if err := database.DB.Create(&stored).Error; err != nil {
			log.Println("insight report not stored:", err)
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "data": report})
	}
}

// History lists previously generated reports, newest first.
func History(c *gin.Context) {
	userID := c.GetUint("user_id")

	var reports []finance.InsightReport
	if err := database.DB.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(20).
		Find(&reports).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch insight history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

func monthlyTotals(codec *fieldcrypt.Codec, userID uint) (income, expenses float64, err error) {
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var rows []finance.Transaction
	if err := database.DB.
		Where("user_id = ? AND date >= ?", userID, monthStart).
		Find(&rows).Error; err != nil {
		return 0, 0, err
	}

	for _, t := range rows {
		amount, decErr := codec.Decode(t.Amount)
		if decErr != nil {
			return 0, 0, decErr
		}
		if t.Type == finance.TypeIncome {
			income += amount
		} else {
			expenses += amount
		}
	}
	return income, expenses, nil
}

const evaluationPrompt = `You are Rumina, an empathetic financial wellness coach.
Analyze this user's finances and answer with a single JSON object, no markdown:
{"wellnessScore": 0-100, "savingsRate": 0-100, "debtManagement": "...", "emergencyFund": "...", "expenseControl": "...", "summary": "..."}

Monthly income: RM %.2f
Monthly expenses: RM %.2f
Total saved: RM %.2f
Total debt: RM %.2f`

func evaluate(ctx context.Context, llm *groq.Client, income, expenses, saved, debt float64) insightPayload {
	fallback := insightPayload{
		DebtManagement: "No data available",
		EmergencyFund:  "No data available",
		ExpenseControl: "No data available",
		Summary:        "Insights are temporarily unavailable. Please try again later.",
	}
	if llm == nil {
		return fallback
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	reply, err := llm.Complete(ctx, fmt.Sprintf(evaluationPrompt, income, expenses, saved, debt))
	if err != nil {
		log.Println("insight generation failed:", err)
		return fallback
	}

	// Models occasionally wrap JSON in a code fence despite instructions.
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")

	var out insightPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(reply)), &out); err != nil {
		log.Println("insight response was not valid JSON:", err)
		fallback.Summary = reply
		return fallback
	}
	return out
}
