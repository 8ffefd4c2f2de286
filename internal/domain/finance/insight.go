package finance

import "time"

// InsightReport stores one generated wellness evaluation so the history
// survives model/provider outages.
type InsightReport struct {
	ID             uint `gorm:"primaryKey"`
	UserID         uint `gorm:"not null;index:idx_insight_reports_user_id"`
	WellnessScore  int
	SavingsRate    int
	DebtManagement string
	EmergencyFund  string
	ExpenseControl string
	Summary        string
	CreatedAt      time.Time
}
