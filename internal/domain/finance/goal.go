package finance

import "time"

// Goal statuses, derived from saved/target ratio on every progress update.
const (
	GoalOnTrack   = "On Track"
	GoalBehind    = "Behind"
	GoalCompleted = "Completed"
)

type Goal struct {
	ID           uint   `gorm:"primaryKey"`
	UserID       uint   `gorm:"not null;index:idx_goals_user_id"`
	Title        string `gorm:"not null"`
	Category     string
	TargetAmount float64 `gorm:"not null"`
	SavedAmount  float64
	TargetDate   time.Time
	Status       string `gorm:"type:varchar(20);not null;default:'On Track'"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProgressStatus returns the status for a saved/target pair.
func ProgressStatus(saved, target float64) string {
	switch {
	case target > 0 && saved >= target:
		return GoalCompleted
	case target > 0 && saved/target >= 0.7:
		return GoalOnTrack
	default:
		return GoalBehind
	}
}
