package finance

import "time"

// DiaryEntry is a free-text journal entry with an optional generated
// reflection attached at creation time.
type DiaryEntry struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;index:idx_diary_entries_user_id"`
	Mood      string `gorm:"type:varchar(50);default:'Neutral'"`
	Content   string `gorm:"not null"`
	AIInsight string
	CreatedAt time.Time
	UpdatedAt time.Time
}
