package finance

import "time"

// Transaction types.
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// Transaction is one income or expense record. Amount holds the
// fieldcrypt-encoded form ("ivhex:cthex"), never the plaintext number;
// handlers decode on the way out.
type Transaction struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      uint   `gorm:"not null;index:idx_transactions_user_id"`
	Type        string `gorm:"type:varchar(10);not null"`
	Category    string `gorm:"not null"`
	Amount      string `gorm:"not null"`
	Description string
	Date        time.Time `gorm:"index:idx_transactions_date"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
