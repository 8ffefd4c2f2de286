package plans

type Plan struct {
	ID            uint   `gorm:"primaryKey"`
	Code          string `gorm:"column:code;not null;uniqueIndex:idx_plans_code"` // "FREE" | "PRO"
	Name          string
	PriceMYR      float64
	Interval      string // "year" for PRO, empty for FREE
	DurationDays  int    // entitlement length granted per successful payment
	StripePriceID *string `gorm:"column:stripe_price_id;uniqueIndex:idx_plans_stripe_price_id"`
}
