package database

import (
	"fmt"
	"log"
	"os"

	"rumina-backend/internal/domain/billing"
	"rumina-backend/internal/domain/finance"
	"rumina-backend/internal/domain/plans"
	"rumina-backend/internal/domain/users"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB() {
	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		log.Fatal("DB_URL not set")
	}

	// TranslateError lets unique-index violations surface as
	// gorm.ErrDuplicatedKey, which the webhook reconciler relies on for
	// concurrent-delivery idempotency.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	DB = db

	if err := DB.AutoMigrate(
		&users.User{},
		&plans.Plan{},
		&billing.Payment{},
		&billing.Subscription{},

		&finance.Transaction{},
		&finance.Goal{},
		&finance.DiaryEntry{},
		&finance.InsightReport{},
	); err != nil {
		log.Fatal("AutoMigrate error:", err)
	}

	seedPlans()

	fmt.Println("Connected and migrated successfully")
}

// seedPlans inserts the two-plan catalog on first boot. Existing rows are
// left untouched so operators can adjust prices in place.
func seedPlans() {
	catalog := []plans.Plan{
		{Code: plans.TierFree, Name: "Free", PriceMYR: 0, Interval: "", DurationDays: 0},
		{Code: plans.TierPro, Name: "Rumina Pro", PriceMYR: 1699.00, Interval: "year", DurationDays: 365},
	}
	if priceID := os.Getenv("STRIPE_PRICE_ID_PRO"); priceID != "" {
		catalog[1].StripePriceID = &priceID
	}

	for _, p := range catalog {
		var existing plans.Plan
		if err := DB.Where("code = ?", p.Code).First(&existing).Error; err == nil {
			continue
		}
		if err := DB.Create(&p).Error; err != nil {
			log.Fatal("Failed to seed plan catalog:", err)
		}
	}
}
