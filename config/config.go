package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

var (
	PORT           string
	DB_URL         string
	JWT_SECRET     string
	ENCRYPTION_KEY string

	STRIPE_SECRET_KEY     string
	STRIPE_WEBHOOK_SECRET string

	SENANGPAY_MERCHANT_ID string
	SENANGPAY_SECRET_KEY  string

	GROQ_API_KEY string

	GOOGLE_CLIENT_ID         string
	GOOGLE_CLIENT_SECRET     string
	GOOGLE_REDIRECT_URL      string
	GOOGLE_FRONTEND_REDIRECT string

	APP_URL     string
	CORS_ORIGIN string
)

// LoadEnv reads the .env file (if any) and populates the package globals.
// Secrets (JWT, encryption, webhook keys) are held in memory only and
// must never be written to logs or responses.
func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	PORT = getEnv("PORT", "8080")
	DB_URL = mustEnv("DB_URL")
	JWT_SECRET = mustEnv("JWT_SECRET")
	ENCRYPTION_KEY = mustEnv("ENCRYPTION_KEY")

	STRIPE_SECRET_KEY = mustEnv("STRIPE_SECRET_KEY")
	STRIPE_WEBHOOK_SECRET = mustEnv("STRIPE_WEBHOOK_SECRET")

	SENANGPAY_MERCHANT_ID = getEnv("SENANGPAY_MERCHANT_ID", "")
	SENANGPAY_SECRET_KEY = getEnv("SENANGPAY_SECRET_KEY", "")

	GROQ_API_KEY = getEnv("GROQ_API_KEY", "")

	GOOGLE_CLIENT_ID = getEnv("GOOGLE_CLIENT_ID", "")
	GOOGLE_CLIENT_SECRET = getEnv("GOOGLE_CLIENT_SECRET", "")
	GOOGLE_REDIRECT_URL = getEnv("GOOGLE_REDIRECT_URL", "")
	GOOGLE_FRONTEND_REDIRECT = getEnv("GOOGLE_FRONTEND_REDIRECT", "")

	APP_URL = getEnv("APP_URL", "http://localhost:5173")
	CORS_ORIGIN = getEnv("CORS_ORIGIN", "http://localhost:5173")
}

func mustEnv(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("Missing required environment variable: %s", key)
	}
	return v
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
