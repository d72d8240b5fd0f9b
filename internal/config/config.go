package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the configuration for the application.
type Config struct {
	GeminiAPIKey        string
	StripeSecretKey     string
	StripeWebhookSecret string
	JWTSecret           string

	DatabasePath string
	Port         string
	AppBaseURL   string

	// Stripe price IDs offered on the pricing page, in display order.
	StripePriceIDs []string

	// Telegram admin notifications (optional)
	TelegramBotToken string
	TelegramAdminID  int64
}

// NewFromEnv creates a new Config object from environment variables.
// A .env file in the working directory is loaded first when present.
func NewFromEnv() (*Config, error) {
	_ = godotenv.Load()

	geminiAPIKey := os.Getenv("GEMINI_API_KEY")
	if geminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	stripeSecretKey := os.Getenv("STRIPE_SECRET_KEY")
	if stripeSecretKey == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY environment variable not set")
	}

	stripeWebhookSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	if stripeWebhookSecret == "" {
		return nil, fmt.Errorf("STRIPE_WEBHOOK_SECRET environment variable not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable not set")
	}

	databasePath := os.Getenv("DATABASE_PATH")
	if databasePath == "" {
		databasePath = "data/platewise.db"
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	appBaseURL := os.Getenv("APP_BASE_URL")
	if appBaseURL == "" {
		appBaseURL = "http://localhost:3000"
	}

	var priceIDs []string
	if raw := os.Getenv("STRIPE_PRICE_IDS"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				priceIDs = append(priceIDs, id)
			}
		}
	}

	telegramBotToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	var telegramAdminID int64
	if raw := os.Getenv("TELEGRAM_ADMIN_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_ADMIN_ID is not a valid integer: %w", err)
		}
		telegramAdminID = id
	}

	return &Config{
		GeminiAPIKey:        geminiAPIKey,
		StripeSecretKey:     stripeSecretKey,
		StripeWebhookSecret: stripeWebhookSecret,
		JWTSecret:           jwtSecret,
		DatabasePath:        databasePath,
		Port:                port,
		AppBaseURL:          appBaseURL,
		StripePriceIDs:      priceIDs,
		TelegramBotToken:    telegramBotToken,
		TelegramAdminID:     telegramAdminID,
	}, nil
}
