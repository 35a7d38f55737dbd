package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// This function will Load the ENVIORNMENT VARIABLES from .env if GO_ENV variable is not set
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil {
			return err
		}
	}

	return nil
}

type EnviornmentVariable struct {
	GO_ENV       string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	PORT         int
	LOG_FILE     string
	// Calendar days (due dates, reminders) are computed in this zone
	APP_TIMEZONE string
	Location     *time.Location
	// CORS and rate limiting
	ALLOWED_ORIGINS     string
	RATE_LIMIT_REQUESTS int
	// JWT Configuration
	JWT_SECRET string
	JWT_ISSUER string
	// Redis Configuration
	REDIS_URL string
	// Scheduled jobs
	CRON_ENABLED        bool
	REMINDER_DAYS_AHEAD int
	// Payment gateway
	MIDTRANS_SERVER_KEY  string
	MIDTRANS_CLIENT_KEY  string
	MIDTRANS_ENVIRONMENT string
	// Email: SendGrid when the key is set, SMTP otherwise
	SENDGRID_API_KEY string
	SMTP_HOST        string
	SMTP_PORT        string
	SMTP_USERNAME    string
	SMTP_PASSWORD    string
	FROM_EMAIL       string
	FROM_NAME        string
	// DigitalOcean Spaces (report exports)
	DO_SPACES_ACCESS_KEY   string
	DO_SPACES_SECRET_KEY   string
	DO_SPACES_BUCKET       string
	DO_SPACES_REGION       string
	DO_SPACES_ENDPOINT     string
	DO_SPACES_CDN_ENDPOINT string
	// Seed admin account
	ADMIN_EMAIL    string
	ADMIN_PASSWORD string
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getenvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func Get() (*EnviornmentVariable, error) {
	timezone := getenv("APP_TIMEZONE", "Local")
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", timezone, err)
	}

	reminderDays := getenvInt("REMINDER_DAYS_AHEAD", 3)
	if reminderDays < 0 {
		return nil, fmt.Errorf("REMINDER_DAYS_AHEAD must not be negative")
	}

	envVariables := &EnviornmentVariable{
		GO_ENV:       os.Getenv("GO_ENV"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      getenv("DB_HOST", "localhost"),
		DB_PORT:      getenv("DB_PORT", "5432"),
		DB_SSL_MODE:  getenv("DB_SSL_MODE", "disable"),
		PORT:         getenvInt("PORT", 8080),
		LOG_FILE:     os.Getenv("LOG_FILE"),
		APP_TIMEZONE: timezone,
		Location:     location,
		// HTTP
		ALLOWED_ORIGINS:     getenv("ALLOWED_ORIGINS", "http://localhost:3000"),
		RATE_LIMIT_REQUESTS: getenvInt("RATE_LIMIT_REQUESTS", 100),
		// JWT
		JWT_SECRET: os.Getenv("JWT_SECRET"),
		JWT_ISSUER: getenv("JWT_ISSUER", "fee-management"),
		// Redis
		REDIS_URL: os.Getenv("REDIS_URL"),
		// Cron
		CRON_ENABLED:        getenvBool("CRON_ENABLED", true),
		REMINDER_DAYS_AHEAD: reminderDays,
		// Midtrans
		MIDTRANS_SERVER_KEY:  os.Getenv("MIDTRANS_SERVER_KEY"),
		MIDTRANS_CLIENT_KEY:  os.Getenv("MIDTRANS_CLIENT_KEY"),
		MIDTRANS_ENVIRONMENT: getenv("MIDTRANS_ENVIRONMENT", "sandbox"),
		// Email
		SENDGRID_API_KEY: os.Getenv("SENDGRID_API_KEY"),
		SMTP_HOST:        os.Getenv("SMTP_HOST"),
		SMTP_PORT:        getenv("SMTP_PORT", "587"),
		SMTP_USERNAME:    os.Getenv("SMTP_USERNAME"),
		SMTP_PASSWORD:    os.Getenv("SMTP_PASSWORD"),
		FROM_EMAIL:       getenv("FROM_EMAIL", "no-reply@fee-management.local"),
		FROM_NAME:        getenv("FROM_NAME", "Fee Management"),
		// DigitalOcean
		DO_SPACES_ACCESS_KEY:   os.Getenv("DO_SPACES_ACCESS_KEY"),
		DO_SPACES_SECRET_KEY:   os.Getenv("DO_SPACES_SECRET_KEY"),
		DO_SPACES_BUCKET:       os.Getenv("DO_SPACES_BUCKET"),
		DO_SPACES_REGION:       os.Getenv("DO_SPACES_REGION"),
		DO_SPACES_ENDPOINT:     os.Getenv("DO_SPACES_ENDPOINT"),
		DO_SPACES_CDN_ENDPOINT: os.Getenv("DO_SPACES_CDN_ENDPOINT"),
		// Seed
		ADMIN_EMAIL:    getenv("ADMIN_EMAIL", "admin@example.com"),
		ADMIN_PASSWORD: getenv("ADMIN_PASSWORD", "admin12345"),
	}

	return envVariables, nil
}

// Today returns the current calendar day's instant in the configured zone
func (e *EnviornmentVariable) Today() time.Time {
	loc := e.Location
	if loc == nil {
		loc = time.Local
	}
	return time.Now().In(loc)
}

// IsProduction reports whether GO_ENV selects production
func (e *EnviornmentVariable) IsProduction() bool {
	return e.GO_ENV == "production"
}
