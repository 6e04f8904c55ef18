package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

func LoadEnv() error {
	// Try to load .env file if it exists (for local development).
	// In production the environment variables are set directly.
	if err := godotenv.Load(); err != nil {
		// .env file not found is not an error.
		return nil
	}
	return nil
}

// ValidateEnv checks that critical environment variables are set.
// Returns an error if any critical variable is missing.
func ValidateEnv() error {
	var missing []string

	if os.Getenv("JWT_SECRET") == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if os.Getenv("DATABASE_URL") == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return fmt.Errorf("critical environment variables not set: %v", missing)
	}

	// Non-critical variables - log warnings but don't fail
	if os.Getenv("CHATBOT_API_KEY") == "" {
		log.Println("WARNING: CHATBOT_API_KEY not set - the chatbot endpoint will reject all requests")
	}
	if os.Getenv("REDIS_ADDR") == "" {
		log.Println("WARNING: REDIS_ADDR not set - falling back to the in-process cache")
	}
	if os.Getenv("FRONTEND_URL") == "" {
		log.Println("WARNING: FRONTEND_URL not set - CORS may not work correctly")
	}

	return nil
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("WARNING: %s=%q is not an integer, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

// RetailChannelName is the canonical name of the storefront channel whose
// OUT events accrue commission.
func RetailChannelName() string {
	return GetEnv("RETAIL_CHANNEL_NAME", "storefront-retail")
}

// ActivityLogKeepDays is the retention window of the activity log pruner.
func ActivityLogKeepDays() int {
	return GetEnvInt("ACTIVITY_LOG_KEEP_DAYS", 7)
}

// DisplayZone is the civil zone day boundaries and report dates are
// rendered in. Timestamps are stored in UTC.
func DisplayZone() *time.Location {
	name := GetEnv("DISPLAY_TZ", "Asia/Bangkok")
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("WARNING: invalid DISPLAY_TZ %q, using UTC: %v", name, err)
		return time.UTC
	}
	return loc
}
