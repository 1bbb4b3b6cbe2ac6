// internal/infrastructure/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// App
	AppVersion string
	LogLevel   string

	// Server
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MongoDB
	MongoURI      string
	MongoDB       string
	MongoUser     string
	MongoPassword string

	// Postgres
	PostgresDSN string

	// Mission store chain
	MissionStorePrimary string
	StoreTimeout        time.Duration
	StoreRetries        int

	// Crew backend
	CrewServiceURL     string
	CrewServiceToken   string
	CrewServiceTimeout time.Duration
	CrewServiceRetries int

	// Pollers
	AssignmentPollInterval time.Duration
	EscalationPollInterval time.Duration
	ValidationPollInterval time.Duration

	// Pricing
	DefaultMarginType    string
	DefaultMarginValue   float64
	AutoGenerateContract bool

	// Gmail
	GmailClientID     string
	GmailClientSecret string
	GmailRefreshToken string
	MailSender        string

	// Links in notifications and emails
	AdminAppURL string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		AppVersion:   getEnv("APP_VERSION", "1.0.0"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Port:         getEnv("PORT", "8080"),
		ReadTimeout:  getEnvAsSeconds("READ_TIMEOUT", 30),
		WriteTimeout: getEnvAsSeconds("WRITE_TIMEOUT", 30),

		MongoURI:      getEnv("MONGODB_DSN", ""),
		MongoDB:       getEnv("MONGO_DB", "crewmission"),
		MongoUser:     getEnv("MONGO_USER", ""),
		MongoPassword: getEnv("MONGO_PASSWORD", ""),

		PostgresDSN: getEnv("POSTGRES_DSN", ""),

		MissionStorePrimary: strings.ToLower(getEnv("MISSION_STORE_PRIMARY", "mongo")),
		StoreTimeout:        getEnvAsSeconds("STORE_TIMEOUT", 5),
		StoreRetries:        getEnvAsInt("STORE_RETRIES", 2),

		CrewServiceURL:     strings.TrimRight(getEnv("CREW_SERVICE_URL", ""), "/"),
		CrewServiceToken:   getEnv("CREW_SERVICE_TOKEN", ""),
		CrewServiceTimeout: getEnvAsSeconds("CREW_SERVICE_TIMEOUT", 30),
		CrewServiceRetries: getEnvAsInt("CREW_SERVICE_RETRIES", 2),

		AssignmentPollInterval: getEnvAsSeconds("ASSIGNMENT_POLL_INTERVAL", 30),
		EscalationPollInterval: getEnvAsSeconds("ESCALATION_POLL_INTERVAL", 300),
		ValidationPollInterval: getEnvAsSeconds("VALIDATION_POLL_INTERVAL", 900),

		DefaultMarginType:    getEnv("DEFAULT_MARGIN_TYPE", "percentage"),
		DefaultMarginValue:   getEnvAsFloat("DEFAULT_MARGIN_VALUE", 10),
		AutoGenerateContract: getEnvAsBool("AUTO_GENERATE_CONTRACT", true),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),
		MailSender:        getEnv("MAIL_SENDER", ""),

		AdminAppURL: strings.TrimRight(getEnv("ADMIN_APP_URL", "http://localhost:3000"), "/"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects settings the service cannot start with
func (c *Config) Validate() error {
	switch c.MissionStorePrimary {
	case "mongo", "postgres", "memory":
	default:
		return fmt.Errorf("MISSION_STORE_PRIMARY must be mongo, postgres or memory, got %q", c.MissionStorePrimary)
	}
	if c.MissionStorePrimary == "mongo" && c.MongoURI == "" {
		return fmt.Errorf("MONGODB_DSN is required when the primary mission store is mongo")
	}
	if c.MissionStorePrimary == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required when the primary mission store is postgres")
	}
	if c.DefaultMarginType != "percentage" && c.DefaultMarginType != "fixed" {
		return fmt.Errorf("DEFAULT_MARGIN_TYPE must be percentage or fixed, got %q", c.DefaultMarginType)
	}
	if c.AssignmentPollInterval <= 0 || c.EscalationPollInterval <= 0 || c.ValidationPollInterval <= 0 {
		return fmt.Errorf("poll intervals must be positive")
	}
	return nil
}

// GmailEnabled reports whether client emails can be sent through Gmail
func (c *Config) GmailEnabled() bool {
	return c.GmailClientID != "" && c.GmailClientSecret != "" && c.GmailRefreshToken != ""
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSeconds(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultValue)) * time.Second
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
