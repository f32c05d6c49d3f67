// internal/infrastructure/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Fare store backends
const (
	StoreCSV   = "csv"
	StoreMongo = "mongo"
)

// Config holds all configuration for the application
type Config struct {
	// App
	AppVersion string
	LogLevel   string
	LogFormat  string

	// Server
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Amadeus
	AmadeusClientID     string
	AmadeusClientSecret string
	AmadeusHostname     string
	AmadeusTimeout      time.Duration

	// Route and horizon
	Origin          string
	Dest            string
	TravelDate      string
	Currency        string
	Airlines        []string
	CheapestOnly    bool
	PartitionByDate bool
	StartDate       string
	MonthsAhead     int
	PerCallSleep    time.Duration
	Adults          int
	MaxOffers       int

	// Retry
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration

	// Storage
	DataDir   string
	FareStore string

	// Alerting
	AlertThresholdRatio float64
	RollingWindowDays   int
	NotifyEnabled       bool
	NotifyRecipient     string
	NotifySender        string
	AlertLogEnabled     bool

	// Gmail
	GmailClientID     string
	GmailClientSecret string
	GmailRefreshToken string

	// Webhook
	WebhookURL   string
	WebhookToken string

	// MongoDB
	MongoURI      string
	MongoDB       string
	MongoUser     string
	MongoPassword string

	// PostgreSQL lookup tables
	PostgresURI string

	// Redis date-scan cache
	RedisURL     string
	DateCacheTTL time.Duration

	// Watch mode
	RunInterval time.Duration
}

// LoadConfig loads configuration from environment variables. It does not
// validate; callers apply their overrides first and then call Validate.
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	// Set defaults and override with env vars
	config := &Config{
		AppVersion:   getEnv("APP_VERSION", "1.0.0"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "json"),
		Port:         getEnv("PORT", "8080"),
		ReadTimeout:  time.Duration(getEnvAsInt("READ_TIMEOUT", 30)) * time.Second,
		WriteTimeout: time.Duration(getEnvAsInt("WRITE_TIMEOUT", 30)) * time.Second,

		AmadeusClientID:     getEnv("AMADEUS_CLIENT_ID", ""),
		AmadeusClientSecret: getEnv("AMADEUS_CLIENT_SECRET", ""),
		AmadeusHostname:     getEnv("AMADEUS_HOSTNAME", "test"),
		AmadeusTimeout:      time.Duration(getEnvAsInt("AMADEUS_TIMEOUT", 30)) * time.Second,

		Origin:          strings.ToUpper(getEnv("ORIGIN", "ICN")),
		Dest:            strings.ToUpper(getEnv("DEST", "NRT")),
		TravelDate:      getEnv("TRAVEL_DATE", ""),
		Currency:        strings.ToUpper(getEnv("CURRENCY", "KRW")),
		Airlines:        getEnvAsList("LCC_CODES"),
		CheapestOnly:    getEnvAsBool("CHEAPEST_ONLY", false),
		PartitionByDate: getEnvAsBool("PARTITION_BY_DATE", false),
		StartDate:       getEnv("START_DATE", ""),
		MonthsAhead:     getEnvAsInt("MONTHS_AHEAD", 12),
		PerCallSleep:    getEnvAsSeconds("PER_CALL_SLEEP", 200*time.Millisecond),
		Adults:          getEnvAsInt("ADULTS", 1),
		MaxOffers:       getEnvAsInt("MAX_OFFERS", 250),

		RetryMaxAttempts: getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:   getEnvAsSeconds("RETRY_BASE_DELAY", time.Second),

		DataDir:   getEnv("DATA_DIR", "./data"),
		FareStore: strings.ToLower(getEnv("FARE_STORE", StoreCSV)),

		AlertThresholdRatio: getEnvAsFloat("ALERT_THRESHOLD_RATIO", 0.8),
		RollingWindowDays:   getEnvAsInt("ROLLING_WINDOW_DAYS", 7),
		NotifyEnabled:       getEnvAsBool("NOTIFY_ENABLED", false),
		NotifyRecipient:     getEnv("NOTIFY_RECIPIENT", ""),
		NotifySender:        getEnv("NOTIFY_SENDER", ""),
		AlertLogEnabled:     getEnvAsBool("ALERT_LOG_ENABLED", false),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		WebhookURL:   getEnv("WEBHOOK_URL", ""),
		WebhookToken: getEnv("WEBHOOK_TOKEN", ""),

		MongoURI:      getEnv("MONGODB_DSN", "mongodb://localhost:27017"),
		MongoDB:       getEnv("MONGO_DB", "farewatch"),
		MongoUser:     getEnv("MONGO_USER", ""),
		MongoPassword: getEnv("MONGO_PASSWORD", ""),

		PostgresURI: getEnv("POSTGRES_DSN", ""),

		RedisURL:     getEnv("REDIS_URL", ""),
		DateCacheTTL: getEnvAsDuration("DATE_CACHE_TTL", 6*time.Hour),

		RunInterval: getEnvAsDuration("RUN_INTERVAL", time.Hour),
	}

	return config, nil
}

// Validate checks the settings every mode depends on
func (c *Config) Validate() error {
	var errs []error
	if len(c.Origin) != 3 || len(c.Dest) != 3 {
		errs = append(errs, fmt.Errorf("ORIGIN and DEST must be IATA codes, got %q and %q", c.Origin, c.Dest))
	}
	if len(c.Currency) != 3 {
		errs = append(errs, fmt.Errorf("CURRENCY must be an ISO code, got %q", c.Currency))
	}
	if c.MonthsAhead < 1 {
		errs = append(errs, fmt.Errorf("MONTHS_AHEAD must be positive, got %d", c.MonthsAhead))
	}
	if c.AlertThresholdRatio <= 0 {
		errs = append(errs, fmt.Errorf("ALERT_THRESHOLD_RATIO must be positive, got %v", c.AlertThresholdRatio))
	}
	if c.RollingWindowDays < 1 {
		errs = append(errs, fmt.Errorf("ROLLING_WINDOW_DAYS must be positive, got %d", c.RollingWindowDays))
	}
	if c.FareStore != StoreCSV && c.FareStore != StoreMongo {
		errs = append(errs, fmt.Errorf("FARE_STORE must be %q or %q, got %q", StoreCSV, StoreMongo, c.FareStore))
	}
	if c.NotifyEnabled {
		if c.NotifyRecipient == "" && c.WebhookURL == "" {
			errs = append(errs, errors.New("NOTIFY_ENABLED needs NOTIFY_RECIPIENT or WEBHOOK_URL"))
		}
		if c.NotifyRecipient != "" && c.GmailRefreshToken == "" && c.WebhookURL == "" {
			errs = append(errs, errors.New("NOTIFY_RECIPIENT needs GMAIL_REFRESH_TOKEN or WEBHOOK_URL"))
		}
	}
	return errors.Join(errs...)
}

// MongoRequired reports whether any component needs MongoDB
func (c *Config) MongoRequired() bool {
	return c.FareStore == StoreMongo || c.AlertLogEnabled
}

// GmailEnabled reports whether the Gmail sender can be built
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

// getEnvAsSeconds reads a fractional number of seconds, e.g. "0.2"
func getEnvAsSeconds(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil && value >= 0 {
		return time.Duration(value * float64(time.Second))
	}
	return defaultValue
}

// getEnvAsDuration reads a Go duration such as "90m"
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return nil
	}
	var list []string
	for _, item := range strings.Split(valueStr, ",") {
		item = strings.ToUpper(strings.TrimSpace(item))
		if item != "" {
			list = append(list, item)
		}
	}
	return list
}
