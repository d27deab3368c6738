// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	// Server
	DataDir  string // Base directory for all databases, always absolute
	Port     int
	DevMode  bool
	LogLevel string

	// Auth
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Trading
	StartingBalance   decimal.Decimal // Cash granted to every new wallet
	SlippageTolerance float64         // Max |quote-expected|/expected before a trade is rejected (fraction)

	// Market data
	FinnhubAPIKey    string
	FinnhubBaseURL   string
	FinnhubWSURL     string
	FinnhubWSEnabled bool
	RapidAPIKey      string
	RapidAPIHost     string
	RequestPace      time.Duration // Minimum delay between successive upstream calls
	QuoteCacheTTL    time.Duration
	QuotePollEvery   time.Duration

	// Symbol import
	ImportScreenerID  string
	ImportPageSize    int
	ImportMaxPages    int
	ImportPageDelay   time.Duration
	ImportPageRetries int

	// Seeding
	AdminUsername string
	AdminPassword string
	AdminEmail    string
	FakeUsers     int

	// Simulation
	FakeTraderEnabled  bool
	FakeTraderSchedule string

	// Backups
	BackupEnabled         bool
	BackupBucket          string
	BackupEndpoint        string // Custom S3 endpoint (R2 compatible); empty = AWS default
	BackupRegion          string
	BackupAccessKeyID     string
	BackupSecretAccessKey string
	BackupSchedule        string
	BackupRetentionDays   int
	BackupMinKeep         int

	// Maintenance
	TokenCleanupSchedule string
	MaintenanceSchedule  string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory with fallback logic:
	// PAPERTRADE_DATA_DIR env var, then ./data, always resolved to absolute
	dataDir := getEnv("PAPERTRADE_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	startingBalance, err := decimal.NewFromString(getEnv("STARTING_BALANCE", "10000.00"))
	if err != nil {
		return nil, fmt.Errorf("invalid STARTING_BALANCE: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("PORT", 8080),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		JWTSecret:       getEnv("JWT_SECRET", ""),
		AccessTokenTTL:  time.Duration(getEnvAsInt("ACCESS_TOKEN_TTL_MINUTES", 15)) * time.Minute,
		RefreshTokenTTL: time.Duration(getEnvAsInt("REFRESH_TOKEN_TTL_DAYS", 7)) * 24 * time.Hour,

		StartingBalance:   startingBalance,
		SlippageTolerance: getEnvAsFloat("SLIPPAGE_TOLERANCE_PCT", 1.0) / 100.0,

		FinnhubAPIKey:    getEnv("FINNHUB_API_KEY", ""),
		FinnhubBaseURL:   getEnv("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"),
		FinnhubWSURL:     getEnv("FINNHUB_WS_URL", "wss://ws.finnhub.io"),
		FinnhubWSEnabled: getEnvAsBool("FINNHUB_WS_ENABLED", false),
		RapidAPIKey:      getEnv("RAPIDAPI_KEY", ""),
		RapidAPIHost:     getEnv("RAPIDAPI_HOST", "apidojo-yahoo-finance-v1.p.rapidapi.com"),
		RequestPace:      time.Duration(getEnvAsInt("REQUEST_PACE_MS", 1100)) * time.Millisecond,
		QuoteCacheTTL:    time.Duration(getEnvAsInt("QUOTE_CACHE_TTL_SECONDS", 30)) * time.Second,
		QuotePollEvery:   time.Duration(getEnvAsInt("QUOTE_POLL_SECONDS", 10)) * time.Second,

		ImportScreenerID:  getEnv("IMPORT_SCREENER_ID", "most_actives"),
		ImportPageSize:    getEnvAsInt("IMPORT_PAGE_SIZE", 25),
		ImportMaxPages:    getEnvAsInt("IMPORT_MAX_PAGES", 40),
		ImportPageDelay:   time.Duration(getEnvAsInt("IMPORT_PAGE_DELAY_MS", 1100)) * time.Millisecond,
		ImportPageRetries: getEnvAsInt("IMPORT_PAGE_RETRIES", 3),

		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@localhost"),
		FakeUsers:     getEnvAsInt("FAKE_USERS", 0),

		FakeTraderEnabled:  getEnvAsBool("FAKE_TRADER_ENABLED", false),
		FakeTraderSchedule: getEnv("FAKE_TRADER_SCHEDULE", "0 */5 * * * *"),

		BackupEnabled:         getEnvAsBool("BACKUP_ENABLED", false),
		BackupBucket:          getEnv("BACKUP_BUCKET", ""),
		BackupEndpoint:        getEnv("BACKUP_ENDPOINT", ""),
		BackupRegion:          getEnv("BACKUP_REGION", "auto"),
		BackupAccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
		BackupSecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
		BackupSchedule:        getEnv("BACKUP_SCHEDULE", "0 30 3 * * *"),
		BackupRetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		BackupMinKeep:         getEnvAsInt("BACKUP_MIN_KEEP", 3),

		TokenCleanupSchedule: getEnv("TOKEN_CLEANUP_SCHEDULE", "0 0 * * * *"),
		MaintenanceSchedule:  getEnv("MAINTENANCE_SCHEDULE", "0 0 2 * * *"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		if !c.DevMode {
			return fmt.Errorf("JWT_SECRET is required outside dev mode")
		}
		// Fixed dev secret keeps tokens valid across restarts during development
		c.JWTSecret = "papertrade-dev-secret"
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT: %d", c.Port)
	}

	if c.StartingBalance.IsNegative() {
		return fmt.Errorf("STARTING_BALANCE must not be negative")
	}

	if c.ImportPageSize <= 0 || c.ImportMaxPages <= 0 {
		return fmt.Errorf("import page size and max pages must be positive")
	}

	if c.BackupEnabled && c.BackupBucket == "" {
		return fmt.Errorf("BACKUP_BUCKET is required when backups are enabled")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
