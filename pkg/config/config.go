package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Master switch: when false, orders are simulated through the paper
	// broker regardless of BrokerMode.
	Armed bool

	// Broker
	BrokerMode        string // "paper" or "alpaca"
	AlpacaAPIKey      string
	AlpacaAPISecret   string
	AlpacaTradingURL  string
	AlpacaDataURL     string
	AlpacaStreamURL   string
	BrokerTimeout     time.Duration
	PaperStartingCash float64

	// Monitoring
	PollInterval       time.Duration
	ExchangeTimezone   string
	QuoteCacheTTL      time.Duration
	QuoteStreamEnabled bool

	// Risk limits
	MaxRiskPerTrade        float64
	MaxTradesPerDay        int
	DailyLossLimit         float64
	MaxConcurrentPositions int
	MaxContracts           int

	// Exit thresholds (fractions: 0.25 = 25%)
	HardStopPct           float64
	Trim1ActivationPct    float64
	Trim2ActivationPct    float64
	TrailingStopPct       float64
	ATRTrailingMultiplier float64 // trail pct = multiplier * 0.10
	CloseAtDTE            int
	ForceClose0DTETime    string // "HH:MM" exchange-local

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),
		Armed:    getBoolOrDefault("ARMED", false),

		// Broker defaults
		BrokerMode:        getEnvOrDefault("BROKER_MODE", "paper"),
		AlpacaAPIKey:      os.Getenv("ALPACA_API_KEY"),
		AlpacaAPISecret:   os.Getenv("ALPACA_API_SECRET"),
		AlpacaTradingURL:  getEnvOrDefault("ALPACA_TRADING_URL", "https://paper-api.alpaca.markets"),
		AlpacaDataURL:     getEnvOrDefault("ALPACA_DATA_URL", "https://data.alpaca.markets"),
		AlpacaStreamURL:   getEnvOrDefault("ALPACA_STREAM_URL", "wss://stream.data.alpaca.markets/v1beta1/indicative"),
		BrokerTimeout:     getDurationOrDefault("BROKER_TIMEOUT", 10*time.Second),
		PaperStartingCash: getFloat64OrDefault("PAPER_STARTING_CASH", 10000.0),

		// Monitoring defaults
		PollInterval:       getDurationOrDefault("MONITOR_POLL_INTERVAL", 30*time.Second),
		ExchangeTimezone:   getEnvOrDefault("EXCHANGE_TIMEZONE", "America/New_York"),
		QuoteCacheTTL:      getDurationOrDefault("QUOTE_CACHE_TTL", 5*time.Second),
		QuoteStreamEnabled: getBoolOrDefault("QUOTE_STREAM_ENABLED", false),

		// Risk defaults
		MaxRiskPerTrade:        getFloat64OrDefault("RISK_MAX_RISK_PER_TRADE", 200.0),
		MaxTradesPerDay:        getIntOrDefault("RISK_MAX_TRADES_PER_DAY", 2),
		DailyLossLimit:         getFloat64OrDefault("RISK_DAILY_LOSS_LIMIT", 100.0),
		MaxConcurrentPositions: getIntOrDefault("RISK_MAX_CONCURRENT_POSITIONS", 2),
		MaxContracts:           getIntOrDefault("RISK_MAX_CONTRACTS", 4),

		// Exit defaults
		HardStopPct:           getFloat64OrDefault("EXIT_HARD_STOP_PCT", 0.50),
		Trim1ActivationPct:    getFloat64OrDefault("EXIT_TRIM_1_ACTIVATION_PCT", 0.25),
		Trim2ActivationPct:    getFloat64OrDefault("EXIT_TRIM_2_ACTIVATION_PCT", 0.50),
		TrailingStopPct:       getFloat64OrDefault("EXIT_TRAILING_STOP_PCT", 0.25),
		ATRTrailingMultiplier: getFloat64OrDefault("EXIT_ATR_TRAILING_MULTIPLIER", 2.5),
		CloseAtDTE:            getIntOrDefault("EXIT_CLOSE_AT_DTE", 1),
		ForceClose0DTETime:    getEnvOrDefault("EXIT_FORCE_CLOSE_0DTE_TIME", "15:30"),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "optionsentry"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "optionsentry"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "optionsentry"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid. Any failure here is
// fatal at startup.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.BrokerMode != "paper" && c.BrokerMode != "alpaca" {
		return fmt.Errorf("BROKER_MODE must be 'paper' or 'alpaca', got %q", c.BrokerMode)
	}

	if c.BrokerMode == "alpaca" && (c.AlpacaAPIKey == "" || c.AlpacaAPISecret == "") {
		return fmt.Errorf("ALPACA_API_KEY and ALPACA_API_SECRET are required when BROKER_MODE=alpaca")
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("MONITOR_POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}

	_, err := time.LoadLocation(c.ExchangeTimezone)
	if err != nil {
		return fmt.Errorf("EXCHANGE_TIMEZONE %q: %w", c.ExchangeTimezone, err)
	}

	for name, pct := range map[string]float64{
		"EXIT_HARD_STOP_PCT":         c.HardStopPct,
		"EXIT_TRIM_1_ACTIVATION_PCT": c.Trim1ActivationPct,
		"EXIT_TRIM_2_ACTIVATION_PCT": c.Trim2ActivationPct,
		"EXIT_TRAILING_STOP_PCT":     c.TrailingStopPct,
	} {
		if pct <= 0 || pct >= 1.0 {
			return fmt.Errorf("%s must be between 0 and 1.0, got %f", name, pct)
		}
	}

	if c.ATRTrailingMultiplier <= 0 {
		return fmt.Errorf("EXIT_ATR_TRAILING_MULTIPLIER must be positive, got %f", c.ATRTrailingMultiplier)
	}

	if c.CloseAtDTE < 0 {
		return fmt.Errorf("EXIT_CLOSE_AT_DTE cannot be negative, got %d", c.CloseAtDTE)
	}

	_, err = time.Parse("15:04", c.ForceClose0DTETime)
	if err != nil {
		return fmt.Errorf("EXIT_FORCE_CLOSE_0DTE_TIME must be HH:MM, got %q", c.ForceClose0DTETime)
	}

	if c.MaxRiskPerTrade <= 0 {
		return fmt.Errorf("RISK_MAX_RISK_PER_TRADE must be positive, got %f", c.MaxRiskPerTrade)
	}

	if c.MaxTradesPerDay <= 0 {
		return fmt.Errorf("RISK_MAX_TRADES_PER_DAY must be positive, got %d", c.MaxTradesPerDay)
	}

	if c.DailyLossLimit <= 0 {
		return fmt.Errorf("RISK_DAILY_LOSS_LIMIT must be positive, got %f", c.DailyLossLimit)
	}

	if c.MaxConcurrentPositions <= 0 {
		return fmt.Errorf("RISK_MAX_CONCURRENT_POSITIONS must be positive, got %d", c.MaxConcurrentPositions)
	}

	if c.MaxContracts <= 0 {
		return fmt.Errorf("RISK_MAX_CONTRACTS must be positive, got %d", c.MaxContracts)
	}

	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'console', got %q", c.StorageMode)
	}

	return nil
}

// ExchangeLocation returns the exchange timezone. Validate must have passed.
func (c *Config) ExchangeLocation() *time.Location {
	loc, err := time.LoadLocation(c.ExchangeTimezone)
	if err != nil {
		return time.UTC
	}

	return loc
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}
