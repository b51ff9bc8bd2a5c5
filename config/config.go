package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"bandScalper/internal/adapters/logger" // Import the logger package for LogLevel
	"bandScalper/internal/risk"
	"bandScalper/internal/strategy"
	"bandScalper/internal/strategy/indicators"
)

// Market types supported by the Binance adapter.
const (
	MarketSpot    = "spot"
	MarketFutures = "futures"
)

// Execution modes.
const (
	ExecutionLive  = "live"
	ExecutionPaper = "paper"
)

// Config holds all application configuration.
type Config struct {
	// Binance API
	APIKey        string
	SecretKey     string
	IsTestnet     bool
	MarketType    string // spot or futures
	ExecutionMode string // live or paper

	// Trading Parameters
	Symbol            string
	Interval          string  // Bar interval, e.g. "1m"
	BarLimit          int     // Bars fetched per cycle
	Quantity          float64 // Fixed order quantity
	QuantityPrecision int     // Decimal places accepted by the venue for Quantity

	// Loop
	CycleInterval    time.Duration
	FetchTimeout     time.Duration
	OrderTimeout     time.Duration
	RetryAttempts    int
	RetryMinDelay    time.Duration
	MaxOrderFailures int // consecutive failures before the loop halts

	// Indicator Parameters
	BBPeriod   int
	BBStdDev   float64
	RSIPeriod  int
	MACDFast   int
	MACDSlow   int
	MACDSignal int
	ATRPeriod  int
	ADXPeriod  int

	// Strategy Parameters
	BandTolerance     float64
	RSILongBelow      float64
	RSIShortAbove     float64
	StopATRMult       float64
	TakeProfitATRMult float64

	// Risk Parameters
	TrendADXThreshold      float64
	TrailATRMult           float64
	TrendTakeProfitATRMult float64
	FixedTakeProfitExit    bool

	// Database
	DBPath string

	// Logging
	LogLevel  logger.LogLevel // Use the LogLevel type from the logger adapter
	LogFormat string          // console or json
	LogFile   string          // optional file that receives a copy of every line

	// Control surface
	HTTPHost string
	Port     int

	// Status publishing (disabled when RedisAddr is empty)
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisStatusKey string
	RedisStatusTTL time.Duration
}

// IsPaper reports whether orders are simulated locally.
func (c *Config) IsPaper() bool {
	return c.ExecutionMode == ExecutionPaper
}

// ListenAddr returns the host:port the control surface binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPHost, c.Port)
}

// Indicators returns the indicator engine configuration.
func (c *Config) Indicators() indicators.Config {
	return indicators.Config{
		Bollinger:  indicators.IndicatorConfig{Period: c.BBPeriod},
		BandStdDev: c.BBStdDev,
		RSI:        indicators.IndicatorConfig{Period: c.RSIPeriod},
		MACDFast:   indicators.IndicatorConfig{Period: c.MACDFast},
		MACDSlow:   indicators.IndicatorConfig{Period: c.MACDSlow},
		MACDSignal: indicators.IndicatorConfig{Period: c.MACDSignal},
		ATR:        indicators.IndicatorConfig{Period: c.ATRPeriod},
		ADX:        indicators.IndicatorConfig{Period: c.ADXPeriod},
	}
}

// Strategy returns the entry evaluator configuration.
func (c *Config) Strategy() strategy.Config {
	return strategy.Config{
		BandTolerance:     c.BandTolerance,
		RSILongBelow:      c.RSILongBelow,
		RSIShortAbove:     c.RSIShortAbove,
		StopATRMult:       c.StopATRMult,
		TakeProfitATRMult: c.TakeProfitATRMult,
	}
}

// Risk returns the position management configuration.
func (c *Config) Risk() risk.RiskConfig {
	return risk.RiskConfig{
		TrendADXThreshold:      c.TrendADXThreshold,
		TrailATRMult:           c.TrailATRMult,
		TrendTakeProfitATRMult: c.TrendTakeProfitATRMult,
		FixedTakeProfitExit:    c.FixedTakeProfitExit,
	}
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	cfg.MarketType = strings.ToLower(getEnv("MARKET_TYPE", MarketSpot))
	if cfg.MarketType != MarketSpot && cfg.MarketType != MarketFutures {
		errs = append(errs, fmt.Sprintf("MARKET_TYPE must be %q or %q", MarketSpot, MarketFutures))
	}
	cfg.ExecutionMode = strings.ToLower(getEnv("EXECUTION_MODE", ExecutionLive))
	if cfg.ExecutionMode != ExecutionLive && cfg.ExecutionMode != ExecutionPaper {
		errs = append(errs, fmt.Sprintf("EXECUTION_MODE must be %q or %q", ExecutionLive, ExecutionPaper))
	}

	// API keys are only needed when real orders are sent
	if cfg.ExecutionMode == ExecutionLive {
		if cfg.APIKey == "" {
			errs = append(errs, "BINANCE_API_KEY must be set")
		}
		if cfg.SecretKey == "" {
			errs = append(errs, "BINANCE_API_SECRET must be set")
		}
	}

	// Trading Parameters
	cfg.Symbol = strings.ToUpper(getEnv("SYMBOL", "BTCUSDT"))
	if cfg.Symbol == "" {
		errs = append(errs, "SYMBOL must be set")
	}
	cfg.Interval = getEnv("INTERVAL", "1m")

	cfg.BarLimit, err = getEnvAsIntRequired("BAR_LIMIT", 100)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid BAR_LIMIT: %v", err))
	}

	cfg.Quantity, err = getEnvAsFloatRequired("QUANTITY", 0.00026)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid QUANTITY: %v", err))
	} else if cfg.Quantity <= 0 {
		errs = append(errs, "QUANTITY must be positive")
	}

	cfg.QuantityPrecision = getEnvAsInt("QUANTITY_PRECISION", 5)
	if cfg.QuantityPrecision < 0 || cfg.QuantityPrecision > 16 {
		errs = append(errs, "QUANTITY_PRECISION must be between 0 and 16")
	}

	// Loop
	cycleSeconds := getEnvAsInt("CYCLE_INTERVAL_SECONDS", 30)
	fetchSeconds := getEnvAsInt("FETCH_TIMEOUT_SECONDS", 10)
	orderSeconds := getEnvAsInt("ORDER_TIMEOUT_SECONDS", 10)
	if cycleSeconds <= 0 || fetchSeconds <= 0 || orderSeconds <= 0 {
		errs = append(errs, "CYCLE_INTERVAL_SECONDS, FETCH_TIMEOUT_SECONDS and ORDER_TIMEOUT_SECONDS must be positive")
	}
	cfg.CycleInterval = time.Duration(cycleSeconds) * time.Second
	cfg.FetchTimeout = time.Duration(fetchSeconds) * time.Second
	cfg.OrderTimeout = time.Duration(orderSeconds) * time.Second

	cfg.RetryAttempts = getEnvAsInt("RETRY_ATTEMPTS", 3)
	if cfg.RetryAttempts < 1 {
		errs = append(errs, "RETRY_ATTEMPTS must be at least 1")
	}
	cfg.RetryMinDelay = time.Duration(getEnvAsInt("RETRY_MIN_DELAY_MS", 500)) * time.Millisecond
	if cfg.RetryMinDelay <= 0 {
		errs = append(errs, "RETRY_MIN_DELAY_MS must be positive")
	}
	cfg.MaxOrderFailures = getEnvAsInt("MAX_ORDER_FAILURES", 3)
	if cfg.MaxOrderFailures < 1 {
		errs = append(errs, "MAX_ORDER_FAILURES must be at least 1")
	}

	// Indicator Parameters (using defaults if not set)
	cfg.BBPeriod = getEnvAsInt("BB_PERIOD", 20)
	cfg.BBStdDev = getEnvAsFloat("BB_STDDEV", 2)
	cfg.RSIPeriod = getEnvAsInt("RSI_PERIOD", 14)
	cfg.MACDFast = getEnvAsInt("MACD_FAST", 12)
	cfg.MACDSlow = getEnvAsInt("MACD_SLOW", 26)
	cfg.MACDSignal = getEnvAsInt("MACD_SIGNAL", 9)
	cfg.ATRPeriod = getEnvAsInt("ATR_PERIOD", 14)
	cfg.ADXPeriod = getEnvAsInt("ADX_PERIOD", 14)

	if cfg.BBPeriod <= 0 || cfg.RSIPeriod <= 0 || cfg.MACDFast <= 0 || cfg.MACDSlow <= 0 ||
		cfg.MACDSignal <= 0 || cfg.ATRPeriod <= 0 || cfg.ADXPeriod <= 0 {
		errs = append(errs, "indicator periods must be positive")
	}
	if cfg.MACDFast >= cfg.MACDSlow {
		errs = append(errs, "MACD_FAST must be less than MACD_SLOW")
	}
	if cfg.BBStdDev <= 0 {
		errs = append(errs, "BB_STDDEV must be positive")
	}

	// Strategy Parameters
	cfg.BandTolerance = getEnvAsFloat("BAND_TOLERANCE", 50)
	cfg.RSILongBelow = getEnvAsFloat("RSI_LONG_BELOW", 36)
	cfg.RSIShortAbove = getEnvAsFloat("RSI_SHORT_ABOVE", 63)
	cfg.StopATRMult = getEnvAsFloat("STOP_ATR_MULT", 1)
	cfg.TakeProfitATRMult = getEnvAsFloat("TAKE_PROFIT_ATR_MULT", 3)

	if cfg.BandTolerance < 0 {
		errs = append(errs, "BAND_TOLERANCE cannot be negative")
	}
	if cfg.RSILongBelow <= 0 || cfg.RSILongBelow > 100 || cfg.RSIShortAbove < 0 || cfg.RSIShortAbove >= 100 {
		errs = append(errs, "invalid RSI thresholds (RSI_LONG_BELOW and RSI_SHORT_ABOVE must be between 0-100)")
	}
	if cfg.StopATRMult <= 0 || cfg.TakeProfitATRMult <= 0 {
		errs = append(errs, "STOP_ATR_MULT and TAKE_PROFIT_ATR_MULT must be positive")
	}

	// Risk Parameters
	cfg.TrendADXThreshold = getEnvAsFloat("TREND_ADX_THRESHOLD", 25)
	cfg.TrailATRMult = getEnvAsFloat("TRAIL_ATR_MULT", 1)
	cfg.TrendTakeProfitATRMult = getEnvAsFloat("TREND_TAKE_PROFIT_ATR_MULT", 4)
	cfg.FixedTakeProfitExit = getEnvAsBool("FIXED_TAKE_PROFIT_EXIT", true)

	if cfg.TrendADXThreshold < 0 || cfg.TrendADXThreshold > 100 {
		errs = append(errs, "TREND_ADX_THRESHOLD must be between 0 and 100")
	}
	if cfg.TrailATRMult <= 0 || cfg.TrendTakeProfitATRMult <= 0 {
		errs = append(errs, "TRAIL_ATR_MULT and TREND_TAKE_PROFIT_ATR_MULT must be positive")
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/scalper.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", "console"))
	if cfg.LogFormat != "console" && cfg.LogFormat != "json" {
		errs = append(errs, "LOG_FORMAT must be console or json")
	}
	cfg.LogFile = getEnv("LOG_FILE", "")

	// Control surface
	cfg.HTTPHost = getEnv("HTTP_HOST", "0.0.0.0")
	cfg.Port, err = getEnvAsIntRequired("PORT", 8000)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid PORT: %v", err))
	} else if cfg.Port <= 0 || cfg.Port > 65535 {
		errs = append(errs, "PORT must be between 1 and 65535")
	}

	// Status publishing
	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB = getEnvAsInt("REDIS_DB", 0)
	cfg.RedisStatusKey = getEnv("REDIS_STATUS_KEY", "scalper:status")
	statusTTLSeconds := getEnvAsInt("REDIS_STATUS_TTL_SECONDS", 300)
	if statusTTLSeconds < 0 {
		errs = append(errs, "REDIS_STATUS_TTL_SECONDS must not be negative")
	}
	cfg.RedisStatusTTL = time.Duration(statusTTLSeconds) * time.Second

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Log warning? For non-required fields, default is often acceptable.
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
