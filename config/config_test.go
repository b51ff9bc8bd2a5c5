package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bandScalper/internal/adapters/logger"
	"bandScalper/internal/risk"
	"bandScalper/internal/strategy"
	"bandScalper/internal/strategy/indicators"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("BINANCE_API_KEY", "key")
	t.Setenv("BINANCE_API_SECRET", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", cfg.Symbol)
	assert.Equal(t, "1m", cfg.Interval)
	assert.Equal(t, 100, cfg.BarLimit)
	assert.Equal(t, 0.00026, cfg.Quantity)
	assert.Equal(t, 30*time.Second, cfg.CycleInterval)
	assert.Equal(t, 50.0, cfg.BandTolerance)
	assert.Equal(t, 36.0, cfg.RSILongBelow)
	assert.Equal(t, 63.0, cfg.RSIShortAbove)
	assert.Equal(t, 25.0, cfg.TrendADXThreshold)
	assert.True(t, cfg.FixedTakeProfitExit)
	assert.True(t, cfg.IsTestnet)
	assert.Equal(t, MarketSpot, cfg.MarketType)
	assert.False(t, cfg.IsPaper())
	assert.Equal(t, logger.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "0.0.0.0:8000", cfg.ListenAddr())
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadConfig_PaperModeNeedsNoKeys(t *testing.T) {
	t.Setenv("BINANCE_API_KEY", "")
	t.Setenv("BINANCE_API_SECRET", "")
	t.Setenv("EXECUTION_MODE", "paper")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsPaper())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("EXECUTION_MODE", "paper")
	t.Setenv("SYMBOL", "ethusdt")
	t.Setenv("BAND_TOLERANCE", "2.5")
	t.Setenv("FIXED_TAKE_PROFIT_EXIT", "false")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MARKET_TYPE", "FUTURES")
	t.Setenv("PORT", "9001")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", cfg.Symbol)
	assert.Equal(t, 2.5, cfg.BandTolerance)
	assert.False(t, cfg.FixedTakeProfitExit)
	assert.Equal(t, logger.LevelDebug, cfg.LogLevel)
	assert.Equal(t, MarketFutures, cfg.MarketType)
	assert.Equal(t, 9001, cfg.Port)
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantMsg string
	}{
		{
			name:    "missing keys in live mode",
			env:     map[string]string{"BINANCE_API_KEY": "", "BINANCE_API_SECRET": ""},
			wantMsg: "BINANCE_API_KEY must be set",
		},
		{
			name:    "invalid quantity",
			env:     map[string]string{"EXECUTION_MODE": "paper", "QUANTITY": "abc"},
			wantMsg: "invalid QUANTITY",
		},
		{
			name:    "negative tolerance",
			env:     map[string]string{"EXECUTION_MODE": "paper", "BAND_TOLERANCE": "-1"},
			wantMsg: "BAND_TOLERANCE cannot be negative",
		},
		{
			name:    "inverted MACD spans",
			env:     map[string]string{"EXECUTION_MODE": "paper", "MACD_FAST": "30"},
			wantMsg: "MACD_FAST must be less than MACD_SLOW",
		},
		{
			name:    "unknown market",
			env:     map[string]string{"EXECUTION_MODE": "paper", "MARKET_TYPE": "margin"},
			wantMsg: "MARKET_TYPE must be",
		},
		{
			name:    "zero order failure budget",
			env:     map[string]string{"EXECUTION_MODE": "paper", "MAX_ORDER_FAILURES": "0"},
			wantMsg: "MAX_ORDER_FAILURES must be at least 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := LoadConfig()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), "configuration validation failed")
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestConfig_ComponentDefaultsMatchPackages(t *testing.T) {
	t.Setenv("EXECUTION_MODE", "paper")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, indicators.DefaultConfig(), cfg.Indicators())
	assert.Equal(t, strategy.DefaultConfig(), cfg.Strategy())
	assert.Equal(t, risk.DefaultRiskConfig(), cfg.Risk())
}
