package indicators

import (
	"fmt"
	"math"
)

// IndicatorConfig holds common configuration for indicators
type IndicatorConfig struct {
	Period int
}

// Config holds every period and multiplier used by the Engine.
type Config struct {
	Bollinger  IndicatorConfig
	BandStdDev float64 // Bollinger band width in standard deviations
	RSI        IndicatorConfig
	MACDFast   IndicatorConfig
	MACDSlow   IndicatorConfig
	MACDSignal IndicatorConfig
	ATR        IndicatorConfig
	ADX        IndicatorConfig
}

// DefaultConfig returns the periods the scalping strategy was tuned with.
func DefaultConfig() Config {
	return Config{
		Bollinger:  IndicatorConfig{Period: 20},
		BandStdDev: 2,
		RSI:        IndicatorConfig{Period: 14},
		MACDFast:   IndicatorConfig{Period: 12},
		MACDSlow:   IndicatorConfig{Period: 26},
		MACDSignal: IndicatorConfig{Period: 9},
		ATR:        IndicatorConfig{Period: 14},
		ADX:        IndicatorConfig{Period: 14},
	}
}

// Validate checks that every period is usable.
func (c Config) Validate() error {
	periods := map[string]int{
		"bollinger":   c.Bollinger.Period,
		"rsi":         c.RSI.Period,
		"macd fast":   c.MACDFast.Period,
		"macd slow":   c.MACDSlow.Period,
		"macd signal": c.MACDSignal.Period,
		"atr":         c.ATR.Period,
		"adx":         c.ADX.Period,
	}
	for name, p := range periods {
		if p <= 0 {
			return fmt.Errorf("%s period must be positive, got %d", name, p)
		}
	}
	if c.BandStdDev <= 0 || math.IsNaN(c.BandStdDev) {
		return fmt.Errorf("band standard deviation multiplier must be positive, got %v", c.BandStdDev)
	}
	return nil
}

// nanSeries returns a slice of n NaN values.
func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
