package domain

import "time"

// Bar represents a single OHLCV candlestick.
type Bar struct {
	OpenTime  time.Time // Start time of the interval
	CloseTime time.Time // End time of the interval
	Symbol    string    // Trading symbol
	Interval  string    // Bar interval (e.g., "1m", "1h")
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}
