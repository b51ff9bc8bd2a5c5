package indicators

import (
	"math"

	"bandScalper/internal/domain"
)

// TrueRange computes the true range of every bar. The first bar has no
// previous close, so its range is simply high - low.
func TrueRange(bars []domain.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		prevClose := b.Low
		if i > 0 {
			prevClose = bars[i-1].Close
		}
		// True Range is the greatest of:
		// 1. Current High - Current Low
		// 2. |Current High - Previous Close|
		// 3. |Current Low - Previous Close|
		tr1 := b.High - b.Low
		tr2 := math.Abs(b.High - prevClose)
		tr3 := math.Abs(b.Low - prevClose)
		out[i] = math.Max(tr1, math.Max(tr2, tr3))
	}
	return out
}

// ATR computes the Average True Range as a simple rolling mean of true range.
func ATR(bars []domain.Bar, period int) []float64 {
	return SMA(TrueRange(bars), period)
}
