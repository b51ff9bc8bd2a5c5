package indicators

import (
	"math"

	"bandScalper/internal/domain"
)

// DirectionalMovement returns +DM and -DM per bar. The first bar is undefined.
func DirectionalMovement(bars []domain.Bar) (plus, minus []float64) {
	plus = nanSeries(len(bars))
	minus = nanSeries(len(bars))
	for i := 1; i < len(bars); i++ {
		up := bars[i].High - bars[i-1].High
		down := bars[i-1].Low - bars[i].Low
		plus[i], minus[i] = 0, 0
		if up > down && up > 0 {
			plus[i] = up
		}
		if down > up && down > 0 {
			minus[i] = down
		}
	}
	return plus, minus
}

// ADX computes the Average Directional Index with simple rolling means.
// A zero smoothed range yields zero directional indicators, and a zero
// indicator sum yields dx = 0.
func ADX(bars []domain.Bar, period int) []float64 {
	plusDM, minusDM := DirectionalMovement(bars)
	smPlus := SMA(plusDM, period)
	smMinus := SMA(minusDM, period)
	smTR := SMA(TrueRange(bars), period)

	dx := nanSeries(len(bars))
	for i := range bars {
		if math.IsNaN(smPlus[i]) || math.IsNaN(smMinus[i]) || math.IsNaN(smTR[i]) {
			continue
		}
		var plusDI, minusDI float64
		if smTR[i] != 0 {
			plusDI = 100 * smPlus[i] / smTR[i]
			minusDI = 100 * smMinus[i] / smTR[i]
		}
		sum := plusDI + minusDI
		if sum == 0 {
			dx[i] = 0
			continue
		}
		dx[i] = 100 * math.Abs(plusDI-minusDI) / sum
	}
	return SMA(dx, period)
}
