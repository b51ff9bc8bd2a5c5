package indicators

import "math"

// RSI computes the Relative Strength Index from simple rolling means of
// gains and losses over period close-to-close deltas. A window with no
// losses reads 100.
func RSI(closes []float64, period int) []float64 {
	n := len(closes)
	gains := nanSeries(n)
	losses := nanSeries(n)
	for i := 1; i < n; i++ {
		delta := closes[i] - closes[i-1]
		gains[i], losses[i] = 0, 0
		if delta > 0 {
			gains[i] = delta
		} else if delta < 0 {
			losses[i] = -delta
		}
	}

	avgGain := SMA(gains, period)
	avgLoss := SMA(losses, period)
	out := nanSeries(n)
	for i := range out {
		if math.IsNaN(avgGain[i]) || math.IsNaN(avgLoss[i]) {
			continue
		}
		if avgLoss[i] == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100 - 100/(1+rs)
	}
	return out
}
