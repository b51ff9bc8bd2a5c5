package indicators

import "math"

// SMA computes a trailing simple moving average over period values.
// The result is NaN until a full window is available or while the
// window contains an undefined value.
func SMA(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		total := 0.0
		for j := i - period + 1; j <= i; j++ {
			total += values[j]
		}
		// NaN anywhere in the window propagates through the sum
		out[i] = total / float64(period)
	}
	return out
}

// StdDev computes the trailing population standard deviation over period values.
func StdDev(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 {
		return out
	}
	mean := SMA(values, period)
	for i := period - 1; i < len(values); i++ {
		if math.IsNaN(mean[i]) {
			continue
		}
		sq := 0.0
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - mean[i]
			sq += d * d
		}
		out[i] = math.Sqrt(sq / float64(period))
	}
	return out
}

// Bollinger returns the middle, upper and lower bands over closes.
func Bollinger(closes []float64, period int, k float64) (mid, upper, lower []float64) {
	mid = SMA(closes, period)
	std := StdDev(closes, period)
	upper = make([]float64, len(closes))
	lower = make([]float64, len(closes))
	for i := range closes {
		upper[i] = mid[i] + k*std[i]
		lower[i] = mid[i] - k*std[i]
	}
	return mid, upper, lower
}

// EMA computes an exponential moving average with alpha = 2/(span+1),
// seeded with the first defined observation and without bias adjustment.
// An undefined input yields an undefined output at that index; the
// average resumes from its last value on the next defined input.
func EMA(values []float64, span int) []float64 {
	out := nanSeries(len(values))
	if span <= 0 || len(values) == 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	ema := math.NaN()
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(ema) {
			ema = v
		} else {
			ema = alpha*v + (1-alpha)*ema
		}
		out[i] = ema
	}
	return out
}

// MACD returns the fast/slow EMA difference and its signal line.
func MACD(closes []float64, fast, slow, signal int) (macd, signalLine []float64) {
	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)
	macd = make([]float64, len(closes))
	for i := range closes {
		macd[i] = fastEMA[i] - slowEMA[i]
	}
	return macd, EMA(macd, signal)
}
