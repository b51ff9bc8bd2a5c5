package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bandScalper/internal/domain"
)

const tolerance = 1e-9

func closesToBars(closes []float64) []domain.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{
			OpenTime:  start.Add(time.Duration(i) * time.Minute),
			CloseTime: start.Add(time.Duration(i+1)*time.Minute - time.Millisecond),
			Symbol:    "BTCUSDT",
			Interval:  "1m",
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1,
		}
	}
	return bars
}

func wavyCloses(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + 5*math.Sin(float64(i)/3) + 0.1*float64(i)
	}
	return closes
}

func assertNaNPrefix(t *testing.T, series []float64, firstDefined int) {
	t.Helper()
	for i, v := range series {
		if i < firstDefined {
			assert.True(t, math.IsNaN(v), "index %d should be undefined, got %v", i, v)
		} else {
			assert.False(t, math.IsNaN(v), "index %d should be defined", i)
		}
	}
}

func TestSMA(t *testing.T) {
	out := SMA([]float64{1, 2, 3, 4, 5}, 3)
	assertNaNPrefix(t, out, 2)
	assert.InDelta(t, 2.0, out[2], tolerance)
	assert.InDelta(t, 3.0, out[3], tolerance)
	assert.InDelta(t, 4.0, out[4], tolerance)
}

func TestSMA_PropagatesUndefined(t *testing.T) {
	out := SMA([]float64{math.NaN(), 2, 3, 4}, 2)
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.5, out[2], tolerance)
}

func TestStdDev_Population(t *testing.T) {
	out := StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8)
	assertNaNPrefix(t, out, 7)
	assert.InDelta(t, 2.0, out[7], tolerance)
}

func TestBollinger_ConstantSeriesCollapses(t *testing.T) {
	closes := []float64{50, 50, 50, 50}
	mid, upper, lower := Bollinger(closes, 3, 2)
	for i := 2; i < len(closes); i++ {
		assert.InDelta(t, 50.0, mid[i], tolerance)
		assert.InDelta(t, 50.0, upper[i], tolerance)
		assert.InDelta(t, 50.0, lower[i], tolerance)
	}
}

func TestEMA_SeededWithFirstValue(t *testing.T) {
	out := EMA([]float64{1, 2, 3}, 3) // alpha = 0.5
	require.Len(t, out, 3)
	assert.InDelta(t, 1.0, out[0], tolerance)
	assert.InDelta(t, 1.5, out[1], tolerance)
	assert.InDelta(t, 2.25, out[2], tolerance)
}

func TestEMA_UndefinedInputPropagates(t *testing.T) {
	out := EMA([]float64{math.NaN(), 1, math.NaN(), 3}, 3) // alpha = 0.5
	require.Len(t, out, 4)
	assert.True(t, math.IsNaN(out[0]))
	assert.InDelta(t, 1.0, out[1], tolerance)
	assert.True(t, math.IsNaN(out[2]), "undefined input must not carry the average forward")
	assert.InDelta(t, 2.0, out[3], tolerance)
}

func TestMACD_FlatSeriesIsZero(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 42
	}
	macd, signal := MACD(closes, 12, 26, 9)
	for i := range closes {
		assert.InDelta(t, 0.0, macd[i], tolerance)
		assert.InDelta(t, 0.0, signal[i], tolerance)
	}
}

func TestRSI(t *testing.T) {
	tests := []struct {
		name     string
		closes   []float64
		period   int
		index    int
		expected float64
	}{
		{
			name:     "mixed moves",
			closes:   []float64{100, 102, 101, 103, 102, 104}, // +2 -1 +2 -1 +2
			period:   3,
			index:    5,
			expected: 80.0, // gains 4/3, losses 1/3
		},
		{
			name:     "balanced window",
			closes:   []float64{100, 102, 101, 103, 102, 104},
			period:   3,
			index:    4,
			expected: 50.0,
		},
		{
			name:     "only gains",
			closes:   []float64{1, 2, 3, 4, 5},
			period:   3,
			index:    4,
			expected: 100.0,
		},
		{
			name:     "only losses",
			closes:   []float64{5, 4, 3, 2, 1},
			period:   3,
			index:    4,
			expected: 0.0,
		},
		{
			name:     "no movement",
			closes:   []float64{7, 7, 7, 7},
			period:   3,
			index:    3,
			expected: 100.0, // no losses in the window
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := RSI(tt.closes, tt.period)
			assertNaNPrefix(t, out, tt.period)
			assert.InDelta(t, tt.expected, out[tt.index], 1e-6)
		})
	}
}

func TestRSI_StaysInRange(t *testing.T) {
	out := RSI(wavyCloses(200), 14)
	for i := 14; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i], 0.0)
		assert.LessOrEqual(t, out[i], 100.0)
	}
}

func TestTrueRange(t *testing.T) {
	bars := []domain.Bar{
		{High: 10, Low: 8, Close: 9},
		{High: 12, Low: 11, Close: 11.5}, // gap up from 9
		{High: 11, Low: 10.5, Close: 10.8},
	}
	tr := TrueRange(bars)
	assert.InDelta(t, 2.0, tr[0], tolerance)
	assert.InDelta(t, 3.0, tr[1], tolerance)
	assert.InDelta(t, 1.0, tr[2], tolerance) // |10.5 - 11.5|
}

func TestATR(t *testing.T) {
	bars := closesToBars(wavyCloses(20))
	atr := ATR(bars, 14)
	assertNaNPrefix(t, atr, 13)
	for i := 13; i < len(atr); i++ {
		assert.Greater(t, atr[i], 0.0)
	}
}

func TestADX_NoDirectionalMovement(t *testing.T) {
	// Flat ranges: no directional movement, so dx and adx are zero.
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100
	}
	adx := ADX(closesToBars(closes), 14)
	assertNaNPrefix(t, adx, 27)
	for i := 27; i < len(adx); i++ {
		assert.InDelta(t, 0.0, adx[i], tolerance)
	}
}

func TestADX_ZeroRange(t *testing.T) {
	bars := make([]domain.Bar, 10)
	for i := range bars {
		bars[i] = domain.Bar{High: 5, Low: 5, Close: 5}
	}
	adx := ADX(bars, 3)
	assertNaNPrefix(t, adx, 5)
	for i := 5; i < len(adx); i++ {
		assert.InDelta(t, 0.0, adx[i], tolerance)
	}
}

func TestADX_SteadyUptrend(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	adx := ADX(closesToBars(closes), 14)
	for i := 27; i < len(adx); i++ {
		assert.InDelta(t, 100.0, adx[i], 1e-6)
	}
}

func TestEngine_Warmup(t *testing.T) {
	engine, err := NewEngine(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 28, engine.Warmup())

	cfg := DefaultConfig()
	cfg.Bollinger.Period = 30
	engine, err = NewEngine(cfg)
	require.NoError(t, err)
	assert.Equal(t, 30, engine.Warmup())
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RSI.Period = 0
	_, err := NewEngine(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.BandStdDev = -1
	_, err = NewEngine(cfg)
	assert.Error(t, err)
}

func TestEngine_ComputeMasksWarmup(t *testing.T) {
	engine, err := NewEngine(DefaultConfig())
	require.NoError(t, err)

	bars := closesToBars(wavyCloses(60))
	snaps := engine.Compute(bars)
	require.Len(t, snaps, len(bars))

	for i, s := range snaps {
		if i < engine.Warmup()-1 {
			assert.False(t, s.Complete(), "snapshot %d should be undefined", i)
			assert.True(t, math.IsNaN(s.MACD), "snapshot %d MACD should be masked", i)
			continue
		}
		assert.True(t, s.Complete(), "snapshot %d should be complete", i)
		assert.GreaterOrEqual(t, s.UpperBand, s.SMA)
		assert.LessOrEqual(t, s.LowerBand, s.SMA)
	}
}

func TestEngine_ComputeIsDeterministic(t *testing.T) {
	engine, err := NewEngine(DefaultConfig())
	require.NoError(t, err)

	bars := closesToBars(wavyCloses(50))
	first := engine.Compute(bars)
	second := engine.Compute(bars)
	for i := engine.Warmup() - 1; i < len(bars); i++ {
		assert.Equal(t, first[i], second[i])
	}

	// Appending bars never rewrites earlier snapshots.
	longer := engine.Compute(closesToBars(wavyCloses(55)))
	for i := engine.Warmup() - 1; i < len(bars); i++ {
		assert.InDelta(t, first[i].RSI, longer[i].RSI, tolerance)
		assert.InDelta(t, first[i].ADX, longer[i].ADX, tolerance)
	}
}

func TestEngine_Latest(t *testing.T) {
	engine, err := NewEngine(DefaultConfig())
	require.NoError(t, err)

	_, err = engine.Latest(closesToBars(wavyCloses(27)))
	require.Error(t, err)

	snap, err := engine.Latest(closesToBars(wavyCloses(28)))
	require.NoError(t, err)
	assert.True(t, snap.Complete())
}
