package risk

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bandScalper/internal/domain"
	"bandScalper/internal/strategy/indicators"
)

func newManager(t *testing.T) *RiskManager {
	t.Helper()
	m, err := NewRiskManager(DefaultRiskConfig())
	require.NoError(t, err)
	return m
}

func snapshot(atr, adx float64) indicators.Snapshot {
	return indicators.Snapshot{
		SMA: 10000, UpperBand: 10060, LowerBand: 9940,
		RSI: 50, MACD: 1, SignalLine: 1,
		ATR: atr, ADX: adx,
	}
}

func longPosition(entry, sl, tp float64) *domain.Position {
	return &domain.Position{
		ID: 1, Symbol: "BTCUSDT", Side: domain.Long,
		EntryPrice: entry, Quantity: 0.5, StopLoss: sl, TakeProfit: tp,
		Status: domain.StatusOpen,
	}
}

func shortPosition(entry, sl, tp float64) *domain.Position {
	p := longPosition(entry, sl, tp)
	p.Side = domain.Short
	return p
}

func ptr(v float64) *float64 { return &v }

func TestNewRiskManager_Validation(t *testing.T) {
	_, err := NewRiskManager(RiskConfig{TrendADXThreshold: 120, TrailATRMult: 1, TrendTakeProfitATRMult: 4})
	assert.Error(t, err)

	_, err = NewRiskManager(RiskConfig{TrendADXThreshold: 25, TrailATRMult: 0, TrendTakeProfitATRMult: 4})
	assert.Error(t, err)
}

func TestAdvance_RatchetsLongStop(t *testing.T) {
	m := newManager(t)
	pos := longPosition(9870, 9850, 9930)

	d := m.Advance(pos, snapshot(20, 30), 9920)

	assert.Equal(t, Hold, d.Action)
	assert.True(t, d.Ratcheted)
	require.NotNil(t, d.Position.TrailingStop)
	assert.InDelta(t, 9900.0, *d.Position.TrailingStop, 1e-9)
	assert.InDelta(t, 9900.0, d.Position.StopLoss, 1e-9)

	// input untouched
	assert.Nil(t, pos.TrailingStop)
	assert.Equal(t, 9850.0, pos.StopLoss)
}

func TestAdvance_RatchetNeverLoosens(t *testing.T) {
	m := newManager(t)
	long := longPosition(9870, 9900, 9930)
	long.TrailingStop = ptr(9900)

	// price pulls back, the seed would sit below the current trailing stop
	d := m.Advance(long, snapshot(20, 30), 9910)
	assert.Equal(t, Hold, d.Action)
	assert.False(t, d.Ratcheted)
	assert.InDelta(t, 9900.0, *d.Position.TrailingStop, 1e-9)
	assert.InDelta(t, 9900.0, d.Position.StopLoss, 1e-9)

	short := shortPosition(10100, 10100, 10040)
	short.TrailingStop = ptr(10100)
	d = m.Advance(short, snapshot(20, 30), 10090)
	assert.Equal(t, Hold, d.Action)
	assert.InDelta(t, 10100.0, *d.Position.TrailingStop, 1e-9)
	assert.InDelta(t, 10100.0, d.Position.StopLoss, 1e-9)
}

func TestAdvance_RatchetsShortStop(t *testing.T) {
	m := newManager(t)
	pos := shortPosition(10100, 10120, 10040)

	d := m.Advance(pos, snapshot(20, 40), 10080)

	assert.Equal(t, Hold, d.Action)
	require.NotNil(t, d.Position.TrailingStop)
	assert.InDelta(t, 10100.0, *d.Position.TrailingStop, 1e-9)
	assert.InDelta(t, 10100.0, d.Position.StopLoss, 1e-9)
}

func TestAdvance_NoRatchetWithoutTrend(t *testing.T) {
	m := newManager(t)
	tests := []struct {
		name string
		snap indicators.Snapshot
	}{
		{name: "adx at threshold", snap: snapshot(20, 25)},
		{name: "adx undefined", snap: snapshot(20, math.NaN())},
		{name: "atr undefined", snap: snapshot(math.NaN(), 40)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := m.Advance(longPosition(9870, 9850, 9930), tt.snap, 9900)
			assert.Equal(t, Hold, d.Action)
			assert.False(t, d.Ratcheted)
			assert.Nil(t, d.Position.TrailingStop)
			assert.Equal(t, 9850.0, d.Position.StopLoss)
		})
	}
}

func TestAdvance_Exits(t *testing.T) {
	m := newManager(t)
	tests := []struct {
		name       string
		pos        *domain.Position
		snap       indicators.Snapshot
		close      float64
		wantAction Action
		wantReason domain.CloseReason
		wantDelta  float64
	}{
		{
			name:       "long stop loss",
			pos:        longPosition(10000, 9980, 10060),
			snap:       snapshot(20, 20),
			close:      9975,
			wantAction: Close,
			wantReason: domain.CloseReasonStopLoss,
			wantDelta:  -25,
		},
		{
			name:       "long fixed take profit",
			pos:        longPosition(10000, 9980, 10060),
			snap:       snapshot(20, 20),
			close:      10065,
			wantAction: Close,
			wantReason: domain.CloseReasonTakeProfit,
			wantDelta:  65,
		},
		{
			name:       "short stop loss",
			pos:        shortPosition(10000, 10020, 9940),
			snap:       snapshot(20, 20),
			close:      10030,
			wantAction: Close,
			wantReason: domain.CloseReasonStopLoss,
			wantDelta:  -30,
		},
		{
			name:       "short fixed take profit",
			pos:        shortPosition(10000, 10020, 9940),
			snap:       snapshot(20, 20),
			close:      9930,
			wantAction: Close,
			wantReason: domain.CloseReasonTakeProfit,
			wantDelta:  70,
		},
		{
			name: "long trend take profit while trailing",
			pos: func() *domain.Position {
				p := longPosition(10000, 10050, 10060)
				p.TrailingStop = ptr(10050)
				return p
			}(),
			snap:       snapshot(20, 30),
			close:      10085, // entry + 4*20 = 10080
			wantAction: Close,
			wantReason: domain.CloseReasonTrendTakeProfit,
			wantDelta:  85,
		},
		{
			name: "short trend take profit while trailing",
			pos: func() *domain.Position {
				p := shortPosition(10000, 9950, 9940)
				p.TrailingStop = ptr(9950)
				return p
			}(),
			snap:       snapshot(20, 30),
			close:      9915,
			wantAction: Close,
			wantReason: domain.CloseReasonTrendTakeProfit,
			wantDelta:  85,
		},
		{
			name: "fixed take profit suppressed while trailing",
			pos: func() *domain.Position {
				p := longPosition(10000, 10000, 10060)
				p.TrailingStop = ptr(10000)
				return p
			}(),
			snap:       snapshot(20, 20),
			close:      10070, // above tp but below entry + 4*atr
			wantAction: Hold,
		},
		{
			name:       "exits still evaluated with undefined adx",
			pos:        longPosition(10000, 9980, 10060),
			snap:       snapshot(20, math.NaN()),
			close:      9970,
			wantAction: Close,
			wantReason: domain.CloseReasonStopLoss,
			wantDelta:  -30,
		},
		{
			name:       "inside the band holds",
			pos:        longPosition(10000, 9980, 10060),
			snap:       snapshot(20, 20),
			close:      10010,
			wantAction: Hold,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := m.Advance(tt.pos, tt.snap, tt.close)
			assert.Equal(t, tt.wantAction, d.Action)
			if tt.wantAction == Hold {
				assert.True(t, d.Position.IsOpen())
				assert.Empty(t, d.Reason)
				return
			}
			assert.Equal(t, tt.wantReason, d.Reason)
			assert.True(t, d.Position.IsOpen())
			assert.InDelta(t, tt.wantDelta, d.Position.RealizedDeltaAt(tt.close), 1e-9)

			closed := d.Position.Clone()
			closed.CloseAt(tt.close, d.Reason, time.Now())
			assert.Equal(t, domain.StatusClosed, closed.Status)
			assert.InDelta(t, tt.wantDelta*tt.pos.Quantity, closed.PNL, 1e-9)
		})
	}
}

func TestAdvance_RatchetThenStopOnSameBar(t *testing.T) {
	m := newManager(t)
	// The ratchet lifts the stop to the trailing level 9995, above the close.
	pos := longPosition(9950, 9880, 10200)
	pos.TrailingStop = ptr(9995)
	d := m.Advance(pos, snapshot(20, 30), 9990)
	assert.Equal(t, Close, d.Action)
	assert.Equal(t, domain.CloseReasonStopLoss, d.Reason)
	assert.InDelta(t, 9995.0, d.Position.StopLoss, 1e-9)
	assert.InDelta(t, 40.0, d.Position.RealizedDeltaAt(9990), 1e-9)
}

func TestAdvance_FixedTakeProfitDisabled(t *testing.T) {
	cfg := DefaultRiskConfig()
	cfg.FixedTakeProfitExit = false
	m, err := NewRiskManager(cfg)
	require.NoError(t, err)

	d := m.Advance(longPosition(10000, 9980, 10060), snapshot(20, 20), 10065)
	assert.Equal(t, Hold, d.Action)
}

func TestAdvance_StopMonotonicOverSeries(t *testing.T) {
	m := newManager(t)
	pos := longPosition(10000, 9980, 10500)
	closes := []float64{10010, 10030, 10020, 10045, 10040, 10050, 10035}
	lastSL := pos.StopLoss
	for _, c := range closes {
		d := m.Advance(pos, snapshot(10, 35), c)
		if d.Action == Close {
			break
		}
		assert.GreaterOrEqual(t, d.Position.StopLoss, lastSL)
		lastSL = d.Position.StopLoss
		pos = d.Position
	}
}

func TestOpenPosition(t *testing.T) {
	m := newManager(t)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := m.OpenPosition("BTCUSDT", domain.Short, 100, 2, 101, 97, at)
	assert.Equal(t, domain.Short, p.Side)
	assert.True(t, p.IsOpen())
	assert.Nil(t, p.TrailingStop)
	assert.Equal(t, at, p.EntryTime)
}
