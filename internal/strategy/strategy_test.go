package strategy

import (
	"context"
	"math"
	"testing"

	"bandScalper/internal/domain"
	"bandScalper/internal/ports"
	"bandScalper/internal/strategy/indicators"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct {
	debugMsgs []string
	infoMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.debugMsgs = append(m.debugMsgs, msg)
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.errorMsgs = append(m.errorMsgs, msg)
}

func neutralSnapshot() indicators.Snapshot {
	return indicators.Snapshot{
		SMA:        10000,
		UpperBand:  10060,
		LowerBand:  9940,
		RSI:        50,
		MACD:       1.0,
		SignalLine: 1.0,
		ATR:        20,
		ADX:        20,
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		logger  ports.Logger
		wantErr bool
	}{
		{name: "valid config", cfg: DefaultConfig(), logger: &mockLogger{}},
		{name: "nil logger", cfg: DefaultConfig(), logger: nil, wantErr: true},
		{
			name:    "negative tolerance",
			cfg:     Config{BandTolerance: -1, RSILongBelow: 36, RSIShortAbove: 63, StopATRMult: 1, TakeProfitATRMult: 3},
			logger:  &mockLogger{},
			wantErr: true,
		},
		{
			name:    "RSI out of range",
			cfg:     Config{BandTolerance: 50, RSILongBelow: 36, RSIShortAbove: 120, StopATRMult: 1, TakeProfitATRMult: 3},
			logger:  &mockLogger{},
			wantErr: true,
		},
		{
			name:    "zero stop multiplier",
			cfg:     Config{BandTolerance: 50, RSILongBelow: 36, RSIShortAbove: 63, StopATRMult: 0, TakeProfitATRMult: 3},
			logger:  &mockLogger{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(tt.cfg, tt.logger)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, e)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, e)
				assert.Equal(t, tt.cfg, e.cfg)
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(s *indicators.Snapshot)
		close    float64
		wantKind SignalKind
		wantSL   float64
		wantTP   float64
	}{
		{
			name: "enter long below lower band",
			mutate: func(s *indicators.Snapshot) {
				s.RSI = 30
				s.MACD = 1.2
			},
			close:    9900,
			wantKind: EnterLong,
			wantSL:   9880,
			wantTP:   9960,
		},
		{
			name: "enter long within tolerance of lower band",
			mutate: func(s *indicators.Snapshot) {
				s.RSI = 35
				s.MACD = 1.5
			},
			close:    9985, // 9940 + 50 = 9990
			wantKind: EnterLong,
			wantSL:   9965,
			wantTP:   10045,
		},
		{
			name: "enter short above upper band",
			mutate: func(s *indicators.Snapshot) {
				s.RSI = 70
				s.MACD = 0.5
			},
			close:    10100,
			wantKind: EnterShort,
			wantSL:   10120,
			wantTP:   10040,
		},
		{
			name: "long rejected when RSI not oversold",
			mutate: func(s *indicators.Snapshot) {
				s.RSI = 36
				s.MACD = 1.2
			},
			close:    9900,
			wantKind: NoSignal,
		},
		{
			name: "long rejected when MACD equals signal",
			mutate: func(s *indicators.Snapshot) {
				s.RSI = 30
			},
			close:    9900,
			wantKind: NoSignal,
		},
		{
			name: "short rejected when price far from upper band",
			mutate: func(s *indicators.Snapshot) {
				s.RSI = 70
				s.MACD = 0.5
			},
			close:    10000,
			wantKind: NoSignal,
		},
		{
			name: "undefined RSI blocks both branches",
			mutate: func(s *indicators.Snapshot) {
				s.RSI = math.NaN()
				s.MACD = 1.2
			},
			close:    9900,
			wantKind: NoSignal,
		},
		{
			name: "undefined bands block entries",
			mutate: func(s *indicators.Snapshot) {
				s.LowerBand = math.NaN()
				s.UpperBand = math.NaN()
				s.RSI = 30
				s.MACD = 1.2
			},
			close:    9900,
			wantKind: NoSignal,
		},
		{
			name: "undefined ATR blocks entries",
			mutate: func(s *indicators.Snapshot) {
				s.ATR = math.NaN()
				s.RSI = 30
				s.MACD = 1.2
			},
			close:    9900,
			wantKind: NoSignal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &mockLogger{}
			e, err := New(DefaultConfig(), logger)
			require.NoError(t, err)

			snap := neutralSnapshot()
			tt.mutate(&snap)
			sig := e.Evaluate(context.Background(), snap, tt.close)

			assert.Equal(t, tt.wantKind, sig.Kind)
			if tt.wantKind == NoSignal {
				assert.Contains(t, logger.debugMsgs, "Entry conditions not met")
				return
			}
			assert.Equal(t, tt.close, sig.EntryPrice)
			assert.InDelta(t, tt.wantSL, sig.StopLoss, 1e-9)
			assert.InDelta(t, tt.wantTP, sig.TakeProfit, 1e-9)
			assert.Contains(t, logger.infoMsgs, "Entry conditions met")
		})
	}
}

func TestEvaluate_LongWinsTie(t *testing.T) {
	// Overlapping thresholds satisfy the band and RSI legs of both sides.
	cfg := Config{BandTolerance: 1000, RSILongBelow: 60, RSIShortAbove: 40, StopATRMult: 1, TakeProfitATRMult: 3}
	e, err := New(cfg, &mockLogger{})
	require.NoError(t, err)

	snap := neutralSnapshot()
	snap.RSI = 50
	snap.MACD = 1.2
	sig := e.Evaluate(context.Background(), snap, 10000)
	assert.Equal(t, EnterLong, sig.Kind)
	assert.True(t, sig.Diagnostics.NearUpperBand)
	assert.True(t, sig.Diagnostics.RSIOverbought)
}

func TestSignal_Side(t *testing.T) {
	assert.Equal(t, domain.Long, Signal{Kind: EnterLong}.Side())
	assert.Equal(t, domain.Short, Signal{Kind: EnterShort}.Side())
}

func TestLevels(t *testing.T) {
	e, err := New(DefaultConfig(), &mockLogger{})
	require.NoError(t, err)

	sl, tp := e.Levels(domain.Long, 100, 2)
	assert.Equal(t, 98.0, sl)
	assert.Equal(t, 106.0, tp)

	sl, tp = e.Levels(domain.Short, 100, 2)
	assert.Equal(t, 102.0, sl)
	assert.Equal(t, 94.0, tp)
}
