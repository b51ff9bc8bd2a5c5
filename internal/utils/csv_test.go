package utils

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bandScalper/internal/domain"
	"bandScalper/internal/strategy/indicators"
)

func TestWriteAndReadBarsCSV(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []domain.Bar{
		{OpenTime: start, CloseTime: start.Add(time.Minute - time.Millisecond), Symbol: "BTCUSDT", Interval: "1m", Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 3},
		{OpenTime: start.Add(time.Minute), CloseTime: start.Add(2*time.Minute - time.Millisecond), Symbol: "BTCUSDT", Interval: "1m", Open: 100.5, High: 102, Low: 100, Close: 101.25, Volume: 4.5},
	}
	snaps := []indicators.Snapshot{
		indicators.Undefined(),
		{SMA: 100.875, UpperBand: 102, LowerBand: 99.75, RSI: 55, MACD: 0.1, SignalLine: 0.05, ATR: 1.5, ADX: math.NaN()},
	}

	path := filepath.Join(t.TempDir(), "out", "bars.csv")
	require.NoError(t, WriteBarsToCSV(bars, snaps, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "open_time,close_time"))
	assert.True(t, strings.HasSuffix(lines[1], ",,,,,,,,"), "warm-up row has empty indicator columns")
	assert.Contains(t, lines[2], ",100.875,102,99.75,55,0.1,0.05,1.5,")

	got, err := ReadBarsFromCSV(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 101.25, got[1].Close)
	assert.True(t, start.Add(time.Minute).Equal(got[1].OpenTime))
	assert.Equal(t, "BTCUSDT", got[0].Symbol)
}

func TestWriteBarsToCSV_LengthMismatch(t *testing.T) {
	err := WriteBarsToCSV([]domain.Bar{{}}, []indicators.Snapshot{}, filepath.Join(t.TempDir(), "x.csv"))
	assert.Error(t, err)
}

func TestReadBarsFromCSV_BadRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("h\n2024-01-01T00:00:00Z,2024-01-01T00:00:59Z,X,1m,abc,1,1,1,1\n"), 0o644))
	_, err := ReadBarsFromCSV(path)
	assert.Error(t, err)
}
