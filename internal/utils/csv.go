package utils

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"bandScalper/internal/domain"
	"bandScalper/internal/strategy/indicators"
)

var barHeader = []string{
	"open_time", "close_time", "symbol", "interval", "open", "high", "low", "close", "volume",
	"sma", "upper_band", "lower_band", "rsi", "macd", "signal_line", "atr", "adx",
}

// WriteBarsToCSV writes bars with their indicator snapshots to filename.
// snaps must be nil or have one entry per bar; undefined values are left empty.
func WriteBarsToCSV(bars []domain.Bar, snaps []indicators.Snapshot, filename string) error {
	if snaps != nil && len(snaps) != len(bars) {
		return fmt.Errorf("got %d snapshots for %d bars", len(snaps), len(bars))
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(barHeader); err != nil {
		return err
	}

	for i, b := range bars {
		snap := indicators.Undefined()
		if snaps != nil {
			snap = snaps[i]
		}
		row := []string{
			b.OpenTime.UTC().Format(time.RFC3339),
			b.CloseTime.UTC().Format(time.RFC3339),
			b.Symbol,
			b.Interval,
			formatFloat(b.Open),
			formatFloat(b.High),
			formatFloat(b.Low),
			formatFloat(b.Close),
			formatFloat(b.Volume),
			formatFloat(snap.SMA),
			formatFloat(snap.UpperBand),
			formatFloat(snap.LowerBand),
			formatFloat(snap.RSI),
			formatFloat(snap.MACD),
			formatFloat(snap.SignalLine),
			formatFloat(snap.ATR),
			formatFloat(snap.ADX),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadBarsFromCSV loads the bar columns of a file written by WriteBarsToCSV.
func ReadBarsFromCSV(filename string) ([]domain.Bar, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	bars := make([]domain.Bar, 0, len(records)-1)
	for line, rec := range records[1:] {
		if len(rec) < 9 {
			return nil, fmt.Errorf("line %d: expected at least 9 columns, got %d", line+2, len(rec))
		}
		bar := domain.Bar{Symbol: rec[2], Interval: rec[3]}
		if bar.OpenTime, err = time.Parse(time.RFC3339, rec[0]); err != nil {
			return nil, fmt.Errorf("line %d: open_time: %w", line+2, err)
		}
		if bar.CloseTime, err = time.Parse(time.RFC3339, rec[1]); err != nil {
			return nil, fmt.Errorf("line %d: close_time: %w", line+2, err)
		}
		fields := []*float64{&bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume}
		for j, dst := range fields {
			if *dst, err = strconv.ParseFloat(rec[4+j], 64); err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line+2, barHeader[4+j], err)
			}
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
