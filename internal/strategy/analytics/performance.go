package analytics

import (
	"sort"

	"bandScalper/internal/domain"
)

// Summarize calculates performance metrics from closed trades.
// Trades are processed in exit order; the input slice is not reordered.
func Summarize(trades []*domain.Trade) domain.PerformanceSummary {
	var summary domain.PerformanceSummary
	if len(trades) == 0 {
		return summary
	}

	ordered := make([]*domain.Trade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ExitTime.Before(ordered[j].ExitTime)
	})

	var grossWin, grossLoss float64
	var equity, peak float64
	var consecutiveLosses int

	for _, trade := range ordered {
		summary.TotalTrades++
		summary.TotalDelta += trade.RealizedDelta
		summary.TotalPNL += trade.PNL

		if trade.PNL > 0 {
			summary.WinningTrades++
			grossWin += trade.PNL
			consecutiveLosses = 0
		} else {
			summary.LosingTrades++
			grossLoss += trade.PNL
			consecutiveLosses++
			if consecutiveLosses > summary.MaxConsecutiveLosses {
				summary.MaxConsecutiveLosses = consecutiveLosses
			}
		}

		// Drawdown is tracked on the cumulative PNL curve starting at zero.
		equity += trade.PNL
		if equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > summary.MaxDrawdown {
			summary.MaxDrawdown = dd
		}
	}

	summary.WinRate = float64(summary.WinningTrades) / float64(summary.TotalTrades)
	if summary.WinningTrades > 0 {
		summary.AverageWin = grossWin / float64(summary.WinningTrades)
	}
	if summary.LosingTrades > 0 {
		summary.AverageLoss = grossLoss / float64(summary.LosingTrades)
	}
	if grossLoss != 0 {
		summary.ProfitFactor = grossWin / -grossLoss
	}
	return summary
}
