package ports

import "time"

// Metrics records loop instrumentation.
type Metrics interface {
	ObserveCycle(outcome string, d time.Duration)
	IncOrder(side, result string)
	IncSignal(signal string)
	IncClose(reason string)
	SetPositionOpen(side string, open bool)
	SetProfit(v float64)
	SetConsecutiveOrderFailures(n int)
}

// NoopMetrics discards every observation.
type NoopMetrics struct{}

func (NoopMetrics) ObserveCycle(string, time.Duration) {}
func (NoopMetrics) IncOrder(string, string)            {}
func (NoopMetrics) IncSignal(string)                   {}
func (NoopMetrics) IncClose(string)                    {}
func (NoopMetrics) SetPositionOpen(string, bool)       {}
func (NoopMetrics) SetProfit(float64)                  {}
func (NoopMetrics) SetConsecutiveOrderFailures(int)    {}
