package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements ports.Metrics using Prometheus.
type Recorder struct {
	cycles        *prometheus.HistogramVec
	orders        *prometheus.CounterVec
	signals       *prometheus.CounterVec
	closes        *prometheus.CounterVec
	positionOpen  *prometheus.GaugeVec
	profit        prometheus.Gauge
	orderFailures prometheus.Gauge
}

// New creates a recorder whose collectors are registered on reg. Pass
// prometheus.DefaultRegisterer to expose them through promhttp.Handler.
func New(reg prometheus.Registerer, symbol string) *Recorder {
	f := promauto.With(reg)
	labels := prometheus.Labels{"symbol": symbol}
	return &Recorder{
		cycles: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "scalper_cycle_duration_seconds",
			Help:        "Duration of evaluation cycles by outcome",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: labels,
		}, []string{"outcome"}),
		orders: f.NewCounterVec(prometheus.CounterOpts{
			Name:        "scalper_orders_total",
			Help:        "Market orders submitted by side and result",
			ConstLabels: labels,
		}, []string{"side", "result"}),
		signals: f.NewCounterVec(prometheus.CounterOpts{
			Name:        "scalper_signals_total",
			Help:        "Entry evaluations by resulting signal",
			ConstLabels: labels,
		}, []string{"signal"}),
		closes: f.NewCounterVec(prometheus.CounterOpts{
			Name:        "scalper_position_closes_total",
			Help:        "Closed positions by exit reason",
			ConstLabels: labels,
		}, []string{"reason"}),
		positionOpen: f.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "scalper_position_open",
			Help:        "1 while a position on the given side is open",
			ConstLabels: labels,
		}, []string{"side"}),
		profit: f.NewGauge(prometheus.GaugeOpts{
			Name:        "scalper_realized_profit",
			Help:        "Cumulative realized per-unit profit",
			ConstLabels: labels,
		}),
		orderFailures: f.NewGauge(prometheus.GaugeOpts{
			Name:        "scalper_consecutive_order_failures",
			Help:        "Order submissions failed in a row",
			ConstLabels: labels,
		}),
	}
}

func (r *Recorder) ObserveCycle(outcome string, d time.Duration) {
	r.cycles.WithLabelValues(outcome).Observe(d.Seconds())
}

func (r *Recorder) IncOrder(side, result string) {
	r.orders.WithLabelValues(side, result).Inc()
}

func (r *Recorder) IncSignal(signal string) {
	r.signals.WithLabelValues(signal).Inc()
}

func (r *Recorder) IncClose(reason string) {
	r.closes.WithLabelValues(reason).Inc()
}

func (r *Recorder) SetPositionOpen(side string, open bool) {
	v := 0.0
	if open {
		v = 1
	}
	r.positionOpen.WithLabelValues(side).Set(v)
}

func (r *Recorder) SetProfit(v float64) {
	r.profit.Set(v)
}

func (r *Recorder) SetConsecutiveOrderFailures(n int) {
	r.orderFailures.Set(float64(n))
}
