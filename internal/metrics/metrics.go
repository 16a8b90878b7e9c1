package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ChipSentinel/internal/model"
)

// Metrics holds the Prometheus collectors for fetching, caching and scanning.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	FetchDuration *prometheus.HistogramVec // labels: source, dataset
	FetchFailures *prometheus.CounterVec   // labels: source, dataset
	CacheRequests *prometheus.CounterVec   // labels: result=hit|miss

	ScansTotal       prometheus.Counter
	ScanDuration     prometheus.Histogram
	LastScanHits     prometheus.Gauge
	SymbolsEvaluated prometheus.Counter
	SymbolsSkipped   *prometheus.CounterVec // labels: reason
	Signals          *prometheus.CounterVec // labels: verdict
}

// NewMetrics creates all collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chipsentinel_fetch_duration_seconds",
			Help:    "Remote data provider call latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source", "dataset"}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chipsentinel_fetch_failures_total",
			Help: "Remote data provider calls that returned an error",
		}, []string{"source", "dataset"}),
		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chipsentinel_cache_requests_total",
			Help: "Series cache lookups by result",
		}, []string{"result"}),

		ScansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chipsentinel_scans_total",
			Help: "Completed watchlist scans",
		}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chipsentinel_scan_duration_seconds",
			Help:    "Wall time of a full watchlist scan",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		LastScanHits: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chipsentinel_last_scan_hits",
			Help: "Symbols with an investment-trust streak in the latest scan",
		}),
		SymbolsEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chipsentinel_symbols_evaluated_total",
			Help: "Symbols that produced a signal evaluation",
		}),
		SymbolsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chipsentinel_symbols_skipped_total",
			Help: "Symbols skipped during evaluation, by reason",
		}, []string{"reason"}),
		Signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chipsentinel_signals_total",
			Help: "Signal evaluations by verdict",
		}, []string{"verdict"}),
	}

	reg.MustRegister(
		m.FetchDuration,
		m.FetchFailures,
		m.CacheRequests,
		m.ScansTotal,
		m.ScanDuration,
		m.LastScanHits,
		m.SymbolsEvaluated,
		m.SymbolsSkipped,
		m.Signals,
	)
	return m
}

// ObserveFetch records one remote call.
func (m *Metrics) ObserveFetch(source, dataset string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(source, dataset).Observe(d.Seconds())
	if err != nil {
		m.FetchFailures.WithLabelValues(source, dataset).Inc()
	}
}

// ObserveCache records a cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequests.WithLabelValues(result).Inc()
}

// ObserveSignal records an evaluated symbol.
func (m *Metrics) ObserveSignal(v model.Verdict) {
	if m == nil {
		return
	}
	m.SymbolsEvaluated.Inc()
	m.Signals.WithLabelValues(string(v)).Inc()
}

// ObserveSkip records a symbol that could not be evaluated.
func (m *Metrics) ObserveSkip(reason model.SkipReason) {
	if m == nil {
		return
	}
	m.SymbolsSkipped.WithLabelValues(string(reason)).Inc()
}

// ObserveScan records a finished scan.
func (m *Metrics) ObserveScan(d time.Duration, hits int) {
	if m == nil {
		return
	}
	m.ScansTotal.Inc()
	m.ScanDuration.Observe(d.Seconds())
	m.LastScanHits.Set(float64(hits))
}
