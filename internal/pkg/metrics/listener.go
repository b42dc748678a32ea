package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type ListenerMetrics struct {
	RangesScannedTotal prometheus.Counter
	EventsTotal        *prometheus.CounterVec
	BackoffsTotal      *prometheus.CounterVec
	LastProcessedBlock prometheus.Gauge
	ScanLatencyMS      prometheus.Histogram
}

const (
	// EventsTotal outcome label values.
	OutcomeDispatched = "dispatched"
	OutcomeDedup      = "dedup_skip"
	OutcomeMalformed  = "malformed"
	OutcomeWrongChain = "wrong_chain"
)

var (
	listenerOnce sync.Once
	listener     *ListenerMetrics
)

func Listener() *ListenerMetrics {
	listenerOnce.Do(func() {
		r := Registerer()
		listener = &ListenerMetrics{
			RangesScannedTotal: promauto.With(r).NewCounter(prometheus.CounterOpts{
				Name: "listener_ranges_scanned_total",
				Help: "block ranges scanned successfully",
			}),
			EventsTotal: promauto.With(r).NewCounterVec(
				prometheus.CounterOpts{
					Name: "listener_events_total",
					Help: "lock events seen, by processing outcome",
				},
				[]string{"outcome"},
			),
			BackoffsTotal: promauto.With(r).NewCounterVec(
				prometheus.CounterOpts{
					Name: "listener_backoffs_total",
					Help: "backoff cycles entered, by reason",
				},
				[]string{"reason"},
			),
			LastProcessedBlock: promauto.With(r).NewGauge(prometheus.GaugeOpts{
				Name: "listener_last_processed_block",
				Help: "highest source block fully processed by the listener",
			}),
			ScanLatencyMS: promauto.With(r).NewHistogram(prometheus.HistogramOpts{
				Name:    "listener_scan_latency_ms",
				Help:    "log scan latency per range (ms)",
				Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
			}),
		}
	})
	return listener
}
