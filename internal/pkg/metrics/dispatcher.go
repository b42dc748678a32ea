package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DispatcherMetrics struct {
	DispatchedTotal    *prometheus.CounterVec
	PublishErrorsTotal *prometheus.CounterVec
	PublishLatencyMS   prometheus.Histogram
}

var (
	dispatcherOnce sync.Once
	dispatcher     *DispatcherMetrics
)

func Dispatcher() *DispatcherMetrics {
	dispatcherOnce.Do(func() {
		r := Registerer()
		dispatcher = &DispatcherMetrics{
			DispatchedTotal: promauto.With(r).NewCounterVec(
				prometheus.CounterOpts{
					Name: "dispatcher_actions_total",
					Help: "relay actions dispatched, by mode",
				},
				[]string{"mode"},
			),
			PublishErrorsTotal: promauto.With(r).NewCounterVec(
				prometheus.CounterOpts{
					Name: "dispatcher_publish_errors_total",
					Help: "relay dispatch failures, by mode and reason",
				},
				[]string{"mode", "reason"},
			),
			PublishLatencyMS: promauto.With(r).NewHistogram(prometheus.HistogramOpts{
				Name:    "dispatcher_publish_latency_ms",
				Help:    "relay dispatch latency (ms)",
				Buckets: []float64{5, 10, 20, 50, 100, 200, 500, 1000, 2000},
			}),
		}
	})
	return dispatcher
}
