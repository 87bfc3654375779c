package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type ConversionMetrics struct {
	service string

	conversionTotal    *prometheus.CounterVec
	conversionDuration *prometheus.HistogramVec
	conversionInFlight prometheus.Gauge
	inputBytes         *prometheus.HistogramVec
}

func newConversionMetrics(registry *prometheus.Registry, service string) *ConversionMetrics {
	conversionTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversion",
			Name:      "total",
			Help:      "Total conversions by source format, target format and status.",
		},
		[]string{"service", "source", "target", "status"},
	)
	conversionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "conversion",
			Name:      "duration_seconds",
			Help:      "Conversion duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	conversionInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "conversion",
			Name:      "in_flight",
			Help:      "Number of in-flight conversions.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	inputBytes := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "conversion",
			Name:      "input_bytes",
			Help:      "Size of uploaded documents in bytes.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 9),
		},
		[]string{"service", "source"},
	)

	registry.MustRegister(conversionTotal, conversionDuration, conversionInFlight, inputBytes)

	return &ConversionMetrics{
		service:            service,
		conversionTotal:    conversionTotal,
		conversionDuration: conversionDuration,
		conversionInFlight: conversionInFlight,
		inputBytes:         inputBytes,
	}
}

func (m *ConversionMetrics) StartConversion() {
	m.conversionInFlight.Inc()
}

func (m *ConversionMetrics) FinishConversion(source, target, status string, size int64, duration time.Duration) {
	m.conversionInFlight.Dec()
	if source == "" {
		source = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	m.conversionTotal.WithLabelValues(m.service, source, target, status).Inc()
	m.conversionDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
	if size > 0 {
		m.inputBytes.WithLabelValues(m.service, source).Observe(float64(size))
	}
}

// RegisterCacheStats exposes result cache counters read at scrape time.
func (m *HTTPServerMetrics) RegisterCacheStats(stats func() (hits, misses uint64, entries int)) {
	m.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "cache",
			Name:        "hits_total",
			Help:        "Result cache hits.",
			ConstLabels: prometheus.Labels{"service": m.service},
		}, func() float64 {
			hits, _, _ := stats()
			return float64(hits)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "cache",
			Name:        "misses_total",
			Help:        "Result cache misses.",
			ConstLabels: prometheus.Labels{"service": m.service},
		}, func() float64 {
			_, misses, _ := stats()
			return float64(misses)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "cache",
			Name:        "entries",
			Help:        "Entries currently held by the result cache.",
			ConstLabels: prometheus.Labels{"service": m.service},
		}, func() float64 {
			_, _, entries := stats()
			return float64(entries)
		}),
	)
}

// RegisterRateLimiterClients exposes how many client buckets the rate limiter holds.
func (m *HTTPServerMetrics) RegisterRateLimiterClients(clients func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   "http",
		Name:        "rate_limiter_clients",
		Help:        "Client token buckets currently tracked by the rate limiter.",
		ConstLabels: prometheus.Labels{"service": m.service},
	}, func() float64 {
		return float64(clients())
	}))
}
