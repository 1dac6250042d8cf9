package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes Prometheus metrics for inbound HTTP requests and the
// generation pipeline.
type Collector struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	generationTotal *prometheus.CounterVec
	tokensTotal     prometheus.Counter
	costTotal       prometheus.Counter
}

// NewCollector constructs a collector with default histograms/counters.
func NewCollector() (*Collector, error) {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "testgen",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for inbound HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "testgen",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of inbound HTTP requests.",
	}, []string{"method", "path", "status"})

	generationTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "testgen",
		Subsystem: "pipeline",
		Name:      "generations_total",
		Help:      "Generation requests by resolution source and outcome.",
	}, []string{"source", "status"})

	tokensTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "testgen",
		Subsystem: "pipeline",
		Name:      "tokens_total",
		Help:      "Total tokens consumed across all model calls.",
	})

	costTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "testgen",
		Subsystem: "pipeline",
		Name:      "cost_usd_total",
		Help:      "Estimated cumulative model spend in USD.",
	})

	for _, c := range []prometheus.Collector{requestDuration, requestTotal, generationTotal, tokensTotal, costTotal} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	collector := &Collector{
		registry:        registry,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		generationTotal: generationTotal,
		tokensTotal:     tokensTotal,
		costTotal:       costTotal,
	}

	return collector, nil
}

// ObserveGeneration records one resolved generation attempt.
func (c *Collector) ObserveGeneration(source, status string, totalTokens int, costUSD float64) {
	c.generationTotal.WithLabelValues(source, status).Inc()
	if totalTokens > 0 {
		c.tokensTotal.Add(float64(totalTokens))
	}
	if costUSD > 0 {
		c.costTotal.Add(costUSD)
	}
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler to record HTTP metrics.
func (c *Collector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.status)
		path := r.URL.Path

		c.requestTotal.WithLabelValues(r.Method, path, status).Inc()
		c.requestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
