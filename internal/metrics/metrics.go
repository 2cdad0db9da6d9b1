// Package metrics exposes prometheus counters for HTTP traffic and review
// score runs.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"backend-travelbuddy/internal/reviewscore"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "travelbuddy"

type Metrics struct {
	Registry *prometheus.Registry

	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	rescores      *prometheus.CounterVec
	scoreFailures prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		rescores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "review_score_runs_total",
			Help:      "Review score aggregation runs by result.",
		}, []string{"result"}),
		scoreFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "review_score_write_failures_total",
			Help:      "Per-user review score writes that failed.",
		}),
	}
	reg.MustRegister(
		m.requests, m.latency, m.rescores, m.scoreFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Middleware records every request under its route pattern, so /trips/:id is
// one series regardless of the id.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}
		route := c.Route().Path
		m.requests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		m.latency.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
}

// ObserveRescore counts one aggregation run and its failed writes.
func (m *Metrics) ObserveRescore(report reviewscore.Report, err error) {
	result := "ok"
	switch {
	case errors.Is(err, reviewscore.ErrPartialUpdate):
		result = "partial"
	case err != nil:
		result = "error"
	}
	m.rescores.WithLabelValues(result).Inc()
	m.scoreFailures.Add(float64(len(report.Failures)))
}
