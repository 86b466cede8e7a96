// Package metrics exposes Prometheus collectors for authentication events and HTTP traffic.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sgm"

// unmatchedRoute labels requests that matched no registered route.
const unmatchedRoute = "unmatched"

// Options configures the collectors.
type Options struct {
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	Buckets    []float64
}

// Metrics holds every collector registered by the service.
// It implements auth.Events.
type Metrics struct {
	LoginSuccess    prometheus.Counter
	LoginFailures   *prometheus.CounterVec
	Locks           prometheus.Counter
	Unlocks         prometheus.Counter
	PasswordChanges prometheus.Counter

	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	InFlight prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with opts.Registerer.
// Collectors that are already registered are reused.
func New(opts Options) (*Metrics, error) {
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	buckets := opts.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	m := &Metrics{gatherer: gatherer}
	var err error

	if m.LoginSuccess, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "login_success_total",
		Help:      "Total number of successful logins.",
	})); err != nil {
		return nil, err
	}
	if m.LoginFailures, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "login_failures_total",
		Help:      "Total number of failed logins partitioned by reason.",
	}, []string{"reason"})); err != nil {
		return nil, err
	}
	if m.Locks, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "account_locks_total",
		Help:      "Total number of accounts locked after failed attempts.",
	})); err != nil {
		return nil, err
	}
	if m.Unlocks, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "account_unlocks_total",
		Help:      "Total number of accounts unlocked after the attempt window elapsed.",
	})); err != nil {
		return nil, err
	}
	if m.PasswordChanges, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "password_changes_total",
		Help:      "Total number of password changes.",
	})); err != nil {
		return nil, err
	}

	if m.Requests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests partitioned by method, route, and status code.",
	}, []string{"method", "route", "status"})); err != nil {
		return nil, err
	}
	if m.Duration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Histogram of HTTP request latencies in seconds partitioned by method, route, and status code.",
		Buckets:   buckets,
	}, []string{"method", "route", "status"})); err != nil {
		return nil, err
	}
	if m.InFlight, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "in_flight_requests",
		Help:      "Current number of in-flight HTTP requests.",
	})); err != nil {
		return nil, err
	}

	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return c, fmt.Errorf("register collector: %w", err)
		}
		existing, ok := already.ExistingCollector.(C)
		if !ok {
			return c, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}
		return existing, nil
	}
	return c, nil
}

func (m *Metrics) LoginSucceeded()           { m.LoginSuccess.Inc() }
func (m *Metrics) LoginFailed(reason string) { m.LoginFailures.WithLabelValues(reason).Inc() }
func (m *Metrics) AccountLocked()            { m.Locks.Inc() }
func (m *Metrics) AccountUnlocked()          { m.Unlocks.Inc() }
func (m *Metrics) PasswordChanged()          { m.PasswordChanges.Inc() }

// Handler serves the registered metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request count, latency and in-flight requests.
// Routes are labelled with their chi pattern; requests matching no route share one label.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.InFlight.Inc()
		defer m.InFlight.Dec()

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		labels := prometheus.Labels{
			"method": r.Method,
			"route":  route,
			"status": strconv.Itoa(status),
		}
		m.Requests.With(labels).Inc()
		m.Duration.With(labels).Observe(time.Since(start).Seconds())
	})
}
