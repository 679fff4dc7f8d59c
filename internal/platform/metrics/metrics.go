// Package metrics registers Prometheus collectors for the HTTP surface and
// the clinical workflow.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors. Services take a *Metrics; nil disables recording.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	symptomTransitions  *prometheus.CounterVec
	accessDecisions     *prometheus.CounterVec
	appointmentActions  *prometheus.CounterVec
	slotConflicts       prometheus.Counter
	resultsUploaded     prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		symptomTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "symptom_status_transitions_total",
				Help: "Symptom status transitions by event and resulting status",
			},
			[]string{"event", "to"},
		),
		accessDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "access_decisions_total",
				Help: "Visibility decisions by level and label",
			},
			[]string{"level", "label"},
		),
		appointmentActions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appointment_actions_total",
				Help: "Appointment negotiation actions by action and outcome status",
			},
			[]string{"action", "status"},
		),
		slotConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "slot_reservation_conflicts_total",
			Help: "Slot reservations lost to a concurrent booking",
		}),
		resultsUploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lab_results_uploaded_total",
			Help: "Lab result uploads accepted",
		}),
	}

	m.registry.MustRegister(
		m.httpRequests,
		m.httpRequestDuration,
		m.symptomTransitions,
		m.accessDecisions,
		m.appointmentActions,
		m.slotConflicts,
		m.resultsUploaded,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// Middleware records request counts and latency labelled by route template.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.httpRequests.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
			m.httpRequestDuration.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func (m *Metrics) SymptomTransition(event, to string) {
	if m == nil {
		return
	}
	m.symptomTransitions.WithLabelValues(event, to).Inc()
}

func (m *Metrics) AccessDecision(level, label string) {
	if m == nil {
		return
	}
	m.accessDecisions.WithLabelValues(level, label).Inc()
}

func (m *Metrics) AppointmentAction(action, status string) {
	if m == nil {
		return
	}
	m.appointmentActions.WithLabelValues(action, status).Inc()
}

func (m *Metrics) SlotConflict() {
	if m == nil {
		return
	}
	m.slotConflicts.Inc()
}

func (m *Metrics) ResultUploaded() {
	if m == nil {
		return
	}
	m.resultsUploaded.Inc()
}
