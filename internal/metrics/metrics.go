// Package metrics provides Prometheus metrics for form rendering, params
// validation, form file reloads and the demo server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "actionform"

// Collector holds the Prometheus metrics. A nil Collector records nothing.
type Collector struct {
	// Render metrics
	RendersTotal   *prometheus.CounterVec
	RenderDuration *prometheus.HistogramVec

	// Validation metrics
	ValidationsTotal *prometheus.CounterVec
	ValidationIssues *prometheus.CounterVec

	// Form file metrics
	FormsLoaded      prometheus.Gauge
	FormReloads      prometheus.Counter
	FormReloadErrors prometheus.Counter

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector registered with reg.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RendersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "renders_total",
				Help:      "Total number of form renders",
			},
			[]string{"form", "renderer", "status"},
		),
		RenderDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "render_duration_seconds",
				Help:      "Form render duration in seconds",
				Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"renderer"},
		),
		ValidationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validations_total",
				Help:      "Total number of params validations by result",
			},
			[]string{"form", "result"},
		),
		ValidationIssues: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_issues_total",
				Help:      "Total number of validation issues reported",
			},
			[]string{"form"},
		),
		FormsLoaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "forms_loaded",
				Help:      "Number of form definitions currently loaded",
			},
		),
		FormReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "form_reloads_total",
				Help:      "Total number of successful form file reloads",
			},
		),
		FormReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "form_reload_errors_total",
				Help:      "Total number of failed form file reloads",
			},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// ObserveRender records one render of form through renderer.
func (c *Collector) ObserveRender(form, renderer string, took time.Duration, err error) {
	if c == nil {
		return
	}
	c.RendersTotal.WithLabelValues(form, renderer, status(err)).Inc()
	c.RenderDuration.WithLabelValues(renderer).Observe(took.Seconds())
}

// ObserveValidation records a params validation. Issues are counted only for
// invalid submissions; err is set when validation itself failed.
func (c *Collector) ObserveValidation(form string, issues int, err error) {
	if c == nil {
		return
	}
	result := "valid"
	switch {
	case err != nil:
		result = "error"
	case issues > 0:
		result = "invalid"
		c.ValidationIssues.WithLabelValues(form).Add(float64(issues))
	}
	c.ValidationsTotal.WithLabelValues(form, result).Inc()
}

// ObserveReload records a form file reload and the resulting form count.
func (c *Collector) ObserveReload(forms int, err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.FormReloadErrors.Inc()
		return
	}
	c.FormReloads.Inc()
	c.FormsLoaded.Set(float64(forms))
}

// ObserveRequest records an HTTP request handled by route.
func (c *Collector) ObserveRequest(method, route string, code int, took time.Duration) {
	if c == nil {
		return
	}
	c.RequestsTotal.WithLabelValues(method, route, statusClass(code)).Inc()
	c.RequestDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
