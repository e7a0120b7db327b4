package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/goliatone/go-actionform/internal/metrics"
)

func TestObserveRender(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	m.ObserveRender("signup", "vanilla", 2*time.Millisecond, nil)
	m.ObserveRender("signup", "vanilla", time.Millisecond, errors.New("boom"))
	m.ObserveRender("signup", "vanilla", time.Millisecond, nil)

	if got := testutil.ToFloat64(m.RendersTotal.WithLabelValues("signup", "vanilla", "ok")); got != 2 {
		t.Fatalf("ok renders = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RendersTotal.WithLabelValues("signup", "vanilla", "error")); got != 1 {
		t.Fatalf("failed renders = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.RenderDuration); got != 1 {
		t.Fatalf("duration series = %d, want 1", got)
	}
}

func TestObserveValidation(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	m.ObserveValidation("signup", 0, nil)
	m.ObserveValidation("signup", 3, nil)
	m.ObserveValidation("signup", 0, errors.New("predicate failed"))

	for result, want := range map[string]float64{"valid": 1, "invalid": 1, "error": 1} {
		if got := testutil.ToFloat64(m.ValidationsTotal.WithLabelValues("signup", result)); got != want {
			t.Fatalf("%s validations = %v, want %v", result, got, want)
		}
	}
	if got := testutil.ToFloat64(m.ValidationIssues.WithLabelValues("signup")); got != 3 {
		t.Fatalf("issues = %v, want 3", got)
	}
}

func TestObserveReloadAndRequest(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	m.ObserveReload(4, nil)
	m.ObserveReload(0, errors.New("bad file"))
	m.ObserveRequest("POST", "/forms/{name}", 422, time.Millisecond)

	if got := testutil.ToFloat64(m.FormsLoaded); got != 4 {
		t.Fatalf("forms loaded = %v, want 4", got)
	}
	if got := testutil.ToFloat64(m.FormReloadErrors); got != 1 {
		t.Fatalf("reload errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("POST", "/forms/{name}", "4xx")); got != 1 {
		t.Fatalf("requests = %v, want 1", got)
	}
}

func TestNilCollectorIsNoop(t *testing.T) {
	var m *metrics.Collector
	m.ObserveRender("x", "vanilla", time.Millisecond, nil)
	m.ObserveValidation("x", 1, nil)
	m.ObserveReload(1, nil)
	m.ObserveRequest("GET", "/", 200, time.Millisecond)
}
