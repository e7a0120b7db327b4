package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-actionform/internal/metrics"
	"github.com/goliatone/go-actionform/pkg/formfile"
)

const signupForm = `
forms:
  - name: signup
    scope: signup
    fields:
      - name: name
        required: true
      - name: age
        input: number
        output: integer
        validates:
          - rule: numericality
            min: 18
`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := formfile.LoadFS(fstest.MapFS{"signup.yaml": {Data: []byte(signupForm)}})
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewWithRegistry(reg)
	cfg := defaultConfig()
	orch, err := newOrchestrator(cfg, store, collector, zerolog.Nop())
	if err != nil {
		t.Fatalf("newOrchestrator: %v", err)
	}

	srv := &server{
		orch:      orch,
		forms:     store,
		collector: collector,
		gatherer:  reg,
		logger:    zerolog.Nop(),
		renderer:  cfg.Renderer,
		metrics:   cfg.Metrics,
		timeout:   time.Second,
		newToken:  func() string { return "tok-1" },
	}
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return ts
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(data)
}

func TestShowFormRendersMarkup(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/forms/signup")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
	for _, want := range []string{
		`action="/forms/signup"`,
		`<input name="authenticity_token" type="hidden" value="tok-1">`,
		`name="signup[name]"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %s in markup:\n%s", want, body)
		}
	}
}

func TestShowFormUnknown(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/forms/missing")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	readBody(t, resp)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSubmitInvalidRerenders(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.PostForm(ts.URL+"/forms/signup", url.Values{
		"signup[name]": {""},
		"signup[age]":  {"12"},
	})
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", resp.StatusCode, body)
	}
	for _, want := range []string{"can&#39;t be blank", `value="12"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %s in markup:\n%s", want, body)
		}
	}
}

func TestSubmitValidEchoesParams(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/forms/signup", "application/json",
		strings.NewReader(`{"signup": {"name": "Ada", "age": 40}}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var got map[string]any
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]any{
		"form":   "signup",
		"params": map[string]any{"name": "Ada", "age": float64(40)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestListFormsAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/forms/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if body := readBody(t, resp); strings.TrimSpace(body) != `{"forms":["signup"]}` {
		t.Fatalf("unexpected listing %q", body)
	}

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	body := readBody(t, resp)
	if !strings.Contains(body, `actionform_http_requests_total{method="GET",route="/forms",status="2xx"} 1`) {
		t.Fatalf("expected request counter in metrics:\n%s", body)
	}
}

func TestRouteLabel(t *testing.T) {
	cases := map[string]string{
		"":              "unmatched",
		"/":             "/",
		"/forms/":       "/forms",
		"/forms":        "/forms",
		"/forms/{name}": "/forms/{name}",
		"/assets/*":     "/assets/*",
	}
	for pattern, want := range cases {
		if got := routeLabel(pattern); got != want {
			t.Errorf("routeLabel(%q) = %q, want %q", pattern, got, want)
		}
	}
}

func TestLoadConfigAppliesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "actionform.yaml")
	content := "addr: \":9090\"\nforms_dir: ./defs\ntimeout: 5s\nlog:\n  level: debug\n  format: json\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := loadConfig(path, true)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	want := defaultConfig()
	want.Addr = ":9090"
	want.FormsDir = "./defs"
	want.Timeout = 5 * time.Second
	want.Log = LogConfig{Level: "debug", Format: "json"}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}

	if _, err := loadConfig(filepath.Join(dir, "missing.yaml"), false); err != nil {
		t.Fatalf("implicit missing config must fall back to defaults: %v", err)
	}
	if _, err := loadConfig(filepath.Join(dir, "missing.yaml"), true); err == nil {
		t.Fatalf("explicit missing config must fail")
	}
}
