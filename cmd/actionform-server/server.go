package main

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-actionform/internal/metrics"
	"github.com/goliatone/go-actionform/pkg/orchestrator"
	"github.com/goliatone/go-actionform/pkg/params"
	"github.com/goliatone/go-actionform/pkg/render"
	"github.com/goliatone/go-actionform/pkg/renderers/vanilla"
)

const maxBodyBytes = 1 << 20

// formLister reports the names of the served forms.
type formLister interface {
	orchestrator.FormSource
	Names() []string
}

type server struct {
	orch      *orchestrator.Orchestrator
	forms     formLister
	collector *metrics.Collector
	gatherer  prometheus.Gatherer
	logger    zerolog.Logger
	renderer  string
	metrics   MetricsConfig
	timeout   time.Duration
	newToken  func() string
}

func (s *server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	if s.timeout > 0 {
		r.Use(middleware.Timeout(s.timeout))
	}
	if s.collector != nil {
		r.Use(s.measureRequests)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServerFS(vanilla.AssetsFS())))
	if s.metrics.Enabled && s.gatherer != nil {
		r.Handle(s.metrics.Path, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/forms", func(r chi.Router) {
		r.Get("/", s.listForms)
		r.Get("/{name}", s.showForm)
		r.Post("/{name}", s.submitForm)
	})
	return r
}

func (s *server) listForms(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"forms": s.forms.Names()})
}

func (s *server) showForm(w http.ResponseWriter, r *http.Request) {
	req := s.request(r)
	out, err := s.orch.Generate(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeRendered(w, req.Renderer, http.StatusOK, out)
}

func (s *server) submitForm(w http.ResponseWriter, r *http.Request) {
	values, err := decodeBody(w, r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	req := s.request(r)
	result, err := s.orch.Submit(r.Context(), req, values)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !result.Valid {
		s.writeRendered(w, req.Renderer, http.StatusUnprocessableEntity, result.Output)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"form":   chi.URLParam(r, "name"),
		"params": result.Params.Values(),
	})
}

// request builds the orchestrator request for the named form. Renderer,
// theme and variant come from the query string.
func (s *server) request(r *http.Request) orchestrator.Request {
	query := r.URL.Query()
	renderer := query.Get("renderer")
	if renderer == "" {
		renderer = s.renderer
	}
	return orchestrator.Request{
		Form:         chi.URLParam(r, "name"),
		Renderer:     renderer,
		ThemeName:    query.Get("theme"),
		ThemeVariant: query.Get("variant"),
		Action:       r.URL.Path,
		RenderOptions: render.RenderOptions{
			Helpers: render.StaticHelpers{Token: s.newToken(), Path: r.URL.Path},
			Locale:  query.Get("locale"),
		},
	}
}

func (s *server) writeRendered(w http.ResponseWriter, renderer string, status int, body []byte) {
	contentType, err := s.orch.ContentType(renderer)
	if err != nil {
		contentType = "text/html; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		s.logger.Debug().Err(err).Msg("write response")
	}
}

func (s *server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Debug().Err(err).Msg("write response")
	}
}

func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, orchestrator.ErrFormNotFound):
		status = http.StatusNotFound
	case errors.Is(err, render.ErrRendererNotFound), errors.Is(err, render.ErrThemeNotFound):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error().
			Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("form request failed")
	}
	s.writeJSON(w, status, map[string]any{"error": err.Error()})
}

// decodeBody reads urlencoded, multipart or JSON bodies into a params map.
func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case mediaType == "application/json":
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		return params.ParseJSON(data)
	case mediaType == "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return nil, err
		}
	default:
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
	}
	return params.ParseForm(r.PostForm)
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == s.metrics.Path {
			return
		}
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

func (s *server) measureRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == s.metrics.Path {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		s.collector.ObserveRequest(r.Method, routeLabel(route), ww.Status(), time.Since(start))
	})
}

// routeLabel keeps metric labels stable: "/forms/" and "/forms" count as the
// same route, and requests chi did not match share one label.
func routeLabel(pattern string) string {
	if pattern == "" {
		return "unmatched"
	}
	if pattern != "/" {
		pattern = strings.TrimRight(pattern, "/")
	}
	return pattern
}

func newToken() string {
	return uuid.NewString()
}
