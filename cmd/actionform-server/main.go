// Command actionform-server serves the forms of a directory over HTTP.
//
//	GET  /forms            list form names
//	GET  /forms/{name}     render a form (?renderer=, ?theme=, ?variant=, ?locale=)
//	POST /forms/{name}     validate a submission; 422 re-renders with errors
//	GET  /metrics          prometheus metrics
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-actionform/internal/metrics"
	"github.com/goliatone/go-actionform/pkg/formfile"
	"github.com/goliatone/go-actionform/pkg/orchestrator"
	"github.com/goliatone/go-actionform/pkg/render"
	"github.com/goliatone/go-actionform/pkg/renderers/vanilla"
)

func main() {
	configPath := flag.String("config", "actionform.yaml", "path to configuration file")
	addr := flag.String("addr", "", "listen address (overrides config)")
	formsDir := flag.String("forms", "", "forms directory (overrides config)")
	presets := flag.String("presets", "", "render presets JSON file (overrides config)")
	hotReload := flag.Bool("hot-reload", true, "reload forms when files change")
	validate := flag.Bool("validate", false, "load configuration and forms, then exit")
	flag.Parse()

	explicit := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicit = true
		}
	})

	cfg, err := loadConfig(*configPath, explicit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "forms":
			cfg.FormsDir = *formsDir
		case "presets":
			cfg.Presets = *presets
		case "hot-reload":
			cfg.HotReload = *hotReload
		}
	})

	logger := cfg.Log.logger()

	if *validate {
		holder, err := formfile.NewHolder(cfg.FormsDir, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Forms invalid: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Configuration valid\n")
		fmt.Printf("  Forms: %d in %s\n", holder.Get().Len(), holder.Dir())
		os.Exit(0)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error().Err(err).Msg("server failed")
		os.Exit(1)
	}
}

func run(cfg Config, logger zerolog.Logger) error {
	holder, err := formfile.NewHolder(cfg.FormsDir, logger)
	if err != nil {
		return err
	}
	defer holder.Stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewWithRegistry(reg)
	collector.ObserveReload(holder.Get().Len(), nil)

	holder.OnChange(func(store *formfile.Store) {
		collector.ObserveReload(store.Len(), nil)
	})
	holder.OnReloadError(func(err error) {
		collector.ObserveReload(0, err)
	})
	if cfg.HotReload {
		if err := holder.Watch(); err != nil {
			return err
		}
		holder.WatchSignals()
	}

	orch, err := newOrchestrator(cfg, holder, collector, logger)
	if err != nil {
		return err
	}

	srv := &server{
		orch:      orch,
		forms:     holder,
		collector: collector,
		gatherer:  reg,
		logger:    logger,
		renderer:  cfg.Renderer,
		metrics:   cfg.Metrics,
		timeout:   cfg.Timeout,
		newToken:  newToken,
	}
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("forms", holder.Dir()).Msg("serving forms")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newOrchestrator(cfg Config, forms orchestrator.FormSource, collector *metrics.Collector, logger zerolog.Logger) (*orchestrator.Orchestrator, error) {
	html, err := vanilla.New(vanilla.WithDefaultStyles())
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: %w", err)
	}

	options := []orchestrator.Option{
		orchestrator.WithRegistry(render.NewRegistry(html)),
		orchestrator.WithDefaultRenderer(cfg.Renderer),
		orchestrator.WithForms(forms),
		orchestrator.WithLogger(logger),
		orchestrator.WithMetrics(collector),
	}
	if cfg.Presets != "" {
		presets, err := orchestrator.NewPresetTransformerFromFS(os.DirFS(filepath.Dir(cfg.Presets)), filepath.Base(cfg.Presets))
		if err != nil {
			return nil, err
		}
		options = append(options, orchestrator.WithTransformers(presets))
	}
	return orchestrator.New(options...), nil
}
