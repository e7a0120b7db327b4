package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-actionform/pkg/formfile"
	"github.com/goliatone/go-actionform/pkg/model"
	"github.com/goliatone/go-actionform/pkg/orchestrator"
	"github.com/goliatone/go-actionform/pkg/params"
	"github.com/goliatone/go-actionform/pkg/render"
	"github.com/goliatone/go-actionform/pkg/renderers/tui"
	"github.com/goliatone/go-actionform/pkg/renderers/vanilla"
)

// errInvalidParams makes the process exit non-zero after printing messages.
var errInvalidParams = errors.New("params are invalid")

type options struct {
	formsDir   string
	formName   string
	dataPath   string
	renderer   string
	format     string
	output     string
	validate   string
	openAPI    bool
	jsonSchema bool
	list       bool
	verbose    bool
}

func main() {
	opts := options{}
	flag.StringVar(&opts.formsDir, "forms", "forms", "directory holding YAML/JSON form files")
	flag.StringVar(&opts.formName, "form", "", "form to render or validate")
	flag.StringVar(&opts.dataPath, "data", "", "JSON or YAML file with the bound model values")
	flag.StringVar(&opts.renderer, "renderer", "vanilla", "renderer to use (vanilla, tui)")
	flag.StringVar(&opts.format, "format", string(tui.OutputFormatJSON), "tui output format (json, form, pretty)")
	flag.StringVar(&opts.output, "output", "", "output file (stdout if empty)")
	flag.StringVar(&opts.validate, "validate", "", "JSON or YAML params file to validate instead of rendering")
	flag.BoolVar(&opts.openAPI, "openapi", false, "print the params schema of the form as OpenAPI JSON")
	flag.BoolVar(&opts.jsonSchema, "jsonschema", false, "print the params schema of the form as JSON Schema")
	flag.BoolVar(&opts.list, "list", false, "list the forms found in the forms directory")
	flag.BoolVar(&opts.verbose, "v", false, "verbose logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	if err := run(context.Background(), opts, os.Stdout, logger); err != nil {
		if !errors.Is(err, errInvalidParams) {
			logger.Error().Err(err).Msg("actionform-cli failed")
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, stdout io.Writer, logger zerolog.Logger) error {
	store, err := formfile.LoadFS(os.DirFS(opts.formsDir))
	if err != nil {
		return fmt.Errorf("load forms from %s: %w", opts.formsDir, err)
	}
	logger.Debug().Str("dir", opts.formsDir).Int("forms", store.Len()).Msg("forms loaded")

	if opts.list {
		for _, name := range store.Names() {
			source, _ := store.Source(name)
			fmt.Fprintf(stdout, "%s\t%s\n", name, source)
		}
		return nil
	}

	if strings.TrimSpace(opts.formName) == "" {
		return errors.New("-form is required")
	}
	def, ok := store.Definition(opts.formName)
	if !ok {
		return fmt.Errorf("%w: %q", orchestrator.ErrFormNotFound, opts.formName)
	}

	if opts.openAPI {
		schema, err := def.ParamsSchema()
		if err != nil {
			return fmt.Errorf("params schema: %w", err)
		}
		data, err := json.MarshalIndent(schema.OpenAPI(), "", "  ")
		if err != nil {
			return fmt.Errorf("encode openapi schema: %w", err)
		}
		return writeOutput(opts.output, stdout, append(data, '\n'))
	}

	if opts.jsonSchema {
		schema, err := def.ParamsSchema()
		if err != nil {
			return fmt.Errorf("params schema: %w", err)
		}
		wire, err := schema.Wire(nil)
		if err != nil {
			return fmt.Errorf("wire schema: %w", err)
		}
		doc, err := wire.JSONSchema()
		if err != nil {
			return fmt.Errorf("json schema: %w", err)
		}
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json schema: %w", err)
		}
		return writeOutput(opts.output, stdout, append(data, '\n'))
	}

	registry, err := newRegistry(tui.OutputFormat(opts.format))
	if err != nil {
		return err
	}
	orch := orchestrator.New(
		orchestrator.WithRegistry(registry),
		orchestrator.WithForms(store),
		orchestrator.WithLogger(logger),
	)

	req := orchestrator.Request{Form: opts.formName, Renderer: opts.renderer}
	if opts.dataPath != "" {
		values, err := loadValues(opts.dataPath)
		if err != nil {
			return err
		}
		req.Model = model.Map(values)
	}

	if opts.validate != "" {
		values, err := loadValues(opts.validate)
		if err != nil {
			return err
		}
		inst, _, err := orch.Validate(ctx, req, values)
		if err != nil {
			return err
		}
		if inst.Valid() {
			fmt.Fprintln(stdout, "valid")
			return nil
		}
		for _, msg := range inst.Errors().FullMessages() {
			fmt.Fprintln(stdout, msg)
		}
		return errInvalidParams
	}

	out, err := orch.Generate(ctx, req)
	if err != nil {
		return fmt.Errorf("generate form: %w", err)
	}
	return writeOutput(opts.output, stdout, out)
}

func newRegistry(format tui.OutputFormat) (*render.Registry, error) {
	html, err := vanilla.New()
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: %w", err)
	}
	prompts, err := tui.New(tui.WithOutputFormat(format), tui.WithValidation(3))
	if err != nil {
		return nil, fmt.Errorf("tui renderer: %w", err)
	}
	registry := render.NewRegistry(html, prompts)
	if err := registry.SetDefault(html.Name()); err != nil {
		return nil, err
	}
	return registry, nil
}

// loadValues reads a JSON or YAML file into a params-shaped map. YAML is
// chosen by the .yaml/.yml extension.
func loadValues(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		out := map[string]any{}
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return out, nil
	default:
		out, err := params.ParseJSON(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return out, nil
	}
}

func writeOutput(path string, stdout io.Writer, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
