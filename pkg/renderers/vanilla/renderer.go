package vanilla

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/goliatone/go-actionform/pkg/form"
	"github.com/goliatone/go-actionform/pkg/render"
	rendertemplate "github.com/goliatone/go-actionform/pkg/render/template"
	gotemplate "github.com/goliatone/go-actionform/pkg/render/template/gotemplate"
	"github.com/goliatone/go-actionform/pkg/renderers/vanilla/components"
)

// Theme partial keys naming wrapper templates. They take precedence over
// WithElementWrapper and WithFormWrapper.
const (
	PartialElementWrapper = "forms.element"
	PartialFormWrapper    = "forms.page"
)

type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
	registry         *components.Registry
	elementWrapper   string
	formWrapper      string
	stylesheets      []string
	inlineStyles     bool
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithElementWrapper wraps every visible element in the named template, or
// in the template content itself when tpl contains template tags.
func WithElementWrapper(tpl string) Option {
	return func(cfg *config) {
		cfg.elementWrapper = strings.TrimSpace(tpl)
	}
}

// WithFormWrapper wraps the rendered form (error summary included).
func WithFormWrapper(tpl string) Option {
	return func(cfg *config) {
		cfg.formWrapper = strings.TrimSpace(tpl)
	}
}

// WithComponentRegistry replaces the control registry. The renderer keeps a
// copy, so later WithComponent options leave registry untouched.
func WithComponentRegistry(registry *components.Registry) Option {
	return func(cfg *config) {
		if registry != nil {
			cfg.registry = registry.Clone()
		}
	}
}

// WithComponent registers an extra control, selected by the element
// "component" tag.
func WithComponent(name string, descriptor components.Descriptor) Option {
	return func(cfg *config) {
		if cfg.registry == nil {
			cfg.registry = components.NewDefaultRegistry()
		}
		cfg.registry.MustRegister(name, descriptor)
	}
}

// WithStylesheet links an external stylesheet from the form wrapper.
func WithStylesheet(href string) Option {
	return func(cfg *config) {
		if href = strings.TrimSpace(href); href != "" {
			cfg.stylesheets = append(cfg.stylesheets, href)
		}
	}
}

// WithDefaultStyles inlines the embedded stylesheet into the form wrapper.
func WithDefaultStyles() Option {
	return func(cfg *config) {
		cfg.inlineStyles = true
	}
}

// Renderer emits Rails-compatible HTML for a form instance.
type Renderer struct {
	templates      rendertemplate.TemplateRenderer
	registry       *components.Registry
	elementWrapper string
	formWrapper    string
	stylesheets    []string
	inlineStyles   bool
}

// New constructs the vanilla renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templateFS: TemplatesFS()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}
	if cfg.registry == nil {
		cfg.registry = components.NewDefaultRegistry()
	}

	renderer := cfg.templateRenderer
	if renderer == nil {
		engine, err := gotemplate.New(
			gotemplate.WithFS(cfg.templateFS),
			gotemplate.WithExtension(".tmpl"),
		)
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: configure template renderer: %w", err)
		}
		renderer = engine
	}

	return &Renderer{
		templates:      renderer,
		registry:       cfg.registry,
		elementWrapper: cfg.elementWrapper,
		formWrapper:    cfg.formWrapper,
		stylesheets:    cfg.stylesheets,
		inlineStyles:   cfg.inlineStyles,
	}, nil
}

func (r *Renderer) Name() string {
	return "vanilla"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render writes the error summary, the form tag with its hidden bookkeeping
// inputs, the element tree and the submit button.
func (r *Renderer) Render(ctx context.Context, f *form.Form, options render.RenderOptions) ([]byte, error) {
	if f == nil {
		return nil, errors.New("vanilla renderer: form is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.templates == nil {
		return nil, errors.New("vanilla renderer: template renderer is nil")
	}

	state := newRenderState(r, f, options)
	markup, err := state.renderForm()
	if err != nil {
		return nil, err
	}

	wrapper := partialOr(options, PartialFormWrapper, r.formWrapper)
	if wrapper == "" {
		return []byte(markup), nil
	}
	wrapped, err := r.templates.Render(wrapper, state.pageData(markup))
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: render form wrapper: %w", err)
	}
	return []byte(wrapped), nil
}

func partialOr(options render.RenderOptions, key, fallback string) string {
	if options.Theme != nil && options.Theme.Partials != nil {
		if name := strings.TrimSpace(options.Theme.Partials[key]); name != "" {
			return name
		}
	}
	return fallback
}
