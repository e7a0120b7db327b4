package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-actionform/pkg/form"
	"github.com/goliatone/go-actionform/pkg/model"
	"github.com/goliatone/go-actionform/pkg/params"
	"github.com/goliatone/go-actionform/pkg/render"
	"github.com/goliatone/go-actionform/pkg/renderers/vanilla"
)

const defaultRendererName = "vanilla"

// ErrFormNotFound is returned when a request names an unknown form.
var ErrFormNotFound = errors.New("orchestrator: form not found")

// FormSource looks definitions up by name. *formfile.Store and
// *formfile.Holder satisfy it.
type FormSource interface {
	Definition(name string) (*form.Definition, bool)
}

// Definitions is a FormSource over a fixed set of definitions.
type Definitions map[string]*form.Definition

// Definition implements FormSource.
func (d Definitions) Definition(name string) (*form.Definition, bool) {
	def, ok := d[name]
	return def, ok
}

// MetricsRecorder receives render and validation observations.
// *metrics.Collector satisfies it.
type MetricsRecorder interface {
	ObserveRender(form, renderer string, took time.Duration, err error)
	ObserveValidation(form string, issues int, err error)
}

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithRegistry injects a renderer registry.
func WithRegistry(registry *render.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithRenderer registers an additional renderer. Registration errors surface
// from Generate.
func WithRenderer(renderer render.Renderer) Option {
	return func(o *Orchestrator) {
		if renderer != nil {
			o.extraRenderers = append(o.extraRenderers, renderer)
		}
	}
}

// WithDefaultRenderer overrides the renderer used when a request omits an
// explicit Renderer field.
func WithDefaultRenderer(name string) Option {
	return func(o *Orchestrator) {
		o.defaultRenderer = name
	}
}

// WithForms sets the source requests resolve form names against.
func WithForms(source FormSource) Option {
	return func(o *Orchestrator) {
		o.source = source
	}
}

// WithDefinitions is WithForms over the given definitions, keyed by name.
func WithDefinitions(defs ...*form.Definition) Option {
	return func(o *Orchestrator) {
		set := make(Definitions, len(defs))
		for _, def := range defs {
			if def != nil {
				set[def.Name()] = def
			}
		}
		o.source = set
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithMetrics records render and validation metrics.
func WithMetrics(recorder MetricsRecorder) Option {
	return func(o *Orchestrator) {
		o.metrics = recorder
	}
}

// WithThemeSelector resolves Request.ThemeName/ThemeVariant into the theme
// configuration handed to renderers.
func WithThemeSelector(selector render.ThemeSelector) Option {
	return func(o *Orchestrator) {
		o.themeSelector = selector
	}
}

// WithThemeFallbacks sets partials used when a theme does not define them.
func WithThemeFallbacks(fallbacks map[string]string) Option {
	return func(o *Orchestrator) {
		o.themeFallbacks = fallbacks
	}
}

// WithTransformers registers transformers applied, in order, to the render
// options of every request.
func WithTransformers(transformers ...Transformer) Option {
	return func(o *Orchestrator) {
		for _, t := range transformers {
			if t != nil {
				o.transformers = append(o.transformers, t)
			}
		}
	}
}

// Orchestrator renders and validates forms by name. It defaults to the
// vanilla renderer and a discarding logger.
type Orchestrator struct {
	registry        *render.Registry
	extraRenderers  []render.Renderer
	defaultRenderer string
	source          FormSource
	logger          zerolog.Logger
	metrics         MetricsRecorder
	themeSelector   render.ThemeSelector
	themeFallbacks  map[string]string
	transformers    []Transformer
	initialiseErr   error
}

// New constructs an Orchestrator applying any provided options.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		defaultRenderer: defaultRendererName,
		logger:          zerolog.Nop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

// Request describes one form to render or validate.
type Request struct {
	// Form names the definition looked up in the configured source.
	Form string
	// Definition bypasses the lookup when set.
	Definition *form.Definition

	// Model is the bound value source (a struct, map or model.Record).
	Model any
	// Host answers predicates the form does not declare.
	Host form.Host
	// Scope overrides the definition scope when non-nil.
	Scope *string
	// Action and Method override the configured form action and method.
	Action string
	Method string

	// Renderer names the renderer to use; empty uses the default.
	Renderer string
	// ThemeName and ThemeVariant are resolved through the theme selector.
	ThemeName    string
	ThemeVariant string

	RenderOptions render.RenderOptions
}

// Result is the outcome of Submit.
type Result struct {
	Params *params.Instance
	Form   *form.Form
	// Valid reports whether the params passed validation.
	Valid bool
	// Output holds the re-rendered form when the params are invalid.
	Output []byte
}

// Generate binds the request model to the named form and renders it.
func (o *Orchestrator) Generate(ctx context.Context, req Request) ([]byte, error) {
	if err := o.ready(ctx); err != nil {
		return nil, err
	}
	def, err := o.definition(req)
	if err != nil {
		return nil, err
	}
	f, err := def.Instantiate(instanceOptions(req)...)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: instantiate %s: %w", def.Name(), err)
	}
	return o.render(ctx, req, f)
}

// Validate scopes values to the form, applies its params schema and runs
// validation. Invalid params are not an error: inspect inst.Valid. The
// returned form is bound to the params so it renders submitted values and
// their errors.
func (o *Orchestrator) Validate(ctx context.Context, req Request, values map[string]any) (*params.Instance, *form.Form, error) {
	if err := o.ready(ctx); err != nil {
		return nil, nil, err
	}
	def, err := o.definition(req)
	if err != nil {
		return nil, nil, err
	}

	scoped := params.Scoped(values, scopeFor(def, req))
	inst, f, err := def.FromParams(scoped, instanceOptions(req)...)
	if err != nil {
		o.metrics.ObserveValidation(def.Name(), 0, err)
		return nil, nil, fmt.Errorf("orchestrator: bind params %s: %w", def.Name(), err)
	}

	verr := inst.Validate()
	issues, isIssues := params.AsIssues(verr)
	if verr != nil && !isIssues {
		o.metrics.ObserveValidation(def.Name(), 0, verr)
		o.logger.Error().Err(verr).Str("form", def.Name()).Msg("validation failed")
		return nil, nil, fmt.Errorf("orchestrator: validate %s: %w", def.Name(), verr)
	}
	o.metrics.ObserveValidation(def.Name(), len(issues), nil)
	o.logger.Debug().
		Str("form", def.Name()).
		Bool("valid", len(issues) == 0).
		Int("issues", len(issues)).
		Msg("params validated")
	return inst, f, nil
}

// Submit validates values and, when they are invalid, renders the bound
// form with its errors.
func (o *Orchestrator) Submit(ctx context.Context, req Request, values map[string]any) (Result, error) {
	inst, f, err := o.Validate(ctx, req, values)
	if err != nil {
		return Result{}, err
	}
	result := Result{Params: inst, Form: f, Valid: inst.Valid()}
	if result.Valid {
		return result, nil
	}
	result.Output, err = o.render(ctx, req, f)
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

// Renderers lists the registered renderer names.
func (o *Orchestrator) Renderers() []string {
	if o.registry == nil {
		return nil
	}
	return o.registry.List()
}

// ContentType reports the content type of the named renderer, or of the
// default renderer when name is empty.
func (o *Orchestrator) ContentType(name string) (string, error) {
	renderer, err := o.rendererFor(name)
	if err != nil {
		return "", err
	}
	return renderer.ContentType(), nil
}

func (o *Orchestrator) render(ctx context.Context, req Request, f *form.Form) ([]byte, error) {
	renderer, err := o.rendererFor(req.Renderer)
	if err != nil {
		return nil, err
	}

	opts := req.RenderOptions
	if err := o.applyTheme(req, &opts); err != nil {
		return nil, err
	}
	for _, t := range o.transformers {
		if err := t.Transform(ctx, f, &opts); err != nil {
			return nil, fmt.Errorf("orchestrator: transform render options: %w", err)
		}
	}

	name := f.Definition().Name()
	start := time.Now()
	output, err := renderer.Render(ctx, f, opts)
	took := time.Since(start)
	o.metrics.ObserveRender(name, renderer.Name(), took, err)
	if err != nil {
		o.logger.Error().Err(err).Str("form", name).Str("renderer", renderer.Name()).Msg("render failed")
		return nil, fmt.Errorf("orchestrator: render output: %w", err)
	}

	o.logger.Debug().
		Str("form", name).
		Str("renderer", renderer.Name()).
		Dur("took", took).
		Int("bytes", len(output)).
		Msg("form rendered")
	return output, nil
}

func (o *Orchestrator) applyTheme(req Request, opts *render.RenderOptions) error {
	if opts.Theme != nil || o.themeSelector == nil {
		return nil
	}
	selection, err := o.themeSelector.Select(req.ThemeName, req.ThemeVariant)
	if err != nil {
		return fmt.Errorf("orchestrator: select theme: %w", err)
	}
	opts.Theme = render.ThemeConfig(selection, o.themeFallbacks)
	return nil
}

func (o *Orchestrator) ready(ctx context.Context) error {
	if ctx == nil {
		return errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return o.initialiseErr
}

func (o *Orchestrator) definition(req Request) (*form.Definition, error) {
	if req.Definition != nil {
		return req.Definition, nil
	}
	if req.Form == "" {
		return nil, errors.New("orchestrator: form name is required")
	}
	if o.source == nil {
		return nil, fmt.Errorf("%w: %q (no form source configured)", ErrFormNotFound, req.Form)
	}
	def, ok := o.source.Definition(req.Form)
	if !ok || def == nil {
		return nil, fmt.Errorf("%w: %q", ErrFormNotFound, req.Form)
	}
	return def, nil
}

func (o *Orchestrator) rendererFor(name string) (render.Renderer, error) {
	if o.registry == nil {
		return nil, errors.New("orchestrator: renderer registry is nil")
	}

	target := name
	if target == "" {
		target = o.defaultRenderer
	}

	if target != "" {
		renderer, err := o.registry.Get(target)
		if err == nil {
			return renderer, nil
		}
		if name != "" {
			return nil, fmt.Errorf("orchestrator: renderer %q: %w", name, err)
		}
	}

	names := o.registry.List()
	if len(names) == 0 {
		return nil, errors.New("orchestrator: no renderers registered")
	}

	renderer, err := o.registry.Get(names[0])
	if err != nil {
		return nil, fmt.Errorf("orchestrator: renderer %q: %w", names[0], err)
	}
	return renderer, nil
}

func (o *Orchestrator) applyDefaults() {
	if o.metrics == nil {
		o.metrics = nopMetrics{}
	}
	if o.registry == nil {
		o.registry = render.NewRegistry()
		renderer, err := vanilla.New()
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: default renderer: %w", err)
		} else {
			o.registry.MustRegister(renderer)
		}
	}
	for _, renderer := range o.extraRenderers {
		if err := o.registry.Register(renderer); err != nil && o.initialiseErr == nil {
			o.initialiseErr = fmt.Errorf("orchestrator: register renderer: %w", err)
		}
	}
	if o.defaultRenderer == "" {
		o.defaultRenderer = defaultRendererName
	}
}

func instanceOptions(req Request) []form.InstanceOption {
	var opts []form.InstanceOption
	if req.Model != nil {
		opts = append(opts, form.WithModel(req.Model))
	}
	if req.Host != nil {
		opts = append(opts, form.WithHost(req.Host))
	}
	if req.Scope != nil {
		opts = append(opts, form.WithScope(*req.Scope))
	}
	if req.Action != "" {
		opts = append(opts, form.WithAction(req.Action))
	}
	if req.Method != "" {
		opts = append(opts, form.WithMethod(req.Method))
	}
	return opts
}

// scopeFor mirrors the scope a form instance would pick, so submitted values
// can be unwrapped before the instance exists.
func scopeFor(def *form.Definition, req Request) string {
	switch {
	case req.Scope != nil:
		return *req.Scope
	case def.Scope() != "":
		return def.Scope()
	case req.Model != nil:
		return model.ParamKey(model.ModelName(req.Model))
	}
	return ""
}

type nopMetrics struct{}

func (nopMetrics) ObserveRender(string, string, time.Duration, error) {}
func (nopMetrics) ObserveValidation(string, int, error)               {}
