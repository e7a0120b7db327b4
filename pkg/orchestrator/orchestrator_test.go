package orchestrator_test

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
	theme "github.com/goliatone/go-theme"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/goliatone/go-actionform/internal/metrics"
	"github.com/goliatone/go-actionform/pkg/form"
	"github.com/goliatone/go-actionform/pkg/model"
	"github.com/goliatone/go-actionform/pkg/orchestrator"
	"github.com/goliatone/go-actionform/pkg/params"
	"github.com/goliatone/go-actionform/pkg/render"
)

type captureRenderer struct {
	name  string
	forms []*form.Form
	opts  []render.RenderOptions
	err   error
}

func (r *captureRenderer) Name() string        { return r.name }
func (r *captureRenderer) ContentType() string { return "text/plain" }

func (r *captureRenderer) Render(_ context.Context, f *form.Form, opts render.RenderOptions) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.forms = append(r.forms, f)
	r.opts = append(r.opts, opts)
	return []byte(r.name + ":" + f.Definition().Name()), nil
}

func signupDefinition() *form.Definition {
	return form.MustNew("signup", func(b *form.Builder) {
		b.Scope("signup")
		b.Element("name", func(e *form.ElementBuilder) {
			e.Input(form.InputText).Output(form.OutputString, form.Required())
		})
		b.Element("age", func(e *form.ElementBuilder) {
			e.Input(form.InputNumber).Output(form.OutputInteger, form.Validates(params.Numericality(params.Min(18))))
		})
	})
}

func newOrchestrator(t *testing.T, renderer *captureRenderer, options ...orchestrator.Option) *orchestrator.Orchestrator {
	t.Helper()
	registry := render.NewRegistry()
	registry.MustRegister(renderer)
	base := []orchestrator.Option{
		orchestrator.WithRegistry(registry),
		orchestrator.WithDefaultRenderer(renderer.name),
		orchestrator.WithDefinitions(signupDefinition()),
	}
	return orchestrator.New(append(base, options...)...)
}

func elementValue(t *testing.T, f *form.Form, name string) any {
	t.Helper()
	for _, node := range f.Nodes() {
		if e, ok := node.(*form.Element); ok && e.Name() == name {
			return e.Value()
		}
	}
	t.Fatalf("element %q not found", name)
	return nil
}

func TestGenerate_BindsModelAndRenders(t *testing.T) {
	renderer := &captureRenderer{name: "capture"}
	orch := newOrchestrator(t, renderer)

	out, err := orch.Generate(context.Background(), orchestrator.Request{
		Form:  "signup",
		Model: model.Map{"name": "Ada", "age": 36},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if string(out) != "capture:signup" {
		t.Fatalf("unexpected output %q", out)
	}
	if got := elementValue(t, renderer.forms[0], "name"); got != "Ada" {
		t.Fatalf("expected bound name, got %v", got)
	}
}

func TestGenerate_UnknownForm(t *testing.T) {
	orch := newOrchestrator(t, &captureRenderer{name: "capture"})

	_, err := orch.Generate(context.Background(), orchestrator.Request{Form: "missing"})
	if !errors.Is(err, orchestrator.ErrFormNotFound) {
		t.Fatalf("expected ErrFormNotFound, got %v", err)
	}
}

func TestGenerate_RendererSelection(t *testing.T) {
	first := &captureRenderer{name: "alpha"}
	second := &captureRenderer{name: "beta"}
	registry := render.NewRegistry()
	registry.MustRegister(first)
	registry.MustRegister(second)

	orch := orchestrator.New(
		orchestrator.WithRegistry(registry),
		orchestrator.WithDefaultRenderer("missing"),
		orchestrator.WithDefinitions(signupDefinition()),
	)

	out, err := orch.Generate(context.Background(), orchestrator.Request{Form: "signup", Renderer: "beta"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if string(out) != "beta:signup" {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = orch.Generate(context.Background(), orchestrator.Request{Form: "signup"})
	if err != nil {
		t.Fatalf("Generate fallback: %v", err)
	}
	if string(out) != "alpha:signup" {
		t.Fatalf("expected first registered renderer, got %q", out)
	}

	if _, err := orch.Generate(context.Background(), orchestrator.Request{Form: "signup", Renderer: "gamma"}); !errors.Is(err, render.ErrRendererNotFound) {
		t.Fatalf("expected ErrRendererNotFound, got %v", err)
	}
}

func TestGenerate_ResolvesTheme(t *testing.T) {
	set, err := render.NewThemeSet("acme", "light", &theme.Manifest{
		Name:    "acme",
		Version: "1.0.0",
		Tokens:  map[string]string{"vanilla.wrapper": "field"},
		Variants: map[string]theme.Variant{
			"dark": {Tokens: map[string]string{"vanilla.wrapper": "field dark"}},
		},
	})
	if err != nil {
		t.Fatalf("NewThemeSet: %v", err)
	}
	renderer := &captureRenderer{name: "capture"}
	orch := newOrchestrator(t, renderer,
		orchestrator.WithThemeSelector(set),
		orchestrator.WithThemeFallbacks(map[string]string{"forms.input": "fallback.tmpl"}),
	)

	if _, err := orch.Generate(context.Background(), orchestrator.Request{Form: "signup", ThemeVariant: "dark"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	cfg := renderer.opts[0].Theme
	if cfg == nil {
		t.Fatalf("expected theme config")
	}
	if cfg.Tokens["vanilla.wrapper"] != "field dark" || cfg.Partials["forms.input"] != "fallback.tmpl" {
		t.Fatalf("unexpected theme config %+v", cfg)
	}
}

func TestGenerate_AppliesPresets(t *testing.T) {
	presets, err := orchestrator.NewPresetTransformerFromFS(fstest.MapFS{
		"presets.json": {Data: []byte(`{
			"*": {"hidden_fields": {"source": "web", "ref": "preset"}, "locale": "en"},
			"signup": {"subset": {"names": ["name"]}, "form_errors": ["Closing soon"], "locale": "es"}
		}`)},
	}, "presets.json")
	if err != nil {
		t.Fatalf("NewPresetTransformerFromFS: %v", err)
	}
	renderer := &captureRenderer{name: "capture"}
	orch := newOrchestrator(t, renderer, orchestrator.WithTransformers(presets))

	_, err = orch.Generate(context.Background(), orchestrator.Request{
		Form: "signup",
		RenderOptions: render.RenderOptions{
			HiddenFields: map[string]string{"ref": "request"},
			FormErrors:   []string{"Stale record"},
		},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	opts := renderer.opts[0]
	if diff := cmp.Diff(map[string]string{"source": "web", "ref": "request"}, opts.HiddenFields); diff != "" {
		t.Fatalf("hidden fields mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Stale record", "Closing soon"}, opts.FormErrors); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"name"}, opts.Subset.Names); diff != "" {
		t.Fatalf("subset mismatch (-want +got):\n%s", diff)
	}
	if opts.Locale != "en" {
		t.Fatalf("expected the first preset locale to stick, got %q", opts.Locale)
	}
}

func TestTransformerFunc_ErrorStopsRender(t *testing.T) {
	renderer := &captureRenderer{name: "capture"}
	boom := errors.New("boom")
	orch := newOrchestrator(t, renderer, orchestrator.WithTransformers(
		orchestrator.TransformerFunc(func(context.Context, *form.Form, *render.RenderOptions) error { return boom }),
	))

	if _, err := orch.Generate(context.Background(), orchestrator.Request{Form: "signup"}); !errors.Is(err, boom) {
		t.Fatalf("expected transformer error, got %v", err)
	}
	if len(renderer.forms) != 0 {
		t.Fatalf("renderer must not run after a transformer error")
	}
}

func TestNewPresetTransformer_RejectsEmptyDocument(t *testing.T) {
	if _, err := orchestrator.NewPresetTransformer([]byte("  ")); err == nil {
		t.Fatalf("expected error for empty document")
	}
	if _, err := orchestrator.NewPresetTransformer([]byte("{")); err == nil {
		t.Fatalf("expected error for malformed document")
	}
}

func TestValidate_ScopesAndValidates(t *testing.T) {
	orch := newOrchestrator(t, &captureRenderer{name: "capture"})

	inst, f, err := orch.Validate(context.Background(), orchestrator.Request{Form: "signup"}, map[string]any{
		"signup": map[string]any{"name": "", "age": "12"},
		"other":  "ignored",
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if inst.Valid() {
		t.Fatalf("expected invalid params")
	}
	want := []string{"Name can't be blank", "Age must be greater than or equal to 18"}
	if diff := cmp.Diff(want, inst.Errors().FullMessages()); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
	if f.Params() != inst {
		t.Fatalf("form must be bound to the validated params")
	}
}

func TestSubmit_RerendersInvalidParams(t *testing.T) {
	renderer := &captureRenderer{name: "capture"}
	reg := prometheus.NewRegistry()
	collector := metrics.NewWithRegistry(reg)
	orch := newOrchestrator(t, renderer, orchestrator.WithMetrics(collector))

	result, err := orch.Submit(context.Background(), orchestrator.Request{Form: "signup"}, map[string]any{
		"signup": map[string]any{"name": "", "age": "20"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Valid || string(result.Output) != "capture:signup" {
		t.Fatalf("expected re-rendered invalid result, got %+v", result)
	}

	result, err = orch.Submit(context.Background(), orchestrator.Request{Form: "signup"}, map[string]any{
		"signup": map[string]any{"name": "Ada", "age": "20"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !result.Valid || result.Output != nil {
		t.Fatalf("expected valid result without output, got %+v", result)
	}
	if got := result.Params.Get("age"); got != int64(20) {
		t.Fatalf("expected cast age, got %#v", got)
	}

	if got := testutil.ToFloat64(collector.ValidationsTotal.WithLabelValues("signup", "invalid")); got != 1 {
		t.Fatalf("expected one invalid validation, got %v", got)
	}
	if got := testutil.ToFloat64(collector.ValidationsTotal.WithLabelValues("signup", "valid")); got != 1 {
		t.Fatalf("expected one valid validation, got %v", got)
	}
	if got := testutil.ToFloat64(collector.RendersTotal.WithLabelValues("signup", "capture", "ok")); got != 1 {
		t.Fatalf("expected one render, got %v", got)
	}
}

func TestRender_RecordsFailures(t *testing.T) {
	renderer := &captureRenderer{name: "capture", err: errors.New("template exploded")}
	collector := metrics.NewWithRegistry(prometheus.NewRegistry())
	orch := newOrchestrator(t, renderer, orchestrator.WithMetrics(collector))

	if _, err := orch.Generate(context.Background(), orchestrator.Request{Form: "signup"}); err == nil {
		t.Fatalf("expected render error")
	}
	if got := testutil.ToFloat64(collector.RendersTotal.WithLabelValues("signup", "capture", "error")); got != 1 {
		t.Fatalf("expected one failed render, got %v", got)
	}
}

func TestNew_DefaultsToVanilla(t *testing.T) {
	orch := orchestrator.New(orchestrator.WithDefinitions(signupDefinition()))

	if diff := cmp.Diff([]string{"vanilla"}, orch.Renderers()); diff != "" {
		t.Fatalf("renderers mismatch (-want +got):\n%s", diff)
	}
	out, err := orch.Generate(context.Background(), orchestrator.Request{Form: "signup"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(out) == 0 {
		t.Fatalf("expected markup")
	}
	if ct, err := orch.ContentType(""); err != nil || ct == "" {
		t.Fatalf("unexpected content type %q, %v", ct, err)
	}
}

func TestGenerate_CancelledContext(t *testing.T) {
	orch := newOrchestrator(t, &captureRenderer{name: "capture"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := orch.Generate(ctx, orchestrator.Request{Form: "signup"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
