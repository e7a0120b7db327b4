package actionform

import (
	"context"
	"io/fs"
	"os"

	"github.com/goliatone/go-actionform/pkg/form"
	"github.com/goliatone/go-actionform/pkg/formfile"
	"github.com/goliatone/go-actionform/pkg/orchestrator"
	"github.com/goliatone/go-actionform/pkg/render"
	"github.com/goliatone/go-actionform/pkg/renderers/vanilla"
)

// RenderOptions describes per-request overrides that renderers can use to
// surface server-side errors, hidden fields and partial rendering.
type RenderOptions = render.RenderOptions

// FieldSubset aliases render.FieldSubset for callers configuring partial
// rendering by group, tag or name.
type FieldSubset = render.FieldSubset

// Request aliases orchestrator.Request.
type Request = orchestrator.Request

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// GenerateHTML binds model to def and renders it with the named renderer,
// the vanilla renderer when rendererName is empty.
func GenerateHTML(ctx context.Context, def *form.Definition, model any, rendererName string, options ...orchestrator.Option) ([]byte, error) {
	gen := orchestrator.New(options...)
	return gen.Generate(ctx, orchestrator.Request{
		Definition: def,
		Model:      model,
		Renderer:   rendererName,
	})
}

// LoadForms reads the YAML and JSON form files under dir.
func LoadForms(dir string) (*formfile.Store, error) {
	return formfile.LoadFS(os.DirFS(dir))
}

// WithForms forwards a form source, such as the store returned by LoadForms,
// to the orchestrator.
func WithForms(source orchestrator.FormSource) orchestrator.Option {
	return orchestrator.WithForms(source)
}

// WithThemeSelector passes a theme selector through to the orchestrator so
// theme and variant choices can be resolved ahead of rendering.
func WithThemeSelector(selector render.ThemeSelector) orchestrator.Option {
	return orchestrator.WithThemeSelector(selector)
}

// WithThemeFallbacks forwards fallback partials used when deriving renderer
// configuration from a theme selection.
func WithThemeFallbacks(fallbacks map[string]string) orchestrator.Option {
	return orchestrator.WithThemeFallbacks(fallbacks)
}

// EmbeddedTemplates exposes the built-in vanilla wrapper templates so callers
// can reuse or extend them without importing the renderer package directly.
func EmbeddedTemplates() fs.FS {
	return vanilla.TemplatesFS()
}

// AssetsFS exposes the vanilla stylesheet so Go applications can serve it
// without a build step.
//
// Typical mount:
//
//	mux.Handle("/assets/",
//	  http.StripPrefix("/assets/",
//	    http.FileServerFS(actionform.AssetsFS()),
//	  ),
//	)
func AssetsFS() fs.FS {
	return vanilla.AssetsFS()
}
