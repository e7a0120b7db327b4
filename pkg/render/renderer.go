package render

import (
	"context"

	"github.com/goliatone/go-actionform/pkg/form"
)

// Renderer converts an instantiated form into a byte representation (HTML,
// terminal prompts, etc.). Rendering must not mutate the form so it can be
// called any number of times.
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, f *form.Form, options RenderOptions) ([]byte, error)
}
