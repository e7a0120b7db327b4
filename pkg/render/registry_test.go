package render_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-actionform/pkg/form"
	"github.com/goliatone/go-actionform/pkg/render"
)

type namedRenderer string

func (n namedRenderer) Name() string        { return string(n) }
func (n namedRenderer) ContentType() string { return "text/plain" }
func (n namedRenderer) Render(context.Context, *form.Form, render.RenderOptions) ([]byte, error) {
	return []byte(n), nil
}

func TestRegistry(t *testing.T) {
	registry := render.NewRegistry(namedRenderer("vanilla"), namedRenderer("tui"))

	if diff := cmp.Diff([]string{"tui", "vanilla"}, registry.List()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if got := registry.MustGet(""); got.Name() != "vanilla" {
		t.Fatalf("expected first renderer as default, got %q", got.Name())
	}
	if err := registry.SetDefault("tui"); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}
	if got := registry.MustGet(""); got.Name() != "tui" {
		t.Fatalf("expected tui as default, got %q", got.Name())
	}
	if err := registry.Register(namedRenderer("tui")); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if _, err := registry.Get("pdf"); !errors.Is(err, render.ErrRendererNotFound) {
		t.Fatalf("expected ErrRendererNotFound, got %v", err)
	}
	if err := registry.SetDefault("pdf"); !errors.Is(err, render.ErrRendererNotFound) {
		t.Fatalf("expected ErrRendererNotFound, got %v", err)
	}
	if !registry.Has("vanilla") || registry.Has("pdf") {
		t.Fatalf("unexpected Has results")
	}
}
