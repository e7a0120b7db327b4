package components

import (
	"strings"
	"testing"

	"github.com/goliatone/go-actionform/pkg/form"
)

func TestRegistryDescriptorClone(t *testing.T) {
	reg := New()
	renderer := func(b *strings.Builder, e *form.Element, data ComponentData) error { return nil }

	if err := reg.Register("test", Descriptor{Renderer: renderer, Stylesheets: []string{"/a.css"}}); err != nil {
		t.Fatalf("register: %v", err)
	}

	desc, ok := reg.Descriptor("test")
	if !ok {
		t.Fatalf("descriptor not found")
	}

	desc.Stylesheets = append(desc.Stylesheets, "/mutated.css")

	original, _ := reg.Descriptor("test")
	if len(original.Stylesheets) != 1 || original.Stylesheets[0] != "/a.css" {
		t.Fatalf("registry descriptor mutated: %#v", original.Stylesheets)
	}
}

func TestRegistryAssetsDeduplicates(t *testing.T) {
	reg := New()
	renderer := func(b *strings.Builder, e *form.Element, data ComponentData) error { return nil }

	reg.MustRegister("stars", Descriptor{
		Renderer:    renderer,
		Stylesheets: []string{"/shared.css", "/stars.css"},
		Scripts: []Script{
			{Src: "/shared.js"},
		},
	})
	reg.MustRegister("map", Descriptor{
		Renderer:    renderer,
		Stylesheets: []string{"/shared.css", "/map.css"},
		Scripts: []Script{
			{Src: "/shared.js"},
			{Src: "/map.js"},
		},
	})

	styles, scripts := reg.Assets([]string{"stars", "map", "unknown"})
	if got := strings.Join(styles, ","); got != "/shared.css,/stars.css,/map.css" {
		t.Fatalf("unexpected stylesheets %q", got)
	}
	if len(scripts) != 2 || scripts[1].Src != "/map.js" {
		t.Fatalf("expected 2 unique scripts, got %d: %v", len(scripts), scripts)
	}
}

func TestRegisterRejectsInvalidDescriptors(t *testing.T) {
	reg := New()
	if err := reg.Register("  ", Descriptor{Renderer: renderInput}); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if err := reg.Register("nil", Descriptor{}); err == nil {
		t.Fatalf("expected error for nil renderer")
	}
	if got := NewDefaultRegistry().Names(); strings.Join(got, ",") != "checkbox,input,radio,select,textarea" {
		t.Fatalf("unexpected default names %v", got)
	}
}

func TestRegistryCloneIsolatesOverrides(t *testing.T) {
	shared := NewDefaultRegistry()
	own := shared.Clone()
	own.MustRegister("stars", Descriptor{
		Renderer: func(b *strings.Builder, e *form.Element, data ComponentData) error { return nil },
	})

	if _, ok := shared.Descriptor("stars"); ok {
		t.Fatalf("clone registration leaked into the source registry")
	}
	if _, ok := own.Descriptor(NameSelect); !ok {
		t.Fatalf("clone lost the default components")
	}
}
