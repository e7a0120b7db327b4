package render_test

import (
	"testing"

	"github.com/goliatone/go-actionform/pkg/form"
	"github.com/goliatone/go-actionform/pkg/model"
)

func ownerForm(t *testing.T, record model.Map) *form.Form {
	t.Helper()

	def := form.MustNew("owner", func(b *form.Builder) {
		b.Conventions(form.RailsConventions)
		b.Element("name", func(e *form.ElementBuilder) {
			e.Input(form.InputText).Tags(map[string]any{"label_key": "owner.name"})
		})
		b.Many("pets", func(b *form.Builder) {
			b.Element("name", func(e *form.ElementBuilder) { e.Input(form.InputText) })
		})
	})
	f, err := def.Instantiate(form.WithModel(record), form.WithScope("owner"))
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	return f
}

func storedOwner() model.Map {
	return model.Map{
		"id":   3,
		"name": "Ada",
		"pets": []any{
			map[string]any{"id": 1, "name": "Rex"},
			map[string]any{"id": 2, "name": "Tom"},
		},
	}
}

func findElement(t *testing.T, f *form.Form, htmlName string) *form.Element {
	t.Helper()

	var found *form.Element
	_ = form.Walk(f, func(n form.Node) error {
		if e, ok := n.(*form.Element); ok && e.HTMLName() == htmlName {
			found = e
		}
		return nil
	})
	if found == nil {
		t.Fatalf("element %q not found", htmlName)
	}
	return found
}
