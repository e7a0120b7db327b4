package actionform

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-actionform/pkg/form"
	"github.com/goliatone/go-actionform/pkg/model"
)

func TestAssetsFSContainsStylesheet(t *testing.T) {
	data, err := fs.ReadFile(AssetsFS(), "actionform.css")
	if err != nil {
		t.Fatalf("expected stylesheet to be readable: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected stylesheet content")
	}
}

func TestEmbeddedTemplatesContainWrappers(t *testing.T) {
	if _, err := fs.Stat(EmbeddedTemplates(), "templates/group.tmpl"); err != nil {
		t.Fatalf("expected group wrapper template: %v", err)
	}
}

func TestGenerateHTMLRendersVanilla(t *testing.T) {
	def := form.MustNew("note", func(b *form.Builder) {
		b.Element("title", func(e *form.ElementBuilder) { e.Input(form.InputText) })
	})

	out, err := GenerateHTML(context.Background(), def, model.Map{"title": "Hello"}, "")
	if err != nil {
		t.Fatalf("GenerateHTML: %v", err)
	}
	if !strings.Contains(string(out), `value="Hello"`) {
		t.Fatalf("expected bound value in markup:\n%s", out)
	}
}

func TestLoadFormsFeedsOrchestrator(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "note.yaml"), []byte("forms:\n  - name: note\n    fields:\n      - name: title\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	store, err := LoadForms(dir)
	if err != nil {
		t.Fatalf("LoadForms: %v", err)
	}
	out, err := NewOrchestrator(WithForms(store)).Generate(context.Background(), Request{Form: "note"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(string(out), `name="title"`) {
		t.Fatalf("expected title input in markup:\n%s", out)
	}
}
