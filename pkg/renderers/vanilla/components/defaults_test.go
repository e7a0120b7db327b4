package components_test

import (
	"io"
	"strings"
	"testing"

	"github.com/goliatone/go-actionform/pkg/form"
	"github.com/goliatone/go-actionform/pkg/model"
	"github.com/goliatone/go-actionform/pkg/renderers/vanilla/components"
)

type stubTemplates struct {
	name string
	data any
}

func (s *stubTemplates) Render(name string, data any, _ ...io.Writer) (string, error) {
	s.name, s.data = name, data
	return "<custom>", nil
}

func (s *stubTemplates) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	return s.Render(name, data, out...)
}

func (s *stubTemplates) RenderString(content string, data any, out ...io.Writer) (string, error) {
	return s.Render(content, data, out...)
}

func (s *stubTemplates) RegisterFilter(string, func(any, any) (any, error)) error { return nil }

func (s *stubTemplates) GlobalContext(any) error { return nil }

func controlsForm(t *testing.T) *form.Form {
	t.Helper()
	def := form.MustNew("profile", func(b *form.Builder) {
		b.Scope("profile")
		b.Element("name", func(e *form.ElementBuilder) {
			e.Input(form.InputText, form.Attr{Key: "class", Value: "form-control"})
		})
		b.Element("admin", func(e *form.ElementBuilder) {
			e.Input(form.InputCheckbox).Output(form.OutputBool)
		})
		b.Element("interests", func(e *form.ElementBuilder) {
			e.Input(form.InputCheckbox).
				Output(form.OutputArray, form.Of(form.OutputInteger)).
				Options(form.Opt(1, "Science"), form.Opt(2, "Math"))
		})
		b.Element("color", func(e *form.ElementBuilder) {
			e.Input(form.InputRadio).Options(form.Opt("red", "Red"), form.Opt("blue", "Blue"))
		})
		b.Element("pets", func(e *form.ElementBuilder) {
			e.Input(form.InputSelect, form.Attr{Key: "multiple", Value: true}).
				Output(form.OutputArray, form.Of(form.OutputInteger)).
				Options(form.Opt(1, "Fido"), form.Opt(2, "Buddy"))
		})
		b.Element("bio", func(e *form.ElementBuilder) {
			e.Input(form.InputTextarea, form.Attr{Key: "rows", Value: 3})
		})
		b.Element("rating", func(e *form.ElementBuilder) {
			e.Input(form.InputRange, form.Attr{Key: "min", Value: 1}, form.Attr{Key: "max", Value: 5}).
				Output(form.OutputInteger).
				Tags(map[string]any{components.ComponentTag: "stars"})
		})
	})
	f, err := def.Instantiate(form.WithModel(model.Map{
		"name":      `Ada "the first"`,
		"admin":     true,
		"interests": []any{2},
		"color":     "blue",
		"pets":      []int{1, 2},
		"bio":       "<b>hi</b>",
		"rating":    4,
	}))
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	return f
}

func controlElement(t *testing.T, f *form.Form, name string) *form.Element {
	t.Helper()
	for _, node := range f.Nodes() {
		if e, ok := node.(*form.Element); ok && e.Name() == name {
			return e
		}
	}
	t.Fatalf("element %q not found", name)
	return nil
}

func TestDefaultControls(t *testing.T) {
	f := controlsForm(t)
	reg := components.NewDefaultRegistry()

	tests := []struct {
		name string
		want string
	}{
		{
			name: "name",
			want: `<input type="text" class="form-control" name="profile[name]" id="profile_name" value="Ada &#34;the first&#34;">`,
		},
		{
			name: "admin",
			want: `<input name="profile[admin]" type="hidden" value="0" autocomplete="off">` +
				`<input type="checkbox" name="profile[admin]" id="profile_admin" value="1" checked>`,
		},
		{
			name: "interests",
			want: `<input type="checkbox" name="profile[interests][]" id="profile_interests_1" value="1"><label for="profile_interests_1">Science</label>` +
				`<input type="checkbox" name="profile[interests][]" id="profile_interests_2" value="2" checked><label for="profile_interests_2">Math</label>`,
		},
		{
			name: "color",
			want: `<label for="profile_color">Red</label><input type="radio" name="profile[color]" id="profile_color" value="red">` +
				`<label for="profile_color">Blue</label><input type="radio" name="profile[color]" id="profile_color" value="blue" checked>`,
		},
		{
			name: "pets",
			want: `<select multiple name="profile[pets][]" id="profile_pets"><option value="1" selected>Fido</option><option value="2" selected>Buddy</option></select>`,
		},
		{
			name: "bio",
			want: `<textarea rows="3" name="profile[bio]" id="profile_bio">&lt;b&gt;hi&lt;/b&gt;</textarea>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := controlElement(t, f, tt.name)
			desc, ok := reg.Descriptor(components.Resolve(e))
			if !ok {
				t.Fatalf("no component for %q", tt.name)
			}
			var b strings.Builder
			if err := desc.Renderer(&b, e, components.ComponentData{}); err != nil {
				t.Fatalf("render: %v", err)
			}
			if got := b.String(); got != tt.want {
				t.Fatalf("markup mismatch\nwant: %s\n got: %s", tt.want, got)
			}
		})
	}
}

func TestResolveHonoursComponentTag(t *testing.T) {
	f := controlsForm(t)
	if got := components.Resolve(controlElement(t, f, "rating")); got != "stars" {
		t.Fatalf("expected stars component, got %q", got)
	}
	if got := components.Resolve(controlElement(t, f, "name")); got != components.NameInput {
		t.Fatalf("expected input component, got %q", got)
	}
}

func TestThemePartialOverridesBuiltinMarkup(t *testing.T) {
	f := controlsForm(t)
	desc, _ := components.NewDefaultRegistry().Descriptor(components.NameSelect)
	templates := &stubTemplates{}

	var b strings.Builder
	err := desc.Renderer(&b, controlElement(t, f, "pets"), components.ComponentData{
		Template:      templates,
		ThemePartials: map[string]string{components.PartialSelect: "themes/acme/select"},
		OptionLabel:   func(opt form.Option) string { return strings.ToUpper(opt.Label) },
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if b.String() != "<custom>" || templates.name != "themes/acme/select" {
		t.Fatalf("expected themed template, got %q via %q", b.String(), templates.name)
	}
	view, ok := templates.data.(map[string]any)
	if !ok {
		t.Fatalf("expected map view, got %T", templates.data)
	}
	options := view["options"].([]map[string]any)
	if options[0]["label"] != "FIDO" || options[1]["selected"] != true {
		t.Fatalf("unexpected option view %v", options)
	}
}
