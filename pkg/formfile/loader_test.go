package formfile_test

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-actionform/pkg/form"
	"github.com/goliatone/go-actionform/pkg/formfile"
)

const signupYAML = `
forms:
  - name: signup
    scope: signup
    action: /signup
    submit: Join
    attrs:
      class: signup
      data-turbo: false
    fields:
      - name: name
        attrs:
          placeholder: Your name
          class: wide
        required: true
      - name: email
        input: email
        validates:
          - rule: format
            pattern: "@"
            message: needs an at sign
      - name: age
        input: number
        output: integer
        validates:
          - rule: numericality
            min: 18
      - name: pets
        kind: many
        fields:
          - name: name
  - name: admin_signup
    extends: signup
    conventions: rails
    fields:
      - name: name
        redefine: true
        label: Login
      - name: role
        input: select
        options:
          - admin
          - {value: staff, label: Staff member}
`

const surveyJSON = `{
  "forms": [
    {
      "name": "survey",
      "schema": "rendered",
      "fields": [
        {"name": "color", "input": "radio", "options": ["red", {"value": "blue", "label": "Blue"}]},
        {"name": "comment", "input": "textarea", "render_when": "value.color == \"red\""}
      ]
    }
  ]
}`

func loadStore(t *testing.T) *formfile.Store {
	t.Helper()
	store, err := formfile.LoadFS(fstest.MapFS{
		"forms/signup.yaml": {Data: []byte(signupYAML)},
		"forms/survey.json": {Data: []byte(surveyJSON)},
		"forms/README.md":   {Data: []byte("ignored")},
	})
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	return store
}

func nodeNames(def *form.Definition) []string {
	var out []string
	for _, node := range def.Nodes() {
		out = append(out, node.DefinitionName())
	}
	return out
}

func element(t *testing.T, f *form.Form, name string) *form.Element {
	t.Helper()
	for _, node := range f.Nodes() {
		if e, ok := node.(*form.Element); ok && e.Name() == name {
			return e
		}
	}
	t.Fatalf("element %q not found", name)
	return nil
}

func TestLoadFS_BuildsDefinitions(t *testing.T) {
	store := loadStore(t)

	if diff := cmp.Diff([]string{"admin_signup", "signup", "survey"}, store.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if src, _ := store.Source("survey"); src != "forms/survey.json" {
		t.Fatalf("unexpected source %q", src)
	}

	def, ok := store.Definition("signup")
	if !ok {
		t.Fatalf("signup not loaded")
	}
	if diff := cmp.Diff([]string{"name", "email", "age", "pets"}, nodeNames(def)); diff != "" {
		t.Fatalf("nodes mismatch (-want +got):\n%s", diff)
	}
	if def.Scope() != "signup" {
		t.Fatalf("unexpected scope %q", def.Scope())
	}

	f, err := def.Instantiate()
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	if f.SubmitValue() != "Join" {
		t.Fatalf("unexpected submit %q", f.SubmitValue())
	}
	var keys []string
	for _, attr := range element(t, f, "name").InputAttrs() {
		keys = append(keys, attr.Key)
	}
	want := []string{"type", "placeholder", "class", "name", "id", "value", "checked", "disabled", "readonly"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Fatalf("attribute order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(form.Attrs{{Key: "class", Value: "signup"}, {Key: "data-turbo", Value: false}}, f.HTMLAttrs()); diff != "" {
		t.Fatalf("form attrs mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFS_RulesValidateParams(t *testing.T) {
	def, _ := loadStore(t).Definition("signup")

	inst, _, err := def.FromParams(map[string]any{"name": "", "email": "nope", "age": "12"})
	if err != nil {
		t.Fatalf("FromParams: %v", err)
	}
	_ = inst.Validate()
	want := []string{"Name can't be blank", "Email needs an at sign", "Age must be greater than or equal to 18"}
	if diff := cmp.Diff(want, inst.Errors().FullMessages()); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFS_ExtendsAndRedefines(t *testing.T) {
	def, ok := loadStore(t).Definition("admin_signup")
	if !ok {
		t.Fatalf("admin_signup not loaded")
	}
	if diff := cmp.Diff([]string{"name", "email", "age", "pets", "role"}, nodeNames(def)); diff != "" {
		t.Fatalf("nodes mismatch (-want +got):\n%s", diff)
	}
	if def.Conventions() != form.RailsConventions {
		t.Fatalf("expected rails conventions, got %+v", def.Conventions())
	}

	f, err := def.Instantiate()
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	name := element(t, f, "name")
	if name.LabelText() != "Login" || name.InputType() != form.InputText {
		t.Fatalf("redefinition lost: label %q input %q", name.LabelText(), name.InputType())
	}
	wantOptions := []form.Option{{Value: "admin", Label: "admin"}, {Value: "staff", Label: "Staff member"}}
	if diff := cmp.Diff(wantOptions, element(t, f, "role").Options()); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFS_JSONFiles(t *testing.T) {
	def, ok := loadStore(t).Definition("survey")
	if !ok {
		t.Fatalf("survey not loaded")
	}
	if def.Policy() != form.SchemaRendered {
		t.Fatalf("expected rendered schema policy")
	}

	f, err := def.Instantiate()
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	want := []form.Option{{Value: "red", Label: "red"}, {Value: "blue", Label: "Blue"}}
	if diff := cmp.Diff(want, element(t, f, "color").Options()); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
	if render, err := element(t, f, "comment").ShouldRender(); err != nil || render {
		t.Fatalf("expected comment hidden without a colour, got %v %v", render, err)
	}
}

func TestLoadFS_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files fstest.MapFS
	}{
		{
			name: "duplicate form",
			files: fstest.MapFS{
				"a.yaml": {Data: []byte("forms:\n  - name: one\n")},
				"b.yml":  {Data: []byte("forms:\n  - name: one\n")},
			},
		},
		{
			name:  "empty file",
			files: fstest.MapFS{"a.yaml": {Data: []byte("  \n")}},
		},
		{
			name:  "unknown key",
			files: fstest.MapFS{"a.yaml": {Data: []byte("forms:\n  - name: one\n    colour: red\n")}},
		},
		{
			name:  "unknown rule",
			files: fstest.MapFS{"a.yaml": {Data: []byte("forms:\n  - name: one\n    fields:\n      - name: x\n        validates: [{rule: magic}]\n")}},
		},
		{
			name:  "unknown input",
			files: fstest.MapFS{"a.yaml": {Data: []byte("forms:\n  - name: one\n    fields:\n      - name: x\n        input: slider\n")}},
		},
		{
			name:  "extends cycle",
			files: fstest.MapFS{"a.yaml": {Data: []byte("forms:\n  - name: one\n    extends: two\n  - name: two\n    extends: one\n")}},
		},
		{
			name:  "unknown parent",
			files: fstest.MapFS{"a.yaml": {Data: []byte("forms:\n  - name: one\n    extends: missing\n")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := formfile.LoadFS(tt.files)
			if !errors.Is(err, formfile.ErrInvalidFile) {
				t.Fatalf("expected ErrInvalidFile, got %v", err)
			}
		})
	}
}

func TestLoadFS_NilFS(t *testing.T) {
	store, err := formfile.LoadFS(nil)
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	if !store.Empty() {
		t.Fatalf("expected empty store")
	}
}
