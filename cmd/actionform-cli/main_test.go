package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

const signupForm = `
forms:
  - name: signup
    scope: signup
    fields:
      - name: name
        required: true
      - name: age
        input: number
        output: integer
        validates:
          - rule: numericality
            min: 18
`

func fixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "forms"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("forms/signup.yaml", signupForm)
	write("model.yaml", "name: Ada\nage: 36\n")
	write("invalid.json", `{"signup": {"name": "", "age": "12"}}`)
	write("valid.yml", "signup:\n  name: Ada\n  age: \"40\"\n")
	return dir
}

func runCLI(t *testing.T, opts options) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), opts, &out, zerolog.Nop())
	return out.String(), err
}

func TestRunRendersBoundForm(t *testing.T) {
	dir := fixtureDir(t)

	out, err := runCLI(t, options{
		formsDir: filepath.Join(dir, "forms"),
		formName: "signup",
		dataPath: filepath.Join(dir, "model.yaml"),
		renderer: "vanilla",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{`name="signup[name]"`, `value="Ada"`, `value="36"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in output:\n%s", want, out)
		}
	}
}

func TestRunValidatePrintsMessages(t *testing.T) {
	dir := fixtureDir(t)
	base := options{formsDir: filepath.Join(dir, "forms"), formName: "signup"}

	invalid := base
	invalid.validate = filepath.Join(dir, "invalid.json")
	out, err := runCLI(t, invalid)
	if !errors.Is(err, errInvalidParams) {
		t.Fatalf("expected errInvalidParams, got %v", err)
	}
	want := "Name can't be blank\nAge must be greater than or equal to 18\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}

	valid := base
	valid.validate = filepath.Join(dir, "valid.yml")
	out, err = runCLI(t, valid)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "valid\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRunPrintsOpenAPISchema(t *testing.T) {
	dir := fixtureDir(t)

	out, err := runCLI(t, options{formsDir: filepath.Join(dir, "forms"), formName: "signup", openAPI: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{`"required"`, `"name"`, `"minimum"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in schema:\n%s", want, out)
		}
	}
}

func TestRunPrintsJSONSchema(t *testing.T) {
	dir := fixtureDir(t)

	out, err := runCLI(t, options{formsDir: filepath.Join(dir, "forms"), formName: "signup", jsonSchema: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var doc struct {
		Type       string `json:"type"`
		Properties map[string]struct {
			Type string `json:"type"`
		} `json:"properties"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if doc.Type != "object" {
		t.Fatalf("expected an object schema, got %q", doc.Type)
	}
	got := []string{doc.Properties["name"].Type, doc.Properties["age"].Type}
	if diff := cmp.Diff([]string{"string", "integer"}, got); diff != "" {
		t.Fatalf("property types mismatch (-want +got):\n%s", diff)
	}
}

func TestRunListsForms(t *testing.T) {
	dir := fixtureDir(t)

	out, err := runCLI(t, options{formsDir: filepath.Join(dir, "forms"), list: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "signup\tsignup.yaml\n" {
		t.Fatalf("unexpected listing %q", out)
	}
}

func TestRunRequiresKnownForm(t *testing.T) {
	dir := fixtureDir(t)

	if _, err := runCLI(t, options{formsDir: filepath.Join(dir, "forms")}); err == nil {
		t.Fatalf("expected error without -form")
	}
	if _, err := runCLI(t, options{formsDir: filepath.Join(dir, "forms"), formName: "missing"}); err == nil {
		t.Fatalf("expected error for an unknown form")
	}
}
