package testsupport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-actionform/pkg/params"
)

// LoadValues reads a JSON or YAML fixture into a params-shaped map. YAML is
// chosen by the .yaml/.yml extension.
func LoadValues(path string) (map[string]any, error) {
	if path == "" {
		return nil, errors.New("testsupport: values path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testsupport: read values: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		out := map[string]any{}
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("testsupport: decode yaml values: %w", err)
		}
		return out, nil
	default:
		out, err := params.ParseJSON(data)
		if err != nil {
			return nil, fmt.Errorf("testsupport: decode json values: %w", err)
		}
		return out, nil
	}
}

// MustLoadValues is LoadValues for tests.
func MustLoadValues(t *testing.T, path string) map[string]any {
	t.Helper()

	values, err := LoadValues(path)
	if err != nil {
		t.Fatalf("load values: %v", err)
	}
	return values
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// MustReadGoldenString reads a golden file and returns its string content.
func MustReadGoldenString(t *testing.T, path string) string {
	t.Helper()
	return string(MustReadGolden(t, path))
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// CaptureTemplateOutput executes a render function that writes to an io.Writer,
// returning both the string result and the writer contents.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}

	return out, buf.String()
}

// SplitTags cuts rendered markup before every tag so HTML diffs show one
// tag per entry.
func SplitTags(html string) []string {
	var out []string
	for len(html) > 0 {
		next := strings.IndexByte(html[1:], '<')
		if html[0] != '<' {
			next = strings.IndexByte(html, '<') - 1
		}
		if next < 0 {
			out = append(out, html)
			break
		}
		out = append(out, html[:next+1])
		html = html[next+1:]
	}
	return out
}
