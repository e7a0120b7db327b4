package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"strings"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-actionform/pkg/form"
	"github.com/goliatone/go-actionform/pkg/render"
)

// Transformer adjusts the render options of a bound form before it reaches
// the renderer. Implementations can inject hidden fields, narrow the field
// subset or attach form-level messages.
type Transformer interface {
	Transform(ctx context.Context, f *form.Form, opts *render.RenderOptions) error
}

// TransformerFunc adapts plain functions to the Transformer interface.
type TransformerFunc func(ctx context.Context, f *form.Form, opts *render.RenderOptions) error

// Transform executes the wrapped function when non-nil.
func (fn TransformerFunc) Transform(ctx context.Context, f *form.Form, opts *render.RenderOptions) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, f, opts)
}

// wildcardPreset applies to every form.
const wildcardPreset = "*"

// PresetTransformer applies declarative render presets loaded from JSON,
// keyed by form name. The "*" entry applies to every form and runs before
// the form's own entry:
//
//	{
//	  "*": {"hidden_fields": {"source": "web"}},
//	  "signup": {
//	    "subset": {"groups": ["account"]},
//	    "form_errors": ["Registrations close on Friday"],
//	    "locale": "es"
//	  }
//	}
//
// Options already set on the request win over presets, except form errors
// which are appended.
type PresetTransformer struct {
	presets map[string]renderPreset
}

type renderPreset struct {
	HiddenFields map[string]string `json:"hidden_fields"`
	Subset       *subsetPreset     `json:"subset"`
	FormErrors   []string          `json:"form_errors"`
	Locale       string            `json:"locale"`
}

type subsetPreset struct {
	Groups []string `json:"groups"`
	Tags   []string `json:"tags"`
	Names  []string `json:"names"`
}

// NewPresetTransformer constructs a transformer from raw JSON bytes.
func NewPresetTransformer(data []byte) (*PresetTransformer, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("preset transformer: document is empty")
	}
	var presets map[string]renderPreset
	if err := json.Unmarshal(data, &presets); err != nil {
		return nil, fmt.Errorf("preset transformer: parse document: %w", err)
	}
	return &PresetTransformer{presets: presets}, nil
}

// NewPresetTransformerFromFS loads a preset document from the provided
// filesystem path.
func NewPresetTransformerFromFS(fsys fs.FS, path string) (*PresetTransformer, error) {
	if fsys == nil {
		return nil, errors.New("preset transformer: filesystem is nil")
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("preset transformer: path is required")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("preset transformer: read %s: %w", path, err)
	}
	return NewPresetTransformer(data)
}

// Transform merges the wildcard preset and the preset of f's definition
// into opts.
func (t *PresetTransformer) Transform(ctx context.Context, f *form.Form, opts *render.RenderOptions) error {
	if f == nil {
		return errors.New("preset transformer: form is nil")
	}
	if opts == nil {
		return errors.New("preset transformer: render options are nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, key := range []string{wildcardPreset, f.Definition().Name()} {
		preset, ok := t.presets[key]
		if !ok {
			continue
		}
		preset.apply(opts)
	}
	return nil
}

func (p renderPreset) apply(opts *render.RenderOptions) {
	if len(p.HiddenFields) > 0 {
		merged := make(map[string]string, len(p.HiddenFields)+len(opts.HiddenFields))
		maps.Copy(merged, p.HiddenFields)
		maps.Copy(merged, opts.HiddenFields)
		opts.HiddenFields = merged
	}
	if p.Subset != nil && opts.Subset.Empty() {
		opts.Subset = render.FieldSubset{
			Groups: p.Subset.Groups,
			Tags:   p.Subset.Tags,
			Names:  p.Subset.Names,
		}
	}
	if len(p.FormErrors) > 0 {
		opts.FormErrors = append(append([]string(nil), opts.FormErrors...), p.FormErrors...)
	}
	if opts.Locale == "" {
		opts.Locale = p.Locale
	}
}
