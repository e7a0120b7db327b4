package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-actionform/pkg/form"
)

// Names of the bookkeeping inputs emitted at the top of a form.
const (
	UTF8FieldName      = "utf8"
	UTF8FieldValue     = "✓"
	TokenFieldName     = "authenticity_token"
	MethodFieldName    = "_method"
	SubmitFieldName    = "commit"
	autocompleteKey = "autocomplete"
)

// HiddenField represents a hidden input emitted alongside the element tree.
// Attrs are rendered after name, type and value.
type HiddenField struct {
	Name  string
	Value string
	Attrs form.Attrs
}

// Hidden returns a HiddenField for an arbitrary name/value pair.
func Hidden(name string, value any) HiddenField {
	return HiddenField{
		Name:  strings.TrimSpace(name),
		Value: fmt.Sprint(value),
	}
}

// VersionField constructs a hidden field used for optimistic locking.
func VersionField(name string, version any) HiddenField {
	return Hidden(name, version)
}

// ChromeFields returns the hidden inputs that precede the elements, in
// order: the utf8 marker (when the conventions ask for it), the authenticity
// token (when helpers supply one) and the method override.
func ChromeFields(f *form.Form, helpers Helpers) []HiddenField {
	conv := f.Conventions()
	var fields []HiddenField
	if conv.UTF8 {
		fields = append(fields, HiddenField{
			Name:  UTF8FieldName,
			Value: UTF8FieldValue,
			Attrs: form.Attrs{{Key: autocompleteKey, Value: "off"}},
		})
	}
	if helpers != nil {
		if token := helpers.AuthenticityToken(); token != "" {
			fields = append(fields, HiddenField{Name: TokenFieldName, Value: token})
		}
	}
	method := HiddenField{Name: MethodFieldName, Value: f.HTTPMethod()}
	if conv.UTF8 {
		method.Attrs = form.Attrs{{Key: autocompleteKey, Value: "off"}}
	}
	return append(fields, method)
}

// MergeHiddenFields returns a copy of base with the provided fields applied.
// Empty names are ignored; later fields win on name collisions.
func MergeHiddenFields(base map[string]string, fields ...HiddenField) map[string]string {
	if len(base) == 0 && len(fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(fields))
	for key, value := range base {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			out[trimmed] = value
		}
	}
	for _, field := range fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			continue
		}
		out[name] = field.Value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SortedHiddenFields normalises and sorts hidden fields for deterministic
// rendering. Empty names and names reserved for chrome fields are dropped.
func SortedHiddenFields(fields map[string]string) []HiddenField {
	if len(fields) == 0 {
		return nil
	}

	clean := make(map[string]string, len(fields))
	for name, value := range fields {
		key := strings.TrimSpace(name)
		switch key {
		case "", UTF8FieldName, TokenFieldName, MethodFieldName:
			continue
		}
		clean[key] = value
	}
	if len(clean) == 0 {
		return nil
	}

	names := make([]string, 0, len(clean))
	for name := range clean {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]HiddenField, 0, len(names))
	for _, name := range names {
		result = append(result, HiddenField{
			Name:  name,
			Value: clean[name],
		})
	}
	return result
}
