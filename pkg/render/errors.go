package render

import (
	"sort"
	"strings"

	"github.com/goliatone/go-actionform/pkg/form"
)

// ErrorMapping splits an error payload into element-level messages keyed by
// HTML name and form-level messages.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// For returns the mapped messages of e.
func (m ErrorMapping) For(e *form.Element) []string {
	if m.Fields == nil || e == nil {
		return nil
	}
	return m.Fields[e.HTMLName()]
}

// MergeFormErrors concatenates and normalises multiple form-level error
// slices, trimming whitespace and removing duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

// ElementErrors returns the messages reported by the bound source of e
// followed by the mapped payload messages.
func ElementErrors(e *form.Element, mapping ErrorMapping) []string {
	return MergeFormErrors(e.Errors(), mapping.For(e)...)
}

// ErrorSummary returns the messages listed above the form: full messages of
// the bound params or model, options.FormErrors, then payload messages that
// matched no element.
func ErrorSummary(f *form.Form, options RenderOptions, mapping ErrorMapping) []string {
	messages := MergeFormErrors(f.FullMessages(), options.FormErrors...)
	return MergeFormErrors(messages, mapping.Form...)
}

// MapErrorPayload normalises server error payloads (dotted, bracketed, JSON
// pointer or HTML-name paths) onto the elements of f. Collection rows keep
// their index, so "pets_attributes[1].name" only matches the second row.
// Unknown paths are treated as form-level errors so messages are not lost.
func MapErrorPayload(f *form.Form, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{
		Fields: make(map[string][]string),
	}
	if len(payload) == 0 || f == nil {
		mapping.Fields = nil
		return mapping
	}

	paths := collectElementPaths(f)
	scope := parsePathSegments(f.Scope())

	for _, rawPath := range sortedKeys(payload) {
		messages := normalizeMessages(payload[rawPath])
		if len(messages) == 0 {
			continue
		}
		name, ok := mapErrorPath(rawPath, scope, paths)
		if !ok {
			mapping.Form = append(mapping.Form, messages...)
			continue
		}
		mapping.Fields[name] = MergeFormErrors(mapping.Fields[name], messages...)
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))

	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// collectElementPaths maps dotted element paths relative to the form scope
// onto HTML names. Nested keys are also registered without the nested
// suffix ("pets.0.name" next to "pets_attributes.0.name").
func collectElementPaths(f *form.Form) map[string]string {
	paths := make(map[string]string)
	scopeLen := len(parsePathSegments(f.Scope()))
	suffix := f.Conventions().NestedSuffix

	_ = form.Walk(f, func(n form.Node) error {
		e, ok := n.(*form.Element)
		if !ok {
			return nil
		}
		segments := parsePathSegments(e.HTMLName())
		if len(segments) < scopeLen {
			return nil
		}
		segments = segments[scopeLen:]
		paths[strings.Join(segments, ".")] = e.HTMLName()

		if suffix == "" {
			return nil
		}
		bare := make([]string, len(segments))
		for i, segment := range segments {
			bare[i] = segment
			if i < len(segments)-1 {
				bare[i] = strings.TrimSuffix(segment, suffix)
			}
		}
		key := strings.Join(bare, ".")
		if _, taken := paths[key]; !taken {
			paths[key] = e.HTMLName()
		}
		return nil
	})
	return paths
}

func mapErrorPath(raw string, scope []string, paths map[string]string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if isFormLevelKey(trimmed) {
		return "", false
	}

	segments := parsePathSegments(trimmed)
	if len(segments) == 0 {
		return "", false
	}

	for _, variant := range buildSegmentVariants(segments, scope) {
		if name, ok := paths[strings.Join(variant, ".")]; ok {
			return name, true
		}
	}
	return "", false
}

func parsePathSegments(path string) []string {
	if path == "" {
		return nil
	}

	clean := strings.TrimSpace(path)
	clean = strings.TrimPrefix(clean, "#/")
	clean = strings.TrimPrefix(clean, "$.")
	for strings.HasPrefix(clean, "#") || strings.HasPrefix(clean, "/") || strings.HasPrefix(clean, ".") || strings.HasPrefix(clean, "$") {
		clean = strings.TrimLeft(clean, "#/.$")
	}

	replacer := strings.NewReplacer("[", ".", "]", "", "//", "/")
	clean = replacer.Replace(clean)
	clean = strings.Trim(clean, "./")
	if clean == "" {
		return nil
	}

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

// buildSegmentVariants yields the path as given, without payload wrappers,
// and without the form scope.
func buildSegmentVariants(segments, scope []string) [][]string {
	var variants [][]string
	seen := make(map[string]struct{}, 4)

	appendVariant := func(candidate []string) {
		if len(candidate) == 0 {
			return
		}
		key := strings.Join(candidate, ".")
		if _, exists := seen[key]; exists {
			return
		}
		seen[key] = struct{}{}
		variants = append(variants, candidate)
	}

	appendVariant(segments)
	noWrappers := dropWrapperSegments(segments)
	appendVariant(noWrappers)
	appendVariant(dropScope(segments, scope))
	appendVariant(dropScope(noWrappers, scope))
	return variants
}

func dropWrapperSegments(segments []string) []string {
	wrappers := map[string]struct{}{
		"body":    {},
		"request": {},
		"payload": {},
		"data":    {},
		"params":  {},
	}

	out := segments
	for len(out) > 0 {
		if _, ok := wrappers[strings.ToLower(out[0])]; ok {
			out = out[1:]
			continue
		}
		break
	}
	return out
}

func dropScope(segments, scope []string) []string {
	if len(scope) == 0 || len(segments) <= len(scope) {
		return segments
	}
	for i, part := range scope {
		if segments[i] != part {
			return segments
		}
	}
	return segments[len(scope):]
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "base", "__all__", "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}

func sortedKeys(in map[string][]string) []string {
	keys := make([]string, 0, len(in))
	for key := range in {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
