package render

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-actionform/pkg/form"
)

// FieldSubset limits rendering to elements that match any of the filters.
// Groups match the "group" tag, Tags match tag keys holding a truthy value
// or entries of the "tags" tag, Names match the declared or HTML name.
// Hidden elements always match so nested records keep their keys.
type FieldSubset struct {
	Groups []string
	Tags   []string
	Names  []string
}

// Empty reports whether no filter is configured.
func (s FieldSubset) Empty() bool {
	return newSubsetMatcher(s).empty()
}

// Allows reports whether e passes the subset.
func (s FieldSubset) Allows(e *form.Element) bool {
	m := newSubsetMatcher(s)
	return m.empty() || m.matches(e)
}

// AllowsNode reports whether n, or any element below it, passes the subset.
// Collections are checked against their template row too, so an empty
// collection still renders its add-row markup.
func (s FieldSubset) AllowsNode(n form.Node) bool {
	m := newSubsetMatcher(s)
	if m.empty() {
		return true
	}
	return m.matchesNode(n)
}

type subsetMatcher struct {
	groups map[string]struct{}
	tags   map[string]struct{}
	names  map[string]struct{}
}

func newSubsetMatcher(subset FieldSubset) subsetMatcher {
	return subsetMatcher{
		groups: normaliseTokens(subset.Groups),
		tags:   normaliseTokens(subset.Tags),
		names:  normaliseTokens(subset.Names),
	}
}

func (m subsetMatcher) empty() bool {
	return len(m.groups) == 0 && len(m.tags) == 0 && len(m.names) == 0
}

func (m subsetMatcher) matchesNode(n form.Node) bool {
	switch node := n.(type) {
	case *form.Element:
		return m.matches(node) && node.InputType() != form.InputHidden
	case *form.Collection:
		if m.matchesNode(node.Template()) {
			return true
		}
	}
	if c, ok := n.(form.Container); ok {
		for _, child := range c.Nodes() {
			if m.matchesNode(child) {
				return true
			}
		}
	}
	return false
}

func (m subsetMatcher) matches(e *form.Element) bool {
	if e.InputType() == form.InputHidden {
		return true
	}
	if len(m.names) > 0 {
		if _, ok := m.names[normaliseToken(e.Name())]; ok {
			return true
		}
		if _, ok := m.names[normaliseToken(e.HTMLName())]; ok {
			return true
		}
	}

	tags := e.Tags()
	if len(m.groups) > 0 {
		if group := normaliseToken(anyToString(tags["group"])); group != "" {
			if _, ok := m.groups[group]; ok {
				return true
			}
		}
	}

	if len(m.tags) > 0 {
		for _, tag := range elementTags(tags) {
			if _, ok := m.tags[tag]; ok {
				return true
			}
		}
	}
	return false
}

// elementTags lists tag keys holding true plus the entries of the "tags" tag.
func elementTags(tags map[string]any) []string {
	var out []string
	for key, value := range tags {
		if b, ok := value.(bool); ok && b {
			out = append(out, normaliseToken(key))
		}
	}
	switch list := tags["tags"].(type) {
	case []string:
		out = append(out, tokensToLower(list)...)
	case []any:
		for _, entry := range list {
			if token := normaliseToken(anyToString(entry)); token != "" {
				out = append(out, token)
			}
		}
	case string:
		out = append(out, parseTokenList(list)...)
	}
	return dedupe(out)
}

func normaliseTokens(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	result := make(map[string]struct{}, len(values))
	for _, value := range values {
		token := normaliseToken(value)
		if token == "" {
			continue
		}
		result[token] = struct{}{}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func normaliseToken(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func tokensToLower(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		if token := normaliseToken(value); token != "" {
			out = append(out, token)
		}
	}
	return out
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func parseTokenList(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' })
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if token := normaliseToken(part); token != "" {
			tokens = append(tokens, token)
		}
	}
	return dedupe(tokens)
}

func anyToString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
