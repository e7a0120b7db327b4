package params

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// ErrMalformedParams reports submitted data that cannot be nested.
var ErrMalformedParams = errors.New("params: malformed parameters")

// ParseForm nests bracketed form names into maps:
//
//	info[name]=Bob           -> {"info": {"name": "Bob"}}
//	info[tags][]=a           -> {"info": {"tags": ["a"]}}
//	info[items][0][name]=x   -> {"info": {"items": {"0": {"name": "x"}}}}
//
// Collection rows stay keyed by index; Each fields normalise them. For
// repeated non-array names the last value wins.
func ParseForm(values url.Values) (map[string]any, error) {
	out := make(map[string]any)
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		path, err := splitName(key)
		if err != nil {
			return nil, err
		}
		if err := assign(out, path, values[key], key); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// splitName turns "a[b][0][]" into ["a", "b", "0", ""].
func splitName(name string) ([]string, error) {
	open := strings.IndexByte(name, '[')
	if open < 0 {
		if name == "" {
			return nil, fmt.Errorf("%w: empty name", ErrMalformedParams)
		}
		return []string{name}, nil
	}
	if open == 0 {
		return nil, fmt.Errorf("%w: %q has no root key", ErrMalformedParams, name)
	}
	path := []string{name[:open]}
	rest := name[open:]
	for rest != "" {
		if rest[0] != '[' {
			return nil, fmt.Errorf("%w: %q", ErrMalformedParams, name)
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, fmt.Errorf("%w: %q is missing ]", ErrMalformedParams, name)
		}
		path = append(path, rest[1:end])
		rest = rest[end+1:]
	}
	for i, segment := range path[:len(path)-1] {
		if segment == "" && i > 0 {
			return nil, fmt.Errorf("%w: %q uses [] before the last segment", ErrMalformedParams, name)
		}
	}
	return path, nil
}

func assign(dst map[string]any, path []string, values []string, key string) error {
	cur := dst
	for i, segment := range path {
		last := i == len(path)-1
		if last {
			cur[segment] = lastValue(values)
			return nil
		}
		if path[i+1] == "" && i+1 == len(path)-1 {
			list, _ := cur[segment].([]any)
			for _, value := range values {
				list = append(list, value)
			}
			cur[segment] = list
			return nil
		}
		next, exists := cur[segment]
		if !exists {
			child := make(map[string]any)
			cur[segment] = child
			cur = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %q conflicts with a value at %q", ErrMalformedParams, key, strings.Join(path[:i+1], "."))
		}
		cur = child
	}
	return nil
}

func lastValue(values []string) any {
	if len(values) == 0 {
		return ""
	}
	return values[len(values)-1]
}

// ParseJSON decodes a JSON object. Numbers are kept as json.Number so integer
// fields do not pass through float64.
func ParseJSON(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("params: decode json: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// Scoped returns the object stored under scope, or an empty map.
func Scoped(values map[string]any, scope string) map[string]any {
	if scope == "" {
		return values
	}
	if obj, ok := values[scope].(map[string]any); ok {
		return obj
	}
	return map[string]any{}
}
