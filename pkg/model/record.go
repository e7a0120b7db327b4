package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// ErrUnknownAttribute is returned when a Record does not define the requested
// attribute. Callers treat it as a programmer error.
var ErrUnknownAttribute = errors.New("model: unknown attribute")

// Record exposes named attribute reads for a bound value.
type Record interface {
	Attr(name string) (any, error)
}

// Persister reports whether the bound record already exists in storage.
type Persister interface {
	Persisted() bool
}

// ErrorReporter exposes validation messages for a single attribute.
type ErrorReporter interface {
	MessagesFor(name string) []string
}

// Namer exposes the human model name (e.g. "Info").
type Namer interface {
	ModelName() string
}

// RecordFunc adapts a function into a Record.
type RecordFunc func(name string) (any, error)

// Attr delegates to the underlying function.
func (fn RecordFunc) Attr(name string) (any, error) {
	return fn(name)
}

// Bind returns a Record for the supplied value. Records pass through, maps and
// structs are wrapped, and nil yields nil so callers can fall back to defaults.
func Bind(value any) (Record, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case Record:
		return v, nil
	case map[string]any:
		return Map(v), nil
	}

	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		return Struct(value), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("model: unsupported map key type %s", rv.Type().Key())
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return Map(out), nil
	default:
		return nil, fmt.Errorf("model: cannot bind %T", value)
	}
}

// Read binds value and reads a single attribute. A nil value yields nil
// without error.
func Read(value any, name string) (any, error) {
	rec, err := Bind(value)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return rec.Attr(name)
}

// IsPersisted reports the persistence state of value when it implements
// Persister.
func IsPersisted(value any) bool {
	if p, ok := value.(Persister); ok {
		return p.Persisted()
	}
	return false
}

// MessagesFor returns error messages for name when value reports errors.
func MessagesFor(value any, name string) []string {
	if r, ok := value.(ErrorReporter); ok {
		return r.MessagesFor(name)
	}
	return nil
}

// ModelName returns the model name for value: Namer first, then the Go type
// name of structs.
func ModelName(value any) string {
	if n, ok := value.(Namer); ok {
		return n.ModelName()
	}
	if value == nil {
		return ""
	}
	rt := reflect.TypeOf(value)
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return ""
	}
	return rt.Name()
}

// ParamKey converts a model name into its snake_case form used as a form
// scope ("LineItem" -> "line_item").
func ParamKey(name string) string {
	return SnakeCase(name)
}

// SnakeCase converts CamelCase identifiers to snake_case.
func SnakeCase(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// List converts slices and arrays into []any. nil yields an empty slice.
func List(value any) ([]any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []any:
		return v, nil
	case []map[string]any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, nil
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = rv.Index(i).Interface()
		}
		return out, nil
	default:
		return []any{value}, nil
	}
}
