package model

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Map adapts a plain map into a Record. Missing keys are reported as unknown
// attributes; a non-nil "id" marks the record as persisted.
type Map map[string]any

// Attr implements Record.
func (m Map) Attr(name string) (any, error) {
	value, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownAttribute, name)
	}
	return value, nil
}

// Persisted implements Persister.
func (m Map) Persisted() bool {
	id, ok := m["id"]
	return ok && id != nil && id != ""
}

// Defaults synthesises a record from default values. Unlike Map, reads of
// undeclared attributes yield nil and the record is never persisted. Template
// rows are built from it.
type Defaults map[string]any

// Attr implements Record.
func (d Defaults) Attr(name string) (any, error) {
	return d[name], nil
}

// Persisted implements Persister.
func (d Defaults) Persisted() bool { return false }

type structRecord struct {
	value any
	rv    reflect.Value
}

// Struct adapts a struct (or pointer to struct) into a Record. Attributes are
// matched against `form:"name"` tags first, then the snake_case Go field name,
// then zero-argument methods returning a single value. Persistence and error
// reporting are forwarded when the wrapped value implements them.
func Struct(value any) Record {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	return structRecord{value: value, rv: rv}
}

func (s structRecord) Attr(name string) (any, error) {
	if !s.rv.IsValid() || s.rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w %q", ErrUnknownAttribute, name)
	}
	fields := structFields(s.rv.Type())
	if idx, ok := fields[name]; ok {
		return s.rv.FieldByIndex(idx).Interface(), nil
	}
	if method, ok := findMethod(s.value, name); ok {
		out := method.Call(nil)
		return out[0].Interface(), nil
	}
	return nil, fmt.Errorf("%w %q on %s", ErrUnknownAttribute, name, s.rv.Type())
}

func (s structRecord) Persisted() bool {
	return IsPersisted(s.value)
}

func (s structRecord) MessagesFor(name string) []string {
	return MessagesFor(s.value, name)
}

func (s structRecord) ModelName() string {
	return ModelName(s.value)
}

// Unwrap returns the adapted value.
func (s structRecord) Unwrap() any {
	return s.value
}

var fieldCache sync.Map // reflect.Type -> map[string][]int

func structFields(rt reflect.Type) map[string][]int {
	if cached, ok := fieldCache.Load(rt); ok {
		return cached.(map[string][]int)
	}
	out := make(map[string][]int)
	for _, field := range reflect.VisibleFields(rt) {
		if !field.IsExported() || field.Anonymous {
			continue
		}
		if tag := strings.TrimSpace(strings.Split(field.Tag.Get("form"), ",")[0]); tag != "" {
			if tag == "-" {
				continue
			}
			out[tag] = field.Index
			continue
		}
		key := SnakeCase(field.Name)
		if _, exists := out[key]; !exists {
			out[key] = field.Index
		}
	}
	fieldCache.Store(rt, out)
	return out
}

func findMethod(value any, name string) (reflect.Value, bool) {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() {
		return reflect.Value{}, false
	}
	method := rv.MethodByName(CamelCase(name))
	if !method.IsValid() {
		return reflect.Value{}, false
	}
	mt := method.Type()
	if mt.NumIn() != 0 || mt.NumOut() != 1 {
		return reflect.Value{}, false
	}
	return method, true
}

// CamelCase converts snake_case names (optionally suffixed with "?") into
// exported Go identifiers ("maker_id" -> "MakerID", "check_password?" ->
// "CheckPassword").
func CamelCase(name string) string {
	name = strings.TrimSuffix(strings.TrimSpace(name), "?")
	parts := strings.Split(name, "_")
	var b strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		if upper := strings.ToUpper(part); commonInitialisms[upper] {
			b.WriteString(upper)
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

var commonInitialisms = map[string]bool{
	"ID":   true,
	"URL":  true,
	"HTML": true,
	"API":  true,
	"UUID": true,
}
