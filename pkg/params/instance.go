package params

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/goliatone/go-actionform/pkg/model"
)

// Instance is a schema applied to one input map. Values are coerced when the
// instance is created; rules run on Validate.
type Instance struct {
	schema  *Schema
	parent  *Instance
	owner   Resolver
	raw     map[string]any
	values  map[string]any
	present map[string]bool
	nested  map[string]*Instance
	rows    map[string][]*Instance
	invalid map[string]bool

	errors    *Errors
	validated bool
	failure   error
}

// New applies the schema to values. A nil map behaves like an empty one.
func (s *Schema) New(values map[string]any) *Instance {
	return s.newInstance(values, nil)
}

func (s *Schema) newInstance(values map[string]any, parent *Instance) *Instance {
	inst := &Instance{
		schema:  s,
		parent:  parent,
		raw:     values,
		values:  make(map[string]any),
		present: make(map[string]bool),
		nested:  make(map[string]*Instance),
		rows:    make(map[string][]*Instance),
		invalid: make(map[string]bool),
		errors:  newErrors(s.messages()),
	}
	if inst.raw == nil {
		inst.raw = map[string]any{}
	}

	for _, field := range s.fields {
		raw, ok := inst.raw[field.Name]
		if !ok && field.HasDefault {
			raw, ok = field.Default, true
		}
		if !ok {
			continue
		}
		inst.present[field.Name] = true

		switch field.Kind {
		case KindObject:
			if raw == nil {
				continue
			}
			obj, ok := asObject(raw)
			if !ok {
				inst.invalid[field.Name] = true
				continue
			}
			inst.nested[field.Name] = field.Schema.newInstance(obj, inst)
		case KindCollection:
			items, ok := NormalizeCollection(raw)
			if !ok {
				inst.invalid[field.Name] = true
				continue
			}
			rows := make([]*Instance, 0, len(items))
			for _, item := range items {
				rows = append(rows, field.Schema.newInstance(item, inst))
			}
			inst.rows[field.Name] = rows
		default:
			value, ok := coerce(field.Kind, field.Of, raw)
			if !ok {
				inst.invalid[field.Name] = true
				continue
			}
			inst.values[field.Name] = value
		}
	}
	return inst
}

// Schema returns the schema the instance was built from.
func (inst *Instance) Schema() *Schema {
	return inst.schema
}

// SetOwner sets the resolver consulted by If/Unless rules. Nested instances
// inherit the owner of their parent.
func (inst *Instance) SetOwner(owner Resolver) {
	inst.owner = owner
}

// Owner returns the closest owner set on the instance or its parents.
func (inst *Instance) Owner() Resolver {
	for cur := inst; cur != nil; cur = cur.parent {
		if cur.owner != nil {
			return cur.owner
		}
	}
	return nil
}

// Validate runs every rule and returns Issues when any failed. Issues of
// nested objects and collection rows come first, in declaration order,
// followed by the instance's own fields. Errors returned by predicates or
// instance validators are returned as is.
func (inst *Instance) Validate() error {
	inst.errors.reset()
	inst.validated = true
	inst.failure = nil

	err := inst.validate()
	if _, isIssues := AsIssues(err); err != nil && !isIssues {
		inst.failure = err
	}
	return err
}

func (inst *Instance) validate() error {
	for _, field := range inst.schema.fields {
		switch field.Kind {
		case KindObject:
			if child := inst.nested[field.Name]; child != nil {
				if err := inst.validateChild(field.Name, child); err != nil {
					return err
				}
			}
		case KindCollection:
			for i, row := range inst.rows[field.Name] {
				if err := inst.validateChild(field.Name+"["+strconv.Itoa(i)+"]", row); err != nil {
					return err
				}
			}
		}
	}

	for _, field := range inst.schema.fields {
		if inst.invalid[field.Name] {
			inst.errors.Add(field.Name, CodeInvalid, nil)
			continue
		}
		value := inst.Get(field.Name)
		for _, rule := range field.Rules {
			if err := rule.apply(inst, field.Name, value); err != nil {
				return err
			}
		}
	}

	for _, fn := range inst.schema.validators {
		if err := fn(inst); err != nil {
			return fmt.Errorf("params: %s: %w", inst.schema.name, err)
		}
	}

	if inst.errors.Any() {
		return inst.errors.Issues()
	}
	return nil
}

func (inst *Instance) validateChild(prefix string, child *Instance) error {
	err := child.Validate()
	if err == nil {
		return nil
	}
	var issues Issues
	if !errors.As(err, &issues) {
		return err
	}
	inst.errors.merge(prefix, issues)
	return nil
}

// Valid validates the instance and reports whether it passed.
func (inst *Instance) Valid() bool {
	return inst.Validate() == nil
}

// Invalid is the negation of Valid.
func (inst *Instance) Invalid() bool {
	return !inst.Valid()
}

// Errors returns the accumulated issues, validating first if needed. When
// validation stopped on a predicate or validator error the issues are
// incomplete; Err reports that error.
func (inst *Instance) Errors() *Errors {
	if !inst.validated {
		_ = inst.Validate()
	}
	return inst.errors
}

// Err returns the non-issue error that stopped the last validation, such as
// a predicate that could not be resolved. It is nil when validation ran to
// completion, whether or not issues were found.
func (inst *Instance) Err() error {
	return inst.failure
}

// Validated reports whether Validate has run.
func (inst *Instance) Validated() bool {
	return inst.validated
}

// MessagesFor implements model.ErrorReporter.
func (inst *Instance) MessagesFor(name string) []string {
	if !inst.validated {
		return nil
	}
	return inst.errors.MessagesFor(name)
}

// Has reports whether name was supplied or defaulted.
func (inst *Instance) Has(name string) bool {
	return inst.present[name]
}

// Get returns the coerced value of a scalar field, the nested instance of an
// object field, or the row instances of a collection field.
func (inst *Instance) Get(name string) any {
	field, ok := inst.schema.Field(name)
	if !ok {
		return nil
	}
	switch field.Kind {
	case KindObject:
		if child := inst.nested[name]; child != nil {
			return child
		}
		return nil
	case KindCollection:
		if rows, ok := inst.rows[name]; ok {
			return rows
		}
		return nil
	default:
		return inst.values[name]
	}
}

// String returns the field value formatted for display; nil is "".
func (inst *Instance) String(name string) string {
	value := inst.Get(name)
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

// Nested returns the instance of an object field.
func (inst *Instance) Nested(name string) *Instance {
	return inst.nested[name]
}

// Each returns the row instances of a collection field.
func (inst *Instance) Each(name string) []*Instance {
	return inst.rows[name]
}

// Attr implements model.Record so an instance can bind a form.
func (inst *Instance) Attr(name string) (any, error) {
	if _, ok := inst.schema.Field(name); ok {
		value := inst.Get(name)
		if rows, ok := value.([]*Instance); ok {
			out := make([]any, len(rows))
			for i, row := range rows {
				out[i] = row
			}
			return out, nil
		}
		return value, nil
	}
	if value, ok := inst.raw[name]; ok {
		return value, nil
	}
	return nil, fmt.Errorf("%w: %q on %s params", model.ErrUnknownAttribute, name, inst.schema.name)
}

// Persisted reports whether a non-blank id was supplied.
func (inst *Instance) Persisted() bool {
	value, ok := inst.lookup("id")
	return ok && !IsBlank(value)
}

// Values returns the declared, supplied values as plain maps and slices.
func (inst *Instance) Values() map[string]any {
	out := make(map[string]any, len(inst.present))
	for _, field := range inst.schema.fields {
		if !inst.present[field.Name] {
			continue
		}
		switch field.Kind {
		case KindObject:
			if child := inst.nested[field.Name]; child != nil {
				out[field.Name] = child.Values()
			} else {
				out[field.Name] = nil
			}
		case KindCollection:
			rows := inst.rows[field.Name]
			list := make([]map[string]any, 0, len(rows))
			for _, row := range rows {
				list = append(list, row.Values())
			}
			out[field.Name] = list
		default:
			out[field.Name] = inst.values[field.Name]
		}
	}
	return out
}

func (inst *Instance) lookup(name string) (any, bool) {
	if _, ok := inst.schema.Field(name); ok {
		if !inst.present[name] {
			return nil, false
		}
		return inst.Get(name), true
	}
	value, ok := inst.raw[name]
	return value, ok
}

// NormalizeCollection converts collection input into ordered rows. Slices keep
// their order. Maps keyed by row index are sorted numerically, with any
// non-numeric keys after the numeric ones in lexical order.
func NormalizeCollection(raw any) ([]map[string]any, bool) {
	if raw == nil {
		return nil, true
	}
	switch v := raw.(type) {
	case []map[string]any:
		return append([]map[string]any(nil), v...), true
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sortIndexKeys(keys)
		out := make([]map[string]any, 0, len(keys))
		for _, key := range keys {
			row, ok := asObject(v[key])
			if !ok {
				return nil, false
			}
			out = append(out, row)
		}
		return out, true
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]map[string]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		row, ok := asObject(rv.Index(i).Interface())
		if !ok {
			return nil, false
		}
		out = append(out, row)
	}
	return out, true
}

func sortIndexKeys(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		a, aErr := strconv.Atoi(keys[i])
		b, bErr := strconv.Atoi(keys[j])
		switch {
		case aErr == nil && bErr == nil:
			return a < b
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
}

func asObject(raw any) (map[string]any, bool) {
	switch v := raw.(type) {
	case nil:
		return map[string]any{}, true
	case map[string]any:
		return v, true
	case map[string]string:
		out := make(map[string]any, len(v))
		for key, value := range v {
			out[key] = value
		}
		return out, true
	case *Instance:
		return v.Values(), true
	}
	return nil, false
}
