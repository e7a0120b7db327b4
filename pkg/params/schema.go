package params

import (
	"fmt"
	"strings"
)

// Field declares one key of a Schema.
type Field struct {
	Name string
	Kind Kind
	// Of is the element kind of KindArray fields.
	Of         Kind
	Default    any
	HasDefault bool
	Rules      []Rule
	// Schema is the nested schema of KindObject and KindCollection fields.
	Schema *Schema
}

// FieldOption customises a Field.
type FieldOption func(*Field)

// ArrayOf sets the element kind of an array field.
func ArrayOf(kind Kind) FieldOption {
	return func(f *Field) { f.Of = kind }
}

// WithDefault sets the value used when the key is absent from the input.
func WithDefault(value any) FieldOption {
	return func(f *Field) {
		f.Default = value
		f.HasDefault = true
	}
}

// WithRules appends validation rules.
func WithRules(rules ...Rule) FieldOption {
	return func(f *Field) { f.Rules = append(f.Rules, rules...) }
}

// InstanceValidator runs after field rules and may add issues through
// inst.Errors().
type InstanceValidator func(inst *Instance) error

// Schema is an immutable set of fields. Build one with NewBuilder.
type Schema struct {
	name       string
	fields     []Field
	index      map[string]int
	validators []InstanceValidator
	translator Translator
}

// Builder collects field declarations before producing a Schema.
type Builder struct {
	name       string
	fields     []Field
	index      map[string]int
	validators []InstanceValidator
	translator Translator
	errs       []string
}

// NewBuilder starts a schema named name.
func NewBuilder(name string) *Builder {
	return &Builder{name: name, index: make(map[string]int)}
}

// Field declares a scalar or array field. Redeclaring a name replaces the
// earlier declaration in place.
func (b *Builder) Field(name string, kind Kind, opts ...FieldOption) *Builder {
	if kind == KindObject || kind == KindCollection {
		b.errs = append(b.errs, fmt.Sprintf("field %q: use Has or Each for nested kinds", name))
		return b
	}
	field := Field{Name: name, Kind: kind}
	if kind == KindArray {
		field.Of = KindString
	}
	b.add(field, opts)
	return b
}

// Has declares a nested object field validated by nested.
func (b *Builder) Has(name string, nested *Schema, opts ...FieldOption) *Builder {
	if nested == nil {
		b.errs = append(b.errs, fmt.Sprintf("field %q: nested schema is nil", name))
		return b
	}
	b.add(Field{Name: name, Kind: KindObject, Schema: nested}, opts)
	return b
}

// Each declares a collection field whose rows are validated by nested. Input
// may be a slice of objects or an object keyed by row index.
func (b *Builder) Each(name string, nested *Schema, opts ...FieldOption) *Builder {
	if nested == nil {
		b.errs = append(b.errs, fmt.Sprintf("field %q: nested schema is nil", name))
		return b
	}
	b.add(Field{Name: name, Kind: KindCollection, Schema: nested}, opts)
	return b
}

// Validates appends rules to a field declared earlier, typically by a parent
// schema being extended. Undeclared names are ignored so the same patch can
// be applied to schemas that omit hidden fields.
func (b *Builder) Validates(name string, rules ...Rule) *Builder {
	pos, ok := b.index[name]
	if !ok {
		return b
	}
	field := b.fields[pos]
	field.Rules = append(append([]Rule(nil), field.Rules...), rules...)
	b.fields[pos] = field
	return b
}

// Nested extends the schema of an object or collection field with fn.
// Undeclared names are ignored like in Validates.
func (b *Builder) Nested(name string, fn func(*Builder)) *Builder {
	pos, ok := b.index[name]
	if !ok {
		return b
	}
	if b.fields[pos].Schema == nil {
		b.errs = append(b.errs, fmt.Sprintf("nested %q: field is not an object or collection", name))
		return b
	}
	field := b.fields[pos]
	nested, err := field.Schema.Extend(fn)
	if err != nil {
		b.errs = append(b.errs, fmt.Sprintf("nested %q: %v", name, err))
		return b
	}
	field.Schema = nested
	b.fields[pos] = field
	return b
}

// Validate registers an instance-level validator.
func (b *Builder) Validate(fn InstanceValidator) *Builder {
	if fn != nil {
		b.validators = append(b.validators, fn)
	}
	return b
}

// Translator overrides the message dictionary.
func (b *Builder) Translator(tr Translator) *Builder {
	b.translator = tr
	return b
}

// Build validates the declarations and returns the Schema.
func (b *Builder) Build() (*Schema, error) {
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("%w: %s: %s", ErrInvalidSchema, b.name, strings.Join(b.errs, "; "))
	}
	s := &Schema{
		name:       b.name,
		fields:     append([]Field(nil), b.fields...),
		index:      make(map[string]int, len(b.fields)),
		validators: append([]InstanceValidator(nil), b.validators...),
		translator: b.translator,
	}
	for i, field := range s.fields {
		s.index[field.Name] = i
	}
	return s, nil
}

// MustBuild is Build that panics on error.
func (b *Builder) MustBuild() *Schema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

func (b *Builder) add(field Field, opts []FieldOption) {
	name := strings.TrimSpace(field.Name)
	if name == "" {
		b.errs = append(b.errs, "field name is empty")
		return
	}
	field.Name = name
	for _, opt := range opts {
		if opt != nil {
			opt(&field)
		}
	}
	if pos, ok := b.index[name]; ok {
		b.fields[pos] = field
		return
	}
	b.index[name] = len(b.fields)
	b.fields = append(b.fields, field)
}

// Name returns the schema name.
func (s *Schema) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

// Fields returns the declared fields in order.
func (s *Schema) Fields() []Field {
	if s == nil {
		return nil
	}
	return append([]Field(nil), s.fields...)
}

// Field returns the declaration for name.
func (s *Schema) Field(name string) (Field, bool) {
	if s == nil {
		return Field{}, false
	}
	pos, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[pos], true
}

// Extend copies the schema into a builder, applies fn and builds the result.
// The receiver is left untouched.
func (s *Schema) Extend(fn func(*Builder)) (*Schema, error) {
	b := NewBuilder(s.Name())
	if s != nil {
		b.fields = append(b.fields, s.fields...)
		for name, pos := range s.index {
			b.index[name] = pos
		}
		b.validators = append(b.validators, s.validators...)
		b.translator = s.translator
	}
	if fn != nil {
		fn(b)
	}
	return b.Build()
}

func (s *Schema) messages() Translator {
	if s == nil || s.translator == nil {
		return English()
	}
	return s.translator
}
