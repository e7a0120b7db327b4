package params

import (
	"context"

	"github.com/reoring/goskema"
	"github.com/reoring/goskema/dsl"
	"github.com/reoring/goskema/i18n"
	js "github.com/reoring/goskema/jsonschema"
)

// Wire exposes s as a goskema object schema. Declared keys are coerced by
// kind, unknown keys are stripped and a refine step runs the full rule set,
// so goskema callers see the same issues Validate reports, keyed by JSON
// Pointer. owner resolves If/Unless predicates and may be nil.
func (s *Schema) Wire(owner Resolver) (goskema.Schema[map[string]any], error) {
	return s.wire(func(_ context.Context, values map[string]any) error {
		inst := s.New(values)
		if owner != nil {
			inst.SetOwner(owner)
		}
		err := inst.Validate()
		if issues, ok := AsIssues(err); ok {
			return issues.Goskema()
		}
		return err
	})
}

// wire builds the object schema. Nested schemas are built without refine;
// the root refine validates the whole tree.
func (s *Schema) wire(refine func(context.Context, map[string]any) error) (goskema.Schema[map[string]any], error) {
	b := dsl.Object().UnknownStrip()
	for _, field := range s.fields {
		step := b.Field(field.Name, dsl.Nullable(dsl.SchemaOf[any](wireField{field: field})))
		if field.HasDefault && field.Kind.scalar() {
			step.Default(field.Default)
		}
	}
	if refine != nil {
		b.Refine(s.name, refine)
	}
	return b.Build()
}

func (s *Schema) jsonSchema() (*js.Schema, error) {
	shape, err := s.wire(nil)
	if err != nil {
		return nil, err
	}
	return shape.JSONSchema()
}

// wireField coerces one field the way Schema.New does and describes it as
// JSON Schema.
type wireField struct {
	field Field
}

func (w wireField) Parse(_ context.Context, v any) (any, error) {
	switch w.field.Kind {
	case KindObject:
		if v == nil {
			return nil, nil
		}
		if _, ok := asObject(v); !ok {
			return nil, invalidType("expected object")
		}
		return v, nil
	case KindCollection:
		if _, ok := NormalizeCollection(v); !ok {
			return nil, invalidType("expected rows")
		}
		return v, nil
	}
	out, ok := coerce(w.field.Kind, w.field.Of, v)
	if !ok {
		return nil, invalidType("expected " + w.field.Kind.String())
	}
	return out, nil
}

func (w wireField) ParseWithMeta(ctx context.Context, v any) (goskema.Decoded[any], error) {
	out, err := w.Parse(ctx, v)
	return goskema.Decoded[any]{Value: out, Presence: goskema.PresenceMap{"/": goskema.PresenceSeen}}, err
}

func (w wireField) TypeCheck(ctx context.Context, v any) error {
	_, err := w.Parse(ctx, v)
	return err
}

func (w wireField) RuleCheck(context.Context, any) error { return nil }

func (w wireField) Validate(ctx context.Context, v any) error { return w.TypeCheck(ctx, v) }

func (w wireField) ValidateValue(context.Context, any) error { return nil }

func (w wireField) JSONSchema() (*js.Schema, error) {
	switch w.field.Kind {
	case KindObject:
		return w.field.Schema.jsonSchema()
	case KindCollection:
		items, err := w.field.Schema.jsonSchema()
		if err != nil {
			return nil, err
		}
		return &js.Schema{Type: "array", Items: items}, nil
	case KindArray:
		return &js.Schema{Type: "array", Items: scalarJSONSchema(w.field.Of)}, nil
	}
	return scalarJSONSchema(w.field.Kind), nil
}

func scalarJSONSchema(kind Kind) *js.Schema {
	switch kind {
	case KindInteger:
		return &js.Schema{Type: "integer"}
	case KindFloat:
		return &js.Schema{Type: "number"}
	case KindBool:
		return &js.Schema{Type: "boolean"}
	case KindDate:
		return &js.Schema{Type: "string", Format: "date"}
	case KindDateTime:
		return &js.Schema{Type: "string", Format: "date-time"}
	default:
		return &js.Schema{Type: "string"}
	}
}

func invalidType(hint string) goskema.Issues {
	return goskema.Issues{{
		Path:    "/",
		Code:    goskema.CodeInvalidType,
		Message: i18n.T(goskema.CodeInvalidType, nil),
		Hint:    hint,
	}}
}
