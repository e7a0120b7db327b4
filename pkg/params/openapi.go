package params

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// OpenAPI exports the schema as an OpenAPI object schema. Presence rules become
// required properties; inclusion, numericality, length and format rules map
// onto enum, minimum/maximum, minLength/maxLength and pattern.
func (s *Schema) OpenAPI() *openapi3.Schema {
	out := openapi3.NewObjectSchema()
	if s == nil {
		return out
	}
	out.Title = s.name
	for _, field := range s.fields {
		prop := fieldSchema(field)
		out = out.WithProperty(field.Name, prop)
		for _, rule := range field.Rules {
			if rule.Name == "presence" && len(rule.when) == 0 {
				out.Required = append(out.Required, field.Name)
				break
			}
		}
	}
	return out
}

func fieldSchema(field Field) *openapi3.Schema {
	var prop *openapi3.Schema
	switch field.Kind {
	case KindObject:
		prop = field.Schema.OpenAPI()
	case KindCollection:
		items := field.Schema.OpenAPI()
		prop = openapi3.NewArraySchema().WithItems(items)
	case KindArray:
		prop = openapi3.NewArraySchema().WithItems(kindSchema(field.Of))
	default:
		prop = kindSchema(field.Kind)
	}
	if field.HasDefault && field.Kind.scalar() {
		prop = prop.WithDefault(field.Default)
	}
	for _, rule := range field.Rules {
		applyRuleSchema(prop, rule)
	}
	return prop
}

func kindSchema(kind Kind) *openapi3.Schema {
	switch kind {
	case KindInteger:
		return openapi3.NewInt64Schema()
	case KindFloat:
		return openapi3.NewFloat64Schema()
	case KindBool:
		return openapi3.NewBoolSchema()
	case KindDate:
		return openapi3.NewStringSchema().WithFormat("date")
	case KindDateTime:
		return openapi3.NewDateTimeSchema()
	default:
		return openapi3.NewStringSchema()
	}
}

func applyRuleSchema(prop *openapi3.Schema, rule Rule) {
	switch rule.Name {
	case "inclusion":
		if values, ok := rule.Params["in"].([]any); ok {
			prop.WithEnum(values...)
		}
	case "numericality":
		if v, ok := rule.Params["min"].(float64); ok {
			prop.WithMin(v)
		}
		if v, ok := rule.Params["max"].(float64); ok {
			prop.WithMax(v)
		}
	case "length":
		if v, ok := rule.Params["minimum"].(int); ok && v >= 0 {
			prop.WithMinLength(int64(v))
		}
		if v, ok := rule.Params["maximum"].(int); ok && v >= 0 {
			prop.WithMaxLength(int64(v))
		}
	case "format":
		if v, ok := rule.Params["pattern"].(string); ok {
			prop.WithPattern(v)
		}
	}
}
