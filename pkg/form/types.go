package form

import (
	"fmt"
	"slices"
	"strings"

	"github.com/goliatone/go-actionform/pkg/params"
)

// InputType selects the markup an element renders.
type InputType string

const (
	InputText          InputType = "text"
	InputEmail         InputType = "email"
	InputPassword      InputType = "password"
	InputHidden        InputType = "hidden"
	InputNumber        InputType = "number"
	InputRange         InputType = "range"
	InputDate          InputType = "date"
	InputTime          InputType = "time"
	InputDateTimeLocal InputType = "datetime-local"
	InputMonth         InputType = "month"
	InputWeek          InputType = "week"
	InputColor         InputType = "color"
	InputSearch        InputType = "search"
	InputTel           InputType = "tel"
	InputURL           InputType = "url"
	InputFile          InputType = "file"
	InputCheckbox      InputType = "checkbox"
	InputRadio         InputType = "radio"
	InputSelect        InputType = "select"
	InputTextarea      InputType = "textarea"
)

var knownInputTypes = map[InputType]struct{}{
	InputText: {}, InputEmail: {}, InputPassword: {}, InputHidden: {},
	InputNumber: {}, InputRange: {}, InputDate: {}, InputTime: {},
	InputDateTimeLocal: {}, InputMonth: {}, InputWeek: {}, InputColor: {},
	InputSearch: {}, InputTel: {}, InputURL: {}, InputFile: {},
	InputCheckbox: {}, InputRadio: {}, InputSelect: {}, InputTextarea: {},
}

// Valid reports whether t is a known input type.
func (t InputType) Valid() bool {
	_, ok := knownInputTypes[t]
	return ok
}

// IsTag reports whether t renders as an <input> tag. Select and textarea
// render their own tags and carry no type or value attribute.
func (t InputType) IsTag() bool {
	return t != InputSelect && t != InputTextarea
}

// OutputType is the type submitted values are coerced into.
type OutputType string

const (
	OutputString   OutputType = "string"
	OutputInteger  OutputType = "integer"
	OutputFloat    OutputType = "float"
	OutputBool     OutputType = "bool"
	OutputDate     OutputType = "date"
	OutputDateTime OutputType = "datetime"
	OutputArray    OutputType = "array"
)

// Kind maps the output type onto its params kind.
func (o OutputType) Kind() (params.Kind, error) {
	kind, err := params.ParseKind(string(o))
	if err != nil {
		return kind, fmt.Errorf("form: output type %q: %w", o, err)
	}
	return kind, nil
}

// Attr is one HTML attribute. A true value renders as a bare attribute; false
// and nil values are omitted.
type Attr struct {
	Key   string
	Value any
}

// Attrs is an ordered attribute list.
type Attrs []Attr

// Get returns the value stored under key.
func (a Attrs) Get(key string) (any, bool) {
	for _, attr := range a {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return nil, false
}

// With returns a copy with key set. An existing key keeps its position.
func (a Attrs) With(key string, value any) Attrs {
	out := a.Clone()
	for i := range out {
		if out[i].Key == key {
			out[i].Value = value
			return out
		}
	}
	return append(out, Attr{Key: key, Value: value})
}

// Without returns a copy with key removed.
func (a Attrs) Without(key string) Attrs {
	out := make(Attrs, 0, len(a))
	for _, attr := range a {
		if attr.Key != key {
			out = append(out, attr)
		}
	}
	return out
}

// Default sets key only when it is absent or holds nil/false, mirroring the
// "keep what was declared" rule used for name, id and value.
func (a Attrs) Default(key string, value any) Attrs {
	for i := range a {
		if a[i].Key != key {
			continue
		}
		if present(a[i].Value) {
			return a
		}
		out := a.Clone()
		out[i].Value = value
		return out
	}
	return append(a.Clone(), Attr{Key: key, Value: value})
}

// Clone copies the list.
func (a Attrs) Clone() Attrs {
	if a == nil {
		return nil
	}
	return append(Attrs(nil), a...)
}

func present(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	}
	return true
}

// Option is one choice of a radio, checkbox group or select element.
type Option struct {
	Value any
	Label string
}

// Opt is shorthand for an Option literal.
func Opt(value any, label string) Option {
	return Option{Value: value, Label: label}
}

// LabelConfig configures the element label. An empty Text falls back to the
// humanised element name. HTML, when set, replaces Text and is sanitised by
// renderers.
type LabelConfig struct {
	Text    string
	HTML    string
	Display bool
	Attrs   Attrs
}

// InputConfig configures the rendered control. Attrs keeps declaration order;
// "multiple" and "value" are read from it.
type InputConfig struct {
	Type  InputType
	Attrs Attrs
}

// Multiple reports whether the control accepts several values.
func (c InputConfig) Multiple() bool {
	v, _ := c.Attrs.Get("multiple")
	return present(v)
}

// OutputConfig configures the generated params field.
type OutputConfig struct {
	Type       OutputType
	Of         OutputType
	Default    any
	HasDefault bool
	Rules      []params.Rule
}

// RenderFunc decides visibility for a runtime element.
type RenderFunc func(e *Element) (bool, error)

// RenderRule gates rendering. Every configured part must hold; an empty rule
// always renders.
type RenderRule struct {
	// Predicate is resolved through the owner chain.
	Predicate string
	// Expression is evaluated by the instance's visibility evaluator.
	Expression string
	Func       RenderFunc
	// NodeFunc gates subforms and collections.
	NodeFunc func(n Node) (bool, error)
}

func (r RenderRule) empty() bool {
	return r.Predicate == "" && r.Expression == "" && r.Func == nil && r.NodeFunc == nil
}

// PredicateFunc is a named capability declared on a form or subform. It
// receives the node that declared it.
type PredicateFunc func(n Node) (bool, error)

// NodeDefinition is implemented by *ElementDefinition, *SubformDefinition and
// *CollectionDefinition.
type NodeDefinition interface {
	DefinitionName() string
	cloneDefinition() NodeDefinition
}

// ElementDefinition is the declaration of one leaf field.
type ElementDefinition struct {
	Name     string
	Input    InputConfig
	Output   OutputConfig
	Label    LabelConfig
	Options  []Option
	Tags     map[string]any
	Render   RenderRule
	Detached bool
	Disabled bool
	Readonly bool

	// optional elements read missing model attributes as nil.
	optional bool
}

// DefinitionName implements NodeDefinition.
func (d *ElementDefinition) DefinitionName() string { return d.Name }

func (d *ElementDefinition) cloneDefinition() NodeDefinition {
	out := *d
	out.Input.Attrs = d.Input.Attrs.Clone()
	out.Label.Attrs = d.Label.Attrs.Clone()
	out.Options = append([]Option(nil), d.Options...)
	out.Output.Rules = append([]params.Rule(nil), d.Output.Rules...)
	if d.Tags != nil {
		out.Tags = make(map[string]any, len(d.Tags))
		for k, v := range d.Tags {
			out.Tags[k] = v
		}
	}
	return &out
}

// SubformDefinition groups nodes under one nested scope. The root of a form
// definition is a SubformDefinition too.
type SubformDefinition struct {
	Name       string
	Nodes      []NodeDefinition
	Predicates map[string]PredicateFunc
	Default    map[string]any
	HasDefault bool
	Render     RenderRule
	// Params patch the generated schema for this level, in order.
	Params []func(*params.Builder)
}

// DefinitionName implements NodeDefinition.
func (d *SubformDefinition) DefinitionName() string { return d.Name }

func (d *SubformDefinition) cloneDefinition() NodeDefinition {
	return d.clone()
}

func (d *SubformDefinition) clone() *SubformDefinition {
	out := *d
	out.Nodes = make([]NodeDefinition, len(d.Nodes))
	for i, node := range d.Nodes {
		out.Nodes[i] = node.cloneDefinition()
	}
	out.Predicates = make(map[string]PredicateFunc, len(d.Predicates))
	for k, v := range d.Predicates {
		out.Predicates[k] = v
	}
	out.Params = slices.Clone(d.Params)
	return &out
}

// Node returns the child declaration named name.
func (d *SubformDefinition) Node(name string) (NodeDefinition, bool) {
	for _, node := range d.Nodes {
		if node.DefinitionName() == name {
			return node, true
		}
	}
	return nil, false
}

func (d *SubformDefinition) replace(def NodeDefinition) {
	for i, node := range d.Nodes {
		if node.DefinitionName() == def.DefinitionName() {
			d.Nodes[i] = def
			return
		}
	}
	d.Nodes = append(d.Nodes, def)
}

// CollectionDefinition declares a list of subforms sharing Row.
type CollectionDefinition struct {
	Name       string
	Row        *SubformDefinition
	Default    []map[string]any
	HasDefault bool
	Render     RenderRule
}

// DefinitionName implements NodeDefinition.
func (d *CollectionDefinition) DefinitionName() string { return d.Name }

func (d *CollectionDefinition) cloneDefinition() NodeDefinition {
	out := *d
	out.Row = d.Row.clone()
	out.Default = append([]map[string]any(nil), d.Default...)
	return &out
}

// Humanize is the default label text: underscores become spaces and only the
// first letter is upper case ("maker_id" -> "Maker id").
func Humanize(name string) string {
	text := strings.ToLower(strings.ReplaceAll(name, "_", " "))
	if text == "" {
		return ""
	}
	return strings.ToUpper(text[:1]) + text[1:]
}
