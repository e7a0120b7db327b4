package formfile

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-actionform/pkg/form"
)

type documentFile struct {
	Forms []formFile `yaml:"forms"`
}

type formFile struct {
	Name        string     `yaml:"name"`
	Extends     string     `yaml:"extends"`
	Scope       *string    `yaml:"scope"`
	Conventions string     `yaml:"conventions"`
	Schema      string     `yaml:"schema"`
	Method      string     `yaml:"method"`
	Action      string     `yaml:"action"`
	Submit      string     `yaml:"submit"`
	Attrs       orderedMap `yaml:"attrs"`
	Fields      []nodeFile `yaml:"fields"`
}

// nodeFile declares an element, or a subform/collection when Kind says so.
// Fields of a redefined node replace the inherited declaration.
type nodeFile struct {
	Name     string     `yaml:"name"`
	Kind     string     `yaml:"kind"`
	Redefine bool       `yaml:"redefine"`
	Fields   []nodeFile `yaml:"fields"`
	Default  any        `yaml:"default"`
	RenderIf string     `yaml:"render_if"`

	Input      string         `yaml:"input"`
	InputAttrs orderedMap     `yaml:"attrs"`
	Output     string         `yaml:"output"`
	Of         string         `yaml:"of"`
	Validates  []ruleFile     `yaml:"validates"`
	Required   bool           `yaml:"required"`
	Label      *string        `yaml:"label"`
	LabelHTML  string         `yaml:"label_html"`
	LabelAttrs orderedMap     `yaml:"label_attrs"`
	HideLabel  bool           `yaml:"hide_label"`
	Options    []optionFile   `yaml:"options"`
	Tags       map[string]any `yaml:"tags"`
	RenderWhen string         `yaml:"render_when"`
	Detached   bool           `yaml:"detached"`
	Disabled   bool           `yaml:"disabled"`
	Readonly   bool           `yaml:"readonly"`
}

type ruleFile struct {
	Rule        string   `yaml:"rule"`
	Message     string   `yaml:"message"`
	If          string   `yaml:"if"`
	Unless      string   `yaml:"unless"`
	Min         *float64 `yaml:"min"`
	Max         *float64 `yaml:"max"`
	OnlyInteger bool     `yaml:"only_integer"`
	Minimum     *int     `yaml:"minimum"`
	Maximum     *int     `yaml:"maximum"`
	Pattern     string   `yaml:"pattern"`
	In          []any    `yaml:"in"`
}

// optionFile accepts either a scalar ("red") or {value, label}.
type optionFile struct {
	Value any
	Label string
}

func (o *optionFile) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var value any
		if err := node.Decode(&value); err != nil {
			return err
		}
		o.Value = value
		o.Label = node.Value
		return nil
	}
	var raw struct {
		Value any    `yaml:"value"`
		Label string `yaml:"label"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	o.Value = raw.Value
	o.Label = raw.Label
	if o.Label == "" {
		o.Label = fmt.Sprint(raw.Value)
	}
	return nil
}

// orderedMap keeps mapping keys in document order. Attribute order is part
// of the rendered markup.
type orderedMap form.Attrs

func (m *orderedMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!null" {
		*m = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	out := make(orderedMap, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return err
		}
		var value any
		if err := node.Content[i+1].Decode(&value); err != nil {
			return err
		}
		out = append(out, form.Attr{Key: key, Value: value})
	}
	*m = out
	return nil
}

func (m orderedMap) attrs() []form.Attr {
	return []form.Attr(m)
}
