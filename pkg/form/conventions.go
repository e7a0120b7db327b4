package form

import (
	"github.com/goliatone/go-actionform/pkg/model"
	"github.com/goliatone/go-actionform/pkg/params"
)

// Conventions controls nested naming and the hidden fields injected for
// persisted nested records.
type Conventions struct {
	// NestedSuffix is appended to subform and collection names in both HTML
	// names and generated schema keys ("car" -> "car_attributes").
	NestedSuffix string
	// PrimaryKey injects a hidden "id" element into subforms and collection
	// rows that do not declare one.
	PrimaryKey bool
	// Destroy injects a hidden "_destroy" element into collection rows.
	Destroy bool
	// UTF8 emits the utf8 marker input at the top of the form.
	UTF8 bool
}

var (
	// DefaultConventions uses "_attributes" keys without injected fields.
	DefaultConventions = Conventions{NestedSuffix: "_attributes"}
	// RailsConventions matches Rails nested attributes forms.
	RailsConventions = Conventions{NestedSuffix: "_attributes", PrimaryKey: true, Destroy: true, UTF8: true}
	// PlainConventions nests under bare names.
	PlainConventions = Conventions{}
)

// NestedKey returns the key a nested node is submitted under.
func (c Conventions) NestedKey(name string) string {
	return name + c.NestedSuffix
}

const (
	primaryKeyElement = "id"
	destroyElement    = "_destroy"
)

func primaryKeyDefinition() *ElementDefinition {
	return &ElementDefinition{
		Name:     primaryKeyElement,
		Input:    InputConfig{Type: InputHidden, Attrs: Attrs{{Key: "autocomplete", Value: "off"}}},
		Output:   OutputConfig{Type: OutputInteger},
		Label:    LabelConfig{Display: false},
		Render:   RenderRule{Func: renderWhenPersistedOrSubmitted},
		Tags:     map[string]any{},
		optional: true,
	}
}

func destroyDefinition() *ElementDefinition {
	return &ElementDefinition{
		Name: destroyElement,
		Input: InputConfig{Type: InputHidden, Attrs: Attrs{
			{Key: "autocomplete", Value: "off"},
			{Key: "value", Value: "0"},
		}},
		Output:   OutputConfig{Type: OutputBool},
		Label:    LabelConfig{Display: false},
		Render:   RenderRule{Func: renderWhenPersistedOrSubmitted},
		Tags:     map[string]any{},
		Detached: true,
		optional: true,
	}
}

// renderWhenPersistedOrSubmitted shows bookkeeping fields for stored records
// and for params that carried them back.
func renderWhenPersistedOrSubmitted(e *Element) (bool, error) {
	if model.IsPersisted(e.source) {
		return true, nil
	}
	if inst, ok := e.source.(*params.Instance); ok {
		return inst.Has(e.Name()) && inst.Get(e.Name()) != nil, nil
	}
	return false, nil
}

// inject adds convention fields to every nested level of root.
func (c Conventions) inject(root *SubformDefinition) {
	for _, node := range root.Nodes {
		switch def := node.(type) {
		case *SubformDefinition:
			c.injectSubform(def, false)
		case *CollectionDefinition:
			c.injectSubform(def.Row, true)
		}
	}
}

func (c Conventions) injectSubform(def *SubformDefinition, row bool) {
	if c.PrimaryKey {
		if _, ok := def.Node(primaryKeyElement); !ok {
			def.Nodes = append(def.Nodes, primaryKeyDefinition())
		}
	}
	if row && c.Destroy {
		if _, ok := def.Node(destroyElement); !ok {
			def.Nodes = append(def.Nodes, destroyDefinition())
		}
	}
	c.inject(def)
}
