package form

import (
	"fmt"

	"github.com/goliatone/go-actionform/pkg/params"
)

// selection lists the fields kept by a rendered schema. A nil selection keeps
// everything.
type selection struct {
	fields map[string]*selection
}

func newSelection() *selection {
	return &selection{fields: make(map[string]*selection)}
}

func (s *selection) child(name string) (*selection, bool) {
	if s == nil {
		return nil, true
	}
	child, ok := s.fields[name]
	return child, ok
}

func (s *selection) merge(other *selection) {
	for name, child := range other.fields {
		existing, ok := s.fields[name]
		switch {
		case !ok:
			s.fields[name] = child
		case existing != nil && child != nil:
			existing.merge(child)
		}
	}
}

func declaredSchema(name string, root *SubformDefinition, conv Conventions) (*params.Schema, error) {
	return schemaFor(name, root, conv, nil)
}

func renderedSchema(f *Form) (*params.Schema, error) {
	sel, err := selectionOf(f.nodes)
	if err != nil {
		return nil, fmt.Errorf("form: %s: rendered schema: %w", f.def.name, err)
	}
	return schemaFor(f.def.name, f.def.root, f.def.settings.conventions, sel)
}

func selectionOf(nodes []Node) (*selection, error) {
	sel := newSelection()
	for _, node := range nodes {
		switch n := node.(type) {
		case *Element:
			ok, err := n.ShouldRender()
			if err != nil {
				return nil, err
			}
			if ok {
				sel.fields[n.Name()] = nil
			}
		case *Subform:
			ok, err := n.ShouldRender()
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			child, err := selectionOf(n.Nodes())
			if err != nil {
				return nil, err
			}
			sel.fields[n.Name()] = child
		case *Collection:
			ok, err := n.ShouldRender()
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			union := newSelection()
			rows := append(append([]*Subform(nil), n.Rows()...), n.Template())
			for _, row := range rows {
				ok, err := row.ShouldRender()
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				child, err := selectionOf(row.Nodes())
				if err != nil {
					return nil, err
				}
				union.merge(child)
			}
			sel.fields[n.Name()] = union
		}
	}
	return sel, nil
}

// schemaFor mirrors def: one field per element, Has for subforms and Each
// for collections, keyed by the nested key. Params patches declared at the
// level run last, in order.
func schemaFor(name string, def *SubformDefinition, conv Conventions, sel *selection) (*params.Schema, error) {
	b := params.NewBuilder(name)
	for _, node := range def.Nodes {
		child, include := sel.child(node.DefinitionName())
		if !include {
			continue
		}
		switch d := node.(type) {
		case *ElementDefinition:
			kind, err := d.Output.Type.Kind()
			if err != nil {
				return nil, err
			}
			opts := []params.FieldOption{params.WithRules(d.Output.Rules...)}
			if kind == params.KindArray {
				of, err := d.Output.Of.Kind()
				if err != nil {
					return nil, err
				}
				opts = append(opts, params.ArrayOf(of))
			}
			if d.Output.HasDefault {
				opts = append(opts, params.WithDefault(d.Output.Default))
			}
			b.Field(d.Name, kind, opts...)

		case *SubformDefinition:
			key := conv.NestedKey(d.Name)
			nested, err := schemaFor(key, d, conv, child)
			if err != nil {
				return nil, err
			}
			var opts []params.FieldOption
			if d.HasDefault {
				opts = append(opts, params.WithDefault(d.Default))
			}
			b.Has(key, nested, opts...)

		case *CollectionDefinition:
			key := conv.NestedKey(d.Name)
			nested, err := schemaFor(key, d.Row, conv, child)
			if err != nil {
				return nil, err
			}
			var opts []params.FieldOption
			if d.HasDefault {
				opts = append(opts, params.WithDefault(d.Default))
			}
			b.Each(key, nested, opts...)
		}
	}

	schema, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("form: schema %s: %w", name, err)
	}
	for _, patch := range def.Params {
		if schema, err = schema.Extend(patch); err != nil {
			return nil, fmt.Errorf("form: schema %s: %w", name, err)
		}
	}
	return schema, nil
}
