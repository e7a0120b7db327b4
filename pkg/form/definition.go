package form

import (
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-actionform/pkg/params"
)

// Definition is an immutable form declaration.
type Definition struct {
	name     string
	root     *SubformDefinition
	settings settings

	schemaOnce sync.Once
	schema     *params.Schema
	schemaErr  error
}

// New builds a definition named name. Conventions default to
// DefaultConventions.
func New(name string, fn func(*Builder)) (*Definition, error) {
	s := settings{conventions: DefaultConventions}
	return build(name, &SubformDefinition{Name: name}, s, fn)
}

// MustNew is New that panics on error.
func MustNew(name string, fn func(*Builder)) *Definition {
	def, err := New(name, fn)
	if err != nil {
		panic(err)
	}
	return def
}

func build(name string, root *SubformDefinition, s settings, fn func(*Builder)) (*Definition, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: form name is empty", ErrInvalidDefinition)
	}
	root.Name = name

	var errs []string
	if fn != nil {
		fn(newBuilder(root, &s, "", &errs))
	}
	errs = append(errs, validateTree("", root)...)
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s: %s", ErrInvalidDefinition, name, strings.Join(errs, "; "))
	}
	s.conventions.inject(root)
	s.attrs = s.attrs.Clone()
	return &Definition{name: name, root: root, settings: s}, nil
}

// Extend copies the definition and applies fn on the copy. Use the Redefine*
// builder methods to patch inherited nodes.
func (d *Definition) Extend(name string, fn func(*Builder)) (*Definition, error) {
	if name == "" {
		name = d.name
	}
	return build(name, d.root.clone(), d.settings, fn)
}

// Name returns the definition name.
func (d *Definition) Name() string { return d.name }

// Scope returns the default HTML name prefix.
func (d *Definition) Scope() string { return d.settings.scope }

// Conventions returns the naming conventions.
func (d *Definition) Conventions() Conventions { return d.settings.conventions }

// Policy returns the schema policy.
func (d *Definition) Policy() SchemaPolicy { return d.settings.policy }

// Nodes returns the top-level declarations.
func (d *Definition) Nodes() []NodeDefinition {
	return append([]NodeDefinition(nil), d.root.Nodes...)
}

// Node returns the top-level declaration named name.
func (d *Definition) Node(name string) (NodeDefinition, bool) {
	return d.root.Node(name)
}

// ParamsSchema returns the schema generated from every declared field. It is
// built once per definition.
func (d *Definition) ParamsSchema() (*params.Schema, error) {
	d.schemaOnce.Do(func() {
		d.schema, d.schemaErr = declaredSchema(d.name, d.root, d.settings.conventions)
	})
	return d.schema, d.schemaErr
}

// FromParams applies the generated schema to values and binds a form
// instance to the result without validating. The form becomes the owner of
// the params instance, so conditional rules resolve predicates declared on
// the form and its host.
func (d *Definition) FromParams(values map[string]any, opts ...InstanceOption) (*params.Instance, *Form, error) {
	var schema *params.Schema
	if d.settings.policy == SchemaRendered {
		scratch, err := d.Instantiate(opts...)
		if err != nil {
			return nil, nil, err
		}
		if schema, err = scratch.ParamsSchema(); err != nil {
			return nil, nil, err
		}
	} else {
		var err error
		if schema, err = d.ParamsSchema(); err != nil {
			return nil, nil, err
		}
	}

	inst := schema.New(values)
	f, err := d.Instantiate(append(append([]InstanceOption(nil), opts...), WithParams(inst))...)
	if err != nil {
		return nil, nil, err
	}
	inst.SetOwner(f)
	return inst, f, nil
}
