package form

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-actionform/pkg/model"
	"github.com/goliatone/go-actionform/pkg/params"
	"github.com/goliatone/go-actionform/pkg/visibility"
	"github.com/goliatone/go-actionform/pkg/visibility/expr"
)

// InstanceOption configures Definition.Instantiate.
type InstanceOption func(*instanceConfig)

type instanceConfig struct {
	model     any
	params    *params.Instance
	host      Host
	scope     *string
	method    string
	action    string
	attrs     Attrs
	evaluator visibility.Evaluator
}

// WithModel binds a model: a model.Record, a map or a struct.
func WithModel(v any) InstanceOption {
	return func(c *instanceConfig) { c.model = v }
}

// WithParams binds submitted params. They take precedence over the model.
func WithParams(inst *params.Instance) InstanceOption {
	return func(c *instanceConfig) { c.params = inst }
}

// WithHost sets the last stop of predicate resolution.
func WithHost(h Host) InstanceOption {
	return func(c *instanceConfig) { c.host = h }
}

// WithScope overrides the HTML name prefix. An empty scope renders bare names.
func WithScope(scope string) InstanceOption {
	return func(c *instanceConfig) { c.scope = &scope }
}

// WithMethod overrides the HTTP method.
func WithMethod(method string) InstanceOption {
	return func(c *instanceConfig) { c.method = strings.ToLower(strings.TrimSpace(method)) }
}

// WithAction sets the form action.
func WithAction(action string) InstanceOption {
	return func(c *instanceConfig) { c.action = action }
}

// WithHTMLAttrs appends attributes to the <form> tag.
func WithHTMLAttrs(attrs ...Attr) InstanceOption {
	return func(c *instanceConfig) { c.attrs = append(c.attrs, attrs...) }
}

// WithEvaluator replaces the expression evaluator used by RenderWhen rules.
func WithEvaluator(e visibility.Evaluator) InstanceOption {
	return func(c *instanceConfig) { c.evaluator = e }
}

// Form is a definition bound to a model, params and host.
type Form struct {
	def       *Definition
	model     any
	record    model.Record
	params    *params.Instance
	host      Host
	scope     string
	method    string
	action    string
	attrs     Attrs
	evaluator visibility.Evaluator
	nodes     []Node

	schemaOnce sync.Once
	schema     *params.Schema
	schemaErr  error
}

// Instantiate builds the runtime tree. Unknown model attributes are returned
// as errors wrapping model.ErrUnknownAttribute.
func (d *Definition) Instantiate(opts ...InstanceOption) (*Form, error) {
	cfg := instanceConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	f := &Form{
		def:       d,
		model:     cfg.model,
		params:    cfg.params,
		host:      cfg.host,
		method:    d.settings.method,
		action:    d.settings.action,
		attrs:     d.settings.attrs.Clone(),
		evaluator: cfg.evaluator,
	}
	if cfg.method != "" {
		f.method = cfg.method
	}
	if cfg.action != "" {
		f.action = cfg.action
	}
	for _, attr := range cfg.attrs {
		f.attrs = f.attrs.With(attr.Key, attr.Value)
	}
	if f.evaluator == nil {
		f.evaluator = expr.New()
	}

	record, err := model.Bind(cfg.model)
	if err != nil {
		return nil, fmt.Errorf("form: %s: %w", d.name, err)
	}
	f.record = record

	switch {
	case cfg.scope != nil:
		f.scope = *cfg.scope
	case d.settings.scope != "":
		f.scope = d.settings.scope
	case cfg.model != nil:
		f.scope = model.ParamKey(model.ModelName(cfg.model))
	}

	var source model.Record = record
	if cfg.params != nil {
		source = cfg.params
	}
	nodes, err := f.buildNodes(d.root, f, f.scope, source, "", false)
	if err != nil {
		return nil, err
	}
	f.nodes = nodes
	return f, nil
}

func (f *Form) buildNodes(def *SubformDefinition, owner Node, scope string, source model.Record, subform string, template bool) ([]Node, error) {
	conv := f.def.settings.conventions
	nodes := make([]Node, 0, len(def.Nodes))
	for _, node := range def.Nodes {
		switch d := node.(type) {
		case *ElementDefinition:
			e, err := newElement(f, d, owner, scope, source, subform)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, e)

		case *SubformDefinition:
			value, err := f.nestedValue(source, d.Name)
			if err != nil {
				return nil, err
			}
			record, err := bindOrDefault(value, d, nil)
			if err != nil {
				return nil, fmt.Errorf("form: subform %s: %w", d.Name, err)
			}
			sub, err := f.buildSubform(d, owner, nestedScope(scope, conv.NestedKey(d.Name), ""), "", record, template)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, sub)

		case *CollectionDefinition:
			c, err := f.buildCollection(d, owner, scope, source)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, c)
		}
	}
	return nodes, nil
}

func (f *Form) buildSubform(def *SubformDefinition, owner Node, scope, index string, source model.Record, template bool) (*Subform, error) {
	sub := &Subform{
		def:      def,
		form:     f,
		owner:    owner,
		scope:    scope,
		index:    index,
		template: template,
		source:   source,
	}
	nodes, err := f.buildNodes(def, sub, scope, source, def.Name, template)
	if err != nil {
		return nil, err
	}
	sub.nodes = nodes
	return sub, nil
}

// buildCollection builds one row per bound item and the template row. Rows
// are owned by the collection's owner, like any other node it built.
func (f *Form) buildCollection(def *CollectionDefinition, owner Node, scope string, source model.Record) (*Collection, error) {
	key := f.def.settings.conventions.NestedKey(def.Name)
	c := &Collection{def: def, form: f, owner: owner, scope: scope}

	value, err := f.nestedValue(source, def.Name)
	if err != nil {
		return nil, err
	}
	items, err := model.List(value)
	if err != nil {
		return nil, fmt.Errorf("form: collection %s: %w", def.Name, err)
	}
	for i, item := range items {
		record, err := bindOrDefault(item, def.Row, nil)
		if err != nil {
			return nil, fmt.Errorf("form: collection %s[%d]: %w", def.Name, i, err)
		}
		index := strconv.Itoa(i)
		row, err := f.buildSubform(def.Row, owner, nestedScope(scope, key, index), index, record, false)
		if err != nil {
			return nil, err
		}
		c.rows = append(c.rows, row)
	}

	var seed map[string]any
	if len(def.Default) > 0 {
		seed = def.Default[0]
	}
	template, err := f.buildSubform(def.Row, owner, nestedScope(scope, key, TemplateIndex), TemplateIndex, model.Defaults(defaultValues(def.Row, seed)), true)
	if err != nil {
		return nil, err
	}
	c.template = template
	return c, nil
}

// nestedValue reads a nested node's value: "<name><suffix>" from params,
// "<name>" from models.
func (f *Form) nestedValue(source model.Record, name string) (any, error) {
	if source == nil {
		return nil, nil
	}
	if inst, ok := source.(*params.Instance); ok {
		return readAttr(inst, f.def.settings.conventions.NestedKey(name), true)
	}
	value, err := source.Attr(name)
	if err != nil {
		return nil, fmt.Errorf("form: nested %s: %w", name, err)
	}
	return value, nil
}

func bindOrDefault(value any, def *SubformDefinition, seed map[string]any) (model.Record, error) {
	record, err := model.Bind(value)
	if err != nil {
		return nil, err
	}
	if record != nil {
		return record, nil
	}
	if seed == nil && def.HasDefault {
		seed = def.Default
	}
	return model.Defaults(defaultValues(def, seed)), nil
}

// defaultValues merges element output defaults with seed.
func defaultValues(def *SubformDefinition, seed map[string]any) map[string]any {
	out := make(map[string]any, len(def.Nodes))
	for _, node := range def.Nodes {
		if e, ok := node.(*ElementDefinition); ok && e.Output.HasDefault {
			out[e.Name] = e.Output.Default
		}
	}
	for k, v := range seed {
		out[k] = v
	}
	return out
}

func nestedScope(scope, key, index string) string {
	name := key
	if scope != "" {
		name = scope + "[" + key + "]"
	}
	if index != "" {
		name += "[" + index + "]"
	}
	return name
}

// evaluate applies the predicate and expression parts of rule.
func (f *Form) evaluate(rule RenderRule, n Node, path string, values func() map[string]any) (bool, error) {
	if rule.NodeFunc != nil {
		ok, err := rule.NodeFunc(n)
		if err != nil || !ok {
			return false, err
		}
	}
	if rule.Predicate != "" {
		fn, err := n.Resolve(rule.Predicate)
		if err != nil {
			return false, err
		}
		ok, err := fn()
		if err != nil || !ok {
			return false, err
		}
	}
	if rule.Expression != "" {
		ctx := visibility.Context{
			Values: values(),
			Predicates: func(name string) (bool, error) {
				fn, err := n.Resolve(name)
				if err != nil {
					return false, err
				}
				return fn()
			},
		}
		ok, err := f.evaluator.Eval(path, rule.Expression, ctx)
		if err != nil {
			return false, fmt.Errorf("form: render rule for %s: %w", path, err)
		}
		return ok, nil
	}
	return true, nil
}

func (f *Form) evaluateNode(rule RenderRule, n Node, path string) (bool, error) {
	if rule.empty() {
		return true, nil
	}
	return f.evaluate(rule, n, path, func() map[string]any {
		values := map[string]any{}
		if c, ok := n.(Container); ok {
			for _, child := range c.Nodes() {
				if e, ok := child.(*Element); ok {
					values[e.Name()] = e.Value()
				}
			}
		}
		return values
	})
}

// NodeName implements Node.
func (f *Form) NodeName() string { return f.def.name }

// Owner implements Node; the form is the root.
func (f *Form) Owner() Node { return nil }

// Resolve implements Node: form predicates first, then the host.
func (f *Form) Resolve(name string) (params.Predicate, error) { return resolve(f, name) }

func (f *Form) ownPredicate(key string) (params.Predicate, bool) {
	if fn, ok := bindPredicates(f, f.def.root.Predicates, key); ok {
		return fn, true
	}
	if f.host != nil {
		return f.host.Predicate(key)
	}
	return nil, false
}

// Nodes implements Container.
func (f *Form) Nodes() []Node { return f.nodes }

// Definition returns the definition the form was built from.
func (f *Form) Definition() *Definition { return f.def }

// Scope returns the HTML name prefix.
func (f *Form) Scope() string { return f.scope }

// Model returns the bound model as supplied.
func (f *Form) Model() any { return f.model }

// Record returns the bound model as a record.
func (f *Form) Record() model.Record { return f.record }

// Params returns bound params, if any.
func (f *Form) Params() *params.Instance { return f.params }

// Host returns the host.
func (f *Form) Host() Host { return f.host }

// Conventions returns the naming conventions.
func (f *Form) Conventions() Conventions { return f.def.settings.conventions }

// HTMLAttrs returns extra <form> attributes.
func (f *Form) HTMLAttrs() Attrs { return f.attrs.Clone() }

// Persisted reports whether the bound record is stored. Plain maps count as
// stored when they carry a non-nil id.
func (f *Form) Persisted() bool { return model.IsPersisted(f.record) }

// HTTPMethod returns the configured method, else "patch" for stored models
// and "post" otherwise.
func (f *Form) HTTPMethod() string {
	if f.method != "" {
		return f.method
	}
	if f.Persisted() {
		return "patch"
	}
	return "post"
}

// HTMLMethod returns the method attribute of the <form> tag: "get" or "post".
func (f *Form) HTMLMethod() string {
	if f.HTTPMethod() == "get" {
		return "get"
	}
	return "post"
}

// ResourceAction returns "search" without a model, "update" for stored
// models and "create" otherwise.
func (f *Form) ResourceAction() string {
	switch {
	case f.record == nil:
		return "search"
	case f.Persisted():
		return "update"
	default:
		return "create"
	}
}

// ModelName returns the bound model name, read from the record first and the
// raw model second.
func (f *Form) ModelName() string {
	if name := model.ModelName(f.record); name != "" {
		return name
	}
	return model.ModelName(f.model)
}

// SubmitValue returns the submit label, "Create Info" style by default.
func (f *Form) SubmitValue() string {
	if f.def.settings.submit != "" {
		return f.def.settings.submit
	}
	return strings.TrimSpace(Humanize(f.ResourceAction()) + " " + f.ModelName())
}

// Action returns the configured action, else pathFor(model) when given.
func (f *Form) Action(pathFor func(model any) string) string {
	if f.action != "" {
		return f.action
	}
	if pathFor != nil {
		return pathFor(f.model)
	}
	return ""
}

type fullMessager interface {
	FullMessages() []string
}

// FullMessages returns form-wide error messages from validated params, or
// from the model when it reports them.
func (f *Form) FullMessages() []string {
	if f.params != nil && f.params.Validated() {
		return f.params.Errors().FullMessages()
	}
	if m, ok := f.model.(fullMessager); ok {
		return m.FullMessages()
	}
	return nil
}

// ParamsSchema returns the schema for this instance. Under SchemaRendered it
// only covers fields that render; it is built once per form.
func (f *Form) ParamsSchema() (*params.Schema, error) {
	if f.def.settings.policy == SchemaDeclared {
		return f.def.ParamsSchema()
	}
	f.schemaOnce.Do(func() {
		f.schema, f.schemaErr = renderedSchema(f)
	})
	return f.schema, f.schemaErr
}

// ParamsFor applies this instance's schema to values. The form owns the result.
func (f *Form) ParamsFor(values map[string]any) (*params.Instance, error) {
	schema, err := f.ParamsSchema()
	if err != nil {
		return nil, err
	}
	inst := schema.New(values)
	inst.SetOwner(f)
	return inst, nil
}
