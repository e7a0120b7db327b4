package form

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-actionform/pkg/params"
)

// ErrInvalidDefinition reports a declaration that cannot be built.
var ErrInvalidDefinition = errors.New("form: invalid definition")

// SchemaPolicy selects which fields end up in a generated params schema.
type SchemaPolicy int

const (
	// SchemaDeclared includes every declared field regardless of visibility.
	SchemaDeclared SchemaPolicy = iota
	// SchemaRendered includes only fields that render for the bound instance.
	SchemaRendered
)

// String implements fmt.Stringer.
func (p SchemaPolicy) String() string {
	if p == SchemaRendered {
		return "rendered"
	}
	return "declared"
}

type settings struct {
	scope       string
	conventions Conventions
	policy      SchemaPolicy
	method      string
	action      string
	submit      string
	attrs       Attrs
}

// Builder collects declarations for a form or one of its nested levels.
type Builder struct {
	def      *SubformDefinition
	settings *settings
	path     string
	errs     *[]string
}

func newBuilder(def *SubformDefinition, s *settings, path string, errs *[]string) *Builder {
	return &Builder{def: def, settings: s, path: path, errs: errs}
}

func (b *Builder) fail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if b.path != "" {
		msg = b.path + ": " + msg
	}
	*b.errs = append(*b.errs, msg)
}

func (b *Builder) root() bool {
	return b.path == ""
}

func (b *Builder) formOnly(method string) bool {
	if !b.root() {
		b.fail("%s is only valid on the form builder", method)
		return false
	}
	return true
}

// Scope sets the default HTML name prefix.
func (b *Builder) Scope(scope string) *Builder {
	if b.formOnly("Scope") {
		b.settings.scope = strings.TrimSpace(scope)
	}
	return b
}

// Conventions selects nested naming and injected fields.
func (b *Builder) Conventions(c Conventions) *Builder {
	if b.formOnly("Conventions") {
		b.settings.conventions = c
	}
	return b
}

// SchemaPolicy selects how ParamsSchema treats conditional fields.
func (b *Builder) SchemaPolicy(p SchemaPolicy) *Builder {
	if b.formOnly("SchemaPolicy") {
		b.settings.policy = p
	}
	return b
}

// Method overrides the HTTP method ("get", "post", "patch", ...).
func (b *Builder) Method(method string) *Builder {
	if b.formOnly("Method") {
		b.settings.method = strings.ToLower(strings.TrimSpace(method))
	}
	return b
}

// Action sets a fixed form action.
func (b *Builder) Action(action string) *Builder {
	if b.formOnly("Action") {
		b.settings.action = action
	}
	return b
}

// Submit overrides the submit button label.
func (b *Builder) Submit(label string) *Builder {
	if b.formOnly("Submit") {
		b.settings.submit = label
	}
	return b
}

// HTMLAttrs appends attributes to the <form> tag.
func (b *Builder) HTMLAttrs(attrs ...Attr) *Builder {
	if b.formOnly("HTMLAttrs") {
		for _, attr := range attrs {
			b.settings.attrs = b.settings.attrs.With(attr.Key, attr.Value)
		}
	}
	return b
}

// Predicate declares a named capability at this level. Nodes below resolve it
// before asking further up.
func (b *Builder) Predicate(name string, fn PredicateFunc) *Builder {
	key := predicateKey(name)
	if key == "" || fn == nil {
		b.fail("predicate %q: name and function are required", name)
		return b
	}
	if b.def.Predicates == nil {
		b.def.Predicates = make(map[string]PredicateFunc)
	}
	b.def.Predicates[key] = fn
	return b
}

// Params patches the schema generated for this level.
func (b *Builder) Params(fn func(*params.Builder)) *Builder {
	if fn != nil {
		b.def.Params = append(b.def.Params, fn)
	}
	return b
}

// RenderIf gates this subform or collection row on a predicate resolved from
// the level itself upward.
func (b *Builder) RenderIf(predicate string) *Builder {
	if b.root() {
		b.fail("RenderIf is only valid on nested builders")
		return b
	}
	b.def.Render.Predicate = predicate
	return b
}

// Element declares a leaf field.
func (b *Builder) Element(name string, fn func(*ElementBuilder)) *Builder {
	if !b.checkNew(name) {
		return b
	}
	def := &ElementDefinition{
		Name:  name,
		Label: LabelConfig{Display: true},
		Tags:  map[string]any{},
	}
	if fn != nil {
		fn(&ElementBuilder{def: def})
	}
	b.def.Nodes = append(b.def.Nodes, def)
	return b
}

// NestedOption customises a subform or collection declaration.
type NestedOption func(*nestedConfig)

type nestedConfig struct {
	subformDefault    map[string]any
	collectionDefault []map[string]any
	hasDefault        bool
	render            *RenderRule
}

// WithDefault sets the value used when nothing is bound: a map for subforms,
// a slice of maps for collections. The first collection row also seeds the
// template row.
func WithDefault(value any) NestedOption {
	return func(c *nestedConfig) {
		c.hasDefault = true
		switch v := value.(type) {
		case map[string]any:
			c.subformDefault = v
			c.collectionDefault = []map[string]any{v}
		case []map[string]any:
			c.collectionDefault = v
			if len(v) > 0 {
				c.subformDefault = v[0]
			}
		case []any:
			for _, item := range v {
				if row, ok := item.(map[string]any); ok {
					c.collectionDefault = append(c.collectionDefault, row)
				}
			}
			if c.collectionDefault == nil {
				c.collectionDefault = []map[string]any{}
			}
			if len(c.collectionDefault) > 0 {
				c.subformDefault = c.collectionDefault[0]
			}
		case nil:
			c.subformDefault = map[string]any{}
			c.collectionDefault = []map[string]any{}
		}
	}
}

// RenderIf gates a subform or collection on a predicate.
func RenderIf(predicate string) NestedOption {
	return func(c *nestedConfig) {
		c.render = &RenderRule{Predicate: predicate}
	}
}

// RenderIfFunc gates a subform or collection on fn.
func RenderIfFunc(fn func(n Node) (bool, error)) NestedOption {
	return func(c *nestedConfig) {
		c.render = &RenderRule{NodeFunc: fn}
	}
}

func applyNested(opts []NestedOption) nestedConfig {
	var cfg nestedConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Subform declares a nested object scoped under "<scope>[<name><suffix>]".
func (b *Builder) Subform(name string, fn func(*Builder), opts ...NestedOption) *Builder {
	if !b.checkNew(name) {
		return b
	}
	def := &SubformDefinition{Name: name}
	if fn != nil {
		fn(newBuilder(def, b.settings, b.child(name), b.errs))
	}
	applySubformOptions(def, applyNested(opts))
	b.def.Nodes = append(b.def.Nodes, def)
	return b
}

// Many declares a collection of subforms. fn declares the row.
func (b *Builder) Many(name string, fn func(*Builder), opts ...NestedOption) *Builder {
	if !b.checkNew(name) {
		return b
	}
	def := &CollectionDefinition{Name: name, Row: &SubformDefinition{Name: name}}
	if fn != nil {
		fn(newBuilder(def.Row, b.settings, b.child(name), b.errs))
	}
	applyCollectionOptions(def, applyNested(opts))
	b.def.Nodes = append(b.def.Nodes, def)
	return b
}

// RedefineElement patches an element declared earlier, usually in a parent
// definition being extended.
func (b *Builder) RedefineElement(name string, fn func(*ElementBuilder)) *Builder {
	node, ok := b.def.Node(name)
	def, isElement := node.(*ElementDefinition)
	if !ok || !isElement {
		b.fail("redefine element %q: no such element", name)
		return b
	}
	patched := def.cloneDefinition().(*ElementDefinition)
	if fn != nil {
		fn(&ElementBuilder{def: patched})
	}
	b.def.replace(patched)
	return b
}

// RedefineSubform patches a subform declared earlier.
func (b *Builder) RedefineSubform(name string, fn func(*Builder), opts ...NestedOption) *Builder {
	node, ok := b.def.Node(name)
	def, isSubform := node.(*SubformDefinition)
	if !ok || !isSubform {
		b.fail("redefine subform %q: no such subform", name)
		return b
	}
	patched := def.clone()
	if fn != nil {
		fn(newBuilder(patched, b.settings, b.child(name), b.errs))
	}
	applySubformOptions(patched, applyNested(opts))
	b.def.replace(patched)
	return b
}

// RedefineMany patches a collection declared earlier; fn patches its row.
func (b *Builder) RedefineMany(name string, fn func(*Builder), opts ...NestedOption) *Builder {
	node, ok := b.def.Node(name)
	def, isCollection := node.(*CollectionDefinition)
	if !ok || !isCollection {
		b.fail("redefine many %q: no such collection", name)
		return b
	}
	patched := def.cloneDefinition().(*CollectionDefinition)
	if fn != nil {
		fn(newBuilder(patched.Row, b.settings, b.child(name), b.errs))
	}
	applyCollectionOptions(patched, applyNested(opts))
	b.def.replace(patched)
	return b
}

func applySubformOptions(def *SubformDefinition, cfg nestedConfig) {
	if cfg.hasDefault {
		def.Default = cfg.subformDefault
		def.HasDefault = true
	}
	if cfg.render != nil {
		def.Render = *cfg.render
	}
}

func applyCollectionOptions(def *CollectionDefinition, cfg nestedConfig) {
	if cfg.hasDefault {
		def.Default = cfg.collectionDefault
		def.HasDefault = true
	}
	if cfg.render != nil {
		def.Render = *cfg.render
	}
}

func (b *Builder) child(name string) string {
	if b.path == "" {
		return name
	}
	return b.path + "." + name
}

func (b *Builder) checkNew(name string) bool {
	if strings.TrimSpace(name) == "" {
		b.fail("node name is empty")
		return false
	}
	if _, exists := b.def.Node(name); exists {
		b.fail("node %q is declared twice", name)
		return false
	}
	return true
}

// ElementBuilder configures one element.
type ElementBuilder struct {
	def *ElementDefinition
}

// Input sets the control type and its declared attributes.
func (e *ElementBuilder) Input(t InputType, attrs ...Attr) *ElementBuilder {
	e.def.Input = InputConfig{Type: t, Attrs: Attrs(attrs).Clone()}
	return e
}

// OutputOption customises the output configuration.
type OutputOption func(*OutputConfig)

// Of sets the element type of array outputs.
func Of(t OutputType) OutputOption {
	return func(c *OutputConfig) { c.Of = t }
}

// Default sets the value used when the key is not submitted. It also seeds
// template rows.
func Default(value any) OutputOption {
	return func(c *OutputConfig) {
		c.Default = value
		c.HasDefault = true
	}
}

// Validates appends params rules.
func Validates(rules ...params.Rule) OutputOption {
	return func(c *OutputConfig) { c.Rules = append(c.Rules, rules...) }
}

// Required is shorthand for Validates(params.Presence(opts...)).
func Required(opts ...params.RuleOption) OutputOption {
	return Validates(params.Presence(opts...))
}

// Output sets the generated field type. Redefining an element's output
// replaces the earlier configuration.
func (e *ElementBuilder) Output(t OutputType, opts ...OutputOption) *ElementBuilder {
	cfg := OutputConfig{Type: t}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	e.def.Output = cfg
	return e
}

// Label sets the label text (empty keeps the humanised name) and attributes.
func (e *ElementBuilder) Label(text string, attrs ...Attr) *ElementBuilder {
	e.def.Label = LabelConfig{Text: text, Display: true, Attrs: Attrs(attrs).Clone()}
	return e
}

// LabelHTML sets label markup. Renderers sanitise it.
func (e *ElementBuilder) LabelHTML(html string, attrs ...Attr) *ElementBuilder {
	e.def.Label = LabelConfig{HTML: html, Display: true, Attrs: Attrs(attrs).Clone()}
	return e
}

// HideLabel suppresses the label.
func (e *ElementBuilder) HideLabel() *ElementBuilder {
	e.def.Label.Display = false
	return e
}

// Options sets the choices of radio, checkbox group and select elements.
func (e *ElementBuilder) Options(options ...Option) *ElementBuilder {
	e.def.Options = append([]Option(nil), options...)
	return e
}

// Tags merges custom tags. Automatic tags (input, output, options, errors,
// subform) always win over custom ones.
func (e *ElementBuilder) Tags(tags map[string]any) *ElementBuilder {
	if e.def.Tags == nil {
		e.def.Tags = make(map[string]any, len(tags))
	}
	for k, v := range tags {
		e.def.Tags[k] = v
	}
	return e
}

// RenderIf gates rendering on a predicate resolved through the owner chain.
func (e *ElementBuilder) RenderIf(predicate string) *ElementBuilder {
	e.def.Render.Predicate = predicate
	return e
}

// RenderWhen gates rendering on a visibility expression.
func (e *ElementBuilder) RenderWhen(expression string) *ElementBuilder {
	e.def.Render.Expression = expression
	return e
}

// RenderFunc gates rendering on fn.
func (e *ElementBuilder) RenderFunc(fn RenderFunc) *ElementBuilder {
	e.def.Render.Func = fn
	return e
}

// Detached makes the element render its declared value instead of the bound
// one.
func (e *ElementBuilder) Detached() *ElementBuilder {
	e.def.Detached = true
	return e
}

// Disabled renders the control disabled.
func (e *ElementBuilder) Disabled() *ElementBuilder {
	e.def.Disabled = true
	return e
}

// Readonly renders the control read-only.
func (e *ElementBuilder) Readonly() *ElementBuilder {
	e.def.Readonly = true
	return e
}

func validateElement(path string, def *ElementDefinition) []string {
	var errs []string
	where := def.Name
	if path != "" {
		where = path + "." + def.Name
	}
	if def.Input.Type == "" {
		errs = append(errs, fmt.Sprintf("element %q: input type is required", where))
	} else if !def.Input.Type.Valid() {
		errs = append(errs, fmt.Sprintf("element %q: unknown input type %q", where, def.Input.Type))
	}
	if (def.Input.Type == InputRadio || def.Input.Type == InputSelect) && len(def.Options) == 0 {
		errs = append(errs, fmt.Sprintf("element %q: %s input requires options", where, def.Input.Type))
	}
	if def.Output.Type == "" {
		def.Output.Type = OutputString
	}
	if _, err := def.Output.Type.Kind(); err != nil {
		errs = append(errs, fmt.Sprintf("element %q: %v", where, err))
	}
	if def.Output.Type == OutputArray {
		if def.Output.Of == "" {
			def.Output.Of = OutputString
		}
		if kind, err := def.Output.Of.Kind(); err != nil {
			errs = append(errs, fmt.Sprintf("element %q: %v", where, err))
		} else if kind == params.KindArray {
			errs = append(errs, fmt.Sprintf("element %q: array items must be scalar, got %q", where, def.Output.Of))
		}
	}
	return errs
}

func validateTree(path string, def *SubformDefinition) []string {
	var errs []string
	for _, node := range def.Nodes {
		switch n := node.(type) {
		case *ElementDefinition:
			errs = append(errs, validateElement(path, n)...)
		case *SubformDefinition:
			errs = append(errs, validateTree(joinPath(path, n.Name), n)...)
		case *CollectionDefinition:
			errs = append(errs, validateTree(joinPath(path, n.Name), n.Row)...)
		}
	}
	return errs
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func predicateKey(name string) string {
	return strings.TrimSuffix(strings.TrimSpace(name), "?")
}
