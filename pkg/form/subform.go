package form

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-actionform/pkg/model"
	"github.com/goliatone/go-actionform/pkg/params"
)

// TemplateIndex replaces the row index inside collection templates. Client
// code swaps it for a unique token when a row is added.
const TemplateIndex = "NEW_RECORD"

// Subform is one nested object, or one row of a collection.
type Subform struct {
	def      *SubformDefinition
	form     *Form
	owner    Node
	scope    string
	index    string
	template bool
	source   model.Record
	nodes    []Node
}

// Name returns the declared name.
func (s *Subform) Name() string { return s.def.Name }

// NodeName implements Node.
func (s *Subform) NodeName() string { return s.def.Name }

// Owner implements Node.
func (s *Subform) Owner() Node { return s.owner }

// Resolve implements Node.
func (s *Subform) Resolve(name string) (params.Predicate, error) { return resolve(s, name) }

func (s *Subform) ownPredicate(key string) (params.Predicate, bool) {
	return bindPredicates(s, s.def.Predicates, key)
}

// Nodes implements Container.
func (s *Subform) Nodes() []Node { return s.nodes }

// Definition returns the declaration.
func (s *Subform) Definition() *SubformDefinition { return s.def }

// Scope returns the HTML name prefix of the children.
func (s *Subform) Scope() string { return s.scope }

// Record returns the bound value source.
func (s *Subform) Record() model.Record { return s.source }

// Persisted reports whether the bound record is stored.
func (s *Subform) Persisted() bool { return model.IsPersisted(s.source) }

// Index returns the row index of collection rows.
func (s *Subform) Index() (int, bool) {
	if s.index == "" || s.template {
		return 0, false
	}
	n, err := strconv.Atoi(s.index)
	return n, err == nil
}

// IndexToken returns the raw index segment: a number, TemplateIndex, or "".
func (s *Subform) IndexToken() string { return s.index }

// IsTemplate reports whether the subform is a collection template row.
func (s *Subform) IsTemplate() bool { return s.template }

// HTMLID returns "name_index" for rows and the name for single subforms.
func (s *Subform) HTMLID() string {
	if s.index == "" {
		return s.def.Name
	}
	return s.def.Name + "_" + s.index
}

// HTMLClass returns "name_subform", or "new_name" for records that are not
// stored yet when primary keys are injected.
func (s *Subform) HTMLClass() string {
	if s.form.def.settings.conventions.PrimaryKey && !s.Persisted() {
		return "new_" + s.def.Name
	}
	return s.def.Name + "_subform"
}

// ShouldRender evaluates the render rule.
func (s *Subform) ShouldRender() (bool, error) {
	return s.form.evaluateNode(s.def.Render, s, scopeID(s.scope, ""))
}

// Collection is an ordered list of subform rows plus one template row.
type Collection struct {
	def      *CollectionDefinition
	form     *Form
	owner    Node
	scope    string
	rows     []*Subform
	template *Subform
}

// Name returns the declared name.
func (c *Collection) Name() string { return c.def.Name }

// NodeName implements Node.
func (c *Collection) NodeName() string { return c.def.Name }

// Owner implements Node.
func (c *Collection) Owner() Node { return c.owner }

// Resolve implements Node.
func (c *Collection) Resolve(name string) (params.Predicate, error) { return resolve(c, name) }

// Nodes implements Container. The template row is not included.
func (c *Collection) Nodes() []Node {
	out := make([]Node, len(c.rows))
	for i, row := range c.rows {
		out[i] = row
	}
	return out
}

// Definition returns the declaration.
func (c *Collection) Definition() *CollectionDefinition { return c.def }

// Rows returns the bound rows, indexed 0..n-1.
func (c *Collection) Rows() []*Subform { return c.rows }

// Len returns the number of bound rows.
func (c *Collection) Len() int { return len(c.rows) }

// Template returns the template row.
func (c *Collection) Template() *Subform { return c.template }

// TemplateHTMLID returns the id of the <template> tag.
func (c *Collection) TemplateHTMLID() string { return c.def.Name + "_template" }

// NewRowClass is the class wrapping rows added on the client.
func (c *Collection) NewRowClass() string { return "new_" + c.def.Name }

// ShouldRender evaluates the render rule.
func (c *Collection) ShouldRender() (bool, error) {
	return c.form.evaluateNode(c.def.Render, c, scopeID(c.scope, c.def.Name))
}

// AddScript returns the script that inserts a copy of the template row.
func (c *Collection) AddScript() string {
	return strings.ReplaceAll(addRowScript, "{{template_id}}", c.TemplateHTMLID())
}

// RemoveScript returns the script that removes new rows and flags stored rows
// for destruction.
func (c *Collection) RemoveScript() string {
	return strings.ReplaceAll(removeRowScript, "{{name}}", c.def.Name)
}

const addRowScript = `function actionFormAddSubform(event) {
  event.preventDefault()
  var template = document.querySelector("#{{template_id}}")
  const content = template.innerHTML.replace(/` + TemplateIndex + `/g, new Date().getTime().toString())
  var beforeElement = event.target.closest(event.target.dataset.insertBeforeSelector)
  if (beforeElement) {
    beforeElement.insertAdjacentHTML("beforebegin", content)
  } else {
    event.target.parentElement.insertAdjacentHTML("beforebegin", content)
  }
}
`

const removeRowScript = `function actionFormRemoveSubform(event) {
  event.preventDefault()
  var subform = event.target.closest(".new_{{name}}")
  if (subform) { subform.remove() }
  var subform = event.target.closest(".{{name}}_subform")
  if (subform) {
    subform.style.display = "none"
    var input = subform.querySelector("input[name*='_destroy']")
    if (input) { input.value = "1" }
  }
}
`
