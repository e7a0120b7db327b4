package form

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-actionform/pkg/model"
	"github.com/goliatone/go-actionform/pkg/params"
)

// Element is one field bound to a value source under a naming scope.
type Element struct {
	def     *ElementDefinition
	form    *Form
	owner   Node
	source  model.Record
	scope   string
	value   any
	tags    map[string]any
	subform string
}

func newElement(f *Form, def *ElementDefinition, owner Node, scope string, source model.Record, subform string) (*Element, error) {
	e := &Element{
		def:     def,
		form:    f,
		owner:   owner,
		source:  source,
		scope:   scope,
		subform: subform,
	}
	value, err := readAttr(source, def.Name, def.optional)
	if err != nil {
		return nil, fmt.Errorf("form: element %s: %w", e.HTMLName(), err)
	}
	e.value = value
	e.tags = e.buildTags()
	return e, nil
}

func readAttr(source model.Record, name string, optional bool) (any, error) {
	if source == nil {
		return nil, nil
	}
	value, err := source.Attr(name)
	if err == nil {
		return value, nil
	}
	if errors.Is(err, model.ErrUnknownAttribute) {
		if _, isParams := source.(*params.Instance); isParams || optional {
			return nil, nil
		}
	}
	return nil, err
}

func (e *Element) buildTags() map[string]any {
	tags := make(map[string]any, len(e.def.Tags)+5)
	for k, v := range e.def.Tags {
		tags[k] = v
	}
	tags["input"] = e.def.Input.Type
	tags["output"] = e.def.Output.Type
	if len(e.def.Options) > 0 {
		tags["options"] = true
	}
	tags["errors"] = len(e.Errors()) > 0
	if e.subform != "" {
		tags["subform"] = e.subform
	}
	return tags
}

// Name returns the declared name.
func (e *Element) Name() string { return e.def.Name }

// NodeName implements Node.
func (e *Element) NodeName() string { return e.def.Name }

// Owner implements Node.
func (e *Element) Owner() Node { return e.owner }

// Resolve implements Node.
func (e *Element) Resolve(name string) (params.Predicate, error) { return resolve(e, name) }

// Definition returns the declaration.
func (e *Element) Definition() *ElementDefinition { return e.def }

// Form returns the form the element belongs to.
func (e *Element) Form() *Form { return e.form }

// Record returns the value source the element reads from.
func (e *Element) Record() model.Record { return e.source }

// InputType returns the declared control type.
func (e *Element) InputType() InputType { return e.def.Input.Type }

// Options returns the declared choices.
func (e *Element) Options() []Option { return e.def.Options }

// Multiple reports whether several values may be selected.
func (e *Element) Multiple() bool { return e.def.Input.Multiple() }

// ChoiceGroup reports whether the element renders one control per option
// (radio buttons and checkbox groups).
func (e *Element) ChoiceGroup() bool {
	switch e.def.Input.Type {
	case InputRadio:
		return true
	case InputCheckbox:
		return len(e.def.Options) > 0
	}
	return false
}

// Detached reports whether the element ignores the bound value.
func (e *Element) Detached() bool { return e.def.Detached }

// HTMLName returns "scope[name]", or the bare name without scope.
func (e *Element) HTMLName() string {
	if e.scope == "" {
		return e.def.Name
	}
	return e.scope + "[" + e.def.Name + "]"
}

// HTMLID joins the scope path and the name with underscores.
func (e *Element) HTMLID() string {
	return scopeID(e.scope, e.def.Name)
}

func scopeID(scope, name string) string {
	parts := strings.FieldsFunc(scope, func(r rune) bool { return r == '[' || r == ']' })
	out := make([]string, 0, len(parts)+1)
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			out = append(out, part)
		}
	}
	if name != "" {
		out = append(out, name)
	}
	return strings.Join(out, "_")
}

// Value returns the bound value.
func (e *Element) Value() any { return e.value }

// HTMLValue returns the value attribute: "1"/"0" for checkboxes, the declared
// value for detached elements, "" for select and textarea, otherwise the
// bound value formatted for the control.
func (e *Element) HTMLValue() string {
	value, ok := e.htmlValue()
	if !ok || value == nil {
		return ""
	}
	return e.FormatValue(value)
}

func (e *Element) htmlValue() (any, bool) {
	switch {
	case e.def.Input.Type == InputCheckbox:
		if Truthy(e.value) {
			return "1", true
		}
		return "0", true
	case e.def.Detached:
		declared, _ := e.def.Input.Attrs.Get("value")
		return declared, true
	case !e.def.Input.Type.IsTag():
		return nil, false
	default:
		return e.FormatValue(e.value), true
	}
}

// Checked reports the checked state of a single checkbox.
func (e *Element) Checked() bool {
	return e.def.Input.Type == InputCheckbox && len(e.def.Options) == 0 && Truthy(e.value)
}

// Selected reports whether opt matches the bound value: membership for
// checkbox groups and multiple selects, equality otherwise.
func (e *Element) Selected(opt Option) bool {
	want := e.FormatValue(opt.Value)
	if e.Multiple() || (e.def.Input.Type == InputCheckbox && len(e.def.Options) > 0) {
		items, err := model.List(e.value)
		if err != nil {
			return false
		}
		for _, item := range items {
			if e.FormatValue(item) == want {
				return true
			}
		}
		return false
	}
	if e.value == nil {
		return false
	}
	return e.FormatValue(e.value) == want
}

// InputAttrs returns the control attributes: declared attributes first, then
// name, id, value, checked, disabled and readonly unless declared.
func (e *Element) InputAttrs() Attrs {
	attrs := Attrs{{Key: "type", Value: string(e.def.Input.Type)}}
	for _, attr := range e.def.Input.Attrs {
		attrs = attrs.With(attr.Key, attr.Value)
	}
	if !e.def.Input.Type.IsTag() {
		attrs = attrs.Without("type")
	}
	attrs = attrs.Default("name", e.HTMLName())
	attrs = attrs.Default("id", e.HTMLID())
	if value, ok := e.htmlValue(); ok {
		attrs = attrs.Default("value", value)
	}
	attrs = attrs.Default("checked", e.Checked())
	attrs = attrs.Default("disabled", e.def.Disabled)
	attrs = attrs.Default("readonly", e.def.Readonly)
	return attrs
}

// ShowLabel reports whether a label precedes the control.
func (e *Element) ShowLabel() bool {
	return e.def.Label.Display && !e.ChoiceGroup() && e.def.Input.Type != InputHidden
}

// LabelText returns the configured text or the humanised name.
func (e *Element) LabelText() string {
	if e.def.Label.Text != "" {
		return e.def.Label.Text
	}
	return Humanize(e.def.Name)
}

// LabelHTML returns configured label markup, if any.
func (e *Element) LabelHTML() string { return e.def.Label.HTML }

// LabelAttrs returns "for" followed by the declared label attributes.
func (e *Element) LabelAttrs() Attrs {
	attrs := Attrs{{Key: "for", Value: e.HTMLID()}}
	for _, attr := range e.def.Label.Attrs {
		attrs = attrs.With(attr.Key, attr.Value)
	}
	return attrs
}

// Errors returns messages the bound source reports for this element. Params
// report them once validated.
func (e *Element) Errors() []string { return model.MessagesFor(e.source, e.def.Name) }

// Tags returns the instance tags. The map is private to this element and may
// be edited; the "errors" tag is refreshed on every call.
func (e *Element) Tags() map[string]any {
	e.tags["errors"] = len(e.Errors()) > 0
	return e.tags
}

// ShouldRender evaluates the render rule.
func (e *Element) ShouldRender() (bool, error) {
	rule := e.def.Render
	if rule.empty() {
		return true, nil
	}
	if rule.Func != nil {
		ok, err := rule.Func(e)
		if err != nil || !ok {
			return false, err
		}
	}
	return e.form.evaluate(rule, e, e.HTMLID(), e.visibilityValues)
}

func (e *Element) visibilityValues() map[string]any {
	values := map[string]any{}
	if c, ok := e.owner.(Container); ok {
		for _, node := range c.Nodes() {
			if sibling, ok := node.(*Element); ok {
				values[sibling.Name()] = sibling.Value()
			}
		}
	}
	values["value"] = e.value
	return values
}

// FormatValue renders v the way the control expects it.
func (e *Element) FormatValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case time.Time:
		switch {
		case e.def.Output.Type == OutputDate || e.def.Input.Type == InputDate:
			return value.Format("2006-01-02")
		case e.def.Input.Type == InputDateTimeLocal:
			return value.Format("2006-01-02T15:04")
		case e.def.Input.Type == InputTime:
			return value.Format("15:04")
		default:
			return value.Format(time.RFC3339)
		}
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(value), 'f', -1, 32)
	case fmt.Stringer:
		return value.String()
	}
	return fmt.Sprint(v)
}

// Truthy interprets checkbox values: true, "1", "true", "on" and "yes" and
// non-zero numbers are checked.
func Truthy(v any) bool {
	switch value := v.(type) {
	case nil:
		return false
	case bool:
		return value
	case string:
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "on", "yes", "t", "y":
			return true
		}
		return false
	case int:
		return value != 0
	case int64:
		return value != 0
	case float64:
		return value != 0
	}
	return true
}
