package components

import (
	"fmt"
	"html"
	"strings"

	"github.com/goliatone/go-actionform/pkg/form"
)

// Theme partial keys that replace the built-in markup with a template.
const (
	PartialInput    = "forms.input"
	PartialCheckbox = "forms.checkbox"
	PartialRadio    = "forms.radio"
	PartialSelect   = "forms.select"
	PartialTextarea = "forms.textarea"
)

// NewDefaultRegistry constructs a registry pre-populated with the built-in
// controls used by the vanilla renderer.
func NewDefaultRegistry() *Registry {
	registry := New()

	registry.MustRegister(NameInput, Descriptor{
		Renderer: themed(PartialInput, renderInput),
	})
	registry.MustRegister(NameCheckbox, Descriptor{
		Renderer: themed(PartialCheckbox, renderCheckbox),
	})
	registry.MustRegister(NameRadio, Descriptor{
		Renderer: themed(PartialRadio, renderRadio),
	})
	registry.MustRegister(NameSelect, Descriptor{
		Renderer: themed(PartialSelect, renderSelect),
	})
	registry.MustRegister(NameTextarea, Descriptor{
		Renderer: themed(PartialTextarea, renderTextarea),
	})

	return registry
}

// themed renders through the theme partial when the theme names one and
// falls back to the built-in markup otherwise.
func themed(partialKey string, fallback Renderer) Renderer {
	return func(b *strings.Builder, e *form.Element, data ComponentData) error {
		if data.ThemePartials != nil {
			if name := strings.TrimSpace(data.ThemePartials[partialKey]); name != "" {
				return TemplateComponent(name)(b, e, data)
			}
		}
		return fallback(b, e, data)
	}
}

// TemplateComponent renders e through the named template (or inline template
// content). The template receives the element view built by View.
func TemplateComponent(templateName string) Renderer {
	return func(b *strings.Builder, e *form.Element, data ComponentData) error {
		if data.Template == nil {
			return fmt.Errorf("components: template renderer not configured for %q", templateName)
		}
		rendered, err := data.Template.Render(templateName, View(e, data))
		if err != nil {
			return fmt.Errorf("components: render template %q: %w", templateName, err)
		}
		b.WriteString(rendered)
		return nil
	}
}

// View flattens e into template data.
func View(e *form.Element, data ComponentData) map[string]any {
	options := make([]map[string]any, 0, len(e.Options()))
	for _, opt := range e.Options() {
		options = append(options, map[string]any{
			"value":    e.FormatValue(opt.Value),
			"label":    data.optionLabel(opt),
			"selected": e.Selected(opt),
		})
	}
	attrs := make(map[string]any, len(e.InputAttrs()))
	for _, attr := range e.InputAttrs() {
		attrs[attr.Key] = attr.Value
	}
	return map[string]any{
		"name":      e.Name(),
		"html_name": e.HTMLName(),
		"html_id":   e.HTMLID(),
		"type":      string(e.InputType()),
		"value":     e.HTMLValue(),
		"text":      e.FormatValue(e.Value()),
		"checked":   e.Checked(),
		"multiple":  e.Multiple(),
		"options":   options,
		"attrs":     attrs,
		"config":    data.Config,
	}
}

func renderInput(b *strings.Builder, e *form.Element, _ ComponentData) error {
	WriteInput(b, e.InputAttrs(), e.FormatValue)
	return nil
}

// renderCheckbox writes a hidden "0" fallback before a single checkbox so an
// unchecked box still submits. Checkbox groups post name[] per option.
func renderCheckbox(b *strings.Builder, e *form.Element, data ComponentData) error {
	if !e.ChoiceGroup() {
		WriteInput(b, form.Attrs{
			{Key: "name", Value: e.HTMLName()},
			{Key: "type", Value: "hidden"},
			{Key: "value", Value: "0"},
			{Key: "autocomplete", Value: "off"},
		}, nil)
		WriteInput(b, e.InputAttrs().With("type", "checkbox").With("value", "1"), e.FormatValue)
		return nil
	}

	base := e.InputAttrs()
	for _, opt := range e.Options() {
		value := e.FormatValue(opt.Value)
		id := e.HTMLID() + "_" + value
		attrs := base.
			With("value", value).
			With("id", id).
			With("name", e.HTMLName()+"[]").
			With("checked", e.Selected(opt))
		WriteInput(b, attrs, e.FormatValue)
		WriteElement(b, "label", form.Attrs{{Key: "for", Value: id}}, data.optionLabel(opt))
	}
	return nil
}

func renderRadio(b *strings.Builder, e *form.Element, data ComponentData) error {
	base := e.InputAttrs()
	for _, opt := range e.Options() {
		WriteElement(b, "label", form.Attrs{{Key: "for", Value: e.HTMLID()}}, data.optionLabel(opt))
		attrs := base.
			With("type", "radio").
			With("value", e.FormatValue(opt.Value)).
			With("checked", e.Selected(opt))
		WriteInput(b, attrs, e.FormatValue)
	}
	return nil
}

func renderSelect(b *strings.Builder, e *form.Element, data ComponentData) error {
	attrs := e.InputAttrs()
	if e.Multiple() {
		if name, ok := attrs.Get("name"); ok {
			if s, ok := name.(string); ok && !strings.HasSuffix(s, "[]") {
				attrs = attrs.With("name", s+"[]")
			}
		}
	}
	WriteOpenTag(b, "select", attrs, e.FormatValue)
	for _, opt := range e.Options() {
		WriteElement(b, "option", form.Attrs{
			{Key: "value", Value: e.FormatValue(opt.Value)},
			{Key: "selected", Value: e.Selected(opt)},
		}, data.optionLabel(opt))
	}
	WriteCloseTag(b, "select")
	return nil
}

func renderTextarea(b *strings.Builder, e *form.Element, _ ComponentData) error {
	WriteOpenTag(b, "textarea", e.InputAttrs(), e.FormatValue)
	b.WriteString(html.EscapeString(e.FormatValue(e.Value())))
	WriteCloseTag(b, "textarea")
	return nil
}
