package vanilla

import (
	"fmt"
	"html"
	"maps"
	"strings"

	"github.com/goliatone/go-actionform/pkg/form"
	"github.com/goliatone/go-actionform/pkg/model"
	"github.com/goliatone/go-actionform/pkg/render"
	"github.com/goliatone/go-actionform/pkg/renderers/vanilla/components"
)

type renderState struct {
	renderer *Renderer
	form     *form.Form
	options  render.RenderOptions
	mapping  render.ErrorMapping
	data     components.ComponentData
	wrapper  string

	used []string
	seen map[string]struct{}
}

func newRenderState(r *Renderer, f *form.Form, options render.RenderOptions) *renderState {
	s := &renderState{
		renderer: r,
		form:     f,
		options:  options,
		mapping:  render.MapErrorPayload(f, options.Errors),
		wrapper:  partialOr(options, PartialElementWrapper, r.elementWrapper),
		seen:     make(map[string]struct{}),
	}
	s.data = components.ComponentData{
		Template:    r.templates,
		OptionLabel: func(opt form.Option) string { return render.OptionLabel(opt, options) },
	}
	if options.Theme != nil {
		s.data.ThemePartials = options.Theme.Partials
	}
	return s
}

func (s *renderState) renderForm() (string, error) {
	var b strings.Builder
	s.writeErrorSummary(&b)

	attrs := form.Attrs{
		{Key: "method", Value: s.form.HTMLMethod()},
		{Key: "action", Value: render.Action(s.form, s.options.Helpers)},
		{Key: "accept-charset", Value: "UTF-8"},
	}
	for _, attr := range s.form.HTMLAttrs() {
		attrs = attrs.With(attr.Key, attr.Value)
	}
	if class := chromeClass(s.options.Theme, ClassForm); class != "" {
		attrs = attrs.Default("class", class)
	}
	components.WriteOpenTag(&b, "form", attrs, nil)

	for _, field := range render.ChromeFields(s.form, s.options.Helpers) {
		writeHidden(&b, field)
	}
	for _, field := range render.SortedHiddenFields(s.options.HiddenFields) {
		writeHidden(&b, field)
	}

	if err := s.writeNodes(&b, s.form.Nodes()); err != nil {
		return "", err
	}

	submit := form.Attrs{
		{Key: "name", Value: render.SubmitFieldName},
		{Key: "type", Value: "submit"},
		{Key: "value", Value: render.SubmitText(s.form, s.options)},
	}
	if class := chromeClass(s.options.Theme, ClassSubmit); class != "" {
		submit = submit.With("class", class)
	}
	components.WriteInput(&b, submit, nil)
	components.WriteCloseTag(&b, "form")
	return b.String(), nil
}

func writeHidden(b *strings.Builder, field render.HiddenField) {
	attrs := form.Attrs{
		{Key: "name", Value: field.Name},
		{Key: "type", Value: "hidden"},
		{Key: "value", Value: field.Value},
	}
	attrs = append(attrs, field.Attrs...)
	components.WriteInput(b, attrs, nil)
}

// writeErrorSummary lists form-wide messages above the form:
// "<h2>2 errors prohibited this info from being saved:</h2><ul>...</ul>".
func (s *renderState) writeErrorSummary(b *strings.Builder) {
	messages := render.ErrorSummary(s.form, s.options, s.mapping)
	if len(messages) == 0 {
		return
	}
	class := chromeClass(s.options.Theme, ClassErrorSummary)
	if class != "" {
		components.WriteOpenTag(b, "div", form.Attrs{{Key: "class", Value: class}}, nil)
	}
	heading := fmt.Sprintf("%s prohibited this %s from being saved:", pluralize(len(messages), "error"), s.humanModelName())
	components.WriteElement(b, "h2", nil, heading)
	b.WriteString("<ul>")
	for _, msg := range messages {
		components.WriteElement(b, "li", nil, msg)
	}
	b.WriteString("</ul>")
	if class != "" {
		components.WriteCloseTag(b, "div")
	}
}

func (s *renderState) humanModelName() string {
	name := s.form.ModelName()
	if name == "" {
		name = s.form.Definition().Name()
	}
	return strings.ToLower(strings.ReplaceAll(model.SnakeCase(name), "_", " "))
}

func pluralize(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func (s *renderState) writeNodes(b *strings.Builder, nodes []form.Node) error {
	for _, node := range nodes {
		var err error
		switch n := node.(type) {
		case *form.Element:
			err = s.writeElement(b, n)
		case *form.Subform:
			err = s.writeSubform(b, n)
		case *form.Collection:
			err = s.writeCollection(b, n)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *renderState) writeSubform(b *strings.Builder, sub *form.Subform) error {
	ok, err := sub.ShouldRender()
	if err != nil {
		return fmt.Errorf("vanilla renderer: subform %q: %w", sub.Name(), err)
	}
	if !ok || !s.options.Subset.AllowsNode(sub) {
		return nil
	}
	return s.writeNodes(b, sub.Nodes())
}

// writeCollection emits the remove and add scripts, one div per row and the
// template row the add script clones.
func (s *renderState) writeCollection(b *strings.Builder, c *form.Collection) error {
	ok, err := c.ShouldRender()
	if err != nil {
		return fmt.Errorf("vanilla renderer: collection %q: %w", c.Name(), err)
	}
	if !ok || !s.options.Subset.AllowsNode(c) {
		return nil
	}

	script := form.Attrs{{Key: "type", Value: "text/javascript"}}
	components.WriteOpenTag(b, "script", script, nil)
	b.WriteString(c.RemoveScript())
	components.WriteCloseTag(b, "script")
	components.WriteOpenTag(b, "script", script, nil)
	b.WriteString(c.AddScript())
	components.WriteCloseTag(b, "script")

	for _, row := range c.Rows() {
		ok, err := row.ShouldRender()
		if err != nil {
			return fmt.Errorf("vanilla renderer: row %q: %w", row.HTMLID(), err)
		}
		if !ok {
			continue
		}
		components.WriteOpenTag(b, "div", form.Attrs{
			{Key: "id", Value: row.HTMLID()},
			{Key: "class", Value: row.HTMLClass()},
		}, nil)
		if err := s.writeNodes(b, row.Nodes()); err != nil {
			return err
		}
		components.WriteCloseTag(b, "div")
	}

	if tpl := c.Template(); tpl != nil {
		components.WriteOpenTag(b, "template", form.Attrs{{Key: "id", Value: c.TemplateHTMLID()}}, nil)
		components.WriteOpenTag(b, "div", form.Attrs{{Key: "class", Value: c.NewRowClass()}}, nil)
		if err := s.writeNodes(b, tpl.Nodes()); err != nil {
			return err
		}
		components.WriteCloseTag(b, "div")
		components.WriteCloseTag(b, "template")
	}
	return nil
}

func (s *renderState) writeElement(b *strings.Builder, e *form.Element) error {
	ok, err := e.ShouldRender()
	if err != nil {
		return fmt.Errorf("vanilla renderer: element %q: %w", e.HTMLName(), err)
	}
	if !ok || !s.options.Subset.Allows(e) {
		return nil
	}

	name := components.Resolve(e)
	descriptor, ok := s.renderer.registry.Descriptor(name)
	if !ok {
		return fmt.Errorf("vanilla renderer: component %q not registered for %q", name, e.HTMLName())
	}
	s.markUsed(name)

	data := s.data
	data.Config = e.Tags()

	var label strings.Builder
	if e.ShowLabel() {
		s.writeLabel(&label, e)
	}
	var control strings.Builder
	if err := descriptor.Renderer(&control, e, data); err != nil {
		return fmt.Errorf("vanilla renderer: render %q: %w", e.HTMLName(), err)
	}
	messages := render.ElementErrors(e, s.mapping)

	var out strings.Builder
	out.WriteString(label.String())
	out.WriteString(control.String())
	s.writeFieldErrors(&out, e, messages)

	if s.wrapper == "" || e.InputType() == form.InputHidden {
		b.WriteString(out.String())
		return nil
	}
	view := render.TemplateHelpers(s.options)
	maps.Copy(view, map[string]any{
		"markup":      out.String(),
		"label":       label.String(),
		"control":     control.String(),
		"errors":      messages,
		"has_errors":  len(messages) > 0,
		"name":        e.Name(),
		"html_name":   e.HTMLName(),
		"html_id":     e.HTMLID(),
		"type":        string(e.InputType()),
		"component":   name,
		"group_class": chromeClass(s.options.Theme, ClassGroup),
		"config":      data.Config,
	})
	wrapped, err := s.renderer.templates.Render(s.wrapper, view)
	if err != nil {
		return fmt.Errorf("vanilla renderer: wrap %q: %w", e.HTMLName(), err)
	}
	b.WriteString(wrapped)
	return nil
}

func (s *renderState) writeLabel(b *strings.Builder, e *form.Element) {
	components.WriteOpenTag(b, "label", e.LabelAttrs(), e.FormatValue)
	if raw := e.LabelHTML(); raw != "" {
		b.WriteString(sanitizeLabelMarkup(raw))
	} else {
		b.WriteString(html.EscapeString(render.LabelText(e, s.options)))
	}
	components.WriteCloseTag(b, "label")
}

// writeFieldErrors renders <ul class="field-errors" id="<id>_errors">.
func (s *renderState) writeFieldErrors(b *strings.Builder, e *form.Element, messages []string) {
	if len(messages) == 0 {
		return
	}
	components.WriteOpenTag(b, "ul", form.Attrs{
		{Key: "class", Value: chromeClass(s.options.Theme, ClassFieldErrors)},
		{Key: "id", Value: e.HTMLID() + "_errors"},
	}, nil)
	for _, msg := range messages {
		components.WriteElement(b, "li", nil, msg)
	}
	components.WriteCloseTag(b, "ul")
}

func (s *renderState) markUsed(name string) {
	if _, ok := s.seen[name]; ok {
		return
	}
	s.seen[name] = struct{}{}
	s.used = append(s.used, name)
}

// pageData is the form wrapper context.
func (s *renderState) pageData(markup string) map[string]any {
	styles, scripts := s.renderer.registry.Assets(s.used)
	stylesheets := append(append([]string(nil), s.renderer.stylesheets...), styles...)

	scriptViews := make([]map[string]any, 0, len(scripts))
	for _, script := range scripts {
		scriptViews = append(scriptViews, map[string]any{
			"src":    script.Src,
			"inline": script.Inline,
			"module": script.Module,
			"defer":  script.Defer,
		})
	}

	data := map[string]any{
		"form":        markup,
		"title":       form.Humanize(s.form.Definition().Name()),
		"locale":      s.options.Locale,
		"stylesheets": stylesheets,
		"scripts":     scriptViews,
	}
	if s.renderer.inlineStyles {
		data["inline_styles"] = defaultStylesheet()
	}
	if s.options.Theme != nil && len(s.options.Theme.CSSVars) > 0 {
		data["css_vars"] = s.options.Theme.CSSVars
	}
	return data
}
