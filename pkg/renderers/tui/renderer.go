package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/goliatone/go-actionform/pkg/form"
	"github.com/goliatone/go-actionform/pkg/params"
	"github.com/goliatone/go-actionform/pkg/render"
)

// Renderer implements render.Renderer for terminal sessions. Each renderable
// element becomes one prompt and the answers are serialized the way the HTML
// form would have posted them.
type Renderer struct {
	driver             PromptDriver
	outputFormat       OutputFormat
	submitTransformer  SubmitTransformer
	theme              Theme
	validationAttempts int
}

// New constructs a TUI renderer with defaults (survey driver, JSON output).
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		driver:       newSurveyDriver(),
		outputFormat: OutputFormatJSON,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}

	switch r.outputFormat {
	case OutputFormatJSON, OutputFormatFormURLEncoded, OutputFormatPrettyText:
	default:
		return nil, fmt.Errorf("tui: unknown output format %q", r.outputFormat)
	}
	return r, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "tui"
}

// ContentType reports the serialization format used by Render.
func (r *Renderer) ContentType() string {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

// Render prompts for every renderable element of f and returns the collected
// submission in the configured format.
func (r *Renderer) Render(ctx context.Context, f *form.Form, opts render.RenderOptions) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f == nil {
		return nil, errors.New("tui: form is nil")
	}

	sub := newSubmission()
	for _, field := range render.ChromeFields(f, opts.Helpers) {
		sub.set(field.Name, "", field.Value)
	}
	for _, field := range render.SortedHiddenFields(opts.HiddenFields) {
		sub.set(field.Name, "", field.Value)
	}

	mapping := render.MapErrorPayload(f, opts.Errors)
	if err := r.info(ctx, r.theme.InfoPrefix+form.Humanize(f.Definition().Name())); err != nil {
		return nil, err
	}
	for _, msg := range render.ErrorSummary(f, opts, mapping) {
		if err := r.info(ctx, r.theme.ErrorPrefix+msg); err != nil {
			return nil, err
		}
	}

	err := r.walk(f.Nodes(), opts, func(e *form.Element) error {
		return r.ask(ctx, e, sub, opts, render.ElementErrors(e, mapping))
	})
	if err != nil {
		return nil, err
	}

	if r.validationAttempts > 0 {
		if err := r.revalidate(ctx, f, sub, opts); err != nil {
			return nil, err
		}
	}
	return r.serialize(f, sub)
}

// walk visits the renderable elements of nodes in declaration order.
// Collections contribute their existing rows; the template row is skipped.
func (r *Renderer) walk(nodes []form.Node, opts render.RenderOptions, visit func(*form.Element) error) error {
	for _, node := range nodes {
		switch n := node.(type) {
		case *form.Element:
			ok, err := n.ShouldRender()
			if err != nil {
				return err
			}
			if !ok || !opts.Subset.Allows(n) {
				continue
			}
			if err := visit(n); err != nil {
				return err
			}
		case *form.Subform:
			ok, err := n.ShouldRender()
			if err != nil {
				return err
			}
			if !ok || !opts.Subset.AllowsNode(n) {
				continue
			}
			if err := r.walk(n.Nodes(), opts, visit); err != nil {
				return err
			}
		case *form.Collection:
			ok, err := n.ShouldRender()
			if err != nil {
				return err
			}
			if !ok || !opts.Subset.AllowsNode(n) {
				continue
			}
			if err := r.walk(n.Nodes(), opts, visit); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Renderer) ask(ctx context.Context, e *form.Element, sub *submission, opts render.RenderOptions, errs []string) error {
	def := e.Definition()
	if def.Disabled {
		return nil
	}

	name := e.HTMLName()
	label := render.LabelText(e, opts)
	input := e.InputType()

	if input == form.InputHidden {
		sub.set(name, "", e.HTMLValue())
		return nil
	}
	if def.Readonly {
		sub.set(name, label, currentValues(e)...)
		return nil
	}

	for _, msg := range errs {
		if err := r.info(ctx, r.theme.ErrorPrefix+label+" "+msg); err != nil {
			return err
		}
	}

	q := Question{Message: r.theme.PromptPrefix + label}
	switch {
	case input == form.InputCheckbox && !e.ChoiceGroup():
		q.Kind, q.Confirmed = QuestionConfirm, e.Checked()
	case e.Multiple() || (input == form.InputCheckbox && e.ChoiceGroup()):
		q.Kind = QuestionMultiSelect
	case (input == form.InputRadio || input == form.InputSelect) && len(e.Options()) > 0:
		q.Kind = QuestionSelect
	case input == form.InputTextarea:
		q.Kind, q.Default = QuestionLongText, e.FormatValue(e.Value())
	case input == form.InputPassword:
		q.Kind = QuestionSecret
	default:
		q.Kind, q.Default, q.Validate = QuestionText, e.HTMLValue(), inputValidator(e)
	}

	var values []string
	if q.Kind == QuestionSelect || q.Kind == QuestionMultiSelect {
		q.Options, values = optionLists(e, opts)
		q.Selected = selectedIndices(e)
		if q.Kind == QuestionSelect && len(q.Selected) == 0 {
			q.Selected = []int{0}
		}
	}

	ans, err := r.driver.Ask(ctx, q)
	if err != nil {
		return err
	}

	switch q.Kind {
	case QuestionConfirm:
		value := "0"
		if ans.Confirmed {
			value = "1"
		}
		sub.set(name, label, value)
	case QuestionMultiSelect:
		var out []string
		for _, idx := range ans.Picked {
			if idx >= 0 && idx < len(values) {
				out = append(out, values[idx])
			}
		}
		sub.set(name+"[]", label, out...)
	case QuestionSelect:
		if len(ans.Picked) == 0 || ans.Picked[0] < 0 || ans.Picked[0] >= len(values) {
			return fmt.Errorf("tui: %s: selection %v out of range", name, ans.Picked)
		}
		sub.set(name, label, values[ans.Picked[0]])
	default:
		sub.set(name, label, ans.Text)
	}
	return nil
}

// revalidate decodes the answers through the form's params schema and asks
// again for the elements that failed.
func (r *Renderer) revalidate(ctx context.Context, f *form.Form, sub *submission, opts render.RenderOptions) error {
	for attempt := 0; ; attempt++ {
		mapping, err := validateSubmission(f, sub)
		if err != nil {
			return err
		}
		if len(mapping.Fields) == 0 && len(mapping.Form) == 0 {
			return nil
		}
		if attempt >= r.validationAttempts {
			messages := make([]string, 0, len(mapping.Form))
			messages = append(messages, mapping.Form...)
			for _, msgs := range mapping.Fields {
				messages = append(messages, msgs...)
			}
			return fmt.Errorf("%w: %s", ErrStillInvalid, strings.Join(messages, "; "))
		}
		for _, msg := range mapping.Form {
			if err := r.info(ctx, r.theme.ErrorPrefix+msg); err != nil {
				return err
			}
		}
		err = r.walk(f.Nodes(), opts, func(e *form.Element) error {
			errs := mapping.For(e)
			if len(errs) == 0 {
				return nil
			}
			return r.ask(ctx, e, sub, opts, errs)
		})
		if err != nil {
			return err
		}
	}
}

func validateSubmission(f *form.Form, sub *submission) (render.ErrorMapping, error) {
	values, err := params.ParseForm(sub.urlValues())
	if err != nil {
		return render.ErrorMapping{}, fmt.Errorf("tui: decode answers: %w", err)
	}
	inst, err := f.ParamsFor(params.Scoped(values, f.Scope()))
	if err != nil {
		return render.ErrorMapping{}, err
	}
	verr := inst.Validate()
	if verr == nil {
		return render.ErrorMapping{}, nil
	}
	issues, ok := params.AsIssues(verr)
	if !ok {
		return render.ErrorMapping{}, verr
	}
	payload := make(map[string][]string, len(issues))
	for _, issue := range issues {
		payload[issue.Attribute] = append(payload[issue.Attribute], issue.Message)
	}
	return render.MapErrorPayload(f, payload), nil
}

func (r *Renderer) serialize(f *form.Form, sub *submission) ([]byte, error) {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return []byte(sub.encode()), nil
	case OutputFormatPrettyText:
		return []byte(sub.pretty()), nil
	}

	values, err := params.ParseForm(sub.urlValues())
	if err != nil {
		return nil, fmt.Errorf("tui: decode answers: %w", err)
	}
	payload := params.Scoped(values, f.Scope())
	if r.submitTransformer != nil {
		payload, err = r.submitTransformer(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(payload)
}

func (r *Renderer) info(ctx context.Context, msg string) error {
	if strings.TrimSpace(msg) == "" {
		return nil
	}
	return r.driver.Info(ctx, msg)
}

func optionLists(e *form.Element, opts render.RenderOptions) (labels, values []string) {
	for _, opt := range e.Options() {
		labels = append(labels, render.OptionLabel(opt, opts))
		values = append(values, e.FormatValue(opt.Value))
	}
	return labels, values
}

func selectedIndices(e *form.Element) []int {
	var out []int
	for i, opt := range e.Options() {
		if e.Selected(opt) {
			out = append(out, i)
		}
	}
	return out
}

func currentValues(e *form.Element) []string {
	if len(e.Options()) > 0 && (e.Multiple() || e.ChoiceGroup()) {
		var out []string
		for _, opt := range e.Options() {
			if e.Selected(opt) {
				out = append(out, e.FormatValue(opt.Value))
			}
		}
		return out
	}
	if !e.InputType().IsTag() {
		return []string{e.FormatValue(e.Value())}
	}
	return []string{e.HTMLValue()}
}

// inputValidator checks number and range answers against their min and max
// attributes. Empty answers are left to the params schema.
func inputValidator(e *form.Element) func(string) error {
	input := e.InputType()
	if input != form.InputNumber && input != form.InputRange {
		return nil
	}
	attrs := e.InputAttrs()
	lower, hasMin := numericAttr(attrs, "min")
	upper, hasMax := numericAttr(attrs, "max")
	return func(answer string) error {
		answer = strings.TrimSpace(answer)
		if answer == "" {
			return nil
		}
		n, err := strconv.ParseFloat(answer, 64)
		if err != nil {
			return fmt.Errorf("%q is not a number", answer)
		}
		if hasMin && n < lower {
			return fmt.Errorf("must be greater than or equal to %s", strconv.FormatFloat(lower, 'f', -1, 64))
		}
		if hasMax && n > upper {
			return fmt.Errorf("must be less than or equal to %s", strconv.FormatFloat(upper, 'f', -1, 64))
		}
		return nil
	}
}

func numericAttr(attrs form.Attrs, key string) (float64, bool) {
	raw, ok := attrs.Get(key)
	if !ok || raw == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(fmt.Sprint(raw)), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
