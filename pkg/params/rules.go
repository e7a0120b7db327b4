package params

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Predicate is a named capability resolved through an owner chain.
type Predicate = func() (bool, error)

// Resolver looks up predicates by name. Form nodes satisfy it so conditional
// rules can consult predicates declared on the form or its host.
type Resolver interface {
	Resolve(name string) (Predicate, error)
}

// Condition gates a rule; it is evaluated against the validating instance.
type Condition func(inst *Instance) (bool, error)

// Check inspects a field value and reports a failure code plus interpolation
// data. An empty code means the value passed.
type Check func(value any, inst *Instance) (code string, data map[string]any)

// Rule is one validation applied to a field.
type Rule struct {
	Name    string
	Params  map[string]any
	check   Check
	when    []Condition
	message string
	// target overrides the attribute the issue is recorded on.
	target func(field string) string
}

// RuleOption customises a Rule.
type RuleOption func(*Rule)

// If gates the rule on a predicate resolved through the instance owner. The
// "owner_" prefix used by older form declarations is accepted and stripped.
func If(predicate string) RuleOption {
	return func(r *Rule) {
		r.when = append(r.when, ownerCondition(predicate, false))
	}
}

// Unless gates the rule on the negation of a predicate.
func Unless(predicate string) RuleOption {
	return func(r *Rule) {
		r.when = append(r.when, ownerCondition(predicate, true))
	}
}

// IfFunc gates the rule on an arbitrary function.
func IfFunc(fn func(inst *Instance) bool) RuleOption {
	return func(r *Rule) {
		if fn == nil {
			return
		}
		r.when = append(r.when, func(inst *Instance) (bool, error) {
			return fn(inst), nil
		})
	}
}

// Message overrides the translated failure message.
func Message(text string) RuleOption {
	return func(r *Rule) {
		r.message = text
	}
}

// Min sets the lower bound used by Numericality.
func Min(value float64) RuleOption {
	return func(r *Rule) { r.param("min", value) }
}

// Max sets the upper bound used by Numericality.
func Max(value float64) RuleOption {
	return func(r *Rule) { r.param("max", value) }
}

// OnlyInteger makes Numericality reject fractional values.
func OnlyInteger() RuleOption {
	return func(r *Rule) { r.param("only_integer", true) }
}

func (r *Rule) param(key string, value any) {
	if r.Params == nil {
		r.Params = make(map[string]any)
	}
	r.Params[key] = value
}

func newRule(name string, check Check, opts []RuleOption) Rule {
	rule := Rule{Name: name, check: check}
	for _, opt := range opts {
		if opt != nil {
			opt(&rule)
		}
	}
	return rule
}

// Presence fails for nil, blank strings, false and empty collections.
func Presence(opts ...RuleOption) Rule {
	return newRule("presence", func(value any, _ *Instance) (string, map[string]any) {
		if IsBlank(value) {
			return CodeBlank, nil
		}
		return "", nil
	}, opts)
}

// Inclusion fails when a present value is not one of values. Values are
// compared by their string form so "1" matches 1.
func Inclusion(values []any, opts ...RuleOption) Rule {
	allowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		allowed[fmt.Sprint(v)] = struct{}{}
	}
	rule := newRule("inclusion", func(value any, _ *Instance) (string, map[string]any) {
		if IsBlank(value) {
			return "", nil
		}
		for _, item := range flatten(value) {
			if _, ok := allowed[fmt.Sprint(item)]; !ok {
				return CodeInclusion, map[string]any{"value": item}
			}
		}
		return "", nil
	}, opts)
	rule.param("in", append([]any(nil), values...))
	return rule
}

// Numericality validates numeric values against optional Min/Max/OnlyInteger
// options. Blank values pass; combine with Presence to require them.
func Numericality(opts ...RuleOption) Rule {
	var rule Rule
	rule = newRule("numericality", func(value any, _ *Instance) (string, map[string]any) {
		if IsBlank(value) {
			return "", nil
		}
		number, ok := toFloat(value)
		if !ok {
			return CodeNotANumber, nil
		}
		if only, _ := rule.Params["only_integer"].(bool); only && number != float64(int64(number)) {
			return CodeNotAnInteger, nil
		}
		if minValue, ok := rule.Params["min"].(float64); ok && number < minValue {
			return CodeGreaterThanOrEqualTo, map[string]any{"count": formatNumber(minValue)}
		}
		if maxValue, ok := rule.Params["max"].(float64); ok && number > maxValue {
			return CodeLessThanOrEqualTo, map[string]any{"count": formatNumber(maxValue)}
		}
		return "", nil
	}, opts)
	return rule
}

// Length bounds the character length of string values. A negative bound is
// ignored.
func Length(minLen, maxLen int, opts ...RuleOption) Rule {
	rule := newRule("length", func(value any, _ *Instance) (string, map[string]any) {
		if value == nil {
			return "", nil
		}
		n := utf8.RuneCountInString(fmt.Sprint(value))
		if minLen >= 0 && n < minLen {
			return CodeTooShort, map[string]any{"count": minLen}
		}
		if maxLen >= 0 && n > maxLen {
			return CodeTooLong, map[string]any{"count": maxLen}
		}
		return "", nil
	}, opts)
	rule.param("minimum", minLen)
	rule.param("maximum", maxLen)
	return rule
}

// Format requires present string values to match pattern.
func Format(pattern *regexp.Regexp, opts ...RuleOption) Rule {
	rule := newRule("format", func(value any, _ *Instance) (string, map[string]any) {
		if IsBlank(value) || pattern == nil {
			return "", nil
		}
		if !pattern.MatchString(fmt.Sprint(value)) {
			return CodeInvalid, nil
		}
		return "", nil
	}, opts)
	if pattern != nil {
		rule.param("pattern", pattern.String())
	}
	return rule
}

// Confirmation requires "<field>_confirmation" to equal the field when the
// confirmation is present. The issue is recorded on the confirmation field.
func Confirmation(opts ...RuleOption) Rule {
	rule := newRule("confirmation", nil, opts)
	rule.target = func(field string) string { return field + "_confirmation" }
	return rule
}

// Custom wraps an arbitrary check.
func Custom(name string, check Check, opts ...RuleOption) Rule {
	return newRule(name, check, opts)
}

func (r Rule) apply(inst *Instance, field string, value any) error {
	for _, cond := range r.when {
		ok, err := cond(inst)
		if err != nil {
			return fmt.Errorf("params: rule %s on %s: %w", r.Name, field, err)
		}
		if !ok {
			return nil
		}
	}

	attribute := field
	if r.target != nil {
		attribute = r.target(field)
	}

	code, data := r.evaluate(inst, field, value)
	if code == "" {
		return nil
	}
	if r.message != "" {
		inst.errors.AddMessage(attribute, code, Interpolate(r.message, stringData(data)))
		return nil
	}
	inst.errors.Add(attribute, code, data)
	return nil
}

func (r Rule) evaluate(inst *Instance, field string, value any) (string, map[string]any) {
	if r.Name == "confirmation" {
		confirmation, present := inst.lookup(field + "_confirmation")
		if !present || confirmation == nil {
			return "", nil
		}
		if fmt.Sprint(confirmation) != fmt.Sprint(value) {
			return CodeConfirmation, map[string]any{"attribute": Humanize(field)}
		}
		return "", nil
	}
	if r.check == nil {
		return "", nil
	}
	return r.check(value, inst)
}

func ownerCondition(predicate string, negate bool) Condition {
	name := strings.TrimPrefix(strings.TrimSpace(predicate), "owner_")
	return func(inst *Instance) (bool, error) {
		owner := inst.Owner()
		if owner == nil {
			return false, fmt.Errorf("predicate %q: instance has no owner", name)
		}
		fn, err := owner.Resolve(name)
		if err != nil {
			return false, err
		}
		ok, err := fn()
		if err != nil {
			return false, err
		}
		if negate {
			return !ok, nil
		}
		return ok, nil
	}
}

// IsBlank mirrors the "blank?" notion used by presence checks.
func IsBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case bool:
		return !v
	case *Instance:
		return v == nil
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func flatten(value any) []any {
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []any{value}
}
