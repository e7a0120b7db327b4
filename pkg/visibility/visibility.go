package visibility

// Evaluator decides whether a form node renders from a rule string and a
// context holding the values bound next to it.
type Evaluator interface {
	Eval(fieldPath, rule string, ctx Context) (bool, error)
}

// Context provides inputs to an Evaluator. Values holds the bound values of
// sibling elements plus "value" for the node itself. Extras carries caller
// supplied data such as roles or feature flags. Predicates resolves names
// ending in "?" through the owner chain.
type Context struct {
	Values     map[string]any
	Extras     map[string]any
	Predicates func(name string) (bool, error)
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(fieldPath, rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(fieldPath, rule string, ctx Context) (bool, error) {
	return fn(fieldPath, rule, ctx)
}
