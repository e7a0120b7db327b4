// Package expr implements the RenderWhen expression language.
//
//	agree                         truthy check of a bound value
//	kind == "pro"                 equality against a literal
//	seats >= 3                    numeric ordering
//	draft? and not archived?      predicates resolved through the owner chain
//	(a || b) && !c                grouping; and/or/not are aliases
//
// Identifiers read visibility.Context.Values, descending into nested maps on
// dots. The extras. prefix reads visibility.Context.Extras instead.
package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-actionform/pkg/visibility"
)

// ErrSyntax wraps every parse failure.
var ErrSyntax = errors.New("visibility/expr: syntax error")

// Evaluator compiles rules once and caches them by source text.
type Evaluator struct {
	cache sync.Map // string -> cond
}

// New returns an empty evaluator. It is safe for concurrent use.
func New() *Evaluator { return &Evaluator{} }

var _ visibility.Evaluator = (*Evaluator)(nil)

// Eval reports whether rule holds. An empty rule always holds.
func (e *Evaluator) Eval(fieldPath, rule string, ctx visibility.Context) (bool, error) {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return true, nil
	}
	fn, err := e.compile(rule)
	if err != nil {
		return false, fmt.Errorf("%s: %w", fieldPath, err)
	}
	return fn(ctx)
}

// Compile parses rule without evaluating it, so definitions can be checked
// ahead of rendering.
func (e *Evaluator) Compile(rule string) error {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return nil
	}
	_, err := e.compile(rule)
	return err
}

func (e *Evaluator) compile(rule string) (cond, error) {
	if cached, ok := e.cache.Load(rule); ok {
		return cached.(cond), nil
	}
	p := &parser{lex: lexer{src: rule}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	fn, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != kindEOF {
		return nil, p.errorf("unexpected %q", p.tok.text)
	}
	e.cache.Store(rule, fn)
	return fn, nil
}

type cond func(visibility.Context) (bool, error)

type operand func(visibility.Context) (any, error)

type kind uint8

const (
	kindEOF kind = iota
	kindIdent
	kindString
	kindNumber
	kindOp
)

type lexeme struct {
	kind kind
	text string
	pos  int
}

type lexer struct {
	src string
	pos int
}

const operatorChars = "=!<>&|()"

func (l *lexer) next() (lexeme, error) {
	for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
		l.pos++
	}
	start := l.pos
	if l.pos >= len(l.src) {
		return lexeme{kind: kindEOF, pos: start}, nil
	}

	ch := l.src[l.pos]
	switch {
	case ch == '"' || ch == '\'':
		return l.quoted(ch)
	case ch == '(' || ch == ')':
		l.pos++
		return lexeme{kind: kindOp, text: string(ch), pos: start}, nil
	case strings.IndexByte(operatorChars, ch) >= 0:
		for _, op := range []string{"==", "!=", "<=", ">=", "&&", "||", "<", ">", "!"} {
			if strings.HasPrefix(l.src[l.pos:], op) {
				l.pos += len(op)
				return lexeme{kind: kindOp, text: op, pos: start}, nil
			}
		}
		return lexeme{}, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, ch, start)
	}

	for l.pos < len(l.src) && !isSpace(l.src[l.pos]) && strings.IndexByte(operatorChars, l.src[l.pos]) < 0 {
		l.pos++
	}
	word := l.src[start:l.pos]
	if _, err := strconv.ParseFloat(word, 64); err == nil && strings.IndexByte("+-.0123456789", word[0]) >= 0 {
		return lexeme{kind: kindNumber, text: word, pos: start}, nil
	}
	switch word {
	case "and":
		return lexeme{kind: kindOp, text: "&&", pos: start}, nil
	case "or":
		return lexeme{kind: kindOp, text: "||", pos: start}, nil
	case "not":
		return lexeme{kind: kindOp, text: "!", pos: start}, nil
	}
	return lexeme{kind: kindIdent, text: word, pos: start}, nil
}

func (l *lexer) quoted(quote byte) (lexeme, error) {
	start := l.pos
	l.pos++
	var b strings.Builder
	for l.pos < len(l.src) {
		ch := l.src[l.pos]
		l.pos++
		switch {
		case ch == '\\' && l.pos < len(l.src):
			b.WriteByte(l.src[l.pos])
			l.pos++
		case ch == quote:
			return lexeme{kind: kindString, text: b.String(), pos: start}, nil
		default:
			b.WriteByte(ch)
		}
	}
	return lexeme{}, fmt.Errorf("%w: unterminated string at %d", ErrSyntax, start)
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

type parser struct {
	lex lexer
	tok lexeme
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) accept(op string) (bool, error) {
	if p.tok.kind != kindOp || p.tok.text != op {
		return false, nil
	}
	return true, p.advance()
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s at %d", ErrSyntax, fmt.Sprintf(format, args...), p.tok.pos)
}

// or := and { "||" and }
func (p *parser) parseOr() (cond, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		ok, err := p.accept("||")
		if err != nil || !ok {
			return left, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		l := left
		left = func(ctx visibility.Context) (bool, error) {
			if ok, err := l(ctx); err != nil || ok {
				return ok, err
			}
			return right(ctx)
		}
	}
}

// and := unary { "&&" unary }
func (p *parser) parseAnd() (cond, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		ok, err := p.accept("&&")
		if err != nil || !ok {
			return left, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		l := left
		left = func(ctx visibility.Context) (bool, error) {
			if ok, err := l(ctx); err != nil || !ok {
				return false, err
			}
			return right(ctx)
		}
	}
}

// unary := "!" unary | "(" or ")" | comparison
func (p *parser) parseUnary() (cond, error) {
	if ok, err := p.accept("!"); err != nil {
		return nil, err
	} else if ok {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return func(ctx visibility.Context) (bool, error) {
			ok, err := inner(ctx)
			return !ok, err
		}, nil
	}
	if ok, err := p.accept("("); err != nil {
		return nil, err
	} else if ok {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if ok, err := p.accept(")"); err != nil {
			return nil, err
		} else if !ok {
			return nil, p.errorf("missing ')'")
		}
		return inner, nil
	}
	return p.parseComparison()
}

// comparison := operand [ op operand ]
func (p *parser) parseComparison() (cond, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	op := p.tok.text
	if p.tok.kind != kindOp || !isComparison(op) {
		return func(ctx visibility.Context) (bool, error) {
			v, err := left(ctx)
			return truthy(v), err
		}, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return func(ctx visibility.Context) (bool, error) {
		a, err := left(ctx)
		if err != nil {
			return false, err
		}
		b, err := right(ctx)
		if err != nil {
			return false, err
		}
		return compare(op, a, b), nil
	}, nil
}

func isComparison(op string) bool {
	switch op {
	case "==", "!=", "<", "<=", ">", ">=":
		return true
	}
	return false
}

func (p *parser) parseOperand() (operand, error) {
	tok := p.tok
	switch tok.kind {
	case kindString:
		return constant(tok.text), p.advance()
	case kindNumber:
		n, _ := strconv.ParseFloat(tok.text, 64)
		return constant(n), p.advance()
	case kindIdent:
		if err := p.advance(); err != nil {
			return nil, err
		}
		switch tok.text {
		case "true", "false":
			return constant(tok.text == "true"), nil
		case "nil", "null":
			return constant(null{}), nil
		}
		if strings.HasSuffix(tok.text, "?") {
			return predicate(tok.text), nil
		}
		return variable(tok.text), nil
	case kindEOF:
		return nil, p.errorf("unexpected end of expression")
	}
	return nil, p.errorf("unexpected %q", tok.text)
}

func constant(v any) operand {
	return func(visibility.Context) (any, error) { return v, nil }
}

func predicate(name string) operand {
	return func(ctx visibility.Context) (any, error) {
		if ctx.Predicates == nil {
			return nil, fmt.Errorf("visibility/expr: predicate %q: no resolver", name)
		}
		return ctx.Predicates(name)
	}
}

func variable(path string) operand {
	return func(ctx visibility.Context) (any, error) {
		if rest, ok := strings.CutPrefix(path, "extras."); ok {
			return dig(ctx.Extras, rest), nil
		}
		return dig(ctx.Values, path), nil
	}
}

// dig prefers an exact key so flattened names like "cta.headline" resolve
// before nested traversal.
func dig(values map[string]any, path string) any {
	if v, ok := values[path]; ok {
		return v
	}
	var current any = values
	for _, part := range strings.Split(path, ".") {
		switch m := current.(type) {
		case map[string]any:
			current = m[part]
		case map[string]string:
			current = m[part]
		default:
			return nil
		}
	}
	return current
}

// null is the nil literal. Only the literal compares strictly against
// missing values; elsewhere a missing value reads as the other side's zero.
type null struct{}

// compare coerces the bound side to the literal's type.
func compare(op string, a, b any) bool {
	_, an := a.(null)
	_, bn := b.(null)
	if an || bn {
		eq := (an || a == nil) && (bn || b == nil)
		switch op {
		case "==":
			return eq
		case "!=":
			return !eq
		}
		return false
	}
	if a == nil {
		a = zeroLike(b)
	}
	if b == nil {
		b = zeroLike(a)
	}
	if a == nil || b == nil {
		return op == "!="
	}

	var c int
	switch {
	case isBool(a) || isBool(b):
		x, y := truthy(a), truthy(b)
		if s, ok := a.(string); ok {
			x = parseBool(s)
		}
		if s, ok := b.(string); ok {
			y = parseBool(s)
		}
		if x == y {
			c = 0
		} else if !x {
			c = -1
		} else {
			c = 1
		}
	default:
		x, xok := number(a)
		y, yok := number(b)
		if xok && yok {
			c = cmpFloat(x, y)
		} else {
			c = strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
		}
	}

	switch op {
	case "==":
		return c == 0
	case "!=":
		return c != 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	default:
		return c >= 0
	}
}

func zeroLike(v any) any {
	switch v.(type) {
	case string:
		return ""
	case bool:
		return false
	case nil:
		return nil
	}
	if _, ok := number(v); ok {
		return 0.0
	}
	return nil
}

func cmpFloat(x, y float64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func isBool(v any) bool {
	_, ok := v.(bool)
	return ok
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return strings.TrimSpace(s) != ""
	}
	return b
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil, null:
		return false
	case bool:
		return t
	case string:
		return strings.TrimSpace(t) != ""
	case []any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	if n, ok := number(v); ok {
		return n != 0
	}
	return true
}
