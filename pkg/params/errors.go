package params

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/reoring/goskema"
)

// ErrInvalidSchema reports a schema that cannot be built.
var ErrInvalidSchema = errors.New("params: invalid schema")

// Issue is a single validation failure in goskema's issue model. Path is the
// JSON Pointer of the attribute ("/items_attributes/0/name"); Attribute keeps
// the dotted form relative to the instance that reported it
// ("items_attributes[0].name"), which is what full messages humanise.
type Issue struct {
	goskema.Issue
	Attribute string
}

func newIssue(attribute, code, message string, data map[string]any) Issue {
	return Issue{
		Issue:     goskema.IssueAt(pointer(attribute), code, message, data),
		Attribute: attribute,
	}
}

// FullMessage prefixes the message with the humanised attribute.
func (i Issue) FullMessage() string {
	if i.Attribute == "" || i.Attribute == "base" {
		return i.Message
	}
	return Humanize(i.Attribute) + " " + i.Message
}

// Issues is an ordered collection of validation failures that implements
// error.
type Issues []Issue

// Error summarises the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	limit := min(len(iss), maxShown)
	for i := 0; i < limit; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(iss[i].FullMessage())
	}
	if len(iss) > limit {
		fmt.Fprintf(b, "; ... (total %d)", len(iss))
	}
	return b.String()
}

// Goskema returns the issues as goskema.Issues, dropping the dotted
// attribute.
func (iss Issues) Goskema() goskema.Issues {
	if len(iss) == 0 {
		return nil
	}
	out := make(goskema.Issues, 0, len(iss))
	for _, issue := range iss {
		out = append(out, issue.Issue)
	}
	return out
}

// AsIssues extracts Issues from err. goskema.Issues are accepted too; their
// pointers are turned back into dotted attributes.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	if foreign, ok := goskema.AsIssues(err); ok {
		out := make(Issues, 0, len(foreign))
		for _, issue := range foreign {
			out = append(out, Issue{Issue: issue, Attribute: attribute(issue.Path)})
		}
		return out, true
	}
	return nil, false
}

// pointer converts a dotted attribute into a JSON Pointer. "base" and the
// empty attribute address the root.
func pointer(attribute string) goskema.PathRef {
	ref := goskema.NewRef(nil).Root()
	if attribute == "" || attribute == "base" {
		return ref
	}
	for _, part := range strings.Split(attribute, ".") {
		name, rest, _ := strings.Cut(part, "[")
		ref = ref.Field(name)
		for rest != "" {
			index, tail, _ := strings.Cut(rest, "]")
			if n, err := strconv.Atoi(index); err == nil {
				ref = ref.Index(n)
			} else {
				ref = ref.Field(index)
			}
			rest = strings.TrimPrefix(tail, "[")
		}
	}
	return ref
}

// attribute converts a JSON Pointer back into the dotted form. Numeric
// segments index the preceding name.
func attribute(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return ""
	}
	var b strings.Builder
	for i, part := range strings.Split(path, "/") {
		part = strings.ReplaceAll(strings.ReplaceAll(part, "~1", "/"), "~0", "~")
		if _, err := strconv.Atoi(part); err == nil && i > 0 {
			b.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

// Errors accumulates issues for one instance.
type Errors struct {
	issues     Issues
	translator Translator
}

func newErrors(tr Translator) *Errors {
	if tr == nil {
		tr = English()
	}
	return &Errors{translator: tr}
}

// Add records an issue for attribute using the translator for code.
func (e *Errors) Add(attribute, code string, data map[string]any) {
	e.issues = append(e.issues, newIssue(attribute, code, e.translator.Message(code, stringData(data)), data))
}

// AddMessage records an issue with a literal message.
func (e *Errors) AddMessage(attribute, code, message string) {
	e.issues = append(e.issues, newIssue(attribute, code, message, nil))
}

func (e *Errors) merge(prefix string, nested Issues) {
	for _, issue := range nested {
		issue.Attribute = joinAttribute(prefix, issue.Attribute)
		issue.Path = pointer(issue.Attribute).Pointer()
		e.issues = append(e.issues, issue)
	}
}

// Any reports whether issues were recorded.
func (e *Errors) Any() bool {
	return e != nil && len(e.issues) > 0
}

// Count returns the number of issues.
func (e *Errors) Count() int {
	if e == nil {
		return 0
	}
	return len(e.issues)
}

// Issues returns a copy of the recorded issues.
func (e *Errors) Issues() Issues {
	if e == nil || len(e.issues) == 0 {
		return nil
	}
	return append(Issues(nil), e.issues...)
}

// FullMessages returns every issue's full message in order.
func (e *Errors) FullMessages() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.issues))
	for _, issue := range e.issues {
		out = append(out, issue.FullMessage())
	}
	return out
}

// MessagesFor returns the bare messages recorded against attribute.
func (e *Errors) MessagesFor(attribute string) []string {
	if e == nil {
		return nil
	}
	var out []string
	for _, issue := range e.issues {
		if issue.Attribute == attribute {
			out = append(out, issue.Message)
		}
	}
	return out
}

func (e *Errors) reset() {
	e.issues = nil
}

func joinAttribute(prefix, attribute string) string {
	if prefix == "" {
		return attribute
	}
	if attribute == "" {
		return prefix
	}
	return prefix + "." + attribute
}
