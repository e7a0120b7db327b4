package tui

import (
	"net/url"
	"strings"
)

// answer is one collected value keyed by the HTML name it posts under.
type answer struct {
	name   string
	label  string
	values []string
}

// submission keeps answers in prompt order so form-encoded output matches
// what a browser would post for the same markup.
type submission struct {
	answers []answer
	index   map[string]int
}

func newSubmission() *submission {
	return &submission{index: make(map[string]int)}
}

// set replaces the values posted under name, keeping its original position.
func (s *submission) set(name, label string, values ...string) {
	if i, ok := s.index[name]; ok {
		s.answers[i].values = values
		return
	}
	s.index[name] = len(s.answers)
	s.answers = append(s.answers, answer{name: name, label: label, values: values})
}

func (s *submission) urlValues() url.Values {
	out := make(url.Values, len(s.answers))
	for _, a := range s.answers {
		if len(a.values) == 0 {
			continue
		}
		out[a.name] = append(out[a.name], a.values...)
	}
	return out
}

// encode writes application/x-www-form-urlencoded pairs in prompt order.
func (s *submission) encode() string {
	b := &strings.Builder{}
	for _, a := range s.answers {
		for _, v := range a.values {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(a.name))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

func (s *submission) pretty() string {
	b := &strings.Builder{}
	for _, a := range s.answers {
		if a.label == "" {
			continue
		}
		b.WriteString(a.label)
		b.WriteString(": ")
		b.WriteString(strings.Join(a.values, ", "))
		b.WriteByte('\n')
	}
	return b.String()
}
