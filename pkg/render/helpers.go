package render

import "github.com/goliatone/go-actionform/pkg/form"

// Helpers exposes the host framework collaborators a form needs while
// rendering.
type Helpers interface {
	AuthenticityToken() string
	PathFor(model any) string
}

// StaticHelpers is a fixed Helpers value. PathFunc wins over Path when set.
type StaticHelpers struct {
	Token    string
	Path     string
	PathFunc func(model any) string
}

// AuthenticityToken implements Helpers.
func (h StaticHelpers) AuthenticityToken() string { return h.Token }

// PathFor implements Helpers.
func (h StaticHelpers) PathFor(model any) string {
	if h.PathFunc != nil {
		return h.PathFunc(model)
	}
	return h.Path
}

// Action resolves the form action through helpers. Forms without a configured
// action and without helpers post to "/".
func Action(f *form.Form, helpers Helpers) string {
	var pathFor func(any) string
	if helpers != nil {
		pathFor = helpers.PathFor
	}
	if action := f.Action(pathFor); action != "" {
		return action
	}
	return "/"
}
