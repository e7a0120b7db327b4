package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goliatone/go-actionform/pkg/form"
	"github.com/goliatone/go-actionform/pkg/formfile"
	"github.com/goliatone/go-actionform/pkg/visibility/expr"
)

var rules = expr.New()

type violation struct {
	file     string
	location string
	message  string
}

func main() {
	flag.Usage = func() {
		if _, err := fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [dirs...]\n", filepath.Base(os.Args[0])); err != nil {
			panic(err)
		}
		if _, err := fmt.Fprintf(flag.CommandLine.Output(), "\nLint form definition directories.\n"); err != nil {
			panic(err)
		}
	}
	flag.Parse()

	dirs := flag.Args()
	if len(dirs) == 0 {
		dirs = []string{"forms"}
	}

	var violations []violation
	for _, dir := range dirs {
		violations = append(violations, lintDir(dir)...)
	}
	if report(os.Stderr, violations) > 0 {
		os.Exit(1)
	}
}

func report(w io.Writer, violations []violation) int {
	sort.Slice(violations, func(i, j int) bool {
		if violations[i].file == violations[j].file {
			if violations[i].location == violations[j].location {
				return violations[i].message < violations[j].message
			}
			return violations[i].location < violations[j].location
		}
		return violations[i].file < violations[j].file
	})
	for _, v := range violations {
		fmt.Fprintf(w, "%s: %s -> %s\n", v.file, v.location, v.message)
	}
	return len(violations)
}

func lintDir(dir string) []violation {
	store, err := formfile.LoadFS(os.DirFS(dir))
	if err != nil {
		return []violation{{file: dir, location: "load", message: err.Error()}}
	}

	var result []violation
	for _, name := range store.Names() {
		def, _ := store.Definition(name)
		source, _ := store.Source(name)
		file := filepath.Join(dir, source)
		base := []string{"form", name}

		if len(def.Nodes()) == 0 {
			result = append(result, violation{file: file, location: formatLocation(base), message: "form declares no fields"})
		}
		if _, err := def.ParamsSchema(); err != nil {
			result = append(result, violation{file: file, location: formatLocation(base), message: err.Error()})
		}
		f, err := def.Instantiate()
		if err != nil {
			result = append(result, violation{file: file, location: formatLocation(base), message: err.Error()})
			continue
		}
		result = append(result, lintNodes(file, base, f.Nodes())...)
	}
	return result
}

// lintNodes walks an empty instance. Collections are checked through their
// template row since a blank model has no rows.
func lintNodes(file string, path []string, nodes []form.Node) []violation {
	var result []violation
	for _, node := range nodes {
		switch n := node.(type) {
		case *form.Element:
			result = append(result, lintElement(file, appendPath(path, n.Name()), n)...)
		case *form.Subform:
			next := appendPath(path, n.Name())
			result = append(result, lintRule(file, next, n.Definition().Render)...)
			if _, err := n.ShouldRender(); err != nil {
				result = append(result, violation{file: file, location: formatLocation(next), message: err.Error()})
			}
			result = append(result, lintNodes(file, next, n.Nodes())...)
		case *form.Collection:
			next := appendPath(path, n.Name())
			result = append(result, lintRule(file, next, n.Definition().Render)...)
			if _, err := n.ShouldRender(); err != nil {
				result = append(result, violation{file: file, location: formatLocation(next), message: err.Error()})
			}
			if tpl := n.Template(); tpl != nil {
				result = append(result, lintNodes(file, next, tpl.Nodes())...)
			}
		}
	}
	return result
}

func lintElement(file string, path []string, e *form.Element) []violation {
	result := lintRule(file, path, e.Definition().Render)
	location := formatLocation(path)
	if len(result) > 0 {
		return result
	}
	if _, err := e.ShouldRender(); err != nil {
		result = append(result, violation{file: file, location: location, message: err.Error()})
	}
	switch e.InputType() {
	case form.InputSelect, form.InputRadio:
		if len(e.Options()) == 0 {
			result = append(result, violation{
				file:     file,
				location: location,
				message:  fmt.Sprintf("%s input declares no options", e.InputType()),
			})
		}
	}
	return result
}

// lintRule reports render_when expressions that do not parse, even when
// another part of the rule would hide the node first.
func lintRule(file string, path []string, rule form.RenderRule) []violation {
	if err := rules.Compile(rule.Expression); err != nil {
		return []violation{{file: file, location: formatLocation(path), message: err.Error()}}
	}
	return nil
}

func appendPath(path []string, segment string) []string {
	next := append([]string(nil), path...)
	next = append(next, segment)
	return next
}

func formatLocation(path []string) string {
	return strings.Join(path, " > ")
}
