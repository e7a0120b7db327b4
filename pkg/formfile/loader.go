package formfile

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-actionform/pkg/form"
	"github.com/goliatone/go-actionform/pkg/params"
)

// ErrInvalidFile wraps every parse and declaration failure.
var ErrInvalidFile = errors.New("formfile: invalid form file")

// Store holds the definitions loaded from a directory of form files.
type Store struct {
	definitions map[string]*form.Definition
	sources     map[string]string
}

// LoadFS walks fsys and builds a definition for every form declared in
// *.yaml, *.yml and *.json files. JSON is read through the YAML decoder, which
// keeps attribute order for both. A nil fsys yields an empty store.
func LoadFS(fsys fs.FS) (*Store, error) {
	store := &Store{
		definitions: make(map[string]*form.Definition),
		sources:     make(map[string]string),
	}
	if fsys == nil {
		return store, nil
	}

	declared := make(map[string]formFile)
	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isFormFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("formfile: read %s: %w", path, err)
		}
		doc, err := parseDocument(data, path)
		if err != nil {
			return err
		}

		for _, raw := range doc.Forms {
			name := strings.TrimSpace(raw.Name)
			if name == "" {
				return fmt.Errorf("%w: file %s declares a form without a name", ErrInvalidFile, path)
			}
			if prev, exists := store.sources[name]; exists {
				return fmt.Errorf("%w: duplicate form %q (files %s and %s)", ErrInvalidFile, name, prev, path)
			}
			raw.Name = name
			declared[name] = raw
			store.sources[name] = path
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	b := &storeBuilder{declared: declared, store: store, building: make(map[string]bool)}
	for _, name := range sortedNames(declared) {
		if _, err := b.definition(name); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// Definition returns the named form definition.
func (s *Store) Definition(name string) (*form.Definition, bool) {
	if s == nil {
		return nil, false
	}
	def, ok := s.definitions[name]
	return def, ok
}

// Source reports the file a form was declared in.
func (s *Store) Source(name string) (string, bool) {
	if s == nil {
		return "", false
	}
	src, ok := s.sources[name]
	return src, ok
}

// Names lists the loaded forms in alphabetical order.
func (s *Store) Names() []string {
	if s == nil {
		return nil
	}
	return sortedNames(s.definitions)
}

// Len reports how many forms the store holds.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.definitions)
}

// Empty reports whether the store holds any forms.
func (s *Store) Empty() bool {
	return s.Len() == 0
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, fmt.Errorf("%w: file %s is empty", ErrInvalidFile, source)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return doc, fmt.Errorf("%w: parse %s: %v", ErrInvalidFile, source, err)
	}
	return doc, nil
}

func isFormFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

type storeBuilder struct {
	declared map[string]formFile
	store    *Store
	building map[string]bool
}

// definition builds name after the form it extends.
func (b *storeBuilder) definition(name string) (*form.Definition, error) {
	if def, ok := b.store.definitions[name]; ok {
		return def, nil
	}
	raw, ok := b.declared[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown form %q", ErrInvalidFile, name)
	}
	if b.building[name] {
		return nil, fmt.Errorf("%w: form %q extends itself", ErrInvalidFile, name)
	}
	b.building[name] = true
	defer delete(b.building, name)

	source := b.store.sources[name]
	compiled, err := compileForm(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: form %q: %v", ErrInvalidFile, source, name, err)
	}

	var def *form.Definition
	if parent := strings.TrimSpace(raw.Extends); parent != "" {
		base, err := b.definition(parent)
		if err != nil {
			return nil, err
		}
		def, err = base.Extend(name, compiled)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
	} else {
		def, err = form.New(name, compiled)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
	}
	b.store.definitions[name] = def
	return def, nil
}

// compileForm turns a declaration into a builder callback. Rules are
// compiled up front so the callback itself cannot fail outside the builder.
func compileForm(raw formFile) (func(*form.Builder), error) {
	conventions, err := conventionsFor(raw.Conventions)
	if err != nil {
		return nil, err
	}
	policy, err := policyFor(raw.Schema)
	if err != nil {
		return nil, err
	}
	nodes, err := compileNodes(raw.Fields, "")
	if err != nil {
		return nil, err
	}

	return func(b *form.Builder) {
		if conventions != nil {
			b.Conventions(*conventions)
		}
		if policy != nil {
			b.SchemaPolicy(*policy)
		}
		if raw.Scope != nil {
			b.Scope(*raw.Scope)
		}
		if raw.Method != "" {
			b.Method(raw.Method)
		}
		if raw.Action != "" {
			b.Action(raw.Action)
		}
		if raw.Submit != "" {
			b.Submit(raw.Submit)
		}
		if len(raw.Attrs) > 0 {
			b.HTMLAttrs(raw.Attrs.attrs()...)
		}
		nodes(b)
	}, nil
}

func conventionsFor(name string) (*form.Conventions, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return nil, nil
	case "default":
		c := form.DefaultConventions
		return &c, nil
	case "rails":
		c := form.RailsConventions
		return &c, nil
	case "plain":
		c := form.PlainConventions
		return &c, nil
	}
	return nil, fmt.Errorf("unknown conventions %q", name)
}

func policyFor(name string) (*form.SchemaPolicy, error) {
	var p form.SchemaPolicy
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return nil, nil
	case "declared":
		p = form.SchemaDeclared
	case "rendered":
		p = form.SchemaRendered
	default:
		return nil, fmt.Errorf("unknown schema policy %q", name)
	}
	return &p, nil
}

func compileNodes(nodes []nodeFile, path string) (func(*form.Builder), error) {
	steps := make([]func(*form.Builder), 0, len(nodes))
	for _, node := range nodes {
		where := node.Name
		if path != "" {
			where = path + "." + node.Name
		}
		if strings.TrimSpace(node.Name) == "" {
			return nil, fmt.Errorf("field without a name under %q", path)
		}

		switch strings.ToLower(node.Kind) {
		case "", "element":
			fn, err := compileElement(node)
			if err != nil {
				return nil, fmt.Errorf("element %q: %w", where, err)
			}
			name, redefine := node.Name, node.Redefine
			steps = append(steps, func(b *form.Builder) {
				if redefine {
					b.RedefineElement(name, fn)
					return
				}
				b.Element(name, fn)
			})

		case "subform", "many":
			children, err := compileNodes(node.Fields, where)
			if err != nil {
				return nil, err
			}
			var opts []form.NestedOption
			if node.Default != nil {
				opts = append(opts, form.WithDefault(node.Default))
			}
			if node.RenderIf != "" {
				opts = append(opts, form.RenderIf(node.RenderIf))
			}
			name, redefine, many := node.Name, node.Redefine, strings.EqualFold(node.Kind, "many")
			steps = append(steps, func(b *form.Builder) {
				switch {
				case many && redefine:
					b.RedefineMany(name, children, opts...)
				case many:
					b.Many(name, children, opts...)
				case redefine:
					b.RedefineSubform(name, children, opts...)
				default:
					b.Subform(name, children, opts...)
				}
			})

		default:
			return nil, fmt.Errorf("field %q: unknown kind %q", where, node.Kind)
		}
	}

	return func(b *form.Builder) {
		for _, step := range steps {
			step(b)
		}
	}, nil
}

func compileElement(node nodeFile) (func(*form.ElementBuilder), error) {
	// A redefinition without an input keeps the inherited control.
	input := form.InputType(strings.ToLower(strings.TrimSpace(node.Input)))
	setInput := input != "" || !node.Redefine
	if input == "" {
		input = form.InputText
	}
	if !input.Valid() {
		return nil, fmt.Errorf("unknown input type %q", node.Input)
	}

	rules := make([]params.Rule, 0, len(node.Validates)+1)
	if node.Required {
		rules = append(rules, params.Presence())
	}
	for _, raw := range node.Validates {
		rule, err := compileRule(raw)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	var outputOpts []form.OutputOption
	if node.Of != "" {
		outputOpts = append(outputOpts, form.Of(form.OutputType(node.Of)))
	}
	if node.Default != nil {
		outputOpts = append(outputOpts, form.Default(node.Default))
	}
	if len(rules) > 0 {
		outputOpts = append(outputOpts, form.Validates(rules...))
	}
	output := form.OutputType(node.Output)
	if output == "" && len(outputOpts) > 0 {
		output = form.OutputString
	}

	options := make([]form.Option, 0, len(node.Options))
	for _, opt := range node.Options {
		options = append(options, form.Opt(opt.Value, opt.Label))
	}

	return func(e *form.ElementBuilder) {
		if setInput {
			e.Input(input, node.InputAttrs.attrs()...)
		}
		if output != "" {
			e.Output(output, outputOpts...)
		}
		switch {
		case node.LabelHTML != "":
			e.LabelHTML(node.LabelHTML, node.LabelAttrs.attrs()...)
		case node.Label != nil || len(node.LabelAttrs) > 0:
			text := ""
			if node.Label != nil {
				text = *node.Label
			}
			e.Label(text, node.LabelAttrs.attrs()...)
		}
		if node.HideLabel {
			e.HideLabel()
		}
		if len(options) > 0 {
			e.Options(options...)
		}
		if len(node.Tags) > 0 {
			e.Tags(node.Tags)
		}
		if node.RenderIf != "" {
			e.RenderIf(node.RenderIf)
		}
		if node.RenderWhen != "" {
			e.RenderWhen(node.RenderWhen)
		}
		if node.Detached {
			e.Detached()
		}
		if node.Disabled {
			e.Disabled()
		}
		if node.Readonly {
			e.Readonly()
		}
	}, nil
}

func compileRule(raw ruleFile) (params.Rule, error) {
	var opts []params.RuleOption
	if raw.Message != "" {
		opts = append(opts, params.Message(raw.Message))
	}
	if raw.If != "" {
		opts = append(opts, params.If(raw.If))
	}
	if raw.Unless != "" {
		opts = append(opts, params.Unless(raw.Unless))
	}

	switch strings.ToLower(strings.TrimSpace(raw.Rule)) {
	case "presence":
		return params.Presence(opts...), nil
	case "length":
		minLen, maxLen := -1, -1
		if raw.Minimum != nil {
			minLen = *raw.Minimum
		}
		if raw.Maximum != nil {
			maxLen = *raw.Maximum
		}
		return params.Length(minLen, maxLen, opts...), nil
	case "numericality":
		if raw.Min != nil {
			opts = append(opts, params.Min(*raw.Min))
		}
		if raw.Max != nil {
			opts = append(opts, params.Max(*raw.Max))
		}
		if raw.OnlyInteger {
			opts = append(opts, params.OnlyInteger())
		}
		return params.Numericality(opts...), nil
	case "format":
		pattern, err := regexp.Compile(raw.Pattern)
		if err != nil {
			return params.Rule{}, fmt.Errorf("format pattern: %w", err)
		}
		return params.Format(pattern, opts...), nil
	case "inclusion":
		if len(raw.In) == 0 {
			return params.Rule{}, errors.New("inclusion rule needs \"in\" values")
		}
		return params.Inclusion(raw.In, opts...), nil
	case "confirmation":
		return params.Confirmation(opts...), nil
	}
	return params.Rule{}, fmt.Errorf("unknown rule %q", raw.Rule)
}

func sortedNames[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for name := range m {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
