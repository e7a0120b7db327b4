package components

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/goliatone/go-actionform/pkg/form"
	rendertemplate "github.com/goliatone/go-actionform/pkg/render/template"
)

// Renderer defines the contract component renderers must satisfy. Implementations
// receive the element and write the control markup (everything after the label)
// into b.
type Renderer func(b *strings.Builder, e *form.Element, data ComponentData) error

// ComponentData carries helpers and configuration for component renderers.
type ComponentData struct {
	Template rendertemplate.TemplateRenderer
	// ThemePartials maps partial keys ("forms.select") to template names.
	ThemePartials map[string]string
	// OptionLabel localises option labels.
	OptionLabel func(form.Option) string
	// Config holds the element tags, for template-backed components.
	Config map[string]any
}

func (d ComponentData) optionLabel(opt form.Option) string {
	if d.OptionLabel != nil {
		return d.OptionLabel(opt)
	}
	return opt.Label
}

// Script describes JavaScript dependencies a component needs to emit once per
// render.
type Script struct {
	Src    string
	Type   string
	Inline string
	Defer  bool
	Module bool
}

// Descriptor bundles the renderer implementation with any asset dependencies.
type Descriptor struct {
	Name        string
	Renderer    Renderer
	Stylesheets []string
	Scripts     []Script
}

// Registry tracks component descriptors keyed by name. Callers can register new
// components or override defaults.
type Registry struct {
	mu         sync.RWMutex
	components map[string]Descriptor
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		components: make(map[string]Descriptor),
	}
}

// Clone copies the registry so a renderer can override components without
// touching the shared defaults.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cloned := New()
	for name, descriptor := range r.components {
		cloned.components[name] = cloneDescriptor(descriptor)
	}
	return cloned
}

// Register associates a descriptor with the provided name. Existing entries are
// replaced.
func (r *Registry) Register(name string, descriptor Descriptor) error {
	if name = normalize(name); name == "" {
		return fmt.Errorf("components: component name is required")
	}
	if descriptor.Renderer == nil {
		return fmt.Errorf("components: renderer for %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	descriptor.Name = name
	r.components[name] = cloneDescriptor(descriptor)
	return nil
}

// MustRegister mirrors Register but panics on error, simplifying default registry
// setup.
func (r *Registry) MustRegister(name string, descriptor Descriptor) {
	if err := r.Register(name, descriptor); err != nil {
		panic(err)
	}
}

// Descriptor fetches a descriptor by name.
func (r *Registry) Descriptor(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	descriptor, ok := r.components[normalize(name)]
	if !ok {
		return Descriptor{}, false
	}
	return cloneDescriptor(descriptor), true
}

// Names returns a sorted slice of registered component names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Assets collects the stylesheets and scripts of the named components, in
// the order the names are given. Each asset appears once.
func (r *Registry) Assets(names []string) (stylesheets []string, scripts []Script) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	styleSeen := make(map[string]bool)
	scriptSeen := make(map[string]bool)
	for _, name := range names {
		descriptor := r.components[normalize(name)]
		for _, href := range descriptor.Stylesheets {
			if href != "" && !styleSeen[href] {
				styleSeen[href] = true
				stylesheets = append(stylesheets, href)
			}
		}
		for _, script := range descriptor.Scripts {
			if key := scriptKey(script); !scriptSeen[key] {
				scriptSeen[key] = true
				scripts = append(scripts, script)
			}
		}
	}
	return stylesheets, scripts
}

// Resolve returns the component name for e: the "component" tag when set,
// otherwise the name derived from the input type.
func Resolve(e *form.Element) string {
	if name, ok := e.Tags()[ComponentTag].(string); ok && strings.TrimSpace(name) != "" {
		return normalize(name)
	}
	switch e.InputType() {
	case form.InputCheckbox:
		return NameCheckbox
	case form.InputRadio:
		return NameRadio
	case form.InputSelect:
		return NameSelect
	case form.InputTextarea:
		return NameTextarea
	}
	return NameInput
}

func cloneDescriptor(src Descriptor) Descriptor {
	return Descriptor{
		Name:        src.Name,
		Renderer:    src.Renderer,
		Stylesheets: slices.Clone(src.Stylesheets),
		Scripts:     slices.Clone(src.Scripts),
	}
}

func scriptKey(script Script) string {
	if script.Src != "" {
		return "src:" + script.Src
	}
	return "inline:" + script.Inline
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
