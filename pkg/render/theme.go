package render

import (
	"errors"
	"fmt"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// ErrThemeNotFound is returned by ThemeSet for unknown themes or variants.
var ErrThemeNotFound = errors.New("render: theme not found")

// ThemeSelector resolves a theme and variant. go-theme selectors satisfy it.
type ThemeSelector interface {
	Select(name, variant string, opts ...theme.QueryOption) (*theme.Selection, error)
}

// ThemeConfig flattens a selection into renderer configuration. Partials
// start from fallbacks, then manifest templates, then variant templates;
// tokens merge the same way and each token also yields a "--token" CSS var.
func ThemeConfig(selection *theme.Selection, fallbacks map[string]string) *theme.RendererConfig {
	if selection == nil {
		return nil
	}
	cfg := &theme.RendererConfig{
		Theme:    selection.Theme,
		Variant:  selection.Variant,
		Partials: make(map[string]string, len(fallbacks)),
		Tokens:   map[string]string{},
		CSSVars:  map[string]string{},
	}
	for key, value := range fallbacks {
		cfg.Partials[key] = value
	}

	var assets []theme.Assets
	if manifest := selection.Manifest; manifest != nil {
		mergeStrings(cfg.Partials, manifest.Templates)
		mergeStrings(cfg.Tokens, manifest.Tokens)
		if variant, ok := manifest.Variants[selection.Variant]; ok {
			mergeStrings(cfg.Partials, variant.Templates)
			mergeStrings(cfg.Tokens, variant.Tokens)
			assets = append(assets, variant.Assets)
		}
		assets = append(assets, manifest.Assets)
	}
	for key, value := range cfg.Tokens {
		cfg.CSSVars["--"+key] = value
	}
	cfg.AssetURL = assetResolver(assets)
	return cfg
}

// assetResolver looks keys up in the variant assets first. A variant
// without its own prefix uses the manifest prefix.
func assetResolver(layers []theme.Assets) func(string) string {
	prefix := ""
	if len(layers) > 0 {
		prefix = strings.TrimSpace(layers[len(layers)-1].Prefix)
	}
	return func(key string) string {
		for _, layer := range layers {
			file, ok := layer.Files[key]
			if !ok || file == "" {
				continue
			}
			base := prefix
			if p := strings.TrimSpace(layer.Prefix); p != "" {
				base = p
			}
			if base == "" || strings.Contains(file, "://") || strings.HasPrefix(file, "/") {
				return file
			}
			return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(file, "/")
		}
		return ""
	}
}

func mergeStrings(dst, src map[string]string) {
	for key, value := range src {
		dst[key] = value
	}
}

// ThemeToken returns the token stored under key, or fallback.
func ThemeToken(cfg *theme.RendererConfig, key, fallback string) string {
	if cfg == nil || cfg.Tokens == nil {
		return fallback
	}
	if value, ok := cfg.Tokens[key]; ok {
		return value
	}
	return fallback
}

// ThemeSet is an in-memory ThemeSelector over a fixed set of manifests.
type ThemeSet struct {
	manifests      map[string]*theme.Manifest
	defaultTheme   string
	defaultVariant string
}

// NewThemeSet indexes manifests by name. Empty selections resolve to
// defaultTheme and defaultVariant.
func NewThemeSet(defaultTheme, defaultVariant string, manifests ...*theme.Manifest) (*ThemeSet, error) {
	set := &ThemeSet{
		manifests:      make(map[string]*theme.Manifest, len(manifests)),
		defaultTheme:   defaultTheme,
		defaultVariant: defaultVariant,
	}
	for _, manifest := range manifests {
		if manifest == nil || manifest.Name == "" {
			return nil, fmt.Errorf("render: theme manifest name is required")
		}
		if _, dup := set.manifests[manifest.Name]; dup {
			return nil, fmt.Errorf("render: theme %q already registered", manifest.Name)
		}
		set.manifests[manifest.Name] = manifest
	}
	return set, nil
}

// Select implements ThemeSelector. An explicit unknown variant is an error;
// a default variant the manifest lacks resolves to the base theme.
func (s *ThemeSet) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	if name == "" {
		name = s.defaultTheme
	}
	manifest, ok := s.manifests[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrThemeNotFound, name)
	}
	explicit := variant != ""
	if !explicit {
		variant = s.defaultVariant
	}
	if variant != "" {
		if _, ok := manifest.Variants[variant]; !ok {
			if explicit {
				return nil, fmt.Errorf("%w: %q variant %q", ErrThemeNotFound, name, variant)
			}
			variant = ""
		}
	}
	return &theme.Selection{Theme: name, Variant: variant, Manifest: manifest}, nil
}
