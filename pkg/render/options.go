package render

import (
	theme "github.com/goliatone/go-theme"
)

// RenderOptions describe per-request data that renderers can use to customise
// their output without touching the form definition.
type RenderOptions struct {
	// Helpers supplies the authenticity token and the default form action.
	Helpers Helpers
	// Theme carries resolved partials, tokens and assets. Vanilla reads class
	// names from Theme.Tokens.
	Theme *theme.RendererConfig
	// FormErrors are appended to the messages reported by the form itself.
	FormErrors []string
	// Errors surfaces server-side feedback keyed by field path
	// ("pets_attributes[0].name", "/pets_attributes/0/name" or the HTML name).
	// Paths that match no element become form-level messages.
	Errors map[string][]string
	// HiddenFields are emitted after the method field, sorted by name.
	HiddenFields map[string]string
	// Subset limits rendering to matching elements.
	Subset FieldSubset
	// Locale and Translator localise labels that declare a "label_key" tag.
	Locale     string
	Translator Translator
	OnMissing  MissingTranslationHandler
}
