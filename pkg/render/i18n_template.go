package render

// TemplateHelpers returns values wrapper templates can call, bound to the
// locale and translator of opts:
//
//	{{ translate("forms.hint", "Optional") }}
//	{{ locale }}
//
// translate falls back through opts.OnMissing, so a missing key renders the
// fallback (or the key when none is given).
func TemplateHelpers(opts RenderOptions) map[string]any {
	onMissing := opts.onMissing()
	return map[string]any{
		"locale": opts.Locale,
		"translate": func(key string, fallback ...string) string {
			def := key
			if len(fallback) > 0 {
				def = fallback[0]
			}
			return translate(opts.Locale, key, def, opts.Translator, onMissing)
		},
	}
}
