package render

import (
	"errors"
	"strings"

	"github.com/goliatone/go-actionform/pkg/form"
	"github.com/goliatone/go-actionform/pkg/params"
)

// Tag keys read by the localisation helpers.
const (
	LabelKeyTag  = "label_key"
	SubmitKeyTag = "submit_key"
)

// ErrMissingTranslator is passed to MissingTranslationHandler when a key is
// set but no translator was configured.
var ErrMissingTranslator = errors.New("render: translator not configured")

// Translator resolves localized strings, go-i18n style.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// MissingTranslationHandler decides the string used when a key cannot be
// translated. args[0] carries {"default": fallback}.
type MissingTranslationHandler func(locale, key string, args []any, err error) string

func missingTranslationDefault(_ string, key string, args []any, _ error) string {
	if len(args) > 0 {
		if data, ok := args[0].(map[string]any); ok {
			if fallback := strings.TrimSpace(anyToString(data["default"])); fallback != "" {
				return fallback
			}
		}
	}
	return key
}

// LabelText returns the label of e, translated when the element declares a
// "label_key" tag.
func LabelText(e *form.Element, opts RenderOptions) string {
	fallback := e.LabelText()
	key := strings.TrimSpace(anyToString(e.Tags()[LabelKeyTag]))
	if key == "" {
		return fallback
	}
	return translate(opts.Locale, key, fallback, opts.Translator, opts.onMissing())
}

// OptionLabel translates option labels of the form "t:<key>".
func OptionLabel(opt form.Option, opts RenderOptions) string {
	key, ok := strings.CutPrefix(opt.Label, "t:")
	if !ok {
		return opt.Label
	}
	return translate(opts.Locale, key, key, opts.Translator, opts.onMissing())
}

// SubmitText returns the submit label. A translator is asked for
// "helpers.submit.<action>" first, with the model name as argument.
func SubmitText(f *form.Form, opts RenderOptions) string {
	fallback := f.SubmitValue()
	if opts.Translator == nil {
		return fallback
	}
	key := "helpers.submit." + f.ResourceAction()
	msg, err := opts.Translator.Translate(opts.Locale, key, map[string]any{"model": f.ModelName()})
	if err != nil || strings.TrimSpace(msg) == "" {
		return fallback
	}
	return msg
}

// ParamsTranslator adapts t to the params message contract. Codes are looked
// up under "errors.messages.<code>"; missing keys fall back to English.
func ParamsTranslator(t Translator, locale string) params.Translator {
	english := params.English()
	return params.TranslatorFunc(func(code string, data map[string]string) string {
		if t == nil {
			return english.Message(code, data)
		}
		args := make(map[string]any, len(data))
		for k, v := range data {
			args[k] = v
		}
		msg, err := t.Translate(locale, "errors.messages."+code, args)
		if err != nil || strings.TrimSpace(msg) == "" {
			return english.Message(code, data)
		}
		return params.Interpolate(msg, data)
	})
}

func (o RenderOptions) onMissing() MissingTranslationHandler {
	if o.OnMissing != nil {
		return o.OnMissing
	}
	return missingTranslationDefault
}

func translate(locale, key, fallback string, t Translator, onMissing MissingTranslationHandler) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}

	if t == nil {
		return onMissing(locale, key, []any{map[string]any{"default": fallback}}, ErrMissingTranslator)
	}

	result, err := t.Translate(locale, key)
	if err == nil && strings.TrimSpace(result) != "" {
		return result
	}
	return onMissing(locale, key, []any{map[string]any{"default": fallback}}, err)
}
