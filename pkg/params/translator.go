package params

import (
	"fmt"
	"strings"

	"github.com/reoring/goskema"
	"github.com/reoring/goskema/i18n"
)

// Message codes produced by the built-in rules. Length codes share
// goskema's names so translators can serve both.
const (
	CodeBlank                = "blank"
	CodeInvalid              = "invalid"
	CodeInclusion            = "inclusion"
	CodeNotANumber           = "not_a_number"
	CodeNotAnInteger         = "not_an_integer"
	CodeGreaterThanOrEqualTo = "greater_than_or_equal_to"
	CodeLessThanOrEqualTo    = "less_than_or_equal_to"
	CodeTooShort             = goskema.CodeTooShort
	CodeTooLong              = goskema.CodeTooLong
	CodeConfirmation         = "confirmation"
)

// Translator retrieves messages for issue codes. data carries interpolation
// values such as "count" or "attribute".
type Translator = i18n.Translator

// TranslatorFunc adapts a function into a Translator.
type TranslatorFunc func(code string, data map[string]string) string

// Message implements Translator.
func (fn TranslatorFunc) Message(code string, data map[string]string) string {
	return fn(code, data)
}

// dictTranslator holds Rails style messages. Codes it does not know, such as
// goskema's invalid_type or unknown_key, go to the goskema translator.
type dictTranslator map[string]string

var english = dictTranslator{
	CodeBlank:                "can't be blank",
	CodeInvalid:              "is invalid",
	CodeInclusion:            "is not included in the list",
	CodeNotANumber:           "is not a number",
	CodeNotAnInteger:         "must be an integer",
	CodeGreaterThanOrEqualTo: "must be greater than or equal to %{count}",
	CodeLessThanOrEqualTo:    "must be less than or equal to %{count}",
	CodeTooShort:             "is too short (minimum is %{count} characters)",
	CodeTooLong:              "is too long (maximum is %{count} characters)",
	CodeConfirmation:         "doesn't match %{attribute}",
}

func (d dictTranslator) Message(code string, data map[string]string) string {
	format, ok := d[code]
	if !ok {
		return i18n.T(code, data)
	}
	return Interpolate(format, data)
}

// English returns the built-in English dictionary.
func English() Translator {
	return english
}

// Interpolate replaces %{key} placeholders with data values.
func Interpolate(format string, data map[string]string) string {
	if len(data) == 0 || !strings.Contains(format, "%{") {
		return format
	}
	pairs := make([]string, 0, len(data)*2)
	for key, value := range data {
		pairs = append(pairs, "%{"+key+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(format)
}

// Humanize converts an attribute path into its display form:
// "password_confirmation" -> "Password confirmation",
// "pets_attributes[0].name" -> "Pets attributes[0] name".
func Humanize(attribute string) string {
	text := strings.TrimSpace(attribute)
	text = strings.ReplaceAll(text, ".", " ")
	text = strings.ReplaceAll(text, "_", " ")
	text = strings.TrimSuffix(text, " id")
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return ""
	}
	return strings.ToUpper(text[:1]) + text[1:]
}

func stringData(data map[string]any) map[string]string {
	if len(data) == 0 {
		return nil
	}
	out := make(map[string]string, len(data))
	for key, value := range data {
		out[key] = fmt.Sprint(value)
	}
	return out
}
