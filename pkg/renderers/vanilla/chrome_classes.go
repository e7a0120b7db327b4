package vanilla

import (
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-actionform/pkg/render"
)

// ChromeClass is a typed identifier for the classes the renderer puts on
// markup it generates itself. Themes override them with "<class>_class"
// tokens.
type ChromeClass string

const (
	ClassForm         ChromeClass = "form"
	ClassFieldErrors  ChromeClass = "field_errors"
	ClassErrorSummary ChromeClass = "error_summary"
	ClassSubmit       ChromeClass = "submit"
	ClassGroup        ChromeClass = "group"
)

// Default*Class values apply when the theme sets no token. Empty defaults
// leave the class attribute off.
const (
	DefaultFieldErrorsClass = "field-errors"
	DefaultGroupClass       = "form-group"
)

var defaultChromeClasses = map[ChromeClass]string{
	ClassFieldErrors: DefaultFieldErrorsClass,
	ClassGroup:       DefaultGroupClass,
}

// TokenKey returns the theme token consulted for c.
func (c ChromeClass) TokenKey() string { return string(c) + "_class" }

func chromeClass(cfg *theme.RendererConfig, c ChromeClass) string {
	return render.ThemeToken(cfg, c.TokenKey(), defaultChromeClasses[c])
}
