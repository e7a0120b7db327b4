package render_test

import (
	"errors"
	"testing"

	"github.com/goliatone/go-actionform/pkg/form"
	"github.com/goliatone/go-actionform/pkg/render"
)

type stubTranslator map[string]string

func (t stubTranslator) Translate(_ string, key string, _ ...any) (string, error) {
	if msg, ok := t[key]; ok {
		return msg, nil
	}
	return "", errors.New("missing translation")
}

func TestLabelText(t *testing.T) {
	f := ownerForm(t, storedOwner())
	name := findElement(t, f, "owner[name]")
	pet := findElement(t, f, "owner[pets_attributes][0][name]")

	opts := render.RenderOptions{Locale: "es", Translator: stubTranslator{"owner.name": "Nombre"}}
	if got := render.LabelText(name, opts); got != "Nombre" {
		t.Fatalf("expected translated label, got %q", got)
	}
	if got := render.LabelText(pet, opts); got != "Name" {
		t.Fatalf("elements without a key keep their label, got %q", got)
	}
	if got := render.LabelText(name, render.RenderOptions{}); got != "Name" {
		t.Fatalf("expected fallback without translator, got %q", got)
	}

	var missing []string
	opts.Translator = stubTranslator{}
	opts.OnMissing = func(locale, key string, _ []any, err error) string {
		missing = append(missing, locale+":"+key)
		return "?" + key
	}
	if got := render.LabelText(name, opts); got != "?owner.name" {
		t.Fatalf("expected missing handler result, got %q", got)
	}
	if len(missing) != 1 || missing[0] != "es:owner.name" {
		t.Fatalf("unexpected missing calls %v", missing)
	}
}

func TestOptionAndSubmitText(t *testing.T) {
	tr := stubTranslator{"flavors.vanilla": "Vainilla", "helpers.submit.update": "Guardar"}
	opts := render.RenderOptions{Translator: tr}

	if got := render.OptionLabel(form.Opt("vanilla", "t:flavors.vanilla"), opts); got != "Vainilla" {
		t.Fatalf("unexpected option label %q", got)
	}
	if got := render.OptionLabel(form.Opt("mint", "Mint"), opts); got != "Mint" {
		t.Fatalf("plain labels pass through, got %q", got)
	}

	f := ownerForm(t, storedOwner())
	if got := render.SubmitText(f, opts); got != "Guardar" {
		t.Fatalf("unexpected submit text %q", got)
	}
	if got := render.SubmitText(f, render.RenderOptions{}); got != f.SubmitValue() {
		t.Fatalf("expected default submit text, got %q", got)
	}
}

func TestParamsTranslator(t *testing.T) {
	tr := render.ParamsTranslator(stubTranslator{
		"errors.messages.blank":     "no puede estar en blanco",
		"errors.messages.too_short": "es demasiado corto (%{count} mínimo)",
	}, "es")

	if got := tr.Message("blank", nil); got != "no puede estar en blanco" {
		t.Fatalf("unexpected blank message %q", got)
	}
	if got := tr.Message("too_short", map[string]string{"count": "3"}); got != "es demasiado corto (3 mínimo)" {
		t.Fatalf("unexpected too_short message %q", got)
	}
	if got := tr.Message("inclusion", nil); got != "is not included in the list" {
		t.Fatalf("expected english fallback, got %q", got)
	}
}

func TestTemplateHelpers(t *testing.T) {
	helpers := render.TemplateHelpers(render.RenderOptions{
		Locale:     "es",
		Translator: stubTranslator{"hello": "Hola"},
	})

	translate := helpers["translate"].(func(string, ...string) string)
	if got := translate("hello"); got != "Hola" {
		t.Fatalf("unexpected translation %q", got)
	}
	if got := translate("bye", "Adios"); got != "Adios" {
		t.Fatalf("expected fallback for missing translation, got %q", got)
	}
	if got := translate("bye"); got != "bye" {
		t.Fatalf("expected key for missing translation, got %q", got)
	}
	if got := helpers["locale"]; got != "es" {
		t.Fatalf("unexpected locale %v", got)
	}
}
