package params

import (
	"errors"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/reoring/goskema"
	"github.com/reoring/goskema/i18n"
)

func orderSchema(t *testing.T) *Schema {
	t.Helper()

	item := NewBuilder("item").
		Field("name", KindString, WithRules(Presence())).
		MustBuild()
	customer := NewBuilder("customer").
		Field("name", KindString, WithRules(Presence())).
		MustBuild()

	schema, err := NewBuilder("order").
		Field("name", KindString, WithRules(Presence())).
		Has("customer_attributes", customer, WithDefault(map[string]any{})).
		Each("items_attributes", item, WithDefault([]map[string]any{{}})).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return schema
}

func TestValidateReportsNestedIssuesFirst(t *testing.T) {
	t.Parallel()

	inst := orderSchema(t).New(nil)
	if inst.Valid() {
		t.Fatalf("expected empty order to be invalid")
	}

	want := []string{
		"Customer attributes name can't be blank",
		"Items attributes[0] name can't be blank",
		"Name can't be blank",
	}
	if diff := cmp.Diff(want, inst.Errors().FullMessages()); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}

	issues, ok := AsIssues(inst.Validate())
	if !ok {
		t.Fatalf("expected Issues error")
	}
	if got := issues[1].Attribute; got != "items_attributes[0].name" {
		t.Fatalf("unexpected attribute path %q", got)
	}
	var paths []string
	for _, issue := range issues.Goskema() {
		paths = append(paths, issue.Code+" "+issue.Path)
	}
	wantPaths := []string{"blank /customer_attributes/name", "blank /items_attributes/0/name", "blank /name"}
	if diff := cmp.Diff(wantPaths, paths); diff != "" {
		t.Fatalf("goskema issues mismatch (-want +got):\n%s", diff)
	}
	if got := inst.Each("items_attributes")[0].MessagesFor("name"); len(got) != 1 {
		t.Fatalf("expected row to keep its own issues, got %v", got)
	}
}

func TestValidatePassesWithNestedValues(t *testing.T) {
	t.Parallel()

	inst := orderSchema(t).New(map[string]any{
		"name":                "Order",
		"customer_attributes": map[string]any{"name": "Ada"},
		"items_attributes": map[string]any{
			"1": map[string]any{"name": "second"},
			"0": map[string]any{"name": "first"},
		},
	})
	if err := inst.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	want := map[string]any{
		"name":                "Order",
		"customer_attributes": map[string]any{"name": "Ada"},
		"items_attributes": []map[string]any{
			{"name": "first"},
			{"name": "second"},
		},
	}
	if diff := cmp.Diff(want, inst.Values()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeCollectionOrdersIndexKeys(t *testing.T) {
	t.Parallel()

	rows, ok := NormalizeCollection(map[string]any{
		"10":  map[string]any{"id": "3"},
		"new": map[string]any{"id": "4"},
		"1":   map[string]any{"id": "2"},
		"0":   map[string]any{"id": "1"},
	})
	if !ok {
		t.Fatalf("expected map input to normalise")
	}
	want := []map[string]any{{"id": "1"}, {"id": "2"}, {"id": "3"}, {"id": "4"}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}

	if _, ok := NormalizeCollection("nope"); ok {
		t.Fatalf("expected scalar input to be rejected")
	}
}

func TestConfirmationIssueAfterNestedIssues(t *testing.T) {
	t.Parallel()

	pet := NewBuilder("pet").Field("name", KindString, WithRules(Presence())).MustBuild()
	schema := NewBuilder("registration").
		Each("pets_attributes", pet).
		Field("password", KindString, WithRules(Confirmation())).
		Field("password_confirmation", KindString).
		MustBuild()

	inst := schema.New(map[string]any{
		"pets_attributes":       []any{map[string]any{"name": ""}},
		"password":              "secret",
		"password_confirmation": "other",
	})

	want := []string{
		"Pets attributes[0] name can't be blank",
		"Password confirmation doesn't match Password",
	}
	if diff := cmp.Diff(want, inst.Errors().FullMessages()); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
	if got := inst.MessagesFor("password_confirmation"); len(got) != 1 {
		t.Fatalf("expected confirmation issue on password_confirmation, got %v", got)
	}
}

func TestCoercion(t *testing.T) {
	t.Parallel()

	schema := NewBuilder("info").
		Field("age", KindInteger).
		Field("ratio", KindFloat).
		Field("agree", KindBool).
		Field("birthdate", KindDate).
		Field("starts_at", KindDateTime).
		Field("interests", KindArray, ArrayOf(KindInteger)).
		MustBuild()

	inst := schema.New(map[string]any{
		"age":       "42",
		"ratio":     "0.5",
		"agree":     "1",
		"birthdate": "1990-01-01",
		"starts_at": "2024-03-01T09:30",
		"interests": []any{"", "1", "3"},
	})
	if err := inst.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	want := map[string]any{
		"age":       int64(42),
		"ratio":     0.5,
		"agree":     true,
		"birthdate": time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		"starts_at": time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		"interests": []any{int64(1), int64(3)},
	}
	if diff := cmp.Diff(want, inst.Values()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestCoercionFailureIsInvalid(t *testing.T) {
	t.Parallel()

	schema := NewBuilder("info").
		Field("age", KindInteger, WithRules(Presence())).
		MustBuild()

	inst := schema.New(map[string]any{"age": "forty"})
	want := []string{"Age is invalid"}
	if diff := cmp.Diff(want, inst.Errors().FullMessages()); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
	if inst.Get("age") != nil {
		t.Fatalf("expected invalid value to be dropped")
	}
}

func TestRules(t *testing.T) {
	t.Parallel()

	schema := NewBuilder("car").
		Field("maker_id", KindString, WithRules(Inclusion([]any{1, 2, 3}))).
		Field("seats", KindInteger, WithRules(Numericality(Min(1), Max(9)))).
		Field("code", KindString, WithRules(Length(2, 4), Format(regexp.MustCompile(`^[A-Z]+$`)))).
		Field("nickname", KindString, WithRules(Presence(Message("must be given")))).
		MustBuild()

	inst := schema.New(map[string]any{
		"maker_id": "7",
		"seats":    "12",
		"code":     "abcde",
	})
	want := []string{
		"Maker is not included in the list",
		"Seats must be less than or equal to 9",
		"Code is too long (maximum is 4 characters)",
		"Code is invalid",
		"Nickname must be given",
	}
	if diff := cmp.Diff(want, inst.Errors().FullMessages()); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
}

type resolverFunc func(name string) (Predicate, error)

func (fn resolverFunc) Resolve(name string) (Predicate, error) { return fn(name) }

func TestConditionalRulesResolveThroughOwner(t *testing.T) {
	t.Parallel()

	item := NewBuilder("item").
		Field("name", KindString, WithRules(Presence(If("owner_strict?")))).
		MustBuild()
	schema := NewBuilder("order").Each("items_attributes", item).MustBuild()

	var asked []string
	strict := true
	owner := resolverFunc(func(name string) (Predicate, error) {
		asked = append(asked, name)
		if name != "strict?" {
			return nil, errors.New("missing")
		}
		return func() (bool, error) { return strict, nil }, nil
	})

	inst := schema.New(map[string]any{"items_attributes": []any{map[string]any{}}})
	inst.SetOwner(owner)
	if inst.Valid() {
		t.Fatalf("expected strict owner to require item names")
	}
	if diff := cmp.Diff([]string{"strict?"}, asked); diff != "" {
		t.Fatalf("resolved names mismatch (-want +got):\n%s", diff)
	}

	strict = false
	if !inst.Valid() {
		t.Fatalf("expected lenient owner to skip presence, got %v", inst.Errors().FullMessages())
	}
}

func TestConditionalRuleWithoutOwnerFails(t *testing.T) {
	t.Parallel()

	schema := NewBuilder("order").
		Field("name", KindString, WithRules(Presence(Unless("draft?")))).
		MustBuild()

	err := schema.New(nil).Validate()
	if err == nil {
		t.Fatalf("expected error without owner")
	}
	if _, ok := AsIssues(err); ok {
		t.Fatalf("expected a resolution error, got issues %v", err)
	}
}

func TestErrorsKeepsResolutionFailure(t *testing.T) {
	t.Parallel()

	schema := NewBuilder("order").
		Field("name", KindString, WithRules(Presence(Unless("draft?")))).
		MustBuild()

	inst := schema.New(nil)
	if inst.Errors().Any() {
		t.Fatalf("expected no issues from an interrupted validation")
	}
	if inst.Err() == nil {
		t.Fatalf("expected Err to report the unresolved predicate")
	}

	inst.SetOwner(resolverFunc(func(string) (Predicate, error) {
		return func() (bool, error) { return false, nil }, nil
	}))
	if err := inst.Validate(); err == nil {
		t.Fatalf("expected presence issue once the predicate resolves")
	}
	if inst.Err() != nil {
		t.Fatalf("expected Err to clear after a complete validation, got %v", inst.Err())
	}
}

func TestCoercionAcceptsJSONNumbers(t *testing.T) {
	t.Parallel()

	schema := NewBuilder("info").
		Field("age", KindInteger).
		Field("ratio", KindFloat).
		Field("seats", KindInteger).
		MustBuild()

	inst := schema.New(map[string]any{
		"age":   json.Number("7"),
		"ratio": json.Number("2.5e-1"),
		"seats": " 12 ",
	})
	if err := inst.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	want := map[string]any{"age": int64(7), "ratio": 0.25, "seats": int64(12)}
	if diff := cmp.Diff(want, inst.Values()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestEnglishFallsBackToGoskemaMessages(t *testing.T) {
	t.Parallel()

	var tr i18n.Translator = English()
	if got := tr.Message(CodeBlank, nil); got != "can't be blank" {
		t.Fatalf("unexpected blank message %q", got)
	}
	if got := tr.Message(goskema.CodeUnknownKey, nil); got != "unknown key" {
		t.Fatalf("unexpected goskema message %q", got)
	}
	if got := tr.Message(CodeTooShort, map[string]string{"count": "3"}); got != "is too short (minimum is 3 characters)" {
		t.Fatalf("unexpected too_short message %q", got)
	}
}

func TestExtendCopiesSchema(t *testing.T) {
	t.Parallel()

	base := NewBuilder("user").Field("name", KindString).MustBuild()
	extended, err := base.Extend(func(b *Builder) {
		b.Field("email", KindString, WithRules(Presence()))
	})
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if len(base.Fields()) != 1 {
		t.Fatalf("expected base schema untouched, got %d fields", len(base.Fields()))
	}
	if _, ok := extended.Field("email"); !ok {
		t.Fatalf("expected extended schema to declare email")
	}
}

func TestBuildRejectsInvalidDeclarations(t *testing.T) {
	t.Parallel()

	_, err := NewBuilder("broken").Field("", KindString).Has("child", nil).Build()
	if !errors.Is(err, ErrInvalidSchema) {
		t.Fatalf("expected ErrInvalidSchema, got %v", err)
	}
}

func TestParseFormRoundTrip(t *testing.T) {
	t.Parallel()

	values := url.Values{
		"info[name]":                          {"Bob"},
		"info[agree]":                         {"0", "1"},
		"info[interests][]":                   {"1", "2"},
		"info[pets_attributes][1][name]":      {"Rex"},
		"info[pets_attributes][0][name]":      {"Fido"},
		"info[customer_attributes][birthday]": {"1990-01-01"},
	}
	parsed, err := ParseForm(values)
	if err != nil {
		t.Fatalf("ParseForm: %v", err)
	}
	want := map[string]any{
		"name":      "Bob",
		"agree":     "1",
		"interests": []any{"1", "2"},
		"pets_attributes": map[string]any{
			"0": map[string]any{"name": "Fido"},
			"1": map[string]any{"name": "Rex"},
		},
		"customer_attributes": map[string]any{"birthday": "1990-01-01"},
	}
	if diff := cmp.Diff(want, Scoped(parsed, "info")); diff != "" {
		t.Fatalf("parsed mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFormRejectsConflicts(t *testing.T) {
	t.Parallel()

	_, err := ParseForm(url.Values{"info": {"x"}, "info[name]": {"y"}})
	if !errors.Is(err, ErrMalformedParams) {
		t.Fatalf("expected ErrMalformedParams, got %v", err)
	}
}

func TestParseJSONKeepsIntegers(t *testing.T) {
	t.Parallel()

	parsed, err := ParseJSON([]byte(`{"age": 9007199254740993, "name": "x"}`))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	schema := NewBuilder("info").Field("age", KindInteger).Field("name", KindString).MustBuild()
	inst := schema.New(parsed)
	if err := inst.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := inst.Get("age"); got != int64(9007199254740993) {
		t.Fatalf("unexpected age %v", got)
	}
	if got := inst.String("name"); got != "x" {
		t.Fatalf("unexpected name %q", got)
	}
}

func TestOpenAPIExport(t *testing.T) {
	t.Parallel()

	doc := orderSchema(t).OpenAPI()
	if diff := cmp.Diff([]string{"name"}, doc.Required); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}
	items := doc.Properties["items_attributes"]
	if items == nil || items.Value.Items == nil {
		t.Fatalf("expected items_attributes array property")
	}
	if diff := cmp.Diff([]string{"name"}, items.Value.Items.Value.Required); diff != "" {
		t.Fatalf("row required mismatch (-want +got):\n%s", diff)
	}
}

func TestValidatesAndNestedPatchCopies(t *testing.T) {
	t.Parallel()

	pet := NewBuilder("pet").Field("name", KindString).MustBuild()
	base := NewBuilder("registration").
		Field("email", KindString).
		Each("pets_attributes", pet, WithDefault([]map[string]any{{}})).
		MustBuild()

	patched, err := base.Extend(func(b *Builder) {
		b.Validates("email", Presence())
		b.Nested("pets_attributes", func(nb *Builder) {
			nb.Validates("name", Presence())
		})
	})
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}

	want := []string{"Pets attributes[0] name can't be blank", "Email can't be blank"}
	if diff := cmp.Diff(want, patched.New(nil).Errors().FullMessages()); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
	if !base.New(nil).Valid() {
		t.Fatalf("expected base schema to stay rule free")
	}
}
