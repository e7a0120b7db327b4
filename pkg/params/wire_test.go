package params

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/reoring/goskema"
)

func TestWireReportsValidateIssues(t *testing.T) {
	t.Parallel()

	wire, err := orderSchema(t).Wire(nil)
	if err != nil {
		t.Fatalf("Wire: %v", err)
	}
	_, err = wire.Parse(context.Background(), map[string]any{
		"name":             "",
		"items_attributes": map[string]any{"0": map[string]any{"name": ""}},
		"unexpected":       "dropped",
	})
	issues, ok := goskema.AsIssues(err)
	if !ok {
		t.Fatalf("expected goskema issues, got %v", err)
	}
	var got []string
	for _, issue := range issues {
		got = append(got, issue.Code+" "+issue.Path+" "+issue.Message)
	}
	want := []string{
		"blank /customer_attributes/name can't be blank",
		"blank /items_attributes/0/name can't be blank",
		"blank /name can't be blank",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}

	back, ok := AsIssues(err)
	if !ok || back[1].Attribute != "items_attributes[0].name" {
		t.Fatalf("expected pointers to map back to attributes, got %+v", back)
	}
	if msg := back[1].FullMessage(); msg != "Items attributes[0] name can't be blank" {
		t.Fatalf("unexpected full message %q", msg)
	}
}

func TestWireCoercesAndStripsUnknownKeys(t *testing.T) {
	t.Parallel()

	schema := NewBuilder("info").
		Field("age", KindInteger, WithDefault(18)).
		Field("agree", KindBool).
		Field("interests", KindArray, ArrayOf(KindInteger)).
		MustBuild()
	wire, err := schema.Wire(nil)
	if err != nil {
		t.Fatalf("Wire: %v", err)
	}

	got, err := wire.Parse(context.Background(), map[string]any{
		"agree":     "1",
		"interests": []any{"2", "", "3"},
		"token":     "t-1",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := map[string]any{"age": int64(18), "agree": true, "interests": []any{int64(2), int64(3)}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}

	_, err = wire.Parse(context.Background(), map[string]any{"age": "forty"})
	issues, ok := AsIssues(err)
	if !ok || len(issues) != 1 {
		t.Fatalf("expected one issue, got %v", err)
	}
	if issues[0].Code != goskema.CodeInvalidType || issues[0].Attribute != "age" {
		t.Fatalf("unexpected issue %+v", issues[0])
	}
}

func TestWireResolvesPredicatesThroughOwner(t *testing.T) {
	t.Parallel()

	schema := NewBuilder("order").
		Field("name", KindString, WithRules(Presence(Unless("draft?")))).
		MustBuild()
	draft := resolverFunc(func(string) (Predicate, error) {
		return func() (bool, error) { return true, nil }, nil
	})

	wire, err := schema.Wire(draft)
	if err != nil {
		t.Fatalf("Wire: %v", err)
	}
	if _, err := wire.Parse(context.Background(), map[string]any{}); err != nil {
		t.Fatalf("expected drafts to skip presence, got %v", err)
	}
}

func TestWireJSONSchema(t *testing.T) {
	t.Parallel()

	wire, err := NewBuilder("info").
		Field("age", KindInteger, WithDefault(18)).
		Field("birthdate", KindDate).
		Field("interests", KindArray, ArrayOf(KindInteger)).
		Has("car", NewBuilder("car").Field("maker_id", KindInteger).MustBuild()).
		Each("pets", NewBuilder("pet").Field("name", KindString).MustBuild()).
		MustBuild().
		Wire(nil)
	if err != nil {
		t.Fatalf("Wire: %v", err)
	}
	doc, err := wire.JSONSchema()
	if err != nil {
		t.Fatalf("JSONSchema: %v", err)
	}

	got := map[string]string{}
	for name, prop := range doc.Properties {
		got[name] = prop.Type
	}
	want := map[string]string{
		"age":       "integer",
		"birthdate": "string",
		"interests": "array",
		"car":       "object",
		"pets":      "array",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("property types mismatch (-want +got):\n%s", diff)
	}
	if doc.Properties["age"].Default != 18 {
		t.Fatalf("expected age default, got %v", doc.Properties["age"].Default)
	}
	if doc.Properties["birthdate"].Format != "date" {
		t.Fatalf("expected date format, got %q", doc.Properties["birthdate"].Format)
	}
	if doc.Properties["pets"].Items.Properties["name"].Type != "string" {
		t.Fatalf("expected row schema under pets items")
	}
	if doc.Properties["car"].Properties["maker_id"].Type != "integer" {
		t.Fatalf("expected nested car schema")
	}
}
