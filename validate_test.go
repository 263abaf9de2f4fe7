package plasm_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/reoring/plasm"
	g "github.com/reoring/plasm/dsl"
)

func TestValidate_MissingRequired(t *testing.T) {
	cs := plasm.Cast(letter, []string{"id", "document"}, map[string]any{"id": int64(123)})
	res := plasm.Validate(cs)
	errs, ok := res.Errors()
	if !ok {
		t.Fatalf("expected validation errors")
	}
	if !reflect.DeepEqual(errs, plasm.ValidationErrors{"document": plasm.CodeRequired}) {
		t.Fatalf("got %v", errs)
	}
}

func TestValidate_UndefinedRequiredField(t *testing.T) {
	// A nil value that bypassed Cast counts as missing.
	cs := plasm.Changeset{Schema: letter, Values: map[string]any{"id": int64(123), "document": nil}}
	errs, ok := plasm.Validate(cs).Errors()
	if !ok || !reflect.DeepEqual(errs, plasm.ValidationErrors{"document": plasm.CodeRequired}) {
		t.Fatalf("got %v", errs)
	}
}

func TestValidate_UndefinedOptionalFieldIsSkipped(t *testing.T) {
	cs := plasm.Changeset{Schema: letter, Values: map[string]any{"document": "d", "recipients": nil}}
	if res := plasm.Validate(cs); res.Failed() {
		t.Fatalf("nil optional value must be skipped, got %v", res.Payload())
	}
}

func TestValidate_RequiredShortCircuitsFieldValidation(t *testing.T) {
	cs := plasm.Changeset{Schema: letter, Values: map[string]any{"id": "not-an-int"}}
	errs, _ := plasm.Validate(cs).Errors()
	for k, v := range errs {
		if v != plasm.CodeRequired {
			t.Fatalf("only required entries expected, got %s=%s", k, v)
		}
	}
	if len(errs) != 1 {
		t.Fatalf("got %v", errs)
	}
}

func TestValidate_ReportsFailingFields(t *testing.T) {
	cs := plasm.Changeset{Schema: letter, Values: map[string]any{
		"id":         "13",
		"document":   "fine",
		"recipients": 42,
	}}
	errs, ok := plasm.Validate(cs).Errors()
	want := plasm.ValidationErrors{"id": plasm.CodeValidation, "recipients": plasm.CodeValidation}
	if !ok || !reflect.DeepEqual(errs, want) {
		t.Fatalf("got %v want %v", errs, want)
	}
}

func TestValidate_ReturnsChangesetWhenValid(t *testing.T) {
	cs := plasm.Cast(letter, []string{"id", "document"}, map[string]any{"id": int64(123), "document": "stuff"})
	res := plasm.Validate(cs)
	e, ok := res.Entity()
	if !ok {
		t.Fatalf("expected success, got %v", res.Payload())
	}
	if !reflect.DeepEqual(e.Values, cs.Values) || e.Schema != letter {
		t.Fatalf("got %v want %v", e.Values, cs.Values)
	}
}

func TestValidate_ExplicitNullCannotUnsetRequired(t *testing.T) {
	cs := plasm.Cast(letter, []string{"document"}, map[string]any{"document": nil},
		plasm.CastOpt{Presence: plasm.PresenceExplicit})
	errs, ok := plasm.Validate(cs).Errors()
	if !ok || errs["document"] != plasm.CodeRequired {
		t.Fatalf("got %v", errs)
	}
}

func TestValidate_OnlyStringsValidateForStringField(t *testing.T) {
	e := g.Schema("entity").Field("field", g.String()).MustBuild()
	cases := []struct {
		in any
		ok bool
	}{
		{"isstring", true},
		{int64(13), false},
		{true, false},
		{map[string]any{"test": "stuff"}, false},
	}
	for _, c := range cases {
		res := plasm.Validate(plasm.Cast(e, []string{"field"}, map[string]any{"field": c.in}))
		if res.Failed() == c.ok {
			t.Errorf("validating %v: got %v", c.in, res.Payload())
		}
		if !c.ok && res.Payload()["field"] != plasm.CodeValidation {
			t.Errorf("validating %v: expected validation code, got %v", c.in, res.Payload())
		}
	}
}

func TestValidate_OnlyIntegersValidateForIntegerField(t *testing.T) {
	e := g.Schema("entity").Field("field", g.Integer()).MustBuild()
	cases := []struct {
		in any
		ok bool
	}{
		{"isstring", false},
		{int64(13), true},
		{13, true},
		{true, false},
		{map[string]any{"test": "stuff"}, false},
		{14.55, false},
	}
	for _, c := range cases {
		res := plasm.Validate(plasm.Cast(e, []string{"field"}, map[string]any{"field": c.in}))
		if res.Failed() == c.ok {
			t.Errorf("validating %v: got %v", c.in, res.Payload())
		}
		if c.ok && res.Payload()["field"] != c.in {
			t.Errorf("validating %v: expected value back, got %v", c.in, res.Payload())
		}
	}
}

func TestValidation_PassesFailedResultThrough(t *testing.T) {
	in := plasm.Invalid(plasm.ValidationErrors{"description": plasm.CodeRequired})
	out, err := plasm.Validation(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := out.Errors()
	want, _ := in.Errors()
	if reflect.ValueOf(got).Pointer() != reflect.ValueOf(want).Pointer() {
		t.Fatalf("failed result must be passed through unchanged")
	}
}
