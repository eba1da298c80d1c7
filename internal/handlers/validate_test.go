package handlers

import (
	"errors"
	"strings"
	"testing"

	"catalogo/internal/models"
)

func TestCheckStruct(t *testing.T) {
	ptr := func(s string) *string { return &s }
	num := func(n int) *int { return &n }

	tests := []struct {
		name      string
		input     catalogInput
		wantField string
	}{
		{"valid", catalogInput{namesInput: namesInput{NameIT: ptr("Oro")}, Slug: ptr("oro-giallo")}, ""},
		{"empty input", catalogInput{}, ""},
		{"slug with spaces", catalogInput{Slug: ptr("oro giallo")}, "slug"},
		{"slug upper case", catalogInput{Slug: ptr("Oro")}, "slug"},
		{"slug double hyphen", catalogInput{Slug: ptr("oro--giallo")}, "slug"},
		{"slug too long", catalogInput{Slug: ptr(strings.Repeat("a", 101))}, "slug"},
		{"name too long", catalogInput{namesInput: namesInput{NameEN: ptr(strings.Repeat("a", 201))}}, "name_en"},
		{"negative order", catalogInput{SortOrder: num(-1)}, "sort_order"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkStruct(tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verr *validationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want validationError", err)
			}
			if _, ok := verr.fields[tt.wantField]; !ok {
				t.Errorf("fields = %v, want key %q", verr.fields, tt.wantField)
			}
		})
	}
}

func TestFieldMessages(t *testing.T) {
	err := checkStruct(loginRequest{Email: "nope", Password: "", OTP: "12"})
	var verr *validationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want validationError", err)
	}

	want := map[string]string{
		"email":    "must be a valid email address",
		"password": "this field is required",
		"otp":      "must be exactly 6 characters",
	}
	for field, msg := range want {
		if got := verr.fields[field]; got != msg {
			t.Errorf("fields[%q] = %q, want %q", field, got, msg)
		}
	}
}

func TestValidationErrorMessageIsSorted(t *testing.T) {
	err := newValidationError(map[string]string{"slug": "bad", "name_it": "required"})
	want := "invalid request: name_it: required; slug: bad"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestNamesInputApply(t *testing.T) {
	ptr := func(s string) *string { return &s }

	t.Run("full update requires primary", func(t *testing.T) {
		n := models.Names{IT: "Oro"}
		if err := (namesInput{NameEN: ptr("Gold")}).apply(&n, false); err == nil {
			t.Fatal("expected an error without name_it")
		}
	})

	t.Run("partial keeps omitted", func(t *testing.T) {
		n := models.Names{IT: "Oro", EN: "Gold", FR: "Or"}
		if err := (namesInput{NameES: ptr("  Oro  ")}).apply(&n, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n.IT != "Oro" || n.EN != "Gold" || n.FR != "Or" || n.ES != "Oro" {
			t.Errorf("names = %+v", n)
		}
	})

	t.Run("blank primary rejected on patch", func(t *testing.T) {
		n := models.Names{IT: "Oro"}
		if err := (namesInput{NameIT: ptr(" ")}).apply(&n, true); err == nil {
			t.Fatal("expected an error for blank name_it")
		}
		if n.IT != "Oro" {
			t.Errorf("IT changed to %q", n.IT)
		}
	})

	t.Run("secondary may be cleared", func(t *testing.T) {
		n := models.Names{IT: "Oro", EN: "Gold"}
		if err := (namesInput{NameEN: ptr("")}).apply(&n, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n.EN != "" {
			t.Errorf("EN = %q, want empty", n.EN)
		}
	})
}
