package validator

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shrek82/jrest/model"
)

type account struct {
	model.Base
	Name    string
	Email   string
	Age     int
	Joined  time.Time
	Manager model.Identifier
}

func (a *account) Props() []model.Prop {
	return []model.Prop{
		model.BindString("name", &a.Name),
		model.BindString("email", &a.Email),
		model.BindInt("age", &a.Age),
		model.BindDate("joined", &a.Joined),
		model.BindForeignKey("manager_id", &a.Manager),
	}
}

var accountRules = Rules{
	"name":   {Required.Msg("name is required"), MinLen(2)},
	"email":  {Email.Optional()},
	"age":    {Range(18, 100).Msg("must be adult")},
	"joined": {Before(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))},
}

func TestRules(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		a := &account{Name: "Ann", Email: "ann@example.com", Age: 30, Joined: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
		if err := accountRules.Validate(a); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("OptionalSkipsZero", func(t *testing.T) {
		a := &account{Name: "Ann", Age: 30}
		if err := accountRules.Validate(a); err != nil {
			t.Errorf("empty optional email should pass: %v", err)
		}
	})

	t.Run("Failures", func(t *testing.T) {
		a := &account{Email: "nope", Age: 12, Joined: time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)}
		err := accountRules.Validate(a)

		var verrs ValidationErrors
		if !errors.As(err, &verrs) {
			t.Fatalf("expected ValidationErrors, got %v", err)
		}
		if got := verrs["name"]; len(got) != 2 || got[0].Error() != "name is required" {
			t.Errorf("unexpected name errors: %v", got)
		}
		if got := verrs["age"]; len(got) != 1 || got[0].Error() != "must be adult" {
			t.Errorf("unexpected age errors: %v", got)
		}
		if len(verrs["email"]) != 1 || len(verrs["joined"]) != 1 {
			t.Errorf("expected email and joined failures: %v", verrs)
		}
		if !strings.HasPrefix(err.Error(), "age: must be adult") {
			t.Errorf("errors should be ordered by name: %q", err.Error())
		}
	})
}

func TestRuleModifiers(t *testing.T) {
	onlyLong := MaxLen(3).When(func(v any) bool { return v != "skip-me" })
	if err := onlyLong.Validate("skip-me"); err != nil {
		t.Errorf("When=false should skip, got %v", err)
	}
	if err := onlyLong.Validate("long"); err == nil {
		t.Error("expected max length failure")
	}

	// Modifiers return copies.
	_ = Required.Msg("changed")
	if err := Required.Validate(""); err == nil || err.Error() != "is required" {
		t.Errorf("Required was mutated: %v", err)
	}
}

func TestRulesByKind(t *testing.T) {
	tests := []struct {
		name  string
		rule  Rule
		value any
		ok    bool
	}{
		{"RequiredNone", Required, model.None, false},
		{"RequiredSome", Required, model.Some(1), true},
		{"RequiredZeroTime", Required, time.Time{}, false},
		{"RangeDouble", Range(0, 1), 0.5, true},
		{"RangeString", Range(0, 1), "x", false},
		{"RangeIdentifier", Range(1, 10), model.Some(11), false},
		{"In", In("open", "closed"), "open", true},
		{"NotIn", In("open", "closed"), "lost", false},
		{"Regexp", Regexp(`^[a-z]+$`), "abc", true},
		{"RegexpFail", Regexp(`^[a-z]+$`), "ABC", false},
		{"After", After(time.Unix(0, 0)), time.Now(), true},
		{"URL", URL, "https://example.com/x", true},
		{"TagOneOf", Tag("oneof=low high"), "mid", false},
		{"TagIdentifier", Tag("gt=5"), model.Some(6), true},
		{"MinLenRunes", MinLen(2), "日本", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate(tt.value)
			if (err == nil) != tt.ok {
				t.Errorf("Validate(%v) = %v, want ok=%v", tt.value, err, tt.ok)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	defs := []model.Def{model.String("name"), model.Int("age")}
	if err := (Rules{"name": {Required}}).Check(defs); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := (Rules{"nmae": {Required}, "age": {Required}}).Check(defs)
	if err == nil || !strings.Contains(err.Error(), "nmae") {
		t.Errorf("expected undeclared property error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	denyAll := func(model.Entity) error { return errors.New("denied") }
	a := &account{Name: "Ann", Age: 30}

	if err := Validate(a, accountRules.Validate); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Validate(a, accountRules.Validate, denyAll); err == nil || err.Error() != "denied" {
		t.Errorf("expected second validator to fail, got %v", err)
	}
}
