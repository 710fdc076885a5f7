package validator

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"time"
	"unicode/utf8"

	playground "github.com/go-playground/validator/v10"

	"github.com/shrek82/jrest/model"
)

var tags = playground.New()

// Required fails on zero values, including an absent foreign key.
var Required Rule = newRule(func(v any) error {
	if isZero(v) {
		return errors.New("is required")
	}
	return nil
})

// MinLen checks the rune length of strings. Other kinds pass.
func MinLen(min int) Rule {
	return newRule(func(v any) error {
		if s, ok := v.(string); ok && utf8.RuneCountInString(s) < min {
			return fmt.Errorf("length must be at least %d", min)
		}
		return nil
	})
}

// MaxLen checks the rune length of strings. Other kinds pass.
func MaxLen(max int) Rule {
	return newRule(func(v any) error {
		if s, ok := v.(string); ok && utf8.RuneCountInString(s) > max {
			return fmt.Errorf("length must be at most %d", max)
		}
		return nil
	})
}

// Range checks that an int, double or foreign key lies in [min, max].
func Range(min, max float64) Rule {
	return newRule(func(v any) error {
		f, ok := number(v)
		if !ok {
			return errors.New("is not a number")
		}
		if f < min || f > max {
			return fmt.Errorf("value must be between %v and %v", min, max)
		}
		return nil
	})
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case model.Identifier:
		return float64(n.Int64), n.Valid
	}
	return 0, false
}

// In accepts only the listed values.
func In(values ...any) Rule {
	return newRule(func(v any) error {
		if slices.Contains(values, v) {
			return nil
		}
		return errors.New("value is not in the allowed list")
	})
}

// Regexp matches strings against pattern.
func Regexp(pattern string) Rule {
	re := regexp.MustCompile(pattern)
	return newRule(func(v any) error {
		s, ok := v.(string)
		if !ok || !re.MatchString(s) {
			return errors.New("does not match pattern")
		}
		return nil
	})
}

// Before accepts dates strictly earlier than t.
func Before(t time.Time) Rule {
	return newRule(func(v any) error {
		d, ok := v.(time.Time)
		if !ok || !d.Before(t) {
			return fmt.Errorf("must be before %s", t.Format(time.RFC3339))
		}
		return nil
	})
}

// After accepts dates strictly later than t.
func After(t time.Time) Rule {
	return newRule(func(v any) error {
		d, ok := v.(time.Time)
		if !ok || !d.After(t) {
			return fmt.Errorf("must be after %s", t.Format(time.RFC3339))
		}
		return nil
	})
}

// Tag checks the value with a go-playground validator tag such as
// "email", "url" or "oneof=open closed". Foreign keys are checked as
// their integer value, or nil when absent.
func Tag(tag string) Rule {
	return newRule(func(v any) error {
		if id, ok := v.(model.Identifier); ok {
			v = nil
			if id.Valid {
				v = id.Int64
			}
		}
		if err := tags.Var(v, tag); err != nil {
			var verrs playground.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				return fmt.Errorf("failed on the %q rule", verrs[0].Tag())
			}
			return err
		}
		return nil
	})
}

var (
	Email = Tag("email")
	URL   = Tag("url")
)
