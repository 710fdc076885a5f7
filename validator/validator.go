package validator

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/shrek82/jrest/model"
)

// Validator checks an entity and returns an error describing why it is not
// acceptable.
type Validator func(e model.Entity) error

// ValidationErrors maps property names to their failures.
type ValidationErrors map[string][]error

func (v ValidationErrors) Error() string {
	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	slices.Sort(names)

	var sb strings.Builder
	for _, name := range names {
		for _, err := range v[name] {
			if sb.Len() > 0 {
				sb.WriteString("; ")
			}
			fmt.Fprintf(&sb, "%s: %v", name, err)
		}
	}
	return sb.String()
}

// Rule is a single check applied to one property value.
type Rule interface {
	Validate(value any) error
	// Msg replaces the failure message.
	Msg(msg string) Rule
	// Optional skips the check when the value is zero.
	Optional() Rule
	// When runs the check only if fn reports true.
	When(fn func(value any) bool) Rule
}

// rule is the Rule implementation behind every constructor in this package.
type rule struct {
	check    func(value any) error
	msg      string
	optional bool
	when     func(value any) bool
}

func newRule(check func(value any) error) Rule {
	return &rule{check: check}
}

func (r *rule) Validate(value any) error {
	if r.when != nil && !r.when(value) {
		return nil
	}
	if r.optional && isZero(value) {
		return nil
	}
	if err := r.check(value); err != nil {
		if r.msg != "" {
			return errors.New(r.msg)
		}
		return err
	}
	return nil
}

func (r *rule) Msg(msg string) Rule         { nr := *r; nr.msg = msg; return &nr }
func (r *rule) Optional() Rule              { nr := *r; nr.optional = true; return &nr }
func (r *rule) When(fn func(any) bool) Rule { nr := *r; nr.when = fn; return &nr }

// isZero reports absent values: empty strings, zero numbers, the zero time
// and model.None all count.
func isZero(v any) bool {
	if v == nil {
		return true
	}
	return reflect.ValueOf(v).IsZero()
}

// Rules maps declared property names to the rules checked against them.
type Rules map[string][]Rule

// Validate runs the rules against the properties of e. Every failing rule is
// reported; names that e does not declare are ignored.
func (r Rules) Validate(e model.Entity) error {
	if e == nil {
		return nil
	}

	errs := make(ValidationErrors)
	for _, p := range e.Props() {
		rules, ok := r[p.Name()]
		if !ok {
			continue
		}
		val := p.Get()
		for _, rl := range rules {
			if err := rl.Validate(val); err != nil {
				errs[p.Name()] = append(errs[p.Name()], err)
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Check reports rule names that are not among defs. Rules keyed by a typo
// would otherwise never run.
func (r Rules) Check(defs []model.Def) error {
	var unknown []string
	for name := range r {
		if !slices.ContainsFunc(defs, func(d model.Def) bool { return d.Name == name }) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return fmt.Errorf("validator: rules for undeclared properties %s", strings.Join(unknown, ", "))
	}
	return nil
}

// Validate runs validators in order and returns the first failure.
func Validate(e model.Entity, validators ...Validator) error {
	for _, v := range validators {
		if err := v(e); err != nil {
			return err
		}
	}
	return nil
}
