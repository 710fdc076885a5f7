package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shrek82/jrest/model"
)

// Comparison is the operator of a filter.
type Comparison int

const (
	Equals Comparison = iota + 1
	NotEquals
	Less
	Greater
	LessOrEqual
	GreaterOrEqual
)

var (
	ErrComparison = errors.New("unknown comparison")
	// ErrUnknownField is returned by Typed for a field the entity does not declare.
	ErrUnknownField = errors.New("unknown filter field")
)

var comparisonSQL = map[Comparison]string{
	Equals:         "=",
	NotEquals:      "<>",
	Less:           "<",
	Greater:        ">",
	LessOrEqual:    "<=",
	GreaterOrEqual: ">=",
}

// comparisonNames are the short forms accepted by Parse.
var comparisonNames = map[string]Comparison{
	"eq":  Equals,
	"ne":  NotEquals,
	"lt":  Less,
	"gt":  Greater,
	"lte": LessOrEqual,
	"gte": GreaterOrEqual,
}

func (c Comparison) String() string {
	for name, cmp := range comparisonNames {
		if cmp == c {
			return name
		}
	}
	return "cmp(" + strconv.Itoa(int(c)) + ")"
}

// Operator returns the SQL operator of c.
func (c Comparison) Operator() (string, error) {
	op, ok := comparisonSQL[c]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrComparison, int(c))
	}
	return op, nil
}

// Filter scopes a bulk operation to the records whose Field compares to
// Value with Op.
type Filter struct {
	Field string
	Op    Comparison
	Value any
	// Text is the value as written in the query string, set by Parse. Typed
	// reads it instead of Value so "007" can still mean a string.
	Text string
}

// Eq is shorthand for an equality filter.
func Eq(field string, value any) *Filter {
	return &Filter{Field: field, Op: Equals, Value: value}
}

func (f *Filter) String() string {
	if f == nil {
		return "none"
	}
	return fmt.Sprintf("%s:%s:%v", f.Field, f.Op, f.Value)
}

// SQL renders the filter as a condition with one "?" placeholder, quoting
// the column with quote.
func (f *Filter) SQL(quote func(string) string) (string, []any, error) {
	op, err := f.Operator()
	if err != nil {
		return "", nil, err
	}
	if f.Value == nil {
		switch f.Op {
		case Equals:
			return quote(f.Field) + " IS NULL", nil, nil
		case NotEquals:
			return quote(f.Field) + " IS NOT NULL", nil, nil
		}
	}
	return quote(f.Field) + " " + op + " ?", []any{sqlValue(f.Value)}, nil
}

// Operator returns the SQL operator of the filter's comparison.
func (f *Filter) Operator() (string, error) {
	return f.Op.Operator()
}

func sqlValue(v any) any {
	if id, ok := v.(model.Identifier); ok {
		if !id.Valid {
			return nil
		}
		return id.Int64
	}
	return v
}

// Match reports whether a row satisfies the filter. A row without the
// filtered column never matches.
func (f *Filter) Match(r model.Row) (bool, error) {
	got, ok := r[f.Field]
	if !ok {
		return false, nil
	}
	c, comparable, err := compare(got, f.Value)
	if err != nil {
		return false, err
	}
	switch f.Op {
	case Equals:
		return comparable && c == 0, nil
	case NotEquals:
		return !comparable || c != 0, nil
	}
	if !comparable {
		return false, nil
	}
	switch f.Op {
	case Less:
		return c < 0, nil
	case Greater:
		return c > 0, nil
	case LessOrEqual:
		return c <= 0, nil
	case GreaterOrEqual:
		return c >= 0, nil
	}
	return false, fmt.Errorf("%w: %d", ErrComparison, int(f.Op))
}

// compare orders a against b. comparable is false when the values are of
// unrelated shapes (or either is NULL), in which case only NotEquals holds.
func compare(a, b any) (c int, comparable bool, err error) {
	a, b = sqlValue(a), sqlValue(b)
	if a == nil || b == nil {
		return 0, a == nil && b == nil, nil
	}

	if x, ok := toFloat(a); ok {
		if y, ok := toFloat(b); ok {
			switch {
			case x < y:
				return -1, true, nil
			case x > y:
				return 1, true, nil
			}
			return 0, true, nil
		}
		return 0, false, nil
	}

	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), true, nil
		}
	case []byte:
		if y, ok := b.(string); ok {
			return strings.Compare(string(x), y), true, nil
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), true, nil
		}
	}
	return 0, false, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Parse reads a filter of the form "field:op:value", op being one of
// eq, ne, lt, gt, lte, gte. Integral and decimal values become numbers,
// "null" becomes nil, anything else stays a string.
func Parse(raw string) (*Filter, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 || parts[0] == "" {
		return nil, fmt.Errorf("filter %q: want field:op:value", raw)
	}
	op, ok := comparisonNames[strings.ToLower(parts[1])]
	if !ok {
		return nil, fmt.Errorf("filter %q: %w %q", raw, ErrComparison, parts[1])
	}
	return &Filter{Field: parts[0], Op: op, Value: parseValue(parts[2]), Text: parts[2]}, nil
}

func parseValue(s string) any {
	if s == "null" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// Typed returns a copy of f whose value has the kind declared for its field
// in defs. The field must be the identifier column or a declared property,
// otherwise ErrUnknownField is returned.
func (f *Filter) Typed(defs []model.Def) (*Filter, error) {
	kind, ok := kindOf(f.Field, defs)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownField, f.Field)
	}

	out := *f
	text := f.Text
	if text == "" {
		if f.Value == nil || fits(f.Value, kind) {
			return &out, nil
		}
		text = fmt.Sprint(f.Value)
	}
	v, err := valueOf(kind, text)
	if err != nil {
		return nil, fmt.Errorf("filter %s: %s value %q: %w", f.Field, kind, text, err)
	}
	out.Value = v
	return &out, nil
}

func kindOf(field string, defs []model.Def) (model.Kind, bool) {
	if field == model.IDColumn {
		return model.KindInt, true
	}
	for _, d := range defs {
		if d.Name == field {
			return d.Kind, true
		}
	}
	return 0, false
}

func fits(v any, kind model.Kind) bool {
	switch v.(type) {
	case int, int64:
		return kind == model.KindInt || kind == model.KindDouble || kind == model.KindForeignKey
	case float64:
		return kind == model.KindDouble
	case string:
		return kind == model.KindString
	case time.Time:
		return kind == model.KindDate
	case model.Identifier:
		return kind == model.KindForeignKey
	}
	return false
}

// valueOf reads text as a value of kind. "null" is nil for every kind.
func valueOf(kind model.Kind, text string) (any, error) {
	if text == "null" {
		return nil, nil
	}
	switch kind {
	case model.KindInt:
		return strconv.ParseInt(text, 10, 64)
	case model.KindDouble:
		return strconv.ParseFloat(text, 64)
	case model.KindDate:
		return time.Parse(time.RFC3339Nano, text)
	case model.KindForeignKey:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, err
		}
		return model.Some(n), nil
	}
	return text, nil
}
