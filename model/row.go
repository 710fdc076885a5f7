package model

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Row is a persisted record keyed by column name, as read from or written to
// a store.
type Row map[string]any

// dateLayouts are the textual date forms drivers hand back when a column is
// not decoded to time.Time (sqlite text columns, mysql without parseTime).
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (r Row) lookup(name string) (any, error) {
	v, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	return v, nil
}

func columnErr(name string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrColumnType, name, err)
}

// Int reads an integer column.
func (r Row) Int(name string) (int, error) {
	v, err := r.lookup(name)
	if err != nil {
		return 0, err
	}
	n, err := intFrom(v)
	if err != nil {
		return 0, columnErr(name, err)
	}
	return n, nil
}

// Text reads a text column.
func (r Row) Text(name string) (string, error) {
	v, err := r.lookup(name)
	if err != nil {
		return "", err
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	}
	return "", columnErr(name, fmt.Errorf("want text, got %T", v))
}

// Double reads a floating point column.
func (r Row) Double(name string) (float64, error) {
	v, err := r.lookup(name)
	if err != nil {
		return 0, err
	}
	f, err := floatFrom(v)
	if err != nil {
		return 0, columnErr(name, err)
	}
	return f, nil
}

// Date reads a date column.
func (r Row) Date(name string) (time.Time, error) {
	v, err := r.lookup(name)
	if err != nil {
		return time.Time{}, err
	}
	t, err := dateFrom(v)
	if err != nil {
		return time.Time{}, columnErr(name, err)
	}
	return t, nil
}

// Identifier reads a nullable integer column. A NULL value yields None.
func (r Row) Identifier(name string) (Identifier, error) {
	v, err := r.lookup(name)
	if err != nil {
		return None, err
	}
	id, err := identifierFrom(v)
	if err != nil {
		return None, columnErr(name, err)
	}
	return id, nil
}

// Set writes a column value.
func (r Row) Set(name string, v any) {
	r[name] = v
}

// Columns returns the column names of the row in no particular order.
func (r Row) Columns() []string {
	cols := make([]string, 0, len(r))
	for c := range r {
		cols = append(cols, c)
	}
	return cols
}

func int64From(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("integer %d overflows int64", n)
		}
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("non-integral number %v", n)
		}
		return int64(n), nil
	case []byte:
		return strconv.ParseInt(string(n), 10, 64)
	case string:
		return strconv.ParseInt(n, 10, 64)
	}
	return 0, fmt.Errorf("want integer, got %T", v)
}

func intFrom(v any) (int, error) {
	n, err := int64From(v)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt || n < math.MinInt {
		return 0, fmt.Errorf("integer %d overflows int", n)
	}
	return int(n), nil
}

func floatFrom(v any) (float64, error) {
	switch f := v.(type) {
	case float64:
		return f, nil
	case float32:
		return float64(f), nil
	case int64:
		return float64(f), nil
	case int:
		return float64(f), nil
	case []byte:
		return strconv.ParseFloat(string(f), 64)
	case string:
		return strconv.ParseFloat(f, 64)
	}
	return 0, fmt.Errorf("want number, got %T", v)
}

func dateFrom(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case []byte:
		return parseDate(string(t))
	case string:
		return parseDate(t)
	}
	return time.Time{}, fmt.Errorf("want date, got %T", v)
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
