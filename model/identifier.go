package model

import (
	"database/sql/driver"
	"fmt"
	"strconv"
)

// Identifier is an optional entity key. The zero value is absent.
type Identifier struct {
	Int64 int64
	Valid bool
}

// None is the absent identifier.
var None = Identifier{}

// Some returns a present identifier holding id.
func Some(id int64) Identifier {
	return Identifier{Int64: id, Valid: true}
}

// String renders the identifier in its optional form: "some(7)" or "none".
func (i Identifier) String() string {
	if !i.Valid {
		return "none"
	}
	return "some(" + strconv.FormatInt(i.Int64, 10) + ")"
}

// Value implements driver.Valuer.
func (i Identifier) Value() (driver.Value, error) {
	if !i.Valid {
		return nil, nil
	}
	return i.Int64, nil
}

// Scan implements sql.Scanner.
func (i *Identifier) Scan(src any) error {
	id, err := identifierFrom(src)
	if err != nil {
		return err
	}
	*i = id
	return nil
}

func (i Identifier) MarshalJSON() ([]byte, error) {
	if !i.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, i.Int64, 10), nil
}

func (i *Identifier) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		*i = None
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("identifier: %w", err)
	}
	*i = Some(n)
	return nil
}

// identifierFrom accepts the shapes drivers and decoders produce for a
// nullable integer column.
func identifierFrom(src any) (Identifier, error) {
	switch v := src.(type) {
	case nil:
		return None, nil
	case Identifier:
		return v, nil
	case *Identifier:
		if v == nil {
			return None, nil
		}
		return *v, nil
	}
	n, err := intFrom(src)
	if err != nil {
		return None, err
	}
	return Some(int64(n)), nil
}
