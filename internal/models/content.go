package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// RichText is an opaque rich-text document stored as JSON text.
type RichText json.RawMessage

// Value implements driver.Valuer.
func (r RichText) Value() (driver.Value, error) {
	if len(r) == 0 {
		return "null", nil
	}
	return string(r), nil
}

// Scan implements sql.Scanner.
func (r *RichText) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*r = nil
	case []byte:
		*r = append((*r)[:0], v...)
	case string:
		*r = RichText(v)
	default:
		return fmt.Errorf("rich text: unsupported scan type %T", src)
	}
	return nil
}

// MarshalJSON emits the stored document verbatim.
func (r RichText) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// UnmarshalJSON keeps a copy of the raw document.
func (r *RichText) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}
