package types

import (
	"encoding/json"
	"strconv"
)

// Value is a derived sensor value. A Value that isn't Valid means the value is
// unavailable.
type Value struct {
	Valid   bool    `json:"valid"`
	Numeric bool    `json:"numeric"`
	Number  float64 `json:"number,omitempty"`
	Text    string  `json:"text,omitempty"`
}

// NullValue is an unavailable value.
func NullValue() Value {
	return Value{}
}

// NumberValue returns a numeric value.
func NumberValue(f float64) Value {
	return Value{
		Valid:   true,
		Numeric: true,
		Number:  f,
		Text:    strconv.FormatFloat(f, 'f', -1, 64),
	}
}

// TextValue returns a string value.
func TextValue(s string) Value {
	return Value{Valid: true, Text: s}
}

// ValueOf converts a scalar document into a Value. Objects, lists and null
// are unavailable.
func ValueOf(d Document) Value {
	switch v := d.Raw().(type) {
	case float64:
		return NumberValue(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return TextValue(v.String())
		}
		return NumberValue(f)
	case string:
		return TextValue(v)
	case bool:
		return TextValue(strconv.FormatBool(v))
	}
	return NullValue()
}

// String returns the value as displayed, or "unavailable".
func (v Value) String() string {
	if !v.Valid {
		return "unavailable"
	}
	return v.Text
}

// Any returns the value as a float64, string or nil.
func (v Value) Any() any {
	switch {
	case !v.Valid:
		return nil
	case v.Numeric:
		return v.Number
	default:
		return v.Text
	}
}
