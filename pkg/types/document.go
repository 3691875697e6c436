package types

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Document is a semi-structured JSON value returned by the provider. Provider
// payloads are only partially stable so every accessor tolerates missing keys
// and unexpected types by returning a null Document or a false ok value.
type Document struct {
	v any
}

// NewDocument wraps an already decoded JSON value.
func NewDocument(v any) Document {
	return Document{v: v}
}

// ParseDocument decodes data into a Document.
func ParseDocument(data []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return Document{}, err
	}
	return d, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Document) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	d.v = v
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.v)
}

// Raw returns the underlying decoded value.
func (d Document) Raw() any {
	return d.v
}

// IsNull is true if the document is missing or JSON null.
func (d Document) IsNull() bool {
	return d.v == nil
}

// IsObject is true if the document is a JSON object.
func (d Document) IsObject() bool {
	_, ok := d.v.(map[string]any)
	return ok
}

// IsList is true if the document is a JSON array.
func (d Document) IsList() bool {
	_, ok := d.v.([]any)
	return ok
}

// Get returns the value under key, or a null Document if d isn't an object or
// the key is absent.
func (d Document) Get(key string) Document {
	m, ok := d.v.(map[string]any)
	if !ok {
		return Document{}
	}
	return Document{v: m[key]}
}

// Path follows keys through nested objects.
func (d Document) Path(keys ...string) Document {
	for _, k := range keys {
		d = d.Get(k)
	}
	return d
}

// Index returns the i-th element of a list or a null Document.
func (d Document) Index(i int) Document {
	l, ok := d.v.([]any)
	if !ok || i < 0 || i >= len(l) {
		return Document{}
	}
	return Document{v: l[i]}
}

// Len returns the number of elements of a list or keys of an object.
func (d Document) Len() int {
	switch v := d.v.(type) {
	case []any:
		return len(v)
	case map[string]any:
		return len(v)
	}
	return 0
}

// List returns the elements of a list, or nil if d isn't a list.
func (d Document) List() []Document {
	l, ok := d.v.([]any)
	if !ok {
		return nil
	}
	docs := make([]Document, len(l))
	for i, v := range l {
		docs[i] = Document{v: v}
	}
	return docs
}

// Find returns the first list element matching fn, or a null Document.
func (d Document) Find(fn func(Document) bool) Document {
	for _, e := range d.List() {
		if fn(e) {
			return e
		}
	}
	return Document{}
}

// Truthy reports whether d holds a non-empty value. Null, false, zero, the empty
// string and empty lists/objects are not truthy.
func (d Document) Truthy() bool {
	switch v := d.v.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0
	case json.Number:
		f, err := v.Float64()
		return err != nil || f != 0
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	}
	return true
}

// Or returns d if it's truthy, otherwise other.
func (d Document) Or(other Document) Document {
	if d.Truthy() {
		return d
	}
	return other
}

// String returns the value if d is a JSON string.
func (d Document) String() (string, bool) {
	s, ok := d.v.(string)
	return s, ok
}

// Text returns a string for scalar values and "" otherwise.
func (d Document) Text() string {
	switch v := d.v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// Float returns the value as a float64 for numbers and numeric strings.
func (d Document) Float() (float64, bool) {
	switch v := d.v.(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// Equal compares the JSON encoding of two documents.
func (d Document) Equal(other Document) bool {
	a, errA := json.Marshal(d.v)
	b, errB := json.Marshal(other.v)
	return errA == nil && errB == nil && bytes.Equal(a, b)
}
