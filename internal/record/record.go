// Package record holds the field-ordered records fetched from the remote
// source.
//
// The key order of a record is the order in which the remote emitted the
// fields; the table columns are derived from it.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// Record is a single row: an ordered mapping from field name to a scalar
// value (string, float64, bool or nil).
type Record struct {
	fields *orderedmap.OrderedMap[string, any]
}

// Dataset is the ordered list of records. Its index is the identity used
// for removal.
type Dataset []*Record

// New returns an empty record.
func New() *Record {
	return &Record{fields: orderedmap.New[string, any]()}
}

// FromPairs builds a record from alternating key and value arguments.
//
// It is mostly useful in tests.
func FromPairs(kv ...any) *Record {
	if len(kv)%2 != 0 {
		panic("record.FromPairs: odd number of arguments")
	}
	r := New()
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("record.FromPairs: key %v is not a string", kv[i]))
		}
		r.Set(k, kv[i+1])
	}
	return r
}

// Set stores a value, keeping the original position when the key exists.
func (r *Record) Set(key string, value any) {
	if r.fields == nil {
		r.fields = orderedmap.New[string, any]()
	}
	r.fields.Set(key, value)
}

// Get returns the value of a field.
func (r *Record) Get(key string) (any, bool) {
	if r == nil || r.fields == nil {
		return nil, false
	}
	return r.fields.Get(key)
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil || r.fields == nil {
		return 0
	}
	return r.fields.Len()
}

// Keys returns the field names in order.
func (r *Record) Keys() []string {
	if r == nil || r.fields == nil {
		return []string{}
	}
	keys := make([]string, 0, r.fields.Len())
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// String returns the display form of a field. Missing and null fields are
// the empty string.
func (r *Record) String(key string) string {
	v, ok := r.Get(key)
	if !ok {
		return ""
	}
	return Stringify(v)
}

// Stringify converts a scalar value to its display form.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// Clone returns a shallow copy.
func (r *Record) Clone() *Record {
	c := New()
	if r == nil || r.fields == nil {
		return c
	}
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		c.fields.Set(pair.Key, pair.Value)
	}
	return c
}

// MarshalJSON implements json.Marshaler preserving field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	if r == nil || r.fields == nil {
		return []byte("{}"), nil
	}
	return r.fields.MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler preserving field order.
func (r *Record) UnmarshalJSON(data []byte) error {
	m := orderedmap.New[string, any]()
	if err := m.UnmarshalJSON(data); err != nil {
		return err
	}
	r.fields = m
	return nil
}

// MarshalYAML implements yaml.Marshaler preserving field order.
func (r *Record) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	if r == nil || r.fields == nil {
		return n, nil
	}
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		k := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: pair.Key}
		v := &yaml.Node{}
		if err := v.Encode(pair.Value); err != nil {
			return nil, fmt.Errorf("failed to encode field %q: %w", pair.Key, err)
		}
		n.Content = append(n.Content, k, v)
	}
	return n, nil
}

// Decode parses a JSON array of objects.
func Decode(data []byte) (Dataset, error) {
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, err
	}
	if ds == nil {
		return nil, errors.New("expected a JSON array, got null")
	}
	for i, r := range ds {
		if r == nil {
			return nil, fmt.Errorf("record %d is null", i)
		}
	}
	return ds, nil
}

// Encode serializes a dataset as a JSON array. A nil dataset encodes as [].
func Encode(ds Dataset) ([]byte, error) {
	if ds == nil {
		ds = Dataset{}
	}
	return json.Marshal(ds)
}
