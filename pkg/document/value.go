package document

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	// KindNull is the absence of a value (explicit null in the source).
	KindNull Kind = iota

	// KindString is a text scalar.
	KindString

	// KindNumber is a numeric scalar. All source number types (int, float)
	// normalize to float64.
	KindNumber

	// KindBool is a boolean scalar.
	KindBool

	// KindSequence is an ordered list of values.
	KindSequence

	// KindMapping is a string-keyed collection of values. Key order is not
	// significant.
	KindMapping
)

// String returns the lowercase name of the kind, as used in messages and
// serialized findings.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// Value is one node of a configuration tree. Values are immutable after
// construction; the engine shares them freely across goroutines.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	seq  []*Value
	m    map[string]*Value
}

// Null returns the null value.
func Null() *Value { return &Value{kind: KindNull} }

// String returns a string scalar.
func String(s string) *Value { return &Value{kind: KindString, str: s} }

// Number returns a numeric scalar.
func Number(f float64) *Value { return &Value{kind: KindNumber, num: f} }

// Bool returns a boolean scalar.
func Bool(b bool) *Value { return &Value{kind: KindBool, b: b} }

// Sequence returns an ordered sequence of the given elements.
func Sequence(elems ...*Value) *Value { return &Value{kind: KindSequence, seq: elems} }

// Mapping returns a mapping over the given entries.
func Mapping(entries map[string]*Value) *Value { return &Value{kind: KindMapping, m: entries} }

// Kind reports the variant held by the value.
func (v *Value) Kind() Kind { return v.kind }

// IsScalar reports whether the value is a leaf (null, string, number, bool).
func (v *Value) IsScalar() bool {
	return v.kind == KindNull || v.kind == KindString || v.kind == KindNumber || v.kind == KindBool
}

// StringValue returns the text of a string scalar. Zero for other kinds.
func (v *Value) StringValue() string { return v.str }

// NumberValue returns the numeric value of a number scalar. Zero for other kinds.
func (v *Value) NumberValue() float64 { return v.num }

// BoolValue returns the boolean of a bool scalar. False for other kinds.
func (v *Value) BoolValue() bool { return v.b }

// Len returns the element count of a sequence or the entry count of a
// mapping. Zero for scalars.
func (v *Value) Len() int {
	switch v.kind {
	case KindSequence:
		return len(v.seq)
	case KindMapping:
		return len(v.m)
	default:
		return 0
	}
}

// Index returns the i-th element of a sequence, or nil if v is not a
// sequence or i is out of range.
func (v *Value) Index(i int) *Value {
	if v.kind != KindSequence || i < 0 || i >= len(v.seq) {
		return nil
	}
	return v.seq[i]
}

// Elems returns the elements of a sequence in order. Nil for other kinds.
func (v *Value) Elems() []*Value { return v.seq }

// Key returns the entry for name in a mapping.
func (v *Value) Key(name string) (*Value, bool) {
	if v.kind != KindMapping {
		return nil, false
	}
	child, ok := v.m[name]
	return child, ok
}

// Keys returns the mapping keys in sorted order. Sorted order is what makes
// wildcard fan-out over mappings reproducible.
func (v *Value) Keys() []string {
	if v.kind != KindMapping {
		return nil
	}
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports deep structural equality: order-sensitive for sequences,
// key-set plus per-key value equality for mappings.
func (v *Value) Equal(o *Value) bool {
	if v == nil || o == nil {
		return v == o
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindSequence:
		if len(v.seq) != len(o.seq) {
			return false
		}
		for i := range v.seq {
			if !v.seq[i].Equal(o.seq[i]) {
				return false
			}
		}
		return true
	case KindMapping:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, vv := range v.m {
			ov, ok := o.m[k]
			if !ok || !vv.Equal(ov) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders the value for human-readable messages. Numbers print
// without a trailing ".0" when they are integral.
func (v *Value) String() string {
	if v == nil {
		return "<nil>"
	}
	switch v.kind {
	case KindNull:
		return "null"
	case KindString:
		return strconv.Quote(v.str)
	case KindNumber:
		return formatNumber(v.num)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindSequence:
		parts := make([]string, len(v.seq))
		for i, e := range v.seq {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMapping:
		keys := v.Keys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + v.m[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "<unknown>"
	}
}

// Interface converts the value back to plain Go types (nil, string, float64,
// bool, []interface{}, map[string]interface{}), suitable for JSON encoding.
func (v *Value) Interface() interface{} {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindSequence:
		out := make([]interface{}, len(v.seq))
		for i, e := range v.seq {
			out[i] = e.Interface()
		}
		return out
	case KindMapping:
		out := make(map[string]interface{}, len(v.m))
		for k, e := range v.m {
			out[k] = e.Interface()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON encodes the value as its plain Go equivalent.
func (v *Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// FromGo normalizes a decoded Go value (as produced by the JSON, YAML, TOML
// and CUE decoders) into a Value tree.
func FromGo(raw interface{}) (*Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return Number(f), nil
	case time.Time:
		// TOML dates decode to time.Time; keep them addressable as strings.
		return String(t.Format(time.RFC3339)), nil
	case []interface{}:
		elems := make([]*Value, len(t))
		for i, e := range t {
			v, err := FromGo(e)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return Sequence(elems...), nil
	case map[string]interface{}:
		entries := make(map[string]*Value, len(t))
		for k, e := range t {
			v, err := FromGo(e)
			if err != nil {
				return nil, err
			}
			entries[k] = v
		}
		return Mapping(entries), nil
	case map[interface{}]interface{}:
		// YAML mappings may decode with interface{} keys.
		entries := make(map[string]*Value, len(t))
		for k, e := range t {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("unsupported mapping key type %T", k)
			}
			v, err := FromGo(e)
			if err != nil {
				return nil, err
			}
			entries[ks] = v
		}
		return Mapping(entries), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", raw)
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
