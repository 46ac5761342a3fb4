package value

import (
	"fmt"
	"sort"
	"strconv"
)

// Value is a sealed interface over the supported field value types.
type Value interface {
	value() // Sealed - only types in this package implement it
}

// Null represents a JSON null.
type Null struct{}

func (Null) value() {}

// String represents a string value.
type String string

func (String) value() {}

// Int represents an integer value.
type Int int64

func (Int) value() {}

// Float represents a non-integral number.
// JSON numbers that fit in int64 always decode to Int.
type Float float64

func (Float) value() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) value() {}

// Array represents an ordered list of values.
type Array []Value

func (Array) value() {}

// Object represents a map of field names to values.
// Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) value() {}

// SortedKeys returns the object's keys in ascending byte order.
func (o Object) SortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy of the object.
func (o Object) Clone() Object {
	out := make(Object, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// IsNull reports whether v is absent or JSON null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// TypeName returns a short name for v's type, for error messages.
func TypeName(v Value) string {
	switch v.(type) {
	case nil:
		return "absent"
	case Null:
		return "null"
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// AsString returns v as a Go string.
func AsString(v Value) (string, error) {
	s, ok := v.(String)
	if !ok {
		return "", fmt.Errorf("expected string, got %s", TypeName(v))
	}
	return string(s), nil
}

// AsInt returns v as an int64. Floats with no fractional part are accepted.
func AsInt(v Value) (int64, error) {
	switch val := v.(type) {
	case Int:
		return int64(val), nil
	case Float:
		if float64(val) == float64(int64(val)) {
			return int64(val), nil
		}
	}
	return 0, fmt.Errorf("expected int, got %s", TypeName(v))
}

// AsFloat returns v as a float64. Ints are widened.
func AsFloat(v Value) (float64, error) {
	switch val := v.(type) {
	case Float:
		return float64(val), nil
	case Int:
		return float64(val), nil
	}
	return 0, fmt.Errorf("expected number, got %s", TypeName(v))
}

// AsBool returns v as a Go bool.
func AsBool(v Value) (bool, error) {
	b, ok := v.(Bool)
	if !ok {
		return false, fmt.Errorf("expected bool, got %s", TypeName(v))
	}
	return bool(b), nil
}

// Text renders a scalar value as plain text. Composite values render as
// their JSON encoding; Null renders as the empty string.
func Text(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return ""
	case String:
		return string(val)
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(val))
	default:
		data, err := Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// Equal reports whether a and b hold the same value.
// Int and Float compare numerically.
func Equal(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	switch av := a.(type) {
	case Int, Float:
		af, err := AsFloat(av)
		if err != nil {
			return false
		}
		bf, err := AsFloat(b)
		return err == nil && af == bf
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, x := range av {
			y, ok := bv[k]
			if !ok || !Equal(x, y) {
				return false
			}
		}
		return true
	}
	return false
}
