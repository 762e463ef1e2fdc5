// Package value implements the Variant tagged value that flows through
// the lexer, compiler and virtual machine: Null, Number, Integer,
// Boolean, String, Collection, Guid, ValueType and Buffer.
package value

import (
	"fmt"
	"math"
)

// Type is the tag carried by every Value.
type Type uint8

const (
	Null Type = iota
	Number
	Integer
	Boolean
	String
	Collection
	Guid
	ValueType
	Buffer
)

func (t Type) String() string {
	switch t {
	case Null:
		return "null"
	case Number:
		return "number"
	case Integer:
		return "integer"
	case Boolean:
		return "boolean"
	case String:
		return "string"
	case Collection:
		return "collection"
	case Guid:
		return "guid"
	case ValueType:
		return "type"
	case Buffer:
		return "buffer"
	default:
		return "unknown"
	}
}

// Value is the universal tagged value. Every Value copies by value
// except Collection, whose payload is a reference-shared handle.
type Value struct {
	tag  Type
	num  float64
	i    int64
	b    bool
	s    string
	coll *Coll
	g    GUID
	buf  []byte
	vt   Type // payload when tag == ValueType
}

// NewNull returns the Null value.
func NewNull() Value { return Value{tag: Null} }

// NewNumber wraps a 64-bit float.
func NewNumber(n float64) Value { return Value{tag: Number, num: n} }

// NewInteger wraps a 64-bit signed integer.
func NewInteger(i int64) Value { return Value{tag: Integer, i: i} }

// NewBoolean wraps a boolean.
func NewBoolean(b bool) Value { return Value{tag: Boolean, b: b} }

// NewString wraps a UTF-8 string.
func NewString(s string) Value { return Value{tag: String, s: s} }

// NewCollection wraps a reference-shared ordered collection.
func NewCollection(c *Coll) Value { return Value{tag: Collection, coll: c} }

// NewGUID wraps a 128-bit identifier.
func NewGUID(g GUID) Value { return Value{tag: Guid, g: g} }

// NewValueType wraps a first-class type tag.
func NewValueType(t Type) Value { return Value{tag: ValueType, vt: t} }

// NewBuffer wraps an opaque byte array. Buffer values copy their
// backing slice in NewBuffer and AsBuffer so two Values never
// alias the same bytes (collections are the only reference-shared
// payload in the Variant model).
func NewBuffer(b []byte) Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{tag: Buffer, buf: cp}
}

// Tag reports the value's type tag.
func (v Value) Tag() Type { return v.tag }

// AsNumber returns the float64 payload; only valid when Tag() == Number.
func (v Value) AsNumber() float64 { return v.num }

// AsInteger returns the int64 payload; only valid when Tag() == Integer.
func (v Value) AsInteger() int64 { return v.i }

// AsBoolean returns the bool payload; only valid when Tag() == Boolean.
func (v Value) AsBoolean() bool { return v.b }

// AsString returns the string payload; only valid when Tag() == String.
func (v Value) AsString() string { return v.s }

// AsCollection returns the collection handle; only valid when Tag() == Collection.
func (v Value) AsCollection() *Coll { return v.coll }

// AsGUID returns the GUID payload; only valid when Tag() == Guid.
func (v Value) AsGUID() GUID { return v.g }

// AsValueType returns the wrapped type tag; only valid when Tag() == ValueType.
func (v Value) AsValueType() Type { return v.vt }

// AsBuffer returns a copy of the buffer payload; only valid when Tag() == Buffer.
func (v Value) AsBuffer() []byte {
	cp := make([]byte, len(v.buf))
	copy(cp, v.buf)
	return cp
}

// IsNull reports whether v is the Null value.
func (v Value) IsNull() bool { return v.tag == Null }

// Truthy implements the language's notion of truth for conditional
// opcodes: Boolean uses its own value, Null is always false, Integer
// and Number are true unless zero, String and Collection are true
// unless empty.
func (v Value) Truthy() bool {
	switch v.tag {
	case Null:
		return false
	case Boolean:
		return v.b
	case Integer:
		return v.i != 0
	case Number:
		return v.num != 0
	case String:
		return len(v.s) > 0
	case Collection:
		return v.coll.Len() > 0
	default:
		return true
	}
}

// String renders a value for diagnostics and the `print`-style host
// callbacks; it is not part of the wire format.
func (v Value) String() string {
	switch v.tag {
	case Null:
		return "null"
	case Number:
		return fmt.Sprintf("%g", v.num)
	case Integer:
		return fmt.Sprintf("%d", v.i)
	case Boolean:
		if v.b {
			return "true"
		}
		return "false"
	case String:
		return v.s
	case Collection:
		return v.coll.String()
	case Guid:
		return v.g.String()
	case ValueType:
		return v.vt.String()
	case Buffer:
		return fmt.Sprintf("<buffer %d bytes>", len(v.buf))
	default:
		return "<invalid>"
	}
}

// Equal implements Variant equality: values of differing tags are
// never equal except Number/Integer, which compare numerically so
// `3 == 3.0` holds, matching the lenient coercion spec.md §3 expects
// of the arithmetic/comparison opcodes.
func Equal(a, b Value) bool {
	if a.tag != b.tag {
		if isNumeric(a.tag) && isNumeric(b.tag) {
			return numericOf(a) == numericOf(b)
		}
		return false
	}
	switch a.tag {
	case Null:
		return true
	case Number:
		return a.num == b.num
	case Integer:
		return a.i == b.i
	case Boolean:
		return a.b == b.b
	case String:
		return a.s == b.s
	case Collection:
		return a.coll == b.coll
	case Guid:
		return a.g == b.g
	case ValueType:
		return a.vt == b.vt
	case Buffer:
		if len(a.buf) != len(b.buf) {
			return false
		}
		for i := range a.buf {
			if a.buf[i] != b.buf[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func isNumeric(t Type) bool { return t == Number || t == Integer }

func numericOf(v Value) float64 {
	if v.tag == Integer {
		return float64(v.i)
	}
	return v.num
}

// Compare orders two numeric or string values for the Less/Greater
// family of opcodes. A pair it cannot order is reported as a
// type-mismatch error in the second return value; it does not panic.
func Compare(a, b Value) (int, error) {
	switch {
	case isNumeric(a.tag) && isNumeric(b.tag):
		x, y := numericOf(a), numericOf(b)
		switch {
		case x < y:
			return -1, nil
		case x > y:
			return 1, nil
		default:
			return 0, nil
		}
	case a.tag == String && b.tag == String:
		switch {
		case a.s < b.s:
			return -1, nil
		case a.s > b.s:
			return 1, nil
		default:
			return 0, nil
		}
	default:
		return 0, fmt.Errorf("cannot compare %s and %s", a.tag, b.tag)
	}
}

// HashKey produces a comparable Go value suitable for use as a map
// key, required so Collection can back its ordered map with a plain
// Go map while Value itself holds an unhashable *Coll field.
func HashKey(v Value) (interface{}, error) {
	switch v.tag {
	case Null:
		return nil, nil
	case Number:
		if math.IsNaN(v.num) {
			return nil, fmt.Errorf("NaN is not a valid collection key")
		}
		return v.num, nil
	case Integer:
		return v.i, nil
	case Boolean:
		return v.b, nil
	case String:
		return v.s, nil
	case Guid:
		return v.g, nil
	case ValueType:
		return v.vt, nil
	default:
		return nil, fmt.Errorf("%s is not hashable", v.tag)
	}
}

// Clone returns a value-copy. Collections are reference-shared so
// Clone returns the same handle; every other tag is already a value
// type in Go and needs no special handling beyond the Buffer copy.
func (v Value) Clone() Value {
	if v.tag == Buffer {
		return NewBuffer(v.buf)
	}
	return v
}
