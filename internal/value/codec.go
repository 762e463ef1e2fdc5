package value

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Encode serializes v per spec.md §6: one value-type tag byte followed
// by a fixed or length-prefixed payload. Buffer is intentionally
// outside the round-trip guarantee (spec.md §8) and is not emitted
// here; callers needing to persist a Buffer must do so out of band.
func Encode(w *bytes.Buffer, v Value) error {
	w.WriteByte(byte(v.tag))
	switch v.tag {
	case Null:
		return nil
	case Number:
		return binary.Write(w, binary.LittleEndian, math.Float64bits(v.num))
	case Integer:
		return binary.Write(w, binary.LittleEndian, uint64(v.i))
	case Boolean:
		if v.b {
			w.WriteByte(1)
		} else {
			w.WriteByte(0)
		}
		return nil
	case String:
		return writeString(w, v.s)
	case Collection:
		entries := v.coll.Entries()
		if err := binary.Write(w, binary.LittleEndian, uint32(len(entries))); err != nil {
			return err
		}
		for _, e := range entries {
			if err := Encode(w, e.Key); err != nil {
				return err
			}
			if err := Encode(w, e.Value); err != nil {
				return err
			}
		}
		return nil
	case Guid:
		b := v.g.Bytes()
		_, err := w.Write(b[:])
		return err
	case ValueType:
		w.WriteByte(byte(v.vt))
		return nil
	case Buffer:
		return fmt.Errorf("value: Buffer is not serializable")
	default:
		return fmt.Errorf("value: unknown tag %d", v.tag)
	}
}

// Decode deserializes a Value previously written by Encode.
func Decode(r *bytes.Reader) (Value, error) {
	tagByte, err := r.ReadByte()
	if err != nil {
		return Value{}, err
	}
	tag := Type(tagByte)
	switch tag {
	case Null:
		return NewNull(), nil
	case Number:
		var bits uint64
		if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
			return Value{}, err
		}
		return NewNumber(math.Float64frombits(bits)), nil
	case Integer:
		var bits uint64
		if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
			return Value{}, err
		}
		return NewInteger(int64(bits)), nil
	case Boolean:
		b, err := r.ReadByte()
		if err != nil {
			return Value{}, err
		}
		return NewBoolean(b != 0), nil
	case String:
		s, err := readString(r)
		if err != nil {
			return Value{}, err
		}
		return NewString(s), nil
	case Collection:
		var count uint32
		if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
			return Value{}, err
		}
		coll := NewColl()
		for i := uint32(0); i < count; i++ {
			k, err := Decode(r)
			if err != nil {
				return Value{}, err
			}
			v, err := Decode(r)
			if err != nil {
				return Value{}, err
			}
			if err := coll.Set(k, v); err != nil {
				return Value{}, err
			}
		}
		return NewCollection(coll), nil
	case Guid:
		var raw [16]byte
		if _, err := r.Read(raw[:]); err != nil {
			return Value{}, err
		}
		return NewGUID(GUIDFromBytes(raw)), nil
	case ValueType:
		b, err := r.ReadByte()
		if err != nil {
			return Value{}, err
		}
		return NewValueType(Type(b)), nil
	default:
		return Value{}, fmt.Errorf("value: unknown tag %d", tag)
	}
}

func writeString(w *bytes.Buffer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.WriteString(s)
	return err
}

func readString(r *bytes.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := r.Read(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
