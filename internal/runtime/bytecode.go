package runtime

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/wisp-lang/wisp/internal/library"
	"github.com/wisp-lang/wisp/internal/value"
)

// Magic identifies a Wisp bytecode file; Version is bumped whenever the
// operand layout of an opcode changes.
var Magic = [4]byte{'W', 'I', 'S', 'P'}

const Version uint16 = 1

// Header is the fixed-size prologue of every compiled buffer
// (spec.md §6): magic(4) | version(u16) | flags(u16) | reserved(8).
type Header struct {
	Magic   [4]byte
	Version uint16
	Flags   uint16
}

// Buffer is the growable, random-access-seek byte buffer a Script's
// compiled bytecode lives in. The compiler appends instructions
// sequentially and seeks backward to back-fill jump targets once their
// destination address is known (spec.md §3 invariant: "no forward
// reference remains" after compilation).
type Buffer struct {
	Header Header
	data   []byte
}

// NewBuffer returns an empty buffer with a populated header.
func NewBuffer() *Buffer {
	return &Buffer{Header: Header{Magic: Magic, Version: Version}}
}

// Len is the current write position, usable as a jump target address.
func (b *Buffer) Len() int { return len(b.data) }

// Bytes returns the raw instruction stream, without the header.
func (b *Buffer) Bytes() []byte { return b.data }

// headerSize is magic(4) | version(u16) | flags(u16) | reserved(8).
const headerSize = 4 + 2 + 2 + 8

// WriteTo serializes the header followed by the instruction stream to
// w, the on-disk form of spec.md §6's binary format. Hosts that want a
// standalone .wispb file (rather than handing the Buffer straight to
// NewScript in the same process) persist it this way.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	var hdr [headerSize]byte
	copy(hdr[0:4], b.Header.Magic[:])
	binary.LittleEndian.PutUint16(hdr[4:6], b.Header.Version)
	binary.LittleEndian.PutUint16(hdr[6:8], b.Header.Flags)
	n1, err := w.Write(hdr[:])
	if err != nil {
		return int64(n1), err
	}
	n2, err := w.Write(b.data)
	return int64(n1 + n2), err
}

// ReadBuffer parses a Buffer previously written by WriteTo, rejecting
// anything whose magic or version don't match this build's.
func ReadBuffer(r io.Reader) (*Buffer, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("runtime: reading bytecode header: %w", err)
	}
	var magic [4]byte
	copy(magic[:], hdr[0:4])
	if magic != Magic {
		return nil, fmt.Errorf("runtime: not a wisp bytecode file")
	}
	version := binary.LittleEndian.Uint16(hdr[4:6])
	if version != Version {
		return nil, fmt.Errorf("runtime: unsupported bytecode version %d (this build supports %d)", version, Version)
	}
	flags := binary.LittleEndian.Uint16(hdr[6:8])
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("runtime: reading bytecode body: %w", err)
	}
	return &Buffer{Header: Header{Magic: magic, Version: version, Flags: flags}, data: data}, nil
}

func (b *Buffer) writeByte(v byte) { b.data = append(b.data, v) }

func (b *Buffer) writeUint32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.data = append(b.data, tmp[:]...)
}

func (b *Buffer) writeInt32(v int32) { b.writeUint32(uint32(v)) }

func (b *Buffer) writeUint64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	b.data = append(b.data, tmp[:]...)
}

func (b *Buffer) writeString(s string) {
	b.writeUint32(uint32(len(s)))
	b.data = append(b.data, s...)
}

// patchUint32 overwrites a previously-written u32 at the given byte
// offset, used to back-fill jump targets (spec.md §3).
func (b *Buffer) patchUint32(offset int, v uint32) {
	binary.LittleEndian.PutUint32(b.data[offset:offset+4], v)
}

// reader walks a Buffer's instruction stream.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) eof() bool { return r.pos >= len(r.data) }

func (r *reader) readByte() byte {
	v := r.data[r.pos]
	r.pos++
	return v
}

func (r *reader) readUint32() uint32 {
	v := binary.LittleEndian.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return v
}

func (r *reader) readInt32() int32 { return int32(r.readUint32()) }

func (r *reader) readUint64() uint64 {
	v := binary.LittleEndian.Uint64(r.data[r.pos : r.pos+8])
	r.pos += 8
	return v
}

func (r *reader) readString() string {
	n := r.readUint32()
	s := string(r.data[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s
}

func (r *reader) readValue() (value.Value, error) {
	br := bytes.NewReader(r.data[r.pos:])
	v, err := value.Decode(br)
	if err != nil {
		return value.Value{}, err
	}
	r.pos += len(r.data[r.pos:]) - br.Len()
	return v, nil
}

func (r *reader) readSignature() (*library.Signature, error) {
	sig := &library.Signature{}
	sig.Library = r.readString()
	sig.Visibility = library.Visibility(r.readByte())
	sig.Returns = r.readByte() != 0
	n := r.readUint32()
	sig.Parts = make([]library.Part, n)
	for i := range sig.Parts {
		isParam := r.readByte() != 0
		if isParam {
			hasType := r.readByte() != 0
			name := r.readString()
			if hasType {
				sig.Parts[i] = library.TypedParameterPart(name, value.Type(r.readByte()))
			} else {
				sig.Parts[i] = library.ParameterPart(name)
			}
		} else {
			optional := r.readByte() != 0
			kwCount := r.readUint32()
			kws := make([]string, kwCount)
			for k := range kws {
				kws[k] = r.readString()
			}
			sig.Parts[i] = library.NamePart(optional, kws...)
		}
	}
	return sig, nil
}

func writeSignature(b *Buffer, sig *library.Signature) {
	b.writeString(sig.Library)
	b.writeByte(byte(sig.Visibility))
	if sig.Returns {
		b.writeByte(1)
	} else {
		b.writeByte(0)
	}
	b.writeUint32(uint32(len(sig.Parts)))
	for _, p := range sig.Parts {
		if p.IsParameter {
			b.writeByte(1)
			if p.HasType {
				b.writeByte(1)
			} else {
				b.writeByte(0)
			}
			b.writeString(p.ParamName)
			if p.HasType {
				b.writeByte(byte(p.ParamType))
			}
		} else {
			b.writeByte(0)
			if p.Optional {
				b.writeByte(1)
			} else {
				b.writeByte(0)
			}
			b.writeUint32(uint32(len(p.Keywords)))
			for _, kw := range p.Keywords {
				b.writeString(kw)
			}
		}
	}
}

func readPropertyName(r *reader) *library.PropertyName {
	return &library.PropertyName{
		Library:    r.readString(),
		Visibility: library.Visibility(r.readByte()),
		ReadOnly:   r.readByte() != 0,
		Name:       r.readString(),
	}
}

func writePropertyName(b *Buffer, p *library.PropertyName) {
	b.writeString(p.Library)
	b.writeByte(byte(p.Visibility))
	if p.ReadOnly {
		b.writeByte(1)
	} else {
		b.writeByte(0)
	}
	b.writeString(p.Name)
}

// WaitMode distinguishes the three forms of Wait (spec.md §5).
type WaitMode uint8

const (
	WaitUnconditional WaitMode = iota
	WaitWhile
	WaitUntil
)

// TargetKind distinguishes Increment/Decrement/Erase targets.
type TargetKind uint8

const (
	TargetVar TargetKind = iota
	TargetProp
)

func opcodeError(op Opcode) error {
	return fmt.Errorf("runtime: no operand layout registered for opcode %s", op)
}
