package value

import (
	"github.com/google/uuid"
)

// GUID is the 128-bit identifier payload of a Guid value. It is a
// thin wrapper over google/uuid.UUID so comparison, string rendering
// and parsing all delegate to a library the wider example pack already
// depends on for opaque stable identifiers, instead of a hand-rolled
// RNG/formatter pair.
type GUID struct {
	id uuid.UUID
}

// NewGUIDValue generates a fresh random GUID.
func NewGUIDValue() GUID {
	return GUID{id: uuid.New()}
}

// ParseGUID parses the canonical `8-4-4-4-12` hex representation.
func ParseGUID(s string) (GUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return GUID{}, err
	}
	return GUID{id: id}, nil
}

// Bytes returns the 16-byte big-endian encoding used by the wire format.
func (g GUID) Bytes() [16]byte { return g.id }

// GUIDFromBytes reconstructs a GUID from its 16-byte encoding.
func GUIDFromBytes(b [16]byte) GUID { return GUID{id: uuid.UUID(b)} }

func (g GUID) String() string { return g.id.String() }
