// Package library implements the Library Registry & Names component:
// libraries, function signatures, property names, and the stable
// runtime identifiers hashed from their canonical form.
package library

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/wisp-lang/wisp/internal/value"
)

// Visibility controls whether a function or property is reachable
// from outside its declaring library.
type Visibility uint8

const (
	Local Visibility = iota
	Private
	Public
)

func (v Visibility) String() string {
	switch v {
	case Local:
		return "local"
	case Private:
		return "private"
	case Public:
		return "public"
	default:
		return "unknown"
	}
}

// Part is one element of a function signature: either a Name (one or
// more alternative keywords, optionally absent) or a Parameter (an
// optionally-typed named slot).
type Part struct {
	IsParameter bool

	// Name fields.
	Keywords []string // alternative spellings for this Name part
	Optional bool      // Name part may be absent from a matching call

	// Parameter fields.
	ParamName string
	ParamType value.Type
	HasType   bool
}

// NamePart builds a required or optional Name part.
func NamePart(optional bool, keywords ...string) Part {
	return Part{IsParameter: false, Keywords: keywords, Optional: optional}
}

// ParameterPart builds an untyped Parameter part.
func ParameterPart(name string) Part {
	return Part{IsParameter: true, ParamName: name}
}

// TypedParameterPart builds a Parameter part constrained to a Variant type.
func TypedParameterPart(name string, t value.Type) Part {
	return Part{IsParameter: true, ParamName: name, ParamType: t, HasType: true}
}

// Signature is a compiled function's callable shape.
type Signature struct {
	Parts      []Part
	Visibility Visibility
	Library    string
	Returns    bool
	id         uint64
	idValid    bool
}

// Valid reports whether the signature has at least one non-optional
// Name part and is not a single bare keyword (spec.md §3).
func (s *Signature) Valid() bool {
	hasRequiredName := false
	for _, p := range s.Parts {
		if !p.IsParameter && !p.Optional {
			hasRequiredName = true
		}
	}
	if !hasRequiredName {
		return false
	}
	if len(s.Parts) == 1 && !s.Parts[0].IsParameter {
		return false
	}
	return true
}

// canonical produces the stable string the Id is hashed from: library
// name, then each part's kind and canonical spelling, then parameter
// types where present. Two signatures with the same library, same
// part kinds in the same order, same canonical Name spellings and the
// same parameter types hash identically regardless of which
// alternative keyword spelling or which parameter name was used,
// matching spec.md §3 ("hashing the canonical form").
func (s *Signature) canonical() string {
	var b strings.Builder
	b.WriteString(s.Library)
	b.WriteByte('|')
	for _, p := range s.Parts {
		if p.IsParameter {
			b.WriteString("P:")
			if p.HasType {
				b.WriteString(p.ParamType.String())
			}
			b.WriteByte(';')
		} else {
			b.WriteString("N:")
			kws := append([]string(nil), p.Keywords...)
			sort.Strings(kws)
			b.WriteString(strings.Join(kws, ","))
			if p.Optional {
				b.WriteString("?")
			}
			b.WriteByte(';')
		}
	}
	return b.String()
}

// Id returns the signature's stable RuntimeID, computed once and cached.
func (s *Signature) Id() uint64 {
	if !s.idValid {
		s.id = hashString(s.canonical())
		s.idValid = true
	}
	return s.id
}

func hashString(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// String renders the signature's Name parts for diagnostics, e.g. in
// ambiguous-call errors.
func (s *Signature) String() string {
	var words []string
	for _, p := range s.Parts {
		if p.IsParameter {
			words = append(words, "{"+p.ParamName+"}")
		} else {
			words = append(words, strings.Join(p.Keywords, "|"))
		}
	}
	return fmt.Sprintf("%s %s", s.Library, strings.Join(words, " "))
}
