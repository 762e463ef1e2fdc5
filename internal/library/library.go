package library

import (
	"fmt"
	"sync"

	"github.com/wisp-lang/wisp/internal/value"
)

// HostFunc is the callback shape for a native extension function
// registered by the host application (spec.md §6 "for native
// extensions").
type HostFunc func(args []value.Value) (value.Value, error)

// FunctionDef is the definition a function Id resolves to: either a
// bytecode entry point inside the owning Script's compiled buffer, or
// a host callback.
type FunctionDef struct {
	Signature      *Signature
	BytecodeOffset uint32
	HasBytecode    bool
	Callback       HostFunc
}

// Library is a named registry of functions and properties with
// visibility rules (spec.md §3).
type Library struct {
	mu               sync.RWMutex
	Name             string
	functions        map[uint64]*FunctionDef
	byName           map[string][]*FunctionDef // lowercased first keyword -> candidates, for speculative matching
	properties       map[uint64]*PropertyName
	propertyByName   map[string]*PropertyName
	maxPropertyWords int
}

// New creates an empty library with the given name.
func New(name string) *Library {
	return &Library{
		Name:           name,
		functions:      make(map[uint64]*FunctionDef),
		byName:         make(map[string][]*FunctionDef),
		properties:     make(map[uint64]*PropertyName),
		propertyByName: make(map[string]*PropertyName),
	}
}

// RegisterFunction adds a function definition under its signature's Id.
func (l *Library) RegisterFunction(sig *Signature, def *FunctionDef) error {
	if !sig.Valid() {
		return fmt.Errorf("library %s: invalid signature %s", l.Name, sig.String())
	}
	sig.Library = l.Name
	def.Signature = sig
	l.mu.Lock()
	defer l.mu.Unlock()
	id := sig.Id()
	if _, exists := l.functions[id]; exists {
		return fmt.Errorf("library %s: duplicate signature %s", l.Name, sig.String())
	}
	l.functions[id] = def
	for _, p := range sig.Parts {
		if !p.IsParameter {
			for _, kw := range p.Keywords {
				key := lowerASCII(kw)
				l.byName[key] = append(l.byName[key], def)
			}
			break
		}
	}
	return nil
}

// FunctionByID looks up a definition by its signature's stable Id.
func (l *Library) FunctionByID(id uint64) (*FunctionDef, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.functions[id]
	return d, ok
}

// CandidatesByFirstKeyword returns every registered signature whose
// first Name part includes the given keyword, the seed set the parser
// narrows down via speculative matching (spec.md §4.2).
func (l *Library) CandidatesByFirstKeyword(keyword string) []*FunctionDef {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]*FunctionDef(nil), l.byName[lowerASCII(keyword)]...)
}

// RegisterProperty adds a property name to the library's property table.
func (l *Library) RegisterProperty(p *PropertyName) error {
	p.Library = l.Name
	l.mu.Lock()
	defer l.mu.Unlock()
	id := p.Id()
	if _, exists := l.properties[id]; exists {
		return fmt.Errorf("library %s: duplicate property %s", l.Name, p.Name)
	}
	l.properties[id] = p
	l.propertyByName[lowerASCII(p.Name)] = p
	if n := wordCount(p.Name); n > l.maxPropertyWords {
		l.maxPropertyWords = n
	}
	return nil
}

// PropertyByName looks up a registered property by name, ignoring
// ASCII case.
func (l *Library) PropertyByName(name string) (*PropertyName, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.propertyByName[lowerASCII(name)]
	return p, ok
}

// MaxPropertyWords is the widest registered property name, bounding
// the parser's longest-match search (spec.md §3 "Library").
func (l *Library) MaxPropertyWords() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.maxPropertyWords == 0 {
		return 1
	}
	return l.maxPropertyWords
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
