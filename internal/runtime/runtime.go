package runtime

import (
	"github.com/wisp-lang/wisp/internal/library"
	"github.com/wisp-lang/wisp/internal/value"
)

// Stats accumulates aggregate compilation/execution counters a host
// can poll for diagnostics.
type Stats struct {
	mu            mutex
	ScriptsLoaded uint64
	Ticks         uint64
	Errors        uint64
}

func (s *Stats) addTick() {
	s.mu.Lock()
	s.Ticks++
	s.mu.Unlock()
}

func (s *Stats) addError() {
	s.mu.Lock()
	s.Errors++
	s.mu.Unlock()
}

func (s *Stats) addScript() {
	s.mu.Lock()
	s.ScriptsLoaded++
	s.mu.Unlock()
}

// Snapshot returns a copy of the counters, safe for concurrent callers.
func (s *Stats) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{ScriptsLoaded: s.ScriptsLoaded, Ticks: s.Ticks, Errors: s.Errors}
}

// Runtime is the process-wide shareable context every Script is born
// from: the library registry, the function and property tables keyed
// by RuntimeID, and aggregate statistics. Every mutable table is
// guarded by its own lock, held only for the duration of a single
// lookup or update — never across a Script's instruction execution
// (spec.md §5).
type Runtime struct {
	libMu      rwMutex
	libraries  map[string]*library.Library
	funcMu     rwMutex
	functions  map[uint64]*library.FunctionDef
	propMu     rwMutex
	properties map[uint64]value.Value
	propNames  map[uint64]*library.PropertyName
	Stats      Stats
}

// New returns an empty Runtime ready to accept library registrations.
func New() *Runtime {
	return &Runtime{
		libraries:  make(map[string]*library.Library),
		functions:  make(map[uint64]*library.FunctionDef),
		properties: make(map[uint64]value.Value),
		propNames:  make(map[uint64]*library.PropertyName),
	}
}

// GetLibrary returns the named library, creating it on first use so
// compilation and host registration can happen in either order.
func (rt *Runtime) GetLibrary(name string) *library.Library {
	rt.libMu.RLock()
	lib, ok := rt.libraries[name]
	rt.libMu.RUnlock()
	if ok {
		return lib
	}
	rt.libMu.Lock()
	defer rt.libMu.Unlock()
	if lib, ok = rt.libraries[name]; ok {
		return lib
	}
	lib = library.New(name)
	rt.libraries[name] = lib
	return lib
}

// HasLibrary reports whether name was ever looked up or registered,
// without creating it as a side effect (used by the compiler's import
// resolution to distinguish a genuinely unknown library).
func (rt *Runtime) HasLibrary(name string) bool {
	rt.libMu.RLock()
	defer rt.libMu.RUnlock()
	_, ok := rt.libraries[name]
	return ok
}

// RegisterFunction installs a function definition (host callback or
// bytecode entry point) under its signature's stable Id, indexing it
// both on the Runtime's global table and on its owning library.
func (rt *Runtime) RegisterFunction(sig *library.Signature, def *library.FunctionDef) error {
	lib := rt.GetLibrary(sig.Library)
	if err := lib.RegisterFunction(sig, def); err != nil {
		return err
	}
	rt.funcMu.Lock()
	rt.functions[sig.Id()] = def
	rt.funcMu.Unlock()
	return nil
}

// FunctionByID resolves a RuntimeID to its definition.
func (rt *Runtime) FunctionByID(id uint64) (*library.FunctionDef, bool) {
	rt.funcMu.RLock()
	defer rt.funcMu.RUnlock()
	d, ok := rt.functions[id]
	return d, ok
}

// RegisterProperty installs a property's initial value under its
// stable Id.
func (rt *Runtime) RegisterProperty(p *library.PropertyName, initial value.Value) error {
	lib := rt.GetLibrary(p.Library)
	if err := lib.RegisterProperty(p); err != nil {
		return err
	}
	id := p.Id()
	rt.propMu.Lock()
	rt.properties[id] = initial
	rt.propNames[id] = p
	rt.propMu.Unlock()
	return nil
}

// GetProperty reads a property's current value under the property lock.
func (rt *Runtime) GetProperty(id uint64) (value.Value, bool) {
	rt.propMu.RLock()
	defer rt.propMu.RUnlock()
	v, ok := rt.properties[id]
	return v, ok
}

// SetProperty writes a property's value under the property lock. It
// reports false, leaving the table unchanged, if the property is
// readonly or unknown.
func (rt *Runtime) SetProperty(id uint64, v value.Value) bool {
	rt.propMu.Lock()
	defer rt.propMu.Unlock()
	name, ok := rt.propNames[id]
	if !ok || name.ReadOnly {
		return false
	}
	rt.properties[id] = v
	return true
}

// MutateCollectionProperty locates a Collection-typed property and
// applies fn to its backing Coll atomically with respect to other
// property accesses (spec.md §4.3 "Property access").
func (rt *Runtime) MutateCollectionProperty(id uint64, fn func(*value.Coll) error) error {
	rt.propMu.Lock()
	defer rt.propMu.Unlock()
	name, ok := rt.propNames[id]
	if !ok {
		return unknownPropertyErr(id)
	}
	if name.ReadOnly {
		return readonlyPropertyErr(name)
	}
	v, ok := rt.properties[id]
	if !ok || v.Tag() != value.Collection {
		return notACollectionErr(name)
	}
	return fn(v.AsCollection())
}

// Close breaks reference cycles rooted at Collection-valued properties
// by clearing every such Collection before the property table is
// released, per spec.md §5's resource-lifecycle requirement: no cycle
// collector is provided, so cycles reachable only from properties must
// be broken explicitly here.
func (rt *Runtime) Close() {
	rt.propMu.Lock()
	defer rt.propMu.Unlock()
	for _, v := range rt.properties {
		if v.Tag() == value.Collection {
			v.AsCollection().Clear()
		}
	}
	rt.properties = make(map[uint64]value.Value)
}
