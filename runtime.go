// Package wisp is the host-facing embedding API for the Wisp
// scripting engine (spec.md §6): a Runtime owns the shared library,
// function, and property tables; a Script is a single compiled program
// bound to one. This package is a thin facade over internal/parser and
// internal/runtime — the same re-export shape phroun-pawscript's root
// package uses over its own src/ implementation — adding only what a
// host embedding the engine needs on top: structured logging and
// TOML-loadable configuration.
package wisp

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/wisp-lang/wisp/internal/library"
	"github.com/wisp-lang/wisp/internal/parser"
	"github.com/wisp-lang/wisp/internal/runtime"
	"github.com/wisp-lang/wisp/internal/value"
)

// Re-exported core types, so a host never has to import internal/*
// itself (those packages stay import-restricted to this module).
type (
	Script       = runtime.Script
	Status       = runtime.Status
	Buffer       = runtime.Buffer
	Value        = value.Value
	Library      = library.Library
	Signature    = library.Signature
	PropertyName = library.PropertyName
	FunctionDef  = library.FunctionDef
	HostFunc     = library.HostFunc
	Visibility   = library.Visibility
	Stats        = runtime.Stats
)

const (
	Running  = runtime.Running
	Waiting  = runtime.Waiting
	Finished = runtime.Finished
	Errored  = runtime.Errored
)

const (
	Local   = library.Local
	Private = library.Private
	Public  = library.Public
)

// Runtime is the process-wide shareable context every Script is born
// from, wrapping internal/runtime.Runtime with structured logging.
type Runtime struct {
	rt  *runtime.Runtime
	cfg RuntimeConfig
	log zerolog.Logger
}

// New constructs a Runtime from cfg (the zero value is
// DefaultRuntimeConfig()) and logs through w (os.Stderr if nil).
func New(cfg RuntimeConfig, w io.Writer) (*Runtime, error) {
	return &Runtime{rt: runtime.New(), cfg: cfg, log: NewLogger(cfg, w)}, nil
}

// Logger returns the Runtime's structured logger, so a host can log
// its own events (e.g. host-callback diagnostics) under the same
// sink and level.
func (r *Runtime) Logger() zerolog.Logger { return r.log }

// Compile lexes and compiles src against this Runtime (spec.md §6
// "Runtime.Compile(sourceText, uniqueName, importList)"), returning a
// Script ready to Execute. Unresolved imports are reported back as
// warnings, not a fatal error — spec.md §7 LinkError is "logged
// warning, not fatal, until a call is attempted".
func (r *Runtime) Compile(src, uniqueName string, imports []string) (*Script, []error, error) {
	buf, warnings, err := parser.Compile(r.rt, src, uniqueName, imports)
	for _, w := range warnings {
		r.log.Warn().Str("library", uniqueName).Err(w).Msg("compile warning")
	}
	if err != nil {
		r.log.Error().Str("library", uniqueName).Err(err).Msg("compile failed")
		return nil, warnings, err
	}
	sc, err := runtime.NewScript(r.rt, buf)
	if err != nil {
		r.log.Error().Str("library", uniqueName).Err(err).Msg("script load failed")
		return nil, warnings, err
	}
	r.log.Debug().Str("library", uniqueName).Int("bytes", buf.Len()).Msg("script compiled")
	return sc, warnings, nil
}

// CompileReader reads all of src and compiles it, the pre-buffered
// overload of Compile (original_source's Runtime has both a
// text-source and a reader-source compile entry point).
func (r *Runtime) CompileReader(src io.Reader, uniqueName string, imports []string) (*Script, []error, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, nil, err
	}
	return r.Compile(string(data), uniqueName, imports)
}

// CreateScript binds already-compiled bytecode (e.g. loaded from a
// .wispb file by internal/host) to this Runtime without recompiling.
func (r *Runtime) CreateScript(buf *Buffer) (*Script, error) {
	sc, err := runtime.NewScript(r.rt, buf)
	if err != nil {
		r.log.Error().Err(err).Msg("script load failed")
		return nil, err
	}
	return sc, nil
}

// Execute drives sc one tick-loop and logs its status transition —
// a convenience over sc.Execute() for hosts that want the structured
// wait/resume/error diagnostics without tracking status themselves. sc
// remains directly usable: this wraps, never replaces, Script.Execute.
func (r *Runtime) Execute(name string, sc *Script) Status {
	before := sc.Status()
	status := sc.Execute()
	if status != before {
		r.log.Debug().Str("script", name).Stringer("from", before).Stringer("to", status).Msg("status transition")
	}
	if status == Errored {
		r.log.Error().Str("script", name).Err(sc.Err()).Msg("script execution error")
	}
	return status
}

// RegisterFunction registers a native extension (spec.md §6
// "Runtime.RegisterFunction(signature, hostCallback)"). signatureText
// is the same Name/Parameter grammar a `function` declaration's header
// uses, e.g. `"frob {x}"` or `"frob {x} returns"`.
func (r *Runtime) RegisterFunction(signatureText, libraryName string, vis Visibility, fn HostFunc) error {
	sig, returns, err := parser.ParseSignatureText(signatureText)
	if err != nil {
		return err
	}
	sig.Library = libraryName
	sig.Visibility = vis
	sig.Returns = returns
	return r.rt.RegisterFunction(sig, &library.FunctionDef{Callback: fn})
}

// RegisterProperty registers a Runtime-owned property (spec.md §6
// "Library.RegisterProperty(name, visibility, readOnly,
// initialValue)").
func (r *Runtime) RegisterProperty(name, libraryName string, vis Visibility, readOnly bool, initial Value) (*PropertyName, error) {
	p := &library.PropertyName{Visibility: vis, ReadOnly: readOnly, Library: libraryName, Name: name}
	if err := r.rt.RegisterProperty(p, initial); err != nil {
		return nil, err
	}
	return p, nil
}

// GetProperty reads a property's current value by its stable Id.
func (r *Runtime) GetProperty(id uint64) (Value, bool) { return r.rt.GetProperty(id) }

// SetProperty writes a property's value by its stable Id, reporting
// false if it is readonly or unknown.
func (r *Runtime) SetProperty(id uint64, v Value) bool { return r.rt.SetProperty(id, v) }

// GetLibrary returns the named library, creating it empty on first use.
func (r *Runtime) GetLibrary(name string) *Library { return r.rt.GetLibrary(name) }

// Stats returns a snapshot of aggregate compile/execute counters.
func (r *Runtime) Stats() Stats { return r.rt.Stats.Snapshot() }

// Close breaks property-rooted Collection cycles before the Runtime is
// discarded (spec.md §5 resource lifecycle).
func (r *Runtime) Close() { r.rt.Close() }

// Underlying exposes the wrapped internal/runtime.Runtime for the CLI
// tools (cmd/wispc, cmd/wispdump), which need to pass it straight into
// internal/host's file-based helpers without this package re-wrapping
// every one of them.
func (r *Runtime) Underlying() *runtime.Runtime { return r.rt }
