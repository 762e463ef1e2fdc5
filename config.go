package wisp

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/wisp-lang/wisp/internal/werrors"
)

// AllocFunc and friends model the allocation interface spec.md §6
// describes as consumed "from outside": alloc(size), realloc(ptr,
// size), free(ptr). Go's own garbage collector backs every Value and
// Collection the engine allocates regardless of whether a host
// supplies this triple — spec.md explicitly scopes a custom
// memory-pool allocator out as "described only via the allocation
// interface the core consumes" — so Allocator.Validate only checks the
// triple's shape (all three present, or none) rather than routing any
// allocation through it.
type AllocFunc func(size int) ([]byte, error)
type ReallocFunc func(buf []byte, size int) ([]byte, error)
type FreeFunc func(buf []byte)

// Allocator is the optional custom-allocator triple plus its
// block-size hint (spec.md §6). Leave the zero value to use Go's
// default allocation.
type Allocator struct {
	Alloc         AllocFunc
	Realloc       ReallocFunc
	Free          FreeFunc
	BlockSizeHint int
}

func (a Allocator) empty() bool {
	return a.Alloc == nil && a.Realloc == nil && a.Free == nil
}

// Validate rejects a partial triple — spec.md §7 ConfigError: "partial
// custom-allocator triple supplied (all three must be given together)".
func (a Allocator) Validate() error {
	if a.empty() {
		return nil
	}
	if a.Alloc == nil || a.Realloc == nil || a.Free == nil {
		return werrors.NewConfigErr("custom allocator triple must supply alloc, realloc and free together")
	}
	return nil
}

// RuntimeConfig is the scalar, TOML-loadable half of a Runtime's
// construction-time settings (stack limit and log verbosity); the
// allocator triple is the separate Go-only Allocator type, which
// RuntimeConfig does not carry, since function values have no TOML
// representation.
type RuntimeConfig struct {
	// StackLimit is loaded from the TOML file but not applied: a
	// Script's operand stack is not bounded by it.
	StackLimit int `toml:"stack_limit"`
	// LogLevel is one of "debug", "info", "warn", "error"; empty
	// defaults to "info".
	LogLevel string `toml:"log_level"`
	// LogPretty selects the console-writer formatting used by
	// cmd/wispc in development instead of structured JSON.
	LogPretty bool `toml:"log_pretty"`
}

// DefaultRuntimeConfig returns the configuration LoadRuntimeConfigFile
// starts from; passing a zero-value RuntimeConfig to New behaves the same.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{LogLevel: "info"}
}

// LoadRuntimeConfigFile reads a RuntimeConfig from a TOML file
// (`cmd/wispc --config wisp.toml`), the same loading pattern
// chazu-maggie's manifest package uses for maggie.toml.
func LoadRuntimeConfigFile(path string) (RuntimeConfig, error) {
	cfg := DefaultRuntimeConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, werrors.NewConfigErr("cannot read %s: %s", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, werrors.NewConfigErr("parse error in %s: %s", path, err)
	}
	return cfg, nil
}
