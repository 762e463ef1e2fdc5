package wisp

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// NewLogger builds the structured logger that Runtime and cmd/wispc log
// through — compile/execute diagnostics are structured fields (compiled
// byte size, warnings, errors, status transitions), never formatted
// strings, matching the `tliron/commonlog`
// role chazu-maggie wires into its LSP server. cfg.LogPretty selects a
// human-readable console writer for interactive use; production builds
// default to zerolog's compact JSON.
func NewLogger(cfg RuntimeConfig, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := parseLevel(cfg.LogLevel)
	if cfg.LogPretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func parseLevel(name string) zerolog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "silent":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
