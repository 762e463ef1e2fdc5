// Command wispc compiles a Wisp source file to a .wispb bytecode file,
// the ahead-of-time counterpart to embedding wisp.Runtime.Compile
// directly in a host process.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/wisp-lang/wisp"
	"github.com/wisp-lang/wisp/internal/host"
)

func main() {
	var (
		in       string
		out      string
		name     string
		cfgPath  string
		compress bool
		pretty   bool
	)
	flag.StringVar(&in, "file", "", "Wisp source file to compile")
	flag.StringVar(&out, "out", "", "output .wispb path (default: input with .wispb extension)")
	flag.StringVar(&name, "name", "main", "library name the compiled script is registered under")
	flag.StringVar(&cfgPath, "config", "", "optional TOML config file (see wisp.RuntimeConfig)")
	flag.BoolVar(&compress, "gzip", false, "gzip-compress the output")
	flag.BoolVar(&pretty, "pretty", true, "console-pretty log output instead of JSON")
	flag.Parse()

	if in == "" {
		fmt.Fprintln(os.Stderr, "wispc: -file is required")
		os.Exit(1)
	}
	if out == "" {
		out = withExt(in, ".wispb")
	}

	cfg := wisp.DefaultRuntimeConfig()
	if cfgPath != "" {
		var err error
		cfg, err = wisp.LoadRuntimeConfigFile(cfgPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "wispc:", err)
			os.Exit(1)
		}
	}
	cfg.LogPretty = pretty

	log := wisp.NewLogger(cfg, os.Stderr)

	start := time.Now()
	rt, err := wisp.New(cfg, os.Stderr)
	if err != nil {
		log.Error().Err(err).Msg("runtime init failed")
		os.Exit(1)
	}

	buf, warnings, err := host.CompileFile(rt.Underlying(), in, name, nil)
	for _, w := range warnings {
		log.Warn().Str("file", in).Err(w).Msg("compile warning")
	}
	if err != nil {
		log.Error().Str("file", in).Err(err).Msg("compile failed")
		os.Exit(1)
	}

	if err := host.SaveBytecode(out, buf, compress); err != nil {
		log.Error().Str("file", out).Err(err).Msg("writing bytecode failed")
		os.Exit(1)
	}

	log.Info().
		Str("in", in).
		Str("out", out).
		Str("size", humanize.Bytes(uint64(buf.Len()))).
		Dur("elapsed", time.Since(start)).
		Msg("compiled")
}

func withExt(path, ext string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return path[:i] + ext
		}
	}
	return path + ext
}
