// Package host provides file-based convenience wrappers around
// internal/parser and internal/runtime for the CLI tools
// (cmd/wispc, cmd/wispdump, cmd/wispbuf): compiling a source file
// straight to a Buffer, and persisting/loading a compiled Buffer as a
// .wispb file, optionally gzip-compressed.
package host

import (
	"bytes"
	"fmt"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/wisp-lang/wisp/internal/lexer"
	"github.com/wisp-lang/wisp/internal/parser"
	"github.com/wisp-lang/wisp/internal/runtime"
)

// gzipMagic is the first two bytes of every gzip stream (RFC 1952),
// used to auto-detect a compressed .wispb file on load without the
// caller having to remember which flag it was saved with.
var gzipMagic = [2]byte{0x1f, 0x8b}

// CompileFile reads path as Wisp source text and compiles it against
// rt (spec.md §6's Compile, taken from disk rather than an in-memory
// string).
func CompileFile(rt *runtime.Runtime, path, libraryName string, imports []string) (*runtime.Buffer, []error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return parser.Compile(rt, string(data), libraryName, imports)
}

// SaveBytecode persists buf to path as a .wispb file (spec.md §6
// binary format), gzip-compressed via klauspost/compress when
// compress is true.
func SaveBytecode(path string, buf *runtime.Buffer, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if !compress {
		_, err = buf.WriteTo(f)
		return err
	}
	gw := gzip.NewWriter(f)
	if _, err := buf.WriteTo(gw); err != nil {
		gw.Close()
		return err
	}
	return gw.Close()
}

// LoadBytecode reads a .wispb file written by SaveBytecode, detecting
// gzip compression from its magic bytes so the caller never has to
// track which form a given file is in.
func LoadBytecode(path string) (*runtime.Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) >= 2 && data[0] == gzipMagic[0] && data[1] == gzipMagic[1] {
		gr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("host: opening gzip bytecode %s: %w", path, err)
		}
		defer gr.Close()
		return runtime.ReadBuffer(gr)
	}
	return runtime.ReadBuffer(bytes.NewReader(data))
}

// Lex is a thin re-export of lexer.Lex.
func Lex(src string) ([]lexer.Symbol, error) { return lexer.Lex(src) }
