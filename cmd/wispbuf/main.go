// Command wispbuf inspects and repacks already-compiled .wispb
// bytecode files: report their header, or toggle gzip compression
// without recompiling the underlying source.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/wisp-lang/wisp/internal/host"
)

func main() {
	var (
		in       string
		out      string
		compress bool
		decomp   bool
		info     bool
	)
	flag.StringVar(&in, "file", "", ".wispb file to read")
	flag.StringVar(&out, "out", "", "path to write a repacked copy to")
	flag.BoolVar(&compress, "gzip", false, "write -out gzip-compressed")
	flag.BoolVar(&decomp, "plain", false, "write -out uncompressed (overrides -gzip)")
	flag.BoolVar(&info, "info", false, "print the file's header and size")
	flag.Parse()

	if in == "" {
		fmt.Fprintln(os.Stderr, "wispbuf: -file is required")
		os.Exit(1)
	}

	buf, err := host.LoadBytecode(in)
	if err != nil {
		fmt.Fprintln(os.Stderr, "wispbuf:", err)
		os.Exit(1)
	}

	if info || out == "" {
		fmt.Printf("magic=%s version=%d size=%s\n", buf.Header.Magic, buf.Header.Version, humanize.Bytes(uint64(buf.Len())))
	}

	if out == "" {
		return
	}

	if err := host.SaveBytecode(out, buf, compress && !decomp); err != nil {
		fmt.Fprintln(os.Stderr, "wispbuf:", err)
		os.Exit(1)
	}
}
