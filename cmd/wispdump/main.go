// Command wispdump disassembles a compiled Wisp bytecode buffer,
// printing one line per instruction: its byte offset, opcode name, and
// decoded operands. It accepts either Wisp source (compiled on the
// fly) or a .wispb file saved by wispc, mirroring the
// compile-then-walk-and-print shape of besten's cmd/symdump, but reads
// opcode names off Opcode.String() instead of scraping them out of a
// source file.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/wisp-lang/wisp/internal/host"
	"github.com/wisp-lang/wisp/internal/runtime"
)

func main() {
	var (
		file   string
		name   string
		asCBOR bool
	)
	flag.StringVar(&file, "file", "", "source (.wisp) or bytecode (.wispb) file to dump")
	flag.StringVar(&name, "name", "dump", "library name to compile source under")
	flag.BoolVar(&asCBOR, "cbor", false, "emit a structured CBOR instruction listing instead of text")
	flag.Parse()

	if file == "" {
		fmt.Fprintln(os.Stderr, "wispdump: -file is required")
		os.Exit(1)
	}

	buf, err := load(file, name)
	if err != nil {
		fmt.Fprintln(os.Stderr, "wispdump:", err)
		os.Exit(1)
	}

	if asCBOR {
		if err := dumpCBOR(buf, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "wispdump:", err)
			os.Exit(1)
		}
		return
	}
	dumpText(buf, os.Stdout)
}

// load compiles file if it looks like Wisp source, otherwise treats it
// as a saved .wispb buffer.
func load(file, name string) (*runtime.Buffer, error) {
	if strings.HasSuffix(file, ".wispb") || strings.HasSuffix(file, ".wispb.gz") {
		return host.LoadBytecode(file)
	}
	rt := runtime.New()
	buf, warnings, err := host.CompileFile(rt, file, name, nil)
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, "wispdump: warning:", w)
	}
	return buf, err
}

func dumpText(buf *runtime.Buffer, dest *os.File) {
	fmt.Fprintf(dest, "; %d bytes, version %d\n", buf.Len(), buf.Header.Version)
	data := buf.Bytes()
	pos := 0
	for pos < len(data) {
		ins, next, err := runtime.Decode(data, pos)
		if err != nil {
			fmt.Fprintf(dest, "%6d  <decode error: %s>\n", pos, err)
			return
		}
		fmt.Fprintf(dest, "%6d  %-14s%s\n", pos, ins.Op.String(), operandString(ins))
		pos = next
	}
}

func operandString(ins runtime.Instruction) string {
	var parts []string
	switch ins.Op {
	case runtime.PushVal:
		parts = append(parts, ins.Value.String())
	case runtime.Jump, runtime.JumpTrue, runtime.JumpFalse:
		parts = append(parts, fmt.Sprintf("-> %d", ins.Target))
	case runtime.CallFunc, runtime.SetProp, runtime.PushProp, runtime.EraseProp, runtime.ErasePropElem:
		if ins.Property != nil {
			parts = append(parts, ins.Property.String())
		} else {
			parts = append(parts, fmt.Sprintf("#%d", ins.ID))
		}
	case runtime.SetVar, runtime.PushVar, runtime.PushVarKey, runtime.SetVarKey, runtime.EraseVar, runtime.LibraryDecl:
		parts = append(parts, ins.Name)
	case runtime.PushColl, runtime.PushList, runtime.PopCount:
		parts = append(parts, fmt.Sprintf("%d", ins.Count))
	case runtime.Cast:
		parts = append(parts, ins.ValueType.String())
	case runtime.FunctionDecl:
		if ins.Signature != nil {
			parts = append(parts, ins.Signature.String())
		}
	case runtime.PropertyDecl:
		if ins.Property != nil {
			parts = append(parts, ins.Property.String(), ins.Value.String())
		}
	case runtime.SetIndex:
		parts = append(parts, ins.Name, fmt.Sprintf("[%d]", ins.Index), ins.ValueType.String())
	case runtime.Wait:
		parts = append(parts, fmt.Sprintf("mode=%d cond=%d", ins.WaitMode, ins.ConditionStart))
	case runtime.LoopCount, runtime.LoopOver:
		parts = append(parts, ins.Name, fmt.Sprintf("-> %d", ins.Target))
	case runtime.EraseVarElem, runtime.Increment, runtime.Decrement:
		if ins.Name != "" {
			parts = append(parts, ins.Name)
		} else {
			parts = append(parts, fmt.Sprintf("#%d", ins.ID))
		}
	}
	return strings.Join(parts, " ")
}

// cborInstruction is the wire shape of a single disassembled
// instruction when -cbor is given, the one place a human/debug-facing
// introspection format is allowed to reach for a real encoding rather
// than the engine's own value.Encode wire format.
type cborInstruction struct {
	Offset  int    `cbor:"offset"`
	Opcode  string `cbor:"opcode"`
	Operand string `cbor:"operand,omitempty"`
}

func dumpCBOR(buf *runtime.Buffer, dest *os.File) error {
	data := buf.Bytes()
	pos := 0
	var instrs []cborInstruction
	for pos < len(data) {
		ins, next, err := runtime.Decode(data, pos)
		if err != nil {
			return fmt.Errorf("decoding instruction at %d: %w", pos, err)
		}
		instrs = append(instrs, cborInstruction{
			Offset:  pos,
			Opcode:  ins.Op.String(),
			Operand: operandString(ins),
		})
		pos = next
	}
	enc, err := cbor.Marshal(instrs)
	if err != nil {
		return err
	}
	_, err = dest.Write(enc)
	return err
}
