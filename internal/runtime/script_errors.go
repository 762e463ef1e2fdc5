package runtime

import (
	"github.com/wisp-lang/wisp/internal/library"
	"github.com/wisp-lang/wisp/internal/value"
	"github.com/wisp-lang/wisp/internal/werrors"
)

func unknownPropertyErr(id uint64) error {
	return werrors.NewRuntimeErr("unknown property id %d", id)
}

func readonlyPropertyErr(p *library.PropertyName) error {
	return werrors.NewRuntimeErr("cannot mutate readonly property %s", p.String())
}

func notACollectionErr(p *library.PropertyName) error {
	return werrors.NewRuntimeErr("property %s is not a collection", p.String())
}

func unknownVariableErr(name string) error {
	return werrors.NewRuntimeErr("unknown variable %q", name)
}

func unknownFunctionErr(id uint64) error {
	return werrors.NewRuntimeErr("unknown function id %d", id)
}

func typeMismatchErr(op Opcode, t value.Type) error {
	return werrors.NewRuntimeErr("%s: unsupported operand type %s", op, t)
}
