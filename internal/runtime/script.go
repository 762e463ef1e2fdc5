package runtime

import (
	"github.com/wisp-lang/wisp/internal/library"
	"github.com/wisp-lang/wisp/internal/value"
	"github.com/wisp-lang/wisp/internal/werrors"
)

// Status is the VM's cooperative state machine (spec.md §4.3).
type Status uint8

const (
	Running Status = iota
	Waiting
	Finished
	Errored
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Waiting:
		return "waiting"
	case Finished:
		return "finished"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

type frameRec struct {
	returnIP    int
	operandBase int
	varBase     int
}

// localFunc is a script-private (Local visibility) function: its
// bytecode offset never reaches the Runtime's shared function table,
// so it is only callable from within the Script that defines it.
type localFunc struct {
	offset uint32
	sig    *library.Signature
}

type loopIter struct {
	startIP int
	varName string
	endAddr uint32

	counted   bool
	current   float64
	to        float64
	by        float64
	isInteger bool

	entries []value.Entry
	idx     int
}

// Script is a single compiled program bound to a Runtime: it owns the
// operand stack, the named-variable stack with its scope markers, the
// call/frame stack, and the instruction pointer (spec.md §3
// "Script"). A Script must be driven by exactly one host thread at a
// time; it shares no mutable state with sibling Scripts except through
// its Runtime (spec.md §5).
type Script struct {
	rt   *Runtime
	code []byte

	ip int

	operand []value.Value

	vars     []value.Value
	varNames []string

	scopeMarks []int
	frames     []frameRec
	loopStack  []*loopIter

	localFuncs map[uint64]localFunc

	status Status
	err    error

	userContext interface{}
}

// NewScript binds compiled bytecode to a Runtime, pre-scanning the
// buffer once to register every Function/Property declaration it
// contains before the first tick (mirroring the teacher's
// load-then-run separation: symbols are registered up front, not
// discovered mid-execution).
func NewScript(rt *Runtime, buf *Buffer) (*Script, error) {
	s := &Script{rt: rt, code: buf.Bytes(), localFuncs: make(map[uint64]localFunc)}
	if err := s.load(); err != nil {
		return nil, err
	}
	rt.Stats.addScript()
	return s, nil
}

func (s *Script) load() error {
	pos := 0
	for pos < len(s.code) {
		ins, next, err := Decode(s.code, pos)
		if err != nil {
			return err
		}
		switch ins.Op {
		case FunctionDecl:
			if ins.Signature.Visibility == library.Local {
				s.localFuncs[ins.Signature.Id()] = localFunc{offset: uint32(next), sig: ins.Signature}
			} else {
				def := &library.FunctionDef{BytecodeOffset: uint32(next), HasBytecode: true}
				if err := s.rt.RegisterFunction(ins.Signature, def); err != nil {
					if _, exists := s.rt.FunctionByID(ins.Signature.Id()); !exists {
						return err
					}
				}
			}
		case PropertyDecl:
			if err := s.rt.RegisterProperty(ins.Property, ins.Value); err != nil {
				if _, exists := s.rt.GetProperty(ins.Property.Id()); !exists {
					return err
				}
			}
		}
		pos = next
	}
	return nil
}

// Status reports the Script's current state.
func (s *Script) Status() Status { return s.status }

// IsFinished reports whether the Script has finished or errored and
// will not execute further instructions.
func (s *Script) IsFinished() bool { return s.status == Finished || s.status == Errored }

// Err returns the diagnostic that transitioned the Script to Errored,
// or nil.
func (s *Script) Err() error { return s.err }

// SetUserContext attaches an opaque host value retrievable from
// callbacks invoked during execution.
func (s *Script) SetUserContext(ctx interface{}) { s.userContext = ctx }

// GetUserContext returns the opaque host value set by SetUserContext.
func (s *Script) GetUserContext() interface{} { return s.userContext }

func (s *Script) fail(err error) {
	s.err = err
	s.status = Errored
	s.rt.Stats.addError()
}

func (s *Script) pushOperand(v value.Value) { s.operand = append(s.operand, v) }

func (s *Script) popOperand() (value.Value, error) {
	if len(s.operand) == 0 {
		return value.Value{}, werrors.NewRuntimeErr("operand stack underflow")
	}
	v := s.operand[len(s.operand)-1]
	s.operand = s.operand[:len(s.operand)-1]
	return v, nil
}

func (s *Script) peekOperand() (value.Value, error) {
	if len(s.operand) == 0 {
		return value.Value{}, werrors.NewRuntimeErr("operand stack underflow")
	}
	return s.operand[len(s.operand)-1], nil
}

func (s *Script) frameVarBase() int {
	if len(s.frames) == 0 {
		return 0
	}
	return s.frames[len(s.frames)-1].varBase
}

func (s *Script) findVar(name string) int {
	base := s.frameVarBase()
	for i := len(s.vars) - 1; i >= base; i-- {
		if s.varNames[i] == name {
			return i
		}
	}
	return -1
}

func (s *Script) setOrCreateVar(name string, v value.Value) {
	if i := s.findVar(name); i >= 0 {
		s.vars[i] = v
		return
	}
	s.vars = append(s.vars, v)
	s.varNames = append(s.varNames, name)
}

func (s *Script) topLoop() *loopIter {
	if len(s.loopStack) == 0 {
		return nil
	}
	return s.loopStack[len(s.loopStack)-1]
}

// Execute drives the VM until the Script exits, errors, executes
// Wait, or runs out of instructions (spec.md §4.3 "Execution model").
// There is no preemption: each opcode completes atomically within the
// calling host thread.
func (s *Script) Execute() Status {
	if s.status == Finished || s.status == Errored {
		return s.status
	}
	s.status = Running
	for {
		if s.ip >= len(s.code) {
			s.status = Finished
			return s.status
		}
		opAddr := s.ip
		ins, next, err := Decode(s.code, s.ip)
		if err != nil {
			s.fail(err)
			return s.status
		}
		s.ip = next
		s.rt.Stats.addTick()

		stop, err := s.dispatch(ins, opAddr)
		if err != nil {
			s.fail(err)
			return s.status
		}
		if stop {
			return s.status
		}
	}
}
