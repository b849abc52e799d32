package vm

import "fmt"

// ---------------------------------------------------------------------------
// InstructionSequence: a compiled body for one lexical scope
// ---------------------------------------------------------------------------

// SeqType is the scope kind of an instruction sequence.
type SeqType uint8

const (
	SeqTop SeqType = iota
	SeqMethod
	SeqBlock
)

// String implements the Stringer interface.
func (t SeqType) String() string {
	switch t {
	case SeqTop:
		return "top"
	case SeqMethod:
		return "method"
	case SeqBlock:
		return "block"
	default:
		return fmt.Sprintf("SeqType(%d)", t)
	}
}

// ParseSeqType parses the dump name of a scope kind.
func ParseSeqType(s string) (SeqType, error) {
	switch s {
	case "top", "":
		return SeqTop, nil
	case "method":
		return SeqMethod, nil
	case "block":
		return SeqBlock, nil
	default:
		return 0, fmt.Errorf("unknown sequence type %q", s)
	}
}

// Instruction is a single entry of a sequence. Op selects which operand
// fields are meaningful; see opcodeTable.
type Instruction struct {
	Op Opcode

	Value   Value                // putobject
	Str     string               // putstring
	Special SpecialObject        // putspecialobject
	ISeq    *InstructionSequence // putiseq, send block (may be nil)

	Name  string // local name, method name or label name
	Slot  int    // getlocal/setlocal
	Depth int    // getlocal/setlocal
	Argc  int    // send
	Flags CallFlags

	Target int // resolved instruction index for jumps
}

// Operands returns the operands in dump order.
func (in Instruction) Operands() []Value {
	switch in.Op {
	case OpPutObject:
		return []Value{in.Value}
	case OpPutString:
		return []Value{in.Str}
	case OpPutSpecialObject:
		return []Value{int64(in.Special)}
	case OpPutISeq:
		return []Value{in.ISeq}
	case OpGetLocal, OpSetLocal:
		return []Value{in.Name, int64(in.Depth)}
	case OpSend:
		var blk Value
		if in.ISeq != nil {
			blk = in.ISeq
		}
		return []Value{Symbol(in.Name), int64(in.Argc), int64(in.Flags), blk}
	case OpJump, OpBranchIf, OpBranchUnless, OpLabel:
		return []Value{in.Name}
	default:
		return nil
	}
}

// InstructionSequence is an ordered list of instructions for a top-level,
// method or block body. A finalized sequence is never mutated and may be
// shared by any number of interpreters.
type InstructionSequence struct {
	Label string
	Type  SeqType

	params []string
	code   []Instruction
	locals []string       // slot -> name
	labels map[string]int // label -> instruction index
	final  bool
}

// Params returns the declared parameter names.
func (s *InstructionSequence) Params() []string {
	out := make([]string, len(s.params))
	copy(out, s.params)
	return out
}

// Arity returns the number of declared parameters.
func (s *InstructionSequence) Arity() int {
	return len(s.params)
}

// Instructions returns a copy of the instruction list, label markers
// included.
func (s *InstructionSequence) Instructions() []Instruction {
	out := make([]Instruction, len(s.code))
	copy(out, s.code)
	return out
}

// At returns the instruction at index i.
func (s *InstructionSequence) At(i int) Instruction {
	return s.code[i]
}

// Locals returns the local table in slot order. Parameters occupy the first
// len(Params) slots.
func (s *InstructionSequence) Locals() []string {
	out := make([]string, len(s.locals))
	copy(out, s.locals)
	return out
}

// LocalCount returns the number of local slots a frame needs.
func (s *InstructionSequence) LocalCount() int {
	return len(s.locals)
}

// LocalIndex returns the slot for name.
func (s *InstructionSequence) LocalIndex(name string) (int, bool) {
	for i, n := range s.locals {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// LabelOffset returns the instruction index a label was bound to.
func (s *InstructionSequence) LabelOffset(name string) (int, bool) {
	off, ok := s.labels[name]
	return off, ok
}

// Finalized reports whether labels have been resolved.
func (s *InstructionSequence) Finalized() bool {
	return s.final
}

// Len returns the number of instructions, label markers included.
func (s *InstructionSequence) Len() int {
	return len(s.code)
}

// Children returns the sequences embedded directly in this one, in
// instruction order.
func (s *InstructionSequence) Children() []*InstructionSequence {
	var out []*InstructionSequence
	for _, in := range s.code {
		if in.ISeq != nil {
			out = append(out, in.ISeq)
		}
	}
	return out
}
