package vm

import (
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode identifies a single instruction in an instruction sequence.
type Opcode byte

// Push operations
const (
	OpPutObject        Opcode = 0x10 // push immutable literal
	OpPutString        Opcode = 0x11 // push fresh mutable string
	OpPutSelf          Opcode = 0x12 // push receiver
	OpPutNil           Opcode = 0x13 // push nil
	OpPutSpecialObject Opcode = 0x14 // push VM-internal marker object
	OpPutISeq          Opcode = 0x15 // push compiled method/block body
)

// Variable operations
const (
	OpGetLocal Opcode = 0x20 // push local (name or slot, depth)
	OpSetLocal Opcode = 0x21 // pop into local (name or slot, depth)
)

// Message sends
const (
	OpSend Opcode = 0x30 // send (method, argc, flags, block)
)

// Stack operations
const (
	OpPop Opcode = 0x01 // discard top of stack
	OpDup Opcode = 0x02 // duplicate top of stack
)

// Control flow
const (
	OpJump         Opcode = 0x60 // unconditional jump
	OpBranchIf     Opcode = 0x61 // pop, jump if truthy
	OpBranchUnless Opcode = 0x62 // pop, jump if falsy
	OpLabel        Opcode = 0x6F // pseudo-instruction: jump target marker
)

// Returns
const (
	OpLeave Opcode = 0x70 // return top of stack
)

// ---------------------------------------------------------------------------
// Operand kinds
// ---------------------------------------------------------------------------

// OperandKind describes the type an instruction operand must have.
type OperandKind uint8

const (
	OperandLiteral  OperandKind = iota + 1 // int, Symbol, string, nil, bool
	OperandString                          // Go string
	OperandSpecial                         // SpecialObject tag
	OperandISeq                            // finalized *InstructionSequence
	OperandVariable                        // local name (string) or slot (int)
	OperandDepth                           // non-negative int
	OperandMethod                          // method name (string or Symbol)
	OperandArgc                            // non-negative int
	OperandFlags                           // CallFlags
	OperandBlock                           // *InstructionSequence of type block, or nil
	OperandLabel                           // label name (string or Symbol)
)

var operandKindNames = map[OperandKind]string{
	OperandLiteral:  "literal",
	OperandString:   "string",
	OperandSpecial:  "special object",
	OperandISeq:     "iseq",
	OperandVariable: "variable",
	OperandDepth:    "depth",
	OperandMethod:   "method name",
	OperandArgc:     "argument count",
	OperandFlags:    "call flags",
	OperandBlock:    "block iseq",
	OperandLabel:    "label",
}

// String implements the Stringer interface.
func (k OperandKind) String() string {
	if name, ok := operandKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("OperandKind(%d)", k)
}

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name      string        // dump name
	Operands  []OperandKind // required operand shapes
	Optional  int           // trailing operands that may be omitted
	StackPop  int           // values popped (-1 = depends on argc)
	StackPush int           // values pushed
}

// opcodeTable maps opcodes to their metadata.
var opcodeTable = map[Opcode]OpcodeInfo{
	// Push operations
	OpPutObject:        {"putobject", []OperandKind{OperandLiteral}, 0, 0, 1},
	OpPutString:        {"putstring", []OperandKind{OperandString}, 0, 0, 1},
	OpPutSelf:          {"putself", nil, 0, 0, 1},
	OpPutNil:           {"putnil", nil, 0, 0, 1},
	OpPutSpecialObject: {"putspecialobject", []OperandKind{OperandSpecial}, 0, 0, 1},
	OpPutISeq:          {"putiseq", []OperandKind{OperandISeq}, 0, 0, 1},

	// Variables
	OpGetLocal: {"getlocal", []OperandKind{OperandVariable, OperandDepth}, 1, 0, 1},
	OpSetLocal: {"setlocal", []OperandKind{OperandVariable, OperandDepth}, 1, 1, 0},

	// Sends: flags and block are optional
	OpSend: {"send", []OperandKind{OperandMethod, OperandArgc, OperandFlags, OperandBlock}, 2, -1, 1},

	// Stack
	OpPop: {"pop", nil, 0, 1, 0},
	OpDup: {"dup", nil, 0, 1, 2},

	// Control flow
	OpJump:         {"jump", []OperandKind{OperandLabel}, 0, 0, 0},
	OpBranchIf:     {"branchif", []OperandKind{OperandLabel}, 0, 1, 0},
	OpBranchUnless: {"branchunless", []OperandKind{OperandLabel}, 0, 1, 0},
	OpLabel:        {"label", []OperandKind{OperandLabel}, 0, 0, 0},

	// Returns
	OpLeave: {"leave", nil, 0, 1, 0},
}

// opcodesByName is the reverse index used when loading dumps and text assembly.
var opcodesByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeTable))
	for op, info := range opcodeTable {
		m[info.Name] = op
	}
	return m
}()

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", byte(op))}
}

// Name returns the dump name for an opcode.
func (op Opcode) Name() string {
	return op.Info().Name
}

// String implements the Stringer interface.
func (op Opcode) String() string {
	return op.Name()
}

// Valid reports whether op is part of the instruction set.
func (op Opcode) Valid() bool {
	_, ok := opcodeTable[op]
	return ok
}

// IsJump returns true for instructions that carry a label reference.
func (op Opcode) IsJump() bool {
	return op == OpJump || op == OpBranchIf || op == OpBranchUnless
}

// LookupOpcode returns the opcode with the given dump name.
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opcodesByName[name]
	return op, ok
}

// AllOpcodes returns every defined opcode in ascending order.
func AllOpcodes() []Opcode {
	ops := make([]Opcode, 0, len(opcodeTable))
	for op := range opcodeTable {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// ---------------------------------------------------------------------------
// Call flags
// ---------------------------------------------------------------------------

// CallFlags carries call-site metadata for a send.
type CallFlags uint32

const (
	// FCall marks a call with an implicit (self) receiver.
	FCall CallFlags = 1 << 0

	// ArgsSimple marks a call whose arguments are plain positional values.
	ArgsSimple CallFlags = 1 << 1
)

// Has reports whether all bits of f2 are set.
func (f CallFlags) Has(f2 CallFlags) bool {
	return f&f2 == f2
}

// String implements the Stringer interface.
func (f CallFlags) String() string {
	if f == 0 {
		return "0"
	}
	s := ""
	add := func(name string) {
		if s != "" {
			s += "|"
		}
		s += name
	}
	if f.Has(FCall) {
		add("FCALL")
	}
	if f.Has(ArgsSimple) {
		add("ARGS_SIMPLE")
	}
	if rest := f &^ (FCall | ArgsSimple); rest != 0 {
		add(fmt.Sprintf("0x%x", uint32(rest)))
	}
	return s
}
