package vm

import (
	"fmt"
	"math"
)

// ---------------------------------------------------------------------------
// Builder: assembler for one instruction sequence
// ---------------------------------------------------------------------------

// DefaultLabel names sequences built without an explicit label.
const DefaultLabel = "<compiled>"

// Config describes the sequence a Builder produces.
type Config struct {
	Label  string
	Type   SeqType
	Params []string
	Parent *Builder // enclosing scope, for variable lookup only
}

// Builder appends validated instructions to an open InstructionSequence.
// The first error aborts the sequence: every later call returns it and
// Finalize fails with it.
type Builder struct {
	seq    *InstructionSequence
	parent *Builder // non-owning back reference
	slots  map[string]int
	refs   []labelRef
	closed bool
	err    error
}

// NewBuilder starts a new sequence. Parameters are bound to slots
// 0..len(Params)-1 before anything else.
func NewBuilder(cfg Config) *Builder {
	label := cfg.Label
	if label == "" {
		label = DefaultLabel
	}
	b := &Builder{
		seq: &InstructionSequence{
			Label:        label,
			Type:         cfg.Type,
			params: append([]string(nil), cfg.Params...),
			code:   make([]Instruction, 0, 16),
			labels: make(map[string]int),
		},
		parent: cfg.Parent,
		slots:  make(map[string]int),
	}
	for _, p := range cfg.Params {
		if _, dup := b.slots[p]; dup {
			b.err = fmt.Errorf("%s: duplicate parameter %q", label, p)
			break
		}
		b.DeclareLocal(p)
	}
	return b
}

// OpenChild starts a method or block sequence nested in this one. The child
// resolves block-scope variables through b; the caller embeds the finalized
// child with PutISeq or SendWithBlock.
func (b *Builder) OpenChild(typ SeqType, params []string, label string) *Builder {
	return NewBuilder(Config{Label: label, Type: typ, Params: params, Parent: b})
}

// SeqLabel returns the label of the sequence under construction.
func (b *Builder) SeqLabel() string {
	return b.seq.Label
}

// Type returns the scope kind of the sequence under construction.
func (b *Builder) Type() SeqType {
	return b.seq.Type
}

// Len returns the number of instructions appended so far.
func (b *Builder) Len() int {
	return len(b.seq.code)
}

// Err returns the error that aborted this builder, if any.
func (b *Builder) Err() error {
	return b.err
}

// Finalize resolves labels and returns the immutable sequence. The builder
// is closed afterwards.
func (b *Builder) Finalize() (*InstructionSequence, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.closed {
		return nil, ErrClosed
	}
	if err := b.resolveLabels(); err != nil {
		b.err = err
		return nil, err
	}
	b.closed = true
	b.seq.final = true
	return b.seq, nil
}

// invalid builds an InvalidOperandError for the next instruction slot.
func (b *Builder) invalid(op Opcode, format string, args ...any) error {
	return &InvalidOperandError{
		Seq:    b.seq.Label,
		Offset: len(b.seq.code),
		Op:     op,
		Reason: fmt.Sprintf(format, args...),
	}
}

// Emit validates operands against the instruction set and appends the
// instruction.
func (b *Builder) Emit(op Opcode, operands ...any) error {
	if b.err != nil {
		return b.err
	}
	if b.closed {
		return ErrClosed
	}
	in, err := b.decode(op, operands)
	if err != nil {
		b.err = err
		return err
	}
	b.seq.code = append(b.seq.code, in)
	return nil
}

// decode checks operands for op and builds the instruction. Label
// definitions and local declarations are committed only once every operand
// has been accepted.
func (b *Builder) decode(op Opcode, operands []any) (Instruction, error) {
	in := Instruction{Op: op, Target: -1}
	if !op.Valid() {
		return in, b.invalid(op, "unknown opcode")
	}
	info := op.Info()
	required := len(info.Operands) - info.Optional
	if len(operands) < required || len(operands) > len(info.Operands) {
		if info.Optional > 0 {
			return in, b.invalid(op, "want %d to %d operands, got %d", required, len(info.Operands), len(operands))
		}
		return in, b.invalid(op, "want %d operands, got %d", required, len(operands))
	}

	switch op {
	case OpPutSelf, OpPutNil, OpPop, OpDup, OpLeave:
		// no operands

	case OpPutObject:
		v, ok := normalizeLiteral(operands[0])
		if !ok {
			return in, b.invalid(op, "%T is not a literal", operands[0])
		}
		in.Value = v

	case OpPutString:
		s, ok := operands[0].(string)
		if !ok {
			return in, b.invalid(op, "want string, got %T", operands[0])
		}
		in.Str = s

	case OpPutSpecialObject:
		switch x := operands[0].(type) {
		case SpecialObject:
			in.Special = x
		default:
			n, ok := toInt(x)
			if !ok || n <= 0 {
				return in, b.invalid(op, "want special object tag, got %v", operands[0])
			}
			in.Special = SpecialObject(n)
		}

	case OpPutISeq:
		child, ok := operands[0].(*InstructionSequence)
		if !ok || child == nil {
			return in, b.invalid(op, "want finalized iseq, got %T", operands[0])
		}
		if !child.final {
			return in, b.invalid(op, "iseq %q is not finalized", child.Label)
		}
		in.ISeq = child

	case OpGetLocal, OpSetLocal:
		depth := 0
		if len(operands) > 1 {
			d, ok := toInt(operands[1])
			if !ok || d < 0 {
				return in, b.invalid(op, "depth must be a non-negative integer, got %v", operands[1])
			}
			depth = d
		}
		v := operands[0]
		if sym, ok := v.(Symbol); ok {
			v = string(sym)
		} else if n, ok := toInt(v); ok {
			v = n
		}
		name, slot, err := b.resolveVariable(op, v, depth)
		if err != nil {
			return in, err
		}
		in.Name, in.Slot, in.Depth = name, slot, depth

	case OpSend:
		name, ok := nameOperand(operands[0])
		if !ok {
			return in, b.invalid(op, "want method name, got %v", operands[0])
		}
		argc, ok := toInt(operands[1])
		if !ok || argc < 0 {
			return in, b.invalid(op, "argument count must be a non-negative integer, got %v", operands[1])
		}
		in.Name, in.Argc = name, argc
		if len(operands) > 2 {
			switch f := operands[2].(type) {
			case CallFlags:
				in.Flags = f
			case nil:
			default:
				n, ok := toInt(f)
				if !ok || n < 0 {
					return in, b.invalid(op, "want call flags, got %v", operands[2])
				}
				in.Flags = CallFlags(n)
			}
		}
		if len(operands) > 3 && operands[3] != nil {
			blk, ok := operands[3].(*InstructionSequence)
			if !ok {
				return in, b.invalid(op, "want block iseq, got %T", operands[3])
			}
			if blk == nil {
				break
			}
			if !blk.final {
				return in, b.invalid(op, "block %q is not finalized", blk.Label)
			}
			if blk.Type != SeqBlock {
				return in, b.invalid(op, "block operand is a %s sequence", blk.Type)
			}
			in.ISeq = blk
		}

	case OpJump, OpBranchIf, OpBranchUnless:
		name, ok := nameOperand(operands[0])
		if !ok {
			return in, b.invalid(op, "want label, got %v", operands[0])
		}
		in.Name = name
		b.referenceLabel(name)

	case OpLabel:
		name, ok := nameOperand(operands[0])
		if !ok {
			return in, b.invalid(op, "want label name, got %v", operands[0])
		}
		if err := b.defineLabel(name); err != nil {
			return in, err
		}
		in.Name = name
	}
	return in, nil
}

func nameOperand(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, x != ""
	case Symbol:
		return string(x), x != ""
	default:
		return "", false
	}
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case int32:
		return int(x), true
	case uint8:
		return int(x), true
	case uint32:
		return int(x), true
	case uint64:
		if x > math.MaxInt32 {
			return 0, false
		}
		return int(x), true
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		return int(x), true
	default:
		return 0, false
	}
}

// ---------------------------------------------------------------------------
// Assembler DSL
// ---------------------------------------------------------------------------

// PutObject emits putobject.
func (b *Builder) PutObject(v Value) error { return b.Emit(OpPutObject, v) }

// PutString emits putstring.
func (b *Builder) PutString(s string) error { return b.Emit(OpPutString, s) }

// PutSelf emits putself.
func (b *Builder) PutSelf() error { return b.Emit(OpPutSelf) }

// PutNil emits putnil.
func (b *Builder) PutNil() error { return b.Emit(OpPutNil) }

// PutSpecialObject emits putspecialobject.
func (b *Builder) PutSpecialObject(tag SpecialObject) error {
	return b.Emit(OpPutSpecialObject, tag)
}

// PutISeq emits putiseq with a finalized child.
func (b *Builder) PutISeq(child *InstructionSequence) error { return b.Emit(OpPutISeq, child) }

// GetLocal emits getlocal. v is a local name or slot index.
func (b *Builder) GetLocal(v any, depth int) error { return b.Emit(OpGetLocal, v, depth) }

// SetLocal emits setlocal. v is a local name or slot index.
func (b *Builder) SetLocal(v any, depth int) error { return b.Emit(OpSetLocal, v, depth) }

// Send emits a send without a block.
func (b *Builder) Send(method string, argc int, flags CallFlags) error {
	return b.Emit(OpSend, method, argc, flags)
}

// SendWithBlock emits a send passing a finalized block sequence.
func (b *Builder) SendWithBlock(method string, argc int, flags CallFlags, block *InstructionSequence) error {
	return b.Emit(OpSend, method, argc, flags, block)
}

// Pop emits pop.
func (b *Builder) Pop() error { return b.Emit(OpPop) }

// Dup emits dup.
func (b *Builder) Dup() error { return b.Emit(OpDup) }

// Jump emits an unconditional jump to label.
func (b *Builder) Jump(label string) error { return b.Emit(OpJump, label) }

// BranchIf emits branchif.
func (b *Builder) BranchIf(label string) error { return b.Emit(OpBranchIf, label) }

// BranchUnless emits branchunless.
func (b *Builder) BranchUnless(label string) error { return b.Emit(OpBranchUnless, label) }

// Label binds name to the next instruction.
func (b *Builder) Label(name string) error { return b.Emit(OpLabel, name) }

// Leave emits leave.
func (b *Builder) Leave() error { return b.Emit(OpLeave) }

// ---------------------------------------------------------------------------
// Macros
// ---------------------------------------------------------------------------

// DefineMethod emits `def name(params) ... end`. body fills a method child
// and must end it with leave; the finalized child is passed to
// core#define_method on VMCore, which leaves the name symbol on the stack.
func (b *Builder) DefineMethod(name string, params []string, body func(m *Builder) error) error {
	if b.err != nil {
		return b.err
	}
	if b.closed {
		return ErrClosed
	}
	if name == "" {
		b.err = b.invalid(OpPutObject, "method name must not be empty")
		return b.err
	}
	m := b.OpenChild(SeqMethod, params, name)
	if body != nil {
		if err := body(m); err != nil {
			b.err = err
			return err
		}
	}
	method, err := m.Finalize()
	if err != nil {
		b.err = err
		return err
	}
	if err := b.PutSpecialObject(VMCore); err != nil {
		return err
	}
	if err := b.PutObject(Symbol(name)); err != nil {
		return err
	}
	if err := b.PutISeq(method); err != nil {
		return err
	}
	return b.Send(DefineMethod, 2, 0)
}
