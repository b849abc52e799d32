package vm

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("yasm.vm")

// DefaultMaxCallDepth bounds nested method and block invocations.
const DefaultMaxCallDepth = 10000

// ---------------------------------------------------------------------------
// frame: execution state for one sequence activation
// ---------------------------------------------------------------------------

type frame struct {
	seq    *InstructionSequence
	self   Value
	locals []Value
	stack  []Value
	pc     int
	outer  *frame // lexically enclosing frame for blocks; nil otherwise
}

func newFrame(seq *InstructionSequence, self Value, outer *frame) *frame {
	return &frame{
		seq:    seq,
		self:   self,
		locals: make([]Value, seq.LocalCount()),
		stack:  make([]Value, 0, 8),
		outer:  outer,
	}
}

func (f *frame) push(v Value) {
	f.stack = append(f.stack, v)
}

func (f *frame) pop() (Value, bool) {
	n := len(f.stack)
	if n == 0 {
		return nil, false
	}
	v := f.stack[n-1]
	f.stack[n-1] = nil
	f.stack = f.stack[:n-1]
	return v, true
}

func (f *frame) popN(n int) ([]Value, bool) {
	if n > len(f.stack) {
		return nil, false
	}
	base := len(f.stack) - n
	out := make([]Value, n)
	copy(out, f.stack[base:])
	for j := base; j < len(f.stack); j++ {
		f.stack[j] = nil
	}
	f.stack = f.stack[:base]
	return out, true
}

// scope returns the frame depth hops up the outer chain.
func (f *frame) scope(depth int) *frame {
	cur := f
	for ; depth > 0 && cur != nil; depth-- {
		cur = cur.outer
	}
	return cur
}

// ---------------------------------------------------------------------------
// Interpreter: instruction sequence execution engine
// ---------------------------------------------------------------------------

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithMaxCallDepth bounds nested Invoke/Yield recursion. n <= 0 keeps the
// default.
func WithMaxCallDepth(n int) Option {
	return func(i *Interpreter) {
		if n > 0 {
			i.maxDepth = n
		}
	}
}

// WithTrace logs every executed instruction at debug level.
func WithTrace(trace bool) Option {
	return func(i *Interpreter) {
		i.trace = trace
	}
}

// Interpreter executes finalized instruction sequences. Sequences are never
// modified, so several interpreters may run the same sequence at once; a
// single Interpreter is not safe for concurrent use.
type Interpreter struct {
	resolver CallResolver
	maxDepth int
	trace    bool
	depth    int
}

// NewInterpreter creates an interpreter dispatching sends through resolver.
func NewInterpreter(resolver CallResolver, opts ...Option) *Interpreter {
	i := &Interpreter{
		resolver: resolver,
		maxDepth: DefaultMaxCallDepth,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Evaluate runs seq with receiver as self using a fresh interpreter.
func Evaluate(seq *InstructionSequence, receiver Value, resolver CallResolver) (Value, error) {
	return NewInterpreter(resolver).Execute(seq, receiver)
}

// Execute runs seq with receiver as self and returns the value left by leave.
func (i *Interpreter) Execute(seq *InstructionSequence, receiver Value) (Value, error) {
	if seq == nil {
		return nil, errors.New("execute: nil instruction sequence")
	}
	if !seq.final {
		return nil, fmt.Errorf("execute %s: sequence is not finalized", seq.Label)
	}
	i.depth = 0
	return i.run(newFrame(seq, receiver, nil))
}

// invoke runs a method body in a fresh frame.
func (i *Interpreter) invoke(seq *InstructionSequence, receiver Value, args []Value) (Value, error) {
	if seq == nil || !seq.final {
		return nil, errors.New("invoke: sequence is not finalized")
	}
	if seq.Type == SeqBlock {
		return nil, fmt.Errorf("invoke %s: cannot invoke a block sequence as a method", seq.Label)
	}
	if len(args) != len(seq.params) {
		return nil, fmt.Errorf("%s: wrong number of arguments (given %d, expected %d)", seq.Label, len(args), len(seq.params))
	}
	if err := i.enter(); err != nil {
		return nil, err
	}
	defer i.leave()

	f := newFrame(seq, receiver, nil)
	copy(f.locals, args)
	return i.run(f)
}

// yield runs a block body in a frame whose outer link is the attaching frame.
func (i *Interpreter) yield(b *Block, args []Value) (Value, error) {
	if err := i.enter(); err != nil {
		return nil, err
	}
	defer i.leave()

	f := newFrame(b.Seq, b.self, b.outer)
	n := b.Seq.Arity()
	if len(args) < n {
		n = len(args)
	}
	copy(f.locals, args[:n])
	return i.run(f)
}

func (i *Interpreter) enter() error {
	if i.depth >= i.maxDepth {
		return ErrCallDepthExceeded
	}
	i.depth++
	return nil
}

func (i *Interpreter) leave() {
	i.depth--
}

// located reports whether err already names the instruction that failed.
func located(err error) bool {
	var ee *ExecError
	var su *StackUnderflowError
	return errors.As(err, &ee) || errors.As(err, &su)
}

// run executes f until leave.
func (i *Interpreter) run(f *frame) (Value, error) {
	code := f.seq.code
	for f.pc < len(code) {
		pc := f.pc
		in := &code[pc]
		f.pc++

		if i.trace {
			log.Debugf("%s@%04d %-16s stack=%d", f.seq.Label, pc, in.Op.Name(), len(f.stack))
		}

		underflow := func() error {
			return &StackUnderflowError{Seq: f.seq.Label, Offset: pc, Op: in.Op}
		}

		switch in.Op {
		case OpPutObject:
			f.push(in.Value)

		case OpPutString:
			f.push(NewString(in.Str))

		case OpPutSelf:
			f.push(f.self)

		case OpPutNil:
			f.push(nil)

		case OpPutSpecialObject:
			f.push(in.Special)

		case OpPutISeq:
			f.push(in.ISeq)

		case OpGetLocal:
			target := f.scope(in.Depth)
			if target == nil || in.Slot >= len(target.locals) {
				return nil, &ExecError{Seq: f.seq.Label, Offset: pc, Err: fmt.Errorf("no local %q at depth %d", in.Name, in.Depth)}
			}
			f.push(target.locals[in.Slot])

		case OpSetLocal:
			v, ok := f.pop()
			if !ok {
				return nil, underflow()
			}
			target := f.scope(in.Depth)
			if target == nil || in.Slot >= len(target.locals) {
				return nil, &ExecError{Seq: f.seq.Label, Offset: pc, Err: fmt.Errorf("no local %q at depth %d", in.Name, in.Depth)}
			}
			target.locals[in.Slot] = v

		case OpSend:
			args, ok := f.popN(in.Argc)
			if !ok {
				return nil, underflow()
			}
			recv, ok := f.pop()
			if !ok {
				return nil, underflow()
			}
			call := &Call{
				Receiver: recv,
				Method:   in.Name,
				Args:     args,
				Flags:    in.Flags,
				interp:   i,
			}
			if in.ISeq != nil {
				call.Block = &Block{Seq: in.ISeq, self: f.self, outer: f, interp: i}
			}
			if i.resolver == nil {
				return nil, &ExecError{Seq: f.seq.Label, Offset: pc, Err: &UnknownMethodError{Receiver: recv, Method: in.Name}}
			}
			result, err := i.resolver.Send(call)
			if err != nil {
				if located(err) {
					return nil, err
				}
				return nil, &ExecError{Seq: f.seq.Label, Offset: pc, Err: err}
			}
			f.push(result)

		case OpPop:
			if _, ok := f.pop(); !ok {
				return nil, underflow()
			}

		case OpDup:
			v, ok := f.pop()
			if !ok {
				return nil, underflow()
			}
			f.push(v)
			f.push(v)

		case OpJump:
			f.pc = in.Target

		case OpBranchIf:
			v, ok := f.pop()
			if !ok {
				return nil, underflow()
			}
			if Truthy(v) {
				f.pc = in.Target
			}

		case OpBranchUnless:
			v, ok := f.pop()
			if !ok {
				return nil, underflow()
			}
			if !Truthy(v) {
				f.pc = in.Target
			}

		case OpLabel:
			// marker only

		case OpLeave:
			v, ok := f.pop()
			if !ok {
				return nil, underflow()
			}
			return v, nil

		default:
			return nil, &ExecError{Seq: f.seq.Label, Offset: pc, Err: fmt.Errorf("unknown opcode 0x%02X", byte(in.Op))}
		}
	}
	return nil, &ExecError{Seq: f.seq.Label, Offset: len(code), Err: errors.New("reached end of sequence without leave")}
}
