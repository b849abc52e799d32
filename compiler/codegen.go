package compiler

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/yasm/vm"
)

var log = commonlog.GetLogger("yasm.compiler")

// ---------------------------------------------------------------------------
// Codegen: lower AST nodes to instruction sequences
// ---------------------------------------------------------------------------

// Option configures a Compiler.
type Option func(*Compiler)

// WithLabel sets the label of the top-level sequence.
func WithLabel(label string) Option {
	return func(c *Compiler) {
		c.label = label
	}
}

// Compiler compiles AST nodes to instruction sequences. Generated label
// names are unique per Compiler; a Compiler is not safe for concurrent use.
type Compiler struct {
	label   string
	labelNo int

	// Current compilation context
	builder *vm.Builder
}

// NewCompiler creates a new compiler.
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{label: vm.DefaultLabel}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile compiles node as a top-level program. A node that is not a
// *Program is treated as the program body.
func Compile(node Node, opts ...Option) (*vm.InstructionSequence, error) {
	prog, ok := node.(*Program)
	if !ok {
		prog = &Program{SpanVal: spanOf(node), Body: node}
	}
	return NewCompiler(opts...).CompileProgram(prog)
}

// CompileProgram compiles prog into a finalized top-level sequence.
func (c *Compiler) CompileProgram(prog *Program) (*vm.InstructionSequence, error) {
	if prog == nil {
		return nil, fmt.Errorf("%s: nil program", c.label)
	}
	c.builder = vm.NewBuilder(vm.Config{Label: c.label, Type: vm.SeqTop})
	defer func() { c.builder = nil }()

	if err := c.compileBody(prog.Body); err != nil {
		return nil, err
	}
	seq, err := c.builder.Finalize()
	if err != nil {
		return nil, err
	}
	log.Debugf("compiled %s: %d instructions", seq.Label, seq.Len())
	return seq, nil
}

// genLabel returns a fresh label name.
func (c *Compiler) genLabel(prefix string) string {
	c.labelNo++
	return fmt.Sprintf("%s_%d", prefix, c.labelNo)
}

// errorf builds a compile error naming the current sequence and node.
func (c *Compiler) errorf(n Node, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if line := spanOf(n).Start.Line; line > 0 {
		return fmt.Errorf("%s: line %d: %s", c.builder.SeqLabel(), line, msg)
	}
	return fmt.Errorf("%s: %s", c.builder.SeqLabel(), msg)
}

func spanOf(n Node) Span {
	if n == nil {
		return Span{}
	}
	return n.Span()
}

// compileBody compiles a scope body followed by leave.
func (c *Compiler) compileBody(body Node) error {
	if err := c.compileOrNil(body); err != nil {
		return err
	}
	return c.builder.Leave()
}

// compileOrNil compiles n, or emits putnil for an absent node.
func (c *Compiler) compileOrNil(n Node) error {
	if n == nil {
		return c.builder.PutNil()
	}
	return c.compileNode(n)
}

func (c *Compiler) compileNode(n Node) error {
	b := c.builder
	switch n := n.(type) {
	case *Program:
		return c.errorf(n, "nested program")
	case *Sequence:
		return c.compileSequence(n)
	case *Literal:
		return b.PutObject(n.Value)
	case *StringLiteral:
		return b.PutString(n.Value)
	case *Nil:
		return b.PutNil()
	case *Self:
		return b.PutSelf()
	case *Send:
		return c.compileSend(n)
	case *If:
		return c.compileIf(n)
	case *While:
		return c.compileWhile(n)
	case *LocalAssign:
		return c.compileLocalAssign(n)
	case *LocalVar:
		return c.compileLocalVar(n)
	case *Def:
		return c.compileDef(n)
	case *Block:
		return c.errorf(n, "block must be attached to a send")
	default:
		return c.errorf(n, "unsupported node %T", n)
	}
}

func (c *Compiler) compileSequence(seq *Sequence) error {
	if len(seq.Stmts) == 0 {
		return c.builder.PutNil()
	}
	last := len(seq.Stmts) - 1
	for i, stmt := range seq.Stmts {
		if err := c.compileOrNil(stmt); err != nil {
			return err
		}
		if i < last {
			if err := c.builder.Pop(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Compiler) compileSend(send *Send) error {
	flags := vm.ArgsSimple
	if send.Receiver == nil {
		if err := c.builder.PutSelf(); err != nil {
			return err
		}
		flags |= vm.FCall
	} else if err := c.compileNode(send.Receiver); err != nil {
		return err
	}
	if send.FCall {
		flags |= vm.FCall
	}
	for _, arg := range send.Args {
		if err := c.compileOrNil(arg); err != nil {
			return err
		}
	}
	if send.Block == nil {
		return c.builder.Send(send.Method, len(send.Args), flags)
	}
	blk, err := c.compileBlock(send.Block)
	if err != nil {
		return err
	}
	return c.builder.SendWithBlock(send.Method, len(send.Args), flags, blk)
}

// compileBlock compiles a block body in a child scope of the current
// sequence and returns the finalized block.
func (c *Compiler) compileBlock(block *Block) (*vm.InstructionSequence, error) {
	parent := c.builder
	c.builder = parent.OpenChild(vm.SeqBlock, block.Params, "block in "+parent.SeqLabel())
	defer func() { c.builder = parent }()

	if err := c.compileBody(block.Body); err != nil {
		return nil, err
	}
	return c.builder.Finalize()
}

func (c *Compiler) compileIf(n *If) error {
	b := c.builder
	if err := c.compileOrNil(n.Cond); err != nil {
		return err
	}
	elseLabel := c.genLabel("else")
	finishLabel := c.genLabel("finish")

	if err := b.BranchUnless(elseLabel); err != nil {
		return err
	}
	if err := c.compileOrNil(n.Then); err != nil {
		return err
	}
	if err := b.Jump(finishLabel); err != nil {
		return err
	}
	if err := b.Label(elseLabel); err != nil {
		return err
	}
	if err := c.compileOrNil(n.Else); err != nil {
		return err
	}
	return b.Label(finishLabel)
}

func (c *Compiler) compileWhile(n *While) error {
	b := c.builder
	startLabel := c.genLabel("loop_start")
	endLabel := c.genLabel("loop_end")

	if err := b.Label(startLabel); err != nil {
		return err
	}
	if err := c.compileOrNil(n.Cond); err != nil {
		return err
	}
	if err := b.BranchUnless(endLabel); err != nil {
		return err
	}
	if err := c.compileOrNil(n.Body); err != nil {
		return err
	}
	if err := b.Pop(); err != nil {
		return err
	}
	if err := b.Jump(startLabel); err != nil {
		return err
	}
	if err := b.Label(endLabel); err != nil {
		return err
	}
	return b.PutNil()
}

func (c *Compiler) compileLocalAssign(n *LocalAssign) error {
	b := c.builder
	if err := c.compileOrNil(n.Value); err != nil {
		return err
	}
	if err := b.Dup(); err != nil {
		return err
	}
	_, depth, err := b.Resolve(n.Name)
	if err != nil {
		// First assignment declares the name in the current scope.
		depth = 0
	}
	return b.SetLocal(n.Name, depth)
}

func (c *Compiler) compileLocalVar(n *LocalVar) error {
	_, depth, err := c.builder.Resolve(n.Name)
	if err != nil {
		return err
	}
	return c.builder.GetLocal(n.Name, depth)
}

func (c *Compiler) compileDef(n *Def) error {
	if n.Name == "" {
		return c.errorf(n, "def without a name")
	}
	parent := c.builder
	defer func() { c.builder = parent }()
	return parent.DefineMethod(n.Name, n.Params, func(m *vm.Builder) error {
		c.builder = m
		return c.compileBody(n.Body)
	})
}
