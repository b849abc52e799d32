package vm

import "fmt"

// ---------------------------------------------------------------------------
// Call: a reified send handed to the host
// ---------------------------------------------------------------------------

// CallResolver dispatches sends. The VM has no object model of its own;
// every send instruction is turned into a Call and passed to the resolver.
type CallResolver interface {
	Send(call *Call) (Value, error)
}

// CallResolverFunc adapts a function to CallResolver.
type CallResolverFunc func(call *Call) (Value, error)

// Send calls f(call).
func (f CallResolverFunc) Send(call *Call) (Value, error) {
	return f(call)
}

// Call describes one send. Args are in source order. Block is nil unless the
// send carried a block operand.
type Call struct {
	Receiver Value
	Method   string
	Args     []Value
	Flags    CallFlags
	Block    *Block

	interp *Interpreter
}

// Invoke runs a method body with receiver as self and args bound to its
// parameters, on the interpreter that issued the call.
func (c *Call) Invoke(seq *InstructionSequence, receiver Value, args ...Value) (Value, error) {
	if c.interp == nil {
		return nil, fmt.Errorf("call %s: no interpreter", c.Method)
	}
	return c.interp.invoke(seq, receiver, args)
}

// String renders the call for logs.
func (c *Call) String() string {
	return fmt.Sprintf("%s.%s/%d", Inspect(c.Receiver), c.Method, len(c.Args))
}

// ---------------------------------------------------------------------------
// Block: a block sequence bound to the frame that attached it
// ---------------------------------------------------------------------------

// Block is the block operand of a send, bound to the frame that executed the
// send. Its body reads and writes that frame's locals at depth 1.
type Block struct {
	Seq *InstructionSequence

	self   Value
	outer  *frame
	interp *Interpreter
}

// Arity returns the number of declared block parameters.
func (b *Block) Arity() int {
	return b.Seq.Arity()
}

// Yield runs the block body. Missing arguments bind to nil and extra ones
// are dropped.
func (b *Block) Yield(args ...Value) (Value, error) {
	return b.interp.yield(b, args)
}
