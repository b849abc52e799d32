package compiler

// ---------------------------------------------------------------------------
// AST: the closed node set lowered by the compiler
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in an AST document.
type Span struct {
	Start Position
	End   Position
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// Program is the root of a top-level compilation unit.
type Program struct {
	SpanVal Span
	Body    Node
}

func (n *Program) Span() Span { return n.SpanVal }
func (n *Program) node()      {}

// Sequence evaluates statements in order; its value is the last one.
type Sequence struct {
	SpanVal Span
	Stmts   []Node
}

func (n *Sequence) Span() Span { return n.SpanVal }
func (n *Sequence) node()      {}

// Literal is an immutable value: integer, bool, nil, string or vm.Symbol.
type Literal struct {
	SpanVal Span
	Value   any
}

func (n *Literal) Span() Span { return n.SpanVal }
func (n *Literal) node()      {}

// StringLiteral produces a fresh mutable string each time it is evaluated.
type StringLiteral struct {
	SpanVal Span
	Value   string
}

func (n *StringLiteral) Span() Span { return n.SpanVal }
func (n *StringLiteral) node()      {}

// Nil is the nil literal.
type Nil struct {
	SpanVal Span
}

func (n *Nil) Span() Span { return n.SpanVal }
func (n *Nil) node()      {}

// Self refers to the current receiver.
type Self struct {
	SpanVal Span
}

func (n *Self) Span() Span { return n.SpanVal }
func (n *Self) node()      {}

// Send is a method call. A nil Receiver is an implicit self receiver and
// compiles as an fcall, as does an explicit receiver with FCall set.
type Send struct {
	SpanVal  Span
	Receiver Node
	Method   string
	Args     []Node
	FCall    bool
	Block    *Block
}

func (n *Send) Span() Span { return n.SpanVal }
func (n *Send) node()      {}

// If is a conditional. Else may be nil.
type If struct {
	SpanVal Span
	Cond    Node
	Then    Node
	Else    Node
}

func (n *If) Span() Span { return n.SpanVal }
func (n *If) node()      {}

// While loops while Cond is truthy. Its value is always nil.
type While struct {
	SpanVal Span
	Cond    Node
	Body    Node
}

func (n *While) Span() Span { return n.SpanVal }
func (n *While) node()      {}

// LocalAssign assigns to a local variable (name = value).
type LocalAssign struct {
	SpanVal Span
	Name    string
	Value   Node
}

func (n *LocalAssign) Span() Span { return n.SpanVal }
func (n *LocalAssign) node()      {}

// LocalVar reads a local variable.
type LocalVar struct {
	SpanVal Span
	Name    string
}

func (n *LocalVar) Span() Span { return n.SpanVal }
func (n *LocalVar) node()      {}

// Def defines a method. Its value is the method name as a symbol.
type Def struct {
	SpanVal Span
	Name    string
	Params  []string
	Body    Node
}

func (n *Def) Span() Span { return n.SpanVal }
func (n *Def) node()      {}

// Block is a block attached to a Send. Its body sees the enclosing scope's
// locals.
type Block struct {
	SpanVal Span
	Params  []string
	Body    Node
}

func (n *Block) Span() Span { return n.SpanVal }
func (n *Block) node()      {}
