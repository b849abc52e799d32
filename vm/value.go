package vm

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is any value that can live on the operand stack. The host owns the
// representation; the VM itself only creates literals, strings, special
// objects, instruction sequences and blocks.
type Value = any

// Symbol is an immutable interned name (:foo).
type Symbol string

// String returns the symbol name.
func (s Symbol) String() string {
	return string(s)
}

// String is a mutable string value created by putstring.
type String struct {
	Value string
}

// NewString returns a fresh mutable string.
func NewString(s string) *String {
	return &String{Value: s}
}

func (s *String) String() string {
	return s.Value
}

// SpecialObject tags a VM-internal marker object.
type SpecialObject int

const (
	// VMCore receives reserved calls such as core#define_method.
	VMCore SpecialObject = 1
	// CBase is the constant base marker; reserved, unused by the compiler.
	CBase SpecialObject = 2
)

// String implements the Stringer interface.
func (s SpecialObject) String() string {
	switch s {
	case VMCore:
		return "VMCore"
	case CBase:
		return "CBase"
	default:
		return fmt.Sprintf("SpecialObject(%d)", int(s))
	}
}

// DefineMethod is the reserved method name used to define a method on VMCore.
const DefineMethod = "core#define_method"

// Truthy reports whether v counts as true in a branch. Only nil and false
// are falsy.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	default:
		return true
	}
}

// normalizeLiteral converts Go numeric kinds to int64 and reports whether v is
// a valid putobject literal.
func normalizeLiteral(v Value) (Value, bool) {
	switch x := v.(type) {
	case nil, bool, string, Symbol, int64:
		return v, true
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case float64:
		// Decoded documents hand integers over as float64.
		if x == float64(int64(x)) {
			return int64(x), true
		}
		return nil, false
	default:
		return nil, false
	}
}

// Inspect renders a value the way p prints it.
func Inspect(v Value) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case string:
		return strconv.Quote(x)
	case *String:
		return strconv.Quote(x.Value)
	case Symbol:
		return ":" + string(x)
	case SpecialObject:
		return "#<" + x.String() + ">"
	case *InstructionSequence:
		return fmt.Sprintf("#<ISeq:%s>", x.Label)
	case *Block:
		return fmt.Sprintf("#<Block:%s>", x.Seq.Label)
	case []Value:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = Inspect(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}
