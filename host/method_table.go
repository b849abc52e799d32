package host

import (
	"github.com/chazu/yasm/vm"
)

// ---------------------------------------------------------------------------
// MethodTable: primitive methods for one kind of receiver
// ---------------------------------------------------------------------------

// PrimitiveFunc implements a primitive. Arguments have already been
// arity-checked.
type PrimitiveFunc func(call *vm.Call) (vm.Value, error)

type primitive struct {
	arity int // -1 accepts any count
	fn    PrimitiveFunc
}

// MethodTable maps method names to primitives.
type MethodTable struct {
	methods map[string]primitive
}

// NewMethodTable creates an empty table.
func NewMethodTable() *MethodTable {
	return &MethodTable{methods: make(map[string]primitive)}
}

// AddMethod0 registers a primitive taking no arguments.
func (t *MethodTable) AddMethod0(name string, fn func(recv vm.Value) (vm.Value, error)) {
	t.methods[name] = primitive{arity: 0, fn: func(call *vm.Call) (vm.Value, error) {
		return fn(call.Receiver)
	}}
}

// AddMethod1 registers a primitive taking one argument.
func (t *MethodTable) AddMethod1(name string, fn func(recv, arg vm.Value) (vm.Value, error)) {
	t.methods[name] = primitive{arity: 1, fn: func(call *vm.Call) (vm.Value, error) {
		return fn(call.Receiver, call.Args[0])
	}}
}

// AddMethod registers a primitive that receives the whole call. arity -1
// accepts any number of arguments.
func (t *MethodTable) AddMethod(name string, arity int, fn PrimitiveFunc) {
	t.methods[name] = primitive{arity: arity, fn: fn}
}

// Lookup returns the primitive for name.
func (t *MethodTable) Lookup(name string) (PrimitiveFunc, int, bool) {
	p, ok := t.methods[name]
	return p.fn, p.arity, ok
}

// dispatch runs the primitive for call, if any.
func (t *MethodTable) dispatch(call *vm.Call) (vm.Value, bool, error) {
	fn, arity, ok := t.Lookup(call.Method)
	if !ok {
		return nil, false, nil
	}
	if arity >= 0 && len(call.Args) != arity {
		return nil, true, &ArgumentError{Method: call.Method, Given: len(call.Args), Expected: arity}
	}
	v, err := fn(call)
	return v, true, err
}
