package host

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/chazu/yasm/vm"
)

var log = commonlog.GetLogger("yasm.host")

// Option configures a Kernel.
type Option func(*Kernel)

// WithOutput sets the writer p prints to. The default is os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(k *Kernel) {
		k.out = w
	}
}

// Kernel resolves sends for yasm programs. Primitives for the receiver's kind
// (integer, string, symbol) are tried first, then user methods, which are
// shared by all receivers, then the primitives every object has. A Kernel may serve
// several interpreters at once.
type Kernel struct {
	mu      sync.RWMutex
	methods map[string]*vm.InstructionSequence

	outMu sync.Mutex
	out   io.Writer

	integers *MethodTable
	strings  *MethodTable
	symbols  *MethodTable
	objects  *MethodTable
}

// NewKernel creates a kernel with the primitive tables installed.
func NewKernel(opts ...Option) *Kernel {
	k := &Kernel{
		methods:  make(map[string]*vm.InstructionSequence),
		out:      os.Stdout,
		integers: NewMethodTable(),
		strings:  NewMethodTable(),
		symbols:  NewMethodTable(),
		objects:  NewMethodTable(),
	}
	for _, opt := range opts {
		opt(k)
	}
	k.registerIntegerPrimitives()
	k.registerStringPrimitives()
	k.registerSymbolPrimitives()
	k.registerObjectPrimitives()
	return k
}

// Send implements vm.CallResolver.
func (k *Kernel) Send(call *vm.Call) (vm.Value, error) {
	if call.Receiver == vm.VMCore && call.Method == vm.DefineMethod {
		return k.defineMethod(call)
	}

	// Receiver-kind primitives take precedence over user methods; user
	// methods shadow the shared object primitives.
	if table := k.tableFor(call.Receiver); table != nil {
		if v, ok, err := table.dispatch(call); ok {
			return v, err
		}
	}

	if seq, ok := k.Method(call.Method); ok {
		if len(call.Args) != seq.Arity() {
			return nil, &ArgumentError{Method: call.Method, Given: len(call.Args), Expected: seq.Arity()}
		}
		return call.Invoke(seq, call.Receiver, call.Args...)
	}

	if v, ok, err := k.objects.dispatch(call); ok {
		return v, err
	}
	return nil, &vm.UnknownMethodError{Receiver: call.Receiver, Method: call.Method}
}

func (k *Kernel) tableFor(recv vm.Value) *MethodTable {
	switch recv.(type) {
	case int64:
		return k.integers
	case string, *vm.String:
		return k.strings
	case vm.Symbol:
		return k.symbols
	default:
		return nil
	}
}

// defineMethod handles core#define_method: args are the method name and
// either a finalized sequence or its array dump.
func (k *Kernel) defineMethod(call *vm.Call) (vm.Value, error) {
	if len(call.Args) != 2 {
		return nil, &ArgumentError{Method: vm.DefineMethod, Given: len(call.Args), Expected: 2}
	}
	var name string
	switch n := call.Args[0].(type) {
	case vm.Symbol:
		name = string(n)
	case string:
		name = n
	default:
		return nil, &TypeError{Method: vm.DefineMethod, Arg: call.Args[0], Want: "Symbol"}
	}

	var seq *vm.InstructionSequence
	switch body := call.Args[1].(type) {
	case *vm.InstructionSequence:
		seq = body
	case []any:
		loaded, err := vm.FromArray(body)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", vm.DefineMethod, name, err)
		}
		seq = loaded
	default:
		return nil, &TypeError{Method: vm.DefineMethod, Arg: call.Args[1], Want: "ISeq"}
	}
	if err := k.DefineMethod(name, seq); err != nil {
		return nil, err
	}
	return vm.Symbol(name), nil
}

// DefineMethod records seq as the body of name, replacing any earlier
// definition.
func (k *Kernel) DefineMethod(name string, seq *vm.InstructionSequence) error {
	if seq == nil || !seq.Finalized() {
		return fmt.Errorf("define %s: sequence is not finalized", name)
	}
	if seq.Type != vm.SeqMethod {
		return fmt.Errorf("define %s: want a method sequence, got %s", name, seq.Type)
	}
	k.mu.Lock()
	k.methods[name] = seq
	k.mu.Unlock()

	if digest, err := seq.Digest(); err == nil {
		log.Debugf("defined %s/%d %s", name, seq.Arity(), digest[:12])
	}
	return nil
}

// Method returns the user method called name.
func (k *Kernel) Method(name string) (*vm.InstructionSequence, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	seq, ok := k.methods[name]
	return seq, ok
}

// Methods returns the names of all user methods in sorted order.
func (k *Kernel) Methods() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	names := make([]string, 0, len(k.methods))
	for name := range k.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (k *Kernel) print(s string) error {
	k.outMu.Lock()
	defer k.outMu.Unlock()
	_, err := fmt.Fprintln(k.out, s)
	return err
}
