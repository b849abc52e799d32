package host

import (
	"strings"

	"github.com/chazu/yasm/vm"
)

// ---------------------------------------------------------------------------
// Object Primitives: understood by every receiver
// ---------------------------------------------------------------------------

func (k *Kernel) registerObjectPrimitives() {
	c := k.objects

	// p prints each argument's inspect form on its own line. It returns
	// nil, the argument, or all arguments as a list.
	c.AddMethod("p", -1, func(call *vm.Call) (vm.Value, error) {
		if len(call.Args) > 0 {
			lines := make([]string, len(call.Args))
			for i, arg := range call.Args {
				lines[i] = vm.Inspect(arg)
			}
			if err := k.print(strings.Join(lines, "\n")); err != nil {
				return nil, err
			}
		}
		switch len(call.Args) {
		case 0:
			return nil, nil
		case 1:
			return call.Args[0], nil
		default:
			return append([]vm.Value(nil), call.Args...), nil
		}
	})

	c.AddMethod0("nil?", func(recv vm.Value) (vm.Value, error) {
		return recv == nil, nil
	})

	c.AddMethod0("inspect", func(recv vm.Value) (vm.Value, error) {
		return vm.NewString(vm.Inspect(recv)), nil
	})

	c.AddMethod1("==", func(recv, arg vm.Value) (vm.Value, error) {
		return equal(recv, arg), nil
	})

	c.AddMethod1("!=", func(recv, arg vm.Value) (vm.Value, error) {
		return !equal(recv, arg), nil
	})
}

// equal compares by value for strings and by identity otherwise.
func equal(a, b vm.Value) bool {
	if sa, ok := stringValue(a); ok {
		sb, ok := stringValue(b)
		return ok && sa == sb
	}
	switch a.(type) {
	case []vm.Value:
		return false
	}
	return a == b
}
