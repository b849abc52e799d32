package host

import (
	"strings"

	"github.com/chazu/yasm/vm"
)

// ---------------------------------------------------------------------------
// String Primitives
// ---------------------------------------------------------------------------
//
// Receivers are either immutable literals (string) or mutable strings
// (*vm.String); results are always fresh *vm.String values.

func stringValue(v vm.Value) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case *vm.String:
		return s.Value, true
	default:
		return "", false
	}
}

func (k *Kernel) registerStringPrimitives() {
	c := k.strings

	c.AddMethod0("upcase", func(recv vm.Value) (vm.Value, error) {
		s, _ := stringValue(recv)
		return vm.NewString(strings.ToUpper(s)), nil
	})

	c.AddMethod0("size", func(recv vm.Value) (vm.Value, error) {
		s, _ := stringValue(recv)
		return int64(len([]rune(s))), nil
	})

	c.AddMethod0("to_s", func(recv vm.Value) (vm.Value, error) {
		s, _ := stringValue(recv)
		return vm.NewString(s), nil
	})

	c.AddMethod1("+", func(recv, arg vm.Value) (vm.Value, error) {
		b, ok := stringValue(arg)
		if !ok {
			return nil, &TypeError{Method: "+", Arg: arg, Want: "String"}
		}
		a, _ := stringValue(recv)
		return vm.NewString(a + b), nil
	})

	c.AddMethod1("==", func(recv, arg vm.Value) (vm.Value, error) {
		b, ok := stringValue(arg)
		a, _ := stringValue(recv)
		return ok && a == b, nil
	})
}
