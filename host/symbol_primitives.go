package host

import "github.com/chazu/yasm/vm"

// ---------------------------------------------------------------------------
// Symbol Primitives
// ---------------------------------------------------------------------------

func (k *Kernel) registerSymbolPrimitives() {
	c := k.symbols

	c.AddMethod0("to_s", func(recv vm.Value) (vm.Value, error) {
		return vm.NewString(string(recv.(vm.Symbol))), nil
	})

	// == is identity since symbols are interned by name
	c.AddMethod1("==", func(recv, arg vm.Value) (vm.Value, error) {
		return recv == arg, nil
	})
}
