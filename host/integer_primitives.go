package host

import (
	"strconv"

	"github.com/chazu/yasm/vm"
)

// ---------------------------------------------------------------------------
// Integer Primitives
// ---------------------------------------------------------------------------

func (k *Kernel) registerIntegerPrimitives() {
	c := k.integers

	arith := func(name string, op func(a, b int64) (vm.Value, error)) {
		c.AddMethod1(name, func(recv, arg vm.Value) (vm.Value, error) {
			b, ok := arg.(int64)
			if !ok {
				return nil, &TypeError{Method: name, Arg: arg, Want: "Integer"}
			}
			return op(recv.(int64), b)
		})
	}

	// Arithmetic
	arith("+", func(a, b int64) (vm.Value, error) { return a + b, nil })
	arith("-", func(a, b int64) (vm.Value, error) { return a - b, nil })
	arith("*", func(a, b int64) (vm.Value, error) { return a * b, nil })
	arith("/", func(a, b int64) (vm.Value, error) {
		if b == 0 {
			return nil, ErrZeroDivision
		}
		return floorDiv(a, b), nil
	})
	arith("%", func(a, b int64) (vm.Value, error) {
		if b == 0 {
			return nil, ErrZeroDivision
		}
		return a - floorDiv(a, b)*b, nil
	})

	// Comparison
	arith("<", func(a, b int64) (vm.Value, error) { return a < b, nil })
	arith(">", func(a, b int64) (vm.Value, error) { return a > b, nil })
	arith("<=", func(a, b int64) (vm.Value, error) { return a <= b, nil })
	arith(">=", func(a, b int64) (vm.Value, error) { return a >= b, nil })

	// Equality never fails on a foreign argument
	c.AddMethod1("==", func(recv, arg vm.Value) (vm.Value, error) {
		b, ok := arg.(int64)
		return ok && recv.(int64) == b, nil
	})
	c.AddMethod1("!=", func(recv, arg vm.Value) (vm.Value, error) {
		b, ok := arg.(int64)
		return !ok || recv.(int64) != b, nil
	})

	c.AddMethod0("to_s", func(recv vm.Value) (vm.Value, error) {
		return vm.NewString(strconv.FormatInt(recv.(int64), 10)), nil
	})

	// times yields 0..n-1 (or nothing to a block without parameters) and
	// returns the receiver
	c.AddMethod("times", 0, func(call *vm.Call) (vm.Value, error) {
		if call.Block == nil {
			return nil, ErrNoBlock
		}
		n := call.Receiver.(int64)
		for i := int64(0); i < n; i++ {
			var err error
			if call.Block.Arity() == 0 {
				_, err = call.Block.Yield()
			} else {
				_, err = call.Block.Yield(i)
			}
			if err != nil {
				return nil, err
			}
		}
		return n, nil
	})
}

// floorDiv rounds toward negative infinity.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
