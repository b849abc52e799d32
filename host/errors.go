package host

import (
	"errors"
	"fmt"

	"github.com/chazu/yasm/vm"
)

// ErrZeroDivision is returned by integer / and % with a zero divisor.
var ErrZeroDivision = errors.New("divided by 0")

// ErrNoBlock is returned by methods that yield when no block was given.
var ErrNoBlock = errors.New("no block given (yield)")

// ArgumentError reports a call with the wrong number of arguments.
type ArgumentError struct {
	Method   string
	Given    int
	Expected int
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: wrong number of arguments (given %d, expected %d)", e.Method, e.Given, e.Expected)
}

// TypeError reports an argument of the wrong kind for a primitive.
type TypeError struct {
	Method string
	Arg    vm.Value
	Want   string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: %s can't be coerced into %s", e.Method, vm.Inspect(e.Arg), e.Want)
}
