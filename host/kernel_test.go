package host

import (
	"bytes"
	"errors"
	"testing"

	"github.com/chazu/yasm/vm"
)

// send evaluates recv.method(args...) through a fresh kernel.
func send(t *testing.T, k *Kernel, recv vm.Value, method string, args ...vm.Value) (vm.Value, error) {
	t.Helper()
	b := vm.NewBuilder(vm.Config{})
	if recv == nil {
		b.PutNil()
	} else {
		b.PutObject(recv)
	}
	for _, a := range args {
		b.PutObject(a)
	}
	b.Send(method, len(args), vm.ArgsSimple)
	b.Leave()
	seq, err := b.Finalize()
	if err != nil {
		t.Fatalf("assemble %s: %v", method, err)
	}
	return vm.Evaluate(seq, nil, k)
}

func TestIntegerPrimitives(t *testing.T) {
	tests := []struct {
		recv   int64
		method string
		arg    int64
		want   vm.Value
	}{
		{1, "+", 2, int64(3)},
		{1, "-", 2, int64(-1)},
		{6, "*", 7, int64(42)},
		{7, "/", 2, int64(3)},
		{-7, "/", 2, int64(-4)},
		{7, "%", 3, int64(1)},
		{-7, "%", 3, int64(2)},
		{1, "<", 10, true},
		{1, ">", 10, false},
		{3, "<=", 3, true},
		{2, ">=", 3, false},
		{5, "==", 5, true},
		{5, "!=", 5, false},
	}
	k := NewKernel()
	for _, tt := range tests {
		got, err := send(t, k, tt.recv, tt.method, tt.arg)
		if err != nil {
			t.Fatalf("%d %s %d: %v", tt.recv, tt.method, tt.arg, err)
		}
		if got != tt.want {
			t.Errorf("%d %s %d = %v, want %v", tt.recv, tt.method, tt.arg, got, tt.want)
		}
	}
}

func TestIntegerToS(t *testing.T) {
	got, err := send(t, NewKernel(), int64(42), "to_s")
	if err != nil {
		t.Fatalf("to_s error: %v", err)
	}
	if s, ok := got.(*vm.String); !ok || s.Value != "42" {
		t.Errorf("42.to_s = %v, want \"42\"", got)
	}
}

func TestZeroDivision(t *testing.T) {
	_, err := send(t, NewKernel(), int64(1), "/", int64(0))
	if !errors.Is(err, ErrZeroDivision) {
		t.Errorf("1 / 0 error = %v, want ErrZeroDivision", err)
	}
}

func TestIntegerTypeError(t *testing.T) {
	_, err := send(t, NewKernel(), int64(1), "+", "x")
	var te *TypeError
	if !errors.As(err, &te) {
		t.Errorf("1 + \"x\" error = %v, want TypeError", err)
	}
}

func TestStringPrimitives(t *testing.T) {
	k := NewKernel()
	got, err := send(t, k, "foo", "upcase")
	if err != nil {
		t.Fatalf("upcase error: %v", err)
	}
	if s, ok := got.(*vm.String); !ok || s.Value != "FOO" {
		t.Errorf("'foo'.upcase = %v, want FOO", got)
	}

	got, err = send(t, k, "foo", "+", "bar")
	if err != nil {
		t.Fatalf("+ error: %v", err)
	}
	if s, ok := got.(*vm.String); !ok || s.Value != "foobar" {
		t.Errorf("'foo' + 'bar' = %v, want foobar", got)
	}

	if got, _ := send(t, k, "héllo", "size"); got != int64(5) {
		t.Errorf("size = %v, want 5", got)
	}
	if got, _ := send(t, k, "a", "==", "a"); got != true {
		t.Errorf("'a' == 'a' = %v, want true", got)
	}
}

func TestSymbolPrimitives(t *testing.T) {
	k := NewKernel()
	if got, _ := send(t, k, vm.Symbol("ok"), "==", vm.Symbol("ok")); got != true {
		t.Errorf(":ok == :ok = %v, want true", got)
	}
	if got, _ := send(t, k, vm.Symbol("ok"), "==", vm.Symbol("ng")); got != false {
		t.Errorf(":ok == :ng = %v, want false", got)
	}
	got, err := send(t, k, vm.Symbol("ok"), "to_s")
	if err != nil {
		t.Fatalf("to_s error: %v", err)
	}
	if s, ok := got.(*vm.String); !ok || s.Value != "ok" {
		t.Errorf(":ok.to_s = %v, want ok", got)
	}
}

func TestObjectPrimitives(t *testing.T) {
	k := NewKernel()
	if got, _ := send(t, k, nil, "nil?"); got != true {
		t.Errorf("nil.nil? = %v, want true", got)
	}
	if got, _ := send(t, k, int64(1), "nil?"); got != false {
		t.Errorf("1.nil? = %v, want false", got)
	}
	if got, _ := send(t, k, true, "==", true); got != true {
		t.Errorf("true == true = %v, want true", got)
	}
}

func TestPrint(t *testing.T) {
	var out bytes.Buffer
	k := NewKernel(WithOutput(&out))

	b := vm.NewBuilder(vm.Config{})
	b.PutSelf()
	b.PutObject(vm.Symbol("ok"))
	b.Send("p", 1, vm.FCall|vm.ArgsSimple)
	b.Pop()
	b.PutSelf()
	b.PutString("hi")
	b.PutObject(3)
	b.Send("p", 2, vm.FCall|vm.ArgsSimple)
	b.Leave()
	seq, err := b.Finalize()
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	got, err := vm.Evaluate(seq, nil, k)
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}
	if list, ok := got.([]vm.Value); !ok || len(list) != 2 {
		t.Errorf("p(a, b) = %v, want a two-element list", got)
	}
	if want := ":ok\n\"hi\"\n3\n"; out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestUnknownMethod(t *testing.T) {
	_, err := send(t, NewKernel(), int64(1), "frobnicate")
	var ume *vm.UnknownMethodError
	if !errors.As(err, &ume) {
		t.Fatalf("error = %v, want UnknownMethodError", err)
	}
	if ume.Method != "frobnicate" || ume.Receiver != int64(1) {
		t.Errorf("error = %+v", ume)
	}
}

func TestPrimitiveArity(t *testing.T) {
	_, err := send(t, NewKernel(), int64(1), "+")
	var ae *ArgumentError
	if !errors.As(err, &ae) {
		t.Fatalf("error = %v, want ArgumentError", err)
	}
	if ae.Given != 0 || ae.Expected != 1 {
		t.Errorf("error = %+v, want given 0 expected 1", ae)
	}
}

// identity assembles `def name(x) x end` and returns the top-level sequence
// that defines it and calls it with argc arguments.
func identity(t *testing.T, name string, argc int) *vm.InstructionSequence {
	t.Helper()
	top := vm.NewBuilder(vm.Config{})
	err := top.DefineMethod(name, []string{"x"}, func(m *vm.Builder) error {
		m.GetLocal("x", 0)
		return m.Leave()
	})
	if err != nil {
		t.Fatalf("assemble method: %v", err)
	}
	top.Pop()
	top.PutSelf()
	for i := 0; i < argc; i++ {
		top.PutObject(100)
	}
	top.Send(name, argc, vm.FCall|vm.ArgsSimple)
	top.Leave()
	seq, err := top.Finalize()
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return seq
}

func TestDefineAndCallMethod(t *testing.T) {
	k := NewKernel()
	got, err := vm.Evaluate(identity(t, "foo", 1), nil, k)
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}
	if got != int64(100) {
		t.Errorf("foo(100) = %v, want 100", got)
	}
	if names := k.Methods(); len(names) != 1 || names[0] != "foo" {
		t.Errorf("Methods() = %v, want [foo]", names)
	}
}

func TestUserMethodArity(t *testing.T) {
	_, err := vm.Evaluate(identity(t, "foo", 2), nil, NewKernel())
	var ae *ArgumentError
	if !errors.As(err, &ae) {
		t.Fatalf("error = %v, want ArgumentError", err)
	}
	if ae.Given != 2 || ae.Expected != 1 {
		t.Errorf("error = %+v, want given 2 expected 1", ae)
	}
}

func TestDefineMethodFromArray(t *testing.T) {
	b := vm.NewBuilder(vm.Config{})
	b.DefineMethod("answer", nil, func(m *vm.Builder) error {
		m.PutObject(42)
		return m.Leave()
	})
	b.Leave()
	seq, err := b.Finalize()
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	method := seq.At(2).ISeq

	k := NewKernel()
	// Route the definition through the array interchange form.
	dumped := vm.CallResolverFunc(func(call *vm.Call) (vm.Value, error) {
		if call.Method == vm.DefineMethod {
			call.Args[1] = call.Args[1].(*vm.InstructionSequence).ToArray()
		}
		return k.Send(call)
	})
	got, err := vm.Evaluate(seq, nil, dumped)
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}
	if got != vm.Symbol("answer") {
		t.Errorf("define = %v, want :answer", got)
	}
	if body, ok := k.Method("answer"); !ok || body == method {
		t.Errorf("method should be rebuilt from its dump")
	}
}

func TestDefineMethodRejectsBlockSequence(t *testing.T) {
	blk := vm.NewBuilder(vm.Config{Type: vm.SeqBlock})
	blk.PutNil()
	blk.Leave()
	seq, err := blk.Finalize()
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if err := NewKernel().DefineMethod("x", seq); err == nil {
		t.Error("expected error defining a block sequence as a method")
	}
}

func TestTimes(t *testing.T) {
	var out bytes.Buffer
	k := NewKernel(WithOutput(&out))

	top := vm.NewBuilder(vm.Config{})
	blk := top.OpenChild(vm.SeqBlock, []string{"i"}, "block in <compiled>")
	blk.PutSelf()
	blk.GetLocal("i", 0)
	blk.Send("p", 1, vm.FCall|vm.ArgsSimple)
	blk.Leave()
	body, err := blk.Finalize()
	if err != nil {
		t.Fatalf("assemble block: %v", err)
	}
	top.PutObject(3)
	top.SendWithBlock("times", 0, 0, body)
	top.Leave()
	seq, err := top.Finalize()
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	got, err := vm.Evaluate(seq, nil, k)
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}
	if got != int64(3) {
		t.Errorf("3.times = %v, want 3", got)
	}
	if out.String() != "0\n1\n2\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestTimesWithoutBlock(t *testing.T) {
	_, err := send(t, NewKernel(), int64(3), "times")
	if !errors.Is(err, ErrNoBlock) {
		t.Errorf("error = %v, want ErrNoBlock", err)
	}
}

// program assembles a top-level sequence and fails the test on error.
func program(t *testing.T, emit func(b *vm.Builder)) *vm.InstructionSequence {
	t.Helper()
	b := vm.NewBuilder(vm.Config{})
	emit(b)
	seq, err := b.Finalize()
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return seq
}

func TestPrimitivesPrecedeUserMethods(t *testing.T) {
	k := NewKernel()
	seq := program(t, func(b *vm.Builder) {
		b.DefineMethod("upcase", nil, func(m *vm.Builder) error {
			m.PutObject(vm.Symbol("hijacked"))
			return m.Leave()
		})
		b.Pop()
		b.PutString("foo")
		b.Send("upcase", 0, vm.ArgsSimple)
		b.Leave()
	})
	got, err := vm.Evaluate(seq, nil, k)
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}
	if s, ok := got.(*vm.String); !ok || s.Value != "FOO" {
		t.Errorf("'foo'.upcase = %v, want FOO", vm.Inspect(got))
	}
	if _, ok := k.Method("upcase"); !ok {
		t.Error("upcase should still be recorded as a user method")
	}
}

func TestUserMethodsShadowObjectPrimitives(t *testing.T) {
	seq := program(t, func(b *vm.Builder) {
		b.DefineMethod("nil?", nil, func(m *vm.Builder) error {
			m.PutObject(vm.Symbol("mine"))
			return m.Leave()
		})
		b.Pop()
		b.PutObject(1)
		b.Send("nil?", 0, vm.ArgsSimple)
		b.Leave()
	})
	got, err := vm.Evaluate(seq, nil, NewKernel())
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}
	if got != vm.Symbol("mine") {
		t.Errorf("1.nil? = %v, want :mine", got)
	}
}

func TestTimesBlockWithoutParams(t *testing.T) {
	// i = 0; 2.times { i = i + 1 }; i
	top := vm.NewBuilder(vm.Config{})
	top.PutObject(0)
	top.SetLocal("i", 0)
	blk := top.OpenChild(vm.SeqBlock, nil, "block in <compiled>")
	blk.GetLocal("i", 1)
	blk.PutObject(1)
	blk.Send("+", 1, vm.ArgsSimple)
	blk.Dup()
	blk.SetLocal("i", 1)
	blk.Leave()
	body, err := blk.Finalize()
	if err != nil {
		t.Fatalf("assemble block: %v", err)
	}
	top.PutObject(2)
	top.SendWithBlock("times", 0, 0, body)
	top.Pop()
	top.GetLocal("i", 0)
	top.Leave()
	seq, err := top.Finalize()
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	got, err := vm.Evaluate(seq, nil, NewKernel())
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}
	if got != int64(2) {
		t.Errorf("i = %v, want 2", got)
	}
}
