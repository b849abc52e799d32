package asm

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/chazu/yasm/host"
	"github.com/chazu/yasm/vm"
)

const fibSource = `
# def fib(n) ... end; fib(10)
putspecialobject VMCore
putobject :fib
putiseq method fib n {
  getlocal n 0
  putobject 2
  send < 1 simple
  branchunless else
  putobject 1
  jump finish
  label else
  putself
  getlocal n 0
  putobject 1
  send - 1 simple
  send fib 1 fcall|simple
  putself
  getlocal n 0
  putobject 2
  send - 1 simple
  send fib 1 fcall|simple
  send + 1
  label finish
  leave
}
send core#define_method 2
pop
putself
putobject 10
send fib 1 fcall   ; fib(10)
leave
`

func run(t *testing.T, src string) vm.Value {
	t.Helper()
	seq, err := Parse("test.yasm", src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	result, err := vm.Evaluate(seq, nil, host.NewKernel())
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}
	return result
}

func TestParseFib(t *testing.T) {
	if got := run(t, fibSource); got != int64(89) {
		t.Errorf("fib(10) = %v, want 89", got)
	}
}

func TestParseLiterals(t *testing.T) {
	tests := []struct {
		src  string
		want vm.Value
	}{
		{"putobject 1\nleave", int64(1)},
		{"putobject 1_000_000\nleave", int64(1_000_000)},
		{"putobject -3\nleave", int64(-3)},
		{"putobject :ok\nleave", vm.Symbol("ok")},
		{`putobject "hello"` + "\nleave", "hello"},
		{"putobject nil\nleave", nil},
		{"putobject true\nleave", true},
		{"putobject false\nleave", false},
	}
	for _, tt := range tests {
		if got := run(t, tt.src); got != tt.want {
			t.Errorf("%q = %#v, want %#v", tt.src, got, tt.want)
		}
	}
}

func TestParseStringEscapes(t *testing.T) {
	seq, err := Parse("s.yasm", `putstring "a \"b\" # c"`+"\nleave")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if got := seq.At(0).Str; got != `a "b" # c` {
		t.Errorf("putstring operand = %q", got)
	}
}

func TestParseBlock(t *testing.T) {
	src := `
putobject 1
setlocal i 0
putobject 1
send times 0 - block {
  getlocal i 1
  putobject 1
  send + 1
  dup
  setlocal i 1
  leave
}
pop
getlocal i 0
leave
`
	if got := run(t, src); got != int64(2) {
		t.Errorf("i = %v, want 2", got)
	}
}

func TestParseBlockParams(t *testing.T) {
	src := `
putobject 0
setlocal sum
putobject 4
send times 0 0 block k {
  getlocal sum 1
  getlocal k
  send + 1
  dup
  setlocal sum 1
  leave
}
pop
getlocal sum
leave
`
	if got := run(t, src); got != int64(6) {
		t.Errorf("sum = %v, want 6", got)
	}
}

func TestParseMatchesBuilder(t *testing.T) {
	seq, err := Parse("loop.yasm", `
putobject 0
setlocal a 0
label top
getlocal a 0
putobject 3
send < 1
branchunless done
getlocal a 0
putobject 1
send + 1
setlocal a 0
jump top
label done
getlocal a 0
leave
`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	b := vm.NewBuilder(vm.Config{})
	b.PutObject(0)
	b.SetLocal("a", 0)
	b.Label("top")
	b.GetLocal("a", 0)
	b.PutObject(3)
	b.Send("<", 1, 0)
	b.BranchUnless("done")
	b.GetLocal("a", 0)
	b.PutObject(1)
	b.Send("+", 1, 0)
	b.SetLocal("a", 0)
	b.Jump("top")
	b.Label("done")
	b.GetLocal("a", 0)
	b.Leave()
	want, err := b.Finalize()
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if diff := cmp.Diff(want.ToArray(), seq.ToArray()); diff != "" {
		t.Errorf("parsed sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"unknown opcode", "putobject 1\nfrob\nleave", 2},
		{"bad literal", "putobject abc", 1},
		{"too many operands", "putnil 1", 1},
		{"undeclared local", "\ngetlocal x 0", 2},
		{"duplicate label", "label a\nlabel a", 2},
		{"unterminated string", `putstring "abc`, 1},
		{"unexpected brace", "putnil\n}", 2},
		{"unclosed child", "putiseq method foo {\n  putnil\n  leave", 1},
		{"bad flag", "putself\nsend p 0 private", 2},
		{"missing brace", "putiseq method foo", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad.yasm", tt.src)
			var ae *Error
			if !errors.As(err, &ae) {
				t.Fatalf("error = %v, want *asm.Error", err)
			}
			if ae.File != "bad.yasm" || ae.Line != tt.line {
				t.Errorf("location = %s:%d, want bad.yasm:%d", ae.File, ae.Line, tt.line)
			}
		})
	}
}

func TestParseUndefinedLabel(t *testing.T) {
	_, err := Parse("l.yasm", "jump nowhere\nleave")
	var ule *vm.UnresolvedLabelError
	if !errors.As(err, &ule) {
		t.Fatalf("error = %v, want UnresolvedLabelError", err)
	}
	if ule.Label != "nowhere" {
		t.Errorf("Label = %q, want nowhere", ule.Label)
	}
}
