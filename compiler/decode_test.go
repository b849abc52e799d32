package compiler

import (
	"errors"
	"testing"

	"github.com/chazu/yasm/vm"
)

const fibDocument = `
node: program
body:
  node: seq
  stmts:
    - node: def
      name: fib
      params: [n]
      body:
        node: if
        cond: {node: send, recv: {node: lvar, name: n}, method: "<", args: [{node: lit, value: 2}]}
        then: {node: lit, value: 1}
        else:
          node: send
          method: "+"
          recv:
            node: send
            method: fib
            args:
              - {node: send, recv: {node: lvar, name: n}, method: "-", args: [{node: lit, value: 1}]}
          args:
            - node: send
              method: fib
              args:
                - {node: send, recv: {node: lvar, name: n}, method: "-", args: [{node: lit, value: 2}]}
    - {node: send, method: fib, args: [{node: lit, value: 10}]}
`

func TestDecodeFib(t *testing.T) {
	node, err := Decode([]byte(fibDocument))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	prog, ok := node.(*Program)
	if !ok {
		t.Fatalf("root = %T, want *Program", node)
	}
	if prog.Span().Start.Line != 2 {
		t.Errorf("program line = %d, want 2", prog.Span().Start.Line)
	}
	result, _ := eval(t, prog)
	if result != int64(89) {
		t.Errorf("fib(10) = %v, want 89", result)
	}
}

func TestDecodeJSON(t *testing.T) {
	doc := `{"node": "seq", "stmts": [
    {"node": "lasgn", "name": "s", "value": {"node": "str", "value": "foo"}},
    {"node": "send", "recv": {"node": "lvar", "name": "s"}, "method": "upcase"}
  ]}`
	node, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	result, _ := eval(t, node)
	if s, ok := result.(*vm.String); !ok || s.Value != "FOO" {
		t.Errorf("result = %v, want FOO", result)
	}
}

func TestDecodeLiterals(t *testing.T) {
	tests := []struct {
		doc  string
		want any
	}{
		{"{node: lit, value: 1}", int64(1)},
		{"{node: lit, value: 1000000}", int64(1000000)},
		{"{node: lit, value: -3}", int64(-3)},
		{"{node: lit, value: true}", true},
		{"{node: lit, value: null}", nil},
		{`{node: lit, value: "hello"}`, "hello"},
		{"{node: lit, value: {sym: ok}}", vm.Symbol("ok")},
	}
	for _, tt := range tests {
		node, err := Decode([]byte(tt.doc))
		if err != nil {
			t.Fatalf("%s: decode error: %v", tt.doc, err)
		}
		l, ok := node.(*Literal)
		if !ok {
			t.Fatalf("%s: got %T, want *Literal", tt.doc, node)
		}
		if l.Value != tt.want {
			t.Errorf("%s: value = %#v, want %#v", tt.doc, l.Value, tt.want)
		}
	}
}

func TestDecodeBlock(t *testing.T) {
	doc := `
node: seq
stmts:
  - {node: lasgn, name: i, value: {node: lit, value: 1}}
  - node: send
    recv: {node: lit, value: 1}
    method: times
    block:
      node: block
      body: {node: lasgn, name: i, value: {node: send, recv: {node: lvar, name: i}, method: "+", args: [{node: lit, value: 1}]}}
  - {node: lvar, name: i}
`
	node, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	result, _ := eval(t, node)
	if result != int64(2) {
		t.Errorf("i = %v, want 2", result)
	}
}

func TestDecodeWhileAndIf(t *testing.T) {
	doc := `
node: seq
stmts:
  - {node: lasgn, name: a, value: {node: lit, value: 0}}
  - node: while
    cond: {node: send, recv: {node: lvar, name: a}, method: "<", args: [{node: lit, value: 10}]}
    body: {node: lasgn, name: a, value: {node: send, recv: {node: lvar, name: a}, method: "+", args: [{node: lit, value: 1}]}}
  - node: if
    cond: {node: send, recv: {node: lvar, name: a}, method: "==", args: [{node: lit, value: 10}]}
    then: {node: lit, value: {sym: ok}}
    else: {node: nil}
`
	node, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	result, _ := eval(t, node)
	if result != vm.Symbol("ok") {
		t.Errorf("result = %v, want :ok", result)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		line int
	}{
		{"not a mapping", "- 1", 1},
		{"missing kind", "{name: a}", 1},
		{"unknown kind", "node: class", 1},
		{"float literal", "node: lit\nvalue: 1.5", 1},
		{"missing name", "node: lvar", 1},
		{"bad block", "node: send\nmethod: times\nblock: {node: nil}", 1},
		{"nested error", "node: seq\nstmts:\n  - {node: lit, value: 1}\n  - {node: bogus}", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc))
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("error = %v, want DecodeError", err)
			}
			if de.Line != tt.line {
				t.Errorf("Line = %d, want %d", de.Line, tt.line)
			}
		})
	}
}

func TestDecodeSyntaxError(t *testing.T) {
	if _, err := Decode([]byte("node: [unclosed")); err == nil {
		t.Fatal("expected a YAML syntax error")
	}
}
