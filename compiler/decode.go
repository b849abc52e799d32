package compiler

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/chazu/yasm/vm"
)

// ---------------------------------------------------------------------------
// AST documents
// ---------------------------------------------------------------------------
//
// An AST document is YAML (or JSON). Every node is a mapping with a "node"
// key naming its kind:
//
//	node: program
//	body:
//	  node: seq
//	  stmts:
//	    - {node: lasgn, name: a, value: {node: lit, value: 10}}
//	    - node: send
//	      method: p
//	      args: [{node: lvar, name: a}]
//
// Symbols are written {sym: name}.

// DecodeError reports a malformed AST document.
type DecodeError struct {
	Line   int
	Column int
	Kind   string // node kind being decoded, if known
	Msg    string
}

func (e *DecodeError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("line %d:%d: %s: %s", e.Line, e.Column, e.Kind, e.Msg)
	}
	return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Msg)
}

// Decode parses an AST document.
func Decode(data []byte) (Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode ast: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &DecodeError{Line: 1, Column: 1, Msg: "empty document"}
	}
	return decodeNode(doc.Content[0])
}

// DecodeReader parses an AST document from r.
func DecodeReader(r io.Reader) (Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decode ast: %w", err)
	}
	return Decode(data)
}

// fields indexes a mapping node by key.
type fields struct {
	y    *yaml.Node
	kind string
	m    map[string]*yaml.Node
}

func (f *fields) errorf(format string, args ...any) error {
	return &DecodeError{Line: f.y.Line, Column: f.y.Column, Kind: f.kind, Msg: fmt.Sprintf(format, args...)}
}

func (f *fields) span() Span {
	return Span{Start: Position{Line: f.y.Line, Column: f.y.Column}}
}

// node decodes an optional child node.
func (f *fields) node(key string) (Node, error) {
	y, ok := f.m[key]
	if !ok || isNull(y) {
		return nil, nil
	}
	return decodeNode(y)
}

// required decodes a child node that must be present.
func (f *fields) required(key string) (Node, error) {
	n, err := f.node(key)
	if err == nil && n == nil {
		return nil, f.errorf("missing %q", key)
	}
	return n, err
}

func (f *fields) str(key string) (string, error) {
	y, ok := f.m[key]
	if !ok || y.Kind != yaml.ScalarNode || y.Value == "" {
		return "", f.errorf("%q must be a non-empty string", key)
	}
	return y.Value, nil
}

func (f *fields) names(key string) ([]string, error) {
	y, ok := f.m[key]
	if !ok || isNull(y) {
		return nil, nil
	}
	var out []string
	if err := y.Decode(&out); err != nil {
		return nil, f.errorf("%q must be a list of names", key)
	}
	return out, nil
}

func (f *fields) list(key string) ([]Node, error) {
	y, ok := f.m[key]
	if !ok || isNull(y) {
		return nil, nil
	}
	if y.Kind != yaml.SequenceNode {
		return nil, f.errorf("%q must be a list", key)
	}
	out := make([]Node, 0, len(y.Content))
	for _, item := range y.Content {
		n, err := decodeNode(item)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func isNull(y *yaml.Node) bool {
	return y.Kind == yaml.ScalarNode && y.Tag == "!!null"
}

func decodeNode(y *yaml.Node) (Node, error) {
	if y.Kind == yaml.AliasNode {
		y = y.Alias
	}
	if y.Kind != yaml.MappingNode {
		return nil, &DecodeError{Line: y.Line, Column: y.Column, Msg: "node must be a mapping"}
	}
	f := &fields{y: y, m: make(map[string]*yaml.Node, len(y.Content)/2)}
	for i := 0; i+1 < len(y.Content); i += 2 {
		f.m[y.Content[i].Value] = y.Content[i+1]
	}
	kind, ok := f.m["node"]
	if !ok {
		return nil, f.errorf("missing node kind")
	}
	f.kind = kind.Value

	switch f.kind {
	case "program":
		body, err := f.node("body")
		if err != nil {
			return nil, err
		}
		return &Program{SpanVal: f.span(), Body: body}, nil

	case "seq":
		stmts, err := f.list("stmts")
		if err != nil {
			return nil, err
		}
		return &Sequence{SpanVal: f.span(), Stmts: stmts}, nil

	case "lit":
		y, ok := f.m["value"]
		if !ok {
			return nil, f.errorf("missing %q", "value")
		}
		v, err := literalValue(y)
		if err != nil {
			return nil, f.errorf("%v", err)
		}
		return &Literal{SpanVal: f.span(), Value: v}, nil

	case "str":
		y, ok := f.m["value"]
		if !ok || y.Kind != yaml.ScalarNode {
			return nil, f.errorf("%q must be a string", "value")
		}
		return &StringLiteral{SpanVal: f.span(), Value: y.Value}, nil

	case "nil":
		return &Nil{SpanVal: f.span()}, nil

	case "self":
		return &Self{SpanVal: f.span()}, nil

	case "send":
		return decodeSend(f)

	case "if":
		cond, err := f.required("cond")
		if err != nil {
			return nil, err
		}
		then, err := f.node("then")
		if err != nil {
			return nil, err
		}
		els, err := f.node("else")
		if err != nil {
			return nil, err
		}
		return &If{SpanVal: f.span(), Cond: cond, Then: then, Else: els}, nil

	case "while":
		cond, err := f.required("cond")
		if err != nil {
			return nil, err
		}
		body, err := f.node("body")
		if err != nil {
			return nil, err
		}
		return &While{SpanVal: f.span(), Cond: cond, Body: body}, nil

	case "lasgn":
		name, err := f.str("name")
		if err != nil {
			return nil, err
		}
		value, err := f.required("value")
		if err != nil {
			return nil, err
		}
		return &LocalAssign{SpanVal: f.span(), Name: name, Value: value}, nil

	case "lvar":
		name, err := f.str("name")
		if err != nil {
			return nil, err
		}
		return &LocalVar{SpanVal: f.span(), Name: name}, nil

	case "def":
		name, err := f.str("name")
		if err != nil {
			return nil, err
		}
		params, err := f.names("params")
		if err != nil {
			return nil, err
		}
		body, err := f.node("body")
		if err != nil {
			return nil, err
		}
		return &Def{SpanVal: f.span(), Name: name, Params: params, Body: body}, nil

	case "block":
		return decodeBlock(f)

	default:
		return nil, f.errorf("unknown node kind")
	}
}

func decodeSend(f *fields) (Node, error) {
	method, err := f.str("method")
	if err != nil {
		return nil, err
	}
	recv, err := f.node("recv")
	if err != nil {
		return nil, err
	}
	args, err := f.list("args")
	if err != nil {
		return nil, err
	}
	send := &Send{SpanVal: f.span(), Receiver: recv, Method: method, Args: args}
	if y, ok := f.m["fcall"]; ok {
		if err := y.Decode(&send.FCall); err != nil {
			return nil, f.errorf("%q must be a boolean", "fcall")
		}
	}
	blk, err := f.node("block")
	if err != nil {
		return nil, err
	}
	if blk != nil {
		b, ok := blk.(*Block)
		if !ok {
			return nil, f.errorf("%q must be a block node", "block")
		}
		send.Block = b
	}
	return send, nil
}

func decodeBlock(f *fields) (Node, error) {
	params, err := f.names("params")
	if err != nil {
		return nil, err
	}
	body, err := f.node("body")
	if err != nil {
		return nil, err
	}
	return &Block{SpanVal: f.span(), Params: params, Body: body}, nil
}

// literalValue converts a scalar or {sym: name} mapping to a literal.
func literalValue(y *yaml.Node) (any, error) {
	if y.Kind == yaml.MappingNode {
		var m map[string]string
		if err := y.Decode(&m); err != nil {
			return nil, fmt.Errorf("invalid literal mapping")
		}
		name, ok := m["sym"]
		if !ok || len(m) != 1 || name == "" {
			return nil, fmt.Errorf("literal mapping must be {sym: name}")
		}
		return vm.Symbol(name), nil
	}
	if y.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("literal must be a scalar")
	}
	switch y.Tag {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		err := y.Decode(&b)
		return b, err
	case "!!int":
		var i int64
		err := y.Decode(&i)
		return i, err
	case "!!str":
		return y.Value, nil
	default:
		return nil, fmt.Errorf("unsupported literal %s", y.Tag)
	}
}
