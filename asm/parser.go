package asm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chazu/yasm/vm"
)

// Error locates a failure in an assembly file.
type Error struct {
	File string
	Line int
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Parse assembles src into a finalized top-level sequence. name is used in
// error positions.
func Parse(name, src string) (*vm.InstructionSequence, error) {
	return ParseReader(name, strings.NewReader(src))
}

// ParseReader assembles the text read from r.
func ParseReader(name string, r io.Reader) (*vm.InstructionSequence, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	p := &parser{file: name, lines: lines}
	return p.parseSeq(vm.NewBuilder(vm.Config{Type: vm.SeqTop}), false)
}

// parser walks the lines of one file.
type parser struct {
	file  string
	lines []string
	pos   int // index of the next line
}

func (p *parser) errorf(line int, format string, args ...any) error {
	return &Error{File: p.file, Line: line, Err: fmt.Errorf(format, args...)}
}

func (p *parser) wrap(line int, err error) error {
	var located *Error
	if errors.As(err, &located) {
		return err
	}
	return &Error{File: p.file, Line: line, Err: err}
}

// parseSeq reads instructions into b until end of input or, for a nested
// sequence, the closing brace.
func (p *parser) parseSeq(b *vm.Builder, nested bool) (*vm.InstructionSequence, error) {
	open := p.pos
	for p.pos < len(p.lines) {
		lineNo := p.pos + 1
		toks, err := tokenize(p.lines[p.pos])
		p.pos++
		if err != nil {
			return nil, p.errorf(lineNo, "%v", err)
		}
		if len(toks) == 0 {
			continue
		}
		if toks[0].text == "}" && !toks[0].quoted {
			if !nested {
				return nil, p.errorf(lineNo, "unexpected }")
			}
			seq, err := b.Finalize()
			if err != nil {
				return nil, p.wrap(lineNo, err)
			}
			return seq, nil
		}
		if err := p.parseInstruction(b, lineNo, toks); err != nil {
			return nil, err
		}
	}
	if nested {
		return nil, p.errorf(open, "unclosed sequence %s", b.SeqLabel())
	}
	seq, err := b.Finalize()
	if err != nil {
		return nil, p.wrap(len(p.lines), err)
	}
	return seq, nil
}

func (p *parser) parseInstruction(b *vm.Builder, lineNo int, toks []token) error {
	if toks[0].quoted {
		return p.errorf(lineNo, "expected opcode, got string")
	}
	op, ok := vm.LookupOpcode(toks[0].text)
	if !ok {
		return p.errorf(lineNo, "unknown opcode %q", toks[0].text)
	}
	kinds := op.Info().Operands

	var operands []any
	rest := toks[1:]
	for len(rest) > 0 {
		pos := len(operands)
		if pos >= len(kinds) {
			return p.errorf(lineNo, "%s: too many operands", op)
		}
		switch kinds[pos] {
		case vm.OperandISeq, vm.OperandBlock:
			if rest[0].text == "-" && !rest[0].quoted {
				operands = append(operands, nil)
				rest = rest[1:]
				continue
			}
			child, err := p.parseChild(b, lineNo, op, rest)
			if err != nil {
				return err
			}
			operands = append(operands, child)
			rest = nil
		default:
			v, err := operand(kinds[pos], rest[0])
			if err != nil {
				return p.errorf(lineNo, "%s: %v", op, err)
			}
			operands = append(operands, v)
			rest = rest[1:]
		}
	}
	// A trailing "-" for the block operand is the same as leaving it out.
	if op == vm.OpSend && len(operands) == 4 && operands[3] == nil {
		operands = operands[:3]
	}
	if err := b.Emit(op, operands...); err != nil {
		return p.wrap(lineNo, err)
	}
	return nil
}

// parseChild reads a "method NAME PARAMS... {" or "block PARAMS... {" header
// and the nested sequence that follows it.
func (p *parser) parseChild(b *vm.Builder, lineNo int, op vm.Opcode, header []token) (*vm.InstructionSequence, error) {
	last := header[len(header)-1]
	if last.quoted || last.text != "{" {
		return nil, p.errorf(lineNo, "%s: embedded sequence must end the line with {", op)
	}
	words := make([]string, 0, len(header)-1)
	for _, t := range header[:len(header)-1] {
		if t.quoted {
			return nil, p.errorf(lineNo, "%s: unexpected string in sequence header", op)
		}
		words = append(words, t.text)
	}
	if len(words) == 0 {
		return nil, p.errorf(lineNo, "%s: missing sequence type", op)
	}

	var child *vm.Builder
	switch words[0] {
	case "method":
		if op != vm.OpPutISeq {
			return nil, p.errorf(lineNo, "%s: expected a block", op)
		}
		if len(words) < 2 {
			return nil, p.errorf(lineNo, "method needs a name")
		}
		child = b.OpenChild(vm.SeqMethod, words[2:], words[1])
	case "block":
		child = b.OpenChild(vm.SeqBlock, words[1:], "block in "+b.SeqLabel())
	default:
		return nil, p.errorf(lineNo, "unknown sequence type %q", words[0])
	}
	if err := child.Err(); err != nil {
		return nil, p.wrap(lineNo, err)
	}
	return p.parseSeq(child, true)
}

// operand converts a token to the Go value Emit expects for kind.
func operand(kind vm.OperandKind, t token) (any, error) {
	if t.quoted {
		switch kind {
		case vm.OperandLiteral, vm.OperandString, vm.OperandMethod:
			return t.text, nil
		default:
			return nil, fmt.Errorf("unexpected string %q for %s", t.text, kind)
		}
	}
	switch kind {
	case vm.OperandLiteral:
		return literal(t.text)
	case vm.OperandString:
		return nil, fmt.Errorf("want quoted string, got %s", t.text)
	case vm.OperandSpecial:
		switch t.text {
		case "VMCore", "vmcore":
			return vm.VMCore, nil
		case "CBase", "cbase":
			return vm.CBase, nil
		}
		return integer(t.text)
	case vm.OperandVariable:
		if n, err := integer(t.text); err == nil {
			return n, nil
		}
		return t.text, nil
	case vm.OperandDepth, vm.OperandArgc:
		return integer(t.text)
	case vm.OperandFlags:
		return flags(t.text)
	case vm.OperandMethod:
		return strings.TrimPrefix(t.text, ":"), nil
	case vm.OperandLabel:
		return t.text, nil
	default:
		return nil, fmt.Errorf("unexpected operand %s", t.text)
	}
}

func literal(s string) (any, error) {
	switch s {
	case "nil":
		return nil, nil
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	if strings.HasPrefix(s, ":") && len(s) > 1 {
		return vm.Symbol(s[1:]), nil
	}
	if n, err := integer(s); err == nil {
		return n, nil
	}
	return nil, fmt.Errorf("bad literal %q", s)
}

func integer(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("bad integer %q", s)
	}
	return n, nil
}

func flags(s string) (vm.CallFlags, error) {
	if s == "-" {
		return 0, nil
	}
	if n, err := strconv.ParseUint(s, 0, 32); err == nil {
		return vm.CallFlags(n), nil
	}
	var f vm.CallFlags
	for _, part := range strings.Split(s, "|") {
		switch strings.ToLower(part) {
		case "fcall":
			f |= vm.FCall
		case "simple", "args_simple":
			f |= vm.ArgsSimple
		default:
			return 0, fmt.Errorf("bad call flag %q", part)
		}
	}
	return f, nil
}
