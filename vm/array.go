package vm

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Array dump and load
// ---------------------------------------------------------------------------
//
// A dumped sequence is [label, type, params, entries]. Each entry is
// [opname, operands...] with operands in Instruction.Operands order.
// Embedded sequences (putiseq, send block) are dumped recursively in place.

// ToArray dumps the sequence as nested slices.
func (s *InstructionSequence) ToArray() []any {
	params := make([]any, len(s.params))
	for i, p := range s.params {
		params[i] = p
	}
	entries := make([]any, len(s.code))
	for i, in := range s.code {
		ops := in.Operands()
		entry := make([]any, 0, len(ops)+1)
		entry = append(entry, in.Op.Name())
		for _, op := range ops {
			if child, ok := op.(*InstructionSequence); ok {
				entry = append(entry, child.ToArray())
				continue
			}
			entry = append(entry, op)
		}
		entries[i] = entry
	}
	return []any{s.Label, s.Type.String(), params, entries}
}

// Portable rewrites symbols in a dump as {sym: name} mappings so the dump
// survives encoders that only know plain strings. FromArray accepts both
// forms.
func Portable(v any) any {
	switch x := v.(type) {
	case Symbol:
		return map[string]any{"sym": string(x)}
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Portable(e)
		}
		return out
	default:
		return v
	}
}

// FromArray rebuilds a finalized sequence from a dump by replaying every
// entry through a Builder, so a malformed dump fails exactly as hand
// assembly would.
func FromArray(v []any) (*InstructionSequence, error) {
	return fromArray(v, nil)
}

func fromArray(v []any, parent *Builder) (*InstructionSequence, error) {
	if len(v) != 4 {
		return nil, fmt.Errorf("iseq dump: want [label, type, params, entries], got %d elements", len(v))
	}
	label, ok := v[0].(string)
	if !ok {
		return nil, fmt.Errorf("iseq dump: label must be a string, got %T", v[0])
	}
	var typ SeqType
	switch t := v[1].(type) {
	case SeqType:
		typ = t
	case string:
		var err error
		if typ, err = ParseSeqType(t); err != nil {
			return nil, fmt.Errorf("iseq dump %s: %w", label, err)
		}
	default:
		return nil, fmt.Errorf("iseq dump %s: type must be a string, got %T", label, v[1])
	}
	params, err := stringList(v[2])
	if err != nil {
		return nil, fmt.Errorf("iseq dump %s: params: %w", label, err)
	}
	entries, ok := v[3].([]any)
	if !ok {
		return nil, fmt.Errorf("iseq dump %s: entries must be a list, got %T", label, v[3])
	}

	b := NewBuilder(Config{Label: label, Type: typ, Params: params, Parent: parent})
	for idx, e := range entries {
		entry, ok := e.([]any)
		if !ok || len(entry) == 0 {
			return nil, fmt.Errorf("iseq dump %s@%04d: entry must be a non-empty list", label, idx)
		}
		name, ok := entry[0].(string)
		if !ok {
			return nil, fmt.Errorf("iseq dump %s@%04d: opcode name must be a string, got %T", label, idx, entry[0])
		}
		op, ok := LookupOpcode(name)
		if !ok {
			return nil, fmt.Errorf("iseq dump %s@%04d: unknown opcode %q", label, idx, name)
		}
		operands := make([]any, len(entry)-1)
		for i, raw := range entry[1:] {
			operand, err := loadOperand(op, i, raw, b)
			if err != nil {
				return nil, fmt.Errorf("iseq dump %s@%04d: %w", label, idx, err)
			}
			operands[i] = operand
		}
		if err := b.Emit(op, operands...); err != nil {
			return nil, err
		}
	}
	return b.Finalize()
}

// loadOperand converts one dumped operand back to the form Emit expects.
func loadOperand(op Opcode, pos int, raw any, b *Builder) (any, error) {
	if m, ok := raw.(map[string]any); ok {
		if name, ok := m["sym"].(string); ok && len(m) == 1 {
			return Symbol(name), nil
		}
		return nil, fmt.Errorf("%s: unexpected mapping operand", op)
	}
	var kind OperandKind
	if info := op.Info(); pos < len(info.Operands) {
		kind = info.Operands[pos]
	}
	if kind == OperandISeq || kind == OperandBlock {
		if raw == nil {
			return nil, nil
		}
		child, ok := raw.([]any)
		if !ok {
			return raw, nil
		}
		return fromArray(child, b)
	}
	return raw, nil
}

func stringList(v any) ([]string, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return x, nil
	case []any:
		out := make([]string, len(x))
		for i, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("element %d is %T, want string", i, e)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("want list of names, got %T", v)
	}
}
