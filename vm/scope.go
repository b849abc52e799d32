package vm

// ---------------------------------------------------------------------------
// Scope and label resolution
// ---------------------------------------------------------------------------

// labelRef records a jump that must be patched at finalize time.
type labelRef struct {
	name  string
	index int // instruction index of the jump
}

// DeclareLocal returns the slot for name, allocating the next free slot if
// the name is new to this sequence.
func (b *Builder) DeclareLocal(name string) int {
	if slot, ok := b.slots[name]; ok {
		return slot
	}
	slot := len(b.seq.locals)
	b.slots[name] = slot
	b.seq.locals = append(b.seq.locals, name)
	return slot
}

// LookupLocal returns the slot for name in this sequence only.
func (b *Builder) LookupLocal(name string) (int, bool) {
	slot, ok := b.slots[name]
	return slot, ok
}

// Resolve finds name in the scope chain. Depth is the number of enclosing
// scopes traversed. Only block scopes see their parent's locals.
func (b *Builder) Resolve(name string) (slot, depth int, err error) {
	for cur := b; cur != nil; cur = cur.parent {
		if s, ok := cur.slots[name]; ok {
			return s, depth, nil
		}
		if cur.seq.Type != SeqBlock {
			break
		}
		depth++
	}
	return 0, 0, &UnresolvedVariableError{Seq: b.seq.Label, Name: name, Depth: -1}
}

// scopeAt returns the builder depth hops up the chain.
func (b *Builder) scopeAt(depth int) (*Builder, bool) {
	cur := b
	for i := 0; i < depth; i++ {
		if cur.seq.Type != SeqBlock || cur.parent == nil {
			return nil, false
		}
		cur = cur.parent
	}
	return cur, true
}

// resolveVariable maps a getlocal/setlocal operand to (name, slot) in the
// scope at depth. setlocal at depth 0 declares unknown names.
func (b *Builder) resolveVariable(op Opcode, v Value, depth int) (string, int, error) {
	scope, ok := b.scopeAt(depth)
	if !ok {
		name, _ := v.(string)
		return "", 0, &UnresolvedVariableError{Seq: b.seq.Label, Name: name, Depth: depth}
	}

	switch x := v.(type) {
	case string:
		if slot, ok := scope.slots[x]; ok {
			return x, slot, nil
		}
		if op == OpSetLocal && depth == 0 {
			return x, b.DeclareLocal(x), nil
		}
		return "", 0, &UnresolvedVariableError{Seq: b.seq.Label, Name: x, Depth: depth}
	case int:
		if x < 0 || x >= len(scope.seq.locals) {
			return "", 0, b.invalid(op, "slot %d out of range (%d locals at depth %d)", x, len(scope.seq.locals), depth)
		}
		return scope.seq.locals[x], x, nil
	default:
		return "", 0, b.invalid(op, "variable must be a name or slot, got %T", v)
	}
}

// defineLabel binds name to the index of the next instruction.
func (b *Builder) defineLabel(name string) error {
	if off, ok := b.seq.labels[name]; ok {
		return &DuplicateLabelError{Seq: b.seq.Label, Label: name, Offset: off}
	}
	// The marker itself is appended next, so the first real instruction
	// after it sits one past the current length.
	b.seq.labels[name] = len(b.seq.code) + 1
	return nil
}

// referenceLabel records a use of name by the instruction about to be
// appended.
func (b *Builder) referenceLabel(name string) {
	b.refs = append(b.refs, labelRef{name: name, index: len(b.seq.code)})
}

// resolveLabels patches every recorded jump with its absolute target.
func (b *Builder) resolveLabels() error {
	for _, ref := range b.refs {
		target, ok := b.seq.labels[ref.name]
		if !ok {
			return &UnresolvedLabelError{Seq: b.seq.Label, Label: ref.name, Offset: ref.index}
		}
		b.seq.code[ref.index].Target = target
	}
	return nil
}
