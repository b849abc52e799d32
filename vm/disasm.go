package vm

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of the sequence followed by
// every embedded sequence.
func (s *InstructionSequence) Disassemble() string {
	var sb strings.Builder
	s.disassemble(&sb)
	return sb.String()
}

func (s *InstructionSequence) disassemble(sb *strings.Builder) {
	// Header
	sb.WriteString(fmt.Sprintf("; === %s (%s) ===\n", s.Label, s.Type))
	if len(s.params) > 0 {
		sb.WriteString(fmt.Sprintf("; Parameters (%d): %s\n", len(s.params), strings.Join(s.params, ", ")))
	}
	if len(s.locals) > 0 {
		sb.WriteString(fmt.Sprintf("; Locals (%d): %s\n", len(s.locals), strings.Join(s.locals, ", ")))
	}

	for i, in := range s.code {
		line := fmt.Sprintf("%04d  %-16s", i, in.Op.Name())
		if ops := operandText(in); ops != "" {
			line += " " + ops
		}
		sb.WriteString(strings.TrimRight(line, " "))
		sb.WriteString("\n")
	}

	for _, child := range s.Children() {
		sb.WriteString("\n")
		child.disassemble(sb)
	}
}

func operandText(in Instruction) string {
	switch in.Op {
	case OpPutObject:
		return Inspect(in.Value)
	case OpPutString:
		return fmt.Sprintf("%q", in.Str)
	case OpPutSpecialObject:
		return in.Special.String()
	case OpPutISeq:
		return fmt.Sprintf("<%s>", in.ISeq.Label)
	case OpGetLocal, OpSetLocal:
		return fmt.Sprintf("%s@%d, %d", in.Name, in.Slot, in.Depth)
	case OpSend:
		s := fmt.Sprintf("%s, %d, %s", in.Name, in.Argc, in.Flags)
		if in.ISeq != nil {
			s += fmt.Sprintf(", <%s>", in.ISeq.Label)
		}
		return s
	case OpJump, OpBranchIf, OpBranchUnless:
		return fmt.Sprintf("%s (-> %04d)", in.Name, in.Target)
	case OpLabel:
		return in.Name
	default:
		return ""
	}
}
