// Package vm implements the yasm instruction set and stack machine.
//
// This package contains:
//   - The opcode catalog and call flags
//   - InstructionSequence and its array dump, disassembly and digest
//   - Builder, the assembler that validates operands and resolves
//     locals and labels while a sequence is emitted
//   - Interpreter, which runs finalized sequences and hands every send
//     to a host CallResolver
package vm
