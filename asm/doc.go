// Package asm reads hand-written instruction sequences.
//
// A .yasm file holds one instruction per line: the opcode dump name
// followed by its operands. Integers, true, false, nil, "strings" and
// :symbols are literals; bare words name locals, methods and labels; -
// stands for an omitted operand. Call flags are fcall, simple or both
// joined with |. A line ending in { opens an embedded sequence, written
// "method NAME PARAMS..." for putiseq or "block PARAMS..." for the block
// operand of send, and a line holding } closes it. # and ; start comments.
//
//	putobject 10
//	setlocal a 0
//	putiseq method twice x {
//	  getlocal x 0
//	  putobject 2
//	  send * 1
//	  leave
//	}
package asm
