package vm

import (
	"fmt"
	"io"
)

// Disassemble writes a human-readable listing of every instruction in
// chunk to w, labelled with name. Mirrors the instruction-at-a-time
// listing kristofer-smog's Debugger.listInstructions prints, adapted to
// this chunk's fixed/variable operand widths instead of a flat
// instruction array.
func Disassemble(w io.Writer, chunk *Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(chunk.Code); {
		offset = DisassembleInstruction(w, chunk, offset)
	}
}

// DisassembleInstruction prints the single instruction at offset and
// returns the offset of the next one.
func DisassembleInstruction(w io.Writer, chunk *Chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", chunk.Lines[offset])
	}

	op := Opcode(chunk.Code[offset])

	if op == OpClosure {
		return disassembleClosure(w, chunk, offset)
	}

	switch OperandWidth(op) {
	case 0:
		fmt.Fprintln(w, op)
		return offset + 1
	case 1:
		slot := chunk.Code[offset+1]
		if isConstantOp(op) {
			fmt.Fprintf(w, "%-16s %4d '%s'\n", op, slot, chunk.Constants[slot])
		} else {
			fmt.Fprintf(w, "%-16s %4d\n", op, slot)
		}
		return offset + 2
	case 2:
		hi := uint16(chunk.Code[offset+1])
		lo := uint16(chunk.Code[offset+2])
		jump := hi<<8 | lo
		fmt.Fprintf(w, "%-16s %4d\n", op, jump)
		return offset + 3
	default:
		fmt.Fprintf(w, "%-16s (unknown width)\n", op)
		return offset + 1
	}
}

func isConstantOp(op Opcode) bool {
	switch op {
	case OpConst, OpConstInt, OpConstFloat, OpConstString,
		OpDefineGlobal, OpDefineGlobalInt, OpDefineGlobalFloat, OpDefineGlobalString,
		OpGetGlobal, OpGetGlobalInt, OpGetGlobalFloat, OpGetGlobalString,
		OpSetGlobal, OpSetGlobalInt, OpSetGlobalFloat, OpSetGlobalString,
		OpGetProperty, OpSetProperty, OpGetSuper, OpClass, OpMethod:
		return true
	default:
		return false
	}
}

// disassembleClosure prints OP_CLOSURE's variable-length encoding: the
// function constant followed by one (is_local, index) pair per
// upvalue, matching original_source/debug.c's OP_CLOSURE case.
func disassembleClosure(w io.Writer, chunk *Chunk, offset int) int {
	constIdx := chunk.Code[offset+1]
	fn, _ := chunk.Constants[constIdx].Obj.(*Function)
	fmt.Fprintf(w, "%-16s %4d '%s'\n", OpClosure, constIdx, chunk.Constants[constIdx])
	offset += 2
	if fn == nil {
		return offset
	}
	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := chunk.Code[offset]
		index := chunk.Code[offset+1]
		kind := "upvalue"
		if isLocal != 0 {
			kind = "local"
		}
		fmt.Fprintf(w, "%04d      |                     %s %d\n", offset, kind, index)
		offset += 2
	}
	return offset
}
