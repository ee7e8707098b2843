package emu

import "encoding/binary"

// Assembler helpers for building toy programs.

// Inst encodes one instruction.
func Inst(op byte, operands ...uint32) []byte {
	switch op {
	case OpJump:
		buf := make([]byte, 5)
		buf[0] = op
		binary.LittleEndian.PutUint32(buf[1:], operands[0])
		return buf
	case OpLoad, OpStore:
		buf := make([]byte, 6)
		buf[0] = op
		buf[1] = byte(operands[0])
		binary.LittleEndian.PutUint32(buf[2:], operands[1])
		return buf
	default:
		return []byte{op}
	}
}

// Asm concatenates instructions into a program image.
func Asm(insts ...[]byte) []byte {
	var prog []byte
	for _, inst := range insts {
		prog = append(prog, inst...)
	}
	return prog
}

// DemoProgram is the image the CLI loads when no program is given: it
// shuffles a byte through the data cell at 0x80 and halts, enough to
// exercise breakpoints on the instruction stream and watchpoints on 0x80.
func DemoProgram() []byte {
	return Asm(
		Inst(OpNop),            // 0x00
		Inst(OpStore, 0, 0x80), // 0x01
		Inst(OpLoad, 1, 0x80),  // 0x07
		Inst(OpNop),            // 0x0d
		Inst(OpHalt),           // 0x0e
	)
}
