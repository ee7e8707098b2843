// Package emu implements a small interpreted machine used as the built-in
// debug target. It implements every breakpoint capability of pkg/target:
// software breakpoints by patching a trap opcode into memory (keeping the
// original byte, the way a ptrace debugger pokes 0xCC into text), hardware
// breakpoints and watchpoints as fixed slot arrays that refuse once full.
package emu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hitzhangjie/gdbstub/pkg/target"
)

// Slot counts of the simulated breakpoint hardware.
const (
	HwBreakpointSlots = 4
	HwWatchpointSlots = 4
)

// Instruction opcodes. Operands are little-endian and follow the opcode
// byte: load/store take a register index byte and a 4-byte address, jump
// takes a 4-byte address, the rest are a single byte.
const (
	OpHalt  byte = 0x00
	OpNop   byte = 0x01
	OpLoad  byte = 0x02 // r[reg] = mem[addr]
	OpStore byte = 0x03 // mem[addr] = r[reg]
	OpJump  byte = 0x04 // pc = addr
	OpTrap  byte = 0xCC // software breakpoint patch
)

var (
	// ErrIllegalOpcode reports a fetch of an opcode the machine doesn't
	// know, including a trap opcode with no breakpoint registered for it.
	ErrIllegalOpcode = errors.New("illegal opcode")

	// ErrPatchClobbered reports that the byte a software breakpoint
	// patched is no longer the trap opcode, so the saved original can't be
	// restored safely.
	ErrPatchClobbered = errors.New("software breakpoint patch clobbered")
)

// StopReason says why execution came back to the debugger.
type StopReason uint8

const (
	StopStep       StopReason = iota // single step retired
	StopBreakpoint                   // sw patch or hw slot hit at PC
	StopWatchpoint                   // data access matched an armed watchpoint
	StopHalt                         // machine executed halt
)

// Stop describes a halt of the machine. Addr and Watch are only meaningful
// for StopWatchpoint.
type Stop struct {
	Reason StopReason
	PC     uint32
	Addr   uint32
	Watch  target.WatchKind
}

// Machine is an interpreted CPU with a flat byte-addressed memory. It is
// exclusively owned by the debug loop driving it, none of its methods are
// safe for concurrent use.
type Machine struct {
	pc     uint32
	regs   [4]byte
	mem    []byte
	halted bool

	swBreaks map[uint32]*Breakpoint
	hwBreaks [HwBreakpointSlots]*Breakpoint
	watches  [HwWatchpointSlots]*Watchpoint
}

// NewMachine creates a machine with memSize bytes of zeroed memory and the
// PC at 0.
func NewMachine(memSize int) *Machine {
	return &Machine{
		mem:      make([]byte, memSize),
		swBreaks: map[uint32]*Breakpoint{},
	}
}

// Load copies prog to address 0 and resets the PC.
func (m *Machine) Load(prog []byte) error {
	if len(prog) > len(m.mem) {
		return fmt.Errorf("program %d bytes, memory %d bytes", len(prog), len(m.mem))
	}
	copy(m.mem, prog)
	m.pc = 0
	m.halted = false
	return nil
}

func (m *Machine) ArchName() string { return "emu32" }

// PC returns the current program counter.
func (m *Machine) PC() uint32 { return m.pc }

// Reg returns the value of register i.
func (m *Machine) Reg(i int) byte { return m.regs[i] }

// Halted reports whether the machine has executed halt.
func (m *Machine) Halted() bool { return m.halted }

// ReadMemory copies memory starting at addr into p, returning how many
// bytes were read.
func (m *Machine) ReadMemory(addr uint64, p []byte) (int, error) {
	if addr >= uint64(len(m.mem)) {
		return 0, fmt.Errorf("read at %#x: out of range", addr)
	}
	return copy(p, m.mem[addr:]), nil
}

// AddSwBreakpoint patches the trap opcode at addr, keeping the original
// byte in the breakpoint record. Re-adding an armed address is a refusal
// and leaves the existing patch untouched, so the saved original byte can
// never be clobbered by a second patch.
func (m *Machine) AddSwBreakpoint(addr uint32) (bool, error) {
	if int64(addr) >= int64(len(m.mem)) {
		return false, nil
	}
	if _, ok := m.swBreaks[addr]; ok {
		return false, nil
	}
	m.swBreaks[addr] = newBreakpoint(addr, m.mem[addr])
	m.mem[addr] = OpTrap
	return true, nil
}

// RemoveSwBreakpoint restores the original byte at addr. Removing an
// address that was never patched is a refusal. If the patched byte is no
// longer the trap opcode the target image broke underneath us, which is a
// fault, not a refusal.
func (m *Machine) RemoveSwBreakpoint(addr uint32) (bool, error) {
	bp, ok := m.swBreaks[addr]
	if !ok {
		return false, nil
	}
	if m.mem[addr] != OpTrap {
		return false, fmt.Errorf("remove breakpoint at %#x: %w", addr, ErrPatchClobbered)
	}
	m.mem[addr] = bp.Orig
	delete(m.swBreaks, addr)
	return true, nil
}

// AddHwBreakpoint occupies a free hardware slot for addr. A duplicate
// address or exhausted slots are refusals.
func (m *Machine) AddHwBreakpoint(addr uint32) (bool, error) {
	free := -1
	for i, bp := range m.hwBreaks {
		if bp == nil {
			if free < 0 {
				free = i
			}
			continue
		}
		if bp.Addr == addr {
			return false, nil
		}
	}
	if free < 0 {
		return false, nil
	}
	m.hwBreaks[free] = newBreakpoint(addr, 0)
	return true, nil
}

// RemoveHwBreakpoint frees the slot trapping addr.
func (m *Machine) RemoveHwBreakpoint(addr uint32) (bool, error) {
	for i, bp := range m.hwBreaks {
		if bp != nil && bp.Addr == addr {
			m.hwBreaks[i] = nil
			return true, nil
		}
	}
	return false, nil
}

// AddHwWatchpoint arms a slot for the (addr, kind) registration.
func (m *Machine) AddHwWatchpoint(addr uint32, kind target.WatchKind) (bool, error) {
	if kind > target.WatchReadWrite {
		return false, fmt.Errorf("invalid watch kind %d", kind)
	}
	free := -1
	for i, wp := range m.watches {
		if wp == nil {
			if free < 0 {
				free = i
			}
			continue
		}
		if wp.Addr == addr && wp.Kind == kind {
			return false, nil
		}
	}
	if free < 0 {
		return false, nil
	}
	m.watches[free] = newWatchpoint(addr, kind)
	return true, nil
}

// RemoveHwWatchpoint disarms the registration matching both addr and kind.
// The match is exact: removing a write watchpoint leaves a readwrite one at
// the same address armed.
func (m *Machine) RemoveHwWatchpoint(addr uint32, kind target.WatchKind) (bool, error) {
	for i, wp := range m.watches {
		if wp != nil && wp.Addr == addr && wp.Kind == kind {
			m.watches[i] = nil
			return true, nil
		}
	}
	return false, nil
}

// StepInstruction executes one instruction. Stepping while the PC sits on a
// breakpoint executes the original instruction, the trap only reports on
// resume.
func (m *Machine) StepInstruction() (Stop, error) {
	if m.halted {
		return Stop{Reason: StopHalt, PC: m.pc}, nil
	}
	if stop, fired, err := m.exec(); err != nil {
		return Stop{}, err
	} else if fired {
		return stop, nil
	}
	if m.halted {
		return Stop{Reason: StopHalt, PC: m.pc}, nil
	}
	return Stop{Reason: StopStep, PC: m.pc}, nil
}

// Resume runs until a breakpoint or watchpoint fires or the machine halts.
// The instruction at the current PC always executes first, so resuming from
// a breakpoint steps off it instead of reporting it again.
func (m *Machine) Resume() (Stop, error) {
	first := true
	for {
		if m.halted {
			return Stop{Reason: StopHalt, PC: m.pc}, nil
		}
		if !first {
			if int64(m.pc) < int64(len(m.mem)) && m.mem[m.pc] == OpTrap && m.swBreaks[m.pc] != nil {
				return Stop{Reason: StopBreakpoint, PC: m.pc}, nil
			}
			for _, bp := range m.hwBreaks {
				if bp != nil && bp.Addr == m.pc {
					return Stop{Reason: StopBreakpoint, PC: m.pc}, nil
				}
			}
		}
		stop, fired, err := m.exec()
		if err != nil {
			return Stop{}, err
		}
		if fired {
			return stop, nil
		}
		first = false
	}
}

// exec retires the instruction at the PC. fired reports that a watchpoint
// matched the data access, in which case the access still completes before
// the stop is reported.
func (m *Machine) exec() (stop Stop, fired bool, err error) {
	op, err := m.fetch(m.pc)
	if err != nil {
		return Stop{}, false, err
	}

	switch op {
	case OpHalt:
		m.halted = true
	case OpNop:
		m.pc++
	case OpLoad:
		reg, addr, err := m.operands()
		if err != nil {
			return Stop{}, false, err
		}
		m.regs[reg&0x3] = m.mem[addr]
		m.pc += 6
		if wp := m.watchHit(addr, false); wp != nil {
			return Stop{Reason: StopWatchpoint, PC: m.pc, Addr: addr, Watch: wp.Kind}, true, nil
		}
	case OpStore:
		reg, addr, err := m.operands()
		if err != nil {
			return Stop{}, false, err
		}
		m.mem[addr] = m.regs[reg&0x3]
		m.pc += 6
		if wp := m.watchHit(addr, true); wp != nil {
			return Stop{Reason: StopWatchpoint, PC: m.pc, Addr: addr, Watch: wp.Kind}, true, nil
		}
	case OpJump:
		if int64(m.pc)+5 > int64(len(m.mem)) {
			return Stop{}, false, fmt.Errorf("fetch at %#x: out of range", m.pc)
		}
		m.pc = binary.LittleEndian.Uint32(m.mem[m.pc+1:])
	default:
		return Stop{}, false, fmt.Errorf("opcode %#x at %#x: %w", op, m.pc, ErrIllegalOpcode)
	}
	return Stop{}, false, nil
}

// fetch reads the opcode at addr, seeing through a software breakpoint
// patch so the original instruction executes.
func (m *Machine) fetch(addr uint32) (byte, error) {
	if int64(addr) >= int64(len(m.mem)) {
		return 0, fmt.Errorf("fetch at %#x: out of range", addr)
	}
	op := m.mem[addr]
	if op == OpTrap {
		bp, ok := m.swBreaks[addr]
		if !ok {
			return 0, fmt.Errorf("opcode %#x at %#x: %w", op, addr, ErrIllegalOpcode)
		}
		op = bp.Orig
	}
	return op, nil
}

// operands decodes the register and address operands of a load/store at the
// current PC.
func (m *Machine) operands() (byte, uint32, error) {
	if int64(m.pc)+6 > int64(len(m.mem)) {
		return 0, 0, fmt.Errorf("fetch at %#x: out of range", m.pc)
	}
	reg := m.mem[m.pc+1]
	addr := binary.LittleEndian.Uint32(m.mem[m.pc+2:])
	if int64(addr) >= int64(len(m.mem)) {
		return 0, 0, fmt.Errorf("access at %#x: out of range", addr)
	}
	return reg, addr, nil
}

// watchHit returns the first armed watchpoint matching the access, or nil.
func (m *Machine) watchHit(addr uint32, write bool) *Watchpoint {
	for _, wp := range m.watches {
		if wp == nil || wp.Addr != addr {
			continue
		}
		if wp.Kind == target.WatchReadWrite {
			return wp
		}
		if write && wp.Kind == target.WatchWrite {
			return wp
		}
		if !write && wp.Kind == target.WatchRead {
			return wp
		}
	}
	return nil
}

// ListBreakpoints prints every installed breakpoint and watchpoint.
func (m *Machine) ListBreakpoints(w io.Writer) {
	for _, bp := range m.SwBreakpoints() {
		fmt.Fprintf(w, "breakpoint[%d] addr:%#x type:software\n", bp.ID, bp.Addr)
	}
	for _, bp := range m.HwBreakpoints() {
		fmt.Fprintf(w, "breakpoint[%d] addr:%#x type:hardware\n", bp.ID, bp.Addr)
	}
	for _, wp := range m.Watchpoints() {
		fmt.Fprintf(w, "watchpoint[%d] addr:%#x kind:%s\n", wp.ID, wp.Addr, wp.Kind)
	}
}
