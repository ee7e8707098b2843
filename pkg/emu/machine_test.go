package emu

import (
	"errors"
	"testing"

	"github.com/hitzhangjie/gdbstub/pkg/target"
)

func newTestMachine(t *testing.T, prog []byte) *Machine {
	t.Helper()
	m := NewMachine(0x200)
	if err := m.Load(prog); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestSwBreakpointRoundTrip(t *testing.T) {
	m := newTestMachine(t, DemoProgram())

	done, err := m.AddSwBreakpoint(0x07)
	if err != nil || !done {
		t.Fatalf("add: got (%v, %v), want (true, nil)", done, err)
	}
	done, err = m.RemoveSwBreakpoint(0x07)
	if err != nil || !done {
		t.Fatalf("remove: got (%v, %v), want (true, nil)", done, err)
	}
}

func TestRemoveSwBreakpointNeverAdded(t *testing.T) {
	m := newTestMachine(t, DemoProgram())

	done, err := m.RemoveSwBreakpoint(0x40)
	if err != nil {
		t.Fatalf("remove of absent breakpoint must not fault: %v", err)
	}
	if done {
		t.Error("remove of absent breakpoint reported success")
	}
}

func TestSwBreakpointDoubleAdd(t *testing.T) {
	m := newTestMachine(t, DemoProgram())

	if done, err := m.AddSwBreakpoint(0x07); err != nil || !done {
		t.Fatalf("first add: got (%v, %v), want (true, nil)", done, err)
	}
	orig := m.swBreaks[0x07].Orig

	// second add is a refusal, never a fault, and leaves the patch intact
	done, err := m.AddSwBreakpoint(0x07)
	if err != nil {
		t.Fatalf("second add must not fault: %v", err)
	}
	if done {
		t.Error("second add reported success")
	}
	if got := m.swBreaks[0x07].Orig; got != orig {
		t.Errorf("saved original byte changed: %#x -> %#x", orig, got)
	}
	if m.mem[0x07] != OpTrap {
		t.Errorf("trap opcode gone: mem[0x07] = %#x", m.mem[0x07])
	}
}

func TestSwBreakpointRestoresOriginalByte(t *testing.T) {
	m := newTestMachine(t, DemoProgram())
	orig := m.mem[0x07]

	m.AddSwBreakpoint(0x07)
	if m.mem[0x07] != OpTrap {
		t.Fatalf("mem[0x07] = %#x, want trap opcode", m.mem[0x07])
	}
	m.RemoveSwBreakpoint(0x07)
	if m.mem[0x07] != orig {
		t.Errorf("mem[0x07] = %#x, want restored %#x", m.mem[0x07], orig)
	}
}

func TestSwBreakpointPatchClobbered(t *testing.T) {
	m := newTestMachine(t, DemoProgram())

	m.AddSwBreakpoint(0x07)
	m.mem[0x07] = OpNop // something else rewrote the text

	_, err := m.RemoveSwBreakpoint(0x07)
	if !errors.Is(err, ErrPatchClobbered) {
		t.Fatalf("got err %v, want ErrPatchClobbered", err)
	}
}

func TestSwBreakpointOutOfRangeRefused(t *testing.T) {
	m := newTestMachine(t, DemoProgram())

	done, err := m.AddSwBreakpoint(0x10000)
	if err != nil {
		t.Fatalf("out-of-range add must refuse, not fault: %v", err)
	}
	if done {
		t.Error("out-of-range add reported success")
	}
}

func TestHwBreakpointSlotExhaustion(t *testing.T) {
	m := newTestMachine(t, DemoProgram())

	for i := 0; i < HwBreakpointSlots; i++ {
		done, err := m.AddHwBreakpoint(uint32(0x10 + i))
		if err != nil || !done {
			t.Fatalf("add %d: got (%v, %v), want (true, nil)", i, done, err)
		}
	}

	// the 5th add is a refusal, not a fault
	done, err := m.AddHwBreakpoint(0x50)
	if err != nil {
		t.Fatalf("exhausted add must refuse, not fault: %v", err)
	}
	if done {
		t.Error("exhausted add reported success")
	}

	// freeing a slot makes the add succeed
	if done, err := m.RemoveHwBreakpoint(0x10); err != nil || !done {
		t.Fatalf("remove: got (%v, %v), want (true, nil)", done, err)
	}
	if done, err := m.AddHwBreakpoint(0x50); err != nil || !done {
		t.Fatalf("add after free: got (%v, %v), want (true, nil)", done, err)
	}
}

func TestHwWatchpointKindExactMatch(t *testing.T) {
	m := newTestMachine(t, DemoProgram())

	if done, err := m.AddHwWatchpoint(0x80, target.WatchWrite); err != nil || !done {
		t.Fatalf("add: got (%v, %v), want (true, nil)", done, err)
	}

	// removing a kind that was never armed refuses and leaves the write
	// watchpoint in place
	done, err := m.RemoveHwWatchpoint(0x80, target.WatchRead)
	if err != nil {
		t.Fatalf("kind-mismatched remove must not fault: %v", err)
	}
	if done {
		t.Error("kind-mismatched remove reported success")
	}

	done, err = m.RemoveHwWatchpoint(0x80, target.WatchWrite)
	if err != nil || !done {
		t.Fatalf("exact remove: got (%v, %v), want (true, nil)", done, err)
	}
}

func TestHwWatchpointDistinctRegistrations(t *testing.T) {
	m := newTestMachine(t, DemoProgram())

	// write and readwrite at the same address are distinct registrations
	if done, _ := m.AddHwWatchpoint(0x80, target.WatchWrite); !done {
		t.Fatal("add write watchpoint refused")
	}
	if done, _ := m.AddHwWatchpoint(0x80, target.WatchReadWrite); !done {
		t.Fatal("add readwrite watchpoint refused")
	}

	if done, _ := m.RemoveHwWatchpoint(0x80, target.WatchWrite); !done {
		t.Fatal("remove write watchpoint refused")
	}
	if done, _ := m.RemoveHwWatchpoint(0x80, target.WatchReadWrite); !done {
		t.Fatal("readwrite watchpoint gone after removing write")
	}
}

func TestHwWatchpointSlotExhaustion(t *testing.T) {
	m := newTestMachine(t, DemoProgram())

	for i := 0; i < HwWatchpointSlots; i++ {
		done, err := m.AddHwWatchpoint(uint32(0x80+i), target.WatchWrite)
		if err != nil || !done {
			t.Fatalf("add %d: got (%v, %v), want (true, nil)", i, done, err)
		}
	}
	done, err := m.AddHwWatchpoint(0x90, target.WatchWrite)
	if err != nil {
		t.Fatalf("exhausted add must refuse, not fault: %v", err)
	}
	if done {
		t.Error("exhausted add reported success")
	}
}

func TestResumeHitsSwBreakpoint(t *testing.T) {
	m := newTestMachine(t, DemoProgram())

	m.AddSwBreakpoint(0x07) // the load instruction
	stop, err := m.Resume()
	if err != nil {
		t.Fatal(err)
	}
	if stop.Reason != StopBreakpoint || stop.PC != 0x07 {
		t.Fatalf("stop = %+v, want breakpoint at 0x07", stop)
	}

	// resume steps off the breakpoint and runs to halt
	stop, err = m.Resume()
	if err != nil {
		t.Fatal(err)
	}
	if stop.Reason != StopHalt {
		t.Fatalf("stop = %+v, want halt", stop)
	}
}

func TestResumeHitsHwBreakpoint(t *testing.T) {
	m := newTestMachine(t, DemoProgram())

	m.AddHwBreakpoint(0x0d) // the trailing nop
	stop, err := m.Resume()
	if err != nil {
		t.Fatal(err)
	}
	if stop.Reason != StopBreakpoint || stop.PC != 0x0d {
		t.Fatalf("stop = %+v, want breakpoint at 0x0d", stop)
	}
}

func TestWatchpointFiresOnAccess(t *testing.T) {
	args := []struct {
		name  string
		kind  target.WatchKind
		addr  uint32 // expected stop address
		fires bool
	}{
		{"write", target.WatchWrite, 0x80, true},
		{"read", target.WatchRead, 0x80, true},
		{"readwrite", target.WatchReadWrite, 0x80, true},
		{"other address", target.WatchWrite, 0x81, false},
	}

	for _, arg := range args {
		t.Run(arg.name, func(t *testing.T) {
			m := newTestMachine(t, DemoProgram())
			wpAddr := uint32(0x80)
			if !arg.fires {
				wpAddr = 0x81
			}
			m.AddHwWatchpoint(wpAddr, arg.kind)

			stop, err := m.Resume()
			if err != nil {
				t.Fatal(err)
			}
			if !arg.fires {
				if stop.Reason != StopHalt {
					t.Fatalf("stop = %+v, want halt", stop)
				}
				return
			}
			if stop.Reason != StopWatchpoint || stop.Addr != arg.addr || stop.Watch != arg.kind {
				t.Fatalf("stop = %+v, want %s watchpoint at %#x", stop, arg.kind, arg.addr)
			}
		})
	}
}

func TestStepOverBreakpointExecutesOriginal(t *testing.T) {
	m := newTestMachine(t, DemoProgram())
	m.regs[0] = 0x2a

	m.AddSwBreakpoint(0x01) // the store instruction
	stop, err := m.StepInstruction()
	if err != nil {
		t.Fatal(err)
	}
	if stop.Reason != StopStep || stop.PC != 0x01 {
		t.Fatalf("stop = %+v, want step to 0x01", stop)
	}

	// stepping on the patched address executes the original store
	if _, err = m.StepInstruction(); err != nil {
		t.Fatal(err)
	}
	if m.mem[0x80] != 0x2a {
		t.Errorf("mem[0x80] = %#x, want 0x2a", m.mem[0x80])
	}
}

func TestIllegalOpcodeFaults(t *testing.T) {
	m := newTestMachine(t, []byte{0x7f})

	_, err := m.Resume()
	if !errors.Is(err, ErrIllegalOpcode) {
		t.Fatalf("got err %v, want ErrIllegalOpcode", err)
	}
}
