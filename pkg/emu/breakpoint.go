package emu

import (
	"sort"

	"github.com/hitzhangjie/gdbstub/pkg/target"
	"go.uber.org/atomic"
)

var (
	bpSeqNo = atomic.NewUint64(0)
	wpSeqNo = atomic.NewUint64(0)
)

// Breakpoint is an installed instruction breakpoint, software or hardware.
type Breakpoint struct {
	ID   uint64 // breakpoint number
	Addr uint32 // trapped instruction address
	Orig byte   // original byte replaced by the trap opcode, software only
}

func newBreakpoint(addr uint32, orig byte) *Breakpoint {
	return &Breakpoint{
		ID:   bpSeqNo.Add(1),
		Addr: addr,
		Orig: orig,
	}
}

// Breakpoints lists installed breakpoints, ordered by ID.
type Breakpoints []*Breakpoint

func (b Breakpoints) Len() int           { return len(b) }
func (b Breakpoints) Less(i, j int) bool { return b[i].ID < b[j].ID }
func (b Breakpoints) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }

// Watchpoint is an armed hardware data watchpoint. The pair (Addr, Kind)
// identifies the registration.
type Watchpoint struct {
	ID   uint64
	Addr uint32
	Kind target.WatchKind
}

func newWatchpoint(addr uint32, kind target.WatchKind) *Watchpoint {
	return &Watchpoint{
		ID:   wpSeqNo.Add(1),
		Addr: addr,
		Kind: kind,
	}
}

// SwBreakpoints returns the installed software breakpoints ordered by ID.
func (m *Machine) SwBreakpoints() Breakpoints {
	bps := make(Breakpoints, 0, len(m.swBreaks))
	for _, bp := range m.swBreaks {
		bps = append(bps, bp)
	}
	sort.Sort(bps)
	return bps
}

// HwBreakpoints returns the occupied hardware breakpoint slots ordered by ID.
func (m *Machine) HwBreakpoints() Breakpoints {
	bps := make(Breakpoints, 0, HwBreakpointSlots)
	for _, bp := range m.hwBreaks {
		if bp != nil {
			bps = append(bps, bp)
		}
	}
	sort.Sort(bps)
	return bps
}

// Watchpoints returns the armed watchpoints ordered by ID.
func (m *Machine) Watchpoints() []*Watchpoint {
	wps := make([]*Watchpoint, 0, HwWatchpointSlots)
	for _, wp := range m.watches {
		if wp != nil {
			wps = append(wps, wp)
		}
	}
	sort.Slice(wps, func(i, j int) bool { return wps[i].ID < wps[j].ID })
	return wps
}
