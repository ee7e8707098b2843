package target

import "fmt"

// WatchKind describes which memory-access direction(s) trigger a watchpoint.
// It is a closed enumeration, callers must not invent a fourth value.
type WatchKind uint8

const (
	// WatchWrite fires when the memory location is written to.
	WatchWrite WatchKind = iota
	// WatchRead fires when the memory location is read from.
	WatchRead
	// WatchReadWrite fires when the memory location is written to and/or
	// read from.
	WatchReadWrite
)

func (k WatchKind) String() string {
	switch k {
	case WatchWrite:
		return "write"
	case WatchRead:
		return "read"
	case WatchReadWrite:
		return "readwrite"
	default:
		return fmt.Sprintf("WatchKind(%d)", uint8(k))
	}
}

// Every operation below shares one result contract:
//
//   - (true, nil): the request was honored.
//   - (false, nil): refusal. The target could not honor the request for a
//     benign reason: hardware slots exhausted, address not usable by this
//     mechanism, no matching entry on remove. Refusals are routine and are
//     relayed upstream as a normal negative acknowledgment, never as an
//     error.
//   - (_, err): mechanism fault, e.g. the underlying register or memory
//     access broke. Faults propagate and are expected to end the session.
//
// Collapsing refusal into fault (or the other way around) breaks callers
// that rely on telling "could not set here" apart from "broken".
//
// Calls are synchronous, must not block, and run under the exclusive
// ownership of the debug loop driving the target, so implementations need no
// internal locking.

// SwBreakpoint is implemented by targets that can trap execution at an
// address by their own means, typically patching the instruction stream or,
// for interpreted targets, comparing the PC against a list each cycle.
type SwBreakpoint[A Address] interface {
	Target[A]

	// AddSwBreakpoint starts trapping execution at addr.
	AddSwBreakpoint(addr A) (bool, error)

	// RemoveSwBreakpoint stops trapping execution at addr. Removing an
	// address that was never added is a refusal, not a fault.
	RemoveSwBreakpoint(addr A) (bool, error)
}

// HwBreakpoint is implemented by targets with dedicated instruction
// breakpoint hardware. Slots are scarce, commonly 2 to 16, so a refusal on
// add is the expected outcome once they run out and callers must treat it as
// routine capacity exhaustion.
type HwBreakpoint[A Address] interface {
	Target[A]

	// AddHwBreakpoint occupies a hardware slot to trap execution at addr.
	AddHwBreakpoint(addr A) (bool, error)

	// RemoveHwBreakpoint frees the hardware slot trapping addr.
	RemoveHwBreakpoint(addr A) (bool, error)
}

// HwWatchpoint is implemented by targets with hardware data-breakpoint
// support. A watchpoint registration is identified by the pair (addr, kind):
// removal matches the kind exactly, so removing WatchWrite at an address
// never disarms a WatchReadWrite registration at the same address. The
// hardware distinguishes direction at the register level and this contract
// preserves that rather than guessing at best-effort cleanup.
type HwWatchpoint[A Address] interface {
	Target[A]

	// AddHwWatchpoint arms a watchpoint at addr firing on the access
	// direction(s) named by kind.
	AddHwWatchpoint(addr A, kind WatchKind) (bool, error)

	// RemoveHwWatchpoint disarms the watchpoint matching both addr and
	// kind.
	RemoveHwWatchpoint(addr A, kind WatchKind) (bool, error)
}
