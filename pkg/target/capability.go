package target

// Capability discovery. A concrete target implements zero, one, two or all
// three of the breakpoint capabilities, without stubbing out the ones it
// lacks. The session layer probes with these helpers before dispatching a
// request and reports "unsupported" upstream when a probe comes back false,
// never calling into a capability the target doesn't have.

// SupportsSwBreakpoint reports whether t can set software breakpoints and,
// if so, returns the handle to drive them.
func SupportsSwBreakpoint[A Address](t Target[A]) (SwBreakpoint[A], bool) {
	s, ok := t.(SwBreakpoint[A])
	return s, ok
}

// SupportsHwBreakpoint reports whether t has hardware instruction
// breakpoints.
func SupportsHwBreakpoint[A Address](t Target[A]) (HwBreakpoint[A], bool) {
	h, ok := t.(HwBreakpoint[A])
	return h, ok
}

// SupportsHwWatchpoint reports whether t has hardware data watchpoints.
func SupportsHwWatchpoint[A Address](t Target[A]) (HwWatchpoint[A], bool) {
	w, ok := t.(HwWatchpoint[A])
	return w, ok
}
