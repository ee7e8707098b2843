package target

// Address constrains the unsigned integer types an architecture may use as
// its address width. Targets span 16-bit to 64-bit machines, so the width is
// a type parameter fixed per target rather than a single fixed-width integer.
type Address interface {
	~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Target is the debuggable entity. It intentionally exposes almost nothing:
// register access, memory access and execution control belong to other
// layers. Everything breakpoint related is an optional capability a concrete
// target may or may not implement, see the Supports* helpers.
type Target[A Address] interface {
	// ArchName names the target architecture, e.g. "x86_64" or "emu32".
	ArchName() string
}

// MaxAddress returns the largest value representable by the target's address
// type. The session layer uses it to reject addresses decoded from the wire
// that don't fit the architecture width.
func MaxAddress[A Address]() uint64 {
	return uint64(^A(0))
}
