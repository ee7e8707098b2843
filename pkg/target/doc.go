// Package target defines the contract between the remote-protocol session
// layer and the thing being debugged.
//
// A target is an emulator, an embedded runtime, or a process under
// inspection. This package never touches the mechanism a target uses to trap
// execution, it only pins down the operations, their result semantics and how
// optional capabilities are discovered at runtime. Breakpoint state is owned
// entirely by the target implementation.
package target
