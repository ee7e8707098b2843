// Package rsp serves the gdb remote serial protocol over any ReadWriter,
// translating breakpoint packets into the capability interfaces of
// pkg/target. Capabilities the target lacks answer with the empty packet
// (not supported), a refusal answers E22, and a target fault tears the
// session down.
package rsp

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hitzhangjie/gdbstub/pkg/target"
)

const maxPacketSize = 4096

// StopReason says why a resumed target came back.
type StopReason uint8

const (
	StopTrap   StopReason = iota // breakpoint or single step retired
	StopWatch                    // a data watchpoint fired
	StopExited                   // the target finished
)

// StopEvent describes a halt of a resumed target. Addr and Watch are only
// meaningful for StopWatch. Addresses are widened to uint64 here since the
// wire is hex-encoded anyway.
type StopEvent struct {
	Reason StopReason
	Addr   uint64
	Watch  target.WatchKind
}

// Resumer is implemented by targets that support execution control. It is
// optional the same way the breakpoint capabilities are: without it, the
// stub answers continue/step packets as unsupported.
type Resumer interface {
	Resume() (StopEvent, error)
	StepInstruction() (StopEvent, error)
}

// MemoryReader is implemented by targets that let the debugger read memory.
type MemoryReader interface {
	ReadMemory(addr uint64, p []byte) (int, error)
}

// Server runs one debug session against a single target. The target is
// exclusively owned by the session for its duration.
type Server[A target.Address] struct {
	c *conn
	t target.Target[A]
}

// NewServer wraps a transport and a target into a session.
func NewServer[A target.Address](rw io.ReadWriter, t target.Target[A]) *Server[A] {
	return &Server[A]{c: newConn(rw), t: t}
}

// Serve runs the session until the client detaches or kills the target, the
// transport closes, or the target faults. A fault is returned to the caller,
// a clean detach returns nil.
func (s *Server[A]) Serve() error {
	for {
		pkt, err := s.c.recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		resp, done, err := s.dispatch(pkt)
		if errors.Is(err, errSkipResponse) {
			continue
		}
		if err != nil {
			// report the fault before tearing down the session
			s.c.send("E01")
			return err
		}
		if err := s.c.send(resp); err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// dispatch handles one request packet. done reports that the session should
// end after the response. A non-nil error is a target fault.
func (s *Server[A]) dispatch(pkt string) (resp string, done bool, err error) {
	switch {
	case pkt == "qSupported" || strings.HasPrefix(pkt, "qSupported:"):
		return fmt.Sprintf("PacketSize=%x;swbreak+;hwbreak+;QStartNoAckMode+", maxPacketSize), false, nil
	case pkt == "QStartNoAckMode":
		// the OK is still acked, ack mode ends after it
		if err := s.c.send("OK"); err != nil {
			return "", false, err
		}
		s.c.ack = false
		return "", false, errSkipResponse
	case pkt == "?":
		return "S05", false, nil
	case pkt == "D":
		return "OK", true, nil
	case pkt == "k":
		return "", true, nil
	case len(pkt) > 0 && (pkt[0] == 'Z' || pkt[0] == 'z'):
		resp, err := s.handleBreakpoint(pkt)
		return resp, false, err
	case len(pkt) > 0 && pkt[0] == 'm':
		return s.handleMemRead(pkt), false, nil
	case pkt == "c":
		resp, err := s.handleResume(false)
		return resp, false, err
	case pkt == "s":
		resp, err := s.handleResume(true)
		return resp, false, err
	default:
		// unknown packets answer empty per the protocol
		return "", false, nil
	}
}

// errSkipResponse flows out of dispatch when the handler already sent its
// response itself.
var errSkipResponse = errors.New("response already sent")

// handleBreakpoint serves Z/z packets: Z0/z0 software breakpoints, Z1/z1
// hardware breakpoints, Z2..Z4 write/read/access watchpoints.
func (s *Server[A]) handleBreakpoint(pkt string) (string, error) {
	insert := pkt[0] == 'Z'

	fields := strings.Split(pkt[1:], ",")
	if len(fields) < 2 {
		return "E01", nil
	}
	addr64, err := strconv.ParseUint(fields[1], 16, 64)
	if err != nil || addr64 > target.MaxAddress[A]() {
		return "E01", nil
	}
	addr := A(addr64)

	var (
		ok    bool
		opErr error
	)
	switch fields[0] {
	case "0":
		sw, supported := target.SupportsSwBreakpoint[A](s.t)
		if !supported {
			return "", nil
		}
		if insert {
			ok, opErr = sw.AddSwBreakpoint(addr)
		} else {
			ok, opErr = sw.RemoveSwBreakpoint(addr)
		}
	case "1":
		hw, supported := target.SupportsHwBreakpoint[A](s.t)
		if !supported {
			return "", nil
		}
		if insert {
			ok, opErr = hw.AddHwBreakpoint(addr)
		} else {
			ok, opErr = hw.RemoveHwBreakpoint(addr)
		}
	case "2", "3", "4":
		wp, supported := target.SupportsHwWatchpoint[A](s.t)
		if !supported {
			return "", nil
		}
		kind := watchKindOf(fields[0])
		if insert {
			ok, opErr = wp.AddHwWatchpoint(addr, kind)
		} else {
			ok, opErr = wp.RemoveHwWatchpoint(addr, kind)
		}
	default:
		return "", nil
	}

	if opErr != nil {
		return "", opErr
	}
	if !ok {
		// refusal: could not set/remove here, routine for the client
		return "E22", nil
	}
	return "OK", nil
}

func watchKindOf(ztype string) target.WatchKind {
	switch ztype {
	case "3":
		return target.WatchRead
	case "4":
		return target.WatchReadWrite
	default:
		return target.WatchWrite
	}
}

// handleMemRead serves m<addr>,<len>. Read failures are ordinary errors to
// the client, not session faults.
func (s *Server[A]) handleMemRead(pkt string) string {
	mr, supported := s.t.(MemoryReader)
	if !supported {
		return ""
	}

	fields := strings.Split(pkt[1:], ",")
	if len(fields) != 2 {
		return "E01"
	}
	addr, err := strconv.ParseUint(fields[0], 16, 64)
	if err != nil {
		return "E01"
	}
	length, err := strconv.ParseUint(fields[1], 16, 32)
	if err != nil || length > maxPacketSize/2 {
		return "E01"
	}

	buf := make([]byte, length)
	n, err := mr.ReadMemory(addr, buf)
	if err != nil || n == 0 {
		return "E01"
	}
	return hex.EncodeToString(buf[:n])
}

// handleResume serves c and s packets, mapping the stop event to a stop
// reply.
func (s *Server[A]) handleResume(step bool) (string, error) {
	r, supported := s.t.(Resumer)
	if !supported {
		return "", nil
	}

	var (
		ev  StopEvent
		err error
	)
	if step {
		ev, err = r.StepInstruction()
	} else {
		ev, err = r.Resume()
	}
	if err != nil {
		return "", err
	}

	switch ev.Reason {
	case StopExited:
		return "W00", nil
	case StopWatch:
		return fmt.Sprintf("T05%s:%x;", watchToken(ev.Watch), ev.Addr), nil
	default:
		return "S05", nil
	}
}

func watchToken(kind target.WatchKind) string {
	switch kind {
	case target.WatchRead:
		return "rwatch"
	case target.WatchReadWrite:
		return "awatch"
	default:
		return "watch"
	}
}
