package topo

import (
	"encoding/binary"
	"fmt"
	"runtime"

	"github.com/cespare/xxhash/v2"
)

// CallId identifies an activation record in the current call topology.
//
// The CallId for the execution of a stack frame is the combined product of:
//
//   - a callsite: the source location at which the topologically-nested
//     function was invoked
//   - the parent CallId: the identifier which was active when entering the
//     current topologically-nested function
//   - a "slot": a runtime value indicating the call's logical index within
//     the parent call
//
// By default the slot is a count of the number of times that particular
// callsite has executed within the parent's scope, so a call in a loop gets
// a unique id per iteration and the same id when the loop runs again. Using
// CallKeyed replaces the counter with an interned key, giving stable ids
// even when iteration order changes between revisions.
type CallId uint64

// RootId is the CallId of the root scope, active outside of any topological
// call.
const RootId CallId = 0

// Current returns the CallId for the current scope in the call topology.
// Outside of any topological call it returns RootId.
func Current() CallId {
	return currentPoint.id
}

// child derives the id nested under this one for the given callsite and slot.
func (id CallId) child(site Callsite, slot OpaqueToken) CallId {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(id))
	binary.LittleEndian.PutUint64(buf[8:], uint64(site.pc))
	binary.LittleEndian.PutUint32(buf[16:], slot.ty)
	binary.LittleEndian.PutUint32(buf[20:], slot.index)
	return CallId(xxhash.Sum64(buf[:]))
}

func (id CallId) String() string {
	return fmt.Sprintf("%x", uint64(id))
}

// Callsite is a value unique to the source location at which it is captured.
type Callsite struct {
	pc uintptr
}

// CallerSite captures the callsite of a caller skip frames above the caller
// of CallerSite. CallerSite(0) is the callsite of the function calling
// CallerSite, CallerSite(1) its caller, and so on. Callsite-addressed entry
// points capture their own caller's site and pass it down, keeping identity
// attached to user code rather than to library internals.
func CallerSite(skip int) Callsite {
	pc, _, _, ok := runtime.Caller(skip + 1)
	if !ok {
		return Callsite{}
	}
	return Callsite{pc: pc}
}

// Here captures the callsite of the line calling Here.
func Here() Callsite {
	return CallerSite(1)
}

func (c Callsite) String() string {
	if c.pc == 0 {
		return "<unknown>"
	}
	frames := runtime.CallersFrames([]uintptr{c.pc})
	frame, _ := frames.Next()
	if frame.Function == "" {
		return fmt.Sprintf("pc=%x", c.pc)
	}
	return fmt.Sprintf("%s:%d", frame.Function, frame.Line)
}
