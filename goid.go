package xdispatch

import (
	"bytes"
	"runtime"
	"strconv"
)

// goid returns the current goroutine's id by parsing the runtime.Stack
// header ("goroutine N [status]:"). The runtime exposes no public goroutine
// identity, but the header format has been stable across releases. Only the
// thread-discipline assertion uses this; nothing is scheduled by it.
func goid() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
