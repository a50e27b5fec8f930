package caller

import (
	"fmt"
	"runtime"
	"sync"
)

// Callerdump prints the call stack starting at the given depth.
func Callerdump(start int, emit func(string)) {
	i := start
	s := ""
	for {
		_, f, l, ok := runtime.Caller(i)
		if !ok {
			break
		}
		i++
		if s == "" {
			s = fmt.Sprintf("%s:%d\n", f, l)
		} else {
			s += fmt.Sprintf("\t<-%s:%d\n", f, l)
		}
	}
	emit(s)
}

// Distinct_caller_t detects the first call from each distinct chain of
// ancestor callers; warn-once paths use it so a flood of identical
// "unimplemented" logs collapses to one line per call site.
type Distinct_caller_t struct {
	sync.Mutex
	Enabled bool
	did     map[uintptr]bool
	Whitel  map[string]bool
}

// Len returns the number of distinct chains seen.
func (dc *Distinct_caller_t) Len() int {
	dc.Lock()
	defer dc.Unlock()
	return len(dc.did)
}

// Distinct reports whether this call chain is new, and if so returns a
// rendering of it.
func (dc *Distinct_caller_t) Distinct() (bool, string) {
	dc.Lock()
	defer dc.Unlock()
	if !dc.Enabled {
		return false, ""
	}
	if dc.did == nil {
		dc.did = make(map[uintptr]bool)
	}

	var pcs []uintptr
	pcbuf := make([]uintptr, 32)
	n := runtime.Callers(3, pcbuf)
	pcs = pcbuf[:n]
	var h uintptr
	for _, pc := range pcs {
		h = h*31 + pc
	}
	if dc.did[h] {
		return false, ""
	}
	dc.did[h] = true

	frames := runtime.CallersFrames(pcs)
	s := ""
	for {
		fr, more := frames.Next()
		if dc.Whitel[fr.Function] {
			return false, ""
		}
		s += fmt.Sprintf("\t<-%s:%d\n", fr.File, fr.Line)
		if !more {
			break
		}
	}
	return true, s
}
