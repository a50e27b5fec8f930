// Package arch isolates what the hardware provides: address-translation
// control, TLB maintenance, and the per-hart mode that lets the kernel
// touch user pages. The default implementations here are software
// stand-ins good enough to run the kernel hosted (tests, emulator
// bring-up); a bare-metal build installs the real CSR/assembly versions
// through the hook variables before secondary harts start. The call
// surface is frozen.
package arch

import "sync/atomic"

// satp mode field for Sv39
const SATP_SV39 uintptr = 8 << 60

// Hook variables, replaced at boot on real hardware.
var (
	// Setsatp writes the translation root and flushes the TLB.
	Setsatp = func(rootppn uintptr) {
		atomic.StoreUintptr(&cursatp, SATP_SV39|rootppn)
	}

	// Flushva invalidates the translation for a single VA on this hart.
	Flushva = func(va uintptr) {}

	// Flushall invalidates all non-global translations on this hart.
	Flushall = func() {}

	// Setsum enables or disables supervisor access to user pages on
	// this hart (the SUM bit on RISC-V).
	Setsum = func(on bool) {
		if on {
			atomic.AddInt32(&sumdepth, 1)
		} else {
			if atomic.AddInt32(&sumdepth, -1) < 0 {
				panic("sum underflow")
			}
		}
	}
)

var cursatp uintptr
var sumdepth int32

/// Sumheld reports whether user-page access is currently enabled; the
/// user-pointer gate asserts this before touching user memory.
func Sumheld() bool {
	return atomic.LoadInt32(&sumdepth) > 0
}

/// Sumguard_t scopes the kernel-may-access-user-pages mode. Construction
/// enables the mode; Release restores it on every exit path, so callers
/// must defer it immediately.
type Sumguard_t struct {
	done bool
}

/// Mksum enables user-page access and returns the guard.
func Mksum() *Sumguard_t {
	Setsum(true)
	return &Sumguard_t{}
}

/// Release disables user-page access. Safe to call twice.
func (g *Sumguard_t) Release() {
	if g.done {
		return
	}
	g.done = true
	Setsum(false)
}
