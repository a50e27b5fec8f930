// Package fdops holds the contracts between file descriptors and the
// objects behind them. Keeping the interfaces here lets fd, vm, vfs,
// and proc depend on the contract without depending on each other.
package fdops

import (
	"defs"
	"sched"
	"stat"
)

/// Userio_i abstracts a source or sink of bytes that may live in user
/// memory (vm.Userbuf_t, vm.Useriovec_t) or in the kernel
/// (vm.Fakeubuf_t).
type Userio_i interface {
	Uioread(dst []uint8) (int, defs.Err_t)
	Uiowrite(src []uint8) (int, defs.Err_t)
	// Remain returns the number of unconsumed bytes.
	Remain() int
	// Totalsz returns the original size of the buffer.
	Totalsz() int
}

/// Ready_t is a bitmask of poll conditions.
type Ready_t uint8

const (
	R_READ  Ready_t = 1 << 0
	R_WRITE Ready_t = 1 << 1
	R_HUP   Ready_t = 1 << 2
	R_ERROR Ready_t = 1 << 3
)

/// Pollmsg_t carries a poll request: the conditions of interest and the
/// waker to fire when one becomes true.
type Pollmsg_t struct {
	Events Ready_t
	Waker  *sched.Waker_t
}

/// Fdops_i is the operation set reachable through a file descriptor.
/// Implementations are reference-like; Reopen takes another reference
/// for a dup'd descriptor, Close drops one.
type Fdops_i interface {
	Close() defs.Err_t
	Reopen() defs.Err_t
	Read(dst Userio_i) (int, defs.Err_t)
	Write(src Userio_i) (int, defs.Err_t)
	Pread(dst Userio_i, offset int) (int, defs.Err_t)
	Pwrite(src Userio_i, offset int) (int, defs.Err_t)
	Lseek(offset, whence int) (int, defs.Err_t)
	Fstat(st *stat.Stat_t) defs.Err_t
	// Pollone reports the currently-true subset of pm.Events; if none
	// are true and pm carries a waker, it is registered for a wake.
	Pollone(pm Pollmsg_t) (Ready_t, defs.Err_t)
	Fcntl(cmd, arg int) int
}
