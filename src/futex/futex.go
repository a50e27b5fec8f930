// Package futex implements the user-space rendezvous word: a keyed
// waiter map where tasks park until another task wakes or requeues
// them. Shared futexes key on the word's physical page; private ones
// key on the address space identity plus the VA.
package futex

import (
	"sync"
	"time"
	"unsafe"

	"defs"
	"limits"
	"mem"
	"sched"
	"stats"
	"util"
	"vm"
)

/// Key_t hashes a futex word. Exactly one of the two variants is used:
/// pa for process-shared words, as+va for private ones.
type Key_t struct {
	private bool
	pa      uintptr
	as      uintptr
	va      uintptr
}

/// Mkkey builds the hash key for uaddr. The address space lock is
/// taken to translate shared words.
func Mkkey(uaddr uintptr, as *vm.Aspace_t, private bool) (Key_t, defs.Err_t) {
	if private {
		return Key_t{private: true, as: uintptr(unsafe.Pointer(as)), va: uaddr}, 0
	}
	as.Lock_pmap()
	defer as.Unlock_pmap()
	pte := as.Pgtbl.Findleaf(mem.Va_t(uaddr).Vpn())
	if pte == nil || !pte.Valid() {
		// fault the word in, then retranslate
		if err := as.Pagefault(mem.Va_t(uaddr), vm.PERM_R); err != 0 {
			return Key_t{}, err
		}
		pte = as.Pgtbl.Findleaf(mem.Va_t(uaddr).Vpn())
	}
	pa := uintptr(pte.Ppn().Pa()) | (uaddr & 0xfff)
	return Key_t{pa: pa}, 0
}

func keyhash(k Key_t) uint32 {
	h := k.pa ^ k.as ^ k.va<<1
	if k.private {
		h ^= 0x9e3779b9
	}
	return uint32(h>>32) ^ uint32(h)
}

type waiter_t struct {
	tid   defs.Tid_t
	waker *sched.Waker_t
}

/// Futexmgr_t is the global keyed waiter map; one lock guards it.
type Futexmgr_t struct {
	sync.Mutex
	waiters map[Key_t][]waiter_t
	nalloc  int
}

/// Futexes is the global manager.
var Futexes = &Futexmgr_t{waiters: make(map[Key_t][]waiter_t)}

// loadword reads the 32-bit futex word through the user-pointer gate.
func loadword(as *vm.Aspace_t, uaddr uintptr) (uint32, defs.Err_t) {
	r := vm.Mkuread(uaddr, as)
	v, err := r.Readn(4)
	if err != 0 {
		return 0, err
	}
	return uint32(v), 0
}

/// Wait parks the caller until a wake on key, a timeout, or a signal.
/// The caller's view of the word must still be val when the waiter is
/// queued, else EAGAIN.
func (fm *Futexmgr_t) Wait(tid defs.Tid_t, as *vm.Aspace_t, uaddr uintptr,
	key Key_t, val uint32, timeout time.Duration, intr <-chan struct{}) defs.Err_t {
	stats.Futexwaits.Inc()
	w := waiter_t{tid: tid, waker: sched.Mkwaker()}

	fm.Lock()
	cur, err := loadword(as, uaddr)
	if err != 0 {
		fm.Unlock()
		return err
	}
	if cur != val {
		fm.Unlock()
		return -defs.EAGAIN
	}
	if fm.nalloc >= limits.Syslimit.Futexes {
		fm.Unlock()
		return -defs.ENOMEM
	}
	fm.nalloc++
	fm.waiters[key] = append(fm.waiters[key], w)
	fm.Unlock()

	_, timedout, interrupted := w.waker.Parkintr(timeout, intr)
	if timedout || interrupted {
		fm.Lock()
		fm.remove(key, tid)
		fm.Unlock()
		if interrupted {
			return -defs.EINTR
		}
		return -defs.ETIMEDOUT
	}
	return 0
}

// remove drops tid's waiter from key's list, if still queued.
func (fm *Futexmgr_t) remove(key Key_t, tid defs.Tid_t) {
	ws := fm.waiters[key]
	for i, w := range ws {
		if w.tid == tid {
			fm.waiters[key] = append(ws[:i], ws[i+1:]...)
			fm.nalloc--
			break
		}
	}
	if len(fm.waiters[key]) == 0 {
		delete(fm.waiters, key)
	}
}

/// Wake wakes at most n waiters on key and returns how many.
func (fm *Futexmgr_t) Wake(key Key_t, n int) (int, defs.Err_t) {
	fm.Lock()
	ws := fm.waiters[key]
	c := util.Min(n, len(ws))
	towake := make([]waiter_t, c)
	copy(towake, ws[:c])
	fm.waiters[key] = ws[c:]
	fm.nalloc -= c
	if len(fm.waiters[key]) == 0 {
		delete(fm.waiters, key)
	}
	fm.Unlock()
	for _, w := range towake {
		w.waker.Wake()
	}
	stats.Futexwakes.Add(float64(c))
	return c, 0
}

/// Requeue wakes up to nwake waiters on old and moves up to nmove of
/// the remainder onto new. With cmp set, the word at uaddr must still
/// equal val3, else EAGAIN.
func (fm *Futexmgr_t) Requeue(as *vm.Aspace_t, uaddr uintptr, old, new Key_t,
	nwake, nmove int, cmp bool, val3 uint32) (int, defs.Err_t) {
	fm.Lock()
	if cmp {
		cur, err := loadword(as, uaddr)
		if err != 0 {
			fm.Unlock()
			return 0, err
		}
		if cur != val3 {
			fm.Unlock()
			return 0, -defs.EAGAIN
		}
	}
	ws := fm.waiters[old]
	c := util.Min(nwake, len(ws))
	towake := make([]waiter_t, c)
	copy(towake, ws[:c])
	ws = ws[c:]
	m := util.Min(nmove, len(ws))
	fm.waiters[new] = append(fm.waiters[new], ws[:m]...)
	ws = ws[m:]
	if len(ws) == 0 {
		delete(fm.waiters, old)
	} else {
		fm.waiters[old] = ws
	}
	fm.nalloc -= c
	fm.Unlock()
	for _, w := range towake {
		w.waker.Wake()
	}
	stats.Futexwakes.Add(float64(c))
	return c + m, 0
}
