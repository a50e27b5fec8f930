package accnt

import (
	"sync"
	"sync/atomic"
	"time"
)

/// Accnt_t accumulates per-task time accounting. Userns and Sysns are
/// nanoseconds; the embedded mutex lets wait4 and getrusage snapshot
/// the pair consistently.
type Accnt_t struct {
	Userns int64
	Sysns  int64
	sync.Mutex
}

/// Utadd adds delta nanoseconds of user time.
func (a *Accnt_t) Utadd(delta int64) {
	atomic.AddInt64(&a.Userns, delta)
}

/// Systadd adds delta nanoseconds of system time.
func (a *Accnt_t) Systadd(delta int64) {
	atomic.AddInt64(&a.Sysns, delta)
}

/// Now returns the current monotonic time in nanoseconds.
func Now() int64 {
	return time.Now().UnixNano()
}

/// Fetch snapshots both counters.
func (a *Accnt_t) Fetch() (int64, int64) {
	a.Lock()
	defer a.Unlock()
	return atomic.LoadInt64(&a.Userns), atomic.LoadInt64(&a.Sysns)
}

/// Add merges a child's totals into a parent's on reap.
func (a *Accnt_t) Add(o *Accnt_t) {
	u, s := o.Fetch()
	a.Utadd(u)
	a.Systadd(s)
}
