package fan

import (
	"sync"

	"defs"
	"sched"
	"util"
)

/// Permevent_t is a pending permission event: the blocked task's waker
/// and the decision slot user space fills through a response write.
type Permevent_t struct {
	sync.Mutex
	Fd       int32
	Pid      int32
	Mask     uint64
	waker    *sched.Waker_t
	decision uint32
}

/// Mkpermevent records a permission event for the blocked task.
func Mkpermevent(fd, pid int32, mask uint64) *Permevent_t {
	return &Permevent_t{Fd: fd, Pid: pid, Mask: mask, waker: sched.Mkwaker()}
}

/// Await parks until user space responds, then reports whether the
/// operation may proceed.
func (pe *Permevent_t) Await() bool {
	pe.waker.Park()
	pe.Lock()
	defer pe.Unlock()
	return pe.decision == FAN_ALLOW
}

/// Decide stores the response and wakes the blocked task.
func (pe *Permevent_t) Decide(response uint32) {
	pe.Lock()
	pe.decision = response
	pe.Unlock()
	pe.waker.Wake()
}

/// Queuepermission records pe on the entry and enqueues the matching
/// notification event.
func (e *Entry_t) Queuepermission(pe *Permevent_t) {
	e.Lock()
	e.permq = append(e.permq, pe)
	e.evq = append(e.evq, Event_t{Mask: pe.Mask, Fd: pe.Fd, Pid: pe.Pid})
	g := e.group
	e.Unlock()
	g.wakereaders()
}

/// Respond parses a {fd, response} record written to the group fd and
/// resolves the matching pending permission event. The record is
/// exactly 8 bytes; ALLOW and DENY are the only valid responses.
func (g *Group_t) Respond(buf []uint8) defs.Err_t {
	if len(buf) != 8 {
		return -defs.EINVAL
	}
	fd := int32(util.Readn(buf, 4, 0))
	response := uint32(util.Readn(buf, 4, 4))
	if response != FAN_ALLOW && response != FAN_DENY {
		return -defs.EINVAL
	}
	g.Lock()
	defer g.Unlock()
	for _, e := range g.entries {
		e.Lock()
		for i, pe := range e.permq {
			if pe.Fd == fd {
				e.permq = append(e.permq[:i], e.permq[i+1:]...)
				e.Unlock()
				pe.Decide(response)
				return 0
			}
		}
		e.Unlock()
	}
	return -defs.ENOENT
}
