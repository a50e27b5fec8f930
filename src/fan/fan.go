// Package fan is the fanotify event pipeline: groups own entries, an
// entry marks one filesystem object, and VFS operations publish events
// through the object's mark list. The package knows nothing about
// concrete filesystem types; vfs owns the hookup.
package fan

import (
	"sync"
	"sync/atomic"

	"defs"
	"fdops"
	"limits"
	"sched"
	"stats"
)

// what an entry marks
type Markkind_t int

const (
	MARK_INODE Markkind_t = iota
	MARK_MOUNT
	MARK_FILESYSTEM
)

/// Objid_t identifies a filesystem object inside a group's entry map:
/// an inode number or a superblock device id.
type Objid_t struct {
	Kind Markkind_t
	Id   uint64
}

/// Group_t is one fanotify group: init flags, event-file flags, and the
/// map from object id to entry. The group owns its entries; objects
/// hold back-pointers that die with the group.
type Group_t struct {
	sync.Mutex
	entries map[Objid_t]*Entry_t
	Flags   uint32
	Evfflags uint32
	// readers of the group fd park here
	rdwake  *sched.Waker_t
	pollers []*sched.Waker_t
	closed  bool
}

/// Mkgroup validates the init flags and allocates a group.
func Mkgroup(flags, evfflags uint32) (*Group_t, defs.Err_t) {
	if flags&^fan_init_all != 0 {
		return nil, -defs.EINVAL
	}
	if flags&FAN_CLASS_PRE_CONTENT != 0 && flags&FAN_CLASS_CONTENT != 0 {
		return nil, -defs.EINVAL
	}
	if flags&FAN_REPORT_NAME != 0 && flags&FAN_REPORT_DIR_FID == 0 {
		return nil, -defs.EINVAL
	}
	if flags&FAN_REPORT_PIDFD != 0 && flags&FAN_REPORT_TID != 0 {
		return nil, -defs.EINVAL
	}
	if flags&(FAN_CLASS_PRE_CONTENT|FAN_CLASS_CONTENT|FAN_UNLIMITED_QUEUE|
		FAN_UNLIMITED_MARKS|FAN_ENABLE_AUDIT|FAN_REPORT_TARGET_FID|
		FAN_REPORT_PIDFD) != 0 {
		return nil, -defs.ENOSYS
	}
	if !limits.Syslimit.Fangroups.Take() {
		return nil, -defs.ENOMEM
	}
	return &Group_t{
		entries:  make(map[Objid_t]*Entry_t),
		Flags:    flags,
		Evfflags: evfflags,
		rdwake:   sched.Mkwaker(),
	}, 0
}

/// Entry_t marks one filesystem object for one group. The object's
/// back-pointer to the entry is "weak": when the group closes, dead is
/// set and holders prune the entry on next touch.
type Entry_t struct {
	sync.Mutex
	group *Group_t
	Objid Objid_t
	Kind  Markkind_t
	// mark flags from the last fanotify_mark call on this entry
	mflags uint32
	mark   uint64
	ignore uint64
	evq    []Event_t
	permq  []*Permevent_t
	dead   atomic.Bool
}

/// Dead reports whether the owning group dropped this entry.
func (e *Entry_t) Dead() bool {
	return e.dead.Load()
}

/// Markmask returns the current mark mask.
func (e *Entry_t) Markmask() uint64 {
	e.Lock()
	defer e.Unlock()
	return e.mark
}

/// Ignoremask returns the current ignore mask.
func (e *Entry_t) Ignoremask() uint64 {
	e.Lock()
	defer e.Unlock()
	return e.ignore
}

/// Mflags returns the mark flags recorded on the entry.
func (e *Entry_t) Mflags() uint32 {
	e.Lock()
	defer e.Unlock()
	return e.mflags
}

/// Getentry returns the entry for the object, if any.
func (g *Group_t) Getentry(id Objid_t) *Entry_t {
	g.Lock()
	defer g.Unlock()
	return g.entries[id]
}

/// Addentry creates an entry for the object and returns it so the
/// caller can register the back-pointer on the object.
func (g *Group_t) Addentry(id Objid_t, kind Markkind_t, mflags uint32,
	mark, ignore uint64) (*Entry_t, defs.Err_t) {
	if !limits.Syslimit.Fanmarks.Take() {
		return nil, -defs.ENOMEM
	}
	e := &Entry_t{group: g, Objid: id, Kind: kind, mflags: mflags,
		mark: mark, ignore: ignore}
	g.Lock()
	defer g.Unlock()
	if g.closed {
		limits.Syslimit.Fanmarks.Give()
		return nil, -defs.EBADF
	}
	if _, ok := g.entries[id]; ok {
		panic("entry exists")
	}
	g.entries[id] = e
	return e, 0
}

/// Updatemark applies an ADD or REMOVE of mark/ignore bits to an
/// existing entry, honoring the ignore-conflict rules.
func (e *Entry_t) Updatemark(mflags uint32, mark, ignore uint64, add bool) defs.Err_t {
	e.Lock()
	defer e.Unlock()
	old := e.mflags
	if mflags&FAN_MARK_IGNORED_MASK != 0 && old&FAN_MARK_IGNORE != 0 {
		return -defs.EEXIST
	}
	if mflags&FAN_MARK_IGNORED_SURV_MODIFY == 0 &&
		old&(FAN_MARK_IGNORE|FAN_MARK_IGNORED_SURV_MODIFY) ==
			(FAN_MARK_IGNORE|FAN_MARK_IGNORED_SURV_MODIFY) {
		return -defs.EEXIST
	}
	e.mflags = mflags
	if add {
		e.mark |= mark
		e.ignore |= ignore
	} else {
		e.mark &^= mark
		e.ignore &^= ignore
	}
	return 0
}

func (g *Group_t) flushkind(want func(*Entry_t) bool) {
	g.Lock()
	defer g.Unlock()
	for id, e := range g.entries {
		if want(e) {
			e.dead.Store(true)
			limits.Syslimit.Fanmarks.Give()
			delete(g.entries, id)
		}
	}
}

/// Flushnormal removes every inode-marked entry.
func (g *Group_t) Flushnormal() {
	g.flushkind(func(e *Entry_t) bool { return e.Kind == MARK_INODE })
}

/// Flushmount removes every mount-marked entry.
func (g *Group_t) Flushmount() {
	g.flushkind(func(e *Entry_t) bool { return e.Kind == MARK_MOUNT })
}

/// Flushfilesystem removes every filesystem-marked entry.
func (g *Group_t) Flushfilesystem() {
	g.flushkind(func(e *Entry_t) bool { return e.Kind == MARK_FILESYSTEM })
}

/// Removeentry drops the entry for the object; ENOENT if none.
func (g *Group_t) Removeentry(id Objid_t) defs.Err_t {
	g.Lock()
	defer g.Unlock()
	e, ok := g.entries[id]
	if !ok {
		return -defs.ENOENT
	}
	e.dead.Store(true)
	limits.Syslimit.Fanmarks.Give()
	delete(g.entries, id)
	return 0
}

/// Close kills the group: all entries die and blocked readers return.
func (g *Group_t) Close() {
	g.Lock()
	if g.closed {
		g.Unlock()
		return
	}
	g.closed = true
	for id, e := range g.entries {
		e.dead.Store(true)
		limits.Syslimit.Fanmarks.Give()
		delete(g.entries, id)
	}
	g.Unlock()
	limits.Syslimit.Fangroups.Give()
	g.wakereaders()
}

/// Closed reports whether the group fd was closed.
func (g *Group_t) Closed() bool {
	g.Lock()
	defer g.Unlock()
	return g.closed
}

/// Publish offers an event to every live entry in marks whose mark mask
/// intersects kind and whose ignore mask does not. Returns how many
/// queues took it.
func Publish(marks []*Entry_t, kind uint64, ev Event_t) int {
	took := 0
	for _, e := range marks {
		if e.Dead() {
			continue
		}
		e.Lock()
		hit := e.mark&kind != 0 && e.ignore&kind == 0
		if hit {
			ev.Mask = kind
			e.evq = append(e.evq, ev)
		}
		g := e.group
		e.Unlock()
		if hit {
			took++
			stats.Fanevents.Inc()
			g.wakereaders()
		}
	}
	return took
}

func (g *Group_t) wakereaders() {
	g.Lock()
	pollers := g.pollers
	g.pollers = nil
	g.Unlock()
	g.rdwake.Wake()
	for _, w := range pollers {
		w.Wake()
	}
}

/// Readevents drains queued events into dst, packing metadata records
/// back-to-back until the next record would not fit. Partial records
/// are never written. openfd, when non-nil, opens the event's object
/// in the consuming process and returns the descriptor stamped into
/// the record (-1 on failure, the FAN_NOFD convention). EAGAIN with an
/// empty queue; the caller handles blocking through Pollgroup.
func (g *Group_t) Readevents(dst fdops.Userio_i, openfd func(interface{}) int32) (int, defs.Err_t) {
	// drain under the locks first; opening event fds runs VFS code
	// that may publish right back into these queues
	room := dst.Totalsz() / metadatalen
	var taken []Event_t
	g.Lock()
	for _, e := range g.entries {
		e.Lock()
		for len(e.evq) > 0 && len(taken) < room {
			taken = append(taken, e.evq[0])
			e.evq = e.evq[1:]
		}
		e.Unlock()
		if len(taken) == room {
			break
		}
	}
	g.Unlock()
	if len(taken) == 0 {
		return 0, -defs.EAGAIN
	}
	var buf []uint8
	for i := range taken {
		ev := taken[i]
		if ev.Fd == -1 && ev.Obj != nil && openfd != nil {
			ev.Fd = openfd(ev.Obj)
		}
		buf = ev.Encode(buf)
	}
	return dst.Uiowrite(buf)
}

/// Pollgroup reports readiness of the group fd and registers pm's
/// waker otherwise.
func (g *Group_t) Pollgroup(pm fdops.Pollmsg_t) fdops.Ready_t {
	g.Lock()
	defer g.Unlock()
	var r fdops.Ready_t
	if g.closed {
		r |= fdops.R_HUP
	}
	for _, e := range g.entries {
		e.Lock()
		n := len(e.evq)
		e.Unlock()
		if n > 0 {
			r |= fdops.R_READ
			break
		}
	}
	r &= pm.Events | fdops.R_HUP
	if r == 0 && pm.Waker != nil {
		// edge-triggered: the next Publish wakes pm
		g.pollers = append(g.pollers, pm.Waker)
	}
	return r
}

/// Rdwaker returns the group's reader waker, for blocking reads.
func (g *Group_t) Rdwaker() *sched.Waker_t {
	g.Lock()
	defer g.Unlock()
	return g.rdwake
}
