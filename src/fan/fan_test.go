package fan_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"defs"
	"fan"
	"vm"
)

func mkgroup(t *testing.T) *fan.Group_t {
	t.Helper()
	g, err := fan.Mkgroup(fan.FAN_CLASS_NOTIF, 0)
	require.Zero(t, err)
	return g
}

func TestInitFlagValidation(t *testing.T) {
	_, err := fan.Mkgroup(0xdead0000, 0)
	require.Equal(t, -defs.EINVAL, err)

	// REPORT_NAME requires REPORT_DIR_FID
	_, err = fan.Mkgroup(fan.FAN_REPORT_NAME, 0)
	require.Equal(t, -defs.EINVAL, err)

	// the content classes are recognized but unimplemented
	_, err = fan.Mkgroup(fan.FAN_CLASS_CONTENT, 0)
	require.Equal(t, -defs.ENOSYS, err)

	g := mkgroup(t)
	g.Close()
}

func TestMarkUnionAndRemove(t *testing.T) {
	g := mkgroup(t)
	defer g.Close()
	id := fan.Objid_t{Kind: fan.MARK_INODE, Id: 42}

	e, err := g.Addentry(id, fan.MARK_INODE, fan.FAN_MARK_ADD, fan.FAN_CREATE, 0)
	require.Zero(t, err)

	// a second ADD unions the masks
	require.Zero(t, e.Updatemark(fan.FAN_MARK_ADD, fan.FAN_MODIFY, 0, true))
	require.Equal(t, fan.FAN_CREATE|fan.FAN_MODIFY, e.Markmask())

	// REMOVE takes only the named bits away
	require.Zero(t, e.Updatemark(fan.FAN_MARK_REMOVE, fan.FAN_MODIFY, 0, false))
	require.Equal(t, fan.FAN_CREATE, e.Markmask())
}

func TestFlushVariants(t *testing.T) {
	g := mkgroup(t)
	defer g.Close()

	iid := fan.Objid_t{Kind: fan.MARK_INODE, Id: 1}
	mid := fan.Objid_t{Kind: fan.MARK_MOUNT, Id: 2}
	fid := fan.Objid_t{Kind: fan.MARK_FILESYSTEM, Id: 3}
	_, err := g.Addentry(iid, fan.MARK_INODE, fan.FAN_MARK_ADD, fan.FAN_OPEN, 0)
	require.Zero(t, err)
	_, err = g.Addentry(mid, fan.MARK_MOUNT, fan.FAN_MARK_ADD, fan.FAN_OPEN, 0)
	require.Zero(t, err)
	_, err = g.Addentry(fid, fan.MARK_FILESYSTEM, fan.FAN_MARK_ADD, fan.FAN_OPEN, 0)
	require.Zero(t, err)

	// FLUSH alone clears only normal entries
	g.Flushnormal()
	require.Nil(t, g.Getentry(iid))
	require.NotNil(t, g.Getentry(mid))
	require.NotNil(t, g.Getentry(fid))

	g.Flushmount()
	require.Nil(t, g.Getentry(mid))
	require.NotNil(t, g.Getentry(fid))

	g.Flushfilesystem()
	require.Nil(t, g.Getentry(fid))
}

func TestIgnoreConflicts(t *testing.T) {
	g := mkgroup(t)
	defer g.Close()
	id := fan.Objid_t{Kind: fan.MARK_INODE, Id: 9}
	e, err := g.Addentry(id, fan.MARK_INODE,
		fan.FAN_MARK_ADD|fan.FAN_MARK_IGNORE, 0, fan.FAN_MODIFY)
	require.Zero(t, err)

	// IGNORED_MASK on an entry holding IGNORE conflicts
	require.Equal(t, -defs.EEXIST,
		e.Updatemark(fan.FAN_MARK_ADD|fan.FAN_MARK_IGNORED_MASK, 0, fan.FAN_OPEN, true))
}

func TestPublishFiltering(t *testing.T) {
	g := mkgroup(t)
	defer g.Close()
	id := fan.Objid_t{Kind: fan.MARK_INODE, Id: 5}
	e, err := g.Addentry(id, fan.MARK_INODE, fan.FAN_MARK_ADD,
		fan.FAN_CREATE|fan.FAN_ONDIR, fan.FAN_MODIFY)
	require.Zero(t, err)

	marks := []*fan.Entry_t{e}
	// interesting event: queued
	n := fan.Publish(marks, fan.FAN_CREATE|fan.FAN_ONDIR, fan.Event_t{Fd: -1, Pid: 7})
	require.Equal(t, 1, n)
	// uninteresting kind: dropped
	n = fan.Publish(marks, fan.FAN_CLOSE_WRITE, fan.Event_t{Fd: -1})
	require.Zero(t, n)
	// ignored kind: dropped
	n = fan.Publish(marks, fan.FAN_MODIFY, fan.Event_t{Fd: -1})
	require.Zero(t, n)

	// dead entries never take events
	g.Flushnormal()
	n = fan.Publish(marks, fan.FAN_CREATE, fan.Event_t{Fd: -1})
	require.Zero(t, n)
}

func TestReadeventsPacking(t *testing.T) {
	g := mkgroup(t)
	defer g.Close()
	id := fan.Objid_t{Kind: fan.MARK_INODE, Id: 6}
	e, err := g.Addentry(id, fan.MARK_INODE, fan.FAN_MARK_ADD, fan.FAN_CREATE, 0)
	require.Zero(t, err)

	marks := []*fan.Entry_t{e}
	for i := 0; i < 3; i++ {
		fan.Publish(marks, fan.FAN_CREATE, fan.Event_t{Fd: -1, Pid: int32(100 + i)})
	}

	// a buffer with room for exactly two records: the third must wait,
	// and no partial record is ever written
	buf := make([]uint8, 48)
	dst := &vm.Fakeubuf_t{}
	dst.Fake_init(buf)
	did, rerr := g.Readevents(dst, nil)
	require.Zero(t, rerr)
	require.Equal(t, 48, did)

	ev1, n1, ok := fan.Decodeevent(buf)
	require.True(t, ok)
	require.Equal(t, fan.FAN_CREATE, ev1.Mask)
	require.Equal(t, 24, n1)
	ev2, _, ok := fan.Decodeevent(buf[n1:])
	require.True(t, ok)
	require.Equal(t, fan.FAN_CREATE, ev2.Mask)

	// the remaining event drains next
	buf2 := make([]uint8, 64)
	dst2 := &vm.Fakeubuf_t{}
	dst2.Fake_init(buf2)
	did, rerr = g.Readevents(dst2, nil)
	require.Zero(t, rerr)
	require.Equal(t, 24, did)

	// queue empty now
	dst3 := &vm.Fakeubuf_t{}
	dst3.Fake_init(make([]uint8, 64))
	_, rerr = g.Readevents(dst3, nil)
	require.Equal(t, -defs.EAGAIN, rerr)
}

func TestPermissionRoundtrip(t *testing.T) {
	g := mkgroup(t)
	defer g.Close()
	id := fan.Objid_t{Kind: fan.MARK_INODE, Id: 8}
	e, err := g.Addentry(id, fan.MARK_INODE, fan.FAN_MARK_ADD, fan.FAN_OPEN_PERM, 0)
	require.Zero(t, err)

	pe := fan.Mkpermevent(33, 44, fan.FAN_OPEN_PERM)
	e.Queuepermission(pe)

	done := make(chan bool)
	go func() {
		done <- pe.Await()
	}()

	// user space answers {fd, ALLOW}
	resp := []uint8{33, 0, 0, 0, 1, 0, 0, 0}
	require.Zero(t, g.Respond(resp))
	require.True(t, <-done)

	// bad responses are rejected
	require.Equal(t, -defs.EINVAL, g.Respond([]uint8{1, 2, 3}))
	require.Equal(t, -defs.EINVAL, g.Respond([]uint8{33, 0, 0, 0, 9, 0, 0, 0}))
	// no matching pending event
	require.Equal(t, -defs.ENOENT, g.Respond([]uint8{99, 0, 0, 0, 1, 0, 0, 0}))
}
