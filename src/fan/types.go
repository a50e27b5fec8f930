package fan

import "util"

// event mask bits, Linux ABI values
const (
	FAN_ACCESS         uint64 = 0x00000001
	FAN_MODIFY         uint64 = 0x00000002
	FAN_ATTRIB         uint64 = 0x00000004
	FAN_CLOSE_WRITE    uint64 = 0x00000008
	FAN_CLOSE_NOWRITE  uint64 = 0x00000010
	FAN_OPEN           uint64 = 0x00000020
	FAN_MOVED_FROM     uint64 = 0x00000040
	FAN_MOVED_TO       uint64 = 0x00000080
	FAN_CREATE         uint64 = 0x00000100
	FAN_DELETE         uint64 = 0x00000200
	FAN_DELETE_SELF    uint64 = 0x00000400
	FAN_MOVE_SELF      uint64 = 0x00000800
	FAN_OPEN_EXEC      uint64 = 0x00001000
	FAN_Q_OVERFLOW     uint64 = 0x00004000
	FAN_FS_ERROR       uint64 = 0x00008000
	FAN_OPEN_PERM      uint64 = 0x00010000
	FAN_ACCESS_PERM    uint64 = 0x00020000
	FAN_OPEN_EXEC_PERM uint64 = 0x00040000
	FAN_EVENT_ON_CHILD uint64 = 0x08000000
	FAN_RENAME         uint64 = 0x10000000
	FAN_ONDIR          uint64 = 0x40000000

	FAN_CLOSE = FAN_CLOSE_WRITE | FAN_CLOSE_NOWRITE
	FAN_MOVE  = FAN_MOVED_FROM | FAN_MOVED_TO

	// events tied to an inode identity, invalid with mount marks
	fan_inode_events = FAN_ATTRIB | FAN_CREATE | FAN_DELETE | FAN_DELETE_SELF |
		FAN_FS_ERROR | FAN_MOVED_FROM | FAN_MOVED_TO | FAN_RENAME | FAN_MOVE_SELF

	fan_perm_events = FAN_OPEN_PERM | FAN_ACCESS_PERM | FAN_OPEN_EXEC_PERM

	fan_all_events = FAN_ACCESS | FAN_MODIFY | FAN_ATTRIB | FAN_CLOSE |
		FAN_OPEN | FAN_MOVE | FAN_CREATE | FAN_DELETE | FAN_DELETE_SELF |
		FAN_MOVE_SELF | FAN_OPEN_EXEC | FAN_Q_OVERFLOW | FAN_FS_ERROR |
		fan_perm_events | FAN_EVENT_ON_CHILD | FAN_RENAME | FAN_ONDIR
)

// fanotify_init flags
const (
	FAN_CLOEXEC           uint32 = 0x001
	FAN_NONBLOCK          uint32 = 0x002
	FAN_CLASS_NOTIF       uint32 = 0x000
	FAN_CLASS_CONTENT     uint32 = 0x004
	FAN_CLASS_PRE_CONTENT uint32 = 0x008
	FAN_UNLIMITED_QUEUE   uint32 = 0x010
	FAN_UNLIMITED_MARKS   uint32 = 0x020
	FAN_ENABLE_AUDIT      uint32 = 0x040
	FAN_REPORT_PIDFD      uint32 = 0x080
	FAN_REPORT_TID        uint32 = 0x100
	FAN_REPORT_FID        uint32 = 0x200
	FAN_REPORT_DIR_FID    uint32 = 0x400
	FAN_REPORT_NAME       uint32 = 0x800
	FAN_REPORT_TARGET_FID uint32 = 0x1000

	fan_init_all = FAN_CLOEXEC | FAN_NONBLOCK | FAN_CLASS_CONTENT |
		FAN_CLASS_PRE_CONTENT | FAN_UNLIMITED_QUEUE | FAN_UNLIMITED_MARKS |
		FAN_ENABLE_AUDIT | FAN_REPORT_PIDFD | FAN_REPORT_TID | FAN_REPORT_FID |
		FAN_REPORT_DIR_FID | FAN_REPORT_NAME | FAN_REPORT_TARGET_FID
)

// fanotify_mark flags
const (
	FAN_MARK_ADD                 uint32 = 0x001
	FAN_MARK_REMOVE              uint32 = 0x002
	FAN_MARK_DONT_FOLLOW         uint32 = 0x004
	FAN_MARK_ONLYDIR             uint32 = 0x008
	FAN_MARK_MOUNT               uint32 = 0x010
	FAN_MARK_IGNORED_MASK        uint32 = 0x020
	FAN_MARK_IGNORED_SURV_MODIFY uint32 = 0x040
	FAN_MARK_FLUSH               uint32 = 0x080
	FAN_MARK_FILESYSTEM          uint32 = 0x100
	FAN_MARK_EVICTABLE           uint32 = 0x200
	FAN_MARK_IGNORE              uint32 = 0x400

	fan_mark_all = FAN_MARK_ADD | FAN_MARK_REMOVE | FAN_MARK_DONT_FOLLOW |
		FAN_MARK_ONLYDIR | FAN_MARK_MOUNT | FAN_MARK_IGNORED_MASK |
		FAN_MARK_IGNORED_SURV_MODIFY | FAN_MARK_FLUSH | FAN_MARK_FILESYSTEM |
		FAN_MARK_EVICTABLE | FAN_MARK_IGNORE
)

// reader-visible metadata record
const (
	METADATA_VERSION uint8 = 3
	metadatalen      int   = 24
)

// permission responses
const (
	FAN_ALLOW uint32 = 1
	FAN_DENY  uint32 = 2
)

/// Event_t is one queued notification. Encode renders the frozen
/// fanotify_event_metadata byte layout. Obj names the filesystem
/// object the event is about; the reader opens it into the consuming
/// process and stamps the resulting descriptor into Fd (or -1).
type Event_t struct {
	Mask uint64
	Fd   int32
	Pid  int32
	Obj  interface{}
}

/// Encode appends the metadata record for ev to dst and returns the
/// result.
func (ev *Event_t) Encode(dst []uint8) []uint8 {
	rec := make([]uint8, metadatalen)
	util.Writen(rec, 4, 0, metadatalen)
	rec[4] = METADATA_VERSION
	rec[5] = 0
	util.Writen(rec, 2, 6, metadatalen)
	util.Writen(rec, 8, 8, int(ev.Mask))
	util.Writen(rec, 4, 16, int(ev.Fd))
	util.Writen(rec, 4, 20, int(ev.Pid))
	return append(dst, rec...)
}

/// Decodeevent parses one metadata record; tests and the reader's
/// record-fitting logic use it.
func Decodeevent(b []uint8) (Event_t, int, bool) {
	if len(b) < metadatalen {
		return Event_t{}, 0, false
	}
	elen := util.Readn(b, 4, 0)
	if elen < metadatalen || elen > len(b) {
		return Event_t{}, 0, false
	}
	ev := Event_t{
		Mask: uint64(util.Readn(b, 8, 8)),
		Fd:   int32(util.Readn(b, 4, 16)),
		Pid:  int32(util.Readn(b, 4, 20)),
	}
	return ev, elen, true
}
