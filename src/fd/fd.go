package fd

import (
	"sync"

	"defs"
	"fdops"
	"ustr"
)

/// File descriptor permission bits.
const (
	FD_READ    = 0x1
	FD_WRITE   = 0x2
	FD_CLOEXEC = 0x4
)

/// Fd_t represents an open file descriptor.
type Fd_t struct {
	// fops is an interface implemented via a "pointer receiver", thus
	// fops is a reference, not a value
	Fops  fdops.Fdops_i
	Perms int
}

/// Copyfd duplicates an open file descriptor by reopening it.
func Copyfd(f *Fd_t) (*Fd_t, defs.Err_t) {
	nfd := &Fd_t{}
	*nfd = *f
	if err := nfd.Fops.Reopen(); err != 0 {
		return nil, err
	}
	return nfd, 0
}

/// Close_panic closes the descriptor and panics on failure.
func Close_panic(f *Fd_t) {
	if f.Fops.Close() != 0 {
		panic("must succeed")
	}
}

/// Cwd_t tracks the current working directory for a process.
type Cwd_t struct {
	sync.Mutex // to serialize chdirs
	Fd   *Fd_t
	Path ustr.Ustr
}

/// Fullpath joins cwd with p if p is not already absolute.
func (cwd *Cwd_t) Fullpath(p ustr.Ustr) ustr.Ustr {
	if p.IsAbsolute() {
		return p
	}
	full := append(append(ustr.Ustr{}, cwd.Path...), '/')
	return append(full, p...)
}

/// Canonicalpath resolves path components relative to cwd.
func (cwd *Cwd_t) Canonicalpath(p ustr.Ustr) ustr.Ustr {
	return ustr.Canonicalize(cwd.Fullpath(p))
}

/// MkRootCwd constructs a Cwd_t rooted at "/".
func MkRootCwd(f *Fd_t) *Cwd_t {
	return &Cwd_t{Fd: f, Path: ustr.MkUstrRoot()}
}

const nfdsmax = 1024

/// Fdtable_t is a process's descriptor table. Threads created with
/// CLONE_FILES share one table; the reference count tracks the sharers.
type Fdtable_t struct {
	sync.Mutex
	fds  []*Fd_t
	refs int
}

/// Mkfdtable returns a table with room for the standard descriptors.
func Mkfdtable() *Fdtable_t {
	return &Fdtable_t{fds: make([]*Fd_t, 8), refs: 1}
}

/// Ref takes a CLONE_FILES share of the table.
func (ft *Fdtable_t) Ref() *Fdtable_t {
	ft.Lock()
	ft.refs++
	ft.Unlock()
	return ft
}

/// Unref drops one share; the last share closes every descriptor.
func (ft *Fdtable_t) Unref() {
	ft.Lock()
	ft.refs--
	last := ft.refs == 0
	ft.Unlock()
	if last {
		ft.Closeall()
	}
}

/// Insert places f at the lowest free slot at or above minfd, growing
/// the table as needed.
func (ft *Fdtable_t) Insert(f *Fd_t, minfd int) (int, defs.Err_t) {
	if minfd < 0 || minfd >= nfdsmax {
		return 0, -defs.EINVAL
	}
	ft.Lock()
	defer ft.Unlock()
	for {
		for i := minfd; i < len(ft.fds); i++ {
			if ft.fds[i] == nil {
				ft.fds[i] = f
				return i, 0
			}
		}
		if len(ft.fds) >= nfdsmax {
			return 0, -defs.EMFILE
		}
		n := len(ft.fds) * 2
		if n > nfdsmax {
			n = nfdsmax
		}
		nfds := make([]*Fd_t, n)
		copy(nfds, ft.fds)
		ft.fds = nfds
	}
}

/// Setfd installs f at an exact slot (dup3), closing any occupant.
func (ft *Fdtable_t) Setfd(fdn int, f *Fd_t) defs.Err_t {
	if fdn < 0 || fdn >= nfdsmax {
		return -defs.EBADF
	}
	ft.Lock()
	for fdn >= len(ft.fds) {
		nfds := make([]*Fd_t, len(ft.fds)*2)
		copy(nfds, ft.fds)
		ft.fds = nfds
	}
	old := ft.fds[fdn]
	ft.fds[fdn] = f
	ft.Unlock()
	if old != nil {
		old.Fops.Close()
	}
	return 0
}

/// Get returns the descriptor for fdn, or EBADF.
func (ft *Fdtable_t) Get(fdn int) (*Fd_t, defs.Err_t) {
	ft.Lock()
	defer ft.Unlock()
	if fdn < 0 || fdn >= len(ft.fds) || ft.fds[fdn] == nil {
		return nil, -defs.EBADF
	}
	return ft.fds[fdn], 0
}

/// Remove takes the descriptor out of the table without closing it.
func (ft *Fdtable_t) Remove(fdn int) (*Fd_t, defs.Err_t) {
	ft.Lock()
	defer ft.Unlock()
	if fdn < 0 || fdn >= len(ft.fds) || ft.fds[fdn] == nil {
		return nil, -defs.EBADF
	}
	f := ft.fds[fdn]
	ft.fds[fdn] = nil
	return f, 0
}

/// Copy duplicates the table for fork without CLONE_FILES: each open
/// descriptor is reopened.
func (ft *Fdtable_t) Copy() (*Fdtable_t, defs.Err_t) {
	ft.Lock()
	defer ft.Unlock()
	nt := &Fdtable_t{fds: make([]*Fd_t, len(ft.fds)), refs: 1}
	for i, f := range ft.fds {
		if f == nil {
			continue
		}
		nf, err := Copyfd(f)
		if err != 0 {
			for _, g := range nt.fds {
				if g != nil {
					g.Fops.Close()
				}
			}
			return nil, err
		}
		nt.fds[i] = nf
	}
	return nt, 0
}

/// Closeall closes every descriptor, for exit.
func (ft *Fdtable_t) Closeall() {
	ft.Lock()
	fds := ft.fds
	ft.fds = make([]*Fd_t, 8)
	ft.Unlock()
	for _, f := range fds {
		if f != nil {
			f.Fops.Close()
		}
	}
}

/// Closeexec closes descriptors marked close-on-exec.
func (ft *Fdtable_t) Closeexec() {
	ft.Lock()
	var victims []*Fd_t
	for i, f := range ft.fds {
		if f != nil && f.Perms&FD_CLOEXEC != 0 {
			victims = append(victims, f)
			ft.fds[i] = nil
		}
	}
	ft.Unlock()
	for _, f := range victims {
		f.Fops.Close()
	}
}
