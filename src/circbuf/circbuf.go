package circbuf

import (
	"defs"
	"fdops"
	"mem"
)

/// Circbuf_t is a ring buffer over one physical page. Pipes are built
/// on it. It is not safe for concurrent use; the pipe holds the lock.
type Circbuf_t struct {
	pg    *mem.Page_t
	bufsz int
	head  int
	tail  int
}

/// Cb_init lazily allocates the backing page on first use.
func (cb *Circbuf_t) Cb_init(sz int) defs.Err_t {
	if sz <= 0 || sz > mem.PGSIZE {
		panic("bad circbuf size")
	}
	cb.bufsz = sz
	cb.head, cb.tail = 0, 0
	return 0
}

func (cb *Circbuf_t) ensure() defs.Err_t {
	if cb.pg != nil {
		return 0
	}
	pg, err := mem.Physmem.Newpage_zero()
	if err != 0 {
		return err
	}
	cb.pg = pg
	return 0
}

/// Cb_release frees the backing page once the buffer drains.
func (cb *Circbuf_t) Cb_release() {
	if cb.pg != nil {
		cb.pg.Drop()
		cb.pg = nil
	}
	cb.head, cb.tail = 0, 0
}

/// Used returns the number of buffered bytes.
func (cb *Circbuf_t) Used() int {
	return cb.head - cb.tail
}

/// Left returns the free space.
func (cb *Circbuf_t) Left() int {
	return cb.bufsz - cb.Used()
}

/// Full reports whether a write would block.
func (cb *Circbuf_t) Full() bool {
	return cb.Left() == 0
}

/// Empty reports whether a read would block.
func (cb *Circbuf_t) Empty() bool {
	return cb.Used() == 0
}

/// Copyin moves bytes from src into the ring, up to the free space.
func (cb *Circbuf_t) Copyin(src fdops.Userio_i) (int, defs.Err_t) {
	if err := cb.ensure(); err != 0 {
		return 0, err
	}
	buf := cb.pg.Bytes()
	did := 0
	for cb.Left() > 0 && src.Remain() > 0 {
		hi := cb.head % cb.bufsz
		n := cb.bufsz - hi
		if n > cb.Left() {
			n = cb.Left()
		}
		c, err := src.Uioread(buf[hi : hi+n])
		did += c
		cb.head += c
		if err != 0 {
			return did, err
		}
		if c == 0 {
			break
		}
	}
	return did, 0
}

/// Copyout moves bytes from the ring into dst, up to the used space.
func (cb *Circbuf_t) Copyout(dst fdops.Userio_i) (int, defs.Err_t) {
	if cb.pg == nil {
		return 0, 0
	}
	buf := cb.pg.Bytes()
	did := 0
	for cb.Used() > 0 && dst.Remain() > 0 {
		ti := cb.tail % cb.bufsz
		n := cb.bufsz - ti
		if n > cb.Used() {
			n = cb.Used()
		}
		c, err := dst.Uiowrite(buf[ti : ti+n])
		did += c
		cb.tail += c
		if err != 0 {
			return did, err
		}
		if c == 0 {
			break
		}
	}
	if cb.Empty() {
		// normalize so the counters never wrap
		cb.head, cb.tail = 0, 0
	}
	return did, 0
}
