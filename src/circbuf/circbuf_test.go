package circbuf

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mem"
	"vm"
)

func fakebuf(b []uint8) *vm.Fakeubuf_t {
	fb := &vm.Fakeubuf_t{}
	fb.Fake_init(b)
	return fb
}

func TestFillDrain(t *testing.T) {
	*mem.Physmem = mem.Physmem_t{}
	mem.Phys_init(16)

	var cb Circbuf_t
	require.Zero(t, cb.Cb_init(64))
	require.True(t, cb.Empty())
	require.False(t, cb.Full())

	src := make([]uint8, 100)
	for i := range src {
		src[i] = uint8(i)
	}
	did, err := cb.Copyin(fakebuf(src))
	require.Zero(t, err)
	require.Equal(t, 64, did)
	require.True(t, cb.Full())

	dst := make([]uint8, 100)
	did, err = cb.Copyout(fakebuf(dst))
	require.Zero(t, err)
	require.Equal(t, 64, did)
	require.Equal(t, src[:64], dst[:64])
	require.True(t, cb.Empty())

	cb.Cb_release()
}

func TestWrapAround(t *testing.T) {
	*mem.Physmem = mem.Physmem_t{}
	mem.Phys_init(16)

	var cb Circbuf_t
	require.Zero(t, cb.Cb_init(8))

	// partially fill, drain some, then fill across the wrap point
	cb.Copyin(fakebuf([]uint8{1, 2, 3, 4, 5, 6}))
	out := make([]uint8, 4)
	did, err := cb.Copyout(fakebuf(out))
	require.Zero(t, err)
	require.Equal(t, 4, did)
	require.Equal(t, []uint8{1, 2, 3, 4}, out)

	in := []uint8{7, 8, 9, 10, 11}
	did, err = cb.Copyin(fakebuf(in))
	require.Zero(t, err)
	require.Equal(t, 5, did)
	require.Equal(t, 7, cb.Used())

	out2 := make([]uint8, 7)
	did, err = cb.Copyout(fakebuf(out2))
	require.Zero(t, err)
	require.Equal(t, 7, did)
	require.Equal(t, []uint8{5, 6, 7, 8, 9, 10, 11}, out2)
	cb.Cb_release()
}
