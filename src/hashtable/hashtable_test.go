package hashtable

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func mkint() *Hashtable_t[int, string] {
	return MkHash[int, string](func(k int) uint32 { return uint32(k) * 2654435761 })
}

func TestSetGetDel(t *testing.T) {
	ht := mkint()
	_, ok := ht.Get(1)
	require.False(t, ok)

	ht.Set(1, "one")
	ht.Set(2, "two")
	v, ok := ht.Get(1)
	require.True(t, ok)
	require.Equal(t, "one", v)

	ht.Set(1, "uno")
	v, _ = ht.Get(1)
	require.Equal(t, "uno", v)

	ht.Del(1)
	_, ok = ht.Get(1)
	require.False(t, ok)
	_, ok = ht.Get(2)
	require.True(t, ok)
}

func TestIter(t *testing.T) {
	ht := mkint()
	for i := 0; i < 100; i++ {
		ht.Set(i, "x")
	}
	seen := 0
	ht.Iter(func(k int, v string) bool {
		seen++
		return true
	})
	require.Equal(t, 100, seen)

	// early stop
	seen = 0
	ht.Iter(func(k int, v string) bool {
		seen++
		return seen < 10
	})
	require.Equal(t, 10, seen)
}

func TestConcurrent(t *testing.T) {
	ht := mkint()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				ht.Set(base*1000+i, "v")
				ht.Get(base*1000 + i)
			}
		}(g)
	}
	wg.Wait()
	n := 0
	ht.Iter(func(int, string) bool { n++; return true })
	require.Equal(t, 8000, n)
}
