package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_AddGetRemove(t *testing.T) {
	r := NewRegistry()
	s := New("abc", nil, nil, nil, nil, nil)

	r.Add(s)
	require.Same(t, s, r.Get("abc"))
	require.Equal(t, 1, r.Len())

	r.Remove("abc")
	require.Nil(t, r.Get("abc"))
	require.Zero(t, r.Len())

	// Removing twice is harmless.
	r.Remove("abc")
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s-%d", i)
			r.Add(New(id, nil, nil, nil, nil, nil))
			_ = r.Get(id)
			_ = r.Len()
			r.Remove(id)
		}(i)
	}
	wg.Wait()
	require.Zero(t, r.Len())
}
