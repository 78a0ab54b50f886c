package limiter

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateMap_WithStateInitializesOnFirstAccess(t *testing.T) {
	m := newStateMap[int]()
	var seen int
	m.withState("client-a", func(s *int) {
		seen = *s
		*s = 42
	})
	assert.Equal(t, 0, seen)

	m.withState("client-a", func(s *int) {
		seen = *s
	})
	assert.Equal(t, 42, seen)
}

func TestStateMap_ResetClearsEntry(t *testing.T) {
	m := newStateMap[int]()
	m.withState("client-a", func(s *int) { *s = 7 })
	m.reset("client-a")

	var seen int
	m.withState("client-a", func(s *int) { seen = *s })
	assert.Equal(t, 0, seen)
}

func TestStateMap_ConcurrentAccessSameClient(t *testing.T) {
	m := newStateMap[int]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := "client"
			m.withState(id, func(s *int) { *s++ })
		}(i)
	}
	wg.Wait()

	var total int
	m.withState("client", func(s *int) { total = *s })
	assert.Equal(t, 50, total)
}
