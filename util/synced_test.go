package util

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequence(t *testing.T) {
	t.Run("Basic Operations", func(t *testing.T) {
		s := NewSequence()
		assert.Equal(t, uint64(0), s.Value())
		assert.False(t, s.IsLatest(0))

		assert.Equal(t, uint64(1), s.Next())
		assert.True(t, s.IsLatest(1))

		assert.Equal(t, uint64(2), s.Next())
		assert.False(t, s.IsLatest(1))
		assert.True(t, s.IsLatest(2))
	})

	t.Run("Concurrency", func(t *testing.T) {
		s := NewSequence()
		var wg sync.WaitGroup
		iterations := 1000
		seen := make(chan uint64, iterations)

		wg.Add(iterations)
		for i := 0; i < iterations; i++ {
			go func() {
				defer wg.Done()
				seen <- s.Next()
			}()
		}
		wg.Wait()
		close(seen)

		unique := make(map[uint64]bool)
		for v := range seen {
			unique[v] = true
		}
		assert.Len(t, unique, iterations)
		assert.Equal(t, uint64(iterations), s.Value())
	})
}

func TestSafeFlag(t *testing.T) {
	f := NewSafeBool()
	assert.False(t, f.Value())
	assert.True(t, f.Set(true))
	assert.True(t, f.Value())
	assert.False(t, f.Set(false))
	assert.False(t, f.Value())
}
