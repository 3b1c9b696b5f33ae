package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicClock_Stamps(t *testing.T) {
	c := NewDeterministicClock()
	assert.Zero(t, c.Current())
	assert.Empty(t, c.Stamps())

	c.Next()
	c.Next()
	c.Next()
	assert.Equal(t, []int64{1, 2, 3}, c.Stamps())
	assert.Equal(t, int64(3), c.Current())
}

func TestDeterministicClock_ResumesAt(t *testing.T) {
	c := NewDeterministicClockAt(40)
	assert.Equal(t, int64(41), c.Next())
	assert.Equal(t, []int64{41}, c.Stamps())
}

func TestDeterministicClock_ResetReplays(t *testing.T) {
	c := NewDeterministicClock()
	c.Next()
	c.Next()
	first := c.Stamps()

	c.Reset()
	assert.Nil(t, c.Stamps())
	c.Next()
	c.Next()
	assert.Equal(t, first, c.Stamps())
}

func TestDeterministicClock_StampsIsACopy(t *testing.T) {
	c := NewDeterministicClock()
	c.Next()
	s := c.Stamps()
	s[0] = 99
	assert.Equal(t, []int64{1}, c.Stamps())
}

func TestDeterministicClock_ConcurrentNext(t *testing.T) {
	c := NewDeterministicClock()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.Next()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(400), c.Current())
	seen := map[int64]bool{}
	for _, s := range c.Stamps() {
		assert.False(t, seen[s], "duplicate stamp %d", s)
		seen[s] = true
	}
	assert.Len(t, seen, 400)
}
