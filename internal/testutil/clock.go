package testutil

import "sync"

// DeterministicClock is a resettable batch sequencer for tests. It satisfies
// replica.Sequencer and remembers every stamp it handed out, so a test can
// assert the exact sequence a replica consumed.
type DeterministicClock struct {
	mu     sync.Mutex
	seq    int64
	stamps []int64
}

// NewDeterministicClock returns a clock whose first Next is 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// NewDeterministicClockAt returns a clock resuming after start.
func NewDeterministicClockAt(start int64) *DeterministicClock {
	return &DeterministicClock{seq: start}
}

func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.stamps = append(c.stamps, c.seq)
	return c.seq
}

func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Stamps returns a copy of every value Next has returned since the last
// Reset, in call order.
func (c *DeterministicClock) Stamps() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.stamps...)
}

// Reset rewinds to zero and forgets the stamp history, so one scenario can
// be replayed with identical sequence numbers.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
	c.stamps = nil
}
