package testutil

import "sync"

// SequenceClock is a logical clock for trace events. Runs that do the same
// work see the same sequence numbers, which keeps golden traces stable.
//
// Thread-safety: all methods are safe for concurrent use.
type SequenceClock struct {
	mu  sync.Mutex
	seq int64
}

// NewSequenceClock creates a clock whose first Next returns 1.
func NewSequenceClock() *SequenceClock {
	return &SequenceClock{}
}

// Next advances the clock and returns the new value.
func (c *SequenceClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the last value handed out, or 0.
func (c *SequenceClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds the clock so the next Next returns 1.
func (c *SequenceClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
