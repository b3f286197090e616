package testutil

import (
	"fmt"
	"sync"
)

// IDSequence hands out deterministic fixture ids of the form
// "<template>-0001", counting separately per template.
//
// It stands in for random ids wherever output is compared with golden files.
type IDSequence struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewIDSequence creates an empty sequence.
func NewIDSequence() *IDSequence {
	return &IDSequence{counts: make(map[string]int)}
}

// Next returns the next id for template.
func (s *IDSequence) Next(template string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[template]++
	return fmt.Sprintf("%s-%04d", template, s.counts[template])
}
