package search

import "sync/atomic"

// Sequencer issues monotonically increasing request numbers. Callers that
// fire overlapping predictive searches keep the number of each request and
// drop any response for which IsLatest reports false.
type Sequencer struct {
	last atomic.Uint64
}

// Next issues a new sequence number.
func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

// latest returns the most recently issued number, or 0 if none.
func (s *Sequencer) latest() uint64 {
	return s.last.Load()
}

// IsLatest reports whether seq is the most recently issued number.
func (s *Sequencer) IsLatest(seq uint64) bool {
	return seq != 0 && seq == s.latest()
}
