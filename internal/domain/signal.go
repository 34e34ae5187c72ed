package domain

import "sync/atomic"

// StopSignal is a shared cancellation flag with a single clear-to-set
// transition. One writer (the caller requesting cancellation) and any number
// of concurrent readers; readers never block. The signal is owned by the
// caller and may be shared across invocations that should abort together.
//
// Cancellation is cooperative: the stream loop polls the signal once per
// received chunk, so a set signal is observed within one chunk's processing
// time, not within a fixed wall-clock bound.
type StopSignal struct {
	set atomic.Bool
}

// NewStopSignal returns a cleared signal.
func NewStopSignal() *StopSignal {
	return &StopSignal{}
}

// Set transitions the signal to set. Reports false if it was already set.
func (s *StopSignal) Set() bool {
	return s.set.CompareAndSwap(false, true)
}

// IsSet reports whether the signal has been set.
func (s *StopSignal) IsSet() bool {
	return s.set.Load()
}
