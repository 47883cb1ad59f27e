package util

import "sync/atomic"

// Sequence hands out strictly increasing version numbers. Safe for concurrent use.
type Sequence struct {
	value atomic.Uint64
}

// NewSequence creates a Sequence whose first Next() returns 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next advances the sequence and returns the new value.
func (s *Sequence) Next() uint64 {
	return s.value.Add(1)
}

// Value returns the most recently issued value, or 0 if none was issued.
func (s *Sequence) Value() uint64 {
	return s.value.Load()
}

// IsLatest reports whether v is the most recently issued value.
func (s *Sequence) IsLatest(v uint64) bool {
	return v != 0 && s.value.Load() == v
}

// SafeFlag is safe to use concurrently.
type SafeFlag struct {
	value atomic.Bool
}

// NewSafeBool creates a new SafeFlag.
func NewSafeBool() *SafeFlag {
	return &SafeFlag{}
}

// Set sets the value of the flag and returns the new value.
func (sb *SafeFlag) Set(newValue bool) bool {
	sb.value.Store(newValue)
	return newValue
}

// Value returns the current value of the flag.
func (sb *SafeFlag) Value() bool {
	return sb.value.Load()
}
