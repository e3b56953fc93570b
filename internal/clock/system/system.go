// Package system provides clocks for stamping runs and markers.
package system

import "time"

// Clock reads the wall clock in UTC.
type Clock struct{}

// New creates a Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time truncated to the second, the precision
// used by manual-check markers.
func (Clock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// Fixed always returns the same instant.
type Fixed struct {
	At time.Time
}

// Now returns f.At in UTC.
func (f Fixed) Now() time.Time {
	return f.At.UTC()
}
