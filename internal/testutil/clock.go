// Package testutil provides deterministic collaborators for storage tests.
package testutil

import (
	"fmt"
	"time"
)

// Clock provides deterministic, monotonically increasing timestamps.
// Each call to Now advances the clock by one step.
type Clock struct {
	current time.Time
	step    time.Duration
}

// NewClock returns a clock initialized to a fixed UTC start time.
func NewClock() *Clock {
	return &Clock{
		current: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		step:    time.Second,
	}
}

// NewClockAt returns a clock starting at the given time.
func NewClockAt(start time.Time) *Clock {
	return &Clock{current: start, step: time.Second}
}

// Now advances the clock one step and returns the new time.
func (c *Clock) Now() time.Time {
	c.current = c.current.Add(c.step)

	return c.current
}

// IDs generates deterministic, sequential UUID-shaped identifiers.
type IDs struct {
	n int
}

// NewIDs returns a fresh sequential id source.
func NewIDs() *IDs {
	return &IDs{}
}

// NewID returns the next id: a valid canonical lowercase UUID whose last
// group encodes the sequence number.
func (i *IDs) NewID() (string, error) {
	i.n++

	return fmt.Sprintf("00000000-0000-7000-8000-%012d", i.n), nil
}
