// Package clock abstracts time retrieval so schedule math and retention
// cutoffs stay deterministic under test.
package clock

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FixedClock reports the same instant on every call.
type FixedClock struct{ t time.Time }

// NewFixed pins a clock to the given instant.
func NewFixed(t time.Time) FixedClock { return FixedClock{t: t} }

func (f FixedClock) Now() time.Time { return f.t }

// At returns a copy pinned to a different instant. Tests use it to step a
// fixture clock through a schedule.
func (f FixedClock) At(t time.Time) FixedClock { return FixedClock{t: t} }
