package clock

import "time"

// RealClock implements Clock against the actual wall clock.
type RealClock struct{}

// Now returns the current local time.
func (RealClock) Now() time.Time {
	return time.Now()
}
