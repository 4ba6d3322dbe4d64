package timerq

import "time"

//go:generate go tool mockgen -source=clock.go -destination=internal/testutil/clockmock/clock.go -package=clockmock

// Tick is a monotonic millisecond counter value.
// All expiry calculations in the package use ticks as the time base.
type Tick int64

// Clock is a source of monotonic millisecond ticks.
// Implementations must be non-decreasing even under corrections
// to the system time-of-day.
type Clock interface {
	// Now returns the number of milliseconds elapsed since an
	// arbitrary fixed epoch.
	Now() Tick
}

// StdClock is a [Clock] over the Go runtime monotonic clock.
// The epoch is the moment the clock was created.
type StdClock struct {
	epoch time.Time
}

// NewStdClock creates a new [StdClock] with the epoch set to now.
func NewStdClock() *StdClock {
	return &StdClock{epoch: time.Now()}
}

func (c *StdClock) Now() Tick {
	// time.Since reads the monotonic clock, wall-clock adjustments
	// never move it backwards.
	return Tick(time.Since(c.epoch).Milliseconds())
}

var defClock = NewStdClock()

// DefaultClock returns the shared process-wide [StdClock].
func DefaultClock() *StdClock { return defClock }
