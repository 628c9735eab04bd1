package poller

import "time"

// Clock schedules the next poll.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock uses the wall clock.
var RealClock Clock = realClock{}
