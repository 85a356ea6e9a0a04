package clock

import "time"

// Clock supplies the current time, services take one so tests can pin it
type Clock interface {
	Now() time.Time
}

type realClock struct{}

// New returns the wall clock in UTC at microsecond precision
func New() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
