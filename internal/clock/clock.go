// Package clock abstracts time for services that reason about deadlines
// and retention windows.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
