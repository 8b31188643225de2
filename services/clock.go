package services

import "time"

// Clock returns the current time. Tests swap it for a fixed one.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}
