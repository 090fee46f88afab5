package command

import "time"

// Clock abstracts time for handlers so tests can pin the current moment.
type Clock func() time.Time

func defaultClock(c Clock) Clock {
	if c != nil {
		return c
	}
	return func() time.Time { return time.Now().UTC() }
}
