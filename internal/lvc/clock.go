package lvc

import "time"

// Clock abstracts time retrieval so business logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time in UTC.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// IDGenerator produces candidate snapshot ids. attempt is zero for the first
// candidate and increases each time a candidate collides with an existing snapshot.
type IDGenerator interface {
	New(ts time.Time, message string, attempt int) string
}
