package bytecode

import "time"

// Clock supplies the build timestamp written into the container header.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant. Use it for reproducible
// builds and in tests.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// FixedUnix returns a FixedClock at the given Unix second.
func FixedUnix(sec int64) FixedClock {
	return FixedClock(time.Unix(sec, 0))
}
