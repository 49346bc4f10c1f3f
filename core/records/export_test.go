package records

import "time"

// SetClock replaces the id generator and clock for the duration of a test.
func SetClock(newID func() string, now func() time.Time) (restore func()) {
	prevID, prevNow := newIDFunc, nowFunc
	newIDFunc, nowFunc = newID, now
	return func() { newIDFunc, nowFunc = prevID, prevNow }
}
