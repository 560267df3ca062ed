// Package ban holds the strike-accumulation and ban-window policy. The policy
// is pure logic: it owns no clock and no storage, so the directory can apply
// it under its own lock and tests can drive it with explicit times.
package ban

import "time"

// Policy defines when strikes turn into a temporary ban.
type Policy struct {
	Limit  int           // ban triggers when the strike count exceeds this
	Window time.Duration // how long a ban lasts from its start time
}

// Strike applies one strike to the current count. When the incremented count
// exceeds the limit the count resets to zero and banned is true; the caller
// records the ban start time.
func (p Policy) Strike(count int) (newCount int, banned bool) {
	count++
	if count > p.Limit {
		return 0, true
	}
	return count, false
}

// Expired reports whether a ban that started at start has run out by now.
func (p Policy) Expired(start, now time.Time) bool {
	return now.Sub(start) >= p.Window
}
