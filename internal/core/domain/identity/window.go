package identity

import "time"

// WithinWindow reports whether a token sent at sentAt is still inside window at now.
// A nil sentAt or a non-positive window is never valid.
func WithinWindow(sentAt *time.Time, window time.Duration, now time.Time) bool {
	if sentAt == nil || window <= 0 {
		return false
	}
	return now.Sub(*sentAt) <= window
}
