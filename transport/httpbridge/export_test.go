package httpbridge

import "time"

// WithClock replaces the session clock.
func WithClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) { m.now = now }
}
