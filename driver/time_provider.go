package driver

import "time"

// TimeProvider abstracts the host clock so preview sessions can be driven
// deterministically in tests.
type TimeProvider interface {
	// Now returns the current time.
	Now() time.Time
	// NewTicker creates a ticker firing every d.
	NewTicker(d time.Duration) *time.Ticker
}

// DefaultTimeProvider implements TimeProvider using the system clock.
type DefaultTimeProvider struct{}

// Now returns the current system time.
func (DefaultTimeProvider) Now() time.Time {
	return time.Now()
}

// NewTicker creates a ticker using the standard library.
func (DefaultTimeProvider) NewTicker(d time.Duration) *time.Ticker {
	return time.NewTicker(d)
}

func getTimeProvider(tp TimeProvider) TimeProvider {
	if tp != nil {
		return tp
	}
	return DefaultTimeProvider{}
}
