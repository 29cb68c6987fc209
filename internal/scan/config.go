// Package scan drives a runtime.Runtime at a fixed interval, implementing
// the deterministic scan-cycle engine of spec.md §4.3: system-variable
// publication, I/O latency queueing, fault injection, watchdog timing,
// integer overflow wrapping, outbound I/O queueing, and the physics
// post-pass.
package scan

import "time"

// Config holds the tunables of one scan-cycle engine instance. Defaults
// mirror spec.md §4.3 and pkg/config's environment-surface keys.
type Config struct {
	ScanTime        time.Duration
	WatchdogLimit   time.Duration
	IOLatencyBase   time.Duration
	IOLatencyJitter time.Duration

	// IntMin/IntMax bound the overflow-wrap check of step 5. Defaults are
	// the signed 16-bit INT range; DINT range is opt-in via WideOverflow.
	IntMin      int64
	IntMax      int64
	WideOverflow bool
	DIntMin     int64
	DIntMax     int64
}

// DefaultConfig returns the spec.md-documented defaults.
func DefaultConfig() Config {
	return Config{
		ScanTime:        10 * time.Millisecond,
		WatchdogLimit:   50 * time.Millisecond,
		IOLatencyBase:   2 * time.Millisecond,
		IOLatencyJitter: 500 * time.Microsecond,
		IntMin:          -32768,
		IntMax:          32767,
		DIntMin:         -2147483648,
		DIntMax:         2147483647,
	}
}

// LegacyScanTime is the alternate scan period named in spec.md §4.3.
const LegacyScanTime = 100 * time.Millisecond
