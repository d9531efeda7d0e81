package cache

import "time"

// Config holds cache TTL configuration. A zero TTL means the entry never
// expires (within the backend's max-size budget).
type Config struct {
	ProfileTTL time.Duration
	NIP05TTL   time.Duration
	ContactTTL time.Duration
}

// DefaultConfig returns the client's cache policy: profile metadata and
// verified identifiers are cached for the life of the session ("latest
// wins" events bound staleness), contact lists refresh periodically.
func DefaultConfig() Config {
	return Config{
		ProfileTTL: 0,
		NIP05TTL:   0,
		ContactTTL: 10 * time.Minute,
	}
}
