package store

// Config fixes the relay topology and feed sizing for a session.
type Config struct {
	// Relays is the ordered relay set. Targeted lookups (single profile,
	// single author's posts) query all of them.
	Relays []string

	// SearchRelay is the one relay known to support server-side text
	// search. This is a capability assumption about that specific relay,
	// not a protocol feature; arbitrary relays ignore search filters.
	SearchRelay string

	// FeedRelayCount bounds high-volume feed polling to a prefix of
	// Relays, trading completeness for latency.
	FeedRelayCount int

	// FeedLimit is the one-shot feed query size.
	FeedLimit int
}

// DefaultConfig returns the stock relay set.
func DefaultConfig() Config {
	return Config{
		Relays: []string{
			"wss://relay.damus.io",
			"wss://nostr.land",
			"wss://nostr.wine",
			"wss://nos.lol",
			"wss://relay-jp.nostr.wirednet.jp",
			"wss://yabu.me",
			"wss://r.kojira.io",
			"wss://relay.nostr.band",
			"wss://nrelay-jp.c-stellar.net",
		},
		SearchRelay:    "wss://relay.nostr.band",
		FeedRelayCount: 3,
		FeedLimit:      100,
	}
}

// feedRelays returns the polling prefix of the relay list.
func (c Config) feedRelays() []string {
	if c.FeedRelayCount <= 0 || c.FeedRelayCount >= len(c.Relays) {
		return c.Relays
	}
	return c.Relays[:c.FeedRelayCount]
}
