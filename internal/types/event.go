// Package types provides shared type definitions used across internal packages.
package types

// Event kinds used by the client (NIP-01 and friends)
const (
	KindProfileMetadata = 0
	KindNote            = 1
	KindContactList     = 3
	KindRepost          = 6
	KindReaction        = 7
	KindHTTPAuth        = 27235 // NIP-98 upload authorization
	KindBookmarkList    = 30001
)

// Event represents a Nostr event (NIP-01)
type Event struct {
	ID         string     `json:"id"`
	PubKey     string     `json:"pubkey"`
	CreatedAt  int64      `json:"created_at"`
	Kind       int        `json:"kind"`
	Tags       [][]string `json:"tags"`
	Content    string     `json:"content"`
	Sig        string     `json:"sig"`
	RelaysSeen []string   `json:"-"`
}

// Filter represents a Nostr subscription filter (NIP-01)
type Filter struct {
	IDs     []string
	Authors []string
	Kinds   []int
	Limit   int
	Since   *int64
	Until   *int64
	PTags   []string // #p tag filter (mentions)
	ETags   []string // #e tag filter (reactions, reposts, replies)
	Search  string   // NIP-50 search query
}

// NostrMessage represents a raw Nostr protocol message
type NostrMessage []interface{}

// TagValue returns the first value for the given tag name, or "" if absent.
func TagValue(tags [][]string, name string) string {
	for _, tag := range tags {
		if len(tag) >= 2 && tag[0] == name {
			return tag[1]
		}
	}
	return ""
}

// TagValues returns every value for the given tag name, in order.
func TagValues(tags [][]string, name string) []string {
	var values []string
	for _, tag := range tags {
		if len(tag) >= 2 && tag[0] == name {
			values = append(values, tag[1])
		}
	}
	return values
}
