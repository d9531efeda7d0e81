package types

// ProfileMetadata contains user profile fields parsed from a kind 0 event.
// NIP05 is speculative until the store has verified it against the
// identifier's well-known document; verification failure clears it.
type ProfileMetadata struct {
	Name    string `json:"name,omitempty"`
	About   string `json:"about,omitempty"`
	Picture string `json:"picture,omitempty"`
	NIP05   string `json:"nip05,omitempty"`
}
