package store

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/minagishl/nostro/internal/event"
	"github.com/minagishl/nostro/internal/nip05"
	"github.com/minagishl/nostro/internal/types"
)

// Profile returns the cached metadata for a pubkey.
func (s *Store) Profile(pubkey string) (types.ProfileMetadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[pubkey]
	return p, ok
}

// InvalidateProfile removes a cached profile so the next LoadProfile
// refetches it. Profile entries otherwise live for the whole session;
// kind 0 is latest-wins, so staleness is bounded by forced reloads.
func (s *Store) InvalidateProfile(pubkey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profiles := make(map[string]types.ProfileMetadata, len(s.profiles))
	for k, v := range s.profiles {
		if k != pubkey {
			profiles[k] = v
		}
	}
	s.profiles = profiles
}

// LoadProfile fetches and caches a pubkey's kind 0 metadata. It is a no-op
// when the profile is already cached. A claimed nip05 identifier is only
// kept after verification; unverified identifiers are cleared, never shown
// as trusted.
func (s *Store) LoadProfile(ctx context.Context, pubkey string) {
	s.mu.RLock()
	_, cached := s.profiles[pubkey]
	s.mu.RUnlock()
	if cached {
		return
	}

	events := s.source.QuerySync(ctx, s.cfg.Relays, types.Filter{
		Authors: []string{pubkey},
		Kinds:   []int{types.KindProfileMetadata},
		Limit:   1,
	})
	if len(events) == 0 {
		return
	}

	var metadata types.ProfileMetadata
	if err := json.Unmarshal([]byte(events[0].Content), &metadata); err != nil {
		slog.Warn("malformed profile metadata, skipping",
			"pubkey", event.ShortID(pubkey), "error", err)
		return
	}

	var verifiedIdentifier string
	if metadata.NIP05 != "" {
		if s.resolver != nil && s.resolver.Verify(ctx, metadata.NIP05, pubkey) {
			verifiedIdentifier = nip05.FormatIdentifier(metadata.NIP05)
			metadata.NIP05 = verifiedIdentifier
		} else {
			metadata.NIP05 = ""
		}
	}

	s.mu.Lock()
	profiles := make(map[string]types.ProfileMetadata, len(s.profiles)+1)
	for k, v := range s.profiles {
		profiles[k] = v
	}
	profiles[pubkey] = metadata
	s.profiles = profiles

	if verifiedIdentifier != "" {
		identifiers := make(map[string]string, len(s.nip05ToPubkey)+1)
		for k, v := range s.nip05ToPubkey {
			identifiers[k] = v
		}
		identifiers[verifiedIdentifier] = pubkey
		s.nip05ToPubkey = identifiers
	}
	s.mu.Unlock()
}

// LookupNIP05 resolves an identifier to a pubkey, consulting the session's
// verified-identifier map before the resolver.
func (s *Store) LookupNIP05(ctx context.Context, identifier string) (string, bool) {
	s.mu.RLock()
	pubkey, ok := s.nip05ToPubkey[identifier]
	s.mu.RUnlock()
	if ok {
		return pubkey, true
	}

	if s.resolver == nil {
		return "", false
	}
	return s.resolver.Lookup(ctx, identifier)
}
