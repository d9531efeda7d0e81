// Package store holds the session's authoritative client state and
// orchestrates keys, signing, relay aggregation and identity resolution in
// response to user actions.
package store

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/minagishl/nostro/internal/event"
	"github.com/minagishl/nostro/internal/keys"
	"github.com/minagishl/nostro/internal/nip05"
	"github.com/minagishl/nostro/internal/relay"
	"github.com/minagishl/nostro/internal/types"
)

// SignerMode identifies which signer variant holds the session's key.
type SignerMode string

const (
	SignerNone      SignerMode = ""
	SignerLocal     SignerMode = "local"
	SignerExtension SignerMode = "extension"
)

// EventSource is the relay pool surface the store depends on.
type EventSource interface {
	QuerySync(ctx context.Context, relays []string, filter types.Filter) []types.Event
	Subscribe(ctx context.Context, relays []string, filter types.Filter) *relay.Handle
	Publish(ctx context.Context, relays []string, evt types.Event)
}

// Store is the single per-session state container. All mutations replace
// whole fields under the mutex so readers never observe partially updated
// composite state.
type Store struct {
	cfg       Config
	source    EventSource
	publisher *event.Publisher
	resolver  *nip05.Resolver
	persist   Persistence
	extension event.Extension

	mu            sync.RWMutex
	signer        event.Signer
	signerMode    SignerMode
	publicKey     string
	privateKey    string
	events        []types.Event
	eventIDs      map[string]bool
	searchResults []types.Event
	repostTargets map[string]types.Event
	profiles      map[string]types.ProfileMetadata
	nip05ToPubkey map[string]string
	followList    []string
	followKnown   bool
	bookmarkList  []string
	bookmarkKnown bool
	activeSub     *relay.Handle
	subDone       chan struct{}
}

// New constructs a store. extension may be nil when no external signer
// capability is present.
func New(cfg Config, source EventSource, resolver *nip05.Resolver, persist Persistence, extension event.Extension) *Store {
	s := &Store{
		cfg:       cfg,
		source:    source,
		publisher: event.NewPublisher(source, cfg.Relays),
		resolver:  resolver,
		persist:   persist,
		extension: extension,
	}
	s.resetLocked()
	return s
}

// resetLocked restores every session and cache field to its fresh,
// never-authenticated value. Callers hold s.mu or have exclusive access.
func (s *Store) resetLocked() {
	s.signer = nil
	s.signerMode = SignerNone
	s.publicKey = ""
	s.privateKey = ""
	s.events = []types.Event{}
	s.eventIDs = make(map[string]bool)
	s.searchResults = []types.Event{}
	s.repostTargets = make(map[string]types.Event)
	s.profiles = make(map[string]types.ProfileMetadata)
	s.nip05ToPubkey = make(map[string]string)
	s.followList = []string{}
	s.followKnown = false
	s.bookmarkList = []string{}
	s.bookmarkKnown = false
	s.activeSub = nil
	s.subDone = nil
}

// PublicKey returns the session pubkey, empty when logged out.
func (s *Store) PublicKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.publicKey
}

// Mode returns the active signer mode.
func (s *Store) Mode() SignerMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.signerMode
}

// Relays returns the configured relay set.
func (s *Store) Relays() []string {
	return s.cfg.Relays
}

func (s *Store) currentSigner() event.Signer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.signer
}

// Signer exposes the active signer, nil when logged out. Callers use it for
// signing outside the store's own publish paths, such as upload auth.
func (s *Store) Signer() event.Signer {
	return s.currentSigner()
}

// GenerateKeys creates a fresh local keypair and logs the session in with
// it. Any previous session is replaced.
func (s *Store) GenerateKeys() error {
	privKey, err := keys.GeneratePrivateKey()
	if err != nil {
		return err
	}
	return s.LoginWithKey(keys.BytesToHex(privKey))
}

// LoginWithKey starts a local-signer session from a hex or nsec private
// key string.
func (s *Store) LoginWithKey(input string) error {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "nsec1") {
		decoded, err := keys.DecodeNsec(input)
		if err != nil {
			return err
		}
		input = decoded
	}

	privKeyBytes, err := keys.HexToBytes(input)
	if err != nil || len(privKeyBytes) != 32 {
		return errors.New("invalid private key")
	}

	signer, err := event.NewLocalSigner(privKeyBytes)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.signer = signer
	s.signerMode = SignerLocal
	s.publicKey = signer.PublicKey()
	s.privateKey = input
	return nil
}

// LoginWithExtension starts an extension-signer session. Fails cleanly when
// the capability is absent or unresponsive.
func (s *Store) LoginWithExtension(ctx context.Context) error {
	signer, err := event.NewExtensionSigner(ctx, s.extension)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.signer = signer
	s.signerMode = SignerExtension
	s.publicKey = signer.PublicKey()
	s.privateKey = ""
	return nil
}

// SaveSession persists the current signer mode and key material. A
// non-empty passphrase stores the local key encrypted at rest.
func (s *Store) SaveSession(passphrase string) error {
	s.mu.RLock()
	mode, privKey := s.signerMode, s.privateKey
	s.mu.RUnlock()

	encoded, err := encodeSession(mode, privKey, passphrase)
	if err != nil {
		return err
	}
	return s.persist.Save(encoded)
}

// RestoreSession re-establishes a persisted session. Returns false when
// nothing was persisted or restoration fails; an unavailable extension
// degrades to logged-out rather than erroring.
func (s *Store) RestoreSession(ctx context.Context, passphrase string) bool {
	stored, ok := s.persist.Load()
	if !ok {
		return false
	}

	mode, privKeyHex, err := decodeSession(stored, passphrase)
	if err != nil {
		slog.Warn("session restore failed", "error", err)
		return false
	}

	switch mode {
	case SignerExtension:
		if err := s.LoginWithExtension(ctx); err != nil {
			slog.Warn("extension unavailable, staying logged out", "error", err)
			return false
		}
	case SignerLocal:
		if err := s.LoginWithKey(privKeyHex); err != nil {
			slog.Warn("session restore failed", "error", err)
			return false
		}
	default:
		return false
	}

	return true
}

// Logout tears down the live subscription, clears every session and cache
// field, and removes persisted key material. The resulting store state is
// identical to a fresh, never-authenticated session.
func (s *Store) Logout() {
	s.closeSubscription()

	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()

	if err := s.persist.Clear(); err != nil {
		slog.Warn("failed to clear persisted session", "error", err)
	}
}

// Close tears down the live subscription without touching session state or
// persisted key material. Used at process shutdown.
func (s *Store) Close() {
	s.closeSubscription()
}

// closeSubscription cancels the live feed subscription, if any, and waits
// for its consumer to drain.
func (s *Store) closeSubscription() {
	s.mu.Lock()
	sub, done := s.activeSub, s.subDone
	s.activeSub = nil
	s.subDone = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	if done != nil {
		<-done
	}
}
