// Package nip05 resolves human-readable identifiers (user@domain.com)
// against the domain's /.well-known/nostr.json document and verifies
// profiles' claimed identifiers.
package nip05

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/minagishl/nostro/internal/cache"
)

// encoded-identity prefix; such values are decoded by the bech32 path, not
// resolved over HTTPS
const npubPrefix = "npub1"

// Resolver maps identifiers to pubkeys with durable success caching and
// in-flight request coalescing. Failed lookups are never cached, so they are
// retried on the next call.
type Resolver struct {
	// HTTPClient may be replaced before first use. The default bounds
	// lookup latency and redirect chains.
	HTTPClient *http.Client

	cache cache.Backend
	ttl   time.Duration
	group singleflight.Group
}

// NewResolver creates a resolver backed by the given cache. A zero ttl caches
// successful lookups for the life of the backend.
func NewResolver(backend cache.Backend, ttl time.Duration) *Resolver {
	return &Resolver{
		HTTPClient: &http.Client{
			Timeout: 5 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		cache: backend,
		ttl:   ttl,
	}
}

// parseIdentifier splits an identifier into (username, domain). A bare
// domain implies the reserved "_" username.
func parseIdentifier(identifier string) (name, domain string, ok bool) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return "", "", false
	}

	if !strings.Contains(identifier, "@") {
		name, domain = "_", identifier
	} else {
		parts := strings.SplitN(identifier, "@", 2)
		name, domain = parts[0], parts[1]
	}

	if name == "" || domain == "" {
		return "", "", false
	}
	if strings.Contains(domain, "/") || strings.Contains(domain, "\\") || strings.Contains(domain, "@") {
		return "", "", false
	}
	if isInternalHost(domain) {
		return "", "", false
	}

	return name, domain, true
}

// isInternalHost blocks obviously internal names. Loopback is allowed for
// development against a local well-known server.
func isInternalHost(host string) bool {
	host = strings.ToLower(host)
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	return strings.HasSuffix(host, ".local") ||
		strings.HasSuffix(host, ".internal") ||
		strings.HasSuffix(host, ".onion")
}

// Lookup resolves an identifier to a hex pubkey. Returns ("", false) for
// opaque npub identifiers, malformed input, or any network or parse failure.
// Concurrent lookups for the same key share a single outbound request.
func (r *Resolver) Lookup(ctx context.Context, identifier string) (string, bool) {
	if strings.HasPrefix(strings.TrimSpace(identifier), npubPrefix) {
		return "", false
	}

	name, domain, ok := parseIdentifier(identifier)
	if !ok {
		slog.Debug("nip05: invalid identifier", "identifier", identifier)
		return "", false
	}

	cacheKey := "nip05:" + domain + ":" + name

	if cached, found, err := r.cache.Get(ctx, cacheKey); err == nil && found {
		return string(cached), true
	}

	// Coalesce concurrent lookups for the same key. The group key is the
	// cache key, so identical identifiers in different spellings share one
	// request.
	result, err, shared := r.group.Do(cacheKey, func() (interface{}, error) {
		return r.fetch(ctx, name, domain)
	})
	if shared {
		slog.Debug("nip05: shared in-flight lookup", "key", cacheKey)
	}
	if err != nil {
		slog.Debug("nip05: lookup failed", "identifier", identifier, "error", err)
		return "", false
	}

	pubkey := result.(string)
	if setErr := r.cache.Set(ctx, cacheKey, []byte(pubkey), r.ttl); setErr != nil {
		slog.Warn("nip05: cache write failed", "key", cacheKey, "error", setErr)
	}

	return pubkey, true
}

// Verify checks that an identifier maps back to the claimed pubkey. A
// profile's nip05 field must only be trusted after this returns true.
func (r *Resolver) Verify(ctx context.Context, identifier, claimedPubkey string) bool {
	if identifier == "" || claimedPubkey == "" {
		return false
	}

	pubkey, ok := r.Lookup(ctx, identifier)
	if !ok {
		return false
	}

	return strings.EqualFold(pubkey, claimedPubkey)
}

// fetch performs the well-known document request and extracts the pubkey.
func (r *Resolver) fetch(ctx context.Context, name, domain string) (string, error) {
	url := fmt.Sprintf("https://%s/.well-known/nostr.json?name=%s", domain, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("well-known fetch returned %d", resp.StatusCode)
	}

	var data struct {
		Names map[string]string `json:"names"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", err
	}

	pubkey, ok := data.Names[name]
	if !ok {
		return "", fmt.Errorf("name %q not present in well-known document", name)
	}

	return strings.ToLower(pubkey), nil
}

// FormatIdentifier returns the display form of an identifier. The reserved
// "_" username displays as the bare domain.
func FormatIdentifier(identifier string) string {
	if strings.HasPrefix(identifier, "_@") {
		return strings.TrimPrefix(identifier, "_@")
	}
	return identifier
}
