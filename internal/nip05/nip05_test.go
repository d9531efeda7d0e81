package nip05

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/minagishl/nostro/internal/cache"
)

const testPubkey = "abc123def456abc123def456abc123def456abc123def456abc123def456abcd"

// wellKnownServer serves a nostr.json document over TLS and counts requests.
func wellKnownServer(t *testing.T, names map[string]string, delay time.Duration) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var requests atomic.Int64

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if delay > 0 {
			time.Sleep(delay)
		}
		if r.URL.Path != "/.well-known/nostr.json" {
			http.NotFound(w, r)
			return
		}
		name := r.URL.Query().Get("name")
		pubkey, ok := names[name]
		if !ok {
			fmt.Fprint(w, `{"names":{}}`)
			return
		}
		fmt.Fprintf(w, `{"names":{%q:%q}}`, name, pubkey)
	}))

	return srv, &requests
}

func newTestResolver(t *testing.T, srv *httptest.Server) (*Resolver, string) {
	t.Helper()
	backend := cache.NewMemory(100, time.Minute)
	t.Cleanup(func() { backend.Close() })

	r := NewResolver(backend, 0)
	r.HTTPClient = srv.Client()

	domain := strings.TrimPrefix(srv.URL, "https://")
	return r, domain
}

func TestLookupBareDomainUsesUnderscore(t *testing.T) {
	srv, requests := wellKnownServer(t, map[string]string{"_": testPubkey}, 0)
	defer srv.Close()
	r, domain := newTestResolver(t, srv)

	pubkey, ok := r.Lookup(context.Background(), domain)
	if !ok || pubkey != testPubkey {
		t.Fatalf("Lookup(%q) = %q, %v", domain, pubkey, ok)
	}
	if requests.Load() != 1 {
		t.Errorf("expected 1 request, got %d", requests.Load())
	}
}

func TestLookupNamedUser(t *testing.T) {
	srv, _ := wellKnownServer(t, map[string]string{"alice": testPubkey}, 0)
	defer srv.Close()
	r, domain := newTestResolver(t, srv)

	pubkey, ok := r.Lookup(context.Background(), "alice@"+domain)
	if !ok || pubkey != testPubkey {
		t.Fatalf("Lookup = %q, %v", pubkey, ok)
	}

	// Case is normalized before lookup
	pubkey, ok = r.Lookup(context.Background(), "ALICE@"+domain)
	if !ok || pubkey != testPubkey {
		t.Errorf("uppercase identifier did not resolve: %q, %v", pubkey, ok)
	}
}

func TestLookupSkipsNpub(t *testing.T) {
	srv, requests := wellKnownServer(t, nil, 0)
	defer srv.Close()
	r, _ := newTestResolver(t, srv)

	if _, ok := r.Lookup(context.Background(), "npub180cvv07tjdrrgpa0j7j7tmnyl2yr6yr7l8j4s3evf6u64th6gkwsyjh6w6"); ok {
		t.Error("npub identifiers must not resolve through the well-known path")
	}
	if requests.Load() != 0 {
		t.Errorf("npub lookup issued %d network requests", requests.Load())
	}
}

func TestLookupSuccessIsCached(t *testing.T) {
	srv, requests := wellKnownServer(t, map[string]string{"alice": testPubkey}, 0)
	defer srv.Close()
	r, domain := newTestResolver(t, srv)

	for i := 0; i < 3; i++ {
		if _, ok := r.Lookup(context.Background(), "alice@"+domain); !ok {
			t.Fatalf("lookup %d failed", i)
		}
	}
	if requests.Load() != 1 {
		t.Errorf("expected 1 request for 3 lookups, got %d", requests.Load())
	}
}

func TestLookupFailureIsNotCached(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	var requests atomic.Int64

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if fail.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, `{"names":{"alice":%q}}`, testPubkey)
	}))
	defer srv.Close()
	r, domain := newTestResolver(t, srv)

	if _, ok := r.Lookup(context.Background(), "alice@"+domain); ok {
		t.Fatal("expected failure while server errors")
	}

	// Failure was not cached; the next call retries and succeeds.
	fail.Store(false)
	pubkey, ok := r.Lookup(context.Background(), "alice@"+domain)
	if !ok || pubkey != testPubkey {
		t.Fatalf("retry after failure = %q, %v", pubkey, ok)
	}
	if requests.Load() != 2 {
		t.Errorf("expected 2 requests, got %d", requests.Load())
	}
}

func TestConcurrentLookupsCoalesce(t *testing.T) {
	srv, requests := wellKnownServer(t, map[string]string{"alice": testPubkey}, 100*time.Millisecond)
	defer srv.Close()
	r, domain := newTestResolver(t, srv)

	var wg sync.WaitGroup
	results := make([]string, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pubkey, _ := r.Lookup(context.Background(), "alice@"+domain)
			results[i] = pubkey
		}(i)
	}
	wg.Wait()

	for i, pubkey := range results {
		if pubkey != testPubkey {
			t.Errorf("caller %d got %q", i, pubkey)
		}
	}
	if requests.Load() != 1 {
		t.Errorf("expected exactly 1 outbound request, got %d", requests.Load())
	}
}

func TestVerify(t *testing.T) {
	srv, _ := wellKnownServer(t, map[string]string{"alice": testPubkey}, 0)
	defer srv.Close()
	r, domain := newTestResolver(t, srv)
	ctx := context.Background()

	if !r.Verify(ctx, "alice@"+domain, testPubkey) {
		t.Error("expected matching pubkey to verify")
	}
	if !r.Verify(ctx, "alice@"+domain, strings.ToUpper(testPubkey)) {
		t.Error("verification must be case-insensitive on pubkeys")
	}
	if r.Verify(ctx, "alice@"+domain, strings.Repeat("00", 32)) {
		t.Error("mismatched pubkey must not verify")
	}
	if r.Verify(ctx, "", testPubkey) || r.Verify(ctx, "alice@"+domain, "") {
		t.Error("empty inputs must not verify")
	}
}

func TestParseIdentifier(t *testing.T) {
	cases := []struct {
		in         string
		wantName   string
		wantDomain string
		wantOK     bool
	}{
		{"alice@example.com", "alice", "example.com", true},
		{"example.com", "_", "example.com", true},
		{"Alice@Example.COM", "alice", "example.com", true},
		{"", "", "", false},
		{"@example.com", "", "", false},
		{"alice@", "", "", false},
		{"alice@exa/mple.com", "", "", false},
		{"alice@router.local", "", "", false},
		{"alice@hidden.onion", "", "", false},
	}

	for _, tc := range cases {
		name, domain, ok := parseIdentifier(tc.in)
		if ok != tc.wantOK || name != tc.wantName || domain != tc.wantDomain {
			t.Errorf("parseIdentifier(%q) = %q, %q, %v; want %q, %q, %v",
				tc.in, name, domain, ok, tc.wantName, tc.wantDomain, tc.wantOK)
		}
	}
}

func TestFormatIdentifier(t *testing.T) {
	if got := FormatIdentifier("_@example.com"); got != "example.com" {
		t.Errorf("FormatIdentifier(_@example.com) = %q", got)
	}
	if got := FormatIdentifier("alice@example.com"); got != "alice@example.com" {
		t.Errorf("FormatIdentifier(alice@example.com) = %q", got)
	}
}
