// Package relay implements the connection pool that abstracts many
// independent, unreliable relays into one logical data source for one-shot
// queries, long-lived subscriptions and fire-and-forget publishing.
package relay

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/minagishl/nostro/internal/keys"
	"github.com/minagishl/nostro/internal/types"
)

// Pool metrics
var (
	droppedEventCount atomic.Int64
	publishCount      atomic.Int64
)

// DroppedEvents returns the number of events dropped due to slow consumers.
func DroppedEvents() int64 {
	return droppedEventCount.Load()
}

// PublishedEvents returns the number of per-relay publish writes attempted.
func PublishedEvents() int64 {
	return publishCount.Load()
}

// Pool manages persistent connections to multiple relays. It is a
// process-wide singleton for the session's lifetime; construct once and
// inject.
type Pool struct {
	mu          sync.RWMutex
	connections map[string]*relayConn // relayURL -> connection
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewPool creates a new connection pool.
func NewPool() *Pool {
	pool := &Pool{
		connections: make(map[string]*relayConn),
		stopCh:      make(chan struct{}),
	}
	go pool.cleanupLoop()
	return pool
}

// isRelayURLSafe validates that a relay URL is safe to connect to.
// Allows localhost for development but blocks other private IP ranges.
func isRelayURLSafe(relayURL string) bool {
	parsed, err := url.Parse(relayURL)
	if err != nil {
		return false
	}

	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return false
	}

	host := parsed.Hostname()
	if host == "" {
		return false
	}

	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return true
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		// Unresolvable may still be a valid external host, but block
		// obvious internal names
		if strings.HasSuffix(host, ".") ||
			strings.Contains(host, ".local") ||
			strings.Contains(host, ".internal") {
			return false
		}
		return true
	}

	for _, ip := range ips {
		if !isRelayIPSafe(ip) {
			return false
		}
	}

	return true
}

// isRelayIPSafe checks if an IP is safe for relay connections.
// Allows loopback (localhost) but blocks other private ranges.
func isRelayIPSafe(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if ip.IsLoopback() {
		return true
	}
	if ip.IsPrivate() {
		return false
	}
	if ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return false
	}
	if ip.IsUnspecified() {
		return false
	}
	// Cloud metadata IP
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return false
	}
	if ip.IsMulticast() {
		return false
	}
	return true
}

// getOrCreateConn gets an existing connection or dials a new one
func (p *Pool) getOrCreateConn(ctx context.Context, relayURL string) (*relayConn, error) {
	if !isRelayURLSafe(relayURL) {
		return nil, errors.New("relay URL blocked: unsafe destination")
	}

	p.mu.RLock()
	rc := p.connections[relayURL]
	p.mu.RUnlock()

	if rc != nil && !rc.isClosed() {
		return rc, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check after acquiring write lock
	rc = p.connections[relayURL]
	if rc != nil && !rc.isClosed() {
		return rc, nil
	}

	slog.Debug("pool: dialing relay", "relay", relayURL)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, relayURL, nil)
	if err != nil {
		return nil, err
	}

	rc = &relayConn{
		conn:          conn,
		relayURL:      relayURL,
		subscriptions: make(map[string]*Subscription),
		lastActivity:  time.Now(),
	}

	p.connections[relayURL] = rc

	go rc.readLoop()

	return rc, nil
}

func (rc *relayConn) isClosed() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.closed
}

// newSubID generates a random subscription identifier.
func newSubID(prefix string) string {
	return prefix + "-" + hex.EncodeToString(keys.RandomBytes(8))
}

// subscribe opens a subscription on a single relay.
func (p *Pool) subscribe(ctx context.Context, relayURL string, filter types.Filter) (*Subscription, error) {
	const maxRetries = 3
	var rc *relayConn
	var err error
	var connected bool

	for attempt := 0; attempt < maxRetries; attempt++ {
		rc, err = p.getOrCreateConn(ctx, relayURL)
		if err != nil {
			return nil, err
		}

		rc.mu.Lock()
		if rc.closed {
			rc.mu.Unlock()
			// Connection died under us, drop and retry
			p.mu.Lock()
			delete(p.connections, relayURL)
			p.mu.Unlock()
			continue
		}
		connected = true
		break
	}

	if !connected {
		return nil, errors.New("failed to establish connection after retries")
	}

	sub := &Subscription{
		ID:        newSubID("sub"),
		EventChan: make(chan types.Event, 100),
		EOSEChan:  make(chan bool, 1),
		Done:      make(chan struct{}),
	}

	// Register subscription (rc.mu is still locked from the loop)
	rc.subscriptions[sub.ID] = sub
	rc.mu.Unlock()

	req := []interface{}{"REQ", sub.ID, filterToWire(filter)}
	if err := rc.writeJSON(req); err != nil {
		rc.mu.Lock()
		delete(rc.subscriptions, sub.ID)
		rc.mu.Unlock()
		rc.markClosed()
		return nil, err
	}

	rc.mu.Lock()
	rc.lastActivity = time.Now()
	rc.mu.Unlock()
	return sub, nil
}

// unsubscribe closes a subscription on a single relay.
func (p *Pool) unsubscribe(relayURL string, sub *Subscription) {
	if sub == nil {
		return
	}

	p.mu.RLock()
	rc := p.connections[relayURL]
	p.mu.RUnlock()

	if rc == nil {
		sub.Close()
		return
	}

	rc.mu.Lock()
	_, exists := rc.subscriptions[sub.ID]
	shouldSendClose := !rc.closed && exists
	if exists {
		delete(rc.subscriptions, sub.ID)
	}
	rc.mu.Unlock()

	// Send CLOSE outside the mutex (best effort, connection may be gone)
	if shouldSendClose {
		rc.writeJSON([]interface{}{"CLOSE", sub.ID})
	}

	sub.Close()
}

// Publish broadcasts the signed event to every listed relay concurrently.
// One relay's failure or slowness never blocks or fails the others, and no
// relay's acknowledgment is awaited. No retry on failure.
func (p *Pool) Publish(ctx context.Context, relays []string, evt types.Event) {
	// Encode once with HTML escaping disabled; relays expect the same
	// bytes the ID was computed over.
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(evt); err != nil {
		slog.Error("failed to encode event for publish", "error", err)
		return
	}
	eventJSON := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))

	msg := make([]byte, 0, len(eventJSON)+16)
	msg = append(msg, []byte(`["EVENT",`)...)
	msg = append(msg, eventJSON...)
	msg = append(msg, ']')

	for _, relayURL := range relays {
		go func(relayURL string) {
			publishCount.Add(1)
			rc, err := p.getOrCreateConn(ctx, relayURL)
			if err != nil {
				slog.Warn("publish: relay unreachable", "relay", relayURL, "error", err)
				return
			}
			if err := rc.writeMessage(msg); err != nil {
				slog.Warn("publish: write failed", "relay", relayURL, "error", err)
				return
			}
			slog.Debug("published event", "relay", relayURL, "kind", evt.Kind)
		}(relayURL)
	}
}

// cleanupLoop periodically removes stale connections
func (p *Pool) cleanupLoop() {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.cleanup()
		}
	}
}

// cleanup removes connections that have been idle too long
func (p *Pool) cleanup() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for url, rc := range p.connections {
		rc.mu.Lock()
		idle := len(rc.subscriptions) == 0 && now.Sub(rc.lastActivity) > 2*time.Minute
		closed := rc.closed
		rc.mu.Unlock()

		if closed || idle {
			if !closed {
				slog.Debug("pool: closing idle connection", "relay", url)
				rc.markClosed()
			}
			delete(p.connections, url)
		}
	}
}

// ActiveConnections returns the number of live relay connections.
func (p *Pool) ActiveConnections() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.connections)
}

// Close shuts down every connection and stops the cleanup loop.
func (p *Pool) Close() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})

	p.mu.Lock()
	conns := make([]*relayConn, 0, len(p.connections))
	for url, rc := range p.connections {
		conns = append(conns, rc)
		delete(p.connections, url)
	}
	p.mu.Unlock()

	for _, rc := range conns {
		rc.markClosed()
	}
}
