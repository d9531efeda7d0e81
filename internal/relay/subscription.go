package relay

import (
	"sync"

	"github.com/minagishl/nostro/internal/types"
)

// Subscription represents an active subscription on a single relay
// connection.
type Subscription struct {
	ID        string
	EventChan chan types.Event
	EOSEChan  chan bool
	Done      chan struct{}
	closeOnce sync.Once
}

// Close safely closes the Done channel exactly once
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.Done)
	})
}

// Handle is a cancellation handle for a logical subscription spanning
// multiple relays. Events carries the merged, ID-deduplicated stream from
// every relay. Exactly one handle per logical stream should be live; opening
// a new one must close the previous one first.
type Handle struct {
	Events <-chan types.Event

	pool      *Pool
	subs      map[string]*Subscription // relayURL -> subscription
	closeOnce sync.Once
}

// Close cancels the subscription on every relay. The Events channel closes
// once every relay's forwarder has drained.
func (h *Handle) Close() {
	if h == nil {
		return
	}
	h.closeOnce.Do(func() {
		for relayURL, sub := range h.subs {
			h.pool.unsubscribe(relayURL, sub)
		}
	})
}
