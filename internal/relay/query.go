package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/minagishl/nostro/internal/types"
)

// DefaultQueryTimeout bounds one-shot queries when the caller's context has
// no deadline of its own. Slow relays are abandoned, not waited on.
const DefaultQueryTimeout = 3 * time.Second

// QuerySync fans a filter out to every listed relay, collects results until
// each relay signals end-of-stored-events or the deadline passes, and returns
// the merged, deduplicated set sorted newest first. Relays that fail to
// connect or respond contribute nothing; partial results are normal results.
func (p *Pool) QuerySync(ctx context.Context, relays []string, filter types.Filter) []types.Event {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultQueryTimeout)
		defer cancel()
	}

	var wg sync.WaitGroup
	eventChan := make(chan types.Event, 1000)

	for _, relayURL := range relays {
		wg.Add(1)
		go func(relayURL string) {
			defer wg.Done()
			p.queryRelay(ctx, relayURL, filter, eventChan)
		}(relayURL)
	}

	go func() {
		wg.Wait()
		close(eventChan)
	}()

	events := []types.Event{}
	for evt := range eventChan {
		events = append(events, evt)
	}

	events = Dedup(events)
	SortByCreatedAtDesc(events)

	if filter.Limit > 0 && len(events) > filter.Limit {
		events = events[:filter.Limit]
	}

	return events
}

// queryRelay runs one relay's share of a QuerySync: subscribe, drain until
// EOSE or deadline, unsubscribe.
func (p *Pool) queryRelay(ctx context.Context, relayURL string, filter types.Filter, out chan<- types.Event) {
	sub, err := p.subscribe(ctx, relayURL, filter)
	if err != nil {
		slog.Debug("query: relay unavailable", "relay", relayURL, "error", err)
		return
	}
	defer p.unsubscribe(relayURL, sub)

	for {
		select {
		case evt := <-sub.EventChan:
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		case <-sub.EOSEChan:
			// Drain anything that raced ahead of the EOSE signal
			for {
				select {
				case evt := <-sub.EventChan:
					select {
					case out <- evt:
					case <-ctx.Done():
						return
					}
				default:
					return
				}
			}
		case <-sub.Done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Get fetches a single event matching the filter, preferring the newest when
// relays disagree. The second return is false when nothing matched in time.
func (p *Pool) Get(ctx context.Context, relays []string, filter types.Filter) (types.Event, bool) {
	filter.Limit = 1
	events := p.QuerySync(ctx, relays, filter)
	if len(events) == 0 {
		return types.Event{}, false
	}
	return events[0], true
}

// Subscribe opens a long-lived subscription on every listed relay and
// returns a handle whose Events channel carries the merged stream. Events
// already seen on another relay are suppressed, so consumers never process
// the same ID twice. Relays that cannot be reached are skipped; the
// subscription is still live on the rest.
func (p *Pool) Subscribe(ctx context.Context, relays []string, filter types.Filter) *Handle {
	merged := make(chan types.Event, 256)
	h := &Handle{
		Events: merged,
		pool:   p,
		subs:   make(map[string]*Subscription),
	}

	var seenMu sync.Mutex
	seen := make(map[string]bool)

	var wg sync.WaitGroup
	for _, relayURL := range relays {
		sub, err := p.subscribe(ctx, relayURL, filter)
		if err != nil {
			slog.Warn("subscribe: relay unavailable", "relay", relayURL, "error", err)
			continue
		}
		h.subs[relayURL] = sub

		wg.Add(1)
		go func(sub *Subscription) {
			defer wg.Done()
			for {
				select {
				case evt := <-sub.EventChan:
					seenMu.Lock()
					dup := seen[evt.ID]
					if !dup {
						seen[evt.ID] = true
					}
					seenMu.Unlock()
					if dup {
						continue
					}
					select {
					case merged <- evt:
					case <-sub.Done:
						return
					}
				case <-sub.Done:
					return
				}
			}
		}(sub)
	}

	go func() {
		wg.Wait()
		close(merged)
	}()

	return h
}
