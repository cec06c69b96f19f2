// Package sessionbus fans session events out to live subscribers and keeps a
// short backlog per session for reconnecting clients.
package sessionbus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"tour-estimate-workers/internal/common/logger"
	"tour-estimate-workers/internal/common/metrics"
)

// Event types published by the pipeline.
const (
	EventEstimateGenerated     = "estimate.generated"
	EventEstimateSubmitted     = "estimate.submitted"
	EventEstimateStatusChanged = "estimate.status_changed"
	EventEstimateItemUpdated   = "estimate.item_updated"
	EventSessionLinked         = "session.linked"
)

type Event struct {
	ID string `json:"id"`
	// Seq increases with every publish on the bus and is the SSE event id.
	Seq       uint64      `json:"seq"`
	SessionID string      `json:"sessionId"`
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

type Options struct {
	BacklogSize      int
	BacklogTTL       time.Duration
	SweepInterval    time.Duration
	SubscriberBuffer int
}

func (o Options) withDefaults() Options {
	if o.BacklogSize <= 0 {
		o.BacklogSize = 50
	}
	if o.BacklogTTL <= 0 {
		o.BacklogTTL = 5 * time.Minute
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = time.Minute
	}
	if o.SubscriberBuffer <= 0 {
		o.SubscriberBuffer = 16
	}
	return o
}

// Subscriber is one live viewer of a session.
type Subscriber struct {
	ID        string
	SessionID string

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// Events delivers published events. It is never closed; select on Done too.
func (s *Subscriber) Events() <-chan Event { return s.events }

// Done is closed once the subscriber is closed or unsubscribed.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

// Close marks the underlying connection as gone. The next sweep removes it.
func (s *Subscriber) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Subscriber) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

type session struct {
	mu          sync.Mutex
	backlog     *ring
	subscribers map[string]*Subscriber
	removed     bool
}

// Bus is a registry of sessions. The registry lock only guards the session
// map; publishing and subscribing lock the individual session.
type Bus struct {
	mu       sync.RWMutex
	sessions map[string]*session
	seq      atomic.Uint64
	opts     Options
	now      func() time.Time
	logger   logger.Logger
}

func New(opts Options, log logger.Logger) *Bus {
	b := &Bus{
		sessions: make(map[string]*session),
		opts:     opts.withDefaults(),
		now:      time.Now,
		logger:   logger.ForComponent(log, "sessionbus"),
	}
	// Seeded from the clock so ids stay ahead of those a previous process
	// handed out.
	b.seq.Store(uint64(b.now().UnixNano()))
	return b
}

// acquire returns the locked session state for id, creating it when missing.
func (b *Bus) acquire(sessionID string) *session {
	for {
		b.mu.RLock()
		st, ok := b.sessions[sessionID]
		b.mu.RUnlock()

		if !ok {
			b.mu.Lock()
			if st, ok = b.sessions[sessionID]; !ok {
				st = &session{
					backlog:     newRing(b.opts.BacklogSize),
					subscribers: make(map[string]*Subscriber),
				}
				b.sessions[sessionID] = st
			}
			b.mu.Unlock()
		}

		st.mu.Lock()
		if !st.removed {
			return st
		}
		// swept between lookup and lock
		st.mu.Unlock()
	}
}

// Publish appends an event to the session backlog and offers it to every live
// subscriber. A subscriber whose buffer is full misses the event.
func (b *Bus) Publish(sessionID, eventType string, payload interface{}) Event {
	e := Event{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Type:      eventType,
		Payload:   payload,
		CreatedAt: b.now(),
	}

	st := b.acquire(sessionID)
	defer st.mu.Unlock()

	e.Seq = b.seq.Add(1)
	if st.backlog.push(e) {
		metrics.BusBacklogEvicted.WithLabelValues("capacity").Inc()
	}
	for _, sub := range st.subscribers {
		if sub.closed() {
			continue
		}
		select {
		case sub.events <- e:
		default:
			metrics.BusEventsDropped.Inc()
			b.logger.Warn("Dropping session event; subscriber buffer full", map[string]interface{}{
				"sessionId":    sessionID,
				"subscriberId": sub.ID,
				"eventType":    eventType,
			})
		}
	}
	metrics.BusEventsPublished.Inc()
	return e
}

// Subscribe registers a new live subscriber on the session.
func (b *Bus) Subscribe(sessionID string) *Subscriber {
	sub, _ := b.subscribe(sessionID, nil)
	return sub
}

// SubscribeSince registers a subscriber and returns the backlog after since,
// taken atomically with the registration so nothing is missed or repeated.
func (b *Bus) SubscribeSince(sessionID string, since time.Time) (*Subscriber, []Event) {
	return b.subscribe(sessionID, createdAfter(since))
}

// SubscribeAfter is SubscribeSince keyed by the last event sequence a client saw.
func (b *Bus) SubscribeAfter(sessionID string, seq uint64) (*Subscriber, []Event) {
	return b.subscribe(sessionID, seqAfter(seq))
}

func (b *Bus) subscribe(sessionID string, keep func(Event) bool) (*Subscriber, []Event) {
	sub := &Subscriber{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		events:    make(chan Event, b.opts.SubscriberBuffer),
		done:      make(chan struct{}),
	}

	st := b.acquire(sessionID)
	defer st.mu.Unlock()

	st.subscribers[sub.ID] = sub
	metrics.BusSubscribers.Inc()

	var replay []Event
	if keep != nil {
		replay = st.backlog.filter(keep, b.now().Add(-b.opts.BacklogTTL))
	}
	return sub, replay
}

// Unsubscribe removes sub from its session. Sibling subscribers keep receiving.
func (b *Bus) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	sub.Close()

	b.mu.RLock()
	st, ok := b.sessions[sub.SessionID]
	b.mu.RUnlock()
	if !ok {
		return
	}

	st.mu.Lock()
	if _, present := st.subscribers[sub.ID]; present {
		delete(st.subscribers, sub.ID)
		metrics.BusSubscribers.Dec()
	}
	st.mu.Unlock()
}

// ReplaySince returns the backlog events created after since that have not expired.
func (b *Bus) ReplaySince(sessionID string, since time.Time) []Event {
	return b.replay(sessionID, createdAfter(since))
}

// ReplayAfter returns the unexpired backlog events published after seq.
func (b *Bus) ReplayAfter(sessionID string, seq uint64) []Event {
	return b.replay(sessionID, seqAfter(seq))
}

func (b *Bus) replay(sessionID string, keep func(Event) bool) []Event {
	b.mu.RLock()
	st, ok := b.sessions[sessionID]
	b.mu.RUnlock()
	if !ok {
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return st.backlog.filter(keep, b.now().Add(-b.opts.BacklogTTL))
}

func createdAfter(since time.Time) func(Event) bool {
	return func(e Event) bool { return e.CreatedAt.After(since) }
}

func seqAfter(seq uint64) func(Event) bool {
	return func(e Event) bool { return e.Seq > seq }
}

// SubscriberCount returns the number of registered subscribers on a session.
func (b *Bus) SubscriberCount(sessionID string) int {
	b.mu.RLock()
	st, ok := b.sessions[sessionID]
	b.mu.RUnlock()
	if !ok {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.subscribers)
}

type SweepStats struct {
	ExpiredEvents     int
	ClosedSubscribers int
	RemovedSessions   int
}

// Sweep purges expired backlog entries and closed subscribers, then forgets
// sessions left with neither.
func (b *Bus) Sweep() SweepStats {
	var stats SweepStats
	cutoff := b.now().Add(-b.opts.BacklogTTL)

	b.mu.Lock()
	defer b.mu.Unlock()

	for id, st := range b.sessions {
		st.mu.Lock()
		stats.ExpiredEvents += st.backlog.purgeBefore(cutoff)
		for subID, sub := range st.subscribers {
			if sub.closed() {
				delete(st.subscribers, subID)
				metrics.BusSubscribers.Dec()
				stats.ClosedSubscribers++
			}
		}
		if st.backlog.len() == 0 && len(st.subscribers) == 0 {
			st.removed = true
			delete(b.sessions, id)
			stats.RemovedSessions++
		}
		st.mu.Unlock()
	}

	metrics.BusBacklogEvicted.WithLabelValues("ttl").Add(float64(stats.ExpiredEvents))
	return stats
}

// Run sweeps on every interval until ctx is done.
func (b *Bus) Run(ctx context.Context) {
	ticker := time.NewTicker(b.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := b.Sweep()
			if stats.ExpiredEvents+stats.ClosedSubscribers+stats.RemovedSessions > 0 {
				b.logger.Debug("Session bus swept", map[string]interface{}{
					"expiredEvents":     stats.ExpiredEvents,
					"closedSubscribers": stats.ClosedSubscribers,
					"removedSessions":   stats.RemovedSessions,
				})
			}
		}
	}
}
