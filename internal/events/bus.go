package events

import (
	"sync"
	"time"

	"snatch/internal/metrics"
)

// Type classifies job lifecycle notifications.
type Type string

const (
	TypeJobEnqueued Type = "job_enqueued"
	TypeJobProgress Type = "job_progress"
	TypeJobRetry    Type = "job_retry"
	TypeJobDone     Type = "job_done"
	TypeJobFailed   Type = "job_failed"

	// TypeBusOverflow marks that the receiving subscriber missed
	// events; ground truth is always recoverable from the job store.
	TypeBusOverflow Type = "bus_overflow"
)

// Event is an immutable, fire-and-forget notification of a job state
// transition. Losing one never corrupts store state.
type Event struct {
	Type      Type      `json:"type"`
	JobID     string    `json:"job_id"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Bus broadcasts events to any number of live subscribers. Publish
// never blocks: each subscriber has its own bounded buffer, and a slow
// subscriber loses its oldest buffered events rather than stalling
// workers or other subscribers.
type Bus struct {
	mu     sync.Mutex
	subs   map[*Subscriber]struct{}
	buffer int
}

// Subscriber is one live event stream handle. Events are read from
// Events(); Close releases the subscription.
type Subscriber struct {
	bus      *Bus
	ch       chan Event
	overflow bool
	closed   bool
}

// NewBus creates a bus whose subscribers buffer up to buffer events.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{
		subs:   make(map[*Subscriber]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber receiving every event published
// after this call.
func (b *Bus) Subscribe() *Subscriber {
	sub := &Subscriber{
		bus: b,
		ch:  make(chan Event, b.buffer),
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

// Publish delivers the event to all current subscribers. The event's
// timestamp is stamped here when unset.
func (b *Bus) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	metrics.RecordEventPublished(string(ev.Type))
	for sub := range b.subs {
		sub.deliver(ev)
	}
}

// deliver is called with the bus lock held; the bus is the only sender
// on sub.ch, so dropping the oldest buffered event here is race-free.
func (s *Subscriber) deliver(ev Event) {
	if s.overflow {
		marker := Event{Type: TypeBusOverflow, JobID: ev.JobID, Timestamp: ev.Timestamp}
		select {
		case s.ch <- marker:
			s.overflow = false
		default:
		}
	}

	select {
	case s.ch <- ev:
		return
	default:
	}

	// Buffer full: drop the oldest event to make room and remember to
	// surface an overflow marker to this subscriber.
	select {
	case <-s.ch:
	default:
	}
	s.overflow = true
	metrics.RecordEventDropped()

	select {
	case s.ch <- ev:
	default:
	}
}

// Events yields the subscriber's live event sequence. The channel is
// closed by Close.
func (s *Subscriber) Events() <-chan Event {
	return s.ch
}

// Close unsubscribes and closes the event channel. Safe to call once
// per subscriber; further events are not delivered.
func (s *Subscriber) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	delete(s.bus.subs, s)
	close(s.ch)
}
