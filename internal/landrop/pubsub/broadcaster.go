// Package pubsub fans upload events out to any number of observers.
//
// Every subscriber owns a bounded queue. Publish never blocks: when a
// subscriber's queue is full its oldest queued event is discarded to make
// room for the new one. The subscriber set is an immutable snapshot swapped
// under a mutex by Subscribe and Close, so Publish itself takes no lock.
package pubsub

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"landrop/internal/landrop/domain"
	"landrop/pkg/logger"
)

// DefaultCapacity is the per-subscriber queue length.
const DefaultCapacity = 100

// Metrics receives broadcaster activity. Implementations must be safe for
// concurrent use.
type Metrics interface {
	SubscribersChanged(n int)
	EventPublished()
	EventDropped()
}

type noopMetrics struct{}

func (noopMetrics) SubscribersChanged(int) {}
func (noopMetrics) EventPublished()        {}
func (noopMetrics) EventDropped()          {}

// Option configures a Broadcaster.
type Option func(*Broadcaster)

// WithMetrics reports subscriber counts and drops to m.
func WithMetrics(m Metrics) Option {
	return func(b *Broadcaster) {
		if m != nil {
			b.metrics = m
		}
	}
}

// Broadcaster is a multi-producer, multi-consumer event hub.
type Broadcaster struct {
	capacity int

	mu     sync.Mutex // guards subscriber-set mutation only
	subs   atomic.Pointer[[]*Subscription]
	closed atomic.Bool

	metrics Metrics
	logger  *logger.Logger
}

// New creates a broadcaster whose subscribers buffer up to capacity events.
func New(capacity int, log *logger.Logger, opts ...Option) *Broadcaster {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	b := &Broadcaster{
		capacity: capacity,
		metrics:  noopMetrics{},
		logger:   log.WithField("component", "broadcaster"),
	}
	for _, opt := range opts {
		opt(b)
	}
	empty := make([]*Subscription, 0)
	b.subs.Store(&empty)
	return b
}

// Publish delivers ev to every current subscriber without blocking.
// With no subscribers the event is discarded.
func (b *Broadcaster) Publish(ev domain.UploadEvent) {
	if b.closed.Load() {
		return
	}
	subs := *b.subs.Load()
	if len(subs) == 0 {
		return
	}

	b.metrics.EventPublished()
	for _, s := range subs {
		if s.offer(ev) {
			b.metrics.EventDropped()
		}
	}
}

// Subscribe registers a new observer. It returns ErrBroadcasterClosed once
// the broadcaster has been closed.
func (b *Broadcaster) Subscribe() (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed.Load() {
		return nil, ErrBroadcasterClosed
	}

	s := &Subscription{
		id:    uuid.NewString(),
		queue: make(chan domain.UploadEvent, b.capacity),
		done:  make(chan struct{}),
		owner: b,
	}

	current := *b.subs.Load()
	next := make([]*Subscription, len(current), len(current)+1)
	copy(next, current)
	next = append(next, s)
	b.subs.Store(&next)

	b.metrics.SubscribersChanged(len(next))
	b.logger.Debug("subscriber added", "subscriberId", s.id, "totalSubscribers", len(next), "capacity", b.capacity)
	return s, nil
}

func (b *Broadcaster) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current := *b.subs.Load()
	next := make([]*Subscription, 0, len(current))
	for _, other := range current {
		if other != s {
			next = append(next, other)
		}
	}
	if len(next) == len(current) {
		return
	}
	b.subs.Store(&next)

	b.metrics.SubscribersChanged(len(next))
	b.logger.Debug("subscriber removed", "subscriberId", s.id, "remainingSubscribers", len(next), "dropped", s.Dropped())
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	return len(*b.subs.Load())
}

// Close ends every subscription and turns later publishes into no-ops.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed.Swap(true) {
		return
	}

	current := *b.subs.Load()
	for _, s := range current {
		s.markDone()
	}
	empty := make([]*Subscription, 0)
	b.subs.Store(&empty)

	b.metrics.SubscribersChanged(0)
	if len(current) > 0 {
		b.logger.Info("broadcaster closed", "closedSubscribers", len(current))
	}
}

// Subscription is one observer's position in the event stream. The Events
// channel is never closed; Done is closed when the subscription ends.
type Subscription struct {
	id    string
	queue chan domain.UploadEvent
	done  chan struct{}
	once  sync.Once
	owner *Broadcaster

	dropped atomic.Uint64
}

func (s *Subscription) ID() string {
	return s.id
}

// Events returns the receive side of the subscriber queue.
func (s *Subscription) Events() <-chan domain.UploadEvent {
	return s.queue
}

// Done is closed when the subscription is closed or the broadcaster shuts down.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Dropped returns how many events were discarded because the queue was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.owner.remove(s)
	s.markDone()
}

// Err is nil while the subscription is live. Afterwards it tells a
// broadcaster shutdown (ErrBroadcasterClosed) apart from Close
// (ErrSubscriptionClosed).
func (s *Subscription) Err() error {
	select {
	case <-s.done:
	default:
		return nil
	}
	if s.owner.closed.Load() {
		return ErrBroadcasterClosed
	}
	return ErrSubscriptionClosed
}

func (s *Subscription) markDone() {
	s.once.Do(func() { close(s.done) })
}

// offer enqueues ev, evicting the oldest queued events while the queue is
// full. It reports whether anything was evicted.
func (s *Subscription) offer(ev domain.UploadEvent) (dropped bool) {
	for {
		select {
		case <-s.done:
			return dropped
		default:
		}

		select {
		case s.queue <- ev:
			return dropped
		default:
		}

		select {
		case <-s.queue:
			s.dropped.Add(1)
			dropped = true
		default:
		}
	}
}
