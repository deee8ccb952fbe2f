package pubsub_test

import (
	"bytes"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landrop/internal/landrop/domain"
	"landrop/internal/landrop/pubsub"
	"landrop/pkg/logger"
)

func quietLogger() *logger.Logger {
	return logger.NewWithConfig(logger.Config{Output: &bytes.Buffer{}})
}

func drain(s *pubsub.Subscription) []domain.UploadEvent {
	var out []domain.UploadEvent
	for {
		select {
		case ev := <-s.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

type countingMetrics struct {
	subscribers atomic.Int64
	published   atomic.Int64
	dropped     atomic.Int64
}

func (m *countingMetrics) SubscribersChanged(n int) { m.subscribers.Store(int64(n)) }
func (m *countingMetrics) EventPublished()          { m.published.Add(1) }
func (m *countingMetrics) EventDropped()            { m.dropped.Add(1) }

func TestBroadcaster_PublishWithoutSubscribers(t *testing.T) {
	m := &countingMetrics{}
	b := pubsub.New(10, quietLogger(), pubsub.WithMetrics(m))

	b.Publish(domain.Started("a.txt"))

	assert.Equal(t, int64(0), m.published.Load())

	// subscribers only see events published after they subscribe
	sub, err := b.Subscribe()
	require.NoError(t, err)
	assert.Empty(t, drain(sub))
}

func TestBroadcaster_FanOutInOrder(t *testing.T) {
	b := pubsub.New(10, quietLogger())
	s1, err := b.Subscribe()
	require.NoError(t, err)
	s2, err := b.Subscribe()
	require.NoError(t, err)
	assert.NotEqual(t, s1.ID(), s2.ID())

	events := []domain.UploadEvent{
		domain.Started("a.txt"),
		domain.Progress("a.txt", 5),
		domain.Progress("a.txt", 9),
		domain.Done("a.txt"),
	}
	for _, ev := range events {
		b.Publish(ev)
	}

	assert.Equal(t, events, drain(s1))
	assert.Equal(t, events, drain(s2))
}

func TestBroadcaster_DropOldestWhenFull(t *testing.T) {
	m := &countingMetrics{}
	b := pubsub.New(3, quietLogger(), pubsub.WithMetrics(m))
	sub, err := b.Subscribe()
	require.NoError(t, err)

	for i := uint64(1); i <= 5; i++ {
		b.Publish(domain.Progress("big.iso", i))
	}

	got := drain(sub)
	require.Len(t, got, 3)
	assert.Equal(t, uint64(3), got[0].BytesWritten())
	assert.Equal(t, uint64(4), got[1].BytesWritten())
	assert.Equal(t, uint64(5), got[2].BytesWritten())
	assert.Equal(t, uint64(2), sub.Dropped())
	assert.Equal(t, int64(2), m.dropped.Load())
}

func TestBroadcaster_SlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	b := pubsub.New(pubsub.DefaultCapacity, quietLogger())
	slow, err := b.Subscribe()
	require.NoError(t, err)
	fast, err := b.Subscribe()
	require.NoError(t, err)

	var received []uint64
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case ev := <-fast.Events():
				received = append(received, ev.BytesWritten())
				if ev.Status == domain.StatusDone {
					return
				}
			case <-time.After(5 * time.Second):
				return
			}
		}
	}()

	finished := make(chan struct{})
	go func() {
		for i := uint64(1); i <= 1000; i++ {
			b.Publish(domain.Progress("f", i))
		}
		b.Publish(domain.Done("f"))
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("publisher blocked on a subscriber that never reads")
	}
	wg.Wait()

	assert.Len(t, drain(slow), pubsub.DefaultCapacity)
	assert.Equal(t, uint64(1001-pubsub.DefaultCapacity), slow.Dropped())

	// whatever the fast reader saw arrived in publish order
	for i := 1; i < len(received); i++ {
		if received[i] != 0 {
			assert.Greater(t, received[i], received[i-1])
		}
	}
}

func TestSubscription_Close(t *testing.T) {
	m := &countingMetrics{}
	b := pubsub.New(10, quietLogger(), pubsub.WithMetrics(m))
	sub, err := b.Subscribe()
	require.NoError(t, err)
	assert.Equal(t, 1, b.SubscriberCount())
	assert.NoError(t, sub.Err())

	sub.Close()
	sub.Close()

	assert.Equal(t, 0, b.SubscriberCount())
	assert.Equal(t, int64(0), m.subscribers.Load())
	assert.ErrorIs(t, sub.Err(), pubsub.ErrSubscriptionClosed)
	select {
	case <-sub.Done():
	default:
		t.Fatal("Done not closed")
	}

	b.Publish(domain.Started("late"))
	assert.Empty(t, drain(sub))
}

func TestBroadcaster_Close(t *testing.T) {
	b := pubsub.New(10, quietLogger())
	s1, _ := b.Subscribe()
	s2, _ := b.Subscribe()

	b.Close()
	b.Close()

	for _, s := range []*pubsub.Subscription{s1, s2} {
		select {
		case <-s.Done():
		case <-time.After(time.Second):
			t.Fatal("subscription not ended by broadcaster shutdown")
		}
		assert.ErrorIs(t, s.Err(), pubsub.ErrBroadcasterClosed)
	}
	assert.Equal(t, 0, b.SubscriberCount())

	_, err := b.Subscribe()
	assert.ErrorIs(t, err, pubsub.ErrBroadcasterClosed)

	// no panic, no delivery
	b.Publish(domain.Started("after-close"))
	assert.Empty(t, drain(s1))

	// closing a subscription after shutdown is harmless
	s1.Close()
}

func TestBroadcaster_ConcurrentPublishAndSubscribe(t *testing.T) {
	b := pubsub.New(8, quietLogger())
	var wg sync.WaitGroup

	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := uint64(0); i < 500; i++ {
				b.Publish(domain.Progress("x", i))
			}
		}()
	}
	for s := 0; s < 4; s++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				sub, err := b.Subscribe()
				if err != nil {
					return
				}
				drain(sub)
				sub.Close()
			}
		}()
	}
	wg.Wait()
	b.Close()

	assert.Equal(t, 0, b.SubscriberCount())
}
