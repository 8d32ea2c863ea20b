package runtime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leeforge/shrink/event"
	"github.com/leeforge/shrink/logging"
	"go.uber.org/zap"
)

// eventBus implements event.Bus with a buffered channel and backpressure.
type eventBus struct {
	subscribers map[string][]subscriberEntry
	mu          sync.RWMutex
	ch          chan eventEnvelope
	wg          sync.WaitGroup
	closed      atomic.Bool
	logger      logging.Logger
	nextID      atomic.Uint64
	stopping    chan struct{} // releases publishers blocked on a full buffer
	sendMu      sync.RWMutex  // held shared by publishers while they enqueue
	done        chan struct{} // signals dispatcher goroutine to stop
	drained     chan struct{} // closed when the dispatcher has returned
}

type eventEnvelope struct {
	ctx   context.Context
	event event.Event
}

type subscriberEntry struct {
	id      uint64
	handler event.Handler
}

// subscription implements event.Subscription.
type subscription struct {
	bus   *eventBus
	topic string
	id    uint64
}

func (s *subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	subs := s.bus.subscribers[s.topic]
	for i, entry := range subs {
		if entry.id == s.id {
			s.bus.subscribers[s.topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// NewEventBus creates a new event.Bus with the given buffer size.
func NewEventBus(bufferSize int, logger logging.Logger) event.Bus {
	return newEventBus(bufferSize, logger)
}

func newEventBus(bufferSize int, logger logging.Logger) *eventBus {
	if bufferSize <= 0 {
		bufferSize = defaultEventBuffer
	}
	bus := &eventBus{
		subscribers: make(map[string][]subscriberEntry),
		ch:          make(chan eventEnvelope, bufferSize),
		logger:      logging.OrNop(logger).Named("event_bus"),
		stopping:    make(chan struct{}),
		done:        make(chan struct{}),
		drained:     make(chan struct{}),
	}

	go bus.dispatch()
	return bus
}

func (b *eventBus) dispatch() {
	defer close(b.drained)

	for {
		select {
		case env := <-b.ch:
			b.fanOut(env)
		case <-b.done:
			// Drain remaining events in channel
			for {
				select {
				case env := <-b.ch:
					b.fanOut(env)
				default:
					return
				}
			}
		}
	}
}

func (b *eventBus) fanOut(env eventEnvelope) {
	b.mu.RLock()
	subs := append([]subscriberEntry{}, b.subscribers[env.event.Name]...)
	b.mu.RUnlock()

	for _, entry := range subs {
		b.wg.Add(1)
		go func(h event.Handler) {
			defer b.wg.Done()
			if err := h(env.ctx, env.event); err != nil {
				b.logger.Warn("event handler error",
					zap.String("event", env.event.Name),
					zap.Error(err))
			}
		}(entry.handler)
	}
}

// Publish sends an event. Blocks until buffer has space or ctx expires.
// An event accepted by Publish is always delivered before Close returns.
func (b *eventBus) Publish(ctx context.Context, e event.Event) error {
	b.sendMu.RLock()
	defer b.sendMu.RUnlock()

	if b.closed.Load() {
		return event.ErrBusClosed
	}

	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	env := eventEnvelope{ctx: ctx, event: e}

	select {
	case b.ch <- env:
		return nil
	case <-b.stopping:
		return event.ErrBusClosed
	default:
		// Buffer full -- block with backpressure
		select {
		case b.ch <- env:
			return nil
		case <-b.stopping:
			return event.ErrBusClosed
		case <-ctx.Done():
			return event.ErrPublishTimeout
		}
	}
}

// Subscribe registers a handler for a topic.
func (b *eventBus) Subscribe(topic string, handler event.Handler) event.Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID.Add(1)
	b.subscribers[topic] = append(b.subscribers[topic], subscriberEntry{
		id:      id,
		handler: handler,
	})

	return &subscription{bus: b, topic: topic, id: id}
}

// Close stops accepting new events, drains pending, and waits for in-flight handlers.
func (b *eventBus) Close() error {
	if b.closed.Swap(true) {
		return nil // already closed
	}

	close(b.stopping)
	// Wait out publishers that are mid-send so nothing lands in the
	// buffer after the dispatcher's final drain.
	b.sendMu.Lock()
	b.sendMu.Unlock()

	close(b.done) // signal dispatcher to drain and stop
	<-b.drained   // every queued event has been fanned out
	b.wg.Wait()   // wait for in-flight handlers
	return nil
}
