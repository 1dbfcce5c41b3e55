package pubsub

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/rudra1in/facultyapp-sub000/internal/logger"
)

var log = logger.New("pubsub")

const defaultBuffer = 64

// Relay carries events between bus instances running in different processes.
type Relay interface {
	// Publish forwards a locally published event to the other instances.
	Publish(ctx context.Context, e *Event) error
	// Start begins delivering remote events to deliver until ctx is done.
	Start(ctx context.Context, deliver func(*Event)) error
	Close() error
}

// Subscription is one registration on a topic. Events arrive on C until the
// subscription is cancelled or evicted, at which point C is closed.
type Subscription struct {
	id    uint64
	topic string
	ch    chan *Event
	bus   *Bus
}

// C returns the delivery channel
func (s *Subscription) C() <-chan *Event {
	return s.ch
}

// Topic returns the subscribed topic
func (s *Subscription) Topic() string {
	return s.topic
}

// Cancel stops delivery and releases the registration. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.bus.remove(s)
}

// Bus fans events out to the subscribers of a topic.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]*Subscription
	nextID uint64
	buffer int
	origin string
	relay  Relay
}

// Option configures a Bus
type Option func(*Bus)

// WithBuffer sets the per-subscription channel capacity
func WithBuffer(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// WithRelay attaches a cross-instance relay
func WithRelay(r Relay) Option {
	return func(b *Bus) {
		b.relay = r
	}
}

// NewBus creates a bus with no subscribers
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		subs:   make(map[string]map[uint64]*Subscription),
		buffer: defaultBuffer,
		origin: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Origin returns the id stamped on events published by this bus
func (b *Bus) Origin() string {
	return b.origin
}

// Start connects the relay, if any, so remote events reach local subscribers.
func (b *Bus) Start(ctx context.Context) error {
	if b.relay == nil {
		return nil
	}
	return b.relay.Start(ctx, func(e *Event) {
		if e.Origin == b.origin {
			return
		}
		b.deliver(e)
	})
}

// Subscribe registers a new subscription on topic
func (b *Bus) Subscribe(topic string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	s := &Subscription{
		id:    b.nextID,
		topic: topic,
		ch:    make(chan *Event, b.buffer),
		bus:   b,
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]*Subscription)
	}
	b.subs[topic][s.id] = s
	log.Debug("subscribed #%d to %s", s.id, topic)
	return s
}

// Publish delivers e to local subscribers and forwards it through the relay.
func (b *Bus) Publish(ctx context.Context, e *Event) {
	if e.Origin == "" {
		e.Origin = b.origin
	}
	b.deliver(e)

	if b.relay != nil {
		if err := b.relay.Publish(ctx, e); err != nil {
			log.Warn("relay publish of %s on %s failed: %v", e.Type, e.Topic, err)
		}
	}
}

// Subscribers returns the number of live subscriptions on topic
func (b *Bus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

func (b *Bus) deliver(e *Event) {
	var slow []*Subscription

	b.mu.RLock()
	for _, s := range b.subs[e.Topic] {
		select {
		case s.ch <- e:
		default:
			slow = append(slow, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range slow {
		log.Warn("subscriber #%d on %s is not keeping up, evicting", s.id, s.topic)
		b.remove(s)
	}
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	topicSubs, ok := b.subs[s.topic]
	if !ok {
		return
	}
	if _, ok := topicSubs[s.id]; !ok {
		return
	}
	delete(topicSubs, s.id)
	if len(topicSubs) == 0 {
		delete(b.subs, s.topic)
	}
	close(s.ch)
	log.Debug("unsubscribed #%d from %s", s.id, s.topic)
}

// Close cancels every subscription and closes the relay
func (b *Bus) Close() error {
	b.mu.Lock()
	for topic, topicSubs := range b.subs {
		for _, s := range topicSubs {
			close(s.ch)
		}
		delete(b.subs, topic)
	}
	b.mu.Unlock()

	if b.relay != nil {
		return b.relay.Close()
	}
	return nil
}
