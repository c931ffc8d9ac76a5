package notifications

import (
	"sync"

	"pressroom/internal/observability"
)

const defaultSubscriptionBuffer = 16

// Subscription receives the events of one post until Close.
type Subscription struct {
	// C is closed by Close.
	C <-chan Event

	postID uint
	ch     chan Event
	broker *Broker
	once   sync.Once
}

// PostID returns the post this subscription follows.
func (s *Subscription) PostID() uint { return s.postID }

// Close stops delivery and closes C. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.broker.remove(s) })
}

// Broker fans events out to the in-process subscribers of each post.
// Delivery never blocks: a subscriber whose buffer is full misses the event.
type Broker struct {
	mu     sync.RWMutex
	subs   map[uint]map[*Subscription]struct{}
	buffer int
}

// NewBroker creates a Broker whose subscriptions buffer up to buffer events.
func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = defaultSubscriptionBuffer
	}
	return &Broker{
		subs:   make(map[uint]map[*Subscription]struct{}),
		buffer: buffer,
	}
}

func (b *Broker) Subscribe(postID uint) *Subscription {
	ch := make(chan Event, b.buffer)
	sub := &Subscription{C: ch, postID: postID, ch: ch, broker: b}

	b.mu.Lock()
	m, ok := b.subs[postID]
	if !ok {
		m = make(map[*Subscription]struct{})
		b.subs[postID] = m
	}
	m[sub] = struct{}{}
	b.mu.Unlock()

	observability.FeedSubscribers.Inc()
	return sub
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	if m, ok := b.subs[sub.postID]; ok {
		delete(m, sub)
		if len(m) == 0 {
			delete(b.subs, sub.postID)
		}
	}
	close(sub.ch)
	b.mu.Unlock()

	observability.FeedSubscribers.Dec()
}

// Deliver hands ev to every subscriber of ev.PostID and returns how many
// received it.
func (b *Broker) Deliver(ev Event) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for sub := range b.subs[ev.PostID] {
		select {
		case sub.ch <- ev:
			delivered++
		default:
			observability.FeedDrops.WithLabelValues("subscriber_full").Inc()
		}
	}
	return delivered
}

// Subscribers returns the number of open subscriptions for postID.
func (b *Broker) Subscribers(postID uint) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[postID])
}
