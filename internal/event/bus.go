// Package event provides the tenant-scoped session event bus using watermill.
package event

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/DFN-master/izing-main/pkg/types"
)

// Event is one session-lifecycle notification on a tenant channel.
type Event struct {
	Channel string             `json:"channel"`
	Payload types.SessionEvent `json:"payload"`
}

// Subscriber is a function that receives events. Subscribers are called in
// the publisher's goroutine and must return quickly; hand the event to a
// buffered channel with a non-blocking send when real work is involved.
type Subscriber func(event Event)

// subscriberEntry wraps a subscriber with an ID.
type subscriberEntry struct {
	id uint64
	fn Subscriber
}

// Bus fans session events out to channel-scoped and global subscribers. It
// publishes every event into a watermill gochannel as well, so consumers that
// want middleware or a future distributed backend can subscribe through
// PubSub instead.
type Bus struct {
	mu sync.RWMutex

	pubsub *gochannel.GoChannel

	subscribers map[string][]subscriberEntry
	global      []subscriberEntry

	nextID uint64
	closed bool
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer: 100,
				Persistent:          false,
			},
			watermill.NopLogger{},
		),
		subscribers: make(map[string][]subscriberEntry),
	}
}

// ChannelFor returns the session event channel for a tenant.
func ChannelFor(tenantID int) string {
	return fmt.Sprintf("%d:whatsappSession", tenantID)
}

// Emit publishes a session event on the tenant's channel. Delivery to
// subscribers is synchronous, so an emit that follows a record update is
// observed after that update. The payload carries a snapshot of the record
// taken here; the live record keeps mutating on later transitions, and
// subscribers hand events to other goroutines.
func (b *Bus) Emit(tenantID int, action string, session *types.Account) {
	b.publish(Event{
		Channel: ChannelFor(tenantID),
		Payload: types.SessionEvent{Action: action, Session: session.Clone()},
	})
}

func (b *Bus) publish(e Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	subs := make([]Subscriber, 0, len(b.subscribers[e.Channel])+len(b.global))
	for _, entry := range b.subscribers[e.Channel] {
		subs = append(subs, entry.fn)
	}
	for _, entry := range b.global {
		subs = append(subs, entry.fn)
	}
	b.mu.RUnlock()

	if data, err := json.Marshal(e); err == nil {
		_ = b.pubsub.Publish(e.Channel, message.NewMessage(watermill.NewUUID(), data))
	}

	for _, fn := range subs {
		fn(e)
	}
}

// Subscribe registers a subscriber for one tenant channel.
// Returns an unsubscribe function.
func (b *Bus) Subscribe(channel string, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	id := atomic.AddUint64(&b.nextID, 1)
	b.subscribers[channel] = append(b.subscribers[channel], subscriberEntry{id: id, fn: fn})

	return func() {
		b.unsubscribe(channel, id)
	}
}

// SubscribeAll registers a subscriber for every channel.
// Returns an unsubscribe function.
func (b *Bus) SubscribeAll(fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	id := atomic.AddUint64(&b.nextID, 1)
	b.global = append(b.global, subscriberEntry{id: id, fn: fn})

	return func() {
		b.unsubscribeGlobal(id)
	}
}

func (b *Bus) unsubscribe(channel string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[channel]
	for i, entry := range subs {
		if entry.id == id {
			b.subscribers[channel] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

func (b *Bus) unsubscribeGlobal(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, entry := range b.global {
		if entry.id == id {
			b.global = append(b.global[:i], b.global[i+1:]...)
			break
		}
	}
}

// Close closes the bus and drops all subscribers.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.subscribers = make(map[string][]subscriberEntry)
	b.global = nil
	b.mu.Unlock()

	return b.pubsub.Close()
}

// PubSub returns the underlying watermill GoChannel for advanced use cases
// such as middleware or switching to a distributed backend.
func (b *Bus) PubSub() *gochannel.GoChannel {
	return b.pubsub
}
