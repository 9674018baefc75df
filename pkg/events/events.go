// Package events implements a small in-memory pub/sub broker nodectl and
// other in-process watchers use to observe role lifecycle and show-session
// activity without polling. It is the same buffered-channel broadcast
// broker the teacher uses for cluster events, repointed at this domain's
// own event types.
package events

import (
	"sync"
	"time"

	"github.com/chronodb/nodecore/pkg/types"
)

// EventType identifies the kind of node-management event.
type EventType string

const (
	EventRoleOpened       EventType = "role.opened"
	EventRoleClosed       EventType = "role.closed"
	EventRoleCreated      EventType = "role.created"
	EventRoleDropped      EventType = "role.dropped"
	EventShowEvicted      EventType = "show.session.evicted"
	EventDispatchRejected EventType = "dispatch.rejected"
)

// Event is one published occurrence.
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Role      types.RoleKind
	Message   string
	Metadata  map[string]string
}

// Subscriber is a channel that receives events.
type Subscriber chan *Event

// Broker distributes published events to every current subscriber.
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
}

// NewBroker builds a Broker with a 100-event publish buffer.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 100),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's distribution loop.
func (b *Broker) Start() {
	go b.run()
}

// Stop halts distribution; published events after Stop are dropped.
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe returns a new 50-event-buffered channel of future events.
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes and closes sub.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	close(sub)
}

// Publish queues event for delivery to every current subscriber.
func (b *Broker) Publish(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
		}
	}
}

// SubscriberCount reports how many subscribers are currently active.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
