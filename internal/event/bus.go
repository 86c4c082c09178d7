package event

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

const subscriberBuffer = 32

type subscriber struct {
	ch    chan Event
	types []Type
}

func (s subscriber) wants(typ Type) bool {
	return len(s.types) == 0 || slices.Contains(s.types, typ)
}

// InMemoryBus fans session events out to subscribers within the process.
type InMemoryBus struct {
	mu          sync.RWMutex
	subscribers map[string]subscriber
}

func NewBus() *InMemoryBus {
	return &InMemoryBus{
		subscribers: make(map[string]subscriber),
	}
}

// New stamps an event with an ID and the current time.
func New(typ Type, actorID string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		ActorID:   actorID,
	}
}

func (b *InMemoryBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, sub := range b.subscribers {
		if !sub.wants(e.Type) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			slog.Warn("session event dropped", "subscriber", id, "type", string(e.Type))
		}
	}
}

// Subscribe delivers events of the given types, or all events when none are
// given. Publishing never blocks: a full subscriber misses events.
func (b *InMemoryBus) Subscribe(types ...Type) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan Event, subscriberBuffer)
	b.subscribers[id] = subscriber{ch: ch, types: slices.Clone(types)}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subscribers, id)
			close(ch)
		})
	}

	return ch, unsubscribe
}
