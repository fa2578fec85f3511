package chat

import (
	"sync"

	"github.com/dromero/tienda-server/internal/domain"
)

// Broker fans the conversation log out to live subscribers. Every published
// change delivers the full ordered message snapshot, matching the snapshot
// model the chat widget renders from.
type Broker struct {
	mu     sync.Mutex
	nextID int64
	subs   map[int64]chan []domain.ChatMessage
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[int64]chan []domain.ChatMessage)}
}

// Subscribe registers an observer. The returned cancel function must be
// called when the observer goes away; after cancel the channel is closed.
func (b *Broker) Subscribe() (<-chan []domain.ChatMessage, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	// Buffer one snapshot so a slow reader holds at most the latest state.
	ch := make(chan []domain.ChatMessage, 1)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the snapshot to all subscribers. A subscriber that has not
// drained its previous snapshot is skipped after the stale one is replaced:
// only the latest snapshot matters.
func (b *Broker) Publish(snapshot []domain.ChatMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- snapshot:
		default:
			// Drop the stale snapshot and install the fresh one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

// SubscriberCount reports the number of live subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
