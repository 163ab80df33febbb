package realtime

import "sync"

// Broker fans reservation change events out to in-process subscribers:
// the websocket hub and any admin mirror running in the same process.
type Broker struct {
	mu     sync.RWMutex
	nextID int64
	subs   map[int64]chan Event
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[int64]chan Event)}
}

// Subscribe returns a buffered event channel and a cancel function. The
// channel is closed on cancel, or by Publish when the subscriber's buffer
// overflows; a closed feed means events may have been missed and the
// consumer must re-sync from the store before trusting a new subscription.
func (b *Broker) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(existing)
		}
	}
	return ch, cancel
}

// Publish sends ev to every subscriber without blocking. A subscriber whose
// buffer is full has already missed the freshest state for some id, and a
// feed with a silent gap cannot be trusted: the subscriber is evicted and
// its channel closed so it re-syncs instead of serving stale rows as
// current.
func (b *Broker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			delete(b.subs, id)
			close(ch)
		}
	}
}
