package realtime

import (
	"testing"

	"tourmarket/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestBroker_FanOut(t *testing.T) {
	b := NewBroker()

	a, cancelA := b.Subscribe(4)
	defer cancelA()
	c, cancelC := b.Subscribe(4)
	defer cancelC()

	ev := Event{Op: OpInsert, Record: domain.Reservation{ID: 1, Version: 1}, Sequence: 1}
	b.Publish(ev)

	assert.Equal(t, ev, <-a)
	assert.Equal(t, ev, <-c)
}

func TestBroker_CancelClosesChannel(t *testing.T) {
	b := NewBroker()

	ch, cancel := b.Subscribe(1)
	cancel()
	cancel() // repeated cancel is safe

	_, open := <-ch
	assert.False(t, open)

	// Publishing after cancel must not panic on the closed channel.
	b.Publish(Event{Op: OpUpdate, Sequence: 2})
}

func TestBroker_OverflowEvictsSubscriber(t *testing.T) {
	b := NewBroker()

	slow, cancelSlow := b.Subscribe(1)
	fast, cancelFast := b.Subscribe(4)
	defer cancelFast()

	for i := int64(1); i <= 3; i++ {
		b.Publish(Event{Op: OpUpdate, Record: domain.Reservation{ID: 1, Version: i}, Sequence: i})
	}

	// The overflowed subscriber drains what its buffer held and then finds
	// the feed closed, which is its signal to re-sync from the store.
	assert.Equal(t, int64(1), (<-slow).Sequence)
	_, open := <-slow
	assert.False(t, open)

	// Cancelling after eviction is a no-op, not a double close.
	cancelSlow()

	// Publishing keeps working for subscribers that kept up.
	b.Publish(Event{Op: OpUpdate, Record: domain.Reservation{ID: 1, Version: 4}, Sequence: 4})
	assert.Equal(t, int64(1), (<-fast).Sequence)
	assert.Equal(t, int64(2), (<-fast).Sequence)
	assert.Equal(t, int64(3), (<-fast).Sequence)
	assert.Equal(t, int64(4), (<-fast).Sequence)
}
