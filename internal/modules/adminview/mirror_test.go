package adminview

import (
	"context"
	"sync"
	"testing"
	"time"

	"tourmarket/internal/domain"
	"tourmarket/internal/realtime"
	"tourmarket/internal/repository"

	"github.com/stretchr/testify/assert"
)

type stubLoader struct {
	mu    sync.Mutex
	rows  []repository.AdminReservationRow
	shape string
	err   error
	calls int
}

func (l *stubLoader) LoadReservations(ctx context.Context) ([]repository.AdminReservationRow, string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return nil, "", l.err
	}
	return l.rows, l.shape, nil
}

func (l *stubLoader) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func (l *stubLoader) setRows(rows []repository.AdminReservationRow, shape string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = rows
	l.shape = shape
}

type stubSubscriber struct {
	mu    sync.Mutex
	feeds []chan realtime.Event
}

func (s *stubSubscriber) Subscribe(ctx context.Context) (<-chan realtime.Event, error) {
	ch := make(chan realtime.Event, 16)
	s.mu.Lock()
	s.feeds = append(s.feeds, ch)
	s.mu.Unlock()
	return ch, nil
}

func (s *stubSubscriber) current() chan realtime.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.feeds) == 0 {
		return nil
	}
	return s.feeds[len(s.feeds)-1]
}

func (s *stubSubscriber) feedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.feeds)
}

type mapLookups struct {
	services map[int64]string
	users    map[int64]string
}

func (m *mapLookups) ServiceName(ctx context.Context, id int64) (string, bool) {
	name, ok := m.services[id]
	return name, ok
}

func (m *mapLookups) RequesterName(ctx context.Context, id int64) (string, bool) {
	name, ok := m.users[id]
	return name, ok
}

func adminRow(id int64, status domain.ReservationStatus, version int64) repository.AdminReservationRow {
	return repository.AdminReservationRow{
		ID:          id,
		ServiceType: string(domain.ServiceCircuit),
		ServiceID:   7,
		UserID:      101,
		PartySize:   2,
		Amount:      2400,
		Currency:    "USD",
		Status:      string(status),
		Version:     version,
	}
}

func event(op realtime.Op, id, seq int64, status domain.ReservationStatus) realtime.Event {
	return realtime.Event{
		Op: op,
		Record: domain.Reservation{
			ID: id, ServiceType: domain.ServiceCircuit, ServiceID: 7, UserID: 101,
			PartySize: 2, Amount: 2400, Currency: "USD", Status: status, Version: seq,
		},
		Sequence: seq,
	}
}

func TestLoadInitial_SeedsSnapshot(t *testing.T) {
	loader := &stubLoader{
		rows:  []repository.AdminReservationRow{adminRow(1, domain.ReservationPending, 1), adminRow(2, domain.ReservationConfirmed, 3)},
		shape: repository.ShapeFull,
	}
	m := NewMirror(loader, nil, nil, nil)

	assert.NoError(t, m.LoadInitial(context.Background()))

	assert.Len(t, m.Rows(), 2)
	assert.Equal(t, repository.ShapeFull, m.Shape())
	assert.Nil(t, m.StaleSince())

	row, ok := m.Get(1)
	assert.True(t, ok)
	assert.Equal(t, domain.ReservationPending, row.Status)
}

func TestLoadInitial_PlaceholderLookupsWithoutCache(t *testing.T) {
	loader := &stubLoader{rows: []repository.AdminReservationRow{adminRow(1, domain.ReservationPending, 1)}, shape: repository.ShapeMinimal}
	m := NewMirror(loader, nil, nil, nil)

	assert.NoError(t, m.LoadInitial(context.Background()))

	row, _ := m.Get(1)
	assert.Equal(t, "circuit-7", row.ServiceName)
	assert.Equal(t, "user-101", row.RequesterName)
}

func TestLoadInitial_ResolvedLookups(t *testing.T) {
	loader := &stubLoader{rows: []repository.AdminReservationRow{adminRow(1, domain.ReservationPending, 1)}, shape: repository.ShapeMinimal}
	lookups := &mapLookups{
		services: map[int64]string{7: "Atlas Foothills Circuit"},
		users:    map[int64]string{101: "Imane B."},
	}
	m := NewMirror(loader, nil, lookups, nil)

	assert.NoError(t, m.LoadInitial(context.Background()))

	row, _ := m.Get(1)
	assert.Equal(t, "Atlas Foothills Circuit", row.ServiceName)
	assert.Equal(t, "Imane B.", row.RequesterName)
}

func TestApplyEvent_LastWriterWinsPerID(t *testing.T) {
	m := NewMirror(&stubLoader{}, nil, nil, nil)

	m.ApplyEvent(event(realtime.OpInsert, 1, 3, domain.ReservationConfirmed))

	// A late event with a lower sequence must not regress the row.
	m.ApplyEvent(event(realtime.OpUpdate, 1, 2, domain.ReservationAwaitingPayment))
	row, _ := m.Get(1)
	assert.Equal(t, domain.ReservationConfirmed, row.Status)

	// Same sequence is not fresher either.
	m.ApplyEvent(event(realtime.OpUpdate, 1, 3, domain.ReservationAwaitingPayment))
	row, _ = m.Get(1)
	assert.Equal(t, domain.ReservationConfirmed, row.Status)

	// A genuinely fresher event applies.
	m.ApplyEvent(event(realtime.OpUpdate, 1, 4, domain.ReservationCompleted))
	row, _ = m.Get(1)
	assert.Equal(t, domain.ReservationCompleted, row.Status)
}

func TestApplyEvent_UpdateForUnknownIDInserts(t *testing.T) {
	m := NewMirror(&stubLoader{}, nil, nil, nil)

	m.ApplyEvent(event(realtime.OpUpdate, 9, 5, domain.ReservationAwaitingPayment))

	row, ok := m.Get(9)
	assert.True(t, ok)
	assert.Equal(t, domain.ReservationAwaitingPayment, row.Status)
}

func TestApplyEvent_DeleteForUnknownIDIsNoop(t *testing.T) {
	m := NewMirror(&stubLoader{}, nil, nil, nil)

	m.ApplyEvent(event(realtime.OpDelete, 9, 5, domain.ReservationCancelled))

	assert.Empty(t, m.Rows())
}

func TestApplyEvent_StaleDeleteIgnored(t *testing.T) {
	m := NewMirror(&stubLoader{}, nil, nil, nil)

	m.ApplyEvent(event(realtime.OpInsert, 1, 4, domain.ReservationConfirmed))
	m.ApplyEvent(event(realtime.OpDelete, 1, 3, domain.ReservationCancelled))

	_, ok := m.Get(1)
	assert.True(t, ok)

	m.ApplyEvent(event(realtime.OpDelete, 1, 5, domain.ReservationCancelled))
	_, ok = m.Get(1)
	assert.False(t, ok)
}

func TestApplyEvent_IndependentIDs(t *testing.T) {
	m := NewMirror(&stubLoader{}, nil, nil, nil)

	// Events for different ids carry unrelated sequences; one id's high
	// sequence never blocks another id's low one.
	m.ApplyEvent(event(realtime.OpInsert, 1, 40, domain.ReservationConfirmed))
	m.ApplyEvent(event(realtime.OpInsert, 2, 1, domain.ReservationPending))

	assert.Len(t, m.Rows(), 2)
	row, _ := m.Get(2)
	assert.Equal(t, domain.ReservationPending, row.Status)
}

func TestRows_ArrivalOrder(t *testing.T) {
	m := NewMirror(&stubLoader{}, nil, nil, nil)

	m.ApplyEvent(event(realtime.OpInsert, 3, 1, domain.ReservationPending))
	m.ApplyEvent(event(realtime.OpInsert, 1, 1, domain.ReservationPending))
	m.ApplyEvent(event(realtime.OpInsert, 2, 1, domain.ReservationPending))
	// An update keeps the row's original position.
	m.ApplyEvent(event(realtime.OpUpdate, 3, 2, domain.ReservationConfirmed))

	rows := m.Rows()
	assert.Equal(t, []int64{3, 1, 2}, []int64{rows[0].ID, rows[1].ID, rows[2].ID})
	assert.Equal(t, domain.ReservationConfirmed, rows[0].Status)
}

func TestRun_ReloadsAfterFeedLoss(t *testing.T) {
	loader := &stubLoader{rows: []repository.AdminReservationRow{adminRow(1, domain.ReservationPending, 1)}, shape: repository.ShapeFull}
	sub := &stubSubscriber{}
	m := NewMirror(loader, sub, nil, nil)
	m.reconnectMin = time.Millisecond
	m.reconnectMax = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	waitFor(t, func() bool { return m.State() == StateSynced })
	assert.Equal(t, 1, loader.callCount())

	// A live event lands in the snapshot.
	sub.current() <- event(realtime.OpUpdate, 1, 2, domain.ReservationAwaitingPayment)
	waitFor(t, func() bool {
		row, _ := m.Get(1)
		return row.Status == domain.ReservationAwaitingPayment
	})

	// Losing the feed forces a resubscribe plus a fresh full load.
	close(sub.current())
	waitFor(t, func() bool { return sub.feedCount() == 2 && loader.callCount() == 2 && m.State() == StateSynced })
	assert.Nil(t, m.StaleSince())

	// The reload replaced the snapshot wholesale.
	row, _ := m.Get(1)
	assert.Equal(t, domain.ReservationPending, row.Status)

	cancel()
	close(sub.current())
	<-done
	assert.Equal(t, StateDisconnected, m.State())
}

// tinyBufferSubscriber subscribes to a real broker with a one-slot buffer,
// so a consumer stalled on one event overflows on the next publishes.
type tinyBufferSubscriber struct {
	broker *realtime.Broker
}

func (s *tinyBufferSubscriber) Subscribe(ctx context.Context) (<-chan realtime.Event, error) {
	events, cancel := s.broker.Subscribe(1)
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return events, nil
}

// gatedLookups blocks name resolution until the gate opens, pinning the
// mirror mid-ApplyEvent so the test controls when it falls behind the feed.
type gatedLookups struct {
	gate chan struct{}
}

func (g *gatedLookups) ServiceName(ctx context.Context, id int64) (string, bool) {
	<-g.gate
	return "", false
}

func (g *gatedLookups) RequesterName(ctx context.Context, id int64) (string, bool) {
	return "", false
}

func TestRun_BackloggedFeedForcesResync(t *testing.T) {
	broker := realtime.NewBroker()
	loader := &stubLoader{shape: repository.ShapeFull}
	gate := make(chan struct{})
	m := NewMirror(loader, &tinyBufferSubscriber{broker: broker}, &gatedLookups{gate: gate}, nil)
	m.reconnectMin = time.Millisecond
	m.reconnectMax = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)
	waitFor(t, func() bool { return m.State() == StateSynced })

	// The mirror stalls on the first event while the record keeps changing
	// server-side. With a one-slot buffer the feed cannot absorb the burst,
	// so the broker must close it rather than leave a silent gap.
	for seq := int64(1); seq <= 5; seq++ {
		broker.Publish(event(realtime.OpUpdate, 1, seq, domain.ReservationAwaitingPayment))
	}

	// The store is at sequence 5; the next full load reflects it.
	loader.setRows([]repository.AdminReservationRow{adminRow(1, domain.ReservationConfirmed, 5)}, repository.ShapeFull)
	close(gate)

	waitFor(t, func() bool {
		row, ok := m.Get(1)
		return ok && row.Status == domain.ReservationConfirmed && m.State() == StateSynced
	})
	assert.Equal(t, 2, loader.callCount())
	assert.Nil(t, m.StaleSince())
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
