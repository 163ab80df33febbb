package adminview

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tourmarket/internal/domain"
	"tourmarket/internal/realtime"
	"tourmarket/internal/repository"
)

type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateSynced       ConnState = "synced"
	StateReconnecting ConnState = "reconnecting"
)

// Row is one reservation as the staff list shows it: the record itself plus
// display names resolved from the lookup cache.
type Row struct {
	domain.Reservation
	ServiceName   string `json:"service_name,omitempty"`
	RequesterName string `json:"requester_name,omitempty"`
}

// Loader performs the initial full read, reporting which query shape
// actually served the data.
type Loader interface {
	LoadReservations(ctx context.Context) ([]repository.AdminReservationRow, string, error)
}

// Subscriber opens a live event feed. The returned channel closes when the
// underlying transport is no longer trusted; events from a closed feed are
// never applied.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan realtime.Event, error)
}

// LookupCache resolves display names for foreign ids. A miss is normal and
// must return fast; the mirror substitutes a placeholder.
type LookupCache interface {
	ServiceName(ctx context.Context, id int64) (string, bool)
	RequesterName(ctx context.Context, id int64) (string, bool)
}

type entry struct {
	row     Row
	seq     int64
	arrival int64
}

// Mirror keeps a client-local snapshot of reservations consistent with
// server-side mutations without full reloads. Per id, the event with the
// higher server-assigned sequence wins; out-of-order delivery can never
// regress a fresher local state. Across ids no ordering is guaranteed or
// needed.
type Mirror struct {
	loader       Loader
	sub          Subscriber
	lookups      LookupCache
	reconnectMin time.Duration
	reconnectMax time.Duration
	loggerf      func(format string, args ...interface{})

	mu         sync.RWMutex
	state      ConnState
	staleSince *time.Time
	shape      string
	entries    map[int64]entry
	arrival    int64
}

func NewMirror(loader Loader, sub Subscriber, lookups LookupCache, loggerf func(format string, args ...interface{})) *Mirror {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Mirror{
		loader:       loader,
		sub:          sub,
		lookups:      lookups,
		reconnectMin: time.Second,
		reconnectMax: 30 * time.Second,
		loggerf:      loggerf,
		state:        StateDisconnected,
		entries:      make(map[int64]entry),
	}
}

// Run drives the connection state machine until ctx is cancelled:
// disconnected -> connecting -> synced -> {reconnecting -> synced | done}.
// Every (re)connection re-seeds the snapshot via LoadInitial first, because
// the live feed gives no delivery guarantee across a connection gap.
func (m *Mirror) Run(ctx context.Context) {
	backoff := m.reconnectMin
	first := true

	for {
		if ctx.Err() != nil {
			m.setState(StateDisconnected)
			return
		}

		if first {
			m.setState(StateConnecting)
		} else {
			m.setState(StateReconnecting)
		}

		events, err := m.sub.Subscribe(ctx)
		if err == nil {
			err = m.LoadInitial(ctx)
		}
		if err != nil {
			m.loggerf("level=warn msg=mirror sync failed backoff=%s err=%v", backoff, err)
			select {
			case <-ctx.Done():
				m.setState(StateDisconnected)
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > m.reconnectMax {
				backoff = m.reconnectMax
			}
			first = false
			continue
		}

		m.setState(StateSynced)
		backoff = m.reconnectMin
		first = false

		for ev := range events {
			m.ApplyEvent(ev)
		}

		// Feed lost: the view is stale from this moment until the next
		// successful reload.
		m.markStale()
		m.loggerf("level=warn msg=mirror feed lost, reconnecting")
	}
}

// LoadInitial replaces the snapshot with a fresh full read (bounded by the
// admin window) and clears the staleness marker.
func (m *Mirror) LoadInitial(ctx context.Context) error {
	rows, shape, err := m.loader.LoadReservations(ctx)
	if err != nil {
		return fmt.Errorf("initial load: %w", err)
	}

	fresh := make(map[int64]entry, len(rows))
	var arrival int64
	for _, ar := range rows {
		row := Row{Reservation: ar.Reservation(), ServiceName: ar.ServiceName}
		m.ReconcileDependentLookups(ctx, &row)
		arrival++
		fresh[ar.ID] = entry{row: row, seq: ar.Version, arrival: arrival}
	}

	m.mu.Lock()
	m.entries = fresh
	m.arrival = arrival
	m.shape = shape
	m.staleSince = nil
	m.mu.Unlock()
	return nil
}

// ApplyEvent folds one change notification into the snapshot under the
// per-id last-writer-wins rule. An update for an unknown id is an insert;
// a delete for an unknown id is already consistent.
func (m *Mirror) ApplyEvent(ev realtime.Event) {
	if ev.Op == realtime.OpDelete {
		m.mu.Lock()
		if cur, ok := m.entries[ev.Record.ID]; ok && ev.Sequence >= cur.seq {
			delete(m.entries, ev.Record.ID)
		}
		m.mu.Unlock()
		return
	}

	// Resolve names outside the lock; a slow lookup must never delay the
	// reservation's own fields for other readers.
	row := Row{Reservation: ev.Record}
	m.ReconcileDependentLookups(context.Background(), &row)

	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.entries[ev.Record.ID]
	if ok && ev.Sequence <= cur.seq {
		// Stale event arrived late; the local state is fresher.
		return
	}

	arrival := cur.arrival
	if !ok {
		m.arrival++
		arrival = m.arrival
	}
	m.entries[ev.Record.ID] = entry{row: row, seq: ev.Sequence, arrival: arrival}
}

// ReconcileDependentLookups fills display names from the cache, falling
// back to placeholder labels instead of blocking on a slow or unavailable
// secondary source.
func (m *Mirror) ReconcileDependentLookups(ctx context.Context, row *Row) {
	if row.ServiceName == "" {
		if m.lookups != nil {
			if name, ok := m.lookups.ServiceName(ctx, row.ServiceID); ok {
				row.ServiceName = name
			}
		}
		if row.ServiceName == "" {
			row.ServiceName = fmt.Sprintf("%s-%d", row.ServiceType, row.ServiceID)
		}
	}

	if row.RequesterName == "" {
		if m.lookups != nil {
			if name, ok := m.lookups.RequesterName(ctx, row.UserID); ok {
				row.RequesterName = name
			}
		}
		if row.RequesterName == "" {
			row.RequesterName = fmt.Sprintf("user-%d", row.UserID)
		}
	}
}

func (m *Mirror) setState(s ConnState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Mirror) markStale() {
	now := time.Now().UTC()
	m.mu.Lock()
	m.state = StateReconnecting
	if m.staleSince == nil {
		m.staleSince = &now
	}
	m.mu.Unlock()
}

func (m *Mirror) State() ConnState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// StaleSince reports when the live feed was lost, or nil while the view is
// current.
func (m *Mirror) StaleSince() *time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.staleSince == nil {
		return nil
	}
	t := *m.staleSince
	return &t
}

// Shape reports which read shape served the last initial load, so the view
// can hide fields it never received.
func (m *Mirror) Shape() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.shape
}

func (m *Mirror) Get(id int64) (Row, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	return e.row, ok
}

// Rows returns the snapshot in arrival order.
func (m *Mirror) Rows() []Row {
	m.mu.RLock()
	defer m.mu.RUnlock()

	es := make([]entry, 0, len(m.entries))
	for _, e := range m.entries {
		es = append(es, e)
	}
	sort.Slice(es, func(i, j int) bool { return es[i].arrival < es[j].arrival })

	out := make([]Row, 0, len(es))
	for _, e := range es {
		out = append(out, e.row)
	}
	return out
}
