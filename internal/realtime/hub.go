package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // Allow all origins (configure in prod)
}

// session is one connected admin feed client.
type session struct {
	id   int64
	conn *websocket.Conn
	send chan []byte
}

// Hub pushes reservation change events to connected admin sessions. It is
// fed from the Broker and never reads domain data itself.
type Hub struct {
	mu       sync.RWMutex
	nextID   int64
	sessions map[int64]*session
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[int64]*session)}
}

// Run consumes events until the feed closes, then disconnects every
// session. A closed feed means events may have been missed; clients that
// reconnect start from a fresh initial load instead of a gapped stream.
func (h *Hub) Run(events <-chan Event) {
	for ev := range events {
		h.Broadcast(ev)
	}
	h.closeAll()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, s := range h.sessions {
		delete(h.sessions, id)
		close(s.send)
	}
}

func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.sessions {
		select {
		case s.send <- data:
		default:
			// Client too slow, drop; it re-syncs via the initial load
		}
	}
}

func (h *Hub) register(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	s.id = h.nextID
	h.sessions[s.id] = s
}

func (h *Hub) unregister(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.sessions[s.id]; ok && existing == s {
		delete(h.sessions, s.id)
		close(s.send)
	}
}

// ServeWS upgrades the request and streams events until disconnect.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	s := &session{
		conn: conn,
		send: make(chan []byte, 256),
	}
	h.register(s)

	go h.writePump(s)
	h.readPump(s) // blocks until disconnect
	return nil
}

func (h *Hub) readPump(s *session) {
	defer func() {
		h.unregister(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMsgSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// The feed is one-way; inbound frames only keep the connection alive.
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *Hub) writePump(s *session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
