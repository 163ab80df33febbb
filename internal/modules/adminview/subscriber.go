package adminview

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"tourmarket/internal/realtime"
)

// BrokerSubscriber feeds the mirror from the in-process change broker.
// Used when the mirror runs inside the API process itself.
type BrokerSubscriber struct {
	broker *realtime.Broker
}

func NewBrokerSubscriber(b *realtime.Broker) *BrokerSubscriber {
	return &BrokerSubscriber{broker: b}
}

func (s *BrokerSubscriber) Subscribe(ctx context.Context) (<-chan realtime.Event, error) {
	events, cancel := s.broker.Subscribe(256)
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return events, nil
}

// WebsocketSubscriber feeds a mirror running in another process (a staff
// dashboard backend) by dialing the API's admin feed endpoint. The channel
// closes on any read error; the mirror then re-syncs before trusting a new
// connection.
type WebsocketSubscriber struct {
	url   string
	token string
}

func NewWebsocketSubscriber(url, token string) *WebsocketSubscriber {
	return &WebsocketSubscriber{url: url, token: token}
}

func (s *WebsocketSubscriber) Subscribe(ctx context.Context) (<-chan realtime.Event, error) {
	header := http.Header{}
	if s.token != "" {
		header.Set("Authorization", "Bearer "+s.token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, header)
	if err != nil {
		return nil, err
	}

	out := make(chan realtime.Event, 256)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go func() {
		defer close(out)
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var ev realtime.Event
			if err := json.Unmarshal(data, &ev); err != nil {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
