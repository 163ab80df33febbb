// Package notify publishes confirmation messages to the notification queue.
// Delivery is best-effort from the orchestrator's point of view: an error
// here is logged by the caller and never affects reservation state.
package notify

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"tourmarket/internal/domain"
)

const defaultQueue = "reservation.confirmed"

type Dispatcher struct {
	url     string
	queue   string
	loggerf func(format string, args ...interface{})
}

func NewDispatcher(url, queue string, loggerf func(format string, args ...interface{})) *Dispatcher {
	if queue == "" {
		queue = defaultQueue
	}
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Dispatcher{url: url, queue: queue, loggerf: loggerf}
}

// confirmedMessage is the payload delivered to whatever worker sends the
// actual email/SMS. Channel selection happens downstream.
type confirmedMessage struct {
	ReservationID int64     `json:"reservation_id"`
	UserID        int64     `json:"user_id"`
	ServiceType   string    `json:"service_type"`
	ServiceID     int64     `json:"service_id"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	ConfirmedAt   time.Time `json:"confirmed_at"`
}

// SendReservationConfirmed publishes one persistent message to the durable
// confirmation queue. Connections are dialed per call; the volume here is a
// handful of messages per confirmed booking, not a firehose.
func (d *Dispatcher) SendReservationConfirmed(ctx context.Context, r *domain.Reservation) error {
	conn, err := amqp.Dial(d.url)
	if err != nil {
		d.loggerf("level=warn msg=notify dial failed reservation_id=%d err=%v", r.ID, err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		d.loggerf("level=warn msg=notify channel open failed reservation_id=%d err=%v", r.ID, err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		d.queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		d.loggerf("level=warn msg=notify queue declare failed reservation_id=%d err=%v", r.ID, err)
		return err
	}

	body, err := json.Marshal(confirmedMessage{
		ReservationID: r.ID,
		UserID:        r.UserID,
		ServiceType:   string(r.ServiceType),
		ServiceID:     r.ServiceID,
		Amount:        r.Amount,
		Currency:      r.Currency,
		ConfirmedAt:   time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, "", d.queue, false, false, pub); err != nil {
		d.loggerf("level=warn msg=notify publish failed reservation_id=%d err=%v", r.ID, err)
		return err
	}
	return nil
}
