// Package notify publishes resource change events to a message broker.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RoutingKey is the topic of date period change events.
const RoutingKey = "resource.date_periods_changed"

// DefaultExchange is the topic exchange events are published to.
const DefaultExchange = "hauki"

// Event is the JSON body of a date period change.
type Event struct {
	ResourceID      string    `json:"resource_id"`
	DatePeriodsHash string    `json:"date_periods_hash"`
	ChangedAt       time.Time `json:"changed_at"`
}

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQP publishes events to a RabbitMQ topic exchange.
type AMQP struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  publisher
	exchange string
	now      func() time.Time
}

// DialAMQP connects to url and declares the durable topic exchange.
func DialAMQP(url, exchange string) (*AMQP, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("notify: connect to broker: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("notify: open channel: %w", err)
	}
	if err := channel.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("notify: declare exchange %s: %w", exchange, err)
	}
	n := newAMQP(channel, exchange, time.Now)
	n.conn = conn
	return n, nil
}

func newAMQP(channel publisher, exchange string, now func() time.Time) *AMQP {
	return &AMQP{channel: channel, exchange: exchange, now: now}
}

// DatePeriodsChanged publishes a persistent JSON event for the resource.
func (n *AMQP) DatePeriodsChanged(ctx context.Context, resourceID, hash string) error {
	body, err := json.Marshal(Event{ResourceID: resourceID, DatePeriodsHash: hash, ChangedAt: n.now().UTC()})
	if err != nil {
		return fmt.Errorf("notify: encode event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    n.now().UTC(),
		Type:         RoutingKey,
		Body:         body,
		Headers: amqp.Table{
			"resource_id": resourceID,
		},
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.channel.PublishWithContext(ctx, n.exchange, RoutingKey, false, false, msg); err != nil {
		return fmt.Errorf("notify: publish %s: %w", RoutingKey, err)
	}
	return nil
}

// Close shuts down the broker connection.
func (n *AMQP) Close() error {
	if n == nil || n.conn == nil {
		return nil
	}
	return n.conn.Close()
}

// Nop drops every event. It is used when no broker is configured.
type Nop struct{}

// DatePeriodsChanged does nothing.
func (Nop) DatePeriodsChanged(context.Context, string, string) error {
	return nil
}
