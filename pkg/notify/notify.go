// Package notify publishes post-process completion events to RabbitMQ.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/alxnderia/ingestion/pkg/store"
)

const (
	Exchange   = "ingest.events"
	RoutingKey = "post_process.completed"
)

// Event is the message body of a completed post-process.
type Event struct {
	TenantID   string       `json:"tenant_id"`
	Counts     store.Counts `json:"counts"`
	FinishedAt time.Time    `json:"finished_at"`
}

type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type dialFunc func(url string) (channel, func() error, error)

// Publisher opens a connection per event. Post-process runs minutes apart,
// so there is no long-lived connection to keep healthy.
type Publisher struct {
	url  string
	dial dialFunc
	now  func() time.Time
}

// NewPublisher creates a Publisher for the broker at url.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url, dial: dialChannel, now: time.Now}
}

func dialChannel(url string) (channel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return ch, conn.Close, nil
}

// PostProcessCompleted publishes an Event for tenant.
func (p *Publisher) PostProcessCompleted(ctx context.Context, tenant string, counts store.Counts) error {
	body, err := json.Marshal(Event{TenantID: tenant, Counts: counts, FinishedAt: p.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	ch, closeConn, err := p.dial(p.url)
	if err != nil {
		return fmt.Errorf("amqp dial failed: %w", err)
	}
	defer func() { _ = closeConn() }()
	defer func() { _ = ch.Close() }()

	if err := ch.ExchangeDeclare(Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare failed: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, Exchange, RoutingKey, false, false, msg); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	return nil
}
