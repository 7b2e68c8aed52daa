// Package rabbitmq implements notify.Publisher on a RabbitMQ topic exchange.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ovenworks/bakehouse/internal/notify"
)

// ExchangeName is the topic exchange all order events are published to.
// Routing key is the event type (e.g. "order.placed"), so consumers can bind
// with patterns like "order.*" or just "order.cancelled".
const ExchangeName = "bakehouse.orders"

type publisher struct {
	ch *amqp.Channel
}

// NewPublisher declares the exchange and returns a notify.Publisher bound to
// the given channel.
func NewPublisher(ch *amqp.Channel) (notify.Publisher, error) {
	err := ch.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", ExchangeName, err)
	}
	return &publisher{ch: ch}, nil
}

func (p *publisher) Publish(ctx context.Context, event notify.OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	return p.ch.PublishWithContext(ctx,
		ExchangeName,
		event.Type, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   event.EventID,
			Body:        body,
		},
	)
}
