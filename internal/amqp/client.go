// Package amqp carries the write-behind queue between the bot and the
// worker: outbound delivery envelopes and ledger mirror envelopes.
package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = c.channel.QueueBind(
		c.queueName,    // queue name
		c.queueName,    // routing key (same as queue name for direct exchange)
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishDelivery enqueues an outbound delivery by id.
func (c *Client) PublishDelivery(ctx context.Context, deliveryID int64) error {
	return c.publish(ctx, NewEnvelope(KindDelivery, deliveryID))
}

// PublishLedgerMirror enqueues a transaction for the ledger mirror by id.
func (c *Client) PublishLedgerMirror(ctx context.Context, transactionID int64) error {
	return c.publish(ctx, NewEnvelope(KindMirror, transactionID))
}

func (c *Client) publish(ctx context.Context, env *Envelope) error {
	body, err := env.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish envelope: %w", err)
	}

	slog.InfoContext(ctx, "Published envelope",
		"kind", env.Kind,
		"id", env.ID,
		"exchange", c.exchangeName,
		"queue", c.queueName)

	return nil
}

// Consume runs the manual-ack consume loop until ctx is cancelled or the
// channel closes. Malformed and unknown envelopes are rejected without
// requeue; handler failures requeue the envelope.
func (c *Client) Consume(ctx context.Context, onDelivery, onMirror func(id int64) error) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming envelopes", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping envelope consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			env, err := EnvelopeFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal envelope", "error", err)
				delivery.Nack(false, false) // reject and don't requeue
				continue
			}

			var handler func(int64) error
			switch env.Kind {
			case KindDelivery:
				handler = onDelivery
			case KindMirror:
				handler = onMirror
			default:
				slog.ErrorContext(ctx, "Unknown envelope kind", "kind", env.Kind, "id", env.ID)
				delivery.Nack(false, false)
				continue
			}

			if err := handler(env.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to handle envelope",
					"error", err,
					"kind", env.Kind,
					"id", env.ID)
				delivery.Nack(false, true) // reject and requeue
				continue
			}

			delivery.Ack(false)
			slog.InfoContext(ctx, "Processed envelope", "kind", env.Kind, "id", env.ID)
		}
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
