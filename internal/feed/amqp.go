package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// AMQPBus carries change events over RabbitMQ, for deployments where the
// store and the views live in different processes. Events are published to a
// topic exchange with routing key "<table>.<owner>"; each subscription gets
// its own exclusive queue bound to exactly that key, so owner filtering
// happens at the broker.
type AMQPBus struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
}

// NewAMQPBus dials the broker and declares the change exchange.
func NewAMQPBus(url, exchangeName string) (*AMQPBus, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &AMQPBus{conn: conn, channel: channel, exchangeName: exchangeName}, nil
}

func routingKey(table, ownerID string) string {
	return table + "." + ownerID
}

// Publish emits one change event with persistent delivery.
func (b *AMQPBus) Publish(ctx context.Context, e Event) error {
	body, err := e.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = b.channel.PublishWithContext(
		ctx,
		b.exchangeName,                   // exchange
		routingKey(e.Table, e.OwnerID),   // routing key
		false,                            // mandatory
		false,                            // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	slog.DebugContext(ctx, "Published change event",
		"table", e.Table,
		"op", string(e.Op),
		"record_id", e.RecordID,
		"exchange", b.exchangeName)

	return nil
}

// Subscribe opens an exclusive queue bound to (table, ownerID) and pumps its
// deliveries into the returned subscription.
func (b *AMQPBus) Subscribe(ctx context.Context, table, ownerID string) (*Subscription, error) {
	ch, err := b.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		"",    // broker-generated name
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, routingKey(table, ownerID), b.exchangeName, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name, // queue
		"",     // consumer
		false,  // auto-ack (we want manual ack)
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("start consuming: %w", err)
	}

	events := make(chan Event, 16)
	done := make(chan struct{})

	go func() {
		defer close(events)
		for {
			select {
			case <-done:
				return
			case delivery, ok := <-msgs:
				if !ok {
					// Transport failure: the subscriber sees the
					// stream close and degrades to manual refresh.
					slog.Warn("AMQP delivery channel closed",
						"table", table, "queue", q.Name)
					return
				}
				e, err := EventFromJSON(delivery.Body)
				if err != nil {
					slog.Error("Failed to unmarshal change event", "error", err)
					delivery.Nack(false, false) // reject, don't requeue
					continue
				}
				delivery.Ack(false)
				select {
				case events <- e:
				case <-done:
					return
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			ch.Close()
		})
	}
	return newSubscription(events, cancel), nil
}

// Close shuts down the publisher channel and connection.
func (b *AMQPBus) Close() error {
	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
