package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// AMQPPublisher forwards notifications to a durable queue so companion
// devices can show toasts for mutations made elsewhere.
type AMQPPublisher struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	sub          *asyncSubscriber
}

func NewAMQPPublisher(url, exchangeName, queueName string) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p := &AMQPPublisher{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := p.setup(); err != nil {
		p.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	p.sub = newAsyncSubscriber(publishBuffer, p.Publish)
	return p, nil
}

func (p *AMQPPublisher) setup() error {
	err := p.channel.ExchangeDeclare(
		p.exchangeName, // name
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

	_, err = p.channel.QueueDeclare(
		p.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = p.channel.QueueBind(
		p.queueName,    // queue name
		p.queueName,    // routing key (same as queue name for direct exchange)
		p.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// Publish sends one notification. Safe to use as a Center Subscriber via
// Subscriber().
func (p *AMQPPublisher) Publish(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchangeName, // exchange
		p.queueName,    // routing key
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
		return fmt.Errorf("publish notification: %w", err)
	}

	return nil
}

// Subscriber adapts the publisher to the Center's fan-out. Notifications
// are buffered and published on a separate goroutine, so the Center (and
// the ledger mutators behind it) never waits on the broker. Publish
// failures are logged, never surfaced: a toast must not fail a ledger
// mutation.
func (p *AMQPPublisher) Subscriber() Subscriber {
	return p.sub.enqueue
}

func (p *AMQPPublisher) Close() error {
	if p.sub != nil {
		p.sub.stop()
	}
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

const publishBuffer = 64

// asyncSubscriber decouples Center fan-out from broker latency: enqueue
// never blocks, a single goroutine drains the buffer in order, and a full
// buffer drops the notification rather than stalling the caller.
type asyncSubscriber struct {
	mu      sync.Mutex
	closed  bool
	queue   chan Notification
	done    chan struct{}
	publish func(context.Context, Notification) error
}

func newAsyncSubscriber(buffer int, publish func(context.Context, Notification) error) *asyncSubscriber {
	a := &asyncSubscriber{
		queue:   make(chan Notification, buffer),
		done:    make(chan struct{}),
		publish: publish,
	}
	go a.drain()
	return a
}

func (a *asyncSubscriber) drain() {
	defer close(a.done)
	for n := range a.queue {
		if err := a.publish(context.Background(), n); err != nil {
			slog.Error("Failed to publish notification", "notification_id", n.ID, "error", err)
		}
	}
}

func (a *asyncSubscriber) enqueue(n Notification) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	select {
	case a.queue <- n:
	default:
		slog.Warn("Notification publish buffer full, dropping", "notification_id", n.ID)
	}
}

// stop closes the buffer and waits for in-flight publishes to finish.
func (a *asyncSubscriber) stop() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		<-a.done
		return
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()
	<-a.done
}
