package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/table-reservation/notify"
)

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Dialer opens a channel; replaced in tests.
type Dialer func(url string) (Channel, closer, error)

type closer interface {
	Close() error
}

// Publisher sends notifications as persistent JSON messages to a durable
// queue. The connection is opened lazily and reopened after a failure.
type Publisher struct {
	url   string
	queue string
	dial  Dialer
	log   logrus.FieldLogger

	mu   sync.Mutex
	conn closer
	ch   Channel
}

func NewPublisher(url, queue string, log logrus.FieldLogger) *Publisher {
	return &Publisher{url: url, queue: queue, dial: dialAMQP, log: log}
}

func dialAMQP(url string) (Channel, closer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return ch, conn, nil
}

func (p *Publisher) channel() (Channel, error) {
	if p.ch != nil {
		return p.ch, nil
	}
	ch, conn, err := p.dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		if conn != nil {
			_ = conn.Close()
		}
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	p.ch, p.conn = ch, conn
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Notify publishes n. A failed publish drops the connection so the next call
// redials.
func (p *Publisher) Notify(ctx context.Context, n notify.Notification) error {
	body, err := json.Marshal(eventFrom(n))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         string(n.Kind),
		Body:         body,
	})
	if err != nil {
		p.log.WithError(err).WithField("kind", n.Kind).Warn("rabbitmq publish failed")
		p.reset()
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}
