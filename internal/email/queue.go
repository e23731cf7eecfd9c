package email

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/redmonkez12/diary-api/internal/metrics"
)

// Message is the queued form of an email
type Message struct {
	ID         string    `json:"id"`
	To         string    `json:"to"`
	Subject    string    `json:"subject"`
	HTML       string    `json:"html"`
	Text       string    `json:"text"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// Publisher is the part of *amqp.Channel used for publishing
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// QueueSender accepts email by publishing it to RabbitMQ; a Worker delivers it
type QueueSender struct {
	mu        sync.Mutex
	publisher Publisher
	queue     string
	now       func() time.Time
}

func NewQueueSender(publisher Publisher, queue string) *QueueSender {
	return &QueueSender{publisher: publisher, queue: queue, now: time.Now}
}

func (s *QueueSender) Send(ctx context.Context, to, subject, htmlBody, textBody string) (string, error) {
	msg := Message{
		ID:         uuid.NewString(),
		To:         to,
		Subject:    subject,
		HTML:       htmlBody,
		Text:       textBody,
		EnqueuedAt: s.now().UTC(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal queue message: %w", err)
	}

	s.mu.Lock()
	err = s.publisher.PublishWithContext(ctx, "", s.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Timestamp:    msg.EnqueuedAt,
		Body:         body,
	})
	s.mu.Unlock()
	if err != nil {
		metrics.EmailsSent.WithLabelValues("amqp", "error").Inc()
		return "", fmt.Errorf("failed to publish email: %w", err)
	}

	metrics.EmailsSent.WithLabelValues("amqp", "ok").Inc()
	return msg.ID, nil
}

// Queue is a RabbitMQ connection with a declared durable queue
type Queue struct {
	conn    *amqp.Connection
	Channel *amqp.Channel
	Name    string
}

// Declarer is the part of *amqp.Channel used to set up the topology
type Declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// DeadLetterNames returns the exchange and queue that receive rejected email
func DeadLetterNames(queue string) (exchange, deadQueue string) {
	return queue + ".dlx", queue + ".dead"
}

// DeclareTopology declares the email queue with a dead-letter exchange bound
// to a durable dead-letter queue, so nacked messages are parked instead of dropped.
func DeclareTopology(ch Declarer, name string) error {
	dlx, dlq := DeadLetterNames(name)

	if err := ch.ExchangeDeclare(dlx, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", dlx, err)
	}
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", dlq, err)
	}
	if err := ch.QueueBind(dlq, name, dlx, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", dlq, err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    dlx,
		"x-dead-letter-routing-key": name,
	}
	if _, err := ch.QueueDeclare(name, true, false, false, false, args); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", name, err)
	}
	return nil
}

// OpenQueue dials RabbitMQ and declares the queue topology
func OpenQueue(url, name string) (*Queue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	if err := DeclareTopology(ch, name); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &Queue{conn: conn, Channel: ch, Name: name}, nil
}

// Consume registers a consumer with manual acknowledgement
func (q *Queue) Consume(consumer string) (<-chan amqp.Delivery, error) {
	if err := q.Channel.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set prefetch: %w", err)
	}

	deliveries, err := q.Channel.Consume(q.Name, consumer, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register a consumer: %w", err)
	}
	return deliveries, nil
}

func (q *Queue) Close() error {
	if err := q.Channel.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}
