package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Producer представляет продюсера сообщений.
// Публикации сериализуются: подтверждения приходят в порядке отправки.
type Producer struct {
	mu     sync.Mutex
	conn   *Connection
	config *Config
}

// NewProducer создает нового продюсера
func NewProducer(conn *Connection, config *Config) *Producer {
	return &Producer{conn: conn, config: config}
}

// Publish публикует сообщение в RabbitMQ и ждет подтверждения брокера
func (p *Producer) Publish(ctx context.Context, body []byte, options ...PublishOption) error {
	opts := &PublishOptions{
		Exchange:   p.config.Exchange,
		RoutingKey: p.config.RoutingKey,
	}
	for _, option := range options {
		option(opts)
	}

	if p.conn == nil || p.conn.Channel() == nil {
		return fmt.Errorf("rabbitmq channel is not initialized")
	}

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		MessageId:    opts.MessageID,
		Type:         opts.Type,
	}
	if len(opts.Headers) > 0 {
		msg.Headers = opts.Headers
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.conn.Channel().PublishWithContext(ctx,
		opts.Exchange,
		opts.RoutingKey,
		opts.Mandatory,
		false,
		msg,
	); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	timeout := p.config.ConfirmTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	select {
	case confirm, ok := <-p.conn.confirms:
		if !ok {
			return fmt.Errorf("rabbitmq channel closed while waiting for confirmation")
		}
		if !confirm.Ack {
			return fmt.Errorf("message rejected by broker")
		}
	case <-ctx.Done():
		return fmt.Errorf("context cancelled while waiting for confirmation: %w", ctx.Err())
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for confirmation")
	}

	return nil
}

// PublishOptions представляет опции для публикации сообщения
type PublishOptions struct {
	Exchange   string
	RoutingKey string
	Mandatory  bool
	MessageID  string
	Type       string
	Headers    amqp091.Table
}

// PublishOption функция для настройки опций публикации
type PublishOption func(*PublishOptions)

// WithRoutingKey устанавливает routing key
func WithRoutingKey(routingKey string) PublishOption {
	return func(opts *PublishOptions) {
		opts.RoutingKey = routingKey
	}
}

// WithMessageID устанавливает идентификатор сообщения
func WithMessageID(id string) PublishOption {
	return func(opts *PublishOptions) {
		opts.MessageID = id
	}
}

// WithType устанавливает тип сообщения
func WithType(messageType string) PublishOption {
	return func(opts *PublishOptions) {
		opts.Type = messageType
	}
}

// WithHeaders устанавливает заголовки
func WithHeaders(headers amqp091.Table) PublishOption {
	return func(opts *PublishOptions) {
		opts.Headers = headers
	}
}
