package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"BileePlatform/pkg/logger"
	"BileePlatform/pkg/rabbitmq"
)

// Типы событий аудита
const (
	ProjectCreated     = "project.created"
	ProjectUpdated     = "project.updated"
	ProjectDeleted     = "project.deleted"
	MethodCreated      = "method.created"
	MethodUpdated      = "method.updated"
	MethodDeleted      = "method.deleted"
	MethodsReordered   = "method.reordered"
	APIKeyCreated      = "apikey.created"
	APIKeyRefreshed    = "apikey.refreshed"
	APIKeyDeleted      = "apikey.deleted"
	TransactionCreated = "checkout.transaction_created"
)

// Event событие изменения данных мерчанта
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	ProjectID int64                  `json:"project_id,omitempty"`
	TraceID   string                 `json:"trace_id,omitempty"`
	At        time.Time              `json:"at"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// New создает событие с идентификатором и временем
func New(ctx context.Context, eventType string, projectID int64, data map[string]interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ProjectID: projectID,
		TraceID:   logger.TraceID(ctx),
		At:        time.Now().UTC(),
		Data:      data,
	}
}

// Publisher публикует события аудита
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher отбрасывает события (RabbitMQ отключен)
type NopPublisher struct{}

// Publish ничего не делает
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// MessageProducer отправляет сообщения в брокер
type MessageProducer interface {
	Publish(ctx context.Context, body []byte, options ...rabbitmq.PublishOption) error
}

// RabbitPublisher публикует события через producer RabbitMQ.
// Ключ маршрутизации: <prefix>.<тип события>.
type RabbitPublisher struct {
	producer MessageProducer
	prefix   string
}

// NewRabbitPublisher создает публикатора событий
func NewRabbitPublisher(producer MessageProducer, routingPrefix string) *RabbitPublisher {
	return &RabbitPublisher{producer: producer, prefix: routingPrefix}
}

// Publish сериализует событие в JSON и отправляет его
func (p *RabbitPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	routingKey := event.Type
	if p.prefix != "" {
		routingKey = p.prefix + "." + event.Type
	}

	return p.producer.Publish(ctx, body,
		rabbitmq.WithRoutingKey(routingKey),
		rabbitmq.WithMessageID(event.ID),
		rabbitmq.WithType(event.Type))
}
