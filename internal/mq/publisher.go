package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/SpiderChef/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

const MessageTypeRunFinished MessageType = "run.finished"

// Channel — часть AMQP канала, нужная для публикации.
// *amqp.Channel удовлетворяет этому интерфейсу.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	ch     Channel
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(ch Channel, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{ch: ch, logger: logger}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	Type MessageType `json:"type"`

	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// RunFinishedPayload — payload события о завершённом запуске.
type RunFinishedPayload struct {
	RunID      uuid.UUID        `json:"run_id"`
	Recipe     string           `json:"recipe"`
	Status     domain.RunStatus `json:"status"`
	Error      string           `json:"error,omitempty"`
	DurationMS int64            `json:"duration_ms"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = p.ch.PublishWithContext(
		ctx,
		string(exchange),
		string(routingKey),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.ID,
			Timestamp:    msg.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
	}

	p.logger.Debug("published message",
		"exchange", exchange,
		"routing_key", routingKey,
		"message_id", msg.ID,
		"type", msg.Type,
	)
	return nil
}

// PublishRunFinished публикует событие о завершённом запуске.
func (p *Publisher) PublishRunFinished(ctx context.Context, run *domain.Run) error {
	msg := &Message{
		ID:   uuid.New().String(),
		Type: MessageTypeRunFinished,
		Payload: RunFinishedPayload{
			RunID:      run.ID,
			Recipe:     run.Recipe,
			Status:     run.Status,
			Error:      run.Error,
			DurationMS: run.Duration().Milliseconds(),
		},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeRuns, RoutingKeyFinished, msg)
}
