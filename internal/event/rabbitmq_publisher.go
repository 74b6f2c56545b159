package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publisherAppID = "lending-engine"

type RabbitMQPublisher struct {
	conn         *amqp.Connection
	exchangeName string
	logger       *slog.Logger
}

func NewRabbitMQPublisher(conn *amqp.Connection, exchangeName string, logger *slog.Logger) (Publisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("RabbitMQ connection cannot be nil")
	}
	if exchangeName == "" {
		return nil, fmt.Errorf("RabbitMQ exchange name cannot be empty")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	tempCh, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open temporary channel for exchange declaration: %w", err)
	}
	defer tempCh.Close()

	err = tempCh.ExchangeDeclare(
		exchangeName,
		amqp.ExchangeTopic,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", exchangeName, err)
	}
	logger.Info("Ensured RabbitMQ exchange exists", "exchange", exchangeName, "type", amqp.ExchangeTopic)

	return &RabbitMQPublisher{
		conn:         conn,
		exchangeName: exchangeName,
		logger:       logger.With("component", "RabbitMQPublisher", "exchange", exchangeName),
	}, nil
}

func (p *RabbitMQPublisher) PublishLoanStatusChanged(ctx context.Context, routingKey string, evt LoanStatusChangedEvent) error {
	return p.publish(ctx, routingKey, evt)
}

func (p *RabbitMQPublisher) PublishPaymentCreated(ctx context.Context, evt PaymentCreatedEvent) error {
	return p.publish(ctx, RoutingKeyPaymentCreated, evt)
}

func (p *RabbitMQPublisher) PublishParticipationCreated(ctx context.Context, evt ParticipationCreatedEvent) error {
	return p.publish(ctx, RoutingKeyParticipationCreated, evt)
}

func (p *RabbitMQPublisher) PublishLatePaymentNotifications(ctx context.Context, evt LatePaymentNotificationEvent) error {
	return p.publish(ctx, RoutingKeyLatePaymentNotifications, evt)
}

func (p *RabbitMQPublisher) PublishEarlyPaymentNotifications(ctx context.Context, evt EarlyPaymentNotificationEvent) error {
	return p.publish(ctx, RoutingKeyEarlyPaymentNotifications, evt)
}

func (p *RabbitMQPublisher) publish(ctx context.Context, routingKey string, payload any) error {
	logCtx := p.logger.With(slog.String("routingKey", routingKey))

	channel, err := p.conn.Channel()
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to open RabbitMQ channel", slog.Any("error", err))
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer channel.Close()

	body, err := json.Marshal(payload)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to marshal event payload to JSON", slog.Any("error", err))
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	logCtx.DebugContext(ctx, "Publishing message", "bodySize", len(body))

	err = channel.PublishWithContext(
		ctx,
		p.exchangeName,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
			AppId:        publisherAppID,
		},
	)

	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to publish message to RabbitMQ", slog.Any("error", err))
		return fmt.Errorf("failed to publish message: %w", err)
	}

	logCtx.InfoContext(ctx, "Successfully published message")
	return nil
}
