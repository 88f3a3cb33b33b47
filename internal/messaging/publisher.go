package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cafe-pos/internal/logger"
	"cafe-pos/internal/models"

	"github.com/rabbitmq/amqp091-go"
)

type publishFunc func(ctx context.Context, exchange, routingKey string, msg amqp091.Publishing) error

// Publisher handles message publishing to RabbitMQ
type Publisher struct {
	publish  publishFunc
	closer   func() error
	logger   *logger.Logger
	terminal string
	currency string
	now      func() time.Time
}

// NewPublisher creates a publisher announcing bills from terminal on the
// bills exchange
func NewPublisher(conn *Connection, log *logger.Logger, terminal, currency string) *Publisher {
	publish := func(ctx context.Context, exchange, routingKey string, msg amqp091.Publishing) error {
		if err := conn.ensureOpen(ctx); err != nil {
			return err
		}
		return conn.Channel().PublishWithContext(
			ctx,
			exchange,   // exchange
			routingKey, // routing key
			false,      // mandatory
			false,      // immediate
			msg,
		)
	}

	return &Publisher{
		publish:  publish,
		closer:   conn.Close,
		logger:   log,
		terminal: terminal,
		currency: currency,
		now:      time.Now,
	}
}

// RecordBill publishes a finalized bill so receipt printers can pick it up
func (p *Publisher) RecordBill(ctx context.Context, bill *models.Bill) error {
	msg := models.CreateBillMessage(bill, p.currency, p.terminal)
	return p.publishMessage(ctx, BillsExchange, models.GenerateRoutingKey(p.terminal), msg, true)
}

func (p *Publisher) publishMessage(ctx context.Context, exchange, routingKey string, message interface{}, persistent bool) error {
	requestID := logger.RequestIDFromContext(ctx)

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := p.publish(ctx, exchange, routingKey, newPublishing(body, persistent, p.now())); err != nil {
		p.logger.Error("message_publish_failed",
			fmt.Sprintf("Failed to publish message to exchange %s", exchange),
			requestID, err, map[string]interface{}{
				"exchange":    exchange,
				"routing_key": routingKey,
			})
		return fmt.Errorf("failed to publish message: %w", err)
	}

	p.logger.Debug("message_published",
		fmt.Sprintf("Published message to exchange %s", exchange),
		requestID, map[string]interface{}{
			"exchange":     exchange,
			"routing_key":  routingKey,
			"message_size": len(body),
		})

	return nil
}

func newPublishing(body []byte, persistent bool, at time.Time) amqp091.Publishing {
	deliveryMode := amqp091.Transient
	if persistent {
		deliveryMode = amqp091.Persistent
	}

	return amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: deliveryMode,
		Timestamp:    at,
	}
}

// Close closes the underlying connection
func (p *Publisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}
