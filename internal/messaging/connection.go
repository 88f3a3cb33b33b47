package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cafe-pos/internal/config"
	"cafe-pos/internal/logger"

	"github.com/rabbitmq/amqp091-go"
)

const (
	// BillsExchange carries one message per finalized bill
	BillsExchange = "bills_topic"
	// ReceiptsQueue feeds the receipt printer
	ReceiptsQueue = "receipts_queue"
	// ReceiptsBinding routes every terminal's bills to the receipt printer
	ReceiptsBinding = "bills.*"

	maxConnectAttempts = 5
)

// Binding ties a queue to an exchange under a routing pattern
type Binding struct {
	Queue      string
	RoutingKey string
	Exchange   string
}

// Topology lists the exchanges, queues and bindings the bill bus needs
type Topology struct {
	Exchanges map[string]string // name -> kind
	Queues    []string
	Bindings  []Binding
}

// BillTopology returns the bill bus layout
func BillTopology() Topology {
	return Topology{
		Exchanges: map[string]string{BillsExchange: "topic"},
		Queues:    []string{ReceiptsQueue},
		Bindings: []Binding{
			{Queue: ReceiptsQueue, RoutingKey: ReceiptsBinding, Exchange: BillsExchange},
		},
	}
}

// Connection wraps RabbitMQ connection with reconnection logic
type Connection struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	topology Topology
	logger   *logger.Logger
	url      string
}

// New creates a new RabbitMQ connection and declares the bill topology
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Connection, error) {
	conn := &Connection{
		topology: BillTopology(),
		logger:   log,
		url:      cfg.RabbitMQURL(),
	}

	if err := conn.connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to establish initial connection: %w", err)
	}

	return conn, nil
}

// connect establishes connection to RabbitMQ, retrying with a growing delay
// until the attempts run out or ctx is done
func (c *Connection) connect(ctx context.Context) error {
	var err error

	for i := 0; i < maxConnectAttempts; i++ {
		c.conn, err = amqp091.Dial(c.url)
		if err == nil {
			c.channel, err = c.conn.Channel()
			if err == nil {
				if setupErr := c.setupTopology(); setupErr != nil {
					c.logger.Error("rabbitmq_setup_failed", "Failed to set up topology", "startup", setupErr, nil)
					c.close()
					err = setupErr
				} else {
					return nil
				}
			} else {
				c.conn.Close()
			}
		}

		if i < maxConnectAttempts-1 {
			waitTime := time.Duration(i+1) * 2 * time.Second
			c.logger.Error("rabbitmq_connection_failed",
				fmt.Sprintf("Failed to connect to RabbitMQ, retrying in %v", waitTime),
				"startup", err, nil)

			select {
			case <-ctx.Done():
				return fmt.Errorf("gave up connecting to RabbitMQ: %w", ctx.Err())
			case <-time.After(waitTime):
			}
		}
	}

	return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxConnectAttempts, err)
}

// setupTopology declares exchanges, durable queues and their bindings
func (c *Connection) setupTopology() error {
	for name, kind := range c.topology.Exchanges {
		err := c.channel.ExchangeDeclare(
			name,  // name
			kind,  // type
			true,  // durable
			false, // auto-deleted
			false, // internal
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to declare %s exchange: %w", name, err)
		}
	}

	for _, queueName := range c.topology.Queues {
		_, err := c.channel.QueueDeclare(
			queueName, // name
			true,      // durable
			false,     // delete when unused
			false,     // exclusive
			false,     // no-wait
			nil,       // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", queueName, err)
		}
	}

	for _, binding := range c.topology.Bindings {
		err := c.channel.QueueBind(
			binding.Queue,      // queue name
			binding.RoutingKey, // routing key
			binding.Exchange,   // exchange
			false,              // no-wait
			nil,                // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to bind queue %s with routing key %s: %w", binding.Queue, binding.RoutingKey, err)
		}
	}

	return nil
}

// Channel returns the current channel
func (c *Connection) Channel() *amqp091.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// Close closes the connection
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.close()
}

func (c *Connection) close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsClosed checks if the connection is closed
func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn == nil || c.conn.IsClosed()
}

// Reconnect attempts to reconnect to RabbitMQ within ctx
func (c *Connection) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.close()
	return c.connect(ctx)
}

// ensureOpen reconnects when the broker dropped the connection
func (c *Connection) ensureOpen(ctx context.Context) error {
	if !c.IsClosed() {
		return nil
	}
	if err := c.Reconnect(ctx); err != nil {
		return fmt.Errorf("failed to reconnect: %w", err)
	}
	return nil
}
