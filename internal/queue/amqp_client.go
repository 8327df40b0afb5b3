package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"civicfix-backend/internal/shared/telemetry"
)

type amqpChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type amqpDialer func(url, exchange string) (amqpConn, error)

type amqpConn struct {
	conn    *amqp.Connection
	channel amqpChannel
}

// AMQPClient publishes queue messages to a RabbitMQ topic exchange.
type AMQPClient struct {
	mu         sync.Mutex
	url        string
	exchange   string
	routingKey string
	dial       amqpDialer
	conn       *amqp.Connection
	channel    amqpChannel
}

// NewAMQPClient connects to RabbitMQ and declares the exchange.
func NewAMQPClient(url, exchange, routingKey string) (*AMQPClient, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("AMQP_URL is required")
	}
	c := &AMQPClient{
		url:        url,
		exchange:   exchange,
		routingKey: routingKey,
		dial:       dialAMQP,
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connectLocked(); err != nil {
		return nil, err
	}
	return c, nil
}

// Send publishes msg as persistent JSON. The routing key is suffixed with the
// department slug so consumers can bind per department.
func (c *AMQPClient) Send(ctx context.Context, msg Message) error {
	body, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode amqp message: %w", err)
	}
	publishing := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		MessageId:    msg.TicketID,
	}
	key := RoutingKey(c.routingKey, msg.Department)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if c.channel == nil || (c.conn != nil && c.conn.IsClosed()) {
		c.closeLocked()
		if err := c.connectLocked(); err != nil {
			return err
		}
	}

	err = c.channel.Publish(c.exchange, key, false, false, publishing)
	if err != nil && isConnClosedErr(err) {
		telemetry.Warn("queue.amqp_reconnect", map[string]any{"ticket_id": msg.TicketID, "error": err.Error()})
		c.closeLocked()
		if connErr := c.connectLocked(); connErr != nil {
			return fmt.Errorf("amqp publish: %w (reconnect failed: %v)", err, connErr)
		}
		err = c.channel.Publish(c.exchange, key, false, false, publishing)
	}
	if err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

// Close releases the channel and connection.
func (c *AMQPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	if c.channel != nil {
		err = c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		if connErr := c.conn.Close(); connErr != nil && err == nil {
			err = connErr
		}
		c.conn = nil
	}
	return err
}

// RoutingKey appends a lower-case department slug to base.
func RoutingKey(base, department string) string {
	slug := strings.Trim(strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, department), "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	if slug == "" {
		return base
	}
	if base == "" {
		return slug
	}
	return base + "." + slug
}

func (c *AMQPClient) connectLocked() error {
	conn, err := c.dial(c.url, c.exchange)
	if err != nil {
		return err
	}
	c.conn = conn.conn
	c.channel = conn.channel
	return nil
}

func (c *AMQPClient) closeLocked() {
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func dialAMQP(url, exchange string) (amqpConn, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return amqpConn{}, fmt.Errorf("connect rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return amqpConn{}, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return amqpConn{}, fmt.Errorf("declare exchange: %w", err)
	}
	return amqpConn{conn: conn, channel: ch}, nil
}

func isConnClosedErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp.ErrClosed) {
		return true
	}
	return strings.Contains(err.Error(), "channel/connection is not open")
}

var _ Client = (*AMQPClient)(nil)
