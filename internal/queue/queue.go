package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/vidstream/gateway/internal/types"
)

// Queue names shared with the external worker.
const (
	ProcessQueue  = "video-process-queue"
	MetadataQueue = "video-metadata-queue"
)

const consumerTag = "gateway"

// Client owns the single connection and channel to the message broker for
// the whole process lifetime. The channel does not tolerate concurrent
// writers, so every publish goes through an internal mutex.
type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	// mu serializes writes on the channel.
	mu sync.Mutex
}

// Connect dials the broker with exponential backoff and asserts the queues
// the gateway uses. The gateway cannot run without the broker, so a failed
// connect after backoff exhaustion is returned for the caller to treat as
// fatal.
func Connect(url string) (*Client, error) {
	conn, err := dialWithBackoff(func() (*amqp.Connection, error) {
		return amqp.Dial(url)
	}, time.Sleep)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// Idempotent declare; the worker may have created them already.
	for _, queue := range []string{ProcessQueue, MetadataQueue} {
		_, err = ch.QueueDeclare(queue, true, false, false, false, nil)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to declare queue %q: %w", queue, err)
		}
	}

	return &Client{conn: conn, ch: ch}, nil
}

// dialWithBackoff retries a failed dial after waiting 1s multiplied by a
// backoff factor that starts at 1 and doubles on every failure. Once the
// factor exceeds 64 the last error is returned.
func dialWithBackoff(dial func() (*amqp.Connection, error), sleep func(time.Duration)) (*amqp.Connection, error) {
	backoff := 1

	for {
		conn, err := dial()
		if err == nil {
			return conn, nil
		}

		if backoff > 64 {
			return nil, err
		}

		slog.Warn("broker connection failed, backing off",
			slog.Int("backoff_seconds", backoff),
			slog.String("error", err.Error()))

		sleep(time.Duration(backoff) * time.Second)
		backoff *= 2
	}
}

// PublishProcessingJob publishes a job for the external worker. Safe to call
// from concurrent request handlers.
func (c *Client) PublishProcessingJob(ctx context.Context, job types.ProcessingJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal processing job: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err = c.ch.PublishWithContext(ctx, "", ProcessQueue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish processing job: %w", err)
	}

	return nil
}

// Consume registers a subscription with manual acknowledgment and feeds
// deliveries to the handler one at a time. The handler decides whether to
// ack; an unacknowledged message is redelivered by the broker.
func (c *Client) Consume(queue string, handler func(amqp.Delivery)) error {
	deliveries, err := c.ch.Consume(queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume from queue %q: %w", queue, err)
	}

	go func() {
		for delivery := range deliveries {
			handler(delivery)
		}
		slog.Warn("broker delivery stream closed", slog.String("queue", queue))
	}()

	return nil
}

// Close shuts down the channel and connection.
func (c *Client) Close() error {
	if err := c.ch.Close(); err != nil {
		return err
	}
	return c.conn.Close()
}
