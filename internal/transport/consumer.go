package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/junctionrelay/display-node/pkg/models"
)

// PayloadRouter receives decoded payload envelopes from the stream.
type PayloadRouter interface {
	Route(payload models.Payload)
}

// Consumer handles payload consumption from the Redis stream
type Consumer struct {
	client *Client
	router PayloadRouter
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// NewConsumer creates a new Redis consumer
func NewConsumer(client *Client, router PayloadRouter, logger *zap.Logger) *Consumer {
	ctx, cancel := context.WithCancel(context.Background())

	return &Consumer{
		client: client,
		router: router,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start starts consuming messages from the payload stream
func (c *Consumer) Start() error {
	c.logger.Info("Starting Redis consumer for payload stream")

	for {
		select {
		case <-c.ctx.Done():
			c.logger.Info("Redis consumer stopped")
			return nil
		default:
			if err := c.consumeMessages(); err != nil {
				c.logger.Error("Error consuming messages, will retry",
					zap.Error(err),
					zap.Duration("retry_delay", 5*time.Second))
				time.Sleep(5 * time.Second)
				continue
			}
		}
	}
}

// Stop stops the consumer
func (c *Consumer) Stop() {
	c.logger.Info("Stopping Redis consumer")
	c.cancel()
}

// consumeMessages handles the actual message consumption from Redis Streams
func (c *Consumer) consumeMessages() error {
	for {
		select {
		case <-c.ctx.Done():
			return nil
		default:
			// Read messages from stream with blocking timeout
			streams, err := c.client.ReadFromStream(c.ctx, 10, 5*time.Second)
			if err != nil {
				// Check if connection is healthy
				if !c.client.IsHealthy() {
					return fmt.Errorf("Redis connection unhealthy, will reconnect")
				}
				c.logger.Error("Error reading from stream", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}

			// Process messages from the stream
			for _, stream := range streams {
				for _, message := range stream.Messages {
					c.handleStreamMessage(message)
				}
			}
		}
	}
}

// handleStreamMessage decodes and routes a single stream message. The
// message is acknowledged after routing; undecodable messages are
// acknowledged too so they do not redeliver forever.
func (c *Consumer) handleStreamMessage(msg redis.XMessage) {
	c.logger.Debug("Received payload from stream",
		zap.String("message_id", msg.ID),
		zap.Int("fields_count", len(msg.Values)))

	raw, ok := msg.Values["payload"].(string)
	if !ok {
		c.logger.Error("Failed to extract payload from stream message",
			zap.String("message_id", msg.ID))
		_ = c.client.AcknowledgeMessage(c.ctx, msg.ID)
		return
	}

	payload, err := models.DecodePayload([]byte(raw))
	if err != nil {
		c.logger.Error("Failed to decode payload envelope",
			zap.Error(err),
			zap.String("message_id", msg.ID))
		_ = c.client.AcknowledgeMessage(c.ctx, msg.ID)
		return
	}

	c.router.Route(payload)

	if err := c.client.AcknowledgeMessage(c.ctx, msg.ID); err != nil {
		c.logger.Error("Failed to acknowledge message",
			zap.Error(err),
			zap.String("message_id", msg.ID))
	} else {
		c.logger.Debug("Payload routed and acknowledged",
			zap.String("message_id", msg.ID),
			zap.String("type", payload.Type),
			zap.String("screen_id", payload.ScreenID))
	}
}
