// Package transport is the node's Redis link: a consumer-group reader
// on the shared payload stream for inbound config/sensor documents, and
// a pub/sub publisher for outbound render snapshots.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/junctionrelay/display-node/internal/config"
	"github.com/junctionrelay/display-node/pkg/models"
)

// streamKey is the shared stream the backend writes payload envelopes to.
const streamKey = "junctionrelay:payloads"

// Client wraps the Redis connection shared by the stream consumer and
// the snapshot publisher.
type Client struct {
	client *redis.Client
	config config.RedisConfig
	logger *zap.Logger
	ctx    context.Context
}

// NewClient connects to Redis and ensures the consumer group exists.
func NewClient(cfg config.RedisConfig, logger *zap.Logger) (*Client, error) {
	// Consumer names must be unique per node instance within the group.
	if cfg.ConsumerName == "" {
		hostname, _ := os.Hostname()
		if hostname == "" {
			hostname = "unknown"
		}
		cfg.ConsumerName = fmt.Sprintf("%s-%d", hostname, time.Now().UnixNano())
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		PoolTimeout:  30 * time.Second,
	})

	ctx := context.Background()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	client := &Client{
		client: rdb,
		config: cfg,
		logger: logger,
		ctx:    ctx,
	}

	logger.Info("Connected to Redis",
		zap.String("addr", cfg.Addr),
		zap.String("consumer_group", cfg.ConsumerGroup),
		zap.String("consumer_name", cfg.ConsumerName))

	if err := client.initializeConsumerGroup(); err != nil {
		logger.Warn("Consumer group setup failed", zap.Error(err))
	}

	return client, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// PublishSnapshot publishes a render snapshot to the device-specific
// channel. Satisfies the display manager's snapshot sink.
func (c *Client) PublishSnapshot(snapshot *models.RenderSnapshot) error {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal render snapshot: %w", err)
	}

	channel := fmt.Sprintf("device:%s", snapshot.DeviceID)

	if err := c.client.Publish(c.ctx, channel, body).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis channel %s: %w", channel, err)
	}

	c.logger.Debug("Published render snapshot",
		zap.String("channel", channel),
		zap.String("device_id", snapshot.DeviceID),
		zap.String("layout", snapshot.Layout),
		zap.String("uuid", snapshot.UUID))

	return nil
}

// initializeConsumerGroup creates the consumer group on the payload
// stream, creating the stream itself when it does not exist yet. The
// group starts at ID 0 so payloads queued before the node's first boot
// are still delivered.
func (c *Client) initializeConsumerGroup() error {
	err := c.client.XGroupCreateMkStream(c.ctx, streamKey, c.config.ConsumerGroup, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("Consumer group initialized",
		zap.String("stream", streamKey),
		zap.String("group", c.config.ConsumerGroup))

	return nil
}

// ReadFromStream fetches the next batch of payload entries for this
// consumer. Entries stay pending until acknowledged, so a crash mid
// batch leaves them claimable rather than lost.
func (c *Client) ReadFromStream(ctx context.Context, count int64, block time.Duration) ([]redis.XStream, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.config.ConsumerGroup,
		Consumer: c.config.ConsumerName,
		Streams:  []string{streamKey, ">"},
		Count:    count,
		Block:    block,
		NoAck:    false,
	}).Result()

	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	return streams, nil
}

// AcknowledgeMessage marks a stream entry as processed for this group.
func (c *Client) AcknowledgeMessage(ctx context.Context, messageID string) error {
	err := c.client.XAck(ctx, streamKey, c.config.ConsumerGroup, messageID).Err()
	if err != nil {
		return fmt.Errorf("failed to acknowledge message %s: %w", messageID, err)
	}

	return nil
}

// IsHealthy checks if Redis connection is healthy
func (c *Client) IsHealthy() bool {
	return c.client.Ping(c.ctx).Err() == nil
}
