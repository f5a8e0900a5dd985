package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"codeberg.org/scribe/server/internal/logger"
)

const (
	keyRunEvents     = "agent:events:%s" // stream of one agent run
	defaultMaxLen    = 1000
	defaultStreamTTL = 24 * time.Hour
)

// subset of the redis client used by RedisSink
type streamWriter interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// mirrors the messages of one run into a redis stream so other processes can
// follow it
type RedisSink struct {
	client    streamWriter
	key       string
	maxLen    int64
	ttl       time.Duration
	expireSet bool
}

func NewRedisSink(client streamWriter, requestID string) *RedisSink {
	return &RedisSink{
		client: client,
		key:    RunEventsKey(requestID),
		maxLen: defaultMaxLen,
		ttl:    defaultStreamTTL,
	}
}

func RunEventsKey(requestID string) string {
	return fmt.Sprintf(keyRunEvents, requestID)
}

func (s *RedisSink) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal stream message: %w", err)
	}

	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.key,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"label":   string(msg.Label),
			"payload": string(payload),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append to redis stream: %w", err)
	}

	if !s.expireSet {
		if err := s.client.Expire(ctx, s.key, s.ttl).Err(); err != nil {
			return fmt.Errorf("failed to set redis stream ttl: %w", err)
		}

		s.expireSet = true
	}

	return nil
}

// connects to redis and verifies the connection
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("connected to redis")

	return client, nil
}
