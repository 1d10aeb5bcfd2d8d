package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// BuildsChannel mirrors the events of every build.
	BuildsChannel = "builds"

	// historyLimit caps the replayable events kept per build.
	historyLimit = 256
	historyTTL   = 24 * time.Hour
)

// PubSub publishes build events, keeps a short replayable history per build
// and fans events out to subscribers.
type PubSub struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, addr, password string, db int) (*PubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return &PubSub{client: client}, nil
}

func (ps *PubSub) Close() error {
	if err := ps.client.Close(); err != nil {
		return fmt.Errorf("redis.PubSub.Close: %w", err)
	}
	return nil
}

// PublishBuildEvent records payload in the build's history and publishes it
// on the build channel and on BuildsChannel in one round trip.
func (ps *PubSub) PublishBuildEvent(ctx context.Context, buildID uuid.UUID, payload []byte) error {
	key := historyKey(buildID)
	_, err := ps.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, payload)
		pipe.LTrim(ctx, key, -historyLimit, -1)
		pipe.Expire(ctx, key, historyTTL)
		pipe.Publish(ctx, BuildChannel(buildID), payload)
		pipe.Publish(ctx, BuildsChannel, payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis.PubSub.PublishBuildEvent: %w", err)
	}
	return nil
}

// History returns the recorded events of a build, oldest first.
func (ps *PubSub) History(ctx context.Context, buildID uuid.UUID) ([][]byte, error) {
	vals, err := ps.client.LRange(ctx, historyKey(buildID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis.PubSub.History: %w", err)
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = []byte(v)
	}
	return out, nil
}

// Subscribe streams payloads published on channel until ctx ends or the
// returned cleanup is called.
func (ps *PubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	sub := ps.client.Subscribe(ctx, channel)

	// Wait for subscription confirmation.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis.PubSub.Subscribe: receive confirmation: %w", err)
	}

	out := make(chan []byte, 64)
	redisCh := sub.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-redisCh:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	cleanup := func() {
		_ = sub.Close()
	}

	return out, cleanup, nil
}

// BuildChannel returns the Redis channel name for a build's events.
func BuildChannel(buildID uuid.UUID) string {
	return "build:" + buildID.String()
}

func historyKey(buildID uuid.UUID) string {
	return "build:" + buildID.String() + ":events"
}
