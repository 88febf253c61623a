package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisEventBus implements EventBus using Redis Pub/Sub
type RedisEventBus struct {
	client   *redis.Client
	resolver ChannelResolver
}

func NewRedisEventBus(client *redis.Client, resolver ChannelResolver) *RedisEventBus {
	if resolver == nil {
		resolver = NewHybridChannelResolver()
	}
	return &RedisEventBus{
		client:   client,
		resolver: resolver,
	}
}

func (b *RedisEventBus) Publish(ctx context.Context, event Event) error {
	channels := b.resolver.ResolveChannels(event)
	if len(channels) == 0 {
		return nil
	}

	envelope, err := NewEnvelope(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	pipe := b.client.Pipeline()
	for _, channel := range channels {
		pipe.Publish(ctx, channel, data)
	}
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		var errs []error
		for _, cmd := range cmds {
			if cmd.Err() != nil {
				errs = append(errs, fmt.Errorf("publish %v: %w", cmd.Args()[1], cmd.Err()))
			}
		}
		if len(errs) == 0 {
			return err
		}
		return errors.Join(errs...)
	}
	return nil
}

// Close is a no-op; the Redis client is owned by the caller.
func (b *RedisEventBus) Close() error {
	return nil
}
