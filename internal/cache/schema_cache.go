package cache

import (
	"context"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// SchemaCache stores the model-compressed dataset schema, keyed by model id,
// so the one-shot compression call happens at most once per TTL per model.
type SchemaCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewSchemaCache(client *redisv9.Client, ttl time.Duration) *SchemaCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SchemaCache{client: client, ttl: ttl}
}

func (c *SchemaCache) Get(ctx context.Context, modelID string) (string, bool, error) {
	raw, err := c.client.Get(ctx, c.key(modelID)).Result()
	if err == redisv9.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get compressed schema failed: %w", err)
	}
	return raw, true, nil
}

func (c *SchemaCache) Set(ctx context.Context, modelID, compressed string) error {
	if err := c.client.Set(ctx, c.key(modelID), compressed, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set compressed schema failed: %w", err)
	}
	return nil
}

func (c *SchemaCache) key(modelID string) string {
	return "dataset:schema:compressed:" + modelID
}
