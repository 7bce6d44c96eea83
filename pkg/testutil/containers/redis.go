//go:build integration

package containers

import (
	"context"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// RedisContainer wraps a testcontainers Redis instance and a connected client.
type RedisContainer struct {
	Container *tcredis.RedisContainer
	Client    *goredis.Client
}

func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get redis connection string: %v", err)
	}
	opts, err := goredis.ParseURL(uri)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to parse redis url: %v", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping redis: %v", err)
	}
	return &RedisContainer{Container: container, Client: client}
}

// Flush removes every key.
func (r *RedisContainer) Flush(ctx context.Context) error {
	return r.Client.FlushAll(ctx).Err()
}
