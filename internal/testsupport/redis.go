package testsupport

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"

	"bizplanner/internal/adapters/config"
)

// NewRedisClient connects to the test database and flushes it before and after the test.
// The test is skipped when Redis cannot be reached.
func NewRedisClient(t *testing.T, cfg config.RedisConfig) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		t.Skipf("redis unavailable at %s: %v", cfg.Addr(), err)
	}

	if err := client.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("failed to flush redis before test: %v", err)
	}

	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})

	return client
}
