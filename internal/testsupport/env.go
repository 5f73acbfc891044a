package testsupport

import (
	"os"
	"strconv"
	"testing"

	"bizplanner/internal/adapters/config"
)

// testRedisDB keeps integration tests away from the default database.
const testRedisDB = 15

// LoadRedisConfigFromEnv reads Redis settings for integration tests.
// Tests are skipped in -short mode or when REDIS_HOST is missing.
func LoadRedisConfigFromEnv(t *testing.T) config.RedisConfig {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping Redis integration test in short mode")
	}
	if os.Getenv("REDIS_HOST") == "" {
		t.Skip("integration environment missing, set REDIS_HOST to run")
	}

	return config.RedisConfig{
		Host:     os.Getenv("REDIS_HOST"),
		Port:     intValue("REDIS_PORT", 6379),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       intValue("REDIS_TEST_DB", testRedisDB),
	}
}

func intValue(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}

	return fallback
}
