package testsupport

import "testing"

func TestLoadRedisConfigFromEnv(t *testing.T) {
	if testing.Short() {
		t.Skip("helper skips in short mode")
	}

	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_TEST_DB", "")

	cfg := LoadRedisConfigFromEnv(t)

	if cfg.Host != "redis" || cfg.Port != 6380 || cfg.DB != testRedisDB {
		t.Fatalf("unexpected redis config %+v", cfg)
	}
}

func TestIntValueFallsBack(t *testing.T) {
	t.Setenv("BIZPLANNER_TEST_INT", "not-a-number")

	if got := intValue("BIZPLANNER_TEST_INT", 7); got != 7 {
		t.Fatalf("expected fallback 7, got %d", got)
	}
}
