// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers file and env.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// TopK sets how many leaderboard entries the cache maintains.
	TopK int `koanf:"top_k"`

	// CacheTTLMS bounds snapshot staleness in milliseconds.
	CacheTTLMS int `koanf:"cache_ttl_ms"`

	// RateLimitWindowMS and RateLimitMax bound per-user submissions:
	// at most RateLimitMax accepted calls per window.
	RateLimitWindowMS int `koanf:"rate_limit_window_ms"`
	RateLimitMax      int `koanf:"rate_limit_max"`

	// ActionLimits maps action types to their maximum score increment.
	// Unknown action types are rejected.
	ActionLimits map[string]int64 `koanf:"action_limits"`

	// SubscriberQueueSize bounds each stream subscriber's event queue.
	SubscriberQueueSize int `koanf:"subscriber_queue_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// PostgresDSN selects the PostgreSQL score store when set; the
	// in-memory store is used otherwise.
	PostgresDSN string `koanf:"postgres_dsn"`

	// RedisAddr selects the shared Redis rate limiter when set; the
	// in-memory limiter is used otherwise.
	RedisAddr string `koanf:"redis_addr"`
}

// New creates a Config holding the defaults Load layers file and env over.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		TopK:              10,
		CacheTTLMS:        5_000,
		RateLimitWindowMS: 60_000,
		RateLimitMax:      100,
		ActionLimits: map[string]int64{
			"login":         10,
			"task_complete": 50,
			"contest_win":   500,
		},
		SubscriberQueueSize: 16,
		MaxLeaderboardLimit: 100,
	}
}
