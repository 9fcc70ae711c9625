// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
//
// SubmitAction is the update pipeline: rate check, atomic idempotent
// commit, cache maintenance, broadcast, rank resolution. Each step is a
// possible failure point; side effects are confined to the commit and
// everything after it.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/okian/tally/internal/adapters/cache"
	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/adapters/stream"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/policy"
	"github.com/okian/tally/internal/domain/ratelimit"
	"github.com/okian/tally/internal/domain/types"
	"github.com/okian/tally/pkg/logger"
	"github.com/okian/tally/pkg/metrics"
)

// Service implements the update pipeline and the read paths for the
// scoreboard system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	board     *cache.Leaderboard
	limiter   ratelimit.Limiter
	validator policy.Validator
	hub       *stream.Hub

	// Configuration
	topK            int
	cacheTTL        time.Duration
	rateLimitWindow time.Duration
	rateLimitMax    int
	actionLimits    map[string]int64
	queueSize       int
	postgresDSN     string
	redisAddr       string

	// External clients owned when configured
	pool *pgxpool.Pool
	rdb  *redis.Client

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTopK sets how many leaderboard entries the cache maintains.
func WithTopK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithCacheTTL sets the leaderboard staleness bound.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithRateLimit sets the per-user submission quota.
func WithRateLimit(window time.Duration, maxCount int) Option {
	return func(s *Service) {
		if window > 0 && maxCount > 0 {
			s.rateLimitWindow = window
			s.rateLimitMax = maxCount
		}
	}
}

// WithLimiter sets a pre-built rate limiter, overriding the window and
// count configuration. Start builds one from configuration when unset.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(s *Service) {
		if l != nil {
			s.limiter = l
		}
	}
}

// WithActionLimits sets the per-action-type increment maxima.
func WithActionLimits(limits map[string]int64) Option {
	return func(s *Service) {
		if len(limits) > 0 {
			s.actionLimits = limits
		}
	}
}

// WithSubscriberQueueSize bounds each stream subscriber's event queue.
func WithSubscriberQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithPostgresDSN selects the PostgreSQL score store.
func WithPostgresDSN(dsn string) Option {
	return func(s *Service) {
		s.postgresDSN = dsn
	}
}

// WithRedisAddr selects the shared Redis rate limiter.
func WithRedisAddr(addr string) Option {
	return func(s *Service) {
		s.redisAddr = addr
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		topK:            10,
		cacheTTL:        5 * time.Second,
		rateLimitWindow: time.Minute,
		rateLimitMax:    100,
		actionLimits: map[string]int64{
			"login": 10,
		},
		queueSize: 16,
		logger:    nil, // set on Start when unset
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting scoreboard service...")

	if s.postgresDSN != "" {
		pool, err := pgxpool.New(ctx, s.postgresDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		pg := repository.NewPostgresStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return err
		}
		s.pool = pool
		s.store = pg
		s.logger.Info(ctx, "using postgres store")
	} else {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory store")
	}

	switch {
	case s.limiter != nil:
		s.logger.Info(ctx, "using injected rate limiter")
	case s.redisAddr != "":
		s.rdb = redis.NewClient(&redis.Options{Addr: s.redisAddr})
		s.limiter = ratelimit.NewRedisLimiter(s.rdb,
			ratelimit.WithRedisWindow(s.rateLimitWindow),
			ratelimit.WithRedisMaxCount(s.rateLimitMax),
		)
		s.logger.Info(ctx, "using redis rate limiter", logger.String("addr", s.redisAddr))
	default:
		s.limiter = ratelimit.NewMemoryLimiter(
			ratelimit.WithWindow(s.rateLimitWindow),
			ratelimit.WithMaxCount(s.rateLimitMax),
		)
		s.logger.Info(ctx, "using in-memory rate limiter")
	}

	s.validator = policy.NewMapValidator(
		policy.WithActionLimitsFromConfig(s.actionLimits),
	)
	s.board = cache.New(s.store,
		cache.WithTopK(s.topK),
		cache.WithTTL(s.cacheTTL),
	)
	s.hub = stream.NewHub(
		stream.WithQueueSize(s.queueSize),
	)

	s.started = true
	s.logger.Info(ctx, "scoreboard service started",
		logger.Int("topK", s.topK),
		logger.Duration("cacheTTL", s.cacheTTL),
		logger.Int("rateLimitMax", s.rateLimitMax),
		logger.Duration("rateLimitWindow", s.rateLimitWindow),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping scoreboard service...")

	if s.hub != nil {
		s.hub.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.rdb != nil {
		_ = s.rdb.Close()
	}

	s.started = false
	s.logger.Info(ctx, "scoreboard service stopped")
}

// SubmitAction runs the update pipeline for one score-increasing action.
//
// Failure modes, in order of checking: policy.ErrValidation, ErrRateLimited,
// ErrDuplicateAction, then store errors. Nothing mutates before the store
// commit, and the broadcast fires only after it.
//
// Rank resolution runs after the commit and is best-effort: when it fails the
// committed score is still returned and rank is 0, meaning unknown (real
// ranks start at 1).
func (s *Service) SubmitAction(ctx context.Context, userID, username, actionID, actionType string, increment int64) (newScore int64, rank int, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordSubmitLatency(float64(time.Since(start).Milliseconds()))
	}()

	if !s.isStarted() {
		return 0, 0, ErrNotStarted
	}

	if err := s.validator.Validate(ctx, actionType, increment); err != nil {
		metrics.RecordActionInvalid()
		return 0, 0, err
	}

	ok, err := s.limiter.Allow(ctx, userID)
	if err != nil {
		// Fail closed: an unreachable counter store denies the write.
		metrics.RecordActionRateLimited()
		s.logger.Error(ctx, "rate limiter unavailable, denying write",
			logger.String("userID", userID),
			logger.Error(err),
		)
		return 0, 0, fmt.Errorf("%w: %w", ErrRateLimited, err)
	}
	if !ok {
		metrics.RecordActionRateLimited()
		return 0, 0, ErrRateLimited
	}

	res, err := s.store.ApplyAction(ctx, model.Action{
		UserID:     userID,
		Username:   username,
		ActionID:   actionID,
		ActionType: actionType,
		Increment:  increment,
		TS:         time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error(ctx, "apply action failed",
			logger.String("userID", userID),
			logger.String("actionID", actionID),
			logger.Error(err),
		)
		return 0, 0, fmt.Errorf("apply action: %w", err)
	}
	if !res.Applied {
		metrics.RecordActionDuplicate()
		s.logger.Debug(ctx, "duplicate action rejected",
			logger.String("userID", userID),
			logger.String("actionID", actionID),
		)
		return 0, 0, ErrDuplicateAction
	}
	metrics.RecordActionAccepted()

	invalidated := s.board.Notify(userID, res.NewScore)

	// The commit is final; a caller gone mid-flight only skips the
	// broadcast, never the score change.
	if ctx.Err() == nil {
		eventType := model.EventScoreboardUpdate
		if invalidated {
			eventType = model.EventUserRankChange
		}
		s.hub.Publish(model.Event{
			Type: eventType,
			Data: model.EventData{UserID: userID, Username: username, Score: res.NewScore},
		})
	}

	entry, rankErr := s.board.Rank(ctx, userID)
	if rankErr != nil {
		// Rank is best-effort after the commit; the score stands.
		s.logger.Warn(ctx, "rank resolution failed after commit",
			logger.String("userID", userID),
			logger.Error(rankErr),
		)
		return res.NewScore, 0, nil
	}
	return res.NewScore, entry.Rank, nil
}

// TopK returns up to limit leaderboard entries plus the total user count.
func (s *Service) TopK(ctx context.Context, limit int) ([]types.Entry, int, error) {
	if !s.isStarted() {
		return nil, 0, ErrNotStarted
	}

	entries, err := s.board.Query(ctx, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	metrics.UpdateTotalUsers(total)
	return toAPIEntries(entries), total, nil
}

// UserRank returns the rank entry for a user plus the total user count.
func (s *Service) UserRank(ctx context.Context, userID string) (types.Entry, int, error) {
	if !s.isStarted() {
		return types.Entry{}, 0, ErrNotStarted
	}

	entry, err := s.board.Rank(ctx, userID)
	if err != nil {
		return types.Entry{}, 0, err
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		return types.Entry{}, 0, err
	}
	return toAPIEntry(entry), total, nil
}

// Subscribe registers a live stream subscriber.
func (s *Service) Subscribe() *stream.Subscription {
	if !s.isStarted() {
		return nil
	}
	return s.hub.Subscribe()
}

// Unsubscribe removes a live stream subscriber.
func (s *Service) Unsubscribe(id string) {
	if !s.isStarted() {
		return
	}
	s.hub.Unsubscribe(id)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"topK":         s.topK,
		"cacheTTLMS":   s.cacheTTL.Milliseconds(),
		"rateLimitMax": s.rateLimitMax,
	}

	if s.started {
		if total, err := s.store.Count(context.Background()); err == nil {
			stats["totalUsers"] = total
			metrics.UpdateTotalUsers(total)
		}
		stats["subscribers"] = s.hub.Count()
		stats["cacheStale"] = s.board.Stale()
		stats["cacheAgeMS"] = s.board.Age().Milliseconds()
	}

	return stats
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

func toAPIEntries(entries []repository.Entry) []types.Entry {
	out := make([]types.Entry, len(entries))
	for i, entry := range entries {
		out[i] = toAPIEntry(entry)
	}
	return out
}

func toAPIEntry(entry repository.Entry) types.Entry {
	return types.Entry{
		Rank:        entry.Rank,
		UserID:      entry.UserID,
		Username:    entry.Username,
		Score:       entry.Score,
		LastUpdated: entry.LastUpdated,
	}
}
