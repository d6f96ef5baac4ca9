package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/lesson-booking-api/pkg/errors"
	"github.com/noah-isme/lesson-booking-api/pkg/jobs"
)

// AvailabilityCachePattern matches every cached availability payload.
const AvailabilityCachePattern = "availability:*"

// JobTypeInvalidateCache is the job type handled by CacheInvalidationHandler.
const JobTypeInvalidateCache = "cache.invalidate"

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService wraps a cache repository with metrics and failure logging.
// Cache errors never fail the caller's request.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get reports whether key was found and decoded into dest.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) bool {
	if !s.Enabled() {
		return false
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}
	return err == nil
}

// Set stores value under key; a non-positive ttl uses the default.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if !s.Enabled() {
		return
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate removes cached values for the provided pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

// CacheInvalidationHandler processes invalidation jobs; the payload is the
// key pattern to drop. Failures are retried by the queue.
func CacheInvalidationHandler(cache *CacheService) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		pattern, _ := job.Payload.(string)
		if pattern == "" {
			pattern = AvailabilityCachePattern
		}
		return cache.Invalidate(ctx, pattern)
	}
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// enqueueInvalidation schedules a drop of all cached availability. Bursts
// collapse into one job through the shared key.
func enqueueInvalidation(queue jobEnqueuer, logger *zap.Logger, reason string) {
	if queue == nil {
		return
	}
	err := queue.Enqueue(jobs.Job{
		Type:    JobTypeInvalidateCache,
		Key:     AvailabilityCachePattern,
		Payload: AvailabilityCachePattern,
	})
	if err != nil {
		logger.Warn("failed to enqueue cache invalidation", zap.String("reason", reason), zap.Error(err))
	}
}
