package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/irfndi/sector-rotation-go/internal/logging"
	"github.com/irfndi/sector-rotation-go/internal/models"
	"github.com/irfndi/sector-rotation-go/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const keyDateLayout = "2006-01-02"

// observationEntry is the stored form of a fetch result
type observationEntry struct {
	Result    models.FetchResult `json:"result"`
	CachedAt  time.Time          `json:"cached_at"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// macroEntry is the stored form of a macro series
type macroEntry struct {
	Observations []models.MacroObservation `json:"observations"`
	CachedAt     time.Time                 `json:"cached_at"`
	ExpiresAt    time.Time                 `json:"expires_at"`
}

// CacheStats tracks cache performance metrics
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	Errors int64 `json:"errors"`
}

// ObservationCache memoises provider responses in Redis, keyed by
// (ticker set, date range) and (series id, start).
type ObservationCache struct {
	redis  *redis.Client
	ttl    time.Duration
	prefix string
	logger *logrus.Logger
	events *logging.StandardLogger

	mu    sync.RWMutex
	stats CacheStats
}

// NewObservationCache creates a new Redis-backed observation cache. events
// receives one record per lookup and write; it may be nil.
func NewObservationCache(redisClient *redis.Client, ttl time.Duration, logger *logrus.Logger, events *logging.StandardLogger) *ObservationCache {
	if logger == nil {
		logger = logrus.New()
	}
	return &ObservationCache{
		redis:  redisClient,
		ttl:    ttl,
		prefix: "rotation:",
		logger: logger,
		events: events,
	}
}

// ObservationKey builds the key of a ticker set and range. Ticker order and
// case do not change the key.
func (c *ObservationCache) ObservationKey(tickers []string, start, end time.Time) string {
	normalized := make([]string, len(tickers))
	for i, t := range tickers {
		normalized[i] = strings.ToUpper(strings.TrimSpace(t))
	}
	sort.Strings(normalized)
	sum := sha256.Sum256([]byte(strings.Join(normalized, ",")))
	return fmt.Sprintf("%sobs:%s:%s:%s", c.prefix, hex.EncodeToString(sum[:]), start.Format(keyDateLayout), end.Format(keyDateLayout))
}

// MacroKey builds the key of a macro series.
func (c *ObservationCache) MacroKey(seriesID string, start time.Time) string {
	return fmt.Sprintf("%smacro:%s:%s", c.prefix, seriesID, start.Format(keyDateLayout))
}

// GetObservations returns a cached fetch result. A miss is (nil, false, nil).
func (c *ObservationCache) GetObservations(ctx context.Context, tickers []string, start, end time.Time) (*models.FetchResult, bool, error) {
	var entry observationEntry
	found, err := c.get(ctx, c.ObservationKey(tickers, start, end), &entry)
	if err != nil || !found {
		return nil, false, err
	}
	return &entry.Result, true, nil
}

// SetObservations stores a fetch result for the configured TTL.
func (c *ObservationCache) SetObservations(ctx context.Context, tickers []string, start, end time.Time, result *models.FetchResult) error {
	now := time.Now()
	entry := observationEntry{Result: *result, CachedAt: now, ExpiresAt: now.Add(c.ttl)}
	key := c.ObservationKey(tickers, start, end)
	if err := c.set(ctx, key, entry); err != nil {
		return err
	}
	c.logger.WithFields(logrus.Fields{
		"key":          key,
		"tickers":      len(tickers),
		"observations": len(result.Observations),
		"ttl":          c.ttl.String(),
	}).Debug("Cached observations")
	return nil
}

// GetMacroSeries returns a cached macro series. A miss is (nil, false, nil).
func (c *ObservationCache) GetMacroSeries(ctx context.Context, seriesID string, start time.Time) ([]models.MacroObservation, bool, error) {
	var entry macroEntry
	found, err := c.get(ctx, c.MacroKey(seriesID, start), &entry)
	if err != nil || !found {
		return nil, false, err
	}
	return entry.Observations, true, nil
}

// SetMacroSeries stores a macro series for the configured TTL.
func (c *ObservationCache) SetMacroSeries(ctx context.Context, seriesID string, start time.Time, observations []models.MacroObservation) error {
	now := time.Now()
	return c.set(ctx, c.MacroKey(seriesID, start), macroEntry{Observations: observations, CachedAt: now, ExpiresAt: now.Add(c.ttl)})
}

func (c *ObservationCache) get(ctx context.Context, key string, dest interface{}) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.GetCacheTracer(), "cache.get", attribute.String("cache.key", key))
	defer span.End()
	started := time.Now()

	data, err := c.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.record(func(s *CacheStats) { s.Misses++ })
		c.observe("get", key, false, started)
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return false, nil
	}
	if err != nil {
		c.record(func(s *CacheStats) { s.Errors++ })
		telemetry.RecordError(span, err)
		return false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		// A corrupt entry is a miss; the next Set overwrites it.
		c.logger.WithError(err).WithField("key", key).Warn("Discarding undecodable cache entry")
		c.record(func(s *CacheStats) { s.Misses++ })
		c.observe("get", key, false, started)
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return false, nil
	}

	c.record(func(s *CacheStats) { s.Hits++ })
	c.observe("get", key, true, started)
	span.SetAttributes(attribute.Bool("cache.hit", true))
	return true, nil
}

func (c *ObservationCache) set(ctx context.Context, key string, value interface{}) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.GetCacheTracer(), "cache.set", attribute.String("cache.key", key))
	defer span.End()
	started := time.Now()

	data, err := json.Marshal(value)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to serialize cache entry %s: %w", key, err)
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.record(func(s *CacheStats) { s.Errors++ })
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	c.record(func(s *CacheStats) { s.Sets++ })
	c.observe("set", key, false, started)
	return nil
}

func (c *ObservationCache) observe(operation, key string, hit bool, started time.Time) {
	c.events.LogCacheOperation(operation, key, hit, time.Since(started).Milliseconds())
}

func (c *ObservationCache) record(update func(*CacheStats)) {
	c.mu.Lock()
	update(&c.stats)
	c.mu.Unlock()
}

// GetStats returns current cache statistics
func (c *ObservationCache) GetStats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// HitRate returns hits as a percentage of lookups.
func (c *ObservationCache) HitRate() float64 {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0
	}
	return float64(stats.Hits) / float64(total) * 100
}
