package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/bryanwahyu/seo-aio-audit/internal/application"
	domain "github.com/bryanwahyu/seo-aio-audit/internal/domain/audit"
)

const (
	// DefaultTTL is how long a cached analysis stays valid.
	DefaultTTL = 30 * time.Minute
	// DefaultCacheSlot prefixes the three cache entries.
	DefaultCacheSlot = "seo_aio_analysis"
)

// LoadResult is the outcome of a cache read.
type LoadResult struct {
	Valid  bool
	Result *domain.AnalysisResult
}

// Cache persists the last completed analysis of a slot as three KV
// entries: the submitted URL, the JSON result and a millisecond timestamp.
type Cache struct {
	kv     domain.KV
	slot   string
	ttl    time.Duration
	clock  application.Clock
	logger *slog.Logger
}

// NewCache builds a Cache over kv. Zero ttl means DefaultTTL and an empty
// slot means DefaultCacheSlot.
func NewCache(kv domain.KV, slot string, ttl time.Duration, clock application.Clock, logger *slog.Logger) *Cache {
	if slot == "" {
		slot = DefaultCacheSlot
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = application.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{kv: kv, slot: slot, ttl: ttl, clock: clock, logger: logger}
}

func (c *Cache) urlKey() string       { return c.slot + "_url" }
func (c *Cache) resultKey() string    { return c.slot + "_result" }
func (c *Cache) timestampKey() string { return c.slot + "_timestamp" }

// Save stores result under key with the current time. Failures are logged
// and otherwise ignored.
func (c *Cache) Save(ctx context.Context, key string, result domain.AnalysisResult) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("cache save skipped", "key", key, "error", err)
		return
	}
	ts := strconv.FormatInt(c.clock.Now().UnixMilli(), 10)

	for _, kv := range [][2]string{
		{c.urlKey(), key},
		{c.resultKey(), string(data)},
		{c.timestampKey(), ts},
	} {
		if err := c.kv.Set(ctx, kv[0], kv[1]); err != nil {
			c.logger.Warn("cache save failed", "key", key, "entry", kv[0], "error", err)
			return
		}
	}
}

// Load returns the cached result for key if it was stored under exactly
// that key less than TTL ago. Anything else, including unreadable or
// malformed data, is a miss.
func (c *Cache) Load(ctx context.Context, key string) LoadResult {
	res, err := c.load(ctx, key)
	if err != nil {
		c.logger.Debug("cache miss", "key", key, "reason", err)
		return LoadResult{}
	}
	return res
}

var (
	errMiss    = errors.New("no entry")
	errExpired = errors.New("expired")
)

func (c *Cache) load(ctx context.Context, key string) (LoadResult, error) {
	storedURL, ok, err := c.kv.Get(ctx, c.urlKey())
	if err != nil {
		return LoadResult{}, err
	}
	if !ok || storedURL != key {
		return LoadResult{}, errMiss
	}

	rawTS, ok, err := c.kv.Get(ctx, c.timestampKey())
	if err != nil {
		return LoadResult{}, err
	}
	if !ok {
		return LoadResult{}, errMiss
	}
	ms, err := strconv.ParseInt(rawTS, 10, 64)
	if err != nil {
		return LoadResult{}, fmt.Errorf("%w: timestamp: %v", domain.ErrCacheCorrupt, err)
	}
	if c.clock.Now().Sub(time.UnixMilli(ms)) >= c.ttl {
		return LoadResult{}, errExpired
	}

	raw, ok, err := c.kv.Get(ctx, c.resultKey())
	if err != nil {
		return LoadResult{}, err
	}
	if !ok {
		return LoadResult{}, errMiss
	}
	var result domain.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return LoadResult{}, fmt.Errorf("%w: result: %v", domain.ErrCacheCorrupt, err)
	}
	return LoadResult{Valid: true, Result: &result}, nil
}

// Clear removes all three entries of the slot.
func (c *Cache) Clear(ctx context.Context) {
	for _, k := range []string{c.urlKey(), c.resultKey(), c.timestampKey()} {
		if err := c.kv.Delete(ctx, k); err != nil {
			c.logger.Warn("cache clear failed", "entry", k, "error", err)
		}
	}
}
