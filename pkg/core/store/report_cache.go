package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/finance"
)

// Engine metrics are cheap and always computed fresh; only generated
// narrative reports are worth caching. The cache key is a digest of the
// exact deal terms plus the strategy, so any change to the inputs is a new
// report.

// CacheRepository abstracts the narrative report cache so the pipeline can
// run against Redis, an in-memory map, or nothing at all.
type CacheRepository interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, value string) error
}

// ReportKey builds the deterministic cache key for one deal under one
// strategy.
func ReportKey(deal finance.PropertyDeal, strategy string) string {
	canonical := fmt.Sprintf("%.2f|%.2f|%.2f|%.2f|%.2f|%d|%s",
		deal.PurchasePrice, deal.MonthlyRent, deal.AnnualOperatingExpenses,
		deal.DownPaymentPercent, deal.InterestRatePercent, deal.LoanTermYears,
		strategy)
	sum := sha256.Sum256([]byte(canonical))
	return "advisor:report:" + hex.EncodeToString(sum[:16])
}

// NewReportCache returns the configured cache: Redis when REDIS_ADDR is
// set, otherwise a no-op that misses every read.
func NewReportCache() CacheRepository {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return &NoopCache{}
	}
	return NewRedisCache(addr, reportTTL())
}

// reportTTL reads REPORT_CACHE_TTL_HOURS, defaulting to 24 hours. Narrative
// reports quote market context that goes stale; they should not outlive it.
func reportTTL() time.Duration {
	if v := os.Getenv("REPORT_CACHE_TTL_HOURS"); v != "" {
		if hours, err := strconv.Atoi(v); err == nil && hours > 0 {
			return time.Duration(hours) * time.Hour
		}
	}
	return 24 * time.Hour
}

// RedisCache backs the report cache with Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(addr string, ttl time.Duration) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &RedisCache{
		client: rdb,
		ttl:    ttl,
	}
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (r *RedisCache) Set(ctx context.Context, key string, value string) error {
	return r.client.Set(ctx, key, value, r.ttl).Err()
}

// MockCache is the in-memory stand-in for tests.
type MockCache struct {
	Data map[string]string
}

func NewMockCache() *MockCache {
	return &MockCache{
		Data: make(map[string]string),
	}
}

func (m *MockCache) Get(ctx context.Context, key string) (string, bool) {
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(ctx context.Context, key string, value string) error {
	m.Data[key] = value
	return nil
}

// NoopCache misses every read and drops every write, for deployments
// without Redis.
type NoopCache struct{}

func (NoopCache) Get(ctx context.Context, key string) (string, bool) { return "", false }
func (NoopCache) Set(ctx context.Context, key string, value string) error {
	return nil
}
