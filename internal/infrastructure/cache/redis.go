package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bimakw/ibswap-verifier/internal/domain/entities"
)

// ErrReportNotFound is returned for unknown or expired report ids
var ErrReportNotFound = errors.New("report not found")

// MaxRecent bounds the list of recent report ids
const MaxRecent = 100

const recentKey = "checks:recent"

// ReportStore persists verification reports
type ReportStore interface {
	SaveReport(ctx context.Context, report *entities.CheckReport, ttl time.Duration) error
	GetReport(ctx context.Context, id string) (*entities.CheckReport, error)
	// RecentReports returns up to limit reports, newest first
	RecentReports(ctx context.Context, limit int) ([]*entities.CheckReport, error)
	DeleteReport(ctx context.Context, id string) error
}

// PairCache holds pool snapshots read from a live DEX
type PairCache interface {
	GetPair(ctx context.Context, key string) (*entities.Pair, error)
	SetPair(ctx context.Context, key string, pair *entities.Pair, ttl time.Duration) error
}

// Store is what the application needs from its cache backend
type Store interface {
	ReportStore
	PairCache
	Close() error
}

// RedisCache implements Store using Redis
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache client
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// SaveReport stores the report as JSON and records its id in the recent list
func (c *RedisCache) SaveReport(ctx context.Context, report *entities.CheckReport, ttl time.Duration) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, ReportCacheKey(report.ID), data, ttl)
	pipe.LRem(ctx, recentKey, 0, report.ID)
	pipe.LPush(ctx, recentKey, report.ID)
	pipe.LTrim(ctx, recentKey, 0, MaxRecent-1)
	_, err = pipe.Exec(ctx)
	return err
}

// GetReport retrieves a stored report
func (c *RedisCache) GetReport(ctx context.Context, id string) (*entities.CheckReport, error) {
	data, err := c.client.Get(ctx, ReportCacheKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}

	var report entities.CheckReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// RecentReports loads the newest reports. Ids whose report expired are skipped.
func (c *RedisCache) RecentReports(ctx context.Context, limit int) ([]*entities.CheckReport, error) {
	if limit <= 0 || limit > MaxRecent {
		limit = MaxRecent
	}

	ids, err := c.client.LRange(ctx, recentKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*entities.CheckReport{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = ReportCacheKey(id)
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	reports := make([]*entities.CheckReport, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var report entities.CheckReport
		if err := json.Unmarshal([]byte(s), &report); err != nil {
			return nil, err
		}
		reports = append(reports, &report)
	}
	return reports, nil
}

// DeleteReport removes a report and its recent-list entry
func (c *RedisCache) DeleteReport(ctx context.Context, id string) error {
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, ReportCacheKey(id))
	pipe.LRem(ctx, recentKey, 0, id)
	_, err := pipe.Exec(ctx)
	return err
}

// GetPair retrieves a cached pair
func (c *RedisCache) GetPair(ctx context.Context, key string) (*entities.Pair, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var pair entities.Pair
	if err := json.Unmarshal(data, &pair); err != nil {
		return nil, err
	}

	return &pair, nil
}

// SetPair caches a pair with TTL
func (c *RedisCache) SetPair(ctx context.Context, key string, pair *entities.Pair, ttl time.Duration) error {
	data, err := json.Marshal(pair)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, ttl).Err()
}

// PairCacheKey generates a cache key for a pair
func PairCacheKey(dex entities.DEXType, token0, token1 string) string {
	return fmt.Sprintf("pair:%s:%s:%s", dex, token0, token1)
}

// ReportCacheKey generates a cache key for a report
func ReportCacheKey(id string) string {
	return fmt.Sprintf("check:%s", id)
}
