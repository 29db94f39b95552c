package cache

import (
	"context"
	"sync"
	"time"

	"github.com/bimakw/ibswap-verifier/internal/domain/entities"
)

// InMemoryCache implements Store using in-memory storage (for testing/development)
type InMemoryCache struct {
	mu      sync.Mutex
	pairs   map[string]*cachedPair
	reports map[string]*cachedReport
	recent  []string
	now     func() time.Time
}

type cachedPair struct {
	pair      *entities.Pair
	expiresAt time.Time
}

type cachedReport struct {
	report    entities.CheckReport
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		pairs:   make(map[string]*cachedPair),
		reports: make(map[string]*cachedReport),
		now:     time.Now,
	}
}

func (c *InMemoryCache) Close() error { return nil }

func (c *InMemoryCache) expired(at time.Time) bool {
	return !at.IsZero() && !c.now().Before(at)
}

func (c *InMemoryCache) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(ttl)
}

func (c *InMemoryCache) SaveReport(ctx context.Context, report *entities.CheckReport, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reports[report.ID] = &cachedReport{report: *report, expiresAt: c.expiry(ttl)}
	c.recent = append([]string{report.ID}, c.removeRecent(report.ID)...)
	if len(c.recent) > MaxRecent {
		c.recent = c.recent[:MaxRecent]
	}
	return nil
}

func (c *InMemoryCache) GetReport(ctx context.Context, id string) (*entities.CheckReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cached, ok := c.reports[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	if c.expired(cached.expiresAt) {
		delete(c.reports, id)
		return nil, ErrReportNotFound
	}
	report := cached.report
	return &report, nil
}

func (c *InMemoryCache) RecentReports(ctx context.Context, limit int) ([]*entities.CheckReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if limit <= 0 || limit > MaxRecent {
		limit = MaxRecent
	}
	reports := make([]*entities.CheckReport, 0, limit)
	for _, id := range c.recent {
		if len(reports) == limit {
			break
		}
		cached, ok := c.reports[id]
		if !ok || c.expired(cached.expiresAt) {
			continue
		}
		report := cached.report
		reports = append(reports, &report)
	}
	return reports, nil
}

func (c *InMemoryCache) DeleteReport(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.reports, id)
	c.recent = c.removeRecent(id)
	return nil
}

func (c *InMemoryCache) removeRecent(id string) []string {
	out := c.recent[:0:0]
	for _, r := range c.recent {
		if r != id {
			out = append(out, r)
		}
	}
	return out
}

func (c *InMemoryCache) GetPair(ctx context.Context, key string) (*entities.Pair, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.pairs[key]; ok {
		if !c.expired(cached.expiresAt) {
			return cached.pair.Clone(), nil
		}
		delete(c.pairs, key)
	}
	return nil, nil
}

func (c *InMemoryCache) SetPair(ctx context.Context, key string, pair *entities.Pair, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pairs[key] = &cachedPair{
		pair:      pair.Clone(),
		expiresAt: c.expiry(ttl),
	}
	return nil
}

var (
	_ Store = (*RedisCache)(nil)
	_ Store = (*InMemoryCache)(nil)
)
