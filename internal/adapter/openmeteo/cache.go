package openmeteo

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/couchcryptid/district-weather-monitor/internal/domain"
	"github.com/couchcryptid/district-weather-monitor/internal/observability"
)

// Fetcher is the field-level fetch operation CachedSource decorates.
type Fetcher interface {
	Fetch(ctx context.Context, lat, lon float64, fields []string) (domain.HourlySeries, error)
}

// CachedSource wraps a Fetcher with an in-memory LRU cache. Entries are keyed
// by the wall-clock hour, so a cached series expires when the provider would
// start returning a new latest point.
type CachedSource struct {
	inner   Fetcher
	cache   *lru.Cache[string, domain.HourlySeries]
	metrics *observability.Metrics
}

// NewCachedSource creates a cache decorator around a fetcher holding at most
// maxEntries series (at least one).
func NewCachedSource(inner Fetcher, maxEntries int, metrics *observability.Metrics) *CachedSource {
	cache, _ := lru.New[string, domain.HourlySeries](max(1, maxEntries)) // errors only for size <= 0
	return &CachedSource{
		inner:   inner,
		cache:   cache,
		metrics: metrics,
	}
}

func (c *CachedSource) FetchHourly(ctx context.Context, lat, lon float64) (domain.HourlySeries, error) {
	return c.Fetch(ctx, lat, lon, CycleFields)
}

func (c *CachedSource) FetchChartSeries(ctx context.Context, lat, lon float64) (domain.HourlySeries, error) {
	return c.Fetch(ctx, lat, lon, ChartFields)
}

func (c *CachedSource) Fetch(ctx context.Context, lat, lon float64, fields []string) (domain.HourlySeries, error) {
	key := fmt.Sprintf("%.4f,%.4f|%s|%s", lat, lon, strings.Join(fields, ","),
		domain.Now().UTC().Truncate(time.Hour).Format(time.RFC3339))
	if series, ok := c.cache.Get(key); ok {
		c.metrics.WeatherCache.WithLabelValues("hit").Inc()
		return series, nil
	}
	c.metrics.WeatherCache.WithLabelValues("miss").Inc()

	series, err := c.inner.Fetch(ctx, lat, lon, fields)
	if err != nil {
		return series, err
	}
	// Only cache non-empty results so a malformed or empty response is retried.
	if series.Len() > 0 {
		c.cache.Add(key, series)
	}
	return series, nil
}
