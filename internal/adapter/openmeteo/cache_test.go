package openmeteo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/district-weather-monitor/internal/domain"
)

// --- mock for cache tests ---

type countingFetcher struct {
	calls  int
	result domain.HourlySeries
	err    error
}

func (m *countingFetcher) Fetch(_ context.Context, _, _ float64, _ []string) (domain.HourlySeries, error) {
	m.calls++
	return m.result, m.err
}

func oneHour() domain.HourlySeries {
	return domain.HourlySeries{
		Times:         []string{"2024-04-26T14:00"},
		Precipitation: []*float64{f(1.5)},
		Temperature:   []*float64{f(22)},
	}
}

// --- CachedSource tests ---

func TestCachedSource_CacheHit(t *testing.T) {
	freezeClock(t)
	inner := &countingFetcher{result: oneHour()}
	cached := NewCachedSource(inner, 10, testMetrics())

	s1, err := cached.FetchHourly(context.Background(), -1.9441, 30.0619)
	require.NoError(t, err)
	s2, err := cached.FetchHourly(context.Background(), -1.94412, 30.06188) // same 4dp key
	require.NoError(t, err)

	assert.Equal(t, s1, s2)
	assert.Equal(t, 1, inner.calls, "should only call inner once")
}

func TestCachedSource_FieldsAreSeparateKeys(t *testing.T) {
	freezeClock(t)
	inner := &countingFetcher{result: oneHour()}
	cached := NewCachedSource(inner, 10, testMetrics())

	_, _ = cached.FetchHourly(context.Background(), -1.9441, 30.0619)
	_, _ = cached.FetchChartSeries(context.Background(), -1.9441, 30.0619)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedSource_ExpiresOnNextHour(t *testing.T) {
	fc := freezeClock(t)
	inner := &countingFetcher{result: oneHour()}
	cached := NewCachedSource(inner, 10, testMetrics())

	_, _ = cached.FetchHourly(context.Background(), 0, 0)
	fc.Advance(30 * time.Minute) // 15:40, same bucket
	_, _ = cached.FetchHourly(context.Background(), 0, 0)
	assert.Equal(t, 1, inner.calls)

	fc.Advance(30 * time.Minute) // 16:10, next bucket
	_, _ = cached.FetchHourly(context.Background(), 0, 0)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedSource_EmptyAndErrorsNotCached(t *testing.T) {
	freezeClock(t)
	inner := &countingFetcher{}
	cached := NewCachedSource(inner, 10, testMetrics())

	_, _ = cached.FetchHourly(context.Background(), 0, 0)
	_, _ = cached.FetchHourly(context.Background(), 0, 0)
	assert.Equal(t, 2, inner.calls)

	inner.err = &domain.FetchError{Err: errors.New("down")}
	_, err := cached.FetchHourly(context.Background(), 1, 1)
	require.Error(t, err)
	assert.Zero(t, cached.cache.Len())
}

func TestCachedSource_EvictsLeastRecentlyUsed(t *testing.T) {
	freezeClock(t)
	inner := &countingFetcher{result: oneHour()}
	cached := NewCachedSource(inner, 2, testMetrics())
	ctx := context.Background()

	_, _ = cached.FetchChartSeries(ctx, 1, 1)
	_, _ = cached.FetchChartSeries(ctx, 2, 2)
	_, _ = cached.FetchChartSeries(ctx, 1, 1) // hit, promotes (1,1)
	_, _ = cached.FetchChartSeries(ctx, 3, 3) // evicts (2,2)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, 2, cached.cache.Len())

	_, _ = cached.FetchChartSeries(ctx, 1, 1)
	assert.Equal(t, 3, inner.calls, "(1,1) survived eviction")
	_, _ = cached.FetchChartSeries(ctx, 2, 2)
	assert.Equal(t, 4, inner.calls, "(2,2) was evicted")
}

func TestCachedSource_NonPositiveSizeHoldsOneEntry(t *testing.T) {
	freezeClock(t)
	inner := &countingFetcher{result: oneHour()}
	cached := NewCachedSource(inner, 0, testMetrics())

	_, _ = cached.FetchChartSeries(context.Background(), 1, 1)
	_, _ = cached.FetchChartSeries(context.Background(), 1, 1)
	assert.Equal(t, 1, inner.calls)
}
