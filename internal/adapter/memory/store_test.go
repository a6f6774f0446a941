package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/district-weather-monitor/internal/domain"
)

var t0 = time.Date(2024, time.April, 26, 0, 0, 0, 0, time.UTC)

func update(districtID string, at time.Time, rain float64) domain.Update {
	return domain.Update{ID: fmt.Sprintf("%s-%v", districtID, rain), DistrictID: districtID, Timestamp: at, Rainfall: rain}
}

func TestStore_RecentForDistrict_NewestFirstAndLimited(t *testing.T) {
	ctx := context.Background()
	s := New()

	for i := range 30 {
		require.NoError(t, s.AppendUpdate(ctx, update("7", t0.Add(time.Duration(i)*time.Hour), float64(i))))
		require.NoError(t, s.AppendUpdate(ctx, update("8", t0.Add(time.Duration(i)*time.Hour), 100)))
	}

	got, err := s.RecentForDistrict(ctx, "7", 24)
	require.NoError(t, err)
	require.Len(t, got, 24)

	for i, u := range got {
		assert.Equal(t, "7", u.DistrictID)
		assert.Equal(t, float64(29-i), u.Rainfall, "position %d", i)
	}

	chart := domain.OldestFirst(got)
	assert.Equal(t, 6.0, chart[0].Rainfall)
	assert.Equal(t, 29.0, chart[23].Rainfall)
}

func TestStore_RecentForDistrict_OutOfOrderInserts(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.AppendUpdate(ctx, update("1", t0.Add(2*time.Hour), 2)))
	require.NoError(t, s.AppendUpdate(ctx, update("1", t0, 0)))
	require.NoError(t, s.AppendUpdate(ctx, update("1", t0.Add(time.Hour), 1)))

	got, err := s.RecentForDistrict(ctx, "1", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []float64{2, 1, 0}, []float64{got[0].Rainfall, got[1].Rainfall, got[2].Rainfall})
}

func TestStore_RecentForDistrict_TiesKeepLaterInsertFirst(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.AppendUpdate(ctx, update("1", t0, 1)))
	require.NoError(t, s.AppendUpdate(ctx, update("1", t0, 2)))

	got, err := s.RecentForDistrict(ctx, "1", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2.0, got[0].Rainfall)
}

func TestStore_RecentForDistrict_UnknownAndZeroLimit(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.AppendUpdate(ctx, update("1", t0, 1)))

	got, err := s.RecentForDistrict(ctx, "missing", 24)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = s.RecentForDistrict(ctx, "1", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_RecentAlerts_NewestFirstAcrossDistricts(t *testing.T) {
	ctx := context.Background()
	s := New()

	for i := range 5 {
		a, ok := domain.NewAlert(fmt.Sprint(i%2), t0.Add(time.Duration(i)*time.Minute), []domain.Classification{
			{Level: domain.LevelMedium, Type: domain.HazardFlood, Message: fmt.Sprint(i)},
		})
		require.True(t, ok)
		require.NoError(t, s.AppendAlert(ctx, a))
	}

	got, err := s.RecentAlerts(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "4", got[0].Details[0].Message)
	assert.Equal(t, "3", got[1].Details[0].Message)
	assert.Equal(t, "2", got[2].Details[0].Message)
}

func TestStore_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	s := New()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.AppendUpdate(ctx, update("1", t0.Add(time.Duration(i)*time.Second), float64(i)))
		}()
	}
	wg.Wait()

	got, err := s.RecentForDistrict(ctx, "1", 100)
	require.NoError(t, err)
	assert.Len(t, got, 50)
	assert.Equal(t, 49.0, got[0].Rainfall)
}
