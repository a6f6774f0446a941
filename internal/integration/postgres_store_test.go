//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/district-weather-monitor/internal/domain"
)

func TestPostgresStore_Baselines(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store := startPostgres(ctx, t)
	require.NoError(t, store.EnsureSchema(ctx), "schema is idempotent")

	baselines := []domain.Baseline{
		{DistrictID: "KIC", Name: "Kicukiro", Lat: -1.9995, Lon: 30.1044, AvgRainfall: f(12.5), AvgTemperature: f(21.3)},
		{DistrictID: "GAS", Name: "Gasabo", Lat: -1.8853, Lon: 30.1044, AvgRainfall: nil, AvgTemperature: f(22)},
	}
	require.NoError(t, store.UpsertBaselines(ctx, baselines))

	loaded, err := store.LoadBaselines(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "GAS", loaded[0].DistrictID, "ordered by id")
	assert.Nil(t, loaded[0].AvgRainfall, "null baseline survives the round trip")
	assert.Equal(t, baselines[0], loaded[1])

	// Upsert replaces in place.
	baselines[0].AvgRainfall = f(30)
	require.NoError(t, store.UpsertBaselines(ctx, baselines[:1]))
	loaded, err = store.LoadBaselines(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.InDelta(t, 30, *loaded[1].AvgRainfall, 1e-9)
}

func TestPostgresStore_RecentForDistrict(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store := startPostgres(ctx, t)

	base := time.Date(2024, time.April, 26, 0, 0, 0, 0, time.UTC)
	for i := range 30 {
		require.NoError(t, store.AppendUpdate(ctx, domain.Update{
			ID:          fmt.Sprintf("u-%02d", i),
			DistrictID:  "GAS",
			Timestamp:   base.Add(time.Duration(i) * time.Hour),
			Rainfall:    float64(i),
			Temperature: 20,
			Humidity:    f(70),
		}))
	}
	require.NoError(t, store.AppendUpdate(ctx, domain.Update{
		ID: "other", DistrictID: "KIC", Timestamp: base.Add(100 * time.Hour), Rainfall: 1, Temperature: 1,
	}))

	recent, err := store.RecentForDistrict(ctx, "GAS", 24)
	require.NoError(t, err)
	require.Len(t, recent, 24)
	assert.Equal(t, "u-29", recent[0].ID, "newest first")
	assert.Equal(t, "u-06", recent[23].ID)
	assert.Equal(t, time.UTC, recent[0].Timestamp.Location())
	assert.True(t, base.Add(29*time.Hour).Equal(recent[0].Timestamp))
	require.NotNil(t, recent[0].Humidity)
	assert.Nil(t, recent[0].Windspeed)

	none, err := store.RecentForDistrict(ctx, "UNKNOWN", 24)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPostgresStore_RecentForDistrict_TiesBreakByInsertion(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store := startPostgres(ctx, t)

	at := time.Date(2024, time.April, 26, 15, 0, 0, 0, time.UTC)
	for _, id := range []string{"first", "second", "third"} {
		require.NoError(t, store.AppendUpdate(ctx, domain.Update{ID: id, DistrictID: "GAS", Timestamp: at}))
	}

	recent, err := store.RecentForDistrict(ctx, "GAS", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "third", recent[0].ID)
	assert.Equal(t, "second", recent[1].ID)
}

func TestPostgresStore_Alerts(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store := startPostgres(ctx, t)

	base := time.Date(2024, time.April, 26, 15, 0, 0, 0, time.UTC)
	older, ok := domain.NewAlert("GAS", base, []domain.Classification{
		{Level: domain.LevelMedium, Type: domain.HazardFlood, Message: "Heavy rainfall warning"},
	})
	require.True(t, ok)
	newer, ok := domain.NewAlert("KIC", base.Add(time.Hour), []domain.Classification{
		{Level: domain.LevelHigh, Type: domain.HazardFlood, Message: "Flood risk"},
		{Level: domain.LevelHigh, Type: domain.HazardHeat, Message: "Heatwave alert"},
	})
	require.True(t, ok)

	require.NoError(t, store.AppendAlert(ctx, older))
	require.NoError(t, store.AppendAlert(ctx, newer))

	alerts, err := store.RecentAlerts(ctx, 20)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, newer.ID, alerts[0].ID)
	assert.Equal(t, domain.LevelHigh, alerts[0].Severity)
	assert.Equal(t, newer.Details, alerts[0].Details)
	assert.Equal(t, older.Details, alerts[1].Details)

	one, err := store.RecentAlerts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "KIC", one[0].DistrictID)
}

func TestPostgresStore_PingAfterClose(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store := startPostgres(ctx, t)
	require.NoError(t, store.Ping(ctx))

	store.Close()
	var perr *domain.PersistenceError
	require.ErrorAs(t, store.Ping(ctx), &perr)
	assert.Equal(t, "ping", perr.Op)
}
