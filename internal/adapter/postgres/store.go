// Package postgres is the remote store: baselines, updates, and alerts in
// PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/district-weather-monitor/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// Store wraps database access helpers.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool. The pool connects lazily; use
// Ping to probe connectivity.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return &domain.PersistenceError{Op: "ping", Err: err}
	}
	return nil
}

// EnsureSchema creates the tables and indexes if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return &domain.PersistenceError{Op: "ensure schema", Err: err}
	}
	return nil
}

const loadBaselinesSQL = `
    SELECT id, name, latitude, longitude, avg_rainfall, avg_temperature
    FROM district_baselines
    WHERE latitude IS NOT NULL AND longitude IS NOT NULL
    ORDER BY id
`

// LoadBaselines returns every baseline that has coordinates.
func (s *Store) LoadBaselines(ctx context.Context) ([]domain.Baseline, error) {
	rows, err := s.pool.Query(ctx, loadBaselinesSQL)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "load baselines", Err: err}
	}
	defer rows.Close()

	baselines := make([]domain.Baseline, 0)
	for rows.Next() {
		var b domain.Baseline
		if err := rows.Scan(&b.DistrictID, &b.Name, &b.Lat, &b.Lon, &b.AvgRainfall, &b.AvgTemperature); err != nil {
			return nil, &domain.PersistenceError{Op: "load baselines", Err: err}
		}
		baselines = append(baselines, b)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "load baselines", Err: err}
	}
	return baselines, nil
}

// UpsertBaselines inserts or replaces baseline records.
func (s *Store) UpsertBaselines(ctx context.Context, baselines []domain.Baseline) error {
	if len(baselines) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `INSERT INTO district_baselines (id, name, latitude, longitude, avg_rainfall, avg_temperature)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name,
    latitude = EXCLUDED.latitude,
    longitude = EXCLUDED.longitude,
    avg_rainfall = EXCLUDED.avg_rainfall,
    avg_temperature = EXCLUDED.avg_temperature`

	for _, b := range baselines {
		batch.Queue(query, b.DistrictID, b.Name, b.Lat, b.Lon, b.AvgRainfall, b.AvgTemperature)
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	for range baselines {
		if _, err := res.Exec(); err != nil {
			return &domain.PersistenceError{Op: "upsert baselines", Err: err}
		}
	}
	return nil
}

func (s *Store) AppendUpdate(ctx context.Context, u domain.Update) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO district_updates (id, district_id, "timestamp", rainfall, temperature, humidity, windspeed)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		u.ID, u.DistrictID, u.Timestamp, u.Rainfall, u.Temperature, u.Humidity, u.Windspeed)
	if err != nil {
		return &domain.PersistenceError{Op: "append update", Err: err}
	}
	return nil
}

func (s *Store) AppendAlert(ctx context.Context, a domain.Alert) error {
	details, err := json.Marshal(a.Details)
	if err != nil {
		return &domain.PersistenceError{Op: "append alert", Err: fmt.Errorf("encode details: %w", err)}
	}

	_, err = s.pool.Exec(ctx, `
INSERT INTO district_alerts (id, district_id, "timestamp", severity, details)
VALUES ($1,$2,$3,$4,$5)`,
		a.ID, a.DistrictID, a.Timestamp, a.Severity.String(), details)
	if err != nil {
		return &domain.PersistenceError{Op: "append alert", Err: err}
	}
	return nil
}

const recentUpdatesSQL = `
    SELECT id, district_id, "timestamp", rainfall, temperature, humidity, windspeed
    FROM district_updates
    WHERE district_id = $1
    ORDER BY "timestamp" DESC, seq DESC
    LIMIT $2
`

// RecentForDistrict returns up to limit updates for the district, newest first.
func (s *Store) RecentForDistrict(ctx context.Context, districtID string, limit int) ([]domain.Update, error) {
	updates := make([]domain.Update, 0)
	if limit <= 0 {
		return updates, nil
	}

	rows, err := s.pool.Query(ctx, recentUpdatesSQL, districtID, limit)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "recent updates", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var u domain.Update
		if err := rows.Scan(&u.ID, &u.DistrictID, &u.Timestamp, &u.Rainfall, &u.Temperature, &u.Humidity, &u.Windspeed); err != nil {
			return nil, &domain.PersistenceError{Op: "recent updates", Err: err}
		}
		u.Timestamp = u.Timestamp.UTC()
		updates = append(updates, u)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "recent updates", Err: err}
	}
	return updates, nil
}

const recentAlertsSQL = `
    SELECT id, district_id, "timestamp", severity, details
    FROM district_alerts
    ORDER BY "timestamp" DESC, seq DESC
    LIMIT $1
`

// RecentAlerts returns up to limit alerts across all districts, newest first.
func (s *Store) RecentAlerts(ctx context.Context, limit int) ([]domain.Alert, error) {
	alerts := make([]domain.Alert, 0)
	if limit <= 0 {
		return alerts, nil
	}

	rows, err := s.pool.Query(ctx, recentAlertsSQL, limit)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "recent alerts", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, &domain.PersistenceError{Op: "recent alerts", Err: err}
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "recent alerts", Err: err}
	}
	return alerts, nil
}

func scanAlert(row pgx.Row) (domain.Alert, error) {
	var (
		a        domain.Alert
		ts       time.Time
		severity string
		details  []byte
	)
	if err := row.Scan(&a.ID, &a.DistrictID, &ts, &severity, &details); err != nil {
		return domain.Alert{}, err
	}

	level, err := domain.ParseLevel(severity)
	if err != nil {
		return domain.Alert{}, err
	}
	if err := json.Unmarshal(details, &a.Details); err != nil {
		return domain.Alert{}, fmt.Errorf("decode details for alert %s: %w", a.ID, err)
	}

	a.Timestamp = ts.UTC()
	a.Severity = level
	return a, nil
}
