// Package memory is the in-process store used when no database is configured.
// Its contents do not survive a restart.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/couchcryptid/district-weather-monitor/internal/domain"
)

// Store keeps updates and alerts in append-only slices.
type Store struct {
	mu      sync.RWMutex
	updates []domain.Update
	alerts  []domain.Alert
}

// New creates an empty Store.
func New() *Store {
	return &Store{}
}

func (s *Store) AppendUpdate(_ context.Context, u domain.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, u)
	return nil
}

func (s *Store) AppendAlert(_ context.Context, a domain.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
	return nil
}

// RecentForDistrict returns up to limit updates for the district, newest
// first. Equal timestamps keep the later insert first.
func (s *Store) RecentForDistrict(_ context.Context, districtID string, limit int) ([]domain.Update, error) {
	if limit <= 0 {
		return []domain.Update{}, nil
	}

	s.mu.RLock()
	out := make([]domain.Update, 0, min(limit, len(s.updates)))
	for i := len(s.updates) - 1; i >= 0; i-- {
		if s.updates[i].DistrictID == districtID {
			out = append(out, s.updates[i])
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b domain.Update) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return truncate(out, limit), nil
}

// RecentAlerts returns up to limit alerts across all districts, newest first.
func (s *Store) RecentAlerts(_ context.Context, limit int) ([]domain.Alert, error) {
	if limit <= 0 {
		return []domain.Alert{}, nil
	}

	s.mu.RLock()
	out := make([]domain.Alert, len(s.alerts))
	copy(out, s.alerts)
	s.mu.RUnlock()

	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b domain.Alert) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return truncate(out, limit), nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

func truncate[T any](values []T, limit int) []T {
	if len(values) > limit {
		return values[:limit]
	}
	return values
}
