// Package geojson reads district boundaries from a GeoJSON FeatureCollection
// and derives synthetic baselines from them when no database is configured.
package geojson

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"slices"
	"strconv"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/couchcryptid/district-weather-monitor/internal/domain"
)

// Property keys tried in order when a feature carries no explicit id or name.
var (
	idKeys   = []string{"id", "ID", "code", "CODE", "shapeID", "SHAPEID"}
	nameKeys = []string{"name", "NAME", "District", "NAME_EN", "shapeName", "SHAPENAME"}
)

// ParseDistricts decodes a FeatureCollection. Missing ids fall back to the
// 1-based feature index and missing names to "D<id>". Coordinates come from
// latitude/longitude properties, a Point geometry, or the planar centroid of
// any other geometry, in that order.
func ParseDistricts(data []byte) ([]domain.District, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}

	districts := make([]domain.District, 0, len(fc.Features))
	for i, f := range fc.Features {
		id := firstString(f.Properties, idKeys)
		if id == "" {
			id = strconv.Itoa(i + 1)
		}
		name := firstString(f.Properties, nameKeys)
		if name == "" {
			name = "D" + id
		}

		d := domain.District{ID: id, Name: name}
		if lat, lon, ok := coordinates(f); ok {
			d.Lat, d.Lon = &lat, &lon
		}
		districts = append(districts, d)
	}
	return districts, nil
}

// LoadDistricts reads and parses a GeoJSON file.
func LoadDistricts(path string) ([]domain.District, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read districts file: %w", err)
	}
	return ParseDistricts(data)
}

func coordinates(f *geojson.Feature) (lat, lon float64, ok bool) {
	if lat, ok := number(f.Properties["latitude"]); ok {
		if lon, ok := number(f.Properties["longitude"]); ok {
			return lat, lon, true
		}
	}
	if f.Geometry == nil {
		return 0, 0, false
	}
	if p, isPoint := f.Geometry.(orb.Point); isPoint {
		return p.Lat(), p.Lon(), true
	}
	// Only an empty geometry lacks a centroid; (0,0) is a real one.
	if isEmpty(f.Geometry) {
		return 0, 0, false
	}
	c, _ := planar.CentroidArea(f.Geometry)
	if math.IsNaN(c.Lat()) || math.IsNaN(c.Lon()) {
		return 0, 0, false
	}
	return c.Lat(), c.Lon(), true
}

func isEmpty(g orb.Geometry) bool {
	switch g := g.(type) {
	case orb.MultiPoint:
		return len(g) == 0
	case orb.LineString:
		return len(g) == 0
	case orb.Ring:
		return len(g) == 0
	case orb.Polygon:
		return len(g) == 0 || len(g[0]) == 0
	case orb.MultiLineString:
		for _, ls := range g {
			if len(ls) > 0 {
				return false
			}
		}
		return true
	case orb.MultiPolygon:
		for _, p := range g {
			if !isEmpty(p) {
				return false
			}
		}
		return true
	case orb.Collection:
		for _, c := range g {
			if !isEmpty(c) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func firstString(props geojson.Properties, keys []string) string {
	for _, k := range keys {
		switch v := props[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// BaselineFile is a BaselineSource backed by a GeoJSON district file. The
// file is read on first use and the generated baselines are kept for the
// life of the process, so every cycle compares against the same values.
type BaselineFile struct {
	path string
	rng  *rand.Rand

	mu        sync.Mutex
	baselines []domain.Baseline
}

// NewBaselineFile creates a baseline source for path. seed makes the
// synthetic averages reproducible.
func NewBaselineFile(path string, seed uint64) *BaselineFile {
	return &BaselineFile{
		path: path,
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// LoadBaselines returns one baseline per district with coordinates.
// avg_rainfall is drawn from [10, 40) mm and avg_temperature from [20, 26) °C.
func (b *BaselineFile) LoadBaselines(_ context.Context) ([]domain.Baseline, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.baselines != nil {
		return slices.Clone(b.baselines), nil
	}

	districts, err := LoadDistricts(b.path)
	if err != nil {
		return nil, err
	}

	baselines := make([]domain.Baseline, 0, len(districts))
	for _, d := range districts {
		if !d.HasCoordinates() {
			continue
		}
		rain := round1(10 + b.rng.Float64()*30)
		temp := round1(20 + b.rng.Float64()*6)
		baselines = append(baselines, domain.Baseline{
			DistrictID:     d.ID,
			Name:           d.Name,
			Lat:            *d.Lat,
			Lon:            *d.Lon,
			AvgRainfall:    &rain,
			AvgTemperature: &temp,
		})
	}
	b.baselines = baselines
	return slices.Clone(baselines), nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
