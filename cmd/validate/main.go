// Command validate checks a district GeoJSON file and the configured risk
// thresholds before deployment. With -seed it also writes the synthetic
// baselines to DATABASE_URL and reads them back.
//
// Usage:
//
//	go run ./cmd/validate -districts data/districts_sample.json
//	DATABASE_URL=postgres://... go run ./cmd/validate -districts data/districts_sample.json -seed
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/district-weather-monitor/internal/adapter/geojson"
	"github.com/couchcryptid/district-weather-monitor/internal/adapter/postgres"
	"github.com/couchcryptid/district-weather-monitor/internal/config"
	"github.com/couchcryptid/district-weather-monitor/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	districtsPath := flag.String("districts", "data/districts_sample.json", "path to the district GeoJSON file")
	seed := flag.Bool("seed", false, "upsert synthetic baselines into DATABASE_URL and read them back")
	rngSeed := flag.Uint64("rng-seed", 1, "seed for synthetic baseline generation")
	flag.Parse()

	if code := run(*districtsPath, *seed, *rngSeed); code != 0 {
		os.Exit(code)
	}
}

func run(districtsPath string, seed bool, rngSeed uint64) int {
	// Fixed clock so generated alert timestamps are reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.April, 26, 15, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	fmt.Println("=== District Monitor Validation ===")
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		return 1
	}

	districts, err := geojson.LoadDistricts(districtsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load districts: %v\n", err)
		return 1
	}

	baselines, err := geojson.NewBaselineFile(districtsPath, rngSeed).LoadBaselines(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: build baselines: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateDistricts(districts),
		validateBaselines(baselines, districts),
		validateThresholds(cfg.Thresholds),
	}
	if seed {
		phases = append(phases, validateSeed(cfg, baselines))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d districts, %d baselines\n", len(districts), len(baselines))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func validateDistricts(districts []domain.District) *phase {
	p := &phase{name: "Phase 1: District File (ids, coordinates)"}

	if len(districts) == 0 {
		p.errorf("no districts in file")
		return p
	}

	seen := make(map[string]int, len(districts))
	for i, d := range districts {
		if prev, ok := seen[d.ID]; ok {
			p.errorf("feature %d: duplicate id %q (first at feature %d)", i, d.ID, prev)
		}
		seen[d.ID] = i

		if d.Name == "" {
			p.errorf("feature %d (%s): empty name", i, d.ID)
		}
		if !d.HasCoordinates() {
			p.errorf("feature %d (%s): no coordinates and no geometry to derive them from", i, d.ID)
			continue
		}
		if *d.Lat < -90 || *d.Lat > 90 {
			p.errorf("feature %d (%s): latitude %g out of range", i, d.ID, *d.Lat)
		}
		if *d.Lon < -180 || *d.Lon > 180 {
			p.errorf("feature %d (%s): longitude %g out of range", i, d.ID, *d.Lon)
		}
	}
	return p
}

func validateBaselines(baselines []domain.Baseline, districts []domain.District) *phase {
	p := &phase{name: "Phase 2: Synthetic Baselines"}

	withCoords := 0
	for _, d := range districts {
		if d.HasCoordinates() {
			withCoords++
		}
	}
	if len(baselines) != withCoords {
		p.errorf("baseline count: got %d, want %d", len(baselines), withCoords)
	}

	for _, b := range baselines {
		if b.AvgRainfall == nil || *b.AvgRainfall < 10 || *b.AvgRainfall > 40 {
			p.errorf("%s: avg_rainfall %v outside [10, 40]", b.DistrictID, ptrFloat(b.AvgRainfall))
		}
		if b.AvgTemperature == nil || *b.AvgTemperature < 20 || *b.AvgTemperature > 26 {
			p.errorf("%s: avg_temperature %v outside [20, 26]", b.DistrictID, ptrFloat(b.AvgTemperature))
		}
	}
	return p
}

// validateThresholds runs reference summaries through the configured rules
// against a 10mm baseline and reports any case that does not classify as the
// configured multipliers say it should.
func validateThresholds(t domain.Thresholds) *phase {
	p := &phase{name: "Phase 3: Risk Thresholds"}

	if err := t.Validate(); err != nil {
		p.errorf("%v", err)
		return p
	}

	avg := 10.0
	b := domain.Baseline{DistrictID: "ref", AvgRainfall: &avg}
	cases := []struct {
		rainfall float64
		temp     float64
		want     domain.Level // 0 means no alert
	}{
		{rainfall: avg*t.FloodMultiplier + 1, temp: 20, want: domain.LevelHigh},
		{rainfall: avg * t.FloodMultiplier, temp: 20, want: domain.LevelMedium},
		{rainfall: avg*t.WarningMultiplier + 1, temp: 20, want: domain.LevelMedium},
		{rainfall: avg * t.WarningMultiplier, temp: 20, want: 0},
		{rainfall: 0, temp: t.HeatThresholdC, want: domain.LevelHigh},
		{rainfall: 0, temp: t.HeatThresholdC - 0.01, want: 0},
	}

	for _, c := range cases {
		s := domain.ObservationSummary{Timestamp: domain.Now(), RainfallTotalMM: c.rainfall, TemperatureMeanC: c.temp}
		alert, ok := t.Detect(b, s)
		switch {
		case c.want == 0 && ok:
			p.errorf("rain=%g temp=%g: unexpected %s alert", c.rainfall, c.temp, alert.Severity)
		case c.want != 0 && !ok:
			p.errorf("rain=%g temp=%g: expected %s alert, got none", c.rainfall, c.temp, c.want)
		case ok && alert.Severity != c.want:
			p.errorf("rain=%g temp=%g: severity %s, want %s", c.rainfall, c.temp, alert.Severity, c.want)
		}
	}
	return p
}

func validateSeed(cfg *config.Config, baselines []domain.Baseline) *phase {
	p := &phase{name: "Phase 4: Remote Store Seed"}

	if cfg.DatabaseURL == "" {
		p.errorf("DATABASE_URL is not set")
		return p
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		p.errorf("connect: %v", err)
		return p
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		p.errorf("%v", err)
		return p
	}
	if err := store.UpsertBaselines(ctx, baselines); err != nil {
		p.errorf("%v", err)
		return p
	}

	loaded, err := store.LoadBaselines(ctx)
	if err != nil {
		p.errorf("%v", err)
		return p
	}

	byID := make(map[string]domain.Baseline, len(loaded))
	for _, b := range loaded {
		byID[b.DistrictID] = b
	}
	for _, want := range baselines {
		got, ok := byID[want.DistrictID]
		if !ok {
			p.errorf("%s: not found after upsert", want.DistrictID)
			continue
		}
		if got.Name != want.Name || !floatEq(got.Lat, want.Lat) || !floatEq(got.Lon, want.Lon) {
			p.errorf("%s: stored (%s, %g, %g), want (%s, %g, %g)",
				want.DistrictID, got.Name, got.Lat, got.Lon, want.Name, want.Lat, want.Lon)
		}
	}
	fmt.Printf("Seeded %d baselines into the remote store\n", len(baselines))
	return p
}

func floatEq(a, b float64) bool {
	const eps = 1e-9
	d := a - b
	return d < eps && d > -eps
}

func ptrFloat(v *float64) any {
	if v == nil {
		return "null"
	}
	return *v
}
