package domain

import (
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// WindowHours is the length of the trailing fetch window and the number of
// hourly points kept from a provider response.
const WindowHours = 24

// HourlySeries holds index-aligned hourly values, oldest first. Nil entries are
// provider nulls. Arrays missing from the provider payload are empty, not nil-errors.
type HourlySeries struct {
	Times         []string   `json:"times"`
	Precipitation []*float64 `json:"precipitation"`
	Temperature   []*float64 `json:"temperature"`
	Humidity      []*float64 `json:"humidity,omitempty"`
	Windspeed     []*float64 `json:"windspeed,omitempty"`
}

// Latest keeps only the most recent n points of every array. A day-aligned
// provider window can return more than 24 hours, which would repeat hour labels.
func (s HourlySeries) Latest(n int) HourlySeries {
	return HourlySeries{
		Times:         tail(s.Times, n),
		Precipitation: tail(s.Precipitation, n),
		Temperature:   tail(s.Temperature, n),
		Humidity:      tail(s.Humidity, n),
		Windspeed:     tail(s.Windspeed, n),
	}
}

// Len returns the number of hourly points.
func (s HourlySeries) Len() int {
	return len(s.Times)
}

func tail[T any](values []T, n int) []T {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

// ObservationSummary reduces one fetch window to a single period.
type ObservationSummary struct {
	Timestamp           time.Time `json:"timestamp"`
	RainfallTotalMM     float64   `json:"rainfall_total_mm"`
	TemperatureMeanC    float64   `json:"temperature_mean_c"`
	HumidityMeanPercent *float64  `json:"humidity_mean_percent"`
	WindspeedMean       *float64  `json:"windspeed_mean"`
}

// Aggregate summarizes an hourly series. Timestamp is the cycle time passed in
// by the caller, never a provider time.
//
//   - rainfall: sum, nulls count as 0
//   - temperature: mean rounded to 2 dp, denominator floored at 1 so an empty series yields 0
//   - humidity, windspeed: mean, or nil for an empty series
func Aggregate(series HourlySeries, at time.Time) ObservationSummary {
	temps := zeroFilled(series.Temperature)
	tempMean := floats.Sum(temps) / float64(max(1, len(temps)))

	return ObservationSummary{
		Timestamp:           at,
		RainfallTotalMM:     floats.Sum(zeroFilled(series.Precipitation)),
		TemperatureMeanC:    round2(tempMean),
		HumidityMeanPercent: meanOrNil(series.Humidity),
		WindspeedMean:       meanOrNil(series.Windspeed),
	}
}

func zeroFilled(values []*float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if v != nil {
			out[i] = *v
		}
	}
	return out
}

func meanOrNil(values []*float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	m := stat.Mean(zeroFilled(values), nil)
	return &m
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Update is the persisted form of an ObservationSummary. Append-only.
type Update struct {
	ID          string    `json:"id"`
	DistrictID  string    `json:"district_id"`
	Timestamp   time.Time `json:"timestamp"`
	Rainfall    float64   `json:"rainfall"`
	Temperature float64   `json:"temperature"`
	Humidity    *float64  `json:"humidity"`
	Windspeed   *float64  `json:"windspeed"`
}

// NewUpdate builds the record persisted for one district after a successful fetch.
func NewUpdate(districtID string, s ObservationSummary) Update {
	return Update{
		ID:          uuid.NewString(),
		DistrictID:  districtID,
		Timestamp:   s.Timestamp,
		Rainfall:    s.RainfallTotalMM,
		Temperature: s.TemperatureMeanC,
		Humidity:    s.HumidityMeanPercent,
		Windspeed:   s.WindspeedMean,
	}
}

// OldestFirst returns a reversed copy of a newest-first update list for charting.
func OldestFirst(updates []Update) []Update {
	out := slices.Clone(updates)
	slices.Reverse(out)
	return out
}
