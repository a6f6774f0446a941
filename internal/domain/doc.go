// Package domain models district weather observations and the risk rules
// applied to them.
//
// # Data Source
//
// Hourly observations come from the Open-Meteo forecast API, queried per
// district centroid for the trailing 24 hours. The provider returns parallel,
// index-aligned arrays (time, precipitation, temperature_2m,
// relativehumidity_2m, windspeed_10m). Any array may be missing or contain
// nulls; missing arrays become empty slices and nulls become nil entries.
//
// # Aggregation
//
// One fetch window reduces to an [ObservationSummary]:
//
//	rainfall     sum of precipitation (mm), nulls count as 0
//	temperature  mean (°C) rounded to 2 dp, 0 for an empty series
//	humidity     mean (%), nil for an empty series
//	windspeed    mean, nil for an empty series
//
// The summary timestamp is the cycle time, not the provider's last hour.
//
// # Risk Rules
//
// Each summary is compared against the district [Baseline]:
//
//	flood high    rainfall >  avg_rainfall × 3.0
//	flood medium  rainfall >  avg_rainfall × 1.5   (only if flood high did not fire)
//	heat high     temperature >= 35 °C             (independent of the flood rules)
//
// Multipliers and the heat threshold are configurable via [Thresholds]. A nil
// avg_rainfall disables both flood rules for that district.
//
// An [Alert] exists only when at least one [Classification] fired; its
// severity is the maximum classification [Level] (high > medium > low).
package domain
