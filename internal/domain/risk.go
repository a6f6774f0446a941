package domain

import "fmt"

// Thresholds configures the risk rules.
type Thresholds struct {
	FloodMultiplier   float64 // rainfall above baseline × this is a high flood risk
	WarningMultiplier float64 // rainfall above baseline × this is a medium flood risk
	HeatThresholdC    float64 // mean temperature at or above this is a high heat risk
}

// DefaultThresholds returns the stock rule configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FloodMultiplier:   3.0,
		WarningMultiplier: 1.5,
		HeatThresholdC:    35,
	}
}

// Validate rejects configurations under which the medium flood rule could
// never fire or the multipliers are meaningless.
func (t Thresholds) Validate() error {
	if t.FloodMultiplier <= 0 || t.WarningMultiplier <= 0 {
		return fmt.Errorf("rainfall multipliers must be positive (flood=%g, warning=%g)", t.FloodMultiplier, t.WarningMultiplier)
	}
	if t.WarningMultiplier >= t.FloodMultiplier {
		return fmt.Errorf("warning multiplier %g must be below flood multiplier %g", t.WarningMultiplier, t.FloodMultiplier)
	}
	return nil
}

// Classify evaluates every rule against one baseline/summary pair. Flood
// rules are exclusive of each other; the heat rule is independent and can
// fire alongside either.
func (t Thresholds) Classify(b Baseline, s ObservationSummary) []Classification {
	var out []Classification

	if b.AvgRainfall != nil {
		avg := *b.AvgRainfall
		switch {
		case s.RainfallTotalMM > avg*t.FloodMultiplier:
			out = append(out, Classification{
				Level:   LevelHigh,
				Type:    HazardFlood,
				Message: fmt.Sprintf("Rainfall %.1fmm > %gx baseline (%gmm)", s.RainfallTotalMM, t.FloodMultiplier, avg),
			})
		case s.RainfallTotalMM > avg*t.WarningMultiplier:
			out = append(out, Classification{
				Level:   LevelMedium,
				Type:    HazardFlood,
				Message: fmt.Sprintf("Rainfall elevated: %.1fmm vs baseline %gmm", s.RainfallTotalMM, avg),
			})
		}
	}

	if s.TemperatureMeanC >= t.HeatThresholdC {
		out = append(out, Classification{
			Level:   LevelHigh,
			Type:    HazardHeat,
			Message: fmt.Sprintf("High temperature %g°C", s.TemperatureMeanC),
		})
	}

	return out
}

// Detect classifies a summary and builds the alert. The bool is false when no
// rule fired, which is the normal quiet outcome.
func (t Thresholds) Detect(b Baseline, s ObservationSummary) (Alert, bool) {
	return NewAlert(b.DistrictID, s.Timestamp, t.Classify(b, s))
}
