package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Level is a classification or alert severity. The zero value is invalid;
// valid levels are totally ordered low < medium < high.
type Level int

const (
	LevelLow Level = iota + 1
	LevelMedium
	LevelHigh
)

// String returns the lowercase name used in storage and message headers.
func (l Level) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelMedium:
		return "medium"
	case LevelHigh:
		return "high"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseLevel converts the persisted severity text back into a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "low":
		return LevelLow, nil
	case "medium":
		return LevelMedium, nil
	case "high":
		return LevelHigh, nil
	default:
		return 0, fmt.Errorf("unknown level %q", s)
	}
}

// MarshalText encodes a valid level by name and rejects the zero value.
func (l Level) MarshalText() ([]byte, error) {
	if l < LevelLow || l > LevelHigh {
		return nil, fmt.Errorf("invalid level %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText decodes a level name written by MarshalText.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Hazard names the rule family that fired.
type Hazard string

const (
	HazardFlood Hazard = "flood"
	HazardHeat  Hazard = "heat"
)

// Classification is a single rule firing during risk detection.
type Classification struct {
	Level   Level  `json:"level"`
	Type    Hazard `json:"type"`
	Message string `json:"message"`
}

// Alert is persisted once per district per cycle when at least one
// classification fired. Severity is always the maximum level in Details.
type Alert struct {
	ID         string           `json:"id"`
	DistrictID string           `json:"district_id"`
	Timestamp  time.Time        `json:"timestamp"`
	Severity   Level            `json:"severity"`
	Details    []Classification `json:"details"`
}

// NewAlert derives an alert from its classifications. It returns false for an
// empty details slice: no alert exists without a classification.
func NewAlert(districtID string, at time.Time, details []Classification) (Alert, bool) {
	if len(details) == 0 {
		return Alert{}, false
	}
	return Alert{
		ID:         uuid.NewString(),
		DistrictID: districtID,
		Timestamp:  at,
		Severity:   MaxLevel(details),
		Details:    details,
	}, true
}

// MaxLevel returns the highest level among the classifications, or 0 for none.
func MaxLevel(details []Classification) Level {
	var highest Level
	for _, d := range details {
		if d.Level > highest {
			highest = d.Level
		}
	}
	return highest
}

// OverallRisk summarizes an alert feed for display: "High", "Medium", "Low",
// or "None" when the feed is empty.
func OverallRisk(alerts []Alert) string {
	var highest Level
	for _, a := range alerts {
		if a.Severity > highest {
			highest = a.Severity
		}
	}
	switch highest {
	case LevelHigh:
		return "High"
	case LevelMedium:
		return "Medium"
	case LevelLow:
		return "Low"
	}
	if len(alerts) > 0 {
		return "Low"
	}
	return "None"
}
