package domain

import "context"

// District is immutable reference data loaded from the boundary/locations source.
// Lat and Lon are nil when the source carried no explicit coordinates and no
// geometry to derive a centroid from.
type District struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Lat  *float64 `json:"latitude,omitempty"`
	Lon  *float64 `json:"longitude,omitempty"`
}

// HasCoordinates reports whether the district can be queried against the weather provider.
func (d District) HasCoordinates() bool {
	return d.Lat != nil && d.Lon != nil
}

// Baseline is the historical reference for one district. A nil AvgRainfall
// disables flood classification for that district.
type Baseline struct {
	DistrictID     string   `json:"id"`
	Name           string   `json:"name"`
	Lat            float64  `json:"latitude"`
	Lon            float64  `json:"longitude"`
	AvgRainfall    *float64 `json:"avg_rainfall"`
	AvgTemperature *float64 `json:"avg_temperature"`
}

// WeatherSource fetches the trailing 24 hours of hourly observations for a coordinate.
type WeatherSource interface {
	FetchHourly(ctx context.Context, lat, lon float64) (HourlySeries, error)
}
