package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/district-weather-monitor/internal/domain"
	"github.com/couchcryptid/district-weather-monitor/internal/observability"
)

// Hourly variables requested from the forecast API.
const (
	FieldTemperature   = "temperature_2m"
	FieldPrecipitation = "precipitation"
	FieldHumidity      = "relativehumidity_2m"
	FieldWindspeed     = "windspeed_10m"
)

var (
	// CycleFields feed the per-district aggregation.
	CycleFields = []string{FieldTemperature, FieldPrecipitation, FieldHumidity, FieldWindspeed}
	// ChartFields feed the live chart for an arbitrary coordinate.
	ChartFields = []string{FieldTemperature, FieldPrecipitation}
)

// Client implements domain.WeatherSource using the Open-Meteo forecast API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	timezone   string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an Open-Meteo client.
func NewClient(baseURL, timezone string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:  baseURL,
		timezone: timezone,
		metrics:  metrics,
		logger:   logger,
	}
}

// FetchHourly fetches the aggregation fields for the trailing 24 hours.
func (c *Client) FetchHourly(ctx context.Context, lat, lon float64) (domain.HourlySeries, error) {
	return c.Fetch(ctx, lat, lon, CycleFields)
}

// FetchChartSeries fetches temperature and precipitation for charting.
func (c *Client) FetchChartSeries(ctx context.Context, lat, lon float64) (domain.HourlySeries, error) {
	return c.Fetch(ctx, lat, lon, ChartFields)
}

// Fetch requests the given hourly fields for the window [now-24h, now] and
// keeps the most recent 24 points. Transport failures and non-2xx statuses
// return a *domain.FetchError. So does an undecodable body, wrapping a
// *domain.MalformedResponseError. A decodable payload missing the hourly
// object or any of its arrays yields empty arrays, not an error.
func (c *Client) Fetch(ctx context.Context, lat, lon float64, fields []string) (domain.HourlySeries, error) {
	start := time.Now()
	defer func() {
		c.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(lat, lon, fields), nil)
	if err != nil {
		return domain.HourlySeries{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues("error").Inc()
		return domain.HourlySeries{}, &domain.FetchError{Lat: lat, Lon: lon, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.FetchRequests.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.HourlySeries{}, &domain.FetchError{
			Lat:        lat,
			Lon:        lon,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("open-meteo API error: %s", strings.TrimSpace(string(body))),
		}
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		if ctx.Err() != nil {
			c.metrics.FetchRequests.WithLabelValues("error").Inc()
			return domain.HourlySeries{}, &domain.FetchError{Lat: lat, Lon: lon, Err: ctx.Err()}
		}
		c.metrics.FetchRequests.WithLabelValues("malformed").Inc()
		c.logger.Debug("undecodable weather response", "latitude", lat, "longitude", lon, "error", err)
		return domain.HourlySeries{}, &domain.FetchError{
			Lat:        lat,
			Lon:        lon,
			StatusCode: resp.StatusCode,
			Err:        &domain.MalformedResponseError{Err: err},
		}
	}

	c.metrics.FetchRequests.WithLabelValues("success").Inc()
	return payload.series().Latest(domain.WindowHours), nil
}

func (c *Client) requestURL(lat, lon float64, fields []string) string {
	now := domain.Now().UTC()
	params := url.Values{
		"latitude":  {strconv.FormatFloat(lat, 'f', -1, 64)},
		"longitude": {strconv.FormatFloat(lon, 'f', -1, 64)},
		"hourly":    {strings.Join(fields, ",")},
		"timezone":  {c.timezone},
		"start":     {now.Add(-domain.WindowHours * time.Hour).Format(time.RFC3339)},
		"end":       {now.Format(time.RFC3339)},
	}
	return c.baseURL + "?" + params.Encode()
}

// Open-Meteo API response types. Every hourly array is optional.

type response struct {
	Hourly *hourly `json:"hourly"`
}

type hourly struct {
	Time          []string   `json:"time"`
	Temperature   []*float64 `json:"temperature_2m"`
	Precipitation []*float64 `json:"precipitation"`
	Humidity      []*float64 `json:"relativehumidity_2m"`
	Windspeed     []*float64 `json:"windspeed_10m"`
}

func (r response) series() domain.HourlySeries {
	h := r.Hourly
	if h == nil {
		h = &hourly{}
	}
	return domain.HourlySeries{
		Times:         orEmpty(h.Time),
		Precipitation: orEmpty(h.Precipitation),
		Temperature:   orEmpty(h.Temperature),
		Humidity:      orEmpty(h.Humidity),
		Windspeed:     orEmpty(h.Windspeed),
	}
}

func orEmpty[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}
