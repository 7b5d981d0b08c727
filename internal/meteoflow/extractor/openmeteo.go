// Package extractor fetches weather forecasts and shapes them into raw
// records for validation.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/avolkhov/meteoflow/internal/meteoflow/model"
	"github.com/avolkhov/meteoflow/internal/pkg/log"
)

// DefaultBaseURL is the public forecast endpoint.
const DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"

// City names a coordinate pair to fetch.
type City struct {
	Name      string  `yaml:"name"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// Client calls the Open-Meteo forecast API.
type Client struct {
	baseURL    string
	timezone   string
	httpClient *http.Client
	logger     log.Logger
}

// Fetcher is the extraction surface the orchestrator depends on.
type Fetcher interface {
	Fetch(ctx context.Context, city City) (*Forecast, error)
}

var _ Fetcher = (*Client)(nil)

// NewClient creates a forecast client. An empty baseURL selects the public
// endpoint.
func NewClient(baseURL, timezone string, logger log.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timezone == "" {
		timezone = "Europe/Moscow"
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		baseURL:  baseURL,
		timezone: timezone,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Forecast is the decoded API response for one city.
type Forecast struct {
	City      string    `json:"city"`
	FetchedAt time.Time `json:"fetched_at"`

	Hourly struct {
		Time            []string  `json:"time"`
		Temperature2M   []float64 `json:"temperature_2m"`
		Precipitation   []float64 `json:"precipitation"`
		WindSpeed10M    []float64 `json:"wind_speed_10m"`
		WindDirection10 []float64 `json:"wind_direction_10m"`
	} `json:"hourly"`

	Daily struct {
		Time             []string  `json:"time"`
		Temperature2MMax []float64 `json:"temperature_2m_max"`
		Temperature2MMin []float64 `json:"temperature_2m_min"`
		PrecipitationSum []float64 `json:"precipitation_sum"`
	} `json:"daily"`
}

// Fetch retrieves a two-day forecast for the city. Transient HTTP failures
// surface as plain errors; the caller's retry policy owns attempts.
func (c *Client) Fetch(ctx context.Context, city City) (*Forecast, error) {
	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%g", city.Latitude))
	params.Set("longitude", fmt.Sprintf("%g", city.Longitude))
	params.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_sum")
	params.Set("hourly", "temperature_2m,precipitation,wind_speed_10m,wind_direction_10m")
	params.Set("timezone", c.timezone)
	params.Set("forecast_days", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build forecast request: %w", err)
	}

	c.logger.Infow("Fetching forecast", "city", city.Name)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch forecast for %s: %w", city.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forecast API returned %d for %s", resp.StatusCode, city.Name)
	}

	var forecast Forecast
	if err := json.NewDecoder(resp.Body).Decode(&forecast); err != nil {
		return nil, fmt.Errorf("decode forecast for %s: %w", city.Name, err)
	}

	forecast.City = city.Name
	forecast.FetchedAt = time.Now()
	return &forecast, nil
}

// HourlyRawRecords shapes the forecast's hourly series for the target day
// into raw records. Index mismatches between the series produce short rows,
// which validation rejects rather than the transform guessing.
func (f *Forecast) HourlyRawRecords(day time.Time) []model.RawRecord {
	target := day.Format("2006-01-02")
	records := make([]model.RawRecord, 0, 24)

	for i, ts := range f.Hourly.Time {
		if len(ts) < len(target) || ts[:len(target)] != target {
			continue
		}
		record := model.RawRecord{
			"city": f.City,
			"date": target,
			"hour": ts,
		}
		if i < len(f.Hourly.Temperature2M) {
			record["temperature"] = f.Hourly.Temperature2M[i]
		}
		if i < len(f.Hourly.Precipitation) {
			record["precipitation"] = f.Hourly.Precipitation[i]
		}
		if i < len(f.Hourly.WindSpeed10M) {
			record["wind_speed"] = f.Hourly.WindSpeed10M[i]
		}
		if i < len(f.Hourly.WindDirection10) {
			record["wind_direction"] = f.Hourly.WindDirection10[i]
		}
		records = append(records, record)
	}
	return records
}

// DailyRawRecord aggregates the forecast's daily series for the target day
// into one raw record. It returns an error when the day is absent.
func (f *Forecast) DailyRawRecord(day time.Time) (model.RawRecord, error) {
	target := day.Format("2006-01-02")
	idx := -1
	for i, d := range f.Daily.Time {
		if d == target {
			idx = i
			break
		}
	}
	if idx < 0 || idx >= len(f.Daily.Temperature2MMin) || idx >= len(f.Daily.Temperature2MMax) {
		return nil, fmt.Errorf("forecast for %s has no daily data for %s", f.City, target)
	}

	tempMin := f.Daily.Temperature2MMin[idx]
	tempMax := f.Daily.Temperature2MMax[idx]
	record := model.RawRecord{
		"city":     f.City,
		"date":     target,
		"temp_min": tempMin,
		"temp_max": tempMax,
		"temp_avg": roundTenth((tempMin + tempMax) / 2),
		"wind_max": windMax(f, target),
	}
	if idx < len(f.Daily.PrecipitationSum) {
		record["precipitation_total"] = f.Daily.PrecipitationSum[idx]
	}
	return record, nil
}

func windMax(f *Forecast, target string) float64 {
	max := 0.0
	for i, ts := range f.Hourly.Time {
		if len(ts) < len(target) || ts[:len(target)] != target {
			continue
		}
		if i < len(f.Hourly.WindSpeed10M) && f.Hourly.WindSpeed10M[i] > max {
			max = f.Hourly.WindSpeed10M[i]
		}
	}
	return max
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
