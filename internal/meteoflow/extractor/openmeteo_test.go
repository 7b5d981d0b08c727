package extractor_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avolkhov/meteoflow/internal/meteoflow/extractor"
)

// forecastJSON is a trimmed two-day API response: four hourly slots per day
// and two daily rows.
const forecastJSON = `{
  "hourly": {
    "time": ["2025-06-01T00:00","2025-06-01T06:00","2025-06-01T12:00","2025-06-01T18:00",
             "2025-06-02T00:00","2025-06-02T06:00","2025-06-02T12:00","2025-06-02T18:00"],
    "temperature_2m": [10.1,12.4,19.8,16.2,11.0,13.5,21.2,17.7],
    "precipitation": [0.0,0.2,0.0,1.1,0.0,0.0,0.4,0.0],
    "wind_speed_10m": [3.1,4.0,6.5,5.2,2.8,3.9,7.3,4.4],
    "wind_direction_10m": [180,190,210,200,170,185,220,205]
  },
  "daily": {
    "time": ["2025-06-01","2025-06-02"],
    "temperature_2m_max": [19.8,21.2],
    "temperature_2m_min": [10.1,11.0],
    "precipitation_sum": [1.3,0.4]
  }
}`

func fetchFixture(t *testing.T) *extractor.Forecast {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "55.7558", r.URL.Query().Get("latitude"))
		require.Equal(t, "2", r.URL.Query().Get("forecast_days"))
		require.NotEmpty(t, r.URL.Query().Get("hourly"))
		fmt.Fprint(w, forecastJSON)
	}))
	t.Cleanup(server.Close)

	client := extractor.NewClient(server.URL, "UTC", nil)
	forecast, err := client.Fetch(context.Background(), extractor.City{
		Name: "Moscow", Latitude: 55.7558, Longitude: 37.6173,
	})
	require.NoError(t, err)
	return forecast
}

func TestFetchDecodesForecast(t *testing.T) {
	forecast := fetchFixture(t)

	require.Equal(t, "Moscow", forecast.City)
	require.False(t, forecast.FetchedAt.IsZero())
	require.Len(t, forecast.Hourly.Time, 8)
	require.Len(t, forecast.Daily.Time, 2)
}

func TestFetchSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	client := extractor.NewClient(server.URL, "UTC", nil)
	_, err := client.Fetch(context.Background(), extractor.City{Name: "Moscow"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
}

func TestHourlyRawRecordsSelectsTargetDay(t *testing.T) {
	forecast := fetchFixture(t)
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	records := forecast.HourlyRawRecords(day)
	require.Len(t, records, 4)
	for _, record := range records {
		require.Equal(t, "Moscow", record["city"])
		require.Equal(t, "2025-06-02", record["date"])
	}
	require.Equal(t, 11.0, records[0]["temperature"])
	require.Equal(t, "2025-06-02T00:00", records[0]["hour"])
}

func TestHourlyRawRecordsShortSeriesYieldsShortRows(t *testing.T) {
	forecast := fetchFixture(t)
	forecast.Hourly.Temperature2M = forecast.Hourly.Temperature2M[:5]
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	records := forecast.HourlyRawRecords(day)
	require.Len(t, records, 4)
	_, hasTemp := records[0]["temperature"]
	require.True(t, hasTemp)
	_, hasTemp = records[1]["temperature"]
	require.False(t, hasTemp) // validation rejects this row, not the batch
}

func TestDailyRawRecordAggregates(t *testing.T) {
	forecast := fetchFixture(t)
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	record, err := forecast.DailyRawRecord(day)
	require.NoError(t, err)
	require.Equal(t, "Moscow", record["city"])
	require.Equal(t, 11.0, record["temp_min"])
	require.Equal(t, 21.2, record["temp_max"])
	require.Equal(t, 16.1, record["temp_avg"]) // (11.0+21.2)/2 rounded to a tenth
	require.Equal(t, 0.4, record["precipitation_total"])
	require.Equal(t, 7.3, record["wind_max"]) // max hourly wind speed that day
}

func TestDailyRawRecordMissingDay(t *testing.T) {
	forecast := fetchFixture(t)
	_, err := forecast.DailyRawRecord(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
}
