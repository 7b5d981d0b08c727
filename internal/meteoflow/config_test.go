package meteoflow

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avolkhov/meteoflow/internal/meteoflow/scheduler"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	require.Equal(t, "weather-etl", cfg.PipelineName)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, time.Minute, cfg.ScheduleInterval)
	require.Equal(t, 3, cfg.MaxAttempts)
	require.Equal(t, 10*time.Second, cfg.BaseDelay)
	require.Len(t, cfg.Cities, 2)
	require.Equal(t, "Moscow", cfg.Cities[0].Name)
	require.Nil(t, cfg.KafkaBrokers)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("METEOFLOW_PIPELINE_NAME", "backfill")
	t.Setenv("METEOFLOW_SCHEDULE_SECONDS", "300")
	t.Setenv("METEOFLOW_MEMORY_STORE", "true")
	t.Setenv("METEOFLOW_KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg := FromEnv()
	require.Equal(t, "backfill", cfg.PipelineName)
	require.Equal(t, 5*time.Minute, cfg.ScheduleInterval)
	require.True(t, cfg.EnableMemoryStore)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoadCities(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cities.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cities:
  - name: Moscow
    latitude: 55.7558
    longitude: 37.6173
  - name: Kazan
    latitude: 55.7963
    longitude: 49.1088
`), 0o600))

	cities, err := LoadCities(path)
	require.NoError(t, err)
	require.Len(t, cities, 2)
	require.Equal(t, "Kazan", cities[1].Name)
	require.Equal(t, 49.1088, cities[1].Longitude)
}

func TestLoadCitiesRejectsEmptyAndNameless(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("cities: []\n"), 0o600))
	_, err := LoadCities(empty)
	require.Error(t, err)

	nameless := filepath.Join(dir, "nameless.yaml")
	require.NoError(t, os.WriteFile(nameless, []byte("cities:\n  - latitude: 1.0\n    longitude: 2.0\n"), 0o600))
	_, err = LoadCities(nameless)
	require.Error(t, err)
}

func TestBuildScheduleSelectsDaily(t *testing.T) {
	cfg := Config{DailyAt: "07:30"}
	schedule := buildSchedule(cfg)

	daily, ok := schedule.(scheduler.Daily)
	require.True(t, ok)
	require.Equal(t, 7, daily.Hour)
	require.Equal(t, 30, daily.Minute)
}

func TestBuildScheduleFallsBackToInterval(t *testing.T) {
	schedule := buildSchedule(Config{ScheduleInterval: 5 * time.Minute})
	interval, ok := schedule.(scheduler.Interval)
	require.True(t, ok)
	require.Equal(t, 5*time.Minute, interval.Every)

	// An unparseable daily time falls back too.
	schedule = buildSchedule(Config{DailyAt: "25:99", ScheduleInterval: time.Minute})
	_, ok = schedule.(scheduler.Interval)
	require.True(t, ok)
}
