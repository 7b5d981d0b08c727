// Package meteoflow assembles the weather ETL service: configuration,
// component wiring, the schedule loop, and the HTTP surface.
package meteoflow

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/avolkhov/meteoflow/internal/meteoflow/extractor"
	"github.com/avolkhov/meteoflow/internal/pkg/known"
)

// Config carries everything the service needs, populated from the
// environment with sensible local-development defaults.
type Config struct {
	PipelineName string
	HTTPAddr     string

	// Cities to process. CitiesFile, when set, overrides the built-in list.
	Cities     []extractor.City
	CitiesFile string

	// Tracking store. EnableMemoryStore swaps SQLite for the in-process
	// store, for tests and dry runs.
	DBPath            string
	EnableMemoryStore bool

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOUseSSL    bool
	StagingBucket  string

	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	TelegramToken string

	KafkaBrokers []string
	KafkaTopic   string

	// ScheduleInterval drives the interval schedule; DailyAt ("15:04"), when
	// set, switches to a once-a-day schedule instead.
	ScheduleInterval time.Duration
	DailyAt          string

	Workers     int
	MaxAttempts int
	BaseDelay   time.Duration

	LogLevel  string
	LogFormat string
}

// FromEnv builds a Config from METEOFLOW_* environment variables.
func FromEnv() Config {
	return Config{
		PipelineName: getenv("METEOFLOW_PIPELINE_NAME", known.DefaultPipelineName),
		HTTPAddr:     getenv("METEOFLOW_HTTP_ADDR", ":8080"),

		Cities:     DefaultCities(),
		CitiesFile: getenv("METEOFLOW_CITIES_FILE", ""),

		DBPath:            getenv("METEOFLOW_DB_PATH", "meteoflow.db"),
		EnableMemoryStore: getenvBool("METEOFLOW_MEMORY_STORE", false),

		MinIOEndpoint:  getenv("METEOFLOW_MINIO_ENDPOINT", "localhost:9000"),
		MinIOAccessKey: getenv("METEOFLOW_MINIO_ACCESS_KEY", "minioadmin"),
		MinIOSecretKey: getenv("METEOFLOW_MINIO_SECRET_KEY", "minioadmin"),
		MinIOUseSSL:    getenvBool("METEOFLOW_MINIO_USE_SSL", false),
		StagingBucket:  getenv("METEOFLOW_STAGING_BUCKET", known.StagingBucket),

		ClickHouseAddr:     getenv("METEOFLOW_CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDatabase: getenv("METEOFLOW_CLICKHOUSE_DATABASE", "weather"),
		ClickHouseUsername: getenv("METEOFLOW_CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getenv("METEOFLOW_CLICKHOUSE_PASSWORD", ""),

		TelegramToken: getenv("METEOFLOW_TELEGRAM_TOKEN", ""),

		KafkaBrokers: getenvList("METEOFLOW_KAFKA_BROKERS"),
		KafkaTopic:   getenv("METEOFLOW_KAFKA_TOPIC", "meteoflow.run-events"),

		ScheduleInterval: time.Duration(getenvInt("METEOFLOW_SCHEDULE_SECONDS", 60)) * time.Second,
		DailyAt:          getenv("METEOFLOW_DAILY_AT", ""),

		Workers:     getenvInt("METEOFLOW_WORKERS", known.DefaultMaxWorkers),
		MaxAttempts: getenvInt("METEOFLOW_MAX_ATTEMPTS", known.DefaultMaxAttempts),
		BaseDelay:   time.Duration(getenvInt("METEOFLOW_BASE_DELAY_SECONDS", known.DefaultBaseDelaySecs)) * time.Second,

		LogLevel:  getenv("METEOFLOW_LOG_LEVEL", "info"),
		LogFormat: getenv("METEOFLOW_LOG_FORMAT", "console"),
	}
}

// DefaultCities is the built-in city list.
func DefaultCities() []extractor.City {
	return []extractor.City{
		{Name: "Moscow", Latitude: 55.7558, Longitude: 37.6173},
		{Name: "Samara", Latitude: 53.1959, Longitude: 50.1002},
	}
}

// LoadCities reads a YAML city list:
//
//	cities:
//	  - name: Moscow
//	    latitude: 55.7558
//	    longitude: 37.6173
func LoadCities(path string) ([]extractor.City, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cities file: %w", err)
	}
	var doc struct {
		Cities []extractor.City `yaml:"cities"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse cities file %s: %w", path, err)
	}
	if len(doc.Cities) == 0 {
		return nil, fmt.Errorf("cities file %s lists no cities", path)
	}
	for _, city := range doc.Cities {
		if city.Name == "" {
			return nil, fmt.Errorf("cities file %s has a city without a name", path)
		}
	}
	return doc.Cities, nil
}

func getenv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

func getenvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
