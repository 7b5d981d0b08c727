package loader

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/avolkhov/meteoflow/internal/meteoflow/model"
	"github.com/avolkhov/meteoflow/internal/pkg/errno"
	"github.com/avolkhov/meteoflow/internal/pkg/known"
	"github.com/avolkhov/meteoflow/internal/pkg/log"
)

// ClickHouseOptions configures the analytical store connection.
type ClickHouseOptions struct {
	Addr     string
	Database string
	Username string
	Password string
}

// ClickHouseWriter implements RecordWriter on ClickHouse native batches.
type ClickHouseWriter struct {
	conn   driver.Conn
	logger log.Logger
}

var _ RecordWriter = (*ClickHouseWriter)(nil)

// NewClickHouse opens a native-protocol connection to ClickHouse.
func NewClickHouse(opts *ClickHouseOptions, logger log.Logger) (*ClickHouseWriter, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
	})
	if err != nil {
		return nil, errno.ErrStoreWrite.WithMessage("connect clickhouse at %s", opts.Addr).Wrap(err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ClickHouseWriter{conn: conn, logger: logger}, nil
}

// Write inserts the artifact's records in one native batch. ClickHouse
// applies the batch atomically from the caller's perspective: an error from
// Send means nothing from this batch is visible.
func (w *ClickHouseWriter) Write(ctx context.Context, artifact *model.Artifact) error {
	switch artifact.Kind {
	case known.ArtifactKindHourly:
		return w.writeHourly(ctx, artifact.Hourly)
	case known.ArtifactKindDaily:
		return w.writeDaily(ctx, artifact.Daily)
	default:
		return errno.ErrDeserialization.WithMessage("unknown artifact kind %q", artifact.Kind)
	}
}

func (w *ClickHouseWriter) writeHourly(ctx context.Context, records []model.HourlyRecord) error {
	batch, err := w.conn.PrepareBatch(ctx,
		"INSERT INTO weather_hourly (city, date, hour, temperature, precipitation, wind_speed, wind_direction)")
	if err != nil {
		return fmt.Errorf("prepare hourly batch: %w", err)
	}
	for _, r := range records {
		if err := batch.Append(r.City, r.Date, r.Hour, float32(r.Temperature),
			float32(r.Precipitation), float32(r.WindSpeed), r.WindDirection); err != nil {
			return fmt.Errorf("append hourly row: %w", err)
		}
	}
	return batch.Send()
}

func (w *ClickHouseWriter) writeDaily(ctx context.Context, summaries []model.DailySummary) error {
	batch, err := w.conn.PrepareBatch(ctx,
		"INSERT INTO weather_daily (city, date, temp_min, temp_max, temp_avg, precipitation_total, wind_max)")
	if err != nil {
		return fmt.Errorf("prepare daily batch: %w", err)
	}
	for _, s := range summaries {
		if err := batch.Append(s.City, s.Date, float32(s.TempMin), float32(s.TempMax),
			float32(s.TempAvg), float32(s.PrecipitationTotal), float32(s.WindMax)); err != nil {
			return fmt.Errorf("append daily row: %w", err)
		}
	}
	return batch.Send()
}

// Close releases the connection.
func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}

// Migrate creates the weather database and its MergeTree tables. Safe to run
// repeatedly.
func Migrate(ctx context.Context, opts *ClickHouseOptions, logger log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}

	// The database may not exist yet, so connect without selecting one.
	admin := *opts
	admin.Database = ""
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{admin.Addr},
		Auth: clickhouse.Auth{Username: admin.Username, Password: admin.Password},
	})
	if err != nil {
		return fmt.Errorf("connect clickhouse at %s: %w", admin.Addr, err)
	}
	defer conn.Close()

	statements := []string{
		`CREATE DATABASE IF NOT EXISTS weather`,
		`CREATE TABLE IF NOT EXISTS weather.weather_hourly
		(
			city String,
			date Date,
			hour DateTime,
			temperature Float32,
			precipitation Float32,
			wind_speed Float32,
			wind_direction Int32,
			created_at DateTime DEFAULT now()
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(date)
		ORDER BY (city, date, hour)`,
		`CREATE TABLE IF NOT EXISTS weather.weather_daily
		(
			city String,
			date Date,
			temp_min Float32,
			temp_max Float32,
			temp_avg Float32,
			precipitation_total Float32,
			wind_max Float32,
			created_at DateTime DEFAULT now()
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(date)
		ORDER BY (city, date)`,
	}

	for _, stmt := range statements {
		if err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("run migration: %w", err)
		}
	}

	logger.Infow("ClickHouse schema verified", "database", "weather")
	return nil
}
