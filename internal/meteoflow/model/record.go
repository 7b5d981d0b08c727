package model

import (
	"time"
)

// RawRecord is an unstructured mapping produced by extraction. No invariants
// are guaranteed until it passes validation.
type RawRecord map[string]any

// ValidatedRecord is a RawRecord whose fields have been coerced to the types
// the schema declares. Required fields are present and non-nil.
type ValidatedRecord map[string]any

// String reads a coerced string field, empty when absent.
func (r ValidatedRecord) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Float reads a coerced float field, zero when absent.
func (r ValidatedRecord) Float(key string) float64 {
	f, _ := r[key].(float64)
	return f
}

// Int32 reads a coerced integer field, zero when absent.
func (r ValidatedRecord) Int32(key string) int32 {
	n, _ := r[key].(int64)
	return int32(n)
}

// Time reads a coerced timestamp field, zero when absent.
func (r ValidatedRecord) Time(key string) time.Time {
	t, _ := r[key].(time.Time)
	return t
}

// HourlyRecord is one validated hourly forecast row, the unit loaded into
// weather_hourly.
type HourlyRecord struct {
	City          string    `json:"city" validate:"required"`
	Date          time.Time `json:"date" validate:"required"`
	Hour          time.Time `json:"hour" validate:"required"`
	Temperature   float64   `json:"temperature"`
	Precipitation float64   `json:"precipitation" validate:"gte=0"`
	WindSpeed     float64   `json:"wind_speed" validate:"gte=0"`
	WindDirection int32     `json:"wind_direction" validate:"gte=0,lte=360"`
}

// DailySummary is the aggregated forecast for one city and day, the unit
// loaded into weather_daily.
type DailySummary struct {
	City               string    `json:"city" validate:"required"`
	Date               time.Time `json:"date" validate:"required"`
	TempMin            float64   `json:"temp_min"`
	TempMax            float64   `json:"temp_max"`
	TempAvg            float64   `json:"temp_avg"`
	PrecipitationTotal float64   `json:"precipitation_total" validate:"gte=0"`
	WindMax            float64   `json:"wind_max" validate:"gte=0"`
}

// Artifact is the serialized payload behind one artifact key: a batch of
// validated records of a single kind. Exactly one of Hourly or Daily is
// populated, selected by Kind.
type Artifact struct {
	Pipeline string         `json:"pipeline"`
	Kind     string         `json:"kind"`
	City     string         `json:"city"`
	Hourly   []HourlyRecord `json:"hourly,omitempty"`
	Daily    []DailySummary `json:"daily,omitempty"`
}

// RecordCount returns the number of records the artifact carries.
func (a *Artifact) RecordCount() int {
	if len(a.Hourly) > 0 {
		return len(a.Hourly)
	}
	return len(a.Daily)
}
