package validation_test

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avolkhov/meteoflow/internal/meteoflow/model"
	"github.com/avolkhov/meteoflow/internal/meteoflow/validation"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

// hourlyRaw builds a well-formed raw hourly record for the given hour.
func hourlyRaw(city string, hour int) model.RawRecord {
	return model.RawRecord{
		"city":           city,
		"date":           "2025-06-01",
		"hour":           fmt.Sprintf("2025-06-01T%02d:00", hour),
		"temperature":    18.5,
		"precipitation":  0.2,
		"wind_speed":     3.4,
		"wind_direction": 210.0,
	}
}

func TestValidateCoercesDeclaredTypes(t *testing.T) {
	val := validation.New(validation.HourlySchema(), nil)

	record, recErr := val.Validate(model.RawRecord{
		"city":           "Moscow",
		"date":           "2025-06-01",
		"hour":           "2025-06-01T07:00",
		"temperature":    "18.5", // numeric string coerces
		"precipitation":  0,
		"wind_speed":     float32(3.4),
		"wind_direction": "210",
	})
	require.Nil(t, recErr)

	require.Equal(t, "Moscow", record.String("city"))
	require.Equal(t, 18.5, record.Float("temperature"))
	require.Equal(t, int32(210), record.Int32("wind_direction"))
	require.Equal(t, time.Date(2025, 6, 1, 7, 0, 0, 0, time.UTC), record.Time("hour"))
	require.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), record.Time("date"))
}

func TestValidateReportsEveryFailingField(t *testing.T) {
	val := validation.New(validation.HourlySchema(), nil)

	raw := hourlyRaw("Moscow", 7)
	delete(raw, "city")
	raw["temperature"] = "not-a-number"
	raw["wind_direction"] = 210.7 // fractional part

	record, recErr := val.Validate(raw)
	require.Nil(t, record)
	require.NotNil(t, recErr)
	require.Len(t, recErr.Fields, 3)

	fields := make([]string, 0, len(recErr.Fields))
	for _, fe := range recErr.Fields {
		fields = append(fields, fe.Field)
	}
	require.ElementsMatch(t, []string{"city", "temperature", "wind_direction"}, fields)
}

func TestValidateRejectsNonMapping(t *testing.T) {
	val := validation.New(validation.HourlySchema(), nil)

	record, recErr := val.Validate(nil)
	require.Nil(t, record)
	require.NotNil(t, recErr)
	require.Contains(t, recErr.Error(), "not a mapping")
}

func TestPartitionIsolatesBadRecords(t *testing.T) {
	val := validation.New(validation.HourlySchema(), nil)

	batch := make([]model.RawRecord, 0, 10)
	for hour := 0; hour < 10; hour++ {
		batch = append(batch, hourlyRaw("Samara", hour))
	}
	batch[3]["temperature"] = "garbage"
	delete(batch[7], "hour")

	result := val.Partition(batch)
	require.Len(t, result.Valid, 8)
	require.Len(t, result.Rejected, 2)
	require.Equal(t, 3, result.Rejected[0].Index)
	require.Equal(t, 7, result.Rejected[1].Index)
}

func TestPartitionNeverPanicsOnMalformedInput(t *testing.T) {
	val := validation.New(validation.DailySchema(), nil)

	result := val.Partition([]model.RawRecord{
		nil,
		{"city": 42},
		{},
	})
	require.Empty(t, result.Valid)
	require.Len(t, result.Rejected, 3)
}

func TestHourlyBatchEnforcesStructConstraints(t *testing.T) {
	val := validation.New(validation.HourlySchema(), nil)

	good := hourlyRaw("Moscow", 7)
	outOfRange := hourlyRaw("Moscow", 8)
	outOfRange["wind_direction"] = 400.0 // beyond 360 degrees

	records, rejected := val.HourlyBatch([]model.RawRecord{good, outOfRange})
	require.Len(t, records, 1)
	require.Len(t, rejected, 1)
	require.Equal(t, "WindDirection", rejected[0].Fields[0].Field)
	require.Equal(t, int32(210), records[0].WindDirection)
}

func TestDailyBatchBuildsSummaries(t *testing.T) {
	val := validation.New(validation.DailySchema(), nil)

	summaries, rejected := val.DailyBatch([]model.RawRecord{{
		"city":                "Samara",
		"date":                "2025-06-01",
		"temp_min":            11.0,
		"temp_max":            24.0,
		"temp_avg":            17.5,
		"precipitation_total": 1.2,
		"wind_max":            7.9,
	}})
	require.Empty(t, rejected)
	require.Len(t, summaries, 1)
	require.Equal(t, "Samara", summaries[0].City)
	require.Equal(t, 17.5, summaries[0].TempAvg)
}

func TestLoadSchemaRejectsEmptyDeclaration(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/schema.yaml"
	require.NoError(t, writeFile(path, "name: empty\nfields: []\n"))

	_, err := validation.LoadSchema(path)
	require.Error(t, err)
}

func TestLoadSchemaParsesFields(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/schema.yaml"
	require.NoError(t, writeFile(path, `
name: custom
fields:
  - name: city
    type: string
    required: true
  - name: temperature
    type: float
`))

	schema, err := validation.LoadSchema(path)
	require.NoError(t, err)
	require.Equal(t, "custom", schema.Name)
	require.Len(t, schema.Fields, 2)
	require.True(t, schema.Fields[0].Required)
	require.Equal(t, validation.TypeFloat, schema.Fields[1].Type)
}
