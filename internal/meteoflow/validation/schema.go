package validation

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FieldType enumerates the types a schema field can declare. Coercions are
// applied during validation: numeric strings parse, timestamps accept the
// layouts the upstream API emits.
type FieldType string

const (
	TypeString    FieldType = "string"
	TypeFloat     FieldType = "float"
	TypeInt       FieldType = "int"
	TypeTimestamp FieldType = "timestamp"
	TypeDate      FieldType = "date"
)

// Field declares one schema field.
type Field struct {
	Name     string    `yaml:"name"`
	Type     FieldType `yaml:"type"`
	Required bool      `yaml:"required"`
}

// Schema declares the shape raw records must normalize into.
type Schema struct {
	Name   string  `yaml:"name"`
	Fields []Field `yaml:"fields"`
}

// LoadSchema reads a schema from a YAML file.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	var schema Schema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", path, err)
	}
	if len(schema.Fields) == 0 {
		return nil, fmt.Errorf("schema %s declares no fields", path)
	}
	return &schema, nil
}

// HourlySchema is the built-in schema for hourly forecast records.
func HourlySchema() *Schema {
	return &Schema{
		Name: "weather_hourly",
		Fields: []Field{
			{Name: "city", Type: TypeString, Required: true},
			{Name: "date", Type: TypeDate, Required: true},
			{Name: "hour", Type: TypeTimestamp, Required: true},
			{Name: "temperature", Type: TypeFloat, Required: true},
			{Name: "precipitation", Type: TypeFloat, Required: true},
			{Name: "wind_speed", Type: TypeFloat, Required: true},
			{Name: "wind_direction", Type: TypeInt, Required: true},
		},
	}
}

// DailySchema is the built-in schema for daily summary records.
func DailySchema() *Schema {
	return &Schema{
		Name: "weather_daily",
		Fields: []Field{
			{Name: "city", Type: TypeString, Required: true},
			{Name: "date", Type: TypeDate, Required: true},
			{Name: "temp_min", Type: TypeFloat, Required: true},
			{Name: "temp_max", Type: TypeFloat, Required: true},
			{Name: "temp_avg", Type: TypeFloat, Required: false},
			{Name: "precipitation_total", Type: TypeFloat, Required: true},
			{Name: "wind_max", Type: TypeFloat, Required: false},
		},
	}
}
