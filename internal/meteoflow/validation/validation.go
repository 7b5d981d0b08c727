// Package validation normalizes raw extracted records against a declared
// schema. A record either comes out fully typed or is rejected with an error
// naming every failing field, so data-quality triage sees all defects in one
// pass. Batches partition into valid and rejected; one bad record never
// fails its siblings.
package validation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/avolkhov/meteoflow/internal/meteoflow/model"
	"github.com/avolkhov/meteoflow/internal/pkg/log"
)

// timeLayouts are accepted for timestamp and date coercion, in trial order.
// The second entry is the layout the forecast API emits.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FieldError describes one failing field of a record.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
	Value  any    `json:"value,omitempty"`
}

// RecordError enumerates every failing field of one record.
type RecordError struct {
	Index  int          `json:"index"`
	Fields []FieldError `json:"fields"`
}

// Error implements the error interface.
func (e *RecordError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, fe := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Reason))
	}
	return fmt.Sprintf("record %d invalid: %s", e.Index, strings.Join(parts, "; "))
}

// BatchResult partitions a batch into valid and rejected records.
type BatchResult struct {
	Valid    []model.ValidatedRecord
	Rejected []*RecordError
}

// Validator validates raw records against a schema.
type Validator struct {
	schema *Schema
	v      *validator.Validate
	logger log.Logger
}

// New creates a Validator for the given schema.
func New(schema *Schema, logger log.Logger) *Validator {
	if logger == nil {
		logger = log.Default()
	}
	return &Validator{
		schema: schema,
		v:      validator.New(),
		logger: logger,
	}
}

// Validate normalizes one raw record. It is side-effect-free: on success the
// returned record carries every declared field coerced to its canonical type
// (string, float64, int64, time.Time); on failure the error lists all
// defects and the record is nil.
func (val *Validator) Validate(raw model.RawRecord) (model.ValidatedRecord, *RecordError) {
	recErr := &RecordError{}
	if raw == nil {
		recErr.Fields = append(recErr.Fields, FieldError{Field: "", Reason: "record is not a mapping"})
		return nil, recErr
	}

	out := make(model.ValidatedRecord, len(val.schema.Fields))
	for _, field := range val.schema.Fields {
		value, ok := raw[field.Name]
		if !ok || value == nil {
			if field.Required {
				recErr.Fields = append(recErr.Fields, FieldError{Field: field.Name, Reason: "required field missing"})
			}
			continue
		}

		coerced, err := coerce(value, field.Type)
		if err != nil {
			recErr.Fields = append(recErr.Fields, FieldError{Field: field.Name, Reason: err.Error(), Value: value})
			continue
		}
		out[field.Name] = coerced
	}

	if len(recErr.Fields) > 0 {
		return nil, recErr
	}
	return out, nil
}

// Partition validates a batch, splitting it into valid and rejected records.
// It never fails the whole batch and never panics on malformed input.
func (val *Validator) Partition(batch []model.RawRecord) *BatchResult {
	result := &BatchResult{}
	for i, raw := range batch {
		record, recErr := val.Validate(raw)
		if recErr != nil {
			recErr.Index = i
			result.Rejected = append(result.Rejected, recErr)
			continue
		}
		result.Valid = append(result.Valid, record)
	}
	if len(result.Rejected) > 0 {
		val.logger.Warnw("Batch validation rejected records",
			"schema", val.schema.Name,
			"valid", len(result.Valid),
			"rejected", len(result.Rejected))
	}
	return result
}

// CheckStruct runs the struct-tag invariants on a typed record, returning a
// RecordError naming every violated constraint.
func (val *Validator) CheckStruct(record any) *RecordError {
	err := val.v.Struct(record)
	if err == nil {
		return nil
	}
	recErr := &RecordError{}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		recErr.Fields = append(recErr.Fields, FieldError{Field: "", Reason: err.Error()})
		return recErr
	}
	for _, fe := range verrs {
		recErr.Fields = append(recErr.Fields, FieldError{
			Field:  fe.Field(),
			Reason: fmt.Sprintf("failed %q constraint", fe.Tag()),
			Value:  fe.Value(),
		})
	}
	return recErr
}

func coerce(value any, typ FieldType) (any, error) {
	switch typ {
	case TypeString:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", value)
		}
		return s, nil

	case TypeFloat:
		return toFloat(value)

	case TypeInt:
		return toInt(value)

	case TypeTimestamp:
		return toTime(value)

	case TypeDate:
		t, err := toTime(value)
		if err != nil {
			return nil, err
		}
		return t.Truncate(24 * time.Hour), nil

	default:
		return nil, fmt.Errorf("unknown field type %q", typ)
	}
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as float", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("expected number, got %T", value)
	}
}

func toInt(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("number %v has a fractional part", v)
		}
		return int64(v), nil
	case float32:
		return toInt(float64(v))
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as int", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", value)
	}
}

func toTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse %q as time", v)
	default:
		return time.Time{}, fmt.Errorf("expected time, got %T", value)
	}
}
