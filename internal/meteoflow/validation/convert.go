package validation

import (
	"github.com/avolkhov/meteoflow/internal/meteoflow/model"
)

// HourlyBatch validates a raw batch against the hourly schema's coercions and
// the typed record's struct invariants, returning the surviving typed records
// and the per-record rejections.
func (val *Validator) HourlyBatch(batch []model.RawRecord) ([]model.HourlyRecord, []*RecordError) {
	result := val.Partition(batch)
	records := make([]model.HourlyRecord, 0, len(result.Valid))
	rejected := result.Rejected

	for i, vr := range result.Valid {
		record := model.HourlyRecord{
			City:          vr.String("city"),
			Date:          vr.Time("date"),
			Hour:          vr.Time("hour"),
			Temperature:   vr.Float("temperature"),
			Precipitation: vr.Float("precipitation"),
			WindSpeed:     vr.Float("wind_speed"),
			WindDirection: vr.Int32("wind_direction"),
		}
		if recErr := val.CheckStruct(record); recErr != nil {
			recErr.Index = i
			rejected = append(rejected, recErr)
			continue
		}
		records = append(records, record)
	}
	return records, rejected
}

// DailyBatch validates raw daily summaries the way HourlyBatch validates
// hourly rows.
func (val *Validator) DailyBatch(batch []model.RawRecord) ([]model.DailySummary, []*RecordError) {
	result := val.Partition(batch)
	summaries := make([]model.DailySummary, 0, len(result.Valid))
	rejected := result.Rejected

	for i, vr := range result.Valid {
		summary := model.DailySummary{
			City:               vr.String("city"),
			Date:               vr.Time("date"),
			TempMin:            vr.Float("temp_min"),
			TempMax:            vr.Float("temp_max"),
			TempAvg:            vr.Float("temp_avg"),
			PrecipitationTotal: vr.Float("precipitation_total"),
			WindMax:            vr.Float("wind_max"),
		}
		if recErr := val.CheckStruct(summary); recErr != nil {
			recErr.Index = i
			rejected = append(rejected, recErr)
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, rejected
}
