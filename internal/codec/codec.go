// Package codec decodes raw ingest and query inputs into validated domain
// values, normalizing all timestamps to UTC.
package codec

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kipe/iot-hub-measurements/internal/models"
)

// now is swapped in tests to pin the defaulting behaviour.
var now = time.Now

// ValidationError reports a malformed or missing field in a raw request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// parseInstant parses an RFC3339 timestamp and normalizes it to UTC.
func parseInstant(ts string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// DecodeSample validates an incoming measurement. The timestamp defaults to
// the current UTC instant when absent.
func DecodeSample(raw models.IngestRequest) (models.Sample, error) {
	device := strings.TrimSpace(raw.Device)
	if device == "" {
		return models.Sample{}, &ValidationError{Field: "device", Reason: "required"}
	}

	mtype, err := models.ParseMeasurementType(raw.Type)
	if err != nil {
		return models.Sample{}, &ValidationError{Field: "type", Reason: err.Error()}
	}

	if raw.Value == nil {
		return models.Sample{}, &ValidationError{Field: "value", Reason: "required"}
	}
	if math.IsNaN(*raw.Value) || math.IsInf(*raw.Value, 0) {
		return models.Sample{}, &ValidationError{Field: "value", Reason: "must be finite"}
	}

	ts := now().UTC()
	if raw.Timestamp != "" {
		ts, err = parseInstant(raw.Timestamp)
		if err != nil {
			return models.Sample{}, &ValidationError{Field: "timestamp", Reason: "must be RFC3339"}
		}
	}

	return models.Sample{
		Device:    device,
		Type:      mtype,
		Value:     *raw.Value,
		Timestamp: ts,
	}, nil
}

// DecodeQuery validates a range query. Each devices entry may itself be a
// comma-separated list; start/end default to the current UTC day's bounds.
// start > end is allowed and yields an empty result downstream.
func DecodeQuery(devices []string, mtype, start, end string) (models.MeasurementRequest, error) {
	var split []string
	for _, d := range devices {
		for _, part := range strings.Split(d, ",") {
			if part = strings.TrimSpace(part); part != "" {
				split = append(split, part)
			}
		}
	}
	if len(split) == 0 {
		return models.MeasurementRequest{}, &ValidationError{Field: "devices", Reason: "required"}
	}

	parsed, err := models.ParseMeasurementType(mtype)
	if err != nil {
		return models.MeasurementRequest{}, &ValidationError{Field: "type", Reason: err.Error()}
	}

	today := now().UTC()
	dayStart := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	startTS := dayStart
	if start != "" {
		startTS, err = parseInstant(start)
		if err != nil {
			return models.MeasurementRequest{}, &ValidationError{Field: "start", Reason: "must be RFC3339"}
		}
	}

	endTS := dayStart.AddDate(0, 0, 1).Add(-time.Nanosecond)
	if end != "" {
		endTS, err = parseInstant(end)
		if err != nil {
			return models.MeasurementRequest{}, &ValidationError{Field: "end", Reason: "must be RFC3339"}
		}
	}

	return models.MeasurementRequest{
		Devices: split,
		Type:    parsed,
		Start:   startTS,
		End:     endTS,
	}, nil
}
