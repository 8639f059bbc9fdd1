package models

import (
	"fmt"
	"time"
)

// MeasurementType identifies what a sample measures.
type MeasurementType string

const (
	TypeTemperature MeasurementType = "temperature"
	TypeHumidity    MeasurementType = "humidity"
	TypePressure    MeasurementType = "pressure"
)

// ParseMeasurementType validates a raw type string against the known set.
func ParseMeasurementType(s string) (MeasurementType, error) {
	switch MeasurementType(s) {
	case TypeTemperature, TypeHumidity, TypePressure:
		return MeasurementType(s), nil
	}
	return "", fmt.Errorf("unknown measurement type %q", s)
}

// Point is a single (timestamp, value) pair within a series.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Sample is one accepted measurement. It is also the ingest acknowledgment
// body, echoed back with the timestamp normalized to UTC.
type Sample struct {
	Device    string          `json:"device"`
	Type      MeasurementType `json:"type"`
	Value     float64         `json:"value"`
	Timestamp time.Time       `json:"timestamp"`
}

// DeviceSummary is the rolling per-device record holding the most recently
// ingested value and timestamp, regardless of measurement type.
type DeviceSummary struct {
	Device        string    `json:"device"`
	LastValue     float64   `json:"last_value"`
	LastTimestamp time.Time `json:"last_timestamp"`
}

// IngestRequest is the POST /measurements payload before validation.
// Value is a pointer so a missing field is distinguishable from 0.
type IngestRequest struct {
	Device    string   `json:"device"`
	Type      string   `json:"type"`
	Value     *float64 `json:"value"`
	Timestamp string   `json:"timestamp,omitempty"`
}

// MeasurementRequest is a decoded, validated query.
type MeasurementRequest struct {
	Devices []string
	Type    MeasurementType
	Start   time.Time
	End     time.Time
}

// MeasurementSeries holds one device's points for the requested type.
type MeasurementSeries struct {
	Device string          `json:"device"`
	Type   MeasurementType `json:"type"`
	Points []Point         `json:"points"`
}

// MeasurementResponse is returned by GET /measurements. Series contains one
// entry per requested device, in request order, even when empty.
type MeasurementResponse struct {
	Start  time.Time           `json:"start"`
	End    time.Time           `json:"end"`
	Series []MeasurementSeries `json:"series"`
}
