// Package store persists measurements in day-partitioned buckets plus one
// rolling summary record per device. Backends: MongoDB (primary), Postgres,
// and an in-memory store for tests and local runs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/kipe/iot-hub-measurements/internal/models"
)

// ErrUnavailable is wrapped by every backend failure; absence of data is
// never an error on the read path.
var ErrUnavailable = errors.New("storage unavailable")

// Store is the combined day-partition and device-summary contract.
type Store interface {
	// Append pushes a point onto the (day, device, type) sequence, creating
	// the bucket path lazily. Duplicates are kept, not deduplicated.
	Append(ctx context.Context, day, device string, mtype models.MeasurementType, p models.Point) error

	// ReadDay returns a device's per-type point sequences for one day bucket.
	// An absent bucket or device yields an empty map. Within-day order is
	// whatever the backend kept; callers must sort.
	ReadDay(ctx context.Context, day, device string) (map[models.MeasurementType][]models.Point, error)

	// UpsertSummary unconditionally overwrites the device's latest record.
	UpsertSummary(ctx context.Context, device string, value float64, ts time.Time) error

	// Summary returns the device's latest record; ok is false when the
	// device has never been seen.
	Summary(ctx context.Context, device string) (models.DeviceSummary, bool, error)

	// Ping reports backend reachability for the readiness endpoint.
	Ping(ctx context.Context) error

	Close()
}

const dayKeyLayout = "2006-01-02"

// DayKey derives the deterministic day-bucket identifier for an instant.
// Append and EnumerateDays must agree on bucket identity through this.
func DayKey(t time.Time) string {
	return t.UTC().Format(dayKeyLayout)
}

// EnumerateDays lists the day-bucket keys spanned by [start, end], both
// floored to their UTC calendar day, inclusive. Empty when start > end.
// Pure date arithmetic, no I/O.
func EnumerateDays(start, end time.Time) []string {
	first := floorDay(start)
	last := floorDay(end)

	var days []string
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(dayKeyLayout))
	}
	return days
}

func floorDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
