package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kipe/iot-hub-measurements/internal/models"
)

// schemaSQL is embedded so the service can self-bootstrap its tables.
//
//go:embed schema.sql
var schemaSQL string

// PostgresStore is the relational backend. Day buckets are unkeyed
// measurement rows carrying their (day, device, type) path, indexed on
// (day, device) for the read path; the Store contract is identical.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and fails fast if the database
// is unreachable.
func NewPostgresStore(dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("%w: ensure schema: %v", ErrUnavailable, err)
	}
	return nil
}

func (p *PostgresStore) Append(ctx context.Context, day, device string, mtype models.MeasurementType, pt models.Point) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO measurements(day, device, type, ts, value)
		VALUES ($1, $2, $3, $4, $5)
	`, day, device, string(mtype), pt.Timestamp, pt.Value)
	if err != nil {
		return fmt.Errorf("%w: append %s/%s: %v", ErrUnavailable, day, device, err)
	}
	return nil
}

func (p *PostgresStore) ReadDay(ctx context.Context, day, device string) (map[models.MeasurementType][]models.Point, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT type, ts, value
		FROM measurements
		WHERE day = $1 AND device = $2
	`, day, device)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s/%s: %v", ErrUnavailable, day, device, err)
	}
	defer rows.Close()

	out := make(map[models.MeasurementType][]models.Point)
	for rows.Next() {
		var mtype string
		var ts time.Time
		var value float64
		if err := rows.Scan(&mtype, &ts, &value); err != nil {
			return nil, fmt.Errorf("%w: read %s/%s: %v", ErrUnavailable, day, device, err)
		}
		key := models.MeasurementType(mtype)
		out[key] = append(out[key], models.Point{Timestamp: ts.UTC(), Value: value})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s/%s: %v", ErrUnavailable, day, device, err)
	}
	return out, nil
}

func (p *PostgresStore) UpsertSummary(ctx context.Context, device string, value float64, ts time.Time) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO device_summaries(device, last_value, last_timestamp)
		VALUES ($1, $2, $3)
		ON CONFLICT (device) DO UPDATE
		SET last_value = EXCLUDED.last_value, last_timestamp = EXCLUDED.last_timestamp
	`, device, value, ts)
	if err != nil {
		return fmt.Errorf("%w: upsert summary %s: %v", ErrUnavailable, device, err)
	}
	return nil
}

func (p *PostgresStore) Summary(ctx context.Context, device string) (models.DeviceSummary, bool, error) {
	var s models.DeviceSummary
	err := p.pool.QueryRow(ctx, `
		SELECT device, last_value, last_timestamp
		FROM device_summaries
		WHERE device = $1
	`, device).Scan(&s.Device, &s.LastValue, &s.LastTimestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.DeviceSummary{}, false, nil
	}
	if err != nil {
		return models.DeviceSummary{}, false, fmt.Errorf("%w: summary %s: %v", ErrUnavailable, device, err)
	}
	s.LastTimestamp = s.LastTimestamp.UTC()
	return s, true, nil
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (p *PostgresStore) Close() {
	p.pool.Close()
}
