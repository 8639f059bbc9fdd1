package store

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/kipe/iot-hub-measurements/internal/models"
)

// MongoConfig carries everything needed to open the document store.
// CACert holds PEM material; it is parsed into an in-memory pool at
// connection time, never written to disk.
type MongoConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	CACert   string
}

// MongoStore is the primary backend. Each calendar day maps to its own
// collection named "measurements-<YYYY-MM-DD>" holding one document per
// device, with points pushed onto per-type arrays. Device summaries live in
// a separate "devices" collection.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects and fails fast if the backend is unreachable.
func NewMongoStore(cfg MongoConfig) (*MongoStore, error) {
	opts := options.Client().ApplyURI(fmt.Sprintf("mongodb://%s:%d", cfg.Host, cfg.Port))
	if cfg.User != "" {
		opts = opts.SetAuth(options.Credential{
			AuthMechanism: "PLAIN",
			Username:      cfg.User,
			Password:      cfg.Password,
		})
	}
	if cfg.CACert != "" {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(cfg.CACert)) {
			return nil, errors.New("mongo: CA certificate is not valid PEM")
		}
		opts = opts.SetTLSConfig(&tls.Config{RootCAs: pool})
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	return &MongoStore{client: client, db: client.Database(cfg.Database)}, nil
}

// EnsureIndexes creates the device-summary uniqueness index. Day-bucket
// collections are created lazily by the first upsert. Safe to rerun.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(summaryCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "device", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("%w: ensure indexes: %v", ErrUnavailable, err)
	}
	return nil
}

const (
	bucketPrefix      = "measurements-"
	summaryCollection = "devices"
)

type mongoPoint struct {
	Timestamp time.Time `bson:"timestamp"`
	Value     float64   `bson:"value"`
}

// Day documents are keyed by _id = device. The _id unique index makes the
// append upsert atomic: concurrent first-appends for one (day, device)
// collide into a single document instead of inserting two.
type mongoDayDoc struct {
	Device string                  `bson:"_id"`
	Series map[string][]mongoPoint `bson:"series"`
}

type mongoSummaryDoc struct {
	Device        string    `bson:"device"`
	LastValue     float64   `bson:"last_value"`
	LastTimestamp time.Time `bson:"last_timestamp"`
}

// dayAppendFilter matches the device's day document by primary key.
func dayAppendFilter(device string) bson.M {
	return bson.M{"_id": device}
}

// dayAppendUpdate pushes a point onto the device's per-type array.
func dayAppendUpdate(mtype models.MeasurementType, p models.Point) bson.M {
	return bson.M{"$push": bson.M{
		"series." + string(mtype): mongoPoint{Timestamp: p.Timestamp, Value: p.Value},
	}}
}

func (s *MongoStore) Append(ctx context.Context, day, device string, mtype models.MeasurementType, p models.Point) error {
	coll := s.db.Collection(bucketPrefix + day)
	_, err := coll.UpdateOne(ctx,
		dayAppendFilter(device),
		dayAppendUpdate(mtype, p),
		options.UpdateOne().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		// Two concurrent first-appends can both take the insert path; the
		// loser hits the _id index and retries against the now-existing doc.
		_, err = coll.UpdateOne(ctx,
			dayAppendFilter(device),
			dayAppendUpdate(mtype, p),
			options.UpdateOne().SetUpsert(true),
		)
	}
	if err != nil {
		return fmt.Errorf("%w: append %s/%s: %v", ErrUnavailable, day, device, err)
	}
	return nil
}

func (s *MongoStore) ReadDay(ctx context.Context, day, device string) (map[models.MeasurementType][]models.Point, error) {
	out := make(map[models.MeasurementType][]models.Point)

	var doc mongoDayDoc
	err := s.db.Collection(bucketPrefix + day).FindOne(ctx, dayAppendFilter(device)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s/%s: %v", ErrUnavailable, day, device, err)
	}

	for mtype, points := range doc.Series {
		converted := make([]models.Point, 0, len(points))
		for _, p := range points {
			converted = append(converted, models.Point{Timestamp: p.Timestamp.UTC(), Value: p.Value})
		}
		out[models.MeasurementType(mtype)] = converted
	}
	return out, nil
}

func (s *MongoStore) UpsertSummary(ctx context.Context, device string, value float64, ts time.Time) error {
	_, err := s.db.Collection(summaryCollection).UpdateOne(ctx,
		bson.M{"device": device},
		bson.M{"$set": bson.M{"last_value": value, "last_timestamp": ts}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("%w: upsert summary %s: %v", ErrUnavailable, device, err)
	}
	return nil
}

func (s *MongoStore) Summary(ctx context.Context, device string) (models.DeviceSummary, bool, error) {
	var doc mongoSummaryDoc
	err := s.db.Collection(summaryCollection).FindOne(ctx, bson.M{"device": device}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.DeviceSummary{}, false, nil
	}
	if err != nil {
		return models.DeviceSummary{}, false, fmt.Errorf("%w: summary %s: %v", ErrUnavailable, device, err)
	}
	return models.DeviceSummary{
		Device:        device,
		LastValue:     doc.LastValue,
		LastTimestamp: doc.LastTimestamp.UTC(),
	}, true, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *MongoStore) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.client.Disconnect(ctx)
}
