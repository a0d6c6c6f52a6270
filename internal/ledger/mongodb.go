// internal/ledger/mongodb.go
package ledger

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/charityrun/runproof/internal/config"
	"github.com/charityrun/runproof/internal/utils"
)

const mongoConnectTimeout = 10 * time.Second

type mongoSubmission struct {
	Email       string    `bson:"email"`
	ActivityRef string    `bson:"activity_ref"`
	DistanceKm  float64   `bson:"distance_km"`
	Duration    string    `bson:"duration"`
	SubmittedAt time.Time `bson:"submitted_at"`
}

// MongoStore implements Store on MongoDB with one collection for the
// roster and one for the submission log.
type MongoStore struct {
	client        *mongo.Client
	registrations *mongo.Collection
	submissions   *mongo.Collection
	logger        utils.Logger
}

// NewMongoStore connects to MongoDB and binds both collections.
func NewMongoStore(cfg config.MongoLedger, logger utils.Logger) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb ledger: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb ledger: %w", err)
	}

	db := client.Database(cfg.Database)
	return &MongoStore{
		client:        client,
		registrations: db.Collection(cfg.RegistrationsCollection),
		submissions:   db.Collection(cfg.SubmissionsCollection),
		logger:        logger,
	}, nil
}

// IsRegistered counts roster documents for the normalized email.
func (s *MongoStore) IsRegistered(ctx context.Context, email string) (bool, error) {
	count, err := s.registrations.CountDocuments(ctx, bson.M{"email": utils.NormalizeEmail(email)})
	if err != nil {
		return false, fmt.Errorf("registration lookup failed: %w", err)
	}
	return count > 0, nil
}

// ListEntries reads the full submission log.
func (s *MongoStore) ListEntries(ctx context.Context) ([]Entry, error) {
	cursor, err := s.submissions.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("submission log query failed: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoSubmission
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("submission log decode failed: %w", err)
	}

	entries := make([]Entry, len(docs))
	for i, doc := range docs {
		entries[i] = Entry{
			Email:       doc.Email,
			ActivityRef: doc.ActivityRef,
			DistanceKm:  doc.DistanceKm,
			Duration:    doc.Duration,
			SubmittedAt: doc.SubmittedAt,
		}
	}
	return entries, nil
}

// Append inserts one submission document.
func (s *MongoStore) Append(ctx context.Context, entry Entry) error {
	_, err := s.submissions.InsertOne(ctx, mongoSubmission{
		Email:       entry.Email,
		ActivityRef: entry.ActivityRef,
		DistanceKm:  entry.DistanceKm,
		Duration:    entry.Duration,
		SubmittedAt: entry.SubmittedAt,
	})
	if err != nil {
		return fmt.Errorf("submission insert failed: %w", err)
	}
	return nil
}

// Ping verifies cluster connectivity.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
