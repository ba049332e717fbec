package store

import (
	"context"
	"errors"
	"time"

	"github.com/serroba/ratelimit-go/internal/ratelimit"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoCollection is the collection rate limit documents are stored in.
const MongoCollection = "rate-limits"

// mongoRecord is the projection read back from a document.
type mongoRecord struct {
	Requests int64 `bson:"requests"`
	Expires  int64 `bson:"expires"`
}

// RateLimitMongoStore is a MongoDB implementation of ratelimit.Store.
//
// Each key has one document with top-level key, requests and expires fields.
// expireAt mirrors expires as a date so a TTL index can evict stale documents.
type RateLimitMongoStore struct {
	collection *mongo.Collection
}

// NewRateLimitMongoStore creates a new MongoDB-backed rate limit store.
func NewRateLimitMongoStore(db *mongo.Database) *RateLimitMongoStore {
	return &RateLimitMongoStore{collection: db.Collection(MongoCollection)}
}

// EnsureIndexes creates the unique key index and the TTL index on expireAt.
func (m *RateLimitMongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := m.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expireAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})

	return err
}

func (m *RateLimitMongoStore) Get(ctx context.Context, key string) (ratelimit.Record, error) {
	projection := bson.D{
		{Key: "_id", Value: 0},
		{Key: "requests", Value: 1},
		{Key: "expires", Value: 1},
	}

	var doc mongoRecord

	err := m.collection.FindOne(ctx,
		bson.D{{Key: "key", Value: key}},
		options.FindOne().SetProjection(projection),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ratelimit.Record{}, ratelimit.ErrNotFound
		}

		return ratelimit.Record{}, err
	}

	return ratelimit.Record{Requests: doc.Requests, Expires: doc.Expires}, nil
}

func (m *RateLimitMongoStore) Set(ctx context.Context, key string, record ratelimit.Record) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "requests", Value: record.Requests},
		{Key: "expires", Value: record.Expires},
		{Key: "expireAt", Value: time.UnixMilli(record.Expires).UTC()},
	}}}

	_, err := m.collection.UpdateOne(ctx,
		bson.D{{Key: "key", Value: key}},
		update,
		options.UpdateOne().SetUpsert(true),
	)

	return err
}

// Compile-time check.
var _ ratelimit.Store = (*RateLimitMongoStore)(nil)
