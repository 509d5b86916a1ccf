/* mongo.go
 * Contains the MongoDB backed read-through view cache. Each document is a rendered view filed under one or more
 * invalidation tags, with a ttl after which it is treated as missing.
 */

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "view_cache"

// ViewCache is what the web layer reads through
type ViewCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Put(ctx context.Context, key string, tags []Key, value any) error
}

type viewRecord struct {
	Key     string    `bson:"_id"`
	Tags    []string  `bson:"tags"`
	Payload string    `bson:"payload"`
	TTL     int64     `bson:"ttl"`
	Expires time.Time `bson:"expires"`
}

// Mongo is a ViewCache and Invalidator over a single collection
type Mongo struct {
	Client     *mongo.Client
	Collection *mongo.Collection
	TTL        time.Duration
	Logger     *slog.Logger
	now        func() time.Time
}

var (
	_ ViewCache   = (*Mongo)(nil)
	_ Invalidator = (*Mongo)(nil)
)

// NewMongo connects to mongoURI and prepares the cache collection in dbName
// Preconditions: Receives a context, the mongo URI, database name and the view ttl
// Postconditions: Returns a connected cache with its expiry index in place, or an error if it occurs
func NewMongo(ctx context.Context, mongoURI, dbName string, ttl time.Duration, logger *slog.Logger) (*Mongo, error) {
	if dbName == "" {
		return nil, fmt.Errorf("dbName is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Mongo{
		Client:     client,
		Collection: client.Database(dbName).Collection(collectionName),
		TTL:        ttl,
		Logger:     logger,
		now:        time.Now,
	}
	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	_, err := m.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "tags", Value: 1}}},
		{Keys: bson.D{{Key: "expires", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	})
	if err != nil {
		return fmt.Errorf("failed to create cache indexes: %w", err)
	}
	return nil
}

// Disconnect closes the client
func (m *Mongo) Disconnect(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// Get decodes the cached view into dst
// Preconditions: Receives the view key and a pointer to decode into
// Postconditions: Returns true if a live view was found, false on a miss or expired view, or an error if it occurs
func (m *Mongo) Get(ctx context.Context, key string, dst any) (bool, error) {
	var rec viewRecord
	err := m.Collection.FindOne(ctx, bson.M{"_id": key}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("error fetching view %s: %w", key, err)
	}
	// the ttl index sweeps lazily, so check the ttl ourselves
	if rec.TTL < m.now().Unix() {
		return false, nil
	}
	if err := json.Unmarshal([]byte(rec.Payload), dst); err != nil {
		return false, fmt.Errorf("failed to decode view %s: %w", key, err)
	}
	return true, nil
}

// Put stores value under key, filed under tags
func (m *Mongo) Put(ctx context.Context, key string, tags []Key, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode view %s: %w", key, err)
	}
	expires := m.now().Add(m.TTL)
	tagStrings := make([]string, 0, len(tags))
	for _, t := range tags {
		tagStrings = append(tagStrings, t.String())
	}
	update := bson.M{
		"$set": bson.M{
			"tags":    tagStrings,
			"payload": string(payload),
			"ttl":     expires.Unix(),
			"expires": expires,
		},
	}
	_, err = m.Collection.UpdateOne(ctx, bson.M{"_id": key}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to store view %s: %w", key, err)
	}
	return nil
}

// Invalidate deletes every view filed under any of keys. Failures are logged.
func (m *Mongo) Invalidate(ctx context.Context, keys ...Key) {
	if len(keys) == 0 {
		return
	}
	tags := make([]string, 0, len(keys))
	for _, k := range keys {
		tags = append(tags, k.String())
	}
	res, err := m.Collection.DeleteMany(ctx, bson.M{"tags": bson.M{"$in": tags}})
	if err != nil {
		m.Logger.Error("cache invalidation failed", slog.Any("tags", tags), slog.Any("error", err))
		return
	}
	m.Logger.Debug("cache invalidated", slog.Any("tags", tags), slog.Int64("deleted", res.DeletedCount))
}
