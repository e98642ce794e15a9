package database

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore implements Store on a MongoDB collection.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(col *mongo.Collection) *MongoStore {
	return &MongoStore{col: col}
}

// Name returns the collection name.
func (s *MongoStore) Name() string { return s.col.Name() }

// EnsureUniqueIndex creates a unique ascending index on field if missing.
func (s *MongoStore) EnsureUniqueIndex(ctx context.Context, field string) error {
	idx := mongo.IndexModel{Keys: bson.D{{Key: field, Value: 1}}, Options: options.Index().SetUnique(true)}
	_, err := s.col.Indexes().CreateOne(ctx, idx)
	return err
}

// Ping checks that the primary is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.col.Database().Client().Ping(ctx, readpref.Primary())
}

func (s *MongoStore) InsertOne(ctx context.Context, doc bson.Raw) error {
	_, err := s.col.InsertOne(ctx, doc)
	return err
}

func (s *MongoStore) FindOne(ctx context.Context, filter FilterQuery) (bson.Raw, error) {
	return singleRaw(s.col.FindOne(ctx, filterDoc(filter)))
}

func (s *MongoStore) Find(ctx context.Context, filter FilterQuery) ([]bson.Raw, error) {
	cur, err := s.col.Find(ctx, filterDoc(filter))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []bson.Raw{}
	for cur.Next(ctx) {
		// cursor buffers are reused between batches
		out = append(out, append(bson.Raw(nil), cur.Current...))
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) FindOneAndUpdate(ctx context.Context, filter FilterQuery, update UpdateQuery) (bson.Raw, error) {
	upd, err := normalizeUpdate(update)
	if err != nil {
		return nil, err
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return singleRaw(s.col.FindOneAndUpdate(ctx, filterDoc(filter), upd, opts))
}

func (s *MongoStore) FindOneAndDelete(ctx context.Context, filter FilterQuery) (bson.Raw, error) {
	return singleRaw(s.col.FindOneAndDelete(ctx, filterDoc(filter)))
}

func singleRaw(res *mongo.SingleResult) (bson.Raw, error) {
	raw, err := res.Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return raw, nil
}

func filterDoc(filter FilterQuery) bson.M {
	if filter == nil {
		return bson.M{}
	}
	return bson.M(filter)
}
