package database

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AbstractRepository gives a document type the common CRUD operations on top of a
// Store. Values it returns are decoded copies and hold no reference to the store.
// It keeps no state between calls and is safe for concurrent use.
type AbstractRepository[T any, PT documentPtr[T]] struct {
	store  Store
	logger Logger
}

// NewAbstractRepository binds a repository for T to a store and a diagnostic logger.
func NewAbstractRepository[T any, PT documentPtr[T]](store Store, logger Logger) *AbstractRepository[T, PT] {
	return &AbstractRepository[T, PT]{store: store, logger: logger}
}

// Create persists document with a freshly generated _id (kept if the caller set one)
// and returns the stored value.
func (r *AbstractRepository[T, PT]) Create(ctx context.Context, document T) (*T, error) {
	if PT(&document).GetID().IsZero() {
		PT(&document).SetID(primitive.NewObjectID())
	}
	raw, err := bson.Marshal(&document)
	if err != nil {
		return nil, err
	}
	if err := r.store.InsertOne(ctx, raw); err != nil {
		return nil, err
	}
	return decode[T](raw)
}

// FindOne returns the first document matching filter, or ErrNotFound.
func (r *AbstractRepository[T, PT]) FindOne(ctx context.Context, filter FilterQuery) (*T, error) {
	raw, err := r.store.FindOne(ctx, filter)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		r.logger.Warn("Document was not found with filterQuery", filter)
		return nil, ErrNotFound
	}
	return decode[T](raw)
}

// FindOneAndUpdate applies update to the first match and returns the updated
// document, or ErrNotFound.
func (r *AbstractRepository[T, PT]) FindOneAndUpdate(ctx context.Context, filter FilterQuery, update UpdateQuery) (*T, error) {
	raw, err := r.store.FindOneAndUpdate(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		r.logger.Warn("Document was not found with filterQuery", filter)
		return nil, ErrNotFound
	}
	return decode[T](raw)
}

// Find returns every match. No match is an empty slice, not an error.
func (r *AbstractRepository[T, PT]) Find(ctx context.Context, filter FilterQuery) ([]*T, error) {
	raws, err := r.store.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(raws))
	for _, raw := range raws {
		d, err := decode[T](raw)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// FindOneAndDelete removes the first match and returns it as it was before removal.
// Unlike FindOne it does not treat a miss as an error: it returns (nil, nil) and
// logs nothing. Callers rely on this, so keep it.
func (r *AbstractRepository[T, PT]) FindOneAndDelete(ctx context.Context, filter FilterQuery) (*T, error) {
	raw, err := r.store.FindOneAndDelete(ctx, filter)
	if err != nil || raw == nil {
		return nil, err
	}
	return decode[T](raw)
}

func decode[T any](raw bson.Raw) (*T, error) {
	var out T
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
