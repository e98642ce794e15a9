package database

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrNotFound is returned by FindOne and FindOneAndUpdate when nothing matches.
	ErrNotFound = errors.New("document was not found")
	// ErrDuplicateKey is returned by MemoryStore when an _id or a unique field is already taken.
	ErrDuplicateKey = errors.New("duplicate key")
)

// Store is the driver capability a repository delegates to. Documents cross this
// boundary as raw BSON; a nil bson.Raw with a nil error means nothing matched.
type Store interface {
	InsertOne(ctx context.Context, doc bson.Raw) error
	FindOne(ctx context.Context, filter FilterQuery) (bson.Raw, error)
	Find(ctx context.Context, filter FilterQuery) ([]bson.Raw, error)
	FindOneAndUpdate(ctx context.Context, filter FilterQuery, update UpdateQuery) (bson.Raw, error)
	FindOneAndDelete(ctx context.Context, filter FilterQuery) (bson.Raw, error)
}

// Logger is the diagnostic sink used to report failed lookups.
type Logger interface {
	Warn(msg string, context ...any)
}

// IsDuplicateKey reports whether err is a unique-constraint violation from either store.
func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicateKey) || mongo.IsDuplicateKeyError(err)
}

// normalizeUpdate wraps plain field assignments in $set, leaving operators as they are.
// An explicit $set is merged with the plain fields, which win on conflicting keys.
func normalizeUpdate(update UpdateQuery) (bson.M, error) {
	out := bson.M{}
	set := bson.M{}
	for k, v := range update {
		if len(k) > 0 && k[0] == '$' {
			out[k] = v
			continue
		}
		set[k] = v
	}
	if len(set) == 0 {
		return out, nil
	}
	if existing, ok := out["$set"]; ok {
		fields, err := toM(existing)
		if err != nil {
			return nil, fmt.Errorf("$set: %w", err)
		}
		merged := bson.M{}
		for k, v := range fields {
			merged[k] = v
		}
		for k, v := range set {
			merged[k] = v
		}
		set = merged
	}
	out["$set"] = set
	return out, nil
}

// toM accepts the map shapes callers use for operator documents. Anything else
// (structs, pointers to structs) goes through the bson codec.
func toM(v any) (bson.M, error) {
	switch m := v.(type) {
	case bson.M:
		return m, nil
	case map[string]any:
		return bson.M(m), nil
	case FilterQuery:
		return bson.M(m), nil
	case UpdateQuery:
		return bson.M(m), nil
	case bson.D:
		out := bson.M{}
		for _, e := range m {
			out[e.Key] = e.Value
		}
		return out, nil
	case nil:
		return nil, errors.New("expects a document, got null")
	}
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("expects a document: %w", err)
	}
	var out bson.M
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
