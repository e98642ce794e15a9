package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/chatter/chatter-backend/pkg/metrics"
)

// InstrumentedStore records prometheus metrics for every call on the wrapped Store.
type InstrumentedStore struct {
	next       Store
	collection string
}

func NewInstrumentedStore(next Store, collection string) *InstrumentedStore {
	return &InstrumentedStore{next: next, collection: collection}
}

func (s *InstrumentedStore) observe(op string, start time.Time, miss bool, err error) {
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case miss:
		outcome = "miss"
	}
	metrics.StoreOperations.WithLabelValues(s.collection, op, outcome).Inc()
	metrics.StoreOperationDuration.WithLabelValues(s.collection, op).Observe(time.Since(start).Seconds())
}

func (s *InstrumentedStore) InsertOne(ctx context.Context, doc bson.Raw) error {
	start := time.Now()
	err := s.next.InsertOne(ctx, doc)
	s.observe("insert_one", start, false, err)
	return err
}

func (s *InstrumentedStore) FindOne(ctx context.Context, filter FilterQuery) (bson.Raw, error) {
	start := time.Now()
	raw, err := s.next.FindOne(ctx, filter)
	s.observe("find_one", start, raw == nil, err)
	return raw, err
}

func (s *InstrumentedStore) Find(ctx context.Context, filter FilterQuery) ([]bson.Raw, error) {
	start := time.Now()
	raws, err := s.next.Find(ctx, filter)
	s.observe("find", start, len(raws) == 0, err)
	return raws, err
}

func (s *InstrumentedStore) FindOneAndUpdate(ctx context.Context, filter FilterQuery, update UpdateQuery) (bson.Raw, error) {
	start := time.Now()
	raw, err := s.next.FindOneAndUpdate(ctx, filter, update)
	s.observe("find_one_and_update", start, raw == nil, err)
	return raw, err
}

func (s *InstrumentedStore) FindOneAndDelete(ctx context.Context, filter FilterQuery) (bson.Raw, error) {
	start := time.Now()
	raw, err := s.next.FindOneAndDelete(ctx, filter)
	s.observe("find_one_and_delete", start, raw == nil, err)
	return raw, err
}
