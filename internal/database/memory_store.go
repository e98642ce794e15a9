package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
)

// MemoryStore is an in-process Store. It backs unit tests and the memory:// dev
// mode, evaluating the filter and update subsets described on matchFilter and
// applyUpdate. Documents keep insertion order.
type MemoryStore struct {
	mu     sync.RWMutex
	name   string
	docs   []bson.Raw
	unique []string
}

func NewMemoryStore(name string) *MemoryStore {
	return &MemoryStore{name: name}
}

func (m *MemoryStore) Name() string { return m.name }

func (m *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

// EnsureUniqueIndex makes InsertOne and FindOneAndUpdate reject a document whose
// field value is already held by another document. Documents without the field
// are not constrained. It fails if the stored documents already collide.
func (m *MemoryStore) EnsureUniqueIndex(ctx context.Context, field string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.unique {
		if f == field {
			return nil
		}
	}
	for i, d := range m.docs {
		if m.collides(d, i, []string{field}) {
			return fmt.Errorf("unique index on %q: %w", field, ErrDuplicateKey)
		}
	}
	m.unique = append(m.unique, field)
	return nil
}

func (m *MemoryStore) InsertOne(ctx context.Context, doc bson.Raw) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := doc.LookupErr("_id")
	if err != nil {
		return errors.New("document must have an _id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.Lookup("_id").Equal(id) {
			return ErrDuplicateKey
		}
	}
	if m.collides(doc, -1, m.unique) {
		return ErrDuplicateKey
	}
	m.docs = append(m.docs, clone(doc))
	return nil
}

func (m *MemoryStore) FindOne(ctx context.Context, filter FilterQuery) (bson.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := compileFilter(filter)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, err := m.indexOf(f)
	if err != nil || i < 0 {
		return nil, err
	}
	return clone(m.docs[i]), nil
}

func (m *MemoryStore) Find(ctx context.Context, filter FilterQuery) ([]bson.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := compileFilter(filter)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []bson.Raw{}
	for _, d := range m.docs {
		ok, err := matchFilter(d, f)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, clone(d))
		}
	}
	return out, nil
}

func (m *MemoryStore) FindOneAndUpdate(ctx context.Context, filter FilterQuery, update UpdateQuery) (bson.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := compileFilter(filter)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.indexOf(f)
	if err != nil || i < 0 {
		return nil, err
	}
	updated, err := applyUpdate(m.docs[i], update)
	if err != nil {
		return nil, err
	}
	if m.collides(updated, i, m.unique) {
		return nil, ErrDuplicateKey
	}
	m.docs[i] = updated
	return clone(updated), nil
}

func (m *MemoryStore) FindOneAndDelete(ctx context.Context, filter FilterQuery) (bson.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := compileFilter(filter)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.indexOf(f)
	if err != nil || i < 0 {
		return nil, err
	}
	removed := m.docs[i]
	m.docs = append(m.docs[:i:i], m.docs[i+1:]...)
	return removed, nil
}

// indexOf returns the position of the first match or -1. Callers hold the lock.
func (m *MemoryStore) indexOf(f bson.Raw) (int, error) {
	for i, d := range m.docs {
		ok, err := matchFilter(d, f)
		if err != nil {
			return -1, err
		}
		if ok {
			return i, nil
		}
	}
	return -1, nil
}

// collides reports whether doc shares a value of any unique field with a stored
// document other than the one at skip. Callers hold the lock.
func (m *MemoryStore) collides(doc bson.Raw, skip int, fields []string) bool {
	for _, field := range fields {
		path := strings.Split(field, ".")
		v, err := doc.LookupErr(path...)
		if err != nil {
			continue
		}
		for j, other := range m.docs {
			if j == skip {
				continue
			}
			if ov, err := other.LookupErr(path...); err == nil && ov.Equal(v) {
				return true
			}
		}
	}
	return false
}

func clone(raw bson.Raw) bson.Raw {
	return append(bson.Raw(nil), raw...)
}
