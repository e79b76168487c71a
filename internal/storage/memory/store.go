// Package memory is an in-process RecordStore, optionally seeded from the
// embedded fixture data set.
package memory

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"uni_directory/internal/adapters/observability"
	"uni_directory/internal/domain"
)

const backend = "memory"

//go:embed fixtures/*.json
var fixtures embed.FS

// Store keeps records per collection in insertion order. Reads return deep
// copies so callers never share state with the store.
type Store struct {
	mu   sync.RWMutex
	data map[string][]domain.Record
}

func New() *Store {
	return &Store{data: map[string][]domain.Record{}}
}

// NewSeeded returns a store loaded with the embedded universities, faculties
// and reviews.
func NewSeeded() (*Store, error) {
	s := New()
	for _, c := range []string{domain.CollectionUniversities, domain.CollectionFaculties, domain.CollectionReviews} {
		raw, err := fixtures.ReadFile("fixtures/" + c + ".json")
		if err != nil {
			return nil, fmt.Errorf("read fixture %s: %w", c, err)
		}
		var recs []domain.Record
		if err := json.Unmarshal(raw, &recs); err != nil {
			return nil, fmt.Errorf("decode fixture %s: %w", c, err)
		}
		s.Seed(c, recs...)
	}
	return s, nil
}

// Seed appends records as-is, keeping their ids.
func (s *Store) Seed(collection string, recs ...domain.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		s.data[collection] = append(s.data[collection], deepCopy(r))
	}
}

func (s *Store) GetAll(ctx context.Context, collection string) (out []domain.Record, err error) {
	defer func() { observability.ObserveStore(backend, "get_all", collection, err) }()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out = make([]domain.Record, 0, len(s.data[collection]))
	for _, r := range s.data[collection] {
		out = append(out, deepCopy(r))
	}
	return out, nil
}

func (s *Store) GetByID(ctx context.Context, collection string, id int64) (out domain.Record, err error) {
	defer func() { observability.ObserveStore(backend, "get", collection, err) }()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.index(collection, id)
	if i < 0 {
		return nil, fmt.Errorf("%s %d: %w", collection, id, domain.ErrNotFound)
	}
	return deepCopy(s.data[collection][i]), nil
}

func (s *Store) GetByParent(ctx context.Context, collection, parentField string, parentID int64) (out []domain.Record, err error) {
	defer func() { observability.ObserveStore(backend, "get_by_parent", collection, err) }()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out = []domain.Record{}
	for _, r := range s.data[collection] {
		if matchesID(r[parentField], parentID) {
			out = append(out, deepCopy(r))
		}
	}
	return out, nil
}

// Create assigns Id = max existing + 1 (1 for an empty collection).
func (s *Store) Create(ctx context.Context, collection string, r domain.Record) (out domain.Record, err error) {
	defer func() { observability.ObserveStore(backend, "create", collection, err) }()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var max int64
	for _, x := range s.data[collection] {
		if id := x.ID(); id > max {
			max = id
		}
	}
	rec := deepCopy(r)
	rec[domain.IDField] = float64(max + 1)
	s.data[collection] = append(s.data[collection], rec)
	return deepCopy(rec), nil
}

func (s *Store) Put(ctx context.Context, collection string, r domain.Record) (err error) {
	defer func() { observability.ObserveStore(backend, "put", collection, err) }()
	if err := ctx.Err(); err != nil {
		return err
	}
	id := r.ID()
	if id <= 0 {
		return fmt.Errorf("put %s: missing id: %w", collection, domain.ErrInvalidRecord)
	}
	rec := deepCopy(r)
	rec[domain.IDField] = float64(id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(collection, id); i >= 0 {
		s.data[collection][i] = rec
		return nil
	}
	s.data[collection] = append(s.data[collection], rec)
	return nil
}

func (s *Store) Update(ctx context.Context, collection string, id int64, patch domain.Record) (out domain.Record, err error) {
	defer func() { observability.ObserveStore(backend, "update", collection, err) }()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(collection, id)
	if i < 0 {
		return nil, fmt.Errorf("%s %d: %w", collection, id, domain.ErrNotFound)
	}
	merged := s.data[collection][i].Merge(deepCopy(patch))
	s.data[collection][i] = merged
	return deepCopy(merged), nil
}

func (s *Store) Delete(ctx context.Context, collection string, id int64) (err error) {
	defer func() { observability.ObserveStore(backend, "delete", collection, err) }()
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(collection, id)
	if i < 0 {
		return fmt.Errorf("%s %d: %w", collection, id, domain.ErrNotFound)
	}
	recs := s.data[collection]
	s.data[collection] = append(recs[:i:i], recs[i+1:]...)
	return nil
}

// index must be called with the lock held.
func (s *Store) index(collection string, id int64) int {
	for i, r := range s.data[collection] {
		if r.ID() == id {
			return i
		}
	}
	return -1
}

// matchesID compares numerically, so 1, 1.0, "1" and "1.0" all match id 1
// while 1.5 matches nothing.
func matchesID(v any, id int64) bool {
	switch t := v.(type) {
	case float64:
		return t == float64(id)
	case int64:
		return t == id
	case int:
		return int64(t) == id
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return err == nil && f == float64(id)
	}
	return false
}

func deepCopy(r domain.Record) domain.Record {
	out := make(domain.Record, len(r))
	for k, v := range r {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, x := range t {
			m[k] = copyValue(x)
		}
		return m
	case domain.Record:
		return map[string]any(deepCopy(t))
	case []any:
		s := make([]any, len(t))
		for i, x := range t {
			s[i] = copyValue(x)
		}
		return s
	case []string:
		return append([]string(nil), t...)
	}
	return v
}
