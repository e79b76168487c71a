package app_test

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"uni_directory/internal/compare"
	"uni_directory/internal/domain"
)

// ---- fakes ----

type fakeStore struct {
	mu    sync.Mutex
	data  map[string]map[int64]domain.Record
	calls map[string]int // GetAll calls per collection
	err   error          // returned by every call when set
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]map[int64]domain.Record{}, calls: map[string]int{}}
}

func (f *fakeStore) seed(collection string, recs ...domain.Record) *fakeStore {
	if f.data[collection] == nil {
		f.data[collection] = map[int64]domain.Record{}
	}
	for _, r := range recs {
		f.data[collection][r.ID()] = r
	}
	return f
}

func (f *fakeStore) sorted(collection string) []domain.Record {
	out := make([]domain.Record, 0, len(f.data[collection]))
	for _, r := range f.data[collection] {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (f *fakeStore) GetAll(ctx context.Context, collection string) ([]domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[collection]++
	if f.err != nil {
		return nil, f.err
	}
	return f.sorted(collection), nil
}

func (f *fakeStore) GetByID(ctx context.Context, collection string, id int64) (domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.data[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", collection, id, domain.ErrNotFound)
	}
	return r.Clone(), nil
}

func (f *fakeStore) GetByParent(ctx context.Context, collection, field string, parentID int64) ([]domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Record
	for _, r := range f.sorted(collection) {
		if v, ok := r[field].(float64); ok && int64(v) == parentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) Create(ctx context.Context, collection string, r domain.Record) (domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var max int64
	for id := range f.data[collection] {
		if id > max {
			max = id
		}
	}
	out := r.Clone()
	out[domain.IDField] = float64(max + 1)
	if f.data[collection] == nil {
		f.data[collection] = map[int64]domain.Record{}
	}
	f.data[collection][max+1] = out
	return out.Clone(), nil
}

func (f *fakeStore) Put(ctx context.Context, collection string, r domain.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.data[collection] == nil {
		f.data[collection] = map[int64]domain.Record{}
	}
	f.data[collection][r.ID()] = r.Clone()
	return nil
}

func (f *fakeStore) Update(ctx context.Context, collection string, id int64, patch domain.Record) (domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.data[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", collection, id, domain.ErrNotFound)
	}
	out := r.Merge(patch)
	f.data[collection][id] = out
	return out.Clone(), nil
}

func (f *fakeStore) Delete(ctx context.Context, collection string, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[collection][id]; !ok {
		return fmt.Errorf("%s %d: %w", collection, id, domain.ErrNotFound)
	}
	delete(f.data[collection], id)
	return nil
}

type fakeCache struct {
	mu      sync.Mutex
	store   map[string]any
	deleted []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *[]domain.University:
		*d = append([]domain.University(nil), v.([]domain.University)...)
	case *[]domain.Faculty:
		*d = append([]domain.Faculty(nil), v.([]domain.Faculty)...)
	case *[]domain.Review:
		*d = append([]domain.Review(nil), v.([]domain.Review)...)
	case *compare.State:
		*d = v.(compare.State)
	default:
		return false, fmt.Errorf("fakeCache: unsupported %T", dst)
	}
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	c.deleted = append(c.deleted, key)
	return nil
}

func (c *fakeCache) wasDeleted(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.deleted {
		if k == key {
			return true
		}
	}
	return false
}

// ---- fixtures ----

func fixtureStore() *fakeStore {
	s := newFakeStore()
	s.seed(domain.CollectionUniversities,
		domain.Record{"Id": 1.0, "name": "Cairo University", "overallRating": 8.7, "totalReviews": 10.0,
			"yearEstablished": 1908.0, "accreditationStatus": true, "verificationStatus": true,
			"location": map[string]any{"address": "Giza, Cairo", "lat": 30.0276, "lng": 31.2101}},
		domain.Record{"Id": 2.0, "name": "Alexandria University", "overall_rating": "8,2",
			"accreditation_status": true,
			"location": map[string]any{"address": "Alexandria", "lat": 31.2001, "lng": 29.9187}},
		domain.Record{"Id": 3.0, "name": "Aswan University", "description": "Upper Egypt"},
	)
	s.seed(domain.CollectionFaculties,
		domain.Record{"Id": 1.0, "universityId": 1.0, "name": "Faculty of Medicine", "overallRating": 9.1,
			"annualFeesEGP": 40000.0, "acceptanceGrades": map[string]any{"thanaweya": 98.5}, "hasPostgraduate": true},
		domain.Record{"Id": 2.0, "university_id": 2.0, "name": "Faculty of Engineering", "overallRating": 8.4,
			"annual_fees_egp": 25000.0, "programs": []any{"Civil Engineering"}},
		domain.Record{"Id": 3.0, "universityId": 99.0, "name": "Faculty of Arts"},
	)
	s.seed(domain.CollectionReviews,
		domain.Record{"Id": 1.0, "targetId": 1.0, "targetType": "university", "rating": 9.0,
			"content": "great", "createdAt": "2024-01-01T10:00:00Z", "status": "approved"},
		domain.Record{"Id": 2.0, "targetId": 1.0, "targetType": "university", "rating": 7.0,
			"content": "newer", "createdAt": "2024-03-01T10:00:00Z"},
		domain.Record{"Id": 3.0, "targetId": 1.0, "targetType": "faculty", "rating": 8.0,
			"content": "faculty one", "createdAt": "2024-02-01T10:00:00Z"},
	)
	return s
}

func ptr[T any](v T) *T { return &v }
