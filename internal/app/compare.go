package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"uni_directory/internal/compare"
	"uni_directory/internal/domain"
)

// ItemSource resolves comparison candidates; QueryService implements it.
type ItemSource interface {
	Item(ctx context.Context, kind compare.Kind, id int64) (compare.Item, error)
}

type ComparisonView struct {
	ID    string         `json:"id"`
	Kind  compare.Kind   `json:"type"`
	Items []compare.Item `json:"items"`
	Count int            `json:"count"`
	Max   int            `json:"max"`
	Stage compare.Stage  `json:"stage"`
	Table *compare.Table `json:"table,omitempty"` // only once two items are selected
}

// CompareService keeps comparison selections in the cache, one per session id.
// Concurrent writes to the same session are last-writer-wins.
type CompareService struct {
	cache domain.Cache
	items ItemSource
	ttl   time.Duration
}

func NewCompareService(c domain.Cache, items ItemSource, ttl time.Duration) *CompareService {
	return &CompareService{cache: c, items: items, ttl: ttl}
}

func sessionKey(id string) string { return "compare:" + id }

func (s *CompareService) Create(ctx context.Context, kind compare.Kind) (ComparisonView, error) {
	if kind == "" {
		kind = compare.Universities
	}
	if !kind.Valid() {
		return ComparisonView{}, fmt.Errorf("comparison type %q: %w", kind, domain.ErrInvalidRecord)
	}
	id := uuid.NewString()
	sel := compare.NewSelector(kind)
	if err := s.save(ctx, id, sel); err != nil {
		return ComparisonView{}, err
	}
	return view(id, sel), nil
}

func (s *CompareService) Get(ctx context.Context, id string) (ComparisonView, error) {
	sel, err := s.load(ctx, id)
	if err != nil {
		return ComparisonView{}, err
	}
	return view(id, sel), nil
}

func (s *CompareService) SetKind(ctx context.Context, id string, kind compare.Kind) (ComparisonView, error) {
	if !kind.Valid() {
		return ComparisonView{}, fmt.Errorf("comparison type %q: %w", kind, domain.ErrInvalidRecord)
	}
	return s.mutate(ctx, id, func(sel *compare.Selector) error {
		sel.SetKind(kind)
		return nil
	})
}

// AddItem looks itemID up in the session's active collection and appends it.
// A full selection returns compare.ErrLimitReached.
func (s *CompareService) AddItem(ctx context.Context, id string, itemID int64) (ComparisonView, error) {
	return s.mutate(ctx, id, func(sel *compare.Selector) error {
		if sel.Contains(itemID) {
			return nil
		}
		if sel.Count() >= compare.MaxItems {
			return compare.ErrLimitReached
		}
		it, err := s.items.Item(ctx, sel.Kind(), itemID)
		if err != nil {
			return err
		}
		return sel.Add(it)
	})
}

func (s *CompareService) RemoveItem(ctx context.Context, id string, itemID int64) (ComparisonView, error) {
	return s.mutate(ctx, id, func(sel *compare.Selector) error {
		sel.Remove(itemID)
		return nil
	})
}

func (s *CompareService) Clear(ctx context.Context, id string) (ComparisonView, error) {
	return s.mutate(ctx, id, func(sel *compare.Selector) error {
		sel.Clear()
		return nil
	})
}

func (s *CompareService) mutate(ctx context.Context, id string, fn func(*compare.Selector) error) (ComparisonView, error) {
	sel, err := s.load(ctx, id)
	if err != nil {
		return ComparisonView{}, err
	}
	if err := fn(sel); err != nil {
		return ComparisonView{}, err
	}
	if err := s.save(ctx, id, sel); err != nil {
		return ComparisonView{}, err
	}
	return view(id, sel), nil
}

func (s *CompareService) load(ctx context.Context, id string) (*compare.Selector, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("comparison %q: %w", id, domain.ErrNotFound)
	}
	var st compare.State
	ok, err := s.cache.Get(ctx, sessionKey(id), &st)
	if err != nil {
		return nil, fmt.Errorf("load comparison: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("comparison %s: %w", id, domain.ErrNotFound)
	}
	return compare.Restore(st), nil
}

func (s *CompareService) save(ctx context.Context, id string, sel *compare.Selector) error {
	if err := s.cache.Set(ctx, sessionKey(id), sel.Snapshot(), int(s.ttl.Seconds())); err != nil {
		return fmt.Errorf("save comparison: %w", err)
	}
	return nil
}

func view(id string, sel *compare.Selector) ComparisonView {
	v := ComparisonView{
		ID:    id,
		Kind:  sel.Kind(),
		Items: sel.Items(),
		Count: sel.Count(),
		Max:   compare.MaxItems,
		Stage: sel.Stage(),
	}
	if v.Stage == compare.StageReady {
		t := compare.Project(v.Items, compare.SchemaFor(v.Kind))
		v.Table = &t
	}
	return v
}
