package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"uni_directory/internal/compare"
	"uni_directory/internal/domain"
	"uni_directory/internal/geo"
	"uni_directory/internal/listing"
)

const (
	homeTopN          = 6
	homeRecentReviews = 3
	searchLimit       = 10
	// studentsHelpedFactor is the home page's engagement estimate per review.
	studentsHelpedFactor = 4.2
)

type QueryService struct {
	store    domain.RecordStore
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(s domain.RecordStore, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{store: s, cache: c, cacheTTL: ttl}
}

/********** cached snapshots **********/

func snapshotKey(collection string) string { return "snap:" + collection }

func reviewsKey(targetType string, id int64) string {
	return fmt.Sprintf("reviews:%s:%d", targetType, id)
}

func (s *QueryService) cached(ctx context.Context, key string, dst any, load func() (any, error)) error {
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, dst); ok {
			return nil
		}
	}
	v, err := load()
	if err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, v, int(s.cacheTTL.Seconds()))
	}
	return assign(dst, v)
}

func assign(dst, v any) error {
	switch d := dst.(type) {
	case *[]domain.University:
		*d = v.([]domain.University)
	case *[]domain.Faculty:
		*d = v.([]domain.Faculty)
	case *[]domain.Review:
		*d = v.([]domain.Review)
	default:
		return fmt.Errorf("assign: unsupported destination %T", dst)
	}
	return nil
}

func (s *QueryService) universities(ctx context.Context) ([]domain.University, error) {
	var out []domain.University
	err := s.cached(ctx, snapshotKey(domain.CollectionUniversities), &out, func() (any, error) {
		rs, err := s.store.GetAll(ctx, domain.CollectionUniversities)
		if err != nil {
			return nil, fmt.Errorf("load universities: %w", err)
		}
		return mapAll(rs, mapUniversity), nil
	})
	return out, err
}

func (s *QueryService) faculties(ctx context.Context) ([]domain.Faculty, error) {
	var out []domain.Faculty
	err := s.cached(ctx, snapshotKey(domain.CollectionFaculties), &out, func() (any, error) {
		rs, err := s.store.GetAll(ctx, domain.CollectionFaculties)
		if err != nil {
			return nil, fmt.Errorf("load faculties: %w", err)
		}
		return mapAll(rs, mapFaculty), nil
	})
	return out, err
}

func (s *QueryService) reviews(ctx context.Context) ([]domain.Review, error) {
	var out []domain.Review
	err := s.cached(ctx, snapshotKey(domain.CollectionReviews), &out, func() (any, error) {
		rs, err := s.store.GetAll(ctx, domain.CollectionReviews)
		if err != nil {
			return nil, fmt.Errorf("load reviews: %w", err)
		}
		return mapAll(rs, mapReview), nil
	})
	return out, err
}

/********** listings **********/

func (s *QueryService) ListUniversities(ctx context.Context, query string, f listing.Filters) ([]domain.University, error) {
	us, err := s.universities(ctx)
	if err != nil {
		return nil, err
	}
	return listing.Apply(us, query, f, listing.UniversityFields()), nil
}

// ListFaculties filters faculties and attaches each one's university name.
// Distance sorting uses the parent university's campus.
func (s *QueryService) ListFaculties(ctx context.Context, query string, f listing.Filters) ([]domain.FacultyView, error) {
	var (
		us []domain.University
		fs []domain.Faculty
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { us, err = s.universities(gctx); return })
	g.Go(func() (err error) { fs, err = s.faculties(gctx); return })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := indexUniversities(us)
	campus := func(id int64) *geo.Point {
		if u, ok := byID[id]; ok {
			return listing.UniversityPoint(u)
		}
		return nil
	}

	got := listing.Apply(fs, query, f, listing.FacultyFields(campus))
	out := make([]domain.FacultyView, 0, len(got))
	for _, fac := range got {
		v := domain.FacultyView{Faculty: fac}
		if u, ok := byID[fac.UniversityID]; ok {
			name := u.Name
			v.UniversityName = &name
		}
		out = append(out, v)
	}
	return out, nil
}

func indexUniversities(us []domain.University) map[int64]domain.University {
	m := make(map[int64]domain.University, len(us))
	for _, u := range us {
		m[u.ID] = u
	}
	return m
}

/********** details **********/

func (s *QueryService) GetUniversity(ctx context.Context, id int64) (domain.UniversityDetail, error) {
	r, err := s.store.GetByID(ctx, domain.CollectionUniversities, id)
	if err != nil {
		return domain.UniversityDetail{}, err
	}
	d := domain.UniversityDetail{University: mapUniversity(r)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fs, err := s.byParent(gctx, domain.CollectionFaculties, facultyAliases["university_id"], id)
		if err != nil {
			return fmt.Errorf("faculties of %d: %w", id, err)
		}
		d.Faculties = mapAll(fs, mapFaculty)
		return nil
	})
	g.Go(func() (err error) {
		d.Reviews, err = s.ListReviews(gctx, domain.TargetUniversity, id)
		return
	})
	if err := g.Wait(); err != nil {
		return domain.UniversityDetail{}, err
	}
	return d, nil
}

// GetFaculty returns the faculty with its university; a dangling
// universityId leaves University nil rather than failing.
func (s *QueryService) GetFaculty(ctx context.Context, id int64) (domain.FacultyDetail, error) {
	r, err := s.store.GetByID(ctx, domain.CollectionFaculties, id)
	if err != nil {
		return domain.FacultyDetail{}, err
	}
	d := domain.FacultyDetail{Faculty: mapFaculty(r)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if d.Faculty.UniversityID == 0 {
			return nil
		}
		ur, err := s.store.GetByID(gctx, domain.CollectionUniversities, d.Faculty.UniversityID)
		switch {
		case err == nil:
			u := mapUniversity(ur)
			d.University = &u
		case isNotFound(err):
		default:
			return fmt.Errorf("university of faculty %d: %w", id, err)
		}
		return nil
	})
	g.Go(func() (err error) {
		d.Reviews, err = s.ListReviews(gctx, domain.TargetFaculty, id)
		return
	})
	if err := g.Wait(); err != nil {
		return domain.FacultyDetail{}, err
	}
	return d, nil
}

func (s *QueryService) GetReview(ctx context.Context, id int64) (domain.Review, error) {
	r, err := s.store.GetByID(ctx, domain.CollectionReviews, id)
	if err != nil {
		return domain.Review{}, err
	}
	return mapReview(r), nil
}

// ListReviews returns the reviews of one target, newest first.
func (s *QueryService) ListReviews(ctx context.Context, targetType string, targetID int64) ([]domain.Review, error) {
	var out []domain.Review
	err := s.cached(ctx, reviewsKey(targetType, targetID), &out, func() (any, error) {
		rs, err := s.byParent(ctx, domain.CollectionReviews, reviewAliases["target_id"], targetID)
		if err != nil {
			return nil, fmt.Errorf("reviews of %s %d: %w", targetType, targetID, err)
		}
		revs := make([]domain.Review, 0, len(rs))
		for _, r := range rs {
			if rv := mapReview(r); rv.TargetType == targetType {
				revs = append(revs, rv)
			}
		}
		sortNewestFirst(revs)
		return revs, nil
	})
	return out, err
}

// byParent runs one parent lookup per alias of the parent key and merges the
// hits by id, so records stored with snake_case keys still join.
func (s *QueryService) byParent(ctx context.Context, collection string, keys []string, parentID int64) ([]domain.Record, error) {
	seen := make(map[int64]bool)
	var out []domain.Record
	for _, k := range keys {
		rs, err := s.store.GetByParent(ctx, collection, k, parentID)
		if err != nil {
			return nil, err
		}
		for _, r := range rs {
			if !seen[r.ID()] {
				seen[r.ID()] = true
				out = append(out, r)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

func sortNewestFirst(rs []domain.Review) {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].CreatedAt.After(rs[j].CreatedAt) })
}

/********** home, distances, search **********/

func (s *QueryService) Home(ctx context.Context) (domain.HomePage, error) {
	var (
		us []domain.University
		fs []domain.Faculty
		rs []domain.Review
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { us, err = s.universities(gctx); return })
	g.Go(func() (err error) { fs, err = s.faculties(gctx); return })
	g.Go(func() (err error) { rs, err = s.reviews(gctx); return })
	if err := g.Wait(); err != nil {
		return domain.HomePage{}, err
	}

	byRating := listing.Filters{SortBy: listing.SortRating}
	recent := append([]domain.Review(nil), rs...)
	sortNewestFirst(recent)

	return domain.HomePage{
		TopUniversities: head(listing.Apply(us, "", byRating, listing.UniversityFields()), homeTopN),
		TopFaculties:    head(listing.Apply(fs, "", byRating, listing.FacultyFields(nil)), homeTopN),
		RecentReviews:   head(recent, homeRecentReviews),
		Stats: domain.Stats{
			Universities:   len(us),
			Faculties:      len(fs),
			Reviews:        len(rs),
			StudentsHelped: int(math.Floor(float64(len(rs)) * studentsHelpedFactor)),
		},
	}, nil
}

func head[T any](xs []T, n int) []T {
	if len(xs) > n {
		return xs[:n]
	}
	return xs
}

// Distances annotates every university with its distance from p.
func (s *QueryService) Distances(ctx context.Context, p geo.Point) ([]domain.DistanceView, error) {
	us, err := s.universities(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.DistanceView, 0, len(us))
	for _, u := range us {
		v := domain.DistanceView{UniversityID: u.ID, Name: u.Name}
		if u.Location != nil {
			v.Address = u.Location.Address
		}
		if km, ok := geo.Between(&p, listing.UniversityPoint(u)); ok {
			v.DistanceKm = &km
			v.Display = geo.Format(km)
		}
		out = append(out, v)
	}
	return out, nil
}

// SearchCandidates backs the comparison search box.
func (s *QueryService) SearchCandidates(ctx context.Context, kind compare.Kind, query string) ([]compare.Item, error) {
	switch kind {
	case compare.Faculties:
		fs, err := s.faculties(ctx)
		if err != nil {
			return nil, err
		}
		hits := listing.Search(fs, query, func(f domain.Faculty) []string {
			return []string{f.Name, f.Description}
		}, searchLimit)
		return mapAll(hits, facultyItem), nil
	default:
		us, err := s.universities(ctx)
		if err != nil {
			return nil, err
		}
		hits := listing.Search(us, query, func(u domain.University) []string {
			return []string{u.Name, u.Description}
		}, searchLimit)
		return mapAll(hits, universityItem), nil
	}
}

// Item resolves one comparison candidate by id.
func (s *QueryService) Item(ctx context.Context, kind compare.Kind, id int64) (compare.Item, error) {
	if kind == compare.Faculties {
		r, err := s.store.GetByID(ctx, domain.CollectionFaculties, id)
		if err != nil {
			return compare.Item{}, err
		}
		return facultyItem(mapFaculty(r)), nil
	}
	r, err := s.store.GetByID(ctx, domain.CollectionUniversities, id)
	if err != nil {
		return compare.Item{}, err
	}
	return universityItem(mapUniversity(r)), nil
}

func universityItem(u domain.University) compare.Item {
	return compare.Item{ID: u.ID, Kind: compare.Universities, Name: u.Name, Record: mustRecord(u)}
}

func facultyItem(f domain.Faculty) compare.Item {
	return compare.Item{ID: f.ID, Kind: compare.Faculties, Name: f.Name, Record: mustRecord(f)}
}
