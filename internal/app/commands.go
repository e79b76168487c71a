package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"uni_directory/internal/domain"
)

type CommandService struct {
	store    domain.RecordStore
	cache    domain.Cache
	validate *validator.Validate
	trans    ut.Translator
	now      func() time.Time
}

func NewCommandService(s domain.RecordStore, c domain.Cache) *CommandService {
	v, t := newValidator()
	return &CommandService{store: s, cache: c, validate: v, trans: t, now: time.Now}
}

// WithClock replaces the time source used for review timestamps.
func (s *CommandService) WithClock(now func() time.Time) *CommandService {
	s.now = now
	return s
}

func isNotFound(err error) bool { return errors.Is(err, domain.ErrNotFound) }

func targetCollection(targetType string) string {
	if targetType == domain.TargetFaculty {
		return domain.CollectionFaculties
	}
	return domain.CollectionUniversities
}

/********** reviews **********/

// SubmitReview validates and stores a review. New reviews start pending with
// no helpful votes; the store assigns the id.
func (s *CommandService) SubmitReview(ctx context.Context, in domain.NewReview) (domain.Review, error) {
	in.TargetType = strings.ToLower(strings.TrimSpace(in.TargetType))
	in.AuthorType = strings.ToLower(strings.TrimSpace(in.AuthorType))
	if in.AuthorType == "" {
		in.AuthorType = domain.AuthorAnonymous
	}
	if err := s.validate.Struct(in); err != nil {
		return domain.Review{}, translate(err, s.trans)
	}

	if err := s.requireTarget(ctx, in.TargetType, in.TargetID); err != nil {
		return domain.Review{}, err
	}

	rv := domain.Review{
		TargetID:     in.TargetID,
		TargetType:   in.TargetType,
		AuthorType:   in.AuthorType,
		Rating:       in.Rating,
		Content:      strings.TrimSpace(in.Content),
		CreatedAt:    s.now().UTC(),
		Status:       domain.StatusPending,
		HelpfulCount: 0,
	}
	rec, err := newRecord(rv)
	if err != nil {
		return domain.Review{}, err
	}
	created, err := s.store.Create(ctx, domain.CollectionReviews, rec)
	if err != nil {
		return domain.Review{}, fmt.Errorf("create review: %w", err)
	}

	s.invalidate(ctx, snapshotKey(domain.CollectionReviews), reviewsKey(rv.TargetType, rv.TargetID))
	log.Info().Int64("review_id", created.ID()).Str("target_type", rv.TargetType).
		Int64("target_id", rv.TargetID).Msg("review submitted")
	return mapReview(created), nil
}

// UpdateReview merges patch into a stored review and revalidates the result.
// Moving a review to another target requires that target to exist.
func (s *CommandService) UpdateReview(ctx context.Context, id int64, patch domain.Record) (domain.Review, error) {
	if len(patch) == 0 {
		return domain.Review{}, fmt.Errorf("empty patch: %w", domain.ErrInvalidRecord)
	}
	cur, err := s.store.GetByID(ctx, domain.CollectionReviews, id)
	if err != nil {
		return domain.Review{}, fmt.Errorf("update reviews %d: %w", id, err)
	}
	before, after := mapReview(cur), mapReview(cur.Merge(patch))
	after.Content = strings.TrimSpace(after.Content)

	in := domain.NewReview{
		TargetID:   after.TargetID,
		TargetType: after.TargetType,
		AuthorType: after.AuthorType,
		Rating:     after.Rating,
		Content:    after.Content,
	}
	if err := s.validate.Struct(in); err != nil {
		return domain.Review{}, translate(err, s.trans)
	}
	if after.TargetID != before.TargetID || after.TargetType != before.TargetType {
		if err := s.requireTarget(ctx, after.TargetType, after.TargetID); err != nil {
			return domain.Review{}, err
		}
	}

	rec, err := newRecord(after)
	if err != nil {
		return domain.Review{}, err
	}
	updated, err := s.store.Update(ctx, domain.CollectionReviews, id, rec)
	if err != nil {
		return domain.Review{}, fmt.Errorf("update reviews %d: %w", id, err)
	}
	s.invalidate(ctx, snapshotKey(domain.CollectionReviews),
		reviewsKey(before.TargetType, before.TargetID), reviewsKey(after.TargetType, after.TargetID))
	return mapReview(updated), nil
}

func (s *CommandService) DeleteReview(ctx context.Context, id int64) error {
	cur, err := s.store.GetByID(ctx, domain.CollectionReviews, id)
	if err != nil {
		return fmt.Errorf("delete reviews %d: %w", id, err)
	}
	rv := mapReview(cur)
	if err := s.store.Delete(ctx, domain.CollectionReviews, id); err != nil {
		return fmt.Errorf("delete reviews %d: %w", id, err)
	}
	s.invalidate(ctx, snapshotKey(domain.CollectionReviews), reviewsKey(rv.TargetType, rv.TargetID))
	log.Info().Int64("review_id", id).Str("target_type", rv.TargetType).
		Int64("target_id", rv.TargetID).Msg("review deleted")
	return nil
}

func (s *CommandService) requireTarget(ctx context.Context, targetType string, targetID int64) error {
	if _, err := s.store.GetByID(ctx, targetCollection(targetType), targetID); err != nil {
		if isNotFound(err) {
			return fieldError("targetId", fmt.Sprintf("%s %d does not exist", targetType, targetID))
		}
		return fmt.Errorf("lookup review target: %w", err)
	}
	return nil
}

/********** universities & faculties **********/

// CreateUniversity stores a new university with its rating aggregates reset.
func (s *CommandService) CreateUniversity(ctx context.Context, u domain.University) (domain.University, error) {
	if strings.TrimSpace(u.Name) == "" {
		return domain.University{}, fieldError("name", notBlankText)
	}
	zero := 0.0
	u.OverallRating, u.TotalReviews = &zero, 0

	rec, err := newRecord(u)
	if err != nil {
		return domain.University{}, err
	}
	created, err := s.store.Create(ctx, domain.CollectionUniversities, rec)
	if err != nil {
		return domain.University{}, fmt.Errorf("create university: %w", err)
	}
	s.invalidate(ctx, snapshotKey(domain.CollectionUniversities))
	return mapUniversity(created), nil
}

// CreateFaculty stores a new faculty under an existing university.
func (s *CommandService) CreateFaculty(ctx context.Context, f domain.Faculty) (domain.Faculty, error) {
	if strings.TrimSpace(f.Name) == "" {
		return domain.Faculty{}, fieldError("name", notBlankText)
	}
	if f.UniversityID <= 0 {
		return domain.Faculty{}, fieldError("universityId", "universityId is required")
	}
	if _, err := s.store.GetByID(ctx, domain.CollectionUniversities, f.UniversityID); err != nil {
		if isNotFound(err) {
			return domain.Faculty{}, fieldError("universityId", fmt.Sprintf("university %d does not exist", f.UniversityID))
		}
		return domain.Faculty{}, fmt.Errorf("lookup university: %w", err)
	}
	zero := 0.0
	f.OverallRating, f.TotalReviews = &zero, 0

	rec, err := newRecord(f)
	if err != nil {
		return domain.Faculty{}, err
	}
	created, err := s.store.Create(ctx, domain.CollectionFaculties, rec)
	if err != nil {
		return domain.Faculty{}, fmt.Errorf("create faculty: %w", err)
	}
	s.invalidate(ctx, snapshotKey(domain.CollectionFaculties))
	return mapFaculty(created), nil
}

func (s *CommandService) UpdateUniversity(ctx context.Context, id int64, patch domain.Record) (domain.University, error) {
	r, err := s.update(ctx, domain.CollectionUniversities, id, patch)
	if err != nil {
		return domain.University{}, err
	}
	return mapUniversity(r), nil
}

func (s *CommandService) UpdateFaculty(ctx context.Context, id int64, patch domain.Record) (domain.Faculty, error) {
	r, err := s.update(ctx, domain.CollectionFaculties, id, patch)
	if err != nil {
		return domain.Faculty{}, err
	}
	return mapFaculty(r), nil
}

func (s *CommandService) DeleteUniversity(ctx context.Context, id int64) error {
	return s.delete(ctx, domain.CollectionUniversities, id)
}

func (s *CommandService) DeleteFaculty(ctx context.Context, id int64) error {
	return s.delete(ctx, domain.CollectionFaculties, id)
}

func (s *CommandService) update(ctx context.Context, collection string, id int64, patch domain.Record) (domain.Record, error) {
	if len(patch) == 0 {
		return nil, fmt.Errorf("empty patch: %w", domain.ErrInvalidRecord)
	}
	r, err := s.store.Update(ctx, collection, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update %s %d: %w", collection, id, err)
	}
	s.invalidate(ctx, snapshotKey(collection))
	return r, nil
}

func (s *CommandService) delete(ctx context.Context, collection string, id int64) error {
	if err := s.store.Delete(ctx, collection, id); err != nil {
		return fmt.Errorf("delete %s %d: %w", collection, id, err)
	}
	s.invalidate(ctx, snapshotKey(collection))
	return nil
}

func (s *CommandService) invalidate(ctx context.Context, keys ...string) {
	if s.cache == nil {
		return
	}
	for _, k := range keys {
		if err := s.cache.Del(ctx, k); err != nil {
			log.Warn().Err(err).Str("key", k).Msg("cache invalidation failed")
		}
	}
}

// newRecord converts an entity for Create; the store assigns the id.
func newRecord(v any) (domain.Record, error) {
	r, err := toRecord(v)
	if err != nil {
		return nil, err
	}
	delete(r, domain.IDField)
	return r, nil
}
