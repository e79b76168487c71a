package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"uni_directory/internal/app"
	"uni_directory/internal/domain"
)

var fixedNow = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func newCommands(store *fakeStore, cache *fakeCache) *app.CommandService {
	return app.NewCommandService(store, cache).WithClock(func() time.Time { return fixedNow })
}

func TestSubmitReview_OK(t *testing.T) {
	store := fixtureStore()
	cache := &fakeCache{}
	c := newCommands(store, cache)

	rv, err := c.SubmitReview(context.Background(), domain.NewReview{
		TargetID: 2, TargetType: "Faculty", Rating: 8, Content: "  solid labs  ",
	})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if rv.ID != 4 {
		t.Fatalf("want id max+1 = 4, got %d", rv.ID)
	}
	if rv.Status != domain.StatusPending || rv.HelpfulCount != 0 || !rv.CreatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected defaults: %+v", rv)
	}
	if rv.AuthorType != domain.AuthorAnonymous || rv.TargetType != domain.TargetFaculty || rv.Content != "solid labs" {
		t.Fatalf("unexpected normalization: %+v", rv)
	}
	if !cache.wasDeleted("reviews:faculty:2") || !cache.wasDeleted("snap:reviews") {
		t.Fatalf("expected cache invalidation, got %v", cache.deleted)
	}
}

func TestSubmitReview_Validation(t *testing.T) {
	cases := []struct {
		name  string
		in    domain.NewReview
		field string
	}{
		{"missing rating", domain.NewReview{TargetID: 1, TargetType: "university", Content: "ok"}, "rating"},
		{"rating too high", domain.NewReview{TargetID: 1, TargetType: "university", Rating: 11, Content: "ok"}, "rating"},
		{"blank content", domain.NewReview{TargetID: 1, TargetType: "university", Rating: 5, Content: "   "}, "content"},
		{"content too long", domain.NewReview{TargetID: 1, TargetType: "university", Rating: 5, Content: strings.Repeat("x", 501)}, "content"},
		{"bad author", domain.NewReview{TargetID: 1, TargetType: "university", Rating: 5, Content: "ok", AuthorType: "admin"}, "authorType"},
		{"bad target type", domain.NewReview{TargetID: 1, TargetType: "school", Rating: 5, Content: "ok"}, "targetType"},
		{"missing target", domain.NewReview{TargetID: 77, TargetType: "university", Rating: 5, Content: "ok"}, "targetId"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := fixtureStore()
			c := newCommands(store, &fakeCache{})
			_, err := c.SubmitReview(context.Background(), tc.in)

			var verr *app.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("want ValidationError, got %v", err)
			}
			if _, ok := verr.Fields[tc.field]; !ok {
				t.Fatalf("want error on %q, got %v", tc.field, verr.Fields)
			}
			if !errors.Is(err, domain.ErrInvalidRecord) {
				t.Fatalf("ValidationError must unwrap to ErrInvalidRecord")
			}
			if len(store.data[domain.CollectionReviews]) != 3 {
				t.Fatalf("invalid review must not be stored")
			}
		})
	}
}

func TestSubmitReview_MaxLengthAccepted(t *testing.T) {
	c := newCommands(fixtureStore(), &fakeCache{})
	_, err := c.SubmitReview(context.Background(), domain.NewReview{
		TargetID: 1, TargetType: "university", Rating: 10, Content: strings.Repeat("é", domain.MaxReviewLength),
		AuthorType: "verified",
	})
	if err != nil {
		t.Fatalf("500 characters must be accepted: %v", err)
	}
}

func TestCreateUniversity_ResetsAggregates(t *testing.T) {
	store := fixtureStore()
	cache := &fakeCache{}
	c := newCommands(store, cache)

	u, err := c.CreateUniversity(context.Background(), domain.University{
		ID: 99, Name: "New Giza University", OverallRating: ptr(9.9), TotalReviews: 50,
	})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if u.ID != 4 {
		t.Fatalf("store must assign the id, got %d", u.ID)
	}
	if u.OverallRating == nil || *u.OverallRating != 0 || u.TotalReviews != 0 {
		t.Fatalf("aggregates must reset: %+v", u)
	}
	if !cache.wasDeleted("snap:universities") {
		t.Fatalf("expected snapshot invalidation")
	}

	if _, err := c.CreateUniversity(context.Background(), domain.University{Name: " "}); !errors.Is(err, domain.ErrInvalidRecord) {
		t.Fatalf("blank name must be rejected, got %v", err)
	}
}

func TestCreateFaculty_RequiresUniversity(t *testing.T) {
	c := newCommands(fixtureStore(), &fakeCache{})
	_, err := c.CreateFaculty(context.Background(), domain.Faculty{Name: "Faculty of Law", UniversityID: 42})
	var verr *app.ValidationError
	if !errors.As(err, &verr) || verr.Fields["universityId"] == "" {
		t.Fatalf("want universityId error, got %v", err)
	}

	f, err := c.CreateFaculty(context.Background(), domain.Faculty{Name: "Faculty of Law", UniversityID: 1})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if f.ID != 4 || f.UniversityID != 1 || f.TotalReviews != 0 {
		t.Fatalf("unexpected faculty: %+v", f)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	store := fixtureStore()
	cache := &fakeCache{}
	c := newCommands(store, cache)
	ctx := context.Background()

	u, err := c.UpdateUniversity(ctx, 3, domain.Record{"Id": 500.0, "name": "Aswan National University"})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if u.ID != 3 || u.Name != "Aswan National University" {
		t.Fatalf("Id must be immutable: %+v", u)
	}

	if _, err := c.UpdateFaculty(ctx, 42, domain.Record{"name": "x"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, err := c.UpdateFaculty(ctx, 1, domain.Record{}); !errors.Is(err, domain.ErrInvalidRecord) {
		t.Fatalf("empty patch must be rejected, got %v", err)
	}

	if err := c.DeleteFaculty(ctx, 3); err != nil {
		t.Fatalf("err: %v", err)
	}
	if err := c.DeleteUniversity(ctx, 42); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if !cache.wasDeleted("snap:faculties") {
		t.Fatalf("expected faculty snapshot invalidation")
	}
}

func TestUpdateReview(t *testing.T) {
	ctx := context.Background()
	store := fixtureStore()
	cache := &fakeCache{}
	c := newCommands(store, cache)

	rv, err := c.UpdateReview(ctx, 1, domain.Record{"content": "  revised  ", "rating": 6.0})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if rv.ID != 1 || rv.Rating != 6 || rv.Content != "revised" || rv.Status != "approved" || rv.TargetID != 1 {
		t.Fatalf("unexpected review: %+v", rv)
	}
	if !cache.wasDeleted("snap:reviews") || !cache.wasDeleted("reviews:university:1") {
		t.Fatalf("expected cache invalidation, got %v", cache.deleted)
	}

	moved, err := c.UpdateReview(ctx, 1, domain.Record{"targetType": "faculty", "targetId": 2.0})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.TargetType != domain.TargetFaculty || moved.TargetID != 2 {
		t.Fatalf("unexpected target: %+v", moved)
	}
	if !cache.wasDeleted("reviews:faculty:2") {
		t.Fatalf("new target list must be invalidated, got %v", cache.deleted)
	}

	var verr *app.ValidationError
	if _, err := c.UpdateReview(ctx, 2, domain.Record{"rating": 11.0}); !errors.As(err, &verr) || verr.Fields["rating"] == "" {
		t.Fatalf("want rating error, got %v", err)
	}
	if _, err := c.UpdateReview(ctx, 2, domain.Record{"targetId": 99.0}); !errors.As(err, &verr) || verr.Fields["targetId"] == "" {
		t.Fatalf("want targetId error, got %v", err)
	}
	if r, _ := store.GetByID(ctx, domain.CollectionReviews, 2); r["rating"] != 7.0 || r["targetId"] != 1.0 {
		t.Fatalf("rejected patch must not be stored: %v", r)
	}
	if _, err := c.UpdateReview(ctx, 2, domain.Record{}); !errors.Is(err, domain.ErrInvalidRecord) {
		t.Fatalf("want ErrInvalidRecord, got %v", err)
	}
	if _, err := c.UpdateReview(ctx, 42, domain.Record{"rating": 5.0}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestDeleteReview(t *testing.T) {
	ctx := context.Background()
	store := fixtureStore()
	cache := &fakeCache{}
	c := newCommands(store, cache)
	q := app.NewQueryService(store, cache, time.Minute)

	if err := c.DeleteReview(ctx, 3); err != nil {
		t.Fatalf("err: %v", err)
	}
	if !cache.wasDeleted("snap:reviews") || !cache.wasDeleted("reviews:faculty:1") {
		t.Fatalf("expected cache invalidation, got %v", cache.deleted)
	}
	if _, err := q.GetReview(ctx, 3); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound after delete, got %v", err)
	}
	if err := c.DeleteReview(ctx, 3); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound on second delete, got %v", err)
	}
}
