package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"uni_directory/internal/domain"
)

// Collections are mirrored parents first.
var mirrorOrder = []string{
	domain.CollectionUniversities,
	domain.CollectionFaculties,
	domain.CollectionReviews,
}

type MirrorStats struct {
	Copied  int64
	Skipped int64 // records without an id
	Failed  int64
}

// MirrorService copies every record from one store into another, keeping ids.
// Records are rewritten under canonical keys on the way in.
type MirrorService struct {
	src     domain.RecordStore
	dst     domain.RecordStore
	cache   domain.Cache
	workers int64
}

func NewMirrorService(src, dst domain.RecordStore, cache domain.Cache, workers int) *MirrorService {
	if workers < 1 {
		workers = 1
	}
	return &MirrorService{src: src, dst: dst, cache: cache, workers: int64(workers)}
}

func (s *MirrorService) MirrorAll(ctx context.Context) (MirrorStats, error) {
	var total MirrorStats
	for _, c := range mirrorOrder {
		st, err := s.MirrorCollection(ctx, c)
		total.Copied += st.Copied
		total.Skipped += st.Skipped
		total.Failed += st.Failed
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// MirrorCollection copies one collection. Per-record failures are counted and
// logged; only a failed read of the source aborts.
func (s *MirrorService) MirrorCollection(ctx context.Context, collection string) (MirrorStats, error) {
	recs, err := s.src.GetAll(ctx, collection)
	if err != nil {
		return MirrorStats{}, fmt.Errorf("read %s: %w", collection, err)
	}

	var (
		st  MirrorStats
		wg  sync.WaitGroup
		sem = semaphore.NewWeighted(s.workers)
	)
	for _, r := range recs {
		if r.ID() == 0 {
			atomic.AddInt64(&st.Skipped, 1)
			continue
		}
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return st, err
		}
		wg.Add(1)
		go func(rec domain.Record) {
			defer wg.Done()
			defer sem.Release(1)

			rec, err := canonical(collection, rec)
			if err == nil {
				err = s.dst.Put(ctx, collection, rec)
			}
			if err != nil {
				atomic.AddInt64(&st.Failed, 1)
				log.Warn().Str("collection", collection).Int64("id", rec.ID()).Err(err).Msg("mirror failed")
				return
			}
			atomic.AddInt64(&st.Copied, 1)
		}(r)
	}
	wg.Wait()

	s.invalidate(ctx, collection)
	log.Info().Str("collection", collection).Int64("copied", st.Copied).
		Int64("skipped", st.Skipped).Int64("failed", st.Failed).Msg("collection mirrored")
	return st, nil
}

// invalidate drops the collection snapshot; per-target review lists expire by TTL.
func (s *MirrorService) invalidate(ctx context.Context, collection string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, snapshotKey(collection))
}
