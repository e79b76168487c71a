// Package listing implements the filter/sort pipeline shared by the university
// and faculty listings and the comparison search box.
//
// The engine works on fully materialized, in-memory collections. It never
// mutates its input and never fails: malformed numeric filters are ignored and
// records with missing fields simply do not satisfy the filters that need them.
package listing

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"uni_directory/internal/geo"
)

type predicate[T any] func(T) bool

// Apply filters records by the free-text query and filters, then sorts the
// survivors by f.SortBy. The result is always a new slice.
func Apply[T any](records []T, query string, f Filters, fields Fields[T]) []T {
	preds := predicates(query, f, fields)
	out := make([]T, 0, len(records))
next:
	for _, r := range records {
		for _, p := range preds {
			if !p(r) {
				continue next
			}
		}
		out = append(out, r)
	}
	sortBy(out, f, fields)
	return out
}

// Search is the reduced matcher used by the comparison search box: an empty
// query yields nothing, and at most limit matches are returned.
func Search[T any](records []T, query string, text func(T) []string, limit int) []T {
	if strings.TrimSpace(query) == "" || text == nil {
		return []T{}
	}
	out := Apply(records, query, Filters{}, Fields[T]{Text: text})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func predicates[T any](query string, f Filters, fields Fields[T]) []predicate[T] {
	var ps []predicate[T]

	if q := strings.ToLower(strings.TrimSpace(query)); q != "" && fields.Text != nil {
		ps = append(ps, func(r T) bool {
			for _, s := range fields.Text(r) {
				if s != "" && strings.Contains(strings.ToLower(s), q) {
					return true
				}
			}
			return false
		})
	}

	if loc := strings.ToLower(strings.TrimSpace(f.Location)); loc != "" && fields.Address != nil {
		ps = append(ps, func(r T) bool {
			return strings.Contains(strings.ToLower(fields.Address(r)), loc)
		})
	}

	if lo, ok := ParseNumber(f.MinRating); ok && fields.Rating != nil {
		ps = append(ps, atLeast(fields.Rating, lo))
	}
	if hi, ok := ParseNumber(f.MaxFees); ok && fields.Fees != nil {
		ps = append(ps, atMost(fields.Fees, hi))
	}
	if lo, ok := ParseNumber(f.MinGrade); ok && fields.Grade != nil {
		ps = append(ps, atLeast(fields.Grade, lo))
	}
	if hi, ok := ParseNumber(f.MaxGrade); ok && fields.Grade != nil {
		ps = append(ps, atMost(fields.Grade, hi))
	}

	if f.HasPostgraduate && fields.Postgraduate != nil {
		ps = append(ps, fields.Postgraduate)
	}
	if f.Accredited && fields.Accredited != nil {
		ps = append(ps, fields.Accredited)
	}
	if f.Verified && fields.Verified != nil {
		ps = append(ps, fields.Verified)
	}
	return ps
}

func atLeast[T any](get func(T) (float64, bool), lo float64) predicate[T] {
	return func(r T) bool {
		v, ok := get(r)
		return ok && v >= lo
	}
}

func atMost[T any](get func(T) (float64, bool), hi float64) predicate[T] {
	return func(r T) bool {
		v, ok := get(r)
		return ok && v <= hi
	}
}

// keyed pairs a record with its precomputed sort key.
type keyed[T any] struct {
	rec T
	key float64
	ok  bool
}

func sortBy[T any](rs []T, f Filters, fields Fields[T]) {
	switch f.SortBy {
	case SortRating:
		sortNumeric(rs, fields.Rating, true, false)
	case SortFees:
		sortNumeric(rs, fields.Fees, false, false)
	case SortGrades:
		sortNumeric(rs, fields.Grade, false, true)
	case SortYear:
		sortNumeric(rs, fields.Year, true, false)
	case SortDistance:
		if f.Near == nil || fields.Coords == nil {
			return
		}
		near := *f.Near
		sortNumeric(rs, func(r T) (float64, bool) {
			return geo.Between(&near, fields.Coords(r))
		}, false, false)
	case SortName:
		if fields.Name == nil {
			return
		}
		c := collate.New(language.English)
		sort.SliceStable(rs, func(i, j int) bool {
			return c.CompareString(fields.Name(rs[i]), fields.Name(rs[j])) < 0
		})
	}
}

// sortNumeric sorts in place, stable. Records without a key go last unless
// missingAsZero is set.
func sortNumeric[T any](rs []T, get func(T) (float64, bool), desc, missingAsZero bool) {
	if get == nil || len(rs) < 2 {
		return
	}
	ks := make([]keyed[T], len(rs))
	for i, r := range rs {
		k, ok := get(r)
		if !ok && missingAsZero {
			k, ok = 0, true
		}
		ks[i] = keyed[T]{rec: r, key: k, ok: ok}
	}
	sort.SliceStable(ks, func(i, j int) bool {
		a, b := ks[i], ks[j]
		switch {
		case a.ok && b.ok:
			if desc {
				return a.key > b.key
			}
			return a.key < b.key
		case a.ok:
			return true
		default:
			return false
		}
	})
	for i := range ks {
		rs[i] = ks[i].rec
	}
}
