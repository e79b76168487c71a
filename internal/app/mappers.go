package app

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"uni_directory/internal/domain"
)

/********** alias registries (single source of truth) **********/

// Records may come from stores that use snake_case or legacy keys; the first
// alias present wins.
var universityAliases = map[string][]string{
	"name":          {"name", "Name", "university_name", "title"},
	"description":   {"description", "Description", "desc"},
	"address":       {"location.address", "address", "location_address"},
	"lat":           {"location.lat", "location.latitude", "lat", "latitude"},
	"lng":           {"location.lng", "location.lon", "location.longitude", "lng", "lon", "longitude"},
	"rating":        {"overallRating", "overall_rating", "rating"},
	"total_reviews": {"totalReviews", "total_reviews", "reviewCount", "review_count"},
	"year":          {"yearEstablished", "year_established", "established"},
	"accredited":    {"accreditationStatus", "accreditation_status", "accredited"},
	"verified":      {"verificationStatus", "verification_status", "verified"},
	"faculty_count": {"facultyCount", "faculty_count"},
	"website":       {"website", "url", "websiteUrl"},
}

var facultyAliases = map[string][]string{
	"university_id": {"universityId", "university_id", "UniversityId"},
	"name":          {"name", "Name", "faculty_name", "title"},
	"description":   {"description", "Description", "desc"},
	"fees":          {"annualFeesEGP", "annual_fees_egp", "annualFees", "annual_fees", "fees"},
	"grade":         {"acceptanceGrades.thanaweya", "acceptance_grades.thanaweya", "minGrade", "min_grade"},
	"postgraduate":  {"hasPostgraduate", "has_postgraduate", "postgraduate"},
	"naqaaee":       {"naqaaeeAccreditation", "naqaaee_accreditation", "accredited"},
	"rating":        {"overallRating", "overall_rating", "rating"},
	"total_reviews": {"totalReviews", "total_reviews", "reviewCount", "review_count"},
	"year":          {"yearCommenced", "year_commenced", "established"},
	"programs":      {"programs", "departments", "majors"},
}

var reviewAliases = map[string][]string{
	"target_id":     {"targetId", "target_id"},
	"target_type":   {"targetType", "target_type"},
	"author_type":   {"authorType", "author_type"},
	"rating":        {"rating", "score"},
	"content":       {"content", "text", "comment", "body"},
	"created_at":    {"createdAt", "created_at", "date"},
	"status":        {"status"},
	"helpful_count": {"helpfulCount", "helpful_count"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		var obj map[string]any
		switch t := cur.(type) {
		case map[string]any:
			obj = t
		case domain.Record:
			obj = t
		default:
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

func firstString(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		if s, ok := lookupAny(m, p).(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func ptrStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// firstFloat: number from several paths (float64/int/string like "8,5").
func firstFloat(m map[string]any, aliases map[string][]string, key string) *float64 {
	for _, p := range aliases[key] {
		if f, ok := asFloat(lookupAny(m, p)); ok {
			return &f
		}
	}
	return nil
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", "."))
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

func firstInt(m map[string]any, aliases map[string][]string, key string) *int {
	if f := firstFloat(m, aliases, key); f != nil {
		n := int(*f)
		return &n
	}
	return nil
}

func firstInt64(m map[string]any, aliases map[string][]string, key string) int64 {
	if f := firstFloat(m, aliases, key); f != nil {
		return int64(*f)
	}
	return 0
}

// firstBool accepts booleans, 0/1 and "true"/"yes" style strings.
func firstBool(m map[string]any, aliases map[string][]string, key string) bool {
	for _, p := range aliases[key] {
		switch t := lookupAny(m, p).(type) {
		case bool:
			return t
		case float64:
			return t != 0
		case int:
			return t != 0
		case string:
			switch strings.ToLower(strings.TrimSpace(t)) {
			case "true", "yes", "1", "y":
				return true
			case "false", "no", "0", "n":
				return false
			}
		}
	}
	return false
}

// firstStrings: accept []any of strings or {name} objects.
func firstStrings(m map[string]any, aliases map[string][]string, key string) []string {
	for _, p := range aliases[key] {
		var raw []any
		switch t := lookupAny(m, p).(type) {
		case []any:
			raw = t
		case []string:
			if len(t) > 0 {
				return append([]string(nil), t...)
			}
			continue
		default:
			continue
		}
		out := make([]string, 0, len(raw))
		for _, it := range raw {
			switch t := it.(type) {
			case string:
				if t != "" {
					out = append(out, t)
				}
			case map[string]any:
				if n, ok := t["name"].(string); ok && n != "" {
					out = append(out, n)
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

func firstTime(m map[string]any, aliases map[string][]string, key string) time.Time {
	for _, p := range aliases[key] {
		switch t := lookupAny(m, p).(type) {
		case string:
			for _, layout := range timeLayouts {
				if ts, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
					return ts.UTC()
				}
			}
		case float64:
			// epoch milliseconds
			return time.UnixMilli(int64(t)).UTC()
		}
	}
	return time.Time{}
}

/********** record -> entity **********/

func mapUniversity(r domain.Record) domain.University {
	u := domain.University{
		ID:                  r.ID(),
		Name:                firstString(r, universityAliases, "name"),
		Description:         firstString(r, universityAliases, "description"),
		OverallRating:       firstFloat(r, universityAliases, "rating"),
		YearEstablished:     firstInt(r, universityAliases, "year"),
		AccreditationStatus: firstBool(r, universityAliases, "accredited"),
		VerificationStatus:  firstBool(r, universityAliases, "verified"),
		FacultyCount:        firstInt(r, universityAliases, "faculty_count"),
		Website:             ptrStr(firstString(r, universityAliases, "website")),
	}
	if n := firstInt(r, universityAliases, "total_reviews"); n != nil {
		u.TotalReviews = *n
	}
	addr := firstString(r, universityAliases, "address")
	lat := firstFloat(r, universityAliases, "lat")
	lng := firstFloat(r, universityAliases, "lng")
	if addr != "" || lat != nil || lng != nil {
		u.Location = &domain.Location{Address: addr, Lat: lat, Lng: lng}
	}
	return u
}

func mapFaculty(r domain.Record) domain.Faculty {
	f := domain.Faculty{
		ID:                   r.ID(),
		UniversityID:         firstInt64(r, facultyAliases, "university_id"),
		Name:                 firstString(r, facultyAliases, "name"),
		Description:          firstString(r, facultyAliases, "description"),
		AnnualFeesEGP:        firstFloat(r, facultyAliases, "fees"),
		HasPostgraduate:      firstBool(r, facultyAliases, "postgraduate"),
		NaqaaeeAccreditation: firstBool(r, facultyAliases, "naqaaee"),
		OverallRating:        firstFloat(r, facultyAliases, "rating"),
		YearCommenced:        firstInt(r, facultyAliases, "year"),
		Programs:             firstStrings(r, facultyAliases, "programs"),
	}
	if n := firstInt(r, facultyAliases, "total_reviews"); n != nil {
		f.TotalReviews = *n
	}
	if g := firstFloat(r, facultyAliases, "grade"); g != nil {
		f.AcceptanceGrades = &domain.AcceptanceGrades{Thanaweya: g}
	}
	return f
}

func mapReview(r domain.Record) domain.Review {
	rv := domain.Review{
		ID:         r.ID(),
		TargetID:   firstInt64(r, reviewAliases, "target_id"),
		TargetType: strings.ToLower(firstString(r, reviewAliases, "target_type")),
		AuthorType: strings.ToLower(firstString(r, reviewAliases, "author_type")),
		Content:    firstString(r, reviewAliases, "content"),
		CreatedAt:  firstTime(r, reviewAliases, "created_at"),
		Status:     firstString(r, reviewAliases, "status"),
	}
	if n := firstInt(r, reviewAliases, "rating"); n != nil {
		rv.Rating = *n
	}
	if n := firstInt(r, reviewAliases, "helpful_count"); n != nil {
		rv.HelpfulCount = *n
	}
	if rv.AuthorType == "" {
		rv.AuthorType = domain.AuthorAnonymous
	}
	return rv
}

func mapAll[In, Out any](xs []In, fn func(In) Out) []Out {
	out := make([]Out, 0, len(xs))
	for _, x := range xs {
		out = append(out, fn(x))
	}
	return out
}

/********** entity -> record **********/

// toRecord converts a typed value into the canonical record form.
func toRecord(v any) (domain.Record, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	var r domain.Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return r, nil
}

// canonical rewrites a record of a known collection under the canonical keys,
// keeping its id. Records of other collections are returned as is.
func canonical(collection string, r domain.Record) (domain.Record, error) {
	switch collection {
	case domain.CollectionUniversities:
		return toRecord(mapUniversity(r))
	case domain.CollectionFaculties:
		return toRecord(mapFaculty(r))
	case domain.CollectionReviews:
		return toRecord(mapReview(r))
	}
	return r, nil
}

// mustRecord is toRecord for values that always marshal (plain entities).
func mustRecord(v any) domain.Record {
	r, err := toRecord(v)
	if err != nil {
		log.Error().Err(err).Str("context", "mustRecord").Msg("entity to record failed")
		return domain.Record{}
	}
	return r
}
