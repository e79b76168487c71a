package listing

import (
	"math"
	"strconv"
	"strings"

	"uni_directory/internal/geo"
)

const (
	SortRating   = "rating"
	SortFees     = "fees"
	SortGrades   = "grades"
	SortName     = "name"
	SortDistance = "distance"
	SortYear     = "year"
)

// Filters is the structured part of a listing query. Numeric bounds are kept as
// the raw user input: anything that does not parse as a number means "not set".
type Filters struct {
	MinRating string
	MaxFees   string
	MinGrade  string
	MaxGrade  string

	HasPostgraduate bool
	Accredited      bool
	Verified        bool

	Location string

	SortBy string
	Near   *geo.Point // user coordinate for SortDistance
}

// IsZero reports whether no filter or sort would be applied.
func (f Filters) IsZero() bool {
	_, minR := ParseNumber(f.MinRating)
	_, maxF := ParseNumber(f.MaxFees)
	_, minG := ParseNumber(f.MinGrade)
	_, maxG := ParseNumber(f.MaxGrade)
	return !minR && !maxF && !minG && !maxG &&
		!f.HasPostgraduate && !f.Accredited && !f.Verified &&
		strings.TrimSpace(f.Location) == "" && f.SortBy == ""
}

// ParseNumber parses a numeric filter input. Empty, malformed, NaN and infinite
// values all report false.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseFlag treats "1", "true", "on" and "yes" (any case) as set.
func ParseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
