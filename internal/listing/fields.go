package listing

import (
	"uni_directory/internal/domain"
	"uni_directory/internal/geo"
)

// Fields tells the engine how to read each filterable dimension of T.
// A nil accessor means the dimension does not exist for T and the matching
// filter or sort is a no-op.
type Fields[T any] struct {
	Text    func(T) []string
	Name    func(T) string
	Address func(T) string

	Rating func(T) (float64, bool)
	Fees   func(T) (float64, bool)
	Grade  func(T) (float64, bool)
	Year   func(T) (float64, bool)

	Postgraduate func(T) bool
	Accredited   func(T) bool
	Verified     func(T) bool

	Coords func(T) *geo.Point
}

func floatPtr(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

func intPtr(p *int) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return float64(*p), true
}

func UniversityFields() Fields[domain.University] {
	return Fields[domain.University]{
		Text: func(u domain.University) []string {
			return []string{u.Name, u.Description, universityAddress(u)}
		},
		Name:       func(u domain.University) string { return u.Name },
		Address:    universityAddress,
		Rating:     func(u domain.University) (float64, bool) { return floatPtr(u.OverallRating) },
		Year:       func(u domain.University) (float64, bool) { return intPtr(u.YearEstablished) },
		Accredited: func(u domain.University) bool { return u.AccreditationStatus },
		Verified:   func(u domain.University) bool { return u.VerificationStatus },
		Coords:     UniversityPoint,
	}
}

// FacultyFields builds faculty accessors. campus resolves a university id to its
// coordinates for distance sorting; it may be nil or return nil.
func FacultyFields(campus func(universityID int64) *geo.Point) Fields[domain.Faculty] {
	f := Fields[domain.Faculty]{
		Text: func(f domain.Faculty) []string {
			return append([]string{f.Name, f.Description}, f.Programs...)
		},
		Name:   func(f domain.Faculty) string { return f.Name },
		Rating: func(f domain.Faculty) (float64, bool) { return floatPtr(f.OverallRating) },
		Fees:   func(f domain.Faculty) (float64, bool) { return floatPtr(f.AnnualFeesEGP) },
		Grade: func(f domain.Faculty) (float64, bool) {
			if f.AcceptanceGrades == nil {
				return 0, false
			}
			return floatPtr(f.AcceptanceGrades.Thanaweya)
		},
		Year:         func(f domain.Faculty) (float64, bool) { return intPtr(f.YearCommenced) },
		Postgraduate: func(f domain.Faculty) bool { return f.HasPostgraduate },
		Accredited:   func(f domain.Faculty) bool { return f.NaqaaeeAccreditation },
	}
	if campus != nil {
		f.Coords = func(f domain.Faculty) *geo.Point { return campus(f.UniversityID) }
	}
	return f
}

// UniversityPoint returns nil unless both coordinates are present.
func UniversityPoint(u domain.University) *geo.Point {
	if u.Location == nil || u.Location.Lat == nil || u.Location.Lng == nil {
		return nil
	}
	return &geo.Point{Lat: *u.Location.Lat, Lng: *u.Location.Lng}
}

func universityAddress(u domain.University) string {
	if u.Location == nil {
		return ""
	}
	return u.Location.Address
}
