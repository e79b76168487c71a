package domain

type Location struct {
	Address string   `json:"address,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

type University struct {
	ID                  int64     `json:"Id"`
	Name                string    `json:"name"`
	Description         string    `json:"description,omitempty"`
	Location            *Location `json:"location,omitempty"`
	OverallRating       *float64  `json:"overallRating,omitempty"` // 0–10
	TotalReviews        int       `json:"totalReviews"`
	YearEstablished     *int      `json:"yearEstablished,omitempty"`
	AccreditationStatus bool      `json:"accreditationStatus"`
	VerificationStatus  bool      `json:"verificationStatus"`
	FacultyCount        *int      `json:"facultyCount,omitempty"`
	Website             *string   `json:"website,omitempty"`
}

type AcceptanceGrades struct {
	Thanaweya *float64 `json:"thanaweya,omitempty"` // 0–100
}

type Faculty struct {
	ID                   int64             `json:"Id"`
	UniversityID         int64             `json:"universityId"`
	Name                 string            `json:"name"`
	Description          string            `json:"description,omitempty"`
	AnnualFeesEGP        *float64          `json:"annualFeesEGP,omitempty"`
	AcceptanceGrades     *AcceptanceGrades `json:"acceptanceGrades,omitempty"`
	HasPostgraduate      bool              `json:"hasPostgraduate"`
	NaqaaeeAccreditation bool              `json:"naqaaeeAccreditation"`
	OverallRating        *float64          `json:"overallRating,omitempty"`
	TotalReviews         int               `json:"totalReviews"`
	YearCommenced        *int              `json:"yearCommenced,omitempty"`
	Programs             []string          `json:"programs,omitempty"`
}
