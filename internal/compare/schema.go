package compare

func UniversitySchema() []Field {
	return []Field{
		{Key: "name", Label: "University Name", Kind: Text},
		{Key: "overallRating", Label: "Overall Rating", Kind: Rating},
		{Key: "totalReviews", Label: "Total Reviews", Kind: Number},
		{Key: "yearEstablished", Label: "Year Established", Kind: Number},
		{Key: "location.address", Label: "Location", Kind: Text},
		{Key: "accreditationStatus", Label: "Accredited", Kind: Boolean},
		{Key: "verificationStatus", Label: "Verified", Kind: Boolean},
	}
}

func FacultySchema() []Field {
	return []Field{
		{Key: "name", Label: "Faculty Name", Kind: Text},
		{Key: "overallRating", Label: "Overall Rating", Kind: Rating},
		{Key: "totalReviews", Label: "Total Reviews", Kind: Number},
		{Key: "annualFeesEGP", Label: "Annual Fees", Kind: Currency},
		{Key: "acceptanceGrades.thanaweya", Label: "Min Grade (Thanaweya)", Kind: Percentage},
		{Key: "yearCommenced", Label: "Year Commenced", Kind: Number},
		{Key: "naqaaeeAccreditation", Label: "NAQAAEE Accredited", Kind: Boolean},
		{Key: "hasPostgraduate", Label: "Postgraduate Programs", Kind: Boolean},
	}
}

// SchemaFor returns the schema for k; unknown kinds get the university one.
func SchemaFor(k Kind) []Field {
	if k == Faculties {
		return FacultySchema()
	}
	return UniversitySchema()
}
