package domain

// Record is an opaque JSON document as exchanged with the record store.
type Record map[string]any

const (
	CollectionUniversities = "universities"
	CollectionFaculties    = "faculties"
	CollectionReviews      = "reviews"

	// IDField is assigned by the store and never changes afterwards.
	IDField = "Id"
)

// ID returns the record's store-assigned id, or 0 when missing.
func (r Record) ID() int64 {
	switch v := r[IDField].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

// Clone makes a shallow copy; nested values are shared.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge applies patch on top of a copy of r. The Id field is never overwritten.
func (r Record) Merge(patch Record) Record {
	out := r.Clone()
	for k, v := range patch {
		if k == IDField {
			continue
		}
		out[k] = v
	}
	return out
}
