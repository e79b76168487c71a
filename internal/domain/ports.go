package domain

import "context"

// RecordStore is the external data backend: schema-less CRUD per collection.
type RecordStore interface {
	GetAll(ctx context.Context, collection string) ([]Record, error)
	GetByID(ctx context.Context, collection string, id int64) (Record, error)
	GetByParent(ctx context.Context, collection, parentField string, parentID int64) ([]Record, error)
	Create(ctx context.Context, collection string, r Record) (Record, error)
	// Put writes r under its own Id, creating or replacing it.
	Put(ctx context.Context, collection string, r Record) error
	Update(ctx context.Context, collection string, id int64, patch Record) (Record, error)
	Delete(ctx context.Context, collection string, id int64) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Read models

type FacultyView struct {
	Faculty
	UniversityName *string `json:"universityName,omitempty"` // nil when the university is missing
}

type UniversityDetail struct {
	University University `json:"university"`
	Faculties  []Faculty  `json:"faculties"`
	Reviews    []Review   `json:"reviews"`
}

type FacultyDetail struct {
	Faculty    Faculty     `json:"faculty"`
	University *University `json:"university,omitempty"`
	Reviews    []Review    `json:"reviews"`
}

type Stats struct {
	Universities   int `json:"universities"`
	Faculties      int `json:"faculties"`
	Reviews        int `json:"reviews"`
	StudentsHelped int `json:"studentsHelped"`
}

type HomePage struct {
	TopUniversities []University `json:"topUniversities"`
	TopFaculties    []Faculty    `json:"topFaculties"`
	RecentReviews   []Review     `json:"recentReviews"`
	Stats           Stats        `json:"stats"`
}

type DistanceView struct {
	UniversityID int64    `json:"universityId"`
	Name         string   `json:"name"`
	Address      string   `json:"address,omitempty"`
	DistanceKm   *float64 `json:"distanceKm,omitempty"` // nil: no distance available
	Display      string   `json:"display,omitempty"`
}
