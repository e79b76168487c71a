package domain

import "time"

const (
	TargetUniversity = "university"
	TargetFaculty    = "faculty"

	AuthorAnonymous  = "anonymous"
	AuthorRegistered = "registered"
	AuthorVerified   = "verified"

	StatusPending = "pending"

	MaxReviewLength = 500
)

type Review struct {
	ID           int64     `json:"Id"`
	TargetID     int64     `json:"targetId"`
	TargetType   string    `json:"targetType"` // university|faculty
	AuthorType   string    `json:"authorType"` // anonymous|registered|verified
	Rating       int       `json:"rating"`     // 1–10
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"createdAt"`
	Status       string    `json:"status"`
	HelpfulCount int       `json:"helpfulCount"`
}

// NewReview is the submission payload; everything else is assigned on create.
type NewReview struct {
	TargetID   int64  `json:"targetId" validate:"required,gt=0"`
	TargetType string `json:"targetType" validate:"required,oneof=university faculty"`
	AuthorType string `json:"authorType" validate:"omitempty,oneof=anonymous registered verified"`
	Rating     int    `json:"rating" validate:"required,min=1,max=10"`
	Content    string `json:"content" validate:"required,notblank,max=500"`
}
