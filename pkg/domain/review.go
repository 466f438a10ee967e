package domain

import "time"

// Review filter values for the reviews list.
const (
	ReviewsGiven    = "given"
	ReviewsReceived = "received"
)

// Review is a rating left by one party of a completed job.
type Review struct {
	ID             int64     `json:"id"`
	Request        int64     `json:"request"`
	ReviewerName   string    `json:"reviewer_name,omitempty"`
	RevieweeName   string    `json:"reviewee_name,omitempty"`
	RoleOfReviewer string    `json:"role_of_reviewer"`
	RatingOverall  int       `json:"rating_overall"`
	Comment        string    `json:"comment,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ReviewInput is the payload for creating a review.
type ReviewInput struct {
	Request       int64  `json:"request"`
	Reviewee      int64  `json:"reviewee"`
	RatingOverall int    `json:"rating_overall"`
	Comment       string `json:"comment,omitempty"`
}

// ValidRating reports whether r is an allowed overall rating.
func ValidRating(r int) bool {
	return r >= 1 && r <= 5
}
