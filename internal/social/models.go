package social

import (
	"context"
	"errors"

	"backend-travelbuddy/internal/reviewscore"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("not allowed")
	ErrInvalidRating  = errors.New("rating must be between 1 and 5")
	ErrMissingFields  = errors.New("required field missing")
	ErrNoRescorer     = errors.New("review score aggregation is not configured")
	ErrNotMember      = errors.New("posts need a joined or created trip")
	errUserTripAbsent = errors.New("user trip not found")
)

type PostRequest struct {
	Caption    string `json:"caption"`
	ImageURL   string `json:"image_url"`
	UserTripID string `json:"user_trip_id"`
}

// ReviewRequest creates a review, or edits the caller's review when ID is set.
type ReviewRequest struct {
	ID      string `json:"id"`
	PostID  string `json:"post_id"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// Rescorer recomputes and persists every user's review score.
type Rescorer func(ctx context.Context) (reviewscore.Report, error)
