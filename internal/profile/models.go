package profile

import (
	"context"
	"errors"

	"backend-travelbuddy/internal/model"
)

var (
	ErrNotFound  = errors.New("user not found")
	ErrForbidden = errors.New("only the review score of another user can be written")
)

// ProfileUpdate carries the fields a user may edit on their own profile.
type ProfileUpdate struct {
	Name           string   `json:"name"`
	PhoneNumber    string   `json:"phone_number"`
	Age            int      `json:"age"`
	Sex            string   `json:"sex"`
	Nationality    string   `json:"nationality"`
	Languages      []string `json:"languages"`
	Interests      []string `json:"interests"`
	Bio            string   `json:"bio"`
	ProfilePicture string   `json:"profile_picture"`
}

// Profile is the public page of a user.
type Profile struct {
	User  model.User       `json:"user"`
	Trips []model.UserTrip `json:"trips"`
	Posts []model.Post     `json:"posts"`
}

type TripSource interface {
	UserTripsByEmail(ctx context.Context, email string) ([]model.UserTrip, error)
}

type PostSource interface {
	ListPosts(ctx context.Context, authorID string) ([]model.Post, error)
}
