package model

import "time"

type Post struct {
	ID         string    `json:"id"`
	Caption    string    `json:"caption"`
	ImageURL   string    `json:"image_url"`
	UserTripID string    `json:"user_trip_id"`
	AuthorID   string    `json:"author_id"`
	Author     string    `json:"author_username,omitempty"`
	TripID     string    `json:"trip_id"`
	Location   string    `json:"location"`
	CreatedAt  time.Time `json:"created_at"`
}

type Review struct {
	ID         string    `json:"id"`
	PostID     string    `json:"post_id"`
	ReviewerID string    `json:"reviewer_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}
