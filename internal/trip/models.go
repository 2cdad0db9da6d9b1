package trip

import (
	"errors"

	"backend-travelbuddy/internal/model"
)

var (
	ErrNotFound        = errors.New("trip not found")
	ErrForbidden       = errors.New("only the trip owner can do that")
	ErrInvalidDates    = errors.New("start_date and end_date must be YYYY-MM-DD with start before end")
	ErrInvalidStatus   = errors.New("status must be requested, joined, declined or created")
	ErrMissingFields   = errors.New("location, start_date and end_date required")
	ErrOwnTrip         = errors.New("trip owners cannot join their own trip")
	ErrUnknownInterest = errors.New("unknown interest id")
)

type TripRequest struct {
	Location    string   `json:"location"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	Description string   `json:"description"`
	InterestIDs []string `json:"interest_ids"`
	Images      []string `json:"images"`
}

type JoinRequest struct {
	TripID string               `json:"trip_id"`
	Status model.UserTripStatus `json:"status"`
}

type StatusRequest struct {
	Status model.UserTripStatus `json:"status"`
}

// DiscoveredTrip is a visible trip annotated with the caller's join status.
type DiscoveredTrip struct {
	model.Trip
	JoinStatus model.UserTripStatus `json:"join_status,omitempty"`
}
