package model

import "time"

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

type Interest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Trip struct {
	ID          string     `json:"id"`
	Location    string     `json:"location"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     time.Time  `json:"end_date"`
	Description string     `json:"description"`
	CreatedBy   string     `json:"created_by"`
	Interests   []Interest `json:"interests"`
	Images      []string   `json:"images"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// DurationDays is the whole number of calendar days between start and end.
func (t Trip) DurationDays() int {
	return int(Day(t.EndDate).Sub(Day(t.StartDate)).Hours() / 24)
}

// HasInterest reports whether any of the trip's tags is in ids.
func (t Trip) HasInterest(ids map[string]struct{}) bool {
	for _, in := range t.Interests {
		if _, ok := ids[in.ID]; ok {
			return true
		}
	}
	return false
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string; empty input yields the zero time.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(DateLayout, s)
}

type UserTripStatus string

const (
	StatusRequested UserTripStatus = "requested"
	StatusJoined    UserTripStatus = "joined"
	StatusDeclined  UserTripStatus = "declined"
	StatusCreated   UserTripStatus = "created"
)

func (s UserTripStatus) Valid() bool {
	switch s {
	case StatusRequested, StatusJoined, StatusDeclined, StatusCreated:
		return true
	}
	return false
}

type UserTrip struct {
	ID        string         `json:"id"`
	TripID    string         `json:"trip_id"`
	UserID    string         `json:"user_id"`
	Username  string         `json:"username,omitempty"`
	Status    UserTripStatus `json:"status"`
	Trip      *Trip          `json:"trip,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
