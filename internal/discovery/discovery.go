// Package discovery turns a fetched trip list and a set of user-selected
// criteria into the ordered list of trips to show.
//
// Everything here is pure: inputs are never mutated and identical inputs
// always produce identical output.
package discovery

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"backend-travelbuddy/internal/model"
)

type SortMode string

const (
	StartDateAsc  SortMode = "startDateAsc"
	StartDateDesc SortMode = "startDateDesc"
	DurationAsc   SortMode = "durationAsc"
	DurationDesc  SortMode = "durationDesc"
)

// ParseSortMode maps a query value to a SortMode. Empty input selects the
// default, start date ascending.
func ParseSortMode(s string) (SortMode, error) {
	switch m := SortMode(strings.TrimSpace(s)); m {
	case "":
		return StartDateAsc, nil
	case StartDateAsc, StartDateDesc, DurationAsc, DurationDesc:
		return m, nil
	default:
		return "", fmt.Errorf("unknown sort mode %q", s)
	}
}

// Filters holds the optional criteria. Zero values are inactive.
type Filters struct {
	Interests []string
	Location  string
	StartDate time.Time
	EndDate   time.Time
	Keyword   string
}

// VisibleTrips returns the trips passing every active filter, ordered by mode.
// The sort is stable so ties keep their input order.
func VisibleTrips(trips []model.Trip, f Filters, mode SortMode) []model.Trip {
	match := f.predicate()
	out := make([]model.Trip, 0, len(trips))
	for _, t := range trips {
		if match(t) {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, comparator(mode))
	return out
}

func (f Filters) predicate() func(model.Trip) bool {
	interests := make(map[string]struct{}, len(f.Interests))
	for _, id := range f.Interests {
		interests[id] = struct{}{}
	}
	keyword := strings.ToLower(strings.TrimSpace(f.Keyword))
	start, end := model.Day(f.StartDate), model.Day(f.EndDate)
	dated := !f.StartDate.IsZero() && !f.EndDate.IsZero()

	return func(t model.Trip) bool {
		if len(interests) > 0 && !t.HasInterest(interests) {
			return false
		}
		if f.Location != "" && t.Location != f.Location {
			return false
		}
		if dated && !Overlaps(t, start, end) {
			return false
		}
		if keyword != "" && !strings.Contains(strings.ToLower(t.Location), keyword) {
			return false
		}
		return true
	}
}

// Overlaps reports whether the trip's [start, end] interval intersects
// [from, to], compared as calendar dates.
func Overlaps(t model.Trip, from, to time.Time) bool {
	return !model.Day(t.EndDate).Before(model.Day(from)) && !model.Day(t.StartDate).After(model.Day(to))
}

func comparator(mode SortMode) func(a, b model.Trip) int {
	switch mode {
	case StartDateDesc:
		return func(a, b model.Trip) int { return model.Day(b.StartDate).Compare(model.Day(a.StartDate)) }
	case DurationAsc:
		return func(a, b model.Trip) int { return a.DurationDays() - b.DurationDays() }
	case DurationDesc:
		return func(a, b model.Trip) int { return b.DurationDays() - a.DurationDays() }
	default:
		return func(a, b model.Trip) int { return model.Day(a.StartDate).Compare(model.Day(b.StartDate)) }
	}
}

// Locations lists every distinct trip location in first-seen order.
func Locations(trips []model.Trip) []string {
	seen := make(map[string]struct{}, len(trips))
	var out []string
	for _, t := range trips {
		if _, ok := seen[t.Location]; ok {
			continue
		}
		seen[t.Location] = struct{}{}
		out = append(out, t.Location)
	}
	return out
}

// JoinStatuses indexes a user's join records by trip id.
func JoinStatuses(userTrips []model.UserTrip) map[string]model.UserTripStatus {
	out := make(map[string]model.UserTripStatus, len(userTrips))
	for _, ut := range userTrips {
		id := ut.TripID
		if id == "" && ut.Trip != nil {
			id = ut.Trip.ID
		}
		if id != "" {
			out[id] = ut.Status
		}
	}
	return out
}
