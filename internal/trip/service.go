package trip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"backend-travelbuddy/internal/db"
	"backend-travelbuddy/internal/discovery"
	"backend-travelbuddy/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Notifier delivers a message to a user's notification feed.
type Notifier interface {
	Notify(ctx context.Context, userID, message string) error
}

type Service struct {
	db       db.Querier
	cache    *Cache
	notifier Notifier
	logger   *slog.Logger
}

func NewService(db db.Querier, cache *Cache, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, cache: cache, notifier: notifier, logger: logger}
}

const tripColumns = `id, location, start_date, end_date, description, created_by, created_at, updated_at`

// ListTrips returns every trip with its interests and images.
func (s *Service) ListTrips(ctx context.Context) ([]model.Trip, error) {
	if trips, ok := s.cache.Get(ctx); ok {
		return trips, nil
	}
	trips, err := s.queryTrips(ctx, `SELECT `+tripColumns+` FROM trips ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, trips)
	return trips, nil
}

func (s *Service) CreatedTrips(ctx context.Context, userID string) ([]model.Trip, error) {
	return s.queryTrips(ctx, `SELECT `+tripColumns+` FROM trips WHERE created_by=$1 ORDER BY created_at`, userID)
}

func (s *Service) GetTrip(ctx context.Context, id string) (model.Trip, error) {
	trips, err := s.queryTrips(ctx, `SELECT `+tripColumns+` FROM trips WHERE id=$1`, id)
	if err != nil {
		return model.Trip{}, err
	}
	if len(trips) == 0 {
		return model.Trip{}, ErrNotFound
	}
	return trips[0], nil
}

// Discover runs the discovery pipeline over all trips. When userID is set each
// result carries that user's join status.
func (s *Service) Discover(ctx context.Context, userID string, f discovery.Filters, mode discovery.SortMode) ([]DiscoveredTrip, error) {
	trips, err := s.ListTrips(ctx)
	if err != nil {
		return nil, err
	}
	visible := discovery.VisibleTrips(trips, f, mode)

	var statuses map[string]model.UserTripStatus
	if userID != "" {
		mine, err := s.listUserTrips(ctx, `ut.user_id=$1`, userID)
		if err != nil {
			return nil, err
		}
		statuses = discovery.JoinStatuses(mine)
	}

	out := make([]DiscoveredTrip, 0, len(visible))
	for _, t := range visible {
		out = append(out, DiscoveredTrip{Trip: t, JoinStatus: statuses[t.ID]})
	}
	return out, nil
}

func (s *Service) Locations(ctx context.Context) ([]string, error) {
	trips, err := s.ListTrips(ctx)
	if err != nil {
		return nil, err
	}
	return discovery.Locations(trips), nil
}

func (s *Service) CreateTrip(ctx context.Context, userID string, req TripRequest) (model.Trip, error) {
	if strings.TrimSpace(req.Location) == "" || req.StartDate == "" || req.EndDate == "" {
		return model.Trip{}, ErrMissingFields
	}
	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return model.Trip{}, err
	}

	trip := model.Trip{
		ID:          uuid.NewString(),
		Location:    strings.TrimSpace(req.Location),
		StartDate:   start,
		EndDate:     end,
		Description: req.Description,
		CreatedBy:   userID,
	}
	err = s.inTx(ctx, func(q db.Querier) error {
		row := q.QueryRow(ctx, `
			INSERT INTO trips (id, location, start_date, end_date, description, created_by)
			VALUES ($1,$2,$3,$4,$5,$6)
			RETURNING created_at, updated_at
		`, trip.ID, trip.Location, trip.StartDate, trip.EndDate, trip.Description, trip.CreatedBy)
		if err := row.Scan(&trip.CreatedAt, &trip.UpdatedAt); err != nil {
			return err
		}
		if err := setInterests(ctx, q, trip.ID, req.InterestIDs); err != nil {
			return err
		}
		for _, url := range req.Images {
			if err := insertImage(ctx, q, trip.ID, url); err != nil {
				return err
			}
		}
		_, err := q.Exec(ctx, `
			INSERT INTO user_trips (id, trip_id, user_id, status)
			VALUES ($1,$2,$3,$4)
		`, uuid.NewString(), trip.ID, userID, model.StatusCreated)
		return err
	})
	if err != nil {
		return model.Trip{}, err
	}

	s.cache.Invalidate(ctx)
	return s.GetTrip(ctx, trip.ID)
}

func (s *Service) UpdateTrip(ctx context.Context, userID, id string, req TripRequest) (model.Trip, error) {
	trip, err := s.ownedTrip(ctx, userID, id)
	if err != nil {
		return model.Trip{}, err
	}
	if loc := strings.TrimSpace(req.Location); loc != "" {
		trip.Location = loc
	}
	if req.Description != "" {
		trip.Description = req.Description
	}
	start, end := trip.StartDate.Format(model.DateLayout), trip.EndDate.Format(model.DateLayout)
	if req.StartDate != "" {
		start = req.StartDate
	}
	if req.EndDate != "" {
		end = req.EndDate
	}
	if trip.StartDate, trip.EndDate, err = parseRange(start, end); err != nil {
		return model.Trip{}, err
	}

	err = s.inTx(ctx, func(q db.Querier) error {
		if _, err := q.Exec(ctx, `
			UPDATE trips
			SET location=$2, start_date=$3, end_date=$4, description=$5, updated_at=now()
			WHERE id=$1
		`, trip.ID, trip.Location, trip.StartDate, trip.EndDate, trip.Description); err != nil {
			return err
		}
		if req.InterestIDs == nil {
			return nil
		}
		if _, err := q.Exec(ctx, `DELETE FROM trip_interests WHERE trip_id=$1`, trip.ID); err != nil {
			return err
		}
		return setInterests(ctx, q, trip.ID, req.InterestIDs)
	})
	if err != nil {
		return model.Trip{}, err
	}

	s.cache.Invalidate(ctx)
	return s.GetTrip(ctx, trip.ID)
}

func (s *Service) DeleteTrip(ctx context.Context, userID, id string) error {
	if _, err := s.ownedTrip(ctx, userID, id); err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM trips WHERE id=$1`, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx)
	return nil
}

func (s *Service) AddImage(ctx context.Context, userID, tripID, url string) error {
	if _, err := s.ownedTrip(ctx, userID, tripID); err != nil {
		return err
	}
	if err := insertImage(ctx, s.db, tripID, url); err != nil {
		return err
	}
	s.cache.Invalidate(ctx)
	return nil
}

func (s *Service) Interests(ctx context.Context) ([]model.Interest, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name FROM interests ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	interests := []model.Interest{}
	for rows.Next() {
		var in model.Interest
		if err := rows.Scan(&in.ID, &in.Name); err != nil {
			return nil, err
		}
		interests = append(interests, in)
	}
	return interests, rows.Err()
}

// Join records the caller's request to join a trip and notifies the owner.
// Only the owner moves a record past requested, through SetStatus; a repeat
// request leaves a joined record as it is.
func (s *Service) Join(ctx context.Context, userID string, req JoinRequest) (model.UserTrip, error) {
	if req.Status == "" {
		req.Status = model.StatusRequested
	}
	if !req.Status.Valid() {
		return model.UserTrip{}, ErrInvalidStatus
	}
	trip, err := s.GetTrip(ctx, req.TripID)
	if err != nil {
		return model.UserTrip{}, err
	}
	if trip.CreatedBy == userID {
		return model.UserTrip{}, ErrOwnTrip
	}
	if req.Status != model.StatusRequested {
		return model.UserTrip{}, ErrForbidden
	}

	ut := model.UserTrip{TripID: trip.ID, UserID: userID}
	row := s.db.QueryRow(ctx, `
		INSERT INTO user_trips (id, trip_id, user_id, status)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (trip_id, user_id) DO UPDATE
		SET status = CASE WHEN user_trips.status = 'joined' THEN user_trips.status ELSE EXCLUDED.status END
		RETURNING id, status, created_at
	`, uuid.NewString(), ut.TripID, ut.UserID, req.Status)
	if err := row.Scan(&ut.ID, &ut.Status, &ut.CreatedAt); err != nil {
		return model.UserTrip{}, err
	}

	if ut.Status == model.StatusRequested {
		s.notify(ctx, trip.CreatedBy, fmt.Sprintf("New request to join your trip to %s", trip.Location))
	}
	return ut, nil
}

// UserTripsByEmail lists every trip relationship of the user with that email.
func (s *Service) UserTripsByEmail(ctx context.Context, email string) ([]model.UserTrip, error) {
	return s.listUserTrips(ctx, `u.email=$1`, email)
}

// Requests lists the join records of a trip, excluding the owner's own.
func (s *Service) Requests(ctx context.Context, userID, tripID string) ([]model.UserTrip, error) {
	if _, err := s.ownedTrip(ctx, userID, tripID); err != nil {
		return nil, err
	}
	return s.listUserTrips(ctx, `ut.trip_id=$1 AND ut.status <> 'created'`, tripID)
}

// SetStatus lets the trip owner accept or decline a join record; the
// requester is notified of the outcome.
func (s *Service) SetStatus(ctx context.Context, userID, userTripID string, status model.UserTripStatus) (model.UserTrip, error) {
	if !status.Valid() {
		return model.UserTrip{}, ErrInvalidStatus
	}
	row := s.db.QueryRow(ctx, `
		SELECT ut.trip_id, ut.user_id, ut.created_at, t.created_by, t.location
		FROM user_trips ut JOIN trips t ON t.id = ut.trip_id
		WHERE ut.id=$1
	`, userTripID)
	ut := model.UserTrip{ID: userTripID, Status: status}
	var owner, location string
	if err := row.Scan(&ut.TripID, &ut.UserID, &ut.CreatedAt, &owner, &location); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.UserTrip{}, ErrNotFound
		}
		return model.UserTrip{}, err
	}
	if owner != userID {
		return model.UserTrip{}, ErrForbidden
	}

	if _, err := s.db.Exec(ctx, `UPDATE user_trips SET status=$2 WHERE id=$1`, userTripID, status); err != nil {
		return model.UserTrip{}, err
	}

	switch status {
	case model.StatusJoined:
		s.notify(ctx, ut.UserID, fmt.Sprintf("Your request to join the trip to %s was accepted", location))
	case model.StatusDeclined:
		s.notify(ctx, ut.UserID, fmt.Sprintf("Your request to join the trip to %s was declined", location))
	}
	return ut, nil
}

func (s *Service) notify(ctx context.Context, userID, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, message); err != nil {
		s.logger.Warn("notify failed", "user_id", userID, "err", err)
	}
}

func (s *Service) ownedTrip(ctx context.Context, userID, id string) (model.Trip, error) {
	trip, err := s.GetTrip(ctx, id)
	if err != nil {
		return model.Trip{}, err
	}
	if trip.CreatedBy != userID {
		return model.Trip{}, ErrForbidden
	}
	return trip, nil
}

// inTx runs fn inside one transaction and rolls it back when fn fails.
func (s *Service) inTx(ctx context.Context, fn func(q db.Querier) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.logger.Warn("rollback failed", "err", rbErr)
		}
		return err
	}
	return tx.Commit(ctx)
}

func setInterests(ctx context.Context, q db.Querier, tripID string, ids []string) error {
	for _, id := range ids {
		_, err := q.Exec(ctx, `
			INSERT INTO trip_interests (trip_id, interest_id)
			VALUES ($1,$2)
			ON CONFLICT DO NOTHING
		`, tripID, id)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return fmt.Errorf("%w: %s", ErrUnknownInterest, id)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func insertImage(ctx context.Context, q db.Querier, tripID, url string) error {
	_, err := q.Exec(ctx, `
		INSERT INTO trip_images (id, trip_id, image_url)
		VALUES ($1,$2,$3)
	`, uuid.NewString(), tripID, url)
	return err
}

func (s *Service) queryTrips(ctx context.Context, query string, args ...any) ([]model.Trip, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	trips := []model.Trip{}
	for rows.Next() {
		var t model.Trip
		if err := rows.Scan(&t.ID, &t.Location, &t.StartDate, &t.EndDate, &t.Description, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		t.Interests = []model.Interest{}
		t.Images = []string{}
		trips = append(trips, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(trips) == 0 {
		return trips, nil
	}
	return trips, s.hydrate(ctx, trips)
}

// hydrate attaches interests and image URLs to trips in two queries.
func (s *Service) hydrate(ctx context.Context, trips []model.Trip) error {
	ids := make([]string, len(trips))
	index := make(map[string]int, len(trips))
	for i, t := range trips {
		ids[i] = t.ID
		index[t.ID] = i
	}

	rows, err := s.db.Query(ctx, `
		SELECT ti.trip_id, i.id, i.name
		FROM trip_interests ti JOIN interests i ON i.id = ti.interest_id
		WHERE ti.trip_id = ANY($1)
		ORDER BY i.name
	`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var tripID string
		var in model.Interest
		if err := rows.Scan(&tripID, &in.ID, &in.Name); err != nil {
			rows.Close()
			return err
		}
		if i, ok := index[tripID]; ok {
			trips[i].Interests = append(trips[i].Interests, in)
		}
	}
	rows.Close()

	rows, err = s.db.Query(ctx, `
		SELECT trip_id, image_url FROM trip_images
		WHERE trip_id = ANY($1)
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var tripID, url string
		if err := rows.Scan(&tripID, &url); err != nil {
			return err
		}
		if i, ok := index[tripID]; ok {
			trips[i].Images = append(trips[i].Images, url)
		}
	}
	return rows.Err()
}

func (s *Service) listUserTrips(ctx context.Context, where string, arg string) ([]model.UserTrip, error) {
	rows, err := s.db.Query(ctx, `
		SELECT ut.id, ut.trip_id, ut.user_id, u.username, ut.status, ut.created_at,
		       t.location, t.start_date, t.end_date, t.description, t.created_by
		FROM user_trips ut
		JOIN users u ON u.id = ut.user_id
		JOIN trips t ON t.id = ut.trip_id
		WHERE `+where+`
		ORDER BY ut.created_at
	`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.UserTrip{}
	for rows.Next() {
		var ut model.UserTrip
		t := &model.Trip{}
		if err := rows.Scan(&ut.ID, &ut.TripID, &ut.UserID, &ut.Username, &ut.Status, &ut.CreatedAt,
			&t.Location, &t.StartDate, &t.EndDate, &t.Description, &t.CreatedBy); err != nil {
			return nil, err
		}
		t.ID = ut.TripID
		ut.Trip = t
		out = append(out, ut)
	}
	return out, rows.Err()
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	start, err := model.ParseDate(from)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDates
	}
	end, err := model.ParseDate(to)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDates
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, ErrInvalidDates
	}
	return start, end, nil
}
