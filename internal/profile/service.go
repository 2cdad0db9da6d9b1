package profile

import (
	"context"
	"errors"
	"slices"

	"backend-travelbuddy/internal/db"
	"backend-travelbuddy/internal/model"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"
)

const userColumns = `id, username, name, email, phone_number, age, sex, nationality, languages, interests, bio, profile_picture, review_score, created_at, updated_at`

type Service struct {
	db    db.Querier
	trips TripSource
	posts PostSource
}

func NewService(db db.Querier, trips TripSource, posts PostSource) *Service {
	return &Service{db: db, trips: trips, posts: posts}
}

// List returns users ordered by username. A non-empty q keeps only users
// whose username or name contains it, case-insensitively.
func (s *Service) List(ctx context.Context, q string) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if q != "" {
		query += ` WHERE username ILIKE $1 OR name ILIKE $1`
		args = append(args, "%"+q+"%")
	}
	query += ` ORDER BY username`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Service) Get(ctx context.Context, id string) (model.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

func (s *Service) UpdateProfile(ctx context.Context, id string, p ProfileUpdate) (model.User, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE users
		SET name=$2, phone_number=$3, age=$4, sex=$5, nationality=$6, languages=$7,
		    interests=$8, bio=$9, profile_picture=$10, updated_at=now()
		WHERE id=$1
		RETURNING `+userColumns,
		id, p.Name, p.PhoneNumber, p.Age, p.Sex, p.Nationality, nonNil(p.Languages),
		nonNil(p.Interests), p.Bio, p.ProfilePicture)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// PutUser replaces the stored user record, review score included.
func (s *Service) PutUser(ctx context.Context, u model.User) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE users
		SET username=$2, name=$3, email=$4, phone_number=$5, age=$6, sex=$7, nationality=$8,
		    languages=$9, interests=$10, bio=$11, profile_picture=$12, review_score=$13, updated_at=now()
		WHERE id=$1
	`, u.ID, u.Username, u.Name, u.Email, u.PhoneNumber, u.Age, u.Sex, u.Nationality,
		nonNil(u.Languages), nonNil(u.Interests), u.Bio, u.ProfilePicture, u.ReviewScore)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// WriteBackScore handles a PUT of another user's record. The body must match
// the stored profile; only review_score changes, and it is recomputed from
// the reviews table rather than taken from the body.
func (s *Service) WriteBackScore(ctx context.Context, u model.User) (model.User, error) {
	stored, err := s.Get(ctx, u.ID)
	if err != nil {
		return model.User{}, err
	}
	if !sameProfile(stored, u) {
		return model.User{}, ErrForbidden
	}

	var score int32
	if err := s.db.QueryRow(ctx, `
		SELECT COALESCE(ROUND(AVG(r.rating)), 0)::int
		FROM reviews r
		JOIN posts p ON p.id = r.post_id
		JOIN user_trips ut ON ut.id = p.user_trip_id
		WHERE ut.user_id = $1
	`, u.ID).Scan(&score); err != nil {
		return model.User{}, err
	}
	if _, err := s.db.Exec(ctx, `
		UPDATE users SET review_score=$2, updated_at=now()
		WHERE id=$1 AND review_score <> $2
	`, u.ID, score); err != nil {
		return model.User{}, err
	}
	stored.ReviewScore = int(score)
	return stored, nil
}

func sameProfile(a, b model.User) bool {
	return a.Username == b.Username && a.Name == b.Name && a.Email == b.Email &&
		a.PhoneNumber == b.PhoneNumber && a.Age == b.Age && a.Sex == b.Sex &&
		a.Nationality == b.Nationality && a.Bio == b.Bio && a.ProfilePicture == b.ProfilePicture &&
		slices.Equal(a.Languages, b.Languages) && slices.Equal(a.Interests, b.Interests)
}

// UpdateReviewScores writes every score in one statement.
func (s *Service) UpdateReviewScores(ctx context.Context, scores map[string]int) error {
	if len(scores) == 0 {
		return nil
	}
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	values := make([]int32, len(ids))
	for i, id := range ids {
		values[i] = int32(scores[id])
	}

	_, err := s.db.Exec(ctx, `
		UPDATE users AS u
		SET review_score = s.score, updated_at = now()
		FROM unnest($1::text[], $2::int[]) AS s(id, score)
		WHERE u.id = s.id AND u.review_score <> s.score
	`, ids, values)
	return err
}

// Profile gathers a user with their trips and posts.
func (s *Service) Profile(ctx context.Context, id string) (Profile, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	p := Profile{User: user, Trips: []model.UserTrip{}, Posts: []model.Post{}}

	g, gctx := errgroup.WithContext(ctx)
	if s.trips != nil {
		g.Go(func() error {
			trips, err := s.trips.UserTripsByEmail(gctx, user.Email)
			if trips != nil {
				p.Trips = trips
			}
			return err
		})
	}
	if s.posts != nil {
		g.Go(func() error {
			posts, err := s.posts.ListPosts(gctx, user.ID)
			if posts != nil {
				p.Posts = posts
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.PhoneNumber, &u.Age, &u.Sex, &u.Nationality,
		&u.Languages, &u.Interests, &u.Bio, &u.ProfilePicture, &u.ReviewScore, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
