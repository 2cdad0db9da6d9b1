package social

import (
	"context"
	"errors"
	"log/slog"

	"backend-travelbuddy/internal/db"
	"backend-travelbuddy/internal/model"
	"backend-travelbuddy/internal/reviewscore"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type Service struct {
	db       db.Querier
	rescorer Rescorer
	logger   *slog.Logger
}

func NewService(db db.Querier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, logger: logger}
}

// SetRescorer installs the hook run after every review write.
func (s *Service) SetRescorer(r Rescorer) {
	s.rescorer = r
}

// CreatePost publishes a post on a trip the caller created or was accepted to.
func (s *Service) CreatePost(ctx context.Context, userID string, req PostRequest) (model.Post, error) {
	if req.UserTripID == "" {
		return model.Post{}, ErrMissingFields
	}
	post := model.Post{
		ID:         uuid.NewString(),
		Caption:    req.Caption,
		ImageURL:   req.ImageURL,
		UserTripID: req.UserTripID,
	}

	row := s.db.QueryRow(ctx, `
		SELECT ut.user_id, u.username, ut.trip_id, t.location, ut.status
		FROM user_trips ut
		JOIN users u ON u.id = ut.user_id
		JOIN trips t ON t.id = ut.trip_id
		WHERE ut.id=$1
	`, req.UserTripID)
	var status model.UserTripStatus
	if err := row.Scan(&post.AuthorID, &post.Author, &post.TripID, &post.Location, &status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Post{}, errUserTripAbsent
		}
		return model.Post{}, err
	}
	if post.AuthorID != userID {
		return model.Post{}, ErrForbidden
	}
	if status != model.StatusJoined && status != model.StatusCreated {
		return model.Post{}, ErrNotMember
	}

	row = s.db.QueryRow(ctx, `
		INSERT INTO posts (id, user_trip_id, caption, image_url)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at
	`, post.ID, post.UserTripID, post.Caption, post.ImageURL)
	if err := row.Scan(&post.CreatedAt); err != nil {
		return model.Post{}, err
	}
	return post, nil
}

// ListPosts returns posts newest first, optionally only those by authorID.
func (s *Service) ListPosts(ctx context.Context, authorID string) ([]model.Post, error) {
	query := `
		SELECT p.id, p.caption, p.image_url, p.user_trip_id, ut.user_id, u.username, ut.trip_id, t.location, p.created_at
		FROM posts p
		JOIN user_trips ut ON ut.id = p.user_trip_id
		JOIN users u ON u.id = ut.user_id
		JOIN trips t ON t.id = ut.trip_id
	`
	var args []any
	if authorID != "" {
		query += ` WHERE ut.user_id=$1`
		args = append(args, authorID)
	}
	query += ` ORDER BY p.created_at DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.ID, &p.Caption, &p.ImageURL, &p.UserTripID, &p.AuthorID, &p.Author, &p.TripID, &p.Location, &p.CreatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// WriteReview stores the caller's review and then refreshes review scores.
// A failed refresh is logged and does not undo the write.
func (s *Service) WriteReview(ctx context.Context, reviewerID string, req ReviewRequest) (model.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return model.Review{}, ErrInvalidRating
	}
	review := model.Review{
		ID:         req.ID,
		PostID:     req.PostID,
		ReviewerID: reviewerID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	}

	if review.ID == "" {
		if review.PostID == "" {
			return model.Review{}, ErrMissingFields
		}
		review.ID = uuid.NewString()
		row := s.db.QueryRow(ctx, `
			INSERT INTO reviews (id, post_id, reviewer_id, rating, comment)
			VALUES ($1,$2,$3,$4,$5)
			RETURNING created_at
		`, review.ID, review.PostID, review.ReviewerID, review.Rating, review.Comment)
		if err := row.Scan(&review.CreatedAt); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return model.Review{}, ErrNotFound
			}
			return model.Review{}, err
		}
	} else {
		row := s.db.QueryRow(ctx, `
			UPDATE reviews SET rating=$3, comment=$4
			WHERE id=$1 AND reviewer_id=$2
			RETURNING post_id, created_at
		`, review.ID, review.ReviewerID, review.Rating, review.Comment)
		if err := row.Scan(&review.PostID, &review.CreatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return model.Review{}, ErrNotFound
			}
			return model.Review{}, err
		}
	}

	if s.rescorer != nil {
		if _, err := s.rescorer(ctx); err != nil {
			s.logger.Warn("review score refresh failed", "review_id", review.ID, "error", err)
		}
	}
	return review, nil
}

// ListReviews returns reviews oldest first, optionally only those on postID.
func (s *Service) ListReviews(ctx context.Context, postID string) ([]model.Review, error) {
	query := `SELECT id, post_id, reviewer_id, rating, comment, created_at FROM reviews`
	var args []any
	if postID != "" {
		query += ` WHERE post_id=$1`
		args = append(args, postID)
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []model.Review{}
	for rows.Next() {
		var r model.Review
		if err := rows.Scan(&r.ID, &r.PostID, &r.ReviewerID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func (s *Service) Rescore(ctx context.Context) (reviewscore.Report, error) {
	if s.rescorer == nil {
		return reviewscore.Report{}, ErrNoRescorer
	}
	return s.rescorer(ctx)
}
