package reviewscore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"backend-travelbuddy/internal/model"

	"golang.org/x/sync/errgroup"
)

// ErrPartialUpdate is returned when some, but not necessarily all, score
// writes failed. The Report names each failed user.
var ErrPartialUpdate = errors.New("review score update incomplete")

// UserWriter replaces a whole user record.
type UserWriter interface {
	PutUser(ctx context.Context, user model.User) error
}

// BatchWriter persists many scores in one call. Aggregator prefers it over
// per-user writes when the writer offers it.
type BatchWriter interface {
	UpdateReviewScores(ctx context.Context, scores map[string]int) error
}

// Snapshot is the input of one aggregation run.
type Snapshot struct {
	Users   []model.User
	Posts   []model.Post
	Reviews []model.Review
}

// Loader fetches a fresh snapshot.
type Loader func(ctx context.Context) (Snapshot, error)

type Failure struct {
	UserID string `json:"user_id"`
	Err    string `json:"error"`
}

type Report struct {
	Users    int       `json:"users"`
	Updated  int       `json:"updated"`
	Orphaned int       `json:"orphaned_reviews"`
	Failures []Failure `json:"failures,omitempty"`
}

type Aggregator struct {
	writer  UserWriter
	workers int
	log     *slog.Logger
}

func NewAggregator(writer UserWriter, workers int, logger *slog.Logger) *Aggregator {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{writer: writer, workers: workers, log: logger}
}

// Refresh loads a snapshot and runs the aggregation over it.
func (a *Aggregator) Refresh(ctx context.Context, load Loader) (Report, error) {
	snap, err := load(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load snapshot: %w", err)
	}
	return a.Run(ctx, snap)
}

// Run recomputes every user's score and writes it back. Writes go through a
// BatchWriter when available, otherwise one PutUser per user with at most
// workers in flight. A failed write never stops the others.
func (a *Aggregator) Run(ctx context.Context, snap Snapshot) (Report, error) {
	scores, orphaned := Scores(snap.Users, snap.Posts, snap.Reviews)
	report := Report{Users: len(snap.Users), Orphaned: orphaned}
	if orphaned > 0 {
		a.log.Warn("reviews reference unknown posts", "count", orphaned)
	}

	if bw, ok := a.writer.(BatchWriter); ok {
		if err := bw.UpdateReviewScores(ctx, scores); err != nil {
			a.log.Warn("batch review score update failed", "users", len(scores), "error", err)
			for _, u := range snap.Users {
				report.Failures = append(report.Failures, Failure{UserID: u.ID, Err: err.Error()})
			}
			return report, fmt.Errorf("%w: %d of %d users: %w", ErrPartialUpdate, len(snap.Users), len(snap.Users), err)
		}
		report.Updated = len(snap.Users)
		return report, nil
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(a.workers)
	for _, u := range snap.Users {
		u.ReviewScore = scores[u.ID]
		g.Go(func() error {
			err := ctx.Err()
			if err == nil {
				err = a.writer.PutUser(ctx, u)
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				a.log.Warn("review score update failed", "user_id", u.ID, "error", err)
				report.Failures = append(report.Failures, Failure{UserID: u.ID, Err: err.Error()})
				return nil
			}
			report.Updated++
			return nil
		})
	}
	_ = g.Wait()

	if n := len(report.Failures); n > 0 {
		return report, fmt.Errorf("%w: %d of %d users", ErrPartialUpdate, n, len(snap.Users))
	}
	return report, nil
}
