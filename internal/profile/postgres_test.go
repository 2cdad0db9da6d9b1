package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"backend-travelbuddy/internal/config"
	"backend-travelbuddy/internal/db"
	"backend-travelbuddy/internal/model"
	"backend-travelbuddy/internal/reviewscore"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// startPostgres runs a throwaway postgres with the schema applied.
func startPostgres(t *testing.T) *Service {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("travelbuddy"),
		postgres.WithUsername("buddy"),
		postgres.WithPassword("buddy"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	pool, err := db.ConnectPostgres(config.Config{PostgresURL: dsn})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("second migrate should be a no-op: %v", err)
	}

	for _, u := range []struct{ id, email, username string }{
		{"u1", "ana@trip.io", "ana"},
		{"u2", "bo@trip.io", "bo"},
		{"u3", "cy@trip.io", "cy"},
	} {
		if _, err := pool.Exec(ctx, `INSERT INTO users (id, email, username) VALUES ($1,$2,$3)`, u.id, u.email, u.username); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	return NewService(pool, stubTrips{}, stubPosts{})
}

func TestPostgresAggregatorBatchWrite(t *testing.T) {
	svc := startPostgres(t)
	ctx := context.Background()

	users, err := svc.List(ctx, "")
	if err != nil || len(users) != 3 {
		t.Fatalf("list users: %d %v", len(users), err)
	}
	snap := reviewscore.Snapshot{
		Users: users,
		Posts: []model.Post{{ID: "p1", AuthorID: "u1"}, {ID: "p2", AuthorID: "u2"}},
		Reviews: []model.Review{
			{PostID: "p1", Rating: 5}, {PostID: "p1", Rating: 3}, {PostID: "p1", Rating: 4},
			{PostID: "p2", Rating: 2}, {PostID: "p2", Rating: 3},
		},
	}

	report, err := reviewscore.NewAggregator(svc, 2, nil).Run(ctx, snap)
	if err != nil || report.Updated != 3 {
		t.Fatalf("run: %+v %v", report, err)
	}

	want := map[string]int{"u1": 4, "u2": 3, "u3": 0}
	for id, score := range want {
		u, err := svc.Get(ctx, id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if u.ReviewScore != score {
			t.Fatalf("%s: expected score %d, got %d", id, score, u.ReviewScore)
		}
	}
}

func TestPostgresPutUserReplacesRecord(t *testing.T) {
	svc := startPostgres(t)
	ctx := context.Background()

	u, err := svc.Get(ctx, "u2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	u.Bio = "slow travel"
	u.Languages = []string{"pt", "en"}
	u.ReviewScore = 5
	if err := svc.PutUser(ctx, u); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := svc.Get(ctx, "u2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Bio != "slow travel" || got.ReviewScore != 5 || len(got.Languages) != 2 {
		t.Fatalf("unexpected user %+v", got)
	}
	if err := svc.PutUser(ctx, model.User{ID: "ghost"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
