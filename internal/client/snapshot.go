package client

import (
	"context"

	"backend-travelbuddy/internal/reviewscore"

	"golang.org/x/sync/errgroup"
)

var _ reviewscore.UserWriter = (*Client)(nil)

// Snapshot fetches users, posts and reviews in parallel. It satisfies
// reviewscore.Loader.
func (c *Client) Snapshot(ctx context.Context) (reviewscore.Snapshot, error) {
	var snap reviewscore.Snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Users, err = c.Users(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Posts, err = c.Posts(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Reviews, err = c.Reviews(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return reviewscore.Snapshot{}, err
	}
	return snap, nil
}
