// Package reviewscore derives each user's review score, the rounded mean
// rating over every review left on any of their posts, and writes the
// recomputed scores back.
package reviewscore

import (
	"math"

	"backend-travelbuddy/internal/model"
)

// NoReviews is the score of a user none of whose posts has been reviewed.
// Ratings are in [1,5] so a real mean can never round to it.
const NoReviews = 0

// Scores returns the review score of every user in users, keyed by user id.
// Reviews pointing at a post that is not in posts are ignored; their count
// is returned as orphaned.
func Scores(users []model.User, posts []model.Post, reviews []model.Review) (scores map[string]int, orphaned int) {
	author := make(map[string]string, len(posts))
	for _, p := range posts {
		author[p.ID] = p.AuthorID
	}

	type tally struct{ sum, count int }
	tallies := make(map[string]*tally)
	for _, r := range reviews {
		uid, ok := author[r.PostID]
		if !ok {
			orphaned++
			continue
		}
		t := tallies[uid]
		if t == nil {
			t = &tally{}
			tallies[uid] = t
		}
		t.sum += r.Rating
		t.count++
	}

	scores = make(map[string]int, len(users))
	for _, u := range users {
		scores[u.ID] = NoReviews
		if t := tallies[u.ID]; t != nil && t.count > 0 {
			scores[u.ID] = Mean(t.sum, t.count)
		}
	}
	return scores, orphaned
}

// Mean is sum/count rounded half up.
func Mean(sum, count int) int {
	if count == 0 {
		return NoReviews
	}
	return int(math.Round(float64(sum) / float64(count)))
}
