package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"backend-travelbuddy/internal/model"
)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", Session{Token: "tok", Email: "ana@example.com"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestTripsSendsBearerAndDecodes(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/trips" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth header %q", got)
		}
		writeJSON(w, []model.Trip{{ID: "t1", Location: "Paris"}, {ID: "t2", Location: "Tokyo"}})
	})

	trips, err := c.Trips(context.Background())
	if err != nil {
		t.Fatalf("trips: %v", err)
	}
	if len(trips) != 2 || trips[0].Location != "Paris" {
		t.Fatalf("unexpected trips %+v", trips)
	}
}

func TestUserTripsDefaultsToSessionEmail(t *testing.T) {
	var gotEmail string
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotEmail = r.URL.Query().Get("email")
		writeJSON(w, []model.UserTrip{{ID: "ut1", TripID: "t1", Status: model.StatusJoined}})
	})

	list, err := c.UserTrips(context.Background(), "")
	if err != nil || len(list) != 1 {
		t.Fatalf("user trips: %v", err)
	}
	if gotEmail != "ana@example.com" {
		t.Fatalf("expected session email, got %q", gotEmail)
	}
	if _, err := c.UserTrips(context.Background(), "bo@example.com"); err != nil || gotEmail != "bo@example.com" {
		t.Fatalf("expected explicit email, got %q", gotEmail)
	}
}

func TestPutUserSendsIdHeaderAndFullBody(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/users" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Id") != "u1" {
			t.Errorf("missing Id header")
		}
		var u model.User
		if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if u.ReviewScore != 4 || u.Bio != "hi" {
			t.Errorf("expected full record, got %+v", u)
		}
		writeJSON(w, u)
	})

	if err := c.PutUser(context.Background(), model.User{ID: "u1", Bio: "hi", ReviewScore: 4}); err != nil {
		t.Fatalf("put user: %v", err)
	}
}

func TestCreateReviewAndJoin(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/reviews":
			var req ReviewRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			w.WriteHeader(http.StatusCreated)
			writeJSON(w, model.Review{ID: "r1", PostID: req.PostID, Rating: req.Rating})
		case "/user-trips":
			var req JoinRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			writeJSON(w, model.UserTrip{ID: "ut1", TripID: req.TripID, Status: model.StatusRequested})
		default:
			http.NotFound(w, r)
		}
	})

	review, err := c.CreateReview(context.Background(), ReviewRequest{PostID: "p1", Rating: 5})
	if err != nil || review.ID != "r1" || review.Rating != 5 {
		t.Fatalf("create review: %+v %v", review, err)
	}
	ut, err := c.RequestJoin(context.Background(), JoinRequest{TripID: "t1"})
	if err != nil || ut.TripID != "t1" || ut.Status != model.StatusRequested {
		t.Fatalf("request join: %+v %v", ut, err)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/notifications/n9/read":
			http.Error(w, `{"error":"notification not found"}`, http.StatusNotFound)
		case "/posts":
			http.Error(w, "boom", http.StatusInternalServerError)
		case "/reviews":
			_, _ = w.Write([]byte("<html>"))
		case "/notifications/n1/read":
			w.WriteHeader(http.StatusNoContent)
		}
	})
	ctx := context.Background()

	err := c.MarkNotificationRead(ctx, "n9")
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Kind != "notification" || nf.ID != "n9" {
		t.Fatalf("expected not found error, got %v", err)
	}
	var se *ServerError
	if !errors.As(err, &se) || se.Status != http.StatusNotFound {
		t.Fatalf("not found should unwrap to server error, got %v", err)
	}

	_, err = c.Posts(ctx)
	if !errors.As(err, &se) || se.Status != http.StatusInternalServerError || se.Body != "boom" {
		t.Fatalf("expected server error, got %v", err)
	}

	_, err = c.Reviews(ctx)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected decode error, got %v", err)
	}

	if err := c.MarkNotificationRead(ctx, "n1"); err != nil {
		t.Fatalf("no content should succeed: %v", err)
	}
}

func TestNetworkErrorAndCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	_, err := New(base, Session{}).Interests(context.Background())
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected network error, got %v", err)
	}

	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(slow.Close)
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = New(slow.URL, Session{}).Users(ctx)
	if !errors.As(err, &ne) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected cancelled network error, got %v", err)
	}
}

func TestSnapshot(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/users"):
			writeJSON(w, []model.User{{ID: "u1"}})
		case strings.HasPrefix(r.URL.Path, "/posts"):
			writeJSON(w, []model.Post{{ID: "p1", AuthorID: "u1"}})
		case strings.HasPrefix(r.URL.Path, "/reviews"):
			writeJSON(w, []model.Review{{PostID: "p1", Rating: 3}})
		}
	})

	snap, err := c.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Users) != 1 || len(snap.Posts) != 1 || len(snap.Reviews) != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestWithTimeoutLeavesSharedClientAlone(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}
	c := New("http://backend", Session{}, WithHTTPClient(shared), WithTimeout(2*time.Second))

	if shared.Timeout != time.Minute {
		t.Fatalf("shared client timeout changed to %v", shared.Timeout)
	}
	if c.http == shared || c.http.Timeout != 2*time.Second {
		t.Fatalf("expected a private client with the new timeout, got %+v", c.http)
	}
}
