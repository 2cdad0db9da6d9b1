package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"backend-travelbuddy/internal/model"
)

const maxErrorBody = 4 << 10

// Session identifies the caller to the backend. Token is sent as a bearer
// token; Email scopes the user-trip listing.
type Session struct {
	Token string
	Email string
}

type Client struct {
	base    string
	session Session
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the request timeout on a copy of the current HTTP client,
// so a shared client such as http.DefaultClient is left alone.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

func New(baseURL string, session Session, opts ...Option) *Client {
	c := &Client{
		base:    strings.TrimRight(baseURL, "/"),
		session: session,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Session() Session { return c.session }

type JoinRequest struct {
	TripID string               `json:"trip_id"`
	Status model.UserTripStatus `json:"status,omitempty"`
}

type ReviewRequest struct {
	ID      string `json:"id,omitempty"`
	PostID  string `json:"post_id"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (c *Client) Trips(ctx context.Context) ([]model.Trip, error) {
	var out []model.Trip
	return out, c.do(ctx, http.MethodGet, "/trips", nil, nil, &out, notFound("trips", ""))
}

func (c *Client) CreatedTrips(ctx context.Context) ([]model.Trip, error) {
	var out []model.Trip
	return out, c.do(ctx, http.MethodGet, "/trips/created", nil, nil, &out, notFound("trips", ""))
}

func (c *Client) Interests(ctx context.Context) ([]model.Interest, error) {
	var out []model.Interest
	return out, c.do(ctx, http.MethodGet, "/interests", nil, nil, &out, notFound("interests", ""))
}

// UserTrips lists the join records of the user with the given email, or of
// the session user when email is empty.
func (c *Client) UserTrips(ctx context.Context, email string) ([]model.UserTrip, error) {
	if email == "" {
		email = c.session.Email
	}
	path := "/user-trips"
	if email != "" {
		path += "?" + url.Values{"email": {email}}.Encode()
	}
	var out []model.UserTrip
	return out, c.do(ctx, http.MethodGet, path, nil, nil, &out, notFound("user", email))
}

func (c *Client) RequestJoin(ctx context.Context, req JoinRequest) (model.UserTrip, error) {
	var out model.UserTrip
	return out, c.do(ctx, http.MethodPost, "/user-trips", nil, req, &out, notFound("trip", req.TripID))
}

func (c *Client) Posts(ctx context.Context) ([]model.Post, error) {
	var out []model.Post
	return out, c.do(ctx, http.MethodGet, "/posts", nil, nil, &out, notFound("posts", ""))
}

func (c *Client) Users(ctx context.Context) ([]model.User, error) {
	var out []model.User
	return out, c.do(ctx, http.MethodGet, "/users", nil, nil, &out, notFound("users", ""))
}

func (c *Client) Reviews(ctx context.Context) ([]model.Review, error) {
	var out []model.Review
	return out, c.do(ctx, http.MethodGet, "/reviews", nil, nil, &out, notFound("reviews", ""))
}

func (c *Client) CreateReview(ctx context.Context, req ReviewRequest) (model.Review, error) {
	var out model.Review
	return out, c.do(ctx, http.MethodPost, "/reviews", nil, req, &out, notFound("post", req.PostID))
}

// PutUser replaces the whole user record, review score included.
func (c *Client) PutUser(ctx context.Context, user model.User) error {
	header := http.Header{"Id": {user.ID}}
	return c.do(ctx, http.MethodPut, "/users", header, user, nil, notFound("user", user.ID))
}

func (c *Client) Notifications(ctx context.Context) ([]model.Notification, error) {
	var out []model.Notification
	return out, c.do(ctx, http.MethodGet, "/notifications", nil, nil, &out, notFound("notifications", ""))
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, "/notifications/"+url.PathEscape(id)+"/read", nil, nil, nil, notFound("notification", id))
}

func notFound(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

func (c *Client) do(ctx context.Context, method, path string, header http.Header, in, out any, missing *NotFoundError) error {
	op := method + " " + path

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		serverErr := &ServerError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
		if resp.StatusCode == http.StatusNotFound {
			missing.Err = serverErr
			return missing
		}
		return serverErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return &NetworkError{Op: op, Err: err}
		}
		return &DecodeError{Op: op, Err: err}
	}
	return nil
}
