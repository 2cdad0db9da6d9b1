package metrics

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"backend-travelbuddy/internal/reviewscore"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareCountsByRoute(t *testing.T) {
	m := New()
	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/trips/:id", func(c *fiber.Ctx) error {
		if c.Params("id") == "missing" {
			return fiber.NewError(fiber.StatusNotFound, "trip not found")
		}
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("boom") })

	for _, path := range []string{"/trips/a", "/trips/b", "/trips/missing", "/boom"} {
		if _, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil)); err != nil {
			t.Fatalf("%s: %v", path, err)
		}
	}

	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/trips/:id", "200")); got != 2 {
		t.Fatalf("expected 2 ok trip requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/trips/:id", "404")); got != 1 {
		t.Fatalf("expected 1 not found, got %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/boom", "500")); got != 1 {
		t.Fatalf("expected 1 server error, got %v", got)
	}
}

func TestObserveRescore(t *testing.T) {
	m := New()
	m.ObserveRescore(reviewscore.Report{Users: 3, Updated: 3}, nil)
	m.ObserveRescore(reviewscore.Report{Users: 3, Updated: 1, Failures: []reviewscore.Failure{{UserID: "u1"}, {UserID: "u2"}}},
		fmt.Errorf("%w: 2 of 3 users", reviewscore.ErrPartialUpdate))
	m.ObserveRescore(reviewscore.Report{}, errors.New("load snapshot"))

	for result, want := range map[string]float64{"ok": 1, "partial": 1, "error": 1} {
		if got := testutil.ToFloat64(m.rescores.WithLabelValues(result)); got != want {
			t.Fatalf("%s: expected %v, got %v", result, want, got)
		}
	}
	if got := testutil.ToFloat64(m.scoreFailures); got != 2 {
		t.Fatalf("expected 2 failed writes, got %v", got)
	}
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.ObserveRescore(reviewscore.Report{}, nil)

	app := fiber.New()
	app.Get("/metrics", m.Handler())
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `travelbuddy_review_score_runs_total{result="ok"} 1`) {
		t.Fatalf("expected rescore counter in output:\n%s", body)
	}
}
