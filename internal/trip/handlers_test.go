package trip

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backend-travelbuddy/internal/model"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
)

func asUser(id string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", id)
		c.Locals("email", id+"@trip.io")
		return c.Next()
	}
}

func anonymous(c *fiber.Ctx) error { return c.Next() }

func newTripApp(mock pgxmock.PgxPoolIface, userID string) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app, NewService(mock, nil, nil, nil), asUser(userID), anonymous)
	return app
}

func send(t *testing.T, app *fiber.App, method, path string, body interface{}) *http.Response {
	t.Helper()
	var req *http.Request
	if body != nil {
		raw, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func TestTripHandlersDiscover(t *testing.T) {
	mock := newMock(t)
	rows := pgxmock.NewRows(tripCols)
	tripRow(rows, "t1", "Lisbon", "2024-06-01", "2024-06-10", "u1")
	tripRow(rows, "t2", "Porto", "2024-06-03", "2024-06-04", "u1")
	expectTrips(mock, `FROM trips ORDER BY created_at`, nil, rows, []string{"t1", "t2"},
		pgxmock.NewRows([]string{"trip_id", "id", "name"}).AddRow("t2", "surf", "Surf"), nil)

	app := newTripApp(mock, "u1")
	resp := send(t, app, http.MethodGet, "/trips/discover?interests=surf,%20food&start=2024-06-02&end=2024-06-03&q=POR", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("discover status %d", resp.StatusCode)
	}
	var out []DiscoveredTrip
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].ID != "t2" {
		t.Fatalf("unexpected discover result %+v", out)
	}
}

func TestTripHandlersDiscoverBadQuery(t *testing.T) {
	app := newTripApp(newMock(t), "u1")
	for _, q := range []string{"sort=random", "start=June", "end=2024-13-01"} {
		if resp := send(t, app, http.MethodGet, "/trips/discover?"+q, nil); resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected bad request for %q, got %d", q, resp.StatusCode)
		}
	}
}

func TestTripHandlersListLocationsCreated(t *testing.T) {
	mock := newMock(t)
	rows := pgxmock.NewRows(tripCols)
	tripRow(rows, "t1", "Lisbon", "2024-06-01", "2024-06-10", "u1")
	expectTrips(mock, `FROM trips ORDER BY created_at`, nil, rows, []string{"t1"}, nil, nil)

	rows = pgxmock.NewRows(tripCols)
	tripRow(rows, "t1", "Lisbon", "2024-06-01", "2024-06-10", "u1")
	expectTrips(mock, `FROM trips ORDER BY created_at`, nil, rows, []string{"t1"}, nil, nil)

	rows = pgxmock.NewRows(tripCols)
	tripRow(rows, "t1", "Lisbon", "2024-06-01", "2024-06-10", "u1")
	expectTrips(mock, `WHERE created_by=`, []interface{}{"u1"}, rows, []string{"t1"}, nil, nil)

	app := newTripApp(mock, "u1")
	for _, path := range []string{"/trips", "/trips/locations", "/trips/created"} {
		if resp := send(t, app, http.MethodGet, path, nil); resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status %d", path, resp.StatusCode)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTripHandlersCreateGetDelete(t *testing.T) {
	mock := newMock(t)
	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO trips`).
		WithArgs(pgxmock.AnyArg(), "Rome", pgxmock.AnyArg(), pgxmock.AnyArg(), "", "u1").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec(`INSERT INTO user_trips`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "u1", model.StatusCreated).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectQuery(`FROM trips WHERE id=`).WithArgs(pgxmock.AnyArg()).
		WillReturnRows(tripRow(pgxmock.NewRows(tripCols), "t9", "Rome", "2024-03-01", "2024-03-04", "u1"))
	mock.ExpectQuery(`FROM trip_interests ti JOIN interests`).WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"trip_id", "id", "name"}))
	mock.ExpectQuery(`FROM trip_images`).WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"trip_id", "image_url"}))

	app := newTripApp(mock, "u1")
	resp := send(t, app, http.MethodPost, "/trips", TripRequest{Location: "Rome", StartDate: "2024-03-01", EndDate: "2024-03-04"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d", resp.StatusCode)
	}

	expectOneTrip(mock, "t9", "Rome", "u1")
	if resp := send(t, app, http.MethodGet, "/trips/t9", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("get status %d", resp.StatusCode)
	}

	expectNoTrip(mock, "missing")
	if resp := send(t, app, http.MethodGet, "/trips/missing", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected not found, got %d", resp.StatusCode)
	}

	expectOneTrip(mock, "t9", "Rome", "u1")
	mock.ExpectExec(`DELETE FROM trips`).WithArgs("t9").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	if resp := send(t, app, http.MethodDelete, "/trips/t9", nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status %d", resp.StatusCode)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTripHandlersOwnerOnly(t *testing.T) {
	mock := newMock(t)
	app := newTripApp(mock, "stranger")

	expectOneTrip(mock, "t1", "Lisbon", "owner")
	if resp := send(t, app, http.MethodDelete, "/trips/t1", nil); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected forbidden delete, got %d", resp.StatusCode)
	}
	expectOneTrip(mock, "t1", "Lisbon", "owner")
	if resp := send(t, app, http.MethodPut, "/trips/t1", TripRequest{Location: "X"}); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected forbidden update, got %d", resp.StatusCode)
	}
	expectOneTrip(mock, "t1", "Lisbon", "owner")
	if resp := send(t, app, http.MethodGet, "/trips/t1/requests", nil); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected forbidden requests, got %d", resp.StatusCode)
	}
	expectOneTrip(mock, "t1", "Lisbon", "owner")
	if resp := send(t, app, http.MethodPost, "/trips/t1/images", map[string]string{"image_url": "/uploads/x.png"}); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected forbidden image, got %d", resp.StatusCode)
	}
}

func TestTripHandlersBadRequest(t *testing.T) {
	app := newTripApp(newMock(t), "u1")
	if resp := send(t, app, http.MethodPost, "/trips", map[string]string{"location": "Rome"}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request for missing dates, got %d", resp.StatusCode)
	}
	if resp := send(t, app, http.MethodPost, "/trips/t1/images", map[string]string{}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request for missing image_url, got %d", resp.StatusCode)
	}
	if resp := send(t, app, http.MethodPost, "/user-trips", map[string]string{}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request for missing trip_id, got %d", resp.StatusCode)
	}
	if resp := send(t, app, http.MethodPut, "/user-trips/ut1", StatusRequest{Status: "maybe"}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request for status, got %d", resp.StatusCode)
	}
}

func TestUserTripHandlers(t *testing.T) {
	mock := newMock(t)
	app := newTripApp(mock, "u2")
	now := time.Now()

	expectOneTrip(mock, "t1", "Lisbon", "owner")
	mock.ExpectQuery(`INSERT INTO user_trips`).
		WithArgs(pgxmock.AnyArg(), "t1", "u2", model.StatusRequested).
		WillReturnRows(pgxmock.NewRows(joinCols).AddRow("ut1", model.StatusRequested, now))
	if resp := send(t, app, http.MethodPost, "/user-trips", JoinRequest{TripID: "t1"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("join status %d", resp.StatusCode)
	}

	mock.ExpectQuery(`WHERE u.email=`).WithArgs("u2@trip.io").
		WillReturnRows(pgxmock.NewRows(userTripCols).
			AddRow("ut1", "t1", "u2", "bo", model.StatusRequested, now, "Lisbon", day("2024-06-01"), day("2024-06-05"), "", "owner"))
	resp := send(t, app, http.MethodGet, "/user-trips", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status %d", resp.StatusCode)
	}
	var list []model.UserTrip
	_ = json.NewDecoder(resp.Body).Decode(&list)
	if len(list) != 1 || list[0].Trip.Location != "Lisbon" {
		t.Fatalf("unexpected list %+v", list)
	}

	mock.ExpectQuery(`WHERE u.email=`).WithArgs("other@trip.io").WillReturnRows(pgxmock.NewRows(userTripCols))
	if resp := send(t, app, http.MethodGet, "/user-trips?email=other@trip.io", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("list by email status %d", resp.StatusCode)
	}

	mock.ExpectQuery(`FROM user_trips ut JOIN trips t`).WithArgs("ut1").
		WillReturnRows(pgxmock.NewRows([]string{"trip_id", "user_id", "created_at", "created_by", "location"}).
			AddRow("t1", "u2", now, "owner", "Lisbon"))
	if resp := send(t, app, http.MethodPut, "/user-trips/ut1", StatusRequest{Status: model.StatusJoined}); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected forbidden accept by requester, got %d", resp.StatusCode)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInterestHandler(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT id, name FROM interests`).WillReturnError(errQuery)
	app := newTripApp(mock, "u1")
	if resp := send(t, app, http.MethodGet, "/interests", nil); resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected server error, got %d", resp.StatusCode)
	}
}

func TestWriteHandlersRejectEscalation(t *testing.T) {
	mock := newMock(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO trips`).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec(`INSERT INTO trip_interests`).WillReturnError(&pgconn.PgError{Code: "23503"})
	mock.ExpectRollback()
	owner := newTripApp(mock, "owner")
	resp := send(t, owner, http.MethodPost, "/trips", TripRequest{Location: "Rome", StartDate: "2024-03-01", EndDate: "2024-03-04", InterestIDs: []string{"ghost"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown interest status %d", resp.StatusCode)
	}

	expectOneTrip(mock, "t1", "Lisbon", "owner")
	if resp := send(t, owner, http.MethodPost, "/user-trips", JoinRequest{TripID: "t1"}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("owner join status %d", resp.StatusCode)
	}

	expectOneTrip(mock, "t1", "Lisbon", "owner")
	stranger := newTripApp(mock, "stranger")
	if resp := send(t, stranger, http.MethodPost, "/user-trips", JoinRequest{TripID: "t1", Status: model.StatusJoined}); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("self accept status %d", resp.StatusCode)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
