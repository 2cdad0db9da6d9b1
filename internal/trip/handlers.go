package trip

import (
	"errors"
	"strings"

	"backend-travelbuddy/internal/auth"
	"backend-travelbuddy/internal/discovery"
	"backend-travelbuddy/internal/model"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts /trips, /interests and /user-trips on r. optionalAuth
// is used by discovery so anonymous callers can browse.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware, optionalAuth fiber.Handler) {
	trips := r.Group("/trips")

	trips.Get("/", func(c *fiber.Ctx) error {
		list, err := svc.ListTrips(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(list)
	})

	trips.Get("/discover", optionalAuth, func(c *fiber.Ctx) error {
		filters, mode, err := filtersFromQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		session, _ := auth.SessionFrom(c)
		list, err := svc.Discover(c.Context(), session.UserID, filters, mode)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(list)
	})

	trips.Get("/locations", func(c *fiber.Ctx) error {
		locations, err := svc.Locations(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(locations)
	})

	trips.Get("/created", authMiddleware, func(c *fiber.Ctx) error {
		session, _ := auth.SessionFrom(c)
		list, err := svc.CreatedTrips(c.Context(), session.UserID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(list)
	})

	trips.Get("/:id", func(c *fiber.Ctx) error {
		t, err := svc.GetTrip(c.Context(), c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(t)
	})

	trips.Get("/:id/qr", func(c *fiber.Ctx) error {
		t, err := svc.GetTrip(c.Context(), c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		png, err := ShareQR(shareLink(c, t.ID))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		c.Set(fiber.HeaderContentType, "image/png")
		return c.Send(png)
	})

	trips.Get("/:id/itinerary", func(c *fiber.Ctx) error {
		t, err := svc.GetTrip(c.Context(), c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		doc, err := ItineraryPDF(t, shareLink(c, t.ID))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="trip-`+t.ID+`.pdf"`)
		return c.Send(doc)
	})

	trips.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req TripRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		session, _ := auth.SessionFrom(c)
		t, err := svc.CreateTrip(c.Context(), session.UserID, req)
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(t)
	})

	trips.Put("/:id", authMiddleware, func(c *fiber.Ctx) error {
		var req TripRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		session, _ := auth.SessionFrom(c)
		t, err := svc.UpdateTrip(c.Context(), session.UserID, c.Params("id"), req)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(t)
	})

	trips.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		session, _ := auth.SessionFrom(c)
		if err := svc.DeleteTrip(c.Context(), session.UserID, c.Params("id")); err != nil {
			return httpError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	trips.Post("/:id/images", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			ImageURL string `json:"image_url"`
		}
		if err := c.BodyParser(&body); err != nil || body.ImageURL == "" {
			return fiber.NewError(fiber.StatusBadRequest, "image_url required")
		}
		session, _ := auth.SessionFrom(c)
		if err := svc.AddImage(c.Context(), session.UserID, c.Params("id"), body.ImageURL); err != nil {
			return httpError(err)
		}
		return c.SendStatus(fiber.StatusCreated)
	})

	trips.Get("/:id/requests", authMiddleware, func(c *fiber.Ctx) error {
		session, _ := auth.SessionFrom(c)
		list, err := svc.Requests(c.Context(), session.UserID, c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(list)
	})

	r.Get("/interests", func(c *fiber.Ctx) error {
		list, err := svc.Interests(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(list)
	})

	userTrips := r.Group("/user-trips", authMiddleware)

	userTrips.Post("/", func(c *fiber.Ctx) error {
		var req JoinRequest
		if err := c.BodyParser(&req); err != nil || req.TripID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "trip_id required")
		}
		session, _ := auth.SessionFrom(c)
		ut, err := svc.Join(c.Context(), session.UserID, req)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(ut)
	})

	userTrips.Get("/", func(c *fiber.Ctx) error {
		email := c.Query("email")
		if email == "" {
			session, _ := auth.SessionFrom(c)
			email = session.Email
		}
		if email == "" {
			return fiber.NewError(fiber.StatusBadRequest, "email required")
		}
		list, err := svc.UserTripsByEmail(c.Context(), email)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(list)
	})

	userTrips.Put("/:id", func(c *fiber.Ctx) error {
		var req StatusRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		session, _ := auth.SessionFrom(c)
		ut, err := svc.SetStatus(c.Context(), session.UserID, c.Params("id"), req.Status)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(ut)
	})
}

func shareLink(c *fiber.Ctx, id string) string {
	return c.BaseURL() + "/trips/" + id
}

func filtersFromQuery(c *fiber.Ctx) (discovery.Filters, discovery.SortMode, error) {
	var f discovery.Filters
	if raw := c.Query("interests"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				f.Interests = append(f.Interests, id)
			}
		}
	}
	f.Location = c.Query("location")
	f.Keyword = c.Query("q")

	var err error
	if f.StartDate, err = model.ParseDate(c.Query("start")); err != nil {
		return f, "", ErrInvalidDates
	}
	if f.EndDate, err = model.ParseDate(c.Query("end")); err != nil {
		return f, "", ErrInvalidDates
	}
	mode, err := discovery.ParseSortMode(c.Query("sort"))
	if err != nil {
		return f, "", err
	}
	return f, mode, nil
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidDates), errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrMissingFields),
		errors.Is(err, ErrOwnTrip), errors.Is(err, ErrUnknownInterest):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
