package social

import (
	"errors"

	"backend-travelbuddy/internal/auth"
	"backend-travelbuddy/internal/reviewscore"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/posts", authMiddleware, func(c *fiber.Ctx) error {
		var req PostRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		if req.UserTripID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_trip_id required")
		}
		session, _ := auth.SessionFrom(c)
		post, err := svc.CreatePost(c.Context(), session.UserID, req)
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(post)
	})

	r.Get("/posts", func(c *fiber.Ctx) error {
		posts, err := svc.ListPosts(c.Context(), c.Query("user_id"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(posts)
	})

	r.Post("/reviews", authMiddleware, func(c *fiber.Ctx) error {
		var req ReviewRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		session, _ := auth.SessionFrom(c)
		review, err := svc.WriteReview(c.Context(), session.UserID, req)
		if err != nil {
			return httpError(err)
		}
		status := fiber.StatusCreated
		if req.ID != "" {
			status = fiber.StatusOK
		}
		return c.Status(status).JSON(review)
	})

	r.Get("/reviews", func(c *fiber.Ctx) error {
		reviews, err := svc.ListReviews(c.Context(), c.Query("post_id"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(reviews)
	})

	r.Post("/reviews/rescore", authMiddleware, func(c *fiber.Ctx) error {
		report, err := svc.Rescore(c.Context())
		switch {
		case errors.Is(err, reviewscore.ErrPartialUpdate):
			return c.Status(fiber.StatusMultiStatus).JSON(report)
		case errors.Is(err, ErrNoRescorer):
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		case err != nil:
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(report)
	})
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, errUserTripAbsent):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrNotMember):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidRating), errors.Is(err, ErrMissingFields):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
