package profile

import (
	"errors"

	"backend-travelbuddy/internal/auth"
	"backend-travelbuddy/internal/model"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the /users endpoints.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	users := r.Group("/users")

	users.Get("/", func(c *fiber.Ctx) error {
		list, err := svc.List(c.Context(), c.Query("q"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(list)
	})

	users.Get("/me", authMiddleware, func(c *fiber.Ctx) error {
		session, _ := auth.SessionFrom(c)
		u, err := svc.Get(c.Context(), session.UserID)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(u)
	})

	users.Put("/me", authMiddleware, func(c *fiber.Ctx) error {
		var req ProfileUpdate
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		session, _ := auth.SessionFrom(c)
		u, err := svc.UpdateProfile(c.Context(), session.UserID, req)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(u)
	})

	// Keyed by the Id header. The caller's own record is replaced in full;
	// for anyone else only the server-computed review score is written.
	users.Put("/", authMiddleware, func(c *fiber.Ctx) error {
		var u model.User
		if err := c.BodyParser(&u); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		if id := c.Get("Id"); id != "" {
			u.ID = id
		}
		if u.ID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Id header required")
		}
		session, _ := auth.SessionFrom(c)
		if u.ID != session.UserID {
			written, err := svc.WriteBackScore(c.Context(), u)
			if err != nil {
				return httpError(err)
			}
			return c.JSON(written)
		}
		if err := svc.PutUser(c.Context(), u); err != nil {
			return httpError(err)
		}
		return c.JSON(u)
	})

	users.Get("/:id", func(c *fiber.Ctx) error {
		u, err := svc.Get(c.Context(), c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(u)
	})

	users.Get("/:id/profile", func(c *fiber.Ctx) error {
		p, err := svc.Profile(c.Context(), c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(p)
	})
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
