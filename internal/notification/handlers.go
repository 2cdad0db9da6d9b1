package notification

import (
	"errors"

	"backend-travelbuddy/internal/auth"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	g := r.Group("/notifications", authMiddleware)

	g.Get("/", func(c *fiber.Ctx) error {
		session, _ := auth.SessionFrom(c)
		list, err := svc.List(c.Context(), session.UserID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(list)
	})

	g.Put("/read", func(c *fiber.Ctx) error {
		session, _ := auth.SessionFrom(c)
		n, err := svc.MarkAllRead(c.Context(), session.UserID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"updated": n})
	})

	g.Put("/:id/read", func(c *fiber.Ctx) error {
		session, _ := auth.SessionFrom(c)
		err := svc.MarkRead(c.Context(), session.UserID, c.Params("id"))
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
