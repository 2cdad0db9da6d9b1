package storage

import (
	"errors"

	"backend-travelbuddy/internal/auth"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/upload", authMiddleware, func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file required")
		}
		session, _ := auth.SessionFrom(c)
		up, err := svc.Store(c.Context(), session.UserID, c.FormValue("kind"), fh)
		if errors.Is(err, ErrUnsupportedType) {
			return fiber.NewError(fiber.StatusUnsupportedMediaType, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(up)
	})
}
