package contact

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the public contact form endpoint.
func RegisterRoutes(r fiber.Router, m *Mailer) {
	r.Post("/contact", func(c *fiber.Ctx) error {
		var msg Message
		if err := c.BodyParser(&msg); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		switch err := m.Send(msg); {
		case errors.Is(err, ErrInvalidMessage):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case errors.Is(err, ErrNotConfigured):
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		case err != nil:
			return fiber.NewError(fiber.StatusInternalServerError, "failed to send email")
		}
		return c.JSON(fiber.Map{"message": "Email sent successfully"})
	})
}
