package stream

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// TokenVerifier resolves an access token to its user id.
type TokenVerifier func(token string) (string, error)

// RegisterRoutes mounts the notification websocket. When verify is set the
// upgrade requires a ?token= belonging to the requested user.
func RegisterRoutes(r fiber.Router, hub *Hub, verify TokenVerifier) {
	guard := func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if verify != nil {
			userID, err := verify(c.Query("token"))
			if err != nil || userID != c.Params("userID") {
				return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
			}
		}
		return c.Next()
	}

	r.Get("/ws/:userID", guard, websocket.New(func(c *websocket.Conn) {
		client := hub.Register(c.Params("userID"))
		defer hub.Unregister(client)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for msg := range client.Send {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		}()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
		hub.Unregister(client)
		<-done
	}))
}
