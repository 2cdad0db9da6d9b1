package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Session is the authenticated caller as seen by handlers.
type Session struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// JWTMiddleware validates bearer tokens and stores user_id and email in locals.
func JWTMiddleware(secret string) fiber.Handler {
	secretBytes := []byte(secret)
	return func(c *fiber.Ctx) error {
		token := bearerFromHeader(c.Get("Authorization"))
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		claims, err := middlewareClaims(token, secretBytes)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("email", claims.Email)
		return c.Next()
	}
}

// OptionalJWTMiddleware fills the session when a valid token is present and
// lets anonymous requests through otherwise.
func OptionalJWTMiddleware(secret string) fiber.Handler {
	secretBytes := []byte(secret)
	return func(c *fiber.Ctx) error {
		token := bearerFromHeader(c.Get("Authorization"))
		if token == "" {
			return c.Next()
		}
		if claims, err := middlewareClaims(token, secretBytes); err == nil {
			c.Locals("user_id", claims.UserID)
			c.Locals("email", claims.Email)
		}
		return c.Next()
	}
}

// SessionFrom reads the caller populated by the middleware.
func SessionFrom(c *fiber.Ctx) (Session, bool) {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return Session{}, false
	}
	email, _ := c.Locals("email").(string)
	return Session{UserID: userID, Email: email}, true
}

var parseMiddlewareClaimsFn = jwt.ParseWithClaims

func middlewareClaims(token string, secret []byte) (*Claims, error) {
	parsed, err := parseMiddlewareClaimsFn(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errTokenInvalid
	}
	return claims, nil
}

func bearerFromHeader(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
