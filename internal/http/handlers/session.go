package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"shopapp/internal/session"
)

const (
	sidCookie    = "sid"
	shopperLocal = "shopper"
)

func ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies(sidCookie)
	if _, err := uuid.Parse(sid); err != nil {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{Name: sidCookie, Value: sid, Path: "/", HTTPOnly: true, SameSite: "Lax"})
	}
	return sid
}

// Shopper attaches the caller's session to the request, issuing a sid
// cookie on first contact.
func Shopper(reg *session.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(shopperLocal, reg.Ensure(ensureSID(c)))
		return c.Next()
	}
}

func shopperOf(c *fiber.Ctx) *session.Session {
	s, _ := c.Locals(shopperLocal).(*session.Session)
	return s
}
